// Package bingo contains the main domain types (and associated helper values
// and functions) needed to generate a bingo grid of climbing problems.
package bingo

import (
	"encoding/json"
	"fmt"

	"github.com/zyedidia/generic/mapset"
)

const (
	// MinSize is the smallest grid dimension the generator accepts.
	MinSize int = 1

	// PenaltyPerMatch is added to a penalty score for every pair of
	// orthogonally adjacent problem cells that share a grade code.
	PenaltyPerMatch int = 10
)

// AllowedSizes lists the grid sizes that the outer surfaces (HTTP API, CLI)
// let users pick. The generator itself works for any size >= MinSize.
var AllowedSizes = []int{3, 4, 5}

// GradeCode is an opaque identifier for a difficulty category. Grade codes
// are only ever compared for equality.
type GradeCode = string

// GradeDef describes how a grade should be displayed.
type GradeDef struct {
	Label     string `json:"label"`
	BgColor   string `json:"bgColor"`
	FontColor string `json:"fontColor"`
}

// Problem is a single climbing problem from the catalog. It should be treated
// as 100% immutable once loaded.
type Problem struct {
	Key   string    `json:"key"`
	Grade GradeCode `json:"grade"`
	// Indicates whether the problem is eligible for ModeKid.
	Kid  bool     `json:"kid"`
	Tags []string `json:"tags,omitempty"`
}

// Mode decides which half of the catalog is eligible for a grid.
type Mode string

const (
	// ModeKid only allows problems that are flagged as kid-friendly.
	ModeKid Mode = "kid"
	// ModeAdult only allows problems that are NOT flagged as kid-friendly.
	ModeAdult Mode = "adult"
)

// ParseMode turns raw user input into a Mode.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeKid, ModeAdult:
		return Mode(raw), nil
	case "":
		return ModeAdult, nil
	default:
		return "", fmt.Errorf("mode %q must be one of %q or %q", raw, ModeKid, ModeAdult)
	}
}

// Label returns the human-readable name of a mode.
func (m Mode) Label() string {
	if m == ModeKid {
		return "Kid"
	}
	return "Adult"
}

// CellKind indicates what a grid cell holds.
type CellKind string

const (
	CellKindFree    CellKind = "free"
	CellKindProblem CellKind = "problem"
)

// Cell represents a single cell on a generated grid. The zero value is not a
// valid cell; use FreeCell or ProblemCell.
type Cell struct {
	Kind CellKind `json:"kind"`
	// Key and Grade are only set for problem cells.
	Key   string    `json:"key,omitempty"`
	Grade GradeCode `json:"grade,omitempty"`
}

// FreeCell returns the FREE marker cell.
func FreeCell() Cell {
	return Cell{Kind: CellKindFree}
}

// ProblemCell returns a cell holding the given problem.
func ProblemCell(p Problem) Cell {
	return Cell{Kind: CellKindProblem, Key: p.Key, Grade: p.Grade}
}

// IsFree reports whether the cell is the FREE marker.
func (c Cell) IsFree() bool {
	return c.Kind == CellKindFree
}

// IsProblem reports whether the cell holds a problem.
func (c Cell) IsProblem() bool {
	return c.Kind == CellKindProblem
}

// Position identifies a cell by row and column.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Center returns the middle cell of a size x size grid. For even sizes this
// is the lower-right of the four middle cells.
func Center(size int) Position {
	return Position{Row: size / 2, Col: size / 2}
}

// CanUseFree reports whether a grid of the given size has a single center
// cell that can hold the FREE marker.
func CanUseFree(size int) bool {
	return size%2 == 1
}

// Grid is a fully populated size x size arrangement of cells. A Grid returned
// by the generator should be treated as an immutable value.
type Grid [][]Cell

var _ json.Marshaler = Grid{}

// MarshalJSON makes sure that a nil grid is serialized as an empty array
// instead of JSON null.
func (g Grid) MarshalJSON() ([]byte, error) {
	rows := [][]Cell(g)
	if rows == nil {
		rows = [][]Cell{}
	}
	return json.Marshal(rows)
}

// Size returns the dimension of the grid.
func (g Grid) Size() int {
	return len(g)
}

// Score computes the global penalty of a grid. Only the right and down
// neighbors of each problem cell are checked, so every adjacent pair is
// counted exactly once.
func (g Grid) Score() int {
	score := 0
	for r, row := range g {
		for c, cell := range row {
			if !cell.IsProblem() {
				continue
			}
			if c+1 < len(row) {
				right := row[c+1]
				if right.IsProblem() && right.Grade == cell.Grade {
					score += PenaltyPerMatch
				}
			}
			if r+1 < len(g) && c < len(g[r+1]) {
				down := g[r+1][c]
				if down.IsProblem() && down.Grade == cell.Grade {
					score += PenaltyPerMatch
				}
			}
		}
	}
	return score
}

// Validate checks that a grid is square, fully populated, never repeats a
// problem, and only has a FREE cell at the center when free is true.
func (g Grid) Validate(free bool) error {
	size := len(g)
	if size < MinSize {
		return fmt.Errorf("grid has %d rows, need at least %d", size, MinSize)
	}

	center := Center(size)
	seenKeys := mapset.New[string]()
	freeCells := 0
	for r, row := range g {
		if len(row) != size {
			return fmt.Errorf("row %d has %d cells, expected %d", r, len(row), size)
		}
		for c, cell := range row {
			switch cell.Kind {
			case CellKindFree:
				if !free {
					return fmt.Errorf("unexpected FREE cell at (%d, %d)", r, c)
				}
				if r != center.Row || c != center.Col {
					return fmt.Errorf("FREE cell at (%d, %d) is not at the center", r, c)
				}
				freeCells++
			case CellKindProblem:
				if seenKeys.Has(cell.Key) {
					return fmt.Errorf("problem %q appears more than once", cell.Key)
				}
				seenKeys.Put(cell.Key)
			default:
				return fmt.Errorf("cell at (%d, %d) is not populated", r, c)
			}
		}
	}

	if free && freeCells != 1 {
		return fmt.Errorf("expected exactly one FREE cell, found %d", freeCells)
	}
	return nil
}
