// Package gridgen arranges climbing problems on a square bingo grid so that
// problems of the same grade are spread out as much as possible.
package gridgen

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	bingo "github.com/Parkreiner/climbingbingo"
	"github.com/Parkreiner/climbingbingo/shuffler"
)

const (
	// DefaultMaxAttempts is how many independent attempts are made when a
	// Config does not specify its own budget.
	DefaultMaxAttempts = 140

	// OptimalScore is the best possible penalty score. Generation stops as
	// soon as an attempt reaches it.
	OptimalScore = 0
)

// ErrInvalidAttempts is returned when a Config has a negative attempt budget.
var ErrInvalidAttempts = errors.New("max attempts must not be negative")

// Config describes a single generation request.
type Config struct {
	Size int
	// Free is the caller's intent. It is ignored for even sizes, since they
	// have no single center cell.
	Free     bool
	Problems []bingo.Problem
	// MaxAttempts defaults to DefaultMaxAttempts when zero.
	MaxAttempts int
}

// Stats captures how much work a generation took.
type Stats struct {
	// Attempts is the number of attempts that were started.
	Attempts int `json:"attempts"`
	// Completed is the number of attempts that produced a full grid.
	Completed int           `json:"completed"`
	Score     int           `json:"score"`
	Duration  time.Duration `json:"duration"`
}

// Result is a successfully generated grid.
type Result struct {
	Grid bingo.Grid
	// Free reports whether a FREE cell was actually placed.
	Free  bool
	Stats Stats
}

// Generator produces bingo grids from a random source.
type Generator struct {
	src shuffler.Source
}

// New creates a Generator that draws all of its randomness from src. A
// Generator is only as safe for concurrent use as its source.
func New(src shuffler.Source) *Generator {
	return &Generator{src: src}
}

// NewWithSeed creates a Generator backed by a seeded source.
func NewWithSeed(rngSeed int64) *Generator {
	return New(shuffler.NewSource(rngSeed))
}

// RequiredProblems returns how many problems a grid of the given size needs.
func RequiredProblems(size int, free bool) int {
	total := size * size
	if free && bingo.CanUseFree(size) {
		return total - 1
	}
	return total
}

// Generate runs up to cfg.MaxAttempts independent attempts and returns the
// complete grid with the lowest penalty score.
func (g *Generator) Generate(cfg Config) (Result, error) {
	start := time.Now()
	if cfg.Size < bingo.MinSize {
		return Result{}, fmt.Errorf("%w (got %d)", bingo.ErrInvalidSize, cfg.Size)
	}
	if cfg.MaxAttempts < 0 {
		return Result{}, fmt.Errorf("%w (got %d)", ErrInvalidAttempts, cfg.MaxAttempts)
	}

	free := cfg.Free && bingo.CanUseFree(cfg.Size)
	required := RequiredProblems(cfg.Size, free)
	if len(cfg.Problems) < required {
		return Result{}, &bingo.InsufficientPoolError{
			Required: required,
			Actual:   len(cfg.Problems),
		}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var stats Stats
	var best bingo.Grid
	bestScore := math.MaxInt
	for attempt := 0; attempt < maxAttempts; attempt++ {
		stats.Attempts++

		picked, err := shuffler.SampleUnique(cfg.Problems, required, g.src)
		if err != nil {
			return Result{}, fmt.Errorf("sampling problems: %w", err)
		}

		grid, ok := g.fillCells(cfg.Size, free, picked)
		if !ok {
			continue
		}
		stats.Completed++

		score := grid.Score()
		if score < bestScore {
			bestScore = score
			best = grid
			if bestScore == OptimalScore {
				break
			}
		}
	}

	if best == nil {
		return Result{}, bingo.ErrGenerationFailed
	}

	stats.Score = bestScore
	stats.Duration = time.Since(start)
	return Result{Grid: best, Free: free, Stats: stats}, nil
}

// fillCells runs a single attempt. Cells are visited in a random order, and
// each one greedily receives the remaining problem with the lowest neighbor
// penalty. Incomplete grids are reported as not ok.
func (g *Generator) fillCells(size int, free bool, picked []bingo.Problem) (bingo.Grid, bool) {
	working := make([][]*bingo.Cell, size)
	for i := range working {
		working[i] = make([]*bingo.Cell, size)
	}

	center := bingo.Center(size)
	if free {
		freeCell := bingo.FreeCell()
		working[center.Row][center.Col] = &freeCell
	}

	var coords []bingo.Position
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if working[r][c] == nil {
				coords = append(coords, bingo.Position{Row: r, Col: c})
			}
		}
	}
	coords = shuffler.Shuffle(coords, g.src)

	pool := slices.Clone(picked)
	for _, pos := range coords {
		bestIndex := -1
		bestLocal := math.MaxInt
		for i, candidate := range pool {
			p := neighborPenalty(working, pos, candidate.Grade)
			if p < bestLocal {
				bestLocal = p
				bestIndex = i
				if bestLocal == OptimalScore {
					break
				}
			}
		}

		if bestIndex == -1 {
			break
		}

		chosen := bingo.ProblemCell(pool[bestIndex])
		pool = slices.Delete(pool, bestIndex, bestIndex+1)
		working[pos.Row][pos.Col] = &chosen
	}

	grid := make(bingo.Grid, size)
	for r, row := range working {
		grid[r] = make([]bingo.Cell, size)
		for c, cell := range row {
			if cell == nil {
				return nil, false
			}
			grid[r][c] = *cell
		}
	}
	return grid, true
}

var neighborOffsets = [4]bingo.Position{
	{Row: -1, Col: 0},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: 0, Col: 1},
}

// neighborPenalty scores placing a problem of the given grade at pos, by
// looking at all four orthogonal neighbors. Empty, FREE and out-of-grid
// neighbors never add to the penalty.
func neighborPenalty(working [][]*bingo.Cell, pos bingo.Position, grade bingo.GradeCode) int {
	score := 0
	for _, offset := range neighborOffsets {
		r := pos.Row + offset.Row
		c := pos.Col + offset.Col
		if r < 0 || r >= len(working) || c < 0 || c >= len(working[r]) {
			continue
		}
		cell := working[r][c]
		if cell == nil {
			continue
		}
		if cell.IsProblem() && cell.Grade == grade {
			score += bingo.PenaltyPerMatch
		}
	}
	return score
}
