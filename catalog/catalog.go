// Package catalog provides the static dataset of grades and climbing problems
// that bingo grids are generated from.
package catalog

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/zyedidia/generic/mapset"

	bingo "github.com/Parkreiner/climbingbingo"
)

//go:embed data/bouldering.json
var dataFS embed.FS

const embeddedPath = "data/bouldering.json"

var (
	ErrUnknownGrade = errors.New("unknown grade")
	ErrInvalidMode  = errors.New("invalid mode")
)

// DefaultGrades is the grade selection used when a caller doesn't pick one.
var DefaultGrades = []bingo.GradeCode{"5-6", "4"}

// DataSet is the full catalog of grades and problems. It should be treated as
// 100% immutable once loaded, which makes it safe to share between goroutines.
type DataSet struct {
	Grades   map[bingo.GradeCode]bingo.GradeDef `json:"grades"`
	Problems []bingo.Problem                    `json:"problems"`
	// GradeOrder lists every grade code in the order the dataset defines them.
	GradeOrder []bingo.GradeCode `json:"-"`
}

// Source provides access to a dataset.
type Source interface {
	DataSet(ctx context.Context) (*DataSet, error)
}

// Parse decodes and validates a dataset.
func Parse(raw []byte) (*DataSet, error) {
	var ds DataSet
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	var envelope struct {
		Grades json.RawMessage `json:"grades"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode dataset grades: %w", err)
	}
	order, err := objectKeys(envelope.Grades)
	if err != nil {
		return nil, fmt.Errorf("read grade order: %w", err)
	}
	ds.GradeOrder = order

	if err := ds.validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// LoadFile reads a dataset from disk.
func LoadFile(path string) (*DataSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %q: %w", path, err)
	}
	ds, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", path, err)
	}
	return ds, nil
}

func (ds *DataSet) validate() error {
	if len(ds.Grades) == 0 {
		return errors.New("dataset has no grades")
	}

	seenKeys := mapset.New[string]()
	for i, p := range ds.Problems {
		if p.Key == "" {
			return fmt.Errorf("problem %d has an empty key", i)
		}
		if seenKeys.Has(p.Key) {
			return fmt.Errorf("problem key %q is used more than once", p.Key)
		}
		seenKeys.Put(p.Key)
		if _, ok := ds.Grades[p.Grade]; !ok {
			return fmt.Errorf("problem %q: %w %q", p.Key, ErrUnknownGrade, p.Grade)
		}
	}
	return nil
}

// Grade looks up the display definition of a grade.
func (ds *DataSet) Grade(code bingo.GradeCode) (bingo.GradeDef, bool) {
	def, ok := ds.Grades[code]
	return def, ok
}

// Filter returns every problem that is eligible for the given mode and has
// one of the selected grades, in catalog order. An empty selection yields an
// empty pool.
func (ds *DataSet) Filter(mode bingo.Mode, grades []bingo.GradeCode) ([]bingo.Problem, error) {
	if mode != bingo.ModeKid && mode != bingo.ModeAdult {
		return nil, fmt.Errorf("%w %q", ErrInvalidMode, mode)
	}

	selected := mapset.New[bingo.GradeCode]()
	for _, code := range grades {
		if _, ok := ds.Grades[code]; !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownGrade, code)
		}
		selected.Put(code)
	}

	var pool []bingo.Problem
	for _, p := range ds.Problems {
		if !eligible(p, mode) {
			continue
		}
		if !selected.Has(p.Grade) {
			continue
		}
		pool = append(pool, p)
	}
	return pool, nil
}

// Counts returns how many problems of each grade are eligible for a mode.
// Grades without any eligible problems are reported as zero.
func (ds *DataSet) Counts(mode bingo.Mode) map[bingo.GradeCode]int {
	counts := make(map[bingo.GradeCode]int, len(ds.Grades))
	for code := range ds.Grades {
		counts[code] = 0
	}
	for _, p := range ds.Problems {
		if eligible(p, mode) {
			counts[p.Grade]++
		}
	}
	return counts
}

// Labels maps grade codes onto their labels, falling back to the code itself
// for grades the dataset doesn't know about.
func (ds *DataSet) Labels(grades []bingo.GradeCode) []string {
	labels := make([]string, len(grades))
	for i, code := range grades {
		labels[i] = code
		if def, ok := ds.Grades[code]; ok && def.Label != "" {
			labels[i] = def.Label
		}
	}
	return labels
}

// SortGrades returns the given codes in dataset order, dropping duplicates.
// Unknown codes are kept at the end in the order they were given.
func (ds *DataSet) SortGrades(grades []bingo.GradeCode) []bingo.GradeCode {
	wanted := mapset.New[bingo.GradeCode]()
	for _, code := range grades {
		wanted.Put(code)
	}

	sorted := make([]bingo.GradeCode, 0, wanted.Size())
	added := mapset.New[bingo.GradeCode]()
	for _, code := range ds.GradeOrder {
		if wanted.Has(code) {
			sorted = append(sorted, code)
			added.Put(code)
		}
	}
	for _, code := range grades {
		if !added.Has(code) {
			sorted = append(sorted, code)
			added.Put(code)
		}
	}
	return sorted
}

func eligible(p bingo.Problem, mode bingo.Mode) bool {
	if mode == bingo.ModeKid {
		return p.Kid
	}
	return !p.Kid
}

// ParseGradeList splits a comma-separated list of grade codes.
func ParseGradeList(raw string) []bingo.GradeCode {
	var grades []bingo.GradeCode
	for _, code := range strings.Split(raw, ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			grades = append(grades, code)
		}
	}
	return grades
}

// objectKeys returns the keys of a JSON object in the order they appear.
func objectKeys(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// EmbeddedStore serves the dataset that ships with the binary.
type EmbeddedStore struct {
	once sync.Once
	ds   *DataSet
	err  error
}

var _ Source = &EmbeddedStore{}

// NewEmbeddedStore creates an EmbeddedStore. The dataset is parsed lazily on
// first use.
func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{}
}

func (s *EmbeddedStore) init() {
	raw, err := dataFS.ReadFile(embeddedPath)
	if err != nil {
		s.err = fmt.Errorf("read embedded dataset: %w", err)
		return
	}
	s.ds, s.err = Parse(raw)
}

// DataSet returns the embedded dataset.
func (s *EmbeddedStore) DataSet(_ context.Context) (*DataSet, error) {
	s.once.Do(s.init)
	return s.ds, s.err
}

// FileStore serves a dataset that was loaded from disk at startup.
type FileStore struct {
	ds *DataSet
}

var _ Source = &FileStore{}

// NewFileStore loads the dataset at path.
func NewFileStore(path string) (*FileStore, error) {
	ds, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{ds: ds}, nil
}

// DataSet returns the loaded dataset.
func (s *FileStore) DataSet(_ context.Context) (*DataSet, error) {
	return s.ds, nil
}
