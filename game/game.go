// Package game deals bingo cards for a climbing session. It ties together
// the problem catalog, the grid generator, and event dispatch, so that every
// outer surface (HTTP, CLI) generates cards the exact same way.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	bingo "github.com/Parkreiner/climbingbingo"
	"github.com/Parkreiner/climbingbingo/catalog"
	"github.com/Parkreiner/climbingbingo/gridgen"
)

// EventDispatcher is anything that can fan generation events out to
// subscribers.
type EventDispatcher interface {
	DispatchEvent(event bingo.GenerationEvent) error
}

// Request describes the card a user wants.
type Request struct {
	Mode bingo.Mode
	// Grades defaults to catalog.DefaultGrades when nil. An empty, non-nil
	// slice selects nothing.
	Grades []bingo.GradeCode
	Size   int
	Free   bool
	// Seed makes generation reproducible. A random seed is picked when nil.
	Seed *int64
	// MaxAttempts overrides the manager's attempt budget when positive.
	MaxAttempts int
}

// Card is a single generated bingo card, plus everything needed to display
// or reproduce it.
type Card struct {
	ID     uuid.UUID         `json:"id"`
	Mode   bingo.Mode        `json:"mode"`
	Size   int               `json:"size"`
	Grades []bingo.GradeCode `json:"grades"`
	// Free reports whether a FREE cell was actually placed.
	Free          bool          `json:"free"`
	Grid          bingo.Grid    `json:"grid"`
	Score         int           `json:"score"`
	Pool          int           `json:"pool"`
	Seed          int64         `json:"seed"`
	Stats         gridgen.Stats `json:"stats"`
	GeneratedAt   time.Time     `json:"generatedAt"`
	ConditionText string        `json:"conditionText"`
}

// Manager generates cards. It is safe for concurrent use: every request gets
// its own random source.
type Manager struct {
	source      catalog.Source
	dispatcher  EventDispatcher
	logger      *logrus.Logger
	maxAttempts int
	now         func() time.Time
}

// Init is used to instantiate a Manager via the New function.
type Init struct {
	Source catalog.Source
	// Dispatcher is optional. When nil, no events are dispatched.
	Dispatcher EventDispatcher
	// Logger is optional. When nil, the standard logrus logger is used.
	Logger *logrus.Logger
	// MaxAttempts defaults to gridgen.DefaultMaxAttempts when zero.
	MaxAttempts int
	// Now defaults to time.Now.
	Now func() time.Time
}

// New creates a new Manager.
func New(init Init) (*Manager, error) {
	if init.Source == nil {
		return nil, errors.New("game manager needs a catalog source")
	}
	if init.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w (got %d)", gridgen.ErrInvalidAttempts, init.MaxAttempts)
	}

	m := &Manager{
		source:      init.Source,
		dispatcher:  init.Dispatcher,
		logger:      init.Logger,
		maxAttempts: init.MaxAttempts,
		now:         init.Now,
	}
	if m.logger == nil {
		m.logger = logrus.StandardLogger()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// DataSet exposes the catalog the manager deals cards from.
func (m *Manager) DataSet(ctx context.Context) (*catalog.DataSet, error) {
	return m.source.DataSet(ctx)
}

// Deal generates a new card. Every call dispatches exactly one
// GenerationEvent, whether or not generation succeeded.
func (m *Manager) Deal(ctx context.Context, req Request) (Card, error) {
	if err := ctx.Err(); err != nil {
		return Card{}, err
	}

	ds, err := m.source.DataSet(ctx)
	if err != nil {
		return Card{}, fmt.Errorf("loading catalog: %w", err)
	}

	mode := req.Mode
	if mode == "" {
		mode = bingo.ModeAdult
	}
	grades := req.Grades
	if grades == nil {
		grades = catalog.DefaultGrades
	}

	event := bingo.GenerationEvent{
		ID:   uuid.New(),
		Mode: mode,
		Size: req.Size,
	}

	pool, err := ds.Filter(mode, grades)
	if err != nil {
		m.fail(event, err)
		return Card{}, err
	}
	event.Pool = len(pool)

	seed := m.now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	maxAttempts := m.maxAttempts
	if req.MaxAttempts != 0 {
		maxAttempts = req.MaxAttempts
	}

	result, err := gridgen.NewWithSeed(seed).Generate(gridgen.Config{
		Size:        req.Size,
		Free:        req.Free,
		Problems:    pool,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		m.fail(event, err)
		return Card{}, err
	}

	card := Card{
		ID:            uuid.New(),
		Mode:          mode,
		Size:          req.Size,
		Grades:        grades,
		Free:          result.Free,
		Grid:          result.Grid,
		Score:         result.Stats.Score,
		Pool:          len(pool),
		Seed:          seed,
		Stats:         result.Stats,
		GeneratedAt:   m.now(),
		ConditionText: ConditionText(ds, mode, req.Size, result.Free, grades),
	}

	event.Type = bingo.EventTypeGenerated
	event.Created = card.GeneratedAt
	event.Message = fmt.Sprintf("generated %dx%d grid", card.Size, card.Size)
	event.GridID = card.ID
	event.Free = card.Free
	event.Attempts = result.Stats.Attempts
	event.Score = card.Score
	m.dispatch(event)

	return card, nil
}

func (m *Manager) fail(event bingo.GenerationEvent, err error) {
	event.Type = bingo.EventTypeFailed
	event.Created = m.now()
	event.Message = err.Error()
	m.dispatch(event)
}

func (m *Manager) dispatch(event bingo.GenerationEvent) {
	if m.dispatcher == nil {
		return
	}
	if err := m.dispatcher.DispatchEvent(event); err != nil {
		m.logger.WithFields(logrus.Fields{
			"event_id":   event.ID.String(),
			"event_type": string(event.Type),
		}).WithError(err).Warn("unable to dispatch generation event")
	}
}

// ConditionText summarizes the settings a card was generated with, e.g.
// "Adult / 3x3 / FREE / 5-6Q, 4Q".
func ConditionText(ds *catalog.DataSet, mode bingo.Mode, size int, free bool, grades []bingo.GradeCode) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s / %dx%d", mode.Label(), size, size)
	if free {
		sb.WriteString(" / FREE")
	}
	sb.WriteString(" / ")
	sb.WriteString(strings.Join(ds.Labels(grades), ", "))
	return sb.String()
}
