package game_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	bingo "github.com/Parkreiner/climbingbingo"
	"github.com/Parkreiner/climbingbingo/catalog"
	"github.com/Parkreiner/climbingbingo/game"
	"github.com/Parkreiner/climbingbingo/gridgen"
)

const testDataSet = `{
	"grades": {
		"5-6": {"label": "5-6Q", "bgColor": "#f97316", "fontColor": "#ffffff"},
		"4": {"label": "4Q", "bgColor": "#16a34a", "fontColor": "#ffffff"},
		"3": {"label": "3Q", "bgColor": "#2563eb", "fontColor": "#ffffff"}
	},
	"problems": [
		{"key": "A1", "grade": "5-6"},
		{"key": "A2", "grade": "5-6"},
		{"key": "A3", "grade": "5-6"},
		{"key": "A4", "grade": "5-6"},
		{"key": "B1", "grade": "4"},
		{"key": "B2", "grade": "4"},
		{"key": "B3", "grade": "4"},
		{"key": "B4", "grade": "4"},
		{"key": "B5", "grade": "4"},
		{"key": "C1", "grade": "3"},
		{"key": "K1", "grade": "4", "kid": true},
		{"key": "K2", "grade": "4", "kid": true}
	]
}`

type staticSource struct {
	ds  *catalog.DataSet
	err error
}

func (s staticSource) DataSet(context.Context) (*catalog.DataSet, error) {
	return s.ds, s.err
}

type recordingDispatcher struct {
	mtx    sync.Mutex
	events []bingo.GenerationEvent
	err    error
}

func (d *recordingDispatcher) DispatchEvent(event bingo.GenerationEvent) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func newManager(t *testing.T, dispatcher game.EventDispatcher) *game.Manager {
	t.Helper()
	ds, err := catalog.Parse([]byte(testDataSet))
	if err != nil {
		t.Fatalf("parsing test dataset: %v", err)
	}
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	m, err := game.New(game.Init{
		Source:     staticSource{ds: ds},
		Dispatcher: dispatcher,
		Now:        func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func seed(n int64) *int64 {
	return &n
}

func TestDeal_DefaultRequest(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	m := newManager(t, dispatcher)

	card, err := m.Deal(context.Background(), game.Request{Size: 3, Free: true, Seed: seed(7)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if card.ID == uuid.Nil {
		t.Error("expected card to have an ID")
	}
	if card.Mode != bingo.ModeAdult {
		t.Errorf("expected adult mode by default, got %q", card.Mode)
	}
	if diff := cmp.Diff(catalog.DefaultGrades, card.Grades); diff != "" {
		t.Errorf("unexpected grades (-want +got):\n%s", diff)
	}
	if card.Pool != 9 {
		t.Errorf("expected pool of 9 adult problems, got %d", card.Pool)
	}
	if !card.Free {
		t.Error("expected FREE to be placed on a 3x3 card")
	}
	if err := card.Grid.Validate(true); err != nil {
		t.Errorf("invalid grid: %v", err)
	}
	if card.Score != card.Grid.Score() {
		t.Errorf("card score %d does not match grid score %d", card.Score, card.Grid.Score())
	}
	if card.Seed != 7 {
		t.Errorf("expected seed 7, got %d", card.Seed)
	}
	if want := "Adult / 3x3 / FREE / 5-6Q, 4Q"; card.ConditionText != want {
		t.Errorf("ConditionText = %q, want %q", card.ConditionText, want)
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(dispatcher.events))
	}
	event := dispatcher.events[0]
	if event.Type != bingo.EventTypeGenerated {
		t.Errorf("expected generated event, got %q", event.Type)
	}
	if event.GridID != card.ID {
		t.Errorf("event grid ID %s does not match card ID %s", event.GridID, card.ID)
	}
	if event.Pool != 9 || event.Size != 3 || !event.Free {
		t.Errorf("unexpected event details %+v", event)
	}
}

func TestDeal_SameSeedSameCard(t *testing.T) {
	m := newManager(t, nil)
	req := game.Request{Size: 3, Free: true, Seed: seed(42)}

	first, err := m.Deal(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.Deal(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(first.Grid, second.Grid); diff != "" {
		t.Errorf("same seed produced different grids (-first +second):\n%s", diff)
	}
	if first.ID == second.ID {
		t.Error("expected every card to get its own ID")
	}
}

func TestDeal_EvenSizeIgnoresFree(t *testing.T) {
	m := newManager(t, nil)
	_, err := m.Deal(context.Background(), game.Request{Size: 4, Free: true, Seed: seed(1)})
	insufficient, ok := bingo.IsInsufficientPool(err)
	if !ok {
		t.Fatalf("expected InsufficientPoolError, got %v", err)
	}
	if insufficient.Required != 16 || insufficient.Actual != 9 {
		t.Errorf("unexpected error details %+v", insufficient)
	}
}

func TestDeal_KidMode(t *testing.T) {
	m := newManager(t, nil)
	_, err := m.Deal(context.Background(), game.Request{Mode: bingo.ModeKid, Size: 3, Free: true})
	insufficient, ok := bingo.IsInsufficientPool(err)
	if !ok {
		t.Fatalf("expected InsufficientPoolError, got %v", err)
	}
	if insufficient.Actual != 2 {
		t.Errorf("expected only the 2 kid problems to be eligible, got %d", insufficient.Actual)
	}
}

func TestDeal_Failures(t *testing.T) {
	sourceErr := errors.New("disk on fire")

	tests := []struct {
		name  string
		req   game.Request
		check func(error) bool
	}{
		{
			name:  "empty grade selection",
			req:   game.Request{Grades: []bingo.GradeCode{}, Size: 3, Free: true},
			check: func(err error) bool { _, ok := bingo.IsInsufficientPool(err); return ok },
		},
		{
			name:  "unknown grade",
			req:   game.Request{Grades: []bingo.GradeCode{"V17"}, Size: 3},
			check: func(err error) bool { return errors.Is(err, catalog.ErrUnknownGrade) },
		},
		{
			name:  "unknown mode",
			req:   game.Request{Mode: "toddler", Size: 3},
			check: func(err error) bool { return errors.Is(err, catalog.ErrInvalidMode) },
		},
		{
			name:  "invalid size",
			req:   game.Request{Size: 0},
			check: func(err error) bool { return errors.Is(err, bingo.ErrInvalidSize) },
		},
		{
			name:  "negative attempts",
			req:   game.Request{Size: 3, MaxAttempts: -1},
			check: func(err error) bool { return errors.Is(err, gridgen.ErrInvalidAttempts) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &recordingDispatcher{}
			m := newManager(t, dispatcher)

			_, err := m.Deal(context.Background(), tt.req)
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			if len(dispatcher.events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(dispatcher.events))
			}
			event := dispatcher.events[0]
			if event.Type != bingo.EventTypeFailed {
				t.Errorf("expected failed event, got %q", event.Type)
			}
			if event.Message != err.Error() {
				t.Errorf("event message %q does not match error %q", event.Message, err.Error())
			}
			if event.GridID != uuid.Nil {
				t.Errorf("failed events should not have a grid ID, got %s", event.GridID)
			}
		})
	}

	t.Run("catalog unavailable", func(t *testing.T) {
		m, err := game.New(game.Init{Source: staticSource{err: sourceErr}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := m.Deal(context.Background(), game.Request{Size: 3}); !errors.Is(err, sourceErr) {
			t.Errorf("expected source error, got %v", err)
		}
	})
}

func TestDeal_DispatchErrorsDoNotFailGeneration(t *testing.T) {
	dispatcher := &recordingDispatcher{err: errors.New("subscriber too slow")}
	m := newManager(t, dispatcher)

	if _, err := m.Deal(context.Background(), game.Request{Size: 3, Free: true, Seed: seed(3)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeal_CanceledContext(t *testing.T) {
	m := newManager(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Deal(ctx, game.Request{Size: 3}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := game.New(game.Init{}); err == nil {
		t.Error("expected error without a source")
	}
	if _, err := game.New(game.Init{Source: staticSource{}, MaxAttempts: -3}); !errors.Is(err, gridgen.ErrInvalidAttempts) {
		t.Errorf("expected ErrInvalidAttempts, got %v", err)
	}
}

func TestConditionText(t *testing.T) {
	ds, err := catalog.Parse([]byte(testDataSet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		mode   bingo.Mode
		size   int
		free   bool
		grades []bingo.GradeCode
		want   string
	}{
		{bingo.ModeAdult, 3, true, []bingo.GradeCode{"5-6", "4"}, "Adult / 3x3 / FREE / 5-6Q, 4Q"},
		{bingo.ModeKid, 4, false, []bingo.GradeCode{"3"}, "Kid / 4x4 / 3Q"},
		{bingo.ModeAdult, 5, false, []bingo.GradeCode{"4", "X"}, "Adult / 5x5 / 4Q, X"},
	}

	for _, tt := range tests {
		if got := game.ConditionText(ds, tt.mode, tt.size, tt.free, tt.grades); got != tt.want {
			t.Errorf("ConditionText() = %q, want %q", got, tt.want)
		}
	}
}
