package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	bingo "github.com/Parkreiner/climbingbingo"
	"github.com/Parkreiner/climbingbingo/game"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGenerate_Text(t *testing.T) {
	out, err := run(t, "generate", "--seed", "9", "--size", "3", "--log-level", "error")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "Adult / 3x3 / FREE / 5-6Q, 4Q" {
		t.Errorf("unexpected condition line %q", lines[0])
	}
	if !strings.Contains(out, "FREE\t") && !strings.Contains(out, "FREE ") {
		t.Errorf("expected a FREE cell in the output:\n%s", out)
	}
	if !strings.Contains(out, "seed: 9") {
		t.Errorf("expected the seed to be printed:\n%s", out)
	}
}

func TestGenerate_JSONIsReproducible(t *testing.T) {
	var grids []bingo.Grid
	for i := 0; i < 2; i++ {
		out, err := run(t, "generate", "--seed", "21", "--size", "5", "--grades", "5-6,4,3", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var card game.Card
		if err := json.Unmarshal([]byte(out), &card); err != nil {
			t.Fatalf("output is not a card: %v\n%s", err, out)
		}
		if err := card.Grid.Validate(true); err != nil {
			t.Fatalf("invalid grid: %v", err)
		}
		grids = append(grids, card.Grid)
	}

	first, _ := json.Marshal(grids[0])
	second, _ := json.Marshal(grids[1])
	if !bytes.Equal(first, second) {
		t.Errorf("same seed produced different grids:\n%s\n%s", first, second)
	}
}

func TestGenerate_Errors(t *testing.T) {
	if _, err := run(t, "generate", "--grades", ""); err == nil || !strings.Contains(err.Error(), "not enough problems") {
		t.Errorf("expected insufficient pool error, got %v", err)
	}
	if _, err := run(t, "generate", "--size", "6"); err == nil {
		t.Error("expected unsupported size to be rejected")
	}
	if _, err := run(t, "generate", "--mode", "toddler"); err == nil {
		t.Error("expected unknown mode to be rejected")
	}
}

func TestGenerate_PNGIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, "generate", "--mode", "adult", "--size", "4", "--grades", "10,9,8,7,5-6,4,3", "--png", dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	file, err := os.Open(filepath.Join(dir, "bingo-adult-4x4.png"))
	if err != nil {
		t.Fatalf("expected PNG to be written: %v", err)
	}
	defer file.Close()
	if _, err := png.Decode(file); err != nil {
		t.Errorf("invalid PNG: %v", err)
	}
}

func TestGenerate_EventLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	if _, err := run(t, "generate", "--seed", "3", "--event-log", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &line); err != nil {
		t.Fatalf("event log line is not JSON: %v\n%s", err, raw)
	}
	if line["event_type"] != "generated" {
		t.Errorf("unexpected event type %v", line["event_type"])
	}
}

func TestCatalog(t *testing.T) {
	out, err := run(t, "catalog", "--mode", "kid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "CODE") {
		t.Errorf("expected a header row:\n%s", out)
	}
	if !strings.Contains(out, "Kid total") {
		t.Errorf("expected a total row:\n%s", out)
	}
}
