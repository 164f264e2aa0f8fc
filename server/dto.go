package server

import (
	"time"

	bingo "github.com/Parkreiner/climbingbingo"
	"github.com/Parkreiner/climbingbingo/gridgen"
)

// GridRequest is the JSON body accepted by POST /v1/grids and
// POST /v1/grids/png. Omitted fields fall back to the server defaults.
type GridRequest struct {
	Mode        string   `json:"mode"`
	Grades      []string `json:"grades"`
	Size        *int     `json:"size"`
	Free        *bool    `json:"free"`
	Seed        *int64   `json:"seed"`
	MaxAttempts int      `json:"maxAttempts"`
}

// GridResponse is the JSON shape returned by POST /v1/grids.
type GridResponse struct {
	ID            string            `json:"id"`
	Mode          bingo.Mode        `json:"mode"`
	Size          int               `json:"size"`
	Grades        []bingo.GradeCode `json:"grades"`
	Free          bool              `json:"free"`
	Grid          bingo.Grid        `json:"grid"`
	Score         int               `json:"score"`
	Pool          int               `json:"pool"`
	Seed          int64             `json:"seed"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	ConditionText string            `json:"conditionText"`
	Stats         StatsResponse     `json:"stats"`
	Meta          MetaResponse      `json:"meta"`
}

type StatsResponse struct {
	Attempts   int   `json:"attempts"`
	Completed  int   `json:"completed"`
	DurationMS int64 `json:"durationMs"`
}

type MetaResponse struct {
	RequestID string `json:"request_id"`
}

// CatalogResponse is the JSON shape returned by GET /v1/catalog.
type CatalogResponse struct {
	Mode          bingo.Mode        `json:"mode"`
	Grades        []GradeResponse   `json:"grades"`
	DefaultGrades []bingo.GradeCode `json:"defaultGrades"`
	Sizes         []int             `json:"sizes"`
}

type GradeResponse struct {
	Code      bingo.GradeCode `json:"code"`
	Label     string          `json:"label"`
	BgColor   string          `json:"bgColor"`
	FontColor string          `json:"fontColor"`
	// Count is how many problems of the grade are eligible for the mode.
	Count int `json:"count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toStatsResponse(stats gridgen.Stats) StatsResponse {
	return StatsResponse{
		Attempts:   stats.Attempts,
		Completed:  stats.Completed,
		DurationMS: stats.Duration.Milliseconds(),
	}
}
