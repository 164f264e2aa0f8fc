// Package server exposes bingo card generation over HTTP.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	bingo "github.com/Parkreiner/climbingbingo"
	"github.com/Parkreiner/climbingbingo/catalog"
	"github.com/Parkreiner/climbingbingo/game"
	"github.com/Parkreiner/climbingbingo/gridgen"
	"github.com/Parkreiner/climbingbingo/render"
)

// MaxRequestAttempts caps the attempt budget a single HTTP request can ask
// for.
const MaxRequestAttempts = 1000

var errInvalidRequest = errors.New("invalid request")

// Handler serves the HTTP API.
type Handler struct {
	game        *game.Manager
	logger      *logrus.Logger
	defaultSize int
	defaultFree bool
}

// Init is used to instantiate a Handler via the NewHandler function.
type Init struct {
	Game   *game.Manager
	Logger *logrus.Logger
	// DefaultSize is used when a request omits the size. It defaults to 3.
	DefaultSize int
	DefaultFree bool
}

func NewHandler(init Init) *Handler {
	h := &Handler{
		game:        init.Game,
		logger:      init.Logger,
		defaultSize: init.DefaultSize,
		defaultFree: init.DefaultFree,
	}
	if h.logger == nil {
		h.logger = logrus.StandardLogger()
	}
	if h.defaultSize == 0 {
		h.defaultSize = 3
	}
	return h
}

// New creates an echo instance with every middleware and route registered.
func New(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(RequestIDMiddleware())
	e.Use(LoggingMiddleware(h.logger))
	h.Register(e)
	return e
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/v1/catalog", h.Catalog)
	e.POST("/v1/grids", h.CreateGrid)
	e.POST("/v1/grids/png", h.CreateGridPNG)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) Catalog(c echo.Context) error {
	mode, err := bingo.ParseMode(c.QueryParam("mode"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	ds, err := h.game.DataSet(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}

	counts := ds.Counts(mode)
	grades := make([]GradeResponse, 0, len(ds.GradeOrder))
	for _, code := range ds.GradeOrder {
		def, _ := ds.Grade(code)
		grades = append(grades, GradeResponse{
			Code:      code,
			Label:     def.Label,
			BgColor:   def.BgColor,
			FontColor: def.FontColor,
			Count:     counts[code],
		})
	}

	return c.JSON(http.StatusOK, CatalogResponse{
		Mode:          mode,
		Grades:        grades,
		DefaultGrades: catalog.DefaultGrades,
		Sizes:         bingo.AllowedSizes,
	})
}

func (h *Handler) CreateGrid(c echo.Context) error {
	card, err := h.deal(c)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toGridResponse(card, requestID(c)))
}

func (h *Handler) CreateGridPNG(c echo.Context) error {
	card, err := h.deal(c)
	if err != nil {
		return h.mapError(c, err)
	}

	ds, err := h.game.DataSet(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}

	var buf bytes.Buffer
	err = render.PNG(&buf, ds, card.Grid, render.Options{
		ConditionText: card.ConditionText,
		GeneratedAt:   card.GeneratedAt,
	})
	if err != nil {
		return h.mapError(c, err)
	}

	header := c.Response().Header()
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.FileName(card.Mode, card.Size)))
	header.Set("X-Grid-Id", card.ID.String())
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) deal(c echo.Context) (game.Card, error) {
	var body GridRequest
	if err := c.Bind(&body); err != nil {
		return game.Card{}, fmt.Errorf("%w: malformed body", errInvalidRequest)
	}

	req, err := h.toGameRequest(body)
	if err != nil {
		return game.Card{}, err
	}
	return h.game.Deal(c.Request().Context(), req)
}

func (h *Handler) toGameRequest(body GridRequest) (game.Request, error) {
	mode, err := bingo.ParseMode(body.Mode)
	if err != nil {
		return game.Request{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	size := h.defaultSize
	if body.Size != nil {
		size = *body.Size
	}
	if !slices.Contains(bingo.AllowedSizes, size) {
		return game.Request{}, fmt.Errorf("%w: size must be one of %v", errInvalidRequest, bingo.AllowedSizes)
	}

	free := h.defaultFree
	if body.Free != nil {
		free = *body.Free
	}

	if body.MaxAttempts < 0 || body.MaxAttempts > MaxRequestAttempts {
		return game.Request{}, fmt.Errorf("%w: maxAttempts must be between 0 and %d", errInvalidRequest, MaxRequestAttempts)
	}

	return game.Request{
		Mode:        mode,
		Grades:      slices.Clone(body.Grades),
		Size:        size,
		Free:        free,
		Seed:        body.Seed,
		MaxAttempts: body.MaxAttempts,
	}, nil
}

func toGridResponse(card game.Card, requestID string) GridResponse {
	return GridResponse{
		ID:            card.ID.String(),
		Mode:          card.Mode,
		Size:          card.Size,
		Grades:        card.Grades,
		Free:          card.Free,
		Grid:          card.Grid,
		Score:         card.Score,
		Pool:          card.Pool,
		Seed:          card.Seed,
		GeneratedAt:   card.GeneratedAt,
		ConditionText: card.ConditionText,
		Stats:         toStatsResponse(card.Stats),
		Meta:          MetaResponse{RequestID: requestID},
	}
}

func (h *Handler) mapError(c echo.Context, err error) error {
	if insufficient, ok := bingo.IsInsufficientPool(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: insufficient.Error()})
	}

	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, catalog.ErrUnknownGrade),
		errors.Is(err, catalog.ErrInvalidMode),
		errors.Is(err, bingo.ErrInvalidSize),
		errors.Is(err, gridgen.ErrInvalidAttempts):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, bingo.ErrGenerationFailed):
		h.logger.WithField("request_id", requestID(c)).Warn("grid generation exhausted every attempt")
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: bingo.ErrGenerationFailed.Error()})
	default:
		h.logger.WithField("request_id", requestID(c)).WithError(err).Error("internal error")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
