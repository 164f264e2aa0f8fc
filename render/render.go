// Package render rasterizes generated grids into PNG images that can be
// printed or shared.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	bingo "github.com/Parkreiner/climbingbingo"
)

// TimestampLayout is how the generation time is printed in the footer.
const TimestampLayout = "2006/01/02 15:04:05"

const (
	defaultPixelRatio = 2

	// All layout values are in logical pixels, before PixelRatio is applied.
	boardWidth    = 520
	boardPadding  = 16
	frameBorder   = 2
	framePadding  = 8
	cellBorder    = 1
	cellPadding   = 8
	tileBorder    = 2
	tileRadius    = 8
	footerGap     = 12
	footerSpacing = 12
	lineSpacing   = 2
)

var (
	colorWhite      = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorInk        = color.RGBA{R: 0x17, G: 0x17, B: 0x17, A: 0xff}
	colorFooterText = color.RGBA{R: 0x52, G: 0x52, B: 0x52, A: 0xff}
	colorFree       = color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	colorUnknownBg  = color.RGBA{R: 0xe5, G: 0xe5, B: 0xe5, A: 0xff}
)

// ErrEmptyGrid is returned when there is nothing to draw.
var ErrEmptyGrid = errors.New("cannot render an empty grid")

// GradeLookup resolves the display settings of a grade. *catalog.DataSet
// satisfies this interface.
type GradeLookup interface {
	Grade(code bingo.GradeCode) (bingo.GradeDef, bool)
}

// Options controls the footer and output resolution of a rendered grid.
type Options struct {
	ConditionText string
	// GeneratedAt is printed in the footer. It is left out when zero.
	GeneratedAt time.Time
	// PixelRatio defaults to 2 when zero.
	PixelRatio int
}

// FileName returns the suggested file name for an exported grid.
func FileName(mode bingo.Mode, size int) string {
	return fmt.Sprintf("bingo-%s-%dx%d.png", mode, size, size)
}

// PNG renders a grid and encodes it as a PNG.
func PNG(w io.Writer, grades GradeLookup, grid bingo.Grid, opts Options) error {
	img, err := Image(grades, grid, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// Image renders a grid onto a white canvas: a framed board of rounded tiles
// in each grade's colors, followed by a footer with the condition text on the
// left and the generation time on the right.
func Image(grades GradeLookup, grid bingo.Grid, opts Options) (*image.RGBA, error) {
	size := grid.Size()
	if size == 0 {
		return nil, ErrEmptyGrid
	}
	ratio := opts.PixelRatio
	if ratio == 0 {
		ratio = defaultPixelRatio
	}
	if ratio < 0 {
		return nil, fmt.Errorf("pixel ratio must be positive (got %d)", ratio)
	}

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil() + lineSpacing

	stamp := ""
	if !opts.GeneratedAt.IsZero() {
		stamp = opts.GeneratedAt.Format(TimestampLayout)
	}
	contentWidth := boardWidth - 2*boardPadding
	stampWidth := font.MeasureString(face, stamp).Ceil()
	conditionWidth := contentWidth - stampWidth
	if stamp != "" {
		conditionWidth -= footerSpacing
	}
	lines := wrapText(face, opts.ConditionText, conditionWidth)
	footerLines := max(len(lines), 1)

	frameSize := contentWidth
	cellsSize := frameSize - 2*frameBorder - 2*framePadding
	cellSize := cellsSize / size

	height := boardPadding + frameSize + footerGap + footerLines*lineHeight + boardPadding
	canvas := image.NewRGBA(image.Rect(0, 0, boardWidth, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)

	frame := image.Rect(boardPadding, boardPadding, boardPadding+frameSize, boardPadding+frameSize)
	fillRect(canvas, frame, colorInk)
	fillRect(canvas, frame.Inset(frameBorder), colorWhite)

	origin := frame.Min.Add(image.Pt(frameBorder+framePadding, frameBorder+framePadding))
	for r, row := range grid {
		for c, cell := range row {
			cellRect := image.Rect(0, 0, cellSize, cellSize).Add(origin.Add(image.Pt(c*cellSize, r*cellSize)))
			fillRect(canvas, cellRect, colorInk)
			fillRect(canvas, cellRect.Inset(cellBorder), colorWhite)

			tile := cellRect.Inset(cellBorder + cellPadding)
			bg, fg, label, err := tileStyle(grades, cell)
			if err != nil {
				return nil, fmt.Errorf("cell (%d, %d): %w", r, c, err)
			}
			fillRoundedRect(canvas, tile, tileRadius, colorInk)
			fillRoundedRect(canvas, tile.Inset(tileBorder), tileRadius-tileBorder, bg)
			drawCentered(canvas, face, label, tile, fg)
		}
	}

	footerTop := frame.Max.Y + footerGap
	ascent := face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		drawText(canvas, face, line, image.Pt(boardPadding, footerTop+i*lineHeight+ascent), colorFooterText)
	}
	if stamp != "" {
		lastLine := footerTop + (footerLines-1)*lineHeight + ascent
		drawText(canvas, face, stamp, image.Pt(boardWidth-boardPadding-stampWidth, lastLine), colorFooterText)
	}

	if ratio == 1 {
		return canvas, nil
	}
	scaled := image.NewRGBA(image.Rect(0, 0, boardWidth*ratio, height*ratio))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
	return scaled, nil
}

func tileStyle(grades GradeLookup, cell bingo.Cell) (bg, fg color.Color, label string, err error) {
	if cell.IsFree() {
		return colorFree, colorWhite, "FREE", nil
	}
	if !cell.IsProblem() {
		return nil, nil, "", errors.New("cell is not populated")
	}

	def, ok := grades.Grade(cell.Grade)
	if !ok {
		return colorUnknownBg, colorInk, cell.Key, nil
	}
	bgColor, err := ParseHexColor(def.BgColor)
	if err != nil {
		return nil, nil, "", fmt.Errorf("grade %q background: %w", cell.Grade, err)
	}
	fontColor, err := ParseHexColor(def.FontColor)
	if err != nil {
		return nil, nil, "", fmt.Errorf("grade %q font color: %w", cell.Grade, err)
	}
	return bgColor, fontColor, cell.Key, nil
}

func fillRect(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// fillRoundedRect fills r, leaving out everything outside of the quarter
// circles in each corner.
func fillRoundedRect(dst *image.RGBA, r image.Rectangle, radius int, c color.Color) {
	radius = min(radius, r.Dx()/2, r.Dy()/2)
	if radius <= 0 {
		fillRect(dst, r, c)
		return
	}

	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if insideRoundedRect(r, radius, x, y) {
				dst.SetRGBA(x, y, rgba)
			}
		}
	}
}

func insideRoundedRect(r image.Rectangle, radius, x, y int) bool {
	var cx, cy int
	inCornerX, inCornerY := true, true
	switch {
	case x < r.Min.X+radius:
		cx = r.Min.X + radius
	case x >= r.Max.X-radius:
		cx = r.Max.X - radius - 1
	default:
		inCornerX = false
	}
	switch {
	case y < r.Min.Y+radius:
		cy = r.Min.Y + radius
	case y >= r.Max.Y-radius:
		cy = r.Max.Y - radius - 1
	default:
		inCornerY = false
	}
	if !inCornerX || !inCornerY {
		return true
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= radius*radius
}

func drawText(dst draw.Image, face font.Face, text string, baseline image.Point, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(baseline.X, baseline.Y),
	}
	d.DrawString(text)
}

func drawCentered(dst draw.Image, face font.Face, text string, r image.Rectangle, c color.Color) {
	metrics := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	x := r.Min.X + (r.Dx()-width)/2
	y := r.Min.Y + (r.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawText(dst, face, text, image.Pt(x, y), c)
}

// wrapText splits text on spaces so that every line fits within maxWidth.
// Words that are wider than maxWidth get a line of their own.
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
