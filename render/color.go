package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColor parses CSS-style hex colors: "#rgb" or "#rrggbb".
func ParseHexColor(raw string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(raw), "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("color %q must start with '#'", raw)
	}

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.RGBA{}, fmt.Errorf("color %q must have 3 or 6 hex digits", raw)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q is not valid hex: %w", raw, err)
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}
