package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ColorLiteralPattern matches hex color literals in style sources.
var ColorLiteralPattern = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)

// FontSizePattern matches font-size declarations with a px value.
var FontSizePattern = regexp.MustCompile(`font-size\s*:\s*(\d+(?:\.\d+)?)px`)

// RGB is a parsed color literal.
type RGB struct {
	R, G, B float64
}

// ParseHexColor parses #rgb and #rrggbb literals.
func ParseHexColor(s string) (RGB, bool) {
	s = strings.TrimPrefix(s, "#")

	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return RGB{}, false
	}

	value, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}

	return RGB{
		R: float64(value >> 16 & 0xff),
		G: float64(value >> 8 & 0xff),
		B: float64(value & 0xff),
	}, true
}

// Distance is the Euclidean distance between two colors in RGB space.
func (c RGB) Distance(other RGB) float64 {
	dr := c.R - other.R
	dg := c.G - other.G
	db := c.B - other.B

	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Hex renders the color back as a #rrggbb literal.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", int(c.R), int(c.G), int(c.B))
}

// NearestColor finds the closest token to a literal. ok is false when the
// token list is empty.
func NearestColor(literal RGB, tokens []RGB) (nearest RGB, distance float64, ok bool) {
	distance = math.MaxFloat64

	for _, token := range tokens {
		if d := literal.Distance(token); d < distance {
			distance = d
			nearest = token
			ok = true
		}
	}

	return nearest, distance, ok
}

// NearestFontSize finds the closest token size to a literal.
func NearestFontSize(literal float64, tokens []float64) (nearest, delta float64, ok bool) {
	delta = math.MaxFloat64

	for _, token := range tokens {
		if d := math.Abs(literal - token); d < delta {
			delta = d
			nearest = token
			ok = true
		}
	}

	return nearest, delta, ok
}
