// Package palette assigns deterministic display colors to event positions.
package palette

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Sentinel kinds for palette errors.
var (
	ErrEmptyPalette = errors.New("palette has no colors")
	ErrInvalidColor = errors.New("invalid color")
)

// Color is a hex display color such as "#2D9CDB".
type Color string

// defaultColors is the portal's dot palette.
var defaultColors = []Color{ //nolint:gochecknoglobals // read-only palette
	"#2D9CDB", // blue
	"#F2994A", // orange
	"#27AE60", // green
	"#EB5757", // red
	"#9B51E0", // purple
	"#F2C94C", // yellow
	"#56CCF2", // light blue
	"#6FCF97", // light green
}

// Palette is a fixed, ordered set of colors cycled by position.
// The zero value is not usable; construct with New or Default.
type Palette struct {
	colors []Color
}

// New validates colors and returns a Palette that cycles through them in order.
func New(colors ...string) (Palette, error) {
	if len(colors) == 0 {
		return Palette{}, ErrEmptyPalette
	}
	out := make([]Color, len(colors))
	for i, c := range colors {
		c = strings.TrimSpace(c)
		if err := validHex(c); err != nil {
			return Palette{}, fmt.Errorf("%w %q at position %d: %w", ErrInvalidColor, c, i, err)
		}
		out[i] = Color(strings.ToUpper(c))
	}
	return Palette{colors: out}, nil
}

// MustNew is New for package-level palettes and tests. It panics on error.
func MustNew(colors ...string) Palette {
	p, err := New(colors...)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the built-in palette.
func Default() Palette {
	return Palette{colors: append([]Color(nil), defaultColors...)}
}

// ColorFor returns colors[index mod N]. Negative indices are folded into range
// so the function is total.
func (p Palette) ColorFor(index int) Color {
	n := len(p.colors)
	if n == 0 {
		return defaultColors[0]
	}
	i := index % n
	if i < 0 {
		i += n
	}
	return p.colors[i]
}

// Len returns the palette period.
func (p Palette) Len() int { return len(p.colors) }

// Colors returns a copy of the palette colors in cycle order.
func (p Palette) Colors() []Color {
	return append([]Color(nil), p.colors...)
}

// validHex accepts exactly #RGB or #RRGGBB. colorful.Hex scans with fmt and
// tolerates extra characters, so the parsed color must re-encode to the input.
func validHex(c string) error {
	if len(c) != 4 && len(c) != 7 {
		return errors.New("want #RGB or #RRGGBB")
	}
	col, err := colorful.Hex(c)
	if err != nil {
		return err
	}
	want := strings.ToLower(c)
	if len(want) == 4 {
		want = string([]byte{'#', want[1], want[1], want[2], want[2], want[3], want[3]})
	}
	if col.Hex() != want {
		return errors.New("want #RGB or #RRGGBB")
	}
	return nil
}
