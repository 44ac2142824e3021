package marking

import (
	"time"

	"github.com/okian/calmark/internal/domain/palette"
)

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithPalette sets the dot palette. An empty palette is ignored.
func WithPalette(p palette.Palette) Option {
	return func(b *Builder) {
		if p.Len() > 0 {
			b.palette = p
		}
	}
}

// WithLocation converts offset timestamps into loc before truncating them.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		b.location = loc
	}
}

// SelectorOption applies a configuration option to the Selector.
type SelectorOption func(*Selector)

// WithStaleFallback toggles the position-based color fallback used when an
// index has no dot for an event.
func WithStaleFallback(enabled bool) SelectorOption {
	return func(s *Selector) {
		s.staleFallback = enabled
	}
}
