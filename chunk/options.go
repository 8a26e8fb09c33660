package chunk

import (
	"fmt"

	"github.com/nlatent/nlatent/errs"
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/options"
)

// Option configures a Config built through NewConfig, mirroring the
// teacher's blob.WithXxx functional-option surface.
type Option = options.Option[*Config]

// WithCompressionLevel caps n_bins at 2^level.
func WithCompressionLevel(level int) Option {
	return options.New(func(c *Config) error {
		if level < 0 || level > 12 {
			return fmt.Errorf("%w: compression_level %d", errs.ErrInvalidCompressionLevel, level)
		}
		c.CompressionLevel = level
		return nil
	})
}

// WithDeltaOrder pins the primary stream's delta order; pass -1 for auto
// selection.
func WithDeltaOrder(order int) Option {
	return options.New(func(c *Config) error {
		if order < -1 || order > format.MaxDeltaEncodingOrder {
			return fmt.Errorf("%w: delta_order %d", errs.ErrInvalidDeltaOrder, order)
		}
		c.DeltaOrder = order
		return nil
	})
}

// WithGCD toggles IntMult mode detection.
func WithGCD(enabled bool) Option {
	return options.NoError(func(c *Config) { c.UseGCD = enabled })
}

// WithFloatMult toggles FloatMult mode detection.
func WithFloatMult(enabled bool) Option {
	return options.NoError(func(c *Config) { c.UseFloatMult = enabled })
}

// WithMaxPageN bounds the number of values per page.
func WithMaxPageN(n int) Option {
	return options.New(func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max_page_n %d", errs.ErrInvalidPageSize, n)
		}
		c.MaxPageN = n
		return nil
	})
}

// NewConfig builds a Config from DefaultConfig, applying opts in order and
// stopping at the first error.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
