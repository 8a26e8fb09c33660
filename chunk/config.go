// Package chunk implements the chunk-level compressor and page-level
// decompressor: the orchestration layer that ties mode detection, delta,
// binning, ANS, and metadata serialization into one coded chunk.
package chunk

// Config is a chunk's compression configuration, per spec.md §6's
// "Configuration surface".
type Config struct {
	// CompressionLevel caps n_bins at 2^level, in [0,12].
	CompressionLevel int

	// DeltaOrder pins the primary stream's delta order in [0,7]. Negative
	// means "auto": probe a prefix and pick the cheapest order.
	DeltaOrder int

	// UseGCD enables IntMult detection for integer inputs.
	UseGCD bool

	// UseFloatMult enables FloatMult detection for float inputs.
	UseFloatMult bool

	// MaxPageN bounds the number of values per page.
	MaxPageN int
}

// DefaultConfig matches spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		CompressionLevel: 8,
		DeltaOrder:       -1,
		UseGCD:           true,
		UseFloatMult:     true,
		MaxPageN:         1_000_000,
	}
}
