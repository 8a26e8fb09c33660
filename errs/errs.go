// Package errs defines the sentinel errors returned by nlatent's compression
// and decompression pipeline.
//
// Call sites wrap these with fmt.Errorf("%w: ...", errs.ErrXxx) to attach
// context while still letting callers use errors.Is against the sentinels.
package errs

import "errors"

// Error classes, per the spec's three-way error taxonomy: corruption found
// in previously-trusted bytes, a reader that ran past its declared bounds,
// and bad caller-supplied configuration.
var (
	// ErrCorruption marks compressed bytes that are internally inconsistent;
	// the bit reader wraps it when padding bits are nonzero. The more
	// specific corruption-class sentinels below are separate values and do
	// not wrap it.
	ErrCorruption = errors.New("nlatent: corruption")

	// ErrInsufficientData is returned when a reader's bit cursor advances
	// past the declared bit length of its source.
	ErrInsufficientData = errors.New("nlatent: insufficient data")

	// ErrInvalidArgument is returned for out-of-range configuration or
	// malformed compression requests. Never returned during decompression.
	ErrInvalidArgument = errors.New("nlatent: invalid argument")
)

// Corruption-class sentinels.
var (
	ErrUnknownModeTag         = errors.New("unknown mode tag")
	ErrWeightSumMismatch      = errors.New("bin weights do not sum to ANS table size")
	ErrOffsetBitsExceedWidth  = errors.New("offset_bits exceeds latent width")
	ErrTooManyBins            = errors.New("n_bins exceeds 2^ans_size_log")
	ErrFutureFormatVersion    = errors.New("format version newer than this decoder supports")
	ErrNonzeroPadding         = errors.New("nonzero padding bits at byte boundary")
	ErrBadMagicHeader         = errors.New("bad magic header")
	ErrUnexpectedChunkByte    = errors.New("expected chunk marker byte")
	ErrUnexpectedTermByte     = errors.New("expected termination marker byte")
	ErrDigestMismatch         = errors.New("chunk metadata digest mismatch")
	ErrDisallowedLegacyMode   = errors.New("legacy v0 GCD mode used with a newer format version")
	ErrLatentStreamCountWrong = errors.New("number of latent streams does not match mode")
)

// InvalidArgument-class sentinels.
var (
	ErrEmptyChunk                = errors.New("chunk must contain at least one number")
	ErrEntryCountExceeded        = errors.New("chunk entry count exceeds MAX_ENTRIES")
	ErrInvalidCompressionLevel   = errors.New("compression_level out of [0, 12]")
	ErrInvalidDeltaOrder         = errors.New("delta_encoding_order out of [0, 7]")
	ErrInvalidAnsSizeLog         = errors.New("ans_size_log out of [0, 14]")
	ErrInvalidPageSize           = errors.New("max_page_n must be positive")
	ErrMismatchedStreamLengths   = errors.New("primary and secondary latent streams have different lengths")
	ErrUnsupportedCompressionTag = errors.New("unsupported compression type")
	ErrDataTypeMismatch          = errors.New("stream data type does not match requested read/write type")
)

// InsufficientData-class sentinels.
var (
	ErrReadPastEnd = errors.New("bit cursor advanced past source bit length")
)
