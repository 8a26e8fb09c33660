package format

// Wire-level constants that every implementation of this format must agree
// on bit for bit (spec.md §6).
const (
	MaxDeltaEncodingOrder = 7
	MaxEntriesPerChunk    = 1 << 24
	MaxAnsBits            = 14

	// AnsInterleaving must match internal/ans.Interleaving; duplicated here
	// so this package never needs to import internal/ans.
	AnsInterleaving = 4

	FullBatchN = 256

	BitsToEncodeNBins              = 15
	BitsToEncodeAnsSizeLog         = 4
	BitsToEncodeDeltaEncodingOrder = 3
	BitsToEncodeMode               = 4

	MagicChunkByte       = 0x2C // ','
	MagicTerminationByte = 0x2E // '.'
)

// MagicHeader is the 4-byte standalone-stream magic, written once before
// the data-type and format-version bytes.
var MagicHeader = [4]byte{'n', 'l', 'a', 't'}
