package bitio

import (
	"encoding/binary"
	"fmt"

	"github.com/nlatent/nlatent/errs"
)

// MakeExtension builds the padding extension for slice: the last
// min(len(slice), padding) bytes of slice, followed by padding zero bytes.
// Pairing slice with this extension lets Reader perform unchecked
// word-at-a-time reads all the way to the true end of slice without ever
// touching unrelated memory.
func MakeExtension(slice []byte, padding int) []byte {
	shared := min(len(slice), padding)
	res := make([]byte, shared+padding)
	copy(res[:shared], slice[len(slice)-shared:])

	return res
}

func wordAt(src []byte, byteIdx int) uint64 {
	return binary.LittleEndian.Uint64(src[byteIdx : byteIdx+wordBytes])
}

// readUintAt decodes n low bits starting at bit (byteIdx*8 + bitsPastByte)
// of src, loading at most two machine words. n must be in [0, 64].
func readUintAt(src []byte, byteIdx int, bitsPastByte uint8, n uint8) uint64 {
	res := wordAt(src, byteIdx) >> bitsPastByte
	processed := min(n, wordBits-8-bitsPastByte)

	res |= wordAt(src, byteIdx+wordBytes-1) << processed

	if n < 64 {
		res &= (uint64(1) << n) - 1
	}

	return res
}

// Reader decodes packed bits written by Writer, borrowing a source slice
// plus a padding extension built by MakeExtension. Internal reads always
// load a full machine word regardless of how many bits are requested,
// trading a little wasted work for the absence of any per-bit bounds check
// in the hot path; the extension guarantees those loads never touch
// unrelated memory.
type Reader struct {
	currentStream []byte
	otherStream   []byte
	currentIsSrc  bool
	skipped       int
	staleByteIdx  int
	bitsPastByte  uint8
}

// NewReader wraps src for bit-level reading. extension must be a padding
// buffer built by MakeExtension(src, padding) for some padding at least as
// large as the widest single read the caller will perform.
func NewReader(src, extension []byte) *Reader {
	padding := max(len(extension)/2, subSat(len(extension), len(src)))
	skipped := subSat(len(src), padding)

	return &Reader{
		currentStream: src,
		otherStream:   extension,
		currentIsSrc:  true,
		skipped:       skipped,
	}
}

func subSat(a, b int) int {
	if a < b {
		return 0
	}

	return a - b
}

func (r *Reader) refill() {
	r.staleByteIdx += int(r.bitsPastByte) / 8
	r.bitsPastByte %= 8
}

func (r *Reader) consume(n uint8) {
	r.bitsPastByte += n
}

func (r *Reader) bitIdx() int {
	return r.staleByteIdx*8 + int(r.bitsPastByte)
}

func (r *Reader) byteIdx() int {
	return r.bitIdx() / 8
}

func (r *Reader) srcBitIdx() int {
	if r.currentIsSrc {
		return r.bitIdx()
	}

	return r.bitIdx() + r.skipped*8
}

func (r *Reader) srcBitSize() int {
	if r.currentIsSrc {
		return len(r.currentStream) * 8
	}

	return len(r.otherStream) * 8
}

func (r *Reader) switchToExtension() {
	r.staleByteIdx -= r.skipped
	r.currentIsSrc = false
	r.currentStream, r.otherStream = r.otherStream, r.currentStream
}

// ensurePadded switches the reader onto its extension buffer once the
// current stream can no longer satisfy a word-at-a-time read of the
// requested size.
func (r *Reader) ensurePadded(requiredPadding int) error {
	if err := r.CheckInBounds(); err != nil {
		return err
	}

	byteIdx := r.byteIdx()
	if byteIdx+requiredPadding <= len(r.currentStream) {
		return nil
	}

	if r.currentIsSrc && byteIdx+requiredPadding <= len(r.otherStream)+r.skipped {
		r.switchToExtension()
		return nil
	}

	return fmt.Errorf("%w: insufficient padding for a %d-byte read", errs.ErrInsufficientData, requiredPadding)
}

func (r *Reader) alignedByteIdx() (int, error) {
	r.refill()
	if r.bitsPastByte != 0 {
		return 0, fmt.Errorf("%w: reader misaligned at byte %d + %d bits", errs.ErrInvalidArgument, r.staleByteIdx, r.bitsPastByte)
	}

	return r.staleByteIdx, nil
}

// ReadAlignedBytes returns the next n bytes verbatim. The reader must be
// byte-aligned.
func (r *Reader) ReadAlignedBytes(n int) ([]byte, error) {
	byteIdx, err := r.alignedByteIdx()
	if err != nil {
		return nil, err
	}

	end := byteIdx + n
	r.staleByteIdx = end

	return r.currentStream[byteIdx:end], nil
}

// ReadUint reads the next n bits (n in [0, 64]) and advances the cursor.
func (r *Reader) ReadUint(n uint8) (uint64, error) {
	r.refill()
	if err := r.ensurePadded(wordBytes * 2); err != nil {
		return 0, err
	}

	res := readUintAt(r.currentStream, r.staleByteIdx, r.bitsPastByte, n)
	r.consume(n)

	if err := r.CheckInBounds(); err != nil {
		return 0, err
	}

	return res, nil
}

// CheckInBounds fails with ErrInsufficientData once the cursor has advanced
// past the true length of the original source.
func (r *Reader) CheckInBounds() error {
	if r.srcBitIdx() > r.srcBitSize() {
		return fmt.Errorf("%w: bit cursor at %d exceeds source length %d bits", errs.ErrInsufficientData, r.srcBitIdx(), r.srcBitSize())
	}

	return nil
}

// DrainEmptyByte asserts the remaining bits in the current byte are zero and
// advances to the next byte boundary; used at section boundaries that are
// always byte-aligned by construction.
func (r *Reader) DrainEmptyByte() error {
	if err := r.CheckInBounds(); err != nil {
		return err
	}

	r.refill()
	if r.bitsPastByte == 0 {
		return nil
	}

	if r.currentStream[r.staleByteIdx]>>r.bitsPastByte > 0 {
		return fmt.Errorf("%w: nonzero padding bits at byte %d", errs.ErrCorruption, r.staleByteIdx)
	}

	r.consume(8 - r.bitsPastByte)

	return nil
}

// BitsConsumed returns the number of bits read so far, measured from the
// start of the original source.
func (r *Reader) BitsConsumed() (int, error) {
	if err := r.CheckInBounds(); err != nil {
		return 0, err
	}

	return r.srcBitIdx(), nil
}

// Snapshot captures enough state to roll the reader back after a failed
// batch decode (spec's atomic-rollback requirement).
type Snapshot struct {
	currentIsSrc bool
	skipped      int
	staleByteIdx int
	bitsPastByte uint8
}

// Save captures the reader's current position.
func (r *Reader) Save() Snapshot {
	return Snapshot{
		currentIsSrc: r.currentIsSrc,
		skipped:      r.skipped,
		staleByteIdx: r.staleByteIdx,
		bitsPastByte: r.bitsPastByte,
	}
}

// Restore rewinds the reader to a previously saved position. The reader
// must not have switched between src/extension buffer identities in a way
// that invalidates currentStream/otherStream; since both buffers are fixed
// for the reader's lifetime, restoring the flags is sufficient.
func (r *Reader) Restore(s Snapshot) {
	if r.currentIsSrc != s.currentIsSrc {
		r.currentStream, r.otherStream = r.otherStream, r.currentStream
	}
	r.currentIsSrc = s.currentIsSrc
	r.skipped = s.skipped
	r.staleByteIdx = s.staleByteIdx
	r.bitsPastByte = s.bitsPastByte
}
