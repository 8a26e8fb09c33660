// Package bitio implements the packed bit reader/writer that every other
// layer of nlatent is built on: metadata, page headers, and the ANS body all
// read and write individual bits through this package.
package bitio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nlatent/nlatent/errs"
	"github.com/nlatent/nlatent/internal/pool"
)

const (
	wordBytes = 8
	wordBits  = 64
)

// Writer buffers bit-level writes into a staging byte buffer, flushing
// complete bytes to a sink on demand. Bits are packed low-bit-first within
// each byte: WriteUint(x, n) places the low n bits of x starting at the
// current bit cursor, the same word-shift convention as the reference
// bit writer this package is ported from.
type Writer struct {
	buf          *pool.ByteBuffer
	sink         io.Writer
	staleByteIdx int
	bitsPastByte uint8
}

// NewWriter creates a Writer that flushes to sink.
func NewWriter(sink io.Writer) *Writer {
	bb := pool.GetPageBuffer()
	bb.SetLength(bb.Cap())
	// A pooled buffer may carry stale bytes from a previous writer's high
	// water mark; WriteUint ORs into the staging buffer, so it must start
	// all-zero the way a freshly allocated one would.
	clear(bb.Bytes())

	return &Writer{
		buf:  bb,
		sink: sink,
	}
}

// Release returns the writer's staging buffer to the pool. Call after the
// writer is no longer needed.
func (w *Writer) Release() {
	pool.PutPageBuffer(w.buf)
	w.buf = nil
}

func (w *Writer) refill() {
	w.staleByteIdx += int(w.bitsPastByte) / 8
	w.bitsPastByte %= 8
}

func (w *Writer) consume(n uint8) {
	w.bitsPastByte += n
}

// ensureCapacity grows the staging buffer so that a full 8-byte word can
// always be read or written starting at byteIdx, without ever shrinking the
// logical length already in use.
func (w *Writer) ensureCapacity(byteIdx int) {
	need := byteIdx + wordBytes + 1
	if need <= w.buf.Len() {
		return
	}

	w.buf.ExtendOrGrow(need - w.buf.Len())
}

// WriteUint appends the low n bits of x at the current bit cursor. n must be
// in [0, 64].
func (w *Writer) WriteUint(x uint64, n uint8) {
	w.refill()

	if n < 64 {
		x &= (uint64(1) << n) - 1
	}

	byteIdx := w.staleByteIdx
	w.ensureCapacity(byteIdx)
	buf := w.buf.Bytes()

	word := binary.LittleEndian.Uint64(buf[byteIdx : byteIdx+wordBytes])
	word |= x << w.bitsPastByte
	binary.LittleEndian.PutUint64(buf[byteIdx:byteIdx+wordBytes], word)

	processed := uint8(wordBits) - 8 - w.bitsPastByte
	extraIdx := byteIdx + wordBytes - 1
	w.ensureCapacity(extraIdx)
	buf = w.buf.Bytes()
	word = binary.LittleEndian.Uint64(buf[extraIdx : extraIdx+wordBytes])
	word |= x >> processed
	binary.LittleEndian.PutUint64(buf[extraIdx:extraIdx+wordBytes], word)

	w.consume(n)
}

// WriteAlignedBytes copies data verbatim at the current position. The
// writer must be byte-aligned.
func (w *Writer) WriteAlignedBytes(data []byte) error {
	w.refill()
	if w.bitsPastByte != 0 {
		return fmt.Errorf("%w: cannot write %d aligned bytes at %d bits past byte", errs.ErrInvalidArgument, len(data), w.bitsPastByte)
	}

	end := w.staleByteIdx + len(data)
	w.ensureCapacity(end)
	copy(w.buf.Bytes()[w.staleByteIdx:end], data)
	w.staleByteIdx = end

	return nil
}

// FinishByte advances the cursor to the next byte boundary. The remainder of
// the current byte is already zero: WriteUint never sets bits past its own
// n, and the staging buffer starts, and is kept, all-zero ahead of the
// cursor.
func (w *Writer) FinishByte() {
	w.refill()
	if w.bitsPastByte == 0 {
		return
	}

	w.staleByteIdx++
	w.bitsPastByte = 0
}

// Flush writes all fully-formed bytes to the sink, retaining any partially
// filled trailing byte for the next write.
func (w *Writer) Flush() error {
	w.refill()
	n := w.staleByteIdx
	w.ensureCapacity(n)
	buf := w.buf.Bytes()

	if _, err := w.sink.Write(buf[:n]); err != nil {
		return err
	}

	trailing := buf[n]
	for i := range buf[:n] {
		buf[i] = 0
	}
	if w.bitsPastByte > 0 {
		buf[0] = trailing
	}
	buf[n] = 0

	w.staleByteIdx = 0

	return nil
}
