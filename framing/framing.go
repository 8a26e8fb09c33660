// Package framing implements nlatent's standalone byte-stream mode: a
// magic-byte header identifying the data type and format version, one
// chunk marker byte before every encoded chunk, and a termination byte
// after the last one, per spec.md §6. This is the reference "self
// describing" mode; wrapped mode (package wrapped) drops the framing shell
// entirely and lets an external container supply n and page sizes.
package framing

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/nlatent/nlatent/endian"
	"github.com/nlatent/nlatent/errs"
	"github.com/nlatent/nlatent/format"
)

// Header is the fixed-size preamble of a standalone nlatent stream: magic
// bytes, the data type of every chunk in the stream, and the format
// version.
type Header struct {
	DataType format.DataType
	Version  format.Version
}

// WriteHeader writes format.MagicHeader, then DataType and Version as
// single aligned bytes. Framing's only multi-byte field, the digest
// trailer, is written through endian's little-endian engine (WriteDigest);
// the header itself is single bytes and needs no byte-order choice.
func WriteHeader(w io.Writer, h Header) error {
	buf := make([]byte, 0, len(format.MagicHeader)+2)
	buf = append(buf, format.MagicHeader[:]...)
	buf = append(buf, byte(h.DataType), byte(h.Version))

	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and validates a stream header, rejecting an unknown
// magic or a format version newer than this decoder understands.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, len(format.MagicHeader)+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fmt.Errorf("%w: reading stream header: %v", errs.ErrInsufficientData, err)
	}

	var magic [4]byte
	copy(magic[:], buf[:4])
	if magic != format.MagicHeader {
		return Header{}, fmt.Errorf("%w: got %x, want %x", errs.ErrBadMagicHeader, magic, format.MagicHeader)
	}

	version := format.Version(buf[5])
	if version > format.CurrentVersion {
		return Header{}, fmt.Errorf("%w: stream version %d, decoder supports up to %d", errs.ErrFutureFormatVersion, version, format.CurrentVersion)
	}

	return Header{DataType: format.DataType(buf[4]), Version: version}, nil
}

// WriteChunkMarker writes the single byte preceding every chunk's metadata.
func WriteChunkMarker(w io.Writer) error {
	_, err := w.Write([]byte{format.MagicChunkByte})
	return err
}

// WriteTermination writes the single byte that follows the last chunk in
// a stream, letting a reader distinguish "one more chunk follows" from
// "the stream ends here" without an explicit chunk count.
func WriteTermination(w io.Writer) error {
	_, err := w.Write([]byte{format.MagicTerminationByte})
	return err
}

// ReadMarker reads the next framing byte and reports whether it was a
// chunk marker (true) or the termination byte (false); any other value is
// corruption.
func ReadMarker(r io.Reader) (isChunk bool, err error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, fmt.Errorf("%w: reading chunk marker: %v", errs.ErrInsufficientData, err)
	}

	switch b[0] {
	case format.MagicChunkByte:
		return true, nil
	case format.MagicTerminationByte:
		return false, nil
	default:
		return false, fmt.Errorf("%w: got byte 0x%x", errs.ErrUnexpectedChunkByte, b[0])
	}
}

// digestLen is the width of the optional trailing metadata digest.
const digestLen = 8

// Digest computes the xxHash64 digest of a chunk's metadata bytes, stored
// as an 8-byte little-endian trailer directly after the metadata section
// when a stream opts into WithChunkDigest. This is a framing-level
// enrichment beyond spec.md's literal wire format: metadata corruption is
// otherwise only caught by the structural invariants of §7.
func Digest(metaBytes []byte) uint64 {
	return xxhash.Sum64(metaBytes)
}

// WriteDigest appends the little-endian digest trailer for metaBytes.
func WriteDigest(w io.Writer, metaBytes []byte) error {
	engine := endian.GetLittleEndianEngine()
	var buf [digestLen]byte
	engine.PutUint64(buf[:], Digest(metaBytes))
	_, err := w.Write(buf[:])
	return err
}

// VerifyDigest reads the digest trailer and compares it against metaBytes,
// returning errs.ErrDigestMismatch on a mismatch.
func VerifyDigest(r io.Reader, metaBytes []byte) error {
	engine := endian.GetLittleEndianEngine()

	var buf [digestLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fmt.Errorf("%w: reading chunk digest: %v", errs.ErrInsufficientData, err)
	}

	want := Digest(metaBytes)
	got := engine.Uint64(buf[:])
	if got != want {
		return fmt.Errorf("%w: got %x, want %x", errs.ErrDigestMismatch, got, want)
	}

	return nil
}
