// Package nlatent provides convenient top-level wrappers around the chunk,
// framing, and wrapped packages for the common case: compressing a single
// typed slice, or streaming several chunks through framing's standalone
// byte format. For fine-grained control (custom page sizes, per-chunk
// Config, FloatMult tuning) use the chunk and wrapped packages directly.
package nlatent

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nlatent/nlatent/chunk"
	"github.com/nlatent/nlatent/endian"
	"github.com/nlatent/nlatent/errs"
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/framing"
	"github.com/nlatent/nlatent/internal/bitio"
	"github.com/nlatent/nlatent/internal/latent"
	"github.com/nlatent/nlatent/internal/meta"
	"github.com/nlatent/nlatent/internal/mode"
	"github.com/nlatent/nlatent/internal/options"
)

// metaReaderPadding covers meta.ReadChunkMeta's widest unchecked read.
const metaReaderPadding = 16

func readChunkMetaPrefix[T latent.Uint](buf []byte) (meta.ChunkMeta[T], int, error) {
	ext := bitio.MakeExtension(buf, metaReaderPadding)
	r := bitio.NewReader(buf, ext)

	cm, err := meta.ReadChunkMeta[T](r)
	if err != nil {
		return meta.ChunkMeta[T]{}, 0, err
	}

	consumedBits, err := r.BitsConsumed()
	if err != nil {
		return meta.ChunkMeta[T]{}, 0, err
	}

	return cm, consumedBits / 8, nil
}

// uint64FloatLatent and the f32 variant below bind a concrete data type's
// float<->latent conversions, filled in per concrete Write*/Compress*
// function; Classic/IntMult chunks never touch FloatLatent and leave it at
// its zero value.
func uint64FloatLatent() mode.FloatLatent[uint64] {
	return mode.FloatLatent[uint64]{
		ToFloat:        latent.LatentToF64,
		FromFloat:      latent.F64ToLatent,
		SignedToLatent: latent.I64ToLatent,
		LatentToSigned: latent.LatentToI64,
	}
}

func uint32FloatLatent() mode.FloatLatent[uint32] {
	return mode.FloatLatent[uint32]{
		ToFloat:        func(l uint32) float64 { return float64(latent.LatentToF32(l)) },
		FromFloat:      func(f float64) uint32 { return latent.F32ToLatent(float32(f)) },
		SignedToLatent: func(x int64) uint32 { return latent.I32ToLatent(int32(x)) },
		LatentToSigned: func(l uint32) int64 { return int64(latent.LatentToI32(l)) },
	}
}

// chunkHeaderWidth is the byte width of each of the three fixed-size fields
// the standalone writer prefixes onto every chunk's compressed bytes: the
// element count, the page size it was split under, and the compressed
// chunk's own byte length. spec.md §6 leaves n and the chunk's byte size to
// "the enclosing container"; for the self-contained standalone stream this
// package writes, that container is this header.
const chunkHeaderWidth = 8

// StandaloneWriterOption configures a StandaloneWriter at construction.
type StandaloneWriterOption = options.Option[*StandaloneWriter]

// WithChunkDigest appends an xxHash64 digest of each chunk's metadata
// bytes (framing.WriteDigest) after the chunk body, letting a reader opt
// into WithDigestVerification to catch metadata corruption that the
// format's structural checks alone would miss.
func WithChunkDigest(enabled bool) StandaloneWriterOption {
	return options.NoError(func(sw *StandaloneWriter) { sw.digest = enabled })
}

// StandaloneWriter streams one or more chunks of a single data type into a
// framing-delimited byte stream: a stream header once, then one
// marker+length-prefixed chunk per Write call, closed by Close.
type StandaloneWriter struct {
	w      io.Writer
	dt     format.DataType
	cfg    chunk.Config
	digest bool
}

// NewStandaloneWriter writes the stream header (magic bytes, dt, current
// format version) and returns a writer for appending chunks of that type.
func NewStandaloneWriter(w io.Writer, dt format.DataType, cfg chunk.Config, opts ...StandaloneWriterOption) (*StandaloneWriter, error) {
	h := framing.Header{DataType: dt, Version: format.CurrentVersion}
	if err := framing.WriteHeader(w, h); err != nil {
		return nil, err
	}
	sw := &StandaloneWriter{w: w, dt: dt, cfg: cfg}
	if err := options.Apply(sw, opts...); err != nil {
		return nil, err
	}
	return sw, nil
}

// Close writes the stream termination byte. The writer must not be used
// afterward.
func (sw *StandaloneWriter) Close() error {
	return framing.WriteTermination(sw.w)
}

func (sw *StandaloneWriter) checkType(want format.DataType) error {
	if sw.dt != want {
		return fmt.Errorf("%w: stream is %s, got %s chunk", errs.ErrDataTypeMismatch, sw.dt, want)
	}
	return nil
}

func writeChunk[T latent.Uint](w io.Writer, cfg chunk.Config, n int, in chunk.Input[T], digest bool) error {
	var body bytes.Buffer
	comp := chunk.NewCompressor[T](cfg)
	if err := comp.Compress(&body, in); err != nil {
		return err
	}

	if err := framing.WriteChunkMarker(w); err != nil {
		return err
	}

	engine := endian.GetLittleEndianEngine()
	var hdr [3 * chunkHeaderWidth]byte
	engine.PutUint64(hdr[0:8], uint64(n))
	engine.PutUint64(hdr[8:16], uint64(cfg.MaxPageN))
	engine.PutUint64(hdr[16:24], uint64(body.Len()))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	bodyBytes := body.Bytes()
	if _, err := w.Write(bodyBytes); err != nil {
		return err
	}
	if !digest {
		return nil
	}

	_, metaLen, err := readChunkMetaPrefix[T](bodyBytes)
	if err != nil {
		return err
	}
	return framing.WriteDigest(w, bodyBytes[:metaLen])
}

// WriteInt16 appends one chunk of signed 16-bit integers.
func (sw *StandaloneWriter) WriteInt16(values []int16) error {
	if err := sw.checkType(format.I16); err != nil {
		return err
	}
	latents := make([]uint16, len(values))
	for i, v := range values {
		latents[i] = latent.I16ToLatent(v)
	}
	return writeChunk(sw.w, sw.cfg, len(values), chunk.Input[uint16]{Latents: latents}, sw.digest)
}

// WriteInt32 appends one chunk of signed 32-bit integers.
func (sw *StandaloneWriter) WriteInt32(values []int32) error {
	if err := sw.checkType(format.I32); err != nil {
		return err
	}
	latents := make([]uint32, len(values))
	for i, v := range values {
		latents[i] = latent.I32ToLatent(v)
	}
	return writeChunk(sw.w, sw.cfg, len(values), chunk.Input[uint32]{Latents: latents}, sw.digest)
}

// WriteInt64 appends one chunk of signed 64-bit integers.
func (sw *StandaloneWriter) WriteInt64(values []int64) error {
	if err := sw.checkType(format.I64); err != nil {
		return err
	}
	latents := make([]uint64, len(values))
	for i, v := range values {
		latents[i] = latent.I64ToLatent(v)
	}
	return writeChunk(sw.w, sw.cfg, len(values), chunk.Input[uint64]{Latents: latents}, sw.digest)
}

// WriteUint16 appends one chunk of unsigned 16-bit integers.
func (sw *StandaloneWriter) WriteUint16(values []uint16) error {
	if err := sw.checkType(format.U16); err != nil {
		return err
	}
	latents := append([]uint16(nil), values...)
	return writeChunk(sw.w, sw.cfg, len(values), chunk.Input[uint16]{Latents: latents}, sw.digest)
}

// WriteUint32 appends one chunk of unsigned 32-bit integers.
func (sw *StandaloneWriter) WriteUint32(values []uint32) error {
	if err := sw.checkType(format.U32); err != nil {
		return err
	}
	latents := append([]uint32(nil), values...)
	return writeChunk(sw.w, sw.cfg, len(values), chunk.Input[uint32]{Latents: latents}, sw.digest)
}

// WriteUint64 appends one chunk of unsigned 64-bit integers.
func (sw *StandaloneWriter) WriteUint64(values []uint64) error {
	if err := sw.checkType(format.U64); err != nil {
		return err
	}
	latents := append([]uint64(nil), values...)
	return writeChunk(sw.w, sw.cfg, len(values), chunk.Input[uint64]{Latents: latents}, sw.digest)
}

// WriteFloat32 appends one chunk of 32-bit floats.
func (sw *StandaloneWriter) WriteFloat32(values []float32) error {
	if err := sw.checkType(format.F32); err != nil {
		return err
	}
	latents := make([]uint32, len(values))
	floats := make([]float64, len(values))
	for i, v := range values {
		latents[i] = latent.F32ToLatent(v)
		floats[i] = float64(v)
	}
	in := chunk.Input[uint32]{
		Latents:           latents,
		Floats:            floats,
		IsFloat:           true,
		FloatMantissaBits: 23,
		FloatLatent:       uint32FloatLatent(),
	}
	return writeChunk(sw.w, sw.cfg, len(values), in, sw.digest)
}

// WriteFloat64 appends one chunk of 64-bit floats.
func (sw *StandaloneWriter) WriteFloat64(values []float64) error {
	if err := sw.checkType(format.F64); err != nil {
		return err
	}
	latents := make([]uint64, len(values))
	for i, v := range values {
		latents[i] = latent.F64ToLatent(v)
	}
	in := chunk.Input[uint64]{
		Latents:           latents,
		Floats:            values,
		IsFloat:           true,
		FloatMantissaBits: 52,
		FloatLatent:       uint64FloatLatent(),
	}
	return writeChunk(sw.w, sw.cfg, len(values), in, sw.digest)
}

// StandaloneReaderOption configures a StandaloneReader at construction.
type StandaloneReaderOption = options.Option[*StandaloneReader]

// WithDigestVerification verifies the xxHash64 metadata digest trailer
// written by a StandaloneWriter opted into WithChunkDigest, failing a read
// with errs.ErrDigestMismatch on corrupted metadata. Reading a stream that
// carries no digest trailer with this enabled will misread the next
// chunk's marker byte as digest bytes; it must match the writer's setting.
func WithDigestVerification(enabled bool) StandaloneReaderOption {
	return options.NoError(func(sr *StandaloneReader) { sr.verifyDigest = enabled })
}

// StandaloneReader reads a stream written by StandaloneWriter one chunk at
// a time.
type StandaloneReader struct {
	r            io.Reader
	dt           format.DataType
	version      format.Version
	verifyDigest bool
}

// NewStandaloneReader reads and validates the stream header, returning a
// reader positioned at the first chunk marker.
func NewStandaloneReader(r io.Reader, opts ...StandaloneReaderOption) (*StandaloneReader, format.DataType, format.Version, error) {
	h, err := framing.ReadHeader(r)
	if err != nil {
		return nil, 0, 0, err
	}
	sr := &StandaloneReader{r: r, dt: h.DataType, version: h.Version}
	if err := options.Apply(sr, opts...); err != nil {
		return nil, 0, 0, err
	}
	return sr, h.DataType, h.Version, nil
}

// nextChunk reads the marker and, if a chunk follows, its length-prefixed
// body, verifying the trailing metadata digest when sr.verifyDigest is
// set. It returns io.EOF itself when the stream's termination byte is reached.
func nextChunk[T latent.Uint](sr *StandaloneReader) (n, maxPageN int, body []byte, err error) {
	isChunk, err := framing.ReadMarker(sr.r)
	if err != nil {
		return 0, 0, nil, err
	}
	if !isChunk {
		return 0, 0, nil, io.EOF
	}

	engine := endian.GetLittleEndianEngine()
	var hdr [3 * chunkHeaderWidth]byte
	if _, err := io.ReadFull(sr.r, hdr[:]); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: reading chunk header: %v", errs.ErrInsufficientData, err)
	}
	n = int(engine.Uint64(hdr[0:8]))
	maxPageN = int(engine.Uint64(hdr[8:16]))
	bodyLen := int(engine.Uint64(hdr[16:24]))

	body = make([]byte, bodyLen)
	if _, err := io.ReadFull(sr.r, body); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: reading chunk body: %v", errs.ErrInsufficientData, err)
	}

	if !sr.verifyDigest {
		return n, maxPageN, body, nil
	}

	_, metaLen, err := readChunkMetaPrefix[T](body)
	if err != nil {
		return 0, 0, nil, err
	}
	if err := framing.VerifyDigest(sr.r, body[:metaLen]); err != nil {
		return 0, 0, nil, err
	}
	return n, maxPageN, body, nil
}

// decodeChunk decodes every page of one chunk. version is the stream's
// declared format.Version: a chunk tagged ModeIntMult under format.V0 is
// refused, since V0 streams predate this decoder's IntMult wire shape and
// this decoder does not implement the legacy GCD-only payload format
// format.V0 actually refers to.
func decodeChunk[T latent.Uint](body []byte, n, maxPageN int, fl mode.FloatLatent[T], version format.Version) ([]chunk.Page[T], error) {
	cm, headerLen, err := readChunkMetaPrefix[T](body)
	if err != nil {
		return nil, err
	}
	if cm.Mode.Tag == format.ModeIntMult && version == format.V0 {
		return nil, fmt.Errorf("%w: chunk uses IntMult mode under format version %d", errs.ErrDisallowedLegacyMode, version)
	}
	dec, err := chunk.NewDecompressor[T](cm)
	if err != nil {
		return nil, err
	}

	var pages []chunk.Page[T]
	offset := headerLen
	for start := 0; start < n; start += maxPageN {
		pageN := maxPageN
		if start+pageN > n {
			pageN = n - start
		}
		page, consumed, err := dec.DecodePage(body[offset:], pageN, fl)
		if err != nil {
			return nil, fmt.Errorf("page at element %d: %w", start, err)
		}
		pages = append(pages, page)
		offset += consumed
	}
	return pages, nil
}

// ReadInt16 reads the next chunk as signed 16-bit integers.
func (sr *StandaloneReader) ReadInt16() ([]int16, error) {
	if err := sr.checkType(format.I16); err != nil {
		return nil, err
	}
	n, maxPageN, body, err := nextChunk[uint16](sr)
	if err != nil {
		return nil, err
	}
	pages, err := decodeChunk[uint16](body, n, maxPageN, mode.FloatLatent[uint16]{}, sr.version)
	if err != nil {
		return nil, err
	}
	out := make([]int16, 0, n)
	for _, p := range pages {
		for _, l := range p.Latents {
			out = append(out, latent.LatentToI16(l))
		}
	}
	return out, nil
}

// ReadInt32 reads the next chunk as signed 32-bit integers.
func (sr *StandaloneReader) ReadInt32() ([]int32, error) {
	if err := sr.checkType(format.I32); err != nil {
		return nil, err
	}
	n, maxPageN, body, err := nextChunk[uint32](sr)
	if err != nil {
		return nil, err
	}
	pages, err := decodeChunk[uint32](body, n, maxPageN, uint32FloatLatent(), sr.version)
	if err != nil {
		return nil, err
	}
	out := make([]int32, 0, n)
	for _, p := range pages {
		for _, l := range p.Latents {
			out = append(out, latent.LatentToI32(l))
		}
	}
	return out, nil
}

// ReadInt64 reads the next chunk as signed 64-bit integers.
func (sr *StandaloneReader) ReadInt64() ([]int64, error) {
	if err := sr.checkType(format.I64); err != nil {
		return nil, err
	}
	n, maxPageN, body, err := nextChunk[uint64](sr)
	if err != nil {
		return nil, err
	}
	pages, err := decodeChunk[uint64](body, n, maxPageN, uint64FloatLatent(), sr.version)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, n)
	for _, p := range pages {
		for _, l := range p.Latents {
			out = append(out, latent.LatentToI64(l))
		}
	}
	return out, nil
}

// ReadUint16 reads the next chunk as unsigned 16-bit integers.
func (sr *StandaloneReader) ReadUint16() ([]uint16, error) {
	if err := sr.checkType(format.U16); err != nil {
		return nil, err
	}
	n, maxPageN, body, err := nextChunk[uint16](sr)
	if err != nil {
		return nil, err
	}
	pages, err := decodeChunk[uint16](body, n, maxPageN, mode.FloatLatent[uint16]{}, sr.version)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, n)
	for _, p := range pages {
		out = append(out, p.Latents...)
	}
	return out, nil
}

// ReadUint32 reads the next chunk as unsigned 32-bit integers.
func (sr *StandaloneReader) ReadUint32() ([]uint32, error) {
	if err := sr.checkType(format.U32); err != nil {
		return nil, err
	}
	n, maxPageN, body, err := nextChunk[uint32](sr)
	if err != nil {
		return nil, err
	}
	pages, err := decodeChunk[uint32](body, n, maxPageN, uint32FloatLatent(), sr.version)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, n)
	for _, p := range pages {
		out = append(out, p.Latents...)
	}
	return out, nil
}

// ReadUint64 reads the next chunk as unsigned 64-bit integers.
func (sr *StandaloneReader) ReadUint64() ([]uint64, error) {
	if err := sr.checkType(format.U64); err != nil {
		return nil, err
	}
	n, maxPageN, body, err := nextChunk[uint64](sr)
	if err != nil {
		return nil, err
	}
	pages, err := decodeChunk[uint64](body, n, maxPageN, uint64FloatLatent(), sr.version)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, n)
	for _, p := range pages {
		out = append(out, p.Latents...)
	}
	return out, nil
}

// ReadFloat32 reads the next chunk as 32-bit floats.
func (sr *StandaloneReader) ReadFloat32() ([]float32, error) {
	if err := sr.checkType(format.F32); err != nil {
		return nil, err
	}
	n, maxPageN, body, err := nextChunk[uint32](sr)
	if err != nil {
		return nil, err
	}
	pages, err := decodeChunk[uint32](body, n, maxPageN, uint32FloatLatent(), sr.version)
	if err != nil {
		return nil, err
	}
	out := make([]float32, 0, n)
	for _, p := range pages {
		for _, l := range p.Latents {
			out = append(out, latent.LatentToF32(l))
		}
	}
	return out, nil
}

// ReadFloat64 reads the next chunk as 64-bit floats.
func (sr *StandaloneReader) ReadFloat64() ([]float64, error) {
	if err := sr.checkType(format.F64); err != nil {
		return nil, err
	}
	n, maxPageN, body, err := nextChunk[uint64](sr)
	if err != nil {
		return nil, err
	}
	pages, err := decodeChunk[uint64](body, n, maxPageN, uint64FloatLatent(), sr.version)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, n)
	for _, p := range pages {
		if p.Floats != nil {
			out = append(out, p.Floats...)
			continue
		}
		for _, l := range p.Latents {
			out = append(out, latent.LatentToF64(l))
		}
	}
	return out, nil
}

func (sr *StandaloneReader) checkType(want format.DataType) error {
	if sr.dt != want {
		return fmt.Errorf("%w: stream is %s, got %s read", errs.ErrDataTypeMismatch, sr.dt, want)
	}
	return nil
}

// CompressInt64s writes a complete one-chunk standalone stream for values.
func CompressInt64s(w io.Writer, values []int64, cfg chunk.Config) error {
	sw, err := NewStandaloneWriter(w, format.I64, cfg)
	if err != nil {
		return err
	}
	if err := sw.WriteInt64(values); err != nil {
		return err
	}
	return sw.Close()
}

// CompressFloat64s writes a complete one-chunk standalone stream for values.
func CompressFloat64s(w io.Writer, values []float64, cfg chunk.Config) error {
	sw, err := NewStandaloneWriter(w, format.F64, cfg)
	if err != nil {
		return err
	}
	if err := sw.WriteFloat64(values); err != nil {
		return err
	}
	return sw.Close()
}

// DecompressInt64s reads a one-chunk standalone stream written by
// CompressInt64s.
func DecompressInt64s(r io.Reader) ([]int64, error) {
	sr, _, _, err := NewStandaloneReader(r)
	if err != nil {
		return nil, err
	}
	return sr.ReadInt64()
}

// DecompressFloat64s reads a one-chunk standalone stream written by
// CompressFloat64s.
func DecompressFloat64s(r io.Reader) ([]float64, error) {
	sr, _, _, err := NewStandaloneReader(r)
	if err != nil {
		return nil, err
	}
	return sr.ReadFloat64()
}
