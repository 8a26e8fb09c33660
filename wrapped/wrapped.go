// Package wrapped implements spec.md §6's wrapped-mode entry points: no
// magic header, no chunk/termination markers, no per-chunk digest — an
// external container already tracks how many chunks exist and how large
// each one is, and supplies n (the chunk's element count) and the page size
// directly to DecompressChunk. This is the thin-envelope counterpart to package framing,
// for callers embedding nlatent inside their own container format.
package wrapped

import (
	"bytes"
	"fmt"

	"github.com/nlatent/nlatent/chunk"
	"github.com/nlatent/nlatent/compress"
	"github.com/nlatent/nlatent/errs"
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/bitio"
	"github.com/nlatent/nlatent/internal/latent"
	"github.com/nlatent/nlatent/internal/meta"
	"github.com/nlatent/nlatent/internal/mode"
)

// readerExtensionPadding covers meta.ReadChunkMeta's widest unchecked read.
const readerExtensionPadding = 16

// PageOptions configures a wrapped-mode chunk's on-disk representation
// beyond the core codec: an optional outer byte-level compression pass
// over the already entropy-coded chunk bytes. The core codec never emits
// one of these itself; re-compressing tANS output rarely helps, so
// CompressionNone is the default, but a container holding many
// metadata-heavy small chunks can opt into one of the others.
type PageOptions struct {
	Compression format.CompressionType
}

// DefaultPageOptions disables outer compression, matching the core codec's
// own default.
func DefaultPageOptions() PageOptions {
	return PageOptions{Compression: format.CompressionNone}
}

// CompressChunk encodes in (chunk metadata followed by every page) and
// applies the configured outer compressor to the result. The returned
// bytes carry no magic header or markers; the caller is responsible for
// recording len(in.Latents) and the returned byte length so DecompressChunk
// can be driven later.
func CompressChunk[T latent.Uint](cfg chunk.Config, in chunk.Input[T], opts PageOptions) ([]byte, error) {
	var raw bytes.Buffer
	comp := chunk.NewCompressor[T](cfg)
	if err := comp.Compress(&raw, in); err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsupportedCompressionTag, err)
	}

	out, err := codec.Compress(raw.Bytes())
	if err != nil {
		return nil, fmt.Errorf("outer compression: %w", err)
	}

	return out, nil
}

// DecompressChunk inverts CompressChunk: src is the outer-compressed chunk
// bytes, n is the total number of values the chunk holds (across all
// pages), and fl supplies the float<->latent bindings for FloatMult mode
// (the zero value is fine for chunks that never use it). pageN sizes every
// page at cfg.MaxPageN except a final shorter remainder, matching how
// chunk.Compressor split n originally; the caller must pass the same
// maxPageN used to compress.
func DecompressChunk[T latent.Uint](src []byte, n, maxPageN int, opts PageOptions, fl mode.FloatLatent[T]) ([]chunk.Page[T], error) {
	codec, err := compress.GetCodec(opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsupportedCompressionTag, err)
	}

	raw, err := codec.Decompress(src)
	if err != nil {
		return nil, fmt.Errorf("outer decompression: %w", err)
	}

	cm, headerLen, err := readChunkMeta[T](raw)
	if err != nil {
		return nil, err
	}

	dec, err := chunk.NewDecompressor[T](cm)
	if err != nil {
		return nil, err
	}

	if maxPageN <= 0 {
		maxPageN = 1_000_000
	}

	var pages []chunk.Page[T]
	offset := headerLen
	for start := 0; start < n; start += maxPageN {
		pageN := maxPageN
		if start+pageN > n {
			pageN = n - start
		}

		page, consumed, err := dec.DecodePage(raw[offset:], pageN, fl)
		if err != nil {
			return nil, fmt.Errorf("page at element %d: %w", start, err)
		}
		pages = append(pages, page)
		offset += consumed
	}

	return pages, nil
}

// readChunkMeta parses the chunk metadata prefix of buf and reports how
// many bytes it occupied, so the caller can locate the first page.
func readChunkMeta[T latent.Uint](buf []byte) (meta.ChunkMeta[T], int, error) {
	ext := bitio.MakeExtension(buf, readerExtensionPadding)
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
