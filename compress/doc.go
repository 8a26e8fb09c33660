// Package compress provides optional outer-compression codecs for wrapped-mode
// pages.
//
// nlatent's own compression comes from ANS entropy coding inside chunk
// bodies; by the time a page reaches this package its bytes are already
// close to their entropy floor. This package exists for the wrapped
// container format, where metadata-heavy pages (small bin tables, bit-packed
// headers, many small chunks) can still benefit from a general-purpose pass,
// and for callers who want one outer codec applied uniformly regardless of
// per-chunk mode.
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Supported Algorithms
//
// **NoOp Compression** (format.CompressionNone)
//
//	codec := compress.NewNoOpCompressor()
//	compressed, _ := codec.Compress(data)  // Returns data unchanged
//	original, _ := codec.Decompress(compressed)  // Returns data unchanged
//
// Use when:
//   - The stream is standalone (no outer compression layer at all)
//   - Pages are already incompressible ANS output
//   - CPU is more critical than the last few bytes of metadata
//
// **Zstandard (Zstd)** (format.CompressionZstd)
//
//	codec := compress.NewZstdCompressor()
//	compressed, _ := codec.Compress(data)
//	original, _ := codec.Decompress(compressed)
//
// Best for archival wrapped streams where metadata dominates small pages.
//
// **S2** (format.CompressionS2)
//
//	codec := compress.NewS2Compressor()
//	compressed, _ := codec.Compress(data)
//	original, _ := codec.Decompress(compressed)
//
// Best for latency-sensitive wrapped streams that still want a cheap pass
// over metadata.
//
// **LZ4** (format.CompressionLZ4)
//
//	codec := compress.NewLZ4Compressor()
//	compressed, _ := codec.Compress(data)
//	original, _ := codec.Decompress(compressed)
//
// Best for read-heavy wrapped streams where decompression speed matters most.
//
// # Memory Management
//
// The LZ4 codec and the pure-Go Zstd codec keep their lz4/zstd encoder and
// decoder objects in sync.Pool instances to reduce allocations across
// repeated calls. The S2 codec and the NoOp codec hold no pooled state.
//
// # Thread Safety
//
// All codec implementations are safe for concurrent use.
//
// # Error Handling
//
// Decompression errors (corrupted input, truncated frames, size mismatches)
// are returned as the underlying library reports them; the pure-Go Zstd
// codec adds a "zstd decompression failed" prefix. None of them wrap an errs
// sentinel.
package compress
