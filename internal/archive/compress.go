package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a stream compression algorithm for dump artifacts.
type Algorithm string

const (
	AlgorithmNone Algorithm = "none"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmZstd Algorithm = "zstd"
	AlgorithmLZ4  Algorithm = "lz4"
)

// ParseAlgorithm converts a configuration string into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", AlgorithmNone:
		return AlgorithmNone, nil
	case AlgorithmGzip, AlgorithmZstd, AlgorithmLZ4:
		return Algorithm(s), nil
	default:
		return AlgorithmNone, fmt.Errorf("unsupported compression algorithm: %q", s)
	}
}

// Suffix returns the filename suffix appended to artifacts compressed with
// the algorithm.
func (a Algorithm) Suffix() string {
	switch a {
	case AlgorithmGzip:
		return ".gz"
	case AlgorithmZstd:
		return ".zst"
	case AlgorithmLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// NewCompressingWriter wraps w in a compressor for the given algorithm.
// Level is clamped into the algorithm's valid range; a non-positive level
// selects the algorithm default. AlgorithmNone returns a pass-through
// WriteCloser that does not close the underlying writer.
func NewCompressingWriter(w io.Writer, algorithm Algorithm, level int) (io.WriteCloser, error) {
	switch algorithm {
	case AlgorithmNone:
		return nopWriteCloser{w}, nil

	case AlgorithmGzip:
		if level < gzip.BestSpeed || level > gzip.BestCompression {
			level = gzip.DefaultCompression
		}
		return gzip.NewWriterLevel(w, level)

	case AlgorithmZstd:
		encoderLevel := zstd.SpeedDefault
		switch {
		case level <= 0:
			encoderLevel = zstd.SpeedDefault
		case level <= 1:
			encoderLevel = zstd.SpeedFastest
		case level <= 3:
			encoderLevel = zstd.SpeedDefault
		case level <= 6:
			encoderLevel = zstd.SpeedBetterCompression
		default:
			encoderLevel = zstd.SpeedBestCompression
		}
		return zstd.NewWriter(w, zstd.WithEncoderLevel(encoderLevel))

	case AlgorithmLZ4:
		writer := lz4.NewWriter(w)
		if level > 6 {
			if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
				return nil, fmt.Errorf("failed to set lz4 compression level: %w", err)
			}
		}
		return writer, nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %q", algorithm)
	}
}

// NewDecompressingReader wraps r in a decompressor for the given algorithm.
func NewDecompressingReader(r io.Reader, algorithm Algorithm) (io.ReadCloser, error) {
	switch algorithm {
	case AlgorithmNone:
		return io.NopCloser(r), nil

	case AlgorithmGzip:
		return gzip.NewReader(r)

	case AlgorithmZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{decoder}, nil

	case AlgorithmLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %q", algorithm)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// zstdReadCloser adapts zstd.Decoder's errorless Close to io.ReadCloser.
type zstdReadCloser struct {
	decoder *zstd.Decoder
}

func (z zstdReadCloser) Read(p []byte) (int, error) { return z.decoder.Read(p) }

func (z zstdReadCloser) Close() error {
	z.decoder.Close()
	return nil
}
