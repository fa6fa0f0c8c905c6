package archive

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxHeaderLength bounds the declared JSON header size of a frame. Anything
// larger indicates a corrupt or truncated stream rather than a real header.
const maxHeaderLength = 1 << 20

// ErrCorruptArchive is returned when a frame cannot be decoded from the
// stream, typically because the input is truncated or was not produced by
// the encoder.
var ErrCorruptArchive = errors.New("corrupt archive stream")

// Decoder reads frames back out of an archive container stream. The stream
// must already be decompressed; use Open to handle gzip transparently.
type Decoder struct {
	r io.Reader
}

// NewDecoder creates a decoder over an uncompressed frame stream.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next decodes the next frame and returns its header and payload. It returns
// io.EOF once the stream is cleanly exhausted. A stream that ends in the
// middle of a frame yields an error wrapping ErrCorruptArchive.
func (d *Decoder) Next() (*FrameHeader, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, nil, io.EOF
		}
		return nil, nil, fmt.Errorf("%w: truncated frame length: %v", ErrCorruptArchive, err)
	}

	headerLen := binary.BigEndian.Uint32(lenBuf[:])
	if headerLen == 0 || headerLen > maxHeaderLength {
		return nil, nil, fmt.Errorf("%w: implausible header length %d", ErrCorruptArchive, headerLen)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(d.r, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("%w: truncated frame header: %v", ErrCorruptArchive, err)
	}

	var header FrameHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid frame header: %v", ErrCorruptArchive, err)
	}
	if header.Size < 0 {
		return nil, nil, fmt.Errorf("%w: negative payload size %d", ErrCorruptArchive, header.Size)
	}

	payload := make([]byte, header.Size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, nil, fmt.Errorf("%w: truncated payload for %s: %v", ErrCorruptArchive, header.Path, err)
	}

	return &header, payload, nil
}

// Entry pairs a decoded frame header with its payload.
type Entry struct {
	Header  FrameHeader
	Payload []byte
}

// ReadAll decodes every frame remaining in the stream.
func ReadAll(r io.Reader) ([]Entry, error) {
	return NewDecoder(r).ReadAll()
}

// ReadAll decodes every frame remaining in the decoder's stream.
func (d *Decoder) ReadAll() ([]Entry, error) {
	var entries []Entry

	for {
		header, payload, err := d.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, Entry{Header: *header, Payload: payload})
	}
}

// Open opens an archive file for decoding, layering a gzip reader when the
// filename carries a .gz suffix. The returned closer releases both layers.
func Open(path string) (io.ReadCloser, *Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	if !strings.HasSuffix(path, ".gz") {
		return f, NewDecoder(f), nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to read compressed archive %s: %w", path, err)
	}

	return &layeredCloser{inner: gz, outer: f}, NewDecoder(gz), nil
}

type layeredCloser struct {
	inner io.ReadCloser
	outer io.Closer
}

func (l *layeredCloser) Read(p []byte) (int, error) { return l.inner.Read(p) }

func (l *layeredCloser) Close() error {
	innerErr := l.inner.Close()
	outerErr := l.outer.Close()
	if innerErr != nil {
		return innerErr
	}
	return outerErr
}
