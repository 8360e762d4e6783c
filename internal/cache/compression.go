package cache

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/saviornt/CacheManager/internal/types"
)

// ZlibCompressor implements Compressor using zlib at a configurable level.
type ZlibCompressor struct {
	level int
}

// NewZlibCompressor creates a compressor. Levels outside zlib's range
// fall back to the default level.
func NewZlibCompressor(level int) *ZlibCompressor {
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		level = zlib.DefaultCompression
	}
	return &ZlibCompressor{level: level}
}

// Compress deflates data.
func (c *ZlibCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates data.
func (c *ZlibCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSerialization, err)
	}
	return out, nil
}

var _ types.Compressor = (*ZlibCompressor)(nil)
