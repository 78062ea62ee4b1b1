package storage

import (
	"fmt"

	"github.com/arthur-debert/pipestore/record"
	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix is appended to the file name of compressed collections.
const CompressedSuffix = ".zst"

// Compressed wraps another codec with zstd compression.
type Compressed struct {
	Inner Codec
}

// Name implements Codec.
func (c Compressed) Name() string {
	return c.Inner.Name() + "+zstd"
}

// Encode implements Codec.
func (c Compressed) Encode(docs *record.Map) ([]byte, error) {
	raw, err := c.Inner.Encode(docs)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(raw, nil), nil
}

// Decode implements Codec.
func (c Compressed) Decode(data []byte) (*record.Map, error) {
	if len(data) == 0 {
		return c.Inner.Decode(data)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	return c.Inner.Decode(raw)
}
