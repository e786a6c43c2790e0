package cache

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec serializes cached values.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Round trip: Unmarshal(Marshal(v)) must reproduce v.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec encodes values as JSON.
type JSONCodec struct{}

// Marshal encodes v as JSON.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ZstdCodec compresses the output of an inner codec. It pays off for large
// search result lists held in a networked store.
type ZstdCodec struct {
	inner   Codec
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCodec wraps inner with zstd compression. A nil inner uses JSONCodec.
func NewZstdCodec(inner Codec) (*ZstdCodec, error) {
	if inner == nil {
		inner = JSONCodec{}
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("cache: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("cache: zstd decoder: %w", err)
	}
	return &ZstdCodec{inner: inner, encoder: enc, decoder: dec}, nil
}

// Marshal encodes v with the inner codec and compresses the result.
func (c *ZstdCodec) Marshal(v any) ([]byte, error) {
	raw, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (c *ZstdCodec) Unmarshal(data []byte, v any) error {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("cache: zstd decode: %w", err)
	}
	return c.inner.Unmarshal(raw, v)
}

// Close releases the encoder and decoder.
func (c *ZstdCodec) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}

var (
	_ Codec = JSONCodec{}
	_ Codec = (*ZstdCodec)(nil)
)
