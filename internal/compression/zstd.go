// Package compression frames stored file bodies, compressing them with
// zstd when that saves space.
package compression

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	markerRaw  byte = 0
	markerZstd byte = 1

	minCompressSize = 128
)

var ErrCorrupt = errors.New("compression: corrupt frame")

type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

func NewCompressor(level int, enabled bool) (*Compressor, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return &Compressor{decoder: decoder}, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		decoder.Close()
		return nil, err
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
		enabled: true,
	}, nil
}

// Compress returns data prefixed with a one-byte marker. Small or
// incompressible input is stored raw.
func (c *Compressor) Compress(data []byte) []byte {
	if c.enabled && len(data) >= minCompressSize {
		out := c.encoder.EncodeAll(data, append(make([]byte, 0, len(data)+1), markerZstd))
		if len(out) < len(data)+1 {
			return out
		}
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, markerRaw)
	return append(out, data...)
}

// Decompress reverses Compress. Frames written with compression enabled
// are readable even when this Compressor has it disabled.
func (c *Compressor) Decompress(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, ErrCorrupt
	}
	switch frame[0] {
	case markerRaw:
		return frame[1:], nil
	case markerZstd:
		data, err := c.decoder.DecodeAll(frame[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: unknown marker %d", ErrCorrupt, frame[0])
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
