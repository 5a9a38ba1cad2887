// Package compression provides the value codecs used when staging durable
// state in the reference engine.
//
// Each staged value is stored with a 1-byte codec indicator followed by the
// compressed (or raw) payload, so the reader never needs out-of-band codec
// configuration.
package compression

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type represents a compression algorithm.
type Type uint8

const (
	// None indicates no compression.
	None Type = 0x0

	// Snappy uses Google Snappy compression.
	Snappy Type = 0x1

	// LZ4 uses LZ4 block compression.
	LZ4 Type = 0x2

	// Zstd uses Zstandard compression.
	Zstd Type = 0x3
)

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Snappy:
		return "Snappy"
	case LZ4:
		return "LZ4"
	case Zstd:
		return "Zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// IsSupported returns true if the compression type is supported.
func (t Type) IsSupported() bool {
	switch t {
	case None, Snappy, LZ4, Zstd:
		return true
	default:
		return false
	}
}

// Parse returns the compression type named by s.
// Recognized names: "none", "snappy", "lz4", "zstd".
func Parse(s string) (Type, error) {
	switch s {
	case "none", "":
		return None, nil
	case "snappy":
		return Snappy, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("compression: unknown type %q", s)
	}
}

// Shared zstd coders. The zstd package recommends reusing an Encoder/Decoder;
// both are safe for concurrent use via EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic(fmt.Sprintf("compression: zstd encoder init: %v", err))
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("compression: zstd decoder init: %v", err))
	}
}

// Encode compresses data with the given codec and prepends the codec tag.
func Encode(t Type, data []byte) ([]byte, error) {
	payload, err := Compress(t, data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(t))
	return append(out, payload...), nil
}

// Decode decompresses a tagged payload produced by Encode.
func Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("compression: empty payload")
	}
	return Decompress(Type(data[0]), data[1:])
}

// Compress compresses data using the specified compression type.
func Compress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		return snappy.Encode(nil, data), nil

	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("compression: lz4 compress: %w", err)
		}
		if n == 0 {
			// Incompressible input; store raw behind the flag byte.
			return lz4Raw(data), nil
		}
		return append(lz4Header(len(data)), buf[:n]...), nil

	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil

	default:
		return nil, fmt.Errorf("compression: unsupported type %s", t)
	}
}

// Decompress decompresses data using the specified compression type.
func Decompress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("compression: snappy decompress: %w", err)
		}
		return out, nil

	case LZ4:
		return lz4Decompress(data)

	case Zstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("compression: zstd decompress: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("compression: unsupported type %s", t)
	}
}

// LZ4 block compression has no self-describing length, so compressed
// payloads carry a 5-byte header: a flag byte (1 = compressed, 0 = raw)
// followed by the uncompressed length as a big-endian uint32.

func lz4Header(uncompressedLen int) []byte {
	return []byte{
		1,
		byte(uncompressedLen >> 24),
		byte(uncompressedLen >> 16),
		byte(uncompressedLen >> 8),
		byte(uncompressedLen),
	}
}

func lz4Raw(data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	out = append(out, 0)
	return append(out, data...)
}

func lz4Decompress(data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("compression: lz4 payload too short")
	}
	if data[0] == 0 {
		return data[1:], nil
	}
	if len(data) < 5 {
		return nil, fmt.Errorf("compression: lz4 payload too short")
	}
	if len(data) < 5 {
		return nil, fmt.Errorf("compression: lz4 payload too short")
	}
	size := int(data[1])<<24 | int(data[2])<<16 | int(data[3])<<8 | int(data[4])
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data[5:], out)
	if err != nil {
		return nil, fmt.Errorf("compression: lz4 decompress: %w", err)
	}
	return out[:n], nil
}
