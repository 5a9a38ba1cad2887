// Package checksum provides value integrity tags for the reference engine's
// durable store.
//
// Tags are XXH3-64 digests of the staged payload. A mismatch on read means
// the stored bytes were altered after staging and surfaces as a data
// corruption failure at the engine boundary.
package checksum

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Size is the length in bytes of an integrity tag.
const Size = 8

// Sum returns the integrity tag of data.
func Sum(data []byte) uint64 {
	return xxh3.Hash(data)
}

// Append appends data's integrity tag to the payload and returns the result.
func Append(data []byte) []byte {
	out := make([]byte, len(data)+Size)
	copy(out, data)
	binary.LittleEndian.PutUint64(out[len(data):], Sum(data))
	return out
}

// Verify splits a payload produced by Append into its data and checks the
// tag. It returns the data portion, or an error when the tag does not match.
func Verify(payload []byte) ([]byte, error) {
	if len(payload) < Size {
		return nil, fmt.Errorf("checksum: payload shorter than tag (%d bytes)", len(payload))
	}
	data := payload[:len(payload)-Size]
	want := binary.LittleEndian.Uint64(payload[len(payload)-Size:])
	if got := Sum(data); got != want {
		return nil, fmt.Errorf("checksum: mismatch (stored %#x, computed %#x)", want, got)
	}
	return data, nil
}
