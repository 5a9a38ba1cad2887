package checksum

import (
	"bytes"
	"testing"
)

func TestAppendVerify(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("a"),
		[]byte("hello world"),
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, in := range inputs {
		payload := Append(in)
		if len(payload) != len(in)+Size {
			t.Fatalf("Append length = %d, want %d", len(payload), len(in)+Size)
		}
		out, err := Verify(payload)
		if err != nil {
			t.Fatalf("Verify error = %v for %d-byte input", err, len(in))
		}
		if !bytes.Equal(out, in) {
			t.Errorf("Verify returned wrong data for %d-byte input", len(in))
		}
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	payload := Append([]byte("important value"))

	// Flip one bit of the data portion.
	corrupt := append([]byte(nil), payload...)
	corrupt[3] ^= 0x01

	if _, err := Verify(corrupt); err == nil {
		t.Error("Verify accepted corrupted data")
	}

	// Flip one bit of the tag.
	corrupt = append([]byte(nil), payload...)
	corrupt[len(corrupt)-1] ^= 0x80
	if _, err := Verify(corrupt); err == nil {
		t.Error("Verify accepted corrupted tag")
	}
}

func TestVerifyShortPayload(t *testing.T) {
	if _, err := Verify([]byte("short")); err == nil {
		t.Error("Verify accepted payload shorter than tag")
	}
}

func TestSumDeterministic(t *testing.T) {
	a := Sum([]byte("slatekv"))
	b := Sum([]byte("slatekv"))
	if a != b {
		t.Errorf("Sum not deterministic: %#x vs %#x", a, b)
	}
	if Sum([]byte("slatekv")) == Sum([]byte("slatekw")) {
		t.Error("distinct inputs produced the same tag")
	}
}
