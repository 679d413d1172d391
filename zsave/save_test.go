package zsave

import (
	"bytes"
	"testing"
)

func TestMemoryDeltaRoundTrip(t *testing.T) {
	pristine := make([]uint8, 256)
	for i := range pristine {
		pristine[i] = uint8(i)
	}

	current := make([]uint8, len(pristine))
	copy(current, pristine)
	current[10] = 0xFF
	current[11] = 0xFE
	current[200] = 0x00 // changed from 200: a non-zero XOR, emitted as a literal byte

	encoded := EncodeMemoryDelta(pristine, current)
	decoded, err := DecodeMemoryDelta(encoded, pristine)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !bytes.Equal(decoded, current) {
		t.Fatalf("round trip mismatch")
	}
}

func TestMemoryDeltaAllZero(t *testing.T) {
	pristine := make([]uint8, 1000)
	encoded := EncodeMemoryDelta(pristine, pristine)
	decoded, err := DecodeMemoryDelta(encoded, pristine)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded, pristine) {
		t.Fatal("all-zero round trip mismatch")
	}
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	s := Snapshot{
		Release:  42,
		Checksum: 0xBEEF,
		PC:       0x4000,
		Frames: []Frame{
			{PC: 0, Store: DiscardStore, Locals: nil, Stack: nil, Argc: 0, Token: 0},
			{PC: 0x3000, Store: "3", Locals: []uint16{1, 2, 3}, Stack: []uint16{9}, Argc: 2, Token: 1},
		},
		Memory: "AAA=",
	}

	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if got.Release != s.Release || got.Checksum != s.Checksum || got.PC != s.PC {
		t.Fatalf("header mismatch: %+v", got)
	}
	if len(got.Frames) != 2 || got.Frames[1].Store != "3" || len(got.Frames[1].Locals) != 3 {
		t.Fatalf("frame mismatch: %+v", got.Frames)
	}
}
