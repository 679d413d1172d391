package dictionary

import (
	"testing"

	"github.com/jrnilsson/infocore/zmem"
	"github.com/jrnilsson/infocore/zstring"
)

func buildDictionary(t *testing.T, version uint8, words []string) (*zmem.Memory, *Dictionary) {
	t.Helper()

	alphabets := zstring.DefaultAlphabetsForTest()
	entryLen := uint8(7) // key + 1 data byte, enough headroom for v3 and v4+
	keyLen := 4
	if version > 3 {
		keyLen = 6
	}

	image := make([]uint8, 0x200)
	ptr := uint32(0)
	image[ptr] = 0 // no word separators
	ptr++
	image[ptr] = entryLen
	image[ptr+1] = 0
	image[ptr+2] = uint8(len(words))
	ptr += 3

	base := ptr
	for i, w := range words {
		entryAddr := base + uint32(i)*uint32(entryLen)
		encoded := zstring.Encode([]rune(w), version, alphabets)
		copy(image[entryAddr:], encoded)
		if len(encoded) < keyLen {
			t.Fatalf("encoded word shorter than keyLen: %d < %d", len(encoded), keyLen)
		}
	}

	mem := zmem.New(image, uint32(len(image)))
	d := Parse(mem, 0, version, alphabets, nil)
	return mem, d
}

func TestDictionaryLookupByIndex(t *testing.T) {
	words := []string{"go", "north", "xyzzy", "zork"}
	_, d := buildDictionary(t, 3, words)

	if d.Len() != len(words) {
		t.Fatalf("expected %d entries, got %d", len(words), d.Len())
	}

	for i, w := range words {
		alphabets := zstring.DefaultAlphabetsForTest()
		key := zstring.Encode([]rune(w), 3, alphabets)
		addr := d.Find(key)
		if addr != d.At(i).Address {
			t.Fatalf("expected lookup of %q to return entry %d's address %#x, got %#x", w, i, d.At(i).Address, addr)
		}
	}
}

func TestDictionaryLookupMissingWord(t *testing.T) {
	words := []string{"go", "north", "zork"}
	_, d := buildDictionary(t, 3, words)

	alphabets := zstring.DefaultAlphabetsForTest()
	key := zstring.Encode([]rune("nowhere"), 3, alphabets)
	if addr := d.Find(key); addr != 0 {
		t.Fatalf("expected missing word to return 0, got %#x", addr)
	}
}

func TestDictionaryV4PlusKeyLength(t *testing.T) {
	words := []string{"examine", "inventory"}
	_, d := buildDictionary(t, 5, words)

	alphabets := zstring.DefaultAlphabetsForTest()
	key := zstring.Encode([]rune("inventory"), 5, alphabets)
	addr := d.Find(key)
	if addr == 0 {
		t.Fatal("expected to find inventory in a v5 dictionary")
	}
	if addr != d.At(1).Address {
		t.Fatalf("expected inventory to be entry 1, got address %#x vs %#x", addr, d.At(1).Address)
	}
}
