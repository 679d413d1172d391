package zstring

import "github.com/jrnilsson/infocore/zmem"

// Alphabets holds the three 26-entry character tables (A0 lowercase, A1
// uppercase, A2 punctuation/digits) a story uses. Versions 1-4 always
// use the built-in defaults; v5+ may replace them via header word 52
// (standard §3.5.5).
type Alphabets struct {
	A0 [26]uint8
	A1 [26]uint8
	A2 [26]uint8
}

var defaultA0 = [26]uint8{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'}
var defaultA1 = [26]uint8{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'}

// defaultA2 is A2 for v3+ (the A2 table's first slot is always the
// ZSCII-escape marker and is never indexed through this array).
var defaultA2 = [26]uint8{0 /* unused: zscii escape */, '\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'}

// DefaultAlphabetsForTest returns the standard A0/A1/A2 tables, for use
// by other packages' tests that need an *Alphabets without loading a
// full story image.
func DefaultAlphabetsForTest() *Alphabets {
	return &Alphabets{A0: defaultA0, A1: defaultA1, A2: defaultA2}
}

// LoadAlphabets returns the alphabet tables in effect for the story,
// resolving a custom table from alphabetTableBase when the header
// declares one (v5+ only; ignored pre-v5 per the standard).
func LoadAlphabets(mem *zmem.Memory, version uint8, alphabetTableBase uint16) *Alphabets {
	a := &Alphabets{A0: defaultA0, A1: defaultA1, A2: defaultA2}

	if version < 5 || alphabetTableBase == 0 {
		return a
	}

	base := uint32(alphabetTableBase)
	for i := 0; i < 26; i++ {
		a.A0[i] = mem.ReadByte(base + uint32(i))
	}
	for i := 0; i < 26; i++ {
		a.A1[i] = mem.ReadByte(base + 26 + uint32(i))
	}
	for i := 0; i < 26; i++ {
		a.A2[i] = mem.ReadByte(base + 52 + uint32(i))
	}
	// The first A2 slot (Z-character 6) is the ZSCII escape and is never
	// looked up, so it is cleared to match the default table.
	a.A2[0] = 0

	return a
}
