// Package dictionary implements the Z-machine dictionary: the sorted
// table of encoded words a story recognises, looked up by binary
// search when tokenising player input.
package dictionary

import (
	"bytes"

	"github.com/jrnilsson/infocore/zmem"
	"github.com/jrnilsson/infocore/zstring"
)

// Header is the dictionary's fixed preamble: the word-separator
// character set, each entry's total length, and the entry count.
type Header struct {
	WordSeparators []uint8
	EntryLength    uint8
	Count          int16
}

// Entry is one dictionary word: its encoded key (fixed-length, as
// Find's caller must also produce via zstring.Encode), the address of
// that key (a byte address, even though some opcodes refer to
// dictionary words with word addresses), and the trailing data bytes
// following the key.
type Entry struct {
	Address     uint16
	EncodedWord []uint8
	DecodedWord string
	Data        []uint8
}

// Dictionary is a parsed, immutable view over a story's dictionary
// table.
type Dictionary struct {
	Header  Header
	entries []Entry
}

// encodedWordLength is the number of bytes the dictionary key occupies:
// 4 (2 words) for v3 and below, 6 (3 words) for v4+.
func encodedWordLength(version uint8) int {
	if version > 3 {
		return 6
	}
	return 4
}

// Parse reads the dictionary table starting at baseAddress.
func Parse(mem *zmem.Memory, baseAddress uint32, version uint8, alphabets *zstring.Alphabets, abbreviations zstring.AbbreviationResolver) *Dictionary {
	ptr := baseAddress
	numSeparators := mem.ReadByte(ptr)
	separators := mem.ReadSlice(ptr+1, ptr+1+uint32(numSeparators))

	ptr += 1 + uint32(numSeparators)
	header := Header{
		WordSeparators: separators,
		EntryLength:    mem.ReadByte(ptr),
		Count:          int16(mem.ReadWord(ptr + 1)),
	}
	ptr += 3

	count := int(header.Count)
	negative := count < 0
	if negative {
		count = -count
	}

	keyLen := encodedWordLength(version)
	entries := make([]Entry, count)
	for i := 0; i < count; i++ {
		entryAddr := ptr + uint32(i)*uint32(header.EntryLength)
		key := mem.ReadSlice(entryAddr, entryAddr+uint32(keyLen))
		decoded, _ := zstring.Decode(mem, entryAddr, version, alphabets, abbreviations)

		entries[i] = Entry{
			Address:     uint16(entryAddr),
			EncodedWord: key,
			DecodedWord: decoded,
			Data:        mem.ReadSlice(entryAddr+uint32(keyLen), entryAddr+uint32(header.EntryLength)),
		}
	}

	d := &Dictionary{Header: header, entries: entries}
	if negative {
		// A negative count (standard §13.1) means the entries aren't
		// sorted and can't be binary searched; sort them once here so
		// Find's binary search stays correct regardless.
		sortEntries(entries)
	}
	return d
}

func sortEntries(entries []Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && bytes.Compare(entries[j-1].EncodedWord, entries[j].EncodedWord) > 0; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// Find looks up the dictionary entry whose encoded key equals zstr via
// binary search (entries are sorted by encoded key), returning its
// byte address, or 0 if the word isn't in the dictionary.
func (d *Dictionary) Find(zstr []uint8) uint16 {
	lo, hi := 0, len(d.entries)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch bytes.Compare(d.entries[mid].EncodedWord, zstr) {
		case 0:
			return d.entries[mid].Address
		case -1:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0
}

// Len returns the number of entries in the dictionary.
func (d *Dictionary) Len() int { return len(d.entries) }

// At returns the entry at index i, for the "entry at index i" testable
// property and for dump/pretty-printing tooling.
func (d *Dictionary) At(i int) Entry { return d.entries[i] }
