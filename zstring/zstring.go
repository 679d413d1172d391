// Package zstring implements the Z-machine text codec: Z-character
// decode/encode, alphabet shifts, abbreviation expansion, 10-bit ZSCII
// escapes and dictionary-ready fixed-length encoding.
package zstring

import (
	"strings"

	"github.com/jrnilsson/infocore/zmem"
)

type alphabet int

const (
	a0 alphabet = iota
	a1
	a2
)

// AbbreviationResolver looks up abbreviation table entry 32*(z-1)+x and
// decodes it. The zmachine driver supplies this so zstring need not know
// about the abbreviation table base address itself; it is passed
// through Decode to support the "abbreviations do not nest" rule (the
// resolver is nil while expanding an abbreviation).
type AbbreviationResolver func(z, x uint8) string

// Decode reads Z-characters starting at addr until the stop bit is set,
// returning the decoded string and the number of bytes consumed.
// abbreviations may be nil (e.g. while already expanding an
// abbreviation, or before the abbreviation table exists).
func Decode(mem *zmem.Memory, addr uint32, version uint8, alphabets *Alphabets, abbreviations AbbreviationResolver) (string, uint32) {
	var zchars []uint8
	ptr := addr

	for {
		word := mem.ReadWord(ptr)
		ptr += 2
		zchars = append(zchars, uint8((word>>10)&0x1f), uint8((word>>5)&0x1f), uint8(word&0x1f))
		if word&0x8000 != 0 {
			break
		}
	}

	var out strings.Builder
	cur := a0

	for i := 0; i < len(zchars); i++ {
		zc := zchars[i]

		switch {
		case zc == 0:
			out.WriteByte(' ')
			cur = a0
			continue
		case zc >= 1 && zc <= 3:
			// Abbreviations, v2+. z in {1,2,3}, followed by the index
			// byte. Abbreviations never nest: abbreviations is nil
			// while expanding one.
			if i+1 < len(zchars) && abbreviations != nil {
				i++
				out.WriteString(abbreviations(zc, zchars[i]))
			}
			cur = a0
			continue
		case zc == 4:
			cur = a1
			continue
		case zc == 5:
			cur = a2
			continue
		}

		if cur == a2 && zc == 6 {
			// ZSCII escape: next two Z-chars form a 10-bit code.
			if i+2 < len(zchars) {
				hi := zchars[i+1]
				lo := zchars[i+2]
				i += 2
				code := (uint16(hi) << 5) | uint16(lo)
				if r, ok := ZsciiToRune(uint8(code), mem, version); ok {
					out.WriteRune(r)
				} else {
					out.WriteRune(rune(code))
				}
			}
			cur = a0
			continue
		}

		var table *[26]uint8
		switch cur {
		case a0:
			table = &alphabets.A0
		case a1:
			table = &alphabets.A1
		default:
			table = &alphabets.A2
		}

		if zc >= 6 && int(zc-6) < len(table) {
			out.WriteByte(table[zc-6])
		}
		cur = a0
	}

	return out.String(), ptr - addr
}

// zcharCount returns the number of Z-characters a dictionary word keeps
// for the given version, matching the "2 or 3 words" packing spec.md's
// Dictionary entry paragraph (§3) describes: 6 Z-characters (2 words)
// for v3 and below, 9 Z-characters (3 words) for v4+. Words shorter
// than this are padded with the shift-5 pad character.
func zcharCount(version uint8) int {
	if version >= 4 {
		return 9
	}
	return 6
}

// packedSlotCount is zcharCount rounded up to a whole number of 16-bit
// words (3 Z-chars per word); zcharCount is already such a multiple for
// both versions, so this only guards against future version additions.
func packedSlotCount(version uint8) int {
	n := zcharCount(version)
	return ((n + 2) / 3) * 3
}

// Encode converts runes into a dictionary-ready encoded word: the first
// zcharCount(version) Z-characters derived from runes, padded with the
// shift-5 pad character out to a whole number of 16-bit words, and
// packed big-endian with the stop bit set on the final word. Used for
// dictionary lookups; runes found in no alphabet fall back to a ZSCII
// escape sequence when they have a ZSCII code (from the default unicode
// table, or the rune's own value below 256); any other rune is dropped.
func Encode(runes []rune, version uint8, alphabets *Alphabets) []uint8 {
	meaningful := zcharCount(version)
	n := packedSlotCount(version)
	zchars := make([]uint8, 0, n)

	for _, r := range runes {
		if len(zchars) >= meaningful {
			break
		}
		zchars = appendRuneZChars(zchars, r, alphabets)
	}
	if len(zchars) > meaningful {
		zchars = zchars[:meaningful]
	}
	for len(zchars) < n {
		zchars = append(zchars, 5)
	}

	words := make([]uint8, 0, n/3*2)
	for i := 0; i < n; i += 3 {
		triple := [3]uint8{zchars[i], 0, 0}
		if i+1 < n {
			triple[1] = zchars[i+1]
		}
		if i+2 < n {
			triple[2] = zchars[i+2]
		}
		word := uint16(triple[0])<<10 | uint16(triple[1])<<5 | uint16(triple[2])
		if i+3 >= n {
			word |= 0x8000
		}
		words = append(words, uint8(word>>8), uint8(word))
	}

	return words
}

func appendRuneZChars(zchars []uint8, r rune, alphabets *Alphabets) []uint8 {
	if r == ' ' {
		return append(zchars, 0)
	}

	for i, c := range alphabets.A0 {
		if rune(c) == r {
			return append(zchars, uint8(i+6))
		}
	}
	for i, c := range alphabets.A1 {
		if rune(c) == r {
			return append(zchars, 4, uint8(i+6))
		}
	}
	for i, c := range alphabets.A2 {
		if i == 0 {
			continue
		}
		if rune(c) == r {
			return append(zchars, 5, uint8(i+6))
		}
	}

	code, ok := RuneToZscii(r)
	if !ok && r >= 0 && r < 256 {
		code = uint8(r)
		ok = true
	}
	if ok {
		return append(zchars, 5, 6, code>>5, code&0x1f)
	}

	return zchars
}
