package zstring

import "github.com/jrnilsson/infocore/zmem"

// defaultUnicodeTable is the standard's default ZSCII-to-Unicode mapping
// for codes 155-223 (standard §3.8.5.3), used when a story doesn't
// declare its own unicode translation table in the header extension
// table.
var defaultUnicodeTable = map[uint8]rune{
	155: 'ä', 156: 'ö', 157: 'ü', 158: 'Ä', 159: 'Ö', 160: 'Ü', 161: 'ß',
	162: '»', 163: '«', 164: 'ë', 165: 'ï', 166: 'ÿ', 167: 'Ë', 168: 'Ï',
	169: 'á', 170: 'é', 171: 'í', 172: 'ó', 173: 'ú', 174: 'ý', 175: 'Á',
	176: 'É', 177: 'Í', 178: 'Ó', 179: 'Ú', 180: 'Ý', 181: 'à', 182: 'è',
	183: 'ì', 184: 'ò', 185: 'ù', 186: 'À', 187: 'È', 188: 'Ì', 189: 'Ò',
	190: 'Ù', 191: 'â', 192: 'ê', 193: 'î', 194: 'ô', 195: 'û', 196: 'Â',
	197: 'Ê', 198: 'Î', 199: 'Ô', 200: 'Û', 201: 'å', 202: 'Å', 203: 'ø',
	204: 'Ø', 205: 'ã', 206: 'ñ', 207: 'õ', 208: 'Ã', 209: 'Ñ', 210: 'Õ',
	211: 'æ', 212: 'Æ', 213: 'ç', 214: 'Ç', 215: 'þ', 216: 'ð', 217: 'Þ',
	218: 'Ð', 219: '£', 220: 'œ', 221: 'Œ', 222: '¡', 223: '¿',
}

// unicodeTable resolves the story's custom unicode translation table if
// the header extension table declares one, falling back to the default.
func unicodeTable(mem *zmem.Memory, unicodeTableBase uint16) map[uint8]rune {
	if unicodeTableBase == 0 {
		return defaultUnicodeTable
	}

	n := mem.ReadByte(uint32(unicodeTableBase))
	table := make(map[uint8]rune, n)
	for i := 0; i < int(n); i++ {
		table[uint8(155+i)] = rune(mem.ReadWord(uint32(unicodeTableBase) + 1 + uint32(i)*2))
	}
	return table
}

// ZsciiToRune resolves a ZSCII escape code (the 10-bit value embedded in
// a Z-string via the alphabet-2 escape) to a Unicode rune. mem and
// version are unused: only printable ASCII and the default translation
// table are consulted, never a story's own unicode table.
func ZsciiToRune(code uint8, mem *zmem.Memory, version uint8) (rune, bool) {
	if code >= 32 && code <= 126 {
		return rune(code), true
	}
	r, ok := defaultUnicodeTable[code]
	return r, ok
}

// RuneToZscii is the inverse mapping used while encoding dictionary
// entries from player input: given a rune, find the ZSCII code for it
// if one exists in the default translation table.
func RuneToZscii(r rune) (uint8, bool) {
	for code, rr := range defaultUnicodeTable {
		if rr == r {
			return code, true
		}
	}
	return 0, false
}

// UnicodeTableForStory returns the story's unicode translation table:
// the custom one at unicodeTableBase if declared, else the default.
// Decode and Encode do not use it; they consult only the default table.
func UnicodeTableForStory(mem *zmem.Memory, unicodeTableBase uint16) map[uint8]rune {
	return unicodeTable(mem, unicodeTableBase)
}
