package zstring

import "github.com/jrnilsson/infocore/zmem"

// NewAbbreviationResolver builds the AbbreviationResolver Decode expects,
// bound to a specific story's abbreviation table. abbreviations do not
// nest (standard §3.3), so the resolver calls Decode with a nil
// resolver of its own.
func NewAbbreviationResolver(mem *zmem.Memory, version uint8, alphabets *Alphabets, abbreviationTableBase uint16) AbbreviationResolver {
	return func(z, x uint8) string {
		if abbreviationTableBase == 0 {
			return ""
		}
		index := uint16(32*(z-1)) + uint16(x)
		entryAddr := uint32(abbreviationTableBase) + uint32(index)*2
		strAddr := uint32(mem.ReadWord(entryAddr)) * 2 // word address

		str, _ := Decode(mem, strAddr, version, alphabets, nil)
		return str
	}
}
