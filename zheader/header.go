// Package zheader provides a typed view over the first 64 bytes of a
// Z-machine story image: version, the base addresses of every other
// table, the two flag bytes, and the interpreter-capability fields the
// core writes in at load time.
package zheader

import (
	"github.com/jrnilsson/infocore/zmem"
)

// Flags1 bits, version-dependent (standard §11.1).
const (
	Flags1StatusLineUnavailableV3 = 0b0001_0000 // v3 only: set if no status line
	Flags1ScreenSplittingV3       = 0b0010_0000 // v3 only
	Flags1VariablePitchV3         = 0b0100_0000 // v3 only

	Flags1ColourV4Plus      = 0b0000_0001
	Flags1PicturesV4Plus    = 0b0000_0010
	Flags1BoldV4Plus        = 0b0000_0100
	Flags1ItalicV4Plus      = 0b0000_1000
	Flags1FixedSpaceV4Plus  = 0b0001_0000
	Flags1SoundV4Plus       = 0b0010_0000
	Flags1TimedInputV4Plus  = 0b1000_0000
)

// Flags2 bits (standard §11.1; bits the interpreter may set to advertise
// support, bits the game sets to request a feature).
const (
	Flags2Transcripting  = 0b0000_0000_0000_0001
	Flags2ForceFixedFont = 0b0000_0000_0000_0010
	Flags2Timed          = 0b0000_0000_1000_0000
	Flags2ColourSupport  = 0b0000_0001_0000_0000
)

// Capabilities describes what the host is able and willing to offer,
// supplied at Create time (spec.md §6 set_terp_caps).
type Capabilities struct {
	ScreenRows     uint8
	ScreenCols     uint8
	ScreenWidthPx  uint16
	ScreenHeightPx uint16
	FontWidthPx    uint8
	FontHeightPx   uint8

	Colour      bool
	Bold        bool
	Italic      bool
	FixedPitch  bool
	TimedInput  bool
	DefaultFG   uint8
	DefaultBG   uint8

	InterpreterNumber uint8
	InterpreterVersion uint8
}

// DefaultCapabilities models a plain 80x25 text terminal with colour,
// bold and italic but no timed input — the shape cmd/zterp advertises.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		ScreenRows:     25,
		ScreenCols:     80,
		ScreenWidthPx:  80,
		ScreenHeightPx: 25,
		FontWidthPx:    1,
		FontHeightPx:   1,
		Colour:         true,
		Bold:           true,
		Italic:         true,
		FixedPitch:     false,
		TimedInput:     false,
		DefaultFG:      9, // white
		DefaultBG:      2, // black

		InterpreterNumber:  6, // IBM PC
		InterpreterVersion: 1,
	}
}

// Header is a typed accessor over the story image's first 64 bytes. It
// holds no state of its own beyond cached copies of fields that never
// change after load (Memory is the source of truth for everything else).
type Header struct {
	mem *zmem.Memory

	Version uint8

	ReleaseNumber         uint16
	HighMemBase           uint16
	InitialPC             uint16
	DictionaryBase        uint16
	ObjectTableBase       uint16
	GlobalVariableBase    uint16
	StaticMemoryBase      uint16
	AbbreviationTableBase uint16
	FileChecksum          uint16
	RoutinesOffset        uint16 // v6/7 only; rejected versions, kept for completeness
	StringOffset          uint16
	TerminatingCharTable  uint16
	StandardRevision      uint16
	AlphabetTableBase     uint16 // word 52: custom alphabets, v5+
	ExtensionTableBase    uint16
	UnicodeTableBase      uint16 // resolved from the extension table
}

// Load builds a Header view over mem and writes the interpreter
// capability bytes the standard expects an interpreter to publish.
// version must already have been validated by the caller (1,2,6,7 are
// rejected upstream; see zmachine.New).
func Load(mem *zmem.Memory, caps Capabilities) *Header {
	version := mem.ReadByte(0)

	h := &Header{
		mem:                   mem,
		Version:               version,
		ReleaseNumber:         mem.ReadWord(0x02),
		HighMemBase:           mem.ReadWord(0x04),
		InitialPC:             mem.ReadWord(0x06),
		DictionaryBase:        mem.ReadWord(0x08),
		ObjectTableBase:       mem.ReadWord(0x0a),
		GlobalVariableBase:    mem.ReadWord(0x0c),
		StaticMemoryBase:      mem.ReadWord(0x0e),
		AbbreviationTableBase: mem.ReadWord(0x18),
		FileChecksum:          mem.ReadWord(0x1c),
		RoutinesOffset:        mem.ReadWord(0x28),
		StringOffset:          mem.ReadWord(0x2a),
		TerminatingCharTable:  mem.ReadWord(0x2e),
		StandardRevision:      mem.ReadWord(0x32),
		AlphabetTableBase:     mem.ReadWord(0x34),
	}

	extBase := mem.ReadWord(0x36)
	h.ExtensionTableBase = extBase
	if extBase != 0 {
		numWords := mem.ReadWord(uint32(extBase))
		if numWords >= 3 {
			h.UnicodeTableBase = mem.ReadWord(uint32(extBase) + 6)
		}
	}

	h.writeCapabilities(caps)

	return h
}

// writeCapabilities sets the fields of the header that belong to the
// interpreter rather than the game, per standard §11.1.
func (h *Header) writeCapabilities(caps Capabilities) {
	m := h.mem

	m.WriteByte(0x1e, caps.InterpreterNumber)
	m.WriteByte(0x1f, caps.InterpreterVersion)

	m.WriteByte(0x20, caps.ScreenRows)
	m.WriteByte(0x21, caps.ScreenCols)
	m.WriteWord(0x22, caps.ScreenWidthPx)
	m.WriteWord(0x24, caps.ScreenHeightPx)
	m.WriteByte(0x26, caps.FontHeightPx)
	m.WriteByte(0x27, caps.FontWidthPx)

	m.WriteByte(0x2c, caps.DefaultBG)
	m.WriteByte(0x2d, caps.DefaultFG)

	// Standard revision this interpreter claims conformance with: 1.0.
	m.WriteByte(0x32, 1)
	m.WriteByte(0x33, 0)

	flags1 := m.ReadByte(0x01)
	if h.Version <= 3 {
		flags1 &^= Flags1StatusLineUnavailableV3
		flags1 |= Flags1ScreenSplittingV3
	} else {
		if caps.Colour {
			flags1 |= Flags1ColourV4Plus
		}
		if caps.Bold {
			flags1 |= Flags1BoldV4Plus
		}
		if caps.Italic {
			flags1 |= Flags1ItalicV4Plus
		}
		if caps.TimedInput {
			flags1 |= Flags1TimedInputV4Plus
		}
		flags1 |= Flags1ScreenSplittingV3
		// Never claim pictures, sound (beyond the bell) or a
		// fixed-pitch default: Non-goals per spec.md §1.
		flags1 &^= Flags1PicturesV4Plus
		flags1 &^= Flags1SoundV4Plus
		if !caps.FixedPitch {
			flags1 &^= Flags1FixedSpaceV4Plus
		}
	}
	m.WriteByte(0x01, flags1)
}

// FileLength returns the declared story length in bytes, decoded from
// the version-dependent scale factor in header word 26.
func (h *Header) FileLength() uint32 {
	raw := uint32(h.mem.ReadWord(0x1a))
	switch {
	case h.Version <= 3:
		return raw * 2
	case h.Version <= 5:
		return raw * 4
	default:
		return raw * 8
	}
}

// PackedAddressScale returns the multiplier packed addresses use for
// this version (routines/strings share a scale except v6/7, which this
// core rejects at load time — see zmachine.New).
func (h *Header) PackedAddressScale() uint32 {
	switch {
	case h.Version < 4:
		return 2
	case h.Version < 8:
		return 4
	default:
		return 8
	}
}

// Flags1 returns the live flags1 byte (bit 1 of globals/status-line
// semantics depends on it; it's mutable by the game on v3 for the
// "transcript on" bit so it's read fresh each time, not cached).
func (h *Header) Flags1() uint8 {
	return h.mem.ReadByte(0x01)
}

// SetFlags2Bit sets or clears a bit in the mutable flags2 word, used by
// opcodes that announce stream state (e.g. transcripting).
func (h *Header) SetFlags2Bit(bit uint16, set bool) {
	v := h.mem.ReadWord(0x10)
	if set {
		v |= bit
	} else {
		v &^= bit
	}
	h.mem.WriteWord(0x10, v)
}
