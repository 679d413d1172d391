// Package zmem implements the Z-machine's byte-addressable memory model:
// a story-file image split into a writable dynamic region, a read-only
// static region, and a read-only high region that may exceed 64 KiB and
// is only ever reached through packed addresses.
package zmem

import (
	"encoding/binary"
	"fmt"
)

// Fault is returned for any read or write that falls outside the bounds
// the Z-machine standard allows.
type Fault struct {
	Op      string
	Address uint32
	Length  uint32
}

func (f Fault) Error() string {
	return fmt.Sprintf("memory fault: %s at 0x%x (image length 0x%x)", f.Op, f.Address, f.Length)
}

// Memory is the live, mutable story image plus a pristine copy of the
// dynamic region used by reset, verify and save-game delta encoding.
type Memory struct {
	bytes      []uint8
	pristine   []uint8 // length == staticBase; snapshot of dynamic memory at load time
	staticBase uint32
}

// New wraps a loaded story-file image. staticBase is the byte address at
// which the static memory region begins (header word 14); everything
// below it is the mutable dynamic region.
func New(image []uint8, staticBase uint32) *Memory {
	pristine := make([]uint8, staticBase)
	copy(pristine, image[:staticBase])

	return &Memory{
		bytes:      image,
		pristine:   pristine,
		staticBase: staticBase,
	}
}

// Len returns the total length of the story image in bytes.
func (m *Memory) Len() uint32 {
	return uint32(len(m.bytes))
}

// StaticBase returns the byte address of the first static-memory byte.
func (m *Memory) StaticBase() uint32 {
	return m.staticBase
}

func (m *Memory) checkRead(addr uint32, length uint32) {
	if uint64(addr)+uint64(length) > uint64(len(m.bytes)) {
		panic(Fault{Op: "read", Address: addr, Length: length})
	}
}

// ReadByte returns the byte at addr.
func (m *Memory) ReadByte(addr uint32) uint8 {
	m.checkRead(addr, 1)
	return m.bytes[addr]
}

// ReadWord returns the big-endian word at addr.
func (m *Memory) ReadWord(addr uint32) uint16 {
	m.checkRead(addr, 2)
	return binary.BigEndian.Uint16(m.bytes[addr : addr+2])
}

// ReadSlice returns a read-only view of [start, end).
func (m *Memory) ReadSlice(start, end uint32) []uint8 {
	m.checkRead(start, end-start)
	return m.bytes[start:end]
}

// WriteByte writes a single byte. Writes at or above staticBase fault,
// since static and high memory are read-only per spec.
func (m *Memory) WriteByte(addr uint32, v uint8) {
	if addr >= m.staticBase {
		panic(Fault{Op: "write", Address: addr, Length: 1})
	}
	m.checkRead(addr, 1)
	m.bytes[addr] = v
}

// WriteWord writes a big-endian word. Same static-region restriction as
// WriteByte.
func (m *Memory) WriteWord(addr uint32, v uint16) {
	if addr >= m.staticBase {
		panic(Fault{Op: "write", Address: addr, Length: 2})
	}
	m.checkRead(addr, 2)
	binary.BigEndian.PutUint16(m.bytes[addr:addr+2], v)
}

// Checksum computes the unsigned sum, modulo 0x10000, of every byte from
// offset 0x40 to the declared file length, taking dynamic-region bytes
// from the pristine copy. Used by the `verify` opcode.
func (m *Memory) Checksum(fileLength uint32) uint16 {
	sum := uint16(0)
	end := fileLength
	if end > uint32(len(m.bytes)) {
		end = uint32(len(m.bytes))
	}
	for addr := uint32(0x40); addr < end; addr++ {
		b := m.bytes[addr]
		if addr < uint32(len(m.pristine)) {
			b = m.pristine[addr]
		}
		sum += uint16(b)
	}
	return sum
}

// Reset restores dynamic memory from the pristine copy taken at load
// time, used by `restart`.
func (m *Memory) Reset() {
	copy(m.bytes[:m.staticBase], m.pristine)
}

// DynamicSnapshot returns a fresh copy of the current dynamic memory,
// used by save/restore/undo.
func (m *Memory) DynamicSnapshot() []uint8 {
	snap := make([]uint8, m.staticBase)
	copy(snap, m.bytes[:m.staticBase])
	return snap
}

// RestoreDynamic overwrites dynamic memory with snap, which must have
// length StaticBase().
func (m *Memory) RestoreDynamic(snap []uint8) bool {
	if uint32(len(snap)) != m.staticBase {
		return false
	}
	copy(m.bytes[:m.staticBase], snap)
	return true
}

// PristineDynamic returns the dynamic-memory image as it was at load
// time, used by the save-game delta encoder.
func (m *Memory) PristineDynamic() []uint8 {
	return m.pristine
}
