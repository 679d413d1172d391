// Package ztable implements the Z-machine table opcodes: scan_table,
// copy_table and print_table.
package ztable

import (
	"strings"

	"github.com/jrnilsson/infocore/zmem"
)

// PrintTable formats the text table at baddr (whose first byte is the
// byte count) into width-wide rows, skipping skip bytes at the start
// of each row past the first (the "skip field" argument to
// print_table, used to print a sub-rectangle of a wider table).
// height, if non-zero, truncates output to that many rows.
func PrintTable(mem *zmem.Memory, baddr uint32, width uint16, height uint16, skip uint16) string {
	numBytes := mem.ReadByte(baddr)
	var s strings.Builder

	for i := uint16(0); i < uint16(numBytes); i++ {
		row := i / width
		col := i % width

		if col == 0 && row != 0 {
			s.WriteByte('\n')
			if height != 0 && row == height {
				break
			}
		}

		s.WriteByte(mem.ReadByte(baddr + 1 + uint32(i) + uint32(skip)*uint32(row)))
	}

	return s.String()
}

// ScanTable searches length entries of the table at baddr for one
// equal to test, each entry fieldSize bytes wide (form's low 7 bits);
// if form's top bit is set entries are words, otherwise bytes.
// Returns the address of the matching entry, or 0.
func ScanTable(mem *zmem.Memory, test uint16, baddr uint32, length uint16, form uint16) uint32 {
	fieldSize := form & 0b0111_1111
	checkWord := form&0b1000_0000 != 0
	if fieldSize == 0 {
		return 0
	}

	ptr := baddr
	for i := uint16(0); i < length; i++ {
		if checkWord {
			if mem.ReadWord(ptr) == test {
				return ptr
			}
		} else if uint16(mem.ReadByte(ptr)) == test {
			return ptr
		}
		ptr += uint32(fieldSize)
	}

	return 0
}

// CopyTable copies size bytes from first to second. second == 0 zeroes
// size bytes of the first table instead. A negative size permits overlapping
// source/destination (copied low-to-high, allowing mid-copy
// corruption, per the standard); a non-negative size copies through a
// scratch buffer so overlapping ranges don't corrupt the source mid-
// copy.
func CopyTable(mem *zmem.Memory, first uint16, second uint16, size int16) {
	sizeAbs := uint16(size)
	if size < 0 {
		sizeAbs = uint16(-size)
	}

	switch {
	case second == 0:
		for i := uint16(0); i < sizeAbs; i++ {
			mem.WriteByte(uint32(first)+uint32(i), 0)
		}
	case size >= 0:
		tmp := make([]uint8, sizeAbs)
		for i := uint16(0); i < sizeAbs; i++ {
			tmp[i] = mem.ReadByte(uint32(first) + uint32(i))
		}
		for i := uint16(0); i < sizeAbs; i++ {
			mem.WriteByte(uint32(second)+uint32(i), tmp[i])
		}
	default:
		for i := uint16(0); i < sizeAbs; i++ {
			mem.WriteByte(uint32(second)+uint32(i), mem.ReadByte(uint32(first)+uint32(i)))
		}
	}
}
