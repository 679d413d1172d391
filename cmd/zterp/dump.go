package main

import (
	"fmt"
	"strings"

	"github.com/jrnilsson/infocore/zmachine"
)

// dumpHeader prints the typed header fields a `--dump-header` run
// shows, mirroring the sort of summary infodump-style tools print.
func dumpHeader(m *zmachine.Machine) string {
	h := m.Header()
	var b strings.Builder
	fmt.Fprintf(&b, "Version:             %d\n", h.Version)
	fmt.Fprintf(&b, "Release:             %d\n", h.ReleaseNumber)
	fmt.Fprintf(&b, "File length:         %d bytes\n", h.FileLength())
	fmt.Fprintf(&b, "Checksum:            %#04x\n", h.FileChecksum)
	fmt.Fprintf(&b, "Standard revision:   %d.%d\n", h.StandardRevision>>8, h.StandardRevision&0xff)
	fmt.Fprintf(&b, "Initial PC:          %#04x\n", h.InitialPC)
	fmt.Fprintf(&b, "High memory base:    %#04x\n", h.HighMemBase)
	fmt.Fprintf(&b, "Static memory base:  %#04x\n", h.StaticMemoryBase)
	fmt.Fprintf(&b, "Dictionary base:     %#04x\n", h.DictionaryBase)
	fmt.Fprintf(&b, "Object table base:   %#04x\n", h.ObjectTableBase)
	fmt.Fprintf(&b, "Global variables:    %#04x\n", h.GlobalVariableBase)
	fmt.Fprintf(&b, "Abbreviations base:  %#04x\n", h.AbbreviationTableBase)
	if h.Version >= 5 {
		fmt.Fprintf(&b, "Terminator table:    %#04x\n", h.TerminatingCharTable)
		fmt.Fprintf(&b, "Alphabet table:      %#04x\n", h.AlphabetTableBase)
		fmt.Fprintf(&b, "Unicode table:       %#04x\n", h.UnicodeTableBase)
	}
	fmt.Fprintf(&b, "Packed address scale: x%d\n", h.PackedAddressScale())
	return b.String()
}

// dumpObjects walks the object table starting at object 1, stopping
// at the first entry whose short name is empty and whose parent,
// sibling and child are all zero (the table's effective end for every story
// this core targets — there's no explicit object count in the header).
func dumpObjects(m *zmachine.Machine, maxObjects int) string {
	var b strings.Builder
	for id := 1; id <= maxObjects; id++ {
		details := m.GetObjectDetails(uint16(id))
		if strings.Contains(details, `""`) && strings.Contains(details, "parent=0 sibling=0 child=0") {
			break
		}
		b.WriteString(details)
	}
	return b.String()
}

// dumpDictionary prints every entry in the story's dictionary in
// table order (already sorted by encoded key).
func dumpDictionary(m *zmachine.Machine) string {
	d := m.Dictionary()
	var b strings.Builder
	fmt.Fprintf(&b, "Separators: %q\n", string(d.Header.WordSeparators))
	fmt.Fprintf(&b, "Entry length: %d, count: %d\n\n", d.Header.EntryLength, d.Header.Count)
	for i := 0; i < d.Len(); i++ {
		e := d.At(i)
		fmt.Fprintf(&b, "%#04x  %-12s %x\n", e.Address, e.DecodedWord, e.Data)
	}
	return b.String()
}
