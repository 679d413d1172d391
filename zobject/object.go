// Package zobject implements the Z-machine object tree: parent/sibling/
// child links, attribute flags and property lists, in both the v3
// (9-byte entry, 32 attribute) and v4+ (14-byte entry, 48 attribute)
// layouts.
package zobject

import (
	"fmt"

	"github.com/jrnilsson/infocore/zmem"
	"github.com/jrnilsson/infocore/zstring"
)

// Tree is a view over a story's object table. It holds no state of its
// own beyond the addresses needed to locate entries; every object is
// re-read from memory on demand so the tree always reflects the current
// game state, including after restore/undo.
type Tree struct {
	mem                   *zmem.Memory
	version               uint8
	objectTableBase       uint16
	abbreviationTableBase uint16
	alphabets             *zstring.Alphabets
}

// New returns a Tree bound to a story's object table.
func New(mem *zmem.Memory, version uint8, objectTableBase uint16, abbreviationTableBase uint16, alphabets *zstring.Alphabets) *Tree {
	return &Tree{
		mem:                   mem,
		version:               version,
		objectTableBase:       objectTableBase,
		abbreviationTableBase: abbreviationTableBase,
		alphabets:             alphabets,
	}
}

// attributeBits is the number of attribute flags an object carries: 32
// for v1-3, 48 for v4+.
func (t *Tree) attributeBits() int {
	if t.version >= 4 {
		return 48
	}
	return 32
}

// Object is a snapshot of one object-table entry, re-read from memory
// each time Get is called.
type Object struct {
	BaseAddress     uint32
	ID              uint16
	Name            string
	Attributes      uint64 // left-aligned: bit 63 is attribute 0, regardless of version.
	Parent          uint16
	Sibling         uint16
	Child           uint16
	PropertyPointer uint16
}

// entrySize is the byte length of one object entry, which differs
// between v3 and v4+.
func (t *Tree) entrySize() uint32 {
	if t.version >= 4 {
		return 14
	}
	return 9
}

func (t *Tree) propertyDefaultsBase() uint32 {
	if t.version >= 4 {
		return uint32(t.objectTableBase) + 63*2
	}
	return uint32(t.objectTableBase) + 31*2
}

// Get reads object id's entry. Object 0 is the null object; querying it
// returns a zero-value Object rather than faulting, since some games
// probe it defensively.
func (t *Tree) Get(id uint16) Object {
	if id == 0 {
		return Object{}
	}

	base := t.propertyDefaultsBase() + uint32(id-1)*t.entrySize()

	var obj Object
	obj.ID = id
	obj.BaseAddress = base

	if t.version >= 4 {
		obj.Attributes = uint64(t.mem.ReadWord(base))<<48 | uint64(t.mem.ReadWord(base+2))<<32 | uint64(t.mem.ReadWord(base+4))<<16
		obj.Parent = t.mem.ReadWord(base + 6)
		obj.Sibling = t.mem.ReadWord(base + 8)
		obj.Child = t.mem.ReadWord(base + 10)
		obj.PropertyPointer = t.mem.ReadWord(base + 12)
	} else {
		obj.Attributes = uint64(t.mem.ReadWord(base))<<48 | uint64(t.mem.ReadWord(base+2))<<32
		obj.Parent = uint16(t.mem.ReadByte(base + 4))
		obj.Sibling = uint16(t.mem.ReadByte(base + 5))
		obj.Child = uint16(t.mem.ReadByte(base + 6))
		obj.PropertyPointer = t.mem.ReadWord(base + 7)
	}

	nameLen := t.mem.ReadByte(uint32(obj.PropertyPointer))
	if nameLen > 0 {
		name, _ := zstring.Decode(t.mem, uint32(obj.PropertyPointer)+1, t.version, t.alphabets,
			zstring.NewAbbreviationResolver(t.mem, t.version, t.alphabets, t.abbreviationTableBase))
		obj.Name = name
	}

	return obj
}

func attrMask(attribute uint16) uint64 {
	return uint64(1) << (63 - attribute)
}

// TestAttribute reports whether attribute is set on id. Object 0 never
// has any attribute set.
func (t *Tree) TestAttribute(id uint16, attribute uint16) bool {
	if id == 0 {
		return false
	}
	obj := t.Get(id)
	return obj.Attributes&attrMask(attribute) != 0
}

func (t *Tree) writeAttributes(obj Object) {
	base := obj.BaseAddress
	t.mem.WriteWord(base, uint16(obj.Attributes>>48))
	t.mem.WriteWord(base+2, uint16(obj.Attributes>>32))
	if t.version >= 4 {
		t.mem.WriteWord(base+4, uint16(obj.Attributes>>16))
	}
}

// SetAttribute sets attribute on id. A no-op on the null object.
func (t *Tree) SetAttribute(id uint16, attribute uint16) {
	if id == 0 {
		return
	}
	obj := t.Get(id)
	obj.Attributes |= attrMask(attribute)
	t.writeAttributes(obj)
}

// ClearAttribute clears attribute on id. A no-op on the null object.
func (t *Tree) ClearAttribute(id uint16, attribute uint16) {
	if id == 0 {
		return
	}
	obj := t.Get(id)
	obj.Attributes &^= attrMask(attribute)
	t.writeAttributes(obj)
}

func (t *Tree) setLink(id uint16, field int, value uint16) {
	if id == 0 {
		return
	}
	obj := t.Get(id)
	if t.version >= 4 {
		offsets := [3]uint32{6, 8, 10}
		t.mem.WriteWord(obj.BaseAddress+offsets[field], value)
		return
	}
	offsets := [3]uint32{4, 5, 6}
	t.mem.WriteByte(obj.BaseAddress+offsets[field], uint8(value))
}

// SetParent sets id's parent link directly, without touching sibling
// chains; callers that need tree-consistent reparenting should use
// InsertObj/RemoveObj instead.
func (t *Tree) SetParent(id, parent uint16)  { t.setLink(id, 0, parent) }
func (t *Tree) SetSibling(id, sibling uint16) { t.setLink(id, 1, sibling) }
func (t *Tree) SetChild(id, child uint16)    { t.setLink(id, 2, child) }

// Parent, Sibling and Child are convenience accessors equivalent to
// Get(id).Parent etc, returning 0 for the null object.
func (t *Tree) Parent(id uint16) uint16  { return t.Get(id).Parent }
func (t *Tree) Sibling(id uint16) uint16 { return t.Get(id).Sibling }
func (t *Tree) Child(id uint16) uint16   { return t.Get(id).Child }

// RemoveObj detaches id from its parent's child list, preserving the
// sibling order of whatever remains. A no-op if id has no parent.
func (t *Tree) RemoveObj(id uint16) {
	obj := t.Get(id)
	if obj.Parent == 0 {
		return
	}

	parent := t.Get(obj.Parent)
	if parent.Child == id {
		t.SetChild(obj.Parent, obj.Sibling)
	} else {
		sib := parent.Child
		for sib != 0 {
			sibObj := t.Get(sib)
			if sibObj.Sibling == id {
				t.SetSibling(sib, obj.Sibling)
				break
			}
			sib = sibObj.Sibling
		}
	}

	t.SetParent(id, 0)
	t.SetSibling(id, 0)
}

// InsertObj detaches id from wherever it currently sits and links it as
// the new first child of dest. A no-op for the null object.
func (t *Tree) InsertObj(id, dest uint16) {
	if id == 0 {
		return
	}
	t.RemoveObj(id)

	destObj := t.Get(dest)
	t.SetSibling(id, destObj.Child)
	t.SetChild(dest, id)
	t.SetParent(id, dest)
}

func (t *Tree) String(id uint16) string {
	return fmt.Sprintf("#%d %q", id, t.Get(id).Name)
}
