package zobject

import (
	"testing"

	"github.com/jrnilsson/infocore/zmem"
	"github.com/jrnilsson/infocore/zstring"
)

// buildV3Story lays out a minimal v3 object table by hand: property
// defaults (31 words), two objects (9 bytes each), then a property
// list for each starting right after the table.
func buildV3Story() (*zmem.Memory, *Tree) {
	const objTableBase = 0x40
	const entrySize = 9
	const defaultsSize = 31 * 2
	objBase := func(id uint16) uint32 { return objTableBase + defaultsSize + uint32(id-1)*entrySize }

	image := make([]uint8, 0x200)
	alphabets := &zstring.Alphabets{A0: [26]uint8{}, A1: [26]uint8{}, A2: [26]uint8{}}
	copy(alphabets.A0[:], "abcdefghijklmnopqrstuvwxyz")
	copy(alphabets.A1[:], "ABCDEFGHIJKLMNOPQRSTUVWXYZ")

	// Object 1's short name is empty (0 length byte), property list
	// follows immediately and is terminated right away.
	propPtr1 := uint16(0x100)
	image[propPtr1] = 0 // name length
	image[propPtr1+1] = 0 // terminator

	// Object 2 carries property 6 (length 1, value 0x85) then
	// terminator.
	propPtr2 := uint16(0x110)
	image[propPtr2] = 0
	image[propPtr2+1] = (0 << 5) | 6 // length-1 flag, id 6
	image[propPtr2+2] = 0x85
	image[propPtr2+3] = 0

	mem := zmem.New(image, uint32(len(image)))

	// v3 layout: attrs[0:4], parent[4], sibling[5], child[6], propptr[7:9].
	o1 := objBase(1)
	mem.WriteWord(o1, 0)
	mem.WriteByte(o1+4, 0)
	mem.WriteByte(o1+5, 2)
	mem.WriteByte(o1+6, 0)
	mem.WriteWord(o1+7, propPtr1)

	o2 := objBase(2)
	mem.WriteWord(o2, 0)
	mem.WriteByte(o2+4, 0)
	mem.WriteByte(o2+5, 0)
	mem.WriteByte(o2+6, 0)
	mem.WriteWord(o2+7, propPtr2)

	tree := New(mem, 3, objTableBase, 0, alphabets)
	return mem, tree
}

func TestZerothObjectIsNeutral(t *testing.T) {
	_, tree := buildV3Story()

	obj := tree.Get(0)
	if obj.Parent != 0 || obj.Sibling != 0 || obj.Child != 0 {
		t.Fatalf("object 0 should be all-zero, got %+v", obj)
	}
	if tree.TestAttribute(0, 5) {
		t.Fatal("object 0 should never have an attribute set")
	}

	// Mutating object 0 must be silently ignored, not panic.
	tree.SetAttribute(0, 3)
	tree.InsertObj(0, 1)
	tree.RemoveObj(0)
}

func TestSiblingLink(t *testing.T) {
	_, tree := buildV3Story()

	if got := tree.Sibling(1); got != 2 {
		t.Fatalf("expected object 1's sibling to be 2, got %d", got)
	}
}

func TestPropertyRetrieval(t *testing.T) {
	_, tree := buildV3Story()

	if got := tree.GetProperty(2, 6); got != 0x85 {
		t.Fatalf("expected property 6 to be 0x85, got %#x", got)
	}

	// Property 1 doesn't exist on object 2; falls back to the global
	// default table, which is zeroed in this fixture.
	if got := tree.GetProperty(2, 1); got != 0 {
		t.Fatalf("expected default for missing property 1 to be 0, got %#x", got)
	}
}

func TestAttributeRoundTrip(t *testing.T) {
	_, tree := buildV3Story()

	if tree.TestAttribute(1, 9) {
		t.Fatal("attribute 9 should start clear")
	}
	tree.SetAttribute(1, 9)
	if !tree.TestAttribute(1, 9) {
		t.Fatal("attribute 9 should be set after SetAttribute")
	}
	tree.ClearAttribute(1, 9)
	if tree.TestAttribute(1, 9) {
		t.Fatal("attribute 9 should be clear after ClearAttribute")
	}
}

func TestInsertAndRemoveObj(t *testing.T) {
	_, tree := buildV3Story()

	// Object 2 becomes the first child of object 1.
	tree.InsertObj(2, 1)
	if tree.Parent(2) != 1 {
		t.Fatalf("expected object 2's parent to be 1, got %d", tree.Parent(2))
	}
	if tree.Child(1) != 2 {
		t.Fatalf("expected object 1's child to be 2, got %d", tree.Child(1))
	}

	tree.RemoveObj(2)
	if tree.Parent(2) != 0 {
		t.Fatalf("expected object 2 detached, parent %d", tree.Parent(2))
	}
	if tree.Child(1) != 0 {
		t.Fatalf("expected object 1 to have no child after removal, got %d", tree.Child(1))
	}
}
