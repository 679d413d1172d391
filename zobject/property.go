package zobject

import "fmt"

// Property is one entry of an object's property list, or (when Address
// is 0) a global-default fallback for a property id the object doesn't
// carry its own value for.
type Property struct {
	ID          uint8
	Length      uint8
	Address     uint32 // size byte(s) address; 0 for a global-default fallback
	DataAddress uint32
}

func (t *Tree) propertyTableStart(obj Object) uint32 {
	nameLen := t.mem.ReadByte(uint32(obj.PropertyPointer))
	return uint32(obj.PropertyPointer) + 1 + uint32(nameLen)*2
}

// propertyAt decodes the property-list entry whose size byte(s) sit at
// addr, per standard §12.4.
func (t *Tree) propertyAt(addr uint32) Property {
	sizeByte := t.mem.ReadByte(addr)

	if t.version <= 3 {
		return Property{
			ID:          sizeByte & 0b0001_1111,
			Length:      (sizeByte >> 5) + 1,
			Address:     addr,
			DataAddress: addr + 1,
		}
	}

	if sizeByte&0b1000_0000 != 0 {
		lengthByte := t.mem.ReadByte(addr + 1)
		length := lengthByte & 0b0011_1111
		if length == 0 {
			length = 64
		}
		return Property{
			ID:          sizeByte & 0b0011_1111,
			Length:      length,
			Address:     addr,
			DataAddress: addr + 2,
		}
	}

	length := uint8(1)
	if sizeByte&0b0100_0000 != 0 {
		length = 2
	}
	return Property{
		ID:          sizeByte & 0b0011_1111,
		Length:      length,
		Address:     addr,
		DataAddress: addr + 1,
	}
}

// GetPropertyLen decodes the length of the property whose data starts
// at dataAddr, the form get_prop_len is specified in terms of (standard
// §2.4.2.4 / §15 get_prop_len). dataAddr 0 is the documented special
// case some story files rely on and returns 0.
func (t *Tree) GetPropertyLen(dataAddr uint32) uint8 {
	if dataAddr == 0 {
		return 0
	}

	prev := t.mem.ReadByte(dataAddr - 1)
	if t.version <= 3 {
		return (prev >> 5) + 1
	}
	if prev&0b1000_0000 != 0 {
		length := prev & 0b0011_1111
		if length == 0 {
			return 64
		}
		return length
	}
	return ((prev >> 6) & 1) + 1
}

// findProperty walks id's property list looking for propertyID,
// returning the zero Property (Address 0) if absent. Property lists
// are stored in descending id order and terminated by a 0 size byte.
func (t *Tree) findProperty(id uint16, propertyID uint8) Property {
	obj := t.Get(id)
	ptr := t.propertyTableStart(obj)

	for {
		sizeByte := t.mem.ReadByte(ptr)
		if sizeByte == 0 {
			return Property{}
		}

		prop := t.propertyAt(ptr)
		if prop.ID == propertyID {
			return prop
		}
		if prop.ID < propertyID {
			// Descending order means propertyID can't appear later.
			return Property{}
		}
		ptr = prop.DataAddress + uint32(prop.Length)
	}
}

// GetProperty returns property p of object id as a word, reading a
// 1-byte property as an unsigned byte and a 2-byte property as a
// big-endian word. If id has no such property, the table's global
// default (property-defaults table entry p) is returned instead.
// Properties longer than 2 bytes may not be fetched this way (standard
// §15 get_prop).
func (t *Tree) GetProperty(id uint16, p uint8) uint16 {
	prop := t.findProperty(id, p)
	if prop.Address == 0 {
		defaultAddr := uint32(t.objectTableBase) + uint32(p-1)*2
		return t.mem.ReadWord(defaultAddr)
	}

	switch prop.Length {
	case 1:
		return uint16(t.mem.ReadByte(prop.DataAddress))
	case 2:
		return t.mem.ReadWord(prop.DataAddress)
	default:
		panic(fmt.Sprintf("get_property: property %d on object %d has length %d, not 1 or 2", p, id, prop.Length))
	}
}

// GetPropAddr returns the byte address of property p's data on object
// id, or 0 if id carries no such property.
func (t *Tree) GetPropAddr(id uint16, p uint8) uint16 {
	prop := t.findProperty(id, p)
	return uint16(prop.DataAddress)
}

// GetNextProp returns the property id following p in id's property
// list, or the first property if p is 0, or 0 if p is the last (or the
// list is empty).
func (t *Tree) GetNextProp(id uint16, p uint8) uint8 {
	obj := t.Get(id)
	ptr := t.propertyTableStart(obj)

	if p == 0 {
		if t.mem.ReadByte(ptr) == 0 {
			return 0
		}
		return t.propertyAt(ptr).ID
	}

	prop := t.findProperty(id, p)
	if prop.Address == 0 {
		panic(fmt.Sprintf("get_next_prop: object %d has no property %d", id, p))
	}

	nextAddr := prop.DataAddress + uint32(prop.Length)
	if t.mem.ReadByte(nextAddr) == 0 {
		return 0
	}
	return t.propertyAt(nextAddr).ID
}

// SetProperty writes value into property p of object id, truncating to
// the property's declared length (1 or 2 bytes). Panics if id has no
// such property, matching the standard's requirement that a story only
// call set_property on properties objects actually carry.
func (t *Tree) SetProperty(id uint16, p uint8, value uint16) {
	prop := t.findProperty(id, p)
	if prop.Address == 0 {
		panic(fmt.Sprintf("set_property: object %d has no property %d", id, p))
	}

	switch prop.Length {
	case 1:
		t.mem.WriteByte(prop.DataAddress, uint8(value))
	case 2:
		t.mem.WriteWord(prop.DataAddress, value)
	default:
		panic(fmt.Sprintf("set_property: property %d on object %d has length %d, not 1 or 2", p, id, prop.Length))
	}
}
