// Package zinstr decodes Z-machine instructions: operand layout for
// the long, short, variable and extended forms, and the version-
// dependent store/branch/text tails that follow an opcode's operands.
package zinstr

// Memory is the read-only view Decode needs of story memory.
type Memory interface {
	ReadByte(addr uint32) uint8
	ReadWord(addr uint32) uint16
}

// OperandType is the two-bit type tag carried by variable/extended/
// short form operand bytes (and derived for long form).
type OperandType uint8

const (
	LargeConstant OperandType = 0b00
	SmallConstant OperandType = 0b01
	Variable      OperandType = 0b10
	Omitted       OperandType = 0b11
)

// Form is the opcode's encoding shape, selected by the top two bits of
// the first byte (or forced to Extended by the 0xBE prefix in v5+).
type Form uint8

const (
	Long Form = iota
	Short
	Variable_
	Extended
)

// Count classifies the operand-count shape an opcode was decoded with;
// it participates (with opcode number and version) in looking up
// whether the opcode stores, branches or carries inline text.
type Count uint8

const (
	OP0 Count = iota
	OP1
	OP2
	VAR
	EXT
)

// Operand is one decoded operand: its type and raw 16-bit value
// (already widened from a byte for small constants and variable
// numbers).
type Operand struct {
	Type  OperandType
	Value uint16
}

// Instruction is a fully decoded Z-machine instruction.
type Instruction struct {
	Opcode   uint8
	Form     Form
	Count    Count
	Operands []Operand

	Stores   bool
	StoreVar uint8

	Branches     bool
	BranchOnTrue bool
	BranchOffset int32 // caller treats 0/1 as rfalse/rtrue rather than a jump

	HasText bool
	Text    string
}

// Decode reads one instruction starting at pc, returning it along with
// the address of the byte following it. textDecoder is invoked (only
// for print/print_ret) to decode the inline Z-string starting right
// after the operands; it returns the decoded text and the number of
// bytes consumed, mirroring zstring.Decode so this package need not
// import it directly.
func Decode(mem Memory, pc uint32, version uint8, textDecoder func(addr uint32) (string, uint32)) (Instruction, uint32) {
	ptr := pc
	readByte := func() uint8 {
		b := mem.ReadByte(ptr)
		ptr++
		return b
	}
	readWord := func() uint16 {
		w := mem.ReadWord(ptr)
		ptr += 2
		return w
	}

	first := readByte()
	var instr Instruction

	switch {
	case first == 0xbe && version >= 5:
		instr.Form = Extended
		instr.Count = EXT
		instr.Opcode = readByte()
		decodeVariableOperands(&instr, readByte, readWord, false)

	case first>>6 == 0b11: // variable form
		instr.Form = Variable_
		instr.Opcode = first & 0b1_1111
		if (first>>5)&1 == 0 {
			instr.Count = OP2
		} else {
			instr.Count = VAR
		}
		extended := instr.Count == VAR && (instr.Opcode == 12 || instr.Opcode == 26)
		decodeVariableOperands(&instr, readByte, readWord, extended)

	case first>>6 == 0b10: // short form
		instr.Form = Short
		instr.Opcode = first & 0b1111
		operandType := OperandType((first >> 4) & 0b11)
		if operandType == Omitted {
			instr.Count = OP0
		} else {
			instr.Count = OP1
			switch operandType {
			case LargeConstant:
				instr.Operands = append(instr.Operands, Operand{Type: operandType, Value: readWord()})
			default:
				instr.Operands = append(instr.Operands, Operand{Type: operandType, Value: uint16(readByte())})
			}
		}

	default: // long form
		instr.Form = Long
		instr.Count = OP2
		instr.Opcode = first & 0b1_1111

		type1 := SmallConstant
		if (first>>6)&1 == 1 {
			type1 = Variable
		}
		type2 := SmallConstant
		if (first>>5)&1 == 1 {
			type2 = Variable
		}
		instr.Operands = append(instr.Operands,
			Operand{Type: type1, Value: uint16(readByte())},
			Operand{Type: type2, Value: uint16(readByte())})
	}

	props := lookup(instr.Form, instr.Count, instr.Opcode, version)

	if props.stores {
		instr.Stores = true
		instr.StoreVar = readByte()
	}

	if props.branches {
		b0 := readByte()
		instr.BranchOnTrue = b0&0x80 != 0
		if b0&0x40 != 0 {
			instr.BranchOffset = int32(b0 & 0b0011_1111)
		} else {
			b1 := readByte()
			offset := uint16(b0&0b0011_1111)<<8 | uint16(b1)
			instr.BranchOffset = int32(int16(offset << 2)) >> 2
		}
		instr.Branches = true
	}

	if props.text {
		instr.HasText = true
		text, n := textDecoder(ptr)
		instr.Text = text
		ptr += n
	}

	return instr, ptr
}

func decodeVariableOperands(instr *Instruction, readByte func() uint8, readWord func() uint16, extended bool) {
	typeByte := readByte()
	extByte := uint8(0)
	maxOperands := 4
	if extended {
		extByte = readByte()
		maxOperands = 8
	}

	for i := 0; i < maxOperands; i++ {
		var t OperandType
		if i < 4 {
			t = OperandType((typeByte >> (2 * (3 - i))) & 0b11)
		} else {
			t = OperandType((extByte >> (2 * (7 - i))) & 0b11)
		}
		if t == Omitted {
			break
		}
		switch t {
		case LargeConstant:
			instr.Operands = append(instr.Operands, Operand{Type: t, Value: readWord()})
		default:
			instr.Operands = append(instr.Operands, Operand{Type: t, Value: uint16(readByte())})
		}
	}
}
