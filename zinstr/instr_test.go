package zinstr

import "testing"

type fakeMem []uint8

func (m fakeMem) ReadByte(addr uint32) uint8 { return m[addr] }
func (m fakeMem) ReadWord(addr uint32) uint16 {
	return uint16(m[addr])<<8 | uint16(m[addr+1])
}

func noText(uint32) (string, uint32) { return "", 0 }

func TestDecodeLongFormTwoSmallConstants(t *testing.T) {
	// 0x14 = 0b00_010100: long form, both small constants, opcode 20 (add).
	mem := fakeMem{0x14, 5, 7, 0x02} // add 5 7 -> store byte follows
	instr, next := Decode(mem, 0, 3, noText)

	if instr.Form != Long || instr.Count != OP2 {
		t.Fatalf("expected long/OP2, got form=%v count=%v", instr.Form, instr.Count)
	}
	if len(instr.Operands) != 2 || instr.Operands[0].Value != 5 || instr.Operands[1].Value != 7 {
		t.Fatalf("unexpected operands %+v", instr.Operands)
	}
	if !instr.Stores || instr.StoreVar != 0x02 {
		t.Fatalf("expected add to store to variable 2, got stores=%v var=%v", instr.Stores, instr.StoreVar)
	}
	if next != 4 {
		t.Fatalf("expected to consume 4 bytes, consumed %d", next)
	}
}

func TestDecodeShortFormZeroOperandBranch(t *testing.T) {
	// 0xBD = 0b10_11_1101: short form, omitted operand, opcode 13 (verify).
	// Branch byte: 0xC1 = branch-on-true, single byte, offset 1 (rtrue).
	mem := fakeMem{0xBD, 0xC1}
	instr, next := Decode(mem, 0, 3, noText)

	if instr.Count != OP0 {
		t.Fatalf("expected OP0, got %v", instr.Count)
	}
	if !instr.Branches || !instr.BranchOnTrue || instr.BranchOffset != 1 {
		t.Fatalf("unexpected branch decode %+v", instr)
	}
	if next != 2 {
		t.Fatalf("expected to consume 2 bytes, consumed %d", next)
	}
}

func TestDecodeVariableFormCall(t *testing.T) {
	// 0xE0 = variable form, opcode 0 (call/call_vs), VAR count.
	// Type byte 0b01_11_11_11: one small-constant operand then omitted.
	mem := fakeMem{0xE0, 0b01_11_11_11, 0x22, 0x05}
	instr, next := Decode(mem, 0, 3, noText)

	if instr.Count != VAR {
		t.Fatalf("expected VAR, got %v", instr.Count)
	}
	if len(instr.Operands) != 1 || instr.Operands[0].Value != 0x22 {
		t.Fatalf("unexpected operands %+v", instr.Operands)
	}
	if !instr.Stores || instr.StoreVar != 0x05 {
		t.Fatalf("expected call to store, got %+v", instr)
	}
	if next != 4 {
		t.Fatalf("expected to consume 4 bytes, consumed %d", next)
	}
}

func TestDecodePrintCarriesInlineText(t *testing.T) {
	// 0xB2 = short form, omitted operand, opcode 2 (print).
	called := false
	decoder := func(addr uint32) (string, uint32) {
		called = true
		if addr != 1 {
			t.Fatalf("expected text decode to start right after the opcode byte, got %d", addr)
		}
		return "hello", 4
	}

	mem := fakeMem{0xB2, 0, 0, 0, 0}
	instr, next := Decode(mem, 0, 3, decoder)

	if !called {
		t.Fatal("expected textDecoder to be invoked for print")
	}
	if !instr.HasText || instr.Text != "hello" {
		t.Fatalf("unexpected text decode %+v", instr)
	}
	if next != 5 {
		t.Fatalf("expected ptr advanced past the inline string, got %d", next)
	}
}

func TestDecodeTwoByteBranchOffset(t *testing.T) {
	// 0xBD verify, branch byte pair: top bit 0 (branch-on-false), second
	// bit 0 (two-byte offset). 14-bit signed offset of -1 encoded as
	// 0b11_111111_111111 with the top two bits stripped for storage.
	mem := fakeMem{0xBD, 0b00_111111, 0b11111111}
	instr, _ := Decode(mem, 0, 3, noText)

	if instr.BranchOnTrue {
		t.Fatal("expected branch-on-false")
	}
	if instr.BranchOffset != -1 {
		t.Fatalf("expected offset -1, got %d", instr.BranchOffset)
	}
}

func TestExtendedFormUsesSingleTypeByte(t *testing.T) {
	// 0xBE (extended prefix, v5+), opcode 9 (save_undo) which stores.
	// A single type byte governs up to 4 operands, unlike call_vs2/
	// call_vn2's dual type byte (those are VAR-form opcodes, not
	// extended-form ones).
	mem := fakeMem{0xBE, 9, 0b11_11_11_11, 0x01}
	instr, next := Decode(mem, 0, 5, noText)

	if instr.Form != Extended || instr.Opcode != 9 {
		t.Fatalf("expected extended opcode 9, got form=%v opcode=%d", instr.Form, instr.Opcode)
	}
	if len(instr.Operands) != 0 {
		t.Fatalf("expected all operands omitted, got %+v", instr.Operands)
	}
	if !instr.Stores || instr.StoreVar != 0x01 {
		t.Fatalf("expected save_undo to store, got %+v", instr)
	}
	if next != 4 {
		t.Fatalf("expected to consume 4 bytes, consumed %d", next)
	}
}
