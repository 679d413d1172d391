package zmachine

import (
	"strconv"

	"github.com/jrnilsson/infocore/zframe"
	"github.com/jrnilsson/infocore/zinstr"
	"github.com/jrnilsson/infocore/zstring"
	"github.com/jrnilsson/infocore/ztable"
)

// execute runs one decoded instruction against machine state. Stores
// write to the instruction's store variable using the same variable
// semantics as operand reads (variable 0 = stack); branches evaluate
// the predicate and apply the offset, or return from the current
// routine when the offset is 0 or 1.
func (m *Machine) execute(instr zinstr.Instruction) {
	ops := make([]uint16, len(instr.Operands))
	for i, op := range instr.Operands {
		ops[i] = m.operandValue(op)
	}

	switch instr.Count {
	case zinstr.OP2:
		m.exec2OP(instr, ops)
	case zinstr.OP1:
		m.exec1OP(instr, ops)
	case zinstr.OP0:
		m.exec0OP(instr, ops)
	case zinstr.VAR:
		m.execVAR(instr, ops)
	case zinstr.EXT:
		m.execEXT(instr, ops)
	}
}

func (m *Machine) store(instr zinstr.Instruction, value uint16) {
	if instr.Stores {
		m.writeVariable(instr.StoreVar, value, false)
	}
}

func (m *Machine) branch(instr zinstr.Instruction, cond bool) {
	if !instr.Branches || cond != instr.BranchOnTrue {
		return
	}
	switch instr.BranchOffset {
	case 0:
		m.doReturn(0)
	case 1:
		m.doReturn(1)
	default:
		m.pc = uint32(int64(m.pc) + int64(instr.BranchOffset) - 2)
	}
}

func (m *Machine) doReturn(value uint16) {
	if m.frames.Depth() <= 1 {
		m.state = Halted
		return
	}
	returnPC, storeTo := m.frames.Ret()
	m.pc = returnPC
	if !storeTo.Discard {
		m.writeVariable(storeTo.Variable, value, false)
	}
}

func (m *Machine) doCall(instr zinstr.Instruction, ops []uint16) {
	if len(ops) == 0 {
		m.store(instr, 0)
		return
	}

	routineAddr := m.packedAddress(uint32(ops[0]), false)
	args := ops[1:]

	storeTo := zframe.DiscardTarget
	if instr.Stores {
		storeTo = zframe.StoreTarget{Variable: instr.StoreVar}
	}

	newPC, entered := m.frames.Call(m.mem, m.version, routineAddr, args, storeTo, m.pc)
	if entered {
		m.pc = newPC
	} else {
		m.store(instr, 0)
	}
}

func signed(v uint16) int16 { return int16(v) }

func (m *Machine) exec2OP(instr zinstr.Instruction, ops []uint16) {
	switch instr.Opcode {
	case 1: // je: a == any of b, c, d
		if len(ops) == 0 {
			m.branch(instr, false)
			return
		}
		match := false
		for _, v := range ops[1:] {
			if v == ops[0] {
				match = true
				break
			}
		}
		m.branch(instr, match)
	case 2: // jl
		m.branch(instr, signed(ops[0]) < signed(ops[1]))
	case 3: // jg
		m.branch(instr, signed(ops[0]) > signed(ops[1]))
	case 4: // dec_chk
		v := int16(m.readVariable(uint8(ops[0]), true)) - 1
		m.writeVariable(uint8(ops[0]), uint16(v), true)
		m.branch(instr, v < signed(ops[1]))
	case 5: // inc_chk
		v := int16(m.readVariable(uint8(ops[0]), true)) + 1
		m.writeVariable(uint8(ops[0]), uint16(v), true)
		m.branch(instr, v > signed(ops[1]))
	case 6: // jin
		m.branch(instr, m.objects.Parent(ops[0]) == ops[1])
	case 7: // test
		m.branch(instr, ops[0]&ops[1] == ops[1])
	case 8: // or
		m.store(instr, ops[0]|ops[1])
	case 9: // and
		m.store(instr, ops[0]&ops[1])
	case 10: // test_attr
		m.branch(instr, m.objects.TestAttribute(ops[0], ops[1]))
	case 11: // set_attr
		m.objects.SetAttribute(ops[0], ops[1])
	case 12: // clear_attr
		m.objects.ClearAttribute(ops[0], ops[1])
	case 13: // store
		m.writeVariable(uint8(ops[0]), ops[1], true)
	case 14: // insert_obj
		m.objects.InsertObj(ops[0], ops[1])
	case 15: // loadw
		m.store(instr, m.mem.ReadWord(uint32(ops[0])+2*uint32(ops[1])))
	case 16: // loadb
		m.store(instr, uint16(m.mem.ReadByte(uint32(ops[0])+uint32(ops[1]))))
	case 17: // get_prop
		m.store(instr, m.objects.GetProperty(ops[0], uint8(ops[1])))
	case 18: // get_prop_addr
		m.store(instr, m.objects.GetPropAddr(ops[0], uint8(ops[1])))
	case 19: // get_next_prop
		m.store(instr, uint16(m.objects.GetNextProp(ops[0], uint8(ops[1]))))
	case 20: // add
		m.store(instr, uint16(signed(ops[0])+signed(ops[1])))
	case 21: // sub
		m.store(instr, uint16(signed(ops[0])-signed(ops[1])))
	case 22: // mul
		m.store(instr, uint16(signed(ops[0])*signed(ops[1])))
	case 23: // div
		m.store(instr, uint16(signed(ops[0])/signed(ops[1])))
	case 24: // mod
		m.store(instr, uint16(signed(ops[0])%signed(ops[1])))
	case 25: // call_2s
		m.doCall(instr, ops)
	case 26: // call_2n
		m.doCall(instr, ops)
	case 27: // set_colour
		m.screen.Foreground = m.screen.resolveColor(ops[0], true)
		if len(ops) > 1 {
			m.screen.Background = m.screen.resolveColor(ops[1], false)
		}
	case 28: // throw
		returnPC, storeTo := m.frames.Throw(uint32(ops[1]))
		m.pc = returnPC
		if !storeTo.Discard {
			m.writeVariable(storeTo.Variable, ops[0], false)
		}
	}
}

func (m *Machine) exec1OP(instr zinstr.Instruction, ops []uint16) {
	switch instr.Opcode {
	case 0: // jz
		m.branch(instr, ops[0] == 0)
	case 1: // get_sibling
		sib := m.objects.Sibling(ops[0])
		m.store(instr, sib)
		m.branch(instr, sib != 0)
	case 2: // get_child
		child := m.objects.Child(ops[0])
		m.store(instr, child)
		m.branch(instr, child != 0)
	case 3: // get_parent
		m.store(instr, m.objects.Parent(ops[0]))
	case 4: // get_prop_len
		m.store(instr, uint16(m.objects.GetPropertyLen(uint32(ops[0]))))
	case 5: // inc
		v := int16(m.readVariable(uint8(ops[0]), true)) + 1
		m.writeVariable(uint8(ops[0]), uint16(v), true)
	case 6: // dec
		v := int16(m.readVariable(uint8(ops[0]), true)) - 1
		m.writeVariable(uint8(ops[0]), uint16(v), true)
	case 7: // print_addr
		text, _ := m.decodeStringAt(uint32(ops[0]))
		m.appendText(text)
	case 8: // call_1s
		m.doCall(instr, ops)
	case 9: // remove_obj
		m.objects.RemoveObj(ops[0])
	case 10: // print_obj
		m.appendText(m.objects.Get(ops[0]).Name)
	case 11: // ret
		m.doReturn(ops[0])
	case 12: // jump
		m.pc = uint32(int32(m.pc) + int32(signed(ops[0])) - 2)
	case 13: // print_paddr
		text, _ := m.decodeStringAt(m.packedAddress(uint32(ops[0]), true))
		m.appendText(text)
	case 14: // load
		m.store(instr, m.readVariable(uint8(ops[0]), true))
	case 15: // not (v1-4) / call_1n (v5+)
		if m.version <= 4 {
			m.store(instr, ^ops[0])
		} else {
			m.doCall(instr, ops)
		}
	}
}

func (m *Machine) exec0OP(instr zinstr.Instruction, ops []uint16) {
	switch instr.Opcode {
	case 0: // rtrue
		m.doReturn(1)
	case 1: // rfalse
		m.doReturn(0)
	case 2: // print
		m.appendText(instr.Text)
	case 3: // print_ret
		m.appendText(instr.Text)
		m.doReturn(1)
	case 4: // nop
	case 5: // save
		ok := m.doSave()
		if m.version <= 3 {
			m.branch(instr, ok)
		} else {
			v := uint16(0)
			if ok {
				v = 1
			}
			m.store(instr, v)
		}
	case 6: // restore
		snap, ok := m.consumePendingRestore()
		if ok && m.applyRestore(snap) {
			// The restored PC takes over; nothing further to store or
			// branch into in the instruction we were executing.
			return
		}
		if m.version <= 3 {
			m.branch(instr, false)
		} else {
			m.store(instr, 0)
		}
	case 7: // restart
		m.restart()
	case 8: // ret_popped
		v, _ := m.frames.Current().Pop()
		m.doReturn(v)
	case 9: // pop (v1-4) / catch (v5+)
		if m.version >= 5 {
			m.store(instr, uint16(m.frames.Catch()))
		} else {
			m.frames.Current().Pop()
		}
	case 10: // quit
		m.flush()
		m.state = Halted
	case 11: // new_line
		m.appendText("\n")
	case 12: // show_status
		m.emitStatusLine()
	case 13: // verify
		m.branch(instr, m.mem.Checksum(m.header.FileLength()) == m.header.FileChecksum)
	case 15: // piracy
		m.branch(instr, true)
	}
}

func (m *Machine) execVAR(instr zinstr.Instruction, ops []uint16) {
	switch instr.Opcode {
	case 0: // call / call_vs
		m.doCall(instr, ops)
	case 1: // storew
		m.mem.WriteWord(uint32(ops[0])+2*uint32(ops[1]), ops[2])
	case 2: // storeb
		m.mem.WriteByte(uint32(ops[0])+uint32(ops[1]), uint8(ops[2]))
	case 3: // put_prop
		m.objects.SetProperty(ops[0], uint8(ops[1]), ops[2])
	case 4: // sread / aread
		var storeVar uint8
		if instr.Stores {
			storeVar = instr.StoreVar
		}
		if m.version <= 3 {
			m.emitStatusLine()
		}
		m.beginRead(ops[0], valueOr(ops, 1, 0), storeVar, instr.Stores)
	case 5: // print_char
		m.appendText(string(rune(ops[0])))
	case 6: // print_num
		m.appendText(strconv.Itoa(int(signed(ops[0]))))
	case 7: // random
		m.store(instr, m.rng.Random(signed(ops[0])))
	case 8: // push
		m.frames.Current().Push(ops[0])
	case 9: // pull
		v, _ := m.frames.Current().Pop()
		m.writeVariable(uint8(ops[0]), v, true)
	case 10: // split_window
		m.screen.UpperWindowHeight = int(ops[0])
	case 11: // set_window
		m.screen.LowerWindowActive = ops[0] == 0
	case 12: // call_vs2
		m.doCall(instr, ops)
	case 13: // erase_window
		m.appendText(controlTag("erase", "n=\""+strconv.Itoa(int(signed(ops[0])))+"\""))
	case 14: // erase_line
		m.appendText(controlTag("erase-line"))
	case 15: // set_cursor
		m.screen.UpperCursorRow = int(ops[0])
		m.screen.UpperCursorCol = int(valueOr(ops, 1, 1))
		m.appendText(controlTag("cursor", "r=\""+strconv.Itoa(int(ops[0]))+"\"", "c=\""+strconv.Itoa(int(valueOr(ops, 1, 1)))+"\""))
	case 16: // get_cursor
		m.mem.WriteWord(uint32(ops[0]), uint16(m.screen.UpperCursorRow))
		m.mem.WriteWord(uint32(ops[0])+2, uint16(m.screen.UpperCursorCol))
	case 17: // set_text_style
		m.screen.TextStyle = TextStyle(ops[0])
	case 18: // buffer_mode
		// No line-buffering distinction in this terminal-oriented core.
	case 19: // output_stream
		table := valueOr(ops, 1, 0)
		m.outputStream(signed(ops[0]), table)
	case 20: // input_stream
		// Only keyboard input is supported (Non-goals exclude replay
		// scripts); accepted and ignored.
	case 21: // sound_effect
		if ops[0] == 1 || ops[0] == 2 {
			m.appendText("\a")
		}
	case 22: // read_char
		var storeVar uint8
		if instr.Stores {
			storeVar = instr.StoreVar
		}
		m.beginReadChar(storeVar)
	case 23: // scan_table
		form := valueOr(ops, 3, 0x82)
		addr := ztable.ScanTable(m.mem, ops[0], uint32(ops[1]), ops[2], form)
		m.store(instr, uint16(addr))
		m.branch(instr, addr != 0)
	case 24: // not (v5+)
		m.store(instr, ^ops[0])
	case 25: // call_vn
		m.doCall(instr, ops)
	case 26: // call_vn2
		m.doCall(instr, ops)
	case 27: // tokenise
		m.tokenise(uint32(ops[0]), uint32(valueOr(ops, 1, 0)), len(ops) > 3 && ops[3] != 0)
	case 28: // encode_text
		m.encodeText(ops)
	case 29: // copy_table
		ztable.CopyTable(m.mem, ops[0], ops[1], int16(ops[2]))
	case 30: // print_table
		text := ztable.PrintTable(m.mem, uint32(ops[0]), ops[1], valueOr(ops, 2, 0), valueOr(ops, 3, 0))
		m.appendText(text)
	case 31: // check_arg_count
		m.branch(instr, int(ops[0]) <= m.frames.Current().ArgCount)
	}
}

func (m *Machine) execEXT(instr zinstr.Instruction, ops []uint16) {
	switch instr.Opcode {
	case 0: // save
		ok := m.doSave()
		v := uint16(0)
		if ok {
			v = 1
		}
		m.store(instr, v)
	case 1: // restore
		snap, ok := m.consumePendingRestore()
		if ok && m.applyRestore(snap) {
			return
		}
		m.store(instr, 0)
	case 2: // log_shift
		m.store(instr, logShift(ops[0], signed(ops[1])))
	case 3: // art_shift
		places := signed(ops[1])
		if places >= 0 {
			m.store(instr, ops[0]<<uint(places))
		} else {
			m.store(instr, uint16(int16(ops[0])>>uint(-places)))
		}
	case 4: // set_font
		m.store(instr, 1)
	case 6: // picture_data (v6 only; accepted, never available)
		m.branch(instr, false)
	case 11: // print_unicode
		m.appendText(string(rune(ops[0])))
	case 9: // save_undo
		m.store(instr, uint16(boolToInt(m.pushUndo())))
	case 10: // restore_undo
		v := uint16(0)
		if m.popUndo() {
			v = 2
		}
		m.store(instr, v)
	case 12: // check_unicode
		m.store(instr, 0b11) // accept both read and write, since output is plain UTF-8
	}
}

func logShift(v uint16, places int16) uint16 {
	if places >= 0 {
		return v << uint(places)
	}
	return v >> uint(-places)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func valueOr(ops []uint16, i int, def uint16) uint16 {
	if i < len(ops) {
		return ops[i]
	}
	return def
}

func (m *Machine) decodeStringAt(addr uint32) (string, uint32) {
	return zstring.Decode(m.mem, addr, m.version, m.alphabets, m.abbrev)
}

func (m *Machine) emitStatusLine() {
	if m.version > 3 {
		return
	}
	place, score, moves, timeBased := m.statusLine()
	kind := "score"
	if timeBased {
		kind = "time"
	}
	m.appendText(controlTag("status", "place=\""+place+"\"", "kind=\""+kind+"\"", "a=\""+strconv.Itoa(score)+"\"", "b=\""+strconv.Itoa(moves)+"\""))
}

// encodeText is the encode_text opcode: it z-encodes length ZSCII
// characters starting at offset from within the table at zsciiAddr
// into the dictionary-ready form at codedAddr.
func (m *Machine) encodeText(ops []uint16) {
	zsciiAddr := uint32(ops[0])
	length := ops[1]
	from := ops[2]
	codedAddr := uint32(ops[3])

	raw := m.mem.ReadSlice(zsciiAddr+uint32(from), zsciiAddr+uint32(from)+uint32(length))
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	encoded := zstring.Encode(runes, m.version, m.alphabets)
	for i, b := range encoded {
		m.mem.WriteByte(codedAddr+uint32(i), b)
	}
}
