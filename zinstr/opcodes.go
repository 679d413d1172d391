package zinstr

// properties records whether an opcode stores a result, branches, or
// carries inline text, per the standard's per-opcode tables (§14/§15).
// These depend on opcode number, operand-count class and (for a
// handful of opcodes whose shape changed between versions) the story
// version.
type properties struct {
	stores   bool
	branches bool
	text     bool
}

func lookup(form Form, count Count, opcode uint8, version uint8) properties {
	switch count {
	case OP2:
		return twoOp(opcode)
	case OP1:
		return oneOp(opcode, version)
	case OP0:
		return zeroOp(opcode, version)
	case VAR:
		return varOp(opcode, version)
	case EXT:
		return extOp(opcode)
	}
	return properties{}
}

// twoOp covers opcode numbers shared by long form and variable-form
// 2OP instructions (standard §14.2).
func twoOp(opcode uint8) properties {
	switch opcode {
	case 1, 2, 3, 4, 5, 6, 7, 10: // je, jl, jg, dec_chk, inc_chk, jin, test, test_attr
		return properties{branches: true}
	case 8, 9, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25: // or, and, loadw, loadb, get_prop, get_prop_addr, get_next_prop, add, sub, mul, div, mod, call_2s
		return properties{stores: true}
	default: // 11 set_attr, 12 clear_attr, 13 store, 14 insert_obj, 26 call_2n, 27 set_colour, 28 throw
		return properties{}
	}
}

func oneOp(opcode uint8, version uint8) properties {
	switch opcode {
	case 0: // jz
		return properties{branches: true}
	case 1, 2: // get_sibling, get_child
		return properties{stores: true, branches: true}
	case 3, 4, 8, 14: // get_parent, get_prop_len, call_1s, load
		return properties{stores: true}
	case 15: // not (v1-4) / call_1n (v5+)
		if version <= 4 {
			return properties{stores: true}
		}
		return properties{}
	default: // 5 inc, 6 dec, 7 print_addr, 9 remove_obj, 10 print_obj, 11 ret, 12 jump, 13 print_paddr
		return properties{}
	}
}

func zeroOp(opcode uint8, version uint8) properties {
	switch opcode {
	case 2, 3: // print, print_ret
		return properties{text: true}
	case 5, 6: // save, restore
		if version <= 3 {
			return properties{branches: true}
		}
		return properties{stores: true}
	case 9: // pop (v1-4) / catch (v5+)
		if version >= 5 {
			return properties{stores: true}
		}
		return properties{}
	case 13: // verify
		return properties{branches: true}
	case 15: // piracy (v5+)
		return properties{branches: true}
	default: // 0 rtrue, 1 rfalse, 4 nop, 7 restart, 8 ret_popped, 10 quit, 11 new_line, 12 show_status
		return properties{}
	}
}

func varOp(opcode uint8, version uint8) properties {
	switch opcode {
	case 0: // call / call_vs
		return properties{stores: true}
	case 4: // sread/aread: v5+ stores the terminating character
		return properties{stores: version >= 5}
	case 7: // random
		return properties{stores: true}
	case 9: // pull
		return properties{} // v6 stores; out of scope (Non-goals)
	case 12: // call_vs2
		return properties{stores: true}
	case 16: // get_cursor writes through an operand address, not a store variable
		return properties{}
	case 22: // read_char (v4+)
		return properties{stores: true}
	case 23: // scan_table (v4+)
		return properties{stores: true, branches: true}
	case 24: // not (v5+, moved from 1OP)
		return properties{stores: true}
	case 31: // check_arg_count (v5+)
		return properties{branches: true}
	default:
		return properties{}
	}
}

// extOp covers the 0xBE-prefixed extended opcodes this interpreter
// supports (v5+, excluding v6 picture/sound opcodes per Non-goals).
func extOp(opcode uint8) properties {
	switch opcode {
	case 0, 1: // save, restore
		return properties{stores: true}
	case 2, 3: // log_shift, art_shift
		return properties{stores: true}
	case 4: // set_font
		return properties{stores: true}
	case 6: // picture_data (v6 only; harmless to decode)
		return properties{branches: true}
	case 9, 10: // save_undo, restore_undo
		return properties{stores: true}
	case 11: // print_unicode
		return properties{}
	case 12: // check_unicode
		return properties{stores: true}
	default:
		return properties{}
	}
}
