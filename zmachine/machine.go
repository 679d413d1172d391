// Package zmachine is the Z-machine driver: it owns memory, the
// object tree, frame stack, dictionary and RNG, and dispatches decoded
// instructions against them. It is deliberately synchronous — step()
// never blocks on I/O, instead returning control to the host whenever
// it needs a line of input or a character. Save blobs are handed to the
// host through GetUpdates; restore blobs are queued beforehand with
// Restore.
package zmachine

import (
	"fmt"
	"strings"

	"github.com/jrnilsson/infocore/dictionary"
	"github.com/jrnilsson/infocore/zframe"
	"github.com/jrnilsson/infocore/zheader"
	"github.com/jrnilsson/infocore/zinstr"
	"github.com/jrnilsson/infocore/zmem"
	"github.com/jrnilsson/infocore/zobject"
	"github.com/jrnilsson/infocore/zsave"
	"github.com/jrnilsson/infocore/zstring"
)

// State is the machine's coarse run state.
type State int

const (
	Running State = iota
	PausedForInput
	PausedForChar
	Halted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case PausedForInput:
		return "paused_for_input"
	case PausedForChar:
		return "paused_for_char"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// MapEvent is emitted whenever global variable 0 (conventionally the
// player's current location) changes value.
type MapEvent struct {
	ID   uint16
	Name string
}

// InstructionRecord is one entry of the instruction trace, emitted
// after every executed instruction while trace logging is enabled.
type InstructionRecord struct {
	PC     uint32
	Opcode uint8
}

// Updates is the batch of buffered introspection events get_updates
// drains.
type Updates struct {
	Map          []MapEvent
	Instructions []InstructionRecord
	Savestate    []byte // non-nil when a `save` opcode produced a fresh blob this batch
	RuntimeError string // non-empty in every batch once Step has recovered a fatal fault
}

const undoRingLimit = 16

// Machine is one running story.
type Machine struct {
	mem        *zmem.Memory
	header     *zheader.Header
	objects    *zobject.Tree
	frames     *zframe.Stack
	dict       *dictionary.Dictionary
	alphabets  *zstring.Alphabets
	abbrev     zstring.AbbreviationResolver
	version    uint8
	pc         uint32
	state      State
	rng        rngState
	undo       []undoSnapshot
	redo       []undoSnapshot
	pendingRestore *zsave.Snapshot

	streams       streamState
	screen        ScreenModel
	outputBuf     strings.Builder

	traceEnabled    bool
	lastLocation    uint16
	mapEvents       []MapEvent
	instructionLog  []InstructionRecord
	pendingSave     []byte

	textBufferPtr       uint16
	parseBufferPtr      uint16
	pendingReadStoreVar uint8
	pendingReadHasStore bool
	pendingCharStore    uint8

	currentInstrPC uint32
	warned         map[string]bool
	runtimeErr     error
}

type undoSnapshot struct {
	pc     uint32
	memory []uint8
	frames *zframe.Stack
}

// New constructs a machine from a story image and host-supplied
// capabilities (screen geometry, colour/style support — see
// zheader.Capabilities).
func New(image []uint8, caps zheader.Capabilities) (*Machine, error) {
	if len(image) < 64 {
		return nil, fmt.Errorf("zmachine: story image too short (%d bytes)", len(image))
	}

	version := image[0]
	if version == 0 || version == 1 || version == 2 || version == 6 || version == 7 {
		return nil, fmt.Errorf("zmachine: unsupported story version %d", version)
	}

	staticBase := uint16(image[14])<<8 | uint16(image[15])
	mem := zmem.New(image, uint32(staticBase))
	header := zheader.Load(mem, caps)

	alphabets := zstring.LoadAlphabets(mem, header.Version, header.AlphabetTableBase)
	abbrev := zstring.NewAbbreviationResolver(mem, header.Version, alphabets, header.AbbreviationTableBase)
	objects := zobject.New(mem, header.Version, header.ObjectTableBase, header.AbbreviationTableBase, alphabets)
	dict := dictionary.Parse(mem, uint32(header.DictionaryBase), header.Version, alphabets, abbrev)

	m := &Machine{
		mem:       mem,
		header:    header,
		objects:   objects,
		frames:    zframe.NewStack(uint32(header.InitialPC)),
		dict:      dict,
		alphabets: alphabets,
		abbrev:    abbrev,
		version:   header.Version,
		pc:        uint32(header.InitialPC),
		state:     Running,
		streams:   streamState{screen: true},
		screen:    newScreenModel(),
		warned:    make(map[string]bool),
	}
	m.rng.reseed()

	return m, nil
}

// Version reports the story's Z-machine version.
func (m *Machine) Version() uint8 { return m.version }

// State reports the machine's current run state.
func (m *Machine) State() State { return m.state }

// Header exposes the story's typed header view, for hosts that want
// to print or inspect it directly (e.g. a CLI --dump-header flag).
func (m *Machine) Header() *zheader.Header { return m.header }

// Dictionary exposes the story's parsed dictionary, for hosts that
// want to print it directly (e.g. a CLI --dump-dictionary flag).
func (m *Machine) Dictionary() *dictionary.Dictionary { return m.dict }

// Global reads one of the story's 240 global variables (numbered 16 to
// 255), for host-side introspection such as a debug watch view.
func (m *Machine) Global(n uint16) uint16 {
	if n < 16 {
		n = 16
	}
	return m.mem.ReadWord(uint32(m.header.GlobalVariableBase) + 2*uint32(n-16))
}

func (m *Machine) warnOnce(key, format string, args ...any) {
	if m.warned[key] {
		return
	}
	m.warned[key] = true
	m.instructionLog = append(m.instructionLog, InstructionRecord{PC: m.currentInstrPC, Opcode: 0})
	_ = fmt.Sprintf(format, args...) // message text is not kept; only the PC record above is logged
}

// packedAddress converts a packed routine or string address to a byte
// address, per the version-dependent scale (and, for v6-8 string vs
// routine offsets — unused here since v6 is out of scope — the
// appropriate header offset).
func (m *Machine) packedAddress(addr uint32, isString bool) uint32 {
	scale := uint32(m.header.PackedAddressScale())
	base := uint32(0)
	if m.version >= 6 && m.version < 8 {
		if isString {
			base = uint32(m.header.StringOffset) * 8
		} else {
			base = uint32(m.header.RoutinesOffset) * 8
		}
	}
	return scale*addr + base
}

// readVariable reads variable number v (0 = top of the current
// frame's evaluation stack, 1-15 = locals, 16+ = globals). indirect
// matches the standard's special case for the seven opcodes taking an
// indirect variable reference (inc, dec, inc_chk, dec_chk, load,
// store, pull): an indirect reference to the stack does not pop, it
// peeks.
func (m *Machine) readVariable(v uint8, indirect bool) uint16 {
	frame := m.frames.Current()
	switch {
	case v == 0:
		if indirect {
			val, _ := frame.Peek()
			return val
		}
		val, ok := frame.Pop()
		if !ok {
			m.warnOnce("stack_underflow_read", "read from empty evaluation stack at pc %#x", m.currentInstrPC)
		}
		return val
	case v < 16:
		return frame.ReadLocal(int(v))
	default:
		return m.mem.ReadWord(uint32(m.header.GlobalVariableBase) + 2*uint32(v-16))
	}
}

func (m *Machine) writeVariable(v uint8, value uint16, indirect bool) {
	frame := m.frames.Current()
	switch {
	case v == 0:
		if indirect {
			frame.Pop()
		}
		frame.Push(value)
	case v < 16:
		frame.WriteLocal(int(v), value)
	default:
		m.mem.WriteWord(uint32(m.header.GlobalVariableBase)+2*uint32(v-16), value)
	}
}

func (m *Machine) operandValue(op zinstr.Operand) uint16 {
	switch op.Type {
	case zinstr.Variable:
		return m.readVariable(uint8(op.Value), false)
	default:
		return op.Value
	}
}

// Step decodes and executes one instruction, returning whether the
// machine halted (quit) and whether it is now waiting for host input.
// It never blocks. A fault raised by decode or dispatch (a bad memory
// address, a malformed property, integer division by zero, and the
// like) is recovered here rather than left to crash the host: it is
// fatal to this step, but the machine enters Halted and the fault is
// surfaced via GetUpdates/RuntimeError instead of taking the process
// down with it.
func (m *Machine) Step() (done bool, needsInput bool) {
	if m.state == Halted {
		return true, false
	}
	if m.state == PausedForInput || m.state == PausedForChar {
		return false, true
	}

	defer func() {
		if r := recover(); r != nil {
			m.runtimeErr = fmt.Errorf("zmachine: runtime error at pc %#x: %v", m.currentInstrPC, r)
			m.state = Halted
			done, needsInput = true, false
		}
	}()

	m.currentInstrPC = m.pc

	instr, next := zinstr.Decode(m.mem, m.pc, m.version, func(addr uint32) (string, uint32) {
		return zstring.Decode(m.mem, addr, m.version, m.alphabets, m.abbrev)
	})
	m.pc = next

	m.checkRoomTransition()
	if m.traceEnabled {
		m.instructionLog = append(m.instructionLog, InstructionRecord{PC: m.currentInstrPC, Opcode: instr.Opcode})
	}

	m.execute(instr)

	if m.state == Halted {
		return true, false
	}
	return false, m.state == PausedForInput || m.state == PausedForChar
}

// checkRoomTransition emits a MapEvent whenever global variable 0 (the
// conventional location global) changes value.
func (m *Machine) checkRoomTransition() {
	current := m.mem.ReadWord(uint32(m.header.GlobalVariableBase))
	if current == m.lastLocation {
		return
	}
	m.lastLocation = current
	name := ""
	if current != 0 {
		name = m.objects.Get(current).Name
	}
	m.mapEvents = append(m.mapEvents, MapEvent{ID: current, Name: name})
}

// EnableInstructionLogs toggles the per-instruction trace buffer.
func (m *Machine) EnableInstructionLogs(on bool) { m.traceEnabled = on }

// GetUpdates drains and returns every buffered introspection event.
func (m *Machine) GetUpdates() Updates {
	u := Updates{Map: m.mapEvents, Instructions: m.instructionLog, Savestate: m.pendingSave}
	if m.runtimeErr != nil {
		u.RuntimeError = m.runtimeErr.Error()
	}
	m.mapEvents = nil
	m.instructionLog = nil
	m.pendingSave = nil
	return u
}

// RuntimeError reports the fault Step recovered from, if any. Once set
// it is terminal: the machine stays Halted and never produces another
// fault, so unlike the rest of the Updates batch this isn't cleared by
// GetUpdates.
func (m *Machine) RuntimeError() error { return m.runtimeErr }

// GetObjectDetails pretty-prints an object's attributes and
// properties for UI display.
func (m *Machine) GetObjectDetails(id uint16) string {
	obj := m.objects.Get(id)
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %q (parent=%d sibling=%d child=%d)\n", id, obj.Name, obj.Parent, obj.Sibling, obj.Child)

	bits := 32
	if m.version >= 4 {
		bits = 48
	}
	b.WriteString("attributes:")
	for a := 0; a < bits; a++ {
		if m.objects.TestAttribute(id, uint16(a)) {
			fmt.Fprintf(&b, " %d", a)
		}
	}
	b.WriteByte('\n')

	p := uint8(0)
	for {
		next := m.objects.GetNextProp(id, p)
		if next == 0 {
			break
		}
		fmt.Fprintf(&b, "property %d = %#04x\n", next, m.objects.GetProperty(id, next))
		p = next
	}

	return b.String()
}

// SetTerpCaps updates the interpreter capability flags the header
// writes, e.g. after the host's window is resized.
func (m *Machine) SetTerpCaps(caps zheader.Capabilities) {
	zheader.Load(m.mem, caps)
}
