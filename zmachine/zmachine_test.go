package zmachine

import (
	"errors"
	"testing"

	"github.com/jrnilsson/infocore/zheader"
)

// newV3Image builds a minimal, self-consistent version 3 story image:
// an empty object table at 0x40, a dictionary with zero entries at
// 0x90, global variables at 0x200, and program bytes at 0x100. Static
// memory base is set to the image length itself, so every byte in the
// image is writable (the tests have no real static region to protect).
func newV3Image(program []uint8) []uint8 {
	const size = 0x300
	img := make([]uint8, size)

	img[0x00] = 3 // version

	putWord := func(addr uint16, v uint16) {
		img[addr] = uint8(v >> 8)
		img[addr+1] = uint8(v)
	}
	putWord(0x06, 0x100)   // initial PC
	putWord(0x08, 0x90)    // dictionary base
	putWord(0x0a, 0x40)    // object table base
	putWord(0x0c, 0x200)   // global variable base
	putWord(0x0e, size)    // static memory base == file length

	// Dictionary header: zero separators, entry length 7, zero entries.
	img[0x90] = 0x00
	img[0x91] = 0x07
	img[0x92], img[0x93] = 0x00, 0x00

	// Text buffer for sread, at 0x180: max length 10, rest blank.
	img[0x180] = 10

	copy(img[0x100:], program)

	return img
}

func newTestMachine(t *testing.T, program []uint8) *Machine {
	t.Helper()
	m, err := New(newV3Image(program), zheader.DefaultCapabilities())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

// runToHalt drains Step/Flush pairs until the machine halts or asks
// for input, returning whichever output was printed.
func runToHalt(m *Machine) (output string, needsInput bool) {
	var out []byte
	for {
		done, waiting := m.Step()
		out = append(out, []byte(m.Flush())...)
		if done {
			return string(out), false
		}
		if waiting {
			return string(out), true
		}
	}
}

func TestStepExecutesStoreAndPrintsValue(t *testing.T) {
	program := []uint8{
		0x0D, 0x10, 0x07, // store global16, 7
		0xE6, 0xBF, 0x10, // print_num global16
		0xBB,             // new_line
		0xBA,             // quit
	}
	m := newTestMachine(t, program)

	out, needsInput := runToHalt(m)
	if needsInput {
		t.Fatal("expected the story to run to completion without asking for input")
	}
	if out != "7\n" {
		t.Fatalf("expected output %q, got %q", "7\n", out)
	}
	if m.State() != Halted {
		t.Fatalf("expected machine to be halted, got %s", m.State())
	}
}

// TestSaveRestoreRoundTrip exercises the save/restore contract: a
// save captures global16 while it's still 7, forward execution then
// overwrites it with 99 and quits, and restoring the captured blob
// must bring global16 (and the program counter) back to the
// pre-corruption state.
func TestSaveRestoreRoundTrip(t *testing.T) {
	program := []uint8{
		0x0D, 0x10, 0x07, // 0x100: store global16, 7
		0xB5, 0xC7, // 0x103: save ?(branch true, offset 7 -> 0x10a)
		0xE6, 0xBF, 0x10, // 0x105: print_num global16 (restore-only path)
		0xBB,       // 0x108: new_line
		0xBA,       // 0x109: quit
		0x0D, 0x10, 0x63, // 0x10a: store global16, 99 (forward "corruption")
		0xBA, // 0x10d: quit
	}
	m := newTestMachine(t, program)

	out, needsInput := runToHalt(m)
	if needsInput {
		t.Fatal("forward run should not need input")
	}
	if out != "" {
		t.Fatalf("forward run should print nothing (it branches past the print block), got %q", out)
	}
	if got := m.Global(16); got != 99 {
		t.Fatalf("expected forward run to leave global16 at 99, got %d", got)
	}

	updates := m.GetUpdates()
	if updates.Savestate == nil {
		t.Fatal("expected the save opcode to have produced a savestate blob")
	}

	if err := m.LoadSavestate(updates.Savestate); err != nil {
		t.Fatalf("LoadSavestate: %v", err)
	}
	if m.State() != Running {
		t.Fatalf("expected LoadSavestate to resume the machine, got %s", m.State())
	}
	if got := m.Global(16); got != 7 {
		t.Fatalf("expected restored global16 to be 7, got %d", got)
	}

	out, needsInput = runToHalt(m)
	if needsInput {
		t.Fatal("restored run should not need input")
	}
	if out != "7\n" {
		t.Fatalf("expected restored run to print %q, got %q", "7\n", out)
	}
}

// TestUndoRedoRoundTrip exercises the undo ring the way a v3 story
// exercises it: beginRead (the sread opcode) pushes an undo point on
// every turn boundary, with no EXT save_undo opcode required.
func TestUndoRedoRoundTrip(t *testing.T) {
	program := []uint8{
		0x0D, 0x10, 0x07, // 0x100: store global16, 7
		0xE4, 0x3F, 0x01, 0x80, // 0x103: sread 0x180 (text buffer only)
		0x0D, 0x10, 0x7B, // 0x107: store global16, 123
		0xBA, // 0x10a: quit
	}
	m := newTestMachine(t, program)

	_, needsInput := runToHalt(m)
	if !needsInput {
		t.Fatal("expected the machine to pause for a line of input at sread")
	}
	if m.State() != PausedForInput {
		t.Fatalf("expected PausedForInput, got %s", m.State())
	}
	if got := m.Global(16); got != 7 {
		t.Fatalf("expected global16 to be 7 going into the read, got %d", got)
	}

	m.Feed("look")

	out, needsInput := runToHalt(m)
	if needsInput {
		t.Fatal("expected the story to run to completion after feeding a line")
	}
	if out != "" {
		t.Fatalf("expected no output after the read, got %q", out)
	}
	if got := m.Global(16); got != 123 {
		t.Fatalf("expected global16 to be 123 after the post-read store, got %d", got)
	}

	if !m.Undo() {
		t.Fatal("expected Undo to succeed (sread should have pushed an undo point)")
	}
	if got := m.Global(16); got != 7 {
		t.Fatalf("expected Undo to restore global16 to 7, got %d", got)
	}

	if !m.Redo() {
		t.Fatal("expected Redo to reverse the undo")
	}
	if got := m.Global(16); got != 123 {
		t.Fatalf("expected Redo to restore global16 to 123, got %d", got)
	}

	if m.Undo() {
		// A second undo pops nothing new onto the ring beyond the one
		// pushed by sread; whether it succeeds depends only on ring
		// contents, so just confirm global16 lands back at 7 again.
		if got := m.Global(16); got != 7 {
			t.Fatalf("expected the second Undo to land back on 7, got %d", got)
		}
	}
}

// TestRestoreRejectsMismatchedStory exercises spec.md §6's restore
// contract: a blob captured against one story's release/checksum must
// be rejected, untouched, when applied to a different one.
func TestRestoreRejectsMismatchedStory(t *testing.T) {
	program := []uint8{
		0x0D, 0x10, 0x07, // 0x100: store global16, 7
		0xB5, 0xC7, // 0x103: save (branch true, offset 7 -> 0x10a)
		0xE6, 0xBF, 0x10, // 0x105: print_num global16
		0xBB,             // 0x108: new_line
		0xBA,             // 0x109: quit
		0x0D, 0x10, 0x63, // 0x10a: store global16, 99
		0xBA, // 0x10d: quit
	}

	a := newTestMachine(t, program)
	runToHalt(a)
	blob := a.GetUpdates().Savestate
	if blob == nil {
		t.Fatal("expected machine a to have produced a save blob")
	}

	bImage := newV3Image(program)
	bImage[0x1c], bImage[0x1d] = 0xAB, 0xCD // different checksum than a's (0x0000)
	b, err := New(bImage, zheader.DefaultCapabilities())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := b.LoadSavestate(blob); err == nil {
		t.Fatal("expected LoadSavestate to reject a blob captured against a different story")
	} else {
		var restoreErr RestoreError
		if !errors.As(err, &restoreErr) {
			t.Fatalf("expected a RestoreError, got %T: %v", err, err)
		}
	}

	if b.State() != Running {
		t.Fatalf("expected machine b to be left untouched, got state %s", b.State())
	}
	if got := b.Global(16); got != 0 {
		t.Fatalf("expected machine b's global16 to remain untouched at 0, got %d", got)
	}
}

// TestStepRecoversFaultIntoHaltedState exercises spec.md §7's fault
// policy: a fault raised mid-instruction (here, integer division by
// zero) is fatal to that step but must not crash the process — the
// machine halts and the fault is surfaced, not propagated as a panic.
func TestStepRecoversFaultIntoHaltedState(t *testing.T) {
	program := []uint8{
		0x17, 0x0A, 0x00, 0x00, // div 10, 0 -> store 0 (never reached)
	}
	m := newTestMachine(t, program)

	done, needsInput := m.Step()
	if !done || needsInput {
		t.Fatalf("expected Step to report the fault as done, got done=%v needsInput=%v", done, needsInput)
	}
	if m.State() != Halted {
		t.Fatalf("expected the machine to halt after a fault, got %s", m.State())
	}
	if m.RuntimeError() == nil {
		t.Fatal("expected RuntimeError to report the recovered fault")
	}
	if got := m.GetUpdates().RuntimeError; got == "" {
		t.Fatal("expected GetUpdates to surface the fault too")
	}

	// Stepping again on a halted machine must stay safe and inert.
	done, needsInput = m.Step()
	if !done || needsInput {
		t.Fatalf("expected a halted machine's Step to keep reporting done, got done=%v needsInput=%v", done, needsInput)
	}
}

func TestNewRejectsUnsupportedVersion(t *testing.T) {
	for _, version := range []uint8{1, 2, 6, 7} {
		img := newV3Image(nil)
		img[0] = version
		if _, err := New(img, zheader.DefaultCapabilities()); err == nil {
			t.Fatalf("expected New to reject a version %d story", version)
		}
	}
}

func TestNewRejectsShortImage(t *testing.T) {
	if _, err := New(make([]uint8, 10), zheader.DefaultCapabilities()); err == nil {
		t.Fatal("expected New to reject an image shorter than the header")
	}
}
