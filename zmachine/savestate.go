package zmachine

import (
	"fmt"
	"strconv"

	"github.com/jrnilsson/infocore/zframe"
	"github.com/jrnilsson/infocore/zsave"
)

// snapshot builds the JSON-ready save-game document for the machine's
// current state.
func (m *Machine) snapshot() zsave.Snapshot {
	frames := m.frames.Frames()
	saveFrames := make([]zsave.Frame, len(frames))
	for i, f := range frames {
		store := zsave.DiscardStore
		if !f.StoreTo.Discard {
			store = strconv.Itoa(int(f.StoreTo.Variable))
		}
		saveFrames[i] = zsave.Frame{
			PC:     f.ReturnPC,
			Store:  store,
			Locals: f.Locals,
			Stack:  f.Stack,
			Argc:   uint8(f.ArgCount),
			Token:  uint64(f.CatchToken),
		}
	}

	return zsave.Snapshot{
		Release:  m.header.ReleaseNumber,
		Checksum: m.header.FileChecksum,
		PC:       m.pc,
		Frames:   saveFrames,
		Memory:   zsave.EncodeMemoryDelta(m.mem.PristineDynamic(), m.mem.DynamicSnapshot()),
	}
}

// RestoreError reports a save-game blob that doesn't belong to the
// running story — a release or checksum mismatch — rather than a
// malformed document. The current machine is left untouched.
type RestoreError struct {
	WantRelease, GotRelease   uint16
	WantChecksum, GotChecksum uint16
}

func (e RestoreError) Error() string {
	return fmt.Sprintf("zmachine: save-game is for a different story (release %d checksum %#04x, have %d/%#04x)",
		e.GotRelease, e.GotChecksum, e.WantRelease, e.WantChecksum)
}

// applySnapshot restores memory, the frame stack and the program
// counter from a decoded save-game document. It refuses to apply a
// snapshot captured against a different story (release/checksum
// mismatch) before touching any machine state.
func (m *Machine) applySnapshot(s zsave.Snapshot) error {
	if s.Release != m.header.ReleaseNumber || s.Checksum != m.header.FileChecksum {
		return RestoreError{
			WantRelease:  m.header.ReleaseNumber,
			WantChecksum: m.header.FileChecksum,
			GotRelease:   s.Release,
			GotChecksum:  s.Checksum,
		}
	}

	mem, err := zsave.DecodeMemoryDelta(s.Memory, m.mem.PristineDynamic())
	if err != nil {
		return err
	}
	if !m.mem.RestoreDynamic(mem) {
		return fmt.Errorf("zmachine: save-game memory delta has the wrong length for this story")
	}

	frames := make([]zframe.Frame, len(s.Frames))
	for i, f := range s.Frames {
		store := zframe.DiscardTarget
		if f.Store != zsave.DiscardStore {
			v, err := strconv.Atoi(f.Store)
			if err != nil {
				return fmt.Errorf("zmachine: save-game frame %d has invalid store target %q", i, f.Store)
			}
			store = zframe.StoreTarget{Variable: uint8(v)}
		}
		frames[i] = zframe.Frame{
			Locals:     f.Locals,
			Stack:      f.Stack,
			ReturnPC:   f.PC,
			StoreTo:    store,
			ArgCount:   int(f.Argc),
			CatchToken: uint32(f.Token),
		}
	}

	m.frames.RestoreFrames(frames)
	m.pc = s.PC
	return nil
}

// doSave builds the current snapshot, marshals it, and stashes it for
// the host to collect via GetUpdates. It's the `save`/EXT save opcode
// handler; it reports failure (false) only when marshalling the
// snapshot fails.
func (m *Machine) doSave() bool {
	data, err := zsave.Marshal(m.snapshot())
	if err != nil {
		m.warnOnce("save_marshal_failed", "save: %v", err)
		return false
	}
	m.pendingSave = data
	return true
}

// consumePendingRestore returns and clears a snapshot queued by
// Restore, for the `restore`/EXT restore opcode handler.
func (m *Machine) consumePendingRestore() (zsave.Snapshot, bool) {
	if m.pendingRestore == nil {
		return zsave.Snapshot{}, false
	}
	s := *m.pendingRestore
	m.pendingRestore = nil
	return s, true
}

// applyRestore applies a snapshot consumed from a `restore` opcode.
// As with LoadSavestate, execution resumes at the restored PC; the
// restore instruction that was executing neither stores nor branches.
func (m *Machine) applyRestore(s zsave.Snapshot) bool {
	if err := m.applySnapshot(s); err != nil {
		m.warnOnce("restore_failed", "restore: %v", err)
		return false
	}
	return true
}

// LoadSavestate applies a previously captured save-game blob
// immediately, for resuming a session the host persisted between
// runs. Unlike Restore, it isn't deferred to a story-issued `restore`
// opcode.
func (m *Machine) LoadSavestate(blob []byte) error {
	snap, err := zsave.Unmarshal(blob)
	if err != nil {
		return err
	}
	if err := m.applySnapshot(snap); err != nil {
		return err
	}
	m.state = Running
	return nil
}

// Restore queues blob to be applied the next time the running story
// executes a `restore` opcode, mirroring the host `restore` callback
// spec.md describes.
func (m *Machine) Restore(blob []byte) error {
	snap, err := zsave.Unmarshal(blob)
	if err != nil {
		return err
	}
	m.pendingRestore = &snap
	return nil
}

func (m *Machine) captureUndo() undoSnapshot {
	return undoSnapshot{pc: m.pc, memory: m.mem.DynamicSnapshot(), frames: m.frames.Copy()}
}

func (m *Machine) applyUndoSnapshot(s undoSnapshot) {
	m.mem.RestoreDynamic(s.memory)
	m.frames.Restore(s.frames)
	m.pc = s.pc
}

// pushUndo is the save_undo opcode handler: it records the current
// state on the undo ring, capped at undoRingLimit entries, and clears
// any redo history (a fresh save invalidates it).
func (m *Machine) pushUndo() bool {
	m.undo = append(m.undo, m.captureUndo())
	if len(m.undo) > undoRingLimit {
		m.undo = m.undo[len(m.undo)-undoRingLimit:]
	}
	m.redo = nil
	return true
}

// popUndo is the restore_undo opcode handler: it restores the most
// recently pushed undo state, pushing the pre-restore state onto the
// redo stack.
func (m *Machine) popUndo() bool {
	if len(m.undo) == 0 {
		return false
	}
	snap := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, m.captureUndo())
	m.applyUndoSnapshot(snap)
	return true
}

// Undo is the host-facing equivalent of the restore_undo opcode,
// usable even when the running story never calls save_undo itself
// (the driver pushes an undo point at every beginRead turn boundary).
func (m *Machine) Undo() bool { return m.popUndo() }

// Redo reverses the last Undo (or restore_undo), if one is available.
func (m *Machine) Redo() bool {
	if len(m.redo) == 0 {
		return false
	}
	snap := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, m.captureUndo())
	m.applyUndoSnapshot(snap)
	return true
}

// restart is the `restart` opcode handler: dynamic memory reverts to
// the pristine story image, the frame stack resets to a single
// entrypoint frame, and undo/redo history is discarded.
func (m *Machine) restart() {
	m.mem.Reset()
	m.frames = zframe.NewStack(uint32(m.header.InitialPC))
	m.pc = uint32(m.header.InitialPC)
	m.state = Running
	m.undo = nil
	m.redo = nil
	m.lastLocation = 0
}
