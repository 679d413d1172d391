package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jrnilsson/infocore/zmachine"
	"github.com/muesli/reflow/wordwrap"
)

// appState tracks what the terminal is waiting on; it mirrors
// zmachine.State but adds the one state the core doesn't have a name
// for: a fatal runtime error surfaced via trace rather than a panic.
type appState int

const (
	running appState = iota
	waitingForLine
	waitingForChar
	halted
	errored
)

var (
	statusStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	promptStyle = lipgloss.NewStyle().Faint(true)
)

type terpModel struct {
	m          *zmachine.Machine
	romPath    string
	saveSlot   string
	traceOut   io.Writer
	transcript strings.Builder
	input      textinput.Model
	state      appState
	width      int
	height     int
	runErr     error
}

// stepBatchMsg is produced once per Step() burst: the core runs until
// it either halts or needs a line/character, accumulating whatever
// text it printed along the way.
type stepBatchMsg struct {
	text  string
	state zmachine.State
}

func newTerpModel(m *zmachine.Machine, romPath string, traceOut io.Writer) terpModel {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 60
	ti.Prompt = "> "

	return terpModel{
		m:        m,
		romPath:  romPath,
		saveSlot: defaultSaveFilename(romPath),
		traceOut: traceOut,
		input:    ti,
		state:    running,
	}
}

func defaultSaveFilename(romPath string) string {
	base := romPath
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ".sav"
}

func (t terpModel) Init() tea.Cmd {
	return tea.Batch(stepBatch(t.m), tea.WindowSize())
}

// stepBatch drains the machine via Step() until it halts or needs
// input, collecting the text Flush returns after each step; Update then
// drains trace/map updates and any fresh save blob through flushSave.
// It never blocks on I/O — the loop is bounded by
// the story itself reaching a read/read_char/quit within a turn.
func stepBatch(m *zmachine.Machine) tea.Cmd {
	return func() tea.Msg {
		var out strings.Builder
		for {
			done, needsInput := m.Step()
			out.WriteString(m.Flush())
			if done || needsInput {
				return stepBatchMsg{text: out.String(), state: m.State()}
			}
		}
	}
}

func (t terpModel) flushSave(traceWriter io.Writer) string {
	updates := t.m.GetUpdates()
	for _, rec := range updates.Instructions {
		fmt.Fprintf(traceWriter, "pc=%#06x opcode=%d\n", rec.PC, rec.Opcode)
	}
	for _, ev := range updates.Map {
		fmt.Fprintf(traceWriter, "map: %d %q\n", ev.ID, ev.Name)
	}
	if updates.Savestate != nil {
		_ = os.WriteFile(t.saveSlot, updates.Savestate, 0o644)
	}
	if updates.RuntimeError != "" {
		fmt.Fprintln(traceWriter, updates.RuntimeError)
	}
	return updates.RuntimeError
}

func (t terpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.input.Width = t.width - len(t.input.Prompt) - 1
		return t, nil

	case stepBatchMsg:
		t.transcript.WriteString(msg.text)
		runtimeErr := t.flushSave(t.traceOut)
		switch msg.state {
		case zmachine.Halted:
			if runtimeErr != "" {
				t.state = errored
				t.runErr = fmt.Errorf("%s", runtimeErr)
				return t, tea.Quit
			}
			t.state = halted
			return t, tea.Quit
		case zmachine.PausedForInput:
			t.state = waitingForLine
			t.input.SetValue("")
			t.input.Focus()
		case zmachine.PausedForChar:
			t.state = waitingForChar
		}
		return t, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return t, tea.Quit
		}

		switch t.state {
		case waitingForChar:
			ch := keyToZSCII(msg)
			if ch != 0 {
				t.m.FeedChar(ch)
				t.state = running
				return t, stepBatch(t.m)
			}
			return t, nil

		case waitingForLine:
			if msg.Type == tea.KeyEnter {
				line := t.input.Value()
				t.transcript.WriteString(t.input.Prompt + line + "\n")
				if strings.TrimSpace(strings.ToLower(line)) == "restore" {
					if data, err := os.ReadFile(t.saveSlot); err == nil {
						_ = t.m.Restore(data)
					}
				}
				t.m.Feed(line)
				t.state = running
				return t, stepBatch(t.m)
			}
			var cmd tea.Cmd
			t.input, cmd = t.input.Update(msg)
			return t, cmd
		}
	}
	return t, nil
}

// keyToZSCII maps a Bubble Tea key event to the single ZSCII byte
// read_char expects, per the standard's function-key numbering
// (section 3.8) for the keys that have no printable rune.
func keyToZSCII(msg tea.KeyMsg) uint8 {
	switch msg.Type {
	case tea.KeyUp:
		return 129
	case tea.KeyDown:
		return 130
	case tea.KeyLeft:
		return 131
	case tea.KeyRight:
		return 132
	case tea.KeyEnter:
		return 13
	case tea.KeyDelete, tea.KeyBackspace:
		return 8
	case tea.KeyEscape:
		return 27
	default:
		if len(msg.Runes) > 0 {
			return uint8(msg.Runes[0])
		}
		return 0
	}
}

func (t terpModel) View() string {
	if t.runErr != nil {
		return fmt.Sprintf("\n%s\n\n%v\n", errorStyle.Render("Z-machine error:"), t.runErr)
	}
	if t.width == 0 {
		return "Loading " + t.romPath + "...\n"
	}

	body := wordwrap.String(t.transcript.String(), t.width)
	lines := strings.Split(body, "\n")
	visible := t.height - 2
	if visible < 1 {
		visible = 1
	}
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")

	switch t.state {
	case waitingForLine:
		b.WriteString(t.input.View())
	case waitingForChar:
		b.WriteString(promptStyle.Render("[press any key]"))
	case halted:
		b.WriteString(statusStyle.Render(" the story has ended — ctrl+c to exit "))
	}

	return b.String()
}
