package zmachine

import (
	"strings"

	"github.com/jrnilsson/infocore/zstring"
)

// memoryStream is one active stream-3 redirection frame: text printed
// while it's active goes to baseAddress instead of the screen, with a
// length-prefix word written when the stream is closed.
type memoryStream struct {
	baseAddress uint32
	ptr         uint32
}

// streamState tracks which output streams are selected. Nesting of
// stream 3 (memory redirection) is supported up to 16 deep via the
// stack in memoryStreams.
type streamState struct {
	screen        bool
	transcript    bool
	memoryStreams []memoryStream
}

const maxMemoryStreamDepth = 16

func (m *Machine) outputStream(n int16, tableAddr uint16) {
	switch {
	case n == 1:
		m.streams.screen = true
	case n == -1:
		m.streams.screen = false
	case n == 2:
		m.streams.transcript = true
	case n == -2:
		m.streams.transcript = false
	case n == 3:
		if len(m.streams.memoryStreams) >= maxMemoryStreamDepth {
			return
		}
		// Reserve the length-prefix word, written lazily on close.
		m.streams.memoryStreams = append(m.streams.memoryStreams, memoryStream{baseAddress: uint32(tableAddr), ptr: uint32(tableAddr) + 2})
	case n == -3:
		if len(m.streams.memoryStreams) == 0 {
			return
		}
		top := m.streams.memoryStreams[len(m.streams.memoryStreams)-1]
		m.streams.memoryStreams = m.streams.memoryStreams[:len(m.streams.memoryStreams)-1]
		length := uint16(top.ptr - top.baseAddress - 2)
		m.mem.WriteWord(top.baseAddress, length)
	case n == 4 || n == -4:
		// Stream 4 (command script) is accepted and ignored: the
		// terminal host doesn't persist a replay script (UnsupportedFeature,
		// reported once via warnOnce and then silently ignored).
		m.warnOnce("output_stream_4", "output_stream %d: command-script stream not supported", n)
	}
}

// appendText writes s to whichever stream is currently selected.
// Stream 3, while active, exclusively captures output (other selected
// streams remain selected but don't receive the text), per the
// standard.
func (m *Machine) appendText(s string) {
	if len(m.streams.memoryStreams) > 0 {
		top := &m.streams.memoryStreams[len(m.streams.memoryStreams)-1]
		for _, r := range s {
			m.mem.WriteByte(top.ptr, uint8(r))
			top.ptr++
		}
		return
	}

	if m.streams.screen {
		m.outputBuf.WriteString(s)
		if !m.screen.LowerWindowActive {
			lines := strings.Split(s, "\n")
			m.screen.UpperCursorRow += len(lines) - 1
			m.screen.UpperCursorCol += len(lines[len(lines)-1])
		}
	}

	if m.streams.transcript {
		m.outputBuf.WriteString(s)
	}
}

// flush returns and clears the buffered output text. The driver
// flushes before a read, before quit, and whenever the caller asks
// (the line-buffer boundary the standard describes is, in this
// terminal-oriented core, simply "whenever the host asks for text").
func (m *Machine) flush() string {
	s := m.outputBuf.String()
	m.outputBuf.Reset()
	return s
}

// Flush is the host-facing equivalent of flush, exported so the host
// can drain output between steps without waiting for a read.
func (m *Machine) Flush() string { return m.flush() }

func (m *Machine) statusLine() (place string, score int, moves int, timeBased bool) {
	loc := m.readVariable(16, false)
	obj := m.objects.Get(loc)
	return obj.Name, int(int16(m.readVariable(17, false))), int(m.readVariable(18, false)), m.header.Flags1()&0b0000_0010 != 0
}

func (m *Machine) terminatingCharacters() []uint8 {
	valid := []uint8{'\n'}
	if m.version < 5 || m.header.TerminatingCharTable == 0 {
		return valid
	}
	ptr := uint32(m.header.TerminatingCharTable)
	for {
		b := m.mem.ReadByte(ptr)
		if b == 0 {
			break
		}
		if b == 255 {
			for c := uint8(129); c <= 154; c++ {
				valid = append(valid, c)
			}
			for c := uint8(252); c <= 254; c++ {
				valid = append(valid, c)
			}
			break
		}
		if (b >= 129 && b <= 154) || (b >= 252 && b <= 254) {
			valid = append(valid, b)
		}
		ptr++
	}
	return valid
}

// beginRead is the `read`/`sread`/`aread` opcode: it flushes output,
// captures the buffer addresses, remembers where to store the v5+
// terminating character, and suspends the machine.
func (m *Machine) beginRead(textBufferPtr, parseBufferPtr uint16, storeVar uint8, hasStore bool) {
	m.flush()
	m.pushUndo()
	m.textBufferPtr = textBufferPtr
	m.parseBufferPtr = parseBufferPtr
	m.pendingReadStoreVar = storeVar
	m.pendingReadHasStore = hasStore
	m.state = PausedForInput
}

// Feed delivers a completed line of input to a machine paused in
// PausedForInput, writes it into the input buffer (lowercased in v3,
// as-written in v5+), tokenises it into the parse buffer if one was
// supplied, stores the terminator character into the instruction's
// store variable in v5+, and resumes Running.
func (m *Machine) Feed(line string) {
	if m.state != PausedForInput {
		return
	}

	text := line
	if m.version <= 3 {
		text = strings.ToLower(text)
	}
	raw := []byte(text)

	ptr := uint32(m.textBufferPtr)
	bufferSize := m.mem.ReadByte(ptr)
	ptr++
	if m.version >= 5 {
		ptr++ // existing-byte-count field, always overwritten below
	}

	n := 0
	for n < len(raw) && n < int(bufferSize) {
		c := raw[n]
		if !((c >= 32 && c <= 126) || (c >= 155 && c <= 251)) {
			c = ' '
		}
		m.mem.WriteByte(ptr+uint32(n), c)
		n++
	}

	if m.version >= 5 {
		m.mem.WriteByte(uint32(m.textBufferPtr)+1, uint8(n))
	} else {
		m.mem.WriteByte(ptr+uint32(n), 0)
	}

	if m.parseBufferPtr != 0 {
		m.tokenise(uint32(m.textBufferPtr), uint32(m.parseBufferPtr), false)
	}

	if m.pendingReadHasStore {
		m.writeVariable(m.pendingReadStoreVar, uint16('\n'), false)
	}

	m.state = Running
}

// beginReadChar is the `read_char` opcode. The timeout argument (v5+)
// is accepted but ignored — this core has no timer service, matching
// the Open Question resolution recorded in this module's design notes.
func (m *Machine) beginReadChar(storeVar uint8) {
	m.flush()
	m.pendingCharStore = storeVar
	m.state = PausedForChar
}

// FeedChar delivers a single character to a machine paused in
// PausedForChar and resumes Running.
func (m *Machine) FeedChar(ch uint8) {
	if m.state != PausedForChar {
		return
	}
	m.writeVariable(m.pendingCharStore, uint16(ch), false)
	m.state = Running
}

type word struct {
	start uint32
	bytes []uint8
}

// tokenise splits the text buffer at baddr1 on whitespace and the
// dictionary's declared word separators, encodes each word, looks it
// up, and writes parse-buffer entries at baddr2.
func (m *Machine) tokenise(baddr1, baddr2 uint32, leaveUnknownBlank bool) {
	start := baddr1 + 1
	count := uint32(0)
	if m.version >= 5 {
		count = uint32(m.mem.ReadByte(start))
		start++
	}

	var raw []uint8
	if m.version >= 5 {
		raw = m.mem.ReadSlice(start, start+count)
	} else {
		for p := start; ; p++ {
			b := m.mem.ReadByte(p)
			if b == 0 {
				break
			}
			raw = append(raw, b)
		}
	}

	separators := m.dict.Header.WordSeparators
	isSeparator := func(b uint8) bool {
		for _, s := range separators {
			if s == b {
				return true
			}
		}
		return false
	}

	var words []word
	var cur []uint8
	curStart := start
	flush := func(end uint32) {
		if len(cur) > 0 {
			words = append(words, word{start: curStart, bytes: cur})
			cur = nil
		}
		_ = end
	}

	for i, b := range raw {
		pos := start + uint32(i)
		switch {
		case b == ' ':
			flush(pos)
			curStart = pos + 1
		case isSeparator(b):
			flush(pos)
			words = append(words, word{start: pos, bytes: []uint8{b}})
			curStart = pos + 1
		default:
			if len(cur) == 0 {
				curStart = pos
			}
			cur = append(cur, b)
		}
	}
	flush(start + uint32(len(raw)))

	maxWords := int(m.mem.ReadByte(baddr2))
	m.mem.WriteByte(baddr2+1, uint8(min(len(words), maxWords)))

	entryAddr := baddr2 + 2
	for i, w := range words {
		if i >= maxWords {
			break
		}
		encoded := zstring.Encode([]rune(string(w.bytes)), m.version, m.alphabets)
		addr := m.dict.Find(encoded)
		if addr == 0 && leaveUnknownBlank {
			entryAddr += 4
			continue
		}
		m.mem.WriteWord(entryAddr, addr)
		m.mem.WriteByte(entryAddr+2, uint8(len(w.bytes)))
		m.mem.WriteByte(entryAddr+3, uint8(w.start-baddr1))
		entryAddr += 4
	}
}
