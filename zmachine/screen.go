package zmachine

import "fmt"

// TextStyle is a bitmask matching the set_text_style opcode's
// argument.
type TextStyle uint8

const (
	StyleRoman    TextStyle = 0
	StyleReverse  TextStyle = 1 << 0
	StyleBold     TextStyle = 1 << 1
	StyleItalic   TextStyle = 1 << 2
	StyleFixed    TextStyle = 1 << 3
)

// Color is an RGB triple; the Z-machine's 2-12 standard colour numbers
// resolve to these via standardColors.
type Color struct{ R, G, B uint8 }

func (c Color) hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

var standardColors = map[uint16]Color{
	2:  {0, 0, 0},       // black
	3:  {229, 0, 0},     // red
	4:  {0, 229, 0},     // green
	5:  {229, 229, 0},   // yellow
	6:  {0, 0, 229},     // blue
	7:  {229, 0, 229},   // magenta
	8:  {0, 229, 229},   // cyan
	9:  {255, 255, 255}, // white
	10: {170, 170, 170}, // light grey
	11: {85, 85, 85},    // medium grey
	12: {34, 34, 34},    // dark grey
}

// ScreenModel is deliberately not a v6 model: one upper (status/split)
// window and one lower (main) window, matching the core's Non-goal of
// supporting only as much of the split-window model as keeps game
// output from being corrupted.
type ScreenModel struct {
	LowerWindowActive bool
	TextStyle         TextStyle

	UpperWindowHeight  int
	UpperCursorRow     int
	UpperCursorCol     int

	Foreground Color
	Background Color
}

func newScreenModel() ScreenModel {
	return ScreenModel{
		LowerWindowActive: true,
		Foreground:        standardColors[9],
		Background:        standardColors[2],
	}
}

// resolveColor maps a Z-machine colour number to a Color: 0 keeps the
// current colour, 1 is the capability-supplied default (not tracked
// per-window here, so it resolves to the screen's current value), and
// 2-12 are the standard palette.
func (s *ScreenModel) resolveColor(n uint16, isForeground bool) Color {
	switch n {
	case 0, 1:
		if isForeground {
			return s.Foreground
		}
		return s.Background
	default:
		if c, ok := standardColors[n]; ok {
			return c
		}
		return s.Foreground
	}
}

// controlTag renders a bracketed control sequence for a styling opcode,
// recognised by the host per the capability-selected escape dialect
// (ANSI or in-band tags); this core always emits the in-band tag form
// and lets the host translate.
func controlTag(name string, attrs ...string) string {
	s := "<" + name
	for _, a := range attrs {
		s += " " + a
	}
	return s + ">"
}
