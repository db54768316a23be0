// Package term runs the host loop in a terminal using tcell. Every CHIP-8
// pixel is drawn as two character cells so the picture keeps its aspect
// ratio.
package term

import (
	"image/color"

	"github.com/gdamore/tcell/v2"

	"github.com/mnafees/c8host/internal/host"
	"github.com/mnafees/c8host/internal/keymap"
)

// Terminals report key presses but never releases. A key counts as held
// until this many frames pass without another press (autorepeat refreshes it).
const releaseAfter = 12

// cellWidth is the number of terminal columns per CHIP-8 pixel
const cellWidth = 2

// Screen is the terminal event source and drawing surface
type Screen struct {
	screen tcell.Screen
	events chan tcell.Event
	done   chan struct{}

	style   tcell.Style
	held    map[keymap.Key]int // frames left until release
	pending []host.Event
}

// NewScreen opens the terminal
func NewScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return newScreen(s)
}

func newScreen(s tcell.Screen) (*Screen, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.HideCursor()
	s.Clear()

	t := &Screen{
		screen: s,
		events: make(chan tcell.Event, 64),
		done:   make(chan struct{}),
		style:  tcell.StyleDefault,
		held:   make(map[keymap.Key]int),
	}
	go t.pump()
	return t, nil
}

// pump forwards terminal events until the screen is finalised
func (t *Screen) pump() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case t.events <- ev:
		case <-t.done:
			return
		}
	}
}

// Close restores the terminal
func (t *Screen) Close() {
	close(t.done)
	t.screen.Fini()
}

// PollEvent returns queued releases first, then translated terminal events.
func (t *Screen) PollEvent() (host.Event, bool) {
	if len(t.pending) > 0 {
		ev := t.pending[0]
		t.pending = t.pending[1:]
		return ev, true
	}
	for {
		select {
		case ev := <-t.events:
			if hev, ok := t.translate(ev); ok {
				return hev, true
			}
		default:
			return host.Event{}, false
		}
	}
}

func (t *Screen) translate(ev tcell.Event) (host.Event, bool) {
	kev, ok := ev.(*tcell.EventKey)
	if !ok {
		return host.Event{}, false
	}
	var key keymap.Key
	switch kev.Key() {
	case tcell.KeyCtrlC:
		return host.Event{Kind: host.Quit}, true
	case tcell.KeyRune:
		key = keymap.FromRune(kev.Rune())
	default:
		key = Key(kev.Key())
	}
	if key == keymap.KeyUnknown {
		return host.Event{}, false
	}

	_, wasHeld := t.held[key]
	t.held[key] = releaseAfter
	if wasHeld {
		return host.Event{}, false
	}
	return host.Event{Kind: host.KeyDown, Key: key}, true
}

// Key translates a tcell special key into a physical key
func Key(k tcell.Key) keymap.Key {
	if k >= tcell.KeyF1 && k <= tcell.KeyF12 {
		return keymap.KeyF1 + keymap.Key(k-tcell.KeyF1)
	}
	switch k {
	case tcell.KeyEscape:
		return keymap.KeyEscape
	case tcell.KeyEnter:
		return keymap.KeyEnter
	case tcell.KeyUp:
		return keymap.KeyUp
	case tcell.KeyDown:
		return keymap.KeyDown
	case tcell.KeyLeft:
		return keymap.KeyLeft
	case tcell.KeyRight:
		return keymap.KeyRight
	default:
		return keymap.KeyUnknown
	}
}

// SetDrawColor sets the colour used by Clear and FillRect
func (t *Screen) SetDrawColor(c color.RGBA) error {
	t.style = tcell.StyleDefault.Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
	return nil
}

// Clear fills the terminal with the draw colour
func (t *Screen) Clear() error {
	t.screen.Fill(' ', t.style)
	return nil
}

// FillRect paints the cells covering a rectangle of CHIP-8 pixels
func (t *Screen) FillRect(x, y, w, h int32) error {
	for row := y; row < y+h; row++ {
		for col := x * cellWidth; col < (x+w)*cellWidth; col++ {
			t.screen.SetContent(int(col), int(row), ' ', nil, t.style)
		}
	}
	return nil
}

// Present shows the frame and ages held keys, queueing a release for each
// key that was not pressed again in time.
func (t *Screen) Present() {
	t.screen.Show()
	for key, frames := range t.held {
		if frames <= 1 {
			delete(t.held, key)
			t.pending = append(t.pending, host.Event{Kind: host.KeyUp, Key: key})
			continue
		}
		t.held[key] = frames - 1
	}
}
