package sdl

import (
	"fmt"
	"image/color"

	"github.com/mnafees/c8host/internal/host"
	"github.com/mnafees/c8host/internal/keymap"
	"github.com/veandco/go-sdl2/sdl"
)

// IO is the input/output abstraction layer for the host loop. It is the
// loop's event source, drawing surface and pacer.
type IO struct {
	window   *sdl.Window
	renderer *sdl.Renderer

	// vsync is true when Present blocks until the next display refresh.
	// Otherwise frames are paced by fallback.
	vsync    bool
	fallback *host.TickerPacer
}

// NewIO returns a new I/O instance for the SDL frontend. fps is the frame
// rate used when the renderer cannot wait for vsync.
func NewIO(fps int) *IO {
	return &IO{fallback: host.NewTickerPacer(fps)}
}

// SetupWindow initialises SDL and opens a centred window of the given size
// with a vsync renderer.
func (io *IO) SetupWindow(title string, width, height int32) error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("initialising SDL: %w", err)
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		width, height, sdl.WINDOW_SHOWN|sdl.WINDOW_OPENGL)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	io.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	io.renderer = renderer

	info, err := renderer.GetInfo()
	if err != nil {
		return fmt.Errorf("querying renderer: %w", err)
	}
	io.vsync = info.Flags&sdl.RENDERER_PRESENTVSYNC != 0

	if err := io.Clear(); err != nil {
		return err
	}
	io.Present()
	return nil
}

// VSync reports whether presenting waits for the display refresh
func (io *IO) VSync() bool { return io.vsync }

// Destroy should be called before quitting the application
func (io *IO) Destroy() {
	io.fallback.Stop()
	if io.renderer != nil {
		io.renderer.Destroy()
	}
	if io.window != nil {
		io.window.Destroy()
	}
	sdl.Quit()
}

// PollEvent returns the next keyboard or quit event, skipping everything
// else SDL reports.
func (io *IO) PollEvent() (host.Event, bool) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch t := event.(type) {
		case *sdl.KeyboardEvent:
			key := Key(t.Keysym.Scancode)
			switch t.GetType() {
			case sdl.KEYDOWN:
				return host.Event{Kind: host.KeyDown, Key: key}, true
			case sdl.KEYUP:
				return host.Event{Kind: host.KeyUp, Key: key}, true
			}
		case *sdl.QuitEvent:
			return host.Event{Kind: host.Quit}, true
		}
	}
	return host.Event{}, false
}

// SetDrawColor sets the colour used by Clear and FillRect
func (io *IO) SetDrawColor(c color.RGBA) error {
	return io.renderer.SetDrawColor(c.R, c.G, c.B, c.A)
}

// Clear fills the whole window with the draw colour
func (io *IO) Clear() error {
	return io.renderer.Clear()
}

// FillRect fills a rectangle with the draw colour
func (io *IO) FillRect(x, y, w, h int32) error {
	return io.renderer.FillRect(&sdl.Rect{X: x, Y: y, W: w, H: h})
}

// Present shows everything drawn since the last Clear
func (io *IO) Present() {
	io.renderer.Present()
}

// Wait returns immediately when Present already synchronised with the
// display, otherwise it waits for the fallback ticker.
func (io *IO) Wait() {
	if io.vsync {
		return
	}
	io.fallback.Wait()
}

// Key translates an SDL scancode into a physical key. Scancodes describe
// key positions, so the keypad layout stays put on non-QWERTY keyboards.
func Key(code sdl.Scancode) keymap.Key {
	switch {
	case code >= sdl.SCANCODE_A && code <= sdl.SCANCODE_Z:
		return keymap.KeyA + keymap.Key(code-sdl.SCANCODE_A)
	case code >= sdl.SCANCODE_1 && code <= sdl.SCANCODE_9:
		return keymap.Key1 + keymap.Key(code-sdl.SCANCODE_1)
	case code >= sdl.SCANCODE_F1 && code <= sdl.SCANCODE_F12:
		return keymap.KeyF1 + keymap.Key(code-sdl.SCANCODE_F1)
	}
	switch code {
	case sdl.SCANCODE_0:
		return keymap.Key0
	case sdl.SCANCODE_ESCAPE:
		return keymap.KeyEscape
	case sdl.SCANCODE_SPACE:
		return keymap.KeySpace
	case sdl.SCANCODE_RETURN:
		return keymap.KeyEnter
	case sdl.SCANCODE_UP:
		return keymap.KeyUp
	case sdl.SCANCODE_DOWN:
		return keymap.KeyDown
	case sdl.SCANCODE_LEFT:
		return keymap.KeyLeft
	case sdl.SCANCODE_RIGHT:
		return keymap.KeyRight
	default:
		return keymap.KeyUnknown
	}
}
