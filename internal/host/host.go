// Package host drives a CHIP-8 machine in real time. Each frame it applies
// pending input, executes a fixed instruction budget, ticks the machine
// timers once and renders the framebuffer, then waits for the next display
// refresh.
package host

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"time"

	"github.com/mnafees/c8host/internal/keymap"
	"github.com/mnafees/c8host/internal/render"
)

// Defaults used when a Config field is left zero
const (
	DefaultInstructionsPerFrame = 10
	DefaultPixelScale           = 15
	DefaultStatsInterval        = time.Second
)

// Machine is the emulated interpreter driven by the loop
type Machine interface {
	Load(program []byte) error
	Step() error
	TickTimers()
	SetKey(index uint8, pressed bool)
	Framebuffer() render.Framebuffer
}

// EventKind tells what an Event carries
type EventKind int

// Event kinds understood by the loop
const (
	Unknown EventKind = iota
	Quit
	KeyDown
	KeyUp
	Reload
)

// Event is a single input or control event delivered by an EventSource
type Event struct {
	Kind    EventKind
	Key     keymap.Key
	Program []byte // replacement program image for Reload
}

// EventSource yields pending events without blocking. ok is false once no
// more events are queued.
type EventSource interface {
	PollEvent() (ev Event, ok bool)
}

// Pacer blocks until the next frame may start
type Pacer interface {
	Wait()
}

// State of the loop
type State int

// Loop states
const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config controls execution pacing and rendering
type Config struct {
	InstructionsPerFrame int
	PixelScale           int
	ExitKey              keymap.Key
	Foreground           color.RGBA
	Background           color.RGBA

	// Verbose enables a periodic frames/instructions line on Log
	Verbose       bool
	StatsInterval time.Duration
	Log           *log.Logger
}

// Defaults fills missing fields with the reference values.
func (c *Config) Defaults() {
	if c.InstructionsPerFrame <= 0 {
		c.InstructionsPerFrame = DefaultInstructionsPerFrame
	}
	if c.PixelScale <= 0 {
		c.PixelScale = DefaultPixelScale
	}
	if c.ExitKey == keymap.KeyUnknown {
		c.ExitKey = keymap.KeyEscape
	}
	// a fully transparent colour means unset
	if c.Foreground.A == 0 {
		c.Foreground = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	}
	if c.Background.A == 0 {
		c.Background = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = DefaultStatsInterval
	}
	if c.Log == nil {
		c.Log = log.New(io.Discard, "", 0)
	}
}

// FaultError reports a machine instruction that failed to execute
type FaultError struct {
	Frame uint64 // frame in which the fault happened, counted from 0
	Step  int    // index of the faulting step within the frame
	Err   error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("machine fault in frame %d, step %d: %v", e.Frame, e.Step, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

// Loop owns the machine, the event source and the drawing surface for the
// lifetime of the program.
type Loop struct {
	m       Machine
	events  EventSource
	surface render.Surface
	pacer   Pacer
	cfg     Config

	state  State
	frames uint64

	// statistics for verbose mode
	statsStart  time.Time
	statsFrames uint64
}

// New returns a loop in the Running state. The machine must already hold a
// program.
func New(m Machine, events EventSource, surface render.Surface, pacer Pacer, cfg Config) *Loop {
	cfg.Defaults()
	return &Loop{
		m:       m,
		events:  events,
		surface: surface,
		pacer:   pacer,
		cfg:     cfg,
		state:   Running,
	}
}

// State returns the current loop state
func (l *Loop) State() State { return l.state }

// Frames returns the number of completed frames
func (l *Loop) Frames() uint64 { return l.frames }

// Run executes frames until a quit event, the exit key or a machine fault
// stops the loop.
func (l *Loop) Run() error {
	l.statsStart = time.Now()
	for l.state == Running {
		if err := l.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Frame runs a single iteration: drain input, execute the instruction
// budget, tick timers once, render and wait for the next refresh.
func (l *Loop) Frame() error {
	if l.state != Running {
		return nil
	}

	l.drainEvents()
	if l.state != Running {
		return nil
	}

	for i := 0; i < l.cfg.InstructionsPerFrame; i++ {
		if err := l.m.Step(); err != nil {
			l.state = Stopped
			return &FaultError{Frame: l.frames, Step: i, Err: err}
		}
	}
	l.m.TickTimers()

	if err := render.Draw(l.surface, l.m.Framebuffer(), l.cfg.PixelScale,
		l.cfg.Foreground, l.cfg.Background); err != nil {
		l.state = Stopped
		return fmt.Errorf("render frame %d: %w", l.frames, err)
	}

	l.pacer.Wait()
	l.frames++
	l.logStats()
	return nil
}

func (l *Loop) drainEvents() {
	for ev, ok := l.events.PollEvent(); ok; ev, ok = l.events.PollEvent() {
		switch ev.Kind {
		case Quit:
			l.state = Stopped
			return
		case KeyDown:
			if ev.Key == l.cfg.ExitKey {
				l.state = Stopped
				return
			}
			if idx, ok := keymap.Keypad(ev.Key); ok {
				l.m.SetKey(idx, true)
			}
		case KeyUp:
			if idx, ok := keymap.Keypad(ev.Key); ok {
				l.m.SetKey(idx, false)
			}
		case Reload:
			if err := l.m.Load(ev.Program); err != nil {
				l.cfg.Log.Printf("reload: %v", err)
				break
			}
			l.cfg.Log.Printf("reloaded program (%d bytes)", len(ev.Program))
		}
	}
}

func (l *Loop) logStats() {
	if !l.cfg.Verbose {
		return
	}
	l.statsFrames++
	elapsed := time.Since(l.statsStart)
	if elapsed < l.cfg.StatsInterval {
		return
	}
	fps := float64(l.statsFrames) / elapsed.Seconds()
	l.cfg.Log.Printf("frames=%d fps=%.1f ips=%.0f",
		l.frames, fps, fps*float64(l.cfg.InstructionsPerFrame))
	l.statsStart = time.Now()
	l.statsFrames = 0
}
