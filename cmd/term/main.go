// Command c8host-term runs a CHIP-8 program inside a terminal.
package main

import (
	"errors"
	"io"
	"log"
	"os"

	"github.com/mnafees/c8host/internal/chip8"
	"github.com/mnafees/c8host/internal/config"
	"github.com/mnafees/c8host/internal/host"
	"github.com/mnafees/c8host/internal/watch"
	"github.com/mnafees/c8host/pkg/term"
)

func main() {
	log.SetPrefix("c8host: ")
	log.SetFlags(0)

	cfg, err := config.Parse("c8host-term", os.Args[1:], os.Stdout)
	if errors.Is(err, config.ErrUsage) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	program, err := os.ReadFile(cfg.Program)
	if err != nil {
		return err
	}
	vm := chip8.NewC8VM(nil)
	if err := vm.Load(program); err != nil {
		return err
	}

	// the terminal is about to be taken over, keep log lines out of it
	logger := log.New(logFile(), log.Prefix(), log.Flags())

	screen, err := term.NewScreen()
	if err != nil {
		return err
	}
	defer screen.Close()

	var events host.EventSource = screen
	if cfg.Watch {
		w, err := watch.New(screen, cfg.Program, logger)
		if err != nil {
			return err
		}
		defer w.Close()
		events = w
	}

	pacer := host.NewTickerPacer(cfg.FPS)
	defer pacer.Stop()

	hc := cfg.Host()
	hc.PixelScale = 1 // term.Screen sizes cells itself
	hc.Log = logger
	return host.New(vm, events, screen, pacer, hc).Run()
}

// logFile returns the file named by $C8HOST_LOG for appending, or a writer
// that drops everything.
func logFile() io.Writer {
	name := os.Getenv("C8HOST_LOG")
	if name == "" {
		return io.Discard
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("opening log: %v", err)
		return io.Discard
	}
	return f
}
