// Command c8host-sdl runs a CHIP-8 program in an SDL window.
package main

import (
	"errors"
	"log"
	"os"
	"runtime"

	"github.com/mnafees/c8host/internal/chip8"
	"github.com/mnafees/c8host/internal/config"
	"github.com/mnafees/c8host/internal/host"
	"github.com/mnafees/c8host/internal/watch"
	"github.com/mnafees/c8host/pkg/sdl"
)

func init() {
	// SDL event handling must run on the main OS thread
	runtime.LockOSThread()
}

func main() {
	log.SetPrefix("c8host: ")
	log.SetFlags(0)

	cfg, err := config.Parse("c8host-sdl", os.Args[1:], os.Stdout)
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

	io := sdl.NewIO(cfg.FPS)
	defer io.Destroy()
	err = io.SetupWindow("c8host | CHIP-8",
		int32(chip8.ScreenWidth*cfg.PixelScale), int32(chip8.ScreenHeight*cfg.PixelScale))
	if err != nil {
		return err
	}
	if !io.VSync() {
		log.Printf("vsync unavailable, pacing at %d fps", cfg.FPS)
	}

	var events host.EventSource = io
	if cfg.Watch {
		w, err := watch.New(io, cfg.Program, log.Default())
		if err != nil {
			return err
		}
		defer w.Close()
		events = w
	}

	hc := cfg.Host()
	hc.Log = log.Default()
	return host.New(vm, events, io, io, hc).Run()
}
