// Package config parses the command line shared by the c8host frontends.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"golang.org/x/image/colornames"

	"github.com/mnafees/c8host/internal/host"
)

// ErrUsage is returned after the usage message has been printed, either on
// request or because the positional arguments were wrong.
var ErrUsage = errors.New("usage")

// Options are the command line flags
type Options struct {
	InstructionsPerFrame int    `short:"i" long:"instructions-per-frame" default:"10" value-name:"N" description:"instructions executed per frame"`
	PixelScale           int    `short:"s" long:"pixel-scale" default:"15" value-name:"S" description:"screen pixels per CHIP-8 pixel"`
	Foreground           string `long:"fg" default:"white" value-name:"COLOR" description:"foreground colour name or #rrggbb"`
	Background           string `long:"bg" default:"black" value-name:"COLOR" description:"background colour name or #rrggbb"`
	FPS                  int    `long:"fps" default:"60" value-name:"HZ" description:"frame rate used when vsync is unavailable"`
	Watch                bool   `short:"w" long:"watch" description:"reload the program when the file changes"`
	Verbose              bool   `short:"v" long:"verbose" description:"log frame statistics"`
}

// Config is the validated startup configuration
type Config struct {
	Program              string // path to the program image
	InstructionsPerFrame int
	PixelScale           int
	Foreground           color.RGBA
	Background           color.RGBA
	FPS                  int
	Watch                bool
	Verbose              bool
}

// Parse parses args, not including the program name. Usage is written to
// stdout when help is requested or when args does not hold exactly one
// program path; ErrUsage is returned in both cases.
func Parse(name string, args []string, stdout io.Writer) (*Config, error) {
	var opts Options
	parser := flags.NewNamedParser(name, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS] <CHIP-8 program>"
	if _, err := parser.AddGroup("Application Options", "", &opts); err != nil {
		return nil, err
	}

	rest, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(stdout)
			return nil, ErrUsage
		}
		return nil, err
	}
	if len(rest) != 1 {
		parser.WriteHelp(stdout)
		return nil, ErrUsage
	}

	c, err := opts.config(rest[0])
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (o *Options) config(program string) (*Config, error) {
	fg, err := ParseColor(o.Foreground)
	if err != nil {
		return nil, fmt.Errorf("--fg: %w", err)
	}
	bg, err := ParseColor(o.Background)
	if err != nil {
		return nil, fmt.Errorf("--bg: %w", err)
	}
	return &Config{
		Program:              program,
		InstructionsPerFrame: o.InstructionsPerFrame,
		PixelScale:           o.PixelScale,
		Foreground:           fg,
		Background:           bg,
		FPS:                  o.FPS,
		Watch:                o.Watch,
		Verbose:              o.Verbose,
	}, nil
}

// Validate rejects values the host loop cannot run with
func (c *Config) Validate() error {
	if c.InstructionsPerFrame < 1 {
		return fmt.Errorf("instructions per frame must be at least 1, got %d", c.InstructionsPerFrame)
	}
	if c.PixelScale < 1 {
		return fmt.Errorf("pixel scale must be at least 1, got %d", c.PixelScale)
	}
	if c.FPS < 1 {
		return fmt.Errorf("fps must be at least 1, got %d", c.FPS)
	}
	return nil
}

// Host returns the host loop configuration
func (c *Config) Host() host.Config {
	return host.Config{
		InstructionsPerFrame: c.InstructionsPerFrame,
		PixelScale:           c.PixelScale,
		Foreground:           c.Foreground,
		Background:           c.Background,
		Verbose:              c.Verbose,
	}
}

// ParseColor accepts an SVG colour name such as "white" or "darkslateblue",
// or a hex triplet "#rrggbb".
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if len(s) != 7 {
			return color.RGBA{}, fmt.Errorf("bad colour %q", s)
		}
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("bad colour %q", s)
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
	}
	c, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return color.RGBA{}, fmt.Errorf("unknown colour %q", s)
	}
	return c, nil
}
