// Package render draws a monochrome framebuffer onto a drawable surface.
package render

import (
	"fmt"
	"image/color"
)

// Framebuffer is a read view of a machine display. Pixels is row-major and
// holds Width*Height entries.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []bool
}

// At reports whether the pixel at (x, y) is set
func (fb Framebuffer) At(x, y int) bool {
	return fb.Pixels[y*fb.Width+x]
}

// Surface is a drawing target such as a window renderer or a terminal screen
type Surface interface {
	SetDrawColor(c color.RGBA) error
	Clear() error
	FillRect(x, y, w, h int32) error
	Present()
}

// Draw clears s to bg and fills one scale×scale rectangle in fg for every
// set pixel of fb, then presents s.
func Draw(s Surface, fb Framebuffer, scale int, fg, bg color.RGBA) error {
	if len(fb.Pixels) != fb.Width*fb.Height {
		return fmt.Errorf("framebuffer has %d pixels, want %dx%d", len(fb.Pixels), fb.Width, fb.Height)
	}
	if err := s.SetDrawColor(bg); err != nil {
		return err
	}
	if err := s.Clear(); err != nil {
		return err
	}
	if err := s.SetDrawColor(fg); err != nil {
		return err
	}

	size := int32(scale)
	for i, px := range fb.Pixels {
		if !px {
			continue
		}
		x := int32(i % fb.Width)
		y := int32(i / fb.Width)
		if err := s.FillRect(x*size, y*size, size, size); err != nil {
			return err
		}
	}
	s.Present()
	return nil
}
