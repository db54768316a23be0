package host

import "time"

// DefaultRefreshRate is the display refresh rate assumed when no vsync is
// available, in frames per second.
const DefaultRefreshRate = 60

// TickerPacer paces frames with a time.Ticker. Frames that overrun a tick
// start immediately, and missed ticks are dropped rather than queued.
type TickerPacer struct {
	t *time.Ticker
}

// NewTickerPacer returns a pacer firing hz times per second
func NewTickerPacer(hz int) *TickerPacer {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return &TickerPacer{t: time.NewTicker(time.Second / time.Duration(hz))}
}

// Wait blocks until the next tick
func (p *TickerPacer) Wait() {
	<-p.t.C
}

// Stop releases the underlying ticker
func (p *TickerPacer) Stop() {
	p.t.Stop()
}
