package renderer

import (
	"log/slog"
	"time"

	"github.com/richinsley/goannotate/graphics"
)

// DefaultPollInterval is the surface size polling period.
const DefaultPollInterval = 100 * time.Millisecond

// SurfaceSize is the last observed displayed size.
type SurfaceSize struct {
	Width  float64
	Height float64
}

// SurfaceTracker polls the surface size and keeps the viewport in sync.
// The cached size starts at zero so the first poll always applies.
type SurfaceTracker struct {
	surface  graphics.Context
	dev      graphics.Device
	interval time.Duration
	size     SurfaceSize
	ticker   *time.Ticker
	logger   *slog.Logger
}

func NewSurfaceTracker(surface graphics.Context, dev graphics.Device, interval time.Duration, logger *slog.Logger) *SurfaceTracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &SurfaceTracker{
		surface:  surface,
		dev:      dev,
		interval: interval,
		logger:   logger,
	}
}

// Start arms the poll timer.
func (t *SurfaceTracker) Start() {
	if t.ticker == nil {
		t.ticker = time.NewTicker(t.interval)
	}
}

// Stop cancels the poll timer.
func (t *SurfaceTracker) Stop() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}

// Armed reports whether the poll timer is running.
func (t *SurfaceTracker) Armed() bool {
	return t.ticker != nil
}

// Due reports, without blocking, whether a poll period has elapsed.
func (t *SurfaceTracker) Due() bool {
	if t.ticker == nil {
		return false
	}
	select {
	case <-t.ticker.C:
		return true
	default:
		return false
	}
}

// PollAndUpdate reads the displayed size and, only when it differs from the
// cached size, updates the cache and the viewport.
func (t *SurfaceTracker) PollAndUpdate() bool {
	w, h := t.surface.GetFramebufferSize()
	observed := SurfaceSize{Width: float64(w), Height: float64(h)}
	if observed == t.size {
		return false
	}
	t.size = observed
	t.dev.Viewport(0, 0, w, h)
	t.logger.Debug("viewport updated", "width", w, "height", h)
	return true
}

// Size returns the cached size.
func (t *SurfaceTracker) Size() SurfaceSize {
	return t.size
}
