// Package pps counts the pulse-per-second edges of a GPS receiver on a GPIO
// line.
package pps

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Enable bool
	// Pin is the BCM GPIO number carrying the PPS signal.
	Pin int
	// Chip forces a gpiochip device path. Empty searches all chips.
	Chip string
}

// Watcher records PPS edges. Pulse is safe to call from any goroutine.
type Watcher struct {
	cfg Config
	log zerolog.Logger

	count  atomic.Uint64
	lastNs atomic.Int64

	mu     sync.Mutex
	closer io.Closer
}

func New(cfg Config, log zerolog.Logger) *Watcher {
	return &Watcher{cfg: cfg, log: log}
}

// Start requests the GPIO line and begins counting edges. It returns nil
// without doing anything when the watcher is disabled.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("pps watcher is nil")
	}
	if !w.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer != nil {
		return nil
	}

	c, err := openEdgesFn(w.cfg.Pin, w.cfg.Chip, w.record)
	if err != nil {
		return err
	}
	w.closer = c
	w.log.Info().Int("pin", w.cfg.Pin).Msg("pps enabled")

	go func() {
		<-ctx.Done()
		w.Close()
	}()
	return nil
}

func (w *Watcher) record(at time.Time) {
	w.lastNs.Store(at.UnixNano())
	w.count.Add(1)
}

// Pulse returns the time of the last edge and the number of edges seen.
func (w *Watcher) Pulse() (time.Time, uint64) {
	if w == nil {
		return time.Time{}, 0
	}
	n := w.count.Load()
	if n == 0 {
		return time.Time{}, 0
	}
	return time.Unix(0, w.lastNs.Load()).UTC(), n
}

func (w *Watcher) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	c := w.closer
	w.closer = nil
	w.mu.Unlock()
	if c != nil {
		if err := c.Close(); err != nil {
			w.log.Warn().Err(err).Msg("pps close")
		}
	}
}
