// internal/service/aggregate/warmer.go

package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/cb671/streetsafe-server/internal/logger"
)

// WarmerConfig contains configuration for the cache warmer
type WarmerConfig struct {
	// Interval between refreshes of the default map window
	Interval time.Duration

	// Timeout bounds one refresh
	Timeout time.Duration
}

// Warmer keeps the default map window in the feature cache so the first
// request of a new month does not pay for the full aggregation
type Warmer struct {
	service *Service
	config  WarmerConfig
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWarmer creates a new cache warmer
func NewWarmer(service *Service, config WarmerConfig) *Warmer {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}

	return &Warmer{
		service: service,
		config:  config,
	}
}

// Start refreshes once, then on every interval until Stop
func (w *Warmer) Start(ctx context.Context) {
	if w.config.Interval <= 0 {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.refresh(ctx)

		ticker := time.NewTicker(w.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.refresh(ctx)
			}
		}
	}()
}

// Stop ends the refresh loop, waiting at most until ctx is done
func (w *Warmer) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Warmer) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	start := time.Now()
	features, err := w.service.MapFeatures(ctx, time.Time{}, time.Time{})
	if err != nil {
		logger.L().WithError(err).Warn("map_cache_warm_failed")
		return
	}

	logger.L().WithField("cells", len(features)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("map_cache_warmed")
}
