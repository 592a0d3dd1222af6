// Package ratewatch re-applies tariff rates from the config file while
// the service is running, so an operator can adjust pricing without a
// restart.
package ratewatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/parkd-io/parkd/internal/cliconfig"
	"github.com/parkd-io/parkd/internal/lot"
)

// debounceDelay coalesces the burst of write events editors produce for
// a single save.
const debounceDelay = 100 * time.Millisecond

// Watcher monitors the config file via fsnotify and pushes rate changes
// into the lot.
type Watcher struct {
	path   string
	lot    *lot.Lot
	logger zerolog.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// New creates a watcher for the config file at path.
func New(path string, l *lot.Lot, logger zerolog.Logger) *Watcher {
	return &Watcher{path: path, lot: l, logger: logger}
}

// Run watches the config file's directory until ctx is done. Watching
// the directory rather than the file survives the rename-on-save most
// editors do.
func (w *Watcher) Run(ctx context.Context) {
	if w.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error().Err(err).Msg("rate watcher: failed to create watcher")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("rate watcher: failed to watch config dir")
		return
	}

	w.logger.Info().Str("path", w.path).Msg("rate watcher started")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceApply()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("rate watcher: watch error")
		}
	}
}

func (w *Watcher) debounceApply() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, w.apply)
}

// apply reloads the file and pushes changed rates into the lot.
func (w *Watcher) apply() {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Msg("rate watcher: reload failed")
		return
	}
	if fc.SmallRate <= 0 || fc.LargeRate <= 0 {
		return
	}

	current := w.lot.Rates()
	if current.Small == fc.SmallRate && current.Large == fc.LargeRate {
		return
	}
	if err := w.lot.SetRates(fc.SmallRate, fc.LargeRate); err != nil {
		w.logger.Warn().Err(err).Msg("rate watcher: rejected rates")
		return
	}
	w.logger.Info().Float64("small_rate", fc.SmallRate).Float64("large_rate", fc.LargeRate).
		Msg("rates reloaded from config file")
}
