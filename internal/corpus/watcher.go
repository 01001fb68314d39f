package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/askdesk/backend/pkg/logger"
)

// Watcher observes the corpus directory and invokes onChange after file
// activity settles. Editors tend to emit bursts of events per save, so
// events are coalesced over a debounce window before triggering.
type Watcher struct {
	fw       *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func()
}

func NewWatcher(path string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	return &Watcher{
		fw:       fw,
		path:     path,
		debounce: debounce,
		onChange: onChange,
	}, nil
}

// Start runs the event loop until the context is cancelled or the
// underlying watcher closes.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		logger.Info("Watching corpus directory",
			zap.String("path", w.path),
			zap.Duration("debounce", w.debounce),
		)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}

				logger.Debug("Corpus change detected",
					zap.String("file", event.Name),
					zap.String("op", event.Op.String()),
				)

				if timer == nil {
					timer = time.AfterFunc(w.debounce, w.onChange)
				} else {
					timer.Reset(w.debounce)
				}

			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				logger.Warn("Corpus watcher error", zap.Error(err))
			}
		}
	}()
}

func (w *Watcher) Close() error {
	return w.fw.Close()
}
