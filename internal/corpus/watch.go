package corpus

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls OnChange with the freshly loaded lines whenever the corpus
// file is written or recreated.
type Watcher struct {
	Path     string
	OnChange func(ctx context.Context, lines []string) error
	Debounce time.Duration
	Logger   *slog.Logger
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file so editors that replace the file are still observed.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	target := filepath.Clean(w.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return err
	}
	log.Info("watching corpus", "path", target)

	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fire = time.After(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("corpus watcher error", "error", err)
		case <-fire:
			fire = nil
			lines, err := Load(target)
			if err != nil {
				log.Warn("corpus reload failed", "error", err)
				continue
			}
			if err := w.OnChange(ctx, lines); err != nil {
				log.Error("corpus resync failed", "error", err)
			}
		}
	}
}
