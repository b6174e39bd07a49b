package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 2 * time.Second

// Watch monitors a directory tree for supported files and ingests changes.
// It blocks until the watcher fails or its event channel closes.
func Watch(root string, in *Ingester, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	for _, d := range walkDirs(root) {
		if err := w.Add(d); err != nil {
			logger.Warn("could not watch directory", zap.String("dir", d), zap.Error(err))
		}
	}
	logger.Info("watching for changes", zap.String("root", root))

	// Debounce: collect changed files over a window before ingesting, so a
	// burst of writes to one file costs one ingest.
	var (
		mu      sync.Mutex
		pending = make(map[string]bool)
		timer   *time.Timer
	)

	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		for _, p := range paths {
			if _, err := in.IngestFile(p); err != nil {
				logger.Warn("watch ingest failed", zap.String("file", p), zap.Error(err))
			}
		}
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !Supported(event.Name) {
				// Newly created directories still need watching.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.Add(event.Name)
					}
				}
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				mu.Lock()
				pending[event.Name] = true
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceDelay, flush)
				mu.Unlock()
			}

			if event.Has(fsnotify.Remove) {
				in.Remove(event.Name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}

func walkDirs(root string) []string {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}
