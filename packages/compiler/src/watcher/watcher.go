// Package watcher reports changed component files, debounced, so the ng2c
// watch command can recompile them.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"ng2c-go/packages/compiler/src/logging"
)

// FileFilter decides whether a change to path is reported.
type FileFilter func(path string) bool

// ChangeHandler receives the paths changed during one debounce window,
// sorted and without duplicates.
type ChangeHandler func(paths []string)

// FileWatcher watches directory trees for file changes.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	delay   time.Duration
	filters []FileFilter
	exclude []string
	logger  logging.Logger
}

// NewFileWatcher creates a watcher that waits delay after the last change
// before reporting a batch.
func NewFileWatcher(delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &FileWatcher{watcher: w, delay: delay, logger: logger.WithComponent("watcher")}, nil
}

// Close stops watching. Run calls it on return; calling it again is a
// no-op.
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

// AddFilter adds a filter. A change is reported when every filter
// accepts its path.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.filters = append(fw.filters, filter)
}

// AddRecursive watches root and its subdirectories, skipping directories
// whose base name matches one of exclude. Directories created later are
// watched as they appear.
func (fw *FileWatcher) AddRecursive(root string, exclude []string) error {
	fw.exclude = exclude
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && excluded(d.Name(), exclude) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers batches of changes to handle until ctx is done. It closes
// the underlying watcher on return.
func (fw *FileWatcher) Run(ctx context.Context, handle ChangeHandler) error {
	defer fw.Close()

	pending := map[string]struct{}{}
	timer := time.NewTimer(fw.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				fw.watchNewDir(event.Name)
			}
			if event.Has(fsnotify.Chmod) || !fw.accept(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(fw.delay)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn(ctx, err, "file watcher error")
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			slices.Sort(paths)
			clear(pending)
			fw.logger.Debug(ctx, "files changed", "count", len(paths))
			handle(paths)
		}
	}
}

func (fw *FileWatcher) accept(path string) bool {
	for _, filter := range fw.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) watchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || excluded(filepath.Base(path), fw.exclude) {
		return
	}
	if err := fw.AddRecursive(path, fw.exclude); err != nil {
		fw.logger.Warn(context.Background(), err, "failed to watch new directory", "path", path)
	}
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// ExtensionFilter accepts paths ending in one of suffixes.
func ExtensionFilter(suffixes ...string) FileFilter {
	return func(path string) bool {
		for _, suffix := range suffixes {
			if strings.HasSuffix(path, suffix) {
				return true
			}
		}
		return false
	}
}
