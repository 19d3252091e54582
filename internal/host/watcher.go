package host

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/multidocs/internal/logfields"
)

// DefaultDebounce is the quiet period between the last change and a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors watch globs and reruns a build when matching files change.
// Globs use "**" for any number of directories, e.g. "docs/**/*.md".
type Watcher struct {
	patterns []watchPattern
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

type watchPattern struct {
	root string
	// rest is matched against the path below root; recursive patterns match
	// only the base name.
	rest      string
	recursive bool
}

// NewWatcher creates a watcher for the given globs. Root directories that do
// not exist yet are skipped with a warning.
func NewWatcher(globs []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{watcher: fw, debounce: debounce, logger: logger}
	for _, glob := range globs {
		pattern, err := parsePattern(glob)
		if err != nil {
			_ = fw.Close()
			return nil, err
		}
		w.patterns = append(w.patterns, pattern)
		if err := w.addTree(pattern.root, pattern.recursive); err != nil {
			logger.Warn("Cannot watch path", logfields.Path(pattern.root), logfields.Error(err))
		}
	}
	return w, nil
}

func parsePattern(glob string) (watchPattern, error) {
	glob = filepath.Clean(glob)
	if before, after, ok := strings.Cut(glob, "**"); ok {
		root := filepath.Clean(before)
		rest := strings.TrimPrefix(after, string(filepath.Separator))
		if _, err := filepath.Match(rest, ""); err != nil {
			return watchPattern{}, fmt.Errorf("invalid watch pattern %q: %w", glob, err)
		}
		return watchPattern{root: root, rest: rest, recursive: true}, nil
	}

	if _, err := filepath.Match(glob, ""); err != nil {
		return watchPattern{}, fmt.Errorf("invalid watch pattern %q: %w", glob, err)
	}
	root := glob
	for hasMeta(root) {
		root = filepath.Dir(root)
	}
	if root == glob {
		root = filepath.Dir(glob)
	}
	return watchPattern{root: root, rest: glob}, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, `*?[`)
}

func (p watchPattern) matches(name string) bool {
	if !p.recursive {
		ok, _ := filepath.Match(p.rest, name)
		return ok
	}
	rel, err := filepath.Rel(p.root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if p.rest == "" {
		return true
	}
	ok, _ := filepath.Match(p.rest, filepath.Base(name))
	return ok
}

// addTree watches dir and, when recursive, every directory below it.
// fsnotify watches are not recursive.
func (w *Watcher) addTree(dir string, recursive bool) error {
	if !recursive {
		return w.watcher.Add(dir)
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", p, err)
		}
		return nil
	})
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string {
	return w.watcher.WatchList()
}

// Run blocks until ctx is done, calling rebuild once per burst of matching
// changes. Rebuilds never overlap. Rebuild errors are logged and watching
// continues. The watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, rebuild func(context.Context) error) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				stop()
				return nil
			}
			if event.Has(fsnotify.Create) {
				w.watchNewDir(event.Name)
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Watched file changed", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				stop()
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))

		case <-fire:
			fire = nil
			w.logger.Info("Changes detected, rebuilding")
			if err := rebuild(ctx); err != nil {
				w.logger.Error("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	for _, p := range w.patterns {
		if p.matches(event.Name) {
			return true
		}
	}
	return false
}

// watchNewDir extends recursive watches to directories created after start.
func (w *Watcher) watchNewDir(name string) {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return
	}
	for _, p := range w.patterns {
		if !p.recursive {
			continue
		}
		rel, err := filepath.Rel(p.root, name)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if err := w.addTree(name, true); err != nil {
			w.logger.Warn("Cannot watch new directory", logfields.Path(name), logfields.Error(err))
		}
		return
	}
}
