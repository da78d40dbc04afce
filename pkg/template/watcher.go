package template

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches files and directories and calls back after changes
// settle. Bursts of events within the debounce interval trigger one call
// carrying every path that changed.
//
// A file path is watched through its parent directory so that editors
// saving by rename keep being observed.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *FileWatcherConfig
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// files and fileDirs hold the requested file paths and the parents
	// watched on their behalf; trees holds directories watched for every
	// event. All paths are absolute.
	files    map[string]bool
	fileDirs map[string]bool
	trees    map[string]bool

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// FileWatcherConfig contains configuration for the file watcher.
type FileWatcherConfig struct {
	// Paths are the files or directories to watch. Directories are
	// watched recursively.
	Paths []string

	// DebounceInterval is the quiet period before the callback runs
	// (default: 500ms)
	DebounceInterval time.Duration

	// Extensions limits events to these file extensions. Empty watches
	// every file.
	Extensions []string

	// SkipHidden ignores dot files and dot directories.
	SkipHidden bool
}

// DefaultFileWatcherConfig returns a config that watches template files.
func DefaultFileWatcherConfig() *FileWatcherConfig {
	return &FileWatcherConfig{
		DebounceInterval: 500 * time.Millisecond,
		Extensions:       []string{".yaml", ".yml"},
		SkipHidden:       true,
	}
}

// NewFileWatcher creates a new file watcher.
func NewFileWatcher(config *FileWatcherConfig, logger *slog.Logger) (*FileWatcher, error) {
	if config == nil {
		config = DefaultFileWatcherConfig()
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		logger:   logger.With("component", "template.watcher"),
		config:   config,
		debounce: NewDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		files:    make(map[string]bool),
		fileDirs: make(map[string]bool),
		trees:    make(map[string]bool),
		pending:  make(map[string]struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, invoking onChange
// with the sorted set of changed paths once events settle. Callback errors
// are logged and watching continues.
func (fw *FileWatcher) Watch(ctx context.Context, onChange func(paths []string) error) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()

	defer func() {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
		close(fw.doneCh)
	}()

	for _, p := range fw.config.Paths {
		if err := fw.addPath(p); err != nil {
			return fmt.Errorf("failed to watch %q: %w", p, err)
		}
	}

	fw.logger.Info("file watcher started",
		"paths", fw.config.Paths,
		"debounce_ms", fw.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-fw.stopCh:
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fw.shouldProcessEvent(event) {
				continue
			}

			fw.logger.Debug("file event", "path", event.Name, "op", event.Op.String())

			// New subdirectories are watched as they appear.
			if event.Has(fsnotify.Create) {
				if isDir, err := isDirectory(event.Name); err == nil && isDir {
					if err := fw.addPath(event.Name); err != nil {
						fw.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			fw.pendingMu.Lock()
			fw.pending[event.Name] = struct{}{}
			fw.pendingMu.Unlock()

			fw.debounce.Trigger(func() {
				paths := fw.drain()
				if len(paths) == 0 {
					return
				}
				if err := onChange(paths); err != nil {
					fw.logger.Error("change handler failed", "paths", paths, "error", err)
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.logger.Error("file watcher error", "error", err)
		}
	}
}

// Stop stops a running watcher and releases its resources.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	running := fw.running
	fw.mu.Unlock()

	if running {
		close(fw.stopCh)
		<-fw.doneCh
	}

	fw.debounce.Stop()

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// drain returns and clears the paths changed since the last call.
func (fw *FileWatcher) drain() []string {
	fw.pendingMu.Lock()
	defer fw.pendingMu.Unlock()

	paths := make([]string, 0, len(fw.pending))
	for p := range fw.pending {
		paths = append(paths, p)
	}
	clear(fw.pending)
	sort.Strings(paths)
	return paths
}

func (fw *FileWatcher) addPath(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	isDir, err := isDirectory(path)
	if err != nil {
		return err
	}
	if !isDir {
		dir := filepath.Dir(path)
		if err := fw.watcher.Add(dir); err != nil {
			return err
		}
		fw.mu.Lock()
		fw.files[path] = true
		fw.fileDirs[dir] = true
		fw.mu.Unlock()
		return nil
	}

	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if fw.config.SkipHidden && p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", p, err)
		}
		fw.mu.Lock()
		fw.trees[p] = true
		fw.mu.Unlock()
		return nil
	})
}

func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	// Parents watched for single files only report those files.
	name := filepath.Clean(event.Name)
	dir := filepath.Dir(name)
	fw.mu.Lock()
	requested := fw.files[name]
	fileOnly := fw.fileDirs[dir] && !fw.trees[dir]
	fw.mu.Unlock()
	if requested {
		return true
	}
	if fileOnly {
		return false
	}

	base := filepath.Base(name)
	if fw.config.SkipHidden && strings.HasPrefix(base, ".") {
		return false
	}
	if len(fw.config.Extensions) == 0 {
		return true
	}
	if event.Has(fsnotify.Create) {
		if isDir, err := isDirectory(event.Name); err == nil && isDir {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range fw.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// Debouncer collects rapid triggers and runs only the latest callback
// after a quiet period.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		d.callback = nil
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}

func isDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
