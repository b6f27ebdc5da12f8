package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/philipparndt/arstudio/pkg/openscad"
)

// FileWatcher watches model files and their dependencies and triggers a
// debounced callback with the model path when any of them changes
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	log      *slog.Logger
	mu       sync.Mutex
	sources  map[string]string // watched file -> model path
	callback map[string]func(string)
	debounce time.Duration
	timers   map[string]*time.Timer
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounce time.Duration, log *slog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &FileWatcher{
		watcher:  watcher,
		log:      log,
		sources:  make(map[string]string),
		callback: make(map[string]func(string)),
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Dependencies returns the model file plus the files it pulls in: the
// sibling material library (same base name, .mtl) of OBJ files when it
// exists, and the use/include closure of OpenSCAD sources
func Dependencies(model string) []string {
	files := []string{model}
	switch strings.ToLower(filepath.Ext(model)) {
	case ".obj":
		mtl := strings.TrimSuffix(model, filepath.Ext(model)) + ".mtl"
		if _, err := os.Stat(mtl); err == nil {
			files = append(files, mtl)
		}
	case ".scad":
		deps, err := openscad.NewRenderer(filepath.Dir(model)).ResolveDependencies(model)
		if err == nil {
			files = deps
		}
	}
	return files
}

// Watch starts watching model and its dependencies.
// callback will be called with model when any of the files change
func (fw *FileWatcher) Watch(model string, callback func(string)) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	absModel, err := filepath.Abs(model)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", model, err)
	}

	for _, file := range Dependencies(absModel) {
		if _, watched := fw.sources[file]; !watched {
			if err := fw.watcher.Add(file); err != nil {
				return fmt.Errorf("failed to watch %s: %w", file, err)
			}
		}
		fw.sources[file] = model
	}
	fw.callback[model] = callback

	return nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-fw.watcher.Events:
				if !ok {
					return
				}

				// Only trigger on write or create events
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					fw.handleFileChange(event.Name)
				}

			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
				fw.log.Warn("watcher error", "err", err)
			}
		}
	}()
}

// handleFileChange handles a file change event with debouncing per model
func (fw *FileWatcher) handleFileChange(filePath string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	model, exists := fw.sources[filePath]
	if !exists {
		return
	}
	callback := fw.callback[model]
	if callback == nil {
		return
	}

	// Cancel existing timer if any
	if timer, exists := fw.timers[model]; exists {
		timer.Stop()
	}

	fw.log.Debug("file changed", "file", filePath, "model", model)
	fw.timers[model] = time.AfterFunc(fw.debounce, func() {
		callback(model)
	})
}

// Close stops the watcher
func (fw *FileWatcher) Close() error {
	fw.mu.Lock()
	for _, timer := range fw.timers {
		timer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}

// RemoveAll removes all watched files
func (fw *FileWatcher) RemoveAll() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for file := range fw.sources {
		if err := fw.watcher.Remove(file); err != nil {
			return err
		}
	}

	for _, timer := range fw.timers {
		timer.Stop()
	}
	fw.sources = make(map[string]string)
	fw.callback = make(map[string]func(string))
	fw.timers = make(map[string]*time.Timer)
	return nil
}
