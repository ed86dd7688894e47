package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/NexusAI-AX/mcp-gateway/pkg/logging"
)

// reloadDebounce coalesces bursts of filesystem events (editors frequently
// write a file in several syscalls) into a single reload.
const reloadDebounce = 150 * time.Millisecond

// Loader reads the mcp_config.json document from a path and, optionally,
// watches it for changes.
type Loader struct {
	path string

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

// NewLoader creates a Loader bound to path. No file I/O happens until Load is
// called.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads and parses the configuration document at the Loader's path.
//
// A missing file is not an error: it yields an empty server set. A present
// file that fails to parse as JSON returns *InvalidError and callers must
// retain whatever server set they already had.
func (l *Loader) Load() (map[string]ServerDescriptor, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "no configuration file at %s, starting with an empty server set", l.path)
			return map[string]ServerDescriptor{}, nil
		}
		return nil, fmt.Errorf("opening configuration file: %w", err)
	}
	defer f.Close()

	servers, err := LoadFromReader(f)
	if err != nil {
		return nil, &InvalidError{Path: l.path, Err: err}
	}
	return servers, nil
}

// LoadFromReader parses a configuration document from r without touching the
// filesystem. It exists so tests can supply an in-memory document; the same
// per-entry normalization rules apply as Load.
func LoadFromReader(r io.Reader) (map[string]ServerDescriptor, error) {
	var doc rawDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	servers := make(map[string]ServerDescriptor, len(doc.MCPServers))
	for id, raw := range doc.MCPServers {
		servers[id] = raw.normalize(id)
	}
	return servers, nil
}

// Watch starts watching the Loader's configuration file for changes and
// invokes onChange (typically the caller's reload path) whenever the file is
// written, with onChange itself re-invoking Load. Watch returns immediately;
// the watch runs until Close is called. It is safe to call Watch at most
// once per Loader.
func (l *Loader) Watch(onChange func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		return fmt.Errorf("watch already started")
	}

	dir := filepath.Dir(l.path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	l.watcher = watcher
	l.done = make(chan struct{})

	go l.watchLoop(onChange)
	return nil
}

func (l *Loader) watchLoop(onChange func()) {
	defer close(l.done)

	var timer *time.Timer
	var pending <-chan time.Time

	target := filepath.Clean(l.path)
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(reloadDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			onChange()

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Config", "file watcher error: %v", err)
		}
	}
}

// Close stops the file watcher, if one was started. It is safe to call
// multiple times and on a Loader that never called Watch.
func (l *Loader) Close() error {
	l.mu.Lock()
	watcher := l.watcher
	done := l.done
	l.mu.Unlock()

	if watcher == nil {
		return nil
	}

	var err error
	l.stopOnce.Do(func() {
		err = watcher.Close()
		if done != nil {
			<-done
		}
	})
	return err
}
