package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const reloadDebounce = 400 * time.Millisecond

// Store loads profiles from a directory of YAML files and hot-reloads them
// when files change. Subscribers are notified after every reload so they can
// drop caches keyed on stale profile signatures.
type Store struct {
	dir      string
	mu       sync.RWMutex
	profiles map[string]*Profile
	subs     []func()
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	timerMu  sync.Mutex
	logger   *zap.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for reload events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store rooted at dir. When dir is empty the store holds
// only the built-in default profile and never watches the filesystem.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:      dir,
		profiles: map[string]*Profile{"default": DefaultProfile()},
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads every *.yaml file under the store directory. Files that fail to
// parse or validate are skipped with a log entry; they never evict a
// previously loaded good version.
func (s *Store) Load() error {
	if s.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read profile directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isProfileFile(e.Name()) {
			continue
		}
		if err := s.loadFile(filepath.Join(s.dir, e.Name())); err != nil && s.logger != nil {
			s.logger.Warn("profile load failed", zap.String("file", e.Name()), zap.Error(err))
		}
	}
	return nil
}

func isProfileFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func (s *Store) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse profile: %w", err)
	}
	ApplyDefaults(&p)
	if errs := Validate(&p); len(errs) > 0 {
		return fmt.Errorf("profile %q invalid: %s", p.Name, errs[0].Error())
	}
	s.mu.Lock()
	s.profiles[p.Name] = &p
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Info("profile loaded", zap.String("name", p.Name), zap.Int("version", p.Version))
	}
	return nil
}

// Get returns the profile with the given name, or false when unknown.
func (s *Store) Get(name string) (*Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[name]
	return p, ok
}

// Default returns the profile named "default" (always present).
func (s *Store) Default() *Profile {
	p, _ := s.Get("default")
	return p
}

// Names returns the loaded profile names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subscribe registers fn to run after every successful reload.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := append([]func(){}, s.subs...)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// Watch starts watching the profile directory for changes. It runs until ctx
// is cancelled or Stop is called. A no-op when the store has no directory.
func (s *Store) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher
	go s.run(ctx)
	return nil
}

func (s *Store) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && s.logger != nil {
				s.logger.Debug("profile watcher error", zap.Error(err))
			}
		}
	}
}

func (s *Store) handleEvent(ev fsnotify.Event) {
	if !isProfileFile(ev.Name) {
		return
	}
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		s.debounceReload(ev.Name)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// Removed files keep their last good version in memory; a restart
		// drops them. Notify anyway so dependents can re-resolve.
		s.notify()
	}
}

// debounceReload coalesces editor write bursts into one reload per file.
func (s *Store) debounceReload(path string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if t, ok := s.timers[path]; ok {
		t.Stop()
	}
	s.timers[path] = time.AfterFunc(reloadDebounce, func() {
		s.timerMu.Lock()
		delete(s.timers, path)
		s.timerMu.Unlock()
		if err := s.loadFile(path); err != nil {
			if s.logger != nil {
				s.logger.Warn("profile reload failed", zap.String("path", path), zap.Error(err))
			}
			return
		}
		s.notify()
	})
}

// Stop stops watching. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
	})
}
