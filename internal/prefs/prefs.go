// Package prefs persists small user preferences, such as the chosen
// colour theme, in a YAML file next to the configuration.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/songsnip/utils"
)

// KeyUserStyle holds the theme name, "dark" or "light".
const KeyUserStyle = "user-style"

// FileName is the preferences file name inside the config directory.
const FileName = "prefs.yml"

// DefaultPath returns the preferences file in the user config directory.
func DefaultPath() (string, error) {
	scope := gap.NewScope(gap.User, "songsnip")
	path, err := scope.ConfigPath(FileName)
	if err != nil {
		return "", fmt.Errorf("unable to find config directory: %w", err)
	}
	return path, nil
}

// Store is a string key/value preference file.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// Open reads the preference file at path. A missing file yields an empty
// store; it is created on the first Set.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   utils.ExpandPath(path),
		values: map[string]string{},
	}

	values, err := s.read()
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and writes the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.values[key]; ok && cur == value {
		return nil
	}

	next := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[key] = value

	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

// Values returns a copy of every stored preference.
func (s *Store) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Reload re-reads the file and reports whether anything changed.
func (s *Store) Reload() (bool, error) {
	values, err := s.read()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := len(values) != len(s.values)
	for k, v := range values {
		if s.values[k] != v {
			changed = true
		}
	}
	s.values = values
	return changed, nil
}

func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read preferences: %w", err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("unable to parse preferences %s: %w", s.path, err)
	}
	return values, nil
}

// write replaces the file through a rename so readers never see a partial
// file.
func (s *Store) write(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("unable to encode preferences: %w", err)
	}

	if err := utils.EnsureDir(s.path); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.yml")
	if err != nil {
		return fmt.Errorf("unable to write preferences: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("unable to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("unable to write preferences: %w", err)
	}

	log.Debug("preferences saved", "path", s.path)
	return nil
}

// Watch reloads the store whenever the file is changed by someone else and
// sends the new values on the returned channel. The channel is closed when
// ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan map[string]string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := utils.EnsureDir(s.path); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, fmt.Errorf("unable to create config directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, fmt.Errorf("unable to watch %s: %w", dir, err)
	}

	log.Debug("fsnotify watching dir", "dir", dir)

	out := make(chan map[string]string, 1)
	go func() {
		defer close(out)
		defer watcher.Close() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				changed, err := s.Reload()
				if err != nil {
					log.Debug("preferences reload failed", "error", err)
					continue
				}
				if !changed {
					continue
				}

				select {
				case out <- s.Values():
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug("fsnotify error", "dir", dir, "error", err)
			}
		}
	}()

	return out, nil
}
