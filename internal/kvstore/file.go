package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/warpdl/cookieshare/pkg/logger"
)

// ErrNotJSON is returned by FileStore.Set for values that are not JSON documents.
var ErrNotJSON = errors.New("kvstore: value is not a JSON document")

const debounceDuration = 100 * time.Millisecond

// FileStore keeps every key in one JSON object file. Writes re-read the file
// first so keys written by other processes survive, and land atomically via a
// temp file and rename.
type FileStore struct {
	fs     afero.Fs
	path   string
	log    logger.Logger
	watch  bool
	mu     sync.Mutex
	cache  map[string]json.RawMessage
	subs   watchers
	closed bool

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLogger sets the logger used for reload and watcher errors.
func WithLogger(l logger.Logger) FileOption {
	return func(s *FileStore) { s.log = l }
}

// WithWatch enables cross-process change notification through fsnotify.
// It only has an effect on the OS filesystem.
func WithWatch() FileOption {
	return func(s *FileStore) { s.watch = true }
}

// OpenFile opens (or lazily creates) the store file at path on fs.
func OpenFile(fs afero.Fs, path string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{
		fs:   fs,
		path: filepath.Clean(path),
		log:  logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("kvstore: create state dir: %w", err)
	}
	data, err := s.readDisk()
	if err != nil {
		return nil, err
	}
	s.cache = data

	if s.watch {
		if _, ok := fs.(*afero.OsFs); ok {
			if err := s.startWatcher(); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) readDisk() (map[string]json.RawMessage, error) {
	data := make(map[string]json.RawMessage)
	raw, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("kvstore: decode %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileStore) writeDisk(data map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("kvstore: encode state: %w", err)
	}
	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("kvstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		s.fs.Remove(tmpPath)
		return fmt.Errorf("kvstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("kvstore: close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("kvstore: replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	v, ok := s.cache[key]
	return clone(v), ok, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return ErrNotJSON
	}
	return s.write(key, clone(value))
}

func (s *FileStore) Delete(key string) error {
	return s.write(key, nil)
}

type pending struct {
	fns []func(Change)
	ch  Change
}

func (s *FileStore) write(key string, value []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	disk, err := s.readDisk()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	old := s.cache[key]
	// pick up what other processes wrote since our last look
	merged := s.merge(disk)

	next := make(map[string]json.RawMessage, len(disk)+1)
	for k, v := range disk {
		next[k] = v
	}
	if value == nil {
		delete(next, key)
	} else {
		next[key] = value
	}
	if err := s.writeDisk(next); err != nil {
		s.mu.Unlock()
		s.dispatch(merged)
		return err
	}
	s.cache = next
	// the local write supersedes a remote value for key, and watchers see
	// one change from the value they last saw
	out := dropKey(merged, key)
	if !bytes.Equal(old, value) {
		out = append(out, pending{
			fns: s.subs.snapshot(key),
			ch:  Change{Key: key, Old: clone(old), New: clone(value)},
		})
	}
	s.mu.Unlock()

	s.dispatch(out)
	return nil
}

func dropKey(out []pending, key string) []pending {
	kept := make([]pending, 0, len(out))
	for _, p := range out {
		if p.ch.Key != key {
			kept = append(kept, p)
		}
	}
	return kept
}

// merge replaces the cache with disk and returns remote changes for every
// key whose bytes differ. Callers hold s.mu.
func (s *FileStore) merge(disk map[string]json.RawMessage) []pending {
	var out []pending
	for key, fns := range s.subs.fns {
		if len(fns) == 0 {
			continue
		}
		old, newV := s.cache[key], disk[key]
		if bytes.Equal(old, newV) {
			continue
		}
		out = append(out, pending{
			fns: s.subs.snapshot(key),
			ch:  Change{Key: key, Old: clone(old), New: clone(newV), Remote: true},
		})
	}
	s.cache = disk
	return out
}

func (s *FileStore) dispatch(out []pending) {
	for _, p := range out {
		for _, fn := range p.fns {
			fn(p.ch)
		}
	}
}

func (s *FileStore) Watch(key string, fn func(Change)) func() {
	s.mu.Lock()
	id := s.subs.add(key, fn)
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.subs.remove(key, id)
			s.mu.Unlock()
		})
	}
}

// Reload re-reads the file and notifies watchers of keys changed by other
// processes. The fsnotify loop calls it; callers without a watcher may poll.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	disk, err := s.readDisk()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	out := s.merge(disk)
	s.mu.Unlock()
	s.dispatch(out)
	return nil
}

func (s *FileStore) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("kvstore: create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("kvstore: watch state dir: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.watcher = w
	s.cancel = cancel
	go s.watchLoop(ctx)
	return nil
}

func (s *FileStore) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDuration, func() {
				if err := s.Reload(); err != nil && !errors.Is(err, ErrClosed) {
					s.log.Warning("kvstore: reload %s: %v", s.path, err)
				}
			})
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warning("kvstore: watcher: %v", err)
		}
	}
}

// Close stops the watcher. Further operations return ErrClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		return s.watcher.Close()
	}
	return nil
}

var _ Store = (*FileStore)(nil)
