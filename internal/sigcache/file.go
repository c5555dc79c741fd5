package sigcache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FileCache keeps one JSON document per ticker under a directory, fronted
// by an in-memory map. Writes go to a temp file and are renamed into place
// so readers never observe a torn document.
type FileCache struct {
	dir string

	mu  sync.RWMutex
	mem map[string]*Entry
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "sigcache: create dir %s", dir)
	}
	return &FileCache{dir: dir, mem: make(map[string]*Entry)}, nil
}

func (c *FileCache) path(ticker string) string {
	return filepath.Join(c.dir, strings.ToUpper(ticker)+".json")
}

// Get returns the cached entry for ticker, or (nil, nil) when absent.
// A corrupt file is treated as absent; the next Put replaces it.
func (c *FileCache) Get(_ context.Context, ticker string) (*Entry, error) {
	key := strings.ToUpper(ticker)

	c.mu.RLock()
	if e, ok := c.mem[key]; ok {
		c.mu.RUnlock()
		return e, nil
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(c.path(ticker))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sigcache: read %s", ticker)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		zap.L().Warn("sigcache: discarding corrupt cache file",
			zap.String("ticker", key),
			zap.Error(err),
		)
		return nil, nil
	}

	c.mu.Lock()
	c.mem[key] = &entry
	c.mu.Unlock()

	return &entry, nil
}

// Put writes the entry atomically (temp file + rename) and refreshes the
// in-memory copy. Concurrent writers race last-writer-wins, which is
// acceptable for a best-effort cache.
func (c *FileCache) Put(_ context.Context, entry *Entry) error {
	if entry == nil || entry.Ticker == "" {
		return eris.New("sigcache: entry requires a ticker")
	}
	key := strings.ToUpper(entry.Ticker)

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return eris.Wrap(err, "sigcache: marshal entry")
	}

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "sigcache: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "sigcache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "sigcache: close temp file")
	}

	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "sigcache: replace %s", key)
	}

	c.mu.Lock()
	c.mem[key] = entry
	c.mu.Unlock()

	return nil
}

// Purge removes the entry for ticker from memory and disk.
func (c *FileCache) Purge(_ context.Context, ticker string) error {
	key := strings.ToUpper(ticker)

	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()

	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "sigcache: purge %s", key)
	}
	return nil
}
