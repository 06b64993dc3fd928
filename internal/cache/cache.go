// Package cache remembers which cells a previous run already settled, so
// a rerun over a persistent output directory can skip them.
package cache

import (
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

const fileName = "ddiv_cache.gob"

// Key identifies one prover job by its mode and the exact input text.
func Key(mode, input string) string {
	h := blake3.New()
	_, _ = io.WriteString(h, mode)
	_, _ = h.Write([]byte{0})
	_, _ = io.WriteString(h, input)
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is a settled cell. Artifact is the file the cell produced
// (a prover report or a proof script) and ArtifactHash its content hash
// when the entry was stored.
type Entry struct {
	// LowerBound is the rational bound found by a search, in
	// big.Rat.RatString form; empty for certification entries.
	LowerBound   string
	Artifact     string
	ArtifactHash string
	CreatedAt    time.Time
	LastAccessed time.Time
}

type Cache struct {
	Dir     string
	entries map[string]Entry
	mutex   sync.Mutex
	maxAge  time.Duration
}

// New opens the cache stored in dir, creating dir if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		Dir:     dir,
		entries: make(map[string]Entry),
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) path() string {
	return filepath.Join(c.Dir, fileName)
}

func (c *Cache) load() error {
	file, err := os.Open(c.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

func (c *Cache) save() error {
	file, err := os.Create(c.path())
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// Set records entry under key, hashing its artifact, and writes the
// cache file.
func (c *Cache) Set(key string, entry Entry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	hash, err := fileHash(entry.Artifact)
	if err != nil {
		return fmt.Errorf("failed to hash artifact: %w", err)
	}
	now := time.Now()
	entry.ArtifactHash = hash
	entry.CreatedAt = now
	entry.LastAccessed = now
	c.entries[key] = entry

	return c.save()
}

// Get returns the entry for key if it exists and its artifact is still
// on disk unchanged. Stale entries are dropped.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	if c.isEntryInvalid(entry) {
		delete(c.entries, key)
		return Entry{}, false
	}

	entry.LastAccessed = time.Now()
	c.entries[key] = entry
	return entry, true
}

func (c *Cache) isEntryInvalid(entry Entry) bool {
	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		return true
	}
	hash, err := fileHash(entry.Artifact)
	return err != nil || hash != entry.ArtifactHash
}

// SetMaxAge expires entries older than d. Zero disables expiry.
func (c *Cache) SetMaxAge(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = d
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.entries)
}

func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]Entry)
	return c.save()
}

func fileHash(name string) (string, error) {
	file, err := os.Open(name)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	h := blake3.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
