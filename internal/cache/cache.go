// Package cache implements the file-backed response cache and the
// schema-fingerprint store shared by discovery, normalization and
// polling.
//
// Two namespaces share one root directory: a generic payload cache
// (an index file plus one JSON payload file per key) and a fingerprint
// store under schemas/. Persistence failures degrade to cache-miss
// behavior; they are logged, never surfaced as hard errors to readers.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

const (
	indexFileName = "cache_index.json"
	schemaDirName = "schemas"
	filePerm      = 0o644
	dirPerm       = 0o755
)

// Entry is one cached payload with its conditional-request metadata.
type Entry struct {
	Key          string
	Data         any
	CreatedAt    time.Time
	TTL          time.Duration
	ETag         string
	LastModified string
	SourceURL    string
	ContentHash  string
}

// Meta carries the optional metadata recorded alongside a payload.
type Meta struct {
	ETag         string
	LastModified string
	SourceURL    string
}

// indexEntry is the on-disk index record for one key.
type indexEntry struct {
	ExpiresAt   int64  `json:"expires_at"`
	ContentHash string `json:"content_hash"`
	CachedAt    int64  `json:"cached_at"`
}

// entryFile is the on-disk payload record for one key.
type entryFile struct {
	Data         any    `json:"data"`
	CachedAt     int64  `json:"cached_at"`
	TTLSeconds   int64  `json:"ttl_seconds"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	ContentHash  string `json:"content_hash"`
}

// Cache is the file-backed store. Safe for concurrent use.
type Cache struct {
	dir       string
	schemaDir string
	log       logger.Interface

	mu    sync.Mutex
	index map[string]indexEntry

	// now is replaceable in tests to simulate TTL expiry.
	now func() time.Time
}

// New opens (or creates) a cache rooted at basePath and loads its index.
func New(basePath string, log logger.Interface) (*Cache, error) {
	schemaDir := filepath.Join(basePath, schemaDirName)
	if err := os.MkdirAll(schemaDir, dirPerm); err != nil {
		return nil, fmt.Errorf("cache mkdir: %w", err)
	}

	c := &Cache{
		dir:       basePath,
		schemaDir: schemaDir,
		log:       log,
		index:     make(map[string]indexEntry),
		now:       time.Now,
	}

	c.loadIndex()

	return c, nil
}

// loadIndex reads the index file. A missing or corrupt index starts
// the cache empty.
func (c *Cache) loadIndex() {
	raw, err := os.ReadFile(filepath.Join(c.dir, indexFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("failed to load cache index", "error", err.Error())
		}
		return
	}

	if unmarshalErr := json.Unmarshal(raw, &c.index); unmarshalErr != nil {
		c.log.Warn("corrupt cache index, starting empty", "error", unmarshalErr.Error())
		c.index = make(map[string]indexEntry)
	}
}

// saveIndexLocked writes the index file. Callers hold c.mu.
func (c *Cache) saveIndexLocked() {
	raw, err := json.Marshal(c.index)
	if err != nil {
		c.log.Error("failed to marshal cache index", "error", err.Error())
		return
	}

	if writeErr := os.WriteFile(filepath.Join(c.dir, indexFileName), raw, filePerm); writeErr != nil {
		c.log.Error("failed to save cache index", "error", writeErr.Error())
	}
}

// entryPath returns the payload file path for a key. Keys are hashed
// so special characters never reach the filesystem.
func (c *Cache) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns the entry for key if present and not expired. Expired
// entries and entries whose backing file is missing or corrupt are
// removed and reported as a miss.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.index[key]
	if !ok {
		return nil, false
	}

	if c.now().Unix() > info.ExpiresAt {
		c.deleteLocked(key)
		return nil, false
	}

	raw, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		// Stale index entry without a backing file.
		c.deleteLocked(key)
		return nil, false
	}

	var file entryFile
	if unmarshalErr := json.Unmarshal(raw, &file); unmarshalErr != nil {
		c.log.Warn("corrupt cache entry removed", "key", key, "error", unmarshalErr.Error())
		c.deleteLocked(key)
		return nil, false
	}

	return &Entry{
		Key:          key,
		Data:         file.Data,
		CreatedAt:    time.Unix(file.CachedAt, 0),
		TTL:          time.Duration(file.TTLSeconds) * time.Second,
		ETag:         file.ETag,
		LastModified: file.LastModified,
		SourceURL:    file.SourceURL,
		ContentHash:  file.ContentHash,
	}, true
}

// Set persists a payload with its TTL and metadata, overwriting any
// prior entry for the key. The content hash is computed over the
// payload's canonical JSON form.
func (c *Cache) Set(key string, data any, ttl time.Duration, meta Meta) error {
	contentHash, err := ContentHash(data)
	if err != nil {
		c.log.Error("failed to hash cache payload", "key", key, "error", err.Error())
		return fmt.Errorf("cache set hash: %w", err)
	}

	now := c.now()
	file := entryFile{
		Data:         data,
		CachedAt:     now.Unix(),
		TTLSeconds:   int64(ttl.Seconds()),
		ETag:         meta.ETag,
		LastModified: meta.LastModified,
		SourceURL:    meta.SourceURL,
		ContentHash:  contentHash,
	}

	raw, marshalErr := json.Marshal(file)
	if marshalErr != nil {
		c.log.Error("failed to marshal cache entry", "key", key, "error", marshalErr.Error())
		return fmt.Errorf("cache set marshal: %w", marshalErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if writeErr := os.WriteFile(c.entryPath(key), raw, filePerm); writeErr != nil {
		c.log.Error("failed to write cache entry", "key", key, "error", writeErr.Error())
		return fmt.Errorf("cache set write: %w", writeErr)
	}

	c.index[key] = indexEntry{
		ExpiresAt:   now.Add(ttl).Unix(),
		ContentHash: contentHash,
		CachedAt:    now.Unix(),
	}
	c.saveIndexLocked()

	return nil
}

// Delete removes an entry. Removing a missing key is a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deleteLocked(key)
}

// deleteLocked removes the payload file and index entry for a key.
// Callers hold c.mu.
func (c *Cache) deleteLocked(key string) {
	if err := os.Remove(c.entryPath(key)); err != nil && !os.IsNotExist(err) {
		c.log.Warn("failed to remove cache file", "key", key, "error", err.Error())
	}

	if _, ok := c.index[key]; ok {
		delete(c.index, key)
		c.saveIndexLocked()
	}
}

// CleanupExpired removes every entry whose TTL has passed. It is meant
// to run on an interval rather than on every access.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().Unix()

	expired := make([]string, 0)
	for key, info := range c.index {
		if now > info.ExpiresAt {
			expired = append(expired, key)
		}
	}

	for _, key := range expired {
		c.deleteLocked(key)
	}

	if len(expired) > 0 {
		c.log.Info("cleaned up expired cache entries", "count", len(expired))
	}

	return len(expired)
}

// Stats summarizes the cache contents.
type Stats struct {
	TotalEntries   int
	ExpiredEntries int
	Directory      string
	Keys           []string
}

// GetStats returns a snapshot of the cache state.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().Unix()

	stats := Stats{
		TotalEntries: len(c.index),
		Directory:    c.dir,
		Keys:         make([]string, 0, len(c.index)),
	}

	for key, info := range c.index {
		stats.Keys = append(stats.Keys, key)
		if now > info.ExpiresAt {
			stats.ExpiredEntries++
		}
	}

	return stats
}

// SetClock replaces the cache's time source. Test hook.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// ContentHash returns the hex SHA-256 of a payload's canonical JSON
// encoding. Used for change detection, not security.
func ContentHash(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("content hash marshal: %w", err)
	}

	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:]), nil
}
