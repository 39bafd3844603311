package geocode

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFileName = "geocode_cache.json"
	cacheVersion  = 1
	configDirName = ".sitestamp"
)

// Cache persists resolved addresses keyed by coordinates rounded to five
// decimals (about a metre).
type Cache struct {
	path  string
	dirty bool
	data  cacheFile
}

type cacheFile struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Address    string    `json:"address"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// DefaultCachePath returns ~/.sitestamp/geocode_cache.json.
func DefaultCachePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(homeDir, configDirName, cacheFileName), nil
}

// LoadCache reads the cache at path. A missing file, an unreadable version or
// a nil entry map all start an empty cache.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, data: emptyCacheFile()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read geocode cache: %w", err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal geocode cache: %w", err)
	}
	if file.Version != cacheVersion || file.Entries == nil {
		return c, nil
	}
	c.data = file
	return c, nil
}

func emptyCacheFile() cacheFile {
	return cacheFile{Version: cacheVersion, Entries: make(map[string]cacheEntry)}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lon)
}

func (c *Cache) Get(lat, lon float64) (string, bool) {
	if c == nil {
		return "", false
	}
	e, ok := c.data.Entries[cacheKey(lat, lon)]
	return e.Address, ok
}

func (c *Cache) Set(lat, lon float64, address string) {
	if c == nil {
		return
	}
	c.data.Entries[cacheKey(lat, lon)] = cacheEntry{Address: address, ResolvedAt: time.Now().UTC()}
	c.dirty = true
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.data.Entries)
}

// Save writes the cache if it changed since loading.
func (c *Cache) Save() error {
	if c == nil || !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geocode cache: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write geocode cache: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("replace geocode cache: %w", err)
	}
	c.dirty = false
	return nil
}
