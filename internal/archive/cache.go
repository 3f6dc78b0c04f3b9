package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("archive: cache miss")

const (
	itemKeyPrefix   = "item:"
	searchKeyPrefix = "search:"

	// Archive metadata is effectively immutable; a long TTL just bounds
	// disk growth.
	defaultItemTTL = 7 * 24 * time.Hour
	// Search results drift as the archive grows, so expire sooner.
	defaultSearchTTL = time.Hour
)

// Cache is a disk-backed cache for archive metadata and search results.
// It lets repeated ingest runs skip redundant round-trips to the archive.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenCache opens (or creates) the cache at path.
func OpenCache(path string, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive cache: %w", err)
	}

	if logger != nil {
		logger.Debug("archive cache opened", "path", path)
	}

	return &Cache{db: db, logger: logger}, nil
}

// Close gracefully closes the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// GetItem returns the cached metadata for identifier, or ErrCacheMiss.
func (c *Cache) GetItem(identifier string) (*Item, error) {
	var item Item
	if err := c.get(itemKeyPrefix+identifier, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// PutItem caches the metadata for an item.
func (c *Cache) PutItem(item *Item) error {
	return c.set(itemKeyPrefix+item.Identifier, item, defaultItemTTL)
}

// GetSearch returns cached search results for a query, or ErrCacheMiss.
func (c *Cache) GetSearch(query string, limit int) ([]SearchResult, error) {
	var results []SearchResult
	if err := c.get(searchKey(query, limit), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// PutSearch caches the results of one search.
func (c *Cache) PutSearch(query string, limit int, results []SearchResult) error {
	return c.set(searchKey(query, limit), results, defaultSearchTTL)
}

func searchKey(query string, limit int) string {
	return fmt.Sprintf("%s%d:%s", searchKeyPrefix, limit, query)
}

func (c *Cache) get(key string, dest any) error {
	err := c.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrCacheMiss
	}
	return err
}

func (c *Cache) set(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}
