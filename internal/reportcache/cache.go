package reportcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"raidbench/internal/config"
	"raidbench/internal/constants"
	"raidbench/internal/wcl"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const reportKeyPrefix = "report:"

// Cache is a BadgerDB-backed cache of fetched report bundles. Reports still
// being logged get a short TTL so new pulls show up; closed reports are
// immutable and cache for a long time.
type Cache struct {
	db     *badger.DB
	cfg    *config.Config
	logger zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(cfg.CacheDir).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open report cache: %w", err)
	}
	return &Cache{db: db, cfg: cfg, logger: logger.With().Str("component", "reportcache").Logger()}, nil
}

// NewInMemory opens a cache that lives only for the process, for tests.
func NewInMemory(cfg *config.Config, logger zerolog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open report cache: %w", err)
	}
	return &Cache{db: db, cfg: cfg, logger: logger}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached bundle for a report code, or nil on a miss.
func (c *Cache) Get(code string) (*wcl.ReportBundle, error) {
	var bundle wcl.ReportBundle
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportKeyPrefix + code))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &bundle)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached report %s: %w", code, err)
	}
	return &bundle, nil
}

// Set stores a bundle under its report code.
func (c *Cache) Set(bundle *wcl.ReportBundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal report %s: %w", bundle.Code, err)
	}
	ttl := c.ttlFor(bundle)
	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(reportKeyPrefix+bundle.Code), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to cache report %s: %w", bundle.Code, err)
	}
	c.logger.Debug().Str("code", bundle.Code).Dur("ttl", ttl).Msg("report cached")
	return nil
}

func (c *Cache) ttlFor(bundle *wcl.ReportBundle) time.Duration {
	end := time.UnixMilli(int64(bundle.EndTime))
	if time.Since(end) < constants.ReportFreshWindow {
		return c.cfg.CacheTTLShort
	}
	return c.cfg.CacheTTLLong
}

// Flush drops every cached report.
func (c *Cache) Flush() (int, error) {
	prefix := []byte(reportKeyPrefix)
	var keys [][]byte
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan report cache: %w", err)
	}

	for _, key := range keys {
		err := c.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, fmt.Errorf("failed to delete cache key %s: %w", key, err)
		}
	}
	c.logger.Info().Int("count", len(keys)).Msg("report cache flushed")
	return len(keys), nil
}
