package storage

import (
	"errors"
	"sort"

	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

// HybridStore pairs a fast store for recent tables with a durable archive.
// Saves go to both; loads prefer the fast store and fall back to the archive.
type HybridStore struct {
	// hot holds recently saved tables, typically a MemoryStore
	hot Store

	// cold is the durable archive, typically a ParquetStore
	cold Store

	logger *types.Logger
}

// NewHybridStore creates a store over hot and cold
func NewHybridStore(hot, cold Store, logger *types.Logger) *HybridStore {
	return &HybridStore{hot: hot, cold: cold, logger: logger.OrGlobal()}
}

// Save writes to the archive first so the fast store never holds a table
// the archive lacks
func (s *HybridStore) Save(name string, table *rtab.Table) error {
	if err := s.cold.Save(name, table); err != nil {
		return err
	}
	if err := s.hot.Save(name, table); err != nil {
		s.logger.Warning("failed to cache table %s: %v", name, err)
	}
	return nil
}

func (s *HybridStore) Load(name string) (*rtab.Table, error) {
	table, err := s.hot.Load(name)
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warning("cache lookup for %s failed, reading archive: %v", name, err)
	}

	table, err = s.cold.Load(name)
	if err != nil {
		return nil, err
	}
	if err := s.hot.Save(name, table); err != nil {
		s.logger.Warning("failed to cache table %s: %v", name, err)
	}
	return table, nil
}

// List returns the archived names merged with any only in the fast store
func (s *HybridStore) List() ([]string, error) {
	cold, err := s.cold.List()
	if err != nil {
		return nil, err
	}
	hot, err := s.hot.List()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cold))
	names := append([]string{}, cold...)
	for _, name := range cold {
		seen[name] = true
	}
	for _, name := range hot {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *HybridStore) Delete(name string) error {
	hotErr := s.hot.Delete(name)
	coldErr := s.cold.Delete(name)
	if coldErr == nil || hotErr == nil {
		return nil
	}
	return coldErr
}

// Close closes both stores and returns the first error
func (s *HybridStore) Close() error {
	hotErr := s.hot.Close()
	coldErr := s.cold.Close()
	if hotErr != nil {
		return hotErr
	}
	return coldErr
}
