package storage

import (
	"fmt"
	"path/filepath"

	"github.com/zakazai/hwdb-rtab/internal/types"
)

type StorageType string

const (
	MemoryStorageType  StorageType = "memory"
	JSONStorageType    StorageType = "json"
	ParquetStorageType StorageType = "parquet"
	HybridStorageType  StorageType = "hybrid"
)

// jsonFileName is the file the JSON store keeps under its directory
const jsonFileName = "tables.json"

type StorageConfig struct {
	Type StorageType
	Dir  string // Used by every type except memory
}

// NewStore creates a store based on the provided configuration
func NewStore(config StorageConfig, logger *types.Logger) (Store, error) {
	switch config.Type {
	case MemoryStorageType:
		return NewMemoryStore(), nil
	case JSONStorageType:
		if config.Dir == "" {
			return nil, fmt.Errorf("directory is required for JSON storage")
		}
		return NewJSONStore(filepath.Join(config.Dir, jsonFileName))
	case ParquetStorageType:
		if config.Dir == "" {
			return nil, fmt.Errorf("directory is required for Parquet storage")
		}
		return NewParquetStore(config.Dir, logger)
	case HybridStorageType:
		if config.Dir == "" {
			return nil, fmt.Errorf("directory is required for hybrid storage")
		}
		cold, err := NewParquetStore(config.Dir, logger)
		if err != nil {
			return nil, err
		}
		return NewHybridStore(NewMemoryStore(), cold, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}
