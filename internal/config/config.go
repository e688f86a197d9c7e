package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"github.com/zakazai/hwdb-rtab/internal/storage"
	"github.com/zakazai/hwdb-rtab/internal/transport"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

// EnvPrefix prefixes every environment override, e.g. RTAB_STORAGE_DIR
const EnvPrefix = "RTAB"

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Transport TransportConfig `mapstructure:"transport"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TransportConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
	// Range is the query window in seconds used when no timestamp is known
	Range int `mapstructure:"range"`
}

type StorageConfig struct {
	Type string `mapstructure:"type"`
	Dir  string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warning")
	v.SetDefault("transport.buffer_size", transport.DefaultBufferSize)
	v.SetDefault("transport.range", transport.DefaultRange)
	v.SetDefault("storage.type", string(storage.MemoryStorageType))
	v.SetDefault("storage.dir", "data")
}

// Load reads configuration from the optional file at path and from
// RTAB_-prefixed environment variables, which take precedence
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// RTAB_TRANSPORT_BUFFER_SIZE -> transport.buffer_size
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that viper cannot
func (c *Config) Validate() error {
	if _, err := types.ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Transport.BufferSize <= 0 {
		return fmt.Errorf("transport.buffer_size must be positive, got %d", c.Transport.BufferSize)
	}
	if c.Transport.Range <= 0 {
		return fmt.Errorf("transport.range must be positive, got %d", c.Transport.Range)
	}
	switch storage.StorageType(c.Storage.Type) {
	case storage.MemoryStorageType, storage.JSONStorageType, storage.ParquetStorageType, storage.HybridStorageType:
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	return nil
}

// NewLogger builds a logger at the configured level writing to w
func (c *Config) NewLogger(w io.Writer) (*types.Logger, error) {
	level, err := types.ParseLogLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return types.InitLogger(level, w), nil
}

// StoreConfig converts the storage section for storage.NewStore
func (c *Config) StoreConfig() storage.StorageConfig {
	return storage.StorageConfig{
		Type: storage.StorageType(c.Storage.Type),
		Dir:  c.Storage.Dir,
	}
}

// NewAdapter builds a transport adapter from the transport section
func (c *Config) NewAdapter(logger *types.Logger) *transport.Adapter {
	return transport.NewAdapter(c.Transport.BufferSize, logger)
}
