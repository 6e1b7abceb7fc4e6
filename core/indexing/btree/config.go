package btree

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the knobs an index needs at open time: where its blob
// file lives, the fixed page size its layouts are derived for, and how
// large its buffer pool is. PageSize is exposed for documentation
// purposes and must currently equal DefaultPageSize: LeafCapacity and
// InteriorCapacity are compile-time constants derived for that one
// page size, so any other value is rejected by LoadConfig and Open
// rather than silently corrupting node layouts.
type Config struct {
	Dir          string `yaml:"dir"`
	PageSize     int    `yaml:"page_size"`
	PoolCapacity int    `yaml:"pool_capacity"`
}

// DefaultConfig returns sane defaults: an 8 KiB page size (matching the
// L=682/N=1023 fanout this package's layouts are built for) and a
// modest in-memory pool.
func DefaultConfig() Config {
	return Config{
		Dir:          ".",
		PageSize:     DefaultPageSize,
		PoolCapacity: 256,
	}
}

// LoadConfig reads a YAML config file, falling back to DefaultConfig
// for any field left unset (zero value) in the file. It rejects a
// page_size other than DefaultPageSize with ErrUnsupportedPageSize.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PoolCapacity == 0 {
		cfg.PoolCapacity = 256
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.PageSize != DefaultPageSize {
		return Config{}, ErrUnsupportedPageSize
	}
	return cfg, nil
}
