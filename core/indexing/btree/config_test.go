package btree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfig_DefaultsFillUnsetFields(t *testing.T) {
	path := writeConfigFile(t, "dir: /var/lib/relindex\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/relindex", cfg.Dir)
	require.Equal(t, DefaultPageSize, cfg.PageSize)
	require.Equal(t, 256, cfg.PoolCapacity)
}

func TestLoadConfig_RejectsNonDefaultPageSize(t *testing.T) {
	path := writeConfigFile(t, "page_size: 4096\n")
	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrUnsupportedPageSize)
}

func TestOpen_RejectsNonDefaultPageSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.PageSize = 4096
	_, _, err := Open(cfg, "student", 0, Integer, nil, nil, nil)
	require.ErrorIs(t, err, ErrUnsupportedPageSize)
}
