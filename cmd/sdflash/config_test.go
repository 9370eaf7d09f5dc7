package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	cfg, rest, err := parseFlags([]string{"info"})
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, []string{"info"}, rest)
}

func TestParseFlags_ConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdflash.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// card image
		"image": "/tmp/card.img",
		"backend": "mmap",
		"capacity": 20480,
		"init_attempts": 0,
	}`), 0o644))

	cfg, rest, err := parseFlags([]string{"--config", path, "--capacity", "4096", "read", "0", "16"})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/card.img", cfg.Image)
	assert.Equal(t, backendMmap, cfg.Backend)
	assert.Equal(t, 4096, cfg.Capacity)
	assert.Equal(t, 0, cfg.InitAttempts)
	assert.Equal(t, DefaultConfig().Listen, cfg.Listen)
	assert.Equal(t, []string{"read", "0", "16"}, rest)
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := map[string][]string{
		"backend":   {"--backend", "nbd", "info"},
		"capacity":  {"--capacity", "1000", "info"},
		"alignment": {"--alignment", "12", "info"},
		"image":     {"--image", "", "info"},
		"max conns": {"--max-conns", "0", "info"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := parseFlags(args)
			require.ErrorIs(t, err, errConfigInvalid)
		})
	}
}

func TestParseFlags_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdflash.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"capacity": `), 0o644))

	_, _, err := parseFlags([]string{"-c", path, "info"})
	require.ErrorIs(t, err, errConfigInvalid)

	_, _, err = parseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.json"), "info"})
	require.ErrorIs(t, err, os.ErrNotExist)
}
