package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/tailscale/hujson"

	"github.com/OffBroadway/sdflash/pkg/blockdev"
)

var errConfigInvalid = errors.New("invalid config")

const (
	backendFile = "file"
	backendMmap = "mmap"
)

// Config holds all configuration options.
type Config struct {
	Image        string `json:"image"`
	Backend      string `json:"backend"`
	Capacity     int    `json:"capacity"`
	Alignment    int    `json:"alignment,omitempty"`
	Listen       string `json:"listen,omitempty"`
	MaxConns     int    `json:"max_conns,omitempty"`
	InitAttempts int    `json:"init_attempts,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Image:        "sdcard.img",
		Backend:      backendFile,
		Capacity:     10240,
		Alignment:    1,
		Listen:       "127.0.0.1:7080",
		MaxConns:     16,
		InitAttempts: 5,
	}
}

// loadConfigFile overlays the JSON (comments and trailing commas allowed)
// config at path onto cfg.
func loadConfigFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Image == "":
		return fmt.Errorf("%w: image path is empty", errConfigInvalid)
	case cfg.Backend != backendFile && cfg.Backend != backendMmap:
		return fmt.Errorf("%w: unknown backend %q", errConfigInvalid, cfg.Backend)
	case cfg.Capacity <= 0 || cfg.Capacity%blockdev.DefaultBlockSize != 0:
		return fmt.Errorf("%w: capacity %d is not a positive multiple of %d",
			errConfigInvalid, cfg.Capacity, blockdev.DefaultBlockSize)
	case !blockdev.ValidAlignment(cfg.Alignment):
		return fmt.Errorf("%w: alignment %d is not a power of two", errConfigInvalid, cfg.Alignment)
	case cfg.MaxConns <= 0:
		return fmt.Errorf("%w: max_conns must be positive", errConfigInvalid)
	}
	return nil
}

// parseFlags builds the configuration with the following precedence
// (highest wins): defaults, config file (--config), flags. It returns the
// remaining positional arguments.
func parseFlags(args []string) (Config, []string, error) {
	defaults := DefaultConfig()

	fs := pflag.NewFlagSet("sdflash", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "JSON config file")
	image := fs.StringP("image", "i", defaults.Image, "disk image backing the card")
	backend := fs.String("backend", defaults.Backend, "image access: file or mmap")
	capacity := fs.Int("capacity", defaults.Capacity, "flash capacity in bytes")
	alignment := fs.Int("alignment", defaults.Alignment, "transfer buffer alignment in bytes")
	listen := fs.String("listen", defaults.Listen, "serve: listen address")
	maxConns := fs.Int("max-conns", defaults.MaxConns, "serve: concurrent connection limit")
	attempts := fs.Int("init-attempts", defaults.InitAttempts, "device init attempts, 0 retries forever")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	cfg := defaults
	if *configPath != "" {
		var err error
		if cfg, err = loadConfigFile(cfg, *configPath); err != nil {
			return Config{}, nil, err
		}
	}

	if fs.Changed("image") {
		cfg.Image = *image
	}
	if fs.Changed("backend") {
		cfg.Backend = *backend
	}
	if fs.Changed("capacity") {
		cfg.Capacity = *capacity
	}
	if fs.Changed("alignment") {
		cfg.Alignment = *alignment
	}
	if fs.Changed("listen") {
		cfg.Listen = *listen
	}
	if fs.Changed("max-conns") {
		cfg.MaxConns = *maxConns
	}
	if fs.Changed("init-attempts") {
		cfg.InitAttempts = *attempts
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, nil, err
	}

	return cfg, fs.Args(), nil
}
