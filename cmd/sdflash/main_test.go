package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	lognoop "github.com/fclairamb/go-log/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OffBroadway/sdflash/pkg/flash"
)

func TestRun_Commands(t *testing.T) {
	for _, backend := range []string{backendFile, backendMmap} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			image := filepath.Join(t.TempDir(), "card.img")
			flags := []string{"--image", image, "--backend", backend}

			sdflash := func(args ...string) string {
				var out bytes.Buffer
				require.NoError(t, run(ctx, append(flags, args...), &out, lognoop.NewNoOpLogger()))
				return out.String()
			}

			assert.Contains(t, sdflash("info"), "capacity:   10240")

			sdflash("write", "0", "00010204")
			assert.Contains(t, sdflash("read", "0", "4"), "00 01 02 04")

			sdflash("erase", "0", "512")
			assert.Contains(t, sdflash("read", "0", "4"), "00 00 00 00")

			sdflash("write", "0x10", "ff")
			assert.Contains(t, sdflash("read", "16", "1"), "ff")
		})
	}
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	image := filepath.Join(t.TempDir(), "card.img")
	logger := lognoop.NewNoOpLogger()
	var out bytes.Buffer

	require.Error(t, run(ctx, []string{"--image", image}, &out, logger))
	require.Error(t, run(ctx, []string{"--image", image, "bogus"}, &out, logger))
	require.Error(t, run(ctx, []string{"--image", image, "write", "0", "zz"}, &out, logger))
	require.Error(t, run(ctx, []string{"--image", image, "read", "0"}, &out, logger))

	err := run(ctx, []string{"--image", image, "erase", "1", "512"}, &out, logger)
	require.ErrorIs(t, err, flash.ErrNotAligned)

	require.NoError(t, run(ctx, []string{"help"}, &out, logger))
	assert.Contains(t, out.String(), "usage: sdflash")
}

func TestRun_InfoKeepsLargerImage(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{backendFile, backendMmap} {
		t.Run(backend, func(t *testing.T) {
			image := filepath.Join(t.TempDir(), "card.img")
			require.NoError(t, os.WriteFile(image, make([]byte, 20480), 0o644))

			var out bytes.Buffer
			args := []string{"--image", image, "--backend", backend, "--capacity", "10240", "info"}
			require.NoError(t, run(ctx, args, &out, lognoop.NewNoOpLogger()))

			info, err := os.Stat(image)
			require.NoError(t, err)
			assert.Equal(t, int64(20480), info.Size())
		})
	}
}
