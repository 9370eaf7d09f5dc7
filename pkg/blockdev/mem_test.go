package blockdev

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBus = errors.New("spi transfer failed")

func TestMemDevice_Counters(t *testing.T) {
	ctx := context.Background()
	dev := NewMemDevice(8)

	buf := make([]byte, DefaultBlockSize)
	buf[0] = 1
	require.NoError(t, dev.WriteBlock(ctx, 5, buf))
	require.NoError(t, dev.WriteBlock(ctx, 5, buf))
	require.NoError(t, dev.ReadBlock(ctx, 5, buf))
	require.NoError(t, dev.Init(ctx))

	assert.Equal(t, 1, dev.Reads())
	assert.Equal(t, 2, dev.Writes())
	assert.Equal(t, 1, dev.Inits())
	assert.True(t, dev.Written(5))
	assert.False(t, dev.Written(4))
	assert.Equal(t, uint(1), dev.WrittenBlocks())
	assert.Equal(t, byte(1), dev.Block(5)[0])

	dev.ResetCounters()
	assert.Equal(t, 0, dev.Reads())
	assert.Equal(t, 0, dev.Writes())
}

func TestMemDevice_Faults(t *testing.T) {
	ctx := context.Background()
	dev := NewMemDevice(2)
	dev.Fill(1, 0xee)

	dev.FailReads(func(index uint32) error {
		if index == 1 {
			return errBus
		}
		return nil
	})
	dev.FailWrites(func(uint32) error { return errBus })
	dev.FailInit(func(uint32) error { return errBus })

	buf := make([]byte, DefaultBlockSize)
	require.NoError(t, dev.ReadBlock(ctx, 0, buf))
	require.ErrorIs(t, dev.ReadBlock(ctx, 1, buf), errBus)
	require.ErrorIs(t, dev.WriteBlock(ctx, 0, buf), errBus)
	require.ErrorIs(t, dev.Init(ctx), errBus)
	assert.False(t, dev.Written(0))
	assert.Equal(t, byte(0xee), dev.Block(1)[0])

	dev.FailReads(nil)
	require.NoError(t, dev.ReadBlock(ctx, 1, buf))
	assert.Equal(t, byte(0xee), buf[511])
}

func TestMemDevice_Alignment(t *testing.T) {
	ctx := context.Background()
	dev := NewMemDevice(1)
	dev.RequireAlignment(32)

	aligned := AlignedBuffer(DefaultBlockSize, 32)
	require.NoError(t, dev.ReadBlock(ctx, 0, aligned))

	raw := AlignedBuffer(DefaultBlockSize+1, 32)
	require.ErrorIs(t, dev.ReadBlock(ctx, 0, raw[1:]), ErrMisaligned)
}

func TestMemDevice_Bounds(t *testing.T) {
	ctx := context.Background()
	dev := NewMemDevice(2)

	require.ErrorIs(t, dev.ReadBlock(ctx, 2, make([]byte, DefaultBlockSize)), ErrOutOfRange)
	require.ErrorIs(t, dev.WriteBlock(ctx, 0, make([]byte, 100)), ErrBufferSize)
	assert.Equal(t, 0, dev.Reads())
	assert.Equal(t, 0, dev.Writes())
}
