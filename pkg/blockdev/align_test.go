package blockdev

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignedBuffer(t *testing.T) {
	for _, align := range []int{0, 1, 2, 4, 16, 64, 512} {
		buf := AlignedBuffer(DefaultBlockSize, align)
		assert.Len(t, buf, DefaultBlockSize)
		assert.Equal(t, DefaultBlockSize, cap(buf))
		assert.True(t, IsAligned(buf, align), "align %d", align)
	}

	assert.Panics(t, func() { AlignedBuffer(DefaultBlockSize, 3) })
}

func TestValidAlignment(t *testing.T) {
	assert.True(t, ValidAlignment(0))
	assert.True(t, ValidAlignment(1))
	assert.True(t, ValidAlignment(4096))
	assert.False(t, ValidAlignment(6))
	assert.False(t, ValidAlignment(-2))
}
