package flash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBlockIndex(t *testing.T) {
	tests := []struct {
		offset    uint32
		blockSize int
		index     uint32
		inBlock   int
	}{
		{0, 512, 0, 0},
		{511, 512, 0, 511},
		{512, 512, 1, 0},
		{10240, 512, 20, 0},
		{1025, 1024, 1, 1},
		{0xffffffff, 512, 0x7fffff, 511},
	}

	for _, tt := range tests {
		index, in := toBlockIndex(tt.offset, tt.blockSize)
		assert.Equal(t, tt.index, index, "offset %d", tt.offset)
		assert.Equal(t, tt.inBlock, in, "offset %d", tt.offset)
	}
}
