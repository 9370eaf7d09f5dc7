package blockdev

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocksForSize(t *testing.T) {
	n, err := blocksForSize("card.img", 10*DefaultBlockSize+7)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), n)

	n, err = blocksForSize("card.img", math.MaxUint32*DefaultBlockSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), n)

	_, err = blocksForSize("card.img", DefaultBlockSize-1)
	require.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = blocksForSize("card.img", (math.MaxUint32+1)*DefaultBlockSize)
	require.ErrorIs(t, err, ErrInvalidGeometry)
}
