package flash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_Validate(t *testing.T) {
	require.NoError(t, DefaultGeometry(10240).Validate())
	assert.Equal(t, uint32(20), DefaultGeometry(10240).Blocks())

	bad := []Geometry{
		{BlockSize: 0, Capacity: 512},
		{BlockSize: 512, Capacity: 0},
		{BlockSize: 512, Capacity: 700},
		{BlockSize: 512, Capacity: 1024, Alignment: 3},
		{BlockSize: 512, Capacity: 1024, Alignment: -4},
	}
	for _, g := range bad {
		assert.ErrorIs(t, g.Validate(), ErrInvalidGeometry, "%+v", g)
	}

	aligned := DefaultGeometry(1024)
	aligned.Alignment = 4
	assert.NoError(t, aligned.Validate())
}

func TestGeometry_Validate32BitLimit(t *testing.T) {
	largest := DefaultGeometry(1<<32 - 512)
	require.NoError(t, largest.Validate())
	assert.Equal(t, uint32(1<<23-1), largest.Blocks())

	assert.ErrorIs(t, DefaultGeometry(1<<32).Validate(), ErrInvalidGeometry)
}
