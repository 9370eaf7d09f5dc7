package flash

import (
	"fmt"
	"math"

	"github.com/OffBroadway/sdflash/pkg/blockdev"
)

// Geometry describes the flash view of a block device. It is fixed for
// the lifetime of an Adapter.
type Geometry struct {
	// BlockSize is the device transfer unit and the erase unit.
	BlockSize int
	// Capacity is the number of addressable bytes, a multiple of BlockSize
	// no larger than math.MaxUint32.
	Capacity int
	// Alignment is the minimum alignment of transfer buffers in bytes.
	// 0 and 1 mean no constraint.
	Alignment int
}

// DefaultGeometry returns a geometry with 512-byte blocks and no alignment
// constraint.
func DefaultGeometry(capacity int) Geometry {
	return Geometry{
		BlockSize: blockdev.DefaultBlockSize,
		Capacity:  capacity,
		Alignment: 1,
	}
}

// Validate checks g for internal consistency.
func (g Geometry) Validate() error {
	switch {
	case g.BlockSize <= 0:
		return fmt.Errorf("%w: block size %d", ErrInvalidGeometry, g.BlockSize)
	case g.Capacity <= 0:
		return fmt.Errorf("%w: capacity %d", ErrInvalidGeometry, g.Capacity)
	case g.Capacity%g.BlockSize != 0:
		return fmt.Errorf("%w: capacity %d is not a multiple of the block size %d",
			ErrInvalidGeometry, g.Capacity, g.BlockSize)
	case uint64(g.Capacity) > math.MaxUint32:
		// erase takes an exclusive 32-bit end, so the last block must end
		// at or below MaxUint32
		return fmt.Errorf("%w: capacity %d exceeds 32-bit offsets", ErrInvalidGeometry, g.Capacity)
	case !blockdev.ValidAlignment(g.Alignment):
		return fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidGeometry, g.Alignment)
	}
	return nil
}

// Blocks returns the number of blocks covered by the capacity.
func (g Geometry) Blocks() uint32 {
	return uint32(g.Capacity / g.BlockSize)
}
