package blockdev

import (
	"errors"
	"fmt"
)

var (
	ErrNotOpen         = errors.New("blockdev: device is not open")
	ErrNotInitialized  = errors.New("blockdev: device is not initialized")
	ErrOutOfRange      = errors.New("blockdev: block index out of range")
	ErrBufferSize      = errors.New("blockdev: buffer is not one block long")
	ErrShortTransfer   = errors.New("blockdev: short transfer")
	ErrMisaligned      = errors.New("blockdev: buffer does not satisfy alignment")
	ErrInvalidGeometry = errors.New("blockdev: invalid geometry")
)

func bufferSizeError(want, got int) error {
	return fmt.Errorf("%w: need %d bytes, got %d", ErrBufferSize, want, got)
}

func outOfRangeError(index, count uint32) error {
	return fmt.Errorf("%w: block %d, device has %d", ErrOutOfRange, index, count)
}
