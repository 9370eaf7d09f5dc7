// Package blockdev defines the block-indexed storage devices the flash
// adapter sits on top of, and a few concrete ones: disk images, memory
// mapped images and an in-memory device.
package blockdev

import (
	"context"
	"fmt"
	"math"
)

// DefaultBlockSize is the transfer unit of SD cards and disk images.
const DefaultBlockSize = 512

// Device is a storage device that can only transfer whole blocks.
//
// Buffers passed to ReadBlock and WriteBlock are exactly BlockSize bytes
// long. Devices that use direct memory transfers may additionally require
// the buffer to be aligned, see AlignedBuffer.
type Device interface {
	// Init performs the one-time handshake with the device. It may be
	// retried by the caller after a failure.
	Init(ctx context.Context) error
	ReadBlock(ctx context.Context, index uint32, buf []byte) error
	WriteBlock(ctx context.Context, index uint32, buf []byte) error
	BlockSize() int
	// BlockCount returns the number of addressable blocks, or 0 if the
	// device does not know it yet.
	BlockCount() uint32
}

func checkTransfer(dev Device, index uint32, buf []byte) error {
	if len(buf) != dev.BlockSize() {
		return bufferSizeError(dev.BlockSize(), len(buf))
	}
	if n := dev.BlockCount(); n != 0 && index >= n {
		return outOfRangeError(index, n)
	}
	return nil
}

// blocksForSize returns how many whole blocks fit in an image of size
// bytes. Block indices are 32-bit, larger images are rejected.
func blocksForSize(path string, size int64) (uint32, error) {
	n := size / DefaultBlockSize
	switch {
	case n == 0:
		return 0, fmt.Errorf("%w: image %s holds no complete block", ErrInvalidGeometry, path)
	case n > math.MaxUint32:
		return 0, fmt.Errorf("%w: image %s holds %d blocks, more than 32-bit indices address",
			ErrInvalidGeometry, path, n)
	}
	return uint32(n), nil
}
