package blockdev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// assert that ImageFile implements the Device interface
var _ Device = (*ImageFile)(nil)

// ImageFile is a disk image stored as a regular file on an afero.Fs.
type ImageFile struct {
	fs     afero.Fs
	path   string
	file   afero.File
	blocks uint32
	ready  bool
}

// NewImageFile opens or creates the image at path. If blocks is zero the
// block count is taken from the image size during Init, otherwise Init
// grows the image to hold that many blocks.
func NewImageFile(fs afero.Fs, path string, blocks uint32) (*ImageFile, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}

	return &ImageFile{fs: fs, path: path, file: f, blocks: blocks}, nil
}

// Init checks the image size and grows it with zeroes when it is shorter
// than the requested block count.
func (img *ImageFile) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if img.file == nil {
		return ErrNotOpen
	}

	info, err := img.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat image: %w", err)
	}

	if img.blocks == 0 {
		blocks, err := blocksForSize(img.path, info.Size())
		if err != nil {
			return err
		}
		img.blocks = blocks
	}

	want := int64(img.blocks) * DefaultBlockSize
	if info.Size() < want {
		if err := img.file.Truncate(want); err != nil {
			return fmt.Errorf("failed to grow image to %d bytes: %w", want, err)
		}
	}

	img.ready = true
	return nil
}

// ReadBlock reads block index into buf.
func (img *ImageFile) ReadBlock(ctx context.Context, index uint32, buf []byte) error {
	if err := img.precheck(ctx, index, buf); err != nil {
		return err
	}

	n, err := img.file.ReadAt(buf, int64(index)*DefaultBlockSize)
	if n == len(buf) && errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to read block %d: %w", index, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: read %d of %d bytes of block %d", ErrShortTransfer, n, len(buf), index)
	}

	return nil
}

// WriteBlock writes buf to block index.
func (img *ImageFile) WriteBlock(ctx context.Context, index uint32, buf []byte) error {
	if err := img.precheck(ctx, index, buf); err != nil {
		return err
	}

	n, err := img.file.WriteAt(buf, int64(index)*DefaultBlockSize)
	if err != nil {
		return fmt.Errorf("failed to write block %d: %w", index, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: wrote %d of %d bytes of block %d", ErrShortTransfer, n, len(buf), index)
	}

	return nil
}

func (img *ImageFile) precheck(ctx context.Context, index uint32, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if img.file == nil {
		return ErrNotOpen
	}
	if !img.ready {
		return ErrNotInitialized
	}
	return checkTransfer(img, index, buf)
}

// BlockSize returns the block size of the image.
func (img *ImageFile) BlockSize() int { return DefaultBlockSize }

// BlockCount returns the number of blocks in the image, 0 before Init
// when the count comes from the image size.
func (img *ImageFile) BlockCount() uint32 { return img.blocks }

// Sync commits the image contents to stable storage.
func (img *ImageFile) Sync() error {
	if img.file == nil {
		return ErrNotOpen
	}
	return img.file.Sync()
}

// Close should be called when you're done with the ImageFile.
func (img *ImageFile) Close() error {
	if img.file == nil {
		return nil
	}
	err := img.file.Close()
	img.file = nil
	img.ready = false
	return err
}
