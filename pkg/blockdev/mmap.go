package blockdev

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

var _ Device = (*MmapFile)(nil)

// MmapFile is a disk image mapped into memory. Writes land in the page
// cache and reach the file on Sync or Close.
type MmapFile struct {
	file   *os.File
	mmap   mmap.MMap
	blocks uint32
}

// NewMmapFile maps the image at path, creating it if needed. A non-zero
// blocks grows a shorter image to that many blocks; a longer image is left
// intact. Zero takes the block count from the image size.
func NewMmapFile(path string, blocks uint32) (*MmapFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error inspecting file: %w", err)
	}

	if blocks == 0 {
		if blocks, err = blocksForSize(path, info.Size()); err != nil {
			f.Close()
			return nil, err
		}
	} else if want := int64(blocks) * DefaultBlockSize; info.Size() < want {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, fmt.Errorf("error allocating file: %w", err)
		}
	}

	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error mapping file: %w", err)
	}

	return &MmapFile{file: f, mmap: mm, blocks: blocks}, nil
}

// Init is a no-op: the mapping is established by NewMmapFile.
func (m *MmapFile) Init(ctx context.Context) error {
	if m.mmap == nil {
		return ErrNotOpen
	}
	return ctx.Err()
}

// ReadBlock copies block index out of the mapping.
func (m *MmapFile) ReadBlock(ctx context.Context, index uint32, buf []byte) error {
	off, err := m.locate(ctx, index, buf)
	if err != nil {
		return err
	}
	copy(buf, m.mmap[off:off+DefaultBlockSize])
	return nil
}

// WriteBlock copies buf into block index of the mapping.
func (m *MmapFile) WriteBlock(ctx context.Context, index uint32, buf []byte) error {
	off, err := m.locate(ctx, index, buf)
	if err != nil {
		return err
	}
	copy(m.mmap[off:off+DefaultBlockSize], buf)
	return nil
}

func (m *MmapFile) locate(ctx context.Context, index uint32, buf []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m.mmap == nil {
		return 0, ErrNotOpen
	}
	if err := checkTransfer(m, index, buf); err != nil {
		return 0, err
	}
	return int64(index) * DefaultBlockSize, nil
}

// BlockSize returns the block size of the image.
func (m *MmapFile) BlockSize() int { return DefaultBlockSize }

// BlockCount returns the number of blocks exposed by the image.
func (m *MmapFile) BlockCount() uint32 { return m.blocks }

// Sync flushes the mapping to the file.
func (m *MmapFile) Sync() error {
	if m.mmap == nil {
		return ErrNotOpen
	}
	return m.mmap.Flush()
}

// Close flushes and unmaps the image and closes the file.
func (m *MmapFile) Close() error {
	if m.mmap == nil {
		return nil
	}

	flushErr := m.mmap.Flush()
	mmapErr := m.mmap.Unmap()
	closeErr := m.file.Close()
	m.mmap = nil

	return errors.Join(flushErr, mmapErr, closeErr)
}
