package blockdev

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

var _ Device = (*MemDevice)(nil)

// FaultFunc decides whether a transfer of block index fails.
type FaultFunc func(index uint32) error

// MemDevice is a zero-initialised device kept in memory. It records every
// transfer, which makes it the device of choice for tests.
type MemDevice struct {
	mu sync.RWMutex

	data    []byte
	blocks  uint32
	align   int
	written *bitset.BitSet

	inits  int
	reads  int
	writes int

	initFault  FaultFunc
	readFault  FaultFunc
	writeFault FaultFunc
}

// NewMemDevice creates a device holding blocks zeroed blocks.
func NewMemDevice(blocks uint32) *MemDevice {
	return &MemDevice{
		data:    make([]byte, int(blocks)*DefaultBlockSize),
		blocks:  blocks,
		written: bitset.New(uint(blocks)),
	}
}

// RequireAlignment makes the device reject transfer buffers that do not
// start on an align-byte boundary, like a DMA engine would.
func (m *MemDevice) RequireAlignment(align int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.align = align
}

// FailInit installs the Init fault injector, called with index 0. A nil
// FaultFunc removes an injector, here and in FailReads and FailWrites.
func (m *MemDevice) FailInit(f FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initFault = f
}

// FailReads installs the ReadBlock fault injector.
func (m *MemDevice) FailReads(f FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readFault = f
}

// FailWrites installs the WriteBlock fault injector.
func (m *MemDevice) FailWrites(f FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeFault = f
}

// Init counts the call and applies the init fault injector.
func (m *MemDevice) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.inits++
	if m.initFault != nil {
		return m.initFault(0)
	}
	return nil
}

// ReadBlock copies block index into buf.
func (m *MemDevice) ReadBlock(ctx context.Context, index uint32, buf []byte) error {
	if err := m.precheck(ctx, index, buf); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.readFault != nil {
		if err := m.readFault(index); err != nil {
			// a failed transfer may still have clobbered the buffer
			clear(buf)
			return err
		}
	}

	off := int(index) * DefaultBlockSize
	copy(buf, m.data[off:off+DefaultBlockSize])
	return nil
}

// WriteBlock copies buf into block index.
func (m *MemDevice) WriteBlock(ctx context.Context, index uint32, buf []byte) error {
	if err := m.precheck(ctx, index, buf); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.writeFault != nil {
		if err := m.writeFault(index); err != nil {
			return err
		}
	}

	off := int(index) * DefaultBlockSize
	copy(m.data[off:off+DefaultBlockSize], buf)
	m.written.Set(uint(index))
	return nil
}

func (m *MemDevice) precheck(ctx context.Context, index uint32, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkTransfer(m, index, buf); err != nil {
		return err
	}

	m.mu.RLock()
	align := m.align
	m.mu.RUnlock()

	if !IsAligned(buf, align) {
		return fmt.Errorf("%w: need %d-byte alignment", ErrMisaligned, align)
	}
	return nil
}

// BlockSize returns DefaultBlockSize.
func (m *MemDevice) BlockSize() int { return DefaultBlockSize }

// BlockCount returns the number of blocks the device was created with.
func (m *MemDevice) BlockCount() uint32 { return m.blocks }

// Inits returns the number of Init calls.
func (m *MemDevice) Inits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.inits
}

// Reads returns the number of ReadBlock calls that reached the device.
func (m *MemDevice) Reads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.reads
}

// Writes returns the number of WriteBlock calls that reached the device.
func (m *MemDevice) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.writes
}

// ResetCounters zeroes the transfer counters.
func (m *MemDevice) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inits, m.reads, m.writes = 0, 0, 0
}

// Written reports whether block index was ever written successfully.
func (m *MemDevice) Written(index uint32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.written.Test(uint(index))
}

// WrittenBlocks returns how many distinct blocks were written.
func (m *MemDevice) WrittenBlocks() uint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.written.Count()
}

// Block returns a copy of block index.
func (m *MemDevice) Block(index uint32) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	off := int(index) * DefaultBlockSize
	return append([]byte(nil), m.data[off:off+DefaultBlockSize]...)
}

// Fill overwrites block index without counting as a transfer.
func (m *MemDevice) Fill(index uint32, b byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	off := int(index) * DefaultBlockSize
	for i := off; i < off+DefaultBlockSize; i++ {
		m.data[i] = b
	}
}
