// Package flash exposes a block device through a NOR-flash style contract:
// byte-granular reads and writes, and erase in whole blocks.
//
// An Adapter keeps a single block in memory. Reads and writes are served
// from that block, fetching it on a miss; writes are flushed to the device
// before returning. Each call may address only one block, callers split
// larger ranges themselves.
//
// An Adapter is not safe for concurrent use. Wrap it in a Locked when it is
// shared.
package flash

import (
	"context"

	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"

	"github.com/OffBroadway/sdflash/pkg/blockdev"
)

// Minimum read and write units, in bytes. The erase unit is the block size.
const (
	ReadSize  = 1
	WriteSize = 1
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for cache and erase diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// Adapter translates flash operations into block transfers.
type Adapter struct {
	dev    blockdev.Device
	geo    Geometry
	cache  *blockCache
	zero   []byte
	logger log.Logger
}

// Stats reports block cache activity.
type Stats struct {
	Hits   uint64
	Misses uint64
	// Block is the resident block, valid when Loaded is set.
	Block  uint32
	Loaded bool
}

// New returns an Adapter over dev. The cache starts empty.
func New(dev blockdev.Device, geo Geometry, opts ...Option) (*Adapter, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if dev.BlockSize() != geo.BlockSize {
		return nil, &Error{Op: "new", Kind: KindOther, Err: ErrInvalidGeometry}
	}
	if n := dev.BlockCount(); n != 0 && geo.Blocks() > n {
		return nil, &Error{Op: "new", Offset: n * uint32(geo.BlockSize), Kind: KindOutOfBounds, Err: ErrInvalidGeometry}
	}

	a := &Adapter{
		dev:    dev,
		geo:    geo,
		zero:   blockdev.AlignedBuffer(geo.BlockSize, geo.Alignment),
		logger: lognoop.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cache = newBlockCache(dev, geo, a.logger)

	return a, nil
}

// Init runs the device handshake. It does not retry; see
// blockdev.InitWithRetry.
func (a *Adapter) Init(ctx context.Context) error {
	a.cache.invalidate()
	if err := a.dev.Init(ctx); err != nil {
		return deviceError("init", 0, err)
	}
	return nil
}

// Capacity returns the number of addressable bytes.
func (a *Adapter) Capacity() int { return a.geo.Capacity }

// ReadSize returns the minimum read unit in bytes.
func (a *Adapter) ReadSize() int { return ReadSize }

// WriteSize returns the minimum write unit in bytes.
func (a *Adapter) WriteSize() int { return WriteSize }

// EraseSize returns the erase unit in bytes, the device block size.
func (a *Adapter) EraseSize() int { return a.geo.BlockSize }

// Geometry returns the geometry the adapter was created with.
func (a *Adapter) Geometry() Geometry { return a.geo }

// Stats returns the block cache counters and the resident block.
func (a *Adapter) Stats() Stats {
	block, loaded := a.cache.resident()
	return Stats{
		Hits:   a.cache.hits,
		Misses: a.cache.misses,
		Block:  block,
		Loaded: loaded,
	}
}

// Read fills out with the bytes starting at offset. The range must lie
// within a single block.
func (a *Adapter) Read(ctx context.Context, offset uint32, out []byte) error {
	index, in, err := a.locate(offset, len(out))
	if err != nil {
		return rangeError("read", offset, err)
	}
	if len(out) == 0 {
		return nil
	}

	buf, err := a.cache.ensureLoaded(ctx, index)
	if err != nil {
		return deviceError("read", offset, err)
	}
	copy(out, buf[in:])

	return nil
}

// Write stores data at offset. The range must lie within a single block.
// The rest of the block is preserved and the block is on the device when
// Write returns.
func (a *Adapter) Write(ctx context.Context, offset uint32, data []byte) error {
	index, in, err := a.locate(offset, len(data))
	if err != nil {
		return rangeError("write", offset, err)
	}
	if len(data) == 0 {
		return nil
	}

	buf, err := a.cache.ensureLoaded(ctx, index)
	if err != nil {
		return deviceError("write", offset, err)
	}
	copy(buf[in:], data)

	if err := a.cache.writeBack(ctx, index); err != nil {
		// the buffer no longer matches the device
		a.cache.invalidate()
		a.logger.Warn("Block write back failed", "block", index, "err", err)
		return deviceError("write", offset, err)
	}

	return nil
}

// Erase zero-fills every block in [from, to). Both bounds must be multiples
// of the block size.
func (a *Adapter) Erase(ctx context.Context, from, to uint32) error {
	bs := uint32(a.geo.BlockSize)

	switch {
	case from > to || uint64(to) > uint64(a.geo.Capacity):
		return rangeError("erase", from, ErrOutOfBounds)
	case from%bs != 0 || to%bs != 0:
		return rangeError("erase", from, ErrNotAligned)
	case from == to:
		return nil
	}

	a.logger.Debug("Erasing blocks", "from", from/bs, "to", to/bs)

	defer a.cache.invalidate()

	for index := from / bs; index < to/bs; index++ {
		if err := ctx.Err(); err != nil {
			return deviceError("erase", index*bs, err)
		}
		if err := a.dev.WriteBlock(ctx, index, a.zero); err != nil {
			return deviceError("erase", index*bs, err)
		}
	}

	return nil
}

// locate checks that n bytes at offset fit in the device and in one block.
func (a *Adapter) locate(offset uint32, n int) (uint32, int, error) {
	if uint64(offset)+uint64(n) > uint64(a.geo.Capacity) {
		return 0, 0, ErrOutOfBounds
	}

	index, in := toBlockIndex(offset, a.geo.BlockSize)
	if in+n > a.geo.BlockSize {
		return 0, 0, ErrSpansBlocks
	}

	return index, in, nil
}
