package flash

import (
	"context"

	log "github.com/fclairamb/go-log"

	"github.com/OffBroadway/sdflash/pkg/blockdev"
)

// blockCache keeps the contents of at most one device block.
//
// When loaded is set, buf holds exactly what block index contained at the
// last successful fetch or write back. Fetches land in spare and are
// swapped in only on success, so a failed fetch leaves the resident block
// intact.
type blockCache struct {
	dev    blockdev.Device
	logger log.Logger

	loaded bool
	index  uint32
	buf    []byte
	spare  []byte

	hits   uint64
	misses uint64
}

func newBlockCache(dev blockdev.Device, geo Geometry, logger log.Logger) *blockCache {
	return &blockCache{
		dev:    dev,
		logger: logger,
		buf:    blockdev.AlignedBuffer(geo.BlockSize, geo.Alignment),
		spare:  blockdev.AlignedBuffer(geo.BlockSize, geo.Alignment),
	}
}

// ensureLoaded returns the buffer holding block index, fetching it from
// the device on a miss.
func (c *blockCache) ensureLoaded(ctx context.Context, index uint32) ([]byte, error) {
	if c.loaded && c.index == index {
		c.hits++
		return c.buf, nil
	}

	c.misses++
	c.logger.Debug("Block cache miss", "block", index)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.dev.ReadBlock(ctx, index, c.spare); err != nil {
		return nil, err
	}

	c.buf, c.spare = c.spare, c.buf
	c.index = index
	c.loaded = true

	return c.buf, nil
}

// writeBack flushes the resident buffer to block index.
func (c *blockCache) writeBack(ctx context.Context, index uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.dev.WriteBlock(ctx, index, c.buf)
}

func (c *blockCache) invalidate() {
	c.loaded = false
}

// resident returns the cached block index, if any.
func (c *blockCache) resident() (uint32, bool) {
	return c.index, c.loaded
}
