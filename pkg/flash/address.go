package flash

// toBlockIndex splits a byte offset into the block holding it and the
// offset inside that block.
func toBlockIndex(offset uint32, blockSize int) (index uint32, inBlock int) {
	bs := uint32(blockSize)
	return offset / bs, int(offset % bs)
}
