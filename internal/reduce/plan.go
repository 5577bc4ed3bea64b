package reduce

import "github.com/robert-malhotra/go-stepio/internal/shape"

// plan picks threads per block and the block count for reducing n elements.
//
// threads = min(maxThreads, nextPow2(ceil(n/2))) and
// blocks = ceil(n / (2*threads)). When the grid would exceed the device, the
// block count is halved and the thread count doubled for as long as the
// device allows it; whatever remains is clamped. Blocks are finally clamped
// to maxBlocks; the grid-stride loop keeps the result correct.
func (c *config) plan(n int) (threads, blocks int) {
	dev := c.device
	maxThreads := min(c.maxThreads, dev.MaxThreadsPerBlock())

	threads = min(maxThreads, int(shape.NextPow2(shape.CeilDiv(uint64(n), 2))))
	blocks = int(shape.CeilDiv(uint64(n), uint64(threads*2)))

	for blocks > dev.MaxGridSize() && threads*2 <= dev.MaxThreadsPerBlock() {
		nb := int(shape.CeilDiv(uint64(blocks), 2))
		c.logger.Warnf("reduce: %d blocks exceed grid limit %d of %s, using %d threads x %d blocks",
			blocks, dev.MaxGridSize(), dev.Name(), threads*2, nb)
		threads *= 2
		blocks = nb
	}
	if blocks > dev.MaxGridSize() {
		c.logger.Warnf("reduce: clamping %d blocks to grid limit %d of %s",
			blocks, dev.MaxGridSize(), dev.Name())
		blocks = dev.MaxGridSize()
	}

	blocks = min(blocks, c.maxBlocks)
	return threads, blocks
}
