// Package reduce implements parallel tree reductions over typed buffers.
//
// A reduction is a sequence of kernel launches. The first launch folds the
// input into one partial value per block; every following launch folds the
// previous partials, until at most the final threshold remain and the host
// combines them. Blocks run on a Device, by default a CPU device that maps
// blocks to goroutines and subgroups to the width of the host vector unit.
//
// Launch geometry:
//
//	threads = min(maxThreads, nextPow2(ceil(n/2)))
//	blocks  = min(maxBlocks, ceil(n / (2*threads)))
//
// Inside a block each thread walks a grid-stride loop loading two elements
// per step, subgroups combine with shuffle-down rounds, and the first
// subgroup combines the per-subgroup results. Lanes that saw no element are
// masked, so operators need no identity value.
//
// Min and max are exact for every ordered element type. Complex, boolean
// and extended precision buffers are rejected with status.ErrUnsupportedType.
package reduce
