package reduce

import (
	"fmt"
	"unsafe"

	"github.com/robert-malhotra/go-stepio/internal/status"
)

// Reduce folds values with op using a hierarchical tree reduction on the
// configured device. The call blocks until the final host combine is done.
// All device buffers are released before it returns.
func Reduce[T Number](values []T, op Op[T], opts ...Option) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("reduce %s over empty buffer: %w", op.Name, status.ErrInvalidArgument)
	}
	if op.Combine == nil {
		return zero, fmt.Errorf("reduce: operator %q has no combine function: %w", op.Name, status.ErrInvalidArgument)
	}

	c := newConfig(opts)
	n := len(values)
	threads, blocks := c.plan(n)

	// Two partial buffers, ping-ponged between levels so no block reads a
	// slot another block writes in the same launch.
	src, freeSrc, err := deviceSlice[T](c, blocks)
	if err != nil {
		return zero, err
	}
	defer freeSrc()
	dst, freeDst, err := deviceSlice[T](c, blocks)
	if err != nil {
		return zero, err
	}
	defer freeDst()

	c.report(Launch{Level: 0, N: n, Threads: threads, Blocks: blocks})
	if err := launch(c, values, src, n, threads, blocks, op.Combine); err != nil {
		return zero, err
	}

	s := blocks
	for level := 1; s > c.finalThreshold; level++ {
		threads, blocks = c.plan(s)
		c.report(Launch{Level: level, N: s, Threads: threads, Blocks: blocks})
		if err := launch(c, src, dst, s, threads, blocks, op.Combine); err != nil {
			return zero, err
		}
		s = blocks
		src, dst = dst, src
	}

	result := src[0]
	for i := 1; i < s; i++ {
		result = op.Combine(result, src[i])
	}
	return result, nil
}

func (c *config) report(l Launch) {
	if c.observe == nil {
		return
	}
	l.Pow2 = isPow2Launch(l.N, l.Threads)
	c.observe(l)
}

// isPow2Launch reports whether a launch may skip bounds checks: every
// thread's second load is in range when 2*threads divides a power-of-two n.
func isPow2Launch(n, threads int) bool {
	return n > 0 && n&(n-1) == 0 && n%(2*threads) == 0
}

// deviceSlice allocates n elements of T in device memory.
func deviceSlice[T any](c *config, n int) ([]T, func(), error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	raw, err := c.device.Alloc(n * size)
	if err != nil {
		if c.abort {
			panic(err)
		}
		return nil, nil, err
	}
	free := func() { c.device.Free(raw) }
	if size == 0 || n == 0 {
		return make([]T, n), free, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(raw))), n), free, nil
}
