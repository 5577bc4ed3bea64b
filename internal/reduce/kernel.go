package reduce

import "golang.org/x/sync/errgroup"

// lane is the register file of one worker: a partial value and whether it
// has seen any element yet. Lanes without elements are masked out of every
// combine, so no identity value is needed.
type lane[T any] struct {
	v  T
	ok bool
}

func (l lane[T]) merge(o lane[T], combine func(a, b T) T) lane[T] {
	switch {
	case !o.ok:
		return l
	case !l.ok:
		return o
	}
	return lane[T]{v: combine(l.v, o.v), ok: true}
}

// launch reduces in[:n] to one partial value per block, written to out.
func launch[T any](c *config, in, out []T, n, threads, blocks int, combine func(a, b T) T) error {
	dev := c.device
	k := kernel[T]{
		in:       in,
		n:        n,
		threads:  threads,
		gridSize: 2 * threads * blocks,
		subgroup: min(dev.SubgroupSize(), threads),
		pow2:     isPow2Launch(n, threads),
		combine:  combine,
	}

	var g errgroup.Group
	g.SetLimit(max(1, dev.Concurrency()))
	for b := 0; b < blocks; b++ {
		g.Go(func() error {
			out[b] = k.block(b)
			return nil
		})
	}
	return g.Wait()
}

type kernel[T any] struct {
	in       []T
	n        int
	threads  int
	gridSize int
	subgroup int
	pow2     bool
	combine  func(a, b T) T
}

// block runs one worker block and returns its partial result. Every block
// launched by plan owns at least one element, so the result is always valid.
func (k *kernel[T]) block(b int) T {
	lanes := make([]lane[T], k.threads)

	// Phase 1: grid-stride loop. Each thread folds pairs of elements spaced
	// threads apart, then jumps by the whole grid.
	for tid := range lanes {
		var acc lane[T]
		for i := b*2*k.threads + tid; i < k.n; i += k.gridSize {
			acc = acc.merge(lane[T]{v: k.in[i], ok: true}, k.combine)
			if k.pow2 || i+k.threads < k.n {
				acc = acc.merge(lane[T]{v: k.in[i+k.threads], ok: true}, k.combine)
			}
		}
		lanes[tid] = acc
	}

	// Phase 2: every subgroup reduces its lanes with shuffle-down steps and
	// its first lane publishes to scratch.
	nsub := k.threads / k.subgroup
	scratch := make([]lane[T], nsub+1)
	for s := 0; s < nsub; s++ {
		scratch[s] = k.shuffleReduce(lanes[s*k.subgroup : (s+1)*k.subgroup])
	}

	// Phase 3: after the barrier the first subgroup loads scratch, striding
	// when there are more subgroups than lanes, and reduces it the same way.
	first := lanes[:k.subgroup]
	for l := range first {
		var acc lane[T]
		for s := l; s < nsub; s += k.subgroup {
			acc = acc.merge(scratch[s], k.combine)
		}
		first[l] = acc
	}
	return k.shuffleReduce(first).v
}

// shuffleReduce combines a subgroup by halving the active lane count each
// round: lane l takes the value of lane l+offset for offset = size/2 .. 1.
func (k *kernel[T]) shuffleReduce(lanes []lane[T]) lane[T] {
	for offset := len(lanes) / 2; offset > 0; offset /= 2 {
		for l := 0; l < offset; l++ {
			lanes[l] = lanes[l].merge(lanes[l+offset], k.combine)
		}
	}
	return lanes[0]
}
