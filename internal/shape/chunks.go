package shape

// Box is a rectangular region in global coordinates.
type Box struct {
	Start []uint64
	Count []uint64
}

// Chunks splits the box (start, count) into sub-boxes aligned to a regular
// grid of chunkDims, visiting them in row-major order. A nil or mismatched
// chunkDims yields the box itself. An empty box yields no chunks.
func Chunks(start, count []uint64, chunkDims []uint64) []Box {
	ndims := len(start)
	if len(count) != ndims {
		return nil
	}
	for _, c := range count {
		if c == 0 {
			return nil
		}
	}
	if ndims == 0 || len(chunkDims) != ndims {
		return []Box{{Start: start, Count: count}}
	}
	for _, c := range chunkDims {
		if c == 0 {
			return []Box{{Start: start, Count: count}}
		}
	}

	// First and last grid index touched in each dimension.
	first := make([]uint64, ndims)
	last := make([]uint64, ndims)
	for d := 0; d < ndims; d++ {
		first[d] = start[d] / chunkDims[d]
		last[d] = (start[d] + count[d] - 1) / chunkDims[d]
	}

	var boxes []Box
	idx := append([]uint64(nil), first...)
	for {
		cs := make([]uint64, ndims)
		cc := make([]uint64, ndims)
		for d := 0; d < ndims; d++ {
			lo := max(idx[d]*chunkDims[d], start[d])
			hi := min((idx[d]+1)*chunkDims[d], start[d]+count[d])
			cs[d], cc[d] = lo, hi-lo
		}
		boxes = append(boxes, Box{Start: cs, Count: cc})

		// Odometer increment, last dimension fastest.
		d := ndims - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] <= last[d] {
				break
			}
			idx[d] = first[d]
		}
		if d < 0 {
			return boxes
		}
	}
}
