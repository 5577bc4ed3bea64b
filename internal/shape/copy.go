package shape

// CopyOverlap copies the intersection of a source box and a destination box.
//
// src holds the row-major elements of the box (srcStart, srcCount) and dst
// holds the row-major elements of the box (dstStart, dstCount); both boxes are
// expressed in the same global coordinates. Elements outside the
// intersection are left untouched. It returns false when the boxes are
// disjoint. For rank 0 a single element is copied.
func CopyOverlap(
	dst []byte, dstStart, dstCount []uint64,
	src []byte, srcStart, srcCount []uint64,
	elementSize uint64,
) bool {
	ndims := len(dstStart)
	if ndims == 0 {
		copy(dst[:elementSize], src[:elementSize])
		return true
	}

	ovStart, ovCount, ok := Overlap(dstStart, dstCount, srcStart, srcCount)
	if !ok {
		return false
	}

	c := boxCopy{
		dst:        dst,
		src:        src,
		ovStart:    ovStart,
		ovCount:    ovCount,
		dstStart:   dstStart,
		srcStart:   srcStart,
		dstStrides: Strides(dstCount, elementSize),
		srcStrides: Strides(srcCount, elementSize),
	}
	c.run(0, 0, 0)
	return true
}

// Extract returns the box (start, count) of a full row-major array of the
// given dims.
func Extract(data []byte, dims, start, count []uint64, elementSize uint64) []byte {
	n := MustProduct(count)
	out := make([]byte, n*elementSize)
	zero := make([]uint64, len(dims))
	CopyOverlap(out, start, count, data, zero, dims, elementSize)
	return out
}

type boxCopy struct {
	dst, src               []byte
	ovStart, ovCount       []uint64
	dstStart, srcStart     []uint64
	dstStrides, srcStrides []uint64
}

func (c *boxCopy) run(dim int, srcOff, dstOff uint64) {
	last := len(c.ovStart) - 1
	if dim == last {
		// Innermost dimension is contiguous in both buffers.
		n := c.ovCount[dim] * c.srcStrides[dim]
		s := srcOff + (c.ovStart[dim]-c.srcStart[dim])*c.srcStrides[dim]
		d := dstOff + (c.ovStart[dim]-c.dstStart[dim])*c.dstStrides[dim]
		if s+n <= uint64(len(c.src)) && d+n <= uint64(len(c.dst)) {
			copy(c.dst[d:d+n], c.src[s:s+n])
		}
		return
	}

	for i := c.ovStart[dim]; i < c.ovStart[dim]+c.ovCount[dim]; i++ {
		c.run(dim+1,
			srcOff+(i-c.srcStart[dim])*c.srcStrides[dim],
			dstOff+(i-c.dstStart[dim])*c.dstStrides[dim])
	}
}
