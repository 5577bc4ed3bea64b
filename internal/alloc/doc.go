// Package alloc provides budgeted memory allocation for selection buffers
// and reduction scratch space.
//
// The [Allocator] type wraps an Apache Arrow memory.Allocator and adds:
//
//   - A byte limit: requests that would push the bytes in use past the
//     limit fail with an error wrapping status.ErrOutOfMemory and hand out
//     nothing.
//   - Statistics: allocation counts, bytes allocated and freed, the largest
//     single allocation and the peak bytes in use.
//
// # Usage
//
//	a := alloc.New(alloc.WithLimit(64 << 20))
//	buf, err := a.Alloc(4096)
//	if err != nil {
//	    return err
//	}
//	defer a.Free(buf)
//
// Wrapping a memory.CheckedAllocator makes leaks visible in tests:
//
//	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
//	a := alloc.New(alloc.WithMemory(mem))
//	...
//	mem.AssertSize(t, 0)
package alloc
