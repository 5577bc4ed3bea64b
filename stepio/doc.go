/*
Package stepio reads and writes step-indexed, typed N-D variables.

A variable has an element type, a rank of at most MaxRank and a global
shape that may change between steps. A Writer puts blocks of a variable
into a step of a Memory store. Each block is split into chunks, reduced
to its min and max, and run through the variable's compression operators.
A Reader resolves a hyperslab replicated across a run of the variable's
steps. It allocates one buffer, issues one engine fetch and decodes the
result into a typed slice.

	m := stepio.NewMemory()
	w := stepio.NewWriter(m)
	w.DefineVariable("temperature", stepio.Float64, []uint64{100, 100},
		stepio.WithChunks(50, 50),
		stepio.WithOperation("deflate", stepio.Params{"level": "6"}))
	w.BeginStep()
	w.Put("temperature", data)
	w.EndStep()

	r := stepio.Open(m)
	vals, err := stepio.Read[float64](r, "temperature",
		[]uint64{10, 10}, []uint64{5, 5}, 0, 1)

Every error wraps one of the package's sentinel errors; CodeOf maps it to a
stable numeric Code.
*/
package stepio
