package ir

// Plan is the result of the layout fixed point: the program with a
// final byte offset and encoded size for every item, the resolved label
// table, and the set of instructions chosen for compression.
type Plan struct {
	Prog       *Program
	Offsets    []int64
	Sizes      []int64
	Compressed []bool
	Labels     map[string]int64
	Total      int64
}
