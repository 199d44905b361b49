// Package block splits sequences into fixed-size blocks.
//
// Bulk statements bind one parameter per key, and databases cap the number
// of parameters of a single statement. Splitting the keys in blocks of the
// same size lets every full block share one statement, with at most one more
// statement for the remainder:
//
//	b := block.Split(ids, 100)
//	b.Each(func(ids []int64, full bool) error {
//		// full blocks all have len(ids) == 100.
//		return nil
//	})
package block

// Blocks holds the result of Split.
type Blocks[E any] struct {
	// Full are the blocks holding exactly Size elements.
	Full [][]E
	// Remainder holds the trailing elements, empty when the length of the
	// input is a multiple of Size.
	Remainder []E
	// Size is the block size used to split.
	Size int
}

// Split splits items into blocks of size elements. The blocks share the
// backing array of items and preserve their order. A size lower than 1 yields
// a single full block holding every item.
func Split[E any](items []E, size int) Blocks[E] {
	if len(items) == 0 {
		return Blocks[E]{Size: size}
	}
	switch {
	case size < 1 || size == len(items):
		return Blocks[E]{Full: [][]E{items}, Size: len(items)}
	case size > len(items):
		return Blocks[E]{Remainder: items, Size: size}
	}
	b := Blocks[E]{Size: size, Full: make([][]E, 0, len(items)/size)}
	i := 0
	for ; i+size <= len(items); i += size {
		b.Full = append(b.Full, items[i:i+size:i+size])
	}
	if i < len(items) {
		b.Remainder = items[i:]
	}
	return b
}

// Count returns the number of blocks, the remainder included.
func (b Blocks[E]) Count() int {
	n := len(b.Full)
	if len(b.Remainder) > 0 {
		n++
	}
	return n
}

// Len returns the total number of elements.
func (b Blocks[E]) Len() int {
	return len(b.Full)*b.Size + len(b.Remainder)
}

// Each calls fn for every full block and then for the remainder, stopping at
// the first error.
func (b Blocks[E]) Each(fn func(items []E, full bool) error) error {
	for _, items := range b.Full {
		if err := fn(items, true); err != nil {
			return err
		}
	}
	if len(b.Remainder) > 0 {
		return fn(b.Remainder, false)
	}
	return nil
}
