package sql

import "strings"

const (
	mark = "?, "
	// Pre-sized groups of placeholders. Building a list concatenates as few
	// groups as possible instead of writing one mark at a time.
	hundredMarks = mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark +
		mark + mark + mark + mark + mark + mark + mark + mark + mark + mark
	tenMarks = mark + mark + mark + mark + mark + mark + mark + mark + mark + mark
)

// Placeholders returns n comma separated placeholders ("?, ?, ?").
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n * len(mark))
	writeMarks(&b, n)
	s := b.String()
	return s[:len(s)-len(", ")]
}

// InPlaceholders returns an "in" operator with exactly n placeholders:
// "in (?, ?, ?)".
func InPlaceholders(n int) string {
	if n <= 0 {
		return "in ()"
	}
	var b strings.Builder
	b.Grow(len("in (") + n*len(mark))
	b.WriteString("in (")
	writeMarks(&b, n)
	s := b.String()
	return s[:len(s)-len(", ")] + ")"
}

func writeMarks(b *strings.Builder, n int) {
	for ; n >= 100; n -= 100 {
		b.WriteString(hundredMarks)
	}
	for ; n >= 10; n -= 10 {
		b.WriteString(tenMarks)
	}
	for ; n > 0; n-- {
		b.WriteString(mark)
	}
}
