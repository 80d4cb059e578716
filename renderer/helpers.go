package renderer

import (
	"bytes"
	"io"

	"github.com/etnz/settle"
	"github.com/etnz/settle/date"
	md "github.com/nao1215/markdown"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// money formats an amount, an empty cell for zero.
func money(m settle.Money) string {
	if m.IsZero() {
		return ""
	}
	return m.String()
}

// day formats a date, an empty cell for the zero date.
func day(d date.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// rightAligned returns the alignment of a table whose first n columns are
// text and the others amounts.
func rightAligned(n, columns int) []md.TableAlignment {
	a := make([]md.TableAlignment, columns)
	for i := range a {
		if i < n {
			a[i] = md.AlignLeft
		} else {
			a[i] = md.AlignRight
		}
	}
	return a
}
