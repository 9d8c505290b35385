package cli

import (
	"fmt"
	"io"
	"strings"
)

// columnGap separates table columns.
const columnGap = 2

// Table buffers rows and writes them column-aligned on Flush. Widths are
// measured without ANSI color, so colored cells line up with plain ones.
// Empty tables produce no output.
type Table struct {
	out     io.Writer
	headers []string
	rows    [][]string
}

// NewTableTo creates a table that writes to w.
func NewTableTo(w io.Writer, headers ...string) *Table {
	return &Table{out: w, headers: headers}
}

// Row adds a row. Missing trailing cells are left blank.
func (t *Table) Row(values ...string) {
	t.rows = append(t.rows, values)
}

// Flush writes the header, a dash divider and the buffered rows.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = Width(h)
	}
	for _, r := range t.rows {
		for i, v := range r {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := Width(v); w > widths[i] {
				widths[i] = w
			}
		}
	}

	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", Width(h))
	}
	t.line(widths, t.headers)
	t.line(widths, dividers)
	for _, r := range t.rows {
		t.line(widths, r)
	}
	t.rows = nil
}

func (t *Table) line(widths []int, cells []string) {
	var b strings.Builder
	for i, v := range cells {
		b.WriteString(v)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-Width(v)+columnGap))
		}
	}
	fmt.Fprintln(t.out, b.String())
}
