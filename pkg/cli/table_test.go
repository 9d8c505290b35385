package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NODE", "STATUS")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table wrote %q", buf.String())
	}
}

func TestTable_Rows(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NODE", "STATUS")
	tbl.Row("leaf1", "READY")
	tbl.Row("spine-long-name", "PENDING")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "NODE") || !strings.Contains(lines[0], "STATUS") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "----") {
		t.Errorf("divider = %q", lines[1])
	}
	// Columns are aligned on the widest cell.
	col := strings.Index(lines[3], "PENDING")
	if got := strings.Index(lines[2], "READY"); got != col {
		t.Errorf("READY at column %d, PENDING at %d", got, col)
	}
	if got := strings.Index(lines[0], "STATUS"); got != col {
		t.Errorf("STATUS header at column %d, want %d", got, col)
	}
}

func TestTable_ColoredCells(t *testing.T) {
	withColor(t, true)
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NODE", "STATUS", "DETAILS")
	tbl.Row("leaf1", Green("READY"), "Node synced successfully")
	tbl.Row("spine1", Yellow("PENDING"), "Waiting for sync to start")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	col := strings.Index(lines[0], "DETAILS")
	for _, line := range lines[2:] {
		plain := Strip(line)
		if got := strings.Index(plain, "Node synced"); got != -1 && got != col {
			t.Errorf("details at column %d, want %d: %q", got, col, plain)
		}
		if got := strings.Index(plain, "Waiting"); got != -1 && got != col {
			t.Errorf("details at column %d, want %d: %q", got, col, plain)
		}
	}
}

func TestTable_NoTrailingSpace(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NODE", "STATUS")
	tbl.Row("leaf1", "OK")
	tbl.Row("spine1")
	tbl.Flush()
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if strings.HasSuffix(line, " ") {
			t.Errorf("trailing space in %q", line)
		}
	}
}
