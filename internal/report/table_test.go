package report

import (
	"strings"
	"testing"
)

func TestTableViewEmpty(t *testing.T) {
	tbl := NewTable("Empty", "A", "B")
	if got := tbl.View(DefaultStyles()); got != "" {
		t.Errorf("empty table should render nothing, got %q", got)
	}
}

func TestTableViewContent(t *testing.T) {
	tbl := NewTable("Weekly Trends", "Week", "Spend")
	tbl.AddRow("2024-03-10", "$25.00")
	tbl.AddRow("2024-03-03", "$22.40")

	out := tbl.View(DefaultStyles())
	for _, want := range []string{"Weekly Trends", "Week", "Spend", "2024-03-10", "$22.40", "|"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// Title, header, divider, two rows.
	if len(lines) != 5 {
		t.Errorf("expected 5 lines, got %d:\n%s", len(lines), out)
	}
}

func TestTableRowOrderPreserved(t *testing.T) {
	tbl := NewTable("", "K")
	tbl.AddRow("zz")
	tbl.AddRow("aa")

	out := tbl.View(DefaultStyles())
	if strings.Index(out, "zz") > strings.Index(out, "aa") {
		t.Error("rows must render in insertion order")
	}
}
