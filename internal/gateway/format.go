package gateway

import (
	"fmt"
	"strings"
)

// maxRenderedRows bounds the rows included in the rendered table; the full
// result stays available in the structured response.
const maxRenderedRows = 20

// Render formats the result as markdown for the chat surface. The row-level
// restriction notice is always included so filtering is visible to the end
// user, never silent.
func (r Result) Render() string {
	if !r.Allowed {
		return "Request refused: " + r.Reason
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Query returned %d row(s).\n", len(r.Rows))
	if r.Notice != "" {
		b.WriteString("\n" + r.Notice + "\n")
	}
	for _, warning := range r.Warnings {
		b.WriteString("\n" + warning + "\n")
	}
	if len(r.Columns) == 0 {
		return b.String()
	}

	b.WriteString("\n| " + strings.Join(r.Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(r.Columns)) + "\n")

	shown := len(r.Rows)
	if shown > maxRenderedRows {
		shown = maxRenderedRows
	}
	for _, row := range r.Rows[:shown] {
		cells := make([]string, len(r.Columns))
		for i := range r.Columns {
			if i < len(row) && row[i] != nil {
				cells[i] = fmt.Sprintf("%v", row[i])
			}
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	if len(r.Rows) > shown {
		fmt.Fprintf(&b, "\n... and %d more rows\n", len(r.Rows)-shown)
	}
	return b.String()
}
