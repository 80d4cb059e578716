package renderer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/settle/date"
	"github.com/etnz/settle/kpi"
	md "github.com/nao1215/markdown"
)

var levelMarks = map[kpi.Level]string{
	kpi.Safe:    "",
	kpi.Warning: "⚠️",
	kpi.Danger:  "🔴",
}

// DashboardMarkdown renders the dashboard cells, then the cells that are out
// of their safe zone.
func DashboardMarkdown(on date.Date, results []kpi.Result) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Dashboard on %s", on))
	table := md.TableSet{
		Header:    []string{"Indicator", "Value", "Target", "Range", ""},
		Alignment: rightAligned(1, 5),
	}
	for _, r := range results {
		target, rng := "", ""
		if r.TargetPercentage != nil {
			target = r.TargetPercentage.StringFixed(0) + "%"
		}
		if r.Min != nil && r.Max != nil {
			rng = fmt.Sprintf("%s…%s", r.Min.StringFixed(2), r.Max.StringFixed(2))
		}
		table.Rows = append(table.Rows, []string{r.Cell.DisplayLabel(), r.Text, target, rng, levelMarks[r.Level]})
	}
	doc.Table(table)

	var b strings.Builder
	b.WriteString(doc.String())
	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "\n## Warnings\n\n")
		warned := false
		for _, r := range results {
			if !r.Warn() && r.Err == nil {
				continue
			}
			warned = true
			fmt.Fprintf(w, "- %s: %s (%s)\n", r.Cell.DisplayLabel(), r.Text, r.Tooltip)
		}
		return warned
	})
	return b.String()
}
