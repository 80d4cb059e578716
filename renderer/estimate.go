package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/settle"
	"github.com/etnz/settle/date"
	md "github.com/nao1215/markdown"
)

// EstimateMarkdown renders what a card plan will credit for a coupon, and
// when.
func EstimateMarkdown(p settle.Plan, amount settle.Money, collected, expected date.Date) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Plan %s", p.Name))
	doc.Table(md.TableSet{
		Header:    []string{md.Bold("Amount"), md.Bold(amount.String())},
		Alignment: rightAligned(1, 2),
		Rows: [][]string{
			{fmt.Sprintf("Fee (%s)", settle.Pct(p.FeePercentage)), p.Fee(amount).Round().String()},
			{fmt.Sprintf("Financial Cost (%s)", settle.Pct(p.FinancialCostPercentage)), p.FinancialCost(amount).Round().String()},
			{md.Bold("Estimated Net"), md.Bold(p.EstimatedAmount(amount).Round().String())},
			{"Collected", collected.String()},
			{"Expected", expected.String()},
		},
	})
	return doc.String()
}
