package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/settle"
	md "github.com/nao1215/markdown"
)

// AccreditationsMarkdown renders a list of accreditations with their totals.
func AccreditationsMarkdown(title string, accs []*settle.Accreditation) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(title)
	if len(accs) == 0 {
		doc.PlainText("No accreditations.")
		return doc.String()
	}

	table := md.TableSet{
		Header:    []string{"ID", "Collected", "Coupon", "State", "Batch", "Amount", "Fee", "Financial Cost", "Deductions", "Net", "Expected"},
		Alignment: rightAligned(5, 11),
	}
	totals := make(map[string][4]settle.Money) // currency -> amount, fee, cost, net
	var currencies []string
	for _, a := range accs {
		table.Rows = append(table.Rows, []string{
			a.ID,
			day(a.CollectionDate),
			a.DisplayName(),
			a.State().String(),
			a.Batch,
			a.Amount.String(),
			money(a.Fee),
			money(a.FinancialCost),
			money(a.TotalTaxDeductions()),
			a.NetAmount().String(),
			day(a.EstimatedDate),
		})
		if a.State() == settle.AccreditationReversed {
			continue
		}
		cur := a.Currency()
		t, ok := totals[cur]
		if !ok {
			currencies = append(currencies, cur)
		}
		t[0], t[1], t[2], t[3] = t[0].Add(a.Amount), t[1].Add(a.Fee), t[2].Add(a.FinancialCost), t[3].Add(a.NetAmount())
		totals[cur] = t
	}
	for _, cur := range currencies {
		t := totals[cur]
		table.Rows = append(table.Rows, []string{
			md.Bold("Total " + cur), "", "", "", "",
			md.Bold(t[0].String()), money(t[1]), money(t[2]), "", md.Bold(t[3].String()), "",
		})
	}
	doc.Table(table)
	doc.PlainText(fmt.Sprintf("%d accreditations", len(accs)))
	return doc.String()
}

// AccreditationMarkdown renders one accreditation and its deductions.
func AccreditationMarkdown(a *settle.Accreditation) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("%s %s", a.ID, a.DisplayName()))
	doc.Table(md.TableSet{
		Header:    []string{"", ""},
		Alignment: rightAligned(1, 2),
		Rows: [][]string{
			{"State", a.State().String()},
			{"Plan", a.Plan},
			{"Collected", day(a.CollectionDate)},
			{"Amount", a.Amount.String()},
			{"Fee", a.Fee.String()},
			{"Financial Cost", a.FinancialCost.String()},
			{"Tax Deductions", a.TotalTaxDeductions().String()},
			{md.Bold("Net"), md.Bold(a.NetAmount().String())},
			{"Expected", day(a.EstimatedDate)},
			{"Credited", day(a.ActualDate)},
		},
	})
	if len(a.Deductions) > 0 {
		doc.H2("Tax Deductions")
		table := md.TableSet{
			Header:    []string{"ID", "Name", "Account", "State", "Base", "Rate", "Amount"},
			Alignment: rightAligned(4, 7),
		}
		for _, d := range a.Deductions {
			table.Rows = append(table.Rows, []string{d.ID, d.Name, d.Account, d.State().String(), d.Base.String(), d.Percentage.String(), d.Amount.String()})
		}
		doc.Table(table)
	}
	if a.Notes != "" {
		doc.Blockquote(a.Notes)
	}
	return doc.String()
}
