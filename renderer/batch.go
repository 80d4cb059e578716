package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/settle"
	md "github.com/nao1215/markdown"
)

// BatchMarkdown renders a batch transfer, its payments and accreditations.
func BatchMarkdown(b *settle.Book, t *settle.BatchTransfer) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Batch %s", t.Name))
	doc.Table(md.TableSet{
		Header:    []string{"", ""},
		Alignment: rightAligned(1, 2),
		Rows: [][]string{
			{"State", t.State().String()},
			{"Version", fmt.Sprint(t.Version)},
			{"Date", day(t.Date)},
			{"Transfer", fmt.Sprintf("%s → %s", t.Source, t.Destination)},
			{"Total", t.TotalAmount().String()},
			{"Global Fee", money(t.GlobalFee)},
			{"Global Tax", money(t.GlobalTax)},
			{md.Bold("Final Amount"), md.Bold(t.FinalAmount().String())},
		},
	})

	var payments [][]string
	for _, id := range []string{t.Outbound, t.Inbound} {
		if id == "" {
			continue
		}
		p, err := b.Payment(id)
		if err != nil {
			continue
		}
		payments = append(payments, []string{p.ID, string(p.Type), p.Journal, p.State().String(), p.Amount.String()})
	}
	if len(payments) > 0 {
		doc.H2("Payments")
		doc.Table(md.TableSet{
			Header:    []string{"ID", "Direction", "Journal", "State", "Amount"},
			Alignment: rightAligned(4, 5),
			Rows:      payments,
		})
	}

	doc.H2("Accreditations")
	table := md.TableSet{
		Header:    []string{"ID", "Coupon", "State", "Net"},
		Alignment: rightAligned(3, 4),
	}
	for _, a := range t.Accreditations() {
		table.Rows = append(table.Rows, []string{a.ID, a.DisplayName(), a.State().String(), a.NetAmount().String()})
	}
	doc.Table(table)
	return doc.String()
}
