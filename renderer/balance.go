package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/settle"
	"github.com/etnz/settle/date"
	md "github.com/nao1215/markdown"
)

// TrialBalanceMarkdown renders the debit, credit and balance of every
// account with moves.
func TrialBalanceMarkdown(on date.Date, currency string, rows []settle.TrialRow) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Trial Balance on %s", on))
	table := md.TableSet{
		Header:    []string{"Account", "Name", "Type", "Debit", "Credit", "Balance"},
		Alignment: rightAligned(3, 6),
	}
	debit, credit := settle.M(0, currency), settle.M(0, currency)
	for _, r := range rows {
		table.Rows = append(table.Rows, []string{
			r.Account.Code,
			r.Account.Name,
			string(r.Account.Type),
			money(r.Debit),
			money(r.Credit),
			r.Debit.Sub(r.Credit).String(),
		})
		debit, credit = debit.Add(r.Debit), credit.Add(r.Credit)
	}
	table.Rows = append(table.Rows, []string{md.Bold("Total"), "", "", md.Bold(debit.String()), md.Bold(credit.String()), ""})
	doc.Table(table)
	return doc.String()
}

// BalanceMarkdown renders the balance of accounts by code prefix.
func BalanceMarkdown(gl *settle.GeneralLedger, currency string, prefixes ...string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	table := md.TableSet{
		Header:    []string{"Account", "Name", "Balance"},
		Alignment: rightAligned(2, 3),
	}
	for _, p := range prefixes {
		name := ""
		if a, ok := gl.Account(p); ok {
			name = a.Name
		}
		table.Rows = append(table.Rows, []string{p, name, gl.Balance(currency, p).String()})
	}
	doc.Table(table)
	return doc.String()
}
