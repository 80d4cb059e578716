package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/settle/afip"
	md "github.com/nao1215/markdown"
)

// ImportMarkdown renders the analysis of an AFIP import, and the documents it
// produced once processed.
func ImportMarkdown(imp *afip.Import, docs []afip.Document) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	c := imp.Counters
	doc.H1(fmt.Sprintf("Import %s", imp.Name))
	doc.PlainText(fmt.Sprintf("%s of %s into %s: %s", imp.Type, imp.Operation, imp.Journal, imp.State()))
	doc.Table(md.TableSet{
		Header:    []string{"Rows", ""},
		Alignment: rightAligned(1, 2),
		Rows: [][]string{
			{"Total", fmt.Sprint(c.Total)},
			{"Valid", fmt.Sprint(c.Valid)},
			{"Omitted", fmt.Sprint(c.Omitted())},
			{"Too short", fmt.Sprint(c.Short)},
			{"Invalid CUIT", fmt.Sprint(c.InvalidCUIT)},
			{"Zero amount", fmt.Sprint(c.ZeroAmount)},
			{"Duplicates", fmt.Sprint(c.Duplicates)},
			{"New partners", fmt.Sprint(c.NewPartners)},
			{"Created", fmt.Sprint(c.Created)},
			{"Success rate", c.SuccessRate().StringFixed(1) + "%"},
			{"Net", c.Net.StringFixed(2)},
			{"VAT", c.VAT.StringFixed(2)},
			{md.Bold("Amount"), md.Bold(c.Amount.StringFixed(2))},
		},
	})

	if len(imp.Rejected) > 0 {
		doc.H2("Rejected Rows")
		table := md.TableSet{Header: []string{"Line", "Reason"}, Alignment: rightAligned(0, 1)}
		table.Alignment = append(table.Alignment, md.AlignLeft)
		for _, r := range imp.Rejected {
			table.Rows = append(table.Rows, []string{fmt.Sprint(r.Line), r.Reason})
		}
		doc.Table(table)
	}

	if len(docs) > 0 {
		doc.H2("Documents")
		table := md.TableSet{
			Header:    []string{"Name", "Date", "Partner", "Type", "Net", "VAT", "Amount"},
			Alignment: rightAligned(4, 7),
		}
		for _, d := range docs {
			partner := d.Partner
			if d.NewPartner != nil {
				partner = d.NewPartner.Name + " (new)"
			}
			table.Rows = append(table.Rows, []string{d.Name, day(d.Date), partner, d.MoveType, d.Net.StringFixed(2), d.VAT.StringFixed(2), d.Amount.StringFixed(2)})
		}
		doc.Table(table)
	}
	return doc.String()
}
