package settle

import (
	"github.com/etnz/settle/afip"
	"github.com/etnz/settle/partner"
)

// InvoiceCommands turns the documents of a processed AFIP import into
// invoice commands for the journal. The first document of a new partner
// creates it.
func InvoiceCommands(journal string, docs []afip.Document) []Command {
	cmds := make([]Command, 0, len(docs))
	for _, doc := range docs {
		c := RecordInvoice{
			baseCmd:  baseCmd{Command: CmdInvoice, Date: doc.Date},
			Name:     doc.Name,
			Ref:      doc.Ref,
			MoveType: doc.MoveType,
			Partner:  doc.Partner,
			Journal:  journal,
			Label:    doc.Label,
			Net:      M(doc.Net, doc.Currency),
			VAT:      doc.VAT,
		}
		if np := doc.NewPartner; np != nil {
			p := partner.Partner{Name: np.Name, VAT: np.VAT}
			if np.Customer {
				p.CustomerRank = 1
			}
			if np.Supplier {
				p.SupplierRank = 1
			}
			c.NewPartner = &p
		}
		cmds = append(cmds, c)
	}
	return cmds
}
