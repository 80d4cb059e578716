package settle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/settle/date"
)

// Invoice is a posted customer invoice or vendor bill.
type Invoice struct {
	ID       string
	Name     string
	Ref      string
	MoveType string // out_invoice, out_refund, in_invoice or in_refund
	Partner  string
	Journal  string
	Date     date.Date
	Due      date.Date
	Lines    []InvoiceLine
	Move     string
	// Accreditations billed by a fee invoice.
	Accreditations []string
}

// InvoiceLine is an untaxed amount, or a tax amount, on an account.
type InvoiceLine struct {
	Account string
	Label   string
	Amount  Money
}

// IsSale reports whether the invoice is a customer document.
func (inv *Invoice) IsSale() bool { return strings.HasPrefix(inv.MoveType, "out_") }

// IsRefund reports whether the invoice is a credit note.
func (inv *Invoice) IsRefund() bool { return strings.HasSuffix(inv.MoveType, "_refund") }

// Total sums the invoice lines.
func (inv *Invoice) Total() Money {
	var total Money
	for _, l := range inv.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// postInvoice books an invoice against the partner receivable or payable
// account.
func (b *Book) postInvoice(inv *Invoice) error {
	switch inv.MoveType {
	case "out_invoice", "out_refund", "in_invoice", "in_refund":
	default:
		return fmt.Errorf("unknown move type %q: %w", inv.MoveType, ErrInvalid)
	}
	if len(inv.Lines) == 0 {
		return fmt.Errorf("invoice %s has no lines: %w", inv.Name, ErrInvalid)
	}
	j, err := b.settings.Journal(inv.Journal)
	if err != nil {
		return err
	}
	if err := b.dir.CheckMove(j.Restriction(), inv.MoveType, inv.Partner); err != nil {
		return fmt.Errorf("%w: %w", err, ErrInvalid)
	}
	counterpart, err := b.partnerAccount(inv.Partner, inv.IsSale())
	if err != nil {
		return err
	}
	// customer invoices and vendor refunds debit the partner.
	debitPartner := inv.IsSale() != inv.IsRefund()
	total := inv.Total()
	lines := make([]Line, 0, len(inv.Lines)+1)
	if debitPartner {
		lines = append(lines, DebitLine(counterpart, inv.Partner, total, inv.Name))
	}
	for _, l := range inv.Lines {
		if debitPartner {
			lines = append(lines, CreditLine(l.Account, inv.Partner, l.Amount, l.Label))
		} else {
			lines = append(lines, DebitLine(l.Account, inv.Partner, l.Amount, l.Label))
		}
	}
	if !debitPartner {
		lines = append(lines, CreditLine(counterpart, inv.Partner, total, inv.Name))
	}
	if inv.ID == "" {
		inv.ID = b.next("INV")
	}
	m, err := NewMove(inv.ID, inv.Date, inv.Journal, inv.Name, lines...)
	if err != nil {
		return err
	}
	if err := b.gl.Post(m); err != nil {
		return err
	}
	if inv.Due.IsZero() {
		inv.Due = inv.Date.Add(b.settings.PaymentTermDays)
	}
	inv.Move = m.ID()
	b.invoices = append(b.invoices, inv)
	b.invByID[inv.ID] = inv
	return nil
}

// HasDocument reports whether the partner already has an invoice with this
// name or reference.
func (b *Book) HasDocument(partner, ref string) bool {
	for _, inv := range b.invoices {
		if inv.Partner == partner && (inv.Name == ref || inv.Ref == ref) {
			return true
		}
	}
	return false
}

// PartnerByVAT returns the name of the partner with this tax id.
func (b *Book) PartnerByVAT(vat string) (string, bool) {
	p, ok := b.dir.ByVAT(vat)
	return p.Name, ok
}

// expenseAccount returns the account fees are billed to: the plan account,
// or the first expense account with a 6, 62 or 65 code.
func (b *Book) expenseAccount(planAccount string) (string, error) {
	if planAccount != "" {
		return planAccount, nil
	}
	if a, ok := b.settings.firstAccount(ExpenseAccount, "62", "65", "6"); ok {
		return a.Code, nil
	}
	return "", fmt.Errorf("no expense account configured for card fees: %w", ErrNotFound)
}

// invoiceFees bills the card processor for the fees, and optionally the
// financial costs, of accreditations not invoiced yet.
func (b *Book) invoiceFees(ids []string, financialCost bool) (*Invoice, error) {
	inv := &Invoice{
		MoveType: "in_invoice",
		Journal:  b.settings.PurchaseJournal,
		Date:     b.on,
	}
	var fees, costs []*Accreditation
	for _, id := range ids {
		a, err := b.Accreditation(id)
		if err != nil {
			return nil, err
		}
		j, err := b.cardJournal(a.Journal)
		if err != nil {
			return nil, err
		}
		if j.Processor == "" {
			return nil, fmt.Errorf("journal %q has no card processor partner: %w", j.Code, ErrInvalid)
		}
		if inv.Partner != "" && inv.Partner != j.Processor {
			return nil, fmt.Errorf("accreditations are billed by different processors %s and %s: %w", inv.Partner, j.Processor, ErrInvalid)
		}
		inv.Partner = j.Processor
		billed := len(inv.Lines)
		plan, err := b.settings.Plan(a.Plan)
		if err != nil {
			return nil, err
		}
		if !a.FeeInvoiced && a.Fee.IsPositive() {
			acc, err := b.expenseAccount(plan.FeeAccount)
			if err != nil {
				return nil, err
			}
			inv.Lines = append(inv.Lines, InvoiceLine{Account: acc, Label: "Card fee - " + a.DisplayName(), Amount: a.Fee})
			fees = append(fees, a)
		}
		if financialCost && !a.FinancialCostInvoiced && a.FinancialCost.IsPositive() {
			acc, err := b.expenseAccount(plan.FinancialCostAccount)
			if err != nil {
				return nil, err
			}
			inv.Lines = append(inv.Lines, InvoiceLine{Account: acc, Label: "Card financial cost - " + a.DisplayName(), Amount: a.FinancialCost})
			costs = append(costs, a)
		}
		if len(inv.Lines) > billed {
			inv.Accreditations = append(inv.Accreditations, a.ID)
		}
	}
	if len(inv.Lines) == 0 {
		return nil, fmt.Errorf("nothing left to invoice: %w", ErrInvalid)
	}
	inv.Name = b.next("BILL/" + strconv.Itoa(b.on.Year()))
	if err := b.postInvoice(inv); err != nil {
		return nil, err
	}
	for _, a := range fees {
		a.FeeInvoiced = true
	}
	for _, a := range costs {
		a.FinancialCostInvoiced = true
	}
	return inv, nil
}
