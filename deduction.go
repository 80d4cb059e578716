package settle

import (
	"fmt"
	"slices"

	"github.com/etnz/settle/date"
)

// TaxDeduction is a tax withheld by the card processor on an accreditation.
type TaxDeduction struct {
	ID            string
	Accreditation string
	Name          string
	Account       string // tax account
	Base          Money
	Percentage    Percent
	Amount        Money
	Applied       date.Date
	Move          string

	state DeductionState
}

// State returns the deduction state.
func (d *TaxDeduction) State() DeductionState { return d.state }

func (d *TaxDeduction) transition(to DeductionState) error {
	if !d.state.CanTransition(to) {
		return &TransitionError{Entity: "tax deduction", ID: d.ID, From: d.state, To: to}
	}
	d.state = to
	return nil
}

// deduct adds a draft deduction to an accreditation. The amount is computed
// from the percentage when one is given.
func (b *Book) deduct(a *Accreditation, name, account string, base Money, pct Percent, amount Money) (*TaxDeduction, error) {
	if a.state == AccreditationReversed {
		return nil, fmt.Errorf("accreditation %s is reversed: %w", a.ID, ErrInvalid)
	}
	if _, ok := b.gl.Account(account); !ok {
		return nil, fmt.Errorf("tax account %q: %w", account, ErrNotFound)
	}
	if pct.IsNegative() || pct.Decimal().GreaterThan(hundred) {
		return nil, fmt.Errorf("percentage must be between 0 and 100, got %s: %w", pct, ErrInvalid)
	}
	if base.IsZero() {
		base = a.Amount
	}
	base = b.withCurrency(base)
	if !pct.IsZero() {
		amount = base.MulPercent(pct).Round()
	}
	amount = b.withCurrency(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("deduction amount must be positive, got %s: %w", amount, ErrInvalid)
	}
	if amount.GreaterThan(a.Amount) {
		return nil, fmt.Errorf("deduction amount %s cannot exceed the accreditation amount %s: %w", amount, a.Amount, ErrInvalid)
	}
	d := &TaxDeduction{
		ID:            b.next("TAX"),
		Accreditation: a.ID,
		Name:          name,
		Account:       account,
		Base:          base,
		Percentage:    pct,
		Amount:        amount,
	}
	a.Deductions = append(a.Deductions, d)
	b.deductions[d.ID] = d
	return d, nil
}

// applyTemplate adds one deduction per template line, on the original
// amount.
func (b *Book) applyTemplate(a *Accreditation, t TaxTemplate) ([]*TaxDeduction, error) {
	if len(t.Lines) == 0 {
		return nil, fmt.Errorf("no tax lines configured in template %q: %w", t.Name, ErrInvalid)
	}
	var result []*TaxDeduction
	for _, l := range t.Lines {
		d, err := b.deduct(a, t.Name+" - "+l.Name, l.Account, a.Amount, Pct(l.Percentage), Money{})
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// postDeduction books a confirmed deduction: the tax account is debited and
// the card journal outstanding payments account credited.
func (b *Book) postDeduction(d *TaxDeduction) error {
	if d.state != DeductionConfirmed {
		return fmt.Errorf("tax deduction %s is %s, only confirmed deductions can be posted: %w", d.ID, d.state, ErrInvalid)
	}
	a, err := b.Accreditation(d.Accreditation)
	if err != nil {
		return err
	}
	if a.Payment != "" {
		p, err := b.Payment(a.Payment)
		if err != nil {
			return err
		}
		if p.state == PaymentDraft {
			return fmt.Errorf("payment %s must be confirmed before applying tax deductions: %w", p.ID, ErrInvalid)
		}
	}
	j, err := b.settings.Journal(a.Journal)
	if err != nil {
		return err
	}
	label := "Tax Deduction: " + d.Name
	m, err := NewMove(d.ID, b.on, j.Code, label,
		DebitLine(d.Account, a.Partner, d.Amount, label),
		CreditLine(j.outstanding(false, true), a.Partner, d.Amount, "Tax Deduction Applied: "+d.Name),
	)
	if err != nil {
		return err
	}
	if err := b.gl.Post(m); err != nil {
		return err
	}
	d.Move = m.ID()
	d.Applied = b.on
	return d.transition(DeductionPosted)
}

// confirmDeduction is for draft deductions only.
func (b *Book) confirmDeduction(d *TaxDeduction) error {
	if d.state != DeductionDraft {
		return fmt.Errorf("tax deduction %s is %s, only draft deductions can be confirmed: %w", d.ID, d.state, ErrInvalid)
	}
	return d.transition(DeductionConfirmed)
}

func (b *Book) cancelDeduction(d *TaxDeduction) error {
	if d.state == DeductionPosted {
		return fmt.Errorf("cannot cancel posted tax deduction %s: %w", d.ID, ErrInvalid)
	}
	return d.transition(DeductionCancelled)
}

func (b *Book) deleteDeduction(d *TaxDeduction) error {
	if d.state == DeductionPosted {
		return fmt.Errorf("cannot delete posted tax deduction %s: %w", d.ID, ErrInvalid)
	}
	a, err := b.Accreditation(d.Accreditation)
	if err != nil {
		return err
	}
	a.Deductions = slices.DeleteFunc(a.Deductions, func(x *TaxDeduction) bool { return x == d })
	delete(b.deductions, d.ID)
	return nil
}
