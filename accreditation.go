package settle

import (
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/etnz/settle/bank"
	"github.com/etnz/settle/date"
)

// MovementType tells what a card coupon is.
type MovementType string

const (
	Sale       MovementType = "sale"
	Refund     MovementType = "refund"
	Adjustment MovementType = "adjustment"
)

// Accreditation follows a card coupon from its collection until the card
// processor credits it in a bank account.
type Accreditation struct {
	ID      string
	Payment string // customer payment the coupon comes from
	Batch   string // batch transfer
	Partner string
	Journal string
	Plan    string

	BatchNumber string
	Coupon      string
	Movement    MovementType

	CollectionDate date.Date
	Amount         Money // original amount
	Fee            Money
	FinancialCost  Money

	FeeInvoiced           bool
	FinancialCostInvoiced bool

	EstimatedDate        date.Date
	EstimatedLiquidation Money
	ActualDate           date.Date
	ActualLiquidation    Money

	Deductions    []*TaxDeduction
	StatementLine string
	Notes         string
	// Reverses is the id of the accreditation this one reverses.
	Reverses string

	state AccreditationState
}

// State returns the accreditation state.
func (a *Accreditation) State() AccreditationState { return a.state }

func (a *Accreditation) transition(to AccreditationState) error {
	if !a.state.CanTransition(to) {
		return &TransitionError{Entity: "accreditation", ID: a.ID, From: a.state, To: to}
	}
	a.state = to
	return nil
}

// Currency is the currency of the original amount.
func (a *Accreditation) Currency() string { return a.Amount.Currency() }

// TotalTaxDeductions sums the deductions that are not cancelled.
func (a *Accreditation) TotalTaxDeductions() Money {
	total := M(0, a.Currency())
	for _, d := range a.Deductions {
		if d.state != DeductionCancelled {
			total = total.Add(d.Amount)
		}
	}
	return total
}

// NetAmount is what the processor should credit.
func (a *Accreditation) NetAmount() Money {
	return a.Amount.Sub(a.Fee).Sub(a.FinancialCost).Sub(a.TotalTaxDeductions())
}

// EstimatedAmount is the same as NetAmount.
func (a *Accreditation) EstimatedAmount() Money { return a.NetAmount() }

// DisplayName is "partner - journal - Lote X - Cupón Y" with missing parts
// omitted.
func (a *Accreditation) DisplayName() string {
	var parts []string
	if a.Partner != "" {
		parts = append(parts, a.Partner)
	}
	if a.Journal != "" {
		parts = append(parts, a.Journal)
	}
	if a.BatchNumber != "" {
		parts = append(parts, "Lote "+a.BatchNumber)
	}
	if a.Coupon != "" {
		parts = append(parts, "Cupón "+a.Coupon)
	}
	if len(parts) == 0 {
		return "Card Accreditation"
	}
	return strings.Join(parts, " - ")
}

// clearActuals forgets the actual accreditation date and amount.
func (a *Accreditation) clearActuals() {
	a.ActualDate = date.Date{}
	a.ActualLiquidation = Money{}
}

// collect registers a card coupon.
func (b *Book) collect(c Collect) (*Accreditation, error) {
	j, err := b.cardJournal(c.Journal)
	if err != nil {
		return nil, err
	}
	plan, err := b.settings.Plan(c.Plan)
	if err != nil {
		return nil, err
	}
	if plan.Journal != j.Code {
		return nil, fmt.Errorf("plan %q belongs to journal %q not %q: %w", plan.Name, plan.Journal, j.Code, ErrInvalid)
	}
	if !plan.Active {
		return nil, fmt.Errorf("plan %q is not active: %w", plan.Name, ErrInvalid)
	}
	if _, ok := b.dir.Partner(c.Partner); !ok {
		return nil, fmt.Errorf("partner %q: %w", c.Partner, ErrNotFound)
	}
	if err := b.dir.CheckMove(j.Restriction(), "out_invoice", c.Partner); err != nil {
		return nil, fmt.Errorf("%w: %w", err, ErrInvalid)
	}
	movement := c.Movement
	if movement == "" {
		movement = Sale
	}
	amount := b.withCurrency(c.Amount)
	switch {
	case amount.IsZero():
		return nil, fmt.Errorf("coupon amount must not be zero: %w", ErrInvalid)
	case movement == Sale && amount.IsNegative():
		return nil, fmt.Errorf("sale coupon amount must be positive, got %s: %w", amount, ErrInvalid)
	case movement == Refund && amount.IsPositive():
		return nil, fmt.Errorf("refund coupon amount must be negative, got %s: %w", amount, ErrInvalid)
	case movement != Sale && movement != Refund && movement != Adjustment:
		return nil, fmt.Errorf("unknown movement type %q: %w", movement, ErrInvalid)
	}
	if c.Payment != "" {
		if _, err := b.Payment(c.Payment); err != nil {
			return nil, err
		}
	}
	a := &Accreditation{
		ID:                   b.next("ACR"),
		Payment:              c.Payment,
		Partner:              c.Partner,
		Journal:              j.Code,
		Plan:                 plan.Name,
		BatchNumber:          c.BatchNumber,
		Coupon:               c.Coupon,
		Movement:             movement,
		CollectionDate:       b.on,
		Amount:               amount,
		Fee:                  plan.Fee(amount).Round(),
		FinancialCost:        plan.FinancialCost(amount).Round(),
		EstimatedDate:        plan.AccreditationDate(b.cal, b.on),
		EstimatedLiquidation: plan.EstimatedAmount(amount).Round(),
		Notes:                c.Memo,
		state:                AccreditationPending,
	}
	if c.Draft {
		a.state = AccreditationDraft
	}
	b.accreditations = append(b.accreditations, a)
	b.accByID[a.ID] = a
	return a, nil
}

// credit marks an accreditation as credited and posts its deductions.
func (b *Book) credit(a *Accreditation, on date.Date, liquidation Money) error {
	if a.state != AccreditationCredited {
		if err := a.transition(AccreditationCredited); err != nil {
			return err
		}
	}
	a.ActualDate = on
	a.ActualLiquidation = liquidation
	b.autoPostDeductions(a)
	return nil
}

// autoPostDeductions posts confirmed deductions, and confirms then posts
// draft ones. Failures are logged, they do not prevent the credit.
func (b *Book) autoPostDeductions(a *Accreditation) {
	for _, d := range a.Deductions {
		var err error
		switch d.state {
		case DeductionDraft:
			if err = d.transition(DeductionConfirmed); err == nil {
				err = b.postDeduction(d)
			}
		case DeductionConfirmed:
			err = b.postDeduction(d)
		}
		if err != nil {
			log.Printf("could not auto-post tax deduction %s of %s: %v", d.ID, a.DisplayName(), err)
		}
	}
}

// payAccreditation posts the inbound card payment of a pending accreditation
// and credits it.
func (b *Book) payAccreditation(a *Accreditation) (*Payment, error) {
	if a.state != AccreditationPending {
		return nil, fmt.Errorf("accreditation %s is %s, only pending accreditations can be processed into payments: %w", a.ID, a.state, ErrInvalid)
	}
	amount := a.NetAmount()
	if amount.IsZero() {
		amount = a.EstimatedLiquidation
	}
	p, err := b.createAndPost(Key("accreditation", a.ID), &Payment{
		Type:        bank.Inbound,
		PartnerType: "customer",
		Journal:     a.Journal,
		Partner:     a.Partner,
		Amount:      amount,
		Date:        b.on,
		Memo:        fmt.Sprintf("Card Payment - Batch %s - Coupon %s", a.BatchNumber, a.Coupon),
	})
	if err != nil {
		return nil, err
	}
	if a.Payment == "" {
		a.Payment = p.ID
	}
	return p, b.credit(a, p.Date, p.Amount)
}

// payAccreditations is the bulk variant of payAccreditation, accreditations that
// are not pending are skipped.
func (b *Book) payAccreditations(ids ...string) ([]*Payment, error) {
	var pending []*Accreditation
	for _, id := range ids {
		a, err := b.Accreditation(id)
		if err != nil {
			return nil, err
		}
		if a.state == AccreditationPending {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("no pending accreditations found to process: %w", ErrInvalid)
	}
	var payments []*Payment
	for _, a := range pending {
		p, err := b.payAccreditation(a)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// reverse records the rejection of a credited coupon by the card company.
// The posted tax deductions are mirrored, and their moves reversed.
func (b *Book) reverse(a *Accreditation) (*Accreditation, error) {
	if a.state != AccreditationCredited && a.state != AccreditationReconciled {
		return nil, fmt.Errorf("accreditation %s is %s, only credited or reconciled accreditations can be reversed: %w", a.ID, a.state, ErrInvalid)
	}
	if a.Batch == "" {
		return nil, fmt.Errorf("accreditation %s is not part of a batch transfer: %w", a.ID, ErrInvalid)
	}
	batch, err := b.Batch(a.Batch)
	if err != nil {
		return nil, err
	}
	rev := &Accreditation{
		ID:                   b.next("ACR"),
		Payment:              a.Payment,
		Batch:                a.Batch,
		Partner:              a.Partner,
		Journal:              a.Journal,
		Plan:                 a.Plan,
		BatchNumber:          a.BatchNumber,
		Coupon:               a.Coupon + "-REV",
		Movement:             a.Movement,
		CollectionDate:       a.CollectionDate,
		Amount:               a.Amount.Neg(),
		Fee:                  a.Fee.Neg(),
		FinancialCost:        a.FinancialCost.Neg(),
		EstimatedDate:        a.EstimatedDate,
		EstimatedLiquidation: a.EstimatedLiquidation.Neg(),
		ActualDate:           b.on,
		ActualLiquidation:    a.ActualLiquidation.Neg(),
		Notes:                fmt.Sprintf("Reversal of %s - Rejected by card company", a.DisplayName()),
		Reverses:             a.ID,
		state:                AccreditationReversed,
	}
	for _, d := range a.Deductions {
		if d.state != DeductionPosted {
			continue
		}
		c := &TaxDeduction{
			ID:            b.next("TAX"),
			Accreditation: rev.ID,
			Name:          d.Name,
			Account:       d.Account,
			Base:          d.Base.Neg(),
			Percentage:    d.Percentage,
			Amount:        d.Amount.Neg(),
			Applied:       b.on,
			state:         DeductionPosted,
		}
		if d.Move != "" {
			m, err := b.gl.Reverse(d.Move, b.on)
			if err != nil {
				return nil, err
			}
			c.Move = m.ID()
		}
		rev.Deductions = append(rev.Deductions, c)
		b.deductions[c.ID] = c
	}
	b.accreditations = append(b.accreditations, rev)
	b.accByID[rev.ID] = rev
	batch.accreditations = append(batch.accreditations, rev)
	batch.Version++
	return rev, nil
}

// resetToPending detaches an accreditation from its batch.
func (b *Book) resetToPending(a *Accreditation) error {
	if a.state == AccreditationPending {
		return fmt.Errorf("accreditation %s is already pending: %w", a.ID, ErrInvalid)
	}
	var batch *BatchTransfer
	if a.Batch != "" {
		var err error
		if batch, err = b.Batch(a.Batch); err != nil {
			return err
		}
		if batch.state.Locked() {
			return fmt.Errorf("cannot reset accreditation %s, batch transfer %s is %s: %w", a.ID, batch.Name, batch.state, ErrInvalid)
		}
	}
	if err := a.transition(AccreditationPending); err != nil {
		return err
	}
	if batch != nil {
		batch.remove(a)
	}
	a.clearActuals()
	return nil
}

// setToDraft puts an accreditation back to draft, and its payment too when
// every accreditation of that payment is draft.
func (b *Book) setToDraft(a *Accreditation) error {
	if a.Batch != "" {
		batch, err := b.Batch(a.Batch)
		if err != nil {
			return err
		}
		if batch.state != BatchDraft {
			return fmt.Errorf("accreditation %s belongs to batch transfer %s which is %s: %w", a.ID, batch.Name, batch.state, ErrInvalid)
		}
	}
	if err := a.transition(AccreditationDraft); err != nil {
		return err
	}
	b.syncPaymentToDraft(a)
	return nil
}

func (b *Book) syncPaymentToDraft(a *Accreditation) {
	if a.Payment == "" {
		return
	}
	p, err := b.Payment(a.Payment)
	if err != nil || p.state == PaymentDraft {
		return
	}
	for _, other := range b.accreditations {
		if other.Payment == a.Payment && other.state != AccreditationDraft {
			return
		}
	}
	if err := b.setPaymentState(p, PaymentDraft); err != nil {
		log.Printf("could not set payment %s to draft: %v", p.ID, err)
	}
}

// SearchByBatchCoupon returns the accreditations of a card batch number, and
// of a coupon when it is not empty.
func (b *Book) SearchByBatchCoupon(batch, coupon string) []*Accreditation {
	var result []*Accreditation
	for _, a := range b.accreditations {
		if a.BatchNumber == batch && (coupon == "" || a.Coupon == coupon) {
			result = append(result, a)
		}
	}
	return result
}

// MatchStatement returns the accreditations, not yet reconciled, of the card
// batches named in a bank statement reference.
func (b *Book) MatchStatement(ref string) []*Accreditation {
	var result []*Accreditation
	for _, batch := range bank.ExtractBatches(ref) {
		for _, a := range b.SearchByBatchCoupon(batch, "") {
			if a.state != AccreditationReconciled && !slices.Contains(result, a) {
				result = append(result, a)
			}
		}
	}
	return result
}

// Pending returns the pending accreditations.
func (b *Book) Pending() []*Accreditation {
	var result []*Accreditation
	for _, a := range b.accreditations {
		if a.state == AccreditationPending {
			result = append(result, a)
		}
	}
	return result
}
