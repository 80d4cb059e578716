package settle

import (
	"fmt"
	"log"
	"slices"
	"strconv"

	"github.com/etnz/settle/bank"
	"github.com/etnz/settle/date"
)

// BatchTransfer moves the credited coupons of a card journal to the bank
// journal the processor pays into.
type BatchTransfer struct {
	Name               string
	Date               date.Date // transfer date
	Source             string    // card journal
	Destination        string    // bank journal
	Outbound           string    // outbound payment id
	Inbound            string    // inbound payment id
	DestinationAccount string
	GlobalFee          Money
	GlobalTax          Money
	// Version is incremented by every change of the batch.
	Version int

	accreditations []*Accreditation
	state          BatchState
}

// State returns the batch state.
func (t *BatchTransfer) State() BatchState { return t.state }

func (t *BatchTransfer) transition(to BatchState) error {
	if !t.state.CanTransition(to) {
		return &TransitionError{Entity: "batch transfer", ID: t.Name, From: t.state, To: to}
	}
	t.state = to
	t.Version++
	return nil
}

// Accreditations returns the accreditations of the batch.
func (t *BatchTransfer) Accreditations() []*Accreditation { return slices.Clone(t.accreditations) }

// TotalAmount is the sum of the accreditation net amounts.
func (t *BatchTransfer) TotalAmount() Money {
	total := M(0, t.GlobalFee.Currency())
	for _, a := range t.accreditations {
		total = total.Add(a.NetAmount())
	}
	return total
}

// FinalAmount is what is actually transferred.
func (t *BatchTransfer) FinalAmount() Money {
	return t.TotalAmount().Sub(t.GlobalFee).Sub(t.GlobalTax)
}

func (t *BatchTransfer) add(a *Accreditation) {
	a.Batch = t.Name
	t.accreditations = append(t.accreditations, a)
	t.Version++
}

func (t *BatchTransfer) remove(a *Accreditation) {
	a.Batch = ""
	t.accreditations = slices.DeleteFunc(t.accreditations, func(x *Accreditation) bool { return x == a })
	t.Version++
}

// checkVersion fails with ErrConflict when ifVersion is set and differs from
// the batch version.
func (t *BatchTransfer) checkVersion(ifVersion int) error {
	if ifVersion != 0 && ifVersion != t.Version {
		return fmt.Errorf("batch transfer %s is at version %d, not %d: %w", t.Name, t.Version, ifVersion, ErrConflict)
	}
	return nil
}

// batchable returns the accreditations for ids, checking they can join a
// batch: pending, not in a batch yet, all from one card journal that has a
// final bank journal.
func (b *Book) batchable(ids []string) ([]*Accreditation, Journal, error) {
	if len(ids) == 0 {
		return nil, Journal{}, fmt.Errorf("no accreditations selected: %w", ErrInvalid)
	}
	var accs []*Accreditation
	journal := ""
	for _, id := range ids {
		a, err := b.Accreditation(id)
		if err != nil {
			return nil, Journal{}, err
		}
		if a.state != AccreditationPending {
			return nil, Journal{}, fmt.Errorf("accreditation %s is %s, only pending accreditations can be added to a batch: %w", a.ID, a.state, ErrInvalid)
		}
		if a.Batch != "" {
			return nil, Journal{}, fmt.Errorf("accreditation %s is already in batch transfer %s: %w", a.ID, a.Batch, ErrInvalid)
		}
		if journal != "" && a.Journal != journal {
			return nil, Journal{}, fmt.Errorf("all accreditations must come from the same journal, got %s and %s: %w", journal, a.Journal, ErrInvalid)
		}
		journal = a.Journal
		if !slices.Contains(accs, a) {
			accs = append(accs, a)
		}
	}
	j, err := b.cardJournal(journal)
	if err != nil {
		return nil, Journal{}, err
	}
	if j.FinalBankJournal == "" {
		return nil, Journal{}, fmt.Errorf("journal %q has no final bank journal: %w", j.Code, ErrInvalid)
	}
	return accs, j, nil
}

// newBatch creates a draft batch named LIQ/YYYY/NNNN.
func (b *Book) newBatch(j Journal, on date.Date) *BatchTransfer {
	t := &BatchTransfer{
		Name:        b.next("LIQ/" + strconv.Itoa(on.Year())),
		Date:        on,
		Source:      j.Code,
		Destination: j.FinalBankJournal,
		GlobalFee:   M(0, b.settings.Currency),
		GlobalTax:   M(0, b.settings.Currency),
		Version:     1,
		state:       BatchDraft,
	}
	b.batches = append(b.batches, t)
	b.batchByName[t.Name] = t
	return t
}

// creditInto adds accreditations to a batch and credits them on the day.
func (b *Book) creditInto(t *BatchTransfer, accs []*Accreditation) error {
	for _, a := range accs {
		t.add(a)
		if err := b.credit(a, b.on, a.NetAmount()); err != nil {
			return err
		}
	}
	return nil
}

// createBatch creates a batch for pending accreditations, credits them and
// confirms the batch.
func (b *Book) createBatch(ids []string, fee, tax Money) (*BatchTransfer, error) {
	accs, j, err := b.batchable(ids)
	if err != nil {
		return nil, err
	}
	t := b.newBatch(j, b.on)
	if !fee.IsZero() {
		t.GlobalFee = b.withCurrency(fee)
	}
	if !tax.IsZero() {
		t.GlobalTax = b.withCurrency(tax)
	}
	if err := b.creditInto(t, accs); err != nil {
		return nil, err
	}
	return t, t.transition(BatchConfirmed)
}

// addToBatch adds pending accreditations to a batch. When name is empty the
// first draft or confirmed batch of the journal is used, or a new confirmed
// one is created.
func (b *Book) addToBatch(name string, ids []string) (*BatchTransfer, error) {
	accs, j, err := b.batchable(ids)
	if err != nil {
		return nil, err
	}
	var t *BatchTransfer
	if name != "" {
		if t, err = b.Batch(name); err != nil {
			return nil, err
		}
		if t.Source != j.Code {
			return nil, fmt.Errorf("batch transfer %s is for journal %s, not %s: %w", t.Name, t.Source, j.Code, ErrInvalid)
		}
		if t.state != BatchDraft && t.state != BatchConfirmed {
			return nil, fmt.Errorf("batch transfer %s is %s: %w", t.Name, t.state, ErrInvalid)
		}
	} else {
		for _, x := range b.batches {
			if x.Source == j.Code && (x.state == BatchDraft || x.state == BatchConfirmed) {
				t = x
				break
			}
		}
	}
	if t == nil {
		t = b.newBatch(j, b.on)
		if err := b.creditInto(t, accs); err != nil {
			return nil, err
		}
		return t, t.transition(BatchConfirmed)
	}
	return t, b.creditInto(t, accs)
}

// removeFromBatch sends an accreditation of a draft batch back to pending.
func (b *Book) removeFromBatch(t *BatchTransfer, a *Accreditation) error {
	if t.state != BatchDraft {
		return fmt.Errorf("batch transfer %s is %s, accreditations can only be removed from draft batches: %w", t.Name, t.state, ErrInvalid)
	}
	if a.Batch != t.Name {
		return fmt.Errorf("accreditation %s is not in batch transfer %s: %w", a.ID, t.Name, ErrInvalid)
	}
	if a.state != AccreditationPending {
		if err := a.transition(AccreditationPending); err != nil {
			return err
		}
	}
	t.remove(a)
	a.clearActuals()
	return nil
}

func (b *Book) confirmBatch(t *BatchTransfer) error {
	if t.state != BatchDraft {
		return fmt.Errorf("batch transfer %s is %s, only draft transfers can be confirmed: %w", t.Name, t.state, ErrInvalid)
	}
	if len(t.accreditations) == 0 {
		return fmt.Errorf("cannot confirm batch transfer %s without accreditations: %w", t.Name, ErrInvalid)
	}
	return t.transition(BatchConfirmed)
}

// transferBatch executes the internal transfer of the final amount from the
// card journal to the bank journal.
func (b *Book) transferBatch(t *BatchTransfer) error {
	if t.state != BatchConfirmed {
		return fmt.Errorf("batch transfer %s is %s, only confirmed transfers can be executed: %w", t.Name, t.state, ErrInvalid)
	}
	src, err := b.settings.Journal(t.Source)
	if err != nil {
		return err
	}
	dst, err := b.settings.Journal(t.Destination)
	if err != nil {
		return err
	}
	if src.OutboundAccount == "" {
		return fmt.Errorf("the source journal %s does not have an outstanding payments account: %w", src.Name, ErrInvalid)
	}
	if dst.InboundAccount == "" {
		return fmt.Errorf("the destination journal %s does not have an outstanding receipts account: %w", dst.Name, ErrInvalid)
	}
	t.Date = b.on
	t.DestinationAccount = dst.InboundAccount
	out, err := b.createAndPost(Key("batch", t.Name, strconv.Itoa(t.Version)), &Payment{
		Type:        bank.Outbound,
		PartnerType: "supplier",
		Internal:    true,
		Journal:     src.Code,
		Destination: dst.Code,
		Amount:      t.FinalAmount(),
		Date:        t.Date,
		Memo:        "Batch Transfer: " + t.Name,
	})
	if err != nil {
		return err
	}
	t.Outbound, t.Inbound = out.ID, out.Paired
	if err := t.transition(BatchTransferred); err != nil {
		return err
	}
	for _, a := range t.accreditations {
		if a.state == AccreditationReversed {
			continue
		}
		if err := b.credit(a, t.Date, a.NetAmount()); err != nil {
			return err
		}
	}
	return nil
}

// cancelBatch cancels a batch that has not been executed, and its payments.
func (b *Book) cancelBatch(t *BatchTransfer) error {
	if t.state == BatchTransferred || t.state == BatchReconciled {
		return fmt.Errorf("cannot cancel batch transfer %s, it has already been executed or reconciled: %w", t.Name, ErrInvalid)
	}
	for _, id := range []string{t.Outbound, t.Inbound} {
		if p, err := b.Payment(id); err == nil && p.state != PaymentCancelled {
			if err := b.setPaymentState(p, PaymentCancelled); err != nil {
				return err
			}
		}
	}
	return t.transition(BatchCancelled)
}

// resetAccreditations sends credited and reconciled accreditations back to
// pending.
func (b *Book) resetAccreditations(t *BatchTransfer) error {
	for _, a := range t.accreditations {
		if a.state == AccreditationCredited || a.state == AccreditationReconciled {
			if err := a.transition(AccreditationPending); err != nil {
				return err
			}
			a.clearActuals()
		}
	}
	return nil
}

// batchToDraft resets a batch that has not been executed.
func (b *Book) batchToDraft(t *BatchTransfer) error {
	if t.state == BatchTransferred || t.state == BatchReconciled {
		return fmt.Errorf("cannot reset batch transfer %s, it has been executed or reconciled: %w", t.Name, ErrInvalid)
	}
	if err := t.transition(BatchDraft); err != nil {
		return err
	}
	return b.resetAccreditations(t)
}

// backToDraft undoes the transfer of a batch so that more accreditations can
// be added: its payments are cancelled and deleted.
func (b *Book) backToDraft(t *BatchTransfer) error {
	if t.state != BatchTransferred {
		return fmt.Errorf("batch transfer %s is %s, only transferred batches can be moved back to draft: %w", t.Name, t.state, ErrInvalid)
	}
	for _, id := range []string{t.Inbound, t.Outbound} {
		if p, err := b.Payment(id); err == nil {
			if err := b.deletePayment(p); err != nil {
				return err
			}
		}
	}
	t.Inbound, t.Outbound = "", ""
	if err := t.transition(BatchDraft); err != nil {
		return err
	}
	return b.resetAccreditations(t)
}

func (b *Book) reconcileBatch(t *BatchTransfer) error {
	if t.state != BatchTransferred {
		return fmt.Errorf("batch transfer %s is %s, only transferred batches can be reconciled: %w", t.Name, t.state, ErrInvalid)
	}
	for _, a := range t.accreditations {
		if a.state == AccreditationCredited {
			if err := a.transition(AccreditationReconciled); err != nil {
				return err
			}
		}
	}
	return t.transition(BatchReconciled)
}

func (b *Book) unreconcileBatch(t *BatchTransfer) error {
	if t.state != BatchReconciled {
		return fmt.Errorf("batch transfer %s is %s, only reconciled batches can be unreconciled: %w", t.Name, t.state, ErrInvalid)
	}
	for _, a := range t.accreditations {
		if a.state == AccreditationReconciled {
			if err := a.transition(AccreditationCredited); err != nil {
				return err
			}
		}
	}
	return t.transition(BatchTransferred)
}

// deleteBatch forgets a batch that is not confirmed or transferred. Its
// accreditations leave the batch and its payments are deleted.
func (b *Book) deleteBatch(t *BatchTransfer) error {
	if t.state.Locked() {
		return fmt.Errorf("cannot delete batch transfer %s, it is %s: %w", t.Name, t.state, ErrInvalid)
	}
	for _, id := range []string{t.Outbound, t.Inbound} {
		if p, err := b.Payment(id); err == nil {
			if err := b.deletePayment(p); err != nil {
				return err
			}
		}
	}
	for _, a := range t.accreditations {
		a.Batch = ""
	}
	b.batches = slices.DeleteFunc(b.batches, func(x *BatchTransfer) bool { return x == t })
	delete(b.batchByName, t.Name)
	return nil
}

// syncBatches makes the batches whose inbound payment is p follow its state:
// paid means reconciled, draft, cancelled or in process means transferred.
func (b *Book) syncBatches(p *Payment) {
	for _, t := range b.batches {
		if t.Inbound != p.ID {
			continue
		}
		var err error
		switch {
		case p.state == PaymentPaid && t.state == BatchTransferred:
			err = b.reconcileBatch(t)
		case p.state != PaymentPaid && t.state == BatchReconciled:
			err = b.unreconcileBatch(t)
		}
		if err != nil {
			log.Printf("could not update batch transfer %s from payment %s: %v", t.Name, p.ID, err)
		}
	}
}
