package settle

import (
	"fmt"
	"strings"

	"github.com/etnz/settle/bank"
	"github.com/etnz/settle/date"
	"github.com/google/uuid"
)

// keySpace is the namespace of payment idempotency keys.
var keySpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/etnz/settle/payment"))

// Key returns the idempotency key of a business name, like
// Key("accreditation", "ACR/0001"). Equal names give equal keys.
func Key(parts ...string) string {
	return uuid.NewSHA1(keySpace, []byte(strings.Join(parts, "/"))).String()
}

// Payment is money received or paid through a journal. Internal payments
// move money between two journals of the company and come in pairs.
type Payment struct {
	ID          string
	Key         string
	Type        bank.Direction
	PartnerType string // "customer" or "supplier"
	Internal    bool
	Journal     string
	Destination string // destination journal of internal payments
	Partner     string
	Method      string
	Amount      Money
	Date        date.Date
	Memo        string
	Paired      string
	Move        string

	state PaymentState
	posts int // number of moves posted so far
}

// State returns the payment state.
func (p *Payment) State() PaymentState { return p.state }

func (p *Payment) transition(to PaymentState) error {
	if !p.state.CanTransition(to) {
		return &TransitionError{Entity: "payment", ID: p.ID, From: p.state, To: to}
	}
	p.state = to
	return nil
}

// moveID names the n-th move of the payment. A payment reset to draft and
// posted again gets a new move.
func (p *Payment) moveID() string {
	if p.posts <= 1 {
		return p.ID
	}
	return fmt.Sprintf("%s.%d", p.ID, p.posts)
}

// createPayment registers a draft payment. It is idempotent: when a non
// cancelled payment exists with the same key, it is returned unchanged.
// sameAs reports whether o describes the payment p already records.
func (p *Payment) sameAs(o *Payment, amount Money) bool {
	if p.Type != o.Type || p.Journal != o.Journal || p.Internal != o.Internal || !p.Amount.Equal(amount) {
		return false
	}
	if o.Internal {
		return p.Destination == o.Destination
	}
	return p.Partner == o.Partner
}

// checkKey fails with ErrConflict when key already records a payment that
// differs from p. Keys given by the user must not hide a different payment.
func (b *Book) checkKey(key string, p *Payment) error {
	existing, ok := b.payByKey[key]
	if !ok || existing.state == PaymentCancelled || existing.sameAs(p, b.withCurrency(p.Amount)) {
		return nil
	}
	return fmt.Errorf("key %s already records payment %s with a different content: %w", key, existing.ID, ErrConflict)
}

func (b *Book) createPayment(key string, p *Payment) (*Payment, error) {
	if existing, ok := b.payByKey[key]; ok && existing.state != PaymentCancelled {
		return existing, nil
	}
	if p.Type != bank.Inbound && p.Type != bank.Outbound {
		return nil, fmt.Errorf("unknown payment type %q: %w", p.Type, ErrInvalid)
	}
	if _, err := b.settings.Journal(p.Journal); err != nil {
		return nil, err
	}
	p.Amount = b.withCurrency(p.Amount)
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s: %w", p.Amount, ErrInvalid)
	}
	if p.Internal {
		if p.Destination == "" || p.Destination == p.Journal {
			return nil, fmt.Errorf("internal transfer from %q needs another destination journal: %w", p.Journal, ErrInvalid)
		}
		if _, err := b.settings.Journal(p.Destination); err != nil {
			return nil, err
		}
		p.Partner = ""
	} else if p.Partner == "" {
		return nil, fmt.Errorf("payment without partner: %w", ErrInvalid)
	}
	if p.Date.IsZero() {
		p.Date = b.on
	}
	p.ID = b.next("PAY")
	p.Key = key
	p.state = PaymentDraft
	b.payments = append(b.payments, p)
	b.payByID[p.ID] = p
	b.payByKey[key] = p
	return p, nil
}

// createAndPost creates a payment and posts it unless it was already
// posted.
func (b *Book) createAndPost(key string, p *Payment) (*Payment, error) {
	p, err := b.createPayment(key, p)
	if err != nil {
		return nil, err
	}
	if p.state != PaymentDraft {
		return p, nil
	}
	return p, b.postPayment(p)
}

// paymentMove builds the move of a payment. The outstanding account of the
// journal is balanced by the partner account, or by the transfer account for
// internal payments.
func (b *Book) paymentMove(p *Payment) (Move, error) {
	j, err := b.settings.Journal(p.Journal)
	if err != nil {
		return Move{}, err
	}
	inbound := p.Type == bank.Inbound
	var counterpart, label string
	if p.Internal {
		counterpart = b.settings.TransferAccount
		if inbound {
			label = "Transfer from " + b.journalName(p.Destination)
		} else {
			label = "Transfer to " + b.journalName(p.Destination)
		}
	} else {
		if err := b.dir.CheckMove(j.Restriction(), p.moveType(), p.Partner); err != nil {
			return Move{}, fmt.Errorf("%w: %w", err, ErrInvalid)
		}
		if counterpart, err = b.partnerAccount(p.Partner, p.PartnerType != "supplier"); err != nil {
			return Move{}, err
		}
		label = p.Memo
	}
	outstanding := j.outstanding(inbound, !p.Internal)
	if outstanding == "" {
		return Move{}, fmt.Errorf("journal %q has no outstanding %s account: %w", j.Code, p.Type, ErrInvalid)
	}
	if inbound {
		return NewMove(p.moveID(), p.Date, j.Code, p.Memo,
			DebitLine(outstanding, p.Partner, p.Amount, label),
			CreditLine(counterpart, p.Partner, p.Amount, p.Memo))
	}
	return NewMove(p.moveID(), p.Date, j.Code, p.Memo,
		DebitLine(counterpart, p.Partner, p.Amount, p.Memo),
		CreditLine(outstanding, p.Partner, p.Amount, label))
}

// moveType is the kind of document the journal restriction checks.
func (p *Payment) moveType() string {
	if p.PartnerType == "supplier" {
		return "in_payment"
	}
	return "out_payment"
}

// postPayment moves a draft payment to in_process and books it. Posting an
// internal payment creates and posts its pair. When the pair cannot be
// posted, the payment is reversed and cancelled.
func (b *Book) postPayment(p *Payment) error {
	if p.state != PaymentDraft {
		return fmt.Errorf("payment %s is %s, only draft payments can be posted: %w", p.ID, p.state, ErrInvalid)
	}
	p.posts++
	m, err := b.paymentMove(p)
	if err != nil {
		p.posts--
		return err
	}
	if err := b.gl.Post(m); err != nil {
		p.posts--
		return err
	}
	p.Move = m.ID()
	if err := p.transition(PaymentInProcess); err != nil {
		return err
	}
	if !p.Internal || p.Paired != "" {
		return nil
	}
	if err := b.pair(p); err != nil {
		if _, rerr := b.gl.Reverse(p.Move, b.on); rerr != nil {
			return fmt.Errorf("pairing payment %s failed (%w) and could not be compensated: %v", p.ID, err, rerr)
		}
		if terr := p.transition(PaymentCancelled); terr != nil {
			return terr
		}
		return fmt.Errorf("pairing payment %s: %w", p.ID, err)
	}
	return nil
}

// pair creates and posts the opposite payment of an internal transfer on the
// destination journal, and reconciles both transfer account lines.
func (b *Book) pair(src *Payment) error {
	typ := bank.Inbound
	if src.Type == bank.Inbound {
		typ = bank.Outbound
	}
	key := Key(src.Key, "paired")
	dst, err := b.createPayment(key, &Payment{
		Type:        typ,
		Internal:    true,
		Journal:     src.Destination,
		Destination: src.Journal,
		Amount:      src.Amount,
		Date:        src.Date,
		Memo:        src.Memo,
		Paired:      src.ID,
	})
	if err != nil {
		return err
	}
	if dst.state == PaymentDraft {
		dst.posts++
		m, err := b.paymentMove(dst)
		if err != nil {
			dst.posts--
			b.dropPayment(dst)
			return err
		}
		if err := b.gl.Post(m); err != nil {
			dst.posts--
			b.dropPayment(dst)
			return err
		}
		dst.Move = m.ID()
		if err := dst.transition(PaymentInProcess); err != nil {
			return err
		}
	}
	src.Paired = dst.ID
	dst.Paired = src.ID
	refs := append(b.transferLines(src.Move), b.transferLines(dst.Move)...)
	return b.gl.Reconcile(refs...)
}

// transferLines returns the unreconciled transfer account lines of a move.
func (b *Book) transferLines(id string) []LineRef {
	m, ok := b.gl.Move(id)
	if !ok {
		return nil
	}
	var refs []LineRef
	for i, l := range m.Lines() {
		ref := LineRef{Move: id, Index: i}
		if l.Account == b.settings.TransferAccount && !b.gl.IsReconciled(ref) {
			refs = append(refs, ref)
		}
	}
	return refs
}

// dropPayment forgets a payment, as if it had never been created.
func (b *Book) dropPayment(p *Payment) {
	delete(b.payByID, p.ID)
	if b.payByKey[p.Key] == p {
		delete(b.payByKey, p.Key)
	}
	for i, x := range b.payments {
		if x == p {
			b.payments = append(b.payments[:i], b.payments[i+1:]...)
			break
		}
	}
}

// unpost reverses the posted move of a payment, if any.
func (b *Book) unpost(p *Payment) error {
	if p.Move == "" || b.gl.IsReversed(p.Move) {
		return nil
	}
	if _, err := b.gl.Reverse(p.Move, b.on); err != nil {
		return err
	}
	return nil
}

// cancelPayment reverses the payment move and cancels it, with its pair.
func (b *Book) cancelPayment(p *Payment) error {
	if err := b.setPaymentState(p, PaymentCancelled); err != nil {
		return err
	}
	if p.Paired == "" {
		return nil
	}
	if q, err := b.Payment(p.Paired); err == nil && q.state != PaymentCancelled {
		return b.setPaymentState(q, PaymentCancelled)
	}
	return nil
}

// setPaymentState applies a bank side state change. Going back to draft or
// to cancelled reverses the payment move. Batches whose inbound payment
// changes follow its state.
func (b *Book) setPaymentState(p *Payment, to PaymentState) error {
	if p.state == to {
		return nil
	}
	if to == PaymentInProcess && p.state == PaymentDraft {
		return b.postPayment(p)
	}
	if err := p.transition(to); err != nil {
		return err
	}
	if to == PaymentDraft || to == PaymentCancelled {
		if err := b.unpost(p); err != nil {
			return err
		}
	}
	b.syncBatches(p)
	return nil
}

// deletePayment cancels then forgets a payment.
func (b *Book) deletePayment(p *Payment) error {
	if p.state != PaymentCancelled && p.state != PaymentDraft {
		if err := b.setPaymentState(p, PaymentCancelled); err != nil {
			return err
		}
	} else if err := b.unpost(p); err != nil {
		return err
	}
	b.dropPayment(p)
	return nil
}

// transfer creates and posts an internal transfer between two journals.
func (b *Book) transfer(key, from, to string, amount Money, memo string) (*Payment, error) {
	if memo == "" {
		memo = "Internal transfer"
	}
	p := &Payment{
		Type:        bank.Outbound,
		Internal:    true,
		Journal:     from,
		Destination: to,
		Amount:      amount,
		Date:        b.on,
		Memo:        memo,
	}
	if err := b.checkKey(key, p); err != nil {
		return nil, err
	}
	return b.createAndPost(key, p)
}
