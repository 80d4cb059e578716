package settle

import (
	"errors"
	"testing"

	"github.com/etnz/settle/bank"
)

func TestKey(t *testing.T) {
	if Key("batch", "LIQ/2025/0001", "3") != Key("batch", "LIQ/2025/0001", "3") {
		t.Error("Key() is not deterministic")
	}
	if Key("batch", "LIQ/2025/0001", "3") == Key("batch", "LIQ/2025/0001", "4") {
		t.Error("Key() ignores the version")
	}
}

func TestTransfer(t *testing.T) {
	b := testBook(t)
	mustApply(t, b, NewTransfer(monday, "BNK", "CSH", ARS(500), "Retiro"))

	ps := b.Payments()
	if len(ps) != 2 {
		t.Fatalf("got %d payments, want a pair", len(ps))
	}
	out, in := ps[0], ps[1]
	if out.Type != bank.Outbound || in.Type != bank.Inbound || out.Paired != in.ID || in.Paired != out.ID {
		t.Errorf("pair = %s/%s paired %s/%s", out.Type, in.Type, out.Paired, in.Paired)
	}
	if out.State() != PaymentInProcess || in.State() != PaymentInProcess {
		t.Errorf("states = %s/%s, want in_process", out.State(), in.State())
	}
	if got := balance(b, "1.1.9"); !got.IsZero() {
		t.Errorf("transfer account = %s, want 0", got)
	}
	if got := balance(b, "1.1.1"); !got.Equal(ARS(500)) {
		t.Errorf("cash = %s, want 500", got)
	}
	if got := balance(b, "1.1.5"); !got.Equal(ARS(-500)) {
		t.Errorf("outstanding payments = %s, want -500", got)
	}
	for _, ref := range append(b.transferLines(out.Move), b.transferLines(in.Move)...) {
		t.Errorf("transfer line %v is not reconciled", ref)
	}

	// another identical transfer is another pair.
	again := NewTransfer(monday, "BNK", "CSH", ARS(500), "Retiro")
	mustApply(t, b, again)
	if n := len(b.Payments()); n != 4 {
		t.Errorf("got %d payments after a second transfer, want 4", n)
	}
	// a retried command keeps its key.
	mustApply(t, b, again)
	if n := len(b.Payments()); n != 4 {
		t.Errorf("got %d payments after retrying the transfer, want 4", n)
	}
	if got := balance(b, "1.1.1"); !got.Equal(ARS(1000)) {
		t.Errorf("cash = %s, want 1000", got)
	}
	other := again
	other.Amount = ARS(700)
	if err := b.Apply(other); !errors.Is(err, ErrConflict) {
		t.Errorf("same key with another amount = %v, want ErrConflict", err)
	}
	checkTrialBalance(t, b)
}

func TestTransfer_WithoutKey(t *testing.T) {
	b := testBook(t)
	cmd := NewTransfer(monday, "BNK", "CSH", ARS(500), "")
	cmd.Key = ""
	mustApply(t, b, cmd, cmd)
	ps := b.Payments()
	if len(ps) != 4 {
		t.Fatalf("got %d payments, want two pairs", len(ps))
	}
	if ps[0].Key == ps[2].Key {
		t.Errorf("both transfers share the key %s", ps[0].Key)
	}
}

func TestTransfer_Errors(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		amount   Money
		is       error
	}{
		{"same journal", "BNK", "BNK", ARS(1), ErrInvalid},
		{"unknown journal", "BNK", "XXX", ARS(1), ErrNotFound},
		{"zero", "BNK", "CSH", ARS(0), ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBook(t)
			if err := b.Apply(NewTransfer(monday, tt.from, tt.to, tt.amount, "")); !errors.Is(err, tt.is) {
				t.Errorf("Apply() = %v, want %v", err, tt.is)
			}
			if n := len(b.Payments()); n != 0 {
				t.Errorf("got %d payments, want none", n)
			}
		})
	}
}

func TestTransfer_Compensation(t *testing.T) {
	b := testBook(t)
	// the sale journal has no outstanding receipts account, the pair cannot
	// be posted.
	err := b.Apply(NewTransfer(monday, "BNK", "SALE", ARS(100), ""))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Apply() = %v, want ErrInvalid", err)
	}
	ps := b.Payments()
	if len(ps) != 1 {
		t.Fatalf("got %d payments, want the cancelled source only", len(ps))
	}
	src := ps[0]
	if src.State() != PaymentCancelled || !b.GeneralLedger().IsReversed(src.Move) {
		t.Errorf("source = %s reversed %v, want cancelled and reversed", src.State(), b.GeneralLedger().IsReversed(src.Move))
	}
	if got := balance(b, "1.1.5"); !got.IsZero() {
		t.Errorf("outstanding payments = %s, want 0", got)
	}
	checkTrialBalance(t, b)
}

func TestPayment_DraftAndRepost(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b, NewPay(monday, a.ID))
	p, _ := b.Payment(a.Payment)

	mustApply(t, b, NewPaymentState(monday, p.ID, PaymentDraft))
	if !b.GeneralLedger().IsReversed(p.ID) {
		t.Error("draft payment move is not reversed")
	}
	mustApply(t, b, UpdatePayment{baseCmd: baseCmd{Command: CmdPayment, Date: monday}, Payment: p.ID, Action: ActPost})
	if p.Move != p.ID+".2" || p.State() != PaymentInProcess {
		t.Errorf("repost = %s %q, want in_process %s.2", p.State(), p.Move, p.ID)
	}
	if got := balance(b, "1.1.3"); !got.Equal(ARS(923.3)) {
		t.Errorf("card balance = %s, want 923.30", got)
	}

	mustApply(t, b, NewPaymentState(monday, p.ID, PaymentPaid))
	if err := b.Apply(NewPaymentState(monday, p.ID, PaymentState(7))); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown state = %v, want ErrInvalid", err)
	}
	mustApply(t, b, NewPaymentState(monday, p.ID, PaymentCancelled))
	if got := balance(b, "1.1.3"); !got.IsZero() {
		t.Errorf("card balance after cancel = %s, want 0", got)
	}
	checkTrialBalance(t, b)
}

func TestPayment_CancelPair(t *testing.T) {
	b := testBook(t)
	cmd := NewTransfer(monday, "BNK", "CSH", ARS(500), "")
	mustApply(t, b, cmd)
	ps := b.Payments()
	mustApply(t, b, NewPaymentState(monday, ps[1].ID, PaymentCancelled))
	for _, p := range ps {
		if p.State() != PaymentCancelled {
			t.Errorf("payment %s is %s, want cancelled", p.ID, p.State())
		}
	}
	if got := balance(b, "1.1.1"); !got.IsZero() {
		t.Errorf("cash = %s, want 0", got)
	}
	// cancelled payments do not hold their key.
	mustApply(t, b, cmd)
	if n := len(b.Payments()); n != 4 {
		t.Errorf("got %d payments, want 4", n)
	}
}
