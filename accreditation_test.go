package settle

import (
	"errors"
	"testing"
	"time"

	"github.com/etnz/settle/date"
	"github.com/google/go-cmp/cmp"
)

func TestCollect(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")

	type amounts struct {
		ID, Fee, FinancialCost, Net string
		Estimated                  date.Date
		State                      AccreditationState
	}
	got := amounts{a.ID, a.Fee.Decimal().String(), a.FinancialCost.Decimal().String(), a.NetAmount().Decimal().String(), a.EstimatedDate, a.State()}
	want := amounts{"ACR/0001", "18", "58.7", "923.3", date.New(2025, time.March, 5), AccreditationPending}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(date.Date{})); diff != "" {
		t.Errorf("collect() mismatch (-want +got):\n%s", diff)
	}
	if got, want := a.DisplayName(), "Cliente - CARD - Lote 047 - Cupón 0001"; got != want {
		t.Errorf("DisplayName() = %q, want %q", got, want)
	}
	// collecting posts nothing.
	if n := len(b.GeneralLedger().moves); n != 0 {
		t.Errorf("collect posted %d moves, want none", n)
	}
}

func TestCollect_Errors(t *testing.T) {
	tests := []struct {
		name string
		cmd  func() Collect
		is   error
	}{
		{"unknown plan", func() Collect { return NewCollect(monday, "CARD", "12 cuotas", "Cliente", ARS(1), "", "") }, ErrNotFound},
		{"not a card journal", func() Collect { return NewCollect(monday, "BNK", "1 cuota", "Cliente", ARS(1), "", "") }, ErrInvalid},
		{"unknown partner", func() Collect { return NewCollect(monday, "CARD", "1 cuota", "Nadie", ARS(1), "", "") }, ErrNotFound},
		{"zero amount", func() Collect { return NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(0), "", "") }, ErrInvalid},
		{"negative sale", func() Collect { return NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(-5), "", "") }, ErrInvalid},
		{"positive refund", func() Collect {
			c := NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(5), "", "")
			c.Movement = Refund
			return c
		}, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBook(t)
			if err := b.Apply(tt.cmd()); !errors.Is(err, tt.is) {
				t.Errorf("Apply() = %v, want %v", err, tt.is)
			}
		})
	}

	t.Run("inactive plan", func(t *testing.T) {
		s := testSettings()
		s.Plans[0].Active = false
		b, _ := NewBook(s)
		if err := b.Apply(NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(1), "", "")); !errors.Is(err, ErrInvalid) {
			t.Errorf("Apply() = %v, want ErrInvalid", err)
		}
	})
}

func TestPay(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	wed := monday.Add(2)
	mustApply(t, b, NewPay(wed, a.ID))

	if a.State() != AccreditationCredited {
		t.Errorf("State() = %s, want credited", a.State())
	}
	if a.ActualDate != wed || !a.ActualLiquidation.Equal(ARS(923.3)) {
		t.Errorf("actuals = %s %s, want %s 923.30", a.ActualDate, a.ActualLiquidation, wed)
	}
	p, err := b.Payment(a.Payment)
	if err != nil {
		t.Fatal(err)
	}
	if p.State() != PaymentInProcess || p.Key != Key("accreditation", a.ID) {
		t.Errorf("payment = %s %s, want an in_process accreditation payment", p.State(), p.Key)
	}
	if got := balance(b, "1.1.3"); !got.Equal(ARS(923.3)) {
		t.Errorf("card balance = %s, want 923.30", got)
	}
	if got := balance(b, "1.3.1"); !got.Equal(ARS(-923.3)) {
		t.Errorf("receivable balance = %s, want -923.30", got)
	}
	checkTrialBalance(t, b)

	// a credited accreditation cannot be paid again.
	if err := b.Apply(NewPay(wed, a.ID)); !errors.Is(err, ErrInvalid) {
		t.Errorf("second Pay = %v, want ErrInvalid", err)
	}
}

func TestPay_Bulk(t *testing.T) {
	b := testBook(t)
	a1 := collect(t, b, monday, 1000, "047", "0001")
	a2 := collect(t, b, monday, 500, "047", "0002")
	mustApply(t, b, NewPay(monday, a1.ID))
	// already credited accreditations are skipped.
	mustApply(t, b, NewPay(monday, a1.ID, a2.ID))
	if len(b.Payments()) != 2 || a2.State() != AccreditationCredited {
		t.Errorf("got %d payments and %s, want 2 and credited", len(b.Payments()), a2.State())
	}
	if err := b.Apply(NewPay(monday, a1.ID, a2.ID)); !errors.Is(err, ErrInvalid) {
		t.Errorf("Pay with nothing pending = %v, want ErrInvalid", err)
	}
}

func TestAccreditation_Reverse(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b, NewDeductTemplate(monday, a.ID, "Retenciones"))

	// outside a batch there is nothing to reverse against.
	mustApply(t, b, NewPay(monday, a.ID))
	if err := b.Apply(NewUpdateAccreditation(monday, a.ID, ActReverse)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("reverse outside a batch = %v, want ErrInvalid", err)
	}

	b = testBook(t)
	a = collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b, NewDeductTemplate(monday, a.ID, "Retenciones"))
	mustApply(t, b, NewUpdateBatch(monday, "", ActCreate, a.ID))
	batch, _ := b.Batch(a.Batch)
	version := batch.Version
	mustApply(t, b, NewUpdateAccreditation(monday.Add(10), a.ID, ActReverse))

	accs := b.Accreditations()
	rev := accs[len(accs)-1]
	if rev.Reverses != a.ID || rev.State() != AccreditationReversed || rev.Coupon != "0001-REV" {
		t.Errorf("reversal = %+v", rev)
	}
	if !rev.Amount.Equal(ARS(-1000)) || !rev.NetAmount().Equal(a.NetAmount().Neg()) {
		t.Errorf("reversal net = %s, want %s", rev.NetAmount(), a.NetAmount().Neg())
	}
	if len(rev.Deductions) != 2 || rev.Deductions[0].State() != DeductionPosted || rev.Deductions[0].Move == "" {
		t.Errorf("reversal deductions = %v, want two posted", rev.Deductions)
	}
	if got := balance(b, "1.4.1"); !got.IsZero() {
		t.Errorf("withholdings after the reversal = %s, want 0", got)
	}
	if !b.GeneralLedger().IsReversed(a.Deductions[0].Move) {
		t.Errorf("move %s of %s is not reversed", a.Deductions[0].Move, a.Deductions[0].ID)
	}
	checkTrialBalance(t, b)
	if batch.Version != version+1 || len(batch.Accreditations()) != 2 {
		t.Errorf("batch version %d with %d accreditations, want %d and 2", batch.Version, len(batch.Accreditations()), version+1)
	}
	if err := b.Apply(NewUpdateAccreditation(monday, rev.ID, ActReset)); !errors.Is(err, ErrInvalid) {
		t.Errorf("reset of a reversal = %v, want ErrInvalid", err)
	}
}

func TestAccreditation_Reset(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	if err := b.Apply(NewUpdateAccreditation(monday, a.ID, ActReset)); !errors.Is(err, ErrInvalid) {
		t.Errorf("reset of a pending accreditation = %v, want ErrInvalid", err)
	}

	mustApply(t, b, NewUpdateBatch(monday, "", ActCreate, a.ID))
	name := a.Batch
	// the batch is confirmed, hence locked.
	if err := b.Apply(NewUpdateAccreditation(monday, a.ID, ActReset)); !errors.Is(err, ErrInvalid) {
		t.Errorf("reset in a confirmed batch = %v, want ErrInvalid", err)
	}
	mustApply(t, b, NewUpdateBatch(monday, name, ActDraft))
	if a.State() != AccreditationPending || a.Batch != name {
		t.Errorf("after draft: %s in %q, want pending in %s", a.State(), a.Batch, name)
	}
	mustApply(t, b, NewUpdateBatch(monday, name, ActRemove, a.ID))
	if a.Batch != "" {
		t.Errorf("Batch = %q after remove, want none", a.Batch)
	}
}

func TestAccreditation_ResetFromReconciledBatch(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b, NewUpdateBatch(monday, "", ActCreate, a.ID))
	name := a.Batch
	mustApply(t, b,
		NewUpdateBatch(monday, name, ActTransfer),
		NewUpdateBatch(monday, name, ActReconcile),
		NewUpdateAccreditation(monday, a.ID, ActReset),
	)
	batch, _ := b.Batch(name)
	if a.State() != AccreditationPending || a.Batch != "" || len(batch.Accreditations()) != 0 {
		t.Errorf("after reset: %s in %q, batch has %d", a.State(), a.Batch, len(batch.Accreditations()))
	}
	if !a.ActualDate.IsZero() {
		t.Errorf("ActualDate = %s, want none", a.ActualDate)
	}
}

func TestAccreditation_Draft(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b, NewPay(monday, a.ID))
	p, _ := b.Payment(a.Payment)

	mustApply(t, b, NewUpdateAccreditation(monday, a.ID, ActDraft))
	if a.State() != AccreditationDraft {
		t.Errorf("State() = %s, want draft", a.State())
	}
	// its only accreditation is draft, so is the payment, and its move is
	// reversed.
	if p.State() != PaymentDraft || !b.GeneralLedger().IsReversed(p.Move) {
		t.Errorf("payment = %s, want draft and reversed", p.State())
	}
	if got := balance(b, "1.1.3"); !got.IsZero() {
		t.Errorf("card balance = %s, want 0", got)
	}
	// back to pending.
	mustApply(t, b, NewUpdateAccreditation(monday, a.ID, ActReset))
	if a.State() != AccreditationPending {
		t.Errorf("State() = %s, want pending", a.State())
	}
}

func TestMatchStatement(t *testing.T) {
	b := testBook(t)
	a1 := collect(t, b, monday, 1000, "047", "0001")
	a2 := collect(t, b, monday, 1000, "047", "0002")
	collect(t, b, monday, 1000, "048", "0001")
	a4 := collect(t, b, monday, 1000, "050", "0001")

	got := b.MatchStatement("Liquidación VISA Lote 047 y LOTE 050")
	var ids []string
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	if diff := cmp.Diff([]string{a1.ID, a2.ID, a4.ID}, ids); diff != "" {
		t.Errorf("MatchStatement() mismatch (-want +got):\n%s", diff)
	}
	if got := b.SearchByBatchCoupon("047", "0002"); len(got) != 1 || got[0] != a2 {
		t.Errorf("SearchByBatchCoupon() = %v, want %s", got, a2.ID)
	}
}
