package settle

import (
	"errors"
	"testing"
)

func TestDeduct_Template(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b, NewDeductTemplate(monday, a.ID, "Retenciones"))

	if len(a.Deductions) != 2 {
		t.Fatalf("got %d deductions, want 2", len(a.Deductions))
	}
	d := a.Deductions[0]
	if d.ID != "TAX/0001" || d.Name != "Retenciones - IIBB" || !d.Amount.Equal(ARS(25)) || d.State() != DeductionDraft {
		t.Errorf("deduction = %+v", d)
	}
	if got := a.TotalTaxDeductions(); !got.Equal(ARS(35)) {
		t.Errorf("TotalTaxDeductions() = %s, want 35", got)
	}
	if got := a.NetAmount(); !got.Equal(ARS(888.3)) {
		t.Errorf("NetAmount() = %s, want 888.30", got)
	}
	if err := b.Apply(NewDeductTemplate(monday, a.ID, "Ganancias")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown template = %v, want ErrNotFound", err)
	}
}

func TestDeduct_Limits(t *testing.T) {
	tests := []struct {
		name string
		cmd  func(acc string) Deduct
		is   error
	}{
		{"percentage above 100", func(acc string) Deduct { return NewDeduct(monday, acc, "x", "1.4.1", Pct(150)) }, ErrInvalid},
		{"negative percentage", func(acc string) Deduct { return NewDeduct(monday, acc, "x", "1.4.1", Pct(-1)) }, ErrInvalid},
		{"unknown account", func(acc string) Deduct { return NewDeduct(monday, acc, "x", "9.9.9", Pct(1)) }, ErrNotFound},
		{"no amount", func(acc string) Deduct { return NewDeduct(monday, acc, "x", "1.4.1", Pct(0)) }, ErrInvalid},
		{"above the amount", func(acc string) Deduct {
			c := NewDeduct(monday, acc, "x", "1.4.1", Pct(0))
			c.Amount = ARS(2000).Decimal()
			return c
		}, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBook(t)
			a := collect(t, b, monday, 1000, "047", "0001")
			if err := b.Apply(tt.cmd(a.ID)); !errors.Is(err, tt.is) {
				t.Errorf("Apply() = %v, want %v", err, tt.is)
			}
		})
	}

	t.Run("fixed amount", func(t *testing.T) {
		b := testBook(t)
		a := collect(t, b, monday, 1000, "047", "0001")
		c := NewDeduct(monday, a.ID, "SIRCREB", "1.4.1", Pct(0))
		c.Amount = ARS(12.5).Decimal()
		mustApply(t, b, c)
		if got := a.Deductions[0].Amount; !got.Equal(ARS(12.5)) {
			t.Errorf("Amount = %s, want 12.50", got)
		}
	})
}

func TestDeduction_Lifecycle(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b, NewDeduct(monday, a.ID, "IIBB", "1.4.1", Pct(2.5)))
	d := a.Deductions[0]

	if err := b.Apply(NewUpdateDeduction(monday, d.ID, ActPost)); !errors.Is(err, ErrInvalid) {
		t.Errorf("post of a draft = %v, want ErrInvalid", err)
	}
	mustApply(t, b,
		NewUpdateDeduction(monday, d.ID, ActConfirm),
		NewUpdateDeduction(monday, d.ID, ActPost),
	)
	if d.State() != DeductionPosted || d.Move != d.ID || d.Applied != monday {
		t.Errorf("deduction = %s move %q applied %s", d.State(), d.Move, d.Applied)
	}
	if got := balance(b, "1.4.1"); !got.Equal(ARS(25)) {
		t.Errorf("tax balance = %s, want 25", got)
	}
	if got := balance(b, "1.1.3"); !got.Equal(ARS(-25)) {
		t.Errorf("card balance = %s, want -25", got)
	}
	for _, act := range []Action{ActCancel, ActDelete} {
		if err := b.Apply(NewUpdateDeduction(monday, d.ID, act)); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s of a posted deduction = %v, want ErrInvalid", act, err)
		}
	}
	checkTrialBalance(t, b)
}

func TestDeduction_CancelAndDelete(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b, NewDeductTemplate(monday, a.ID, "Retenciones"))
	d1, d2 := a.Deductions[0], a.Deductions[1]

	mustApply(t, b, NewUpdateDeduction(monday, d1.ID, ActCancel))
	if d1.State() != DeductionCancelled {
		t.Errorf("State() = %s, want cancelled", d1.State())
	}
	if got := a.TotalTaxDeductions(); !got.Equal(ARS(10)) {
		t.Errorf("TotalTaxDeductions() = %s, want 10 once cancelled", got)
	}
	mustApply(t, b, NewUpdateDeduction(monday, d2.ID, ActDelete))
	if len(a.Deductions) != 1 {
		t.Errorf("got %d deductions, want 1", len(a.Deductions))
	}
	if _, err := b.Deduction(d2.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deduction() = %v, want ErrNotFound", err)
	}
}

func TestDeduction_PostNeedsPayment(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b,
		NewPay(monday, a.ID),
		NewUpdateAccreditation(monday, a.ID, ActDraft), // the payment goes back to draft
		NewUpdateAccreditation(monday, a.ID, ActReset),
		NewDeduct(monday, a.ID, "IIBB", "1.4.1", Pct(2.5)),
	)
	d := a.Deductions[0]
	mustApply(t, b, NewUpdateDeduction(monday, d.ID, ActConfirm))
	if err := b.Apply(NewUpdateDeduction(monday, d.ID, ActPost)); !errors.Is(err, ErrInvalid) {
		t.Errorf("post with a draft payment = %v, want ErrInvalid", err)
	}
}

func TestCredit_AutoPostsDeductions(t *testing.T) {
	b := testBook(t)
	a := collect(t, b, monday, 1000, "047", "0001")
	mustApply(t, b,
		NewDeductTemplate(monday, a.ID, "Retenciones"),
		NewPay(monday, a.ID),
	)
	for _, d := range a.Deductions {
		if d.State() != DeductionPosted {
			t.Errorf("deduction %s is %s, want posted", d.ID, d.State())
		}
	}
	p, _ := b.Payment(a.Payment)
	if !p.Amount.Equal(ARS(888.3)) {
		t.Errorf("payment amount = %s, want the net 888.30", p.Amount)
	}
	if got := balance(b, "1.4.1"); !got.Equal(ARS(35)) {
		t.Errorf("tax balance = %s, want 35", got)
	}
	checkTrialBalance(t, b)
}
