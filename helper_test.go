package settle

import (
	"testing"
	"time"

	"github.com/etnz/settle/date"
	"github.com/etnz/settle/partner"
)

// ARS is a helper for test to create pesos from const
func ARS(v float64) Money { return M(v, "ARS") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// monday is a business day used as the default test date.
var monday = date.New(2025, time.March, 3)

// testSettings returns the default settings with a customer and a tax
// template.
func testSettings() *Settings {
	s := DefaultSettings()
	s.Partners = append(s.Partners, partner.Partner{Name: "Cliente", CustomerRank: 1})
	s.Templates = []TaxTemplate{{
		Name: "Retenciones",
		Lines: []TemplateLine{
			{Name: "IIBB", Account: "1.4.1", Percentage: 2.5},
			{Name: "IVA", Account: "1.4.1", Percentage: 1},
		},
	}}
	return s
}

func testBook(t *testing.T) *Book {
	t.Helper()
	b, err := NewBook(testSettings())
	if err != nil {
		t.Fatalf("NewBook() failed: %v", err)
	}
	return b
}

// mustApply applies commands and fails the test on error.
func mustApply(t *testing.T, b *Book, cmds ...Command) {
	t.Helper()
	if err := b.Apply(cmds...); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
}

// collect registers a sale coupon of the "Cliente" customer on the card
// journal and returns its accreditation.
func collect(t *testing.T, b *Book, on date.Date, amount float64, batch, coupon string) *Accreditation {
	t.Helper()
	mustApply(t, b, NewCollect(on, "CARD", "1 cuota", "Cliente", ARS(amount), batch, coupon))
	accs := b.Accreditations()
	return accs[len(accs)-1]
}

// balance returns the balance of an account in pesos.
func balance(b *Book, account string) Money {
	return b.GeneralLedger().Balance("ARS", account)
}

// checkTrialBalance fails when total debits and credits differ.
func checkTrialBalance(t *testing.T, b *Book) {
	t.Helper()
	var debit, credit Money
	for _, r := range b.GeneralLedger().TrialBalance("ARS") {
		debit = debit.Add(r.Debit)
		credit = credit.Add(r.Credit)
	}
	if !debit.Equal(credit) {
		t.Errorf("trial balance: debit %s != credit %s", debit, credit)
	}
}
