package bank

import (
	"errors"
	"slices"
	"testing"

	"github.com/etnz/settle/date"
	"github.com/etnz/settle/partner"
	"github.com/shopspring/decimal"
)

func testDirectory(t *testing.T) *partner.Directory {
	t.Helper()
	d, err := partner.NewDirectory([]partner.Partner{
		{Name: "Distribuidora Norte", CustomerRank: 1},
		{Name: "Papelera Sur", SupplierRank: 1},
	}, nil)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	return d
}

var methods = []Method{
	{Name: "manual-in", Direction: Inbound, Journal: "BNK"},
	{Name: "manual-out", Direction: Outbound, Journal: "BNK"},
	{Name: "echeq-in", Direction: Inbound, Journal: "BNK2"},
}

func TestPropose(t *testing.T) {
	d := testDirectory(t)
	line := Line{
		Statement: "BNK/2025/0003",
		Journal:   "BNK",
		Ref:       "distribuidora",
		Amount:    decimal.NewFromInt(15000),
		Currency:  "ARS",
		Date:      date.MustParse("2025-03-10"),
	}
	m := Model{Name: "Receipts", Counterpart: CustomerReceipts}

	got, err := Propose(m, line, d, methods)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	if got.Partner != "Distribuidora Norte" {
		t.Errorf("Partner = %q, want Distribuidora Norte", got.Partner)
	}
	if got.Direction != Inbound || got.PartnerType != "customer" {
		t.Errorf("Direction = %s %s, want inbound customer", got.Direction, got.PartnerType)
	}
	if got.Method != "manual-in" {
		t.Errorf("Method = %q, want manual-in", got.Method)
	}
	if got.Memo != "Bank reconciliation: BNK/2025/0003" {
		t.Errorf("Memo = %q", got.Memo)
	}
	if !got.AutoPost {
		t.Error("AutoPost should default to true")
	}
}

func TestPropose_VendorPayment(t *testing.T) {
	d := testDirectory(t)
	off := false
	m := Model{Name: "Payments", Counterpart: VendorPayments, MemoTemplate: "{partner_name} {amount}", AutoPost: &off}
	line := Line{Statement: "S1", Journal: "BNK", Ref: "PAPELERA", Amount: decimal.NewFromInt(-300), Currency: "ARS"}

	got, err := Propose(m, line, d, methods)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Amount = %s, want 300", got.Amount)
	}
	if got.Memo != "Papelera Sur -300" {
		t.Errorf("Memo = %q", got.Memo)
	}
	if got.AutoPost {
		t.Error("AutoPost = true, want false")
	}
}

func TestPropose_NoPartner(t *testing.T) {
	d := testDirectory(t)
	// a supplier is not a customer.
	line := Line{Journal: "BNK", Ref: "papelera", Amount: decimal.NewFromInt(10)}
	_, err := Propose(Model{Name: "R", Counterpart: CustomerReceipts}, line, d, methods)
	if !errors.Is(err, ErrNoPartner) {
		t.Errorf("Propose() error = %v, want ErrNoPartner", err)
	}
}

func TestPaymentMethod(t *testing.T) {
	testCases := []struct {
		name    string
		model   Model
		journal string
		want    string
		wantErr bool
	}{
		{"model method", Model{Counterpart: CustomerReceipts, Method: "echeq-in"}, "BNK", "echeq-in", false},
		{"journal first", Model{Counterpart: CustomerReceipts}, "BNK2", "echeq-in", false},
		{"any method", Model{Counterpart: CustomerReceipts}, "CASH", "manual-in", false},
		{"type mismatch", Model{Counterpart: VendorPayments, Method: "manual-in"}, "BNK", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PaymentMethod(tc.model, tc.journal, methods)
			if (err != nil) != tc.wantErr {
				t.Fatalf("PaymentMethod() error = %v, wantErr %v", err, tc.wantErr)
			}
			if got.Name != tc.want {
				t.Errorf("PaymentMethod() = %q, want %q", got.Name, tc.want)
			}
		})
	}
	if _, err := PaymentMethod(Model{Counterpart: VendorPayments}, "BNK", methods[:1]); !errors.Is(err, ErrNoMethod) {
		t.Errorf("PaymentMethod() error = %v, want ErrNoMethod", err)
	}
}

func TestProposeDirect(t *testing.T) {
	d := testDirectory(t)
	line := Line{Journal: "BNK", Ref: "Cliente Nuevo SA", Amount: decimal.NewFromInt(500), Date: date.MustParse("2025-03-10")}
	got, err := ProposeDirect(line, d, methods)
	if err != nil {
		t.Fatalf("ProposeDirect() error = %v", err)
	}
	if !got.NewPartner || got.Partner != "Cliente Nuevo SA" {
		t.Errorf("Partner = %q (new %v), want a new Cliente Nuevo SA", got.Partner, got.NewPartner)
	}
	if got.Memo != "Bank reconciliation: Cliente Nuevo SA" {
		t.Errorf("Memo = %q", got.Memo)
	}
}

func TestExtractBatches(t *testing.T) {
	testCases := []struct {
		ref  string
		want []string
	}{
		{"Liquidacion VISA Lote 047", []string{"047"}},
		{"LOTE047 y lote  12", []string{"047", "12"}},
		{"transferencia", nil},
	}
	for _, tc := range testCases {
		t.Run(tc.ref, func(t *testing.T) {
			if got := ExtractBatches(tc.ref); !slices.Equal(got, tc.want) {
				t.Errorf("ExtractBatches() = %v, want %v", got, tc.want)
			}
		})
	}
}
