package kpi

import (
	"errors"
	"testing"

	"github.com/etnz/settle/date"
	"github.com/shopspring/decimal"
)

// fakeSource serves fixed figures.
type fakeSource struct {
	today    date.Date
	byType   map[string]decimal.Decimal
	byPrefix map[string]decimal.Decimal
	items    []Item
	docs     map[string]int
	pending  decimal.Decimal
	locks    map[string]date.Date
}

func (f *fakeSource) Today() date.Date  { return f.today }
func (f *fakeSource) Currency() string { return "ARS" }
func (f *fakeSource) Balance(prefixes ...string) decimal.Decimal {
	total := decimal.Zero
	for _, p := range prefixes {
		total = total.Add(f.byPrefix[p])
	}
	return total
}
func (f *fakeSource) BalanceByType(r date.Range, types ...string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range types {
		total = total.Add(f.byType[t])
	}
	return total
}
func (f *fakeSource) OpenItems(kind string) []Item        { return f.items }
func (f *fakeSource) Documents(moveType string) int       { return f.docs[moveType] }
func (f *fakeSource) Unreconciled(prefixes ...string) int { return 3 }
func (f *fakeSource) CardPending() (decimal.Decimal, int) { return f.pending, 2 }
func (f *fakeSource) LockDate(name string) date.Date      { return f.locks[name] }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSource() *fakeSource {
	return &fakeSource{
		today: date.MustParse("2025-06-30"),
		byType: map[string]decimal.Decimal{
			"income":     dec("-5000"),
			"receivable": dec("3000"),
			"payable":    dec("-1500"),
			"liquidity":  dec("800"),
		},
		byPrefix: map[string]decimal.Decimal{"1.1": dec("120")},
		items: []Item{
			{Due: date.MustParse("2025-06-01"), Amount: dec("1000")},
			{Due: date.MustParse("2025-07-15"), Amount: dec("2000")},
		},
		docs:    map[string]int{"out_invoice": 7},
		pending: dec("981.30"),
		locks:   map[string]date.Date{"tax_lock_date": date.MustParse("2025-01-31")},
	}
}

func byName(t *testing.T, results []Result) map[string]Result {
	t.Helper()
	m := make(map[string]Result)
	for _, r := range results {
		m[r.Cell.Name] = r
	}
	return m
}

func TestEvaluate(t *testing.T) {
	b, err := NewBoard(
		Cell{Name: "income", Type: IncomeYear},
		Cell{Name: "debt", Type: CustomerDebt},
		Cell{Name: "overdue", Type: CustomerOverdue},
		Cell{Name: "suppliers", Type: SupplierDebt},
		Cell{Name: "ratio", Type: ReceivablePayableRatio},
		Cell{Name: "oldest", Type: OldestOverdueDays},
		Cell{Name: "invoices", Type: InvoiceCount},
		Cell{Name: "cards", Type: CardPending},
		Cell{Name: "bank", Type: AccountBalance, Accounts: []string{"1.1"}},
		Cell{Name: "share", Type: MathOperation, Operation: Percentage, A: "overdue", B: "debt", Format: PercentageFormat, DecimalPlaces: new(int)},
	)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	got := byName(t, b.Evaluate(testSource()))

	want := map[string]string{
		"income":    "5000",
		"debt":      "3000",
		"overdue":   "1000",
		"suppliers": "1500",
		"ratio":     "2",
		"oldest":    "29",
		"invoices":  "7",
		"cards":     "981.3",
		"bank":      "120",
	}
	for name, v := range want {
		r := got[name]
		if r.Err != nil {
			t.Errorf("%s: error %v", name, r.Err)
			continue
		}
		if !r.Value.Equal(dec(v)) {
			t.Errorf("%s = %s, want %s", name, r.Value, v)
		}
	}
	if got["oldest"].Text != "29 days" {
		t.Errorf("oldest text = %q, want %q", got["oldest"].Text, "29 days")
	}
	if got["share"].Text != "33%" {
		t.Errorf("share text = %q, want %q", got["share"].Text, "33%")
	}
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	b, err := NewBoard(
		Cell{Name: "debt", Type: CustomerDebt},
		Cell{Name: "assets", Type: TotalAssets},
		Cell{Name: "div", Type: MathOperation, Operation: Divide, A: "debt", B: "assets"},
	)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	src := testSource()
	// total assets include receivables, make them cancel out.
	src.byType = map[string]decimal.Decimal{"receivable": dec("10"), "asset": dec("-10")}
	got := byName(t, b.Evaluate(src))
	if !errors.Is(got["div"].Err, ErrDivisionByZero) {
		t.Errorf("div error = %v, want ErrDivisionByZero", got["div"].Err)
	}
	if got["div"].Text != "Error" {
		t.Errorf("div text = %q, want Error", got["div"].Text)
	}
}

func TestNewBoard_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		cells []Cell
	}{
		{"duplicate", []Cell{{Name: "a", Type: Liquidity}, {Name: "a", Type: Liquidity}}},
		{"unknown type", []Cell{{Name: "a", Type: "sales_forecast"}}},
		{"min over max", []Cell{{Name: "a", Type: Liquidity, Warn: true, WarnType: Outside, WarnMin: 10, WarnMax: 5}}},
		{"no accounts", []Cell{{Name: "a", Type: AccountBalance}}},
		{"no operation", []Cell{{Name: "a", Type: Liquidity}, {Name: "b", Type: Liquidity}, {Name: "m", Type: MathOperation, A: "a", B: "b"}}},
		{"same operands", []Cell{{Name: "a", Type: Liquidity}, {Name: "m", Type: MathOperation, Operation: Add, A: "a", B: "a"}}},
		{"self", []Cell{{Name: "a", Type: Liquidity}, {Name: "m", Type: MathOperation, Operation: Add, A: "a", B: "m"}}},
		{"unknown operand", []Cell{{Name: "a", Type: Liquidity}, {Name: "m", Type: MathOperation, Operation: Add, A: "a", B: "z"}}},
		{"cycle", []Cell{
			{Name: "a", Type: Liquidity},
			{Name: "x", Type: MathOperation, Operation: Add, A: "a", B: "y"},
			{Name: "y", Type: MathOperation, Operation: Add, A: "a", B: "x"},
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewBoard(tc.cells...); err == nil {
				t.Error("NewBoard() succeeded, want an error")
			}
		})
	}
	// lock date cells ignore min and max.
	if _, err := NewBoard(Cell{Name: "l", Type: TaxLockDate, Warn: true, WarnType: Inside}); err != nil {
		t.Errorf("NewBoard() error = %v", err)
	}
}

func TestLevel(t *testing.T) {
	testCases := []struct {
		name string
		cell Cell
		v    string
		want Level
	}{
		{"under danger", Cell{Warn: true, WarnType: Under, WarnMin: 100}, "99", Danger},
		{"under safe", Cell{Warn: true, WarnType: Under, WarnMin: 100}, "105", Safe},
		{"under yellow", Cell{Warn: true, WarnType: Under, WarnMin: 100, UseColorThresholds: true}, "105", Warning},
		{"under past yellow", Cell{Warn: true, WarnType: Under, WarnMin: 100, UseColorThresholds: true}, "110", Safe},
		{"above yellow", Cell{Warn: true, WarnType: Above, WarnMax: 100, UseColorThresholds: true}, "95", Warning},
		{"above danger", Cell{Warn: true, WarnType: Above, WarnMax: 100}, "101", Danger},
		{"outside", Cell{Warn: true, WarnType: Outside, WarnMin: 10, WarnMax: 20}, "25", Danger},
		{"inside", Cell{Warn: true, WarnType: Inside, WarnMin: 10, WarnMax: 20}, "15", Danger},
		{"inside yellow", Cell{Warn: true, WarnType: Inside, WarnMin: 10, WarnMax: 20, UseColorThresholds: true}, "9.5", Warning},
		{"disabled", Cell{WarnType: Under, WarnMin: 100}, "0", Safe},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cell.Level(dec(tc.v)); got != tc.want {
				t.Errorf("Level(%s) = %s, want %s", tc.v, got, tc.want)
			}
		})
	}
}

func TestLockDateWarning(t *testing.T) {
	b, err := NewBoard(
		Cell{Name: "tax", Type: TaxLockDate, Warn: true},
		Cell{Name: "sale", Type: SaleLockDate, Warn: true},
		Cell{Name: "hard", Type: HardLockDate},
	)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	src := testSource()
	src.locks["hard_lock_date"] = date.MustParse("2024-12-31")
	got := byName(t, b.Evaluate(src))
	// 2025-01-31 is older than 61 days on 2025-06-30.
	if got["tax"].Level != Danger {
		t.Errorf("tax level = %s, want danger", got["tax"].Level)
	}
	// unset lock date always warns.
	if got["sale"].Level != Danger || got["sale"].Text != "None" {
		t.Errorf("sale = %s %q, want danger None", got["sale"].Level, got["sale"].Text)
	}
	if got["hard"].Level != Safe || got["hard"].Text != "2024-12-31" {
		t.Errorf("hard = %s %q, want safe 2024-12-31", got["hard"].Level, got["hard"].Text)
	}
}

func TestTargetPercentage(t *testing.T) {
	testCases := []struct {
		cell Cell
		v    string
		want string
	}{
		{Cell{Type: Liquidity, Target: 1000}, "250", "25"},
		{Cell{Type: Liquidity, Target: 1000}, "-250", "0"},
		{Cell{Type: ReceivablePayableRatio, Target: 2}, "2", "100"},
		{Cell{Type: ReceivablePayableRatio, Target: 2}, "1.5", "75"},
		{Cell{Type: ReceivablePayableRatio, Target: 2}, "5", "0"},
	}
	for _, tc := range testCases {
		if got := tc.cell.TargetPercentage(dec(tc.v)); !got.Equal(dec(tc.want)) {
			t.Errorf("%s TargetPercentage(%s) = %s, want %s", tc.cell.Type, tc.v, got, tc.want)
		}
	}
}

func TestHistoricalRange(t *testing.T) {
	testCases := []struct {
		cell   Cell
		v      string
		lo, hi string
	}{
		{Cell{Type: Liquidity}, "100", "95", "105"},
		{Cell{Type: ReceivablePayableRatio, HistoricalPeriodDays: 30}, "2", "1.4", "2.6"},
		{Cell{Type: AccountBalance, HistoricalPeriodDays: 30}, "100", "50", "150"},
		{Cell{Type: Liquidity, HistoricalPeriodDays: 30}, "100", "80", "120"},
		{Cell{Type: Liquidity}, "0", "0", "0"},
	}
	for _, tc := range testCases {
		lo, hi := tc.cell.HistoricalRange(dec(tc.v))
		if !lo.Equal(dec(tc.lo)) || !hi.Equal(dec(tc.hi)) {
			t.Errorf("%s HistoricalRange(%s) = [%s, %s], want [%s, %s]", tc.cell.Type, tc.v, lo, hi, tc.lo, tc.hi)
		}
	}
}
