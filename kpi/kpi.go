// Package kpi computes the dashboard banner: a list of configurable cells,
// each showing one figure of the books (income, balances, counts, lock
// dates, or an arithmetic combination of other cells) with optional
// warning thresholds, target achievement and historical range.
package kpi

import (
	"fmt"
	"strings"
	"time"

	"github.com/etnz/settle/date"
	"github.com/shopspring/decimal"
)

// Type is the kind of figure a cell shows.
type Type string

const (
	IncomeFiscalYear Type = "income_fiscalyear"
	IncomeYear       Type = "income_year"
	IncomeQuarter    Type = "income_quarter"
	IncomeMonth      Type = "income_month"

	Liquidity        Type = "liquidity"
	CustomerDebt     Type = "customer_debt"
	CustomerOverdue  Type = "customer_overdue"
	SupplierDebt     Type = "supplier_debt"
	TotalAssets      Type = "total_assets"
	TotalLiabilities Type = "total_liabilities"
	AccountBalance   Type = "account_balance"
	VATBalance       Type = "vat_balance"
	CardPending      Type = "card_pending"

	ReceivablePayableRatio Type = "receivable_payable_ratio"
	OldestOverdueDays      Type = "oldest_overdue_days"

	InvoiceCount      Type = "invoice_count"
	BillCount         Type = "bill_count"
	UnreconciledCount Type = "unreconciled_count"

	TaxLockDate        Type = "tax_lock_date"
	SaleLockDate       Type = "sale_lock_date"
	PurchaseLockDate   Type = "purchase_lock_date"
	FiscalYearLockDate Type = "fiscalyear_lock_date"
	HardLockDate       Type = "hard_lock_date"

	MathOperation Type = "kpi_math_operation"
)

// IsLockDate reports whether the cell shows a lock date.
func (t Type) IsLockDate() bool { return strings.HasSuffix(string(t), "_lock_date") }

// Label is the default label of the cell type.
func (t Type) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return strings.ReplaceAll(string(t), "_", " ")
}

var labels = map[Type]string{
	IncomeFiscalYear:       "Fiscal Year Income",
	IncomeYear:             "Year Income",
	IncomeQuarter:          "Quarter Income",
	IncomeMonth:            "Month Income",
	Liquidity:              "Liquidity",
	CustomerDebt:           "Customer Debt",
	CustomerOverdue:        "Customer Overdue",
	SupplierDebt:           "Supplier Debt",
	TotalAssets:            "Total Assets",
	TotalLiabilities:       "Total Liabilities",
	AccountBalance:         "Account Balance",
	VATBalance:             "VAT Balance",
	CardPending:            "Pending Card Accreditations",
	ReceivablePayableRatio: "Receivable / Payable",
	OldestOverdueDays:      "Oldest Overdue Invoice",
	InvoiceCount:           "Customer Invoices",
	BillCount:              "Supplier Bills",
	UnreconciledCount:      "Unreconciled Items",
	TaxLockDate:            "Tax Return Lock Date",
	SaleLockDate:           "Sales Lock Date",
	PurchaseLockDate:       "Purchase Lock Date",
	FiscalYearLockDate:     "Global Lock Date",
	HardLockDate:           "Hard Lock Date",
	MathOperation:          "Calculation",
}

// DefaultLockDateDays returns how old a lock date may get before it warns.
func DefaultLockDateDays(t Type) int {
	switch t {
	case TaxLockDate, PurchaseLockDate, FiscalYearLockDate:
		return 61
	case SaleLockDate:
		return 35
	case HardLockDate:
		return 520
	}
	return 0
}

// WarnType is the kind of threshold check.
type WarnType string

const (
	Under   WarnType = "under"
	Above   WarnType = "above"
	Outside WarnType = "outside"
	Inside  WarnType = "inside"
)

// Operation combines two cells.
type Operation string

const (
	Add        Operation = "add"
	Subtract   Operation = "subtract"
	Multiply   Operation = "multiply"
	Divide     Operation = "divide"
	Percentage Operation = "percentage"
)

// Format is the display format of a calculation.
type Format string

const (
	NumberFormat     Format = "number"
	CurrencyFormat   Format = "currency"
	PercentageFormat Format = "percentage"
	RatioFormat      Format = "ratio"
	CustomFormat     Format = "custom"
)

// Cell is the configuration of one dashboard cell.
type Cell struct {
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Type     Type     `json:"type" yaml:"type" validate:"required"`
	Label    string   `json:"label,omitempty" yaml:"label"`
	Tooltip  string   `json:"tooltip,omitempty" yaml:"tooltip"`
	Accounts []string `json:"accounts,omitempty" yaml:"accounts"` // account code prefixes

	Warn               bool     `json:"warn,omitempty" yaml:"warn"`
	WarnType           WarnType `json:"warnType,omitempty" yaml:"warnType" validate:"omitempty,oneof=under above outside inside"`
	WarnMin            float64  `json:"warnMin,omitempty" yaml:"warnMin"`
	WarnMax            float64  `json:"warnMax,omitempty" yaml:"warnMax"`
	WarnLockDateDays   *int     `json:"warnLockDateDays,omitempty" yaml:"warnLockDateDays" validate:"omitempty,gte=0"`
	UseColorThresholds bool     `json:"useColorThresholds,omitempty" yaml:"useColorThresholds"`
	YellowPercentage   *float64 `json:"yellowPercentage,omitempty" yaml:"yellowPercentage" validate:"omitempty,gte=0,lte=100"`

	Target     float64 `json:"target,omitempty" yaml:"target"`
	ShowTarget bool    `json:"showTarget,omitempty" yaml:"showTarget"`

	Operation     Operation `json:"operation,omitempty" yaml:"operation" validate:"omitempty,oneof=add subtract multiply divide percentage"`
	A             string    `json:"a,omitempty" yaml:"a"`
	B             string    `json:"b,omitempty" yaml:"b"`
	Format        Format    `json:"format,omitempty" yaml:"format" validate:"omitempty,oneof=number currency percentage ratio custom"`
	DecimalPlaces *int      `json:"decimalPlaces,omitempty" yaml:"decimalPlaces" validate:"omitempty,gte=0,lte=8"`
	Suffix        string    `json:"suffix,omitempty" yaml:"suffix"`

	ShowHistoricalRange  bool `json:"showHistoricalRange,omitempty" yaml:"showHistoricalRange"`
	HistoricalPeriodDays int  `json:"historicalPeriodDays,omitempty" yaml:"historicalPeriodDays" validate:"gte=0"`
}

// DisplayLabel returns the custom label, or the type label.
func (c Cell) DisplayLabel() string {
	if l := strings.TrimSpace(c.Label); l != "" {
		return l
	}
	return c.Type.Label()
}

func (c Cell) lockDateDays() int {
	if c.WarnLockDateDays != nil {
		return *c.WarnLockDateDays
	}
	return DefaultLockDateDays(c.Type)
}

func (c Cell) yellow() decimal.Decimal {
	if c.YellowPercentage != nil {
		return decimal.NewFromFloat(*c.YellowPercentage)
	}
	return decimal.NewFromInt(10)
}

func (c Cell) places() int32 {
	if c.DecimalPlaces != nil {
		return int32(*c.DecimalPlaces)
	}
	return 2
}

// Source is the accounting data a board reads.
type Source interface {
	Today() date.Date
	Currency() string
	// Balance returns debit minus credit of accounts whose code starts with
	// one of the prefixes.
	Balance(prefixes ...string) decimal.Decimal
	// BalanceByType returns debit minus credit of accounts of the given types,
	// for lines dated in r. A zero r.From means since the beginning.
	BalanceByType(r date.Range, types ...string) decimal.Decimal
	// OpenItems returns the unreconciled lines of "receivable" or "payable"
	// accounts.
	OpenItems(kind string) []Item
	// Documents counts the invoices of a move type, e.g. "out_invoice".
	Documents(moveType string) int
	// Unreconciled counts unreconciled lines of accounts matching the
	// prefixes, or of receivable and payable accounts when there is none.
	Unreconciled(prefixes ...string) int
	// CardPending returns the net amount and count of pending accreditations.
	CardPending() (decimal.Decimal, int)
	// LockDate returns a lock date by cell type name, zero when unset.
	LockDate(name string) date.Date
}

// Item is an open receivable or payable line.
type Item struct {
	Due    date.Date
	Amount decimal.Decimal // debit minus credit
}

// Board is a validated set of cells.
type Board struct {
	// FiscalYearStart is the first month of the fiscal year, January by default.
	FiscalYearStart time.Month

	cells  []Cell
	byName map[string]int
}

// NewBoard checks the cells and returns a board.
func NewBoard(cells ...Cell) (*Board, error) {
	b := &Board{FiscalYearStart: time.January, byName: make(map[string]int)}
	for i, c := range cells {
		if _, dup := b.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate cell %q", c.Name)
		}
		if _, ok := labels[c.Type]; !ok {
			return nil, fmt.Errorf("cell %q: unknown type %q", c.Name, c.Type)
		}
		b.byName[c.Name] = i
	}
	b.cells = cells
	for _, c := range cells {
		if err := b.check(c); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Cells returns the board cells in order.
func (b *Board) Cells() []Cell { return b.cells }

func (b *Board) check(c Cell) error {
	if c.Warn && !c.Type.IsLockDate() && (c.WarnType == Outside || c.WarnType == Inside) && c.WarnMax <= c.WarnMin {
		return fmt.Errorf("cell %q with warning enabled: the minimum (%v) must be under the maximum (%v)", c.Name, c.WarnMin, c.WarnMax)
	}
	if c.Type == AccountBalance && len(c.Accounts) == 0 {
		return fmt.Errorf("cell %q: account balance needs accounts", c.Name)
	}
	if c.Type != MathOperation {
		return nil
	}
	switch {
	case c.Operation == "":
		return fmt.Errorf("cell %q: mathematical operation is required", c.Name)
	case c.A == "":
		return fmt.Errorf("cell %q: first operand (A) is required", c.Name)
	case c.B == "":
		return fmt.Errorf("cell %q: second operand (B) is required", c.Name)
	case c.A == c.B:
		return fmt.Errorf("cell %q: operands must be different", c.Name)
	case c.A == c.Name || c.B == c.Name:
		return fmt.Errorf("cell %q cannot reference itself", c.Name)
	}
	for _, op := range []string{c.A, c.B} {
		if _, ok := b.byName[op]; !ok {
			return fmt.Errorf("cell %q: unknown operand %q", c.Name, op)
		}
	}
	return b.checkCycle(c, map[string]bool{})
}

func (b *Board) checkCycle(c Cell, visited map[string]bool) error {
	if visited[c.Name] {
		return fmt.Errorf("circular reference: cell %q depends on itself", c.Name)
	}
	visited[c.Name] = true
	defer delete(visited, c.Name)
	for _, op := range []string{c.A, c.B} {
		o := b.cells[b.byName[op]]
		if o.Type != MathOperation {
			continue
		}
		if err := b.checkCycle(o, visited); err != nil {
			return err
		}
	}
	return nil
}
