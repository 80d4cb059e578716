package kpi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/etnz/settle/date"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Level is the warning level of a cell.
type Level string

const (
	Safe    Level = "safe"
	Warning Level = "warning"
	Danger  Level = "danger"
)

// ErrDivisionByZero is the error value of a division by a zero operand.
var ErrDivisionByZero = errors.New("division by zero")

// Result is a computed cell.
type Result struct {
	Cell    Cell
	Value   decimal.Decimal
	Date    date.Date // lock date cells only
	Text    string
	Tooltip string
	Level   Level
	Err     error

	TargetPercentage *decimal.Decimal
	Min, Max         *decimal.Decimal
}

// Warn reports whether the cell is not in the safe zone.
func (r Result) Warn() bool { return r.Level != Safe }

// Evaluate computes every cell of the board.
func (b *Board) Evaluate(src Source) []Result {
	e := evaluation{board: b, src: src, done: make(map[string]Result)}
	results := make([]Result, len(b.cells))
	for i, c := range b.cells {
		results[i] = e.cell(c)
	}
	return results
}

type evaluation struct {
	board *Board
	src   Source
	done  map[string]Result
}

func (e *evaluation) cell(c Cell) Result {
	if r, ok := e.done[c.Name]; ok {
		return r
	}
	r := Result{Cell: c, Level: Safe}
	if c.Type.IsLockDate() {
		e.lockDate(c, &r)
	} else {
		r.Value, r.Tooltip, r.Err = e.value(c)
		if r.Err != nil {
			r.Text = "Error"
			r.Tooltip = r.Err.Error()
		} else {
			r.Text = e.format(c, r.Value)
			if c.Warn {
				r.Level = c.Level(r.Value)
			}
			if c.ShowTarget && c.Target != 0 {
				p := c.TargetPercentage(r.Value)
				r.TargetPercentage = &p
			}
			if c.ShowHistoricalRange {
				lo, hi := c.HistoricalRange(r.Value)
				r.Min, r.Max = &lo, &hi
			}
		}
	}
	if c.Tooltip != "" {
		r.Tooltip = c.Tooltip
	}
	e.done[c.Name] = r
	return r
}

func (e *evaluation) lockDate(c Cell, r *Result) {
	r.Date = e.src.LockDate(string(c.Type))
	r.Text = "None"
	if !r.Date.IsZero() {
		r.Text = r.Date.String()
	}
	r.Tooltip = c.Type.Label()
	if !c.Warn {
		return
	}
	if r.Date.IsZero() || r.Date.Before(e.src.Today().Add(-c.lockDateDays())) {
		r.Level = Danger
	}
}

var all = date.Range{}

func (e *evaluation) value(c Cell) (decimal.Decimal, string, error) {
	src := e.src
	today := src.Today()
	switch c.Type {
	case IncomeFiscalYear, IncomeYear, IncomeQuarter, IncomeMonth:
		from := e.incomeStart(c.Type, today)
		v := src.BalanceByType(date.Between(from, today), "income").Neg()
		return v, "from " + from.String(), nil
	case Liquidity:
		return src.BalanceByType(all, "liquidity"), "Balance of liquidity accounts", nil
	case CustomerDebt:
		return src.BalanceByType(all, "receivable"), "Balance of receivable accounts", nil
	case CustomerOverdue:
		v := decimal.Zero
		for _, it := range src.OpenItems("receivable") {
			if it.Due.IsZero() || it.Due.Before(today) {
				v = v.Add(it.Amount)
			}
		}
		return v, "with due date before " + today.String(), nil
	case SupplierDebt:
		return src.BalanceByType(all, "payable").Neg(), "Balance of payable accounts", nil
	case TotalAssets:
		return src.BalanceByType(all, "asset", "liquidity", "receivable"), "All asset accounts", nil
	case TotalLiabilities:
		return src.BalanceByType(all, "payable", "liability").Neg(), "All liability accounts", nil
	case AccountBalance:
		return src.Balance(c.Accounts...), "Balance of account(s) " + strings.Join(c.Accounts, ", "), nil
	case VATBalance:
		if len(c.Accounts) > 0 {
			return src.Balance(c.Accounts...).Neg(), "VAT owed on " + strings.Join(c.Accounts, ", "), nil
		}
		return src.BalanceByType(all, "tax").Neg(), "VAT owed", nil
	case CardPending:
		v, n := src.CardPending()
		return v, fmt.Sprintf("%d pending accreditations", n), nil
	case ReceivablePayableRatio:
		rec := src.BalanceByType(all, "receivable").Abs()
		pay := src.BalanceByType(all, "payable").Abs()
		if pay.IsZero() {
			return decimal.Zero, "No payables", nil
		}
		return rec.Div(pay), fmt.Sprintf("Receivables: %s\nPayables: %s", e.money(rec), e.money(pay)), nil
	case OldestOverdueDays:
		var oldest date.Date
		for _, it := range src.OpenItems("receivable") {
			if it.Amount.IsPositive() && !it.Due.IsZero() && it.Due.Before(today) && (oldest.IsZero() || it.Due.Before(oldest)) {
				oldest = it.Due
			}
		}
		if oldest.IsZero() {
			return decimal.Zero, "No overdue customer invoices", nil
		}
		days := today.Sub(oldest)
		return decimal.NewFromInt(int64(days)), fmt.Sprintf("Invoice from %s (%d days overdue)", oldest, days), nil
	case InvoiceCount:
		n := src.Documents("out_invoice")
		return decimal.NewFromInt(int64(n)), fmt.Sprintf("Customer Invoices: %d", n), nil
	case BillCount:
		n := src.Documents("in_invoice")
		return decimal.NewFromInt(int64(n)), fmt.Sprintf("Supplier Bills: %d", n), nil
	case UnreconciledCount:
		n := src.Unreconciled(c.Accounts...)
		return decimal.NewFromInt(int64(n)), fmt.Sprintf("Unreconciled lines: %d", n), nil
	case MathOperation:
		return e.math(c)
	}
	return decimal.Zero, "", fmt.Errorf("cell %q: unsupported type %q", c.Name, c.Type)
}

func (e *evaluation) incomeStart(t Type, today date.Date) date.Date {
	switch t {
	case IncomeMonth:
		return today.StartOf(date.Monthly)
	case IncomeQuarter:
		return today.StartOf(date.Quarterly)
	case IncomeYear:
		return today.StartOf(date.Yearly)
	}
	start := date.New(today.Year(), e.board.FiscalYearStart, 1)
	if start.After(today) {
		start = start.AddMonth(-12)
	}
	return start
}

func (e *evaluation) math(c Cell) (decimal.Decimal, string, error) {
	a := e.cell(e.board.cells[e.board.byName[c.A]])
	b := e.cell(e.board.cells[e.board.byName[c.B]])
	for _, r := range []Result{a, b} {
		if r.Err != nil {
			return decimal.Zero, "", fmt.Errorf("operand %q: %w", r.Cell.Name, r.Err)
		}
	}
	var result decimal.Decimal
	var symbol string
	switch c.Operation {
	case Add:
		result, symbol = a.Value.Add(b.Value), "+"
	case Subtract:
		result, symbol = a.Value.Sub(b.Value), "-"
	case Multiply:
		result, symbol = a.Value.Mul(b.Value), "×"
	case Divide, Percentage:
		if b.Value.IsZero() {
			return decimal.Zero, "", fmt.Errorf("cannot divide %s by %s = 0: %w", a.Cell.DisplayLabel(), b.Cell.DisplayLabel(), ErrDivisionByZero)
		}
		result, symbol = a.Value.Div(b.Value), "÷"
		if c.Operation == Percentage {
			result, symbol = result.Mul(hundred), "÷ × 100%"
		}
	default:
		return decimal.Zero, "", fmt.Errorf("cell %q: unknown operation %q", c.Name, c.Operation)
	}
	tooltip := fmt.Sprintf("%s %s %s = %s", a.Cell.DisplayLabel(), symbol, b.Cell.DisplayLabel(), result.StringFixed(c.places()))
	return result, tooltip, nil
}

var hundred = decimal.NewFromInt(100)

// format renders the value of a non lock date cell.
func (e *evaluation) format(c Cell, v decimal.Decimal) string {
	switch c.Type {
	case ReceivablePayableRatio:
		return v.StringFixed(2)
	case OldestOverdueDays:
		return fmt.Sprintf("%d days", v.IntPart())
	case InvoiceCount, BillCount, UnreconciledCount:
		return fmt.Sprintf("%d", v.IntPart())
	case MathOperation:
		return e.formatMath(c, v)
	}
	return e.money(v)
}

func (e *evaluation) formatMath(c Cell, v decimal.Decimal) string {
	places := c.places()
	fixed := v.StringFixed(places)
	switch c.Format {
	case CurrencyFormat:
		return e.money(v)
	case PercentageFormat:
		return fixed + "%"
	case RatioFormat:
		return fixed + ":1"
	case CustomFormat:
		if c.Suffix != "" {
			return fixed + " " + c.Suffix
		}
		return fixed
	}
	f, _ := v.Round(places).Float64()
	digits := int(places)
	return message.NewPrinter(language.English).Sprint(number.Decimal(f, number.MinFractionDigits(digits), number.MaxFractionDigits(digits)))
}

// money formats v in the source currency.
func (e *evaluation) money(v decimal.Decimal) string {
	cur := e.src.Currency()
	fraction := int32(2)
	if c := money.GetCurrency(cur); c != nil {
		fraction = int32(c.Fraction)
	}
	return money.New(v.Shift(fraction).Round(0).IntPart(), cur).Display()
}
