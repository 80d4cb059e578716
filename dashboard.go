package settle

import (
	"iter"
	"slices"
	"strings"

	"github.com/etnz/settle/date"
	"github.com/etnz/settle/kpi"
	"github.com/shopspring/decimal"
)

// Dashboard evaluates the dashboard cells of the settings on a day.
func (b *Book) Dashboard(on date.Date) ([]kpi.Result, error) {
	board, err := b.settings.Board()
	if err != nil {
		return nil, err
	}
	return board.Evaluate(bookSource{b: b, on: on}), nil
}

// bookSource is the kpi view of a book, in the company currency.
type bookSource struct {
	b  *Book
	on date.Date
}

func (s bookSource) Today() date.Date { return s.on }
func (s bookSource) Currency() string { return s.b.Currency() }

func (s bookSource) Balance(prefixes ...string) decimal.Decimal {
	return s.b.gl.Balance(s.b.Currency(), prefixes...).Decimal()
}

func (s bookSource) BalanceByType(r date.Range, types ...string) decimal.Decimal {
	if r.To.IsZero() {
		r.To = s.on
	}
	t := make([]AccountType, len(types))
	for i, typ := range types {
		t[i] = AccountType(typ)
	}
	return s.b.gl.BalanceByType(s.b.Currency(), r, t...).Decimal()
}

// OpenItems returns unreconciled lines, due on the invoice due date or on
// the move date.
func (s bookSource) OpenItems(kind string) []kpi.Item {
	var items []kpi.Item
	for ref, l := range s.b.unreconciled(AccountType(kind)) {
		due := s.b.Due(ref.Move)
		items = append(items, kpi.Item{Due: due, Amount: l.Balance().Decimal()})
	}
	return items
}

func (s bookSource) Documents(moveType string) int {
	n := 0
	for _, inv := range s.b.invoices {
		if inv.MoveType == moveType {
			n++
		}
	}
	return n
}

func (s bookSource) Unreconciled(prefixes ...string) int {
	n := 0
	if len(prefixes) == 0 {
		for range s.b.unreconciled(ReceivableAccount, PayableAccount) {
			n++
		}
		return n
	}
	for ref, l := range s.b.gl.Lines(nil) {
		if s.b.gl.IsReconciled(ref) {
			continue
		}
		if slices.ContainsFunc(prefixes, func(p string) bool { return strings.HasPrefix(l.Account, p) }) {
			n++
		}
	}
	return n
}

func (s bookSource) CardPending() (decimal.Decimal, int) {
	total := decimal.Zero
	pending := s.b.Pending()
	for _, a := range pending {
		total = total.Add(a.NetAmount().Decimal())
	}
	return total, len(pending)
}

// LockDate accepts settings keys with or without the "_lock_date" suffix.
func (s bookSource) LockDate(name string) date.Date {
	if d, ok := s.b.settings.LockDates[name]; ok {
		return d
	}
	return s.b.settings.LockDates[strings.TrimSuffix(name, "_lock_date")]
}

// unreconciled iterates over the unreconciled lines, in the company
// currency, of accounts of the types.
func (b *Book) unreconciled(types ...AccountType) iter.Seq2[LineRef, Line] {
	cur := b.Currency()
	return b.gl.Lines(func(ref LineRef, l Line) bool {
		acc, _ := b.gl.Account(l.Account)
		return l.Currency() == cur && slices.Contains(types, acc.Type) && !b.gl.IsReconciled(ref)
	})
}

// Due returns the due date of a move: the invoice due date, or the move date.
func (b *Book) Due(moveID string) date.Date {
	if inv, ok := b.invByID[moveID]; ok {
		return inv.Due
	}
	m, _ := b.gl.Move(moveID)
	return m.Date()
}
