package settle

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/settle/date"
)

// AccountType classifies accounts of the chart of accounts.
type AccountType string

const (
	AssetAccount      AccountType = "asset"
	LiquidityAccount  AccountType = "liquidity"
	ReceivableAccount AccountType = "receivable"
	PayableAccount    AccountType = "payable"
	LiabilityAccount  AccountType = "liability"
	EquityAccount     AccountType = "equity"
	IncomeAccount     AccountType = "income"
	ExpenseAccount    AccountType = "expense"
	TaxAccount        AccountType = "tax"
)

// Debit reports whether the account normally carries a debit balance.
func (t AccountType) Debit() bool {
	switch t {
	case AssetAccount, LiquidityAccount, ReceivableAccount, ExpenseAccount:
		return true
	}
	return false
}

// Account is an entry in the chart of accounts.
type Account struct {
	Code string      `json:"code" yaml:"code" validate:"required"`
	Name string      `json:"name" yaml:"name"`
	Type AccountType `json:"type" yaml:"type" validate:"required,oneof=asset liquidity receivable payable liability equity income expense tax"`
}

// Line is one side of a double entry.
type Line struct {
	Account string `json:"account"`
	Partner string `json:"partner,omitempty"`
	Debit   Money  `json:"debit"`
	Credit  Money  `json:"credit"`
	Label   string `json:"label,omitempty"`
}

// DebitLine returns a line debiting account.
func DebitLine(account, partner string, amount Money, label string) Line {
	return Line{Account: account, Partner: partner, Debit: amount, Credit: M(0, amount.Currency()), Label: label}
}

// CreditLine returns a line crediting account.
func CreditLine(account, partner string, amount Money, label string) Line {
	return Line{Account: account, Partner: partner, Debit: M(0, amount.Currency()), Credit: amount, Label: label}
}

// Balance is debit minus credit.
func (l Line) Balance() Money { return l.Debit.Sub(l.Credit) }

// Currency returns the line currency.
func (l Line) Currency() string { return cur(l.Debit, l.Credit) }

// Move is a balanced journal entry. Moves are only built by NewMove, an
// unbalanced Move cannot exist.
type Move struct {
	id      string
	on      date.Date
	journal string
	ref     string
	lines   []Line
}

// NewMove validates lines and returns a balanced move.
//
// Lines must not be negative, must carry either a debit or a credit, and must
// share a single currency. Debit and credit lines of amount zero are dropped.
func NewMove(id string, on date.Date, journal, ref string, lines ...Line) (Move, error) {
	kept := make([]Line, 0, len(lines))
	var debit, credit Money
	currency := ""
	for i, l := range lines {
		if l.Account == "" {
			return Move{}, fmt.Errorf("move %q line %d: missing account", id, i)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return Move{}, fmt.Errorf("move %q line %d: negative amount: %w", id, i, ErrUnbalanced)
		}
		if !l.Debit.IsZero() && !l.Credit.IsZero() {
			return Move{}, fmt.Errorf("move %q line %d: both debit and credit are set", id, i)
		}
		if l.Debit.IsZero() && l.Credit.IsZero() {
			continue
		}
		for _, c := range []string{l.Debit.Currency(), l.Credit.Currency()} {
			if c == "" || c == currency {
				continue
			}
			if currency != "" {
				return Move{}, fmt.Errorf("move %q mixes currencies %s and %s", id, currency, c)
			}
			currency = c
		}
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
		kept = append(kept, l)
	}
	if len(kept) < 2 {
		return Move{}, fmt.Errorf("move %q needs at least two non zero lines: %w", id, ErrUnbalanced)
	}
	if !debit.Decimal().Equal(credit.Decimal()) {
		return Move{}, fmt.Errorf("move %q debits %s != credits %s: %w", id, debit, credit, ErrUnbalanced)
	}
	return Move{id: id, on: on, journal: journal, ref: ref, lines: kept}, nil
}

func (m Move) ID() string       { return m.id }
func (m Move) Date() date.Date  { return m.on }
func (m Move) Journal() string  { return m.journal }
func (m Move) Ref() string      { return m.ref }
func (m Move) Lines() []Line    { return slices.Clone(m.lines) }
func (m Move) IsZero() bool     { return m.id == "" }
func (m Move) Currency() string { return m.lines[0].Debit.Add(m.lines[0].Credit).Currency() }

// Total returns the sum of debits, equal to the sum of credits.
func (m Move) Total() Money {
	var total Money
	for _, l := range m.lines {
		total = total.Add(l.Debit)
	}
	return total
}

// Equal reports whether both moves have the same content.
func (m Move) Equal(o Move) bool {
	if m.id != o.id || m.on != o.on || m.journal != o.journal || m.ref != o.ref || len(m.lines) != len(o.lines) {
		return false
	}
	for i, l := range m.lines {
		k := o.lines[i]
		if l.Account != k.Account || l.Partner != k.Partner || l.Label != k.Label || !l.Debit.Equal(k.Debit) || !l.Credit.Equal(k.Credit) {
			return false
		}
	}
	return true
}

// reversal returns the mirrored move, debits and credits swapped.
func (m Move) reversal(on date.Date) Move {
	lines := make([]Line, len(m.lines))
	for i, l := range m.lines {
		lines[i] = Line{Account: l.Account, Partner: l.Partner, Debit: l.Credit, Credit: l.Debit, Label: "Reversal of " + m.id}
	}
	return Move{id: m.id + "-rev", on: on, journal: m.journal, ref: "Reversal of " + m.ref, lines: lines}
}

// Poster is the ledger posting service.
//
// Post must be idempotent on the move id: posting the same move twice is a
// no-op, posting a different move under a known id is an ErrConflict.
type Poster interface {
	Post(Move) error
	Reverse(id string, on date.Date) (Move, error)
}

// LineRef identifies a line by its move id and index.
type LineRef struct {
	Move  string
	Index int
}

// GeneralLedger is the in-memory Poster.
type GeneralLedger struct {
	accounts   map[string]Account
	moves      []Move
	byID       map[string]int
	reversed   map[string]bool
	reconciled map[LineRef]bool
}

// NewGeneralLedger returns an empty ledger over a chart of accounts.
func NewGeneralLedger(accounts ...Account) *GeneralLedger {
	gl := &GeneralLedger{
		accounts:   make(map[string]Account),
		byID:       make(map[string]int),
		reversed:   make(map[string]bool),
		reconciled: make(map[LineRef]bool),
	}
	for _, a := range accounts {
		gl.accounts[a.Code] = a
	}
	return gl
}

// Account returns the account with this code.
func (gl *GeneralLedger) Account(code string) (Account, bool) {
	a, ok := gl.accounts[code]
	return a, ok
}

// Post records a move.
func (gl *GeneralLedger) Post(m Move) error {
	if m.IsZero() {
		return fmt.Errorf("cannot post a move without id: %w", ErrInvalid)
	}
	if i, ok := gl.byID[m.id]; ok {
		if gl.moves[i].Equal(m) {
			return nil
		}
		return fmt.Errorf("move %q already posted with a different content: %w", m.id, ErrConflict)
	}
	for _, l := range m.lines {
		if len(gl.accounts) > 0 {
			if _, ok := gl.accounts[l.Account]; !ok {
				return fmt.Errorf("move %q: unknown account %q: %w", m.id, l.Account, ErrNotFound)
			}
		}
	}
	gl.byID[m.id] = len(gl.moves)
	gl.moves = append(gl.moves, m)
	return nil
}

// Reverse posts the reversal of a posted move. Reversing twice returns the
// first reversal.
func (gl *GeneralLedger) Reverse(id string, on date.Date) (Move, error) {
	i, ok := gl.byID[id]
	if !ok {
		return Move{}, fmt.Errorf("move %q: %w", id, ErrNotFound)
	}
	rev := gl.moves[i].reversal(on)
	if j, ok := gl.byID[rev.id]; ok {
		return gl.moves[j], nil
	}
	if err := gl.Post(rev); err != nil {
		return Move{}, err
	}
	gl.reversed[id] = true
	return rev, nil
}

// Move returns a posted move.
func (gl *GeneralLedger) Move(id string) (Move, bool) {
	i, ok := gl.byID[id]
	if !ok {
		return Move{}, false
	}
	return gl.moves[i], true
}

// IsReversed reports whether a move has been reversed.
func (gl *GeneralLedger) IsReversed(id string) bool { return gl.reversed[id] }

// Moves iterates over posted moves in posting order.
func (gl *GeneralLedger) Moves() iter.Seq[Move] { return slices.Values(gl.moves) }

// Lines iterates over all posted lines accepted by the filter.
func (gl *GeneralLedger) Lines(accept func(LineRef, Line) bool) iter.Seq2[LineRef, Line] {
	return func(yield func(LineRef, Line) bool) {
		for _, m := range gl.moves {
			for i, l := range m.lines {
				ref := LineRef{Move: m.id, Index: i}
				if accept != nil && !accept(ref, l) {
					continue
				}
				if !yield(ref, l) {
					return
				}
			}
		}
	}
}

// Balance returns debit minus credit for every account whose code starts
// with one of the prefixes. Lines in another currency are ignored.
func (gl *GeneralLedger) Balance(currency string, prefixes ...string) Money {
	total := M(0, currency)
	for _, l := range gl.Lines(nil) {
		if l.Currency() != currency {
			continue
		}
		for _, p := range prefixes {
			if strings.HasPrefix(l.Account, p) {
				total = total.Add(l.Balance())
				break
			}
		}
	}
	return total
}

// BalanceByType returns debit minus credit over all accounts of the types,
// for moves dated in r.
func (gl *GeneralLedger) BalanceByType(currency string, r date.Range, types ...AccountType) Money {
	total := M(0, currency)
	for _, m := range gl.moves {
		if !r.Contains(m.on) {
			continue
		}
		for _, l := range m.lines {
			if l.Currency() == currency && slices.Contains(types, gl.accounts[l.Account].Type) {
				total = total.Add(l.Balance())
			}
		}
	}
	return total
}

// Reconcile marks lines as reconciled together. They must net to zero.
func (gl *GeneralLedger) Reconcile(refs ...LineRef) error {
	var net Money
	for _, r := range refs {
		i, ok := gl.byID[r.Move]
		if !ok || r.Index < 0 || r.Index >= len(gl.moves[i].lines) {
			return fmt.Errorf("line %v: %w", r, ErrNotFound)
		}
		if gl.reconciled[r] {
			return fmt.Errorf("line %v already reconciled: %w", r, ErrConflict)
		}
		net = net.Add(gl.moves[i].lines[r.Index].Balance())
	}
	if !net.IsZero() {
		return fmt.Errorf("reconciled lines leave %s open: %w", net, ErrUnbalanced)
	}
	for _, r := range refs {
		gl.reconciled[r] = true
	}
	return nil
}

// Unreconcile clears the reconciliation of lines.
func (gl *GeneralLedger) Unreconcile(refs ...LineRef) {
	for _, r := range refs {
		delete(gl.reconciled, r)
	}
}

// IsReconciled reports whether a line has been reconciled.
func (gl *GeneralLedger) IsReconciled(r LineRef) bool { return gl.reconciled[r] }

// TrialRow is one row of the trial balance.
type TrialRow struct {
	Account Account
	Debit   Money
	Credit  Money
}

// TrialBalance sums debits and credits per account, sorted by code.
func (gl *GeneralLedger) TrialBalance(currency string) []TrialRow {
	rows := make(map[string]*TrialRow)
	for _, l := range gl.Lines(nil) {
		if l.Currency() != currency {
			continue
		}
		r, ok := rows[l.Account]
		if !ok {
			acc, known := gl.accounts[l.Account]
			if !known {
				acc = Account{Code: l.Account}
			}
			r = &TrialRow{Account: acc, Debit: M(0, currency), Credit: M(0, currency)}
			rows[l.Account] = r
		}
		r.Debit = r.Debit.Add(l.Debit)
		r.Credit = r.Credit.Add(l.Credit)
	}
	result := make([]TrialRow, 0, len(rows))
	for _, code := range slices.Sorted(maps.Keys(rows)) {
		result = append(result, *rows[code])
	}
	return result
}
