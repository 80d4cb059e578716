package settle

import (
	"fmt"
	"slices"

	"github.com/etnz/settle/date"
	"github.com/etnz/settle/partner"
)

// Book is the state of the books after replaying a ledger: accreditations,
// deductions, payments, batches and invoices, and the general ledger their
// moves are posted to.
//
// A Book is not safe for concurrent use, see Store.
type Book struct {
	settings *Settings
	cal      *Calendar
	dir      *partner.Directory
	gl       *GeneralLedger

	accreditations []*Accreditation
	accByID        map[string]*Accreditation
	deductions     map[string]*TaxDeduction
	payments       []*Payment
	payByID        map[string]*Payment
	payByKey       map[string]*Payment
	batches        []*BatchTransfer
	batchByName    map[string]*BatchTransfer
	invoices       []*Invoice
	invByID        map[string]*Invoice

	// seq holds the last number used per sequence prefix.
	seq map[string]int
	// on is the date of the command being applied.
	on date.Date
}

// NewBook returns an empty book.
func NewBook(s *Settings) (*Book, error) {
	if s == nil {
		s = DefaultSettings()
	}
	cal, err := s.Calendar()
	if err != nil {
		return nil, err
	}
	dir, err := s.Directory()
	if err != nil {
		return nil, err
	}
	return &Book{
		settings:    s,
		cal:         cal,
		dir:         dir,
		gl:          NewGeneralLedger(s.Accounts...),
		accByID:     make(map[string]*Accreditation),
		deductions:  make(map[string]*TaxDeduction),
		payByID:     make(map[string]*Payment),
		payByKey:    make(map[string]*Payment),
		batchByName: make(map[string]*BatchTransfer),
		invByID:     make(map[string]*Invoice),
		seq:         make(map[string]int),
	}, nil
}

// Apply executes commands in order, stopping at the first error. Commands
// applied before the error are kept, use a Store for atomic updates.
func (b *Book) Apply(cmds ...Command) error {
	for _, cmd := range cmds {
		on := cmd.When()
		if on.IsZero() {
			on = date.Today()
		}
		b.on = on
		if err := cmd.apply(b); err != nil {
			return fmt.Errorf("%s on %s: %w", cmd.What(), on, err)
		}
	}
	return nil
}

// next returns the next name of a sequence, like "ACR/0001".
func (b *Book) next(prefix string) string {
	b.seq[prefix]++
	return fmt.Sprintf("%s/%04d", prefix, b.seq[prefix])
}

// statementSeq returns the position of a line in its statement: seq when
// given, the line after the last known one otherwise.
func (b *Book) statementSeq(journal, statement string, seq int) int {
	key := "statement " + journal + "/" + statement
	if seq <= 0 {
		seq = b.seq[key] + 1
	}
	b.seq[key] = max(b.seq[key], seq)
	return seq
}

func (b *Book) Settings() *Settings              { return b.settings }
func (b *Book) Calendar() *Calendar              { return b.cal }
func (b *Book) Directory() *partner.Directory    { return b.dir }
func (b *Book) GeneralLedger() *GeneralLedger    { return b.gl }
func (b *Book) Currency() string                 { return b.settings.Currency }
func (b *Book) Accreditations() []*Accreditation { return slices.Clone(b.accreditations) }
func (b *Book) Payments() []*Payment             { return slices.Clone(b.payments) }
func (b *Book) Batches() []*BatchTransfer        { return slices.Clone(b.batches) }
func (b *Book) Invoices() []*Invoice             { return slices.Clone(b.invoices) }

// journalName returns the name of a journal, or its code when unnamed.
func (b *Book) journalName(code string) string {
	if j, err := b.settings.Journal(code); err == nil && j.Name != "" {
		return j.Name
	}
	return code
}

// withCurrency sets the company currency on amounts without one.
func (b *Book) withCurrency(m Money) Money {
	if m.Currency() == "" {
		return M(m.Decimal(), b.settings.Currency)
	}
	return m
}

// Accreditation returns an accreditation by id.
func (b *Book) Accreditation(id string) (*Accreditation, error) {
	a, ok := b.accByID[id]
	if !ok {
		return nil, fmt.Errorf("accreditation %q: %w", id, ErrNotFound)
	}
	return a, nil
}

// Deduction returns a tax deduction by id.
func (b *Book) Deduction(id string) (*TaxDeduction, error) {
	d, ok := b.deductions[id]
	if !ok {
		return nil, fmt.Errorf("tax deduction %q: %w", id, ErrNotFound)
	}
	return d, nil
}

// Payment returns a payment by id.
func (b *Book) Payment(id string) (*Payment, error) {
	p, ok := b.payByID[id]
	if !ok {
		return nil, fmt.Errorf("payment %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// Batch returns a batch transfer by name.
func (b *Book) Batch(name string) (*BatchTransfer, error) {
	t, ok := b.batchByName[name]
	if !ok {
		return nil, fmt.Errorf("batch transfer %q: %w", name, ErrNotFound)
	}
	return t, nil
}

// Invoice returns an invoice by id.
func (b *Book) Invoice(id string) (*Invoice, error) {
	inv, ok := b.invByID[id]
	if !ok {
		return nil, fmt.Errorf("invoice %q: %w", id, ErrNotFound)
	}
	return inv, nil
}

// cardJournal returns a journal that must be a card journal.
func (b *Book) cardJournal(code string) (Journal, error) {
	j, err := b.settings.Journal(code)
	if err != nil {
		return Journal{}, err
	}
	if j.Type != CardJournal {
		return Journal{}, fmt.Errorf("journal %q is not a card journal: %w", code, ErrInvalid)
	}
	return j, nil
}

// partnerAccount returns the receivable (customers) or payable (suppliers)
// account of a partner, or the first such account of the chart.
func (b *Book) partnerAccount(name string, customer bool) (string, error) {
	p, ok := b.dir.Partner(name)
	if !ok {
		return "", fmt.Errorf("partner %q: %w", name, ErrNotFound)
	}
	typ, code := PayableAccount, p.Payable
	if customer {
		typ, code = ReceivableAccount, p.Receivable
	}
	if code != "" {
		return code, nil
	}
	a, ok := b.settings.firstAccount(typ, "")
	if !ok {
		return "", fmt.Errorf("no %s account for partner %q: %w", typ, name, ErrNotFound)
	}
	return a.Code, nil
}

// addPartner registers a partner created on the fly by an import or a
// statement line.
func (b *Book) addPartner(p partner.Partner) error {
	if _, exists := b.dir.Partner(p.Name); exists {
		return nil
	}
	return b.dir.Add(p)
}
