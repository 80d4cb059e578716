// Package bank turns bank statement lines into payment proposals, following
// reconcile models that create customer receipts or vendor payments instead
// of plain write-offs.
package bank

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/etnz/settle/date"
	"github.com/etnz/settle/partner"
	"github.com/shopspring/decimal"
)

// ErrNoPartner is returned when no partner can be found for a line.
var ErrNoPartner = errors.New("no partner found")

// ErrNoMethod is returned when no payment method matches.
var ErrNoMethod = errors.New("no payment method available")

// Direction is the payment direction.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Counterpart is what a reconcile model creates.
type Counterpart string

const (
	CustomerReceipts Counterpart = "customer_receipts"
	VendorPayments   Counterpart = "vendor_payments"
)

// Direction returns the payment direction of the counterpart.
func (c Counterpart) Direction() Direction {
	if c == VendorPayments {
		return Outbound
	}
	return Inbound
}

// PartnerType is "customer" or "supplier".
func (c Counterpart) PartnerType() string {
	if c == VendorPayments {
		return "supplier"
	}
	return "customer"
}

// DefaultMemoTemplate is used when the model has no template.
const DefaultMemoTemplate = "Bank reconciliation: {statement_name}"

// Method is a payment method available on a journal.
type Method struct {
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Direction Direction `json:"direction" yaml:"direction" validate:"oneof=inbound outbound"`
	Journal   string    `json:"journal" yaml:"journal"`
}

// Model is a reconcile model.
type Model struct {
	Name         string      `json:"name" yaml:"name" validate:"required"`
	Counterpart  Counterpart `json:"counterpart" yaml:"counterpart" validate:"oneof=customer_receipts vendor_payments"`
	Method       string      `json:"method,omitempty" yaml:"method"`
	MemoTemplate string      `json:"memoTemplate,omitempty" yaml:"memoTemplate"`
	AutoPost     *bool       `json:"autoPost,omitempty" yaml:"autoPost"` // defaults to true
}

// Posts reports whether created payments are posted right away.
func (m Model) Posts() bool { return m.AutoPost == nil || *m.AutoPost }

// Line is a bank statement line.
type Line struct {
	Statement string          `json:"statement"`
	Seq       int             `json:"seq,omitempty"` // position in the statement, from 1
	Journal   string          `json:"journal"`
	Ref       string          `json:"ref"`
	Partner   string          `json:"partner,omitempty"`
	Amount    decimal.Decimal `json:"amount"` // signed, positive for money in
	Currency  string          `json:"currency"`
	Date      date.Date       `json:"date"`
}

// Proposal is the payment a statement line should produce.
type Proposal struct {
	Direction   Direction
	PartnerType string
	Partner     string
	NewPartner  bool // the partner does not exist yet and must be created
	Amount      decimal.Decimal
	Currency    string
	Journal     string
	Method      string
	Memo        string
	Date        date.Date
	AutoPost    bool
}

// Memo expands the model's memo template.
func (m Model) Memo(line Line, partnerName string) string {
	tpl := m.MemoTemplate
	if tpl == "" {
		tpl = DefaultMemoTemplate
	}
	return strings.NewReplacer(
		"{statement_name}", line.Statement,
		"{partner_name}", partnerName,
		"{amount}", line.Amount.String(),
	).Replace(tpl)
}

// ResolvePartner returns the line partner, or the first customer (or
// supplier) whose name contains the first 50 characters of the reference.
func ResolvePartner(dir *partner.Directory, line Line, c Counterpart) (partner.Partner, error) {
	if line.Partner != "" {
		p, ok := dir.Partner(line.Partner)
		if !ok {
			return partner.Partner{}, fmt.Errorf("statement line partner %q: %w", line.Partner, partner.ErrUnknown)
		}
		return p, nil
	}
	if p, ok := dir.Match(truncate(line.Ref, 50), c == CustomerReceipts); ok {
		return p, nil
	}
	return partner.Partner{}, fmt.Errorf("line %q: %w", line.Ref, ErrNoPartner)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// PaymentMethod picks the model's method, then the first method of the line
// journal, then any method with the right direction.
func PaymentMethod(m Model, journal string, methods []Method) (Method, error) {
	dir := m.Counterpart.Direction()
	if m.Method != "" {
		for _, pm := range methods {
			if pm.Name != m.Method {
				continue
			}
			if pm.Direction != dir {
				return Method{}, fmt.Errorf("reconcile model %q: method %q is %s, %s needs %s", m.Name, pm.Name, pm.Direction, m.Counterpart, dir)
			}
			return pm, nil
		}
	}
	for _, pm := range methods {
		if pm.Journal == journal && pm.Direction == dir {
			return pm, nil
		}
	}
	for _, pm := range methods {
		if pm.Direction == dir {
			return pm, nil
		}
	}
	return Method{}, fmt.Errorf("%s payments on journal %q: %w", dir, journal, ErrNoMethod)
}

// Propose returns the payment that the model creates for the line.
func Propose(m Model, line Line, dir *partner.Directory, methods []Method) (Proposal, error) {
	if m.Counterpart != CustomerReceipts && m.Counterpart != VendorPayments {
		return Proposal{}, fmt.Errorf("reconcile model %q does not create payments", m.Name)
	}
	p, err := ResolvePartner(dir, line, m.Counterpart)
	if err != nil {
		return Proposal{}, err
	}
	method, err := PaymentMethod(m, line.Journal, methods)
	if err != nil {
		return Proposal{}, err
	}
	return Proposal{
		Direction:   m.Counterpart.Direction(),
		PartnerType: m.Counterpart.PartnerType(),
		Partner:     p.Name,
		Amount:      line.Amount.Abs(),
		Currency:    line.Currency,
		Journal:     line.Journal,
		Method:      method.Name,
		Memo:        m.Memo(line, p.Name),
		Date:        line.Date,
		AutoPost:    m.Posts(),
	}, nil
}

// ProposeDirect returns the payment for a line without a reconcile model:
// money in is a customer receipt, money out a vendor payment. When no
// partner matches, a new one named after the reference is proposed.
func ProposeDirect(line Line, dir *partner.Directory, methods []Method) (Proposal, error) {
	c := CustomerReceipts
	if line.Amount.IsNegative() {
		c = VendorPayments
	}
	prop := Proposal{
		Direction:   c.Direction(),
		PartnerType: c.PartnerType(),
		Amount:      line.Amount.Abs(),
		Currency:    line.Currency,
		Journal:     line.Journal,
		Memo:        "Bank reconciliation: " + line.Ref,
		Date:        line.Date,
		AutoPost:    true,
	}
	p, err := ResolvePartner(dir, line, c)
	switch {
	case err == nil:
		prop.Partner = p.Name
	case errors.Is(err, ErrNoPartner):
		prop.NewPartner = true
		prop.Partner = line.Ref
		if prop.Partner == "" {
			prop.Partner = "Bank Transaction " + line.Date.String()
		}
	default:
		return Proposal{}, err
	}
	for _, pm := range methods {
		if pm.Journal == line.Journal && pm.Direction == prop.Direction {
			prop.Method = pm.Name
			return prop, nil
		}
	}
	return Proposal{}, fmt.Errorf("%s payments on journal %q: %w", prop.Direction, line.Journal, ErrNoMethod)
}

var batchRef = regexp.MustCompile(`lote\s*(\d+)`)

// ExtractBatches returns every card batch number mentioned in a reference,
// e.g. "Liquidación VISA Lote 047" gives ["047"].
func ExtractBatches(ref string) []string {
	var result []string
	for _, m := range batchRef.FindAllStringSubmatch(strings.ToLower(ref), -1) {
		result = append(result, m[1])
	}
	return result
}
