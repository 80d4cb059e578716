// Package partner holds the partner directory: customers and suppliers, the
// receivable and payable accounts they are assigned to, and the journal
// partner restrictions.
package partner

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknown is returned for unknown partners or accounts.
var ErrUnknown = errors.New("unknown")

// Partner is a customer, a supplier or both.
type Partner struct {
	Name         string `json:"name" yaml:"name" validate:"required"`
	VAT          string `json:"vat,omitempty" yaml:"vat"`
	CustomerRank int    `json:"customerRank,omitempty" yaml:"customerRank" validate:"gte=0"`
	SupplierRank int    `json:"supplierRank,omitempty" yaml:"supplierRank" validate:"gte=0"`
	Receivable   string `json:"receivable,omitempty" yaml:"receivable"` // property receivable account
	Payable      string `json:"payable,omitempty" yaml:"payable"`       // property payable account
}

// IsCustomer reports whether the partner has a customer rank.
func (p Partner) IsCustomer() bool { return p.CustomerRank > 0 }

// IsSupplier reports whether the partner has a supplier rank.
func (p Partner) IsSupplier() bool { return p.SupplierRank > 0 }

// Kind is the kind of partner account.
type Kind string

const (
	Receivable Kind = "receivable"
	Payable    Kind = "payable"
)

// Account is a receivable or payable account with its assigned partners.
type Account struct {
	Code     string
	Kind     Kind
	Partners []string
}

// Directory indexes partners and their accounts.
type Directory struct {
	partners map[string]*Partner
	order    []string
	accounts map[string]*Account
}

// NewDirectory creates a directory. accounts maps the code of every account
// to its kind, only receivable and payable accounts can be registered.
func NewDirectory(partners []Partner, accounts map[string]Kind) (*Directory, error) {
	d := &Directory{
		partners: make(map[string]*Partner),
		accounts: make(map[string]*Account),
	}
	for code, kind := range accounts {
		if kind != Receivable && kind != Payable {
			return nil, fmt.Errorf("account %q: only receivable and payable accounts can have assigned partners", code)
		}
		d.accounts[code] = &Account{Code: code, Kind: kind}
	}
	for _, p := range partners {
		if err := d.Add(p); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add registers a new partner, and assigns it to its property accounts.
func (d *Directory) Add(p Partner) error {
	if p.Name == "" {
		return errors.New("partner without a name")
	}
	if _, exists := d.partners[p.Name]; exists {
		return fmt.Errorf("partner %q already exists", p.Name)
	}
	d.partners[p.Name] = &p
	d.order = append(d.order, p.Name)
	for _, code := range []string{p.Receivable, p.Payable} {
		if a, ok := d.accounts[code]; ok && !slices.Contains(a.Partners, p.Name) {
			a.Partners = append(a.Partners, p.Name)
		}
	}
	return nil
}

// Partner returns the partner with this exact name.
func (d *Directory) Partner(name string) (Partner, bool) {
	p, ok := d.partners[name]
	if !ok {
		return Partner{}, false
	}
	return *p, true
}

// Partners returns every partner in insertion order.
func (d *Directory) Partners() []Partner {
	result := make([]Partner, 0, len(d.order))
	for _, n := range d.order {
		result = append(result, *d.partners[n])
	}
	return result
}

// ByVAT returns the partner with this VAT id.
func (d *Directory) ByVAT(vat string) (Partner, bool) {
	for _, n := range d.order {
		if p := d.partners[n]; p.VAT != "" && p.VAT == vat {
			return *p, true
		}
	}
	return Partner{}, false
}

// Match finds the first partner whose name contains query, ignoring case,
// among customers or suppliers.
func (d *Directory) Match(query string, customers bool) (Partner, bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return Partner{}, false
	}
	for _, n := range d.order {
		p := d.partners[n]
		if customers && !p.IsCustomer() || !customers && !p.IsSupplier() {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), query) {
			return *p, true
		}
	}
	return Partner{}, false
}

// Assigned returns the partners assigned to an account.
func (d *Directory) Assigned(code string) []string {
	a, ok := d.accounts[code]
	if !ok {
		return nil
	}
	return slices.Clone(a.Partners)
}

// Account returns the account with this code.
func (d *Directory) Account(code string) (Account, bool) {
	a, ok := d.accounts[code]
	if !ok {
		return Account{}, false
	}
	return Account{Code: a.Code, Kind: a.Kind, Partners: slices.Clone(a.Partners)}, true
}
