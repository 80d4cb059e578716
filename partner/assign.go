package partner

import (
	"fmt"
	"slices"
	"sort"
)

// Mode is how an assignment combines with the current assigned partners.
type Mode string

const (
	Add     Mode = "add"
	Replace Mode = "replace"
	Remove  Mode = "remove"
)

// ParseMode parses an assignment mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Add, Replace, Remove:
		return m, nil
	}
	return "", fmt.Errorf("unknown assignment mode %q", s)
}

// Assign changes the partners assigned to an account.
//
// Added partners get the account as their property receivable or payable
// account. A partner is assigned to one payable account at most: adding it to
// a payable account removes it from the others.
func (d *Directory) Assign(code string, mode Mode, names ...string) error {
	a, ok := d.accounts[code]
	if !ok {
		return fmt.Errorf("account %q is not a receivable or payable account: %w", code, ErrUnknown)
	}
	for _, n := range names {
		if _, ok := d.partners[n]; !ok {
			return fmt.Errorf("partner %q: %w", n, ErrUnknown)
		}
	}

	var added, removed []string
	switch mode {
	case Add:
		for _, n := range names {
			if !slices.Contains(a.Partners, n) {
				added = append(added, n)
			}
		}
	case Replace:
		for _, n := range names {
			if !slices.Contains(a.Partners, n) {
				added = append(added, n)
			}
		}
		for _, n := range a.Partners {
			if !slices.Contains(names, n) {
				removed = append(removed, n)
			}
		}
	case Remove:
		for _, n := range names {
			if slices.Contains(a.Partners, n) {
				removed = append(removed, n)
			}
		}
	default:
		return fmt.Errorf("unknown assignment mode %q", mode)
	}

	for _, n := range removed {
		d.unassign(a, n)
	}
	for _, n := range added {
		if a.Kind == Payable {
			for _, other := range d.accounts {
				if other != a && other.Kind == Payable {
					d.unassign(other, n)
				}
			}
		}
		a.Partners = append(a.Partners, n)
		d.setProperty(a, n)
	}
	return nil
}

func (d *Directory) unassign(a *Account, name string) {
	a.Partners = slices.DeleteFunc(a.Partners, func(n string) bool { return n == name })
	p := d.partners[name]
	switch {
	case a.Kind == Receivable && p.Receivable == a.Code:
		p.Receivable = ""
	case a.Kind == Payable && p.Payable == a.Code:
		p.Payable = ""
	}
}

func (d *Directory) setProperty(a *Account, name string) {
	p := d.partners[name]
	if a.Kind == Receivable {
		p.Receivable = a.Code
	} else {
		p.Payable = a.Code
	}
}

// Conflict describes a partner assigned to several payable accounts.
type Conflict struct {
	Partner     string
	Kept        string
	RemovedFrom []string
}

// CleanPayableConflicts keeps each partner on its first payable account, by
// code order, and removes it from the others.
func (d *Directory) CleanPayableConflicts() []Conflict {
	codes := make([]string, 0, len(d.accounts))
	for code, a := range d.accounts {
		if a.Kind == Payable {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	var conflicts []Conflict
	for _, name := range d.order {
		var assigned []string
		for _, code := range codes {
			if slices.Contains(d.accounts[code].Partners, name) {
				assigned = append(assigned, code)
			}
		}
		if len(assigned) < 2 {
			continue
		}
		for _, code := range assigned[1:] {
			d.unassign(d.accounts[code], name)
		}
		d.setProperty(d.accounts[assigned[0]], name)
		conflicts = append(conflicts, Conflict{Partner: name, Kept: assigned[0], RemovedFrom: assigned[1:]})
	}
	return conflicts
}
