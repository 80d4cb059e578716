package partner

import (
	"fmt"
	"slices"
	"strings"
)

// Restriction limits the partners allowed on a journal's moves.
type Restriction struct {
	Journal  string
	Restrict bool
	Allowed  []string
}

// Allowed returns the partners the restriction allows for a move type. Sales
// moves (out_*) only allow customers, purchase moves (in_*) only suppliers.
func (d *Directory) Allowed(r Restriction, moveType string) []Partner {
	var result []Partner
	for _, n := range r.Allowed {
		p, ok := d.partners[n]
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(moveType, "out_") && !p.IsCustomer():
			continue
		case strings.HasPrefix(moveType, "in_") && !p.IsSupplier():
			continue
		}
		result = append(result, *p)
	}
	return result
}

// CheckMove fails when the journal restricts partners and the move's partner
// is not allowed.
func (d *Directory) CheckMove(r Restriction, moveType, partner string) error {
	if !r.Restrict || len(r.Allowed) == 0 || partner == "" {
		return nil
	}
	allowed := d.Allowed(r, moveType)
	if slices.ContainsFunc(allowed, func(p Partner) bool { return p.Name == partner }) {
		return nil
	}
	return fmt.Errorf("partner %q is not allowed on journal %q for %s moves", partner, r.Journal, moveType)
}
