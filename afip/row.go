package afip

import (
	"fmt"
	"strings"

	"github.com/etnz/settle/date"
	"github.com/shopspring/decimal"
)

// Column positions in the AFIP "Mis Comprobantes" export.
const (
	colDate        = 0
	colDocType     = 1
	colPointOfSale = 2
	colNumber      = 3
	colCUIT        = 7
	colName        = 8
	colCurrency    = 10
	colAmount      = 16

	minColumns = 17
)

// Row is a parsed line of the export.
type Row struct {
	Line        int // 1-based, header is line 1
	Date        date.Date
	DocType     string
	PointOfSale string // zero padded to 5
	Number      string // zero padded to 8
	CUIT        string
	Name        string
	Currency    string
	Amount      decimal.Decimal
}

var prefixes = map[string]string{
	"1": "FA-A", "6": "FA-B", "11": "FA-C",
	"2": "ND-A", "7": "ND-B", "12": "ND-C",
	"3": "NC-A", "8": "NC-B", "13": "NC-C",
	"201": "FA-A", "202": "FA-B", "203": "NC-A",
	"51": "FA-M", "52": "ND-M", "53": "NC-M",
}

// Prefix returns the document prefix of an AFIP document type code.
func Prefix(docType string) string {
	if p, ok := prefixes[docType]; ok {
		return p
	}
	return "FA-A"
}

// Ref is the point of sale and number, e.g. "00003-00001234".
func (r Row) Ref() string { return r.PointOfSale + "-" + r.Number }

// DocumentName is the full document name, e.g. "FA-A 00003-00001234".
func (r Row) DocumentName() string { return Prefix(r.DocType) + " " + r.Ref() }

// IsRefund reports whether the document is a credit note.
func (r Row) IsRefund() bool {
	switch r.DocType {
	case "3", "8", "13", "203":
		return true
	}
	return false
}

// MoveType returns the invoice move type for an operation.
func (r Row) MoveType(op Operation) string {
	dir := "out"
	if op == Purchase {
		dir = "in"
	}
	if r.IsRefund() {
		return dir + "_refund"
	}
	return dir + "_invoice"
}

// VATRate returns the VAT percentage of the document type, zero for exempt
// documents.
func (r Row) VATRate() decimal.Decimal {
	switch r.DocType {
	case "1", "2", "3", "51", "52", "53", "201":
		return decimal.NewFromInt(21)
	case "202", "203":
		return decimal.NewFromFloat(10.5)
	}
	return decimal.Zero
}

// Split divides the amount, VAT included, into net and VAT.
func (r Row) Split() (net, vat decimal.Decimal) {
	rate := r.VATRate()
	if rate.IsZero() {
		return r.Amount, decimal.Zero
	}
	net = r.Amount.Div(hundred.Add(rate).Div(hundred)).Round(2)
	return net, r.Amount.Sub(net)
}

var hundred = decimal.NewFromInt(100)

// FiscalPosition returns the tax regime of a partner issuing (or receiving)
// this document type.
func (r Row) FiscalPosition() string {
	switch r.DocType {
	case "6", "7", "8", "202":
		return "Consumidor Final"
	case "11", "12", "13", "203":
		return "Responsable Monotributo"
	}
	return "IVA Responsable Inscripto"
}

// ParseAmount reads an amount written with either decimal separator. The
// last dot or comma is the decimal point unless it is followed by more than
// two digits, in which case it separates thousands.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer(" ", "", "$", "", ",", ".").Replace(strings.TrimSpace(s))
	if clean == "" {
		return decimal.Zero, nil
	}
	parts := strings.Split(clean, ".")
	switch {
	case len(parts) > 2:
		clean = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	case len(parts) == 2 && len(parts[1]) > 2:
		clean = strings.Join(parts, "")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// CleanCUIT removes dashes and spaces from a tax id.
func CleanCUIT(s string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s))
}

// parseDate reads DD/MM/YYYY dates, or ISO dates.
func parseDate(s string) (date.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return date.Date{}, nil
	}
	if strings.Contains(s, "/") {
		return date.ParseLayout("2/1/2006", s)
	}
	return date.Parse(s)
}

func pad(s string, n int, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if len(s) < n {
		s = strings.Repeat("0", n-len(s)) + s
	}
	return s
}
