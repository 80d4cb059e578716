// Package afip imports the invoice listings exported from the AFIP
// "Mis Comprobantes" service, either as opening balances or as new
// documents.
//
// An import is analyzed first: rows are parsed and validated, and the
// counters give a preview. Processing then turns the valid rows into
// documents for the books, creating partners when their CUIT is unknown.
package afip

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/settle/date"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Operation is the side of the listing.
type Operation string

const (
	Purchase Operation = "purchase"
	Sale     Operation = "sale"
)

// Type is what the import creates.
type Type string

const (
	// InitialBalances creates one untaxed line per document.
	InitialBalances Type = "initial_balances"
	// NewDocuments creates taxed documents for a product and skips documents
	// already in the books.
	NewDocuments Type = "new_documents"
)

// State is the import progress.
type State string

const (
	Draft    State = "draft"
	Analyzed State = "analyzed"
	Done     State = "done"
)

// Books is what the importer needs to know about existing records.
type Books interface {
	// PartnerByVAT returns the name of the partner with this tax id.
	PartnerByVAT(vat string) (string, bool)
	// HasDocument reports whether a non cancelled document with this name or
	// reference exists for the partner.
	HasDocument(partner, ref string) bool
}

// Counters summarize an analysis or a processing run.
type Counters struct {
	Total       int
	Valid       int
	Short       int
	InvalidCUIT int
	ZeroAmount  int
	Duplicates  int
	NewPartners int
	Created     int

	Net    decimal.Decimal
	VAT    decimal.Decimal
	Amount decimal.Decimal
}

// Omitted is the number of rows that were not kept.
func (c Counters) Omitted() int { return c.Total - c.Valid }

// SuccessRate is the percentage of valid rows.
func (c Counters) SuccessRate() decimal.Decimal {
	if c.Total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(c.Valid * 100)).Div(decimal.NewFromInt(int64(c.Total)))
}

// Rejection explains why a row was skipped.
type Rejection struct {
	Line   int
	Reason string
}

// NewPartner is a partner that must be created before its document.
type NewPartner struct {
	Name           string
	VAT            string
	FiscalPosition string
	Customer       bool
	Supplier       bool
}

// Document is an invoice to post.
type Document struct {
	Name       string
	Ref        string
	MoveType   string
	Partner    string
	NewPartner *NewPartner
	Date       date.Date
	Currency   string
	Label      string
	Amount     decimal.Decimal // VAT included
	Net        decimal.Decimal
	VAT        decimal.Decimal
	VATRate    decimal.Decimal
}

// Import is one file import.
type Import struct {
	Name      string
	Operation Operation
	Type      Type
	Journal   string
	Product   string // required for new documents
	Separator rune
	Latin1    bool      // the file is Windows-1252 encoded
	Date      date.Date // used for rows without date
	Currency  string    // company currency

	state    State
	rows     []Row
	Counters Counters
	Rejected []Rejection
}

// New returns a draft import.
func New(name string, op Operation, typ Type, journal, product string) (*Import, error) {
	if op != Purchase && op != Sale {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	if typ != InitialBalances && typ != NewDocuments {
		return nil, fmt.Errorf("unknown import type %q", typ)
	}
	if journal == "" {
		return nil, errors.New("a journal is required")
	}
	if typ == NewDocuments && product == "" {
		return nil, errors.New("a product is required to import new documents")
	}
	if typ == InitialBalances {
		product = ""
	}
	return &Import{
		Name:      name,
		Operation: op,
		Type:      typ,
		Journal:   journal,
		Product:   product,
		Separator: ';',
		Date:      date.Today(),
		Currency:  "ARS",
		state:     Draft,
	}, nil
}

// State returns the import state.
func (imp *Import) State() State { return imp.state }

// Rows returns the valid rows found by the analysis.
func (imp *Import) Rows() []Row { return imp.rows }

func (imp *Import) reject(line int, format string, args ...any) {
	imp.Rejected = append(imp.Rejected, Rejection{Line: line, Reason: fmt.Sprintf(format, args...)})
}

// Analyze reads the file and validates its rows. It can be run again on a
// draft or analyzed import.
func (imp *Import) Analyze(r io.Reader, books Books) error {
	if imp.state == Done {
		return errors.New("import already processed")
	}
	if imp.Latin1 {
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}
	cr := csv.NewReader(r)
	cr.Comma = imp.Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("reading %s: %w", imp.Name, err)
	}

	imp.rows, imp.Rejected = nil, nil
	c := Counters{Net: decimal.Zero, VAT: decimal.Zero, Amount: decimal.Zero}
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		line := i + 1
		c.Total++
		if len(rec) < minColumns {
			c.Short++
			imp.reject(line, "incomplete data: %d columns of %d required", len(rec), minColumns)
			continue
		}
		row := Row{
			Line:        line,
			DocType:     strings.TrimSpace(rec[colDocType]),
			PointOfSale: pad(rec[colPointOfSale], 5, "00001"),
			Number:      pad(rec[colNumber], 8, "00000001"),
			CUIT:        CleanCUIT(rec[colCUIT]),
			Name:        strings.TrimSpace(rec[colName]),
			Currency:    imp.Currency,
		}
		if row.Name == "" {
			row.Name = "Sin nombre"
		}
		if strings.TrimSpace(rec[colCurrency]) == "DOL" {
			row.Currency = "USD"
		}
		if len(row.CUIT) < 7 {
			c.InvalidCUIT++
			imp.reject(line, "invalid CUIT %q: at least 7 digits required", row.CUIT)
			continue
		}
		row.Amount, err = ParseAmount(rec[colAmount])
		if err != nil {
			c.ZeroAmount++
			imp.reject(line, "%v", err)
			continue
		}
		if row.Amount.IsZero() {
			c.ZeroAmount++
			imp.reject(line, "zero amount")
			continue
		}
		if row.Date, err = parseDate(rec[colDate]); err != nil || row.Date.IsZero() {
			row.Date = imp.Date
		}
		c.Valid++
		if imp.Type == NewDocuments && imp.duplicate(books, row) {
			c.Duplicates++
		}
		net, vat := row.Split()
		c.Net = c.Net.Add(net)
		c.VAT = c.VAT.Add(vat)
		c.Amount = c.Amount.Add(row.Amount)
		imp.rows = append(imp.rows, row)
	}
	imp.Counters = c
	imp.state = Analyzed
	return nil
}

func (imp *Import) duplicate(books Books, row Row) bool {
	p, ok := books.PartnerByVAT(row.CUIT)
	return ok && (books.HasDocument(p, row.DocumentName()) || books.HasDocument(p, row.Ref()))
}

// Process turns the analyzed rows into documents. Partners unknown to the
// books are created once per CUIT. New documents already in the books, or
// repeated in the file, are rejected.
func (imp *Import) Process(books Books) ([]Document, error) {
	if imp.state != Analyzed {
		return nil, errors.New("the file must be analyzed before it is processed")
	}
	created := make(map[string]string) // CUIT -> partner name
	seen := make(map[string]bool)
	var docs []Document
	imp.Counters.Duplicates, imp.Counters.NewPartners, imp.Counters.Created = 0, 0, 0
	for _, row := range imp.rows {
		doc := Document{
			Name:     row.DocumentName(),
			MoveType: row.MoveType(imp.Operation),
			Date:     row.Date,
			Currency: row.Currency,
			Amount:   row.Amount,
			Net:      row.Amount,
			VAT:      decimal.Zero,
			VATRate:  decimal.Zero,
			Label:    "Saldo inicial",
		}
		name, known := books.PartnerByVAT(row.CUIT)
		if !known {
			name, known = created[row.CUIT]
		}
		if !known {
			name = row.Name
			created[row.CUIT] = name
			imp.Counters.NewPartners++
			doc.NewPartner = &NewPartner{
				Name:           name,
				VAT:            row.CUIT,
				FiscalPosition: row.FiscalPosition(),
				Customer:       imp.Operation == Sale,
				Supplier:       imp.Operation == Purchase,
			}
		}
		doc.Partner = name
		if imp.Type == NewDocuments {
			key := name + "\x00" + row.Ref()
			if seen[key] || books.HasDocument(name, doc.Name) || books.HasDocument(name, row.Ref()) {
				imp.Counters.Duplicates++
				imp.reject(row.Line, "duplicate document %s for %s", row.Ref(), name)
				continue
			}
			seen[key] = true
			doc.Ref = row.Ref()
			doc.Label = imp.Product
			doc.Net, doc.VAT = row.Split()
			doc.VATRate = row.VATRate()
		}
		imp.Counters.Created++
		docs = append(docs, doc)
	}
	imp.state = Done
	return docs, nil
}
