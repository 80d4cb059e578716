package settle

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/etnz/settle/bank"
	"github.com/etnz/settle/date"
	"github.com/etnz/settle/kpi"
	"github.com/etnz/settle/partner"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate checks struct tags, field names are reported by their json name.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// ValidationError reports invalid settings.
type ValidationError struct {
	Subject string
	Err     error
}

func (e *ValidationError) Error() string {
	var fields validator.ValidationErrors
	if errors.As(e.Err, &fields) {
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			msg := f.Namespace() + " failed on " + f.Tag()
			if f.Param() != "" {
				msg += "=" + f.Param()
			}
			msgs = append(msgs, msg)
		}
		return fmt.Sprintf("invalid %s: %s", e.Subject, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("invalid %s: %v", e.Subject, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// JournalType is the kind of journal.
type JournalType string

const (
	CardJournal     JournalType = "card"
	BankJournal     JournalType = "bank"
	CashJournal     JournalType = "cash"
	SaleJournal     JournalType = "sale"
	PurchaseJournal JournalType = "purchase"
	GeneralJournal  JournalType = "general"
)

// Journal is a book of moves.
type Journal struct {
	Code           string      `json:"code" yaml:"code" validate:"required"`
	Name           string      `json:"name" yaml:"name"`
	Type           JournalType `json:"type" yaml:"type" validate:"oneof=card bank cash sale purchase general"`
	DefaultAccount string      `json:"defaultAccount" yaml:"defaultAccount" validate:"required"`
	// outstanding receipts and payments accounts.
	InboundAccount  string `json:"inboundAccount,omitempty" yaml:"inboundAccount"`
	OutboundAccount string `json:"outboundAccount,omitempty" yaml:"outboundAccount"`

	// FinalBankJournal is where a card journal's batches are transferred.
	FinalBankJournal string `json:"finalBankJournal,omitempty" yaml:"finalBankJournal"`
	// Processor is the card processor partner, billed for fees.
	Processor string      `json:"processor,omitempty" yaml:"processor"`
	Feed      *FeedConfig `json:"feed,omitempty" yaml:"feed"`

	RestrictPartners bool     `json:"restrictPartners,omitempty" yaml:"restrictPartners"`
	AllowedPartners  []string `json:"allowedPartners,omitempty" yaml:"allowedPartners"`
}

// Restriction returns the journal partner restriction.
func (j Journal) Restriction() partner.Restriction {
	return partner.Restriction{Journal: j.Code, Restrict: j.RestrictPartners, Allowed: j.AllowedPartners}
}

// outstanding returns the outstanding account for a direction, falling back
// to the default account when allowed.
func (j Journal) outstanding(inbound, fallback bool) string {
	acc := j.OutboundAccount
	if inbound {
		acc = j.InboundAccount
	}
	if acc == "" && fallback {
		return j.DefaultAccount
	}
	return acc
}

// FeedConfig locates settlement data in a processor JSON report.
type FeedConfig struct {
	URL        string `json:"url,omitempty" yaml:"url"`
	Items      string `json:"items" yaml:"items" validate:"required"`
	Batch      string `json:"batch" yaml:"batch" validate:"required"`
	Coupon     string `json:"coupon" yaml:"coupon" validate:"required"`
	Amount     string `json:"amount" yaml:"amount" validate:"required"`
	Date       string `json:"date,omitempty" yaml:"date"`
	DateLayout string `json:"dateLayout,omitempty" yaml:"dateLayout"`
}

// TaxTemplate is a named set of deductions usually withheld together.
type TaxTemplate struct {
	Name  string         `json:"name" yaml:"name" validate:"required"`
	Lines []TemplateLine `json:"lines" yaml:"lines" validate:"min=1,dive"`
}

// TemplateLine is one deduction of a template.
type TemplateLine struct {
	Name       string  `json:"name" yaml:"name" validate:"required"`
	Account    string  `json:"account" yaml:"account" validate:"required"`
	Percentage float64 `json:"percentage" yaml:"percentage" validate:"gte=0,lte=100"`
}

// Settings is the static configuration of the books.
type Settings struct {
	Currency        string `json:"currency" yaml:"currency" validate:"required,len=3"`
	TransferAccount string `json:"transferAccount" yaml:"transferAccount" validate:"required"`
	// PurchaseJournal receives fee invoices.
	PurchaseJournal string `json:"purchaseJournal" yaml:"purchaseJournal" validate:"required"`
	// VAT accounts of imported invoices.
	SaleTaxAccount     string `json:"saleTaxAccount,omitempty" yaml:"saleTaxAccount"`
	PurchaseTaxAccount string `json:"purchaseTaxAccount,omitempty" yaml:"purchaseTaxAccount"`
	// PaymentTermDays is the delay between an invoice and its due date.
	PaymentTermDays int `json:"paymentTermDays,omitempty" yaml:"paymentTermDays" validate:"gte=0"`
	// FiscalYearStart is the first month of the fiscal year.
	FiscalYearStart int                  `json:"fiscalYearStart,omitempty" yaml:"fiscalYearStart" validate:"omitempty,min=1,max=12"`
	LockDates       map[string]date.Date `json:"lockDates,omitempty" yaml:"lockDates"`

	Accounts        []Account         `json:"accounts" yaml:"accounts" validate:"dive"`
	Journals        []Journal         `json:"journals" yaml:"journals" validate:"dive"`
	Plans           []Plan            `json:"plans" yaml:"plans" validate:"dive"`
	Holidays        []Holiday         `json:"holidays,omitempty" yaml:"holidays" validate:"dive"`
	Templates       []TaxTemplate     `json:"templates,omitempty" yaml:"templates" validate:"dive"`
	Partners        []partner.Partner `json:"partners,omitempty" yaml:"partners" validate:"dive"`
	Methods         []bank.Method     `json:"methods,omitempty" yaml:"methods" validate:"dive"`
	ReconcileModels []bank.Model      `json:"reconcileModels,omitempty" yaml:"reconcileModels" validate:"dive"`
	Cells           []kpi.Cell        `json:"cells,omitempty" yaml:"cells" validate:"dive"`
}

// DefaultSettings returns a small Argentinian chart with one card journal
// settling into one bank journal.
func DefaultSettings() *Settings {
	return &Settings{
		Currency:           "ARS",
		TransferAccount:    "1.1.9",
		PurchaseJournal:    "BILL",
		SaleTaxAccount:     "2.1.2",
		PurchaseTaxAccount: "1.4.2",
		PaymentTermDays:    30,
		Accounts: []Account{
			{Code: "1.1.1", Name: "Caja", Type: LiquidityAccount},
			{Code: "1.1.2", Name: "Banco", Type: LiquidityAccount},
			{Code: "1.1.3", Name: "Tarjetas a acreditar", Type: AssetAccount},
			{Code: "1.1.4", Name: "Cobros pendientes", Type: AssetAccount},
			{Code: "1.1.5", Name: "Pagos pendientes", Type: AssetAccount},
			{Code: "1.1.9", Name: "Transferencias internas", Type: AssetAccount},
			{Code: "1.3.1", Name: "Deudores por ventas", Type: ReceivableAccount},
			{Code: "1.4.1", Name: "Retenciones sufridas", Type: TaxAccount},
			{Code: "1.4.2", Name: "IVA crédito fiscal", Type: TaxAccount},
			{Code: "2.1.1", Name: "Proveedores", Type: PayableAccount},
			{Code: "2.1.2", Name: "IVA débito fiscal", Type: TaxAccount},
			{Code: "4.1.1", Name: "Ventas", Type: IncomeAccount},
			{Code: "6.2.1", Name: "Comisiones tarjetas", Type: ExpenseAccount},
			{Code: "6.2.2", Name: "Costo financiero tarjetas", Type: ExpenseAccount},
			{Code: "6.5.1", Name: "Compras", Type: ExpenseAccount},
		},
		Journals: []Journal{
			{Code: "CARD", Name: "Tarjetas", Type: CardJournal, DefaultAccount: "1.1.3", InboundAccount: "1.1.3", OutboundAccount: "1.1.3", FinalBankJournal: "BNK", Processor: "Procesadora"},
			{Code: "BNK", Name: "Banco", Type: BankJournal, DefaultAccount: "1.1.2", InboundAccount: "1.1.4", OutboundAccount: "1.1.5"},
			{Code: "CSH", Name: "Caja", Type: CashJournal, DefaultAccount: "1.1.1", InboundAccount: "1.1.1", OutboundAccount: "1.1.1"},
			{Code: "SALE", Name: "Ventas", Type: SaleJournal, DefaultAccount: "4.1.1"},
			{Code: "BILL", Name: "Compras", Type: PurchaseJournal, DefaultAccount: "6.5.1"},
		},
		Plans: []Plan{
			func() Plan { p := NewPlan("1 cuota", "CARD"); p.FeeAccount, p.FinancialCostAccount = "6.2.1", "6.2.2"; return p }(),
		},
		Partners: []partner.Partner{
			{Name: "Procesadora", SupplierRank: 1, Payable: "2.1.1"},
			{Name: "Consumidor Final", CustomerRank: 1},
		},
		Methods: []bank.Method{
			{Name: "manual-in", Direction: bank.Inbound, Journal: "BNK"},
			{Name: "manual-out", Direction: bank.Outbound, Journal: "BNK"},
			{Name: "card-in", Direction: bank.Inbound, Journal: "CARD"},
			{Name: "card-out", Direction: bank.Outbound, Journal: "CARD"},
		},
		Cells: []kpi.Cell{
			{Name: "liquidity", Type: kpi.Liquidity},
			{Name: "cards", Type: kpi.CardPending},
			{Name: "customers", Type: kpi.CustomerDebt},
			{Name: "suppliers", Type: kpi.SupplierDebt},
			{Name: "income", Type: kpi.IncomeMonth},
		},
	}
}

// LoadSettings reads and validates a settings file. A missing file yields
// the default settings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("settings file %q does not exist, using the default settings", path)
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading settings file: %w", err)
	}
	s := new(Settings)
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("error parsing settings file %q: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings file %q: %w", path, err)
	}
	return s, nil
}

// Validate checks the field constraints and the references between
// accounts, journals, plans and partners.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return &ValidationError{Subject: "settings", Err: err}
	}
	accounts := make(map[string]Account)
	for _, a := range s.Accounts {
		if _, dup := accounts[a.Code]; dup {
			return fmt.Errorf("duplicate account %q", a.Code)
		}
		accounts[a.Code] = a
	}
	checkAccount := func(subject, code string) error {
		if code == "" {
			return nil
		}
		if _, ok := accounts[code]; !ok {
			return fmt.Errorf("%s: unknown account %q: %w", subject, code, ErrNotFound)
		}
		return nil
	}
	for _, code := range []string{s.TransferAccount, s.SaleTaxAccount, s.PurchaseTaxAccount} {
		if err := checkAccount("settings", code); err != nil {
			return err
		}
	}
	journals := make(map[string]Journal)
	for _, j := range s.Journals {
		if _, dup := journals[j.Code]; dup {
			return fmt.Errorf("duplicate journal %q", j.Code)
		}
		journals[j.Code] = j
		for _, code := range []string{j.DefaultAccount, j.InboundAccount, j.OutboundAccount} {
			if err := checkAccount("journal "+j.Code, code); err != nil {
				return err
			}
		}
	}
	if _, ok := journals[s.PurchaseJournal]; !ok {
		return fmt.Errorf("purchase journal %q: %w", s.PurchaseJournal, ErrNotFound)
	}
	for _, j := range s.Journals {
		if j.FinalBankJournal == "" {
			continue
		}
		if j.Type != CardJournal {
			return fmt.Errorf("journal %q: only card journals have a final bank journal", j.Code)
		}
		if b, ok := journals[j.FinalBankJournal]; !ok || b.Type != BankJournal {
			return fmt.Errorf("journal %q: final bank journal %q is not a bank journal", j.Code, j.FinalBankJournal)
		}
	}
	plans := make(map[string]bool)
	for _, p := range s.Plans {
		if err := p.Validate(); err != nil {
			return err
		}
		if j, ok := journals[p.Journal]; !ok || j.Type != CardJournal {
			return fmt.Errorf("plan %q: journal %q is not a card journal", p.Name, p.Journal)
		}
		if plans[p.Name] {
			return fmt.Errorf("duplicate plan %q", p.Name)
		}
		plans[p.Name] = true
		for _, code := range []string{p.FeeAccount, p.FinancialCostAccount, p.VATAccount, p.GrossIncomeAccount} {
			if err := checkAccount("plan "+p.Name, code); err != nil {
				return err
			}
		}
	}
	for _, t := range s.Templates {
		for _, l := range t.Lines {
			if err := checkAccount("template "+t.Name, l.Account); err != nil {
				return err
			}
		}
	}
	for _, m := range s.Methods {
		if _, ok := journals[m.Journal]; m.Journal != "" && !ok {
			return fmt.Errorf("payment method %q: journal %q: %w", m.Name, m.Journal, ErrNotFound)
		}
	}
	if _, err := s.Calendar(); err != nil {
		return err
	}
	if _, err := s.Directory(); err != nil {
		return err
	}
	if _, err := s.Board(); err != nil {
		return err
	}
	return nil
}

// Journal returns a journal by code.
func (s *Settings) Journal(code string) (Journal, error) {
	for _, j := range s.Journals {
		if j.Code == code {
			return j, nil
		}
	}
	return Journal{}, fmt.Errorf("journal %q: %w", code, ErrNotFound)
}

// Plan returns a plan by name.
func (s *Settings) Plan(name string) (Plan, error) {
	for _, p := range s.Plans {
		if p.Name == name {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("plan %q: %w", name, ErrNotFound)
}

// Template returns a tax template by name.
func (s *Settings) Template(name string) (TaxTemplate, error) {
	for _, t := range s.Templates {
		if t.Name == name {
			return t, nil
		}
	}
	return TaxTemplate{}, fmt.Errorf("tax template %q: %w", name, ErrNotFound)
}

// ReconcileModel returns a reconcile model by name.
func (s *Settings) ReconcileModel(name string) (bank.Model, error) {
	for _, m := range s.ReconcileModels {
		if m.Name == name {
			return m, nil
		}
	}
	return bank.Model{}, fmt.Errorf("reconcile model %q: %w", name, ErrNotFound)
}

// Calendar returns the holiday calendar.
func (s *Settings) Calendar() (*Calendar, error) { return NewCalendar(s.Holidays...) }

// Directory returns a new partner directory with the configured partners
// and the receivable and payable accounts of the chart.
func (s *Settings) Directory() (*partner.Directory, error) {
	kinds := make(map[string]partner.Kind)
	for _, a := range s.Accounts {
		switch a.Type {
		case ReceivableAccount:
			kinds[a.Code] = partner.Receivable
		case PayableAccount:
			kinds[a.Code] = partner.Payable
		}
	}
	return partner.NewDirectory(slices.Clone(s.Partners), kinds)
}

// Board returns the dashboard.
func (s *Settings) Board() (*kpi.Board, error) {
	b, err := kpi.NewBoard(s.Cells...)
	if err != nil {
		return nil, err
	}
	if s.FiscalYearStart > 0 {
		b.FiscalYearStart = time.Month(s.FiscalYearStart)
	}
	return b, nil
}

// firstAccount returns the first account of a type whose code starts with
// one of the prefixes, in chart order.
func (s *Settings) firstAccount(t AccountType, prefixes ...string) (Account, bool) {
	for _, a := range s.Accounts {
		if a.Type != t {
			continue
		}
		for _, p := range prefixes {
			if strings.HasPrefix(a.Code, p) {
				return a, true
			}
		}
	}
	return Account{}, false
}
