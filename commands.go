package settle

import (
	"fmt"
	"strconv"

	"github.com/etnz/settle/bank"
	"github.com/etnz/settle/date"
	"github.com/etnz/settle/partner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommandType is a typed string for identifying ledger commands.
type CommandType string

// Command types used for identifying commands in the ledger.
const (
	CmdCollect       CommandType = "collect"
	CmdDeduct        CommandType = "deduct"
	CmdDeduction     CommandType = "deduction"
	CmdAccreditation CommandType = "accreditation"
	CmdBatch         CommandType = "batch"
	CmdPay           CommandType = "pay"
	CmdPayment       CommandType = "payment"
	CmdTransfer      CommandType = "transfer"
	CmdStatement     CommandType = "statement"
	CmdInvoiceFees   CommandType = "invoice-fees"
	CmdInvoice       CommandType = "invoice"
	CmdAssign        CommandType = "assign"
)

// Action is what an update command does to its entity.
type Action string

const (
	ActConfirm     Action = "confirm"
	ActPost        Action = "post"
	ActCancel      Action = "cancel"
	ActDelete      Action = "delete"
	ActReverse     Action = "reverse"
	ActReset       Action = "reset"
	ActDraft       Action = "draft"
	ActCreate      Action = "create"
	ActAdd         Action = "add"
	ActRemove      Action = "remove"
	ActTransfer    Action = "transfer"
	ActBackToDraft Action = "back-to-draft"
	ActReconcile   Action = "reconcile"
	ActUnreconcile Action = "unreconcile"
	ActState       Action = "state"
)

func unknownAction(cmd CommandType, a Action) error {
	return fmt.Errorf("unknown %s action %q: %w", cmd, a, ErrInvalid)
}

// Command is an entry of the ledger. Applying the ledger's commands in order
// to an empty Book rebuilds the state of the books.
type Command interface {
	What() CommandType // What returns the command type (e.g., "collect", "batch").
	When() date.Date   // When returns the date the command applies on.
	apply(b *Book) error
}

type baseCmd struct {
	Command CommandType `json:"command"`        // Command specifies the type of command.
	Date    date.Date   `json:"date"`           // Date is the business date of the command.
	Memo    string      `json:"memo,omitempty"` // Memo is an optional note.
}

// What returns the command name, which is used to identify the type of command.
func (c baseCmd) What() CommandType { return c.Command }

// When returns the date of the command.
func (c baseCmd) When() date.Date { return c.Date }

// MarshalJSON implements the json.Marshaler interface for baseCmd.
func (c baseCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	return w.Header(c).MarshalJSON()
}

// Collect registers a card coupon as a pending accreditation.
type Collect struct {
	baseCmd
	Journal     string
	Plan        string
	Partner     string
	Amount      Money
	Payment     string // customer payment the coupon settles, if any
	BatchNumber string
	Coupon      string
	Movement    MovementType
	Draft       bool
}

// NewCollect creates a Collect command for a sale coupon.
func NewCollect(day date.Date, journal, plan, partner string, amount Money, batch, coupon string) Collect {
	return Collect{
		baseCmd:     baseCmd{Command: CmdCollect, Date: day},
		Journal:     journal,
		Plan:        plan,
		Partner:     partner,
		Amount:      amount,
		BatchNumber: batch,
		Coupon:      coupon,
		Movement:    Sale,
	}
}

// MarshalJSON implements the json.Marshaler interface for Collect.
func (c Collect) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("journal", c.Journal)
	w.Append("plan", c.Plan)
	w.Append("partner", c.Partner)
	w.Money("amount", c.Amount)
	w.Optional("batch", c.BatchNumber)
	w.Optional("coupon", c.Coupon)
	if c.Movement != Sale {
		w.Optional("movement", c.Movement)
	}
	w.Optional("payment", c.Payment)
	w.Optional("draft", c.Draft)
	return w.MarshalJSON()
}

func (c Collect) apply(b *Book) error {
	_, err := b.collect(c)
	return err
}

// Deduct adds a tax deduction to an accreditation, either a single one or
// one per line of a tax template.
type Deduct struct {
	baseCmd
	Accreditation string
	Template      string
	Name          string
	Account       string
	Base          decimal.Decimal // the original amount when zero
	Percentage    Percent
	Amount        decimal.Decimal // used when there is no percentage
}

// NewDeduct creates a Deduct command computing the amount from a percentage.
func NewDeduct(day date.Date, accreditation, name, account string, pct Percent) Deduct {
	return Deduct{
		baseCmd:       baseCmd{Command: CmdDeduct, Date: day},
		Accreditation: accreditation,
		Name:          name,
		Account:       account,
		Percentage:    pct,
	}
}

// NewDeductTemplate creates a Deduct command applying a tax template.
func NewDeductTemplate(day date.Date, accreditation, template string) Deduct {
	return Deduct{
		baseCmd:       baseCmd{Command: CmdDeduct, Date: day},
		Accreditation: accreditation,
		Template:      template,
	}
}

// MarshalJSON implements the json.Marshaler interface for Deduct.
func (c Deduct) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("accreditation", c.Accreditation)
	w.Optional("template", c.Template)
	w.Optional("name", c.Name)
	w.Optional("account", c.Account)
	w.Optional("base", c.Base)
	w.Optional("percentage", c.Percentage)
	w.Optional("amount", c.Amount)
	return w.MarshalJSON()
}

func (c Deduct) apply(b *Book) error {
	a, err := b.Accreditation(c.Accreditation)
	if err != nil {
		return err
	}
	if c.Template != "" {
		t, err := b.settings.Template(c.Template)
		if err != nil {
			return err
		}
		_, err = b.applyTemplate(a, t)
		return err
	}
	cur := a.Currency()
	_, err = b.deduct(a, c.Name, c.Account, M(c.Base, cur), c.Percentage, M(c.Amount, cur))
	return err
}

// UpdateDeduction confirms, posts, cancels or deletes a tax deduction.
type UpdateDeduction struct {
	baseCmd
	Deduction string `json:"deduction"`
	Action    Action `json:"action"`
}

// NewUpdateDeduction creates an UpdateDeduction command.
func NewUpdateDeduction(day date.Date, id string, action Action) UpdateDeduction {
	return UpdateDeduction{baseCmd: baseCmd{Command: CmdDeduction, Date: day}, Deduction: id, Action: action}
}

// MarshalJSON implements the json.Marshaler interface for UpdateDeduction.
func (c UpdateDeduction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("deduction", c.Deduction)
	w.Append("action", c.Action)
	return w.MarshalJSON()
}

func (c UpdateDeduction) apply(b *Book) error {
	d, err := b.Deduction(c.Deduction)
	if err != nil {
		return err
	}
	switch c.Action {
	case ActConfirm:
		return b.confirmDeduction(d)
	case ActPost:
		return b.postDeduction(d)
	case ActCancel:
		return b.cancelDeduction(d)
	case ActDelete:
		return b.deleteDeduction(d)
	}
	return unknownAction(c.Command, c.Action)
}

// UpdateAccreditation reverses an accreditation, resets it to pending or
// sets it to draft.
type UpdateAccreditation struct {
	baseCmd
	Accreditation string `json:"accreditation"`
	Action        Action `json:"action"`
}

// NewUpdateAccreditation creates an UpdateAccreditation command.
func NewUpdateAccreditation(day date.Date, id string, action Action) UpdateAccreditation {
	return UpdateAccreditation{baseCmd: baseCmd{Command: CmdAccreditation, Date: day}, Accreditation: id, Action: action}
}

// MarshalJSON implements the json.Marshaler interface for UpdateAccreditation.
func (c UpdateAccreditation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("accreditation", c.Accreditation)
	w.Append("action", c.Action)
	return w.MarshalJSON()
}

func (c UpdateAccreditation) apply(b *Book) error {
	a, err := b.Accreditation(c.Accreditation)
	if err != nil {
		return err
	}
	switch c.Action {
	case ActReverse:
		_, err := b.reverse(a)
		return err
	case ActReset:
		return b.resetToPending(a)
	case ActDraft:
		return b.setToDraft(a)
	}
	return unknownAction(c.Command, c.Action)
}

// UpdateBatch creates or changes a batch transfer. Create and add take
// accreditations, remove takes the accreditations to send back to pending.
//
// When IfVersion is set the command fails with ErrConflict unless the batch
// is still at that version.
type UpdateBatch struct {
	baseCmd
	Batch          string
	Action         Action
	Accreditations []string
	Fee            decimal.Decimal // global fee, on create
	Tax            decimal.Decimal // global tax deductions, on create
	IfVersion      int
}

// NewUpdateBatch creates an UpdateBatch command.
func NewUpdateBatch(day date.Date, name string, action Action, accreditations ...string) UpdateBatch {
	return UpdateBatch{
		baseCmd:        baseCmd{Command: CmdBatch, Date: day},
		Batch:          name,
		Action:         action,
		Accreditations: accreditations,
	}
}

// MarshalJSON implements the json.Marshaler interface for UpdateBatch.
func (c UpdateBatch) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Optional("batch", c.Batch)
	w.Append("action", c.Action)
	w.Optional("accreditations", c.Accreditations)
	w.Optional("fee", c.Fee)
	w.Optional("tax", c.Tax)
	w.Optional("ifVersion", c.IfVersion)
	return w.MarshalJSON()
}

func (c UpdateBatch) apply(b *Book) error {
	cur := b.Currency()
	switch c.Action {
	case ActCreate:
		_, err := b.createBatch(c.Accreditations, M(c.Fee, cur), M(c.Tax, cur))
		return err
	case ActAdd:
		if c.Batch != "" {
			t, err := b.Batch(c.Batch)
			if err != nil {
				return err
			}
			if err := t.checkVersion(c.IfVersion); err != nil {
				return err
			}
		}
		_, err := b.addToBatch(c.Batch, c.Accreditations)
		return err
	}

	t, err := b.Batch(c.Batch)
	if err != nil {
		return err
	}
	if err := t.checkVersion(c.IfVersion); err != nil {
		return err
	}
	switch c.Action {
	case ActRemove:
		for _, id := range c.Accreditations {
			a, err := b.Accreditation(id)
			if err != nil {
				return err
			}
			if err := b.removeFromBatch(t, a); err != nil {
				return err
			}
		}
		return nil
	case ActConfirm:
		return b.confirmBatch(t)
	case ActTransfer:
		return b.transferBatch(t)
	case ActCancel:
		return b.cancelBatch(t)
	case ActDraft:
		return b.batchToDraft(t)
	case ActBackToDraft:
		return b.backToDraft(t)
	case ActReconcile:
		return b.reconcileBatch(t)
	case ActUnreconcile:
		return b.unreconcileBatch(t)
	case ActDelete:
		return b.deleteBatch(t)
	}
	return unknownAction(c.Command, c.Action)
}

// Pay posts the card payment of pending accreditations and credits them.
type Pay struct {
	baseCmd
	Accreditations []string `json:"accreditations"`
}

// NewPay creates a Pay command.
func NewPay(day date.Date, ids ...string) Pay {
	return Pay{baseCmd: baseCmd{Command: CmdPay, Date: day}, Accreditations: ids}
}

// MarshalJSON implements the json.Marshaler interface for Pay.
func (c Pay) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("accreditations", c.Accreditations)
	return w.MarshalJSON()
}

func (c Pay) apply(b *Book) error {
	if len(c.Accreditations) == 1 {
		a, err := b.Accreditation(c.Accreditations[0])
		if err != nil {
			return err
		}
		_, err = b.payAccreditation(a)
		return err
	}
	_, err := b.payAccreditations(c.Accreditations...)
	return err
}

// UpdatePayment records a payment state change reported by the bank.
type UpdatePayment struct {
	baseCmd
	Payment string       `json:"payment"`
	Action  Action       `json:"action"`
	State   PaymentState `json:"state"`
}

// NewPaymentState creates an UpdatePayment command setting a state.
func NewPaymentState(day date.Date, id string, state PaymentState) UpdatePayment {
	return UpdatePayment{baseCmd: baseCmd{Command: CmdPayment, Date: day}, Payment: id, Action: ActState, State: state}
}

// MarshalJSON implements the json.Marshaler interface for UpdatePayment.
func (c UpdatePayment) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("payment", c.Payment)
	w.Append("action", c.Action)
	w.Append("state", c.State)
	return w.MarshalJSON()
}

func (c UpdatePayment) apply(b *Book) error {
	p, err := b.Payment(c.Payment)
	if err != nil {
		return err
	}
	switch c.Action {
	case ActState:
		if c.State == PaymentCancelled {
			return b.cancelPayment(p)
		}
		return b.setPaymentState(p, c.State)
	case ActPost:
		return b.postPayment(p)
	case ActCancel:
		return b.cancelPayment(p)
	}
	return unknownAction(c.Command, c.Action)
}

// Transfer moves money between two journals of the company.
type Transfer struct {
	baseCmd
	Key    string // idempotency key, every transfer has its own unless retried
	From   string
	To     string
	Amount Money
}

// NewTransfer creates a Transfer command with a new idempotency key.
func NewTransfer(day date.Date, from, to string, amount Money, memo string) Transfer {
	return Transfer{
		baseCmd: baseCmd{Command: CmdTransfer, Date: day, Memo: memo},
		Key:     uuid.NewString(),
		From:    from,
		To:      to,
		Amount:  amount,
	}
}

// MarshalJSON implements the json.Marshaler interface for Transfer.
func (c Transfer) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Optional("key", c.Key)
	w.Append("from", c.From)
	w.Append("to", c.To)
	w.Money("amount", c.Amount)
	return w.MarshalJSON()
}

func (c Transfer) apply(b *Book) error {
	key := c.Key
	if key == "" {
		key = Key("transfer", b.next("TRF"))
	}
	_, err := b.transfer(key, c.From, c.To, c.Amount, c.Memo)
	return err
}

// Statement records a bank statement line: it creates the customer receipt
// or vendor payment the line stands for, using a reconcile model when one is
// named, and links the accreditations of the card batches the line mentions.
type Statement struct {
	baseCmd
	Line  bank.Line
	Model string
}

// NewStatement creates a Statement command.
func NewStatement(line bank.Line, model string) Statement {
	return Statement{baseCmd: baseCmd{Command: CmdStatement, Date: line.Date}, Line: line, Model: model}
}

// MarshalJSON implements the json.Marshaler interface for Statement.
func (c Statement) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("statement", c.Line.Statement)
	w.Optional("seq", c.Line.Seq)
	w.Append("journal", c.Line.Journal)
	w.Append("ref", c.Line.Ref)
	w.Optional("partner", c.Line.Partner)
	w.Append("amount", c.Line.Amount)
	w.Optional("currency", c.Line.Currency)
	w.Optional("model", c.Model)
	return w.MarshalJSON()
}

func (c Statement) apply(b *Book) error {
	line := c.Line
	if line.Date.IsZero() {
		line.Date = b.on
	}
	line.Seq = b.statementSeq(line.Journal, line.Statement, line.Seq)
	if line.Currency == "" {
		line.Currency = b.Currency()
	}
	var prop bank.Proposal
	var err error
	if c.Model != "" {
		m, err := b.settings.ReconcileModel(c.Model)
		if err != nil {
			return err
		}
		prop, err = bank.Propose(m, line, b.dir, b.settings.Methods)
		if err != nil {
			return err
		}
	} else if prop, err = bank.ProposeDirect(line, b.dir, b.settings.Methods); err != nil {
		return err
	}
	key := Key("statement", line.Journal, line.Statement, strconv.Itoa(line.Seq))
	pay := &Payment{
		Type:        prop.Direction,
		PartnerType: prop.PartnerType,
		Journal:     prop.Journal,
		Partner:     prop.Partner,
		Method:      prop.Method,
		Amount:      M(prop.Amount, prop.Currency),
		Date:        prop.Date,
		Memo:        prop.Memo,
	}
	if err := b.checkKey(key, pay); err != nil {
		return err
	}
	if prop.NewPartner {
		np := partner.Partner{Name: prop.Partner}
		if prop.PartnerType == "supplier" {
			np.SupplierRank = 1
		} else {
			np.CustomerRank = 1
		}
		if err := b.addPartner(np); err != nil {
			return err
		}
	}
	p, err := b.createPayment(key, pay)
	if err != nil {
		return err
	}
	if prop.AutoPost && p.state == PaymentDraft {
		if err := b.postPayment(p); err != nil {
			return err
		}
	}
	for _, a := range b.MatchStatement(line.Ref) {
		a.StatementLine = line.Statement + ": " + line.Ref
	}
	return nil
}

// InvoiceFees bills the card processor for the fees of accreditations.
type InvoiceFees struct {
	baseCmd
	Accreditations []string `json:"accreditations"`
	FinancialCost  bool     `json:"financialCost,omitempty"`
}

// NewInvoiceFees creates an InvoiceFees command.
func NewInvoiceFees(day date.Date, financialCost bool, ids ...string) InvoiceFees {
	return InvoiceFees{baseCmd: baseCmd{Command: CmdInvoiceFees, Date: day}, Accreditations: ids, FinancialCost: financialCost}
}

// MarshalJSON implements the json.Marshaler interface for InvoiceFees.
func (c InvoiceFees) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("accreditations", c.Accreditations)
	w.Optional("financialCost", c.FinancialCost)
	return w.MarshalJSON()
}

func (c InvoiceFees) apply(b *Book) error {
	_, err := b.invoiceFees(c.Accreditations, c.FinancialCost)
	return err
}

// RecordInvoice posts a customer invoice or vendor bill, possibly creating
// its partner first.
type RecordInvoice struct {
	baseCmd
	Name       string
	Ref        string
	MoveType   string
	Partner    string
	NewPartner *partner.Partner
	Journal    string
	Account    string // untaxed amount account, the journal default account when empty
	Label      string
	Net        Money
	VAT        decimal.Decimal
	TaxAccount string // the sale or purchase tax account when empty
}

// MarshalJSON implements the json.Marshaler interface for RecordInvoice.
func (c RecordInvoice) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Append("name", c.Name)
	w.Optional("ref", c.Ref)
	w.Append("type", c.MoveType)
	w.Append("partner", c.Partner)
	w.Optional("newPartner", c.NewPartner)
	w.Append("journal", c.Journal)
	w.Optional("account", c.Account)
	w.Optional("label", c.Label)
	w.Money("net", c.Net)
	w.Optional("vat", c.VAT)
	w.Optional("taxAccount", c.TaxAccount)
	return w.MarshalJSON()
}

func (c RecordInvoice) apply(b *Book) error {
	if c.NewPartner != nil {
		if err := b.addPartner(*c.NewPartner); err != nil {
			return err
		}
	}
	j, err := b.settings.Journal(c.Journal)
	if err != nil {
		return err
	}
	inv := &Invoice{
		Name:     c.Name,
		Ref:      c.Ref,
		MoveType: c.MoveType,
		Partner:  c.Partner,
		Journal:  j.Code,
		Date:     b.on,
	}
	account := c.Account
	if account == "" {
		account = j.DefaultAccount
	}
	label := c.Label
	if label == "" {
		label = c.Name
	}
	net := b.withCurrency(c.Net)
	inv.Lines = append(inv.Lines, InvoiceLine{Account: account, Label: label, Amount: net})
	if !c.VAT.IsZero() {
		tax := c.TaxAccount
		if tax == "" {
			tax = b.settings.PurchaseTaxAccount
			if inv.IsSale() {
				tax = b.settings.SaleTaxAccount
			}
		}
		inv.Lines = append(inv.Lines, InvoiceLine{Account: tax, Label: "IVA", Amount: M(c.VAT, net.Currency())})
	}
	return b.postInvoice(inv)
}

// Assign changes the partners assigned to a receivable or payable account.
// With CleanConflicts, partners assigned to several payable accounts are
// fixed first.
type Assign struct {
	baseCmd
	Account        string       `json:"account,omitempty"`
	Mode           partner.Mode `json:"mode,omitempty"`
	Partners       []string     `json:"partners,omitempty"`
	CleanConflicts bool         `json:"cleanConflicts,omitempty"`
}

// NewAssign creates an Assign command.
func NewAssign(day date.Date, account string, mode partner.Mode, partners ...string) Assign {
	return Assign{baseCmd: baseCmd{Command: CmdAssign, Date: day}, Account: account, Mode: mode, Partners: partners}
}

// MarshalJSON implements the json.Marshaler interface for Assign.
func (c Assign) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Header(c.baseCmd)
	w.Optional("account", c.Account)
	w.Optional("mode", c.Mode)
	w.Optional("partners", c.Partners)
	w.Optional("cleanConflicts", c.CleanConflicts)
	return w.MarshalJSON()
}

func (c Assign) apply(b *Book) error {
	if c.CleanConflicts {
		b.dir.CleanPayableConflicts()
	}
	if c.Account == "" {
		if !c.CleanConflicts {
			return fmt.Errorf("no account to assign partners to: %w", ErrInvalid)
		}
		return nil
	}
	return b.dir.Assign(c.Account, c.Mode, c.Partners...)
}
