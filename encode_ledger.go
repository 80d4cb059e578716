package settle

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/etnz/settle/bank"
	"github.com/etnz/settle/partner"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// amountCmd is a specialized struct to read from ledger an amount in two fields.
type amountCmd struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (a amountCmd) Money() Money {
	return M(a.Amount, a.Currency)
}

// DecodeCommand decodes a single JSON line into its command.
func DecodeCommand(line []byte) (Command, error) {
	var identifier struct {
		Command CommandType `json:"command"`
	}
	if err := json.Unmarshal(line, &identifier); err != nil {
		return nil, fmt.Errorf("could not identify command in line %q: %w", string(line), err)
	}

	switch identifier.Command {
	case CmdCollect:
		// Use a temporary type that has all possible fields.
		var temp struct {
			baseCmd
			amountCmd
			Journal     string       `json:"journal"`
			Plan        string       `json:"plan"`
			Partner     string       `json:"partner"`
			BatchNumber string       `json:"batch"`
			Coupon      string       `json:"coupon"`
			Movement    MovementType `json:"movement"`
			Payment     string       `json:"payment"`
			Draft       bool         `json:"draft"`
		}
		if err := json.Unmarshal(line, &temp); err != nil {
			return nil, err
		}
		c := Collect{
			baseCmd:     temp.baseCmd,
			Journal:     temp.Journal,
			Plan:        temp.Plan,
			Partner:     temp.Partner,
			Amount:      temp.Money(),
			Payment:     temp.Payment,
			BatchNumber: temp.BatchNumber,
			Coupon:      temp.Coupon,
			Movement:    temp.Movement,
			Draft:       temp.Draft,
		}
		if c.Movement == "" {
			c.Movement = Sale
		}
		return c, nil
	case CmdDeduct:
		var temp struct {
			baseCmd
			Accreditation string          `json:"accreditation"`
			Template      string          `json:"template"`
			Name          string          `json:"name"`
			Account       string          `json:"account"`
			Base          decimal.Decimal `json:"base"`
			Percentage    Percent         `json:"percentage"`
			Amount        decimal.Decimal `json:"amount"`
		}
		if err := json.Unmarshal(line, &temp); err != nil {
			return nil, err
		}
		return Deduct{
			baseCmd:       temp.baseCmd,
			Accreditation: temp.Accreditation,
			Template:      temp.Template,
			Name:          temp.Name,
			Account:       temp.Account,
			Base:          temp.Base,
			Percentage:    temp.Percentage,
			Amount:        temp.Amount,
		}, nil
	case CmdDeduction:
		var c UpdateDeduction
		err := json.Unmarshal(line, &c)
		return c, err
	case CmdAccreditation:
		var c UpdateAccreditation
		err := json.Unmarshal(line, &c)
		return c, err
	case CmdBatch:
		var temp struct {
			baseCmd
			Batch          string          `json:"batch"`
			Action         Action          `json:"action"`
			Accreditations []string        `json:"accreditations"`
			Fee            decimal.Decimal `json:"fee"`
			Tax            decimal.Decimal `json:"tax"`
			IfVersion      int             `json:"ifVersion"`
		}
		if err := json.Unmarshal(line, &temp); err != nil {
			return nil, err
		}
		return UpdateBatch{
			baseCmd:        temp.baseCmd,
			Batch:          temp.Batch,
			Action:         temp.Action,
			Accreditations: temp.Accreditations,
			Fee:            temp.Fee,
			Tax:            temp.Tax,
			IfVersion:      temp.IfVersion,
		}, nil
	case CmdPay:
		var c Pay
		err := json.Unmarshal(line, &c)
		return c, err
	case CmdPayment:
		var c UpdatePayment
		err := json.Unmarshal(line, &c)
		return c, err
	case CmdTransfer:
		var temp struct {
			baseCmd
			amountCmd
			Key  string `json:"key"`
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := json.Unmarshal(line, &temp); err != nil {
			return nil, err
		}
		return Transfer{
			baseCmd: temp.baseCmd,
			Key:     temp.Key,
			From:    temp.From,
			To:      temp.To,
			Amount:  temp.Money(),
		}, nil
	case CmdStatement:
		var temp struct {
			baseCmd
			amountCmd
			Statement string `json:"statement"`
			Seq       int    `json:"seq"`
			Journal   string `json:"journal"`
			Ref       string `json:"ref"`
			Partner   string `json:"partner"`
			Model     string `json:"model"`
		}
		if err := json.Unmarshal(line, &temp); err != nil {
			return nil, err
		}
		return Statement{
			baseCmd: temp.baseCmd,
			Line: bank.Line{
				Statement: temp.Statement,
				Seq:       temp.Seq,
				Journal:   temp.Journal,
				Ref:       temp.Ref,
				Partner:   temp.Partner,
				Amount:    temp.Amount,
				Currency:  temp.Currency,
				Date:      temp.Date,
			},
			Model: temp.Model,
		}, nil
	case CmdInvoiceFees:
		var c InvoiceFees
		err := json.Unmarshal(line, &c)
		return c, err
	case CmdInvoice:
		var temp struct {
			baseCmd
			Name       string           `json:"name"`
			Ref        string           `json:"ref"`
			MoveType   string           `json:"type"`
			Partner    string           `json:"partner"`
			NewPartner *partner.Partner `json:"newPartner"`
			Journal    string           `json:"journal"`
			Account    string           `json:"account"`
			Label      string           `json:"label"`
			Net        decimal.Decimal  `json:"net"`
			Currency   string           `json:"currency"`
			VAT        decimal.Decimal  `json:"vat"`
			TaxAccount string           `json:"taxAccount"`
		}
		if err := json.Unmarshal(line, &temp); err != nil {
			return nil, err
		}
		return RecordInvoice{
			baseCmd:    temp.baseCmd,
			Name:       temp.Name,
			Ref:        temp.Ref,
			MoveType:   temp.MoveType,
			Partner:    temp.Partner,
			NewPartner: temp.NewPartner,
			Journal:    temp.Journal,
			Account:    temp.Account,
			Label:      temp.Label,
			Net:        M(temp.Net, temp.Currency),
			VAT:        temp.VAT,
			TaxAccount: temp.TaxAccount,
		}, nil
	case CmdAssign:
		var c Assign
		err := json.Unmarshal(line, &c)
		return c, err
	}
	return nil, fmt.Errorf("unknown ledger command: %q", identifier.Command)
}

// DecodeLedger decodes commands from a stream of JSONL data from an io.Reader.
// Commands keep their order.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}
		cmd, err := DecodeCommand(lineBytes)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		ledger.Append(cmd)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return ledger, nil
}

// EncodeCommand marshals a single command to JSON and writes it to the
// writer, followed by a newline, in JSONL format.
func EncodeCommand(w io.Writer, cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal %s command: %w", cmd.What(), err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s command: %w", cmd.What(), err)
	}
	return nil
}

// EncodeLedger persists every command to an io.Writer in JSONL format.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	for _, cmd := range ledger.Commands() {
		if err := EncodeCommand(w, cmd); err != nil {
			return err
		}
	}
	return nil
}
