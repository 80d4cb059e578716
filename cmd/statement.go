package cmd

import (
	"context"
	"flag"

	"github.com/etnz/settle"
	"github.com/etnz/settle/bank"
	"github.com/google/subcommands"
)

type statementCmd struct {
	date      string
	statement string
	seq       int
	journal   string
	ref       string
	partner   string
	amount    string
	model     string
}

func (*statementCmd) Name() string     { return "statement" }
func (*statementCmd) Synopsis() string { return "record a bank statement line" }
func (*statementCmd) Usage() string {
	return `cst statement -journal <journal> -ref <ref> -amount <amount> [-statement <name>] [-line <n>] [-partner <partner>] [-model <model>] [-d <date>]

  Records a bank statement line as a customer receipt or vendor payment.
  With a reconcile model, the model decides the counterpart, the payment
  method and the memo. Card batch numbers found in the reference ("LOTE 47")
  link the line to their accreditations.

  The amount is signed: positive for money in, negative for money out.
  Each line makes its own payment. Lines are numbered in their statement,
  and recording a line number again is a no-op when nothing changed.
`
}

func (c *statementCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Line date (default today)")
	f.StringVar(&c.statement, "statement", "", "Statement name (default the journal and the date)")
	f.StringVar(&c.journal, "journal", "", "Bank journal")
	f.StringVar(&c.ref, "ref", "", "Line reference")
	f.StringVar(&c.partner, "partner", "", "Partner, matched against the directory")
	f.StringVar(&c.amount, "amount", "", "Signed amount")
	f.StringVar(&c.model, "model", "", "Reconcile model")
	f.IntVar(&c.seq, "line", 0, "Line number in the statement, recording it again is a no-op (default the next one)")
}

func (c *statementCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.journal == "" || c.ref == "" || c.amount == "" {
		return usageError("-journal, -ref and -amount are required")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	amount, err := parseDecimal(c.amount)
	if err != nil {
		return usageError("%v", err)
	}
	name := c.statement
	if name == "" {
		name = c.journal + " " + on.String()
	}
	line := bank.Line{
		Statement: name,
		Seq:       c.seq,
		Journal:   c.journal,
		Ref:       c.ref,
		Partner:   c.partner,
		Amount:    amount,
		Currency:  *defaultCurrency,
		Date:      on,
	}
	return execute(ctx, settle.NewStatement(line, c.model))
}

type invoiceFeesCmd struct {
	date          string
	financialCost bool
}

func (*invoiceFeesCmd) Name() string     { return "invoice-fees" }
func (*invoiceFeesCmd) Synopsis() string { return "record the processor invoice for accreditation fees" }
func (*invoiceFeesCmd) Usage() string {
	return `cst invoice-fees [-financial-cost] [-d <date>] <accreditation>...

  Records a vendor bill from the card processor with one line per plan for
  the fees of the accreditations, and the financial costs with
  -financial-cost.
`
}

func (c *invoiceFeesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Invoice date (default today)")
	f.BoolVar(&c.financialCost, "financial-cost", false, "Include the financial costs")
}

func (c *invoiceFeesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usageError("invoice-fees takes at least one accreditation")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	return execute(ctx, settle.NewInvoiceFees(on, c.financialCost, f.Args()...))
}
