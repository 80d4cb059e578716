package cmd

import (
	"context"
	"flag"

	"github.com/etnz/settle"
	"github.com/google/subcommands"
)

type transferCmd struct {
	date   string
	from   string
	to     string
	amount string
	memo   string
	key    string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two journals" }
func (*transferCmd) Usage() string {
	return `cst transfer -from <journal> -to <journal> -amount <amount> [-memo <memo>] [-d <date>]

  Records an internal transfer as a pair of posted payments through the
  transfer account.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Transfer date (default today)")
	f.StringVar(&c.from, "from", "", "Source journal")
	f.StringVar(&c.to, "to", "", "Destination journal")
	f.StringVar(&c.amount, "amount", "", "Amount")
	f.StringVar(&c.memo, "memo", "", "Memo")
	f.StringVar(&c.key, "key", "", "Idempotency key, recording the same key again is a no-op (default a new one)")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.amount == "" {
		return usageError("-from, -to and -amount are required")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	amount, err := parseMoney(c.amount)
	if err != nil {
		return usageError("%v", err)
	}
	cmd := settle.NewTransfer(on, c.from, c.to, amount, c.memo)
	if c.key != "" {
		cmd.Key = c.key
	}
	return execute(ctx, cmd)
}

type paymentStateCmd struct {
	date string
}

func (*paymentStateCmd) Name() string     { return "payment" }
func (*paymentStateCmd) Synopsis() string { return "change the state of a payment" }
func (*paymentStateCmd) Usage() string {
	return `cst payment [-d <date>] <payment> <draft|in_process|paid|cancelled|post>

  Records a payment state reported by the bank. Going back to draft or
  cancelling reverses the payment move, post books a draft payment again.
  Card batches follow the state of their transfer payments.
`
}

func (c *paymentStateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date (default today)")
}

func (c *paymentStateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError("payment takes a payment and a state")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	id := f.Arg(0)
	if settle.Action(f.Arg(1)) == settle.ActPost {
		cmd := settle.NewPaymentState(on, id, settle.PaymentDraft)
		cmd.Action = settle.ActPost
		return execute(ctx, cmd)
	}
	state, err := settle.ParsePaymentState(f.Arg(1))
	if err != nil {
		return usageError("%v", err)
	}
	return execute(ctx, settle.NewPaymentState(on, id, state))
}
