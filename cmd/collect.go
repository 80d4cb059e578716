package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/settle"
	"github.com/google/subcommands"
)

type collectCmd struct {
	date     string
	journal  string
	plan     string
	partner  string
	amount   string
	batch    string
	coupon   string
	payment  string
	movement string
	draft    bool
	memo     string
}

func (*collectCmd) Name() string     { return "collect" }
func (*collectCmd) Synopsis() string { return "record a credit card coupon" }
func (*collectCmd) Usage() string {
	return `cst collect -amount <amount> [-plan <plan>] [-partner <partner>] [-journal <journal>] [-batch <lote>] [-coupon <cupón>] [-d <date>]

  Records a card coupon collected from a customer. The accreditation gets the
  fee, the financial cost and the expected accreditation date of the plan.
  The plan defaults to the only active plan of the journal, and the partner
  to "Consumidor Final".
`
}

func (c *collectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Collection date (default today)")
	f.StringVar(&c.journal, "journal", "CARD", "Card journal")
	f.StringVar(&c.plan, "plan", "", "Card plan (default the only active plan of the journal)")
	f.StringVar(&c.partner, "partner", "Consumidor Final", "Customer")
	f.StringVar(&c.amount, "amount", "", "Coupon amount")
	f.StringVar(&c.batch, "batch", "", "Card batch number (lote)")
	f.StringVar(&c.coupon, "coupon", "", "Coupon number (cupón)")
	f.StringVar(&c.payment, "payment", "", "Customer payment the coupon comes from")
	f.StringVar(&c.movement, "movement", string(settle.Sale), "Movement type: sale, refund or adjustment")
	f.BoolVar(&c.draft, "draft", false, "Keep the accreditation in draft")
	f.StringVar(&c.memo, "memo", "", "Memo")
}

func (c *collectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.partner == "" || c.amount == "" {
		return usageError("-partner and -amount are required")
	}
	if c.plan == "" {
		p, err := defaultPlan(c.journal)
		if err != nil {
			return usageError("%v", err)
		}
		c.plan = p
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	amount, err := parseMoney(c.amount)
	if err != nil {
		return usageError("%v", err)
	}
	cmd := settle.NewCollect(on, c.journal, c.plan, c.partner, amount, c.batch, c.coupon)
	cmd.Payment = c.payment
	cmd.Movement = settle.MovementType(c.movement)
	cmd.Draft = c.draft
	cmd.Memo = c.memo
	return execute(ctx, cmd)
}

// defaultPlan returns the plan of a journal when it has a single active one.
func defaultPlan(journal string) (string, error) {
	s, err := LoadSettings()
	if err != nil {
		return "", err
	}
	var plans []string
	for _, p := range s.Plans {
		if p.Journal == journal && p.Active {
			plans = append(plans, p.Name)
		}
	}
	if len(plans) != 1 {
		return "", fmt.Errorf("journal %s has %d active plans, use -plan", journal, len(plans))
	}
	return plans[0], nil
}

type deductCmd struct {
	date       string
	template   string
	name       string
	account    string
	percentage string
	amount     string
	base       string
}

func (*deductCmd) Name() string     { return "deduct" }
func (*deductCmd) Synopsis() string { return "add tax deductions to an accreditation" }
func (*deductCmd) Usage() string {
	return `cst deduct [-template <template> | -name <name> -account <account> (-percentage <pct> | -amount <amount>)] <accreditation>

  Adds draft tax deductions withheld by the card processor, either every
  line of a tax template or a single deduction.
`
}

func (c *deductCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date (default today)")
	f.StringVar(&c.template, "template", "", "Tax template")
	f.StringVar(&c.name, "name", "", "Deduction name")
	f.StringVar(&c.account, "account", "", "Tax account")
	f.StringVar(&c.percentage, "percentage", "", "Percentage of the base")
	f.StringVar(&c.amount, "amount", "", "Fixed amount, when there is no percentage")
	f.StringVar(&c.base, "base", "", "Base amount (default the coupon amount)")
}

func (c *deductCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("deduct takes one accreditation")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	id := f.Arg(0)
	if c.template != "" {
		return execute(ctx, settle.NewDeductTemplate(on, id, c.template))
	}
	if c.name == "" || c.account == "" {
		return usageError("-template or -name and -account are required")
	}
	pct, err := parseDecimal(c.percentage)
	if err != nil {
		return usageError("%v", err)
	}
	cmd := settle.NewDeduct(on, id, c.name, c.account, settle.Pct(pct))
	if cmd.Amount, err = parseDecimal(c.amount); err != nil {
		return usageError("%v", err)
	}
	if cmd.Base, err = parseDecimal(c.base); err != nil {
		return usageError("%v", err)
	}
	return execute(ctx, cmd)
}

type deductionCmd struct {
	date string
}

func (*deductionCmd) Name() string     { return "deduction" }
func (*deductionCmd) Synopsis() string { return "confirm, post, cancel or delete a tax deduction" }
func (*deductionCmd) Usage() string {
	return `cst deduction [-d <date>] <confirm|post|cancel|delete> <deduction>...

  Changes the state of tax deductions. Posting a deduction books the tax
  against the card journal.
`
}

func (c *deductionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date (default today)")
}

func (c *deductionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		return usageError("deduction takes an action and at least one deduction")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	action := settle.Action(f.Arg(0))
	switch action {
	case settle.ActConfirm, settle.ActPost, settle.ActCancel, settle.ActDelete:
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown action %q\n", action)
		return subcommands.ExitUsageError
	}
	var cmds []settle.Command
	for _, id := range f.Args()[1:] {
		cmds = append(cmds, settle.NewUpdateDeduction(on, id, action))
	}
	return execute(ctx, cmds...)
}
