package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/settle"
	"github.com/etnz/settle/renderer"
	"github.com/google/subcommands"
)

// loadPlan returns a plan of the settings and the business days calendar.
func loadPlan(name string) (settle.Plan, *settle.Calendar, error) {
	s, err := LoadSettings()
	if err != nil {
		return settle.Plan{}, nil, err
	}
	p, err := s.Plan(name)
	if err != nil {
		return settle.Plan{}, nil, err
	}
	cal, err := s.Calendar()
	return p, cal, err
}

type surchargeCmd struct {
	plan     string
	existing string
}

func (*surchargeCmd) Name() string     { return "surcharge" }
func (*surchargeCmd) Synopsis() string { return "compute the surcharge of a sale paid with a card plan" }
func (*surchargeCmd) Usage() string {
	return `cst surcharge -plan <plan> [-existing <amount>] <sale total>

  Prints the surcharge to add to a sale paid with the plan, rounded to the
  rounding factor of the plan. A surcharge already included in the sale
  total is given with -existing.
`
}

func (c *surchargeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.plan, "plan", "", "Card plan")
	f.StringVar(&c.existing, "existing", "0", "Surcharge already in the sale total")
}

func (c *surchargeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.plan == "" || f.NArg() != 1 {
		return usageError("surcharge takes -plan and a sale total")
	}
	total, err := parseMoney(f.Arg(0))
	if err != nil {
		return usageError("%v", err)
	}
	existing, err := parseMoney(c.existing)
	if err != nil {
		return usageError("%v", err)
	}
	p, _, err := loadPlan(c.plan)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	fmt.Println(p.SurchargeLine(total, existing))
	return subcommands.ExitSuccess
}

type estimateCmd struct {
	plan string
	date string
}

func (*estimateCmd) Name() string     { return "estimate" }
func (*estimateCmd) Synopsis() string { return "estimate the accreditation of a coupon" }
func (*estimateCmd) Usage() string {
	return `cst estimate -plan <plan> [-d <collection date>] <amount>

  Shows the fee, the financial cost and the net amount the processor will
  credit for a coupon, and the expected accreditation date counted in
  business days.
`
}

func (c *estimateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.plan, "plan", "", "Card plan")
	f.StringVar(&c.date, "d", "", "Collection date (default today)")
}

func (c *estimateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.plan == "" || f.NArg() != 1 {
		return usageError("estimate takes -plan and an amount")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	amount, err := parseMoney(f.Arg(0))
	if err != nil {
		return usageError("%v", err)
	}
	p, cal, err := loadPlan(c.plan)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.EstimateMarkdown(p, amount, on, p.AccreditationDate(cal, on)))
	return subcommands.ExitSuccess
}
