package cmd

import (
	"context"
	"flag"

	"github.com/etnz/settle"
	"github.com/google/subcommands"
)

type payCmd struct {
	date string
}

func (*payCmd) Name() string     { return "pay" }
func (*payCmd) Synopsis() string { return "record the card payment of pending accreditations" }
func (*payCmd) Usage() string {
	return `cst pay [-d <date>] <accreditation>...

  Posts the net amount paid by the card processor and credits the
  accreditations. Accreditations of several journals get one payment per
  journal.
`
}

func (c *payCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Payment date (default today)")
}

func (c *payCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usageError("pay takes at least one accreditation")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	return execute(ctx, settle.NewPay(on, f.Args()...))
}

// updateAccreditations runs the same action on every accreditation argument.
func updateAccreditations(ctx context.Context, f *flag.FlagSet, day string, action settle.Action) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usageError("%s takes at least one accreditation", action)
	}
	on, err := parseDate(day)
	if err != nil {
		return usageError("%v", err)
	}
	cmds := make([]settle.Command, 0, f.NArg())
	for _, id := range f.Args() {
		cmds = append(cmds, settle.NewUpdateAccreditation(on, id, action))
	}
	return execute(ctx, cmds...)
}

type reverseCmd struct {
	date string
}

func (*reverseCmd) Name() string     { return "reverse" }
func (*reverseCmd) Synopsis() string { return "reverse credited accreditations" }
func (*reverseCmd) Usage() string {
	return `cst reverse [-d <date>] <accreditation>...

  Creates a reversal accreditation with negated amounts for each credited
  accreditation, and marks the original as reversed.
`
}

func (c *reverseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Reversal date (default today)")
}

func (c *reverseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return updateAccreditations(ctx, f, c.date, settle.ActReverse)
}

type resetCmd struct {
	date  string
	draft bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "send accreditations back to pending or draft" }
func (*resetCmd) Usage() string {
	return `cst reset [-draft] [-d <date>] <accreditation>...

  Clears the actual liquidation data of accreditations and sends them back
  to pending, or to draft with -draft. A posted payment of a draft
  accreditation goes back to draft too.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date (default today)")
	f.BoolVar(&c.draft, "draft", false, "Set to draft instead of pending")
}

func (c *resetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.draft {
		return updateAccreditations(ctx, f, c.date, settle.ActDraft)
	}
	return updateAccreditations(ctx, f, c.date, settle.ActReset)
}
