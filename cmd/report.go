package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/settle"
	"github.com/etnz/settle/date"
	"github.com/etnz/settle/renderer"
	"github.com/google/subcommands"
)

type listCmd struct {
	state   string
	batch   string
	journal string
	partner string
	pending bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list accreditations" }
func (*listCmd) Usage() string {
	return `cst list [-state <state>] [-batch <batch>] [-journal <journal>] [-partner <partner>] [-pending]
cst list <accreditation>...

  Lists accreditations with their amounts and totals, or shows the details
  of the accreditations named.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.state, "state", "", "Only accreditations in this state")
	f.StringVar(&c.batch, "batch", "", "Only accreditations of this batch transfer")
	f.StringVar(&c.journal, "journal", "", "Only accreditations of this card journal")
	f.StringVar(&c.partner, "partner", "", "Only accreditations of this customer")
	f.BoolVar(&c.pending, "pending", false, "Only pending accreditations, by expected date")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	book := st.Book()

	if f.NArg() > 0 {
		for _, id := range f.Args() {
			a, err := book.Accreditation(id)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				return subcommands.ExitFailure
			}
			printMarkdown(renderer.AccreditationMarkdown(a))
		}
		return subcommands.ExitSuccess
	}

	accs := book.Accreditations()
	title := "Accreditations"
	if c.pending {
		accs, title = book.Pending(), "Pending Accreditations"
	}
	var state settle.AccreditationState
	if c.state != "" {
		if state, err = settle.ParseAccreditationState(c.state); err != nil {
			return usageError("%v", err)
		}
	}
	filtered := accs[:0]
	for _, a := range accs {
		switch {
		case c.state != "" && a.State() != state:
		case c.batch != "" && a.Batch != c.batch:
		case c.journal != "" && a.Journal != c.journal:
		case c.partner != "" && a.Partner != c.partner:
		default:
			filtered = append(filtered, a)
		}
	}
	printMarkdown(renderer.AccreditationsMarkdown(title, filtered))
	return subcommands.ExitSuccess
}

type balanceCmd struct{}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show account balances" }
func (*balanceCmd) Usage() string {
	return `cst balance [<account prefix>...]

  Shows the trial balance of the general ledger, or the balance of the
  accounts whose code starts with each prefix.
`
}

func (*balanceCmd) SetFlags(f *flag.FlagSet) {}

func (*balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	book := st.Book()
	gl := book.GeneralLedger()
	if f.NArg() > 0 {
		printMarkdown(renderer.BalanceMarkdown(gl, book.Currency(), f.Args()...))
		return subcommands.ExitSuccess
	}
	cur := book.Currency()
	printMarkdown(renderer.TrialBalanceMarkdown(date.Today(), cur, gl.TrialBalance(cur)))
	return subcommands.ExitSuccess
}

type dashboardCmd struct {
	date string
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "evaluate the dashboard indicators" }
func (*dashboardCmd) Usage() string {
	return `cst dashboard [-d <date>]

  Evaluates the dashboard cells of the settings and lists the indicators out
  of their safe zone.
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Evaluation date (default today)")
}

func (c *dashboardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	st, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	results, err := st.Book().Dashboard(on)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.DashboardMarkdown(on, results))
	return subcommands.ExitSuccess
}
