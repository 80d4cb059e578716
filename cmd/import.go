package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/settle"
	"github.com/etnz/settle/afip"
	"github.com/etnz/settle/partner"
	"github.com/etnz/settle/renderer"
	"github.com/google/subcommands"
)

type importCmd struct {
	date      string
	operation string
	typ       string
	journal   string
	product   string
	separator string
	latin1    bool
	dryRun    bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import an AFIP invoice listing" }
func (*importCmd) Usage() string {
	return `cst import -operation <sale|purchase> -journal <journal> [-type <initial_balances|new_documents>] [-product <product>] [-n] <file.csv>

  Imports the CSV listing exported from AFIP "Mis Comprobantes". Rows are
  validated first, then recorded as invoices. Partners unknown by CUIT are
  created. With -n, only the analysis is shown.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date of the rows without date (default today)")
	f.StringVar(&c.operation, "operation", string(afip.Sale), "Side of the listing: sale or purchase")
	f.StringVar(&c.typ, "type", string(afip.NewDocuments), "Import type: initial_balances or new_documents")
	f.StringVar(&c.journal, "journal", "", "Invoice journal")
	f.StringVar(&c.product, "product", "", "Product label of new documents")
	f.StringVar(&c.separator, "separator", ";", "Field separator")
	f.BoolVar(&c.latin1, "latin1", false, "The file is Windows-1252 encoded")
	f.BoolVar(&c.dryRun, "n", false, "Analyze only")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError("import takes one file")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	sep := []rune(c.separator)
	if len(sep) != 1 {
		return usageError("invalid separator %q", c.separator)
	}
	imp, err := afip.New(filepath.Base(f.Arg(0)), afip.Operation(c.operation), afip.Type(c.typ), c.journal, c.product)
	if err != nil {
		return usageError("%v", err)
	}
	imp.Separator = sep[0]
	imp.Latin1 = c.latin1
	imp.Date = on

	st, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	book := st.Book()
	imp.Currency = book.Currency()

	file, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer file.Close()
	if err := imp.Analyze(file, book); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if c.dryRun {
		printMarkdown(renderer.ImportMarkdown(imp, nil))
		return subcommands.ExitSuccess
	}
	docs, err := imp.Process(book)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err := st.Exec(ctx, settle.InvoiceCommands(c.journal, docs)...); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.ImportMarkdown(imp, docs))
	return subcommands.ExitSuccess
}

type matchFeedCmd struct {
	date    string
	journal string
	file    string
	pay     bool
	timeout time.Duration
}

func (*matchFeedCmd) Name() string     { return "match-feed" }
func (*matchFeedCmd) Synopsis() string { return "match a processor settlement report with accreditations" }
func (*matchFeedCmd) Usage() string {
	return `cst match-feed [-journal <journal>] [-file <report.json>] [-pay] [-d <date>]

  Reads the settlement report of a card journal, from a file or from the
  feed url of the journal, and finds the accreditations of each liquidated
  coupon by card batch and coupon number. With -pay, the pending
  accreditations found are paid.
`
}

func (c *matchFeedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Payment date (default today)")
	f.StringVar(&c.journal, "journal", "CARD", "Card journal")
	f.StringVar(&c.file, "file", "", "Settlement report file (default fetched from the feed url)")
	f.BoolVar(&c.pay, "pay", false, "Pay the pending accreditations found")
	f.DurationVar(&c.timeout, "timeout", 30*time.Second, "Timeout of the feed download")
}

func (c *matchFeedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	st, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	book := st.Book()
	j, err := book.Settings().Journal(c.journal)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if j.Feed == nil {
		fmt.Fprintf(os.Stderr, "Error: journal %s has no feed configured\n", j.Code)
		return subcommands.ExitFailure
	}

	var items []settle.FeedItem
	if c.file != "" {
		r, err := os.Open(c.file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitFailure
		}
		defer r.Close()
		items, err = settle.ReadFeed(r, *j.Feed)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitFailure
		}
	} else {
		client := &http.Client{Timeout: c.timeout}
		if items, err = settle.FetchFeed(ctx, client, *j.Feed); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitFailure
		}
	}

	matched, missed := book.MatchFeed(items)
	for _, m := range matched {
		for _, a := range m.Accreditations {
			fmt.Printf("%s/%s\t%s\t%s\t%s\n", m.Item.Batch, m.Item.Coupon, a.ID, a.State(), a.NetAmount())
		}
	}
	for _, it := range missed {
		fmt.Printf("%s/%s\tnot found\n", it.Batch, it.Coupon)
	}
	if !c.pay {
		return subcommands.ExitSuccess
	}
	pay, ok := settle.PayFeed(on, matched)
	if !ok {
		fmt.Println("No pending accreditation to pay.")
		return subcommands.ExitSuccess
	}
	if err := st.Exec(ctx, pay); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	fmt.Println(renderer.Command(pay))
	return subcommands.ExitSuccess
}

type assignCmd struct {
	date           string
	mode           string
	cleanConflicts bool
}

func (*assignCmd) Name() string     { return "assign" }
func (*assignCmd) Synopsis() string { return "assign partners to a receivable or payable account" }
func (*assignCmd) Usage() string {
	return `cst assign [-mode <add|replace|remove>] [-clean-conflicts] [<account> <partner>...]

  Changes the partners assigned to a receivable or payable account. A
  partner belongs to one payable account at most. -clean-conflicts first
  fixes partners assigned to several payable accounts.
`
}

func (c *assignCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date (default today)")
	f.StringVar(&c.mode, "mode", string(partner.Add), "Assignment mode: add, replace or remove")
	f.BoolVar(&c.cleanConflicts, "clean-conflicts", false, "Fix partners assigned to several payable accounts")
}

func (c *assignCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 && !c.cleanConflicts {
		return usageError("assign takes an account")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	mode, err := partner.ParseMode(c.mode)
	if err != nil {
		return usageError("%v", err)
	}
	var cmd settle.Assign
	if f.NArg() == 0 {
		cmd = settle.NewAssign(on, "", "")
	} else {
		cmd = settle.NewAssign(on, f.Arg(0), mode, f.Args()[1:]...)
	}
	cmd.CleanConflicts = c.cleanConflicts
	return execute(ctx, cmd)
}
