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

type batchCmd struct {
	date      string
	fee       string
	tax       string
	ifVersion int
}

func (*batchCmd) Name() string     { return "batch" }
func (*batchCmd) Synopsis() string { return "create and manage batch transfers" }
func (*batchCmd) Usage() string {
	return `cst batch [-d <date>] [-if-version <n>] <action> [<batch>] [<accreditation>...]

  Groups credited accreditations of a card journal into a batch transfer to
  the bank journal the processor pays into.

  Actions:
    create <accreditation>...        create a draft batch (-fee, -tax)
    add [<batch>] <accreditation>... add accreditations, to a new batch when none is named
    remove <batch> <accreditation>...send accreditations back to pending
    confirm <batch>                  lock the batch
    transfer <batch>                 create and post the transfer payments
    cancel <batch>                   cancel the batch and its payments
    draft <batch>                    back to draft, payments untouched
    back-to-draft <batch>            back to draft with the payments
    reconcile <batch>                reconcile the transfer lines
    unreconcile <batch>              undo the reconciliation
    delete <batch>                   delete a draft or cancelled batch
`
}

func (c *batchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date (default today)")
	f.StringVar(&c.fee, "fee", "", "Global fee withheld from the transfer, on create")
	f.StringVar(&c.tax, "tax", "", "Global tax withheld from the transfer, on create")
	f.IntVar(&c.ifVersion, "if-version", 0, "Fail unless the batch is at this version")
}

func (c *batchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usageError("batch takes an action")
	}
	on, err := parseDate(c.date)
	if err != nil {
		return usageError("%v", err)
	}
	action := settle.Action(f.Arg(0))
	args := f.Args()[1:]

	var cmd settle.UpdateBatch
	switch action {
	case settle.ActCreate:
		if len(args) == 0 {
			return usageError("create takes at least one accreditation")
		}
		cmd = settle.NewUpdateBatch(on, "", action, args...)
		if cmd.Fee, err = parseDecimal(c.fee); err != nil {
			return usageError("%v", err)
		}
		if cmd.Tax, err = parseDecimal(c.tax); err != nil {
			return usageError("%v", err)
		}
	case settle.ActAdd:
		if len(args) == 0 {
			return usageError("add takes at least one accreditation")
		}
		// A leading argument that names a batch is the target batch.
		name := ""
		if st, err := OpenStore(); err == nil {
			if _, err := st.Book().Batch(args[0]); err == nil {
				name, args = args[0], args[1:]
			}
		}
		cmd = settle.NewUpdateBatch(on, name, action, args...)
	case settle.ActRemove:
		if len(args) < 2 {
			return usageError("remove takes a batch and at least one accreditation")
		}
		cmd = settle.NewUpdateBatch(on, args[0], action, args[1:]...)
	case settle.ActConfirm, settle.ActTransfer, settle.ActCancel, settle.ActDraft, settle.ActBackToDraft,
		settle.ActReconcile, settle.ActUnreconcile, settle.ActDelete:
		if len(args) != 1 {
			return usageError("%s takes one batch", action)
		}
		cmd = settle.NewUpdateBatch(on, args[0], action)
	default:
		return usageError("unknown batch action %q", action)
	}
	cmd.IfVersion = c.ifVersion

	if status := execute(ctx, cmd); status != subcommands.ExitSuccess {
		return status
	}
	if action == settle.ActCreate || (action == settle.ActAdd && cmd.Batch == "") {
		st, err := OpenStore()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitFailure
		}
		if batches := st.Book().Batches(); len(batches) > 0 {
			fmt.Println(batches[len(batches)-1].Name)
		}
	}
	return subcommands.ExitSuccess
}

type showBatchCmd struct{}

func (*showBatchCmd) Name() string     { return "show-batch" }
func (*showBatchCmd) Synopsis() string { return "show a batch transfer" }
func (*showBatchCmd) Usage() string {
	return `cst show-batch [<batch>]

  Shows a batch transfer with its payments and accreditations, or lists all
  the batches when none is named.
`
}

func (*showBatchCmd) SetFlags(f *flag.FlagSet) {}

func (*showBatchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	book := st.Book()
	if f.NArg() == 0 {
		for _, t := range book.Batches() {
			fmt.Printf("%s\t%s\t%s\t%s\n", t.Name, t.State(), t.Date, t.FinalAmount())
		}
		return subcommands.ExitSuccess
	}
	for _, name := range f.Args() {
		t, err := book.Batch(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.BatchMarkdown(book, t))
	}
	return subcommands.ExitSuccess
}
