package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/settle"
	"github.com/google/subcommands"
)

type formatLedgerCmd struct {
	output string
}

func (*formatLedgerCmd) Name() string     { return "format-ledger" }
func (*formatLedgerCmd) Synopsis() string { return "formats the ledger file into a canonical form" }
func (*formatLedgerCmd) Usage() string {
	return `cst format-ledger [-o <file>]

  Formats the ledger file into a canonical form: fields in a fixed order,
  empty fields omitted. The ledger is rewritten in place unless -o names
  another file, or "-" for the standard output.
`
}

func (c *formatLedgerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, \"-\" for stdout (default the ledger file)")
}

func (c *formatLedgerCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := decodeLedgerFile(*ledgerFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.output == "-" {
		if err := settle.EncodeLedger(os.Stdout, ledger); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	output := c.output
	if output == "" {
		output = *ledgerFile
	}
	if err := encodeLedgerFile(output, ledger); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Ledger file '%s' has been formatted.\n", output)
	return subcommands.ExitSuccess
}

func decodeLedgerFile(name string) (*settle.Ledger, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open ledger file %q: %w", name, err)
	}
	defer f.Close()
	return settle.DecodeLedger(f)
}

func encodeLedgerFile(name string, ledger *settle.Ledger) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error opening ledger file %q for writing: %w", name, err)
	}
	if err := settle.EncodeLedger(f, ledger); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
