// Package cmd implements the cst command line application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/etnz/settle"
	"github.com/etnz/settle/date"
	"github.com/etnz/settle/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

const (
	EnvLedgerFile   = "CST_LEDGER_FILE"
	EnvSettingsFile = "CST_SETTINGS_FILE"
	EnvCurrency     = "CST_CURRENCY"
	EnvVerbose      = "CST_VERBOSE"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var ledgerFile = flag.String("ledger-file", envOr(EnvLedgerFile, "settle.jsonl"), "Path to the ledger file (JSONL format)")
var settingsFile = flag.String("settings-file", envOr(EnvSettingsFile, "settle.yaml"), "Path to the settings file (YAML format)")
var defaultCurrency = flag.String("currency", envOr(EnvCurrency, "ARS"), "Currency of the amounts given on the command line")

// Verbose turns on logging.
var Verbose = flag.Bool("v", envBool(EnvVerbose), "Verbose logging")

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

// LoadSettings reads the application settings file.
func LoadSettings() (*settle.Settings, error) {
	return settle.LoadSettings(*settingsFile)
}

// OpenStore opens the application ledger with its settings.
func OpenStore() (*settle.Store, error) {
	s, err := LoadSettings()
	if err != nil {
		return nil, err
	}
	return settle.Open(s, *ledgerFile)
}

// execute records commands in the application ledger and prints them.
func execute(ctx context.Context, cmds ...settle.Command) subcommands.ExitStatus {
	st, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	if err := st.Exec(ctx, cmds...); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, settle.ErrConflict) {
			fmt.Fprintln(os.Stderr, "The ledger was changed by another process, check the books and try again.")
		}
		return subcommands.ExitFailure
	}
	for _, cmd := range cmds {
		fmt.Println(renderer.Command(cmd))
	}
	return subcommands.ExitSuccess
}

// parseDate parses a command line date, today when empty.
func parseDate(s string) (date.Date, error) {
	if s == "" {
		return date.Today(), nil
	}
	return date.Parse(s)
}

// parseMoney parses a command line amount in the default currency.
func parseMoney(s string) (settle.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return settle.Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return settle.M(d, *defaultCurrency), nil
}

// parseDecimal parses an optional decimal, zero when empty.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return d, nil
}

// usageError prints a usage error.
func usageError(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}
