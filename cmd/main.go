package cmd

import (
	"github.com/google/subcommands"
)

// group is a set of subcommands shown together in the help.
type group struct {
	name     string
	commands []subcommands.Command
}

func groups() []group {
	return []group{
		{"accreditations", []subcommands.Command{
			&collectCmd{}, &deductCmd{}, &deductionCmd{}, &payCmd{}, &reverseCmd{}, &resetCmd{},
		}},
		{"batches", []subcommands.Command{
			&batchCmd{}, &transferCmd{}, &paymentStateCmd{},
		}},
		{"bank", []subcommands.Command{
			&statementCmd{}, &invoiceFeesCmd{}, &importCmd{}, &matchFeedCmd{}, &assignCmd{},
		}},
		{"reports", []subcommands.Command{
			&listCmd{}, &showBatchCmd{}, &balanceCmd{}, &dashboardCmd{}, &publishCmd{},
		}},
		{"plans", []subcommands.Command{
			&surchargeCmd{}, &estimateCmd{},
		}},
		{"misc", []subcommands.Command{
			&formatLedgerCmd{}, &topicCmd{}, &AssistCmd{},
		}},
	}
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, g := range groups() {
		for _, cmd := range g.commands {
			c.Register(cmd, g.name)
		}
	}
}

// IsCommand reports whether name is a registered subcommand.
func IsCommand(name string) bool {
	for _, g := range groups() {
		for _, cmd := range g.commands {
			if cmd.Name() == name {
				return true
			}
		}
	}
	return false
}
