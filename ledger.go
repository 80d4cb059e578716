package settle

import (
	"fmt"
	"iter"
	"slices"
)

// Ledger is the list of commands recorded so far.
//
// Commands are kept in the order they were recorded, which is the order they
// are replayed in: sequence numbers (ACR/0001, LIQ/2025/0001...) depend on
// it.
type Ledger struct {
	commands []Command
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{commands: make([]Command, 0)}
}

// Append adds commands at the end of the ledger.
func (l *Ledger) Append(cmds ...Command) {
	l.commands = append(l.commands, cmds...)
}

// Len returns the number of commands.
func (l *Ledger) Len() int { return len(l.commands) }

// Commands iterates over the commands in order.
func (l *Ledger) Commands() iter.Seq2[int, Command] { return slices.All(l.commands) }

// Replay applies every command of the ledger to a new book.
func Replay(s *Settings, l *Ledger) (*Book, error) {
	b, err := NewBook(s)
	if err != nil {
		return nil, err
	}
	for i, cmd := range l.commands {
		if err := b.Apply(cmd); err != nil {
			return nil, fmt.Errorf("ledger command #%d: %w", i+1, err)
		}
	}
	return b, nil
}
