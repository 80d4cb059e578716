package settle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"
)

// Store keeps a book in sync with its ledger file.
//
// Exec is the only way to change the book: commands are applied all or
// nothing, under a mutex, and appended to the file. The file size is checked
// before writing so that two processes appending to the same ledger do not
// silently lose each other's commands.
type Store struct {
	mu       sync.Mutex
	path     string
	settings *Settings
	ledger   *Ledger
	book     *Book
	size     int64 // ledger file size when last read or written
}

// Open reads the ledger file and replays it. A missing file is an empty
// ledger.
func Open(s *Settings, path string) (*Store, error) {
	st := &Store{path: path, settings: s}
	if err := st.load(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *Store) load() error {
	f, err := os.Open(st.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("ledger file %q does not exist, starting an empty book", st.path)
		st.ledger, st.size = NewLedger(), 0
		st.book, err = NewBook(st.settings)
		return err
	}
	if err != nil {
		return fmt.Errorf("error opening ledger file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	ledger, err := DecodeLedger(f)
	if err != nil {
		return fmt.Errorf("error decoding ledger file %q: %w", st.path, err)
	}
	book, err := Replay(st.settings, ledger)
	if err != nil {
		return fmt.Errorf("error replaying ledger file %q: %w", st.path, err)
	}
	st.ledger, st.book, st.size = ledger, book, info.Size()
	return nil
}

// Book returns the current book. It must only be read, and not kept across
// calls to Exec, see View.
func (st *Store) Book() *Book {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.book
}

// View calls fn with the book while no command can be executed.
func (st *Store) View(fn func(*Book) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return fn(st.book)
}

// Ledger returns the recorded commands.
func (st *Store) Ledger() *Ledger {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.ledger
}

// Exec applies the commands and records them. If any command fails, none is
// recorded and the book is left as it was.
//
// When the ledger file was changed by someone else since it was read, Exec
// reloads it and fails with ErrConflict: the caller may check its commands
// against the new book and try again.
func (st *Store) Exec(ctx context.Context, cmds ...Command) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := st.checkSize(); err != nil {
		if lerr := st.load(); lerr != nil {
			return errors.Join(err, lerr)
		}
		return err
	}

	for _, cmd := range cmds {
		// replaying an undated command would depend on the day.
		if cmd.When().IsZero() {
			return fmt.Errorf("%s command has no date: %w", cmd.What(), ErrInvalid)
		}
	}
	if err := st.book.Apply(cmds...); err != nil {
		st.rollback()
		return err
	}

	var buf bytes.Buffer
	for _, cmd := range cmds {
		if err := EncodeCommand(&buf, cmd); err != nil {
			st.rollback()
			return err
		}
	}
	f, err := os.OpenFile(st.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		st.rollback()
		return fmt.Errorf("error opening ledger file %q: %w", st.path, err)
	}
	n, werr := f.Write(buf.Bytes())
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		st.rollback()
		return fmt.Errorf("error writing to ledger file %q: %w", st.path, err)
	}
	st.size += int64(n)
	st.ledger.Append(cmds...)
	return nil
}

// checkSize fails with ErrConflict when the ledger file size is not the one
// last seen.
func (st *Store) checkSize() error {
	info, err := os.Stat(st.path)
	var size int64
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return err
	default:
		size = info.Size()
	}
	if size != st.size {
		return fmt.Errorf("ledger file %q changed on disk (%d bytes, expected %d): %w", st.path, size, st.size, ErrConflict)
	}
	return nil
}

// rollback rebuilds the book from the recorded commands.
func (st *Store) rollback() {
	book, err := Replay(st.settings, st.ledger)
	if err != nil {
		// the ledger replayed fine when it was loaded.
		panic(fmt.Sprintf("replaying a valid ledger failed: %v", err))
	}
	st.book = book
}
