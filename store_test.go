package settle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/settle/date"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settle.jsonl")
	st, err := Open(testSettings(), path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return st, path
}

func TestStore_Exec(t *testing.T) {
	st, path := openStore(t)
	ctx := context.Background()
	if err := st.Exec(ctx,
		NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(1000), "047", "0001"),
		NewPay(monday, "ACR/0001"),
	); err != nil {
		t.Fatalf("Exec() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("ledger file has %d lines, want 2", n)
	}
	if st.Ledger().Len() != 2 {
		t.Errorf("Ledger().Len() = %d, want 2", st.Ledger().Len())
	}

	// a new store replays the file.
	again, err := Open(testSettings(), path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	err = again.View(func(b *Book) error {
		a, err := b.Accreditation("ACR/0001")
		if err != nil {
			return err
		}
		if a.State() != AccreditationCredited {
			t.Errorf("replayed accreditation is %s, want credited", a.State())
		}
		return nil
	})
	if err != nil {
		t.Error(err)
	}
}

func TestStore_Rollback(t *testing.T) {
	st, path := openStore(t)
	ctx := context.Background()
	if err := st.Exec(ctx, NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(1000), "047", "0001")); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	// the second command fails, the first one is undone.
	err := st.Exec(ctx,
		NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(500), "047", "0002"),
		NewPay(monday, "ACR/0009"),
	)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Exec() = %v, want ErrNotFound", err)
	}
	if n := len(st.Book().Accreditations()); n != 1 {
		t.Errorf("book has %d accreditations, want 1", n)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Errorf("ledger file changed on a failed Exec:\n%s", after)
	}
	if err := st.Exec(ctx, NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(500), "047", "0002")); err != nil {
		t.Fatal(err)
	}
	if a := st.Book().Accreditations()[1]; a.ID != "ACR/0002" {
		t.Errorf("ID = %s, want ACR/0002", a.ID)
	}
}

func TestStore_Conflict(t *testing.T) {
	st, path := openStore(t)
	ctx := context.Background()
	if err := st.Exec(ctx, NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(1000), "047", "0001")); err != nil {
		t.Fatal(err)
	}
	// another process appends to the same file.
	other, err := Open(testSettings(), path)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Exec(ctx, NewCollect(monday, "CARD", "1 cuota", "Cliente", ARS(500), "047", "0002")); err != nil {
		t.Fatal(err)
	}

	err = st.Exec(ctx, NewPay(monday, "ACR/0001"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Exec() = %v, want ErrConflict", err)
	}
	// the store reloaded the file, a retry succeeds.
	if n := len(st.Book().Accreditations()); n != 2 {
		t.Errorf("reloaded book has %d accreditations, want 2", n)
	}
	if err := st.Exec(ctx, NewPay(monday, "ACR/0001")); err != nil {
		t.Errorf("retry failed: %v", err)
	}
}

func TestStore_Undated(t *testing.T) {
	st, _ := openStore(t)
	err := st.Exec(context.Background(), NewCollect(date.Date{}, "CARD", "1 cuota", "Cliente", ARS(1000), "", ""))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Exec() = %v, want ErrInvalid", err)
	}
}

func TestStore_Canceled(t *testing.T) {
	st, _ := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := st.Exec(ctx, NewPay(monday, "ACR/0001")); !errors.Is(err, context.Canceled) {
		t.Errorf("Exec() = %v, want context.Canceled", err)
	}
}
