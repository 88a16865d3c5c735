package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/b0ase/path402/apps/poeminter/internal/ledger"
)

var drivers = []string{DriverCGO, DriverPure}

func setupTestDB(t *testing.T, driver string) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(driver, path)
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenClose(t *testing.T) {
	for _, drv := range drivers {
		t.Run(drv, func(t *testing.T) {
			d := setupTestDB(t, drv)
			if d.SQL() == nil {
				t.Fatal("SQL() returned nil after Open")
			}
			if d.RunID() == "" {
				t.Error("empty run id")
			}
			if d.Driver() != drv {
				t.Errorf("driver = %s, want %s", d.Driver(), drv)
			}
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("postgres", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestGetNodeID(t *testing.T) {
	d := setupTestDB(t, DriverCGO)

	id, err := d.GetNodeID()
	if err != nil {
		t.Fatalf("GetNodeID: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("node_id length = %d, want 32 (hex of 16 random bytes)", len(id))
	}
}

func TestConfigGetSet(t *testing.T) {
	d := setupTestDB(t, DriverPure)

	if err := d.SetConfig("test_key", "test_value"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	val, err := d.GetConfig("test_key")
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if val != "test_value" {
		t.Errorf("GetConfig = %q, want %q", val, "test_value")
	}

	// Overwrite
	d.SetConfig("test_key", "new_value")
	val, _ = d.GetConfig("test_key")
	if val != "new_value" {
		t.Errorf("after overwrite: %q, want %q", val, "new_value")
	}
}

func TestLedgerStore_RoundTripInOrder(t *testing.T) {
	for _, drv := range drivers {
		t.Run(drv, func(t *testing.T) {
			ctx := context.Background()
			store := NewLedgerStore(setupTestDB(t, drv))

			mint := ledger.NewEntry(ledger.KindMint, decimal.RequireFromString("0.008"), "POE", "minted 0.008")
			burn := ledger.NewEntry(ledger.KindBurn, decimal.RequireFromString("0.0068"), "BTC", "settled")
			for _, e := range []ledger.Entry{mint, burn, mint} {
				if err := store.SaveEntry(ctx, e); err != nil {
					t.Fatalf("SaveEntry: %v", err)
				}
			}

			all, err := store.GetEntries(ctx)
			if err != nil {
				t.Fatalf("GetEntries: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("GetEntries count = %d, want 3 (duplicates allowed)", len(all))
			}
			if all[1].ID != burn.ID {
				t.Errorf("insertion order lost: %s", all[1].ID)
			}
			if !all[0].Amount.Equal(mint.Amount) {
				t.Errorf("amount = %s, want %s", all[0].Amount, mint.Amount)
			}
			if !all[0].Timestamp.Equal(mint.Timestamp) {
				t.Errorf("timestamp = %v, want %v", all[0].Timestamp, mint.Timestamp)
			}

			burns, err := store.GetEntriesByKind(ctx, ledger.KindBurn)
			if err != nil {
				t.Fatalf("GetEntriesByKind: %v", err)
			}
			if len(burns) != 1 || burns[0].CounterAsset != "BTC" {
				t.Errorf("burns = %+v", burns)
			}
		})
	}
}

func TestLedgerStore_ScopedToRun(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	first, err := Open(DriverCGO, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := NewLedgerStore(first).SaveEntry(ctx, ledger.NewEntry(ledger.KindMint, decimal.NewFromInt(1), "POE", "")); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}
	first.Close()

	second, err := Open(DriverCGO, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	entries, err := NewLedgerStore(second).GetEntries(ctx)
	if err != nil {
		t.Fatalf("GetEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("new run sees %d entries from a previous run", len(entries))
	}
}

func TestLedgerStore_BehindLedger(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(NewLedgerStore(setupTestDB(t, DriverPure)))

	e1, _ := l.Append(ctx, ledger.NewEntry(ledger.KindMint, decimal.NewFromInt(1), "POE", "first"))
	e2, _ := l.Append(ctx, ledger.NewEntry(ledger.KindBridge, decimal.NewFromInt(1), "ADA", "second"))

	got, err := l.Render(ctx)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(got) != 2 || got[0].ID != e2.ID || got[1].ID != e1.ID {
		t.Errorf("render order wrong: %+v", got)
	}
}
