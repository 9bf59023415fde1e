package ledger

import (
	"testing"
)

func TestTableName(t *testing.T) {
	if got := TableName(42); got != "transaction_42" {
		t.Fatalf("TableName(42) = %q, want transaction_42", got)
	}
}

func TestEnsureTableIdempotent(t *testing.T) {
	db := testDB(t)
	reg := NewRegistry(db)

	if reg.Has(7) {
		t.Fatal("registry should start empty")
	}

	name, err := reg.EnsureTable(7)
	if err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if name != "transaction_7" {
		t.Fatalf("EnsureTable returned %q, want transaction_7", name)
	}
	if !reg.Has(7) {
		t.Fatal("registry should know the table after EnsureTable")
	}

	// Second call must be a no-op, not an error.
	if _, err := reg.EnsureTable(7); err != nil {
		t.Fatalf("second EnsureTable: %v", err)
	}
}

func TestLoadExistingDiscoversTables(t *testing.T) {
	db := testDB(t)

	first := NewRegistry(db)
	if _, err := first.EnsureTable(3); err != nil {
		t.Fatalf("EnsureTable(3): %v", err)
	}
	if _, err := first.EnsureTable(9); err != nil {
		t.Fatalf("EnsureTable(9): %v", err)
	}

	// A stray table whose suffix is not a merchant id must be skipped,
	// not break discovery.
	if err := db.Exec(`CREATE TABLE transaction_audit (id INTEGER PRIMARY KEY)`).Error; err != nil {
		t.Fatalf("create stray table: %v", err)
	}

	second := NewRegistry(db)
	loaded, err := second.LoadExisting()
	if err != nil {
		t.Fatalf("LoadExisting: %v", err)
	}
	if loaded != 2 {
		t.Fatalf("loaded %d tables, want 2", loaded)
	}
	if !second.Has(3) || !second.Has(9) {
		t.Fatal("discovered registry should know both merchant tables")
	}
	if second.Has(0) {
		t.Fatal("registry should not invent merchant ids")
	}
}
