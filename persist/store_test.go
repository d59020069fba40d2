package persist

import (
	"testing"

	"github.com/asdine/storm/q"
)

type testRow struct {
	ID   string `storm:"id"`
	Name string
}

func TestStormStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStormStore(dir)
	if err != nil {
		t.Fatalf("OpenStormStore: %v", err)
	}
	defer store.Close()

	row := &testRow{ID: "one", Name: "alice"}
	if err := store.Insert(row); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var got testRow
	if err := store.Query(q.Eq("ID", "one")).First(&got); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got.Name != "alice" {
		t.Fatalf("got Name %q, want alice", got.Name)
	}

	row.Name = "bob"
	if err := store.Update(row); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.Delete(row); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
