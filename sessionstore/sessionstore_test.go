package sessionstore

import (
	"testing"

	"github.com/google/uuid"

	"github.com/threefoldtech/cloakwallet/types"
)

func TestAddOrUpdateInsertsThenMerges(t *testing.T) {
	s := New()
	id := uuid.New()

	first := types.Session{SessionId: id, WalletTransaction: types.WalletTx{Balance: 100}}
	got, err := s.AddOrUpdate(id, first)
	if err != nil {
		t.Fatalf("AddOrUpdate insert: %v", err)
	}
	if got.WalletTransaction.Balance != 100 {
		t.Fatalf("got balance %d, want 100", got.WalletTransaction.Balance)
	}

	patch := types.Session{SessionId: id, WalletTransaction: types.WalletTx{Balance: 50, Change: 10, Memo: "hi"}}
	merged, err := s.AddOrUpdate(id, patch)
	if err != nil {
		t.Fatalf("AddOrUpdate merge: %v", err)
	}
	if merged.WalletTransaction.Balance != 50 || merged.WalletTransaction.Memo != "hi" {
		t.Fatalf("merge did not apply patch fields: %+v", merged.WalletTransaction)
	}

	snap, ok := s.Get(id)
	if !ok {
		t.Fatal("Get: session not found")
	}
	if snap.WalletTransaction.Change != 10 {
		t.Fatalf("got change %d, want 10", snap.WalletTransaction.Change)
	}
}
