package txbuilder

import (
	"context"
	"errors"
	"testing"

	"github.com/asdine/storm/q"
	"github.com/google/uuid"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/persist"
	"github.com/threefoldtech/cloakwallet/scanner"
	"github.com/threefoldtech/cloakwallet/types"
	"github.com/threefoldtech/cloakwallet/walleterr"
)

func newTestStore(t *testing.T) *persist.StormStore {
	t.Helper()
	store, err := persist.OpenStormStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStormStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPersistFetchRollBack(t *testing.T) {
	store := newTestStore(t)
	sessionID := uuid.New()

	tx := types.Transaction{Ver: 1, Mix: NCols, Id: sessionID}
	wtx := types.WalletTx{Id: sessionID, WalletType: types.WalletTxSend}

	if err := Persist(store, "id_wallet", tx, wtx); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := Fetch(store, sessionID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Id != sessionID {
		t.Fatalf("fetched tx id %v, want %v", got.Id, sessionID)
	}

	if err := RollBackOne(store, sessionID); err != nil {
		t.Fatalf("RollBackOne: %v", err)
	}

	var txRows []transactionRow
	if err := store.Query(q.Eq("SessionID", sessionID.String())).Find(&txRows); err == nil && len(txRows) > 0 {
		t.Fatalf("RollBackOne left %d transaction rows behind", len(txRows))
	}
	var wtxRows []walletTxRow
	if err := store.Query(q.Eq("SessionID", sessionID.String())).Find(&wtxRows); err == nil && len(wtxRows) > 0 {
		t.Fatalf("RollBackOne left %d wallet-tx rows behind", len(wtxRows))
	}
}

type rejectingSubmitter struct{}

func (rejectingSubmitter) Submit(ctx context.Context, tx types.Transaction) (bool, error) {
	return false, errors.New("node unreachable")
}

func TestSendFailureRollsBackAndRecordsLastError(t *testing.T) {
	store := newTestStore(t)
	sessionID := uuid.New()

	tx := types.Transaction{Ver: 1, Id: sessionID}
	wtx := types.WalletTx{Id: sessionID}
	if err := Persist(store, "id_wallet", tx, wtx); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	session := types.Session{SessionId: sessionID}
	if err := Send(context.Background(), store, rejectingSubmitter{}, &session); err == nil {
		t.Fatal("expected Send to fail")
	}

	if session.LastError == nil || session.LastError.Success {
		t.Fatalf("LastError not recorded: %+v", session.LastError)
	}
	if session.LastError.Kind != string(walleterr.KindRpcError) {
		t.Fatalf("LastError kind = %q, want %q", session.LastError.Kind, walleterr.KindRpcError)
	}

	if _, err := Fetch(store, sessionID); err == nil {
		t.Fatal("failed send left the persisted transaction behind")
	}
}

func TestCalculateChangeInsufficientFunds(t *testing.T) {
	scan := crypto.RandomScalar()
	scanPub := crypto.BasePointMul(&scan)

	blind := crypto.RandomScalar()
	n, err := crypto.BoxEncrypt(scanPub, scanner.EncodeMessage(1_000_000_000, blind, ""))
	if err != nil {
		t.Fatalf("BoxEncrypt: %v", err)
	}
	received := types.WalletTx{
		WalletType: types.WalletTxReceive,
		Vout:       []types.Vout{{N: n}},
	}

	_, err = CalculateChange(scan, []types.WalletTx{received}, types.SessionTypeCoin, 2_000_000_000, "", "sender", "recipient")
	if err == nil {
		t.Fatal("expected an insufficient-funds error")
	}
	var werr *walleterr.Error
	if !errors.As(err, &werr) || werr.Kind != walleterr.KindInsufficientFunds {
		t.Fatalf("got %v, want kind %q", err, walleterr.KindInsufficientFunds)
	}
}
