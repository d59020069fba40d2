package txbuilder

import (
	"errors"

	"github.com/asdine/storm"
	"github.com/asdine/storm/q"
	"github.com/google/uuid"

	"github.com/threefoldtech/cloakwallet/persist"
	"github.com/threefoldtech/cloakwallet/types"
	"github.com/threefoldtech/cloakwallet/walleterr"
)

// transactionRow and walletTxRow persist Transaction/WalletTx with an
// explicit SessionID foreign key and a store-level one-row-per-session
// invariant, rather than relying on WalletTx.Id doubling as the session id.
// WalletID additionally indexes every row by the owning wallet so
// BalanceEngine/WalletFacade can enumerate a wallet's stored transactions
// without walking every session ever opened against the store.
type transactionRow struct {
	RowID     string `storm:"id"`
	SessionID string `storm:"index"`
	WalletID  string `storm:"index"`
	Payload   types.Transaction
}

type walletTxRow struct {
	RowID     string `storm:"id"`
	SessionID string `storm:"index"`
	WalletID  string `storm:"index"`
	Payload   types.WalletTx
}

// Persist writes the finished Transaction and its wallet-side WalletTx
// record, both keyed by tx.Id (the session id).
func Persist(store persist.KeyValueStore, walletID string, tx types.Transaction, wtx types.WalletTx) error {
	id := tx.Id.String()
	if err := store.Insert(&transactionRow{RowID: id, SessionID: id, WalletID: walletID, Payload: tx}); err != nil {
		return walleterr.New(walleterr.KindStoreError, err)
	}
	if err := store.Insert(&walletTxRow{RowID: id, SessionID: id, WalletID: walletID, Payload: wtx}); err != nil {
		return walleterr.New(walleterr.KindStoreError, err)
	}
	return nil
}

// PersistReceive writes a Receive-direction WalletTx, keyed by its own
// session id the way a Send draft is, so OutputScanner's duplicate-receipt
// check (which walks stored WalletTx rows) sees it on the next scan.
func PersistReceive(store persist.KeyValueStore, walletID string, wtx types.WalletTx) error {
	id := wtx.Id.String()
	if err := store.Insert(&walletTxRow{RowID: id, SessionID: id, WalletID: walletID, Payload: wtx}); err != nil {
		return walleterr.New(walleterr.KindStoreError, err)
	}
	return nil
}

// Fetch loads the persisted Transaction for sessionID, for Send to submit.
func Fetch(store persist.KeyValueStore, sessionID uuid.UUID) (types.Transaction, error) {
	var row transactionRow
	if err := store.Query(q.Eq("SessionID", sessionID.String())).First(&row); err != nil {
		return types.Transaction{}, walleterr.New(walleterr.KindStoreError, err)
	}
	return row.Payload, nil
}

// ListWalletTxs returns every WalletTx stored for walletID, the input
// BalanceEngine and CalculateChange both enumerate.
func ListWalletTxs(store persist.KeyValueStore, walletID string) ([]types.WalletTx, error) {
	var rows []walletTxRow
	if err := store.Query(q.Eq("WalletID", walletID)).Find(&rows); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return nil, nil
		}
		return nil, walleterr.New(walleterr.KindStoreError, err)
	}
	out := make([]types.WalletTx, len(rows))
	for i, r := range rows {
		out[i] = r.Payload
	}
	return out, nil
}

// RollBackOne deletes the Transaction row and the WalletTx row keyed by
// sessionID, so a failed send leaves no trace of the draft behind.
func RollBackOne(store persist.KeyValueStore, sessionID uuid.UUID) error {
	id := sessionID.String()
	if err := store.Delete(&transactionRow{RowID: id}); err != nil {
		return walleterr.New(walleterr.KindStoreError, err)
	}
	if err := store.Delete(&walletTxRow{RowID: id}); err != nil {
		return walleterr.New(walleterr.KindStoreError, err)
	}
	return nil
}
