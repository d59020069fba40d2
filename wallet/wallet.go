// Package wallet composes the lower layers (keyledger, sessionstore,
// balance, scanner, ring, txbuilder, rpc) into the wallet's single public
// surface: one Facade owning the persistence handle, the key ledger, the
// session map and the node collaborator, with a single RWMutex guarding
// the unlocked-key state.
package wallet

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/threefoldtech/cloakwallet/balance"
	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/keyledger"
	"github.com/threefoldtech/cloakwallet/persist"
	"github.com/threefoldtech/cloakwallet/ring"
	"github.com/threefoldtech/cloakwallet/rpc"
	"github.com/threefoldtech/cloakwallet/scanner"
	"github.com/threefoldtech/cloakwallet/sessionstore"
	"github.com/threefoldtech/cloakwallet/txbuilder"
	"github.com/threefoldtech/cloakwallet/types"
	"github.com/threefoldtech/cloakwallet/walleterr"
)

var (
	errSessionNotFound = errors.New("wallet: no unlocked session with that id")
	errNoOutputsFound  = errors.New("wallet: no outputs in that payment addressed to this wallet")
)

// unlockedKeys is the in-memory material a session carries for its
// lifetime: the wallet id it was opened against, plus the spend/scan
// scalars Unlock derived. Lock wipes both scalars before the entry is
// dropped.
type unlockedKeys struct {
	walletID string
	spend    crypto.Scalar
	scan     crypto.Scalar
}

// Facade is the WalletFacade: the single entry point a CLI or RPC server
// drives every public operation through.
type Facade struct {
	mu       sync.RWMutex
	store    persist.KeyValueStore
	ledger   *keyledger.Ledger
	sessions *sessionstore.Store
	decoys   ring.DecoyProvider
	node     *rpc.Client
	log      *persist.Logger
	unlocked map[uuid.UUID]unlockedKeys
}

// New wires a Facade over an already-open store, key ledger, decoy
// provider and node client.
func New(store persist.KeyValueStore, ledger *keyledger.Ledger, decoys ring.DecoyProvider, node *rpc.Client, log *persist.Logger) *Facade {
	return &Facade{
		store:    store,
		ledger:   ledger,
		sessions: sessionstore.New(),
		decoys:   decoys,
		node:     node,
		log:      log,
		unlocked: make(map[uuid.UUID]unlockedKeys),
	}
}

// CreateMnemonic generates a fresh BIP-39 mnemonic. Only the English
// wordlist is wired in, so non-English requests are rejected rather than
// silently served English.
func (f *Facade) CreateMnemonic(lang string, wordCount int) (string, error) {
	if lang != "" && lang != "english" {
		return "", walleterr.Newf(walleterr.KindConfigError, "wallet: unsupported mnemonic language "+lang)
	}
	m, err := crypto.NewMnemonic(wordCount)
	if err != nil {
		return "", walleterr.New(walleterr.KindConfigError, err)
	}
	return m, nil
}

// CreateWallet derives a new wallet's root key set from mnemonic+passphrase
// and returns its wallet id. mnemonic is a Go string and outlives this call
// in whatever buffer the caller built it from (see DESIGN.md); this method
// does not and cannot zero it.
func (f *Facade) CreateWallet(mnemonic, passphrase string) (string, error) {
	id, err := f.ledger.CreateWallet(mnemonic, passphrase)
	if err != nil {
		return "", walleterr.New(walleterr.KindStoreError, err)
	}
	return id, nil
}

// WalletList returns every wallet id the key ledger has a key set for.
func (f *Facade) WalletList() ([]string, error) {
	ids, err := f.ledger.ListWalletIDs()
	if err != nil {
		return nil, walleterr.New(walleterr.KindStoreError, err)
	}
	return ids, nil
}

// Addresses returns every stealth address derived for walletID.
func (f *Facade) Addresses(walletID string) ([]string, error) {
	addrs, err := f.ledger.Addresses(walletID)
	if err != nil {
		return nil, walleterr.New(walleterr.KindStoreError, err)
	}
	return addrs, nil
}

// KeySets returns every persisted key set for walletID.
func (f *Facade) KeySets(walletID string) ([]types.KeySet, error) {
	sets, err := f.ledger.KeySets(walletID)
	if err != nil {
		return nil, walleterr.New(walleterr.KindStoreError, err)
	}
	return sets, nil
}

// LastKeySet returns walletID's most recently derived key set.
func (f *Facade) LastKeySet(walletID string) (types.KeySet, error) {
	ks, err := f.ledger.LastKeySet(walletID)
	if err != nil {
		return types.KeySet{}, walleterr.New(walleterr.KindStoreError, err)
	}
	return ks, nil
}

// NextKeySet bumps walletID's address index if it has at least one stored
// transaction, or returns the existing last key set unchanged otherwise.
func (f *Facade) NextKeySet(walletID string) (types.KeySet, error) {
	txs, err := txbuilder.ListWalletTxs(f.store, walletID)
	if err != nil {
		return types.KeySet{}, err
	}
	ks, err := f.ledger.NextKeySet(walletID, len(txs) > 0)
	if err != nil {
		return types.KeySet{}, walleterr.New(walleterr.KindStoreError, err)
	}
	return ks, nil
}

// Unlock derives walletID's spend/scan scalars from mnemonic+passphrase and
// opens a new session of sessionType. The derived seed is zeroed before
// Unlock returns; mnemonic itself cannot be zeroed here (it is a Go string,
// see DESIGN.md). The derived scalars live only in the Facade's locked
// unlocked map until Lock (or process exit) wipes them.
func (f *Facade) Unlock(walletID, mnemonic, passphrase string, sessionType types.SessionType) (uuid.UUID, error) {
	seed, err := crypto.MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return uuid.UUID{}, walleterr.New(walleterr.KindConfigError, err)
	}
	defer crypto.SecureWipe(seed)
	spend, scan, err := f.ledger.Unlock(walletID, seed)
	if err != nil {
		return uuid.UUID{}, walleterr.New(walleterr.KindStoreError, err)
	}

	sessionID := uuid.New()
	session := types.Session{SessionId: sessionID, SessionType: sessionType}
	if _, err := f.sessions.AddOrUpdate(sessionID, session); err != nil {
		return uuid.UUID{}, walleterr.New(walleterr.KindStoreError, err)
	}

	f.mu.Lock()
	f.unlocked[sessionID] = unlockedKeys{walletID: walletID, spend: spend, scan: scan}
	f.mu.Unlock()

	f.logf("session %s opened for wallet %s", sessionID, walletID)
	return sessionID, nil
}

// Lock wipes sessionID's cached spend/scan scalars and drops the session.
func (f *Facade) Lock(sessionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys, ok := f.unlocked[sessionID]
	if !ok {
		return
	}
	crypto.SecureWipeScalar(&keys.spend)
	crypto.SecureWipeScalar(&keys.scan)
	delete(f.unlocked, sessionID)
	f.logf("session %s locked", sessionID)
}

// logf writes to the facade's logger when one is wired; a nil logger (the
// common test configuration) silently drops the line.
func (f *Facade) logf(format string, v ...interface{}) {
	if f.log != nil {
		f.log.Printf(format, v...)
	}
}

func (f *Facade) keysFor(sessionID uuid.UUID) (unlockedKeys, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys, ok := f.unlocked[sessionID]
	if !ok {
		return unlockedKeys{}, errSessionNotFound
	}
	return keys, nil
}

// AvailableBalance returns sessionID's wallet's spendable balance, per
// BalanceEngine's single-UTXO model.
func (f *Facade) AvailableBalance(sessionID uuid.UUID) (uint64, error) {
	keys, err := f.keysFor(sessionID)
	if err != nil {
		return 0, err
	}
	txs, err := txbuilder.ListWalletTxs(f.store, keys.walletID)
	if err != nil {
		return 0, err
	}
	avail, err := balance.Available(keys.scan, txs)
	if err != nil {
		return 0, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}
	return avail, nil
}

// History returns sessionID's wallet's folded transaction history.
func (f *Facade) History(sessionID uuid.UUID) ([]types.BalanceSheet, error) {
	keys, err := f.keysFor(sessionID)
	if err != nil {
		return nil, err
	}
	txs, err := txbuilder.ListWalletTxs(f.store, keys.walletID)
	if err != nil {
		return nil, err
	}
	return balance.History(txs), nil
}

// Count returns the number of transactions stored against sessionID's
// wallet.
func (f *Facade) Count(sessionID uuid.UUID) (int, error) {
	keys, err := f.keysFor(sessionID)
	if err != nil {
		return 0, err
	}
	txs, err := txbuilder.ListWalletTxs(f.store, keys.walletID)
	if err != nil {
		return 0, err
	}
	return len(txs), nil
}

// ReceivePayment fetches paymentID's candidate outputs from the node,
// filters them down to the ones addressed to this session's wallet,
// rejects a duplicate receipt, and persists the result.
func (f *Facade) ReceivePayment(ctx context.Context, sessionID uuid.UUID, paymentID string) error {
	keys, err := f.keysFor(sessionID)
	if err != nil {
		return err
	}

	candidates, err := f.node.FetchOutputs(ctx, paymentID)
	if err != nil {
		return err
	}

	matched, payloads, err := scanner.Scan(keys.spend, keys.scan, candidates)
	if err != nil {
		return walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}
	if len(matched) == 0 {
		return walleterr.New(walleterr.KindStoreError, errNoOutputsFound)
	}

	txID := sha256.Sum256([]byte(paymentID))

	stored, err := txbuilder.ListWalletTxs(f.store, keys.walletID)
	if err != nil {
		return err
	}
	if err := scanner.CheckDuplicate(txID, stored); err != nil {
		return walleterr.New(walleterr.KindDuplicatePayment, err)
	}

	var total uint64
	for _, p := range payloads {
		total += p.Amount
	}

	wtx := types.WalletTx{
		Id:         uuid.New(),
		TxId:       txID,
		DateTime:   time.Now(),
		WalletType: types.WalletTxReceive,
		Balance:    types.Currency(total),
		Vout:       matched,
	}
	if err := txbuilder.PersistReceive(f.store, keys.walletID, wtx); err != nil {
		return err
	}
	f.logf("receive %x stored for wallet %s: %d outputs, %d total", txID[:8], keys.walletID, len(matched), total)
	return nil
}

// CreatePayment stages and builds a send transaction for sessionID: it
// computes the change draft, assembles the MLSAG ring, self-verifies every
// cryptographic step, persists the result, and records the finished
// WalletTx on the session for Send to submit.
func (f *Facade) CreatePayment(ctx context.Context, sessionID uuid.UUID, payment types.Currency, memo, recipientAddress string) error {
	keys, err := f.keysFor(sessionID)
	if err != nil {
		return err
	}
	session, ok := f.sessions.Get(sessionID)
	if !ok {
		return errSessionNotFound
	}

	senderPub := crypto.StealthAddress{Spend: crypto.BasePointMul(&keys.spend), Scan: crypto.BasePointMul(&keys.scan)}

	recipient, err := keyledger.DecodeStealthAddress(recipientAddress)
	if err != nil {
		walleterr.SetLastError(&session, walleterr.KindConfigError, err)
		f.sessions.AddOrUpdate(sessionID, session)
		return err
	}

	senderAddrText, err := f.ledger.Addresses(keys.walletID)
	if err != nil {
		return err
	}
	var senderText string
	if len(senderAddrText) > 0 {
		senderText = senderAddrText[0]
	}

	txs, err := txbuilder.ListWalletTxs(f.store, keys.walletID)
	if err != nil {
		return err
	}

	draft, err := txbuilder.CalculateChange(keys.scan, txs, session.SessionType, payment, memo, senderText, recipientAddress)
	if err != nil {
		if werr, ok := err.(*walleterr.Error); ok {
			session.LastError = werr.LastError()
			f.sessions.AddOrUpdate(sessionID, session)
		}
		return err
	}

	tx, wtx, err := txbuilder.Build(ctx, f.decoys, sessionID, draft, session.SessionType, keys.spend, keys.scan, senderPub, recipient)
	if err != nil {
		if werr, ok := err.(*walleterr.Error); ok {
			session.LastError = werr.LastError()
			f.sessions.AddOrUpdate(sessionID, session)
		}
		return err
	}

	if err := txbuilder.Persist(f.store, keys.walletID, tx, wtx); err != nil {
		return err
	}

	session.WalletTransaction = wtx
	session.LastError = &types.LastError{Success: true}
	if _, err := f.sessions.AddOrUpdate(sessionID, session); err != nil {
		return walleterr.New(walleterr.KindStoreError, err)
	}
	f.logf("payment %x built for session %s", tx.TxnId[:8], sessionID)
	return nil
}

// Send submits sessionID's already-built transaction to the node, rolling
// back the persisted draft on any rejection or transport failure.
func (f *Facade) Send(ctx context.Context, sessionID uuid.UUID) error {
	session, ok := f.sessions.Get(sessionID)
	if !ok {
		return errSessionNotFound
	}
	if err := txbuilder.Send(ctx, f.store, f.node, &session); err != nil {
		f.sessions.AddOrUpdate(sessionID, session)
		f.logf("send failed for session %s, draft rolled back: %v", sessionID, err)
		return err
	}
	f.sessions.AddOrUpdate(sessionID, session)
	return nil
}

// LastError returns the structured failure object recorded on sessionID's
// last operation, if any.
func (f *Facade) LastError(sessionID uuid.UUID) (*types.LastError, error) {
	session, ok := f.sessions.Get(sessionID)
	if !ok {
		return nil, errSessionNotFound
	}
	return session.LastError, nil
}
