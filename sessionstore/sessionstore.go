// Package sessionstore is the process-wide mapping from session id to
// session. A single RWMutex guards the whole map rather than per-entry
// locks; sessions are cheap and short-lived.
package sessionstore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/threefoldtech/cloakwallet/types"
)

// Store is a concurrent session map with merge-on-update writes.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*types.Session
}

// New returns an empty Store.
func New() *Store {
	return &Store{sessions: make(map[uuid.UUID]*types.Session)}
}

// Get returns a snapshot of the session, if present.
func (s *Store) Get(id uuid.UUID) (types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return types.Session{}, false
	}
	return *sess, true
}

// AddOrUpdate inserts session if its id is unseen, or merges its
// WalletTransaction fields into the existing entry and returns the merged
// result. Sessions are values, so there is no reference identity to
// compare: any incoming session with a known id is merged, and the
// returned error is always nil.
func (s *Store) AddOrUpdate(id uuid.UUID, incoming types.Session) (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[id]
	if !ok {
		stored := incoming
		s.sessions[id] = &stored
		return stored, nil
	}

	merged := mergeWalletTx(existing.WalletTransaction, incoming.WalletTransaction)
	existing.WalletTransaction = merged
	existing.LastError = incoming.LastError
	return *existing, nil
}

// mergeWalletTx copies the mutable fields of patch into base, leaving
// TxId untouched unless patch supplies one — matching the "copy specific
// fields into the existing entry" merge semantics, re-modeled as a pure
// function over value types instead of in-place field assignment through a
// shared reference.
func mergeWalletTx(base, patch types.WalletTx) types.WalletTx {
	base.Balance = patch.Balance
	base.Change = patch.Change
	base.DateTime = patch.DateTime
	base.Fee = patch.Fee
	base.Memo = patch.Memo
	base.Payment = patch.Payment
	base.RecipientAddress = patch.RecipientAddress
	base.SenderAddress = patch.SenderAddress
	base.Spent = patch.Spent
	base.Vout = patch.Vout
	base.WalletType = patch.WalletType
	base.Id = patch.Id
	if patch.TxId != ([32]byte{}) {
		base.TxId = patch.TxId
	}
	return base
}
