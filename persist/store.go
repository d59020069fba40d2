// Package persist provides cloakwallet's storage layer: an embedded,
// per-wallet single-file document store (asdine/storm over bbolt, msgpack
// encoded) plus the file-backed logger every long-lived component writes
// through.
package persist

import (
	"path/filepath"

	"github.com/asdine/storm"
	smsp "github.com/asdine/storm/codec/msgpack"
	"github.com/asdine/storm/q"
)

// KeyValueStore is the abstract persistence surface every wallet-domain
// package depends on. Entities are keyed by a UUID-typed id field tagged
// `storm:"id"` on the concrete row type.
type KeyValueStore interface {
	Insert(row interface{}) error
	Update(row interface{}) error
	Query(matchers ...q.Matcher) storm.Query
	// Delete removes row, which must be a pointer to a struct whose
	// `storm:"id"` field is already populated with the target id.
	Delete(row interface{}) error
	Close() error
}

// StormStore is the KeyValueStore backed by a single bbolt file. It does no
// encryption itself: keyledger encrypts key material with a
// passphrase-derived key before inserting it, and every other row is
// stored as given.
type StormStore struct {
	db *storm.DB
}

var _ KeyValueStore = (*StormStore)(nil)

// OpenStormStore opens (creating if absent) the wallet's database file at
// <dir>/wallet.db.
func OpenStormStore(dir string) (*StormStore, error) {
	db, err := storm.Open(filepath.Join(dir, "wallet.db"), storm.Codec(smsp.Codec))
	if err != nil {
		return nil, err
	}
	return &StormStore{db: db}, nil
}

func (s *StormStore) Insert(row interface{}) error {
	return s.db.Save(row)
}

func (s *StormStore) Update(row interface{}) error {
	return s.db.Update(row)
}

func (s *StormStore) Query(matchers ...q.Matcher) storm.Query {
	return s.db.Select(matchers...)
}

func (s *StormStore) Delete(row interface{}) error {
	return s.db.DeleteStruct(row)
}

func (s *StormStore) Close() error {
	return s.db.Close()
}
