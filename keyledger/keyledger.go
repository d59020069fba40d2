// Package keyledger manages the HD key tree: deriving a root from a BIP-39
// mnemonic, persisting key sets, and producing the spend/scan scalars a
// session needs to build or scan transactions.
package keyledger

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/asdine/storm"
	"github.com/google/uuid"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/persist"
	"github.com/threefoldtech/cloakwallet/types"
)

var (
	errNoKeySet       = errors.New("keyledger: wallet has no key sets")
	errBadAccountPath = errors.New("keyledger: key path does not carry an account segment")
)

// keySetRow is the persisted form of types.KeySet, wrapped with an id and
// insertion order so LastKeySet can find the most recent entry.
type keySetRow struct {
	RowID     string `storm:"id"`
	WalletID  string `storm:"index"`
	Seq       int
	ChainCode [32]byte
	RootKey   []byte // Twofish-encrypted scalar bytes
	KeyPath   string
	Address   string
}

// Ledger is the KeyLedger facade: one per open wallet database.
type Ledger struct {
	store     persist.KeyValueStore
	masterKey crypto.TwofishKey
}

// New builds a Ledger over an already-opened store, using masterKey to
// encrypt/decrypt root key material at rest.
func New(store persist.KeyValueStore, masterKey crypto.TwofishKey) *Ledger {
	return &Ledger{store: store, masterKey: masterKey}
}

// CreateWallet derives the root key from mnemonic+passphrase, inserts the
// initial key set at m/44'/847177'/0'/0/0, and returns a fresh wallet id of
// the form "id_<32 hex>". The derived seed is zeroed before return; mnemonic
// itself is a Go string and cannot be zeroed in place (see DESIGN.md) — it
// is the caller's responsibility to source it from a mutable buffer it
// controls and wipe that buffer once this call returns.
func (l *Ledger) CreateWallet(mnemonic, passphrase string) (string, error) {
	seed, err := crypto.MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return "", err
	}
	defer crypto.SecureWipe(seed)

	walletID := "id_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	path := HDPath + "0"
	if err := l.insertKeySetAtPath(walletID, seed, path, 0); err != nil {
		return "", err
	}
	return walletID, nil
}

// AddKeySet reads the wallet's last key set, increments the account index
// (the path's third segment), and inserts a new key set derived from the
// same seed at the bumped path.
func (l *Ledger) AddKeySet(walletID string, seed []byte) error {
	defer crypto.SecureWipe(seed)

	last, err := l.lastKeySetRow(walletID)
	if err != nil {
		return err
	}
	nextAccount, err := nextAccountIndex(last.KeyPath)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("m/44'/847177'/%d'/0/0", nextAccount)
	return l.insertKeySetAtPath(walletID, seed, path, last.Seq+1)
}

// Unlock derives the spend and scan scalars for the wallet's first
// persisted key set: spend at HDPath+"0", scan at HDPath+"1". The returned
// scalars are the caller's responsibility to zero when done.
func (l *Ledger) Unlock(walletID string, seed []byte) (spend, scan crypto.Scalar, err error) {
	spendNode, err := deriveAtPath(seed, HDPath+"0")
	if err != nil {
		return crypto.Scalar{}, crypto.Scalar{}, err
	}
	scanNode, err := deriveAtPath(seed, HDPath+"1")
	if err != nil {
		return crypto.Scalar{}, crypto.Scalar{}, err
	}
	return spendNode.Key, scanNode.Key, nil
}

// NextKeySet bumps the last path segment (the address index) if the wallet
// has at least one transaction on record; otherwise it is a no-op and
// returns the existing path unchanged.
func (l *Ledger) NextKeySet(walletID string, hasTransactions bool) (types.KeySet, error) {
	row, err := l.lastKeySetRow(walletID)
	if err != nil {
		return types.KeySet{}, err
	}
	if !hasTransactions {
		return rowToKeySet(row), nil
	}

	segments := strings.Split(row.KeyPath, "/")
	idx, err := strconv.ParseUint(segments[len(segments)-1], 10, 32)
	if err != nil {
		return types.KeySet{}, errBadAccountPath
	}
	segments[len(segments)-1] = strconv.FormatUint(idx+1, 10)
	row.KeyPath = strings.Join(segments, "/")
	row.Seq++
	if err := l.store.Update(&row); err != nil {
		return types.KeySet{}, err
	}
	return rowToKeySet(row), nil
}

// insertKeySetAtPath derives spend directly at path and scan at path's
// paired index (see nextIndexPath), the same pair Unlock re-derives from
// HDPath+"0"/HDPath+"1" — path must already be a complete spend path
// (e.g. HDPath+"0"), not a prefix.
func (l *Ledger) insertKeySetAtPath(walletID string, seed []byte, path string, seq int) error {
	spendNode, err := deriveAtPath(seed, path)
	if err != nil {
		return err
	}
	defer crypto.SecureWipeScalar(&spendNode.Key)
	scanPath, err := nextIndexPath(path)
	if err != nil {
		return err
	}
	scanNode, err := deriveAtPath(seed, scanPath)
	if err != nil {
		return err
	}
	defer crypto.SecureWipeScalar(&scanNode.Key)

	spendPub := crypto.BasePointMul(&spendNode.Key)
	scanPub := crypto.BasePointMul(&scanNode.Key)
	address := encodeStealthAddress(spendPub, scanPub)

	rootBytes := crypto.ScalarToBytes(&spendNode.Key)
	encryptedRoot, err := l.masterKey.EncryptBytes(rootBytes[:])
	if err != nil {
		return err
	}
	crypto.SecureWipe(rootBytes[:])

	row := &keySetRow{
		RowID:     uuid.New().String(),
		WalletID:  walletID,
		Seq:       seq,
		ChainCode: spendNode.ChainCode,
		RootKey:   encryptedRoot,
		KeyPath:   path,
		Address:   address,
	}
	return l.store.Insert(row)
}

// KeySets returns every key set persisted for walletID, ordered by
// insertion sequence.
func (l *Ledger) KeySets(walletID string) ([]types.KeySet, error) {
	var rows []keySetRow
	if err := l.store.Query().Find(&rows); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
	var out []types.KeySet
	for _, row := range rows {
		if row.WalletID != walletID {
			continue
		}
		out = append(out, rowToKeySet(row))
	}
	return out, nil
}

// LastKeySet returns the most recently inserted key set for walletID.
func (l *Ledger) LastKeySet(walletID string) (types.KeySet, error) {
	row, err := l.lastKeySetRow(walletID)
	if err != nil {
		return types.KeySet{}, err
	}
	return rowToKeySet(row), nil
}

// Addresses returns every key set's stealth address for walletID.
func (l *Ledger) Addresses(walletID string) ([]string, error) {
	sets, err := l.KeySets(walletID)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(sets))
	for i, s := range sets {
		out[i] = s.StealthAddress
	}
	return out, nil
}

// ListWalletIDs returns every distinct wallet id with at least one
// persisted key set.
func (l *Ledger) ListWalletIDs() ([]string, error) {
	var rows []keySetRow
	if err := l.store.Query().Find(&rows); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		if seen[row.WalletID] {
			continue
		}
		seen[row.WalletID] = true
		out = append(out, row.WalletID)
	}
	return out, nil
}

func (l *Ledger) lastKeySetRow(walletID string) (keySetRow, error) {
	var rows []keySetRow
	if err := l.store.Query().Find(&rows); err != nil {
		return keySetRow{}, err
	}
	var best *keySetRow
	for i := range rows {
		if rows[i].WalletID != walletID {
			continue
		}
		if best == nil || rows[i].Seq > best.Seq {
			best = &rows[i]
		}
	}
	if best == nil {
		return keySetRow{}, errNoKeySet
	}
	return *best, nil
}

func rowToKeySet(row keySetRow) types.KeySet {
	return types.KeySet{
		ChainCode:      row.ChainCode,
		KeyPath:        row.KeyPath,
		StealthAddress: row.Address,
	}
}

// Stealth-address version bytes per network.
const (
	MainnetAddressVersion byte = 0x01
	TestnetAddressVersion byte = 0x02
)

// addressVersion is the version byte new addresses are minted with. Set
// once at startup via SetNetwork, before any address is derived.
var addressVersion = MainnetAddressVersion

// SetNetwork selects which network's version byte newly derived stealth
// addresses carry.
func SetNetwork(testnet bool) {
	if testnet {
		addressVersion = TestnetAddressVersion
	} else {
		addressVersion = MainnetAddressVersion
	}
}

// encodeStealthAddress formats a (spend, scan) pair as a base58-check
// string: version byte || spend pub || scan pub.
func encodeStealthAddress(spendPub, scanPub crypto.Point) string {
	spendBytes := crypto.PointToBytes(&spendPub)
	scanBytes := crypto.PointToBytes(&scanPub)
	payload := make([]byte, 0, 1+len(spendBytes)+len(scanBytes))
	payload = append(payload, addressVersion)
	payload = append(payload, spendBytes[:]...)
	payload = append(payload, scanBytes[:]...)
	return base58CheckEncode(payload)
}

// DecodeStealthAddress reverses encodeStealthAddress: base58-check decode,
// strip the version byte, and split the remaining 66 bytes into the
// (spend, scan) public key pair.
func DecodeStealthAddress(address string) (crypto.StealthAddress, error) {
	payload, err := base58CheckDecode(address)
	if err != nil {
		return crypto.StealthAddress{}, err
	}
	if len(payload) != 1+2*crypto.PointSize {
		return crypto.StealthAddress{}, errBase58Checksum
	}
	var spendBytes, scanBytes [crypto.PointSize]byte
	copy(spendBytes[:], payload[1:1+crypto.PointSize])
	copy(scanBytes[:], payload[1+crypto.PointSize:])

	spendPub, err := crypto.PointFromBytes(spendBytes)
	if err != nil {
		return crypto.StealthAddress{}, err
	}
	scanPub, err := crypto.PointFromBytes(scanBytes)
	if err != nil {
		return crypto.StealthAddress{}, err
	}
	return crypto.StealthAddress{Spend: spendPub, Scan: scanPub}, nil
}

// nextAccountIndex parses the account segment (the third level below "m")
// out of an HD path like "m/44'/847177'/3'/0/0" and returns it incremented
// by one.
func nextAccountIndex(path string) (uint64, error) {
	segments := strings.Split(path, "/")
	if len(segments) < 4 {
		return 0, errBadAccountPath
	}
	acc := strings.TrimSuffix(segments[3], "'")
	n, err := strconv.ParseUint(acc, 10, 32)
	if err != nil {
		return 0, errBadAccountPath
	}
	return n + 1, nil
}
