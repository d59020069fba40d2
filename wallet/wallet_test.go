package wallet

import (
	"testing"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/keyledger"
	"github.com/threefoldtech/cloakwallet/persist"
	"github.com/threefoldtech/cloakwallet/rpc"
	"github.com/threefoldtech/cloakwallet/types"
)

const (
	testMnemonic   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassphrase = "TREZOR"
)

type emptyDecoyPool struct{}

func (emptyDecoyPool) Snapshot() []types.WalletTx { return nil }
func (emptyDecoyPool) IsDownloading() bool        { return false }

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	store, err := persist.OpenStormStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStormStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ledger := keyledger.New(store, crypto.NewTwofishKey())
	return New(store, ledger, emptyDecoyPool{}, rpc.New(""), nil)
}

// TestCreateWalletUnlockAddressesRoundTrip checks the wallet round trip
// through the public Facade surface: a freshly created wallet's published
// address must be one Unlock can actually spend from, i.e. the derived
// spend/scan keys must match the address that was handed out.
func TestCreateWalletUnlockAddressesRoundTrip(t *testing.T) {
	f := newTestFacade(t)

	walletID, err := f.CreateWallet(testMnemonic, testPassphrase)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	addrs, err := f.Addresses(walletID)
	if err != nil {
		t.Fatalf("Addresses: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected 1 address, got %d", len(addrs))
	}

	sessionID, err := f.Unlock(walletID, testMnemonic, testPassphrase, types.SessionTypeCoin)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	keys, err := f.keysFor(sessionID)
	if err != nil {
		t.Fatalf("keysFor: %v", err)
	}
	derivedSpendPub := crypto.BasePointMul(&keys.spend)
	derivedScanPub := crypto.BasePointMul(&keys.scan)

	published, err := keyledger.DecodeStealthAddress(addrs[0])
	if err != nil {
		t.Fatalf("DecodeStealthAddress: %v", err)
	}
	if !crypto.PointEqual(&published.Spend, &derivedSpendPub) || !crypto.PointEqual(&published.Scan, &derivedScanPub) {
		t.Fatalf("Unlock-derived keys do not match the address CreateWallet published (%q)", addrs[0])
	}

	f.Lock(sessionID)
	if _, err := f.keysFor(sessionID); err == nil {
		t.Fatal("expected keysFor to fail after Lock")
	}
}
