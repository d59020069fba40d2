package keyledger

import (
	"testing"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/persist"
)

const (
	testMnemonic   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassphrase = "TREZOR"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	store, err := persist.OpenStormStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStormStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, crypto.NewTwofishKey())
}

// TestCreateWalletUnlockAddressRoundTrip: the address CreateWallet
// publishes must be the one Unlock's spend/scan scalars actually derive,
// or the wallet can never recognize its own outputs. Unlock must also be
// idempotent across calls.
func TestCreateWalletUnlockAddressRoundTrip(t *testing.T) {
	ledger := newTestLedger(t)

	walletID, err := ledger.CreateWallet(testMnemonic, testPassphrase)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	addrs, err := ledger.Addresses(walletID)
	if err != nil {
		t.Fatalf("Addresses: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected 1 address, got %d", len(addrs))
	}

	seed, err := crypto.MnemonicToSeed(testMnemonic, testPassphrase)
	if err != nil {
		t.Fatalf("MnemonicToSeed: %v", err)
	}
	spend, scan, err := ledger.Unlock(walletID, seed)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	spendPub := crypto.BasePointMul(&spend)
	scanPub := crypto.BasePointMul(&scan)
	derived := encodeStealthAddress(spendPub, scanPub)

	if derived != addrs[0] {
		t.Fatalf("Unlock-derived address %q does not match CreateWallet's published address %q", derived, addrs[0])
	}

	// Idempotence: re-deriving from the same seed must reproduce the same
	// scalars byte-for-byte.
	spend2, scan2, err := ledger.Unlock(walletID, seed)
	if err != nil {
		t.Fatalf("Unlock (second call): %v", err)
	}
	if crypto.ScalarToBytes(&spend) != crypto.ScalarToBytes(&spend2) {
		t.Fatalf("spend scalar is not stable across Unlock calls")
	}
	if crypto.ScalarToBytes(&scan) != crypto.ScalarToBytes(&scan2) {
		t.Fatalf("scan scalar is not stable across Unlock calls")
	}
}

// TestCreateWalletIDFormat checks the "id_<hex>" wallet-id shape.
func TestCreateWalletIDFormat(t *testing.T) {
	ledger := newTestLedger(t)

	walletID, err := ledger.CreateWallet(testMnemonic, testPassphrase)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	if len(walletID) <= 3 || walletID[:3] != "id_" {
		t.Fatalf("wallet id %q does not start with id_", walletID)
	}
}

// TestAddKeySetBumpsAccountAndMatchesUnlock: AddKeySet must derive
// spend/scan the same way CreateWallet's initial key set does (directly at
// the account path, not one level deeper), or a second account's address
// becomes unrecognizable to its own wallet.
func TestAddKeySetBumpsAccountAndMatchesUnlock(t *testing.T) {
	ledger := newTestLedger(t)

	walletID, err := ledger.CreateWallet(testMnemonic, testPassphrase)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}

	seed, err := crypto.MnemonicToSeed(testMnemonic, testPassphrase)
	if err != nil {
		t.Fatalf("MnemonicToSeed: %v", err)
	}
	if err := ledger.AddKeySet(walletID, seed); err != nil {
		t.Fatalf("AddKeySet: %v", err)
	}

	sets, err := ledger.KeySets(walletID)
	if err != nil {
		t.Fatalf("KeySets: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("expected 2 key sets after AddKeySet, got %d", len(sets))
	}

	last, err := ledger.LastKeySet(walletID)
	if err != nil {
		t.Fatalf("LastKeySet: %v", err)
	}
	if last.KeyPath != "m/44'/847177'/1'/0/0" {
		t.Fatalf("expected bumped account path m/44'/847177'/1'/0/0, got %q", last.KeyPath)
	}

	seed2, err := crypto.MnemonicToSeed(testMnemonic, testPassphrase)
	if err != nil {
		t.Fatalf("MnemonicToSeed: %v", err)
	}
	spendNode, err := deriveAtPath(seed2, last.KeyPath)
	if err != nil {
		t.Fatalf("deriveAtPath(spend): %v", err)
	}
	scanPath, err := nextIndexPath(last.KeyPath)
	if err != nil {
		t.Fatalf("nextIndexPath: %v", err)
	}
	scanNode, err := deriveAtPath(seed2, scanPath)
	if err != nil {
		t.Fatalf("deriveAtPath(scan): %v", err)
	}

	derived := encodeStealthAddress(crypto.BasePointMul(&spendNode.Key), crypto.BasePointMul(&scanNode.Key))
	if derived != last.StealthAddress {
		t.Fatalf("second account's stored address %q does not match its own derivation %q", last.StealthAddress, derived)
	}
}
