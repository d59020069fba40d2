package ring

import (
	"testing"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/types"
)

type fakeProvider struct {
	pool []types.WalletTx
}

func (f fakeProvider) Snapshot() []types.WalletTx { return f.pool }
func (f fakeProvider) IsDownloading() bool        { return false }

func distinctVout(seed byte) types.Vout {
	blind := crypto.RandomScalar()
	amount := uint64(seed) * 1000
	c := crypto.Commit(amount, blind)
	priv := crypto.RandomScalar()
	pub := crypto.BasePointMul(&priv)
	return types.Vout{C: c, P: crypto.PointToBytes(&pub)}
}

func TestAssembleNoCollisionWithTrueInput(t *testing.T) {
	pool := make([]types.WalletTx, 0, 40)
	for i := 0; i < 40; i++ {
		pool = append(pool, types.WalletTx{Vout: []types.Vout{distinctVout(byte(i + 1)), distinctVout(byte(i + 100))}})
	}
	provider := fakeProvider{pool: pool}

	spendPriv := crypto.RandomScalar()
	opened := DecryptedOutput{Amount: 5000, Blind: crypto.RandomScalar()}

	assembled, err := Assemble(provider, 11, types.Vout{}, spendPriv, opened)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if assembled.Index < 0 || assembled.Index >= 11 {
		t.Fatalf("index %d out of range", assembled.Index)
	}

	seen := map[[crypto.PointSize]byte]int{}
	for _, p := range assembled.PkIn {
		seen[p]++
	}
	for p, count := range seen {
		if count > 1 {
			t.Fatalf("duplicate pk_in entry %x appears %d times", p, count)
		}
	}
}

// TestAssembleIndexIsUniform drives many assemblies and applies a chi-square
// test over the chosen true-input column. The 99.9th-percentile bound for 21
// degrees of freedom is ~46.8; 60 keeps the flake rate negligible while
// still catching any real bias.
func TestAssembleIndexIsUniform(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping statistical test in short mode")
	}

	const nCols = 22
	const trials = 10_000

	pool := make([]types.WalletTx, 0, 40)
	for i := 0; i < 40; i++ {
		pool = append(pool, types.WalletTx{Vout: []types.Vout{distinctVout(byte(i + 1)), distinctVout(byte(i + 100))}})
	}
	provider := fakeProvider{pool: pool}

	spendPriv := crypto.RandomScalar()
	opened := DecryptedOutput{Amount: 5000, Blind: crypto.RandomScalar()}

	counts := make([]int, nCols)
	for i := 0; i < trials; i++ {
		assembled, err := Assemble(provider, nCols, types.Vout{}, spendPriv, opened)
		if err != nil {
			t.Fatalf("Assemble (trial %d): %v", i, err)
		}
		counts[assembled.Index]++
	}

	expected := float64(trials) / float64(nCols)
	var chi2 float64
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	if chi2 > 60 {
		t.Fatalf("true-input column distribution is biased: chi-square = %.1f, counts = %v", chi2, counts)
	}
}

func TestAssembleFailsOnEmptyPool(t *testing.T) {
	provider := fakeProvider{}
	spendPriv := crypto.RandomScalar()
	opened := DecryptedOutput{Amount: 1, Blind: crypto.RandomScalar()}
	if _, err := Assemble(provider, 4, types.Vout{}, spendPriv, opened); err == nil {
		t.Fatal("expected an error for an empty decoy pool")
	}
}
