// Package ring builds the MLSAG input matrix for a transaction: the true
// spend plus nCols-1 non-colliding decoys drawn from a pool of historical
// outputs.
package ring

import (
	"errors"

	"github.com/NebulousLabs/fastrand"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/types"
)

// maxDecoyRetries bounds the re-draw loop when a candidate collides with an
// already-placed (C,P) pair.
const maxDecoyRetries = 64

var (
	errDecoyExhausted = errors.New("ring: could not draw a non-colliding decoy within the retry budget")
	errNoDecoyPool    = errors.New("ring: decoy provider returned an empty pool")
)

// DecoyProvider is the injected replacement for the ambient
// SafeguardService the ring assembler historically reached into directly:
// a snapshot of candidate transactions to draw decoys from, plus the
// readiness predicate TransactionBuilder.Build polls before assembling a
// ring.
type DecoyProvider interface {
	Snapshot() []types.WalletTx
	IsDownloading() bool
}

// Assembled is the ring material RingAssembler produces for
// TransactionBuilder.Build.
type Assembled struct {
	M      []crypto.Commit33 // nCols entries: row 0 of the ring matrix (one-time public keys)
	PcmIn  []crypto.Commit33
	PkIn   []crypto.Commit33
	Sk0    crypto.Scalar
	Blind0 crypto.Scalar
	Index  int
}

// DecryptedOutput is what the caller must supply for the true spend: the
// already-decrypted opening of Spending's commitment.
type DecryptedOutput struct {
	Amount uint64
	Blind  crypto.Scalar
}

// Assemble draws index uniformly in [0, nCols), places the real spend
// there, and fills the remaining columns with non-colliding decoys from
// provider's snapshot.
func Assemble(provider DecoyProvider, nCols int, spending types.Vout, spendPrivOneTime crypto.Scalar, opened DecryptedOutput) (Assembled, error) {
	pool := provider.Snapshot()

	index := fastrand.Intn(nCols)

	pcmIn := make([]crypto.Commit33, nCols)
	pkIn := make([]crypto.Commit33, nCols)
	m := make([]crypto.Commit33, nCols) // row 0 only; caller appends row 1 after MLSAGPrepare

	spendPub := crypto.BasePointMul(&spendPrivOneTime)
	pkIn[index] = crypto.PointToBytes(&spendPub)
	pcmIn[index] = crypto.Commit(opened.Amount, opened.Blind)
	m[index] = pkIn[index]

	placed := map[[crypto.PointSize]byte]bool{pkIn[index]: true}

	for col := 0; col < nCols; col++ {
		if col == index {
			continue
		}
		c, p, err := drawDecoy(pool, placed)
		if err != nil {
			return Assembled{}, err
		}
		pcmIn[col] = c
		pkIn[col] = p
		m[col] = p
		placed[p] = true
	}

	return Assembled{
		M:      m,
		PcmIn:  pcmIn,
		PkIn:   pkIn,
		Sk0:    spendPrivOneTime,
		Blind0: opened.Blind,
		Index:  index,
	}, nil
}

func drawDecoy(pool []types.WalletTx, placed map[[crypto.PointSize]byte]bool) (crypto.Commit33, [crypto.PointSize]byte, error) {
	if len(pool) == 0 {
		return crypto.Commit33{}, [crypto.PointSize]byte{}, errNoDecoyPool
	}
	for attempt := 0; attempt < maxDecoyRetries; attempt++ {
		tx := pool[fastrand.Intn(len(pool))]
		if len(tx.Vout) == 0 {
			continue
		}
		outIdx := fastrand.Intn(2)
		if outIdx >= len(tx.Vout) {
			outIdx = 0
		}
		v := tx.Vout[outIdx]
		if placed[v.P] {
			continue
		}
		return v.C, v.P, nil
	}
	return crypto.Commit33{}, [crypto.PointSize]byte{}, errDecoyExhausted
}
