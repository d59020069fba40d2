package types

import (
	"testing"

	"github.com/google/uuid"
)

func TestComputeTxnIdDeterministic(t *testing.T) {
	tx := Transaction{
		Ver: 1,
		Mix: 22,
		Id:  uuid.New(),
	}
	tx.Vout[0] = Vout{A: 72000, T: CoinTypeFee}
	tx.Vout[1] = Vout{T: CoinTypeCoin}
	tx.Vout[2] = Vout{T: CoinTypeCoin}

	id1, err := ComputeTxnId(tx)
	if err != nil {
		t.Fatalf("ComputeTxnId: %v", err)
	}
	id2, err := ComputeTxnId(tx)
	if err != nil {
		t.Fatalf("ComputeTxnId: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("ComputeTxnId is not deterministic: %x != %x", id1, id2)
	}

	tx.Vout[1].A = 1
	id3, err := ComputeTxnId(tx)
	if err != nil {
		t.Fatalf("ComputeTxnId: %v", err)
	}
	if id3 == id1 {
		t.Fatalf("ComputeTxnId did not change after mutating a Vout")
	}
}
