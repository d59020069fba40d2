package types

import (
	"crypto/sha256"

	"github.com/vmihailenco/msgpack/v5"
)

// txnIdInput mirrors Transaction minus TxnId itself, so ComputeTxnId never
// folds the id being computed into its own hash.
type txnIdInput struct {
	Ver  byte
	Mix  uint16
	Bp   []byte
	Rct  RctSignature
	Vin  VinRecord
	Vout [3]Vout
	Id   [16]byte
}

// ComputeTxnId canonically serialises every field of tx except TxnId and
// hashes the result, matching the "content hash of all other fields"
// definition of TxnId.
func ComputeTxnId(tx Transaction) ([32]byte, error) {
	input := txnIdInput{
		Ver:  tx.Ver,
		Mix:  tx.Mix,
		Bp:   tx.Bp,
		Rct:  tx.Rct,
		Vin:  tx.Vin,
		Vout: tx.Vout,
	}
	idBytes, err := tx.Id.MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}
	copy(input.Id[:], idBytes)

	b, err := msgpack.Marshal(input)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}
