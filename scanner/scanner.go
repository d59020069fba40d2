// Package scanner implements OutputScanner: filtering a node's candidate
// outputs down to the ones addressed to this wallet, and decrypting their
// attached payload.
package scanner

import (
	"bytes"
	"errors"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/types"
)

var errDuplicateReceipt = errors.New("scanner: a receive for this transaction id is already recorded")

// DecryptedPayload is the (amount, blind, memo) triple recovered from a
// Vout's N field.
type DecryptedPayload struct {
	Amount uint64
	Blind  crypto.Scalar
	Memo   string
}

// encodePayload builds the msgpack-free plain layout BoxEncrypt/BoxDecrypt carry:
// 8-byte big-endian amount, 32-byte blind, remaining bytes are the memo.
func encodePayload(amount uint64, blind crypto.Scalar, memo string) []byte {
	out := make([]byte, 0, 8+32+len(memo))
	var amountBytes [8]byte
	for i := 0; i < 8; i++ {
		amountBytes[7-i] = byte(amount)
		amount >>= 8
	}
	out = append(out, amountBytes[:]...)
	blindBytes := crypto.ScalarToBytes(&blind)
	out = append(out, blindBytes[:]...)
	out = append(out, []byte(memo)...)
	return out
}

func decodePayload(b []byte) (DecryptedPayload, error) {
	if len(b) < 40 {
		return DecryptedPayload{}, errors.New("scanner: payload too short")
	}
	var amount uint64
	for i := 0; i < 8; i++ {
		amount = (amount << 8) | uint64(b[i])
	}
	var blindBytes [32]byte
	copy(blindBytes[:], b[8:40])
	blind := crypto.ScalarFromBytes(blindBytes)
	memo := string(b[40:])
	return DecryptedPayload{Amount: amount, Blind: blind, Memo: memo}, nil
}

// EncodeMessage is exported so TransactionBuilder can construct the N
// payload the same way ReceivePayment will later decode it.
func EncodeMessage(amount uint64, blind crypto.Scalar, memo string) []byte {
	return encodePayload(amount, blind, memo)
}

// DecryptPayload opens a single output's N payload under scan, for callers
// that already know v belongs to this wallet (e.g. TransactionBuilder
// re-opening the output it is about to spend) rather than filtering a
// candidate list via Scan.
func DecryptPayload(scan crypto.Scalar, v types.Vout) (DecryptedPayload, error) {
	plain, err := crypto.BoxDecrypt(scan, v.N)
	if err != nil {
		return DecryptedPayload{}, err
	}
	return decodePayload(plain)
}

// Scan filters candidates down to the ones addressed to (spend, scan),
// decrypting each match's payload.
func Scan(spend, scan crypto.Scalar, candidates []types.Vout) ([]types.Vout, []DecryptedPayload, error) {
	var matched []types.Vout
	var payloads []DecryptedPayload

	spendPub := crypto.BasePointMul(&spend)
	for _, v := range candidates {
		ephemeralPub, err := crypto.PointFromBytes(v.E)
		if err != nil {
			continue
		}
		candidatePub := crypto.UncoverPub(scan, spendPub, ephemeralPub)
		candidateBytes := crypto.PointToBytes(&candidatePub)
		if !bytes.Equal(candidateBytes[:], v.P[:]) {
			continue
		}

		plain, err := crypto.BoxDecrypt(scan, v.N)
		if err != nil {
			return nil, nil, err
		}
		payload, err := decodePayload(plain)
		if err != nil {
			return nil, nil, err
		}

		matched = append(matched, v)
		payloads = append(payloads, payload)
	}
	return matched, payloads, nil
}

// CheckDuplicate enforces the duplicate-receipt policy: reject a receive
// whose TxId already appears among stored Receive transactions.
func CheckDuplicate(txID [32]byte, stored []types.WalletTx) error {
	for _, tx := range stored {
		if tx.WalletType == types.WalletTxReceive && tx.TxId == txID {
			return errDuplicateReceipt
		}
	}
	return nil
}
