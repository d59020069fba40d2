// Package types defines the wallet's own wire and persistence shapes:
// confidential outputs, transactions, wallet-side transaction records and
// sessions. It deliberately knows nothing about block or consensus
// validation — that lives one layer up, on the node the wallet talks to
// over RPC.
package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/threefoldtech/cloakwallet/crypto"
)

// Currency is an atomic-unit amount. Value is always an integer count of
// atomic units, never a floating-point coin amount.
type Currency uint64

// CoinType enumerates what a Vout represents on the chain.
type CoinType byte

const (
	CoinTypeCoin CoinType = iota
	CoinTypeCoinstake
	CoinTypeFee
	CoinTypeCoinbase
)

// WalletTxType distinguishes a wallet-side record's direction.
type WalletTxType byte

const (
	WalletTxReceive WalletTxType = iota
	WalletTxSend
)

// SessionType selects the fee/reward accounting branch a builder uses.
type SessionType byte

const (
	SessionTypeCoin SessionType = iota
	SessionTypeCoinstake
)

// Vout is a single confidential output.
type Vout struct {
	A Currency                // plaintext amount; zero unless policy exposes it (fee/coinbase)
	C crypto.Commit33         // Pedersen commitment
	E [crypto.PointSize]byte  // ephemeral stealth public key
	L uint32                  // unix locktime, 0 if none
	N []byte                  // box_encrypt'd (amount, blind, memo) payload
	P [crypto.PointSize]byte  // one-time public key
	S []byte                  // OP_PUSH <L> OP_CHECKLOCKTIMEVERIFY, nil if L==0
	T CoinType
}

// RctSignature carries the MLSAG ring-signature material for a transaction.
type RctSignature struct {
	I [32]byte   // preimage
	M []byte     // ring matrix, nRows*nCols*33 bytes
	P [32]byte   // shared challenge scalar
	S [][32]byte // response vector, nCols*nRows entries
}

// VinRecord carries the spent input's key image and the interleaved
// commitment/pubkey offsets buffer.
//
// KOffsets's layout preserves an observed quirk: pcm_in and pk_in are
// interleaved using the same running column counter for both, and that
// counter is never incremented past its initial pass, so the buffer does
// not contain what its name implies. This is intentional wire
// compatibility, not a bug left in by accident — see DESIGN.md.
type VinRecord struct {
	KImage   [crypto.PointSize]byte
	KOffsets []byte
}

// Transaction is the wallet's complete confidential transaction.
type Transaction struct {
	TxnId [32]byte
	Ver   byte
	Mix   uint16 // ring size == nCols used
	Bp    []byte // Bulletproof blob, change output only
	Rct   RctSignature
	Vin   VinRecord
	Vout  [3]Vout // [fee, payment, change]
	Id    uuid.UUID
}

// WalletTx is the wallet-side record of a transaction, receive or send.
type WalletTx struct {
	Id               uuid.UUID
	TxId             [32]byte
	DateTime         time.Time
	WalletType       WalletTxType
	Balance          Currency
	Payment          Currency
	Change           Currency
	Fee              Currency
	Reward           Currency
	Memo             string
	SenderAddress    string
	RecipientAddress string
	Spending         Vout
	Spent            bool
	Vout             []Vout
}

// Session is the unit the SessionStore manages: an in-flight draft plus the
// persistence handle backing it.
type Session struct {
	SessionId         uuid.UUID
	SessionType       SessionType
	WalletTransaction WalletTx
	LastError         *LastError
}

// LastError is the structured failure object SetLastError writes onto a
// session so a caller can inspect what went wrong without an exception
// propagating out of the facade.
type LastError struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BalanceSheet is one row of BalanceEngine.History's folded ledger.
type BalanceSheet struct {
	DateTime time.Time
	Type     WalletTxType
	Amount   Currency
	Address  string
}

// KeySet is one entry in a wallet's HD key tree.
type KeySet struct {
	ChainCode      [32]byte
	RootKey        [32]byte // scalar, encrypted at rest by the KeyLedger's store layer
	KeyPath        string
	StealthAddress string // base58: spend pub || scan pub || version || checksum
}
