// Package txbuilder assembles confidential spending transactions: it
// selects the output to spend, balances fee, payment and change commitments
// against the input, produces the change range proof and the ring
// signature, and self-verifies every proof it emits before the transaction
// leaves the builder.
package txbuilder

import (
	"context"
	"encoding/binary"
	"sort"
	"time"

	"github.com/NebulousLabs/fastrand"
	"github.com/google/uuid"

	"github.com/threefoldtech/cloakwallet/balance"
	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/ring"
	"github.com/threefoldtech/cloakwallet/scanner"
	"github.com/threefoldtech/cloakwallet/types"
	"github.com/threefoldtech/cloakwallet/walleterr"
)

// Wire-exact protocol constants. Changing any of these breaks consensus
// with the node.
const (
	NRows    = 2
	NCols    = 22
	FeeNByte = 6000

	// feeAtomicPerByte folds FeeRate (1.2e-8 coins/byte) and the atomic-unit
	// scale (1 coin = 1e9 atomic units) into a single integer multiplier:
	// 1.2e-8 * 1e9 == 12.
	feeAtomicPerByte = 12

	feeLocktimeOffset    = 21 * time.Hour
	changeLocktimeOffset = 5 * time.Minute

	decoyPollInterval = 100 * time.Millisecond

	// CoinstakeReward is the block reward a Coinstake session's fee output
	// exposes in place of a transaction fee. The reward schedule lives in
	// the consensus layer on the node; a deployment should source this from
	// the node over RPC rather than rely on the constant. See DESIGN.md.
	CoinstakeReward types.Currency = 10_000_000_000
)

const (
	opPush                = 0x01
	opCheckLockTimeVerify = 0xb1
)

// Fee computes the flat per-byte fee over nByte, in atomic units.
func Fee(nByte uint64) types.Currency {
	return types.Currency(nByte * feeAtomicPerByte)
}

// CalculateChange enumerates every stored transaction's change slot and
// stages a Send draft against the selected one. Selection sorts candidates
// descending by decrypted change and takes the tail: the smallest change
// overall, not the smallest that still covers payment+fee. That policy is
// preserved deliberately for compatibility; see DESIGN.md before changing
// it.
func CalculateChange(scan crypto.Scalar, txs []types.WalletTx, sessionType types.SessionType, payment types.Currency, memo, senderAddress, recipientAddress string) (types.WalletTx, error) {
	avail, err := balance.Available(scan, txs)
	if err != nil {
		return types.WalletTx{}, walleterr.New(walleterr.KindStoreError, err)
	}

	type candidate struct {
		tx     types.WalletTx
		vout   types.Vout
		amount uint64
	}
	candidates := make([]candidate, 0, len(txs))
	for _, tx := range txs {
		v := balance.ChangeSlotVout(&tx)
		amount, err := balance.DecryptVoutAmount(scan, v)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{tx: tx, vout: v, amount: amount})
	}
	if len(candidates) == 0 {
		return types.WalletTx{}, walleterr.Newf(walleterr.KindInsufficientFunds, "txbuilder: no stored transaction carries a spendable change output")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].amount > candidates[j].amount })
	selected := candidates[len(candidates)-1]

	var fee, reward types.Currency
	if sessionType == types.SessionTypeCoin {
		fee = Fee(FeeNByte)
	} else {
		reward = CoinstakeReward
	}

	if avail < uint64(payment)+uint64(fee) {
		return types.WalletTx{}, walleterr.Newf(walleterr.KindInsufficientFunds, "txbuilder: balance does not cover payment plus fee")
	}
	change := types.Currency(avail) - payment - fee

	return types.WalletTx{
		WalletType:       types.WalletTxSend,
		Balance:          types.Currency(avail),
		Payment:          payment,
		Fee:              fee,
		Reward:           reward,
		Change:           change,
		Memo:             memo,
		SenderAddress:    senderAddress,
		RecipientAddress: recipientAddress,
		Spending:         selected.vout,
		Vout:             selected.tx.Vout,
		Spent:            types.Currency(avail) == payment,
	}, nil
}

// Build waits for the decoy pool to be ready, assembles the MLSAG ring,
// balances and proves the three output commitments (fee, payment, change),
// generates and self-verifies the MLSAG signature, and assembles the final
// Transaction. Every self-verification failure is fatal and returned as a
// walleterr.KindCryptoVerifyFailure; the build is never retried.
func Build(ctx context.Context, provider ring.DecoyProvider, sessionID uuid.UUID, draft types.WalletTx, sessionType types.SessionType, spend, scan crypto.Scalar, senderAddress, recipientAddress crypto.StealthAddress) (types.Transaction, types.WalletTx, error) {
	if err := waitForDecoys(ctx, provider); err != nil {
		return types.Transaction{}, types.WalletTx{}, err
	}

	ephemeralPub, err := crypto.PointFromBytes(draft.Spending.E)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindStoreError, err)
	}
	spendPrivOneTime := crypto.Uncover(scan, spend, ephemeralPub)
	defer crypto.SecureWipeScalar(&spendPrivOneTime)

	opened, err := scanner.DecryptPayload(scan, draft.Spending)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}

	assembled, err := ring.Assemble(provider, NCols, draft.Spending, spendPrivOneTime, ring.DecryptedOutput{Amount: opened.Amount, Blind: opened.Blind})
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}

	m := make([]crypto.Commit33, NCols*NRows)
	copy(m[:NCols], assembled.M)

	fee := draft.Fee

	r1, r2, r3 := crypto.RandomScalar(), crypto.RandomScalar(), crypto.RandomScalar()
	b1 := crypto.BlindSwitch(uint64(fee), r1)
	b2 := crypto.BlindSwitch(uint64(draft.Payment), r2)
	b3 := crypto.BlindSwitch(uint64(draft.Change), r3)

	pcmOut := []crypto.Commit33{
		crypto.Commit(uint64(fee), b1),
		crypto.Commit(uint64(draft.Payment), b2),
		crypto.Commit(uint64(draft.Change), b3),
	}

	selfSum, err := crypto.CommitSum(pcmOut, nil)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}
	if !crypto.VerifyCommitSum([]crypto.Commit33{selfSum}, pcmOut) {
		return types.Transaction{}, types.WalletTx{}, walleterr.Newf(walleterr.KindCryptoVerifyFailure, "txbuilder: output commitments do not self-balance")
	}

	var bpNonce [32]byte
	fastrand.Read(bpNonce[:])
	proof, err := crypto.BulletproofGen(uint64(draft.Change), b3, bpNonce)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}
	if !crypto.BulletproofVerify(pcmOut[2], proof) {
		return types.Transaction{}, types.WalletTx{}, walleterr.Newf(walleterr.KindCryptoVerifyFailure, "txbuilder: change range proof failed self-verification")
	}

	blindSum, err := crypto.MLSAGPrepare(m, []crypto.Scalar{assembled.Blind0}, []crypto.Scalar{b1, b2, b3}, NCols, NRows, assembled.PcmIn, pcmOut)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}
	sk := []crypto.Scalar{assembled.Sk0, blindSum}

	var randSeed, preimage [32]byte
	fastrand.Read(randSeed[:])
	fastrand.Read(preimage[:])

	ki, pc, ss, err := crypto.MLSAGGenerate(m, sk, assembled.Index, NCols, NRows, randSeed, preimage)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}
	if !crypto.MLSAGVerify(preimage, m, ki, pc, ss, NCols, NRows) {
		return types.Transaction{}, types.WalletTx{}, walleterr.Newf(walleterr.KindCryptoVerifyFailure, "txbuilder: MLSAG signature failed self-verification")
	}

	now := time.Now()

	var feeCoinType types.CoinType
	var feeExposed uint64
	if sessionType == types.SessionTypeCoinstake {
		feeCoinType = types.CoinTypeCoinbase
		feeExposed = uint64(draft.Reward)
	} else {
		feeCoinType = types.CoinTypeFee
		feeExposed = uint64(fee)
	}

	var paymentCoinType types.CoinType
	var paymentExposed uint64
	if sessionType == types.SessionTypeCoinstake {
		paymentCoinType = types.CoinTypeCoinstake
		paymentExposed = uint64(draft.Payment)
	} else {
		paymentCoinType = types.CoinTypeCoin
	}

	feeOut, err := makeOutput(senderAddress, feeExposed, uint64(fee), b1, "", now.Add(feeLocktimeOffset), feeCoinType)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}
	paymentOut, err := makeOutput(recipientAddress, paymentExposed, uint64(draft.Payment), b2, draft.Memo, time.Time{}, paymentCoinType)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}
	changeOut, err := makeOutput(senderAddress, 0, uint64(draft.Change), b3, "", now.Add(changeLocktimeOffset), types.CoinTypeCoin)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindCryptoVerifyFailure, err)
	}

	bpBytes := proof.Bytes()

	ss32 := make([][32]byte, len(ss))
	for i, s := range ss {
		ss32[i] = crypto.ScalarToBytes(&s)
	}

	tx := types.Transaction{
		Ver: 1,
		Mix: uint16(NCols),
		Bp:  bpBytes,
		Rct: types.RctSignature{
			I: preimage,
			M: flattenMatrix(m),
			P: crypto.ScalarToBytes(&pc),
			S: ss32,
		},
		Vin: types.VinRecord{
			KImage:   crypto.PointToBytes(&ki),
			KOffsets: buildKOffsets(assembled.PcmIn, assembled.PkIn, NCols, NRows),
		},
		Vout: [3]types.Vout{feeOut, paymentOut, changeOut},
		Id:   sessionID,
	}
	txnID, err := types.ComputeTxnId(tx)
	if err != nil {
		return types.Transaction{}, types.WalletTx{}, walleterr.New(walleterr.KindStoreError, err)
	}
	tx.TxnId = txnID

	wtx := draft
	wtx.Id = tx.Id
	wtx.TxId = txnID
	wtx.DateTime = now
	wtx.WalletType = types.WalletTxSend
	wtx.Vout = []types.Vout{feeOut, paymentOut, changeOut}

	return tx, wtx, nil
}

func waitForDecoys(ctx context.Context, provider ring.DecoyProvider) error {
	if !provider.IsDownloading() {
		return nil
	}
	ticker := time.NewTicker(decoyPollInterval)
	defer ticker.Stop()
	for provider.IsDownloading() {
		select {
		case <-ctx.Done():
			return walleterr.Newf(walleterr.KindCancelRequested, "txbuilder: build cancelled while waiting for the decoy pool")
		case <-ticker.C:
		}
	}
	return nil
}

func makeOutput(address crypto.StealthAddress, exposedAmount, payloadAmount uint64, blind crypto.Scalar, memo string, locktime time.Time, coinType types.CoinType) (types.Vout, error) {
	ephemeral := crypto.RandomScalar()
	onePub, sp, err := crypto.CreatePayment(address, ephemeral)
	if err != nil {
		return types.Vout{}, err
	}
	n, err := crypto.BoxEncrypt(address.Scan, scanner.EncodeMessage(payloadAmount, blind, memo))
	if err != nil {
		return types.Vout{}, err
	}

	var l uint32
	var script []byte
	if !locktime.IsZero() {
		l = uint32(locktime.Unix())
		script = encodeLocktimeScript(l)
	}

	return types.Vout{
		A: types.Currency(exposedAmount),
		C: crypto.Commit(payloadAmount, blind),
		E: crypto.PointToBytes(&sp.Ephemeral),
		L: l,
		N: n,
		P: crypto.PointToBytes(&onePub),
		S: script,
		T: coinType,
	}, nil
}

func encodeLocktimeScript(l uint32) []byte {
	script := make([]byte, 0, 6)
	script = append(script, opPush)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], l)
	script = append(script, buf[:]...)
	script = append(script, opCheckLockTimeVerify)
	return script
}

func flattenMatrix(m []crypto.Commit33) []byte {
	out := make([]byte, 0, len(m)*crypto.PointSize)
	for _, c := range m {
		out = append(out, c[:]...)
	}
	return out
}

// buildKOffsets assembles Vin.KOffsets. This preserves an observed wire
// quirk rather than fixing it (see DESIGN.md open question 2): the
// interleave loop writes both pcm_in[i] and pk_in[i] using a running output
// index k that is initialized once and never incremented, so every
// iteration overwrites the buffer's first two PointSize slots instead of
// advancing through all nRows*nCols of them — the field name KOffsets
// implies a full offsets table, but the wire-observed buffer only ever
// carries the last column's pair, with everything after it left zero.
func buildKOffsets(pcmIn, pkIn []crypto.Commit33, nCols, nRows int) []byte {
	buf := make([]byte, nRows*nCols*crypto.PointSize)
	k := 0
	for i := 0; i < nCols; i++ {
		copy(buf[k*crypto.PointSize:], pcmIn[i][:])
		copy(buf[(k+1)*crypto.PointSize:], pkIn[i][:])
	}
	return buf
}
