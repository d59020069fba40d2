// Package balance implements BalanceEngine: walking a wallet's stored
// transactions to compute available balance, per-address totals and a
// displayable history.
package balance

import (
	"sort"

	"github.com/threefoldtech/cloakwallet/crypto"
	"github.com/threefoldtech/cloakwallet/types"
)

// Available computes the wallet's spendable balance. This is a
// single-UTXO model: the third output (change) of the most recent Send is
// treated as the only spendable input, not a general sum over every
// unspent output — if there is no prior Send, all decrypted Receive
// amounts are summed instead.
func Available(scan crypto.Scalar, txs []types.WalletTx) (uint64, error) {
	var received uint64
	var lastSend *types.WalletTx

	for i := range txs {
		tx := &txs[i]
		switch tx.WalletType {
		case types.WalletTxReceive:
			amount, err := decryptVoutAmount(scan, changeSlotVout(tx))
			if err != nil {
				return 0, err
			}
			received += amount
		case types.WalletTxSend:
			if lastSend == nil || tx.DateTime.After(lastSend.DateTime) {
				lastSend = tx
			}
		}
	}

	if lastSend == nil {
		return received, nil
	}
	if len(lastSend.Vout) < 3 {
		return 0, nil
	}
	return decryptVoutAmount(scan, lastSend.Vout[2])
}

// TotalAmount sums Change over every WalletTx whose SenderAddress matches
// address.
func TotalAmount(address string, txs []types.WalletTx) types.Currency {
	var total types.Currency
	for _, tx := range txs {
		if tx.SenderAddress == address {
			total += tx.Change
		}
	}
	return total
}

// History folds Receives (money-in) and Sends (money-out = previous
// received minus change minus fee) into an ordered BalanceSheet.
func History(txs []types.WalletTx) []types.BalanceSheet {
	sorted := append([]types.WalletTx(nil), txs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DateTime.Before(sorted[j].DateTime) })

	sheet := make([]types.BalanceSheet, 0, len(sorted))
	for _, tx := range sorted {
		switch tx.WalletType {
		case types.WalletTxReceive:
			sheet = append(sheet, types.BalanceSheet{
				DateTime: tx.DateTime,
				Type:     types.WalletTxReceive,
				Amount:   tx.Balance,
				Address:  tx.SenderAddress,
			})
		case types.WalletTxSend:
			spent := tx.Balance - tx.Change - tx.Fee
			sheet = append(sheet, types.BalanceSheet{
				DateTime: tx.DateTime,
				Type:     types.WalletTxSend,
				Amount:   spent,
				Address:  tx.RecipientAddress,
			})
		}
	}
	return sheet
}

// changeSlotVout picks the per-transaction "change slot" CalculateChange
// also uses: index 0 if the tx has no cached Change amount yet, else index 2.
func changeSlotVout(tx *types.WalletTx) types.Vout {
	return ChangeSlotVout(tx)
}

// ChangeSlotVout is the exported form of the same "change slot" pick
// TransactionBuilder.CalculateChange uses to enumerate candidate change
// outputs across the wallet's stored transactions.
func ChangeSlotVout(tx *types.WalletTx) types.Vout {
	if tx.Change == 0 && len(tx.Vout) > 0 {
		return tx.Vout[0]
	}
	if len(tx.Vout) > 2 {
		return tx.Vout[2]
	}
	if len(tx.Vout) > 0 {
		return tx.Vout[0]
	}
	return types.Vout{}
}

// DecryptVoutAmount decrypts v's N payload under scan and returns the
// opened amount, or v.A directly when the output has no N payload.
func DecryptVoutAmount(scan crypto.Scalar, v types.Vout) (uint64, error) {
	return decryptVoutAmount(scan, v)
}

func decryptVoutAmount(scan crypto.Scalar, v types.Vout) (uint64, error) {
	if len(v.N) == 0 {
		return uint64(v.A), nil
	}
	plain, err := crypto.BoxDecrypt(scan, v.N)
	if err != nil {
		return 0, err
	}
	if len(plain) < 8 {
		return 0, nil
	}
	var amount uint64
	for i := 0; i < 8; i++ {
		amount = (amount << 8) | uint64(plain[i])
	}
	return amount, nil
}
