package crypto

import (
	"errors"

	bip39 "github.com/FactomProject/go-bip39"
)

var (
	errMnemonicWordCount = errors.New("crypto: unsupported mnemonic word count")
	errMnemonicInvalid   = errors.New("crypto: mnemonic failed checksum validation")
)

// wordCountToEntropyBits maps the supported BIP-39 word counts to their
// entropy width, per the standard's fixed 32:1 checksum-bit ratio.
var wordCountToEntropyBits = map[int]int{
	12: 128,
	15: 160,
	18: 192,
	21: 224,
	24: 256,
}

// NewMnemonic generates a fresh BIP-39 mnemonic of the requested word count.
func NewMnemonic(wordCount int) (string, error) {
	bits, ok := wordCountToEntropyBits[wordCount]
	if !ok {
		return "", errMnemonicWordCount
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// MnemonicToSeed derives the 64-byte BIP-39 seed from a mnemonic and an
// optional passphrase, validating the mnemonic's checksum first.
func MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errMnemonicInvalid
	}
	return bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
}
