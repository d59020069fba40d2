package keyledger

import (
	"crypto/sha256"
	"errors"
	"math/big"
)

// base58 encodes stealth addresses for display: a minimal Bitcoin-alphabet
// encoder with a 4-byte double-SHA256 checksum.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var errBase58Checksum = errors.New("keyledger: base58 checksum mismatch")

var base58Radix = big.NewInt(58)

func base58CheckEncode(payload []byte) string {
	checksum := doubleSHA256(payload)[:4]
	full := append(append([]byte{}, payload...), checksum...)

	zero := big.NewInt(0)
	n := new(big.Int).SetBytes(full)
	var out []byte
	for n.Cmp(zero) > 0 {
		mod := new(big.Int)
		n.DivMod(n, base58Radix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for _, b := range full {
		if b != 0 {
			break
		}
		out = append(out, base58Alphabet[0])
	}
	reverse(out)
	return string(out)
}

func base58CheckDecode(s string) ([]byte, error) {
	n := big.NewInt(0)
	for _, c := range s {
		idx := indexByte(base58Alphabet, byte(c))
		if idx < 0 {
			return nil, errBase58Checksum
		}
		n.Mul(n, base58Radix)
		n.Add(n, big.NewInt(int64(idx)))
	}
	full := n.Bytes()
	leadingZeros := 0
	for _, c := range s {
		if c != rune(base58Alphabet[0]) {
			break
		}
		leadingZeros++
	}
	full = append(make([]byte, leadingZeros), full...)

	if len(full) < 4 {
		return nil, errBase58Checksum
	}
	payload, checksum := full[:len(full)-4], full[len(full)-4:]
	want := doubleSHA256(payload)[:4]
	for i := range checksum {
		if checksum[i] != want[i] {
			return nil, errBase58Checksum
		}
	}
	return payload, nil
}

func doubleSHA256(b []byte) []byte {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return h2[:]
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func indexByte(alphabet string, c byte) int {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return i
		}
	}
	return -1
}
