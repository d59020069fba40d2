package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"github.com/NebulousLabs/fastrand"
	"golang.org/x/crypto/nacl/secretbox"
)

var errBoxDecrypt = errors.New("crypto: sealed box authentication failed")

// BoxEncrypt seals plaintext for recipientScan with an ephemeral keypair the
// caller never sees again: an ECDH shared point keys a one-shot secretbox,
// and the ephemeral public key is prefixed to the ciphertext so the
// recipient can open it knowing only their scan private key.
func BoxEncrypt(recipientScan Point, plaintext []byte) ([]byte, error) {
	eph := RandomScalar()
	defer SecureWipeScalar(&eph)
	ephPub := BasePointMul(&eph)
	ephPubBytes := PointToBytes(&ephPub)

	shared := PointMul(&eph, &recipientScan)
	key := boxKey(&shared)

	var nonce [24]byte
	fastrand.Read(nonce[:])

	out := make([]byte, 0, PointSize+len(nonce)+len(plaintext)+secretbox.Overhead)
	out = append(out, ephPubBytes[:]...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, &key), nil
}

// BoxDecrypt opens a payload produced by BoxEncrypt using the recipient's
// scan scalar, recovering the sender's ephemeral public key from the
// envelope's leading PointSize bytes.
func BoxDecrypt(scanPriv Scalar, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < PointSize+24+secretbox.Overhead {
		return nil, errBoxDecrypt
	}
	var ephPubBytes [PointSize]byte
	copy(ephPubBytes[:], ciphertext[:PointSize])
	ephPub, err := PointFromBytes(ephPubBytes)
	if err != nil {
		return nil, errBoxDecrypt
	}

	shared := PointMul(&scanPriv, &ephPub)
	key := boxKey(&shared)

	var nonce [24]byte
	copy(nonce[:], ciphertext[PointSize:PointSize+24])

	out, ok := secretbox.Open(nil, ciphertext[PointSize+24:], &nonce, &key)
	if !ok {
		return nil, errBoxDecrypt
	}
	return out, nil
}

// boxKey derives the secretbox key from an ECDH shared point.
func boxKey(shared *Point) [32]byte {
	b := PointToBytes(shared)
	return sha256.Sum256(append([]byte("cloakwallet-box-key"), b[:]...))
}

// fastrandReader adapts fastrand's package-level Read to an io.Reader,
// keeping the same CSPRNG the rest of crypto uses instead of pulling in
// crypto/rand as a second source of randomness.
type fastrandReader struct{}

func (fastrandReader) Read(p []byte) (int, error) {
	fastrand.Read(p)
	return len(p), nil
}

// RandReader exposes the package CSPRNG as an io.Reader for callers that
// need reader-shaped randomness, such as box keypair generation.
func RandReader() io.Reader {
	return fastrandReader{}
}
