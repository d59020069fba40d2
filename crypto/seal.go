package crypto

import (
	"crypto/cipher"
	"errors"

	"github.com/NebulousLabs/fastrand"
	"golang.org/x/crypto/twofish"
)

// TwofishKey is a symmetric key for encrypting secret material at rest
// (seed files, key-set blobs).
type TwofishKey [32]byte

var (
	errCiphertextShort = errors.New("crypto: ciphertext shorter than nonce")
	errKeySize         = errors.New("crypto: twofish key must be 32 bytes")
)

// NewTwofishKey draws a fresh random key.
func NewTwofishKey() TwofishKey {
	var k TwofishKey
	fastrand.Read(k[:])
	return k
}

// EncryptBytes seals plaintext under k using Twofish-GCM, prefixing the
// nonce to the returned ciphertext.
func (k TwofishKey) EncryptBytes(plaintext []byte) ([]byte, error) {
	gcm, err := k.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	fastrand.Read(nonce)
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptBytes opens a payload produced by EncryptBytes.
func (k TwofishKey) DecryptBytes(ciphertext []byte) ([]byte, error) {
	gcm, err := k.gcm()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errCiphertextShort
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func (k TwofishKey) gcm() (cipher.AEAD, error) {
	block, err := twofish.NewCipher(k[:])
	if err != nil {
		return nil, errKeySize
	}
	return cipher.NewGCM(block)
}
