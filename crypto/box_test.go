package crypto

import (
	"bytes"
	"testing"
)

func TestBoxRoundTrip(t *testing.T) {
	scan := RandomScalar()
	scanPub := BasePointMul(&scan)

	plaintext := []byte("amount|blind|memo payload")
	sealed, err := BoxEncrypt(scanPub, plaintext)
	if err != nil {
		t.Fatalf("BoxEncrypt: %v", err)
	}

	opened, err := BoxDecrypt(scan, sealed)
	if err != nil {
		t.Fatalf("BoxDecrypt: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("got %q, want %q", opened, plaintext)
	}
}

func TestBoxWrongKeyFails(t *testing.T) {
	scan := RandomScalar()
	scanPub := BasePointMul(&scan)

	sealed, err := BoxEncrypt(scanPub, []byte("secret"))
	if err != nil {
		t.Fatalf("BoxEncrypt: %v", err)
	}

	other := RandomScalar()
	if _, err := BoxDecrypt(other, sealed); err == nil {
		t.Fatal("BoxDecrypt succeeded under the wrong scan key")
	}
}

func TestBoxTamperFails(t *testing.T) {
	scan := RandomScalar()
	scanPub := BasePointMul(&scan)

	sealed, err := BoxEncrypt(scanPub, []byte("secret"))
	if err != nil {
		t.Fatalf("BoxEncrypt: %v", err)
	}
	sealed[len(sealed)-1] ^= 0x01
	if _, err := BoxDecrypt(scan, sealed); err == nil {
		t.Fatal("BoxDecrypt accepted a tampered ciphertext")
	}

	if _, err := BoxDecrypt(scan, sealed[:10]); err == nil {
		t.Fatal("BoxDecrypt accepted a truncated ciphertext")
	}
}

func TestStealthUncoverMatchesCreatePayment(t *testing.T) {
	spend, scan := RandomScalar(), RandomScalar()
	address := StealthAddress{Spend: BasePointMul(&spend), Scan: BasePointMul(&scan)}

	ephemeral := RandomScalar()
	oneTimePub, sp, err := CreatePayment(address, ephemeral)
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	oneTimePriv := Uncover(scan, spend, sp.Ephemeral)
	recovered := BasePointMul(&oneTimePriv)
	if !PointEqual(&recovered, &oneTimePub) {
		t.Fatal("Uncover's private key does not match CreatePayment's public key")
	}

	viaPub := UncoverPub(scan, address.Spend, sp.Ephemeral)
	if !PointEqual(&viaPub, &oneTimePub) {
		t.Fatal("UncoverPub disagrees with CreatePayment")
	}
}
