package crypto

import "testing"

func TestBulletproofRoundTrip(t *testing.T) {
	blind := RandomScalar()
	var nonce [32]byte
	nonce[0] = 7

	const amount = 6_999_928_000
	commit := Commit(amount, blind)

	proof, err := BulletproofGen(amount, blind, nonce)
	if err != nil {
		t.Fatalf("BulletproofGen: %v", err)
	}
	if !BulletproofVerify(commit, proof) {
		t.Fatal("BulletproofVerify rejected a valid proof")
	}

	other := Commit(amount+1, blind)
	if BulletproofVerify(other, proof) {
		t.Fatal("BulletproofVerify accepted a proof for the wrong commitment")
	}
}

func TestBulletproofZeroAndMax(t *testing.T) {
	for _, amount := range []uint64{0, 1, 1<<64 - 1} {
		blind := RandomScalar()
		var nonce [32]byte
		nonce[31] = byte(amount)

		proof, err := BulletproofGen(amount, blind, nonce)
		if err != nil {
			t.Fatalf("BulletproofGen(%d): %v", amount, err)
		}
		if !BulletproofVerify(Commit(amount, blind), proof) {
			t.Fatalf("BulletproofVerify rejected amount %d", amount)
		}
	}
}

func TestBulletproofTamperedBitFails(t *testing.T) {
	blind := RandomScalar()
	var nonce [32]byte
	nonce[5] = 3

	proof, err := BulletproofGen(1234, blind, nonce)
	if err != nil {
		t.Fatalf("BulletproofGen: %v", err)
	}

	tampered := proof
	tampered.BitProofs[3].S0 = RandomScalar()
	if BulletproofVerify(Commit(1234, blind), tampered) {
		t.Fatal("BulletproofVerify accepted a tampered response scalar")
	}
}

func TestProofBytesRoundTrip(t *testing.T) {
	blind := RandomScalar()
	var nonce [32]byte
	nonce[9] = 1

	proof, err := BulletproofGen(42, blind, nonce)
	if err != nil {
		t.Fatalf("BulletproofGen: %v", err)
	}

	parsed, err := ProofFromBytes(proof.Bytes())
	if err != nil {
		t.Fatalf("ProofFromBytes: %v", err)
	}
	if !BulletproofVerify(Commit(42, blind), parsed) {
		t.Fatal("round-tripped proof no longer verifies")
	}

	if _, err := ProofFromBytes(proof.Bytes()[:10]); err == nil {
		t.Fatal("ProofFromBytes accepted a truncated blob")
	}
}
