package crypto

// StealthAddress is the long-term (spend, scan) public key pair a payer
// encodes a payment against. Spend never appears on the wire; only the
// one-time public key P derived from it does.
type StealthAddress struct {
	Spend Point
	Scan  Point
}

// StealthPayment is the sender-side output of CreatePayment: the ephemeral
// key the recipient needs, alongside bookkeeping the caller folds into the
// Vout it is assembling.
type StealthPayment struct {
	Ephemeral Point
}

// CreatePayment derives a fresh one-time public key for address, given an
// ephemeral scalar the caller has already drawn (RandomScalar). It mirrors
// the dual-key stealth scheme: P = H(e*scan)*G + spend.
func CreatePayment(address StealthAddress, ephemeral Scalar) (Point, StealthPayment, error) {
	shared := PointMul(&ephemeral, &address.Scan)
	sharedBytes := PointToBytes(&shared)
	tweak := HashToScalar([]byte("cloakwallet-stealth-tweak"), sharedBytes[:])

	tweakG := BasePointMul(&tweak)
	p := PointAdd(&tweakG, &address.Spend)

	ephemeralPub := BasePointMul(&ephemeral)
	return p, StealthPayment{Ephemeral: ephemeralPub}, nil
}

// Uncover recovers the one-time private key for an output addressed to the
// caller's (spend, scan) keypair, given the ephemeral public key E carried
// on the output: x = H(scan*E) + spendPriv.
func Uncover(scan, spend Scalar, ephemeralPub Point) Scalar {
	shared := PointMul(&scan, &ephemeralPub)
	sharedBytes := PointToBytes(&shared)
	tweak := HashToScalar([]byte("cloakwallet-stealth-tweak"), sharedBytes[:])

	var x Scalar
	x.Set(&tweak)
	x.Add(&spend)
	return x
}

// UncoverPub recomputes only the public half of Uncover, used by
// OutputScanner to test candidacy without reconstituting a private scalar
// it would otherwise have to zero.
func UncoverPub(scan Scalar, spendPub, ephemeralPub Point) Point {
	shared := PointMul(&scan, &ephemeralPub)
	sharedBytes := PointToBytes(&shared)
	tweak := HashToScalar([]byte("cloakwallet-stealth-tweak"), sharedBytes[:])

	tweakG := BasePointMul(&tweak)
	return PointAdd(&tweakG, &spendPub)
}
