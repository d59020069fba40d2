// Package crypto provides the thin semantic wrappers over curve operations
// that the rest of cloakwallet builds on: scalar/point arithmetic, Pedersen
// commitments, Bulletproof range proofs, MLSAG ring signatures, stealth
// address derivation and sealed-box encryption of output memos.
//
// Every primitive here returns a success flag or an error; none of them
// panic on bad input.
package crypto

import (
	"crypto/sha256"
	"errors"

	"github.com/NebulousLabs/fastrand"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// ScalarSize is the width of a serialized scalar, in bytes.
	ScalarSize = 32
	// PointSize is the width of a serialized (compressed) curve point.
	PointSize = 33
)

type (
	// Scalar is an element of the secp256k1 scalar field, used for blinding
	// factors, one-time private keys and nonces.
	Scalar = secp256k1.ModNScalar

	// Point is a secp256k1 curve point in Jacobian form. Use PointToBytes /
	// PointFromBytes to move it across the wire as a 33-byte compressed key.
	Point = secp256k1.JacobianPoint
)

var errInvalidPoint = errors.New("crypto: invalid curve point encoding")

// RandomScalar draws a uniformly random, non-zero scalar from fastrand,
// the single CSPRNG every key, blind and nonce in this package comes from.
func RandomScalar() Scalar {
	var s Scalar
	for {
		var b [ScalarSize]byte
		fastrand.Read(b[:])
		overflow := s.SetBytes(&b)
		if overflow == 0 && !s.IsZero() {
			return s
		}
	}
}

// ScalarFromUint64 encodes a 64-bit unsigned integer as a scalar.
func ScalarFromUint64(v uint64) Scalar {
	var b [ScalarSize]byte
	for i := 0; i < 8; i++ {
		b[ScalarSize-1-i] = byte(v)
		v >>= 8
	}
	return ScalarFromBytes(b)
}

// ScalarFromBytes decodes a 32-byte big-endian buffer into a scalar,
// reducing modulo the group order.
func ScalarFromBytes(b [ScalarSize]byte) Scalar {
	var s Scalar
	s.SetBytes(&b)
	return s
}

// ScalarToBytes serializes a scalar to its canonical 32-byte big-endian form.
func ScalarToBytes(s *Scalar) [ScalarSize]byte {
	return s.Bytes()
}

// HashToScalar reduces an arbitrary-length message into a scalar via
// SHA-256, used to derive deterministic blinds and nonces from domain
// separated inputs (e.g. BlindSwitch).
func HashToScalar(parts ...[]byte) Scalar {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var sum [ScalarSize]byte
	copy(sum[:], h.Sum(nil))
	return ScalarFromBytes(sum)
}

// BasePointMul computes s*G, the curve's standard base point.
func BasePointMul(s *Scalar) Point {
	var r Point
	secp256k1.ScalarBaseMultNonConst(s, &r)
	return r
}

// PointMul computes s*P for an arbitrary point P.
func PointMul(s *Scalar, p *Point) Point {
	var r Point
	secp256k1.ScalarMultNonConst(s, p, &r)
	return r
}

// PointAdd computes p1+p2.
func PointAdd(p1, p2 *Point) Point {
	var r Point
	secp256k1.AddNonConst(p1, p2, &r)
	return r
}

// negateScalar returns -s without mutating the caller's copy (ModNScalar's
// own Negate method negates in place, which is easy to trip over when the
// original value is still needed afterwards).
func negateScalar(s Scalar) *Scalar {
	return s.Negate()
}

// PointNegate computes -p.
func PointNegate(p *Point) Point {
	affine := *p
	affine.ToAffine()
	y := affine.Y
	y.Negate(1).Normalize()
	var r Point
	r.X = affine.X
	r.Y = y
	r.Z.SetInt(1)
	return r
}

// PointEqual reports whether two points represent the same affine coordinate.
func PointEqual(p1, p2 *Point) bool {
	a1, a2 := *p1, *p2
	a1.ToAffine()
	a2.ToAffine()
	return a1.X == a2.X && a1.Y == a2.Y
}

// PointToBytes serializes a point to its 33-byte compressed form.
func PointToBytes(p *Point) [PointSize]byte {
	affine := *p
	affine.ToAffine()
	pub := secp256k1.NewPublicKey(&affine.X, &affine.Y)
	var out [PointSize]byte
	copy(out[:], pub.SerializeCompressed())
	return out
}

// PointFromBytes parses a 33-byte compressed point.
func PointFromBytes(b [PointSize]byte) (Point, error) {
	pub, err := secp256k1.ParsePubKey(b[:])
	if err != nil {
		return Point{}, errInvalidPoint
	}
	var p Point
	pub.AsJacobian(&p)
	return p, nil
}

// HPoint is the Pedersen blinding generator H, chosen nothing-up-my-sleeve
// by hashing a domain-separation string to a curve point via the standard
// try-and-increment method. log_G(H) is unknown to anyone, which is the
// property commit() relies on to be hiding.
var HPoint = deriveNUMSPoint("cloakwallet-pedersen-H")

func deriveNUMSPoint(label string) Point {
	counter := byte(0)
	for {
		h := sha256.Sum256(append([]byte(label), counter))
		pub, err := secp256k1.ParsePubKey(append([]byte{0x02}, h[:]...))
		if err == nil {
			var p Point
			pub.AsJacobian(&p)
			return p
		}
		counter++
	}
}
