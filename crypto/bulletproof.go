package crypto

import (
	"crypto/sha256"
	"errors"
)

// BulletproofBitLength is the number of bits a range proof covers: values
// are proven to lie in [0, 2^64).
const BulletproofBitLength = 64

// bitProof is a Chaum-Pedersen OR-proof that a single bit commitment opens
// to either 0 or 1, without revealing which. It is the building block the
// aggregate Proof composes BulletproofBitLength of.
type bitProof struct {
	A0, A1 Commit33
	E0, E1 Scalar
	S0, S1 Scalar
}

// Proof is a range proof demonstrating that a committed value lies in
// [0, 2^BulletproofBitLength) without revealing the value. It is built from
// per-bit Pedersen commitments plus an OR-proof per bit, which recombine
// homomorphically to the original commitment. A compressed Bulletproof
// would shrink this to logarithmic size via an inner-product argument; the
// per-bit form keeps the verification math auditable with the scalar and
// point primitives already in this package (see DESIGN.md).
type Proof struct {
	BitCommits [BulletproofBitLength]Commit33
	BitProofs  [BulletproofBitLength]bitProof
}

var (
	errRangeProofOverflow = errors.New("crypto: amount does not fit in the proof's bit length")
	errRangeProofMismatch = errors.New("crypto: range proof does not recombine to the supplied commitment")
	errProofShort         = errors.New("crypto: proof blob is shorter than the expected bitproof layout")
)

// bitProofWireSize is the flattened byte width of one bitProof: two
// 33-byte commitments plus four 32-byte scalars.
const bitProofWireSize = 2*PointSize + 4*ScalarSize

// Bytes serializes proof to a flat byte blob suitable for Transaction.Bp,
// since Proof's Scalar fields carry unexported internal representations a
// reflection-based codec like msgpack cannot see into.
func (p Proof) Bytes() []byte {
	out := make([]byte, 0, BulletproofBitLength*(PointSize+bitProofWireSize))
	for i := 0; i < BulletproofBitLength; i++ {
		out = append(out, p.BitCommits[i][:]...)
		bp := p.BitProofs[i]
		out = append(out, bp.A0[:]...)
		out = append(out, bp.A1[:]...)
		e0 := ScalarToBytes(&bp.E0)
		e1 := ScalarToBytes(&bp.E1)
		s0 := ScalarToBytes(&bp.S0)
		s1 := ScalarToBytes(&bp.S1)
		out = append(out, e0[:]...)
		out = append(out, e1[:]...)
		out = append(out, s0[:]...)
		out = append(out, s1[:]...)
	}
	return out
}

// ProofFromBytes parses a blob produced by Proof.Bytes.
func ProofFromBytes(b []byte) (Proof, error) {
	const perBit = PointSize + bitProofWireSize
	if len(b) != BulletproofBitLength*perBit {
		return Proof{}, errProofShort
	}
	var proof Proof
	for i := 0; i < BulletproofBitLength; i++ {
		off := i * perBit
		copy(proof.BitCommits[i][:], b[off:off+PointSize])
		off += PointSize

		var bp bitProof
		copy(bp.A0[:], b[off:off+PointSize])
		off += PointSize
		copy(bp.A1[:], b[off:off+PointSize])
		off += PointSize

		var e0, e1, s0, s1 [ScalarSize]byte
		copy(e0[:], b[off:off+ScalarSize])
		off += ScalarSize
		copy(e1[:], b[off:off+ScalarSize])
		off += ScalarSize
		copy(s0[:], b[off:off+ScalarSize])
		off += ScalarSize
		copy(s1[:], b[off:off+ScalarSize])

		bp.E0 = ScalarFromBytes(e0)
		bp.E1 = ScalarFromBytes(e1)
		bp.S0 = ScalarFromBytes(s0)
		bp.S1 = ScalarFromBytes(s1)
		proof.BitProofs[i] = bp
	}
	return proof, nil
}

// BulletproofGen produces a range proof that (amount, blind) is the opening
// of commit = Commit(amount, blind), and that amount lies in
// [0, 2^BulletproofBitLength). nonce seeds the per-bit proof randomness so
// that proof generation is reproducible given the same nonce, mirroring the
// nonce parameter of a real Bulletproof's deterministic-nonce construction.
func BulletproofGen(amount uint64, blind Scalar, nonce [32]byte) (Proof, error) {
	shiftLen := uint(BulletproofBitLength)
	if BulletproofBitLength < 64 && amount >= (uint64(1) << shiftLen) {
		return Proof{}, errRangeProofOverflow
	}

	var proof Proof
	var blindAcc Scalar // sum of 2^i * r_i for i=1..63, used to fix r_0

	bitBlinds := make([]Scalar, BulletproofBitLength)
	for i := 1; i < BulletproofBitLength; i++ {
		bitBlinds[i] = deterministicScalar(nonce, blindLabel, i)
		weight := ScalarFromUint64(uint64(1) << uint(i))
		var term Scalar
		term.Mul2(&weight, &bitBlinds[i])
		blindAcc.Add(&term)
	}
	// r_0 = blind - sum_{i>=1} 2^i r_i, so the bits recombine to `blind`.
	bitBlinds[0] = blind
	bitBlinds[0].Add(negateScalar(blindAcc))

	for i := 0; i < BulletproofBitLength; i++ {
		bit := (amount >> uint(i)) & 1
		c := Commit(bit, bitBlinds[i])
		proof.BitCommits[i] = c

		bp, err := proveBit(bit, bitBlinds[i], c, nonce, i)
		if err != nil {
			return Proof{}, err
		}
		proof.BitProofs[i] = bp
	}
	return proof, nil
}

// BulletproofVerify checks that proof is a valid range proof for commit.
func BulletproofVerify(commit Commit33, proof Proof) bool {
	recombined, err := recombineBitCommits(proof.BitCommits)
	if err != nil {
		return false
	}
	if recombined != commit {
		return false
	}
	for i, bc := range proof.BitCommits {
		if !verifyBit(bc, proof.BitProofs[i]) {
			return false
		}
	}
	return true
}

func recombineBitCommits(bitCommits [BulletproofBitLength]Commit33) (Commit33, error) {
	var acc Point
	for i, bc := range bitCommits {
		p, err := PointFromBytes(bc)
		if err != nil {
			return Commit33{}, err
		}
		weight := ScalarFromUint64(uint64(1) << uint(i))
		weighted := PointMul(&weight, &p)
		if i == 0 {
			acc = weighted
		} else {
			acc = PointAdd(&acc, &weighted)
		}
	}
	return PointToBytes(&acc), nil
}

// proveBit builds the Chaum-Pedersen OR-proof that c = bit*H + r*G opens to
// bit in {0,1}: branch 0 proves c = r*G, branch 1 proves c-H = r*G.
func proveBit(bit uint64, r Scalar, c Commit33, nonce [32]byte, index int) (bitProof, error) {
	cp, err := PointFromBytes(c)
	if err != nil {
		return bitProof{}, err
	}
	cMinusH := PointAdd(&cp, &negH)

	realBranch := int(bit)
	fakeBranch := 1 - realBranch

	kReal := deterministicScalar(nonce, proofLabel, index*3+1)
	eFake := deterministicScalar(nonce, proofLabel, index*3+2)
	sFake := deterministicScalar(nonce, proofLabel, index*3+3)

	var yFake Point
	if fakeBranch == 0 {
		yFake = cp
	} else {
		yFake = cMinusH
	}
	// A_fake = s_fake*G - e_fake*Y_fake
	sG := BasePointMul(&sFake)
	eY := PointMul(&eFake, &yFake)
	negEY := PointNegate(&eY)
	aFake := PointAdd(&sG, &negEY)

	aReal := BasePointMul(&kReal)

	var a0, a1 Point
	if realBranch == 0 {
		a0, a1 = aReal, aFake
	} else {
		a0, a1 = aFake, aReal
	}

	e := fiatShamirChallenge(c, PointToBytes(&a0), PointToBytes(&a1))

	var eReal Scalar
	eReal.Set(&e)
	eReal.Add(negateScalar(eFake))

	var sReal Scalar
	sReal.Set(&kReal)
	var erR Scalar
	erR.Mul2(&eReal, &r)
	sReal.Add(&erR)

	bp := bitProof{A0: PointToBytes(&a0), A1: PointToBytes(&a1)}
	if realBranch == 0 {
		bp.E0, bp.S0 = eReal, sReal
		bp.E1, bp.S1 = eFake, sFake
	} else {
		bp.E1, bp.S1 = eReal, sReal
		bp.E0, bp.S0 = eFake, sFake
	}
	return bp, nil
}

func verifyBit(c Commit33, bp bitProof) bool {
	cp, err := PointFromBytes(c)
	if err != nil {
		return false
	}
	cMinusH := PointAdd(&cp, &negH)

	e := fiatShamirChallenge(c, bp.A0, bp.A1)
	var eSum Scalar
	eSum.Set(&bp.E0)
	eSum.Add(&bp.E1)
	if eSum != e {
		return false
	}

	a0, err := PointFromBytes(bp.A0)
	if err != nil {
		return false
	}
	a1, err := PointFromBytes(bp.A1)
	if err != nil {
		return false
	}

	s0G := BasePointMul(&bp.S0)
	e0Y0 := PointMul(&bp.E0, &cp)
	rhs0 := PointAdd(&a0, &e0Y0)
	if !PointEqual(&s0G, &rhs0) {
		return false
	}

	s1G := BasePointMul(&bp.S1)
	e1Y1 := PointMul(&bp.E1, &cMinusH)
	rhs1 := PointAdd(&a1, &e1Y1)
	return PointEqual(&s1G, &rhs1)
}

var negH = func() Point {
	h := HPoint
	return PointNegate(&h)
}()

func fiatShamirChallenge(parts ...[33]byte) Scalar {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p[:])
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return ScalarFromBytes(sum)
}

const (
	// blindLabel and proofLabel keep the per-bit blinding factors and the
	// per-bit Schnorr nonces in disjoint derivation streams. Sharing a
	// stream would publish a blinding factor's base-point multiple as
	// another bit's A commitment.
	blindLabel = "cloakwallet-bp-blind"
	proofLabel = "cloakwallet-bp-nonce"
)

// deterministicScalar derives pseudo-random-but-reproducible scalars from a
// 32-byte nonce, a derivation label and an integer tag, used to make
// BulletproofGen's randomness a pure function of its nonce argument. Falls
// back to fastrand only if the caller supplies an all-zero nonce (treated
// as "give me fresh randomness").
func deterministicScalar(nonce [32]byte, label string, tag int) Scalar {
	if nonce == ([32]byte{}) {
		return RandomScalar()
	}
	var tagBytes [8]byte
	putUint64(tagBytes[:], uint64(tag))
	return HashToScalar([]byte(label), nonce[:], tagBytes[:])
}
