package crypto

import (
	"crypto/sha256"
	"errors"
)

// MLSAG row/column layout: row 0 holds one-time public keys, row 1 holds the
// commitment-difference points MLSAGPrepare fills in. A ring matrix is
// stored row-major (entry r*nCols+col), nRows*nCols entries of PointSize
// bytes each.

var (
	errMLSAGShape     = errors.New("crypto: MLSAG matrix dimensions do not match ncols/nrows")
	errMLSAGBadPoint  = errors.New("crypto: MLSAG matrix contains an unparseable point")
	errMLSAGBadIndex  = errors.New("crypto: MLSAG index out of range")
	errMLSAGSecretLen = errors.New("crypto: MLSAG secret vector must have nRows entries")
)

// MLSAGPrepare fills row nRows-1 of m with the per-column difference points
// pcm_in[col] − Σ pcm_out and returns the aggregate blind
// Σ inBlinds − Σ outBlinds. At the true column the amounts cancel (inputs
// and outputs commit to the same total), so that difference point is
// exactly the returned blind times G — the row-1 secret the signer closes
// the ring with.
func MLSAGPrepare(m []Commit33, inBlinds, outBlinds []Scalar, nCols, nRows int, pcmIn, pcmOut []Commit33) (Scalar, error) {
	if len(m) != nCols*nRows {
		return Scalar{}, errMLSAGShape
	}
	if len(pcmIn) != nCols {
		return Scalar{}, errMLSAGShape
	}

	lastRow := nRows - 1
	for col := 0; col < nCols; col++ {
		diff, err := CommitSum([]Commit33{pcmIn[col]}, pcmOut)
		if err != nil {
			return Scalar{}, err
		}
		m[lastRow*nCols+col] = diff
	}

	var blindSum Scalar
	for i := range inBlinds {
		blindSum.Add(&inBlinds[i])
	}
	for i := range outBlinds {
		blindSum.Add(negateScalar(outBlinds[i]))
	}
	return blindSum, nil
}

// MLSAGGenerate produces a linkable ring signature over preimage for the
// secret column index, whose private scalars are sk (one per row, sk[r]
// being the discrete log of m[r*nCols+index] under the row's base point).
// It returns the key image (linking tag for row 0's secret), the shared
// challenge scalar Pc, and the flattened nCols*nRows response vector.
func MLSAGGenerate(m []Commit33, sk []Scalar, index, nCols, nRows int, randSeed, preimage [32]byte) (Point, Scalar, []Scalar, error) {
	if len(m) != nCols*nRows {
		return Point{}, Scalar{}, nil, errMLSAGShape
	}
	if len(sk) != nRows {
		return Point{}, Scalar{}, nil, errMLSAGSecretLen
	}
	if index < 0 || index >= nCols {
		return Point{}, Scalar{}, nil, errMLSAGBadIndex
	}

	points := make([]Point, nCols*nRows)
	for i, c := range m {
		p, err := PointFromBytes(c)
		if err != nil {
			return Point{}, Scalar{}, nil, errMLSAGBadPoint
		}
		points[i] = p
	}

	// Key image: ki = sk[0] * HashToPoint(pk[0][index]).
	hp := hashToPoint(points[index])
	ki := PointMul(&sk[0], &hp)

	responses := make([]Scalar, nCols*nRows)
	challenges := make([]Scalar, nCols)

	alphas := make([]Scalar, nRows)
	for r := 0; r < nRows; r++ {
		alphas[r] = deterministicRingScalar(randSeed, index, r)
	}

	lR := make([]Point, nRows)
	for r := 0; r < nRows; r++ {
		lR[r] = BasePointMul(&alphas[r])
	}
	rR := PointMul(&alphas[0], &hp)
	challenges[(index+1)%nCols] = ringChallenge(preimage, index, lR, rR)

	col := (index + 1) % nCols
	for col != index {
		for r := 0; r < nRows; r++ {
			s := deterministicRingScalar(randSeed, col, r)
			responses[r*nCols+col] = s

			sG := BasePointMul(&s)
			cP := PointMul(&challenges[col], &points[r*nCols+col])
			lR[r] = PointAdd(&sG, &cP)

			if r == 0 {
				hpCol := hashToPoint(points[col])
				sH := PointMul(&s, &hpCol)
				cKi := PointMul(&challenges[col], &ki)
				rR = PointAdd(&sH, &cKi)
			}
		}
		next := (col + 1) % nCols
		challenges[next] = ringChallenge(preimage, col, lR, rR)
		col = next
	}

	// Close the ring: responses at the real column satisfy the Schnorr
	// equation using the real secrets and the just-derived challenge.
	for r := 0; r < nRows; r++ {
		var cx Scalar
		cx.Mul2(&challenges[index], &sk[r])
		s := alphas[r]
		s.Add(negateScalar(cx))
		responses[r*nCols+index] = s
	}

	return ki, challenges[0], responses, nil
}

// MLSAGVerify recomputes the ring challenges from m, ki, pc and ss and
// checks they close consistently back to pc.
func MLSAGVerify(preimage [32]byte, m []Commit33, ki Point, pc Scalar, ss []Scalar, nCols, nRows int) bool {
	if len(m) != nCols*nRows || len(ss) != nCols*nRows {
		return false
	}
	points := make([]Point, nCols*nRows)
	for i, c := range m {
		p, err := PointFromBytes(c)
		if err != nil {
			return false
		}
		points[i] = p
	}

	challenge := pc
	for col := 0; col < nCols; col++ {
		lR := make([]Point, nRows)
		var rR Point
		for r := 0; r < nRows; r++ {
			s := ss[r*nCols+col]
			sG := BasePointMul(&s)
			cP := PointMul(&challenge, &points[r*nCols+col])
			lR[r] = PointAdd(&sG, &cP)

			if r == 0 {
				hp := hashToPoint(points[col])
				sH := PointMul(&s, &hp)
				cKi := PointMul(&challenge, &ki)
				rR = PointAdd(&sH, &cKi)
			}
		}
		challenge = ringChallenge(preimage, col, lR, rR)
	}
	return challenge == pc
}

func hashToPoint(p Point) Point {
	b := PointToBytes(&p)
	return deriveNUMSPoint("cloakwallet-mlsag-hp:" + string(b[:]))
}

func ringChallenge(preimage [32]byte, col int, lR []Point, rR Point) Scalar {
	h := sha256.New()
	h.Write(preimage[:])
	var colBytes [8]byte
	putUint64(colBytes[:], uint64(col))
	h.Write(colBytes[:])
	for _, p := range lR {
		b := PointToBytes(&p)
		h.Write(b[:])
	}
	rb := PointToBytes(&rR)
	h.Write(rb[:])
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return ScalarFromBytes(sum)
}

func deterministicRingScalar(seed [32]byte, col, row int) Scalar {
	var tag [16]byte
	putUint64(tag[:8], uint64(col))
	putUint64(tag[8:], uint64(row))
	return HashToScalar([]byte("cloakwallet-mlsag-alpha"), seed[:], tag[:])
}
