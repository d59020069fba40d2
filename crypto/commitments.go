package crypto

// Commit33 is a 33-byte compressed Pedersen commitment.
type Commit33 = [PointSize]byte

// Commit computes the Pedersen commitment C = amount*H + blind*G.
//
// Binding comes from the discrete-log hardness of the curve; hiding comes
// from blind being uniformly random and log_G(H) being unknown (see HPoint).
func Commit(amount uint64, blind Scalar) Commit33 {
	amountScalar := ScalarFromUint64(amount)

	hTerm := PointMul(&amountScalar, &HPoint)
	gTerm := BasePointMul(&blind)
	c := PointAdd(&hTerm, &gTerm)
	return PointToBytes(&c)
}

// BlindSwitch derives the auxiliary output-side blind used in place of the
// user-chosen blind directly, domain-separating the input and output blind
// spaces so that an input commitment's blind space can never be correlated
// with an output commitment's.
func BlindSwitch(amount uint64, blind Scalar) Scalar {
	var amountBytes [8]byte
	putUint64(amountBytes[:], amount)
	blindBytes := ScalarToBytes(&blind)
	return HashToScalar([]byte("cloakwallet-blind-switch"), amountBytes[:], blindBytes[:])
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v)
		v >>= 8
	}
}

// CommitSum homomorphically sums a list of positive commitments minus a list
// of negative commitments: sum(pos) - sum(neg).
func CommitSum(pos, neg []Commit33) (Commit33, error) {
	var acc Point
	haveAcc := false
	accumulate := func(c Commit33, negate bool) error {
		p, err := PointFromBytes(c)
		if err != nil {
			return err
		}
		if negate {
			p = PointNegate(&p)
		}
		if !haveAcc {
			acc = p
			haveAcc = true
			return nil
		}
		acc = PointAdd(&acc, &p)
		return nil
	}
	for _, c := range pos {
		if err := accumulate(c, false); err != nil {
			return Commit33{}, err
		}
	}
	for _, c := range neg {
		if err := accumulate(c, true); err != nil {
			return Commit33{}, err
		}
	}
	if !haveAcc {
		return Commit33{}, nil
	}
	return PointToBytes(&acc), nil
}

// VerifyCommitSum checks that lhs, taken as a single aggregate, equals the
// sum of rhs. It is used both to self-check fee+payment+change balancing
// (lhs = [CommitSum(rhs, nil)], rhs = the three output commitments) and
// more generally anywhere two commitment sets must reconcile to zero.
func VerifyCommitSum(lhs, rhs []Commit33) bool {
	l, err := CommitSum(lhs, nil)
	if err != nil {
		return false
	}
	r, err := CommitSum(rhs, nil)
	if err != nil {
		return false
	}
	return l == r
}
