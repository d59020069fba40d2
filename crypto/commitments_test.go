package crypto

import "testing"

func TestCommitSumBalances(t *testing.T) {
	b1, b2, b3 := RandomScalar(), RandomScalar(), RandomScalar()

	const fee, payment, change = 72_000, 3_000_000_000, 6_999_928_000

	outs := []Commit33{
		Commit(fee, b1),
		Commit(payment, b2),
		Commit(change, b3),
	}

	var blindSum Scalar
	blindSum.Add(&b1)
	blindSum.Add(&b2)
	blindSum.Add(&b3)
	aggregate := Commit(fee+payment+change, blindSum)

	sum, err := CommitSum(outs, nil)
	if err != nil {
		t.Fatalf("CommitSum: %v", err)
	}
	if sum != aggregate {
		t.Fatalf("homomorphic sum does not match the aggregate commitment")
	}
	if !VerifyCommitSum([]Commit33{aggregate}, outs) {
		t.Fatal("VerifyCommitSum rejected a balanced set")
	}

	outs[0] = Commit(fee+1, b1)
	if VerifyCommitSum([]Commit33{aggregate}, outs) {
		t.Fatal("VerifyCommitSum accepted an unbalanced set")
	}
}

func TestCommitSumSubtracts(t *testing.T) {
	b1, b2 := RandomScalar(), RandomScalar()

	diff, err := CommitSum([]Commit33{Commit(500, b1)}, []Commit33{Commit(200, b2)})
	if err != nil {
		t.Fatalf("CommitSum: %v", err)
	}

	var blindDiff Scalar
	blindDiff.Add(&b1)
	blindDiff.Add(negateScalar(b2))
	if diff != Commit(300, blindDiff) {
		t.Fatal("CommitSum(pos, neg) does not equal the commitment to the difference")
	}
}

func TestBlindSwitchDomainSeparates(t *testing.T) {
	b := RandomScalar()
	s1 := BlindSwitch(100, b)
	s2 := BlindSwitch(101, b)
	if ScalarToBytes(&s1) == ScalarToBytes(&s2) {
		t.Fatal("BlindSwitch ignores the amount")
	}
	s3 := BlindSwitch(100, b)
	if ScalarToBytes(&s1) != ScalarToBytes(&s3) {
		t.Fatal("BlindSwitch is not deterministic")
	}
}
