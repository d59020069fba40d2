package crypto

// SecureWipe zeroes b in place. Callers holding secret material — mnemonic
// buffers, root keys, chain codes, spend/scan scalars' byte form — must call
// this on every exit path, including error paths, per the zeroisation
// requirement on secret-holding scopes.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// SecureWipeScalar zeroes a scalar's internal representation by overwriting
// it with the zero scalar. Scalar has no exported byte buffer to zero
// directly, so this is the scalar-typed equivalent of SecureWipe.
func SecureWipeScalar(s *Scalar) {
	s.Zero()
}
