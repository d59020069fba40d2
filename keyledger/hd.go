package keyledger

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/threefoldtech/cloakwallet/crypto"
)

// HDPath is the fixed account-root prefix every cloakwallet key set is
// derived under: m / purpose' / coin_type' / account' / change / index.
const HDPath = "m/44'/847177'/0'/0/"

const hardenedOffset = uint32(1) << 31

var errInvalidPathSegment = errors.New("keyledger: invalid HD path segment")

// hdNode is a private extended key: a scalar plus the chain code needed to
// derive its children.
type hdNode struct {
	Key       crypto.Scalar
	ChainCode [32]byte
}

// masterNode derives the root extended key from a BIP-39 seed. The HMAC key
// is domain-separated from Bitcoin's own "Bitcoin seed" constant since this
// is not a Bitcoin-compatible chain, even though it reuses BIP-32's CKDpriv
// construction verbatim.
func masterNode(seed []byte) hdNode {
	mac := hmac.New(sha512.New, []byte("cloakwallet seed"))
	mac.Write(seed)
	i := mac.Sum(nil)

	var il [32]byte
	copy(il[:], i[:32])
	var n hdNode
	n.Key = crypto.ScalarFromBytes(il)
	copy(n.ChainCode[:], i[32:])
	return n
}

// deriveChild computes CKDpriv(node, index). index >= hardenedOffset
// derives a hardened child.
func deriveChild(node hdNode, index uint32) hdNode {
	mac := hmac.New(sha512.New, node.ChainCode[:])

	var data []byte
	if index >= hardenedOffset {
		data = make([]byte, 0, 37)
		data = append(data, 0x00)
		kb := crypto.ScalarToBytes(&node.Key)
		data = append(data, kb[:]...)
	} else {
		pub := crypto.BasePointMul(&node.Key)
		pb := crypto.PointToBytes(&pub)
		data = append(data, pb[:]...)
	}
	var idxBytes [4]byte
	binary.BigEndian.PutUint32(idxBytes[:], index)
	data = append(data, idxBytes[:]...)

	mac.Write(data)
	i := mac.Sum(nil)

	var il [32]byte
	copy(il[:], i[:32])
	tweak := crypto.ScalarFromBytes(il)

	var childKey crypto.Scalar
	childKey.Set(&tweak)
	childKey.Add(&node.Key)

	var child hdNode
	child.Key = childKey
	copy(child.ChainCode[:], i[32:])
	return child
}

// nextIndexPath returns path with its final segment incremented by one,
// e.g. "m/44'/847177'/0'/0/0" -> "m/44'/847177'/0'/0/1". This is how a
// spend path is turned into its paired scan path: scan always lives one
// index above spend under the same account.
func nextIndexPath(path string) (string, error) {
	segments := strings.Split(path, "/")
	last := len(segments) - 1
	if last < 0 {
		return "", errInvalidPathSegment
	}
	n, err := strconv.ParseUint(segments[last], 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w: %q", errInvalidPathSegment, segments[last])
	}
	segments[last] = strconv.FormatUint(n+1, 10)
	return strings.Join(segments, "/"), nil
}

// deriveAtPath walks seed down a textual path of the form
// "m/44'/847177'/0'/0/0", applying hardened derivation to segments
// suffixed with a quote.
func deriveAtPath(seed []byte, path string) (hdNode, error) {
	node := masterNode(seed)

	segments := strings.Split(path, "/")
	if len(segments) == 0 || segments[0] != "m" {
		return hdNode{}, errInvalidPathSegment
	}
	for _, seg := range segments[1:] {
		hardened := strings.HasSuffix(seg, "'")
		numStr := strings.TrimSuffix(seg, "'")
		n, err := strconv.ParseUint(numStr, 10, 32)
		if err != nil {
			return hdNode{}, fmt.Errorf("%w: %q", errInvalidPathSegment, seg)
		}
		index := uint32(n)
		if hardened {
			index += hardenedOffset
		}
		node = deriveChild(node, index)
	}
	return node, nil
}
