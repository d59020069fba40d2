package rpc

import (
	"encoding/binary"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/nacl/box"

	"github.com/threefoldtech/cloakwallet/crypto"
)

// Wire framing for the encrypted request/reply transport. A packet is
//
//	len(pk) || pk || len(cipher) || cipher
//
// with both lengths as big-endian uint32. pk is the sender's 32-byte box
// public key, so the remote side can seal its reply back without any prior
// key exchange. cipher is an anonymous sealed box over the msgpack encoding
// of the request parameters, keyed to bytes [1..33) of the remote's 33-byte
// compressed public key.

var (
	errEnvelopeShort  = errors.New("rpc: encrypted packet truncated")
	errEnvelopeOpen   = errors.New("rpc: encrypted reply failed to open")
	errEnvelopeKeyLen = errors.New("rpc: envelope public key is not 32 bytes")
)

// EnvelopeKeys is the client's static box keypair, generated once per
// process and carried in every request packet.
type EnvelopeKeys struct {
	Pub  [32]byte
	Priv [32]byte
}

// NewEnvelopeKeys generates a fresh client keypair for the encrypted
// transport.
func NewEnvelopeKeys() (EnvelopeKeys, error) {
	pub, priv, err := box.GenerateKey(crypto.RandReader())
	if err != nil {
		return EnvelopeKeys{}, err
	}
	return EnvelopeKeys{Pub: *pub, Priv: *priv}, nil
}

// SealRequest msgpack-encodes params, seals it to the node's compressed
// public key and frames the result as a wire packet.
func SealRequest(keys EnvelopeKeys, nodePub [33]byte, params interface{}) ([]byte, error) {
	plain, err := msgpack.Marshal(params)
	if err != nil {
		return nil, err
	}

	var remote [32]byte
	copy(remote[:], nodePub[1:])

	cipher, err := box.SealAnonymous(nil, plain, &remote, crypto.RandReader())
	if err != nil {
		return nil, err
	}
	return frame(keys.Pub[:], cipher), nil
}

// OpenReply unwraps a reply packet symmetrically: it reads the node's
// public key and the sealed payload out of the frame, opens the payload
// with the client's keypair and msgpack-decodes it into out.
func OpenReply(keys EnvelopeKeys, packet []byte, out interface{}) error {
	_, cipher, err := unframe(packet)
	if err != nil {
		return err
	}
	plain, ok := box.OpenAnonymous(nil, cipher, &keys.Pub, &keys.Priv)
	if !ok {
		return errEnvelopeOpen
	}
	return msgpack.Unmarshal(plain, out)
}

func frame(pk, cipher []byte) []byte {
	out := make([]byte, 0, 4+len(pk)+4+len(cipher))
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(pk)))
	out = append(out, n[:]...)
	out = append(out, pk...)
	binary.BigEndian.PutUint32(n[:], uint32(len(cipher)))
	out = append(out, n[:]...)
	out = append(out, cipher...)
	return out
}

func unframe(packet []byte) (pk, cipher []byte, err error) {
	if len(packet) < 4 {
		return nil, nil, errEnvelopeShort
	}
	pkLen := binary.BigEndian.Uint32(packet)
	packet = packet[4:]
	if uint32(len(packet)) < pkLen {
		return nil, nil, errEnvelopeShort
	}
	if pkLen != 32 {
		return nil, nil, errEnvelopeKeyLen
	}
	pk = packet[:pkLen]
	packet = packet[pkLen:]

	if len(packet) < 4 {
		return nil, nil, errEnvelopeShort
	}
	cipherLen := binary.BigEndian.Uint32(packet)
	packet = packet[4:]
	if uint32(len(packet)) < cipherLen {
		return nil, nil, errEnvelopeShort
	}
	return pk, packet[:cipherLen], nil
}
