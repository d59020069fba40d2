package rpc

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/nacl/box"

	"github.com/threefoldtech/cloakwallet/crypto"
)

func TestEnvelopeSealAndReplyRoundTrip(t *testing.T) {
	client, err := NewEnvelopeKeys()
	if err != nil {
		t.Fatalf("NewEnvelopeKeys: %v", err)
	}

	// The node's box keypair, with its public key carried as the usual
	// 33-byte compressed encoding whose tail 32 bytes are the box key.
	nodePub, nodePriv, err := box.GenerateKey(crypto.RandReader())
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	var nodeWire [33]byte
	nodeWire[0] = 0x02
	copy(nodeWire[1:], nodePub[:])

	params := map[string]string{"paymentId": "abc123"}
	packet, err := SealRequest(client, nodeWire, params)
	if err != nil {
		t.Fatalf("SealRequest: %v", err)
	}

	// Node side: unframe, open, read the params, then seal a reply back to
	// the client key carried in the frame.
	pk, cipher, err := unframe(packet)
	if err != nil {
		t.Fatalf("unframe: %v", err)
	}
	var clientPub [32]byte
	copy(clientPub[:], pk)
	if clientPub != client.Pub {
		t.Fatal("frame does not carry the client's public key")
	}

	plain, ok := box.OpenAnonymous(nil, cipher, nodePub, nodePriv)
	if !ok {
		t.Fatal("node could not open the sealed request")
	}
	var decodedParams map[string]string
	if err := msgpack.Unmarshal(plain, &decodedParams); err != nil {
		t.Fatalf("request params did not decode: %v", err)
	}
	if decodedParams["paymentId"] != "abc123" {
		t.Fatalf("got params %v", decodedParams)
	}

	replyPlain, err := msgpack.Marshal(map[string]bool{"accepted": true})
	if err != nil {
		t.Fatalf("msgpack: %v", err)
	}
	replyCipher, err := box.SealAnonymous(nil, replyPlain, &clientPub, crypto.RandReader())
	if err != nil {
		t.Fatalf("SealAnonymous: %v", err)
	}
	var nodePk32 [32]byte
	copy(nodePk32[:], nodePub[:])
	reply := frame(nodePk32[:], replyCipher)

	var out map[string]bool
	if err := OpenReply(client, reply, &out); err != nil {
		t.Fatalf("OpenReply: %v", err)
	}
	if !out["accepted"] {
		t.Fatalf("got reply %v", out)
	}
}

func TestOpenReplyRejectsTruncatedPacket(t *testing.T) {
	client, err := NewEnvelopeKeys()
	if err != nil {
		t.Fatalf("NewEnvelopeKeys: %v", err)
	}
	if err := OpenReply(client, []byte{0, 0}, nil); err == nil {
		t.Fatal("OpenReply accepted a truncated packet")
	}
}
