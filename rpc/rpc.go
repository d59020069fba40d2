// Package rpc is the wallet's client for the remote node: fetch candidate
// outputs for a payment id and submit a finished transaction. It is
// deliberately thin; the node itself lives in another repository.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/threefoldtech/cloakwallet/types"
	"github.com/threefoldtech/cloakwallet/walleterr"
)

// PeerInfo mirrors the node's GET /member/peer response.
type PeerInfo struct {
	Advertise      bool   `json:"advertise"`
	BlockHeight    uint64 `json:"blockHeight"`
	Listening      bool   `json:"listening"`
	Name           string `json:"name"`
	Version        string `json:"version"`
	ClientID       string `json:"clientId"`
	PublicKey      string `json:"publicKey"`
	HTTPEndPoint   string `json:"httpEndPoint"`
}

// Client is the plain-HTTP node RPC client. For the encrypted request/reply
// transport this package provides only the wire envelope (envelope.go); it
// has no socket transport or client type for it.
type Client struct {
	RootURL    string
	HTTPClient *http.Client
}

// New returns a Client talking to rootURL (e.g. "http://127.0.0.1:23110").
func New(rootURL string) *Client {
	return &Client{RootURL: rootURL, HTTPClient: http.DefaultClient}
}

var errNon2xx = errors.New("rpc: node returned a non-2xx response")

// Peer fetches GET /member/peer.
func (c *Client) Peer(ctx context.Context) (PeerInfo, error) {
	var info PeerInfo
	if err := c.getJSON(ctx, "/member/peer", &info); err != nil {
		return PeerInfo{}, walleterr.New(walleterr.KindRpcError, err)
	}
	return info, nil
}

// FetchOutputs fetches GET /transaction/{paymentId}, the candidate outputs
// OutputScanner filters.
func (c *Client) FetchOutputs(ctx context.Context, paymentID string) ([]types.Vout, error) {
	var outs []types.Vout
	if err := c.getJSON(ctx, "/transaction/"+paymentID, &outs); err != nil {
		return nil, walleterr.New(walleterr.KindRpcError, err)
	}
	return outs, nil
}

// Submit POSTs tx to /transaction and returns the node's accepted flag.
func (c *Client) Submit(ctx context.Context, tx types.Transaction) (bool, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return false, walleterr.New(walleterr.KindRpcError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.RootURL+"/transaction", bytes.NewReader(body))
	if err != nil {
		return false, walleterr.New(walleterr.KindRpcError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, walleterr.New(walleterr.KindRpcError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, walleterr.New(walleterr.KindRpcError, fmt.Errorf("%w: status %d", errNon2xx, resp.StatusCode))
	}

	var accepted bool
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return false, walleterr.New(walleterr.KindRpcError, err)
	}
	return accepted, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RootURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", errNon2xx, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
