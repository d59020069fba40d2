package txbuilder

import (
	"context"
	"errors"

	"github.com/threefoldtech/cloakwallet/persist"
	"github.com/threefoldtech/cloakwallet/types"
	"github.com/threefoldtech/cloakwallet/walleterr"
)

// Submitter is the node RPC collaborator Send needs: POST the finished
// transaction and learn whether the node accepted it.
type Submitter interface {
	Submit(ctx context.Context, tx types.Transaction) (bool, error)
}

var errSubmitRejected = errors.New("txbuilder: node rejected the submitted transaction")

// Send fetches the persisted Transaction, POSTs it to the node, and on any
// failure (transport error or an explicit reject) calls RollBackOne and
// records a structured LastError on session.
func Send(ctx context.Context, store persist.KeyValueStore, submitter Submitter, session *types.Session) error {
	tx, err := Fetch(store, session.SessionId)
	if err != nil {
		walleterr.SetLastError(session, walleterr.KindStoreError, err)
		return err
	}

	accepted, err := submitter.Submit(ctx, tx)
	if err == nil && !accepted {
		err = errSubmitRejected
	}
	if err != nil {
		if rbErr := RollBackOne(store, session.SessionId); rbErr != nil {
			walleterr.SetLastError(session, walleterr.KindStoreError, rbErr)
			return rbErr
		}
		walleterr.SetLastError(session, walleterr.KindRpcError, err)
		return err
	}
	return nil
}
