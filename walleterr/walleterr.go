// Package walleterr names the error kinds that cross a session boundary as
// a structured types.LastError: every failure a caller needs to branch on
// is a short string tag plus a message, never a typed exception hierarchy.
package walleterr

import "github.com/threefoldtech/cloakwallet/types"

// Kind is one of the taxonomy's error categories.
type Kind string

const (
	KindCryptoVerifyFailure Kind = "CryptoVerifyFailure"
	KindInsufficientFunds   Kind = "InsufficientFunds"
	KindDuplicatePayment    Kind = "DuplicatePayment"
	KindStoreError          Kind = "StoreError"
	KindRpcError            Kind = "RpcError"
	KindConfigError         Kind = "ConfigError"
	KindCancelRequested     Kind = "CancelRequested"
)

// Error wraps an underlying error with the Kind a caller should branch on.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds an *Error from a kind and an underlying error.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error()}
}

// Newf builds an *Error from a kind and a literal message, for failures
// with no underlying error value (e.g. insufficient funds).
func Newf(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// LastError converts e into the session-attached types.LastError object
// SetLastError writes.
func (e *Error) LastError() *types.LastError {
	return &types.LastError{Success: false, Kind: string(e.Kind), Message: e.Message}
}

// SetLastError is the convenience the facade and builder call on every
// failure path so the session carries why it failed without an exception
// propagating out of the module.
func SetLastError(session *types.Session, kind Kind, err error) *Error {
	e := New(kind, err)
	session.LastError = e.LastError()
	return e
}
