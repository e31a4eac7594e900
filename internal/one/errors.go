package one

import (
	"context"
	"errors"
	"fmt"
	"net"

	onerrs "github.com/OpenNebula/one/src/oca/go/src/goca/errors"
)

// Kind classifies a remote failure.
type Kind int

const (
	// KindRemote is any frontend failure without a more specific class.
	KindRemote Kind = iota

	// KindUnauthorized covers authentication and authorization refusals.
	KindUnauthorized

	// KindNotFound means the referenced resource does not exist.
	KindNotFound

	// KindTimeout means the call did not complete in time or the transport
	// gave up. The only class the reconciler may retry, and only for reads.
	KindTimeout

	// KindConflict means the frontend state contradicts the request, e.g.
	// several VMs carry the requested unique name.
	KindConflict
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindTimeout:
		return "timeout"
	case KindConflict:
		return "conflict"
	default:
		return "remote error"
	}
}

// RPCError is a classified failure of one XML-RPC call.
type RPCError struct {
	// Kind is the failure class.
	Kind Kind

	// Op names the failed operation, e.g. "vmpool.info".
	Op string

	// Err is the underlying error, if any.
	Err error
}

func (e *RPCError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("one %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("one %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an RPCError of the given kind.
func IsKind(err error, kind Kind) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Kind == kind
}

// wrapErr classifies an error coming out of the goca client into an
// RPCError for the named operation.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RPCError{Kind: classify(err), Op: op, Err: err}
}

// classify maps goca and transport errors onto the error taxonomy.
func classify(err error) Kind {
	var respErr *onerrs.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.Code {
		case onerrs.OneAuthenticationError, onerrs.OneAuthorizationError:
			return KindUnauthorized
		case onerrs.OneNoExistsError:
			return KindNotFound
		default:
			return KindRemote
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindRemote
}
