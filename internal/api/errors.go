// Package api exposes the daemon's operations as services consumed by the
// RPC controllers. Domain errors are mapped to gRPC status codes at this
// boundary; everything below speaks the fault taxonomy.
package api

import (
	"errors"

	"github.com/wafleet/wafleet/internal/fault"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// rpcError maps a domain error to a gRPC status error.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch {
	case errors.Is(err, fault.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, fault.ErrNotReady):
		code = codes.FailedPrecondition
	case errors.Is(err, fault.ErrValidation):
		code = codes.InvalidArgument
	case fault.IsTransport(err):
		code = codes.Unavailable
	}
	return grpcstatus.Error(code, err.Error())
}
