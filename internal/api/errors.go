package api

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/time-conductor/conductor"
)

// ErrInvalidRequest flags malformed request messages.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps engine errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, conductor.ErrUnknownMode),
		errors.Is(err, conductor.ErrUnknownTimeSystem),
		errors.Is(err, conductor.ErrUnknownTickSource):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, conductor.ErrInvalidBounds),
		errors.Is(err, conductor.ErrInvalidDeltas):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, conductor.ErrNoActiveMode),
		errors.Is(err, conductor.ErrDeltasUnsupported),
		errors.Is(err, conductor.ErrNoBounds),
		errors.Is(err, conductor.ErrFollowing):
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func invalidKey(sentinel error, key string) error {
	return fmt.Errorf("%w: %q", sentinel, key)
}
