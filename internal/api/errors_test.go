package api

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/time-conductor/conductor"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "unknown mode", err: invalidKey(conductor.ErrUnknownMode, "paused"), code: codes.NotFound},
		{name: "unknown tick source", err: fmt.Errorf("set: %w", conductor.ErrUnknownTickSource), code: codes.NotFound},
		{name: "malformed request", err: fmt.Errorf("%w: missing end", ErrInvalidRequest), code: codes.InvalidArgument},
		{name: "invalid deltas", err: conductor.ErrInvalidDeltas, code: codes.InvalidArgument},
		{name: "fixed mode deltas", err: conductor.ErrDeltasUnsupported, code: codes.FailedPrecondition},
		{name: "following", err: conductor.ErrFollowing, code: codes.FailedPrecondition},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("ToStatusError(%v) = nil, want error", tc.err)
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}
