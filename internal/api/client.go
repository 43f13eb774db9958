package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/time-conductor/conductor"
	"github.com/signalsfoundry/time-conductor/model"
)

// Client is a typed client for the conductor service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// GetState fetches the current engine state.
func (c *Client) GetState(ctx context.Context, opts ...grpc.CallOption) (conductor.State, error) {
	return c.call(ctx, "GetState", &emptypb.Empty{}, opts)
}

// SetMode switches the server to mode.
func (c *Client) SetMode(ctx context.Context, mode model.ModeKey, opts ...grpc.CallOption) (conductor.State, error) {
	return c.call(ctx, "SetMode", wrapperspb.String(string(mode)), opts)
}

// SetTimeSystem selects a time system by key.
func (c *Client) SetTimeSystem(ctx context.Context, key string, opts ...grpc.CallOption) (conductor.State, error) {
	return c.call(ctx, "SetTimeSystem", wrapperspb.String(key), opts)
}

// SetTickSource selects a tick source by key.
func (c *Client) SetTickSource(ctx context.Context, key string, opts ...grpc.CallOption) (conductor.State, error) {
	return c.call(ctx, "SetTickSource", wrapperspb.String(key), opts)
}

// SetDeltas applies offsets around the current anchor.
func (c *Client) SetDeltas(ctx context.Context, d model.Deltas, opts ...grpc.CallOption) (conductor.State, error) {
	return c.call(ctx, "SetDeltas", EncodeWindow(d.Start, d.End), opts)
}

// SetBounds replaces the window.
func (c *Client) SetBounds(ctx context.Context, b model.Bounds, opts ...grpc.CallOption) (conductor.State, error) {
	return c.call(ctx, "SetBounds", EncodeWindow(b.Start, b.End), opts)
}

// PushLatest reports a latest-available timestamp for a LAD tick source.
func (c *Client) PushLatest(ctx context.Context, tickSource string, value float64, opts ...grpc.CallOption) (conductor.State, error) {
	return c.call(ctx, "PushLatest", EncodeLatest(tickSource, value), opts)
}

func (c *Client) call(ctx context.Context, method string, in proto.Message, opts []grpc.CallOption) (conductor.State, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return conductor.State{}, err
	}
	return DecodeState(out)
}
