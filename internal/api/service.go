// Package api exposes the conductor engine over gRPC. Messages are protobuf
// well-known types so the service needs no generated code: requests carry a
// StringValue key or a {start, end} Struct, and every mutating call answers
// with the engine state encoded as a Struct.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/time-conductor/conductor"
	"github.com/signalsfoundry/time-conductor/internal/logging"
	"github.com/signalsfoundry/time-conductor/model"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "timeconductor.v1.ConductorService"

// ConductorServer is the server API for the conductor service.
type ConductorServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetMode(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetTimeSystem(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetTickSource(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetDeltas(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetBounds(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PushLatest(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the conductor service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConductorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: unaryHandler("GetState", newEmpty, ConductorServer.GetState)},
		{MethodName: "SetMode", Handler: unaryHandler("SetMode", newString, ConductorServer.SetMode)},
		{MethodName: "SetTimeSystem", Handler: unaryHandler("SetTimeSystem", newString, ConductorServer.SetTimeSystem)},
		{MethodName: "SetTickSource", Handler: unaryHandler("SetTickSource", newString, ConductorServer.SetTickSource)},
		{MethodName: "SetDeltas", Handler: unaryHandler("SetDeltas", newStruct, ConductorServer.SetDeltas)},
		{MethodName: "SetBounds", Handler: unaryHandler("SetBounds", newStruct, ConductorServer.SetBounds)},
		{MethodName: "PushLatest", Handler: unaryHandler("PushLatest", newStruct, ConductorServer.PushLatest)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "timeconductor/v1/conductor.proto",
}

// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv ConductorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newStruct() *structpb.Struct        { return new(structpb.Struct) }

func unaryHandler[Req proto.Message](
	method string,
	newReq func() Req,
	call func(ConductorServer, context.Context, Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ConductorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ConductorServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LatestPublisher accepts the newest timestamp for which data exists.
// timectrl.LatestAvailable implements it.
type LatestPublisher interface {
	Push(t float64) bool
}

// Service implements ConductorServer on top of a ViewCoordinator.
type Service struct {
	view   *conductor.ViewCoordinator
	log    logging.Logger
	latest map[string]LatestPublisher
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithLatestSources exposes LAD tick sources to PushLatest, keyed by tick
// source key.
func WithLatestSources(sources map[string]LatestPublisher) ServiceOption {
	return func(s *Service) {
		for key, src := range sources {
			s.latest[key] = src
		}
	}
}

// NewService wires a Service to the coordinator it drives.
func NewService(view *conductor.ViewCoordinator, log logging.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		view:   view,
		log:    logging.OrNoop(log),
		latest: make(map[string]LatestPublisher),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetState returns the current engine state.
func (s *Service) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.respond(ctx, "GetState", nil)
}

// SetMode switches the active mode.
func (s *Service) SetMode(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	key, ok := model.ParseModeKey(req.GetValue())
	if !ok {
		return s.respond(ctx, "SetMode", invalidKey(conductor.ErrUnknownMode, req.GetValue()))
	}
	return s.respond(ctx, "SetMode", s.view.SetMode(ctx, key))
}

// SetTimeSystem selects a time system offered by the active mode.
func (s *Service) SetTimeSystem(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.respond(ctx, "SetTimeSystem", s.view.SetTimeSystem(ctx, req.GetValue()))
}

// SetTickSource swaps the tick source of the active controller.
func (s *Service) SetTickSource(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.respond(ctx, "SetTickSource", s.view.SetTickSource(ctx, req.GetValue()))
}

// SetDeltas applies {start, end} offsets to the active controller.
func (s *Service) SetDeltas(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, end, err := DecodeWindow(req)
	if err != nil {
		return s.respond(ctx, "SetDeltas", err)
	}
	return s.respond(ctx, "SetDeltas", s.view.SetDeltas(ctx, model.Deltas{Start: start, End: end}))
}

// SetBounds replaces the window while no tick source drives it.
func (s *Service) SetBounds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, end, err := DecodeWindow(req)
	if err != nil {
		return s.respond(ctx, "SetBounds", err)
	}
	return s.respond(ctx, "SetBounds", s.view.SetBounds(ctx, model.Bounds{Start: start, End: end}))
}

// PushLatest reports a new latest-available timestamp to the LAD source
// named by the tickSource field. Stale values are ignored.
func (s *Service) PushLatest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, value, err := DecodeLatest(req)
	if err != nil {
		return s.respond(ctx, "PushLatest", err)
	}
	src, ok := s.latest[key]
	if !ok {
		return s.respond(ctx, "PushLatest", invalidKey(conductor.ErrUnknownTickSource, key))
	}
	if !src.Push(value) {
		s.log.Debug(ctx, "stale latest-available timestamp ignored",
			logging.String("tick_source", key),
			logging.Float("value", value),
		)
	}
	return s.respond(ctx, "PushLatest", nil)
}

func (s *Service) respond(ctx context.Context, method string, err error) (*structpb.Struct, error) {
	if err != nil {
		s.log.Warn(ctx, "conductor request rejected",
			logging.String("method", method),
			logging.Err(err),
		)
		return nil, ToStatusError(err)
	}
	out, err := EncodeState(s.view.State())
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}
