package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// meet.v1.RoomRelay на well-known типах protobuf:
//
//	service RoomRelay {
//	  rpc Send(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc Subscribe(google.protobuf.Int64Value) returns (stream google.protobuf.Struct);
//	}
//
// Struct несёт тот же JSON, что и HTTP: SendRequest на входе, событие на выходе.
const (
	ServiceName         = "meet.v1.RoomRelay"
	SendFullMethod      = "/" + ServiceName + "/Send"
	SubscribeFullMethod = "/" + ServiceName + "/Subscribe"
)

type RoomRelayServer interface {
	Send(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
	Subscribe(in *wrapperspb.Int64Value, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

var RoomRelayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoomRelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Send", Handler: sendHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "meet/v1/relay.proto",
}

func sendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomRelayServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SendFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomRelayServer).Send(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.Int64Value)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(RoomRelayServer).Subscribe(in, &grpc.GenericServerStream[wrapperspb.Int64Value, structpb.Struct]{ServerStream: stream})
}

// RoomRelayClient клиент для сервисов и тестов.
type RoomRelayClient struct {
	cc grpc.ClientConnInterface
}

func NewRoomRelayClient(cc grpc.ClientConnInterface) *RoomRelayClient {
	return &RoomRelayClient{cc: cc}
}

func (c *RoomRelayClient) Send(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, SendFullMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *RoomRelayClient) Subscribe(ctx context.Context, roomID int64, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &RoomRelayServiceDesc.Streams[0], SubscribeFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[wrapperspb.Int64Value, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(wrapperspb.Int64(roomID)); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}
