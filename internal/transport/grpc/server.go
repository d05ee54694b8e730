// Package grpcx gRPC-транспорт комнаты для сервисных клиентов.
package grpcx

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/meet-service/internal/bus"
	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/protocol"
	"github.com/cwrk-planet/meet-service/pkg/errs"
	"github.com/cwrk-planet/meet-service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const mdAuthorization = "authorization"

type CallerResolver interface {
	ResolveCaller(ctx context.Context, credential string) (domain.User, error)
}

type Sender interface {
	Send(ctx context.Context, caller domain.User, req protocol.SendRequest) (protocol.Event, error)
}

type Server struct {
	auth   CallerResolver
	relay  Sender
	buses  *bus.Registry
	buffer int
}

func NewServer(auth CallerResolver, relay Sender, buses *bus.Registry, buffer int) *Server {
	if buffer <= 0 {
		buffer = 64
	}

	return &Server{auth: auth, relay: relay, buses: buses, buffer: buffer}
}

func Register(grpcServer *grpc.Server, s *Server) {
	grpcServer.RegisterService(&RoomRelayServiceDesc, s)
}

// Send тот же ingress, что POST /api/send.
func (s *Server) Send(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	caller, err := s.callerFromMD(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := protojson.Marshal(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	req, err := protocol.DecodeSendRequest(raw)
	if err != nil {
		return nil, errs.ToGRPC(err)
	}
	if _, err := s.relay.Send(ctx, caller, req); err != nil {
		return nil, errs.ToGRPC(err)
	}

	return &emptypb.Empty{}, nil
}

// Subscribe стрим событий комнаты до отмены вызова клиентом.
func (s *Server) Subscribe(in *wrapperspb.Int64Value, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	if _, err := s.callerFromMD(ctx); err != nil {
		return err
	}
	roomID := in.GetValue()
	if roomID <= 0 {
		return status.Error(codes.InvalidArgument, "room id must be a positive integer")
	}
	log := logger.FromContext(ctx).With(slog.Int64("room_id", roomID))

	b := s.buses.Open(roomID)
	defer b.Close()
	feed := b.Feed(s.buffer, func(ev protocol.Event) {
		log.Warn("grpc.Subscribe: subscriber queue full, event dropped", slog.String("kind", string(ev.Kind())))
	})
	defer feed.Close()

	// заголовки уходят сразу: клиент знает, что подписка активна
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-feed.C():
			msg, err := eventToStruct(ev)
			if err != nil {
				log.Error("grpc.Subscribe: encode", slog.Any("err", err))
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

func (s *Server) callerFromMD(ctx context.Context) (domain.User, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.User{}, status.Error(codes.Unauthenticated, "missing metadata")
	}
	// Authorization: Bearer <token>
	auth := first(md.Get(mdAuthorization))
	if len(auth) <= 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return domain.User{}, status.Error(codes.Unauthenticated, "missing authorization")
	}

	u, err := s.auth.ResolveCaller(ctx, strings.TrimSpace(auth[7:]))
	if err != nil {
		return domain.User{}, errs.ToGRPC(err)
	}

	return u, nil
}

func eventToStruct(ev protocol.Event) (*structpb.Struct, error) {
	raw, err := protocol.MarshalEvent(ev)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}

	return out, nil
}

// StructToEvent обратное преобразование для клиентов Subscribe.
func StructToEvent(in *structpb.Struct) (protocol.Event, error) {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return nil, err
	}

	return protocol.UnmarshalEvent(raw)
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}

	return ss[0]
}
