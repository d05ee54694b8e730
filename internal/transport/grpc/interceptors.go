package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/meet-service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultUnaryTimeout = 10 * time.Second

// UnaryServerInterceptor logging + recovery + timeout guard (если у вызова нет deadline).
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultUnaryTimeout)
			defer cancel()
		}
		log := logger.FromContext(ctx).With(slog.String("method", info.FullMethod))
		ctx = logger.IntoContext(ctx, log)

		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc unary panic",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal server error")
			}
			log.Info("grpc unary",
				slog.Int64("dur_ms", time.Since(start).Milliseconds()),
				slog.String("code", status.Code(err).String()),
				slog.String("err", errString(err)))
		}()

		return handler(ctx, req)
	}
}

func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		log := logger.FromContext(ss.Context()).With(slog.String("method", info.FullMethod))

		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc stream panic",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal server error")
			}
			log.Info("grpc stream",
				slog.Int64("dur_ms", time.Since(start).Milliseconds()),
				slog.String("code", status.Code(err).String()),
				slog.String("err", errString(err)))
		}()

		return handler(srv, &loggedStream{ServerStream: ss, ctx: logger.IntoContext(ss.Context(), log)})
	}
}

type loggedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *loggedStream) Context() context.Context { return s.ctx }

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
