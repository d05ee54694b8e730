package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/meet-service/config"
	"github.com/cwrk-planet/meet-service/internal/bus"
	"github.com/cwrk-planet/meet-service/internal/pg"
	"github.com/cwrk-planet/meet-service/internal/postgres"
	"github.com/cwrk-planet/meet-service/internal/security"
	"github.com/cwrk-planet/meet-service/internal/service"
	"github.com/cwrk-planet/meet-service/internal/sqlite"
	grpcx "github.com/cwrk-planet/meet-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/meet-service/internal/transport/http"
	"github.com/cwrk-planet/meet-service/internal/transport/sse"
	"github.com/cwrk-planet/meet-service/internal/transport/ws"
	"github.com/cwrk-planet/meet-service/pkg/logger"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
)

type stores struct {
	users    service.UserStore
	rooms    service.RoomStore
	messages service.MessageStore
	close    func()
}

func main() {
	// 0) .env для локального запуска, в контейнере его нет
	_ = godotenv.Load()

	// 1) config
	cfg, err := config.LoadConfig()
	if err != nil {
		println("failed to load config:", err.Error())
		os.Exit(1)
	}

	// 2) logger; без logging.env окружение берётся из APP_ENV
	var env logger.Env
	if cfg.Logging.Env != "" {
		env = logger.ParseEnv(cfg.Logging.Env)
	}
	logger.Init(logger.Config{
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Level:     logger.ParseLevel(cfg.Logging.Level),
		Env:       env,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting meet-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3) storage
	st, err := openStores(ctx, cfg.Storage)
	if err != nil {
		slog.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	defer st.close()

	// 4) services
	var sessions *security.SessionJWT
	if cfg.Auth.Mode == config.AuthModeJWT {
		sessions = security.NewSessionJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.ClockSkew)
	}
	authSvc := service.NewAuthService(st.users, sessions)
	if len(cfg.Seed.Users) > 0 {
		seeds := make([]service.SeedUser, 0, len(cfg.Seed.Users))
		for _, u := range cfg.Seed.Users {
			seeds = append(seeds, service.SeedUser{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL, Token: u.Token})
		}
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		users, err := authSvc.Seed(seedCtx, seeds)
		cancel()
		if err != nil {
			slog.Error("seed users failed", "err", err)
			os.Exit(1)
		}
		slog.Info("users seeded", "count", len(users))
	}
	roomSvc := service.NewRoomService(st.rooms)
	chatSvc := service.NewChatService(st.messages)

	// 5) room bus + relay
	buses := bus.NewRegistry(bus.WithLogger(slog.Default()))
	defer buses.Close()
	relay := service.NewRelay(buses, chatSvc, roomSvc,
		service.WithOwnerOnlyInitialize(cfg.Relay.OwnerOnlyInitialize))

	// 6) egress
	sseSrv := sse.NewServer(buses,
		sse.WithPingEvery(cfg.Stream.PingEvery),
		sse.WithBuffer(cfg.Stream.Buffer))
	wsOpts := []ws.Option{ws.WithPingEvery(cfg.Stream.PingEvery), ws.WithBuffer(cfg.Stream.Buffer)}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		wsOpts = append(wsOpts, ws.WithCheckOrigin(originChecker(cfg.CORS.AllowedOrigins)))
	}
	wsSrv := ws.NewServer(buses, relay, wsOpts...)

	// 7) http
	router := httpx.NewRouter(httpx.Deps{
		Handler:        httpx.NewHandler(relay, roomSvc, chatSvc),
		SSE:            sseSrv.HandleConnect,
		WS:             wsSrv.HandleWS,
		Auth:           authSvc,
		Cookie:         cfg.Auth.Cookie,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	srv := httpx.NewServer(httpx.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, router)

	errCh := make(chan error, 2)

	// 8) grpc, если задан адрес
	var grpcServer *grpc.Server
	if cfg.GRPC.Addr != "" {
		grpcServer = grpc.NewServer(
			grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor()),
			grpc.ChainStreamInterceptor(grpcx.StreamServerInterceptor()),
		)
		grpcx.Register(grpcServer, grpcx.NewServer(authSvc, relay, buses, cfg.Stream.Buffer))

		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			slog.Error("grpc listen failed", "addr", cfg.GRPC.Addr, "err", err)
			os.Exit(1)
		}
		go func() {
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		errCh <- srv.Run(ctx)
	}()

	// 9) graceful shutdown
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
		if err := <-errCh; err != nil {
			slog.Error("http shutdown", "err", err)
		}
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "err", err)
		}
		stop()
	}

	if grpcServer != nil {
		// стримы Subscribe живут до отмены, ждать их нет смысла
		grpcServer.Stop()
	}
	slog.Info("stopped")
}

func openStores(ctx context.Context, cfg config.Storage) (*stores, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pg.NewPool(ctx, cfg.Postgres.ToPGConfig())
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			users:    postgres.NewUserRepository(pool),
			rooms:    postgres.NewRoomRepository(pool),
			messages: postgres.NewMessageRepository(pool),
			close:    pool.Close,
		}, nil
	default:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:    db.Users(),
			rooms:    db.Rooms(),
			messages: db.Messages(),
			close:    func() { _ = db.Close() },
		}, nil
	}
}
