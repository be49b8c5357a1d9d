// Server runs the identity HTTP API and the gRPC health service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	accountrepo "identity-gateway/backend/internal/account/repository"
	"identity-gateway/backend/internal/audit"
	audithandler "identity-gateway/backend/internal/audit/handler"
	auditrepo "identity-gateway/backend/internal/audit/repository"
	"identity-gateway/backend/internal/config"
	"identity-gateway/backend/internal/db"
	"identity-gateway/backend/internal/devotp"
	devotphandler "identity-gateway/backend/internal/devotp/handler"
	healthhandler "identity-gateway/backend/internal/health/handler"
	identityhandler "identity-gateway/backend/internal/identity/handler"
	"identity-gateway/backend/internal/identity/oauth"
	identityservice "identity-gateway/backend/internal/identity/service"
	"identity-gateway/backend/internal/logging"
	otphandler "identity-gateway/backend/internal/otp/handler"
	otprepo "identity-gateway/backend/internal/otp/repository"
	otpservice "identity-gateway/backend/internal/otp/service"
	"identity-gateway/backend/internal/otp/sms"
	redisclient "identity-gateway/backend/internal/redis"
	"identity-gateway/backend/internal/security"
	"identity-gateway/backend/internal/server"
	sessionhandler "identity-gateway/backend/internal/session/handler"
	sessionrepo "identity-gateway/backend/internal/session/repository"
	sessionservice "identity-gateway/backend/internal/session/service"
	"identity-gateway/backend/internal/telemetry"
	telemetryotel "identity-gateway/backend/internal/telemetry/otel"
	"identity-gateway/backend/internal/telemetry/producer"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	}, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// closer is run on shutdown in reverse registration order.
type closer struct {
	name string
	fn   func(context.Context) error
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (err error) {
	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].fn(shutdownCtx); cerr != nil {
				logger.Warn("shutdown step failed", slog.String("step", closers[i].name), slog.Any("error", cerr))
			}
		}
	}()
	onClose := func(name string, fn func(context.Context) error) {
		closers = append(closers, closer{name: name, fn: fn})
	}

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	onClose("telemetry", providers.Shutdown)

	checker := healthhandler.NewChecker()

	var sqlDB *sql.DB
	if cfg.OTPStore == config.StorePostgres || cfg.AccountStore == config.StorePostgres {
		sqlDB, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		onClose("postgres", func(context.Context) error { return sqlDB.Close() })
		checker.Add("postgres", sqlDB)
	}

	var rdb *redisclient.Client
	if cfg.RedisAddr != "" {
		rdb = redisclient.NewClient(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		onClose("redis", func(context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		checker.Add("redis", healthhandler.PingerFunc(rdb.Ping))
	}

	var challenges otprepo.Store
	switch cfg.OTPStore {
	case config.StorePostgres:
		challenges = otprepo.NewPostgresStore(sqlDB)
	case config.StoreRedis:
		challenges = otprepo.NewRedisStore(rdb.RDB, 0)
	default:
		challenges = otprepo.NewMemoryStore()
	}

	var accounts accountrepo.Repository
	if cfg.AccountStore == config.StorePostgres {
		accounts = accountrepo.NewPostgresRepository(sqlDB)
	} else {
		accounts = accountrepo.NewMemoryRepository()
	}

	var auditLogs auditrepo.Repository
	if sqlDB != nil {
		auditLogs = auditrepo.NewPostgresRepository(sqlDB)
	} else {
		auditLogs = auditrepo.NewMemoryRepository()
	}
	events, err := newEventEmitter(cfg, providers, audit.NewLogger(auditLogs), logger, onClose)
	if err != nil {
		return err
	}

	var revocations sessionrepo.RevocationStore
	if rdb != nil {
		revocations = sessionrepo.NewRedisRevocations(rdb.RDB)
	} else {
		revocations = sessionrepo.NewMemoryRevocations()
	}

	hasher, err := security.NewSecretHasher(cfg.Hasher, cfg.BcryptCost)
	if err != nil {
		return err
	}
	sender, err := newSMSSender(ctx, cfg, logger)
	if err != nil {
		return err
	}
	tokens, err := newTokenProvider(cfg, logger)
	if err != nil {
		return err
	}

	otpOpts := []otpservice.Option{
		otpservice.WithEventEmitter(events),
		otpservice.WithLogger(logger),
	}
	var devCodes *devotp.MemoryStore
	if cfg.OTPReturnToClient {
		devCodes = devotp.NewMemoryStore()
		otpOpts = append(otpOpts, otpservice.WithDevCodeStore(devCodes))
		logger.Warn("dev OTP mode is on: codes are returned to clients and no SMS is sent")
	}
	otpSvc := otpservice.NewChallengeService(challenges, accounts, hasher, sender, otpservice.Config{
		TTL:            cfg.OTPTTL(),
		ReturnToClient: cfg.OTPReturnToClient,
	}, otpOpts...)
	linking := identityservice.NewLinkingService(accounts, hasher, events, logger)
	sessions := sessionservice.NewService(tokens, revocations, events, logger)

	cookies := sessionhandler.Cookies{Secure: cfg.IsProduction()}
	providersReg := oauth.NewRegistry(oauthProviders(cfg)...)
	deps := server.HTTPDeps{
		OTP:            otphandler.NewHandler(otpSvc, sessions, cookies, logger),
		Identity:       identityhandler.NewHandler(providersReg, linking, sessions, cookies, cfg.FrontendURL, logger),
		Sessions:       sessionhandler.NewHandler(sessions, accounts, cookies, logger),
		Health:         checker,
		Audit:          audithandler.NewHandler(auditLogs, logger),
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
	}
	if devCodes != nil && !cfg.IsProduction() {
		deps.DevOTP = devotphandler.NewHandler(devCodes)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var grpcSrv *grpc.Server
	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = server.NewGRPCServer(healthhandler.NewServer(checker, cfg.ServiceName), logger)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	if grpcSrv != nil {
		g.Go(func() error {
			logger.Info("grpc server listening", slog.String("addr", cfg.GRPCAddr))
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newEventEmitter fans auth events out to OTel logs, the audit trail and the configured broker.
// Delivery is asynchronous; pending events are drained on shutdown.
func newEventEmitter(cfg *config.Config, providers *telemetryotel.Providers, auditSink telemetry.EventEmitter,
	logger *slog.Logger, onClose func(string, func(context.Context) error)) (telemetry.EventEmitter, error) {
	sinks := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider), auditSink}

	var p producer.Producer
	switch cfg.EventsSink {
	case "kafka":
		kp, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventsKafkaTopic)
		if err != nil {
			return nil, err
		}
		p = kp
	case "nats":
		np, err := producer.NewNATSProducer(cfg.NATSURL, cfg.EventsNATSSubject)
		if err != nil {
			return nil, err
		}
		p = np
	}
	if p != nil {
		sinks = append(sinks, p)
		onClose("events producer", func(context.Context) error { return p.Close() })
		logger.Info("auth events enabled", slog.String("sink", cfg.EventsSink))
	}

	async := telemetry.NewAsync(sinks, logger)
	onClose("events drain", async.Drain)
	return async, nil
}

func newSMSSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sms.Sender, error) {
	switch cfg.SMSProvider {
	case "smslocal":
		return sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender), nil
	case "sns":
		return sms.NewSNSSenderFromEnv(ctx, cfg.AWSRegion)
	default:
		return sms.NewLogSender(logger), nil
	}
}

func newTokenProvider(cfg *config.Config, logger *slog.Logger) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey != "" {
		signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("jwt keys: %w", err)
		}
		return security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
	}
	logger.Warn("JWT keys not configured; using an ephemeral signing key")
	signer, pub, err := security.GenerateEphemeralKey()
	if err != nil {
		return nil, err
	}
	return security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
}

func oauthProviders(cfg *config.Config) []*oauth.Provider {
	var out []*oauth.Provider
	google := oauth.Credentials{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}
	if google.Configured() {
		out = append(out, oauth.NewGoogle(google))
	}
	facebook := oauth.Credentials{
		ClientID:     cfg.FacebookClientID,
		ClientSecret: cfg.FacebookClientSecret,
		RedirectURL:  cfg.FacebookRedirectURL,
	}
	if facebook.Configured() {
		out = append(out, oauth.NewFacebook(facebook))
	}
	return out
}
