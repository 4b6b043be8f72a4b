package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	auth "github.com/goliatone/go-auth-gateway"
	"github.com/goliatone/go-auth-gateway/activitymap"
	"github.com/goliatone/go-auth-gateway/repository"
	"github.com/goliatone/go-auth-gateway/social"
	"github.com/goliatone/go-auth-gateway/social/providers/facebook"
	"github.com/goliatone/go-auth-gateway/social/providers/google"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"
)

func main() {
	cfg, err := auth.LoadConfig()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	zlog := newZap(cfg.Debug)
	defer zlog.Sync() //nolint:errcheck

	logger := auth.NewZapLogger(zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		zlog.Fatal("gateway stopped", zap.Error(err))
	}
}

func newZap(debug bool) *zap.Logger {
	var (
		zlog *zap.Logger
		err  error
	)
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return zlog
}

func run(ctx context.Context, cfg auth.Config, logger auth.Logger) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if err := repository.CreateSchema(ctx, db); err != nil {
		return err
	}
	users := repository.NewUsers(db)

	blacklist, closeBlacklist, err := newBlacklist(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBlacklist()

	activity := activitymap.LogSink(logger)

	minter := auth.NewJWTMinter([]byte(cfg.SigningKey),
		auth.WithMinterIssuer(cfg.Issuer),
		auth.WithMinterTTL(cfg.AccessTTL, cfg.RefreshTTL),
		auth.WithMinterLogger(logger),
	)

	tokens := auth.NewJWTTokenService(users, blacklist, minter).
		WithLogger(logger).
		WithActivitySink(activity)

	gateway := auth.NewGateway(cfg, tokens, users).
		WithLogger(logger).
		WithActivitySink(activity).
		WithProviders(providers(cfg)...)

	if cfg.GoogleEnabled() {
		verifier, err := google.NewJWKSIDTokenVerifier(ctx, cfg.GoogleClientID, cfg.GoogleCertsURL, nil, func(err error) {
			logger.Warn("google signing keys refresh failed", "error", err)
		})
		if err != nil {
			logger.Error("google id token login disabled", "error", err)
		} else {
			defer verifier.Close()
			gateway.WithIDTokenVerifier(verifier)
		}
	}

	logger.Info("providers configured", "providers", strings.Join(gateway.Providers(), ","))

	app := fiber.New(fiber.Config{
		AppName:      "go-auth-gateway",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
	}))

	auth.NewHTTPController(gateway, minter).
		WithLogger(logger).
		WithDebug(cfg.Debug).
		Register(app)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errc <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func providers(cfg auth.Config) []social.Provider {
	var out []social.Provider
	if cfg.GoogleEnabled() {
		out = append(out, google.New(google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		}))
	}
	if cfg.FacebookEnabled() {
		out = append(out, facebook.New(facebook.Config{
			ClientID:     cfg.FacebookClientID,
			ClientSecret: cfg.FacebookClientSecret,
			State:        cfg.FacebookState,
		}))
	}
	return out
}

func newBlacklist(ctx context.Context, cfg auth.Config, logger auth.Logger) (auth.Blacklist, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory token blacklist")
		return auth.NewMemoryBlacklist(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}

	logger.Info("using redis token blacklist", "addr", cfg.RedisAddr)
	return repository.NewRedisBlacklist(client, ""), func() { client.Close() }, nil
}
