// Command revline runs the shop management API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/revlinehq/revline/internal/authn"
	"github.com/revlinehq/revline/internal/authn/password"
	"github.com/revlinehq/revline/internal/authn/ratelimit"
	"github.com/revlinehq/revline/internal/authn/session"
	"github.com/revlinehq/revline/internal/authn/token"
	"github.com/revlinehq/revline/internal/config"
	"github.com/revlinehq/revline/internal/seed"
	"github.com/revlinehq/revline/internal/server"
	"github.com/revlinehq/revline/internal/shop"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := shop.Migrate(db); err != nil {
		return err
	}
	if err := seed.Meta(db, log); err != nil {
		return err
	}
	if cfg.SeedDemoData {
		if err := seed.ActiveROs(db, log); err != nil {
			return err
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable at startup, continuing")
	}

	tokens, err := token.NewManager(token.Config{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}

	hasherCfg := password.DefaultConfig()
	if cfg.PasswordMemoryKB > 0 {
		hasherCfg.Memory = cfg.PasswordMemoryKB
	}
	if cfg.PasswordTime > 0 {
		hasherCfg.Time = cfg.PasswordTime
	}
	hasher, err := password.NewHasher(hasherCfg)
	if err != nil {
		return err
	}

	store := session.NewStore(redisClient, cfg.RefreshTokenTTL, log)
	families := session.NewFamilies(redisClient, cfg.RefreshTokenTTL, log)
	strategy, err := session.NewStrategy(cfg.RefreshStrategy, families, log)
	if err != nil {
		return err
	}
	rotator := session.NewRotator(tokens, store, strategy, log)

	cookies := authn.DefaultCookieConfig(cfg.RefreshTokenTTL)
	cookies.Enabled = cfg.CookieMode
	cookies.Domain = cfg.CookieDomain
	cookies.Secure = cfg.CookieSecure
	cookies.SameSite = authn.ParseSameSite(cfg.CookieSameSite)

	authHandler := authn.NewHandler(db, tokens, hasher, rotator, cookies, log)
	shopHandler := shop.NewHandler(db, log)

	authLimiter := ratelimit.New(redisClient, ratelimit.Config{
		Limit:  cfg.AuthRateLimitTimes,
		Window: time.Duration(cfg.AuthRateLimitSeconds) * time.Second,
		Scope:  ratelimit.ScopeIP,
	}, log)
	refreshLimiter := ratelimit.New(redisClient, ratelimit.Config{
		Limit:  cfg.RefreshRateLimitTimes,
		Window: time.Duration(cfg.RefreshRateLimitSeconds) * time.Second,
		Scope:  ratelimit.ScopeBoth,
	}, log)

	engine := server.New(server.Config{
		CORSOrigins: cfg.CORSOrigins,
		CSPMode:     server.CSPMode(cfg.CSPMode),
	}, server.Deps{
		Auth:           authHandler,
		Shop:           shopHandler,
		AuthLimiter:    authLimiter,
		RefreshLimiter: refreshLimiter,
		Metrics:        server.NewMetrics(),
		Log:            log,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openDatabase selects the gorm driver from the URL scheme. Anything that is
// not a postgres URL is treated as a sqlite DSN.
func openDatabase(url string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return gorm.Open(postgres.Open(url), gormCfg)
	}
	return gorm.Open(sqlite.Open(strings.TrimPrefix(url, "sqlite://")), gormCfg)
}
