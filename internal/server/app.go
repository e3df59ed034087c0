// Package server wires the authkeeper components from validated configuration
// and runs the gRPC endpoint until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/denylist"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	server  *gs.GRPCServer
	metrics *metrics.Metrics
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// pingBackoff controls how long startup waits for the database.
var pingBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(4, retry.NewExponential(250*time.Millisecond))
}

// NewApp validates c and builds every component once. Logs go to w as JSON.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSONLogger(w, level)

	denyList, err := denylist.Load(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("deny list: %w", err)
	}
	policyLevel, err := password.ParseLevel(c.PasswordPolicyLevel)
	if err != nil {
		return nil, err
	}
	policy, err := password.NewPolicy(policyLevel, denyList)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(c.BcryptCost)
	if err != nil {
		return nil, err
	}

	encryptor, err := cryptox.NewFieldEncryptor(c.EncryptionKey, c.KDFIterations)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		Algorithm:     c.SigningAlgorithm,
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	}, logger)
	if err != nil {
		return nil, err
	}

	db, repos, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	users, err := services.NewUserService(services.Deps{
		DB:        db,
		Repos:     repos,
		Policy:    policy,
		Hasher:    hasher,
		Encryptor: encryptor,
		Tokens:    tokens,
		Logger:    logger,
	})
	if err != nil {
		closeDB(db)
		return nil, err
	}

	m := metrics.New()
	gate := auth.NewGate(tokens, users, logger, auth.WithRejectionRecorder(m))
	server := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, users, gate, gs.WithRPCObserver(m))

	logger.Info(ctx, "app initialised",
		"policy", string(policy.Level()),
		"algorithm", c.SigningAlgorithm,
		"persistent", db != nil)

	return &App{config: c, logger: logger, db: db, server: server, metrics: m}, nil
}

func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, users are kept in memory")
		return nil, repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	err = retry.Do(ctx, pingBackoff(), func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn(ctx, "database not ready", "error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	return db, m, nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "grpc server failed", "error", err.Error())
			runErr = err
			cancelFunc()
		}
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.metrics.Run(ctx, app.config.MetricsAddr, app.logger); err != nil {
				app.logger.Error(ctx, "metrics server failed", "error", err.Error())
				cancelFunc()
			}
		}()
	}

	wg.Wait()
	closeDB(app.db)
	app.logger.Info(context.Background(), "App stopped")

	return runErr
}
