package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shipmentledger/cache"
	"shipmentledger/config"
	"shipmentledger/db"
	"shipmentledger/db/mongo"
	"shipmentledger/db/postgres"
	"shipmentledger/handlers"
	"shipmentledger/ledger"
	"shipmentledger/logger"
	"shipmentledger/reconcile"
	"shipmentledger/repository"
	"shipmentledger/routes"
	"shipmentledger/submission"
	"shipmentledger/transporter"
)

func main() {
	// Load config from .env or config file
	cfg := config.LoadConfig()

	log := logger.NewWithFormat(cfg.Env, cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbType, err := db.ParseDBType(cfg.DBType)
	if err != nil {
		return err
	}

	var (
		conn  db.DB
		repos repository.Repositories
	)
	switch dbType {
	case db.Postgres:
		// Run migrations (for Postgres)
		if err := db.RunMigrations(cfg.PostgresURL, cfg.MigrationsPath, log); err != nil {
			return err
		}
		pg := postgres.NewPostgresDB(cfg.PostgresURL)
		if err := pg.Connect(ctx); err != nil {
			return err
		}
		conn = pg
		repos = repository.Repositories{
			Requests:     repository.NewPostgresRequestRepo(pg.Conn),
			Assignments:  repository.NewPostgresAssignmentRepo(pg.Conn),
			Transactions: repository.NewPostgresTransactionRepo(pg.Conn),
		}

	case db.Mongo:
		mg := mongo.NewMongoDB(cfg.MongoURL, cfg.MongoDB)
		if err := mg.Connect(ctx); err != nil {
			return err
		}
		if err := mg.EnsureIndexes(ctx); err != nil {
			return err
		}
		conn = mg
		database := mg.Database()
		repos = repository.Repositories{
			Requests:     repository.NewMongoRequestRepo(database),
			Assignments:  repository.NewMongoAssignmentRepo(database),
			Transactions: repository.NewMongoTransactionRepo(database),
		}
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := conn.Disconnect(ctx); err != nil {
			log.Warn("disconnect failed", zap.Error(err))
		}
	}()
	log.Info("database connected", zap.String("db_type", string(dbType)))

	engineOpts := []reconcile.Option{
		reconcile.WithLogger(log),
		reconcile.WithConcurrency(cfg.ReportConcurrency),
	}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisVehicleCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, using in-memory vehicle cache", zap.Error(err))
		} else {
			defer rc.Close()
			engineOpts = append(engineOpts, reconcile.WithCache(rc))
		}
	}

	store := transporter.NewStore(repos.Assignments, transporter.WithTimeout(cfg.FetchTimeout), transporter.WithLogger(log))
	reader := ledger.NewReader(repos.Transactions,
		ledger.WithAssignments(repos.Assignments),
		ledger.WithTimeout(cfg.FetchTimeout),
		ledger.WithLogger(log),
	)
	engine := reconcile.NewEngine(store, reader, engineOpts...)
	orchestrator := submission.NewOrchestrator(repos.Assignments,
		submission.WithTimeout(cfg.FetchTimeout),
		submission.WithConcurrency(cfg.SubmitConcurrency),
		submission.WithInvalidator(engine),
		submission.WithLogger(log),
	)

	// Handlers
	router := routes.NewRouter(routes.Handlers{
		Requests: &handlers.RequestHandler{Repo: repos.Requests},
		Assignments: &handlers.AssignmentHandler{
			Repo:         repos.Assignments,
			Requests:     repos.Requests,
			Orchestrator: orchestrator,
			Cache:        engine,
			Logger:       log,
		},
		Ledger:  &handlers.LedgerHandler{Reader: reader, Cache: engine},
		Summary: &handlers.SummaryHandler{Requests: repos.Requests, Engine: engine},
		Health:  &handlers.HealthHandler{DB: conn},
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running", zap.String("port", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
