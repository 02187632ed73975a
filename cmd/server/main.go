package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/kitsunehq/kitsune"
	"github.com/kitsunehq/kitsune/repository"
	"github.com/kitsunehq/kitsune/server"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("kitsune"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	logger := lgr.GetLogger("app")

	cfg, err := kitsune.LoadConfig()
	if err != nil {
		logger.Error("unable to load configuration", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to open database", "error", err, "dsn", cfg.DatabaseURL)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.NewManager(db)
	repo.MustValidate()

	if err := repo.CreateSchema(ctx); err != nil {
		logger.Error("unable to create schema", "error", err)
		os.Exit(1)
	}

	users := kitsune.NewUserService(repo.Users()).
		WithLogger(lgr.GetLogger("users"))

	tokens := kitsune.NewTokenService(
		[]byte(cfg.SecretKey),
		cfg.TokenTTL(),
		cfg.ProjectName,
		lgr.GetLogger("tokens"),
	)

	srv := server.New(cfg, users, tokens, server.WithLogger(lgr.GetLogger("http")))

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "prefix", cfg.APIPrefix)
		if err := srv.Listen(cfg.ListenAddr); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	waitExitSignal()

	logger.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func waitExitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
