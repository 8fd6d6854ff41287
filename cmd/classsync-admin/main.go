package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/cli"
	"github.com/classsync/classsync-api/internal/repository"
	"github.com/classsync/classsync-api/internal/service"
	"github.com/classsync/classsync-api/migrations"
	"github.com/classsync/classsync-api/pkg/clock"
	"github.com/classsync/classsync-api/pkg/config"
	"github.com/classsync/classsync-api/pkg/database"
	"github.com/classsync/classsync-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db.DB, migrations.FS, ".")
	if err != nil {
		return err
	}

	validate := validator.New()
	clk := clock.New(cfg.Location())
	cacheSvc := service.NewCacheService(nil, nil, cfg.Cache.TTL, logr, false)

	userRepo := repository.NewUserRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)

	root := cli.NewRootCommand(cli.Deps{
		Migrate:   migrator.Run,
		Admins:    service.NewUserService(userRepo, nil, clk, validate, logr),
		AllowList: service.NewAllowedStudentService(repository.NewAllowedStudentRepository(db), validate, logr),
		Monthly: service.NewMonthlyStatService(repository.NewMonthlyStatRepository(db), timetableRepo, holidayRepo,
			cacheSvc, clk, validate, logr),
		Sessions: repository.NewSessionRepository(db),
		Now:      clk.Now,
	})

	if err := root.ExecuteContext(ctx); err != nil {
		logr.Debug("command failed", zap.Error(err))
		return err
	}
	return nil
}
