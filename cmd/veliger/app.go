package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/cebimar/veliger/internal/cache"
	"github.com/cebimar/veliger/internal/config"
	"github.com/cebimar/veliger/internal/engine"
	"github.com/cebimar/veliger/internal/logging"
	"github.com/cebimar/veliger/internal/metadata"
	"github.com/cebimar/veliger/internal/metrics"
	"github.com/cebimar/veliger/migrations"
)

// app is the wired runtime shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	engine   *engine.Engine
	ready    interface{ Ping(context.Context) error }
	registry *prometheus.Registry
	closers  []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger = logger.With(zap.String("version", version))

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	backend, err := a.openBackend()
	if err != nil {
		a.close()
		return nil, err
	}

	charset, ok := metadata.ParseCharset(cfg.Charset)
	if !ok {
		a.close()
		return nil, fmt.Errorf("invalid metadata.charset: %s", cfg.Charset)
	}
	tag, err := language.Parse(cfg.Language)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("invalid suggest.language: %w", err)
	}

	codec := metadata.NewCodec(metadata.Config{Logger: logger.Named("codec"), Observer: m, Clock: time.Now})
	a.engine, err = engine.New(engine.Config{
		Codec:    codec,
		Cache:    cache.New(backend, logger.Named("cache")),
		Logger:   logger.Named("engine"),
		Metrics:  m,
		Language: tag,
		Charset:  charset,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.engine.Reload(ctx)
	return a, nil
}

type pingBackend interface {
	cache.Backend
	Ping(context.Context) error
}

func (a *app) openBackend() (pingBackend, error) {
	switch a.cfg.CacheBackend {
	case config.CacheMySQL:
		db, err := sqlx.Open("mysql", a.cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
		a.closers = append(a.closers, db.Close)
		if err := migrations.Up(a.cfg.DBDSN); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		b := cache.NewSQLBackend(db)
		a.ready = b
		return b, nil
	case config.CacheFile:
		b := cache.NewFileBackend(a.cfg.CacheDir)
		a.ready = b
		return b, nil
	}
	return nil, fmt.Errorf("unsupported cache backend %q", a.cfg.CacheBackend)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
