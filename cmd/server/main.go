// Copyright 2026 The Fieldbook Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/auth"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/config"
	"github.com/fieldbook/fieldbook/internal/file"
	"github.com/fieldbook/fieldbook/internal/idempotent"
	"github.com/fieldbook/fieldbook/internal/identity"
	"github.com/fieldbook/fieldbook/internal/observability/logger"
	"github.com/fieldbook/fieldbook/internal/observability/metrics"
	"github.com/fieldbook/fieldbook/internal/observability/tracing"
	"github.com/fieldbook/fieldbook/internal/project"
	"github.com/fieldbook/fieldbook/internal/report"
	"github.com/fieldbook/fieldbook/internal/storage/s3"
	"github.com/fieldbook/fieldbook/internal/store/postgres"
	"github.com/fieldbook/fieldbook/internal/tenant"
	transportHTTP "github.com/fieldbook/fieldbook/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTELEnabled: cfg.Observability.OTELEnabled,
	})
	slog.Info("starting fieldbook api")

	if err := run(cfg); err != nil {
		slog.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to flush traces", logger.Error(err))
		}
	}()

	meter, err := metrics.New(ctx, metrics.Config{Enabled: cfg.Observability.OTELEnabled}, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meter.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to flush metrics", logger.Error(err))
		}
	}()
	var observer idempotent.Observer
	if o, err := metrics.NewIdempotencyObserver(meter); err != nil {
		slog.Error("idempotency metrics disabled", logger.Error(err))
	} else {
		observer = o
	}

	db, err := postgres.New(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to database")

	userRepo := postgres.NewUserRepository(db)
	companyRepo := postgres.NewCompanyRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	fileRepo := postgres.NewFileRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditLogger := audit.NewMultiLogger(
		audit.NewStoreLogger(auditRepo, slog.Default()),
		audit.NewSlogLogger(slog.Default()),
	)
	idem := idempotent.NewManager(observer, slog.Default())
	resolver := authz.NewResolver(projectRepo)

	presigner, err := s3.NewPresigner(ctx, s3.Config{
		Region:       cfg.Storage.Region,
		Endpoint:     cfg.Storage.Endpoint,
		AccessKey:    cfg.Storage.AccessKey,
		SecretKey:    cfg.Storage.SecretKey,
		UsePathStyle: cfg.Storage.UsePathStyle,
		PresignTTL:   cfg.Storage.PresignTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	issuer, err := auth.NewIssuer(cfg.Auth.Issuer, []byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	handler := transportHTTP.NewHandler(transportHTTP.Services{
		Identity: identity.NewService(
			userRepo,
			passwordHasher,
			auditLogger,
			cfg.Security.LockoutMaxAttempts,
			cfg.Security.LockoutDuration,
		),
		Tenant: tenant.NewService(companyRepo, auditLogger),
		Project: project.NewService(projectRepo, projectRepo, userRepo, resolver, auditLogger, idem, project.Options{
			ReaddUpdatesRole: cfg.Membership.ReaddUpdatesRole,
		}),
		Report: report.NewService(reportRepo, resolver, auditLogger, idem),
		File:   file.NewService(fileRepo, presigner, cfg.Storage.Bucket, resolver, auditLogger, idem),
		DB:     db,
	}, issuer)

	localLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go localLimiter.Run(ctx, 10*time.Minute)

	var limiter transportHTTP.Limiter = localLimiter
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, rate limiting falls back to local buckets", logger.Error(err))
		}
		limiter = transportHTTP.NewRedisLimiter(client, cfg.RateLimit.Burst, time.Second, localLimiter)
		slog.Info("using shared rate limiter", logger.Component("ratelimit"))
	}

	clientIPs, err := transportHTTP.NewClientIPResolver(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse TRUSTED_PROXIES: %w", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      transportHTTP.NewRouter(handler, limiter, clientIPs),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
