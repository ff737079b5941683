package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/driveon/idverify/internal/config"
	"github.com/driveon/idverify/internal/core/analysis"
	"github.com/driveon/idverify/internal/core/jurisdiction"
	"github.com/driveon/idverify/internal/core/ports"
	"github.com/driveon/idverify/internal/core/usecase"
	"github.com/driveon/idverify/internal/infrastructure/imagetransform"
	"github.com/driveon/idverify/internal/infrastructure/queue/nats"
	"github.com/driveon/idverify/internal/infrastructure/repository/postgres"
	"github.com/driveon/idverify/internal/infrastructure/resilience"
	"github.com/driveon/idverify/internal/infrastructure/vision/anthropic"
	"github.com/driveon/idverify/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue    ports.BatchEventQueue
	Bookings ports.BookingRepository
	Jobs     ports.BatchJobRepository

	VerifyUC ports.DocumentVerifier
	BatchUC  ports.BatchProcessor

	Metrics *metrics.VerificationMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	bookings := postgres.NewBookingRepository(db)
	if err := bookings.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	jobs := postgres.NewBatchJobRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	vision, err := anthropic.New(anthropic.Config{
		APIKey:   cfg.AnthropicAPIKey,
		BaseURL:  cfg.AnthropicBaseURL,
		Model:    cfg.VisionModel,
		Timeout:  2 * time.Minute,
		Executor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init vision client: %w", err)
	}

	rules, err := jurisdiction.Load()
	if err != nil {
		return nil, fmt.Errorf("load jurisdiction profiles: %w", err)
	}
	images := imagetransform.New(cfg.ImageHost, cfg.ImageMaxDimension, cfg.ImageQuality)
	builder := analysis.NewBuilder(rules, images)

	verificationMetrics := metrics.NewVerificationMetrics("idverify")

	verifyUC := usecase.NewVerifyUseCase(vision, bookings, builder, verificationMetrics)
	batchUC := usecase.NewBatchUseCase(vision, bookings, jobs, builder, nil, verificationMetrics)

	return &App{
		Config: cfg,

		Queue:    queue,
		Bookings: bookings,
		Jobs:     jobs,

		VerifyUC: verifyUC,
		BatchUC:  batchUC,

		Metrics: verificationMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
