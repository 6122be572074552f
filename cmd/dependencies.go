package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/reimbursement-management/internal"
	"github.com/frahmantamala/reimbursement-management/internal/application"
	appPostgres "github.com/frahmantamala/reimbursement-management/internal/application/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/auth"
	authPostgres "github.com/frahmantamala/reimbursement-management/internal/auth/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/category"
	categoryPostgres "github.com/frahmantamala/reimbursement-management/internal/category/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/core/database"
	"github.com/frahmantamala/reimbursement-management/internal/core/events"
	"github.com/frahmantamala/reimbursement-management/internal/notification"
	"github.com/frahmantamala/reimbursement-management/internal/payment"
	paymentPostgres "github.com/frahmantamala/reimbursement-management/internal/payment/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/transport/rest"
	"github.com/frahmantamala/reimbursement-management/internal/user"
	userPostgres "github.com/frahmantamala/reimbursement-management/internal/user/postgres"
	"github.com/frahmantamala/reimbursement-management/internal/workerpool"
	"github.com/frahmantamala/reimbursement-management/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	gormLogger "gorm.io/gorm/logger"
)

// Dependencies is everything the commands share. Close releases them in
// reverse order of construction.
type Dependencies struct {
	Config *internal.Config
	Logger *slog.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Bus    *events.EventBus
	Pool   *workerpool.Pool
	Sender notification.Sender

	Auth         *auth.Service
	Users        *user.Service
	Categories   *category.Service
	Applications *application.Service
	Payments     *payment.Service
	Dispatcher   *notification.Dispatcher

	closers []func() error
}

func initializeDependencies(cfg *internal.Config) (*Dependencies, error) {
	lg := logger.LoggerWrapper()
	deps := &Dependencies{Config: cfg, Logger: lg}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db
	deps.closers = append(deps.closers, db.Close)

	gormLevel := gormLogger.Warn
	if cfg.Observability.Logging.Level == "debug" {
		gormLevel = gormLogger.Info
	}
	gormDB, err := database.OpenGorm(db.DB, gormLevel)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	var batchIDs payment.BatchIDGenerator
	if cfg.Redis.Addr != "" {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.closers = append(deps.closers, deps.Redis.Close)
		batchIDs = payment.NewRedisBatchIDGenerator(deps.Redis)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		sender, err := notification.NewKafkaSender(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, lg)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to connect to kafka: %w", err)
		}
		deps.Sender = sender
		deps.closers = append(deps.closers, sender.Close)
	} else {
		deps.Sender = notification.NewLogSender(lg)
	}

	policy, err := application.NewSubsidyPolicy(cfg.Subsidy.Rate, cfg.Subsidy.MaxAmount)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("invalid subsidy config: %w", err)
	}

	deps.Bus = events.NewEventBus(lg)
	deps.closers = append(deps.closers, func() error {
		deps.Bus.Wait()
		return nil
	})

	deps.Pool = workerpool.New(workerpool.Config{
		MaxWorkers:   cfg.Export.Workers,
		JobQueueSize: cfg.Export.QueueSize,
	}, lg)
	deps.closers = append(deps.closers, func() error {
		deps.Pool.Shutdown()
		return nil
	})

	deps.Users = user.NewService(userPostgres.NewUserRepository(db), lg)
	deps.Categories = category.NewService(categoryPostgres.NewCategoryRepository(gormDB), lg)
	deps.Auth = auth.NewService(
		authPostgres.NewRepository(gormDB),
		auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration),
		cfg.Security.BCryptCost,
		lg,
	)
	deps.Applications = application.NewService(
		appPostgres.NewApplicationRepository(gormDB),
		deps.Categories,
		deps.Bus,
		policy,
		application.Options{NumberPrefix: cfg.Application.NumberPrefix, MaxAgeDays: cfg.Application.MaxAgeDays},
		lg,
	)
	deps.Payments = payment.NewService(
		paymentPostgres.NewPaymentRepository(gormDB),
		batchIDs,
		deps.Pool,
		payment.ProfileFromConfig(cfg.Zengin),
		lg,
	)

	deps.Dispatcher = notification.NewDispatcher(deps.Sender, deps.Users, lg)
	deps.Dispatcher.Register(deps.Bus)

	return deps, nil
}

// healthComponents lists the optional backends the health endpoint reports on.
func (d *Dependencies) healthComponents() map[string]rest.Pinger {
	extra := map[string]rest.Pinger{}
	if d.Redis != nil {
		extra["redis"] = rest.PingFunc(func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		})
	}
	return extra
}

func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Error("failed to release dependency", "error", err)
		}
	}
	d.closers = nil
}
