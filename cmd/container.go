// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, mail, jobs) and
// composes bounded-context containers. This is the only place that knows
// about ALL modules.
package main

import (
	"context"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/iam/credentials"
	"github.com/Abraxas-365/lingua/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/lingua/pkg/iam/migrations"
	"github.com/Abraxas-365/lingua/pkg/jobx"
	"github.com/Abraxas-365/lingua/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/lingua/pkg/logx"
	"github.com/Abraxas-365/lingua/pkg/notifx"
	"github.com/Abraxas-365/lingua/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/lingua/pkg/notifx/notifxses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB       *sqlx.DB
	Redis    *redis.Client
	Notifier *notifx.Client
	Jobs     *jobx.Client
	Metrics  *prometheus.Registry

	// Bounded-context containers
	IAM *iamcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, mail, jobs, metrics
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")
	ctx := context.Background()

	// 1. Database
	err := connectWithRetry(ctx, "database", func(ctx context.Context) error {
		db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.DSN())
		if err != nil {
			return err
		}
		c.DB = db
		return nil
	})
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	c.DB.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	c.DB.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	c.DB.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	logx.Info("  ✅ Database connected")

	if c.Config.Database.MigrateOnStart {
		c.migrate()
	}

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	err = connectWithRetry(ctx, "redis", func(ctx context.Context) error {
		return c.Redis.Ping(ctx).Err()
	})
	if err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. Mail
	c.initNotifier(ctx)

	// 4. Jobs
	c.Jobs = jobx.NewClient(jobxredis.NewRedisQueue(c.Redis), jobx.FromConfig(c.Config.Jobx))
	logx.Infof("  ✅ Job queue configured (queues: %v)", c.Config.Jobx.Queues)

	// 5. Metrics
	c.Metrics = prometheus.NewRegistry()
	c.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auth.RegisterMetrics(c.Metrics)
	credentials.RegisterMetrics(c.Metrics)
	jobx.RegisterMetrics(c.Metrics)

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) migrate() {
	m, err := migrations.NewMigrator(c.Config.Database.URL())
	if err != nil {
		logx.Fatalf("Failed to open migrations: %v", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			logx.WithError(err).Warn("Closing migrator")
		}
	}()
	if err := m.Up(); err != nil {
		logx.Fatalf("Failed to apply migrations: %v", err)
	}
}

func (c *Container) initNotifier(ctx context.Context) {
	cfg := c.Config.Notifx

	switch cfg.Provider {
	case "ses":
		provider, err := notifxses.NewFromRegion(ctx, cfg.AWSRegion)
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.Notifier = notifx.NewClient(provider, cfg.FromAddress, cfg.FromName)
		logx.Infof("  ✅ SES mail configured (region: %s)", cfg.AWSRegion)

	case "console":
		c.Notifier = notifx.NewClient(notifxconsole.NewConsoleProvider(), cfg.FromAddress, cfg.FromName)
		logx.Info("  ✅ Console mail configured")

	default:
		logx.Fatalf("Unknown NOTIFX_PROVIDER: %s (use 'console' or 'ses')", cfg.Provider)
	}
}

// connectWithRetry retries fn with capped exponential backoff for up to a
// minute.
func connectWithRetry(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	b := retry.NewExponential(500 * time.Millisecond)
	b = retry.WithCappedDuration(8*time.Second, b)
	b = retry.WithMaxDuration(time.Minute, b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			logx.WithFields(logx.Fields{"service": name, "attempt": attempt}).
				WithError(err).Warn("Connection attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Module composition: each bounded context wires itself
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	iam, err := iamcontainer.New(iamcontainer.Deps{
		DB:       c.DB,
		Redis:    c.Redis,
		Cfg:      c.Config,
		Notifier: c.Notifier,
		Jobs:     c.Jobs,
	})
	if err != nil {
		logx.Fatalf("Failed to initialize IAM module: %v", err)
	}
	c.IAM = iam
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	go func() {
		if err := c.Jobs.Start(ctx); err != nil {
			logx.WithError(err).Error("Job worker stopped")
		}
	}()
	logx.Info("  ✅ Job worker started")

	c.IAM.StartBackgroundServices(ctx)
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
