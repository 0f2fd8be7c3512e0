package main

import (
    "context"
    "fmt"

    "github.com/dialerhub/core/internal/config"
    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/health"
    "github.com/dialerhub/core/internal/httpapi"
    "github.com/dialerhub/core/internal/metrics"
    "github.com/dialerhub/core/pkg/logger"
)

var appCfg *config.Config

// loadConfig reads the full application configuration once, the way
// cmd/router's loadConfig populates viper — except this service's own
// internal/config.Load already owns the viper plumbing, so the CLI
// layer just calls it and keeps the result.
func loadConfig() error {
    cfg, err := config.Load(configFile)
    if err != nil {
        return err
    }
    appCfg = cfg
    return nil
}

// initializeServices wires the database, cache, HTTP surface, metrics,
// and health checks together, grounded on cmd/router/config.go's
// initializeDatabase but trimmed to this domain's ambient stack (no
// ARA/AMI/router/provider services to construct).
func initializeServices(ctx context.Context) error {
    dbConfig := db.Config{
        Driver:          appCfg.Database.Driver,
        Host:            appCfg.Database.Host,
        Port:            appCfg.Database.Port,
        Username:        appCfg.Database.Username,
        Password:        appCfg.Database.Password,
        Database:        appCfg.Database.Database,
        MaxOpenConns:    appCfg.Database.MaxOpenConns,
        MaxIdleConns:    appCfg.Database.MaxIdleConns,
        ConnMaxLifetime: appCfg.Database.ConnMaxLifetime,
        RetryAttempts:   appCfg.Database.RetryAttempts,
        RetryDelay:      appCfg.Database.RetryDelay,
    }
    if err := db.Initialize(dbConfig); err != nil {
        return fmt.Errorf("failed to initialize database: %w", err)
    }
    database = db.GetDB()

    if err := db.RunMigrations(database.DB); err != nil {
        return fmt.Errorf("failed to run migrations: %w", err)
    }

    cacheConfig := db.CacheConfig{
        Host:         appCfg.Redis.Host,
        Port:         appCfg.Redis.Port,
        Password:     appCfg.Redis.Password,
        DB:           appCfg.Redis.DB,
        PoolSize:     appCfg.Redis.PoolSize,
        MinIdleConns: appCfg.Redis.MinIdleConns,
        MaxRetries:   appCfg.Redis.MaxRetries,
    }
    if err := db.InitializeCache(cacheConfig, "dialerhub"); err != nil {
        logger.WithField("error", err).Warn("failed to initialize redis cache, continuing without it")
    }
    cache = db.GetCache()

    httpSvc = httpapi.NewServer(appCfg.HTTP, appCfg.Dialer, appCfg.Billing, appCfg.SMS, database, cache)

    metricsSvc = metrics.NewPrometheusMetrics()

    if appCfg.Monitoring.Health.Enabled {
        healthSvc = health.NewHealthService(appCfg.Monitoring.Health.Port)

        healthSvc.RegisterLivenessCheck("database", health.CheckFunc(func(ctx context.Context) error {
            if !database.IsHealthy() {
                return fmt.Errorf("database not healthy")
            }
            return database.PingContext(ctx)
        }))
        healthSvc.RegisterReadinessCheck("database", health.CheckFunc(func(ctx context.Context) error {
            return database.PingContext(ctx)
        }))
        healthSvc.RegisterReadinessCheck("cache", health.CheckFunc(func(ctx context.Context) error {
            return cache.Ping(ctx)
        }))

        go func() {
            if err := healthSvc.Start(); err != nil {
                logger.WithField("error", err).Error("health service stopped")
            }
        }()
    }

    if appCfg.Monitoring.Metrics.Enabled {
        go func() {
            if err := metricsSvc.ServeHTTP(appCfg.Monitoring.Metrics.Port); err != nil {
                logger.WithField("error", err).Error("metrics server stopped")
            }
        }()
    }

    return nil
}

// initializeForCLI is the lightweight counterpart used by the `wallet`,
// `numbers`, `schedule`, and `tenant` subcommands: config + database +
// cache, no HTTP/metrics/health servers (cmd/router's own commented-out
// initializeForCLI is the model this is grounded on).
func initializeForCLI(ctx context.Context) error {
    if err := loadConfig(); err != nil {
        return fmt.Errorf("failed to load config: %w", err)
    }

    logConfig := logger.Config{
        Level:  appCfg.Monitoring.Logging.Level,
        Format: "text",
        Output: appCfg.Monitoring.Logging.Output,
    }
    if logConfig.Level == "" {
        logConfig.Level = "info"
    }
    if err := logger.Init(logConfig); err != nil {
        return fmt.Errorf("failed to initialize logger: %w", err)
    }

    dbConfig := db.Config{
        Driver:          appCfg.Database.Driver,
        Host:            appCfg.Database.Host,
        Port:            appCfg.Database.Port,
        Username:        appCfg.Database.Username,
        Password:        appCfg.Database.Password,
        Database:        appCfg.Database.Database,
        MaxOpenConns:    appCfg.Database.MaxOpenConns,
        MaxIdleConns:    appCfg.Database.MaxIdleConns,
        ConnMaxLifetime: appCfg.Database.ConnMaxLifetime,
        RetryAttempts:   appCfg.Database.RetryAttempts,
        RetryDelay:      appCfg.Database.RetryDelay,
    }
    if err := db.Initialize(dbConfig); err != nil {
        return fmt.Errorf("failed to initialize database: %w", err)
    }
    database = db.GetDB()

    cacheConfig := db.CacheConfig{
        Host:         appCfg.Redis.Host,
        Port:         appCfg.Redis.Port,
        Password:     appCfg.Redis.Password,
        DB:           appCfg.Redis.DB,
        PoolSize:     appCfg.Redis.PoolSize,
        MinIdleConns: appCfg.Redis.MinIdleConns,
        MaxRetries:   appCfg.Redis.MaxRetries,
    }
    if err := db.InitializeCache(cacheConfig, "dialerhub"); err != nil {
        logger.WithField("error", err).Warn("failed to initialize redis cache, continuing without it")
    }
    cache = db.GetCache()

    return nil
}
