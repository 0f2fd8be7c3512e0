package main

import (
    "context"
    "flag"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"

    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/health"
    "github.com/dialerhub/core/internal/httpapi"
    "github.com/dialerhub/core/internal/metrics"
    "github.com/dialerhub/core/pkg/logger"
)

var (
    configFile string
    verbose    bool

    // Global services - shared with commands.go, grounded on
    // cmd/router/main.go's package-level service variables.
    database  *db.DB
    cache     *db.Cache
    httpSvc   *httpapi.Server
    healthSvc *health.HealthService
    metricsSvc *metrics.PrometheusMetrics
)

func main() {
    // A flag invocation that includes `-serve` (optionally with
    // `-config`/`-verbose`) runs the long-lived server, matching
    // cmd/router's dual flag/CLI dispatch; anything else (including no
    // args) falls through to the cobra subcommand tree.
    serveMode := false
    fs := flag.NewFlagSet("dialerhub", flag.ContinueOnError)
    fs.StringVar(&configFile, "config", "", "Configuration file path")
    fs.BoolVar(&serveMode, "serve", false, "Run the HTTP/metrics/health server")
    fs.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
    if fs.Parse(os.Args[1:]) == nil && serveMode {
        runServerMode()
        return
    }

    runCLI()
}

func runServerMode() {
    ctx := context.Background()

    if err := loadConfig(); err != nil {
        fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
        os.Exit(1)
    }

    logConfig := logger.Config{
        Level:  appCfg.Monitoring.Logging.Level,
        Format: appCfg.Monitoring.Logging.Format,
        Output: appCfg.Monitoring.Logging.Output,
        File: logger.FileConfig{
            Enabled:    appCfg.Monitoring.Logging.File.Enabled,
            Path:       appCfg.Monitoring.Logging.File.Path,
            MaxSize:    appCfg.Monitoring.Logging.File.MaxSize,
            MaxBackups: appCfg.Monitoring.Logging.File.MaxBackups,
            MaxAge:     appCfg.Monitoring.Logging.File.MaxAge,
            Compress:   appCfg.Monitoring.Logging.File.Compress,
        },
    }
    if verbose {
        logConfig.Level = "debug"
    }
    if err := logger.Init(logConfig); err != nil {
        fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
        os.Exit(1)
    }

    if err := initializeServices(ctx); err != nil {
        logger.WithField("error", err).Fatal("failed to initialize services")
    }

    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

    go func() {
        if err := httpSvc.Start(); err != nil {
            logger.WithField("error", err).Fatal("dialer HTTP surface failed")
        }
    }()

    <-sigChan
    logger.Info("shutting down")

    if err := httpSvc.Stop(); err != nil {
        logger.WithField("error", err).Error("error stopping dialer HTTP surface")
    }
    if healthSvc != nil {
        _ = healthSvc.Stop()
    }

    logger.Info("shutdown complete")
}

func runCLI() {
    rootCmd := &cobra.Command{
        Use:   "dialerhub",
        Short: "Multi-tenant outbound dialer coordination core",
        Long:  "Batch assignment, call outcome ingestion, scheduling gate, and wallet billing for the dialer fleet.",
    }
    rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")

    rootCmd.AddCommand(
        createServeCommand(),
        createWalletCommands(),
        createNumbersCommands(),
        createScheduleCommands(),
        createTenantCommands(),
    )

    if err := rootCmd.Execute(); err != nil {
        fmt.Fprintf(os.Stderr, "error: %v\n", err)
        os.Exit(1)
    }
}

// createServeCommand lets `dialerhub serve` be used interchangeably
// with the `-serve` flag form (spec §6 favors a single long-running
// process over a CLI-only tool).
func createServeCommand() *cobra.Command {
    return &cobra.Command{
        Use:   "serve",
        Short: "Run the dialer HTTP surface, metrics, and health endpoints",
        RunE: func(cmd *cobra.Command, args []string) error {
            runServerMode()
            return nil
        },
    }
}
