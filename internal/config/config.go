// Package config loads the service's configuration the way the
// teacher's internal/config does: a nested struct with mapstructure
// tags, populated by viper from a config file, environment variables
// (DIALERHUB_ prefix), and hard-coded defaults, then validated once at
// startup (spec §9: "implicit global state for configuration" is
// replaced by this injected, immutable value).
package config

import (
    "fmt"
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
    App        AppConfig        `mapstructure:"app"`
    Database   DatabaseConfig   `mapstructure:"database"`
    Redis      RedisConfig      `mapstructure:"redis"`
    Dialer     DialerConfig     `mapstructure:"dialer"`
    Billing    BillingConfig    `mapstructure:"billing"`
    SMS        SMSConfig        `mapstructure:"sms"`
    HTTP       HTTPConfig       `mapstructure:"http"`
    Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type AppConfig struct {
    Name        string `mapstructure:"name"`
    Environment string `mapstructure:"environment"`
    Debug       bool   `mapstructure:"debug"`
}

type DatabaseConfig struct {
    Driver          string        `mapstructure:"driver"`
    Host            string        `mapstructure:"host"`
    Port            int           `mapstructure:"port"`
    Username        string        `mapstructure:"username"`
    Password        string        `mapstructure:"password"`
    Database        string        `mapstructure:"database"`
    MaxOpenConns    int           `mapstructure:"max_open_conns"`
    MaxIdleConns    int           `mapstructure:"max_idle_conns"`
    ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
    RetryAttempts   int           `mapstructure:"retry_attempts"`
    RetryDelay      time.Duration `mapstructure:"retry_delay"`
    Charset         string        `mapstructure:"charset"`
}

type RedisConfig struct {
    Host         string        `mapstructure:"host"`
    Port         int           `mapstructure:"port"`
    Password     string        `mapstructure:"password"`
    DB           int           `mapstructure:"db"`
    PoolSize     int           `mapstructure:"pool_size"`
    MinIdleConns int           `mapstructure:"min_idle_conns"`
    MaxRetries   int           `mapstructure:"max_retries"`
    DialTimeout  time.Duration `mapstructure:"dial_timeout"`
    ReadTimeout  time.Duration `mapstructure:"read_timeout"`
    WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DialerConfig holds the Batch Assignment Engine's tunables (spec §6).
type DialerConfig struct {
    DefaultBatchSize          int           `mapstructure:"default_batch_size"`
    MaxBatchSize              int           `mapstructure:"max_batch_size"`
    AssignmentTimeoutMinutes  int           `mapstructure:"assignment_timeout_minutes"`
    CallCooldownDays          int           `mapstructure:"call_cooldown_days"`
    Timezone                  string        `mapstructure:"timezone"`
    ShortRetrySeconds         int           `mapstructure:"short_retry_seconds"`
    LongRetrySeconds          int           `mapstructure:"long_retry_seconds"`
    Token                     string        `mapstructure:"token"`
    StaleSweepInterval        time.Duration `mapstructure:"stale_sweep_interval"`
}

// BillingConfig holds the default wallet/charge policy settings. They
// are not read when a tenant's ScheduleConfig row is first created:
// store.ScheduleConfigForUpdate inserts fixed defaults (skip holidays
// on, cost per connected call 150).
type BillingConfig struct {
    DefaultCostPerConnected  int64 `mapstructure:"default_cost_per_connected"`
    SkipHolidaysDefault      bool  `mapstructure:"skip_holidays_default"`
}

// BankProfile bundles a bank's sender numbers with notification config
// (GLOSSARY: Bank profile).
type BankProfile struct {
    Key            string   `mapstructure:"key"`
    DisplayName    string   `mapstructure:"display_name"`
    Senders        []string `mapstructure:"senders"`
    ManagerNumbers []string `mapstructure:"manager_numbers"`
    NotifyAPIURL   string   `mapstructure:"notify_api_url"`
    NotifyAPIKey   string   `mapstructure:"notify_api_key"`
}

// SMSConfig holds the bank-profile set and the Google Sheet webhook.
type SMSConfig struct {
    Profiles           []BankProfile `mapstructure:"profiles"`
    ForwardTimeout     time.Duration `mapstructure:"forward_timeout"`
    GoogleSheetWebhook GoogleSheetWebhookConfig `mapstructure:"google_sheet_webhook"`
}

type GoogleSheetWebhookConfig struct {
    Enabled bool          `mapstructure:"enabled"`
    URL     string        `mapstructure:"url"`
    Token   string        `mapstructure:"token"`
    Company string        `mapstructure:"company"`
    Timeout time.Duration `mapstructure:"timeout"`
}

// ProfileFor returns the bank profile whose Senders contains sender,
// or ok=false if none match.
func (c *SMSConfig) ProfileFor(sender string) (BankProfile, bool) {
    for _, p := range c.Profiles {
        for _, s := range p.Senders {
            if s == sender {
                return p, true
            }
        }
    }
    return BankProfile{}, false
}

// HTTPConfig holds the dialer/SMS HTTP surface settings (spec §6).
type HTTPConfig struct {
    ListenAddress string        `mapstructure:"listen_address"`
    Port          int           `mapstructure:"port"`
    ReadTimeout   time.Duration `mapstructure:"read_timeout"`
    WriteTimeout  time.Duration `mapstructure:"write_timeout"`
    ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MonitoringConfig struct {
    Metrics MetricsConfig `mapstructure:"metrics"`
    Health  HealthConfig  `mapstructure:"health"`
    Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
    Enabled bool `mapstructure:"enabled"`
    Port    int  `mapstructure:"port"`
}

type HealthConfig struct {
    Enabled bool `mapstructure:"enabled"`
    Port    int  `mapstructure:"port"`
}

type LoggingConfig struct {
    Level  string        `mapstructure:"level"`
    Format string        `mapstructure:"format"`
    Output string        `mapstructure:"output"`
    File   FileLogConfig `mapstructure:"file"`
}

type FileLogConfig struct {
    Enabled    bool   `mapstructure:"enabled"`
    Path       string `mapstructure:"path"`
    MaxSize    int    `mapstructure:"max_size"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAge     int    `mapstructure:"max_age"`
    Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from file, environment, and defaults, the
// way cmd/router's config.Load does.
func Load(configFile string) (*Config, error) {
    if configFile != "" {
        viper.SetConfigFile(configFile)
    } else {
        viper.SetConfigName("config")
        viper.SetConfigType("yaml")
        viper.AddConfigPath("./configs")
        viper.AddConfigPath("/etc/dialerhub")
        viper.AddConfigPath(".")
    }

    viper.SetEnvPrefix("DIALERHUB")
    viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    viper.AutomaticEnv()

    setDefaults()

    if err := viper.ReadInConfig(); err != nil {
        if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
            return nil, fmt.Errorf("failed to read config file: %w", err)
        }
    }

    var cfg Config
    if err := viper.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("failed to unmarshal config: %w", err)
    }

    if err := cfg.Validate(); err != nil {
        return nil, fmt.Errorf("invalid configuration: %w", err)
    }

    return &cfg, nil
}

func setDefaults() {
    viper.SetDefault("app.name", "dialerhub")
    viper.SetDefault("app.environment", "development")
    viper.SetDefault("app.debug", false)

    viper.SetDefault("database.driver", "mysql")
    viper.SetDefault("database.host", "localhost")
    viper.SetDefault("database.port", 3306)
    viper.SetDefault("database.username", "dialerhub")
    viper.SetDefault("database.password", "dialerhub")
    viper.SetDefault("database.database", "dialerhub")
    viper.SetDefault("database.max_open_conns", 25)
    viper.SetDefault("database.max_idle_conns", 5)
    viper.SetDefault("database.conn_max_lifetime", "5m")
    viper.SetDefault("database.retry_attempts", 3)
    viper.SetDefault("database.retry_delay", "1s")
    viper.SetDefault("database.charset", "utf8mb4")

    viper.SetDefault("redis.host", "localhost")
    viper.SetDefault("redis.port", 6379)
    viper.SetDefault("redis.db", 0)
    viper.SetDefault("redis.pool_size", 10)
    viper.SetDefault("redis.min_idle_conns", 5)
    viper.SetDefault("redis.max_retries", 3)
    viper.SetDefault("redis.dial_timeout", "5s")
    viper.SetDefault("redis.read_timeout", "3s")
    viper.SetDefault("redis.write_timeout", "3s")

    viper.SetDefault("dialer.default_batch_size", 100)
    viper.SetDefault("dialer.max_batch_size", 500)
    viper.SetDefault("dialer.assignment_timeout_minutes", 60)
    viper.SetDefault("dialer.call_cooldown_days", 3)
    viper.SetDefault("dialer.timezone", "Asia/Tehran")
    viper.SetDefault("dialer.short_retry_seconds", 300)
    viper.SetDefault("dialer.long_retry_seconds", 900)
    viper.SetDefault("dialer.stale_sweep_interval", "60s")

    viper.SetDefault("billing.default_cost_per_connected", 150)
    viper.SetDefault("billing.skip_holidays_default", true)

    viper.SetDefault("sms.forward_timeout", "10s")
    viper.SetDefault("sms.google_sheet_webhook.enabled", false)
    viper.SetDefault("sms.google_sheet_webhook.timeout", "10s")
    viper.SetDefault("sms.google_sheet_webhook.token", "")

    viper.SetDefault("http.listen_address", "0.0.0.0")
    viper.SetDefault("http.port", 8090)
    viper.SetDefault("http.read_timeout", "30s")
    viper.SetDefault("http.write_timeout", "30s")
    viper.SetDefault("http.shutdown_timeout", "15s")

    viper.SetDefault("monitoring.metrics.enabled", true)
    viper.SetDefault("monitoring.metrics.port", 9090)
    viper.SetDefault("monitoring.health.enabled", true)
    viper.SetDefault("monitoring.health.port", 8080)
    viper.SetDefault("monitoring.logging.level", "info")
    viper.SetDefault("monitoring.logging.format", "json")
    viper.SetDefault("monitoring.logging.output", "stdout")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
    if c.Database.Host == "" {
        return fmt.Errorf("database host is required")
    }
    if c.Database.Port <= 0 || c.Database.Port > 65535 {
        return fmt.Errorf("invalid database port: %d", c.Database.Port)
    }
    if c.Database.Database == "" {
        return fmt.Errorf("database name is required")
    }
    if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
        return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
    }
    if c.Dialer.MaxBatchSize <= 0 {
        return fmt.Errorf("dialer.max_batch_size must be positive")
    }
    if c.Dialer.DefaultBatchSize < 0 {
        return fmt.Errorf("dialer.default_batch_size must be non-negative")
    }
    if c.Dialer.AssignmentTimeoutMinutes <= 0 {
        return fmt.Errorf("dialer.assignment_timeout_minutes must be positive")
    }
    if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
        return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
    }
    if c.Monitoring.Metrics.Enabled && (c.Monitoring.Metrics.Port <= 0 || c.Monitoring.Metrics.Port > 65535) {
        return fmt.Errorf("invalid metrics port: %d", c.Monitoring.Metrics.Port)
    }
    if c.Monitoring.Health.Enabled && (c.Monitoring.Health.Port <= 0 || c.Monitoring.Health.Port > 65535) {
        return fmt.Errorf("invalid health port: %d", c.Monitoring.Health.Port)
    }
    return nil
}

// GetDSN returns the MySQL connection string.
func (c *DatabaseConfig) GetDSN() string {
    charset := c.Charset
    if charset == "" {
        charset = "utf8mb4"
    }
    return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=UTC",
        c.Username, c.Password, c.Host, c.Port, c.Database, charset)
}

// GetRedisAddr returns the Redis address.
func (c *RedisConfig) GetRedisAddr() string {
    return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *AppConfig) IsProduction() bool {
    return strings.ToLower(c.Environment) == "production"
}

func (c *AppConfig) IsDevelopment() bool {
    return strings.ToLower(c.Environment) == "development"
}
