// Package db wraps the MySQL connection pool and Redis cache the way
// the teacher's internal/db does: a retrying connector, a background
// health check, a retrying transaction helper, and a process-wide
// singleton reached via sync.Once.
package db

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "sync"
    "time"

    _ "github.com/go-sql-driver/mysql"
    "github.com/dialerhub/core/pkg/errors"
    "github.com/dialerhub/core/pkg/logger"
)

type Config struct {
    Driver          string
    Host            string
    Port            int
    Username        string
    Password        string
    Database        string
    MaxOpenConns    int
    MaxIdleConns    int
    ConnMaxLifetime time.Duration
    RetryAttempts   int
    RetryDelay      time.Duration
}

type DB struct {
    *sql.DB
    cfg    Config
    mu     sync.RWMutex
    health bool
}

var (
    instance *DB
    once     sync.Once
)

func Initialize(cfg Config) error {
    var err error
    once.Do(func() {
        instance, err = newDB(cfg)
    })
    return err
}

func GetDB() *DB {
    if instance == nil {
        panic("database not initialized")
    }
    return instance
}

// NewForTesting wraps an already-open *sql.DB (typically backed by a
// fake database/sql/driver) without the retry loop or background
// health check, for store/domain-layer tests that need a real *DB
// without a live MySQL connection.
func NewForTesting(sdb *sql.DB) *DB {
    return &DB{DB: sdb, cfg: Config{RetryAttempts: 0}, health: true}
}

func newDB(cfg Config) (*DB, error) {
    dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true&interpolateParams=true&loc=UTC",
        cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

    var sdb *sql.DB
    var err error

    for i := 0; i <= cfg.RetryAttempts; i++ {
        sdb, err = sql.Open(cfg.Driver, dsn)
        if err == nil {
            err = sdb.Ping()
            if err == nil {
                break
            }
        }

        if i < cfg.RetryAttempts {
            logger.WithField("attempt", i+1).WithError(err).Warn("database connection failed, retrying")
            time.Sleep(cfg.RetryDelay * time.Duration(i+1))
        }
    }

    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to connect to database")
    }

    sdb.SetMaxOpenConns(cfg.MaxOpenConns)
    sdb.SetMaxIdleConns(cfg.MaxIdleConns)
    sdb.SetConnMaxLifetime(cfg.ConnMaxLifetime)

    wrapper := &DB{
        DB:     sdb,
        cfg:    cfg,
        health: true,
    }

    go wrapper.healthCheck()

    logger.Info("database connection established")
    return wrapper, nil
}

func (db *DB) healthCheck() {
    ticker := time.NewTicker(30 * time.Second)
    defer ticker.Stop()

    for range ticker.C {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        err := db.PingContext(ctx)
        cancel()

        db.mu.Lock()
        oldHealth := db.health
        db.health = err == nil
        db.mu.Unlock()

        if oldHealth != db.health {
            if db.health {
                logger.Info("database connection recovered")
            } else {
                logger.WithError(err).Error("database connection lost")
            }
        }
    }
}

func (db *DB) IsHealthy() bool {
    db.mu.RLock()
    defer db.mu.RUnlock()
    return db.health
}

// Transaction runs fn inside a transaction, retrying on transient
// errors (deadlock, serialization failure, connection loss).
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
    var err error
    for i := 0; i <= db.cfg.RetryAttempts; i++ {
        err = db.transaction(ctx, fn)
        if err == nil {
            return nil
        }

        if !isRetryableError(err) {
            return err
        }

        if i < db.cfg.RetryAttempts {
            select {
            case <-ctx.Done():
                return ctx.Err()
            case <-time.After(db.cfg.RetryDelay * time.Duration(i+1)):
                logger.WithField("attempt", i+1).WithError(err).Warn("transaction failed, retrying")
            }
        }
    }

    return errors.Wrap(err, errors.ErrDatabase, "transaction failed after retries")
}

func (db *DB) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }

    defer func() {
        if p := recover(); p != nil {
            tx.Rollback()
            panic(p)
        }
    }()

    if err := fn(tx); err != nil {
        tx.Rollback()
        return err
    }

    return tx.Commit()
}

func isRetryableError(err error) bool {
    if err == nil {
        return false
    }

    errStr := strings.ToLower(err.Error())
    retryable := []string{
        "connection refused",
        "connection reset",
        "broken pipe",
        "timeout",
        "deadlock",
        "try restarting transaction",
        "lock wait timeout",
    }

    for _, e := range retryable {
        if strings.Contains(errStr, e) {
            return true
        }
    }

    return false
}
