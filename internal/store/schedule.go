package store

import (
    "context"
    "database/sql"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

// ScheduleConfigForUpdate row-locks the tenant's gate+wallet policy
// for the duration of the caller's transaction (spec §5: chargeFor-
// ConnectedCall/manualAdjust/matchAndCharge/the gate all take this
// exclusive lock). Auto-creates a default row on first access.
func ScheduleConfigForUpdate(ctx context.Context, tx *sql.Tx, tenantID int64) (*models.ScheduleConfig, error) {
    cfg, err := scheduleConfigBy(ctx, tx, "tenant_id = ? FOR UPDATE", tenantID)
    if err == nil {
        return cfg, nil
    }
    if !errors.Is(err, errors.ErrNotFound) {
        return nil, err
    }
    if _, err := tx.ExecContext(ctx, `
        INSERT INTO schedule_configs (tenant_id, skip_holidays, enabled, disabled_by_dialer,
            wallet_balance, cost_per_connected, version, updated_at)
        VALUES (?, TRUE, TRUE, FALSE, 0, 150, 1, NOW())`, tenantID); err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to create default schedule config")
    }
    return scheduleConfigBy(ctx, tx, "tenant_id = ? FOR UPDATE", tenantID)
}

func ScheduleConfigByTenant(ctx context.Context, q Queryer, tenantID int64) (*models.ScheduleConfig, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, tenant_id, skip_holidays, enabled, disabled_by_dialer, wallet_balance,
               cost_per_connected, version, updated_at
        FROM schedule_configs WHERE tenant_id = ?`, tenantID)
    return scanScheduleConfig(row)
}

func scheduleConfigBy(ctx context.Context, tx *sql.Tx, where string, args ...interface{}) (*models.ScheduleConfig, error) {
    row := tx.QueryRowContext(ctx, `
        SELECT id, tenant_id, skip_holidays, enabled, disabled_by_dialer, wallet_balance,
               cost_per_connected, version, updated_at
        FROM schedule_configs WHERE `+where, args...)
    return scanScheduleConfig(row)
}

func scanScheduleConfig(row *sql.Row) (*models.ScheduleConfig, error) {
    var c models.ScheduleConfig
    if err := row.Scan(&c.ID, &c.TenantID, &c.SkipHolidays, &c.Enabled, &c.DisabledByDialer,
        &c.WalletBalance, &c.CostPerConnected, &c.Version, &c.UpdatedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, errors.New(errors.ErrNotFound, "schedule config not found")
        }
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load schedule config")
    }
    return &c, nil
}

// SaveScheduleConfig persists a mutated config, writing c.Version as
// given (spec §3 Invariant 7: version strictly increases on any change).
// It does not bump the version itself; callers must have already
// incremented c.Version.
func SaveScheduleConfig(ctx context.Context, tx *sql.Tx, c *models.ScheduleConfig) error {
    _, err := tx.ExecContext(ctx, `
        UPDATE schedule_configs
        SET skip_holidays = ?, enabled = ?, disabled_by_dialer = ?, wallet_balance = ?,
            cost_per_connected = ?, version = ?, updated_at = NOW()
        WHERE id = ?`,
        c.SkipHolidays, c.Enabled, c.DisabledByDialer, c.WalletBalance, c.CostPerConnected, c.Version, c.ID)
    if err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to save schedule config")
    }
    return nil
}

func ListScheduleWindows(ctx context.Context, q Queryer, tenantID int64) ([]models.ScheduleWindow, error) {
    rows, err := q.QueryContext(ctx, `
        SELECT id, tenant_id, day_of_week, start_time, end_time
        FROM schedule_windows WHERE tenant_id = ? ORDER BY day_of_week, start_time`, tenantID)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to list schedule windows")
    }
    defer rows.Close()

    var out []models.ScheduleWindow
    for rows.Next() {
        var w models.ScheduleWindow
        if err := rows.Scan(&w.ID, &w.TenantID, &w.DayOfWeek, &w.StartTime, &w.EndTime); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan schedule window")
        }
        out = append(out, w)
    }
    return out, rows.Err()
}

// ReplaceScheduleWindows atomically swaps a tenant's calling windows
// (spec.md:239: a window with start>=end is rejected with a validation
// error rather than stored).
func ReplaceScheduleWindows(ctx context.Context, tx *sql.Tx, tenantID int64, windows []models.ScheduleWindow) error {
    for _, w := range windows {
        if w.StartTime >= w.EndTime {
            return errors.New(errors.ErrValidation, "window start must be before end")
        }
    }

    if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_windows WHERE tenant_id = ?`, tenantID); err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to clear schedule windows")
    }
    for _, w := range windows {
        if _, err := tx.ExecContext(ctx, `
            INSERT INTO schedule_windows (tenant_id, day_of_week, start_time, end_time)
            VALUES (?, ?, ?, ?)`, tenantID, w.DayOfWeek, w.StartTime, w.EndTime); err != nil {
            return errors.Wrap(err, errors.ErrDatabase, "failed to insert schedule window")
        }
    }
    return nil
}
