package store

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

type CallResultInput struct {
    NumberID       int64
    TenantID       *int64
    ScenarioID     *int64
    OutboundLineID *int64
    Direction      models.CallDirection
    Status         models.CallStatus
    Reason         string
    UserMessage    string
    AgentID        *int64
    AttemptedAt    time.Time
}

// InsertCallResult appends one immutable outcome row (spec §3: the
// CallResult ledger is append-only; reporting twice yields two rows).
func InsertCallResult(ctx context.Context, tx *sql.Tx, in CallResultInput) (int64, error) {
    res, err := tx.ExecContext(ctx, `
        INSERT INTO call_results
            (number_id, tenant_id, scenario_id, outbound_line_id, call_direction,
             status, reason, user_message, agent_id, attempted_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        in.NumberID, in.TenantID, in.ScenarioID, in.OutboundLineID, in.Direction,
        in.Status, in.Reason, in.UserMessage, in.AgentID, in.AttemptedAt)
    if err != nil {
        return 0, errors.Wrap(err, errors.ErrDatabase, "failed to insert call result")
    }
    return res.LastInsertId()
}

// LatestCallResult returns the newest row per (number, tenant), the
// CallResult that defines that pair's effective status (spec §3),
// ordered by (attempted_at, id) as the concurrency model requires.
func LatestCallResult(ctx context.Context, q Queryer, numberID, tenantID int64) (*models.CallResult, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, number_id, tenant_id, scenario_id, outbound_line_id, call_direction,
               status, reason, user_message, agent_id, attempted_at
        FROM call_results
        WHERE number_id = ? AND tenant_id = ?
        ORDER BY attempted_at DESC, id DESC
        LIMIT 1`, numberID, tenantID)
    var c models.CallResult
    if err := row.Scan(&c.ID, &c.NumberID, &c.TenantID, &c.ScenarioID, &c.OutboundLineID,
        &c.CallDirection, &c.Status, &c.Reason, &c.UserMessage, &c.AgentID, &c.AttemptedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil // IN_QUEUE: derived, never stored
        }
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load latest call result")
    }
    return &c, nil
}

// HasCallResult reports whether this tenant has ever been reported
// against this number (the tenant-dedup predicate of spec §4.F).
func HasCallResult(ctx context.Context, q Queryer, numberID, tenantID int64) (bool, error) {
    var exists int
    err := q.QueryRowContext(ctx, `
        SELECT 1 FROM call_results WHERE number_id = ? AND tenant_id = ? LIMIT 1`,
        numberID, tenantID).Scan(&exists)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, errors.Wrap(err, errors.ErrDatabase, "failed to check call result existence")
    }
    return true, nil
}

// CallResultHistory returns every report for a (number, tenant) pair,
// newest first (phone_service.list_number_history).
func CallResultHistory(ctx context.Context, q Queryer, numberID, tenantID int64) ([]models.CallResult, error) {
    rows, err := q.QueryContext(ctx, `
        SELECT id, number_id, tenant_id, scenario_id, outbound_line_id, call_direction,
               status, reason, user_message, agent_id, attempted_at
        FROM call_results
        WHERE number_id = ? AND tenant_id = ?
        ORDER BY id DESC`, numberID, tenantID)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load call result history")
    }
    defer rows.Close()

    var out []models.CallResult
    for rows.Next() {
        var c models.CallResult
        if err := rows.Scan(&c.ID, &c.NumberID, &c.TenantID, &c.ScenarioID, &c.OutboundLineID,
            &c.CallDirection, &c.Status, &c.Reason, &c.UserMessage, &c.AgentID, &c.AttemptedAt); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan call result")
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// CountCallResults gives the attempt count for a (number, tenant) pair.
func CountCallResults(ctx context.Context, q Queryer, numberID, tenantID int64) (int, error) {
    var n int
    err := q.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM call_results WHERE number_id = ? AND tenant_id = ?`,
        numberID, tenantID).Scan(&n)
    if err != nil {
        return 0, errors.Wrap(err, errors.ErrDatabase, "failed to count call results")
    }
    return n, nil
}
