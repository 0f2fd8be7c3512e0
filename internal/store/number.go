package store

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

func NumberByPhone(ctx context.Context, q Queryer, phone string) (*models.Number, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, phone_number, global_status, last_called_at, last_called_tenant_id,
               assigned_at, assigned_batch_id, created_at
        FROM numbers WHERE phone_number = ?`, phone)
    return scanNumber(row)
}

// NumberByPhoneForUpdate loads and row-locks the Number by phone,
// skipping rows already locked by another transaction (spec §4.G step
// 2 — reportResult looks up by phone under a skip-locked row lock).
func NumberByPhoneForUpdate(ctx context.Context, q Queryer, phone string) (*models.Number, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, phone_number, global_status, last_called_at, last_called_tenant_id,
               assigned_at, assigned_batch_id, created_at
        FROM numbers WHERE phone_number = ? FOR UPDATE SKIP LOCKED`, phone)
    return scanNumber(row)
}

func NumberByID(ctx context.Context, q Queryer, id int64) (*models.Number, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, phone_number, global_status, last_called_at, last_called_tenant_id,
               assigned_at, assigned_batch_id, created_at
        FROM numbers WHERE id = ?`, id)
    return scanNumber(row)
}

func scanNumber(row *sql.Row) (*models.Number, error) {
    var n models.Number
    if err := row.Scan(&n.ID, &n.PhoneNumber, &n.GlobalStatus, &n.LastCalledAt, &n.LastCalledTenantID,
        &n.AssignedAt, &n.AssignedBatchID, &n.CreatedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, errors.New(errors.ErrNotFound, "number not found")
        }
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load number")
    }
    return &n, nil
}

// CreateNumber auto-materializes a Number row (spec §4.G step 3,
// §9 open question: inbound reports to unknown numbers must not be
// dropped). Any insert failure, including a duplicate phone from a
// concurrent insert, is returned as ErrDatabase; callers recover by
// re-selecting under lock.
func CreateNumber(ctx context.Context, q Queryer, phone string) (*models.Number, error) {
    res, err := q.ExecContext(ctx, `
        INSERT INTO numbers (phone_number, global_status, created_at)
        VALUES (?, ?, NOW())`, phone, models.GlobalStatusActive)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to auto-create number")
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to read inserted number id")
    }
    return NumberByID(ctx, q, id)
}

// ClaimCandidates selects up to `limit` callable Numbers for a tenant
// under the skip-locked claim algorithm (spec §4.F): ACTIVE,
// unassigned, never reported for this tenant, outside global cooldown.
// Ordered by id for deterministic, disjoint claims across concurrent
// callers.
func ClaimCandidates(ctx context.Context, tx *sql.Tx, tenantID int64, limit int, cooldown time.Duration, now time.Time) ([]int64, error) {
    if limit <= 0 {
        return nil, nil
    }
    rows, err := tx.QueryContext(ctx, `
        SELECT n.id
        FROM numbers n
        WHERE n.global_status = ?
          AND n.assigned_at IS NULL
          AND NOT EXISTS (
              SELECT 1 FROM call_results cr
              WHERE cr.number_id = n.id AND cr.tenant_id = ?
          )
          AND (n.last_called_at IS NULL OR n.last_called_at < ?)
        ORDER BY n.id ASC
        LIMIT ?
        FOR UPDATE SKIP LOCKED`,
        models.GlobalStatusActive, tenantID, now.Add(-cooldown), limit)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to select claim candidates")
    }
    defer rows.Close()

    var ids []int64
    for rows.Next() {
        var id int64
        if err := rows.Scan(&id); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan claim candidate")
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// AssignNumbers stamps assigned_at/assigned_batch_id on the claimed
// rows. Called within the same transaction as ClaimCandidates.
func AssignNumbers(ctx context.Context, tx *sql.Tx, ids []int64, batchID string, now time.Time) error {
    for _, id := range ids {
        if _, err := tx.ExecContext(ctx, `
            UPDATE numbers SET assigned_at = ?, assigned_batch_id = ? WHERE id = ?`,
            now, batchID, id); err != nil {
            return errors.Wrap(err, errors.ErrDatabase, "failed to assign number")
        }
    }
    return nil
}

// ReclaimStaleAssignments unlocks every Number whose lease expired
// (spec §4.F: "runs before the claim query"). Idempotent.
func ReclaimStaleAssignments(ctx context.Context, q Queryer, timeout time.Duration, now time.Time) (int64, error) {
    res, err := q.ExecContext(ctx, `
        UPDATE numbers
        SET assigned_at = NULL, assigned_batch_id = NULL
        WHERE assigned_at IS NOT NULL AND assigned_at <= ?`,
        now.Add(-timeout))
    if err != nil {
        return 0, errors.Wrap(err, errors.ErrDatabase, "failed to reclaim stale assignments")
    }
    n, _ := res.RowsAffected()
    return n, nil
}

// MarkCalled clears any assignment and records the global call stamp
// used for both cooldown and global_status derivation (spec §4.G).
func MarkCalled(ctx context.Context, tx *sql.Tx, numberID, tenantID int64, globalStatus models.GlobalStatus, attemptedAt time.Time) error {
    _, err := tx.ExecContext(ctx, `
        UPDATE numbers
        SET last_called_at = ?, last_called_tenant_id = ?, global_status = ?,
            assigned_at = NULL, assigned_batch_id = NULL
        WHERE id = ?`, attemptedAt, tenantID, globalStatus, numberID)
    if err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to update number state")
    }
    return nil
}

func ListNumbersByIDs(ctx context.Context, q Queryer, ids []int64) ([]models.Number, error) {
    if len(ids) == 0 {
        return nil, nil
    }
    query := "SELECT id, phone_number, global_status, last_called_at, last_called_tenant_id, assigned_at, assigned_batch_id, created_at FROM numbers WHERE id IN ("
    args := make([]interface{}, len(ids))
    for i, id := range ids {
        if i > 0 {
            query += ","
        }
        query += "?"
        args[i] = id
    }
    query += ") ORDER BY id ASC"

    rows, err := q.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to list numbers")
    }
    defer rows.Close()

    var out []models.Number
    for rows.Next() {
        var n models.Number
        if err := rows.Scan(&n.ID, &n.PhoneNumber, &n.GlobalStatus, &n.LastCalledAt, &n.LastCalledTenantID,
            &n.AssignedAt, &n.AssignedBatchID, &n.CreatedAt); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan number")
        }
        out = append(out, n)
    }
    return out, rows.Err()
}
