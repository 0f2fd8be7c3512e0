package store

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

// NumberWithLatestCall pairs a Number with its most recent CallResult
// for one tenant (supplemented feature #1: a joined read-side DTO
// instead of patching virtual fields onto the entity, per REDESIGN
// FLAGS). LatestCall is nil when the tenant has never reported on this
// number (status is then IN_QUEUE by convention).
type NumberWithLatestCall struct {
    Number       models.Number
    LatestCall   *models.CallResult
    TotalAttempts int
}

// NumberListFilters narrows ListNumbersForTenant (supplemented from
// phone_service.list_numbers, minus sort/search/date-range plumbing
// out of scope per spec.md's Non-goals).
type NumberListFilters struct {
    TenantID     int64
    Status       *models.CallStatus
    GlobalStatus *models.GlobalStatus
    Search       string
    Skip         int
    Limit        int
}

// ListNumbersForTenant returns the tenant-scoped read model: each
// Number paired with its latest CallResult for that tenant, newest
// CreatedAt first. IN_QUEUE numbers (no CallResult row for this
// tenant) are filtered by absence-of-row, not a stored status.
func ListNumbersForTenant(ctx context.Context, q Queryer, f NumberListFilters) ([]NumberWithLatestCall, error) {
    limit := f.Limit
    if limit <= 0 {
        limit = 50
    }

    var where []string
    var args []interface{}
    if f.Search != "" {
        where = append(where, "n.phone_number LIKE ?")
        args = append(args, "%"+f.Search+"%")
    }
    if f.GlobalStatus != nil {
        where = append(where, "n.global_status = ?")
        args = append(args, *f.GlobalStatus)
    }
    if f.Status != nil {
        if *f.Status == models.CallStatusInQueue {
            where = append(where, `NOT EXISTS (SELECT 1 FROM call_results cr WHERE cr.number_id = n.id AND cr.tenant_id = ?)`)
            args = append(args, f.TenantID)
        } else {
            where = append(where, `EXISTS (
                SELECT 1 FROM call_results cr
                WHERE cr.number_id = n.id AND cr.tenant_id = ? AND cr.status = ?
                  AND cr.id = (SELECT MAX(cr2.id) FROM call_results cr2 WHERE cr2.number_id = n.id AND cr2.tenant_id = ?)
            )`)
            args = append(args, f.TenantID, *f.Status, f.TenantID)
        }
    }

    whereClause := ""
    if len(where) > 0 {
        whereClause = "WHERE " + strings.Join(where, " AND ")
    }

    query := `
        SELECT id, phone_number, global_status, last_called_at, last_called_tenant_id,
               assigned_at, assigned_batch_id, created_at
        FROM numbers n
        ` + whereClause + `
        ORDER BY n.id DESC
        LIMIT ? OFFSET ?`
    args = append(args, limit, f.Skip)

    rows, err := q.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to list numbers")
    }
    defer rows.Close()

    var numbers []models.Number
    for rows.Next() {
        var n models.Number
        if err := rows.Scan(&n.ID, &n.PhoneNumber, &n.GlobalStatus, &n.LastCalledAt, &n.LastCalledTenantID,
            &n.AssignedAt, &n.AssignedBatchID, &n.CreatedAt); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan number")
        }
        numbers = append(numbers, n)
    }
    if err := rows.Err(); err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to iterate numbers")
    }
    if len(numbers) == 0 {
        return nil, nil
    }

    return enrichWithLatestCall(ctx, q, f.TenantID, numbers)
}

// enrichWithLatestCall joins each Number to its newest CallResult for
// tenantID and the per-tenant attempt count, mirroring
// phone_service._enrich_with_call_data without mutating the entity.
func enrichWithLatestCall(ctx context.Context, q Queryer, tenantID int64, numbers []models.Number) ([]NumberWithLatestCall, error) {
    ids := make([]interface{}, len(numbers))
    placeholders := make([]string, len(numbers))
    for i, n := range numbers {
        ids[i] = n.ID
        placeholders[i] = "?"
    }

    query := `
        SELECT id, number_id, tenant_id, scenario_id, outbound_line_id, call_direction,
               status, reason, user_message, agent_id, attempted_at
        FROM call_results
        WHERE tenant_id = ? AND number_id IN (` + strings.Join(placeholders, ",") + `)
        ORDER BY id DESC`
    args := append([]interface{}{tenantID}, ids...)

    rows, err := q.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load call results for enrichment")
    }
    defer rows.Close()

    latest := make(map[int64]*models.CallResult)
    counts := make(map[int64]int)
    for rows.Next() {
        var cr models.CallResult
        if err := rows.Scan(&cr.ID, &cr.NumberID, &cr.TenantID, &cr.ScenarioID, &cr.OutboundLineID,
            &cr.CallDirection, &cr.Status, &cr.Reason, &cr.UserMessage, &cr.AgentID, &cr.AttemptedAt); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan call result")
        }
        counts[cr.NumberID]++
        if _, ok := latest[cr.NumberID]; !ok {
            latest[cr.NumberID] = &cr
        }
    }
    if err := rows.Err(); err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to iterate call results")
    }

    out := make([]NumberWithLatestCall, len(numbers))
    for i, n := range numbers {
        out[i] = NumberWithLatestCall{
            Number:        n,
            LatestCall:    latest[n.ID],
            TotalAttempts: counts[n.ID],
        }
    }
    return out, nil
}

// LatestStatusForTenant returns the tenant-scoped status of a Number,
// defaulting to IN_QUEUE when no CallResult row exists yet
// (phone_service._latest_status_for_company).
func LatestStatusForTenant(ctx context.Context, q Queryer, numberID, tenantID int64) (models.CallStatus, error) {
    var status models.CallStatus
    err := q.QueryRowContext(ctx, `
        SELECT status FROM call_results
        WHERE number_id = ? AND tenant_id = ?
        ORDER BY id DESC LIMIT 1`, numberID, tenantID).Scan(&status)
    if err == sql.ErrNoRows {
        return models.CallStatusInQueue, nil
    }
    if err != nil {
        return "", errors.Wrap(err, errors.ErrDatabase, "failed to load latest tenant status")
    }
    return status, nil
}

// ResetNumberAssignment clears a Number's in-flight assignment so the
// claim query can pick it up again (phone_service.reset_number/bulk_reset).
// CallResult history is append-only and is never deleted here
// (Invariant 1).
func ResetNumberAssignment(ctx context.Context, q Queryer, numberID int64, now time.Time) error {
    _, err := q.ExecContext(ctx, `
        UPDATE numbers SET assigned_at = NULL, assigned_batch_id = NULL WHERE id = ?`, numberID)
    if err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to reset number assignment")
    }
    return nil
}

// DeleteNumberCascade removes a Number along with its DialerBatchItem
// and CallResult rows (callers require an admin actor and, for
// non-superusers, a mutable latest status; phone_service.
// delete_number deletes call_results before the number for the same
// FK reason). This is the one place Invariant 1's append-only ledger
// is actually erased — deliberately, because the Number it describes
// is also being erased.
func DeleteNumberCascade(ctx context.Context, q Queryer, numberID int64) error {
    if _, err := q.ExecContext(ctx, `DELETE FROM dialer_batch_items WHERE number_id = ?`, numberID); err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to delete batch items for number")
    }
    if _, err := q.ExecContext(ctx, `DELETE FROM call_results WHERE number_id = ?`, numberID); err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to delete call results for number")
    }
    if _, err := q.ExecContext(ctx, `DELETE FROM numbers WHERE id = ?`, numberID); err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to delete number")
    }
    return nil
}
