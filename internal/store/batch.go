package store

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

// InsertDialerBatch records the claim header row (GLOSSARY: Batch).
func InsertDialerBatch(ctx context.Context, tx *sql.Tx, id string, tenantID int64, requested, returned int, now time.Time) error {
    _, err := tx.ExecContext(ctx, `
        INSERT INTO dialer_batches (id, tenant_id, requested_size, returned_size, created_at)
        VALUES (?, ?, ?, ?, ?)`, id, tenantID, requested, returned, now)
    if err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to insert dialer batch")
    }
    return nil
}

// InsertDialerBatchItem gives one claimed number its end-to-end trace
// row (spec §3: "give end-to-end trace from claim to report").
func InsertDialerBatchItem(ctx context.Context, tx *sql.Tx, batchID string, tenantID, numberID int64, assignedAt time.Time) (int64, error) {
    res, err := tx.ExecContext(ctx, `
        INSERT INTO dialer_batch_items (batch_id, tenant_id, number_id, assigned_at, created_at)
        VALUES (?, ?, ?, ?, NOW())`, batchID, tenantID, numberID, assignedAt)
    if err != nil {
        return 0, errors.Wrap(err, errors.ErrDatabase, "failed to insert dialer batch item")
    }
    return res.LastInsertId()
}

// FindBatchItemForReport resolves the trace row a report belongs to,
// in the fallback order of spec §4.G: explicit report batch id, then
// the number's assigned-batch snapshot, then the newest unreported
// item for (tenant, number).
func FindBatchItemForReport(ctx context.Context, tx *sql.Tx, reportBatchID *string, assignedBatchSnapshot *string, tenantID, numberID int64) (*models.DialerBatchItem, error) {
    if reportBatchID != nil && *reportBatchID != "" {
        if item, err := batchItemBy(ctx, tx, "batch_id = ? AND tenant_id = ? AND number_id = ?", *reportBatchID, tenantID, numberID); err == nil {
            return item, nil
        } else if !errors.Is(err, errors.ErrNotFound) {
            return nil, err
        }
    }
    if assignedBatchSnapshot != nil && *assignedBatchSnapshot != "" {
        if item, err := batchItemBy(ctx, tx, "batch_id = ? AND tenant_id = ? AND number_id = ?", *assignedBatchSnapshot, tenantID, numberID); err == nil {
            return item, nil
        } else if !errors.Is(err, errors.ErrNotFound) {
            return nil, err
        }
    }
    return batchItemByLatest(ctx, tx, tenantID, numberID)
}

func batchItemBy(ctx context.Context, tx *sql.Tx, where string, args ...interface{}) (*models.DialerBatchItem, error) {
    row := tx.QueryRowContext(ctx, `
        SELECT id, batch_id, tenant_id, number_id, assigned_at, reported_at,
               report_batch_id, report_call_result_id, report_attempted_at,
               report_status, report_scenario_id, report_outbound_line_id, report_reason, created_at
        FROM dialer_batch_items WHERE `+where+` ORDER BY id DESC LIMIT 1`, args...)
    return scanBatchItem(row)
}

func batchItemByLatest(ctx context.Context, tx *sql.Tx, tenantID, numberID int64) (*models.DialerBatchItem, error) {
    return batchItemBy(ctx, tx, "tenant_id = ? AND number_id = ?", tenantID, numberID)
}

func scanBatchItem(row *sql.Row) (*models.DialerBatchItem, error) {
    var it models.DialerBatchItem
    if err := row.Scan(&it.ID, &it.BatchID, &it.TenantID, &it.NumberID, &it.AssignedAt, &it.ReportedAt,
        &it.ReportBatchID, &it.ReportCallResultID, &it.ReportAttemptedAt,
        &it.ReportStatus, &it.ReportScenarioID, &it.ReportOutboundLineID, &it.ReportReason, &it.CreatedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, errors.New(errors.ErrNotFound, "no batch item found")
        }
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load batch item")
    }
    return &it, nil
}

// UpdateBatchItemReport stamps the report_* fields on an existing
// trace row (spec §4.G). Callers resolve the row id via
// FindBatchItemForReport first, inserting a synthetic one when none
// exists so the trace is always linked.
func UpdateBatchItemReport(ctx context.Context, tx *sql.Tx, itemID int64, reportBatchID *string, callResultID int64, status string, scenarioID, outboundLineID *int64, reason string, attemptedAt, reportedAt time.Time) error {
    _, err := tx.ExecContext(ctx, `
        UPDATE dialer_batch_items
        SET reported_at = ?, report_batch_id = ?, report_call_result_id = ?,
            report_attempted_at = ?, report_status = ?, report_scenario_id = ?,
            report_outbound_line_id = ?, report_reason = ?
        WHERE id = ?`,
        reportedAt, reportBatchID, callResultID, attemptedAt, status, scenarioID, outboundLineID, reason, itemID)
    if err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to update batch item report")
    }
    return nil
}
