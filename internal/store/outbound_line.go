package store

import (
    "context"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

func ListActiveOutboundLines(ctx context.Context, q Queryer, tenantID int64) ([]models.OutboundLine, error) {
    rows, err := q.QueryContext(ctx, `
        SELECT id, tenant_id, phone, display_name, active
        FROM outbound_lines WHERE tenant_id = ? AND active = TRUE ORDER BY phone`, tenantID)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to list outbound lines")
    }
    defer rows.Close()
    var out []models.OutboundLine
    for rows.Next() {
        var l models.OutboundLine
        if err := rows.Scan(&l.ID, &l.TenantID, &l.Phone, &l.DisplayName, &l.Active); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan outbound line")
        }
        out = append(out, l)
    }
    return out, rows.Err()
}

func CountActiveOutboundLines(ctx context.Context, q Queryer, tenantID int64) (int, error) {
    var n int
    err := q.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM outbound_lines WHERE tenant_id = ? AND active = TRUE`, tenantID).Scan(&n)
    if err != nil {
        return 0, errors.Wrap(err, errors.ErrDatabase, "failed to count outbound lines")
    }
    return n, nil
}

// UpsertOutboundLine implements register-outbound-lines (spec §6).
func UpsertOutboundLine(ctx context.Context, q Queryer, tenantID int64, phone, displayName string) error {
    _, err := q.ExecContext(ctx, `
        INSERT INTO outbound_lines (tenant_id, phone, display_name, active)
        VALUES (?, ?, ?, TRUE)
        ON DUPLICATE KEY UPDATE display_name = VALUES(display_name), active = TRUE`,
        tenantID, phone, displayName)
    if err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to upsert outbound line")
    }
    return nil
}
