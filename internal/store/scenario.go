package store

import (
    "context"
    "database/sql"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

func ListActiveScenarios(ctx context.Context, q Queryer, tenantID int64) ([]models.Scenario, error) {
    rows, err := q.QueryContext(ctx, `
        SELECT id, tenant_id, name, display_name, cost_per_connected, active
        FROM scenarios WHERE tenant_id = ? AND active = TRUE ORDER BY name`, tenantID)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to list scenarios")
    }
    defer rows.Close()
    var out []models.Scenario
    for rows.Next() {
        var s models.Scenario
        if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.DisplayName, &s.CostPerConnected, &s.Active); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan scenario")
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

func ScenarioByID(ctx context.Context, q Queryer, tenantID, id int64) (*models.Scenario, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, tenant_id, name, display_name, cost_per_connected, active
        FROM scenarios WHERE id = ? AND tenant_id = ?`, id, tenantID)
    var s models.Scenario
    if err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.DisplayName, &s.CostPerConnected, &s.Active); err != nil {
        if err == sql.ErrNoRows {
            return nil, errors.New(errors.ErrNotFound, "scenario not found")
        }
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load scenario")
    }
    return &s, nil
}

// UpsertScenario implements the register-scenarios contract (spec
// §6): insert on first sight, update display name on repeat.
func UpsertScenario(ctx context.Context, q Queryer, tenantID int64, name, displayName string) (bool, error) {
    res, err := q.ExecContext(ctx, `
        INSERT INTO scenarios (tenant_id, name, display_name, active)
        VALUES (?, ?, ?, TRUE)
        ON DUPLICATE KEY UPDATE display_name = VALUES(display_name)`,
        tenantID, name, displayName)
    if err != nil {
        return false, errors.Wrap(err, errors.ErrDatabase, "failed to upsert scenario")
    }
    rows, _ := res.RowsAffected()
    return rows == 1, nil // 1 = inserted, 2 = updated (MySQL ON DUPLICATE semantics)
}
