package store

import (
    "context"
    "database/sql"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

func UserByID(ctx context.Context, q Queryer, id int64) (*models.User, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, tenant_id, username, role, agent_type, active, is_superuser, phone, pw_hash
        FROM users WHERE id = ?`, id)
    return scanUser(row)
}

func UserByPhone(ctx context.Context, q Queryer, phone string) (*models.User, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, tenant_id, username, role, agent_type, active, is_superuser, phone, pw_hash
        FROM users WHERE phone = ?`, phone)
    return scanUser(row)
}

func UserByUsername(ctx context.Context, q Queryer, username string) (*models.User, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, tenant_id, username, role, agent_type, active, is_superuser, phone, pw_hash
        FROM users WHERE username = ?`, username)
    return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
    var u models.User
    if err := row.Scan(&u.ID, &u.TenantID, &u.Username, &u.Role, &u.AgentType, &u.Active,
        &u.IsSuperuser, &u.Phone, &u.PwHash); err != nil {
        if err == sql.ErrNoRows {
            return nil, errors.New(errors.ErrNotFound, "user not found")
        }
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load user")
    }
    return &u, nil
}

// ListAgentsByType returns active AGENT users of a tenant whose
// agent_type matches t or is BOTH (spec §4.F: agents split by type,
// with BOTH appearing on both lists).
func ListAgentsByType(ctx context.Context, q Queryer, tenantID int64, t models.AgentType) ([]models.User, error) {
    rows, err := q.QueryContext(ctx, `
        SELECT id, tenant_id, username, role, agent_type, active, is_superuser, phone, pw_hash
        FROM users
        WHERE tenant_id = ? AND role = ? AND active = TRUE AND (agent_type = ? OR agent_type = ?)
        ORDER BY username`, tenantID, models.RoleAgent, t, models.AgentTypeBoth)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to list agents")
    }
    defer rows.Close()
    var out []models.User
    for rows.Next() {
        var u models.User
        if err := rows.Scan(&u.ID, &u.TenantID, &u.Username, &u.Role, &u.AgentType, &u.Active,
            &u.IsSuperuser, &u.Phone, &u.PwHash); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan agent")
        }
        out = append(out, u)
    }
    return out, rows.Err()
}
