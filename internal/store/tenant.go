// Package store is the repository layer: every query against the
// schema in internal/db/migrations lives here, grouped by entity the
// way the teacher's internal/router groups DID/provider queries.
// Nothing outside this package writes SQL.
package store

import (
    "context"
    "database/sql"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

// TenantBySlug loads an active-or-not tenant by its unique slug.
func TenantBySlug(ctx context.Context, q Queryer, slug string) (*models.Tenant, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, slug, display_name, active, settings, created_at
        FROM tenants WHERE slug = ?`, slug)
    return scanTenant(row)
}

func TenantByID(ctx context.Context, q Queryer, id int64) (*models.Tenant, error) {
    row := q.QueryRowContext(ctx, `
        SELECT id, slug, display_name, active, settings, created_at
        FROM tenants WHERE id = ?`, id)
    return scanTenant(row)
}

func scanTenant(row *sql.Row) (*models.Tenant, error) {
    var t models.Tenant
    var settings []byte
    if err := row.Scan(&t.ID, &t.Slug, &t.DisplayName, &t.Active, &settings, &t.CreatedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, errors.New(errors.ErrNotFound, "tenant not found")
        }
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load tenant")
    }
    if len(settings) > 0 {
        t.Settings = make(models.JSON)
        _ = t.Settings.Scan(settings)
    }
    return &t, nil
}
