// Package numbers implements the read-side number listing and bulk
// admin actions (SUPPLEMENTED FEATURES #1, #2, #6), grounded on
// phone_service.py's list_numbers/bulk_action/reset_number/delete_number.
package numbers

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/authz"
    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/internal/store"
    "github.com/dialerhub/core/pkg/errors"
)

// List returns the tenant-scoped number listing with latest-call
// enrichment (phone_service.list_numbers, minus sort/date-range
// plumbing out of scope).
func List(ctx context.Context, conn *db.DB, f store.NumberListFilters) ([]store.NumberWithLatestCall, error) {
    return store.ListNumbersForTenant(ctx, conn.DB, f)
}

// ListForExport returns the same rows a real XLSX export would
// stream, paged like List (spec.md Non-goals exclude the export
// plumbing itself, supplemented feature #6).
func ListForExport(ctx context.Context, conn *db.DB, f store.NumberListFilters) ([]store.NumberWithLatestCall, error) {
    return store.ListNumbersForTenant(ctx, conn.DB, f)
}

// BulkAction is the supported subset of phone_service.bulk_action:
// full reset and delete (status-update bulk editing is covered by
// ingestion.ReportResult's per-call path and is not duplicated here).
type BulkAction string

const (
    ActionReset  BulkAction = "reset"
    ActionDelete BulkAction = "delete"
)

type BulkResult struct {
    Reset   int
    Deleted int
}

// Bulk applies action to the given ids, enforcing admin-only and
// mutability rules (authz.RequireAdmin, authz.CanMutate) exactly as
// the original restricts non-superusers to MUTABLE_STATUSES.
func Bulk(ctx context.Context, conn *db.DB, actor authz.Actor, tenantID int64, action BulkAction, ids []int64) (BulkResult, error) {
    if err := authz.RequireAdmin(actor); err != nil {
        return BulkResult{}, err
    }
    if len(ids) == 0 {
        return BulkResult{}, errors.New(errors.ErrValidation, "no numbers selected")
    }

    var result BulkResult
    err := conn.Transaction(ctx, func(tx *sql.Tx) error {
        for _, id := range ids {
            current, err := store.LatestStatusForTenant(ctx, tx, id, tenantID)
            if err != nil {
                return err
            }
            if !authz.CanMutate(actor, current) {
                continue
            }

            switch action {
            case ActionReset:
                if err := store.ResetNumberAssignment(ctx, tx, id, time.Now().UTC()); err != nil {
                    return err
                }
                result.Reset++
            case ActionDelete:
                if err := store.DeleteNumberCascade(ctx, tx, id); err != nil {
                    return err
                }
                result.Deleted++
            default:
                return errors.New(errors.ErrValidation, "unsupported bulk action")
            }
        }
        return nil
    })
    if err != nil {
        return BulkResult{}, err
    }
    return result, nil
}

// ResetNumber re-queues a single Number for this tenant
// (phone_service.reset_number), subject to the same mutability check.
func ResetNumber(ctx context.Context, conn *db.DB, actor authz.Actor, tenantID, numberID int64) error {
    if err := authz.RequireAdmin(actor); err != nil {
        return err
    }
    return conn.Transaction(ctx, func(tx *sql.Tx) error {
        current, err := store.LatestStatusForTenant(ctx, tx, numberID, tenantID)
        if err != nil {
            return err
        }
        if !authz.CanMutate(actor, current) {
            return errors.New(errors.ErrValidation, "status "+string(current)+" cannot be changed by non-superuser")
        }
        return store.ResetNumberAssignment(ctx, tx, numberID, time.Now().UTC())
    })
}

// DeleteNumber removes a Number entirely (phone_service.delete_number,
// superuser/admin only, subject to mutability).
func DeleteNumber(ctx context.Context, conn *db.DB, actor authz.Actor, tenantID, numberID int64) error {
    if err := authz.RequireAdmin(actor); err != nil {
        return err
    }
    return conn.Transaction(ctx, func(tx *sql.Tx) error {
        current, err := store.LatestStatusForTenant(ctx, tx, numberID, tenantID)
        if err != nil {
            return err
        }
        if !authz.CanMutate(actor, current) {
            return errors.New(errors.ErrValidation, "status "+string(current)+" cannot be changed by non-superuser")
        }
        return store.DeleteNumberCascade(ctx, tx, numberID)
    })
}

// History returns the full per-number call trace for one tenant,
// newest first (phone_service.list_number_history).
func History(ctx context.Context, conn *db.DB, tenantID, numberID int64) ([]models.CallResult, error) {
    return store.CallResultHistory(ctx, conn.DB, numberID, tenantID)
}
