// Package authz implements the tenant access-control decision (spec
// SUPPLEMENTED FEATURES #5), grounded on phone_service.py's
// _resolve_company_id/_require_admin. It issues no sessions or
// tokens — that remains out of scope — it only decides whether a
// given actor may act against a given tenant.
package authz

import (
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

var (
    ErrAccessDenied   = errors.New(errors.ErrAuth, "access denied to this tenant")
    ErrTenantRequired = errors.New(errors.ErrValidation, "tenant id is required for a superuser request")
    ErrNotAssigned    = errors.New(errors.ErrAuth, "user is not assigned to a tenant")
    ErrAdminOnly      = errors.New(errors.ErrAuth, "admins only")
)

// Actor is the authenticated caller context a handler resolves before
// calling into a domain operation.
type Actor struct {
    UserID      int64
    Role        models.UserRole
    TenantID    *int64 // nil for a superuser not pinned to one tenant
    IsSuperuser bool
}

// ResolveTenant decides which tenant an operation should target, given
// the actor's own scope and an optional explicit override (spec:
// "_resolve_company_id"). A non-superuser may only ever target their
// own tenant; requesting another tenant's id is denied.
func ResolveTenant(actor Actor, requestedTenantID *int64) (int64, error) {
    if requestedTenantID != nil {
        if !actor.IsSuperuser && (actor.TenantID == nil || *actor.TenantID != *requestedTenantID) {
            return 0, ErrAccessDenied
        }
        return *requestedTenantID, nil
    }
    if actor.TenantID != nil {
        return *actor.TenantID, nil
    }
    if actor.IsSuperuser {
        return 0, ErrTenantRequired
    }
    return 0, ErrNotAssigned
}

// RequireAdmin denies non-admin actors (spec: "_require_admin").
func RequireAdmin(actor Actor) error {
    if actor.Role != models.RoleAdmin {
        return ErrAdminOnly
    }
    return nil
}

// CanMutate reports whether actor may change a number whose latest
// tenant-scoped status is current (supplemented feature #2:
// MUTABLE_STATUSES with a superuser bypass).
func CanMutate(actor Actor, current models.CallStatus) bool {
    if actor.IsSuperuser {
        return true
    }
    return models.MutableStatuses[current]
}
