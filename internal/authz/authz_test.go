package authz

import (
    "testing"

    "github.com/dialerhub/core/internal/models"
)

func TestResolveTenantNonSuperuserOwnTenant(t *testing.T) {
    tid := int64(7)
    actor := Actor{TenantID: &tid}
    got, err := ResolveTenant(actor, nil)
    if err != nil || got != tid {
        t.Fatalf("expected tenant %d, got %d err=%v", tid, got, err)
    }
}

func TestResolveTenantNonSuperuserCannotOverride(t *testing.T) {
    own := int64(7)
    other := int64(9)
    actor := Actor{TenantID: &own}
    if _, err := ResolveTenant(actor, &other); err == nil {
        t.Fatal("expected access denied crossing tenants")
    }
}

func TestResolveTenantSuperuserRequiresExplicit(t *testing.T) {
    actor := Actor{IsSuperuser: true}
    if _, err := ResolveTenant(actor, nil); err == nil {
        t.Fatal("expected tenant-required error for unscoped superuser")
    }
}

func TestCanMutateSuperuserBypass(t *testing.T) {
    actor := Actor{IsSuperuser: true}
    if !CanMutate(actor, models.CallStatusConnected) {
        t.Fatal("superuser must bypass mutability check")
    }
}

func TestCanMutateNonSuperuserRestricted(t *testing.T) {
    actor := Actor{}
    if CanMutate(actor, models.CallStatusConnected) {
        t.Fatal("CONNECTED must not be mutable by non-superuser")
    }
    if !CanMutate(actor, models.CallStatusInQueue) {
        t.Fatal("IN_QUEUE must be mutable by non-superuser")
    }
}
