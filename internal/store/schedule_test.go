package store

import (
    "context"
    "testing"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

// Validation runs before the transaction is ever touched (spec.md:239),
// so an inverted window is rejected without a live *sql.Tx.
func TestReplaceScheduleWindowsRejectsInvertedWindow(t *testing.T) {
    windows := []models.ScheduleWindow{
        {TenantID: 1, DayOfWeek: 0, StartTime: "09:00:00", EndTime: "09:00:00"},
    }

    err := ReplaceScheduleWindows(context.Background(), nil, 1, windows)
    if err == nil {
        t.Fatal("expected an error for a window with start >= end")
    }
    if !errors.Is(err, errors.ErrValidation) {
        t.Fatalf("expected ErrValidation, got %v", err)
    }
}

func TestReplaceScheduleWindowsRejectsReversedWindow(t *testing.T) {
    windows := []models.ScheduleWindow{
        {TenantID: 1, DayOfWeek: 3, StartTime: "18:00:00", EndTime: "08:00:00"},
    }

    err := ReplaceScheduleWindows(context.Background(), nil, 1, windows)
    if !errors.Is(err, errors.ErrValidation) {
        t.Fatalf("expected ErrValidation, got %v", err)
    }
}
