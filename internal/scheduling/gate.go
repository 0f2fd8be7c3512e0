// Package scheduling implements the per-tenant Scheduling Gate (spec
// §4.D), grounded on schedule_service.py's is_call_allowed/ensure_config.
package scheduling

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/calendar"
    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/internal/store"
)

// Reason codes returned alongside allowed=false (spec §4.D table).
const (
    ReasonInsufficientFunds    = "insufficient_funds"
    ReasonDisabled             = "disabled"
    ReasonHoliday              = "holiday"
    ReasonNoWindow             = "no_window"
    ReasonOutsideWindow        = "outside_allowed_time_window"
)

type Config struct {
    ShortRetrySeconds int
    LongRetrySeconds  int
}

type Decision struct {
    Allowed         bool
    Reason          string
    RetryAfterSec   int
    ScheduleVersion int64
}

// IsCallAllowed decides call_allowed for a tenant at instant now
// (spec §4.D). Wallet exhaustion has the side-effect of flipping
// enabled=false within the same transaction (the gate's only mutation).
func IsCallAllowed(ctx context.Context, conn *db.DB, cfg Config, tenantID int64, now time.Time) (Decision, error) {
    var decision Decision
    err := conn.Transaction(ctx, func(tx *sql.Tx) error {
        sc, err := store.ScheduleConfigForUpdate(ctx, tx, tenantID)
        if err != nil {
            return err
        }

        if sc.WalletBalance <= 0 {
            if sc.Enabled {
                sc.Enabled = false
                sc.DisabledByDialer = true
                sc.Version++
                if err := store.SaveScheduleConfig(ctx, tx, sc); err != nil {
                    return err
                }
            }
            decision = Decision{Allowed: false, Reason: ReasonInsufficientFunds, RetryAfterSec: cfg.ShortRetrySeconds, ScheduleVersion: sc.Version}
            return nil
        }

        if !sc.Enabled {
            decision = Decision{Allowed: false, Reason: ReasonDisabled, RetryAfterSec: cfg.ShortRetrySeconds, ScheduleVersion: sc.Version}
            return nil
        }

        tehranNow := now.In(calendar.Location)
        if sc.SkipHolidays && calendar.IsHoliday(tehranNow) {
            decision = Decision{Allowed: false, Reason: ReasonHoliday, RetryAfterSec: cfg.LongRetrySeconds, ScheduleVersion: sc.Version}
            return nil
        }

        windows, err := store.ListScheduleWindows(ctx, tx, tenantID)
        if err != nil {
            return err
        }

        weekday := calendar.IranWeekday(tehranNow)
        clock := tehranNow.Format("15:04:05")
        var todays []models.ScheduleWindow
        for _, w := range windows {
            if w.DayOfWeek == weekday {
                todays = append(todays, w)
            }
        }
        if len(todays) == 0 {
            decision = Decision{Allowed: false, Reason: ReasonNoWindow, RetryAfterSec: cfg.LongRetrySeconds, ScheduleVersion: sc.Version}
            return nil
        }

        for _, w := range todays {
            if w.StartTime <= clock && clock <= w.EndTime {
                decision = Decision{Allowed: true, ScheduleVersion: sc.Version}
                return nil
            }
        }

        decision = Decision{Allowed: false, Reason: ReasonOutsideWindow, RetryAfterSec: cfg.LongRetrySeconds, ScheduleVersion: sc.Version}
        return nil
    })
    if err != nil {
        return Decision{}, err
    }
    return decision, nil
}

// NextAllowedAt is a supplemented read-only hint (not part of the
// gate's decision path) that reports the next wall-clock instant a
// window opens, for operator-facing "resumes at" displays.
func NextAllowedAt(ctx context.Context, q store.Queryer, tenantID int64, from time.Time) (*time.Time, error) {
    windows, err := store.ListScheduleWindows(ctx, q, tenantID)
    if err != nil {
        return nil, err
    }
    if len(windows) == 0 {
        return nil, nil
    }

    tehranFrom := from.In(calendar.Location)
    for dayOffset := 0; dayOffset < 8; dayOffset++ {
        day := tehranFrom.AddDate(0, 0, dayOffset)
        weekday := calendar.IranWeekday(day)
        for _, w := range windows {
            if w.DayOfWeek != weekday {
                continue
            }
            candidate, err := time.ParseInLocation("2006-01-02 15:04:05", day.Format("2006-01-02")+" "+w.StartTime, calendar.Location)
            if err != nil {
                continue
            }
            if candidate.After(tehranFrom) {
                utc := candidate.UTC()
                return &utc, nil
            }
        }
    }
    return nil, nil
}
