// Package batch implements the Batch Assignment Engine (spec §4.F),
// grounded on dialer_service.py's fetch_next_batch/
// unlock_stale_assignments and the teacher's router/did_manager.go
// allocate-under-lock pattern.
package batch

import (
    "crypto/rand"
    "database/sql"
    "encoding/hex"
    "context"
    "time"

    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/internal/scheduling"
    "github.com/dialerhub/core/internal/store"
    "github.com/dialerhub/core/pkg/logger"
)

type Config struct {
    DefaultBatchSize         int
    MaxBatchSize             int
    CallCooldownDays         int
    AssignmentTimeoutMinutes int
    Timezone                 string
    Gate                     scheduling.Config
}

type NumberRef struct {
    ID          int64  `json:"id"`
    PhoneNumber string `json:"phone_number"`
}

type ScenarioRef struct {
    ID          int64  `json:"id"`
    Name        string `json:"name"`
    DisplayName string `json:"display_name"`
}

type OutboundLineRef struct {
    ID          int64  `json:"id"`
    PhoneNumber string `json:"phone_number"`
    DisplayName string `json:"display_name"`
}

type AgentRef struct {
    ID          int64  `json:"id"`
    Username    string `json:"username"`
    PhoneNumber string `json:"phone_number,omitempty"`
}

type BatchPayload struct {
    BatchID      string      `json:"batch_id"`
    SizeRequested int        `json:"size_requested"`
    SizeReturned int         `json:"size_returned"`
    Numbers      []NumberRef `json:"numbers"`
}

// NextBatchResponse is the dialer-facing payload of spec §6.
type NextBatchResponse struct {
    CallAllowed     bool              `json:"call_allowed"`
    Timezone        string            `json:"timezone"`
    ServerTime      time.Time         `json:"server_time"`
    ScheduleVersion int64             `json:"schedule_version"`
    Reason          string            `json:"reason,omitempty"`
    RetryAfterSec   int               `json:"retry_after_seconds,omitempty"`
    Batch           *BatchPayload     `json:"batch,omitempty"`
    ActiveScenarios []ScenarioRef     `json:"active_scenarios"`
    OutboundLines   []OutboundLineRef `json:"outbound_lines"`
    InboundAgents   []AgentRef        `json:"inbound_agents"`
    OutboundAgents  []AgentRef        `json:"outbound_agents"`
}

// FetchNextBatch claims up to requestedSize callable numbers for a
// tenant under the skip-locked claim algorithm (spec §4.F). The stale
// lease sweep runs first and is best-effort: its failure never blocks
// the claim itself.
func FetchNextBatch(ctx context.Context, conn *db.DB, cfg Config, tenantID int64, requestedSize *int, activeLinesCount *int, now time.Time) (*NextBatchResponse, error) {
    if n, err := store.ReclaimStaleAssignments(ctx, conn.DB, time.Duration(cfg.AssignmentTimeoutMinutes)*time.Minute, now); err != nil {
        logger.WithField("tenant_id", tenantID).WithError(err).Warn("stale lease reclaim failed, continuing with claim")
    } else if n > 0 {
        logger.WithField("count", n).Info("reclaimed stale number assignments")
    }

    decision, err := scheduling.IsCallAllowed(ctx, conn, cfg.Gate, tenantID, now)
    if err != nil {
        return nil, err
    }
    if !decision.Allowed {
        return &NextBatchResponse{
            CallAllowed:     false,
            Timezone:        cfg.Timezone,
            ServerTime:      now.UTC(),
            ScheduleVersion: decision.ScheduleVersion,
            Reason:          decision.Reason,
            RetryAfterSec:   decision.RetryAfterSec,
            ActiveScenarios: []ScenarioRef{},
            OutboundLines:   []OutboundLineRef{},
            InboundAgents:   []AgentRef{},
            OutboundAgents:  []AgentRef{},
        }, nil
    }

    activeLines, err := store.ListActiveOutboundLines(ctx, conn.DB, tenantID)
    if err != nil {
        return nil, err
    }
    authoritativeLineCount := len(activeLines)

    effectiveLines := authoritativeLineCount
    if activeLinesCount != nil {
        effectiveLines = clamp(*activeLinesCount, 0, authoritativeLineCount)
    }

    var requested int
    if requestedSize == nil {
        requested = cfg.DefaultBatchSize * effectiveLines
    } else {
        requested = *requestedSize
    }
    if requested < 0 {
        requested = 0
    }
    if cfg.MaxBatchSize > 0 && requested > cfg.MaxBatchSize {
        requested = cfg.MaxBatchSize
    }

    batchID, err := newBatchID()
    if err != nil {
        return nil, err
    }

    var claimedIDs []int64
    err = conn.Transaction(ctx, func(tx *sql.Tx) error {
        ids, err := store.ClaimCandidates(ctx, tx, tenantID, requested, time.Duration(cfg.CallCooldownDays)*24*time.Hour, now)
        if err != nil {
            return err
        }
        if err := store.AssignNumbers(ctx, tx, ids, batchID, now.UTC()); err != nil {
            return err
        }
        for _, id := range ids {
            if _, err := store.InsertDialerBatchItem(ctx, tx, batchID, tenantID, id, now.UTC()); err != nil {
                return err
            }
        }
        if err := store.InsertDialerBatch(ctx, tx, batchID, tenantID, requested, len(ids), now.UTC()); err != nil {
            return err
        }
        claimedIDs = ids
        return nil
    })
    if err != nil {
        return nil, err
    }

    claimed, err := store.ListNumbersByIDs(ctx, conn.DB, claimedIDs)
    if err != nil {
        return nil, err
    }
    numberRefs := make([]NumberRef, len(claimed))
    for i, n := range claimed {
        numberRefs[i] = NumberRef{ID: n.ID, PhoneNumber: n.PhoneNumber}
    }

    scenarios, err := store.ListActiveScenarios(ctx, conn.DB, tenantID)
    if err != nil {
        return nil, err
    }
    scenarioRefs := make([]ScenarioRef, len(scenarios))
    for i, s := range scenarios {
        scenarioRefs[i] = ScenarioRef{ID: s.ID, Name: s.Name, DisplayName: s.DisplayName}
    }

    lineRefs := make([]OutboundLineRef, len(activeLines))
    for i, l := range activeLines {
        lineRefs[i] = OutboundLineRef{ID: l.ID, PhoneNumber: l.Phone, DisplayName: l.DisplayName}
    }

    inbound, err := agentRefs(ctx, conn, tenantID, models.AgentTypeInbound)
    if err != nil {
        return nil, err
    }
    outbound, err := agentRefs(ctx, conn, tenantID, models.AgentTypeOutbound)
    if err != nil {
        return nil, err
    }

    return &NextBatchResponse{
        CallAllowed:     true,
        Timezone:        cfg.Timezone,
        ServerTime:      now.UTC(),
        ScheduleVersion: decision.ScheduleVersion,
        Batch: &BatchPayload{
            BatchID:       batchID,
            SizeRequested: requested,
            SizeReturned:  len(claimed),
            Numbers:       numberRefs,
        },
        ActiveScenarios: scenarioRefs,
        OutboundLines:   lineRefs,
        InboundAgents:   inbound,
        OutboundAgents:  outbound,
    }, nil
}

func agentRefs(ctx context.Context, conn *db.DB, tenantID int64, t models.AgentType) ([]AgentRef, error) {
    users, err := store.ListAgentsByType(ctx, conn.DB, tenantID, t)
    if err != nil {
        return nil, err
    }
    refs := make([]AgentRef, len(users))
    for i, u := range users {
        ref := AgentRef{ID: u.ID, Username: u.Username}
        if u.Phone != nil {
            ref.PhoneNumber = *u.Phone
        }
        refs[i] = ref
    }
    return refs, nil
}

func clamp(v, lo, hi int) int {
    if v < lo {
        return lo
    }
    if v > hi {
        return hi
    }
    return v
}

// newBatchID mints an opaque 128-bit hex batch id (spec §3: "128-bit
// hex"), the Go analogue of uuid4().hex.
func newBatchID() (string, error) {
    buf := make([]byte, 16)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
