// Package ingestion implements Result Ingestion and the Number State
// Machine (spec §4.G), grounded on dialer_service.py's report_result
// and _resolve_agent.
package ingestion

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/billing"
    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/internal/phone"
    "github.com/dialerhub/core/internal/store"
    "github.com/dialerhub/core/pkg/errors"
    "github.com/dialerhub/core/pkg/logger"
)

// Report mirrors the dialer-submitted DialerReport (spec §6).
type Report struct {
    NumberID       *int64
    PhoneNumber    string
    TenantID       int64
    ScenarioID     *int64
    OutboundLineID *int64
    Status         models.CallStatus
    Reason         string
    UserMessage    string
    AttemptedAt    time.Time
    CallAllowed    *bool
    BatchID        *string
    AgentID        *int64
    AgentPhone     string
}

type Result struct {
    ID           int64
    GlobalStatus models.GlobalStatus
    PhoneNumber  string
}

// ReportResult transitions the Number state machine and writes the
// append-only outcome ledger (spec §4.G). Billing is charged only
// after the transaction commits.
func ReportResult(ctx context.Context, conn *db.DB, r Report) (*Result, error) {
    normalizedPhone, phoneOK := phone.Normalize(r.PhoneNumber)
    if !phoneOK && r.NumberID == nil {
        return nil, errors.New(errors.ErrValidation, "phone_number or number_id is required")
    }

    var result Result
    err := conn.Transaction(ctx, func(tx *sql.Tx) error {
        number, err := resolveNumber(ctx, tx, r.NumberID, normalizedPhone, phoneOK)
        if err != nil {
            return err
        }

        agentID, err := resolveAgent(ctx, tx, r.TenantID, r.AgentID, r.AgentPhone)
        if err != nil {
            return err
        }

        if r.CallAllowed != nil {
            sc, err := store.ScheduleConfigForUpdate(ctx, tx, r.TenantID)
            if err != nil {
                return err
            }
            if sc.Enabled != *r.CallAllowed {
                sc.Enabled = *r.CallAllowed
                sc.Version++
            }
            sc.DisabledByDialer = !*r.CallAllowed
            if err := store.SaveScheduleConfig(ctx, tx, sc); err != nil {
                return err
            }
        }

        assignedBatchSnapshot := number.AssignedBatchID

        globalStatus := models.GlobalStatusFor(r.Status)
        if err := store.MarkCalled(ctx, tx, number.ID, r.TenantID, globalStatus, r.AttemptedAt); err != nil {
            return err
        }

        direction := models.DirectionOutbound
        if r.NumberID == nil {
            direction = models.DirectionInbound
        }

        tenantID := r.TenantID
        callResultID, err := store.InsertCallResult(ctx, tx, store.CallResultInput{
            NumberID:       number.ID,
            TenantID:       &tenantID,
            ScenarioID:     r.ScenarioID,
            OutboundLineID: r.OutboundLineID,
            Direction:      direction,
            Status:         r.Status,
            Reason:         r.Reason,
            UserMessage:    r.UserMessage,
            AgentID:        agentID,
            AttemptedAt:    r.AttemptedAt,
        })
        if err != nil {
            return err
        }

        item, err := store.FindBatchItemForReport(ctx, tx, r.BatchID, assignedBatchSnapshot, r.TenantID, number.ID)
        if err != nil {
            if !errors.Is(err, errors.ErrNotFound) {
                return err
            }
            syntheticBatchID := ""
            if r.BatchID != nil {
                syntheticBatchID = *r.BatchID
            } else if assignedBatchSnapshot != nil {
                syntheticBatchID = *assignedBatchSnapshot
            } else {
                syntheticBatchID = "unassigned"
            }
            newID, insertErr := store.InsertDialerBatchItem(ctx, tx, syntheticBatchID, r.TenantID, number.ID, r.AttemptedAt)
            if insertErr != nil {
                return insertErr
            }
            item = &models.DialerBatchItem{ID: newID}
        }

        status := string(r.Status)
        if err := store.UpdateBatchItemReport(ctx, tx, item.ID, r.BatchID, callResultID, status,
            r.ScenarioID, r.OutboundLineID, r.Reason, r.AttemptedAt, time.Now().UTC()); err != nil {
            return err
        }

        result = Result{ID: number.ID, GlobalStatus: globalStatus, PhoneNumber: number.PhoneNumber}
        return nil
    })
    if err != nil {
        return nil, err
    }

    if models.IsBillable(r.Status) {
        if _, err := billing.ChargeForConnectedCall(ctx, conn, r.TenantID, r.ScenarioID); err != nil {
            logger.WithField("tenant_id", r.TenantID).WithError(err).Error("post-report billing charge failed")
        }
    }

    return &result, nil
}

// resolveNumber implements the three-step lookup of spec §4.G: by id
// (discarding on phone mismatch), else by phone under lock, else
// auto-create recovering from a unique-violation race.
func resolveNumber(ctx context.Context, tx *sql.Tx, numberID *int64, normalizedPhone string, phoneOK bool) (*models.Number, error) {
    if numberID != nil {
        n, err := store.NumberByID(ctx, tx, *numberID)
        if err == nil {
            if !phoneOK || n.PhoneNumber == normalizedPhone {
                return n, nil
            }
        } else if !errors.Is(err, errors.ErrNotFound) {
            return nil, err
        }
    }

    if !phoneOK {
        return nil, errors.New(errors.ErrNotFound, "number not found")
    }

    n, err := store.NumberByPhoneForUpdate(ctx, tx, normalizedPhone)
    if err == nil {
        return n, nil
    }
    if !errors.Is(err, errors.ErrNotFound) {
        return nil, err
    }

    n, err = store.CreateNumber(ctx, tx, normalizedPhone)
    if err == nil {
        return n, nil
    }
    // Lost the create race to a concurrent reporter; re-select.
    return store.NumberByPhoneForUpdate(ctx, tx, normalizedPhone)
}

// resolveAgent finds the reporting agent, by id then by phone,
// validating tenant membership, role and active state (spec §4.G).
func resolveAgent(ctx context.Context, tx *sql.Tx, tenantID int64, agentID *int64, agentPhone string) (*int64, error) {
    var agent *models.User
    if agentID != nil {
        u, err := store.UserByID(ctx, tx, *agentID)
        if err == nil && u.TenantID != nil && *u.TenantID == tenantID {
            agent = u
        } else if err != nil && !errors.Is(err, errors.ErrNotFound) {
            return nil, err
        }
    }

    if agent == nil && agentPhone != "" {
        if normalized, ok := phone.Normalize(agentPhone); ok {
            u, err := store.UserByPhone(ctx, tx, normalized)
            if err == nil && u.TenantID != nil && *u.TenantID == tenantID {
                agent = u
            } else if err != nil && !errors.Is(err, errors.ErrNotFound) {
                return nil, err
            }
        }
    }

    if agent == nil {
        return nil, nil
    }
    if agent.Role != models.RoleAgent {
        return nil, nil
    }
    if !agent.Active {
        return nil, errors.New(errors.ErrValidation, "agent is inactive")
    }
    return &agent.ID, nil
}
