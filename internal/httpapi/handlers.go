package httpapi

import (
    "context"
    "encoding/json"
    "net/http"
    "strconv"
    "time"

    "github.com/dialerhub/core/internal/batch"
    "github.com/dialerhub/core/internal/config"
    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/ingestion"
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/internal/scheduling"
    "github.com/dialerhub/core/internal/smsmatch"
    "github.com/dialerhub/core/internal/store"
    "github.com/dialerhub/core/pkg/errors"
    "github.com/dialerhub/core/pkg/logger"
)

type handlers struct {
    dialerCfg  config.DialerConfig
    billingCfg config.BillingConfig
    smsCfg     config.SMSConfig
    conn       *db.DB
    cache      *db.Cache
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
    writeJSON(w, status, map[string]string{"error": message})
}

// tenantCacheTTL bounds how long a tenant-by-slug lookup is cached;
// short enough that an admin toggling tenant.active is visible quickly.
const tenantCacheTTL = 30 * time.Second

// lookupTenant resolves a tenant by slug through the read cache before
// falling back to the store, the way the teacher's DID lookups read
// through internal/db/cache.go's Get/Set pair.
func (h *handlers) lookupTenant(ctx context.Context, slug string) (*models.Tenant, error) {
    var cached models.Tenant
    if h.cache != nil {
        if err := h.cache.Get(ctx, "tenant:"+slug, &cached); err == nil && cached.ID != 0 {
            return &cached, nil
        }
    }

    tenant, err := store.TenantBySlug(ctx, h.conn.DB, slug)
    if err != nil {
        return nil, err
    }
    if h.cache != nil {
        _ = h.cache.Set(ctx, "tenant:"+slug, tenant, tenantCacheTTL)
    }
    return tenant, nil
}

// statusFor maps a tagged AppError to its HTTP status (spec §7:
// error kinds carry a default transport status).
func statusFor(err error) (int, string) {
    if appErr, ok := err.(*errors.AppError); ok {
        return appErr.StatusCode, appErr.Message
    }
    return http.StatusInternalServerError, err.Error()
}

// nextBatch implements GET /dialer/next-batch (spec §6).
func (h *handlers) nextBatch(w http.ResponseWriter, r *http.Request) {
    slug := r.URL.Query().Get("company")
    tenant, err := h.lookupTenant(r.Context(), slug)
    if err != nil {
        status, msg := statusFor(err)
        writeError(w, status, msg)
        return
    }

    var requestedSize *int
    if raw := r.URL.Query().Get("size"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil {
            writeError(w, http.StatusBadRequest, "invalid size")
            return
        }
        requestedSize = &n
    }

    var activeLinesCount *int
    if raw := r.URL.Query().Get("active_lines_count"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil {
            writeError(w, http.StatusBadRequest, "invalid active_lines_count")
            return
        }
        activeLinesCount = &n
    }

    cfg := batch.Config{
        DefaultBatchSize:         h.dialerCfg.DefaultBatchSize,
        MaxBatchSize:             h.dialerCfg.MaxBatchSize,
        CallCooldownDays:         h.dialerCfg.CallCooldownDays,
        AssignmentTimeoutMinutes: h.dialerCfg.AssignmentTimeoutMinutes,
        Timezone:                 h.dialerCfg.Timezone,
        Gate: scheduling.Config{
            ShortRetrySeconds: h.dialerCfg.ShortRetrySeconds,
            LongRetrySeconds:  h.dialerCfg.LongRetrySeconds,
        },
    }

    resp, err := batch.FetchNextBatch(r.Context(), h.conn, cfg, tenant.ID, requestedSize, activeLinesCount, time.Now().UTC())
    if err != nil {
        status, msg := statusFor(err)
        writeError(w, status, msg)
        return
    }
    writeJSON(w, http.StatusOK, resp)
}

// reportOutcomeRequest mirrors spec §6's DialerReport.
type reportOutcomeRequest struct {
    NumberID       *int64            `json:"number_id"`
    PhoneNumber    string            `json:"phone_number"`
    Company        string            `json:"company"`
    ScenarioID     *int64            `json:"scenario_id"`
    OutboundLineID *int64            `json:"outbound_line_id"`
    Status         models.CallStatus `json:"status"`
    Reason         string            `json:"reason"`
    AttemptedAt    time.Time         `json:"attempted_at"`
    CallAllowed    *bool             `json:"call_allowed"`
    BatchID        *string           `json:"batch_id"`
    AgentID        *int64            `json:"agent_id"`
    AgentPhone     string            `json:"agent_phone"`
    UserMessage    string            `json:"user_message"`
}

// reportResult implements POST /dialer/report-result (spec §6).
func (h *handlers) reportResult(w http.ResponseWriter, r *http.Request) {
    var req reportOutcomeRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "invalid request body")
        return
    }

    tenant, err := h.lookupTenant(r.Context(), req.Company)
    if err != nil {
        status, msg := statusFor(err)
        writeError(w, status, msg)
        return
    }

    result, err := ingestion.ReportResult(r.Context(), h.conn, ingestion.Report{
        NumberID:       req.NumberID,
        PhoneNumber:    req.PhoneNumber,
        TenantID:       tenant.ID,
        ScenarioID:     req.ScenarioID,
        OutboundLineID: req.OutboundLineID,
        Status:         req.Status,
        Reason:         req.Reason,
        UserMessage:    req.UserMessage,
        AttemptedAt:    req.AttemptedAt,
        CallAllowed:    req.CallAllowed,
        BatchID:        req.BatchID,
        AgentID:        req.AgentID,
        AgentPhone:     req.AgentPhone,
    })
    if err != nil {
        status, msg := statusFor(err)
        writeError(w, status, msg)
        return
    }

    writeJSON(w, http.StatusOK, map[string]interface{}{
        "id":            result.ID,
        "global_status": result.GlobalStatus,
        "phone_number":  result.PhoneNumber,
    })
}

type registerScenariosRequest struct {
    Company   string `json:"company"`
    Scenarios []struct {
        Name        string `json:"name"`
        DisplayName string `json:"display_name"`
    } `json:"scenarios"`
}

// registerScenarios implements POST /dialer/register-scenarios (spec §6).
func (h *handlers) registerScenarios(w http.ResponseWriter, r *http.Request) {
    var req registerScenariosRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "invalid request body")
        return
    }
    tenant, err := h.lookupTenant(r.Context(), req.Company)
    if err != nil {
        status, msg := statusFor(err)
        writeError(w, status, msg)
        return
    }

    inserted, updated := 0, 0
    for _, s := range req.Scenarios {
        wasInsert, err := store.UpsertScenario(r.Context(), h.conn.DB, tenant.ID, s.Name, s.DisplayName)
        if err != nil {
            logger.WithField("tenant", req.Company).WithError(err).Error("failed to upsert scenario")
            continue
        }
        if wasInsert {
            inserted++
        } else {
            updated++
        }
    }
    writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted, "updated": updated})
}

type registerOutboundLinesRequest struct {
    Company        string `json:"company"`
    OutboundLines []struct {
        PhoneNumber string `json:"phone_number"`
        DisplayName string `json:"display_name"`
    } `json:"outbound_lines"`
}

// registerOutboundLines implements POST /dialer/register-outbound-lines (spec §6).
func (h *handlers) registerOutboundLines(w http.ResponseWriter, r *http.Request) {
    var req registerOutboundLinesRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeError(w, http.StatusBadRequest, "invalid request body")
        return
    }
    tenant, err := h.lookupTenant(r.Context(), req.Company)
    if err != nil {
        status, msg := statusFor(err)
        writeError(w, status, msg)
        return
    }

    count := 0
    for _, l := range req.OutboundLines {
        if err := store.UpsertOutboundLine(r.Context(), h.conn.DB, tenant.ID, l.PhoneNumber, l.DisplayName); err != nil {
            logger.WithField("tenant", req.Company).WithError(err).Error("failed to upsert outbound line")
            continue
        }
        count++
    }
    writeJSON(w, http.StatusOK, map[string]int{"upserted": count})
}

// smsIngest implements GET /sms/ingest (spec §6). The provider quirk
// of appending ";http…" to the body is stripped by smsmatch.Ingest.
func (h *handlers) smsIngest(w http.ResponseWriter, r *http.Request) {
    from := r.URL.Query().Get("from")
    to := r.URL.Query().Get("to")
    body := r.URL.Query().Get("body")

    result, err := smsmatch.Ingest(r.Context(), h.conn, h.cache, h.smsCfg, from, to, body)
    if err != nil {
        status, msg := statusFor(err)
        writeError(w, status, msg)
        return
    }

    resp := map[string]interface{}{"ok": true, "stored": result.Stored}
    if result.Stored {
        resp["id"] = result.ID
    }
    writeJSON(w, http.StatusOK, resp)
}
