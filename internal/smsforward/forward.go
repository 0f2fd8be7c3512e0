// Package smsforward sends best-effort external notifications for the
// Bank SMS pipeline: raw-body forwarding to bank-profile manager
// numbers and the Google Sheet top-up webhook. Grounded on
// wallet_service.py's _forward_sms_to_managers/notify_google_sheet_topup.
// Failures here are logged and swallowed — spec §5/§7: best-effort
// side effects never fail the surrounding business transaction.
package smsforward

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/dialerhub/core/internal/calendar"
    "github.com/dialerhub/core/internal/config"
    "github.com/dialerhub/core/pkg/logger"
)

type managerPayload struct {
    From string   `json:"from"`
    To   []string `json:"to"`
    Text string   `json:"text"`
    UDH  string   `json:"udh"`
}

// ForwardToManagers posts the raw SMS body to a bank profile's manager
// numbers. Best-effort: errors are logged, never returned.
func ForwardToManagers(ctx context.Context, profile config.BankProfile, body string, timeout time.Duration) {
    if len(profile.ManagerNumbers) == 0 || profile.NotifyAPIKey == "" {
        return
    }

    payload := managerPayload{
        From: profile.DisplayName,
        To:   profile.ManagerNumbers,
        Text: body,
    }
    endpoint := strings.TrimRight(profile.NotifyAPIURL, "/")
    if !strings.HasSuffix(endpoint, "/"+profile.NotifyAPIKey) {
        endpoint = endpoint + "/" + profile.NotifyAPIKey
    }

    if err := postJSON(ctx, endpoint, payload, timeout); err != nil {
        logger.WithField("profile", profile.Key).WithError(err).Warn("sms manager forward failed")
    }
}

type sheetPayload struct {
    Token  string `json:"token"`
    Amount int64  `json:"amount"`
    Date   string `json:"date"`
}

// NotifyGoogleSheetTopup invokes the configured deposit webhook
// (spec §6: GOOGLE_SHEET_WEBHOOK_*). Best-effort. Gated on a non-empty
// token, matching the original's webhook_token guard.
func NotifyGoogleSheetTopup(ctx context.Context, cfg config.GoogleSheetWebhookConfig, tenantSlug string, amountToman int64, transactionAt time.Time) {
    if !cfg.Enabled || cfg.URL == "" || cfg.Token == "" {
        return
    }
    if cfg.Company != "" && !strings.EqualFold(strings.TrimSpace(tenantSlug), cfg.Company) {
        return
    }

    payload := sheetPayload{
        Token:  cfg.Token,
        Amount: amountToman,
        Date:   transactionAt.In(calendar.Location).Format("2006-01-02"),
    }

    timeout := cfg.Timeout
    if timeout <= 0 {
        timeout = 10 * time.Second
    }
    if err := postJSON(ctx, cfg.URL, payload, timeout); err != nil {
        logger.WithField("tenant", tenantSlug).WithError(err).Warn("google sheet webhook failed")
    }
}

func postJSON(ctx context.Context, url string, payload interface{}, timeout time.Duration) error {
    body, err := json.Marshal(payload)
    if err != nil {
        return err
    }

    reqCtx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()

    req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")

    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    return nil
}
