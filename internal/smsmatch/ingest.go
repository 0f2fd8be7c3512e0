// Package smsmatch implements SMS Ingest & Matcher (spec §4.H):
// bank-sender profile routing, best-effort manager forwarding, and
// persistence of credit parses for later matching via billing.MatchAndCharge.
// Grounded on wallet_service.py's ingest_incoming_sms.
package smsmatch

import (
    "context"
    "crypto/sha1"
    "fmt"
    "time"

    "github.com/dialerhub/core/internal/billing"
    "github.com/dialerhub/core/internal/config"
    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/internal/smsforward"
    "github.com/dialerhub/core/internal/smsparser"
    "github.com/dialerhub/core/internal/store"
    "github.com/dialerhub/core/pkg/errors"
    "github.com/dialerhub/core/pkg/logger"
)

// notifyDedupTTL bounds how long a manager/webhook notify lock is held,
// wide enough to cover a provider's retry window without outliving it.
const notifyDedupTTL = 30 * time.Second

type IngestResult struct {
    Stored bool
    ID     int64
}

// Ingest handles one inbound bank SMS webhook call (spec §6: GET
// /sms/ingest). Strips the provider's callback suffix, identifies the
// sender's bank profile, forwards the raw body to that profile's
// managers (best-effort, deduplicated against provider webhook
// retries via a short-lived cache lock), then stores only successful
// credit parses.
func Ingest(ctx context.Context, conn *db.DB, cache *db.Cache, smsCfg config.SMSConfig, sender, receiver, rawBody string) (IngestResult, error) {
    body := smsparser.StripCallbackSuffix(rawBody)

    profile, isBankSender := smsCfg.ProfileFor(sender)

    var parsed *smsparser.Parsed
    if isBankSender {
        parsed, _ = smsparser.Parse(body)
        if unlock, ok := tryNotifyLock(ctx, cache, fmt.Sprintf("sms-forward:%x", sha1.Sum([]byte(sender+"|"+receiver+"|"+rawBody)))); ok {
            defer unlock()
            smsforward.ForwardToManagers(ctx, profile, body, smsCfg.ForwardTimeout)
        } else {
            logger.WithField("sender", sender).Debug("manager forward skipped, duplicate delivery")
        }
    }

    if !isBankSender || !smsparser.ShouldStore(parsed) {
        return IngestResult{Stored: false}, nil
    }

    amount := parsed.AmountToman
    isCredit := parsed.IsCredit
    txAt := parsed.TransactionAt

    id, err := store.InsertBankSms(ctx, conn.DB, models.BankIncomingSms{
        Sender:              sender,
        Receiver:            receiver,
        Body:                rawBody,
        IsBankSender:        true,
        ParsedAmountToman:   &amount,
        ParsedIsCredit:      &isCredit,
        ParsedTransactionAt: &txAt,
    })
    if err != nil {
        return IngestResult{}, err
    }

    return IngestResult{Stored: true, ID: id}, nil
}

// MatchAndCharge links a previously-stored deposit SMS to tenant E
// (spec §4.H: "Operator later calls H to link that deposit to E"),
// then fires the optional post-success notifications: the external
// deposit webhook and a manager receipt SMS. Both are best-effort and
// never alter the outcome of the charge itself.
func MatchAndCharge(ctx context.Context, conn *db.DB, cache *db.Cache, smsCfg config.SMSConfig, tenantSlug, senderProfile string, tenantID int64,
    amountToman int64, jy, jm, jd, hour, minute int, userID *int64) (*models.WalletTransaction, error) {

    txn, err := billing.MatchAndCharge(ctx, conn, tenantID, amountToman, jy, jm, jd, hour, minute, userID)
    if err != nil {
        return nil, err
    }

    unlock, ok := tryNotifyLock(ctx, cache, fmt.Sprintf("match-notify:%d", txn.ID))
    if !ok {
        logger.WithField("transaction_id", txn.ID).Debug("match notify skipped, duplicate in flight")
        return txn, nil
    }
    defer unlock()

    smsforward.NotifyGoogleSheetTopup(ctx, smsCfg.GoogleSheetWebhook, tenantSlug, amountToman, txn.TransactionAt)

    if profile, ok := smsCfg.ProfileFor(senderProfile); ok {
        receipt := fmt.Sprintf("Deposit of %d toman matched and applied.", amountToman)
        smsforward.ForwardToManagers(ctx, profile, receipt, smsCfg.ForwardTimeout)
    }

    return txn, nil
}

// tryNotifyLock acquires the best-effort notify dedup lock; callers
// proceed with notification only when ok is true. A held lock (a
// duplicate delivery in flight) skips notification; any other lock
// error fails open so a Redis outage never suppresses a real
// notification (spec §5: cache is never a source of truth).
func tryNotifyLock(ctx context.Context, cache *db.Cache, key string) (func(), bool) {
    if cache == nil {
        return func() {}, true
    }
    unlock, err := cache.Lock(ctx, key, notifyDedupTTL)
    if err != nil {
        if errors.Is(err, errors.ErrUnavailable) {
            return nil, false
        }
        return func() {}, true
    }
    return unlock, true
}
