// Package billing implements the Billing Ledger (spec §4.E), grounded
// on wallet_service.py's _apply_wallet_delta/create_manual_adjustment/
// match_and_charge_from_bank_sms and schedule_service.py's
// charge_for_connected_call.
package billing

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/calendar"
    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/internal/store"
    "github.com/dialerhub/core/pkg/errors"
)

// AdjustOp is the sign of a manual wallet adjustment.
type AdjustOp string

const (
    OpAdd      AdjustOp = "ADD"
    OpSubtract AdjustOp = "SUBTRACT"
)

// ChargeForConnectedCall resolves the effective per-connected cost
// (scenario override, else tenant default) and deducts it under the
// tenant's ScheduleConfig row lock (spec §4.E). Auto-disables the
// tenant on exhaustion. A non-positive cost is a no-op.
func ChargeForConnectedCall(ctx context.Context, conn *db.DB, tenantID int64, scenarioID *int64) (int64, error) {
    var balance int64
    err := conn.Transaction(ctx, func(tx *sql.Tx) error {
        sc, err := store.ScheduleConfigForUpdate(ctx, tx, tenantID)
        if err != nil {
            return err
        }

        cost := sc.CostPerConnected
        if scenarioID != nil {
            scenario, err := store.ScenarioByID(ctx, tx, tenantID, *scenarioID)
            if err == nil && scenario.CostPerConnected != nil {
                cost = *scenario.CostPerConnected
            } else if err != nil && !errors.Is(err, errors.ErrNotFound) {
                return err
            }
        }

        if cost <= 0 {
            balance = sc.WalletBalance
            return nil
        }

        if sc.WalletBalance <= 0 {
            sc.Enabled = false
            sc.DisabledByDialer = true
            sc.Version++
            if err := store.SaveScheduleConfig(ctx, tx, sc); err != nil {
                return err
            }
            balance = 0
            return nil
        }

        newBalance := sc.WalletBalance - cost
        if newBalance < 0 {
            newBalance = 0
        }
        sc.WalletBalance = newBalance
        if newBalance == 0 {
            sc.Enabled = false
            sc.DisabledByDialer = true
        }
        sc.Version++
        if err := store.SaveScheduleConfig(ctx, tx, sc); err != nil {
            return err
        }

        if _, err := store.InsertWalletTransaction(ctx, tx, tenantID, -cost, newBalance,
            models.SourceCallCharge, "", time.Now().UTC(), nil, nil); err != nil {
            return err
        }

        balance = newBalance
        return nil
    })
    if err != nil {
        return 0, err
    }
    return balance, nil
}

// ManualAdjust applies a signed operator-initiated delta (spec §4.E).
func ManualAdjust(ctx context.Context, conn *db.DB, tenantID int64, amount int64, op AdjustOp, note string, userID *int64) (*models.WalletTransaction, error) {
    if amount <= 0 {
        return nil, errors.New(errors.ErrValidation, "amount must be greater than zero")
    }
    signed := amount
    if op == OpSubtract {
        signed = -amount
    } else if op != OpAdd {
        return nil, errors.New(errors.ErrValidation, "invalid operation")
    }
    return applyWalletDelta(ctx, conn, tenantID, signed, models.SourceManualAdjust, note, time.Now().UTC(), userID, nil)
}

// MatchAndCharge links a user-claimed deposit to a stored parsed bank
// SMS by exact (amount, minute) and credits the wallet (spec §4.E/§4.H).
func MatchAndCharge(ctx context.Context, conn *db.DB, tenantID int64, amountToman int64, jy, jm, jd, hour, minute int, userID *int64) (*models.WalletTransaction, error) {
    if amountToman <= 0 {
        return nil, errors.New(errors.ErrValidation, "amount must be greater than zero")
    }

    var tx *models.WalletTransaction
    err := conn.Transaction(ctx, func(sqlTx *sql.Tx) error {
        txAt := jalaliMinuteToUTC(jy, jm, jd, hour, minute)
        sms, err := store.FindBankSmsForUpdate(ctx, sqlTx, amountToman, txAt)
        if err != nil {
            return err
        }
        if sms.Consumed {
            return errors.New(errors.ErrConflict, "already used")
        }

        sc, err := store.ScheduleConfigForUpdate(ctx, sqlTx, tenantID)
        if err != nil {
            return err
        }

        newBalance := sc.WalletBalance + amountToman
        sc.WalletBalance = newBalance
        sc.Version++
        if newBalance > 0 {
            sc.DisabledByDialer = false
        }
        if err := store.SaveScheduleConfig(ctx, sqlTx, sc); err != nil {
            return err
        }

        if err := store.MarkBankSmsConsumed(ctx, sqlTx, sms.ID, time.Now().UTC()); err != nil {
            return err
        }

        id, err := store.InsertWalletTransaction(ctx, sqlTx, tenantID, amountToman, newBalance,
            models.SourceBankMatch, "", txAt, userID, &sms.ID)
        if err != nil {
            return err
        }

        tx = &models.WalletTransaction{
            ID: id, TenantID: tenantID, AmountToman: amountToman, BalanceAfter: newBalance,
            Source: models.SourceBankMatch, TransactionAt: txAt, CreatedByUserID: userID, BankSmsID: &sms.ID,
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    return tx, nil
}

func applyWalletDelta(ctx context.Context, conn *db.DB, tenantID int64, amount int64, source models.WalletSource, note string, transactionAt time.Time, userID, bankSmsID *int64) (*models.WalletTransaction, error) {
    if amount == 0 {
        return nil, errors.New(errors.ErrValidation, "transaction amount cannot be zero")
    }

    var tx *models.WalletTransaction
    err := conn.Transaction(ctx, func(sqlTx *sql.Tx) error {
        sc, err := store.ScheduleConfigForUpdate(ctx, sqlTx, tenantID)
        if err != nil {
            return err
        }

        newBalance := sc.WalletBalance + amount
        if newBalance < 0 {
            return errors.New(errors.ErrConflict, "insufficient wallet balance for this deduction")
        }

        sc.WalletBalance = newBalance
        sc.Version++
        if newBalance > 0 {
            sc.DisabledByDialer = false
        }
        if err := store.SaveScheduleConfig(ctx, sqlTx, sc); err != nil {
            return err
        }

        id, err := store.InsertWalletTransaction(ctx, sqlTx, tenantID, amount, newBalance, source, note, transactionAt, userID, bankSmsID)
        if err != nil {
            return err
        }

        tx = &models.WalletTransaction{
            ID: id, TenantID: tenantID, AmountToman: amount, BalanceAfter: newBalance,
            Source: source, Note: note, TransactionAt: transactionAt, CreatedByUserID: userID, BankSmsID: bankSmsID,
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    return tx, nil
}

func jalaliMinuteToUTC(jy, jm, jd, hour, minute int) time.Time {
    return calendar.BuildUTCFromJalaliMinute(jy, jm, jd, hour, minute)
}

// ListTransactions is the read-only newest-first listing (spec §4.E).
func ListTransactions(ctx context.Context, conn *db.DB, tenantID int64, from, to *time.Time, skip, limit int) ([]models.WalletTransaction, error) {
    txs, err := store.ListWalletTransactions(ctx, conn.DB, tenantID, from, to, skip, limit)
    if err != nil {
        return nil, err
    }
    return txs, nil
}
