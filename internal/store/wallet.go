package store

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

// InsertWalletTransaction appends a signed ledger entry; balance_after
// must already reflect the caller's locked-transaction arithmetic
// (spec §4.E: "Billing never re-reads wallet balance outside its own
// locked transaction").
func InsertWalletTransaction(ctx context.Context, tx *sql.Tx, tenantID int64, amount, balanceAfter int64, source models.WalletSource, note string, transactionAt time.Time, createdBy, bankSmsID *int64) (int64, error) {
    res, err := tx.ExecContext(ctx, `
        INSERT INTO wallet_transactions
            (tenant_id, amount_toman, balance_after, source, note, transaction_at, created_by_user_id, bank_sms_id)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
        tenantID, amount, balanceAfter, source, note, transactionAt, createdBy, bankSmsID)
    if err != nil {
        return 0, errors.Wrap(err, errors.ErrDatabase, "failed to insert wallet transaction")
    }
    return res.LastInsertId()
}

// ListWalletTransactions is the read-only newest-first listing of
// spec §4.E, ordered by (transaction_at DESC, id DESC).
func ListWalletTransactions(ctx context.Context, q Queryer, tenantID int64, from, to *time.Time, skip, limit int) ([]models.WalletTransaction, error) {
    query := `
        SELECT id, tenant_id, amount_toman, balance_after, source, note, transaction_at, created_by_user_id, bank_sms_id
        FROM wallet_transactions WHERE tenant_id = ?`
    args := []interface{}{tenantID}
    if from != nil {
        query += " AND transaction_at >= ?"
        args = append(args, *from)
    }
    if to != nil {
        query += " AND transaction_at <= ?"
        args = append(args, *to)
    }
    query += " ORDER BY transaction_at DESC, id DESC LIMIT ? OFFSET ?"
    args = append(args, limit, skip)

    rows, err := q.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to list wallet transactions")
    }
    defer rows.Close()

    var out []models.WalletTransaction
    for rows.Next() {
        var w models.WalletTransaction
        if err := rows.Scan(&w.ID, &w.TenantID, &w.AmountToman, &w.BalanceAfter, &w.Source, &w.Note,
            &w.TransactionAt, &w.CreatedByUserID, &w.BankSmsID); err != nil {
            return nil, errors.Wrap(err, errors.ErrDatabase, "failed to scan wallet transaction")
        }
        out = append(out, w)
    }
    return out, rows.Err()
}
