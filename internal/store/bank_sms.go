package store

import (
    "context"
    "database/sql"
    "time"

    "github.com/dialerhub/core/internal/models"
    "github.com/dialerhub/core/pkg/errors"
)

// InsertBankSms persists a parsed-or-unparsed bank notification (spec
// §4.C: "only credit parses are stored for future matching").
func InsertBankSms(ctx context.Context, q Queryer, s models.BankIncomingSms) (int64, error) {
    res, err := q.ExecContext(ctx, `
        INSERT INTO bank_incoming_sms
            (sender, receiver, body, is_bank_sender, parsed_amount_toman, parsed_is_credit,
             parsed_transaction_at, parse_error, consumed, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE, NOW())`,
        s.Sender, s.Receiver, s.Body, s.IsBankSender, s.ParsedAmountToman, s.ParsedIsCredit,
        s.ParsedTransactionAt, s.ParseError)
    if err != nil {
        return 0, errors.Wrap(err, errors.ErrDatabase, "failed to insert bank sms")
    }
    return res.LastInsertId()
}

// FindBankSmsForUpdate locates and row-locks the oldest credit SMS
// matching (amount, minute-precise UTC instant), consumed or not (spec
// §4.E matchAndCharge, §5: "additionally row-locks the selected
// BankIncomingSms before setting consumed=true"). Matching ignores
// `consumed` so a repeat call with identical inputs can still find the
// row and report "already used" (spec.md:106,267) instead of falling
// through to "not found" once the row is consumed.
func FindBankSmsForUpdate(ctx context.Context, tx *sql.Tx, amountToman int64, transactionAt time.Time) (*models.BankIncomingSms, error) {
    row := tx.QueryRowContext(ctx, `
        SELECT id, sender, receiver, body, is_bank_sender, parsed_amount_toman, parsed_is_credit,
               parsed_transaction_at, parse_error, consumed, consumed_at, created_at
        FROM bank_incoming_sms
        WHERE parsed_amount_toman = ? AND parsed_transaction_at = ? AND parsed_is_credit = TRUE
        ORDER BY id ASC
        LIMIT 1
        FOR UPDATE`, amountToman, transactionAt)

    var s models.BankIncomingSms
    if err := row.Scan(&s.ID, &s.Sender, &s.Receiver, &s.Body, &s.IsBankSender, &s.ParsedAmountToman,
        &s.ParsedIsCredit, &s.ParsedTransactionAt, &s.ParseError, &s.Consumed, &s.ConsumedAt, &s.CreatedAt); err != nil {
        if err == sql.ErrNoRows {
            return nil, errors.New(errors.ErrNotFound, "no matching bank sms")
        }
        return nil, errors.Wrap(err, errors.ErrDatabase, "failed to load bank sms")
    }
    return &s, nil
}

func MarkBankSmsConsumed(ctx context.Context, tx *sql.Tx, id int64, consumedAt time.Time) error {
    _, err := tx.ExecContext(ctx, `
        UPDATE bank_incoming_sms SET consumed = TRUE, consumed_at = ? WHERE id = ?`, consumedAt, id)
    if err != nil {
        return errors.Wrap(err, errors.ErrDatabase, "failed to mark bank sms consumed")
    }
    return nil
}
