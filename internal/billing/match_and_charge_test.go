package billing

import (
    "context"
    "database/sql"
    "database/sql/driver"
    "fmt"
    "io"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/pkg/errors"
)

// This file backs MatchAndCharge with a minimal fake database/sql/driver
// (no test-assertion library in the pack, per SPEC_FULL.md's Test
// tooling section) so the bank-sms matching property of spec.md:106,267
// ("already used" vs "not found" on a repeat match) runs against the
// real store.FindBankSmsForUpdate query instead of a hand-mocked
// repository.

type bankSmsRow struct {
    id            int64
    amount        int64
    transactionAt time.Time
    consumed      bool
}

var (
    fakeRegistryMu sync.Mutex
    fakeRegistry   = map[string]*fakeConn{}
)

type fakeConn struct {
    mu   sync.Mutex
    rows []bankSmsRow
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
    return &fakeStmt{conn: c, query: strings.Join(strings.Fields(query), " ")}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

type fakeStmt struct {
    conn  *fakeConn
    query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
    return nil, fmt.Errorf("fake driver: unsupported exec: %s", s.query)
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
    if !strings.Contains(s.query, "FROM bank_incoming_sms") {
        return nil, fmt.Errorf("fake driver: unsupported query: %s", s.query)
    }
    amount, _ := args[0].(int64)
    txAt, _ := args[1].(time.Time)

    s.conn.mu.Lock()
    defer s.conn.mu.Unlock()
    for _, r := range s.conn.rows {
        if r.amount == amount && r.transactionAt.Equal(txAt) {
            row := r
            return &fakeRows{row: &row}, nil
        }
    }
    return &fakeRows{}, nil
}

type fakeRows struct {
    row  *bankSmsRow
    done bool
}

func (r *fakeRows) Columns() []string {
    return []string{"id", "sender", "receiver", "body", "is_bank_sender", "parsed_amount_toman",
        "parsed_is_credit", "parsed_transaction_at", "parse_error", "consumed", "consumed_at", "created_at"}
}
func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
    if r.row == nil || r.done {
        return io.EOF
    }
    r.done = true
    dest[0] = r.row.id
    dest[1] = "TESTBANK"
    dest[2] = "09120000000"
    dest[3] = "test body"
    dest[4] = true
    dest[5] = r.row.amount
    dest[6] = true
    dest[7] = r.row.transactionAt
    dest[8] = ""
    dest[9] = r.row.consumed
    if r.row.consumed {
        dest[10] = r.row.transactionAt
    } else {
        dest[10] = nil
    }
    dest[11] = r.row.transactionAt
    return nil
}

type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) {
    fakeRegistryMu.Lock()
    defer fakeRegistryMu.Unlock()
    c, ok := fakeRegistry[name]
    if !ok {
        return nil, fmt.Errorf("fake db %q not registered", name)
    }
    return c, nil
}

func init() {
    sql.Register("billingfakesql", fakeDriver{})
}

func newFakeDB(t *testing.T, rows []bankSmsRow) *db.DB {
    t.Helper()
    name := fmt.Sprintf("fake-%s-%d", t.Name(), len(fakeRegistry))

    fakeRegistryMu.Lock()
    fakeRegistry[name] = &fakeConn{rows: rows}
    fakeRegistryMu.Unlock()
    t.Cleanup(func() {
        fakeRegistryMu.Lock()
        delete(fakeRegistry, name)
        fakeRegistryMu.Unlock()
    })

    sdb, err := sql.Open("billingfakesql", name)
    if err != nil {
        t.Fatalf("sql.Open: %v", err)
    }
    return db.NewForTesting(sdb)
}

func TestMatchAndChargeAlreadyUsed(t *testing.T) {
    jy, jm, jd, hour, minute := 1404, 12, 19, 11, 45
    txAt := jalaliMinuteToUTC(jy, jm, jd, hour, minute)

    conn := newFakeDB(t, []bankSmsRow{{id: 1, amount: 500000, transactionAt: txAt, consumed: true}})

    _, err := MatchAndCharge(context.Background(), conn, 1, 500000, jy, jm, jd, hour, minute, nil)
    if err == nil {
        t.Fatal("expected an error matching an already-consumed bank sms")
    }
    if !errors.Is(err, errors.ErrConflict) {
        t.Fatalf("expected ErrConflict (\"already used\"), got %v", err)
    }
}

func TestMatchAndChargeNotFound(t *testing.T) {
    conn := newFakeDB(t, nil)

    _, err := MatchAndCharge(context.Background(), conn, 1, 500000, 1404, 12, 19, 11, 45, nil)
    if err == nil {
        t.Fatal("expected an error matching a deposit with no stored bank sms")
    }
    if !errors.Is(err, errors.ErrNotFound) {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}

func TestMatchAndChargeUnconsumedMatchProceedsPastLookup(t *testing.T) {
    jy, jm, jd, hour, minute := 1404, 12, 19, 11, 45
    txAt := jalaliMinuteToUTC(jy, jm, jd, hour, minute)

    conn := newFakeDB(t, []bankSmsRow{{id: 1, amount: 500000, transactionAt: txAt, consumed: false}})

    _, err := MatchAndCharge(context.Background(), conn, 1, 500000, jy, jm, jd, hour, minute, nil)
    if err == nil {
        t.Fatal("expected an error once the fake driver is asked for an unsupported schedule_configs query")
    }
    if errors.Is(err, errors.ErrConflict) || errors.Is(err, errors.ErrNotFound) {
        t.Fatalf("an unconsumed match must clear the lookup and conflict/not-found checks, got %v", err)
    }
}
