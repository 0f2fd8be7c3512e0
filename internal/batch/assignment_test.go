package batch

import "testing"

func TestClamp(t *testing.T) {
    cases := []struct {
        v, lo, hi, want int
    }{
        {5, 0, 10, 5},
        {-1, 0, 10, 0},
        {20, 0, 10, 10},
        {0, 0, 0, 0},
    }
    for _, c := range cases {
        if got := clamp(c.v, c.lo, c.hi); got != c.want {
            t.Errorf("clamp(%d, %d, %d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
        }
    }
}

func TestNewBatchIDIsHex128(t *testing.T) {
    id, err := newBatchID()
    if err != nil {
        t.Fatalf("newBatchID: %v", err)
    }
    if len(id) != 32 {
        t.Fatalf("expected 32 hex chars (128 bits), got %d: %q", len(id), id)
    }
    second, err := newBatchID()
    if err != nil {
        t.Fatalf("newBatchID: %v", err)
    }
    if id == second {
        t.Fatal("expected distinct batch ids across calls")
    }
}
