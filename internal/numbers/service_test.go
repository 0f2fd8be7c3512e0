package numbers

import "testing"

func TestBulkActionConstants(t *testing.T) {
    if ActionReset == ActionDelete {
        t.Fatal("ActionReset and ActionDelete must differ")
    }
}
