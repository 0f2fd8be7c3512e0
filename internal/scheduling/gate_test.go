package scheduling

import "testing"

func TestDecisionReasons(t *testing.T) {
    cases := []struct {
        name   string
        d      Decision
        wantOK bool
    }{
        {"insufficient funds", Decision{Allowed: false, Reason: ReasonInsufficientFunds}, false},
        {"allowed", Decision{Allowed: true}, true},
    }
    for _, c := range cases {
        if c.d.Allowed != c.wantOK {
            t.Errorf("%s: got allowed=%v want %v", c.name, c.d.Allowed, c.wantOK)
        }
    }
}
