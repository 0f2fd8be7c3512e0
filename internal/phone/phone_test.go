package phone

import "testing"

func TestNormalize(t *testing.T) {
    cases := []struct {
        in      string
        want    string
        wantOK  bool
    }{
        {"09123456789", "09123456789", true},
        {"+989123456789", "09123456789", true},
        {"00989123456789", "09123456789", true},
        {"9123456789", "09123456789", true},
        {"12345", "", false},
        {"071234567890", "", false},
    }

    for _, c := range cases {
        got, ok := Normalize(c.in)
        if ok != c.wantOK || got != c.want {
            t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.wantOK)
        }
    }
}

func TestNormalizeIdempotent(t *testing.T) {
    inputs := []string{"09123456789", "+989123456789", "00989123456789", "9123456789"}
    for _, in := range inputs {
        once, ok := Normalize(in)
        if !ok {
            t.Fatalf("Normalize(%q) unexpectedly invalid", in)
        }
        twice, ok := Normalize(once)
        if !ok || twice != once {
            t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", in, once, twice)
        }
    }
}

func TestNormalizePersianDigits(t *testing.T) {
    got, ok := Normalize("۰۹۱۲۳۴۵۶۷۸۹")
    if !ok || got != "09123456789" {
        t.Errorf("Normalize(persian digits) = (%q, %v), want (09123456789, true)", got, ok)
    }
}
