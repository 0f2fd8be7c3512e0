package smsparser

import "testing"

func TestParseCredit(t *testing.T) {
    body := "1,500,000+\n1404/12/03-09:47"
    p, reason := Parse(body)
    if reason != "" {
        t.Fatalf("Parse returned error %q", reason)
    }
    if !p.IsCredit {
        t.Errorf("expected credit parse")
    }
    if p.AmountToman != 150000 {
        t.Errorf("AmountToman = %d, want 150000", p.AmountToman)
    }
}

func TestParseDebit(t *testing.T) {
    p, reason := Parse("50,000-\n1404/12/03-09:47")
    if reason != "" {
        t.Fatalf("Parse returned error %q", reason)
    }
    if p.IsCredit {
        t.Errorf("expected debit parse")
    }
    if ShouldStore(p) {
        t.Errorf("debit parses must not be stored")
    }
}

func TestParseNonZeroPaddedDateTime(t *testing.T) {
    p, reason := Parse("2,000+\n1404/3/5-9:7")
    if reason != "" {
        t.Fatalf("Parse returned error %q", reason)
    }
    if p.AmountToman != 200 {
        t.Errorf("AmountToman = %d, want 200", p.AmountToman)
    }
}

func TestParseNoAmountLine(t *testing.T) {
    _, reason := Parse("hello world, no amount here")
    if reason == "" {
        t.Errorf("expected parse failure")
    }
}

func TestParsePersianDigits(t *testing.T) {
    p, reason := Parse("۱۵۰۰۰۰+\n۱۴۰۴/۱۲/۰۳-۰۹:۴۷")
    if reason != "" {
        t.Fatalf("Parse returned error %q", reason)
    }
    if p.AmountToman != 15000 {
        t.Errorf("AmountToman = %d, want 15000", p.AmountToman)
    }
}

func TestStripCallbackSuffix(t *testing.T) {
    got := StripCallbackSuffix("1,500,000+\n1404/12/03-09:47;http://example.com/cb")
    want := "1,500,000+\n1404/12/03-09:47"
    if got != want {
        t.Errorf("StripCallbackSuffix = %q, want %q", got, want)
    }
}
