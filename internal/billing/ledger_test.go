package billing

import "testing"

func TestJalaliMinuteToUTC(t *testing.T) {
    got := jalaliMinuteToUTC(1404, 12, 3, 9, 47)
    if got.IsZero() {
        t.Fatal("expected non-zero time")
    }
    if got.Location().String() != "UTC" {
        t.Errorf("expected UTC location, got %s", got.Location())
    }
}

func TestAdjustOpConstants(t *testing.T) {
    if OpAdd == OpSubtract {
        t.Fatal("OpAdd and OpSubtract must differ")
    }
}
