package smsmatch

import (
    "testing"

    "github.com/dialerhub/core/internal/config"
)

func TestIngestResultZeroValue(t *testing.T) {
    var r IngestResult
    if r.Stored {
        t.Fatal("zero-value IngestResult must not be Stored")
    }
}

func TestProfileForNoMatch(t *testing.T) {
    cfg := config.SMSConfig{Profiles: []config.BankProfile{{Key: "bank1", Senders: []string{"10004"}}}}
    if _, ok := cfg.ProfileFor("99999"); ok {
        t.Fatal("expected no profile match for unknown sender")
    }
    if _, ok := cfg.ProfileFor("10004"); !ok {
        t.Fatal("expected profile match for configured sender")
    }
}
