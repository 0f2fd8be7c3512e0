// Package smsparser implements the bank SMS body parser (spec §4.C):
// regex extraction of (amount, sign, Jalali datetime), converted to a
// normalized, UTC-timestamped record. Grounded on
// original_source/backend/app/services/wallet_service.py's
// parse_bank_sms.
package smsparser

import (
    "regexp"
    "strconv"
    "strings"
    "time"

    "github.com/dialerhub/core/internal/calendar"
    "github.com/dialerhub/core/internal/phone"
)

// amountLine matches a standalone "1,500,000+" or "50000-" line
// (multi-line aware, spec §4.C).
var amountLine = regexp.MustCompile(`(?m)^\s*([0-9][0-9,]{2,})\s*([+-])\s*$`)

// dateTime matches "YYYY/M[M]/D[D]-H[H]:M[M]" with non-zero-padded
// components accepted.
var dateTime = regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})-(\d{1,2}):(\d{1,2})`)

// Parsed is the structured result of a successful parse.
type Parsed struct {
    AmountToman   int64
    IsCredit      bool
    TransactionAt time.Time // UTC
}

// Parse extracts (amount, sign, Jalali datetime) from a raw SMS body.
// Returns (nil, "<reason>") if the body does not contain a recognizable
// amount line and datetime, mirroring parse_bank_sms's (None, error) shape.
func Parse(body string) (*Parsed, string) {
    text := phone.ToASCIIDigits(body)

    amountMatch := amountLine.FindStringSubmatch(text)
    if amountMatch == nil {
        return nil, "no amount line"
    }

    amountStr := strings.ReplaceAll(amountMatch[1], ",", "")
    amountRial, err := strconv.ParseInt(amountStr, 10, 64)
    if err != nil {
        return nil, "invalid amount"
    }
    amountToman := amountRial / 10
    isCredit := amountMatch[2] == "+"

    dtMatch := dateTime.FindStringSubmatch(text)
    if dtMatch == nil {
        return nil, "no datetime"
    }

    jy, err1 := strconv.Atoi(dtMatch[1])
    jm, err2 := strconv.Atoi(dtMatch[2])
    jd, err3 := strconv.Atoi(dtMatch[3])
    hh, err4 := strconv.Atoi(dtMatch[4])
    mm, err5 := strconv.Atoi(dtMatch[5])
    if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
        return nil, "invalid datetime"
    }

    transactionAt := calendar.BuildUTCFromJalaliMinute(jy, jm, jd, hh, mm)

    return &Parsed{
        AmountToman:   amountToman,
        IsCredit:      isCredit,
        TransactionAt: transactionAt,
    }, ""
}

// ShouldStore reports whether a parse result should be persisted for
// future wallet matching: only credit parses are kept (spec §4.C).
func ShouldStore(p *Parsed) bool {
    return p != nil && p.IsCredit
}

// StripCallbackSuffix removes the trailing ";http…" callback URL some
// providers append to the webhook body (spec §4.H) before parsing.
func StripCallbackSuffix(body string) string {
    if idx := strings.Index(body, ";http"); idx >= 0 {
        return body[:idx]
    }
    return body
}
