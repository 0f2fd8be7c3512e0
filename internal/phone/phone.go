// Package phone implements the phone-number canonicalizer (spec §4.A):
// strip everything but digits, fold country-code prefixes to the
// national form, and accept only ^09\d{9}$.
//
// Grounded on original_source/backend/app/services/phone_service.py's
// normalize_phone, with the Persian/Arabic-digit transliteration step
// from wallet_service.py's _to_ascii_digits folded in first — the
// original splits that responsibility across two files; spec §4.A
// requires the normalizer itself to transliterate digits, so both are
// unified here.
package phone

import (
    "regexp"
    "strings"
)

var nationalForm = regexp.MustCompile(`^09\d{9}$`)

var digitTranslit = strings.NewReplacer(
    "۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
    "۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
    "٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
    "٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

var nonDigit = regexp.MustCompile(`\D`)

// ToASCIIDigits transliterates Persian and Arabic-Indic digits to ASCII.
// Exported because the SMS parser (§4.C) needs the same step on text
// that isn't a phone number.
func ToASCIIDigits(s string) string {
    return digitTranslit.Replace(s)
}

// Normalize canonicalizes raw to the national form 09XXXXXXXXX.
// Returns ("", false) if raw cannot be mapped to a valid mobile number.
// Normalize(Normalize(x)) == Normalize(x) for any x that normalizes.
func Normalize(raw string) (string, bool) {
    ascii := ToASCIIDigits(raw)
    digits := nonDigit.ReplaceAllString(ascii, "")

    switch {
    case strings.HasPrefix(digits, "0098"):
        digits = "0" + digits[4:]
    case strings.HasPrefix(digits, "98"):
        digits = "0" + digits[2:]
    }

    if strings.HasPrefix(digits, "9") && len(digits) == 10 {
        digits = "0" + digits
    }

    if !nationalForm.MatchString(digits) {
        return "", false
    }
    return digits, true
}
