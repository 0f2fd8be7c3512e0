// Package calendar implements the Tehran-localized wall clock, the
// Gregorian<->Jalali conversion, the fixed Jalali holiday set, and the
// Sat=0..Fri=6 weekday mapping (spec §4.B).
//
// The Gregorian<->Jalali conversion itself is not grounded on the
// teacher (a telephony router has no calendar code) nor on any
// third-party library in the retrieval pack — no Jalali/Persian
// calendar package appears anywhere in _examples, so this is a
// from-scratch port of the public-domain jalaali algorithm (the same
// julian-day-number arithmetic jdatetime uses), not a stdlib fallback
// chosen over an available dependency. See DESIGN.md.
package calendar

import (
    "fmt"
    "time"
)

// Location is the fixed configured timezone, default Asia/Tehran.
var Location = func() *time.Location {
    loc, err := time.LoadLocation("Asia/Tehran")
    if err != nil {
        return time.FixedZone("Asia/Tehran", 3*3600+1800) // +03:30 fallback
    }
    return loc
}()

// SetLocation overrides the wall-clock zone (spec §6 config key TIMEZONE).
func SetLocation(name string) error {
    loc, err := time.LoadLocation(name)
    if err != nil {
        return fmt.Errorf("load timezone %q: %w", name, err)
    }
    Location = loc
    return nil
}

// Now returns the current instant in the configured wall-clock zone.
func Now() time.Time {
    return time.Now().In(Location)
}

// IranWeekday maps a time.Time's weekday to the Iran convention: 0=Sat..6=Fri.
func IranWeekday(t time.Time) int {
    return (int(t.In(Location).Weekday()) + 1) % 7
}

// fixedJalaliHolidays is the shared nationwide holiday set (spec §4.B).
var fixedJalaliHolidays = map[[2]int]bool{
    {1, 1}: true, {1, 2}: true, {1, 3}: true, {1, 4}: true,
    {1, 12}: true, {1, 13}: true,
    {3, 14}: true, {3, 15}: true,
    {11, 22}: true,
    {12, 29}: true,
}

// IsHoliday reports whether t's Jalali (month, day), evaluated in the
// configured zone, is a fixed Iran public holiday.
func IsHoliday(t time.Time) bool {
    jy, jm, jd := GregorianToJalali(t.In(Location).Date())
    _ = jy
    return fixedJalaliHolidays[[2]int{jm, jd}]
}

// JalaliDate is a calendar date in the Jalali (Solar Hijri) calendar.
type JalaliDate struct {
    Year, Month, Day int
}

func div(a, b int) int { return a / b }
func mod(a, b int) int { return a % b }

var breaks = []int{-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
    1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178}

type jalCalResult struct {
    leap  int
    gy    int
    march int
}

func jalCal(jy int) jalCalResult {
    bl := len(breaks)
    gy := jy + 621
    leapJ := -14
    jp := breaks[0]
    var jm, jump int

    i := 1
    for ; i < bl; i++ {
        jm = breaks[i]
        jump = jm - jp
        if jy < jm {
            break
        }
        leapJ = leapJ + div(jump, 33)*8 + div(mod(jump, 33), 4)
        jp = jm
    }
    n := jy - jp

    leapJ = leapJ + div(n, 33)*8 + div(mod(n, 33)+3, 4)
    if mod(jump, 33) == 4 && jump-n == 4 {
        leapJ++
    }

    leapG := div(gy, 4) - div((div(gy, 100)+1)*3, 4) - 150
    march := 20 + leapJ - leapG

    if jump-n < 6 {
        n = n - jump + div(jump+4, 33)*33
    }
    leap := mod(mod(n+1, 33)-1, 4)
    if leap == -1 {
        leap = 4
    }

    return jalCalResult{leap: leap, gy: gy, march: march}
}

func g2d(gy, gm, gd int) int {
    d := div((gy+div(gm-8, 6)+100100)*1461, 4) +
        div(153*mod(gm+9, 12)+2, 5) +
        gd - 34840408
    d = d - div(div(gy+100100+div(gm-8, 6), 100)*3, 4) + 752
    return d
}

func d2g(jdn int) (gy, gm, gd int) {
    j := 4*jdn + 139361631
    j = j + div(div(4*jdn+183187720, 146097)*3, 4)*4 - 3908
    i := div(mod(j, 1461), 4)*5 + 308
    gd = div(mod(i, 153), 5) + 1
    gm = mod(div(i, 153), 12) + 1
    gy = div(j, 1461) - 100100 + div(8-gm, 6)
    return
}

func j2d(jy, jm, jd int) int {
    r := jalCal(jy)
    return g2d(r.gy, 3, r.march) + (jm-1)*31 - div(jm, 7)*(jm-7) + jd - 1
}

func d2j(jdn int) JalaliDate {
    gy, _, _ := d2g(jdn)
    jy := gy - 621
    r := jalCal(jy)
    jdn1f := g2d(r.gy, 3, r.march)

    k := jdn - jdn1f
    var jm, jd int
    if k >= 0 {
        if k <= 185 {
            jm = 1 + div(k, 31)
            jd = mod(k, 31) + 1
            return JalaliDate{Year: jy, Month: jm, Day: jd}
        }
        k -= 186
    } else {
        jy--
        k += 179
        if r.leap == 1 {
            k++
        }
    }
    jm = 7 + div(k, 30)
    jd = mod(k, 30) + 1
    return JalaliDate{Year: jy, Month: jm, Day: jd}
}

// GregorianToJalali converts a Gregorian calendar date to Jalali.
func GregorianToJalali(gy int, gm time.Month, gd int) (jy, jm, jd int) {
    jdn := g2d(gy, int(gm), gd)
    j := d2j(jdn)
    return j.Year, j.Month, j.Day
}

// JalaliToGregorian converts a Jalali calendar date to Gregorian.
func JalaliToGregorian(jy, jm, jd int) (gy int, gm time.Month, gd int) {
    jdn := j2d(jy, jm, jd)
    y, m, d := d2g(jdn)
    return y, time.Month(m), d
}

// BuildUTCFromJalaliMinute interprets the Jalali date (jy, jm, jd) at
// hour:minute as Tehran-local wall-clock time and converts it to UTC
// (spec §4.B, §4.C).
func BuildUTCFromJalaliMinute(jy, jm, jd, hour, minute int) time.Time {
    gy, gm, gd := JalaliToGregorian(jy, jm, jd)
    local := time.Date(gy, gm, gd, hour, minute, 0, 0, Location)
    return local.UTC()
}
