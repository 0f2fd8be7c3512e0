package calendar

import (
    "testing"
    "time"
)

func TestNowruzCorrespondence(t *testing.T) {
    jy, jm, jd := GregorianToJalali(2024, time.March, 20)
    if jy != 1403 || jm != 1 || jd != 1 {
        t.Errorf("2024-03-20 = Jalali %d/%d/%d, want 1403/1/1", jy, jm, jd)
    }

    gy, gm, gd := JalaliToGregorian(1403, 1, 1)
    if gy != 2024 || gm != time.March || gd != 20 {
        t.Errorf("Jalali 1403/1/1 = Gregorian %d-%s-%d, want 2024-March-20", gy, gm, gd)
    }
}

func TestRoundTripIdentityOnHolidaySet(t *testing.T) {
    holidays := [][2]int{{1, 1}, {1, 2}, {1, 3}, {1, 4}, {1, 12}, {1, 13}, {3, 14}, {3, 15}, {11, 22}, {12, 29}}
    for jy := 1400; jy < 1410; jy++ {
        for _, md := range holidays {
            gy, gm, gd := JalaliToGregorian(jy, md[0], md[1])
            backJy, backJm, backJd := GregorianToJalali(gy, gm, gd)
            if backJy != jy || backJm != md[0] || backJd != md[1] {
                t.Errorf("round-trip failed for %d/%d/%d: got %d/%d/%d", jy, md[0], md[1], backJy, backJm, backJd)
            }
        }
    }
}

func TestIsHoliday(t *testing.T) {
    gy, gm, gd := JalaliToGregorian(1403, 1, 1)
    tm := time.Date(gy, gm, gd, 12, 0, 0, 0, Location)
    if !IsHoliday(tm) {
        t.Errorf("expected Nowruz (1403/1/1) to be a holiday")
    }

    gy2, gm2, gd2 := JalaliToGregorian(1403, 6, 1)
    tm2 := time.Date(gy2, gm2, gd2, 12, 0, 0, 0, Location)
    if IsHoliday(tm2) {
        t.Errorf("did not expect 1403/6/1 to be a holiday")
    }
}

func TestIranWeekday(t *testing.T) {
    // 2024-03-20 is a Wednesday; Iran convention Sat=0..Fri=6 => Wed=4.
    tm := time.Date(2024, time.March, 20, 10, 0, 0, 0, Location)
    if got := IranWeekday(tm); got != 4 {
        t.Errorf("IranWeekday(2024-03-20) = %d, want 4", got)
    }
}

func TestBuildUTCFromJalaliMinute(t *testing.T) {
    // 1404/12/03-09:47 Tehran wall clock.
    got := BuildUTCFromJalaliMinute(1404, 12, 3, 9, 47)
    gy, gm, gd := JalaliToGregorian(1404, 12, 3)
    want := time.Date(gy, gm, gd, 9, 47, 0, 0, Location).UTC()
    if !got.Equal(want) {
        t.Errorf("BuildUTCFromJalaliMinute = %v, want %v", got, want)
    }
}
