package table

import (
	"strings"
	"time"
)

// dateLayouts is the ordered layout list for loose date parsing.
// ISO first; the registry exports are US clinical data, so MDY layouts are
// tried before DMY. Order matters for ambiguous values like 03/04/2024.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"20060102",
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
}

// excelEpoch is day zero of the 1900 date system (serial 1 = 1900-01-01).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate coerces a cell to a date-only time.Time.
//
// Accepted inputs:
//   - time.Time (truncated to the date)
//   - string matching any known date or timestamp layout
//   - float64/int Excel serial numbers (1900 date system)
//
// Anything else, including unparseable strings, reports ok=false. Parsing
// never raises; missing is the only failure mode.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return DateOnly(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, lay := range dateLayouts {
			if t, err := time.Parse(lay, s); err == nil {
				return DateOnly(t), true
			}
		}
		for _, lay := range timestampLayouts {
			if t, err := time.Parse(lay, s); err == nil {
				return DateOnly(t), true
			}
		}
		return time.Time{}, false
	case float64:
		return fromExcelSerial(x)
	case int:
		return fromExcelSerial(float64(x))
	case int64:
		return fromExcelSerial(float64(x))
	default:
		return time.Time{}, false
	}
}

func fromExcelSerial(serial float64) (time.Time, bool) {
	// Serial 0 and negatives are not real dates; cap at year 9999.
	if serial < 1 || serial > 2958465 {
		return time.Time{}, false
	}
	d := excelEpoch.AddDate(0, 0, int(serial))
	return d, true
}

// DateOnly strips the time component, keeping the civil date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
