package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/crestline/perf/internal/contracts"
)

// ErrEmptyValue is returned for blank cells
var ErrEmptyValue = errors.New("empty value")

// Largest serial excelize accepts (9999-12-31)
const maxExcelSerial = 2958465

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"02-Jan-2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"20060102",
}

var numberReplacer = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "",
	"%", "", " ", "", "\u00a0", "", "+", "",
)

// ParseNumber parses a numeric cell, tolerating currency symbols, percent
// signs, thousands separators, decimal commas and accounting-style parentheses
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrEmptyValue
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = normalizeSeparators(numberReplacer.Replace(s))
	if s == "" || s == "-" {
		return 0, fmt.Errorf("not a number: %q", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if negative {
		d = d.Neg()
	}

	return d.InexactFloat64(), nil
}

// normalizeSeparators rewrites s to use '.' as the only decimal separator.
// A comma is decimal when it is the last separator after dots ("1.234,5"),
// or the only comma in a dotless number whose fraction is not a three-digit
// group or whose integer part is zero ("12,5", "0,155"). Otherwise commas
// are thousands separators ("1,234", "1,234,567.8").
func normalizeSeparators(s string) string {
	comma := strings.LastIndexByte(s, ',')
	if comma < 0 {
		return s
	}
	dot := strings.LastIndexByte(s, '.')

	decimalComma := false
	switch {
	case dot >= 0:
		decimalComma = comma > dot
	case strings.Count(s, ",") == 1:
		whole := strings.TrimLeft(s[:comma], "-")
		decimalComma = len(s)-comma-1 != 3 || whole == "" || strings.Trim(whole, "0") == ""
	}

	if decimalComma {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

// ParseDate accepts a spreadsheet serial number or one of the known text layouts.
// The result is truncated to a calendar day in UTC.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyValue
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad date serial %q: %w", raw, err)
		}
		return contracts.DateOnly(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.DateOnly(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// NormalizeExposure converts an exposure to a fraction of capital.
// Anything above 1 is read as a percentage: 15.5 and 0.155 both give 0.155.
func NormalizeExposure(v float64) (float64, error) {
	if v < 0 {
		return 0, fmt.Errorf("negative exposure %v", v)
	}
	if v > 1 {
		v = v / 100
	}
	if v > 1 {
		return 0, fmt.Errorf("exposure above 100%%: %v", v*100)
	}
	return v, nil
}

// ParsePosition maps side spellings to long/short; blank means long
func ParsePosition(raw string) (contracts.PositionSide, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "long", "buy", "l", "b":
		return contracts.SideLong, nil
	case "short", "sell", "s", "sell short":
		return contracts.SideShort, nil
	default:
		return "", fmt.Errorf("unknown position %q", raw)
	}
}
