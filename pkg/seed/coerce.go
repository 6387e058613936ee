package seed

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rubiojr/fmcsa/pkg/records"
)

var requiredColumns = []string{records.CreatedDT, records.DataSourceModifiedDT}

var errRequired = errors.New("value required")

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// parseTime accepts the layouts above, interpreted as UTC, or an Excel
// serial date as stored in a raw workbook cell.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC().Round(time.Second), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

// parseInt accepts "1200", "1,200" and "12.0". Fractions are rejected.
func parseInt(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("not an integer")
	}
	return int64(f), nil
}

// setField coerces value into column col of r. Empty values leave nullable
// fields nil and fail required ones.
func setField(r *records.Record, col, value string) error {
	switch records.FieldKind(col) {
	case records.KindTime:
		if value == "" {
			if col == records.OutOfServiceDate {
				return nil
			}
			return errRequired
		}
		t, err := parseTime(value)
		if err != nil {
			return err
		}
		switch col {
		case records.CreatedDT:
			r.CreatedDT = t
		case records.DataSourceModifiedDT:
			r.DataSourceModifiedDT = t
		case records.OutOfServiceDate:
			r.OutOfServiceDate = &t
		}
	case records.KindInt:
		if value == "" {
			return nil
		}
		n, err := parseInt(value)
		if err != nil {
			return err
		}
		switch col {
		case records.USDOTNumber:
			r.USDOTNumber = &n
		case records.PowerUnits:
			r.PowerUnits = &n
		}
	case records.KindText:
		switch col {
		case records.EntityType:
			r.EntityType = value
		case records.OperatingStatus:
			r.OperatingStatus = value
		case records.LegalName:
			r.LegalName = value
		case records.DBAName:
			r.DBAName = value
		case records.PhysicalAddress:
			r.PhysicalAddress = value
		case records.Phone:
			r.Phone = value
		case records.MCMXFFNumber:
			r.MCMXFFNumber = value
		}
	}
	return nil
}
