package domain

import (
	"fmt"
	"time"
)

// Opening bid sentinels on the supply side. Rows at exactly these prices
// are "open" offers and carry no information about the curve shape.
const (
	SupplySentinelPriceLow  = 3000.0
	SupplySentinelPriceHigh = 4000.0
)

// BidRecord represents one submitted bid for a (date, hour) auction.
// Immutable once loaded.
type BidRecord struct {
	Date              time.Time // calendar day, truncated to midnight UTC
	Hour              int       // delivery hour 1..24
	Price             float64   // bid price (currency/MWh)
	Quantity          float64   // bid volume (MWh), nonnegative
	ZoneClearingPrice float64   // realized clearing price shared by the whole (date, hour) group
}

// Key returns the (date, hour) unit the record belongs to.
func (r *BidRecord) Key() UnitKey {
	return NewUnitKey(r.Date, r.Hour)
}

// UnitKey identifies one auction unit: a calendar day and a delivery hour.
type UnitKey struct {
	Date time.Time // midnight UTC
	Hour int       // 1..24
}

// NewUnitKey builds a key with the date truncated to midnight UTC.
func NewUnitKey(date time.Time, hour int) UnitKey {
	y, m, d := date.Date()
	return UnitKey{
		Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Hour: hour,
	}
}

// Year returns the calendar year.
func (k UnitKey) Year() int { return k.Date.Year() }

// Month returns the calendar month (1..12).
func (k UnitKey) Month() int { return int(k.Date.Month()) }

// Day returns the day of month (1..31).
func (k UnitKey) Day() int { return k.Date.Day() }

// Weekday returns the day of week (0 = Sunday).
func (k UnitKey) Weekday() int { return int(k.Date.Weekday()) }

// String formats the key as YYYY-MM-DD/HH.
func (k UnitKey) String() string {
	return fmt.Sprintf("%s/%02d", k.Date.Format("2006-01-02"), k.Hour)
}

// Before orders keys by (date, hour).
func (k UnitKey) Before(other UnitKey) bool {
	if !k.Date.Equal(other.Date) {
		return k.Date.Before(other.Date)
	}
	return k.Hour < other.Hour
}

// IsValidHour checks the delivery hour range.
func IsValidHour(hour int) bool {
	return hour >= 1 && hour <= 24
}
