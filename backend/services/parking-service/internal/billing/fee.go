// Package billing implements the hourly parking fee.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const minutesPerHour = 60

// ElapsedMinutes returns whole minutes between entry and end, never negative.
func ElapsedMinutes(entry, end time.Time) int64 {
	minutes := int64(end.Sub(entry) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}

// BilledHours rounds elapsed minutes up to full hours with a one hour minimum.
func BilledHours(elapsedMinutes int64) int64 {
	if elapsedMinutes <= 0 {
		return 1
	}
	hours := (elapsedMinutes + minutesPerHour - 1) / minutesPerHour
	if hours < 1 {
		return 1
	}
	return hours
}

// ComputeFee returns the amount due for a stay from entry until end at hourlyRate.
func ComputeFee(entry, end time.Time, hourlyRate decimal.Decimal) decimal.Decimal {
	return hourlyRate.Mul(decimal.NewFromInt(BilledHours(ElapsedMinutes(entry, end))))
}

// Quote bundles the figures shown for a session at a point in time.
type Quote struct {
	ElapsedMinutes int64
	BilledHours    int64
	Amount         decimal.Decimal
}

// QuoteAt evaluates a stay that ends at end.
func QuoteAt(entry, end time.Time, hourlyRate decimal.Decimal) Quote {
	minutes := ElapsedMinutes(entry, end)
	hours := BilledHours(minutes)
	return Quote{
		ElapsedMinutes: minutes,
		BilledHours:    hours,
		Amount:         hourlyRate.Mul(decimal.NewFromInt(hours)),
	}
}
