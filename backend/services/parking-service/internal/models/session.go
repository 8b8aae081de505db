package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a parking session.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == SessionStatusActive || s == SessionStatusClosed
}

// Session is one vehicle's stay from entry to exit.
type Session struct {
	ID            int64
	VehicleID     int64
	ClientID      *int64
	EntryTime     time.Time
	ExitTime      *time.Time
	HourlyRate    decimal.Decimal
	Status        SessionStatus
	AmountCharged decimal.NullDecimal
}

// BillingEnd returns the instant billing is evaluated against.
func (s Session) BillingEnd(now time.Time) time.Time {
	if s.ExitTime != nil {
		return *s.ExitTime
	}
	return now
}

// SessionView is a session joined with vehicle and client details and the
// fee figures evaluated at read time.
type SessionView struct {
	Session
	Plate          string
	Model          string
	Color          string
	ClientName     string
	ElapsedMinutes int64
	AmountDue      decimal.Decimal
}
