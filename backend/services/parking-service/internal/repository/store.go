// Package repository declares the storage contract of the parking ledger.
// The sqlstore subpackage implements it on PostgreSQL and SQLite.
package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"parkingledger/backend/services/parking-service/internal/models"
)

// Setting keys read from the settings table.
const (
	SettingTotalSpaces = "total_vagas"
	SettingHourlyRate  = "valor_hora"
)

// EntryInput is everything the entry transaction needs.
type EntryInput struct {
	Plate       string
	Model       string
	Color       string
	ClientName  string
	EntryTime   time.Time
	DefaultRate decimal.Decimal
}

// SessionStore owns session rows. OpenSession and CloseSession run as single
// transactions and return apperr kinds on failure.
type SessionStore interface {
	OpenSession(ctx context.Context, in EntryInput) (int64, error)
	CloseSession(ctx context.Context, id int64, exitTime time.Time) (*models.SessionView, error)
	DeleteSession(ctx context.Context, id int64) error
	DeleteSessionsEnteredBetween(ctx context.Context, from, to time.Time) (int64, error)
	ListSessions(ctx context.Context, status *models.SessionStatus) ([]models.SessionView, error)
	CountActiveSessions(ctx context.Context) (int, error)
}

// SettingsStore exposes the key/value configuration table.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// ReportStore exposes precomputed reporting views.
type ReportStore interface {
	FinancialReport(ctx context.Context) ([]models.FinancialRow, error)
}

// VehicleStore manages the vehicle registry.
type VehicleStore interface {
	FindVehicle(ctx context.Context, plate string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle models.Vehicle) error
	DeleteVehicle(ctx context.Context, id int64) error
}

// Store is the full storage collaborator.
type Store interface {
	SessionStore
	SettingsStore
	ReportStore
	VehicleStore
	Ping(ctx context.Context) error
	Close() error
}

// NormalizePlate upper-cases and trims a plate so lookups are case insensitive.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// ParseRate parses a stored hourly rate, falling back when missing or invalid.
func ParseRate(raw string, ok bool, fallback decimal.Decimal) decimal.Decimal {
	if !ok {
		return fallback
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !rate.IsPositive() {
		return fallback
	}
	return rate
}
