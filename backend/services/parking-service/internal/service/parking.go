// Package service implements the parking ledger use cases: entry and exit,
// deletion, day close and the occupancy and financial reports.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkingledger/backend/services/parking-service/internal/apperr"
	"parkingledger/backend/services/parking-service/internal/clock"
	"parkingledger/backend/services/parking-service/internal/metrics"
	"parkingledger/backend/services/parking-service/internal/models"
	"parkingledger/backend/services/parking-service/internal/repository"
)

// EntryLocker guards concurrent entries for one plate across instances.
type EntryLocker interface {
	Acquire(ctx context.Context, plate string) (func(context.Context) error, error)
}

// Dependencies wires the parking service.
type Dependencies struct {
	Store           repository.Store
	Clock           clock.Clock
	Locker          EntryLocker
	Metrics         *metrics.Ledger
	Logger          *zap.Logger
	Location        *time.Location
	DefaultRate     decimal.Decimal
	DefaultCapacity int
	DayClose        DayClosePolicy
}

// ParkingService coordinates the ledger, reports and day close.
type ParkingService struct {
	ledger   *Ledger
	reports  *Reports
	closer   *DayCloser
	vehicles repository.VehicleStore
	store    repository.Store
	locker   EntryLocker
	metrics  *metrics.Ledger
	logger   *zap.Logger
}

// NewParkingService builds the service from its dependencies.
func NewParkingService(deps Dependencies) *ParkingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &ParkingService{
		ledger:   NewLedger(deps.Store, deps.Clock, deps.DefaultRate),
		reports:  NewReports(deps.Store, deps.Store, deps.Store, deps.DefaultCapacity, logger),
		closer:   NewDayCloser(deps.Store, deps.Clock, deps.Location, deps.DayClose),
		vehicles: deps.Store,
		store:    deps.Store,
		locker:   deps.Locker,
		metrics:  m,
		logger:   logger,
	}
}

// Location is the facility time zone used for day boundaries.
func (s *ParkingService) Location() *time.Location {
	return s.closer.loc
}

// ListSessions lists sessions, optionally filtered by a status query value.
func (s *ParkingService) ListSessions(ctx context.Context, status string) ([]models.SessionView, error) {
	filter, err := ParseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	sessions, err := s.ledger.ListSessions(ctx, filter)
	if err != nil {
		s.fail("list_sessions", err)
		return nil, err
	}
	return sessions, nil
}

// Enter opens a session for the vehicle described by req. The request is
// validated before the entry lock is taken, and only storage decides a conflict.
func (s *ParkingService) Enter(ctx context.Context, req EntryRequest) (int64, error) {
	normalized, err := req.Normalized()
	if err != nil {
		s.fail("enter", err)
		s.logger.Info("entry rejected", zap.String("plate", req.Plate), zap.Error(err))
		return 0, err
	}
	req = normalized
	plate := req.Plate
	release, err := s.lockEntry(ctx, plate)
	if err != nil {
		s.fail("enter", err)
		s.logger.Info("entry rejected", zap.String("plate", plate), zap.Error(err))
		return 0, err
	}
	if release != nil {
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("entry lock release failed", zap.String("plate", plate), zap.Error(err))
			}
		}()
	}

	id, err := s.ledger.OpenSession(ctx, req)
	if err != nil {
		s.fail("enter", err)
		s.logger.Info("entry rejected", zap.String("plate", plate), zap.Error(err))
		return 0, err
	}
	s.metrics.SessionsOpened.Inc()
	s.logger.Info("session opened", zap.Int64("session_id", id), zap.String("plate", plate))
	return id, nil
}

func (s *ParkingService) lockEntry(ctx context.Context, plate string) (func(context.Context) error, error) {
	if s.locker == nil {
		return nil, nil
	}
	release, err := s.locker.Acquire(ctx, plate)
	if err == nil {
		return release, nil
	}
	if apperr.KindOf(err) == apperr.KindBusy {
		return nil, err
	}
	s.logger.Warn("entry lock unavailable, relying on storage", zap.String("plate", plate), zap.Error(err))
	return nil, nil
}

// Exit closes an active session and returns its final charge.
func (s *ParkingService) Exit(ctx context.Context, id int64) (*models.ClosedSession, error) {
	closed, err := s.ledger.CloseSession(ctx, id)
	if err != nil {
		s.fail("exit", err)
		s.logger.Info("exit rejected", zap.Int64("session_id", id), zap.Error(err))
		return nil, err
	}
	s.metrics.SessionsClosed.Inc()
	s.metrics.RevenueCollected.Add(closed.FinalAmountDue.InexactFloat64())
	s.logger.Info("session closed",
		zap.Int64("session_id", id),
		zap.String("plate", closed.Plate),
		zap.Int64("elapsed_minutes", closed.ElapsedMinutes),
		zap.String("amount", closed.FinalAmountDue.StringFixed(2)),
	)
	return closed, nil
}

// Delete removes a session in any state.
func (s *ParkingService) Delete(ctx context.Context, id int64) error {
	if err := s.ledger.DeleteSession(ctx, id); err != nil {
		s.fail("delete", err)
		s.logger.Info("delete rejected", zap.Int64("session_id", id), zap.Error(err))
		return err
	}
	s.metrics.SessionsDeleted.Inc()
	s.logger.Info("session deleted", zap.Int64("session_id", id))
	return nil
}

// CloseDay runs the day-close policy.
func (s *ParkingService) CloseDay(ctx context.Context) (DayCloseResult, error) {
	result, err := s.closer.CloseDay(ctx)
	if err != nil {
		s.fail("close_day", err)
		s.logger.Error("day close failed", zap.Error(err))
		return DayCloseResult{}, err
	}
	s.metrics.DayCloseRemoved.Add(float64(result.Removed))
	s.logger.Info("day closed",
		zap.String("policy", result.Policy),
		zap.Time("from", result.From),
		zap.Time("to", result.To),
		zap.Int64("removed", result.Removed),
	)
	return result, nil
}

// Occupancy returns the current occupancy summary.
func (s *ParkingService) Occupancy(ctx context.Context) models.Occupancy {
	summary := s.reports.OccupancySummary(ctx)
	s.metrics.Occupied.Set(float64(summary.Occupied))
	return summary
}

// Financial returns the per-day financial rows.
func (s *ParkingService) Financial(ctx context.Context) ([]models.FinancialRow, error) {
	rows, err := s.reports.FinancialSummary(ctx)
	if err != nil {
		s.fail("financial", err)
		return nil, err
	}
	return rows, nil
}

// VehicleUpdate carries the editable vehicle fields.
type VehicleUpdate struct {
	Plate string
	Model string
	Color string
	Make  string
	Year  *int
}

// ListVehicles returns the registry ordered by plate.
func (s *ParkingService) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := s.vehicles.ListVehicles(ctx)
	if err != nil {
		s.fail("list_vehicles", err)
		return nil, err
	}
	return vehicles, nil
}

// UpdateVehicle rewrites a vehicle's descriptive fields.
func (s *ParkingService) UpdateVehicle(ctx context.Context, id int64, upd VehicleUpdate) error {
	vehicle := models.Vehicle{
		ID:    id,
		Plate: repository.NormalizePlate(upd.Plate),
		Model: strings.TrimSpace(upd.Model),
		Color: strings.TrimSpace(upd.Color),
		Make:  strings.TrimSpace(upd.Make),
		Year:  upd.Year,
	}
	switch {
	case id <= 0:
		return apperr.NotFound("vehicle %d not found", id)
	case vehicle.Plate == "":
		return apperr.Validation("plate is required")
	case vehicle.Model == "":
		return apperr.Validation("model is required")
	case vehicle.Year != nil && *vehicle.Year <= 0:
		return apperr.Validation("year must be positive")
	}
	if err := s.vehicles.UpdateVehicle(ctx, vehicle); err != nil {
		s.fail("update_vehicle", err)
		return err
	}
	s.logger.Info("vehicle updated", zap.Int64("vehicle_id", id), zap.String("plate", vehicle.Plate))
	return nil
}

// DeleteVehicle removes a vehicle that has no sessions.
func (s *ParkingService) DeleteVehicle(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.NotFound("vehicle %d not found", id)
	}
	if err := s.vehicles.DeleteVehicle(ctx, id); err != nil {
		s.fail("delete_vehicle", err)
		return err
	}
	s.logger.Info("vehicle deleted", zap.Int64("vehicle_id", id))
	return nil
}

// Health reports whether storage is reachable.
func (s *ParkingService) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("storage health check failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *ParkingService) fail(operation string, err error) {
	s.metrics.Failures.WithLabelValues(operation, string(apperr.KindOf(err))).Inc()
}
