package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkingledger/backend/services/parking-service/internal/models"
	"parkingledger/backend/services/parking-service/internal/repository"
)

// DefaultCapacity is used when total_vagas is missing or unusable.
const DefaultCapacity = 50

type activeCounter interface {
	CountActiveSessions(ctx context.Context) (int, error)
}

// Reports derives occupancy and financial summaries at query time.
type Reports struct {
	sessions        activeCounter
	settings        repository.SettingsStore
	views           repository.ReportStore
	defaultCapacity int
	logger          *zap.Logger
}

// NewReports builds the aggregator.
func NewReports(
	sessions activeCounter,
	settings repository.SettingsStore,
	views repository.ReportStore,
	defaultCapacity int,
	logger *zap.Logger,
) *Reports {
	if defaultCapacity <= 0 {
		defaultCapacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reports{
		sessions:        sessions,
		settings:        settings,
		views:           views,
		defaultCapacity: defaultCapacity,
		logger:          logger,
	}
}

// Capacity reads total_vagas, falling back to the default.
func (r *Reports) Capacity(ctx context.Context) int {
	raw, ok, err := r.settings.GetSetting(ctx, repository.SettingTotalSpaces)
	if err != nil {
		r.logger.Warn("capacity lookup failed, using default", zap.Error(err), zap.Int("default", r.defaultCapacity))
		return r.defaultCapacity
	}
	if !ok {
		return r.defaultCapacity
	}
	total, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || total <= 0 {
		r.logger.Warn("invalid capacity setting, using default", zap.String("value", raw), zap.Int("default", r.defaultCapacity))
		return r.defaultCapacity
	}
	return total
}

// OccupancySummary never fails: a count outage is reported as zero occupied spaces.
func (r *Reports) OccupancySummary(ctx context.Context) models.Occupancy {
	total := r.Capacity(ctx)
	occupied, err := r.sessions.CountActiveSessions(ctx)
	if err != nil {
		r.logger.Warn("active session count failed, reporting empty facility", zap.Error(err))
		occupied = 0
	}
	return Occupancy(occupied, total)
}

// Occupancy computes the summary for occupied spaces out of total.
func Occupancy(occupied, total int) models.Occupancy {
	percent := decimal.Zero
	if total > 0 {
		percent = decimal.NewFromInt(int64(occupied)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(total))).
			Round(2)
	}
	return models.Occupancy{
		Occupied:         occupied,
		Available:        total - occupied,
		Total:            total,
		OccupancyPercent: percent.InexactFloat64(),
	}
}

// FinancialSummary forwards the storage maintained financial view.
func (r *Reports) FinancialSummary(ctx context.Context) ([]models.FinancialRow, error) {
	rows, err := r.views.FinancialReport(ctx)
	if err != nil {
		return nil, storageError("financial report", err)
	}
	return rows, nil
}
