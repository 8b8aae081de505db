package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"parkingledger/backend/services/parking-service/internal/apperr"
	"parkingledger/backend/services/parking-service/internal/billing"
	"parkingledger/backend/services/parking-service/internal/clock"
	"parkingledger/backend/services/parking-service/internal/models"
	"parkingledger/backend/services/parking-service/internal/repository"
)

// EntryRequest is an operator's entry registration.
type EntryRequest struct {
	Plate      string
	Model      string
	Color      string
	ClientName string
}

// Ledger owns the session state machine: active --close--> closed, delete from either.
type Ledger struct {
	store       repository.SessionStore
	clock       clock.Clock
	defaultRate decimal.Decimal
}

// NewLedger builds a ledger. defaultRate applies when no valor_hora setting exists.
func NewLedger(store repository.SessionStore, clk clock.Clock, defaultRate decimal.Decimal) *Ledger {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Ledger{store: store, clock: clk, defaultRate: defaultRate}
}

// Normalized trims every field, upper-cases the plate and checks the
// required ones.
func (r EntryRequest) Normalized() (EntryRequest, error) {
	out := EntryRequest{
		Plate:      repository.NormalizePlate(r.Plate),
		Model:      strings.TrimSpace(r.Model),
		Color:      strings.TrimSpace(r.Color),
		ClientName: strings.TrimSpace(r.ClientName),
	}
	switch {
	case out.Plate == "":
		return EntryRequest{}, apperr.Validation("plate is required")
	case out.Model == "":
		return EntryRequest{}, apperr.Validation("model is required")
	case out.ClientName == "":
		return EntryRequest{}, apperr.Validation("client is required")
	}
	return out, nil
}

// statusAliases maps the dashboard's labels onto stored statuses.
var statusAliases = map[string]models.SessionStatus{
	"ativo":      models.SessionStatusActive,
	"finalizado": models.SessionStatusClosed,
}

// ParseStatusFilter converts a query value into an optional status filter.
func ParseStatusFilter(raw string) (*models.SessionStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}
	status, ok := statusAliases[raw]
	if !ok {
		status = models.SessionStatus(raw)
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown session status %q", raw)
	}
	return &status, nil
}

// storageError keeps typed errors from the store as they are and marks
// anything else as a storage failure of op.
func storageError(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Wrap(apperr.KindStorageUnavailable, op, err)
}

// ListSessions returns sessions with elapsed minutes and amount due evaluated now.
func (l *Ledger) ListSessions(ctx context.Context, status *models.SessionStatus) ([]models.SessionView, error) {
	sessions, err := l.store.ListSessions(ctx, status)
	if err != nil {
		return nil, storageError("list sessions", err)
	}
	now := l.clock.Now()
	for i := range sessions {
		project(&sessions[i], now)
	}
	return sessions, nil
}

// OpenSession validates the request and opens an active session.
func (l *Ledger) OpenSession(ctx context.Context, req EntryRequest) (int64, error) {
	req, err := req.Normalized()
	if err != nil {
		return 0, err
	}
	id, err := l.store.OpenSession(ctx, repository.EntryInput{
		Plate:       req.Plate,
		Model:       req.Model,
		Color:       req.Color,
		ClientName:  req.ClientName,
		EntryTime:   l.clock.Now(),
		DefaultRate: l.defaultRate,
	})
	if err != nil {
		return 0, storageError("open session", err)
	}
	return id, nil
}

// CloseSession closes an active session now and returns the final charge.
func (l *Ledger) CloseSession(ctx context.Context, id int64) (*models.ClosedSession, error) {
	if id <= 0 {
		return nil, apperr.NotFound("session %d not found", id)
	}
	view, err := l.store.CloseSession(ctx, id, l.clock.Now())
	if err != nil {
		return nil, storageError("close session", err)
	}
	project(view, l.clock.Now())

	final := view.AmountDue
	if view.AmountCharged.Valid {
		final = view.AmountCharged.Decimal
	}
	return &models.ClosedSession{SessionView: *view, FinalAmountDue: final}, nil
}

// DeleteSession removes a session in any state.
func (l *Ledger) DeleteSession(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.NotFound("session %d not found", id)
	}
	if err := l.store.DeleteSession(ctx, id); err != nil {
		return storageError("delete session", err)
	}
	return nil
}

func project(view *models.SessionView, now time.Time) {
	quote := billing.QuoteAt(view.EntryTime, view.BillingEnd(now), view.HourlyRate)
	view.ElapsedMinutes = quote.ElapsedMinutes
	view.AmountDue = quote.Amount
}
