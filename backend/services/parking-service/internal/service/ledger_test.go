package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"parkingledger/backend/services/parking-service/internal/apperr"
	"parkingledger/backend/services/parking-service/internal/clock"
	"parkingledger/backend/services/parking-service/internal/models"
	"parkingledger/backend/services/parking-service/internal/repository"
)

type failingSessionStore struct {
	repository.SessionStore
	err error
}

func (s failingSessionStore) OpenSession(context.Context, repository.EntryInput) (int64, error) {
	return 0, s.err
}

func (s failingSessionStore) CloseSession(context.Context, int64, time.Time) (*models.SessionView, error) {
	return nil, s.err
}

func TestLedgerKeepsStoreErrorMessage(t *testing.T) {
	storeErr := apperr.Wrap(apperr.KindStorageUnavailable, "open session", errors.New("disk I/O error"))
	ledger := NewLedger(failingSessionStore{err: storeErr}, clock.NewFixed(noon), decimal.NewFromInt(10))

	_, err := ledger.OpenSession(context.Background(), alice("ABC1234"))
	if !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	if got := err.Error(); got != "open session: disk I/O error" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestLedgerWrapsForeignStoreErrorOnce(t *testing.T) {
	ledger := NewLedger(failingSessionStore{err: errors.New("connection reset")}, clock.NewFixed(noon), decimal.NewFromInt(10))

	_, err := ledger.CloseSession(context.Background(), 7)
	if apperr.KindOf(err) != apperr.KindStorageUnavailable {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	if got := err.Error(); got != "close session: connection reset" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestLedgerPassesNotFoundThrough(t *testing.T) {
	notFound := apperr.NotFound("session 7 not found")
	ledger := NewLedger(failingSessionStore{err: notFound}, clock.NewFixed(noon), decimal.NewFromInt(10))

	_, err := ledger.CloseSession(context.Background(), 7)
	if !errors.Is(err, apperr.ErrNotFound) || err.Error() != "session 7 not found" {
		t.Fatalf("expected untouched not found, got %v", err)
	}
}

func TestParseStatusFilterAcceptsLabels(t *testing.T) {
	cases := map[string]models.SessionStatus{
		"ativo":      models.SessionStatusActive,
		"Finalizado": models.SessionStatusClosed,
		"active":     models.SessionStatusActive,
		"closed":     models.SessionStatusClosed,
	}
	for raw, want := range cases {
		got, err := ParseStatusFilter(raw)
		if err != nil || got == nil || *got != want {
			t.Fatalf("ParseStatusFilter(%q) = %v, %v; want %s", raw, got, err, want)
		}
	}
	if got, err := ParseStatusFilter(""); err != nil || got != nil {
		t.Fatalf("expected nil filter for empty value, got %v %v", got, err)
	}
}
