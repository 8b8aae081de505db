package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"parkingledger/backend/services/parking-service/internal/apperr"
	"parkingledger/backend/services/parking-service/internal/billing"
	"parkingledger/backend/services/parking-service/internal/models"
	"parkingledger/backend/services/parking-service/internal/repository"
)

const sessionViewSelect = `
	SELECT s.id, s.vehicle_id, s.client_id, s.entry_time, s.exit_time, s.hourly_rate,
	       s.status, s.amount_charged, v.plate, v.model, v.color, COALESCE(c.name, '')
	FROM sessions s
	JOIN vehicles v ON v.id = s.vehicle_id
	LEFT JOIN clients c ON c.id = s.client_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionView(row rowScanner) (models.SessionView, error) {
	var (
		view     models.SessionView
		clientID sql.NullInt64
		entry    dbTime
		exit     dbTime
		status   string
	)
	if err := row.Scan(
		&view.ID,
		&view.VehicleID,
		&clientID,
		&entry,
		&exit,
		&view.HourlyRate,
		&status,
		&view.AmountCharged,
		&view.Plate,
		&view.Model,
		&view.Color,
		&view.ClientName,
	); err != nil {
		return models.SessionView{}, err
	}
	if clientID.Valid {
		id := clientID.Int64
		view.ClientID = &id
	}
	view.EntryTime = entry.Time
	view.ExitTime = exit.ptr()
	view.Status = models.SessionStatus(status)
	return view, nil
}

// OpenSession upserts the client and vehicle and inserts an active session in one transaction.
func (s *Store) OpenSession(ctx context.Context, in repository.EntryInput) (int64, error) {
	plate := repository.NormalizePlate(in.Plate)
	var sessionID int64
	err := s.inTx(ctx, "open session", func(tx *sql.Tx) error {
		var clientID int64
		const upsertClient = `
			INSERT INTO clients (name) VALUES (?)
			ON CONFLICT (name) DO UPDATE SET name = excluded.name
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, s.q(upsertClient), in.ClientName).Scan(&clientID); err != nil {
			return err
		}

		// The conflicting upsert takes the vehicle row lock, so concurrent
		// entries for one plate queue here until the first commits.
		var vehicleID int64
		const upsertVehicle = `
			INSERT INTO vehicles (plate, model, color, client_id) VALUES (?, ?, ?, ?)
			ON CONFLICT (plate) DO UPDATE SET
				model = excluded.model,
				color = excluded.color,
				client_id = excluded.client_id
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, s.q(upsertVehicle), plate, in.Model, in.Color, clientID).Scan(&vehicleID); err != nil {
			return err
		}

		var rawRate string
		err := tx.QueryRowContext(ctx, s.q(`SELECT value FROM settings WHERE key = ?`), repository.SettingHourlyRate).Scan(&rawRate)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		rate := repository.ParseRate(rawRate, err == nil, in.DefaultRate)

		var activeID int64
		err = tx.QueryRowContext(ctx,
			s.q(`SELECT id FROM sessions WHERE vehicle_id = ? AND status = ?`),
			vehicleID, string(models.SessionStatusActive),
		).Scan(&activeID)
		switch {
		case err == nil:
			return apperr.Conflict("vehicle %s already has active session %d", plate, activeID)
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		const insertSession = `
			INSERT INTO sessions (vehicle_id, client_id, entry_time, hourly_rate, status)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, s.q(insertSession),
			vehicleID,
			clientID,
			s.dialect.timeArg(in.EntryTime),
			rate.StringFixed(2),
			string(models.SessionStatusActive),
		).Scan(&sessionID)
		if s.dialect.isUniqueViolation(err) {
			return apperr.Conflict("vehicle %s already has an active session", plate)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return sessionID, nil
}

// CloseSession marks an active session closed at exitTime and stores the final charge.
func (s *Store) CloseSession(ctx context.Context, id int64, exitTime time.Time) (*models.SessionView, error) {
	var closed models.SessionView
	err := s.inTx(ctx, "close session", func(tx *sql.Tx) error {
		var (
			entry  dbTime
			rate   decimal.Decimal
			status string
		)
		lookup := `SELECT entry_time, hourly_rate, status FROM sessions WHERE id = ?` + s.dialect.lockRow()
		err := tx.QueryRowContext(ctx, s.q(lookup), id).Scan(&entry, &rate, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("session %d not found", id)
		}
		if err != nil {
			return err
		}
		if models.SessionStatus(status) != models.SessionStatusActive {
			return apperr.NotFound("session %d is not active", id)
		}

		exitAt := exitTime.UTC()
		if exitAt.Before(entry.Time) {
			exitAt = entry.Time
		}
		amount := billing.ComputeFee(entry.Time, exitAt, rate)

		const update = `
			UPDATE sessions
			SET status = ?, exit_time = ?, amount_charged = ?
			WHERE id = ? AND status = ?
		`
		result, err := tx.ExecContext(ctx, s.q(update),
			string(models.SessionStatusClosed),
			s.dialect.timeArg(exitAt),
			amount.StringFixed(2),
			id,
			string(models.SessionStatusActive),
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.NotFound("session %d is not active", id)
		}

		closed, err = scanSessionView(tx.QueryRowContext(ctx, s.q(sessionViewSelect+` WHERE s.id = ?`), id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

// DeleteSession removes a session regardless of its status.
func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return classify(s.dialect, "delete session", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(s.dialect, "delete session", err)
	}
	if affected == 0 {
		return apperr.NotFound("session %d not found", id)
	}
	return nil
}

// DeleteSessionsEnteredBetween removes every session with from <= entry_time < to atomically.
func (s *Store) DeleteSessionsEnteredBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var removed int64
	err := s.inTx(ctx, "delete sessions", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			s.q(`DELETE FROM sessions WHERE entry_time >= ? AND entry_time < ?`),
			s.dialect.timeArg(from),
			s.dialect.timeArg(to),
		)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListSessions returns joined session rows ordered by entry time, optionally filtered by status.
func (s *Store) ListSessions(ctx context.Context, status *models.SessionStatus) ([]models.SessionView, error) {
	query := sessionViewSelect
	var args []any
	if status != nil {
		query += ` WHERE s.status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY s.entry_time, s.id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, classify(s.dialect, "list sessions", err)
	}
	defer rows.Close()

	sessions := make([]models.SessionView, 0)
	for rows.Next() {
		view, err := scanSessionView(rows)
		if err != nil {
			return nil, classify(s.dialect, "scan session", err)
		}
		sessions = append(sessions, view)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(s.dialect, "list sessions", err)
	}
	return sessions, nil
}

// CountActiveSessions counts sessions currently occupying a space.
func (s *Store) CountActiveSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM sessions WHERE status = ?`),
		string(models.SessionStatusActive),
	).Scan(&count)
	if err != nil {
		return 0, classify(s.dialect, "count active sessions", err)
	}
	return count, nil
}
