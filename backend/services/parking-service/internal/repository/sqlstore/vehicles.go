package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"parkingledger/backend/services/parking-service/internal/apperr"
	"parkingledger/backend/services/parking-service/internal/models"
	"parkingledger/backend/services/parking-service/internal/repository"
)

const vehicleSelect = `
	SELECT v.id, v.plate, v.model, v.color, v.make, v.year, v.client_id, COALESCE(c.name, '')
	FROM vehicles v
	LEFT JOIN clients c ON c.id = v.client_id
`

func scanVehicle(row rowScanner) (models.Vehicle, error) {
	var (
		v        models.Vehicle
		year     sql.NullInt64
		clientID sql.NullInt64
	)
	if err := row.Scan(&v.ID, &v.Plate, &v.Model, &v.Color, &v.Make, &year, &clientID, &v.ClientName); err != nil {
		return models.Vehicle{}, err
	}
	if year.Valid {
		y := int(year.Int64)
		v.Year = &y
	}
	if clientID.Valid {
		id := clientID.Int64
		v.ClientID = &id
	}
	return v, nil
}

// FindVehicle looks a vehicle up by plate.
func (s *Store) FindVehicle(ctx context.Context, plate string) (*models.Vehicle, error) {
	plate = repository.NormalizePlate(plate)
	v, err := scanVehicle(s.db.QueryRowContext(ctx, s.q(vehicleSelect+` WHERE v.plate = ?`), plate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("vehicle %s not found", plate)
	}
	if err != nil {
		return nil, classify(s.dialect, "find vehicle", err)
	}
	return &v, nil
}

// ListVehicles returns every vehicle ordered by plate.
func (s *Store) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, s.q(vehicleSelect+` ORDER BY v.plate`))
	if err != nil {
		return nil, classify(s.dialect, "list vehicles", err)
	}
	defer rows.Close()

	vehicles := make([]models.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, classify(s.dialect, "scan vehicle", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(s.dialect, "list vehicles", err)
	}
	return vehicles, nil
}

// UpdateVehicle rewrites the descriptive fields of a vehicle.
func (s *Store) UpdateVehicle(ctx context.Context, vehicle models.Vehicle) error {
	const query = `
		UPDATE vehicles
		SET plate = ?, model = ?, color = ?, make = ?, year = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, s.q(query),
		repository.NormalizePlate(vehicle.Plate),
		strings.TrimSpace(vehicle.Model),
		strings.TrimSpace(vehicle.Color),
		strings.TrimSpace(vehicle.Make),
		nullInt(vehicle.Year),
		vehicle.ID,
	)
	if err != nil {
		return classify(s.dialect, "update vehicle", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(s.dialect, "update vehicle", err)
	}
	if affected == 0 {
		return apperr.NotFound("vehicle %d not found", vehicle.ID)
	}
	return nil
}

// DeleteVehicle removes a vehicle. Vehicles still referenced by sessions are
// rejected by the foreign key and reported as a conflict.
func (s *Store) DeleteVehicle(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM vehicles WHERE id = ?`), id)
	if err != nil {
		return classify(s.dialect, "delete vehicle", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return classify(s.dialect, "delete vehicle", err)
	}
	if affected == 0 {
		return apperr.NotFound("vehicle %d not found", id)
	}
	return nil
}
