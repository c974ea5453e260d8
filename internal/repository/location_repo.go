package repository

import (
	"raidcall/internal/database"
	"raidcall/internal/models"
)

type LocationRepository struct {
	db *database.DB
}

func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// GetByKm looks up the landmark at the given kilometre mark
func (r *LocationRepository) GetByKm(km int) (*models.LocationInfo, error) {
	query := `SELECT id, km, title, description FROM location_info WHERE km = ?`
	var loc models.LocationInfo
	err := r.db.QueryRow(query, km).Scan(&loc.ID, &loc.Km, &loc.Title, &loc.Description)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// Upsert inserts or replaces the landmark at the record's kilometre mark
func (r *LocationRepository) Upsert(loc *models.LocationInfo) error {
	query := `
		INSERT INTO location_info (km, title, description)
		VALUES (?, ?, ?)
		ON CONFLICT(km) DO UPDATE SET
			title = excluded.title,
			description = excluded.description
	`
	_, err := r.db.Exec(query, loc.Km, loc.Title, loc.Description)
	return err
}
