package repository

import (
	"time"

	"raidcall/internal/database"
	"raidcall/internal/models"
)

type RaidRepository struct {
	db *database.DB
}

func NewRaidRepository(db *database.DB) *RaidRepository {
	return &RaidRepository{db: db}
}

const raidColumns = "id, name, squad, start_time, created_at, status, location_id"

func scanRaid(row interface{ Scan(...interface{}) error }) (*models.RaidEvent, error) {
	var raid models.RaidEvent
	err := row.Scan(&raid.ID, &raid.Name, &raid.Squad, &raid.StartTime, &raid.CreatedAt, &raid.Status, &raid.LocationID)
	if err != nil {
		return nil, err
	}
	return &raid, nil
}

// Create persists a new raid with status active
func (r *RaidRepository) Create(name, squad string, startTime time.Time, locationID *int64) (*models.RaidEvent, error) {
	query := `INSERT INTO raid_events (name, squad, start_time, status, location_id) VALUES (?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(query, name, squad, startTime, models.RaidStatusActive, locationID)
	if err != nil {
		return nil, err
	}
	return &models.RaidEvent{
		ID:         id,
		Name:       name,
		Squad:      squad,
		StartTime:  startTime,
		CreatedAt:  time.Now(),
		Status:     models.RaidStatusActive,
		LocationID: locationID,
	}, nil
}

// GetByID retrieves a raid by its identifier
func (r *RaidRepository) GetByID(id int64) (*models.RaidEvent, error) {
	query := "SELECT " + raidColumns + " FROM raid_events WHERE id = ?"
	return scanRaid(r.db.QueryRow(query, id))
}

// Delete removes a raid. Participations, reminders, pin data and send logs
// cascade with it.
func (r *RaidRepository) Delete(id int64) error {
	_, err := r.db.Exec("DELETE FROM raid_events WHERE id = ?", id)
	return err
}

// SetStatus updates a raid's lifecycle status
func (r *RaidRepository) SetStatus(id int64, status string) error {
	_, err := r.db.Exec("UPDATE raid_events SET status = ? WHERE id = ?", status, id)
	return err
}

// ActiveOrdered retrieves all active raids, soonest first
func (r *RaidRepository) ActiveOrdered() ([]models.RaidEvent, error) {
	query := "SELECT " + raidColumns + " FROM raid_events WHERE status = ? ORDER BY start_time ASC"
	return r.queryRaids(query, models.RaidStatusActive)
}

// Recent retrieves the most recently scheduled raids regardless of status
func (r *RaidRepository) Recent(limit int) ([]models.RaidEvent, error) {
	query := "SELECT " + raidColumns + " FROM raid_events ORDER BY start_time DESC LIMIT ?"
	return r.queryRaids(query, limit)
}

// Upcoming retrieves active raids starting at or after now, soonest first
func (r *RaidRepository) Upcoming(now time.Time, limit int) ([]models.RaidEvent, error) {
	query := "SELECT " + raidColumns + ` FROM raid_events
		WHERE start_time >= ? AND status = ?
		ORDER BY start_time ASC LIMIT ?`
	return r.queryRaids(query, now, models.RaidStatusActive, limit)
}

// ActiveStartingBetween retrieves active raids whose start time falls inside
// the inclusive [from, to] window. Used by the reminder sweeps.
func (r *RaidRepository) ActiveStartingBetween(from, to time.Time) ([]models.RaidEvent, error) {
	query := "SELECT " + raidColumns + ` FROM raid_events
		WHERE start_time BETWEEN ? AND ? AND status = ?
		ORDER BY start_time ASC`
	return r.queryRaids(query, from, to, models.RaidStatusActive)
}

// ExpireStartedBefore finishes every active raid that started before cutoff
// and returns how many were affected
func (r *RaidRepository) ExpireStartedBefore(cutoff time.Time) (int64, error) {
	query := `UPDATE raid_events SET status = ? WHERE status = ? AND start_time < ?`
	result, err := r.db.Exec(query, models.RaidStatusFinished, models.RaidStatusActive, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *RaidRepository) queryRaids(query string, args ...interface{}) ([]models.RaidEvent, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raids []models.RaidEvent
	for rows.Next() {
		raid, err := scanRaid(rows)
		if err != nil {
			return nil, err
		}
		raids = append(raids, *raid)
	}
	return raids, rows.Err()
}
