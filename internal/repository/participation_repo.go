package repository

import (
	"time"

	"raidcall/internal/database"
	"raidcall/internal/models"
)

type ParticipationRepository struct {
	db *database.DB
}

func NewParticipationRepository(db *database.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Upsert inserts an RSVP or updates the existing row's status and timestamp.
// At most one row per (raid, user) exists.
func (r *ParticipationRepository) Upsert(raidID, userID int64, status string, now time.Time) error {
	query := `
		INSERT INTO raid_participation (raid_id, user_id, status, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(raid_id, user_id) DO UPDATE SET
			status = excluded.status,
			joined_at = excluded.joined_at
	`
	_, err := r.db.Exec(query, raidID, userID, status, now)
	return err
}

// Get retrieves one user's RSVP for one raid
func (r *ParticipationRepository) Get(raidID, userID int64) (*models.RaidParticipation, error) {
	query := `SELECT id, raid_id, user_id, status, joined_at FROM raid_participation WHERE raid_id = ? AND user_id = ?`
	var p models.RaidParticipation
	err := r.db.QueryRow(query, raidID, userID).Scan(&p.ID, &p.RaidID, &p.UserID, &p.Status, &p.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ByRaid retrieves all RSVPs for a raid with player nicknames
func (r *ParticipationRepository) ByRaid(raidID int64) ([]models.RaidParticipation, error) {
	query := `
		SELECT p.id, p.raid_id, p.user_id, p.status, p.joined_at, u.nickname
		FROM raid_participation p
		JOIN users u ON u.id = p.user_id
		WHERE p.raid_id = ?
		ORDER BY p.joined_at ASC
	`
	rows, err := r.db.Query(query, raidID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []models.RaidParticipation
	for rows.Next() {
		var p models.RaidParticipation
		if err := rows.Scan(&p.ID, &p.RaidID, &p.UserID, &p.Status, &p.JoinedAt, &p.Nickname); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// UsersByRaidStatus retrieves the players holding an RSVP with the given
// status for a raid
func (r *ParticipationRepository) UsersByRaidStatus(raidID int64, status string) ([]models.User, error) {
	query := `
		SELECT u.id, u.game_id, u.nickname, u.faction, u.squad, u.role, u.email, u.is_admin, u.created_at
		FROM users u
		JOIN raid_participation p ON p.user_id = u.id
		WHERE p.raid_id = ? AND p.status = ?
		ORDER BY p.joined_at ASC
	`
	rows, err := r.db.Query(query, raidID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// PromoteFinished moves every signed_up RSVP whose raid has finished to
// attended and returns how many rows changed. Declined RSVPs are untouched.
func (r *ParticipationRepository) PromoteFinished() (int64, error) {
	query := `
		UPDATE raid_participation SET status = ?
		WHERE status = ?
		AND raid_id IN (SELECT id FROM raid_events WHERE status = ?)
	`
	result, err := r.db.Exec(query, models.ParticipationAttended, models.ParticipationSignedUp, models.RaidStatusFinished)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ActivityCount is one row of the weekly activity report
type ActivityCount struct {
	Nickname string
	Count    int
}

// ActivitySince counts RSVPs per player for raids starting after since,
// busiest players first
func (r *ParticipationRepository) ActivitySince(since time.Time) ([]ActivityCount, error) {
	query := `
		SELECT u.nickname, COUNT(p.id)
		FROM users u
		JOIN raid_participation p ON u.id = p.user_id
		JOIN raid_events e ON e.id = p.raid_id
		WHERE e.start_time >= ?
		GROUP BY u.nickname
		ORDER BY COUNT(p.id) DESC
	`
	rows, err := r.db.Query(query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ActivityCount
	for rows.Next() {
		var c ActivityCount
		if err := rows.Scan(&c.Nickname, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
