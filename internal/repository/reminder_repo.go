package repository

import (
	"raidcall/internal/database"
	"raidcall/internal/models"
)

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Add records a "remind me" marker for (raid, user). A duplicate request is
// a no-op; the return value reports whether a new marker was created.
func (r *ReminderRepository) Add(raidID, userID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM raid_reminders WHERE raid_id = ? AND user_id = ?`
	if err := r.db.QueryRow(query, raidID, userID).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	_, err := r.db.Exec(`INSERT INTO raid_reminders (raid_id, user_id) VALUES (?, ?)`, raidID, userID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// UsersByRaid retrieves every player holding a reminder for a raid,
// regardless of their RSVP status
func (r *ReminderRepository) UsersByRaid(raidID int64) ([]models.User, error) {
	query := `
		SELECT u.id, u.game_id, u.nickname, u.faction, u.squad, u.role, u.email, u.is_admin, u.created_at
		FROM users u
		JOIN raid_reminders rem ON rem.user_id = u.id
		WHERE rem.raid_id = ?
		ORDER BY rem.created_at ASC
	`
	rows, err := r.db.Query(query, raidID)
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

// DeleteByRaid removes all reminders for a raid. Called by the scheduler
// once the one-hour sweep has fired, whether or not deliveries succeeded.
func (r *ReminderRepository) DeleteByRaid(raidID int64) error {
	_, err := r.db.Exec(`DELETE FROM raid_reminders WHERE raid_id = ?`, raidID)
	return err
}

// CountByRaid returns how many reminders are pending for a raid
func (r *ReminderRepository) CountByRaid(raidID int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM raid_reminders WHERE raid_id = ?`, raidID).Scan(&count)
	return count, err
}
