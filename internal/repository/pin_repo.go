package repository

import (
	"raidcall/internal/database"
	"raidcall/internal/models"
)

type PinRepository struct {
	db *database.DB
}

func NewPinRepository(db *database.DB) *PinRepository {
	return &PinRepository{db: db}
}

// UpsertPinData creates or overwrites the announcement content for a raid
func (r *PinRepository) UpsertPinData(pin *models.RaidPinData) error {
	query := `
		INSERT INTO raid_pin_data (raid_id, title, km, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(raid_id) DO UPDATE SET
			title = excluded.title,
			km = excluded.km,
			description = excluded.description
	`
	_, err := r.db.Exec(query, pin.RaidID, pin.Title, pin.Km, pin.Description)
	return err
}

// GetPinData retrieves the announcement content for a raid
func (r *PinRepository) GetPinData(raidID int64) (*models.RaidPinData, error) {
	query := `SELECT id, raid_id, title, km, description FROM raid_pin_data WHERE raid_id = ?`
	var pin models.RaidPinData
	err := r.db.QueryRow(query, raidID).Scan(&pin.ID, &pin.RaidID, &pin.Title, &pin.Km, &pin.Description)
	if err != nil {
		return nil, err
	}
	return &pin, nil
}

// AddSendLog appends one delivery audit record
func (r *PinRepository) AddSendLog(log *models.PinSendLog) error {
	query := `INSERT INTO pin_send_logs (batch_id, admin_id, target_id, raid_id, pin_text, sent_at) VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(query, log.BatchID, log.AdminID, log.TargetID, log.RaidID, log.PinText, log.SentAt)
	if err != nil {
		return err
	}
	log.ID = id
	return nil
}

// RecentBatches aggregates send logs into per-run journal entries, newest
// first. The sender nickname is resolved against the admin's game id.
func (r *PinRepository) RecentBatches(limit int) ([]models.PinBatch, error) {
	query := `
		SELECT l.batch_id, l.admin_id, COALESCE(u.nickname, ''), l.pin_text,
			MIN(l.sent_at), COUNT(l.target_id)
		FROM pin_send_logs l
		LEFT JOIN users u ON u.game_id = l.admin_id
		GROUP BY l.batch_id, l.admin_id, u.nickname, l.pin_text
		ORDER BY MIN(l.sent_at) DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []models.PinBatch
	for rows.Next() {
		var b models.PinBatch
		if err := rows.Scan(&b.BatchID, &b.AdminID, &b.AdminName, &b.PinText, &b.SentAt, &b.Recipients); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// InvitedUserIDs returns the distinct players a pin was ever sent to for a
// raid. Used to compute who never responded.
func (r *PinRepository) InvitedUserIDs(raidID int64) ([]int64, error) {
	query := `SELECT DISTINCT target_id FROM pin_send_logs WHERE raid_id = ?`
	rows, err := r.db.Query(query, raidID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
