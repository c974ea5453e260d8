package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"raidcall/internal/database"
)

// BackupData is the portable snapshot of the raid database. The format is
// dialect-neutral so a sqlite export can be restored into postgres.
type BackupData struct {
	Version        string                `json:"version"`
	ExportedAt     time.Time             `json:"exported_at"`
	Users          []UserBackup          `json:"users"`
	Locations      []LocationBackup      `json:"locations"`
	Raids          []RaidBackup          `json:"raids"`
	Participations []ParticipationBackup `json:"participations"`
	Reminders      []ReminderBackup      `json:"reminders"`
	Pins           []PinBackup           `json:"pins"`
	SendLogs       []SendLogBackup       `json:"send_logs"`
}

// UserBackup is a player record in a backup
type UserBackup struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"game_id"`
	Nickname  string    `json:"nickname"`
	Faction   string    `json:"faction"`
	Squad     *string   `json:"squad"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// LocationBackup is a kilometre landmark record in a backup
type LocationBackup struct {
	ID          int64  `json:"id"`
	Km          int    `json:"km"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RaidBackup is a raid event record in a backup
type RaidBackup struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Squad      string    `json:"squad"`
	StartTime  time.Time `json:"start_time"`
	CreatedAt  time.Time `json:"created_at"`
	Status     string    `json:"status"`
	LocationID *int64    `json:"location_id"`
}

// ParticipationBackup is an RSVP record in a backup
type ParticipationBackup struct {
	RaidID   int64     `json:"raid_id"`
	UserID   int64     `json:"user_id"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

// ReminderBackup is a reminder opt-in record in a backup
type ReminderBackup struct {
	RaidID    int64     `json:"raid_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PinBackup is a raid pin content record in a backup
type PinBackup struct {
	RaidID      int64  `json:"raid_id"`
	Title       string `json:"title"`
	Km          int    `json:"km"`
	Description string `json:"description"`
}

// SendLogBackup is a pin delivery record in a backup
type SendLogBackup struct {
	BatchID  string    `json:"batch_id"`
	AdminID  int64     `json:"admin_id"`
	TargetID int64     `json:"target_id"`
	RaidID   *int64    `json:"raid_id"`
	PinText  string    `json:"pin_text"`
	SentAt   time.Time `json:"sent_at"`
}

// BackupService exports and restores the raid database as JSON
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a complete snapshot of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported to %s", outputPath)
	return nil
}

// ExportToWriter writes a complete snapshot of the database as indented JSON
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	steps := []struct {
		name string
		fn   func(*BackupData) error
	}{
		{"users", s.exportUsers},
		{"locations", s.exportLocations},
		{"raids", s.exportRaids},
		{"participations", s.exportParticipations},
		{"reminders", s.exportReminders},
		{"pins", s.exportPins},
		{"send logs", s.exportSendLogs},
	}
	for _, step := range steps {
		if err := step.fn(backup); err != nil {
			return fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}

	log.Printf("Exported: %d users, %d raids, %d RSVPs, %d reminders, %d pins, %d send logs",
		len(backup.Users), len(backup.Raids), len(backup.Participations),
		len(backup.Reminders), len(backup.Pins), len(backup.SendLogs))

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

// Import restores a database from a backup file. The target database is
// expected to be freshly migrated and empty.
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup stream
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != "1.0" {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Printf("Restoring backup version %s exported at %s", backup.Version, backup.ExportedAt)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	// Parents before children: raids reference users and locations,
	// everything else references raids.
	if err := s.importUsers(tx, backup.Users); err != nil {
		return err
	}
	if err := s.importLocations(tx, backup.Locations); err != nil {
		return err
	}
	if err := s.importRaids(tx, backup.Raids); err != nil {
		return err
	}
	if err := s.importParticipations(tx, backup.Participations); err != nil {
		return err
	}
	if err := s.importReminders(tx, backup.Reminders); err != nil {
		return err
	}
	if err := s.importPins(tx, backup.Pins); err != nil {
		return err
	}
	if err := s.importSendLogs(tx, backup.SendLogs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	log.Println("Database import completed")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := "SELECT id, game_id, nickname, faction, squad, role, email, is_admin, created_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		var squad sql.NullString
		if err := rows.Scan(&u.ID, &u.GameID, &u.Nickname, &u.Faction, &squad, &u.Role, &u.Email, &u.IsAdmin, &u.CreatedAt); err != nil {
			return err
		}
		if squad.Valid {
			u.Squad = &squad.String
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportLocations(backup *BackupData) error {
	query := "SELECT id, km, title, description FROM location_info ORDER BY km"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LocationBackup
		if err := rows.Scan(&l.ID, &l.Km, &l.Title, &l.Description); err != nil {
			return err
		}
		backup.Locations = append(backup.Locations, l)
	}
	return rows.Err()
}

func (s *BackupService) exportRaids(backup *BackupData) error {
	query := "SELECT id, name, squad, start_time, created_at, status, location_id FROM raid_events ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r RaidBackup
		var locationID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Name, &r.Squad, &r.StartTime, &r.CreatedAt, &r.Status, &locationID); err != nil {
			return err
		}
		if locationID.Valid {
			r.LocationID = &locationID.Int64
		}
		backup.Raids = append(backup.Raids, r)
	}
	return rows.Err()
}

func (s *BackupService) exportParticipations(backup *BackupData) error {
	query := "SELECT raid_id, user_id, status, joined_at FROM raid_participation ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ParticipationBackup
		if err := rows.Scan(&p.RaidID, &p.UserID, &p.Status, &p.JoinedAt); err != nil {
			return err
		}
		backup.Participations = append(backup.Participations, p)
	}
	return rows.Err()
}

func (s *BackupService) exportReminders(backup *BackupData) error {
	query := "SELECT raid_id, user_id, created_at FROM raid_reminders ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r ReminderBackup
		if err := rows.Scan(&r.RaidID, &r.UserID, &r.CreatedAt); err != nil {
			return err
		}
		backup.Reminders = append(backup.Reminders, r)
	}
	return rows.Err()
}

func (s *BackupService) exportPins(backup *BackupData) error {
	query := "SELECT raid_id, title, km, description FROM raid_pin_data ORDER BY raid_id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PinBackup
		if err := rows.Scan(&p.RaidID, &p.Title, &p.Km, &p.Description); err != nil {
			return err
		}
		backup.Pins = append(backup.Pins, p)
	}
	return rows.Err()
}

func (s *BackupService) exportSendLogs(backup *BackupData) error {
	query := "SELECT batch_id, admin_id, target_id, raid_id, pin_text, sent_at FROM pin_send_logs ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l SendLogBackup
		var raidID sql.NullInt64
		if err := rows.Scan(&l.BatchID, &l.AdminID, &l.TargetID, &raidID, &l.PinText, &l.SentAt); err != nil {
			return err
		}
		if raidID.Valid {
			l.RaidID = &raidID.Int64
		}
		backup.SendLogs = append(backup.SendLogs, l)
	}
	return rows.Err()
}

func (s *BackupService) importUsers(tx database.DBTX, users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := "INSERT INTO users (id, game_id, nickname, faction, squad, role, email, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		var squad interface{}
		if u.Squad != nil {
			squad = *u.Squad
		}
		if _, err := tx.Exec(query, u.ID, u.GameID, u.Nickname, u.Faction, squad, u.Role, u.Email, u.IsAdmin, u.CreatedAt); err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importLocations(tx database.DBTX, locations []LocationBackup) error {
	log.Printf("Importing %d locations...", len(locations))
	for _, l := range locations {
		query := "INSERT INTO location_info (id, km, title, description) VALUES (?, ?, ?, ?)"
		if _, err := tx.Exec(query, l.ID, l.Km, l.Title, l.Description); err != nil {
			return fmt.Errorf("failed to import location %d: %w", l.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importRaids(tx database.DBTX, raids []RaidBackup) error {
	log.Printf("Importing %d raids...", len(raids))
	for _, r := range raids {
		query := "INSERT INTO raid_events (id, name, squad, start_time, created_at, status, location_id) VALUES (?, ?, ?, ?, ?, ?, ?)"
		var locationID interface{}
		if r.LocationID != nil {
			locationID = *r.LocationID
		}
		if _, err := tx.Exec(query, r.ID, r.Name, r.Squad, r.StartTime, r.CreatedAt, r.Status, locationID); err != nil {
			return fmt.Errorf("failed to import raid %d: %w", r.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importParticipations(tx database.DBTX, parts []ParticipationBackup) error {
	log.Printf("Importing %d RSVPs...", len(parts))
	for _, p := range parts {
		query := "INSERT INTO raid_participation (raid_id, user_id, status, joined_at) VALUES (?, ?, ?, ?)"
		if _, err := tx.Exec(query, p.RaidID, p.UserID, p.Status, p.JoinedAt); err != nil {
			return fmt.Errorf("failed to import RSVP for raid %d user %d: %w", p.RaidID, p.UserID, err)
		}
	}
	return nil
}

func (s *BackupService) importReminders(tx database.DBTX, reminders []ReminderBackup) error {
	log.Printf("Importing %d reminders...", len(reminders))
	for _, r := range reminders {
		query := "INSERT INTO raid_reminders (raid_id, user_id, created_at) VALUES (?, ?, ?)"
		if _, err := tx.Exec(query, r.RaidID, r.UserID, r.CreatedAt); err != nil {
			return fmt.Errorf("failed to import reminder for raid %d user %d: %w", r.RaidID, r.UserID, err)
		}
	}
	return nil
}

func (s *BackupService) importPins(tx database.DBTX, pins []PinBackup) error {
	log.Printf("Importing %d pins...", len(pins))
	for _, p := range pins {
		query := "INSERT INTO raid_pin_data (raid_id, title, km, description) VALUES (?, ?, ?, ?)"
		if _, err := tx.Exec(query, p.RaidID, p.Title, p.Km, p.Description); err != nil {
			return fmt.Errorf("failed to import pin for raid %d: %w", p.RaidID, err)
		}
	}
	return nil
}

func (s *BackupService) importSendLogs(tx database.DBTX, logs []SendLogBackup) error {
	log.Printf("Importing %d send logs...", len(logs))
	for _, l := range logs {
		query := "INSERT INTO pin_send_logs (batch_id, admin_id, target_id, raid_id, pin_text, sent_at) VALUES (?, ?, ?, ?, ?, ?)"
		var raidID interface{}
		if l.RaidID != nil {
			raidID = *l.RaidID
		}
		if _, err := tx.Exec(query, l.BatchID, l.AdminID, l.TargetID, raidID, l.PinText, l.SentAt); err != nil {
			return fmt.Errorf("failed to import send log %s: %w", l.BatchID, err)
		}
	}
	return nil
}
