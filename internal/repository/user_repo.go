package repository

import (
	"database/sql"
	"errors"
	"strings"

	"raidcall/internal/database"
	"raidcall/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, game_id, nickname, faction, squad, role, email, is_admin, created_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.GameID, &u.Nickname, &u.Faction, &u.Squad, &u.Role, &u.Email, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new player record
func (r *UserRepository) Create(user *models.User) error {
	query := `INSERT INTO users (game_id, nickname, faction, squad, role, email, is_admin) VALUES (?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(query, user.GameID, user.Nickname, user.Faction, user.Squad, user.Role, user.Email, user.IsAdmin)
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetByGameID retrieves a player by their in-game identifier
func (r *UserRepository) GetByGameID(gameID int64) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE game_id = ?"
	return scanUser(r.db.QueryRow(query, gameID))
}

// All retrieves every registered player
func (r *UserRepository) All() ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY id"
	return r.queryUsers(query)
}

// WithSquad retrieves players belonging to any squad
func (r *UserRepository) WithSquad() ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE squad IS NOT NULL AND squad != '' ORDER BY id"
	return r.queryUsers(query)
}

// BySquads retrieves players belonging to any of the given squads
func (r *UserRepository) BySquads(squads []string) ([]models.User, error) {
	if len(squads) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(squads)), ", ")
	query := "SELECT " + userColumns + " FROM users WHERE squad IN (" + placeholders + ") ORDER BY id"

	args := make([]interface{}, len(squads))
	for i, s := range squads {
		args[i] = s
	}
	return r.queryUsers(query, args...)
}

// DistinctSquads returns the distinct non-empty squad names in registration order
func (r *UserRepository) DistinctSquads() ([]string, error) {
	query := `SELECT DISTINCT squad FROM users WHERE squad IS NOT NULL AND squad != '' ORDER BY squad`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var squads []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		squads = append(squads, s)
	}
	return squads, rows.Err()
}

func (r *UserRepository) queryUsers(query string, args ...interface{}) ([]models.User, error) {
	rows, err := r.db.Query(query, args...)
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

// IsNotFound reports whether err is the store's not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
