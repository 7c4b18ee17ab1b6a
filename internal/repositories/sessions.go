package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vors-gg/vors/internal/models"
	"github.com/vors-gg/vors/internal/shared"
)

// SessionRepository implements [models.Repository] for [models.Session]
// persistence. Players and settings are stored as JSON text columns.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session into the database with generated ID and sequence
func (r *SessionRepository) Create(session *models.Session) error {
	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	session.SetID(id)

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	players, settings, err := encodeSessionJSON(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (id, sequence, name, players, settings, rounds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, session.Name(), players, settings, session.Rounds(), session.CreatedAt(), session.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT id, sequence, name, players, settings, rounds, created_at, updated_at, deleted_at
		FROM sessions
		WHERE id = ? AND deleted_at IS NULL
	`

	session, err := scanSession(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

// Update modifies an existing session in the database
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	players, settings, err := encodeSessionJSON(session)
	if err != nil {
		return err
	}

	query := `
		UPDATE sessions
		SET name = ?, players = ?, settings = ?, rounds = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, session.Name(), players, settings, session.Rounds(), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, session.ID())
	}

	return nil
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE sessions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	return nil
}

// List retrieves sessions matching the given criteria, newest first.
// Supported criteria: "name".
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `
		SELECT id, sequence, name, players, settings, rounds, created_at, updated_at, deleted_at
		FROM sessions
		WHERE deleted_at IS NULL
	`
	args := []any{}

	if name, ok := criteria["name"]; ok {
		query += " AND name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// scanner is the shared subset of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		id        string
		sequence  int
		name      string
		players   string
		settings  string
		rounds    int
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &name, &players, &settings, &rounds, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	var playerList []string
	if err := json.Unmarshal([]byte(players), &playerList); err != nil {
		return nil, fmt.Errorf("malformed players column for session %s: %w", id, err)
	}

	var sessionSettings models.Settings
	if err := json.Unmarshal([]byte(settings), &sessionSettings); err != nil {
		return nil, fmt.Errorf("malformed settings column for session %s: %w", id, err)
	}

	session := models.NewSession(sequence, name, playerList)
	session.SetID(id)
	session.SetSettings(sessionSettings)
	session.SetRounds(rounds)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	return session, nil
}

func encodeSessionJSON(session *models.Session) (players string, settings string, err error) {
	playerBytes, err := json.Marshal(session.Players())
	if err != nil {
		return "", "", fmt.Errorf("failed to encode players: %w", err)
	}

	settingBytes, err := json.Marshal(session.Settings())
	if err != nil {
		return "", "", fmt.Errorf("failed to encode settings: %w", err)
	}

	return string(playerBytes), string(settingBytes), nil
}
