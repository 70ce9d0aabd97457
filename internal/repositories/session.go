package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/shared"
)

var _ models.Repository[*models.Session] = (*SessionRepository)(nil)

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session
func (r *SessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	data, err := encodeData(session.Data())
	if err != nil {
		return err
	}

	query := `INSERT INTO sessions (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`

	if _, err := r.db.Exec(query, session.ID(), data, session.CreatedAt(), session.UpdatedAt()); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID. Returns an error wrapping [shared.ErrNotFound] when missing.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT id, data, created_at, updated_at FROM sessions WHERE id = ?`

	var (
		sessionID string
		raw       string
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.db.QueryRow(query, id).Scan(&sessionID, &raw, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	data, err := decodeData(raw)
	if err != nil {
		return nil, err
	}

	session := models.NewSession(sessionID, data)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	return session, nil
}

// Update replaces the stored data of an existing session
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	data, err := encodeData(session.Data())
	if err != nil {
		return err
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	result, err := r.db.Exec(`UPDATE sessions SET data = ?, updated_at = ? WHERE id = ?`, data, now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s", shared.ErrNotFound, session.ID())
	}

	return nil
}

// Delete removes a session by ID. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns sessions, optionally filtered by "updated_before" ([time.Time]).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT id, data, created_at, updated_at FROM sessions`
	var (
		where []string
		args  []any
	)

	if before, ok := criteria["updated_before"].(time.Time); ok {
		where = append(where, "updated_at < ?")
		args = append(args, before)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var (
			id        string
			raw       string
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &raw, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, err
		}
		s := models.NewSession(id, data)
		s.SetCreatedAt(createdAt)
		s.SetUpdatedAt(updatedAt)
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// Load returns the data stored for id, or an empty map when the session does not exist yet.
func (r *SessionRepository) Load(id string) (map[string]string, error) {
	session, err := r.Get(id)
	if errors.Is(err, shared.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return session.Data(), nil
}

// Save upserts the data for id.
func (r *SessionRepository) Save(id string, data map[string]string) error {
	session := models.NewSession(id, data)
	err := r.Update(session)
	if errors.Is(err, shared.ErrNotFound) {
		return r.Create(session)
	}
	return err
}
