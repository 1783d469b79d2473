package sequence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for sequence persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Sequence, error)
	List(ctx context.Context) ([]Sequence, error)
	Create(ctx context.Context, seq *Sequence) error
	Update(ctx context.Context, seq *Sequence) error
	Delete(ctx context.Context, id string) error
}

// sequenceColumns is the SELECT column list for sequence queries.
const sequenceColumns = `id, name, description, steps, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
// Steps are stored as a JSON document in a single column; the engine
// only ever needs the whole ordered list, never individual step rows.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a sequence by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	seq, err := scanSequenceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying sequence by id: %w", err)
	}
	return seq, nil
}

// List retrieves all sequences ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sequences: %w", err)
	}
	defer rows.Close()

	var sequences []Sequence
	for rows.Next() {
		seq, scanErr := scanSequenceRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning sequence: %w", scanErr)
		}
		sequences = append(sequences, *seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequences: %w", err)
	}
	return sequences, nil
}

// Create inserts a new sequence.
func (r *SQLiteRepository) Create(ctx context.Context, seq *Sequence) error {
	stepsJSON, err := json.Marshal(seq.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	now := time.Now().UTC()
	if seq.CreatedAt.IsZero() {
		seq.CreatedAt = now
	}
	seq.UpdatedAt = now

	query := `
		INSERT INTO sequences (id, name, description, steps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		seq.ID,
		seq.Name,
		nullableString(seq.Description),
		string(stepsJSON),
		seq.CreatedAt.Format(time.RFC3339),
		seq.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting sequence: %w", err)
	}
	return nil
}

// Update modifies an existing sequence.
func (r *SQLiteRepository) Update(ctx context.Context, seq *Sequence) error {
	stepsJSON, err := json.Marshal(seq.Steps)
	if err != nil {
		return fmt.Errorf("marshalling steps: %w", err)
	}

	seq.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE sequences SET
			name = ?, description = ?, steps = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		seq.Name,
		nullableString(seq.Description),
		string(stepsJSON),
		seq.UpdatedAt.Format(time.RFC3339),
		seq.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sequence: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a sequence by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sequences WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sequence: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSequenceRow(scanner rowScanner) (*Sequence, error) {
	var s Sequence
	var description sql.NullString
	var stepsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.Name,
		&description,
		&stepsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		s.Description = &description.String
	}

	// Parse timestamps (stored as RFC3339)
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		s.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		s.UpdatedAt = t
	}

	// Unmarshal steps JSON
	if stepsJSON != "" && stepsJSON != "[]" {
		if jsonErr := json.Unmarshal([]byte(stepsJSON), &s.Steps); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling steps: %w", jsonErr)
		}
	}
	if s.Steps == nil {
		s.Steps = []Step{}
	}

	return &s, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
