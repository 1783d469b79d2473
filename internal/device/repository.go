package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for controller and device
// persistence. This abstraction allows different implementations
// (SQLite, mock, etc.) and enables unit testing without database
// dependencies.
type Repository interface {
	GetController(ctx context.Context, id string) (*Controller, error)
	ListControllers(ctx context.Context) ([]Controller, error)
	CreateController(ctx context.Context, c *Controller) error
	UpdateController(ctx context.Context, c *Controller) error
	DeleteController(ctx context.Context, id string) error

	GetDevice(ctx context.Context, id string) (*Device, error)
	ListDevices(ctx context.Context) ([]Device, error)
	CreateDevice(ctx context.Context, d *Device) error
	UpdateDevice(ctx context.Context, d *Device) error
	DeleteDevice(ctx context.Context, id string) error
}

const (
	controllerColumns = `id, name, host, description, created_at, updated_at`
	deviceColumns     = `id, controller_id, name, type, channel, device_group, limits, created_at, updated_at`
)

// SQLiteRepository implements Repository using SQLite. Motion limits
// are stored as a JSON document in a single column; they are only ever
// read whole.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ─── Controllers ────────────────────────────────────────────────────────────

// GetController retrieves a controller by its unique identifier.
func (r *SQLiteRepository) GetController(ctx context.Context, id string) (*Controller, error) {
	query := `SELECT ` + controllerColumns + ` FROM controllers WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanControllerRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrControllerNotFound
		}
		return nil, fmt.Errorf("querying controller by id: %w", err)
	}
	return c, nil
}

// ListControllers retrieves all controllers ordered by name.
func (r *SQLiteRepository) ListControllers(ctx context.Context) ([]Controller, error) {
	query := `SELECT ` + controllerColumns + ` FROM controllers ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying controllers: %w", err)
	}
	defer rows.Close()

	var controllers []Controller
	for rows.Next() {
		c, scanErr := scanControllerRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning controller: %w", scanErr)
		}
		controllers = append(controllers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating controllers: %w", err)
	}
	return controllers, nil
}

// CreateController inserts a new controller.
func (r *SQLiteRepository) CreateController(ctx context.Context, c *Controller) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO controllers (id, name, host, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		nullableText(c.Host),
		nullableText(c.Description),
		c.CreatedAt.Format(time.RFC3339),
		c.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting controller: %w", err)
	}
	return nil
}

// UpdateController modifies an existing controller.
func (r *SQLiteRepository) UpdateController(ctx context.Context, c *Controller) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE controllers SET
			name = ?, host = ?, description = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		c.Name,
		nullableText(c.Host),
		nullableText(c.Description),
		c.UpdatedAt.Format(time.RFC3339),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating controller: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrControllerNotFound
	}
	return nil
}

// DeleteController removes a controller. Controllers with attached
// devices are protected: delete the devices first.
func (r *SQLiteRepository) DeleteController(ctx context.Context, id string) error {
	var attached int
	countQuery := `SELECT COUNT(*) FROM devices WHERE controller_id = ?`
	if err := r.db.QueryRowContext(ctx, countQuery, id).Scan(&attached); err != nil {
		return fmt.Errorf("counting attached devices: %w", err)
	}
	if attached > 0 {
		return fmt.Errorf("%w: %d attached", ErrControllerInUse, attached)
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM controllers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting controller: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrControllerNotFound
	}
	return nil
}

// ─── Devices ────────────────────────────────────────────────────────────────

// GetDevice retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetDevice(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// ListDevices retrieves all devices ordered by controller then channel.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY controller_id, channel`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, scanErr := scanDeviceRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning device: %w", scanErr)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// CreateDevice inserts a new device.
func (r *SQLiteRepository) CreateDevice(ctx context.Context, d *Device) error {
	limitsJSON, err := marshalLimits(d.Limits)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `
		INSERT INTO devices (id, controller_id, name, type, channel, device_group, limits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID,
		d.ControllerID,
		d.Name,
		string(d.Type),
		d.Channel,
		nullableText(d.Group),
		limitsJSON,
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			// The schema has a unique index on (controller_id, channel)
			// alongside the primary key.
			if strings.Contains(strings.ToLower(err.Error()), "channel") {
				return ErrChannelInUse
			}
			return ErrExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// UpdateDevice modifies an existing device.
func (r *SQLiteRepository) UpdateDevice(ctx context.Context, d *Device) error {
	limitsJSON, err := marshalLimits(d.Limits)
	if err != nil {
		return err
	}

	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices SET
			controller_id = ?, name = ?, type = ?, channel = ?,
			device_group = ?, limits = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		d.ControllerID,
		d.Name,
		string(d.Type),
		d.Channel,
		nullableText(d.Group),
		limitsJSON,
		d.UpdatedAt.Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), "channel") {
			return ErrChannelInUse
		}
		return fmt.Errorf("updating device: %w", err)
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

// DeleteDevice removes a device by ID.
func (r *SQLiteRepository) DeleteDevice(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
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

func scanControllerRow(scanner rowScanner) (*Controller, error) {
	var c Controller
	var host, description sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID,
		&c.Name,
		&host,
		&description,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if host.Valid {
		c.Host = &host.String
	}
	if description.Valid {
		c.Description = &description.String
	}

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		c.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		c.UpdatedAt = t
	}
	return &c, nil
}

func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var deviceType string
	var group, limitsJSON sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.ControllerID,
		&d.Name,
		&deviceType,
		&d.Channel,
		&group,
		&limitsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Type = DeviceType(deviceType)
	if group.Valid {
		d.Group = &group.String
	}
	if limitsJSON.Valid && limitsJSON.String != "" {
		var limits MotionLimits
		if jsonErr := json.Unmarshal([]byte(limitsJSON.String), &limits); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling limits: %w", jsonErr)
		}
		d.Limits = &limits
	}

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		d.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		d.UpdatedAt = t
	}
	return &d, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func marshalLimits(l *MotionLimits) (sql.NullString, error) {
	if l == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling limits: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullableText(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
