// Package sqlite provides a SQLite-backed implementation of storage.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at dbPath, creating parent directories, and runs
// migrations. ":memory:" opens a private in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const segmentColumns = `id, name, price_per_transaction, cost_per_transaction, monthly_volume,
	volume_growth, category, notes, metadata`

func (s *Store) CreateSegment(ctx context.Context, segment *projection.Segment) error {
	if err := storage.PrepareSegment(segment); err != nil {
		return err
	}
	return insertSegment(ctx, s.db, segment)
}

func (s *Store) GetSegment(ctx context.Context, id string) (*projection.Segment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+segmentColumns+" FROM segments WHERE id = ?", id)
	segment, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	return segment, nil
}

func (s *Store) ListSegments(ctx context.Context) ([]projection.Segment, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+segmentColumns+" FROM segments ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	defer rows.Close()

	segments := []projection.Segment{}
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, *segment)
	}
	return segments, rows.Err()
}

func (s *Store) UpdateSegment(ctx context.Context, segment *projection.Segment) error {
	if segment == nil || segment.ID == "" {
		return fmt.Errorf("%w: segment id is required", storage.ErrInvalidInput)
	}
	if err := storage.PrepareSegment(segment); err != nil {
		return err
	}
	metadata, err := encodeMetadata(segment.Metadata)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE segments SET name = ?, name_key = ?, price_per_transaction = ?, cost_per_transaction = ?,
			monthly_volume = ?, volume_growth = ?, category = ?, notes = ?, metadata = ?
		WHERE id = ?`,
		segment.Name, storage.NameKey(segment.Name), segment.PricePerTransaction, segment.CostPerTransaction,
		segment.MonthlyVolume, segment.VolumeGrowth, segment.Category, segment.Notes, metadata,
		segment.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: segment %q", storage.ErrDuplicateKey, segment.Name)
		}
		return fmt.Errorf("failed to update segment: %w", err)
	}
	return requireAffected(result)
}

func (s *Store) DeleteSegment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM segments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}
	return requireAffected(result)
}

func (s *Store) ReplaceSegments(ctx context.Context, segments []projection.Segment) ([]projection.Segment, error) {
	prepared, err := storage.PrepareSegments(segments)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments"); err != nil {
		return nil, fmt.Errorf("failed to clear segments: %w", err)
	}
	for i := range prepared {
		if err := insertSegment(ctx, tx, &prepared[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return prepared, nil
}

func (s *Store) SaveModel(ctx context.Context, model *storage.Model) error {
	if model == nil {
		return fmt.Errorf("%w: model is nil", storage.ErrInvalidInput)
	}
	if model.ID != "" {
		var createdAt int64
		err := s.db.QueryRowContext(ctx, "SELECT created_at FROM models WHERE id = ?", model.ID).Scan(&createdAt)
		switch {
		case err == nil:
			model.CreatedAt = time.UnixMilli(createdAt).UTC()
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up model: %w", err)
		}
	}
	if err := storage.PrepareModel(model, s.now()); err != nil {
		return err
	}

	parameters, err := json.Marshal(model.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	segments, err := json.Marshal(model.Segments)
	if err != nil {
		return fmt.Errorf("failed to encode segments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models (id, name, name_key, description, parameters, segments, total_revenue, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_key = excluded.name_key,
			description = excluded.description,
			parameters = excluded.parameters,
			segments = excluded.segments,
			total_revenue = excluded.total_revenue,
			updated_at = excluded.updated_at`,
		model.ID, model.Name, storage.NameKey(model.Name), model.Description, string(parameters), string(segments),
		model.TotalRevenue, model.CreatedAt.UnixMilli(), model.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: model %q", storage.ErrDuplicateKey, model.Name)
		}
		return fmt.Errorf("failed to save model: %w", err)
	}
	return nil
}

const modelColumns = `id, name, description, parameters, segments, total_revenue, created_at, updated_at`

func (s *Store) GetModel(ctx context.Context, id string) (*storage.Model, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+modelColumns+" FROM models WHERE id = ?", id)
	model, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return model, nil
}

func (s *Store) ListModels(ctx context.Context) ([]storage.Model, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+modelColumns+" FROM models ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	models := []storage.Model{}
	for rows.Next() {
		model, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, *model)
	}
	return models, rows.Err()
}

func (s *Store) DeleteModel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM models WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	return requireAffected(result)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func insertSegment(ctx context.Context, db execer, segment *projection.Segment) error {
	metadata, err := encodeMetadata(segment.Metadata)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO segments (id, name, name_key, price_per_transaction, cost_per_transaction,
			monthly_volume, volume_growth, category, notes, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		segment.ID, segment.Name, storage.NameKey(segment.Name), segment.PricePerTransaction, segment.CostPerTransaction,
		segment.MonthlyVolume, segment.VolumeGrowth, segment.Category, segment.Notes, metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: segment %q", storage.ErrDuplicateKey, segment.Name)
		}
		return fmt.Errorf("failed to insert segment: %w", err)
	}
	return nil
}

func scanSegment(row scanner) (*projection.Segment, error) {
	var segment projection.Segment
	var metadata string
	if err := row.Scan(
		&segment.ID, &segment.Name, &segment.PricePerTransaction, &segment.CostPerTransaction,
		&segment.MonthlyVolume, &segment.VolumeGrowth, &segment.Category, &segment.Notes, &metadata,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadata), &segment.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if len(segment.Metadata) == 0 {
		segment.Metadata = nil
	}
	return &segment, nil
}

func scanModel(row scanner) (*storage.Model, error) {
	var model storage.Model
	var parameters, segments string
	var createdAt, updatedAt int64
	if err := row.Scan(
		&model.ID, &model.Name, &model.Description, &parameters, &segments,
		&model.TotalRevenue, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(parameters), &model.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := json.Unmarshal([]byte(segments), &model.Segments); err != nil {
		return nil, fmt.Errorf("failed to decode segments: %w", err)
	}
	model.CreatedAt = time.UnixMilli(createdAt).UTC()
	model.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &model, nil
}

func encodeMetadata(metadata map[string]string) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(encoded), nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// isUniqueViolation matches SQLite's constraint error text, which the
// driver does not expose as a typed code.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
