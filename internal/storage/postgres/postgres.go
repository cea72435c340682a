// Package postgres provides a PostgreSQL-backed implementation of
// storage.Store using pgx connection pools.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New connects to dsn, verifies the connection and applies migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, now: time.Now}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// migrate applies the embedded migrations in file name order. Every
// statement is idempotent.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := migrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}
	return nil
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

const segmentColumns = `id, name, price_per_transaction, cost_per_transaction, monthly_volume,
	volume_growth, category, notes, metadata`

const insertSegmentQuery = `
	INSERT INTO segments (id, name, name_key, price_per_transaction, cost_per_transaction,
		monthly_volume, volume_growth, category, notes, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func segmentArgs(segment *projection.Segment) []any {
	return []any{
		segment.ID, segment.Name, storage.NameKey(segment.Name),
		segment.PricePerTransaction, segment.CostPerTransaction,
		segment.MonthlyVolume, segment.VolumeGrowth,
		segment.Category, segment.Notes, metadataValue(segment.Metadata),
	}
}

func (s *Store) CreateSegment(ctx context.Context, segment *projection.Segment) error {
	if err := storage.PrepareSegment(segment); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, insertSegmentQuery, segmentArgs(segment)...); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: segment %q", storage.ErrDuplicateKey, segment.Name)
		}
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

func (s *Store) GetSegment(ctx context.Context, id string) (*projection.Segment, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+segmentColumns+" FROM segments WHERE id = $1", id)
	segment, err := scanSegment(row)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return segment, nil
}

func (s *Store) ListSegments(ctx context.Context) ([]projection.Segment, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+segmentColumns+" FROM segments ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segments := []projection.Segment{}
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
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

	tag, err := s.pool.Exec(ctx, `
		UPDATE segments SET name = $2, name_key = $3, price_per_transaction = $4, cost_per_transaction = $5,
			monthly_volume = $6, volume_growth = $7, category = $8, notes = $9, metadata = $10
		WHERE id = $1
	`, segmentArgs(segment)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: segment %q", storage.ErrDuplicateKey, segment.Name)
		}
		return fmt.Errorf("update segment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSegment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM segments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ReplaceSegments(ctx context.Context, segments []projection.Segment) ([]projection.Segment, error) {
	prepared, err := storage.PrepareSegments(segments)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM segments"); err != nil {
		return nil, fmt.Errorf("clear segments: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range prepared {
		batch.Queue(insertSegmentQuery, segmentArgs(&prepared[i])...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: segment name", storage.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("insert segments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return prepared, nil
}

func (s *Store) SaveModel(ctx context.Context, model *storage.Model) error {
	if model == nil {
		return fmt.Errorf("%w: model is nil", storage.ErrInvalidInput)
	}
	if model.ID != "" {
		var createdAt time.Time
		err := s.pool.QueryRow(ctx, "SELECT created_at FROM models WHERE id = $1", model.ID).Scan(&createdAt)
		switch {
		case err == nil:
			model.CreatedAt = createdAt.UTC()
		case !isNotFoundError(err):
			return fmt.Errorf("look up model: %w", err)
		}
	}
	if err := storage.PrepareModel(model, s.now()); err != nil {
		return err
	}

	parameters, err := json.Marshal(model.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	segments, err := json.Marshal(model.Segments)
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO models (id, name, name_key, description, parameters, segments, total_revenue, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			name_key = EXCLUDED.name_key,
			description = EXCLUDED.description,
			parameters = EXCLUDED.parameters,
			segments = EXCLUDED.segments,
			total_revenue = EXCLUDED.total_revenue,
			updated_at = EXCLUDED.updated_at
	`,
		model.ID, model.Name, storage.NameKey(model.Name), model.Description, parameters, segments,
		model.TotalRevenue, model.CreatedAt, model.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: model %q", storage.ErrDuplicateKey, model.Name)
		}
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

const modelColumns = `id, name, description, parameters, segments, total_revenue, created_at, updated_at`

func (s *Store) GetModel(ctx context.Context, id string) (*storage.Model, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+modelColumns+" FROM models WHERE id = $1", id)
	model, err := scanModel(row)
	if isNotFoundError(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return model, nil
}

func (s *Store) ListModels(ctx context.Context) ([]storage.Model, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+modelColumns+" FROM models ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	models := []storage.Model{}
	for rows.Next() {
		model, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, *model)
	}
	return models, rows.Err()
}

func (s *Store) DeleteModel(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM models WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanSegment(row pgx.Row) (*projection.Segment, error) {
	var segment projection.Segment
	var metadata map[string]string
	if err := row.Scan(
		&segment.ID, &segment.Name, &segment.PricePerTransaction, &segment.CostPerTransaction,
		&segment.MonthlyVolume, &segment.VolumeGrowth, &segment.Category, &segment.Notes, &metadata,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		segment.Metadata = metadata
	}
	return &segment, nil
}

func scanModel(row pgx.Row) (*storage.Model, error) {
	var model storage.Model
	var parameters, segments []byte
	if err := row.Scan(
		&model.ID, &model.Name, &model.Description, &parameters, &segments,
		&model.TotalRevenue, &model.CreatedAt, &model.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(parameters, &model.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}
	if err := json.Unmarshal(segments, &model.Segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	model.CreatedAt = model.CreatedAt.UTC()
	model.UpdatedAt = model.UpdatedAt.UTC()
	return &model, nil
}

func metadataValue(metadata map[string]string) map[string]string {
	if metadata == nil {
		return map[string]string{}
	}
	return metadata
}
