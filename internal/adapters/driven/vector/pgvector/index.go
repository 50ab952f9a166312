// Package pgvector provides a PostgreSQL VectorIndex backed by the pgvector
// extension. Distances are computed by the server with the <=> operator.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/custodia-labs/studyrag/internal/adapters/driven/vector"
	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultTable is the table used when Config.Table is empty.
const DefaultTable = "vector_units"

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Config holds connection and layout settings.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Dimensions is the vector width. The table column is vector(Dimensions).
	Dimensions int

	// Table overrides the table name (default: vector_units).
	Table string
}

// Index is a pgvector-backed VectorIndex.
type Index struct {
	db     *gorm.DB
	table  string
	dims   int
	ownsDB bool
}

type unitRow struct {
	Seq        int64           `gorm:"column:seq;->"`
	UnitID     string          `gorm:"column:unit_id;primaryKey"`
	OwnerID    string          `gorm:"column:owner_id"`
	DocumentID string          `gorm:"column:document_id"`
	Title      string          `gorm:"column:title"`
	Content    string          `gorm:"column:content"`
	Position   int             `gorm:"column:position"`
	Embedding  pgvector.Vector `gorm:"column:embedding"`
}

type hitRow struct {
	UnitID     string
	DocumentID string
	Title      string
	Content    string
	Position   int
	Distance   float64
}

// Open connects to PostgreSQL and prepares the index table.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.DSN == "" {
		return nil, domain.ValidationError("pgvector.Open", "postgres DSN is required", domain.ErrVectorIndexUnavailable)
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, domain.ExternalError("pgvector.Open", "connect to postgres",
			fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err))
	}
	idx, err := New(ctx, db, cfg)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	idx.ownsDB = true
	return idx, nil
}

// New prepares the index table on an existing connection. The connection is
// not closed by Close.
func New(ctx context.Context, db *gorm.DB, cfg Config) (*Index, error) {
	const op = "pgvector.New"

	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !identifier.MatchString(cfg.Table) {
		return nil, domain.ValidationError(op, fmt.Sprintf("invalid table name %q", cfg.Table), domain.ErrInvalidInput)
	}
	if cfg.Dimensions <= 0 {
		return nil, domain.ValidationError(op, "dimensions must be positive", domain.ErrInvalidInput)
	}

	idx := &Index{db: db, table: cfg.Table, dims: cfg.Dimensions}
	if err := idx.setup(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (x *Index) setup(ctx context.Context) error {
	const op = "pgvector.setup"
	db := x.db.WithContext(ctx)

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return storageErr(op, err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
		seq         BIGSERIAL,
		unit_id     TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		document_id TEXT NOT NULL,
		title       TEXT NOT NULL,
		content     TEXT NOT NULL,
		position    INTEGER NOT NULL DEFAULT 0,
		embedding   vector(%[2]d) NOT NULL
	)`, x.table, x.dims)
	if err := db.Exec(ddl).Error; err != nil {
		return storageErr(op, err)
	}
	if err := db.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %[1]s_owner_idx ON %[1]s (owner_id, seq)", x.table)).Error; err != nil {
		return storageErr(op, err)
	}

	// For the vector type atttypmod holds the declared width.
	var width int
	err := db.Raw(`SELECT atttypmod FROM pg_attribute
		WHERE attrelid = ?::regclass AND attname = 'embedding'`, x.table).Scan(&width).Error
	if err != nil {
		return storageErr(op, err)
	}
	if width != x.dims {
		return domain.ValidationError(op,
			fmt.Sprintf("table %s stores %d-dimensional vectors, embedder produces %d", x.table, width, x.dims),
			domain.ErrDimensionMismatch)
	}
	return nil
}

// Insert stores or replaces a single unit.
func (x *Index) Insert(ctx context.Context, ownerID, unitID string, vec []float32, payload domain.VectorPayload) error {
	return x.InsertMany(ctx, ownerID, []domain.VectorRecord{{UnitID: unitID, Vector: vec, Payload: payload}})
}

// InsertMany upserts the records in one transaction. A unit held by another
// owner aborts the whole batch.
func (x *Index) InsertMany(ctx context.Context, ownerID string, records []domain.VectorRecord) error {
	const op = "pgvector.InsertMany"

	if err := vector.CheckOwner(op, ownerID); err != nil {
		return err
	}
	for _, r := range records {
		if r.UnitID == "" {
			return domain.ValidationError(op, "unit ID is required", domain.ErrInvalidInput)
		}
		if err := vector.CheckDimensions(op, x.dims, r.Vector); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return nil
	}

	err := x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range records {
			row := unitRow{
				UnitID:     r.UnitID,
				OwnerID:    ownerID,
				DocumentID: r.Payload.DocumentID,
				Title:      r.Payload.Title,
				Content:    r.Payload.Content,
				Position:   r.Payload.Position,
				Embedding:  pgvector.NewVector(r.Vector),
			}
			res := tx.Table(x.table).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "unit_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"document_id", "title", "content", "position", "embedding"}),
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Expr{SQL: x.table + ".owner_id = excluded.owner_id"},
				}},
			}).Create(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return vector.OwnerConflict(op, r.UnitID)
			}
		}
		return nil
	})
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return err
		}
		return storageErr(op, err)
	}
	return nil
}

// Search returns the k nearest units of the owner.
func (x *Index) Search(ctx context.Context, ownerID string, query []float32, k int) ([]domain.VectorHit, error) {
	const op = "pgvector.Search"

	if err := vector.CheckOwner(op, ownerID); err != nil {
		return nil, err
	}
	if err := vector.CheckDimensions(op, x.dims, query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}

	// pgvector yields NaN when either side is the zero vector; that counts as distance 1.
	q := fmt.Sprintf(`SELECT unit_id, document_id, title, content, position,
			LEAST(GREATEST(COALESCE(NULLIF(embedding <=> ?, 'NaN'::float8), 1), 0), 2) AS distance
		FROM %s
		WHERE owner_id = ?
		ORDER BY distance, seq
		LIMIT ?`, x.table)

	var rows []hitRow
	if err := x.db.WithContext(ctx).Raw(q, pgvector.NewVector(query), ownerID, k).Scan(&rows).Error; err != nil {
		return nil, storageErr(op, err)
	}

	hits := make([]domain.VectorHit, len(rows))
	for i, r := range rows {
		hits[i] = domain.VectorHit{
			UnitID:   r.UnitID,
			Distance: r.Distance,
			Payload: domain.VectorPayload{
				DocumentID: r.DocumentID,
				Title:      r.Title,
				Content:    r.Content,
				Position:   r.Position,
			},
		}
	}
	return hits, nil
}

// Delete removes a unit of the owner. Missing units are ignored.
func (x *Index) Delete(ctx context.Context, ownerID, unitID string) error {
	return x.DeleteMany(ctx, ownerID, []string{unitID})
}

// DeleteMany removes several units of the owner.
func (x *Index) DeleteMany(ctx context.Context, ownerID string, unitIDs []string) error {
	const op = "pgvector.DeleteMany"

	if err := vector.CheckOwner(op, ownerID); err != nil {
		return err
	}
	if len(unitIDs) == 0 {
		return nil
	}
	err := x.db.WithContext(ctx).Table(x.table).
		Where("owner_id = ? AND unit_id IN ?", ownerID, unitIDs).
		Delete(&unitRow{}).Error
	if err != nil {
		return storageErr(op, err)
	}
	return nil
}

// Dimensions returns the vector width the index accepts.
func (x *Index) Dimensions() int {
	return x.dims
}

// Close closes the connection when the index opened it.
func (x *Index) Close() error {
	if !x.ownsDB {
		return nil
	}
	sqlDB, err := x.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DropTable removes the index table. Used by tests and resets.
func (x *Index) DropTable(ctx context.Context) error {
	return x.db.WithContext(ctx).Exec("DROP TABLE IF EXISTS " + x.table).Error
}

func storageErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.StorageError(op, "postgres", err)
}
