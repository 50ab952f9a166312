package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/studyrag/internal/adapters/driven/vector"
	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// VectorIndex implements driven.VectorIndex on the vector_units table.
// Vectors are float32 BLOBs; search is an exact scan over the owner's rows.
type VectorIndex struct {
	store *Store
	dims  int
}

var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex returns a VectorIndex of the given width backed by this store.
// It fails if the table already holds vectors of a different width.
func (s *Store) VectorIndex(ctx context.Context, dims int) (*VectorIndex, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("vector dimensions must be positive, got %d", dims)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT dims FROM vector_units")
	if err != nil {
		return nil, storageErr("open vector index", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stored int
		if err := rows.Scan(&stored); err != nil {
			return nil, storageErr("open vector index", err)
		}
		if stored != dims {
			return nil, domain.ValidationError("open vector index",
				fmt.Sprintf("stored vectors have %d dimensions, embedder produces %d", stored, dims),
				domain.ErrDimensionMismatch)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("open vector index", err)
	}
	return &VectorIndex{store: s, dims: dims}, nil
}

// Insert stores or replaces a single unit.
func (v *VectorIndex) Insert(ctx context.Context, ownerID, unitID string, vec []float32, payload domain.VectorPayload) error {
	return v.InsertMany(ctx, ownerID, []domain.VectorRecord{{UnitID: unitID, Vector: vec, Payload: payload}})
}

// InsertMany upserts every record in one transaction. A unit held by another
// owner aborts the whole batch.
func (v *VectorIndex) InsertMany(ctx context.Context, ownerID string, records []domain.VectorRecord) error {
	const op = "vector insert"
	if err := vector.CheckOwner(op, ownerID); err != nil {
		return err
	}
	for _, rec := range records {
		if rec.UnitID == "" {
			return domain.ValidationError(op, "unit id is required", domain.ErrInvalidInput)
		}
		if err := vector.CheckDimensions(op, v.dims, rec.Vector); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	// The WHERE on the upsert leaves another owner's row untouched and reports
	// zero affected rows, which is turned into a conflict.
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_units (unit_id, owner_id, document_id, title, content, position, dims, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unit_id) DO UPDATE SET
			document_id = excluded.document_id,
			title = excluded.title,
			content = excluded.content,
			position = excluded.position,
			dims = excluded.dims,
			embedding = excluded.embedding
		WHERE vector_units.owner_id = excluded.owner_id
	`)
	if err != nil {
		return storageErr(op, fmt.Errorf("preparing statement: %w", err))
	}
	defer stmt.Close()

	for _, rec := range records {
		res, err := stmt.ExecContext(ctx, rec.UnitID, ownerID, rec.Payload.DocumentID, rec.Payload.Title,
			rec.Payload.Content, rec.Payload.Position, v.dims, vector.Encode(rec.Vector))
		if err != nil {
			return storageErr(op, fmt.Errorf("saving unit %s: %w", rec.UnitID, err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr(op, err)
		}
		if n == 0 {
			return vector.OwnerConflict(op, rec.UnitID)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(op, fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// Search scans the owner's units and returns the k nearest.
func (v *VectorIndex) Search(ctx context.Context, ownerID string, query []float32, k int) ([]domain.VectorHit, error) {
	const op = "vector search"
	if err := vector.CheckOwner(op, ownerID); err != nil {
		return nil, err
	}
	if err := vector.CheckDimensions(op, v.dims, query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT seq, unit_id, document_id, title, content, position, embedding
		FROM vector_units WHERE owner_id = ?
	`, ownerID)
	if err != nil {
		return nil, storageErr(op, fmt.Errorf("querying units: %w", err))
	}
	defer rows.Close()

	var candidates []vector.Candidate
	for rows.Next() {
		var (
			c    vector.Candidate
			blob []byte
		)
		if err := rows.Scan(&c.Seq, &c.Hit.UnitID, &c.Hit.Payload.DocumentID, &c.Hit.Payload.Title,
			&c.Hit.Payload.Content, &c.Hit.Payload.Position, &blob); err != nil {
			return nil, storageErr(op, fmt.Errorf("scanning unit: %w", err))
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return nil, storageErr(op, err)
		}
		if len(vec) != v.dims {
			return nil, domain.ValidationError(op,
				fmt.Sprintf("stored unit %s has %d dimensions", c.Hit.UnitID, len(vec)),
				domain.ErrDimensionMismatch)
		}
		c.Hit.Distance = vector.CosineDistance(query, vec)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, fmt.Errorf("iterating units: %w", err))
	}

	return vector.Rank(candidates, k), nil
}

// Delete removes a unit of the owner. Missing units are ignored.
func (v *VectorIndex) Delete(ctx context.Context, ownerID, unitID string) error {
	return v.DeleteMany(ctx, ownerID, []string{unitID})
}

// DeleteMany removes several units of the owner in one transaction.
func (v *VectorIndex) DeleteMany(ctx context.Context, ownerID string, unitIDs []string) error {
	const op = "vector delete"
	if err := vector.CheckOwner(op, ownerID); err != nil {
		return err
	}
	if len(unitIDs) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM vector_units WHERE unit_id = ? AND owner_id = ?")
	if err != nil {
		return storageErr(op, fmt.Errorf("preparing statement: %w", err))
	}
	defer stmt.Close()

	for _, id := range unitIDs {
		if _, err := stmt.ExecContext(ctx, id, ownerID); err != nil {
			return storageErr(op, fmt.Errorf("deleting unit %s: %w", id, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(op, fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// Dimensions returns the accepted vector width.
func (v *VectorIndex) Dimensions() int {
	return v.dims
}

// Close is a no-op; the owning Store closes the database.
func (v *VectorIndex) Close() error {
	return nil
}
