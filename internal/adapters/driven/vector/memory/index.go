// Package memory provides an in-process VectorIndex with an exact flat scan.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/studyrag/internal/adapters/driven/vector"
	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type unit struct {
	owner   string
	vec     []float32
	payload domain.VectorPayload
	seq     uint64
}

// Index keeps vectors in a map and scans the owner's units on every search.
type Index struct {
	dims  int
	locks *vector.KeyedMutex

	mu      sync.RWMutex
	units   map[string]*unit
	nextSeq uint64
}

// New creates an empty index that accepts vectors of the given width.
func New(dims int) *Index {
	return &Index{
		dims:  dims,
		locks: vector.NewKeyedMutex(),
		units: make(map[string]*unit),
	}
}

// Insert stores or replaces a single unit.
func (i *Index) Insert(ctx context.Context, ownerID, unitID string, vec []float32, payload domain.VectorPayload) error {
	return i.InsertMany(ctx, ownerID, []domain.VectorRecord{{UnitID: unitID, Vector: vec, Payload: payload}})
}

// InsertMany stores or replaces a batch under one critical section.
func (i *Index) InsertMany(ctx context.Context, ownerID string, records []domain.VectorRecord) error {
	const op = "vector insert"
	if err := vector.CheckOwner(op, ownerID); err != nil {
		return err
	}
	ids := make([]string, len(records))
	for n, rec := range records {
		if rec.UnitID == "" {
			return domain.ValidationError(op, "unit id is required", domain.ErrInvalidInput)
		}
		if err := vector.CheckDimensions(op, i.dims, rec.Vector); err != nil {
			return err
		}
		ids[n] = rec.UnitID
	}
	if len(records) == 0 {
		return nil
	}

	release := i.locks.LockAll(ids)
	defer release()

	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for _, rec := range records {
		if u, ok := i.units[rec.UnitID]; ok && u.owner != ownerID {
			return vector.OwnerConflict(op, rec.UnitID)
		}
	}
	for _, rec := range records {
		if u, ok := i.units[rec.UnitID]; ok {
			u.vec = vector.Clone(rec.Vector)
			u.payload = rec.Payload
			continue
		}
		i.units[rec.UnitID] = &unit{
			owner:   ownerID,
			vec:     vector.Clone(rec.Vector),
			payload: rec.Payload,
			seq:     i.nextSeq,
		}
		i.nextSeq++
	}
	return nil
}

// Search returns the owner's k nearest units.
func (i *Index) Search(ctx context.Context, ownerID string, query []float32, k int) ([]domain.VectorHit, error) {
	const op = "vector search"
	if err := vector.CheckOwner(op, ownerID); err != nil {
		return nil, err
	}
	if err := vector.CheckDimensions(op, i.dims, query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	candidates := make([]vector.Candidate, 0, len(i.units))
	for id, u := range i.units {
		if u.owner != ownerID {
			continue
		}
		candidates = append(candidates, vector.Candidate{
			Hit: domain.VectorHit{
				UnitID:   id,
				Distance: vector.CosineDistance(query, u.vec),
				Payload:  u.payload,
			},
			Seq: u.seq,
		})
	}
	i.mu.RUnlock()

	return vector.Rank(candidates, k), nil
}

// Delete removes a unit. Missing units and units of other owners are ignored.
func (i *Index) Delete(ctx context.Context, ownerID, unitID string) error {
	return i.DeleteMany(ctx, ownerID, []string{unitID})
}

// DeleteMany removes several units.
func (i *Index) DeleteMany(_ context.Context, ownerID string, unitIDs []string) error {
	if err := vector.CheckOwner("vector delete", ownerID); err != nil {
		return err
	}
	release := i.locks.LockAll(unitIDs)
	defer release()

	i.mu.Lock()
	defer i.mu.Unlock()
	for _, id := range unitIDs {
		if u, ok := i.units[id]; ok && u.owner == ownerID {
			delete(i.units, id)
		}
	}
	return nil
}

// Dimensions returns the accepted vector width.
func (i *Index) Dimensions() int {
	return i.dims
}

// Len returns the number of stored units across all owners.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.units)
}

// Close releases resources.
func (i *Index) Close() error {
	return nil
}
