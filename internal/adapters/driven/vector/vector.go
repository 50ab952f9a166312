// Package vector holds the distance, ranking and validation rules shared by
// every VectorIndex backend.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from
// everything. The result is clamped to [0, 2].
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	switch {
	case d < 0:
		return 0
	case d > 2:
		return 2
	}
	return d
}

// CheckDimensions returns a validation error wrapping domain.ErrDimensionMismatch
// when v is not exactly dims wide, or contains NaN or Inf.
func CheckDimensions(op string, dims int, v []float32) error {
	if len(v) != dims {
		return domain.ValidationError(op,
			fmt.Sprintf("vector has %d dimensions, index expects %d", len(v), dims),
			domain.ErrDimensionMismatch)
	}
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return domain.ValidationError(op, "vector contains NaN or Inf", domain.ErrInvalidInput)
		}
	}
	return nil
}

// CheckOwner rejects an empty owner identifier.
func CheckOwner(op, ownerID string) error {
	if ownerID == "" {
		return domain.ValidationError(op, "owner is required", domain.ErrInvalidInput)
	}
	return nil
}

// OwnerConflict is returned when a unit ID is already held by another owner.
func OwnerConflict(op, unitID string) error {
	return domain.ConflictError(op, fmt.Sprintf("unit %s belongs to another owner", unitID), domain.ErrAlreadyExists)
}

// Candidate is a scored unit awaiting ranking.
type Candidate struct {
	Hit domain.VectorHit
	Seq uint64
}

// Rank orders candidates by ascending distance, then insertion sequence, and
// keeps the first k.
func Rank(candidates []Candidate, k int) []domain.VectorHit {
	if k <= 0 {
		return []domain.VectorHit{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Hit.Distance != candidates[j].Hit.Distance {
			return candidates[i].Hit.Distance < candidates[j].Hit.Distance
		}
		return candidates[i].Seq < candidates[j].Seq
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	hits := make([]domain.VectorHit, len(candidates))
	for i, c := range candidates {
		hits[i] = c.Hit
	}
	return hits
}

// Encode packs a vector as little-endian float32 bytes.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode unpacks little-endian float32 bytes.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Clone copies a vector so callers cannot mutate stored state.
func Clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
