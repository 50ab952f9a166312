// Package vectortest provides a behavioural test suite that every
// driven.VectorIndex backend runs against itself.
package vectortest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Dims is the vector width used by the suite.
const Dims = 8

// Factory returns an empty index accepting vectors of width dims.
// The factory is responsible for cleanup via t.Cleanup.
type Factory func(t *testing.T, dims int) driven.VectorIndex

// Run executes every behavioural check against indexes produced by newIndex.
func Run(t *testing.T, newIndex Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(*testing.T, driven.VectorIndex)
	}{
		{"RoundTrip", testRoundTrip},
		{"OwnerIsolation", testOwnerIsolation},
		{"DeleteIdempotent", testDeleteIdempotent},
		{"DeleteNeverCrossesOwners", testDeleteNeverCrossesOwners},
		{"DimensionMismatch", testDimensionMismatch},
		{"CrossOwnerReplaceConflicts", testCrossOwnerReplace},
		{"ReplaceKeepsInsertionOrder", testReplaceKeepsOrder},
		{"TiesByInsertionOrder", testTiesByInsertionOrder},
		{"AscendingDistance", testAscendingDistance},
		{"NonPositiveK", testNonPositiveK},
		{"InsertManyAllOrNothing", testInsertManyAllOrNothing},
		{"EmptyOwnerRejected", testEmptyOwner},
		{"ConcurrentInserts", testConcurrentInserts},
		{"PayloadRoundTrip", testPayloadRoundTrip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newIndex(t, Dims)
			require.Equal(t, Dims, idx.Dimensions())
			tt.fn(t, idx)
		})
	}
}

// RandomVector returns a non-zero vector of width dims.
func RandomVector(rng *rand.Rand, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	v[rng.Intn(dims)] += 0.5
	return v
}

func basis(i int) []float32 {
	v := make([]float32, Dims)
	v[i%Dims] = 1
	return v
}

func payload(id string) domain.VectorPayload {
	return domain.VectorPayload{DocumentID: "doc-" + id, Title: "title " + id, Content: "content " + id}
}

func testRoundTrip(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	v := RandomVector(rng, Dims)

	require.NoError(t, idx.Insert(ctx, "alice", "u1", v, payload("u1")))
	require.NoError(t, idx.Insert(ctx, "alice", "u2", RandomVector(rng, Dims), payload("u2")))

	hits, err := idx.Search(ctx, "alice", v, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "u1", hits[0].UnitID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)
}

func testOwnerIsolation(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	owners := []string{"alice", "bob", "carol", "dave"}
	ownerOf := make(map[string]string)
	count := make(map[string]int)

	for i := 0; i < 60; i++ {
		owner := owners[rng.Intn(len(owners))]
		id := fmt.Sprintf("unit-%03d", i)
		require.NoError(t, idx.Insert(ctx, owner, id, RandomVector(rng, Dims), payload(id)))
		ownerOf[id] = owner
		count[owner]++
	}

	for trial := 0; trial < 200; trial++ {
		owner := owners[rng.Intn(len(owners))]
		k := rng.Intn(80) - 5
		hits, err := idx.Search(ctx, owner, RandomVector(rng, Dims), k)
		require.NoError(t, err)

		want := 0
		if k > 0 {
			want = min(k, count[owner])
		}
		assert.Len(t, hits, want)
		for _, h := range hits {
			require.Equal(t, owner, ownerOf[h.UnitID], "search for %s leaked %s", owner, h.UnitID)
		}
	}

	hits, err := idx.Search(ctx, "eve", RandomVector(rng, Dims), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func testDeleteIdempotent(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, "alice", "u1", basis(0), payload("u1")))

	require.NoError(t, idx.Delete(ctx, "alice", "u1"))
	require.NoError(t, idx.Delete(ctx, "alice", "u1"))
	require.NoError(t, idx.Delete(ctx, "alice", "never-existed"))
	require.NoError(t, idx.DeleteMany(ctx, "alice", []string{"u1", "u2"}))

	hits, err := idx.Search(ctx, "alice", basis(0), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func testDeleteNeverCrossesOwners(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, "alice", "u1", basis(0), payload("u1")))

	require.NoError(t, idx.Delete(ctx, "bob", "u1"))

	hits, err := idx.Search(ctx, "alice", basis(0), 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "u1", hits[0].UnitID)
}

func testDimensionMismatch(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()

	err := idx.Insert(ctx, "alice", "u1", make([]float32, Dims+1), payload("u1"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	_, err = idx.Search(ctx, "alice", make([]float32, Dims-1), 3)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func testCrossOwnerReplace(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, "alice", "u1", basis(0), payload("alice")))

	err := idx.Insert(ctx, "bob", "u1", basis(1), payload("bob"))
	assert.True(t, errors.Is(err, domain.ErrConflict))

	hits, err := idx.Search(ctx, "alice", basis(0), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "title alice", hits[0].Payload.Title)

	hits, err = idx.Search(ctx, "bob", basis(1), 1)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func testReplaceKeepsOrder(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, "alice", "first", basis(0), payload("first")))
	require.NoError(t, idx.Insert(ctx, "alice", "second", basis(0), payload("second")))
	require.NoError(t, idx.Insert(ctx, "alice", "first", basis(0), payload("first-v2")))

	hits, err := idx.Search(ctx, "alice", basis(0), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].UnitID)
	assert.Equal(t, "title first-v2", hits[0].Payload.Title)
	assert.Equal(t, "second", hits[1].UnitID)
}

func testTiesByInsertionOrder(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	ids := []string{"e", "c", "a", "d", "b"}
	for _, id := range ids {
		require.NoError(t, idx.Insert(ctx, "alice", id, basis(2), payload(id)))
	}

	for i := 0; i < 3; i++ {
		hits, err := idx.Search(ctx, "alice", basis(2), len(ids))
		require.NoError(t, err)
		got := make([]string, len(hits))
		for n, h := range hits {
			got[n] = h.UnitID
		}
		assert.Equal(t, ids, got)
	}
}

func testAscendingDistance(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("u%d", i)
		require.NoError(t, idx.Insert(ctx, "alice", id, RandomVector(rng, Dims), payload(id)))
	}

	hits, err := idx.Search(ctx, "alice", RandomVector(rng, Dims), 25)
	require.NoError(t, err)
	require.Len(t, hits, 25)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Distance, 0.0)
		assert.LessOrEqual(t, h.Distance, 2.0)
	}
}

func testNonPositiveK(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, "alice", "u1", basis(0), payload("u1")))

	for _, k := range []int{0, -1} {
		hits, err := idx.Search(ctx, "alice", basis(0), k)
		require.NoError(t, err)
		assert.Empty(t, hits)
	}
}

func testInsertManyAllOrNothing(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, "bob", "taken", basis(0), payload("taken")))

	err := idx.InsertMany(ctx, "alice", []domain.VectorRecord{
		{UnitID: "a1", Vector: basis(1), Payload: payload("a1")},
		{UnitID: "taken", Vector: basis(2), Payload: payload("steal")},
		{UnitID: "a2", Vector: basis(3), Payload: payload("a2")},
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	err = idx.InsertMany(ctx, "alice", []domain.VectorRecord{
		{UnitID: "a3", Vector: basis(1), Payload: payload("a3")},
		{UnitID: "a4", Vector: make([]float32, 3), Payload: payload("a4")},
	})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	hits, err := idx.Search(ctx, "alice", basis(1), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.InsertMany(ctx, "alice", []domain.VectorRecord{
		{UnitID: "a1", Vector: basis(1), Payload: payload("a1")},
		{UnitID: "a2", Vector: basis(3), Payload: payload("a2")},
	}))
	hits, err = idx.Search(ctx, "alice", basis(1), 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func testEmptyOwner(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()

	err := idx.Insert(ctx, "", "u1", basis(0), payload("u1"))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = idx.Search(ctx, "", basis(0), 3)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func testConcurrentInserts(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 40)

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("unit-%d", i)
			errs <- idx.Insert(ctx, "alice", id, basis(i), payload(id))
		}(i)
		go func(i int) {
			defer wg.Done()
			errs <- idx.Insert(ctx, "alice", "shared", basis(i), payload("shared"))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	hits, err := idx.Search(ctx, "alice", basis(0), 100)
	require.NoError(t, err)
	assert.Len(t, hits, 21)
}

func testPayloadRoundTrip(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	p := domain.VectorPayload{DocumentID: "d1", Title: "Cell Biology", Content: "Ribosomes build proteins.", Position: 4}
	require.NoError(t, idx.Insert(ctx, "alice", "u1", basis(5), p))

	hits, err := idx.Search(ctx, "alice", basis(5), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, p, hits[0].Payload)
}
