package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// queryLog implements driven.QueryLog.
type queryLog struct {
	store *Store
}

var _ driven.QueryLog = (*queryLog)(nil)

// RecordQuery stores a question and its answer.
func (s *queryLog) RecordQuery(ctx context.Context, rec *domain.QueryRecord) error {
	var documentID sql.NullString
	if rec.DocumentID != "" {
		documentID = sql.NullString{String: rec.DocumentID, Valid: true}
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO queries (id, owner_id, document_id, question, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.OwnerID, documentID, rec.Question, rec.Response, rec.CreatedAt)
	if err != nil {
		return storageErr("record query", fmt.Errorf("saving query: %w", err))
	}
	return nil
}

// ListQueries returns the owner's most recent queries, newest first.
func (s *queryLog) ListQueries(ctx context.Context, ownerID string, limit int) ([]domain.QueryRecord, error) {
	const op = "list queries"
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, owner_id, document_id, question, response, created_at
		FROM queries WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, storageErr(op, fmt.Errorf("querying queries: %w", err))
	}
	defer rows.Close()

	var out []domain.QueryRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.QueryRecord
		var documentID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &documentID, &rec.Question, &rec.Response, &rec.CreatedAt); err != nil {
			return nil, storageErr(op, fmt.Errorf("scanning query: %w", err))
		}
		rec.DocumentID = documentID.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, fmt.Errorf("iterating queries: %w", err))
	}
	return out, nil
}
