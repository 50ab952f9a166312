package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, owner_id, title, content, chunk_count, granularity, created_at`

// CreateDocument inserts a document and its chunks in one transaction.
// The (owner_id, title) unique constraint rejects duplicates.
func (s *documentStore) CreateDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	const op = "create document"

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.OwnerID, doc.Title, doc.Content, doc.ChunkCount, string(doc.Granularity), doc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ConflictError(op, fmt.Sprintf("document %q already exists", doc.Title), domain.ErrAlreadyExists)
		}
		return storageErr(op, fmt.Errorf("saving document: %w", err))
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, document_id, owner_id, content, position, page, paragraph)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return storageErr(op, fmt.Errorf("preparing statement: %w", err))
		}
		defer stmt.Close()

		for _, c := range chunks {
			if _, err := stmt.ExecContext(ctx, c.ID, doc.ID, doc.OwnerID, c.Content,
				c.Position, c.Page, c.Paragraph); err != nil {
				return storageErr(op, fmt.Errorf("saving chunk: %w", err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(op, fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// GetDocument retrieves one of the owner's documents by ID.
func (s *documentStore) GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	return scanDocument("get document", row)
}

// FindByTitle retrieves one of the owner's documents by title.
func (s *documentStore) FindByTitle(ctx context.Context, ownerID, title string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE owner_id = ? AND title = ?
	`, ownerID, title)
	return scanDocument("find document", row)
}

// GetChunks retrieves the chunks of a document in position order.
func (s *documentStore) GetChunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, owner_id, content, position, page, paragraph
		FROM chunks WHERE document_id = ? AND owner_id = ?
		ORDER BY position
	`, documentID, ownerID)
	if err != nil {
		return nil, storageErr("get chunks", fmt.Errorf("querying chunks: %w", err))
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.OwnerID, &c.Content,
			&c.Position, &c.Page, &c.Paragraph); err != nil {
			return nil, storageErr("get chunks", fmt.Errorf("scanning chunk: %w", err))
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get chunks", fmt.Errorf("iterating chunks: %w", err))
	}
	return chunks, nil
}

// ListDocuments returns the owner's documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, ownerID)
	if err != nil {
		return nil, storageErr("list documents", fmt.Errorf("querying documents: %w", err))
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument("list documents", rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list documents", fmt.Errorf("iterating documents: %w", err))
	}
	return docs, nil
}

// DeleteDocument removes a document; chunks and flashcards cascade.
// Deleting a missing document is not an error.
func (s *documentStore) DeleteDocument(ctx context.Context, ownerID, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return storageErr("delete document", fmt.Errorf("deleting document: %w", err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(op string, row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var granularity string
	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &doc.Content,
		&doc.ChunkCount, &granularity, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError(op, "document not found")
		}
		return nil, storageErr(op, fmt.Errorf("scanning document: %w", err))
	}
	doc.Granularity = domain.Granularity(granularity)
	return &doc, nil
}
