// Package postgres stores documents and chunks in PostgreSQL with pgvector.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
)

// Config holds pool settings.
type Config struct {
	URL      string
	MaxConns int32
}

// NewPool creates a pgx pool and verifies connectivity.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const chunkColumns = `c.id, c.document_id, c.chunk_index, c.content, c.embedding::real[],
	c.model, c.dimension, c.title, c.source_type, c.url, c.chunk_type`

const documentColumns = `id, title, source_type, status, url, chunk_count, created_at, updated_at`

// Store implements rag.ChunkStore on PostgreSQL.
// Vectors are stored as pgvector single precision.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New creates a Postgres chunk store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("chunk store ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// GetChunksForSearch returns up to limit chunks of completed documents,
// ordered by document id then chunk index. limit <= 0 means no limit.
func (s *Store) GetChunksForSearch(ctx context.Context, limit int) ([]chunk.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = $1
		ORDER BY c.document_id, c.chunk_index
		LIMIT NULLIF($2::int, 0)`,
		string(domdoc.StatusCompleted), max(limit, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	return collectChunks(rows)
}

// ListFallbackChunks returns up to limit chunks whose vectors came from the hash embedder.
func (s *Store) ListFallbackChunks(ctx context.Context, limit int) ([]chunk.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM document_chunks c
		WHERE c.model = $1
		ORDER BY c.document_id, c.chunk_index
		LIMIT NULLIF($2::int, 0)`,
		domain.FallbackModel, max(limit, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("query fallback chunks: %w", err)
	}
	return collectChunks(rows)
}

// PutChunks upserts chunks in one transaction.
func (s *Store) PutChunks(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range chunks {
		c := &chunks[i]
		md := c.Metadata()
		batch.Queue(`
			INSERT INTO document_chunks
				(id, document_id, chunk_index, content, embedding, model, dimension, title, source_type, url, chunk_type)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				model = EXCLUDED.model,
				dimension = EXCLUDED.dimension,
				title = EXCLUDED.title,
				source_type = EXCLUDED.source_type,
				url = EXCLUDED.url,
				chunk_type = EXCLUDED.chunk_type`,
			c.ID(), c.DocumentID(), c.Index(), c.Content(),
			pgvector.NewVector(toFloat32(c.Embedding())),
			md.Model, md.Dimension, md.Title, md.SourceType, md.URL, string(md.ChunkType),
		)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for range chunks {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return err
			}
		}
		return br.Close()
	})
	if err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

// UpdateEmbeddings overwrites the vector, model and dimension of chunks whose
// stored content still equals the chunk's content. It returns how many rows changed.
func (s *Store) UpdateEmbeddings(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i := range chunks {
		c := &chunks[i]
		md := c.Metadata()
		batch.Queue(`
			UPDATE document_chunks
			SET embedding = $2, model = $3, dimension = $4
			WHERE id = $1 AND content = $5`,
			c.ID(), pgvector.NewVector(toFloat32(c.Embedding())), md.Model, md.Dimension, c.Content(),
		)
	}

	var updated int
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		updated = 0
		br := tx.SendBatch(ctx, batch)
		for range chunks {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return err
			}
			updated += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("update embeddings: %w", err)
	}
	return updated, nil
}

// DeleteDocumentChunks removes every chunk of a document.
func (s *Store) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}

// GetDocument returns a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (domdoc.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// GetDocuments returns the documents that exist among ids. Missing ids are omitted.
func (s *Store) GetDocuments(ctx context.Context, ids []string) (map[string]domdoc.Document, error) {
	out := make(map[string]domdoc.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out[doc.ID()] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// PutDocument upserts the full document row.
func (s *Store) PutDocument(ctx context.Context, doc domdoc.Document) error {
	created, updated := doc.CreatedAt(), doc.UpdatedAt()
	if created.IsZero() {
		created = s.now().UTC()
	}
	if updated.IsZero() {
		updated = created
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			source_type = EXCLUDED.source_type,
			status = EXCLUDED.status,
			url = EXCLUDED.url,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at`,
		doc.ID(), doc.Title(), string(doc.SourceType()), string(doc.Status()), doc.URL(),
		doc.ChunkCount(), created, updated,
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID(), err)
	}
	return nil
}

// UpdateDocumentStatus sets the lifecycle status of an existing document.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status domdoc.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func collectChunks(rows pgx.Rows) ([]chunk.Chunk, error) {
	defer rows.Close()

	var out []chunk.Chunk
	for rows.Next() {
		var (
			id, docID, content, model  string
			title, sourceType, url, ct string
			index, dim                 int
			vec                        []float32
		)
		if err := rows.Scan(&id, &docID, &index, &content, &vec,
			&model, &dim, &title, &sourceType, &url, &ct); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, chunk.Reconstruct(id, docID, index, content, toFloat64(vec), chunk.Metadata{
			Title:      title,
			SourceType: sourceType,
			URL:        url,
			Model:      model,
			Dimension:  dim,
			ChunkType:  chunk.Type(ct),
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func scanDocument(row pgx.Row) (domdoc.Document, error) {
	var (
		id, title, sourceType, status, url string
		count                              int
		created, updated                   time.Time
	)
	if err := row.Scan(&id, &title, &sourceType, &status, &url, &count, &created, &updated); err != nil {
		return domdoc.Document{}, err //nolint:wrapcheck // callers wrap with context
	}
	return domdoc.Reconstruct(id, title, domdoc.SourceType(sourceType), domdoc.Status(status), url,
		count, created, updated), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
