// Package redis stores documents and chunks as Redis hashes indexed by plain sets.
package redis

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/db"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
)

// scanPage bounds a single HGETALL pipeline when walking the chunk index.
const scanPage = 256

// store is the consumer interface for the chunk store (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo implements rag.ChunkStore on Redis or Valkey.
//
// Key layout:
//
//	faq:doc:{id}          document hash
//	faq:doc_chunks:{id}   set of the document's chunk ids
//	faq:chunk:{chunkID}   chunk hash (vector as little-endian float64 bytes)
//	faq:chunks            set of every chunk id
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a Redis chunk store.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("chunk store ping: %w", err)
	}
	return nil
}

// GetChunksForSearch returns up to limit chunks of completed documents,
// ordered by document id then chunk index. limit <= 0 means no limit.
// The limit counts completed chunks only: the index is walked page by page
// until enough are collected.
func (r *Repo) GetChunksForSearch(ctx context.Context, limit int) ([]chunk.Chunk, error) {
	ids, err := r.sortedChunkIDs(ctx)
	if err != nil {
		return nil, err
	}

	completed := make(map[string]bool)
	var out []chunk.Chunk
	for start := 0; start < len(ids); start += scanPage {
		end := min(start+scanPage, len(ids))
		page, err := r.loadChunks(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		if err := r.resolveCompleted(ctx, page, completed); err != nil {
			return nil, err
		}
		for _, c := range page {
			if !completed[c.DocumentID()] {
				continue
			}
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// resolveCompleted records, for each document of chunks not yet in known,
// whether it exists and is completed.
func (r *Repo) resolveCompleted(ctx context.Context, chunks []chunk.Chunk, known map[string]bool) error {
	var pending []string
	for i := range chunks {
		id := chunks[i].DocumentID()
		if _, ok := known[id]; !ok {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	docs, err := r.GetDocuments(ctx, pending)
	if err != nil {
		return err
	}
	for _, id := range pending {
		d, ok := docs[id]
		known[id] = ok && d.Status() == domdoc.StatusCompleted
	}
	return nil
}

// ListFallbackChunks returns up to limit chunks whose vectors came from the hash embedder.
func (r *Repo) ListFallbackChunks(ctx context.Context, limit int) ([]chunk.Chunk, error) {
	ids, err := r.sortedChunkIDs(ctx)
	if err != nil {
		return nil, err
	}

	var out []chunk.Chunk
	for start := 0; start < len(ids); start += scanPage {
		end := min(start+scanPage, len(ids))
		page, err := r.loadChunks(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			if !c.IsFallback() {
				continue
			}
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// PutChunks upserts chunks and registers them in the document and global indexes.
func (r *Repo) PutChunks(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	all := make([]string, len(chunks))
	byDoc := make(map[string][]string)
	for i := range chunks {
		c := &chunks[i]
		items[i] = db.HashSetItem{Key: chunkKey(c.ID()), Fields: buildChunkFields(c)}
		all[i] = c.ID()
		byDoc[c.DocumentID()] = append(byDoc[c.DocumentID()], c.ID())
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}
	for docID, ids := range byDoc {
		if err := r.store.SAdd(ctx, docChunksKey(docID), ids...); err != nil {
			return fmt.Errorf("index chunks of %s: %w", docID, err)
		}
	}
	if err := r.store.SAdd(ctx, allChunksKey(), all...); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	return nil
}

// UpdateEmbeddings overwrites the vector, model and dimension of chunks whose
// stored content still equals the chunk's content. Chunks that were deleted or
// re-indexed with different text are skipped. It returns how many were written.
func (r *Repo) UpdateEmbeddings(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	keys := make([]string, len(chunks))
	for i := range chunks {
		keys[i] = chunkKey(chunks[i].ID())
	}
	current, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("hgetall chunks: %w", err)
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if current[i][fieldContent] != c.Content() {
			continue
		}
		items = append(items, db.HashSetItem{Key: keys[i], Fields: buildVectorFields(c)})
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("write vectors: %w", err)
	}
	return len(items), nil
}

// DeleteDocumentChunks removes every chunk of a document. Missing documents are a no-op.
func (r *Repo) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	setKey := docChunksKey(documentID)
	ids, err := r.store.SMembers(ctx, setKey)
	if err != nil {
		return fmt.Errorf("list chunks of %s: %w", documentID, err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := r.store.SRem(ctx, allChunksKey(), ids...); err != nil {
		return fmt.Errorf("unindex chunks of %s: %w", documentID, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, chunkKey(id))
	}
	keys = append(keys, setKey)
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}

// GetDocument returns a document by id.
func (r *Repo) GetDocument(ctx context.Context, id string) (domdoc.Document, error) {
	m, err := r.store.HGetAll(ctx, docKey(id))
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall document %s: %w", id, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return parseDocumentFields(id, m), nil
}

// GetDocuments returns the documents that exist among ids. Missing ids are omitted.
func (r *Repo) GetDocuments(ctx context.Context, ids []string) (map[string]domdoc.Document, error) {
	out := make(map[string]domdoc.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	uniq := dedupe(ids)

	keys := make([]string, len(uniq))
	for i, id := range uniq {
		keys[i] = docKey(id)
	}
	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall documents: %w", err)
	}
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		out[uniq[i]] = parseDocumentFields(uniq[i], m)
	}
	return out, nil
}

// PutDocument writes the full document hash.
func (r *Repo) PutDocument(ctx context.Context, doc domdoc.Document) error {
	if err := r.store.HSet(ctx, docKey(doc.ID()), buildDocumentFields(&doc)); err != nil {
		return fmt.Errorf("hset document %s: %w", doc.ID(), err)
	}
	return nil
}

// UpdateDocumentStatus sets the lifecycle status of an existing document.
func (r *Repo) UpdateDocumentStatus(ctx context.Context, id string, status domdoc.Status) error {
	key := docKey(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	fields := map[string]string{
		fieldStatus:    string(status),
		fieldUpdatedAt: formatTime(r.now()),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset status %s: %w", key, err)
	}
	return nil
}

func (r *Repo) sortedChunkIDs(ctx context.Context) ([]string, error) {
	ids, err := r.store.SMembers(ctx, allChunksKey())
	if err != nil {
		return nil, fmt.Errorf("list chunk index: %w", err)
	}
	sortChunkIDs(ids)
	return ids, nil
}

// loadChunks fetches chunk hashes. Ids whose hash has vanished are skipped.
func (r *Repo) loadChunks(ctx context.Context, ids []string) ([]chunk.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = chunkKey(id)
	}
	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall chunks: %w", err)
	}

	out := make([]chunk.Chunk, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		out = append(out, parseChunkFields(ids[i], m))
	}
	return out, nil
}

// sortChunkIDs orders ids by document id, then by numeric chunk index.
// An id without a chunk suffix sorts as its own document with index -1.
func sortChunkIDs(ids []string) {
	slices.SortFunc(ids, func(a, b string) int {
		docA, idxA := sortKey(a)
		docB, idxB := sortKey(b)
		if c := strings.Compare(docA, docB); c != 0 {
			return c
		}
		return cmp.Compare(idxA, idxB)
	})
}

func sortKey(id string) (string, int) {
	if doc, n, ok := chunk.ParseID(id); ok {
		return doc, n
	}
	return id, -1
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func docKey(id string) string { return domain.KeyPrefix + "doc:" + id }

func docChunksKey(id string) string { return domain.KeyPrefix + "doc_chunks:" + id }

func chunkKey(id string) string { return domain.KeyPrefix + "chunk:" + id }

func allChunksKey() string { return domain.KeyPrefix + "chunks" }
