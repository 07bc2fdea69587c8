package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/db"
	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/chunk"
	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
)

// memStore is an in-memory implementation of the consumer interface.
type memStore struct {
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}

	pingErr  error
	hsetErr  error
	multiErr error
}

func newMemStore() *memStore {
	return &memStore{
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	for _, it := range items {
		_ = m.HSet(ctx, it.Key, it.Fields)
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string)
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.multiErr != nil {
		return nil, m.multiErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = m.HGetAll(ctx, k)
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.hashes, k)
		delete(m.sets, k)
	}
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, h := m.hashes[key]
	_, s := m.sets[key]
	return h || s, nil
}

func (m *memStore) SAdd(_ context.Context, key string, members ...string) error {
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	for _, mem := range members {
		s[mem] = struct{}{}
	}
	return nil
}

func (m *memStore) SRem(_ context.Context, key string, members ...string) error {
	for _, mem := range members {
		delete(m.sets[key], mem)
	}
	return nil
}

func (m *memStore) SMembers(_ context.Context, key string) ([]string, error) {
	out := make([]string, 0, len(m.sets[key]))
	for mem := range m.sets[key] {
		out = append(out, mem)
	}
	return out, nil
}

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	ms := newMemStore()
	repo := New(ms)
	repo.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return repo, ms
}

func testDocument(t *testing.T, id string, status domdoc.Status) domdoc.Document {
	t.Helper()
	created := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	return domdoc.Reconstruct(id, "광고 정책", domdoc.SourceURL, status,
		"https://www.facebook.com/policies/ads", 2, created, created)
}

func testChunk(t *testing.T, docID string, index int, model string, vec []float64) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(docID, index, "광고 검토 기준 본문", vec, chunk.Metadata{
		Title:      "광고 정책",
		SourceType: "url",
		Model:      model,
	})
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}
