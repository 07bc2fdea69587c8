package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/db"
)

// Get returns the raw value, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// SetWithTTL stores value as a binary-safe string with millisecond TTL precision.
// A non-positive ttl stores without expiry.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var cmd rueidis.Completed
	if set := s.b().Set().Key(key).Value(rueidis.BinaryString(value)); ttl > 0 {
		cmd = set.Px(ttl).Build()
	} else {
		cmd = set.Build()
	}
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
