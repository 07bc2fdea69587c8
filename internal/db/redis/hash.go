package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/db"
)

// pipelineBatch caps commands per DoMulti. A similarity scan reads every chunk
// hash with its vector, so one pipeline for the whole corpus would buffer it all at once.
const pipelineBatch = 256

func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := s.do(ctx, s.hset(key, fields)).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HSetMulti stores chunk hashes in pipelined batches. On error, earlier
// batches stay written; callers re-index the whole document.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.hset(item.Key, item.Fields)
	}
	return s.pipeline(ctx, cmds, func(i int, res rueidis.RedisResult) error {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
		return nil
	})
}

// HGetAll returns all fields of a hash; a missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// HGetAllMulti reads many hashes in pipelined batches, preserving key order.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	out := make([]map[string]string, len(keys))
	err := s.pipeline(ctx, cmds, func(i int, res rueidis.RedisResult) error {
		m, err := res.AsStrMap()
		if err != nil {
			return &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// pipeline sends cmds in batches of pipelineBatch and hands each result to fn
// with its index in cmds. It stops at the first error fn returns.
func (s *Store) pipeline(ctx context.Context, cmds []rueidis.Completed, fn func(i int, res rueidis.RedisResult) error) error {
	for lo := 0; lo < len(cmds); lo += pipelineBatch {
		hi := min(lo+pipelineBatch, len(cmds))
		for j, res := range s.client.DoMulti(ctx, cmds[lo:hi]...) {
			if err := fn(lo+j, res); err != nil {
				return err
			}
		}
	}
	return nil
}

// Del deletes keys.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.do(ctx, s.b().Del().Key(keys...).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.do(ctx, s.b().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return n > 0, nil
}
