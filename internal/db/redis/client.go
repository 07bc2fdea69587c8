// Package redis implements the key-value facade on Redis or Valkey via rueidis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/rueidis"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	clientName      = "faq-assistant"
	defaultDialWait = 5 * time.Second

	readyFirstDelay = 50 * time.Millisecond
	readyMaxDelay   = time.Second
)

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// DialTimeout defaults to 5s.
	DialTimeout time.Duration
}

// Store implements db.Store. Client-side caching is off: chunk hashes are
// rewritten on every re-index and the scan reads them all anyway.
type Store struct {
	client rueidis.Client
}

// NewStore connects to the first reachable address.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = defaultDialWait
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		Dialer:       net.Dialer{Timeout: dial},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings immediately, then with doubling delays capped at 1s,
// until the store answers or timeout expires. Containers started together
// with faqd usually need a few hundred milliseconds.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := readyFirstDelay
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("store not ready after %s: %w", timeout, err)
		case <-t.C:
		}
		delay = min(delay*2, readyMaxDelay)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
