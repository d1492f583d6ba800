// Package redis mirrors ledgers into Redis as JSON documents.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dailybudget/internal/core"
	"dailybudget/internal/ports"
)

const maxTxRetries = 3

type Client struct {
	rdb    *redis.Client
	prefix string
}

// Connect parses redisURL (bare host:port is accepted) and pings the server.
func Connect(ctx context.Context, redisURL, prefix string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: strings.TrimPrefix(redisURL, "redis://")}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return New(rdb, prefix), nil
}

func New(rdb *redis.Client, prefix string) *Client {
	return &Client{rdb: rdb, prefix: prefix}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key returns the Redis key holding the ledger of a period.
func Key(prefix string, key core.PeriodKey) string {
	return fmt.Sprintf("%s:ledger:%s", prefix, key)
}

// Push implements ports.RemoteSync. The write only happens when the stored
// version is older; an equal version is a no-op.
func (c *Client) Push(ctx context.Context, l core.Ledger) error {
	data, err := core.MarshalLedger(l)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	k := Key(c.prefix, l.Config.Key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			remote, err := core.UnmarshalLedger(current)
			if err == nil {
				if err := checkVersion(remote.Version, l.Version); err != nil {
					return err
				}
				if remote.Version == l.Version {
					return nil
				}
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = c.rdb.Watch(ctx, txf, k)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("push %s: %w", k, err)
	}
	return nil
}

// Pull implements ports.RemoteSync.
func (c *Client) Pull(ctx context.Context, key core.PeriodKey) (*core.Ledger, error) {
	k := Key(c.prefix, key)
	data, err := c.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", k, err)
	}
	l, err := core.UnmarshalLedger(data)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", k, err)
	}
	return &l, nil
}

func checkVersion(remote, local int64) error {
	if remote > local {
		return fmt.Errorf("%w: remote v%d, local v%d", ports.ErrRemoteAhead, remote, local)
	}
	return nil
}
