// Package redis implements the tiercache durable store on Redis, for
// deployments that already run a persistent (AOF/RDB) Redis and prefer it
// over a local database file.
//
// Layout per store prefix:
//
//	<prefix>:row:<key>  HASH  value / ts / ver / size
//	<prefix>:lru        ZSET  member=key, score=timestamp
//	<prefix>:bytes      running Σ size
//
// Redis orders equal ZSET scores lexicographically by member, which matches
// the engine's (timestamp, key) victim order exactly. Scores are float64,
// so timestamps lose sub-microsecond precision; entries written within the
// same ~256ns window fall back to the lexicographic tie-break, which the
// engine treats as correct LRU order anyway.
package redis

import (
	"context"
	"errors"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/tiercache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

const defaultPrefix = "tiercache"

type Store struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var _ store.Store = (*Store)(nil)

type Config struct {
	Client goredis.UniversalClient
	Prefix string // key prefix; defaults to "tiercache"

	// CloseClient releases the client on Close. Set true only if this
	// store exclusively owns the client.
	CloseClient bool
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: cfg.Client, prefix: prefix, closeClient: cfg.CloseClient}, nil
}

func (s *Store) rowKey(key string) string { return s.prefix + ":row:" + key }
func (s *Store) lruKey() string           { return s.prefix + ":lru" }
func (s *Store) bytesKey() string         { return s.prefix + ":bytes" }

func (s *Store) Get(ctx context.Context, key string) (store.Row, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, s.rowKey(key)).Result()
	if err != nil {
		return store.Row{}, false, err
	}
	if len(vals) == 0 {
		return store.Row{}, false, nil
	}
	ts, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return store.Row{}, false, err
	}
	size, err := strconv.ParseInt(vals["size"], 10, 64)
	if err != nil {
		return store.Row{}, false, err
	}
	return store.Row{
		Key:           key,
		Value:         []byte(vals["value"]),
		Timestamp:     ts,
		SchemaVersion: vals["ver"],
		Size:          size,
	}, true, nil
}

func (s *Store) Put(ctx context.Context, row store.Row) error {
	return s.PutAll(ctx, []store.Row{row})
}

// PutAll reads replaced sizes first so the byte total can be adjusted inside
// the same MULTI as the row writes. Rows must have distinct keys (the engine
// derives them from a map).
func (s *Store) PutAll(ctx context.Context, rows []store.Row) error {
	if len(rows) == 0 {
		return nil
	}
	var delta int64
	for _, r := range rows {
		old, err := s.rdb.HGet(ctx, s.rowKey(r.Key), "size").Int64()
		if err != nil && err != goredis.Nil {
			return err
		}
		if err == nil {
			delta -= old
		}
		delta += r.Size
	}

	pipe := s.rdb.TxPipeline()
	for _, r := range rows {
		pipe.HSet(ctx, s.rowKey(r.Key),
			"value", r.Value,
			"ts", r.Timestamp,
			"ver", r.SchemaVersion,
			"size", r.Size)
		pipe.ZAdd(ctx, s.lruKey(), goredis.Z{Score: float64(r.Timestamp), Member: r.Key})
	}
	if delta != 0 {
		pipe.IncrBy(ctx, s.bytesKey(), delta)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.DeleteAll(ctx, []string{key})
}

func (s *Store) DeleteAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	var delta int64
	present := make([]string, 0, len(keys))
	for _, key := range keys {
		size, err := s.rdb.HGet(ctx, s.rowKey(key), "size").Int64()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		delta -= size
		present = append(present, key)
	}
	if len(present) == 0 {
		return nil
	}

	pipe := s.rdb.TxPipeline()
	for _, key := range present {
		pipe.Del(ctx, s.rowKey(key))
		pipe.ZRem(ctx, s.lruKey(), key)
	}
	pipe.IncrBy(ctx, s.bytesKey(), delta)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Touch(ctx context.Context, key string, ts int64) error {
	ok, err := s.rdb.HExists(ctx, s.rowKey(key), "ts").Result()
	if err != nil || !ok {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.rowKey(key), "ts", ts)
	pipe.ZAdd(ctx, s.lruKey(), goredis.Z{Score: float64(ts), Member: key})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Victim(ctx context.Context) (string, int64, bool, error) {
	for {
		members, err := s.rdb.ZRange(ctx, s.lruKey(), 0, 0).Result()
		if err != nil {
			return "", 0, false, err
		}
		if len(members) == 0 {
			return "", 0, false, nil
		}
		key := members[0]
		size, err := s.rdb.HGet(ctx, s.rowKey(key), "size").Int64()
		if err == goredis.Nil {
			// index orphan (row lost out of band); drop and rescan
			if err := s.rdb.ZRem(ctx, s.lruKey(), key).Err(); err != nil {
				return "", 0, false, err
			}
			continue
		}
		if err != nil {
			return "", 0, false, err
		}
		return key, size, true, nil
	}
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.rdb.ZCard(ctx, s.lruKey()).Result()
}

func (s *Store) TotalSize(ctx context.Context) (int64, error) {
	n, err := s.rdb.Get(ctx, s.bytesKey()).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	return n, err
}

func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.rdb.ZRange(ctx, s.lruKey(), 0, -1).Result()
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, s.rowKey(key))
	}
	pipe.Del(ctx, s.lruKey(), s.bytesKey())
	_, err = pipe.Exec(ctx)
	return err
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
