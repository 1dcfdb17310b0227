package viewstate

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// putScript stores the entry unless a higher seq is already there or the key
// was fenced after the seq was reserved.
var putScript = redis.NewScript(`
local fence = redis.call('GET', KEYS[2])
if fence and tonumber(fence) > tonumber(ARGV[1]) then
  return 0
end
local cur = redis.call('HGET', KEYS[1], 'seq')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'seq', ARGV[1], 'data', ARGV[2], 'at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// fenceScript takes a fresh seq for a key, records it as the key's fence and
// drops the cached entry.
var fenceScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
redis.call('SET', KEYS[2], n, 'PX', ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[1])
redis.call('DEL', KEYS[3])
return n
`)

// unlockScript releases a lock only if it is still ours.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore shares view state between gateway instances.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "crmdesk:view:", ttl: ttl}
}

func (s *RedisStore) dataKey(key string) string { return s.prefix + "data:" + key }
func (s *RedisStore) seqKey(key string) string { return s.prefix + "seq:" + key }
func (s *RedisStore) lockKey(key string) string { return s.prefix + "lock:" + key }
func (s *RedisStore) fenceKey(key string) string { return s.prefix + "fence:" + key }

func (s *RedisStore) NextSeq(ctx context.Context, key string) (uint64, error) {
	k := s.seqKey(key)
	n, err := s.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	// Counters outlive the data they number.
	s.rdb.Expire(ctx, k, 2*s.ttl)
	return uint64(n), nil
}

func (s *RedisStore) Put(ctx context.Context, key string, seq uint64, data []byte) (bool, error) {
	res, err := putScript.Run(ctx, s.rdb, []string{s.dataKey(key), s.fenceKey(key)},
		seq, data, time.Now().UnixMilli(), s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	vals, err := s.rdb.HGetAll(ctx, s.dataKey(key)).Result()
	if err != nil {
		return Entry{}, err
	}
	if len(vals) == 0 {
		return Entry{}, ErrMiss
	}
	seq, err := strconv.ParseUint(vals["seq"], 10, 64)
	if err != nil {
		return Entry{}, ErrMiss
	}
	at, _ := strconv.ParseInt(vals["at"], 10, 64)
	return Entry{Seq: seq, Data: []byte(vals["data"]), StoredAt: time.UnixMilli(at)}, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.dataKey(key)).Err()
}

func (s *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) error {
	// Every key with a fetch in flight has a seq counter; fence those.
	seqPrefix := s.seqKey("")
	iter := s.rdb.Scan(ctx, 0, s.seqKey(prefix)+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), seqPrefix)
		err := fenceScript.Run(ctx, s.rdb, []string{s.seqKey(key), s.fenceKey(key), s.dataKey(key)},
			(2 * s.ttl).Milliseconds()).Err()
		if err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return s.deleteData(ctx, prefix)
}

// deleteData removes cached entries under prefix that have no seq counter left.
func (s *RedisStore) deleteData(ctx context.Context, prefix string) error {
	iter := s.rdb.Scan(ctx, 0, s.dataKey(prefix)+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	k := s.lockKey(key)
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	// The lock expires on its own if the release below is lost.
	return func() {
		_ = unlockScript.Run(context.Background(), s.rdb, []string{k}, token).Err()
	}, true, nil
}
