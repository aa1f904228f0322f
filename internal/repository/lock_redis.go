package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

// Each lock is a hash: locked_by, payload (DraftLock JSON), expires_at_ms,
// created_at_ms. Redis expires the key one millisecond after the lock
// expires; the scripts also compare against the caller's clock so expiry
// stays lazy and consistent with the in-memory store.
var acquireLockScript = redis.NewScript(`
local holder = redis.call('HGET', KEYS[1], 'locked_by')
local created = ARGV[5]
if holder then
	local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at_ms'))
	if exp and exp >= tonumber(ARGV[3]) then
		if holder ~= ARGV[1] then
			return {0, redis.call('HGET', KEYS[1], 'payload'), redis.call('HGET', KEYS[1], 'created_at_ms')}
		end
		created = redis.call('HGET', KEYS[1], 'created_at_ms')
	end
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'locked_by', ARGV[1], 'payload', ARGV[2], 'expires_at_ms', ARGV[4], 'created_at_ms', created)
redis.call('PEXPIREAT', KEYS[1], tonumber(ARGV[4]) + 1)
redis.call('SADD', KEYS[2], KEYS[1])
return {1, ARGV[2], created}
`)

var releaseLockScript = redis.NewScript(`
local holder = redis.call('HGET', KEYS[1], 'locked_by')
if not holder then
	redis.call('SREM', KEYS[2], KEYS[1])
	return 0
end
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at_ms'))
if exp < tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
	redis.call('SREM', KEYS[2], KEYS[1])
	return 0
end
if holder ~= ARGV[1] then
	return -1
end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[2], KEYS[1])
return 1
`)

// RedisLockStore keeps draft locks in Redis so every API replica sees the
// same claims.
type RedisLockStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLockStore creates a lock store; prefix namespaces all keys
func NewRedisLockStore(client redis.UniversalClient, prefix string) *RedisLockStore {
	if prefix == "" {
		prefix = "raidplan"
	}
	return &RedisLockStore{client: client, prefix: prefix}
}

func (s *RedisLockStore) lockKey(key model.LockKey) string {
	return fmt.Sprintf("%s:lock:%s:%s:%s", s.prefix, key.EventID, key.ParticipantType, key.ParticipantID)
}

func (s *RedisLockStore) indexKey(eventID string) string {
	return fmt.Sprintf("%s:locks:%s", s.prefix, eventID)
}

// Acquire installs lock unless a live lock held by someone else exists
func (s *RedisLockStore) Acquire(ctx context.Context, lock *model.DraftLock, now time.Time) (*model.DraftLock, error) {
	payload, err := json.Marshal(lock)
	if err != nil {
		return nil, fmt.Errorf("encode lock: %w", err)
	}

	res, err := acquireLockScript.Run(ctx, s.client,
		[]string{s.lockKey(lock.Key()), s.indexKey(lock.EventID)},
		lock.LockedBy, string(payload), now.UnixMilli(), lock.ExpiresAt.UnixMilli(), lock.CreatedAt.UnixMilli(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire lock: %v", database.ErrQuery, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("%w: acquire lock: unexpected reply %v", database.ErrQuery, res)
	}

	stored, err := decodeRedisLock(res[1], res[2])
	if err != nil {
		return nil, err
	}
	if ok, _ := res[0].(int64); ok != 1 {
		return nil, &model.LockConflictError{Holder: stored}
	}
	return stored, nil
}

// Get returns the live lock for key, or nil
func (s *RedisLockStore) Get(ctx context.Context, key model.LockKey, now time.Time) (*model.DraftLock, error) {
	vals, err := s.client.HMGet(ctx, s.lockKey(key), "payload", "created_at_ms").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: get lock: %v", database.ErrQuery, err)
	}
	if vals[0] == nil {
		return nil, nil
	}
	lock, err := decodeRedisLock(vals[0], vals[1])
	if err != nil {
		return nil, err
	}
	if lock.IsExpired(now) {
		return nil, nil
	}
	return lock, nil
}

// Release deletes the lock when requestedBy holds it
func (s *RedisLockStore) Release(ctx context.Context, key model.LockKey, requestedBy string, now time.Time) (bool, error) {
	res, err := releaseLockScript.Run(ctx, s.client,
		[]string{s.lockKey(key), s.indexKey(key.EventID)},
		requestedBy, now.UnixMilli(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: release lock: %v", database.ErrQuery, err)
	}
	switch res {
	case 1:
		return true, nil
	case -1:
		return false, model.ErrLockNotHeld
	}
	return false, nil
}

// ListByEvent returns the live locks of one event and prunes stale index entries
func (s *RedisLockStore) ListByEvent(ctx context.Context, eventID string, now time.Time) ([]*model.DraftLock, error) {
	locks, stale, err := s.scanEvent(ctx, eventID, now)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, s.indexKey(eventID), stale...).Err()
	}
	return locks, nil
}

// DeleteByEvent removes the event's locks held by holder, or all of them
// when holder is empty
func (s *RedisLockStore) DeleteByEvent(ctx context.Context, eventID, holder string) (int, error) {
	locks, _, err := s.scanEvent(ctx, eventID, time.Time{})
	if err != nil {
		return 0, err
	}

	var keys []string
	for _, l := range locks {
		if holder == "" || l.LockedBy == holder {
			keys = append(keys, s.lockKey(l.Key()))
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, s.indexKey(eventID), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: delete locks: %v", database.ErrQuery, err)
	}
	return len(keys), nil
}

// Sweep prunes index entries whose lock keys Redis already expired
func (s *RedisLockStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, s.prefix+":locks:*", 100).Iterator()
	for iter.Next(ctx) {
		index := iter.Val()
		members, err := s.client.SMembers(ctx, index).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: sweep: %v", database.ErrQuery, err)
		}
		for _, member := range members {
			n, err := s.client.Exists(ctx, member).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: sweep: %v", database.ErrQuery, err)
			}
			if n == 0 {
				if err := s.client.SRem(ctx, index, member).Err(); err == nil {
					removed++
				}
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: sweep: %v", database.ErrQuery, err)
	}
	return removed, nil
}

// scanEvent loads every lock in the event index. A zero now returns
// expired locks too. The second result lists index members with no lock.
func (s *RedisLockStore) scanEvent(ctx context.Context, eventID string, now time.Time) ([]*model.DraftLock, []interface{}, error) {
	members, err := s.client.SMembers(ctx, s.indexKey(eventID)).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: list locks: %v", database.ErrQuery, err)
	}
	if len(members) == 0 {
		return nil, nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(members))
	for i, m := range members {
		cmds[i] = pipe.HMGet(ctx, m, "payload", "created_at_ms")
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, nil, fmt.Errorf("%w: list locks: %v", database.ErrQuery, err)
	}

	var (
		locks []*model.DraftLock
		stale []interface{}
	)
	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || vals[0] == nil {
			stale = append(stale, members[i])
			continue
		}
		lock, err := decodeRedisLock(vals[0], vals[1])
		if err != nil {
			return nil, nil, err
		}
		if !now.IsZero() && lock.IsExpired(now) {
			continue
		}
		locks = append(locks, lock)
	}
	return locks, stale, nil
}

func decodeRedisLock(payload, createdAtMs interface{}) (*model.DraftLock, error) {
	raw, ok := payload.(string)
	if !ok {
		return nil, fmt.Errorf("%w: lock payload %T", database.ErrQuery, payload)
	}
	var lock model.DraftLock
	if err := json.Unmarshal([]byte(raw), &lock); err != nil {
		return nil, fmt.Errorf("decode lock: %w", err)
	}
	if s, ok := createdAtMs.(string); ok {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			lock.CreatedAt = time.UnixMilli(ms).UTC()
		}
	}
	return &lock, nil
}
