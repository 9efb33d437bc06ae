package persistentlogin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "persistent_login:"

// Each token lives in a hash under <prefix>token:<series>:<instance>. A sorted
// set per user (<prefix>user:<id>) and a global set scored by expiry
// (<prefix>expires) index the members "<series>:<instance>", and the hash
// <prefix>series maps each live series to its current instance. Scripts
// derive per-user keys from the prefix, so the store assumes a single Redis
// node or a hash-tagged prefix.

const insertScript = `
local token_key = KEYS[1]
local user_key = KEYS[2]
local expires_key = KEYS[3]
local series_key = KEYS[4]
local member = ARGV[1]
if redis.call("EXISTS", token_key) == 1 then
  return redis.error_reply("token already exists")
end
redis.call("HSET", token_key,
  "user_id", ARGV[2], "series", ARGV[3], "instance", ARGV[4],
  "created", ARGV[5], "refreshed", ARGV[6], "expires", ARGV[7])
redis.call("ZADD", user_key, ARGV[5], member)
redis.call("ZADD", expires_key, ARGV[7], member)
redis.call("HSET", series_key, ARGV[3], ARGV[4])
return 1
`

const rotateScript = `
local old_key = KEYS[1]
local new_key = KEYS[2]
local expires_key = KEYS[3]
local series_key = KEYS[4]
local old_member = ARGV[1]
local new_member = ARGV[2]
local series = ARGV[6]
local user_prefix = ARGV[5]
if redis.call("EXISTS", old_key) == 0 then
  return 0
end
if redis.call("EXISTS", new_key) == 1 then
  return redis.error_reply("rotation target already exists")
end
local user_id = redis.call("HGET", old_key, "user_id")
local created = redis.call("HGET", old_key, "created")
local expires = redis.call("HGET", old_key, "expires")
redis.call("RENAME", old_key, new_key)
redis.call("HSET", new_key, "instance", ARGV[3], "refreshed", ARGV[4])
local user_key = user_prefix .. user_id
redis.call("ZREM", user_key, old_member)
redis.call("ZADD", user_key, created, new_member)
redis.call("ZREM", expires_key, old_member)
redis.call("ZADD", expires_key, expires, new_member)
redis.call("HSET", series_key, series, ARGV[3])
return 1
`

// removeTokenLua is shared by the delete scripts. It drops the token hash
// and every index entry pointing at it, returning 1 when the hash existed.
const removeTokenLua = `
local function remove_token(token_prefix, user_prefix, expires_key, series_key, member)
  local token_key = token_prefix .. member
  local fields = redis.call("HMGET", token_key, "user_id", "series", "instance")
  redis.call("ZREM", expires_key, member)
  if not fields[1] then
    return 0
  end
  redis.call("ZREM", user_prefix .. fields[1], member)
  if redis.call("HGET", series_key, fields[2]) == fields[3] then
    redis.call("HDEL", series_key, fields[2])
  end
  return redis.call("DEL", token_key)
end
`

const deleteScript = removeTokenLua + `
return remove_token(ARGV[1], ARGV[2], KEYS[1], KEYS[2], ARGV[3])
`

const deleteSeriesScript = removeTokenLua + `
local instance = redis.call("HGET", KEYS[2], ARGV[3])
if not instance then
  return 0
end
return remove_token(ARGV[1], ARGV[2], KEYS[1], KEYS[2], ARGV[3] .. ":" .. instance)
`

const deleteExpiredScript = removeTokenLua + `
local members = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[3])
local removed = 0
for _, member in ipairs(members) do
  removed = removed + remove_token(ARGV[1], ARGV[2], KEYS[1], KEYS[2], member)
end
return removed
`

const deleteOlderOrEqualScript = removeTokenLua + `
local user_key = KEYS[3]
local max_expires = tonumber(ARGV[4])
local members = redis.call("ZRANGEBYSCORE", user_key, "-inf", ARGV[3])
local removed = 0
for _, member in ipairs(members) do
  local expires = tonumber(redis.call("HGET", ARGV[1] .. member, "expires"))
  if expires == nil then
    redis.call("ZREM", user_key, member)
  elseif expires <= max_expires then
    removed = removed + remove_token(ARGV[1], ARGV[2], KEYS[1], KEYS[2], member)
  end
end
return removed
`

const deleteByUserScript = removeTokenLua + `
local user_key = KEYS[3]
local members = redis.call("ZRANGE", user_key, 0, -1)
local removed = 0
for _, member in ipairs(members) do
  removed = removed + remove_token(ARGV[1], ARGV[2], KEYS[1], KEYS[2], member)
end
redis.call("DEL", user_key)
return removed
`

var (
	insertLua             = redis.NewScript(insertScript)
	rotateLua             = redis.NewScript(rotateScript)
	deleteLua             = redis.NewScript(deleteScript)
	deleteSeriesLua       = redis.NewScript(deleteSeriesScript)
	deleteExpiredLua      = redis.NewScript(deleteExpiredScript)
	deleteOlderOrEqualLua = redis.NewScript(deleteOlderOrEqualScript)
	deleteByUserLua       = redis.NewScript(deleteByUserScript)
)

type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) tokenPrefix() string { return s.prefix + "token:" }
func (s *RedisStore) userPrefix() string  { return s.prefix + "user:" }
func (s *RedisStore) expiresKey() string  { return s.prefix + "expires" }
func (s *RedisStore) seriesKey() string   { return s.prefix + "series" }

func (s *RedisStore) tokenKey(series, instance string) string {
	return s.tokenPrefix() + member(series, instance)
}

func (s *RedisStore) userKey(userID int64) string {
	return s.userPrefix() + strconv.FormatInt(userID, 10)
}

func member(series, instance string) string {
	return series + ":" + instance
}

func (s *RedisStore) FindActive(ctx context.Context, series, instance string, now time.Time) (*Record, error) {
	record, err := s.load(ctx, s.tokenKey(series, instance))
	if err != nil {
		return nil, storageError("find active", err)
	}
	if record == nil || record.Expires <= now.Unix() {
		return nil, nil
	}
	return record, nil
}

func (s *RedisStore) Insert(ctx context.Context, record *Record) error {
	err := insertLua.Run(ctx, s.client,
		[]string{s.tokenKey(record.Series, record.Instance), s.userKey(record.UserID), s.expiresKey(), s.seriesKey()},
		member(record.Series, record.Instance),
		record.UserID, record.Series, record.Instance, record.Created, record.Refreshed, record.Expires,
	).Err()
	return storageError("insert", err)
}

func (s *RedisStore) UpdateInstance(ctx context.Context, series, oldInstance, newInstance string, refreshed time.Time) (bool, error) {
	matched, err := rotateLua.Run(ctx, s.client,
		[]string{s.tokenKey(series, oldInstance), s.tokenKey(series, newInstance), s.expiresKey(), s.seriesKey()},
		member(series, oldInstance), member(series, newInstance), newInstance, refreshed.Unix(), s.userPrefix(), series,
	).Int64()
	if err != nil {
		return false, storageError("update instance", err)
	}
	return matched == 1, nil
}

// indexKeys and indexArgs are the leading KEYS and ARGV every delete script
// expects for remove_token.
func (s *RedisStore) indexKeys(extra ...string) []string {
	return append([]string{s.expiresKey(), s.seriesKey()}, extra...)
}

func (s *RedisStore) indexArgs(extra ...any) []any {
	return append([]any{s.tokenPrefix(), s.userPrefix()}, extra...)
}

func (s *RedisStore) Delete(ctx context.Context, series, instance string) error {
	err := deleteLua.Run(ctx, s.client, s.indexKeys(), s.indexArgs(member(series, instance))...).Err()
	return storageError("delete", err)
}

func (s *RedisStore) DeleteSeries(ctx context.Context, series string) (int64, error) {
	removed, err := deleteSeriesLua.Run(ctx, s.client, s.indexKeys(), s.indexArgs(series)...).Int64()
	if err != nil {
		return 0, storageError("delete series", err)
	}
	return removed, nil
}

func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	removed, err := deleteExpiredLua.Run(ctx, s.client, s.indexKeys(), s.indexArgs(now.Unix())...).Int64()
	if err != nil {
		return 0, storageError("delete expired", err)
	}
	return removed, nil
}

func (s *RedisStore) FindOldestBeyondLimit(ctx context.Context, userID int64, limit int) (*Record, error) {
	records, err := s.userRecords(ctx, userID)
	if err != nil {
		return nil, storageError("find oldest beyond limit", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Expires != records[j].Expires {
			return records[i].Expires > records[j].Expires
		}
		return records[i].Created > records[j].Created
	})

	if limit < 0 || limit >= len(records) {
		return nil, nil
	}
	return &records[limit], nil
}

func (s *RedisStore) DeleteOlderOrEqual(ctx context.Context, userID int64, created, expires int64) (int64, error) {
	removed, err := deleteOlderOrEqualLua.Run(ctx, s.client,
		s.indexKeys(s.userKey(userID)),
		s.indexArgs(created, expires)...,
	).Int64()
	if err != nil {
		return 0, storageError("delete older or equal", err)
	}
	return removed, nil
}

func (s *RedisStore) FindByUser(ctx context.Context, userID int64, now time.Time) ([]Record, error) {
	records, err := s.userRecords(ctx, userID)
	if err != nil {
		return nil, storageError("find by user", err)
	}

	active := records[:0]
	for _, record := range records {
		if record.Expires > now.Unix() {
			active = append(active, record)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Created < active[j].Created
	})
	return active, nil
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	removed, err := deleteByUserLua.Run(ctx, s.client, s.indexKeys(s.userKey(userID)), s.indexArgs()...).Int64()
	if err != nil {
		return 0, storageError("delete by user", err)
	}
	return removed, nil
}

// userRecords loads every token hash indexed for the user. Members whose
// hash already expired out of Redis are skipped.
func (s *RedisStore) userRecords(ctx context.Context, userID int64) ([]Record, error) {
	members, err := s.client.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, m := range members {
		cmds[i] = pipe.HGetAll(ctx, s.tokenPrefix()+m)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	records := make([]Record, 0, len(members))
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		record, err := parseRecord(fields)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func (s *RedisStore) load(ctx context.Context, key string) (*Record, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseRecord(fields)
}

func parseRecord(fields map[string]string) (*Record, error) {
	record := &Record{
		Series:   fields["series"],
		Instance: fields["instance"],
	}

	ints := []struct {
		name string
		dst  *int64
	}{
		{"user_id", &record.UserID},
		{"created", &record.Created},
		{"refreshed", &record.Refreshed},
		{"expires", &record.Expires},
	}
	for _, f := range ints {
		v, err := strconv.ParseInt(fields[f.name], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt token field %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return record, nil
}
