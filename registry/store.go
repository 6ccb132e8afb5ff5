package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusRevoked  int64 = 1
	rotateStatusReuse    int64 = 2
	rotateStatusExpired  int64 = 3
	rotateStatusRotated  int64 = 4
)

// rotateScript is the atomic heart of the rotation engine. It classifies the
// presented record, performs the ACTIVE -> ROTATED compare-and-set, mints the
// successor record, and — on reuse — revokes every record in the family, all
// in one script evaluation. Two concurrent rotations of the same secret can
// therefore never both win: the loser observes "rotated" and takes the reuse
// branch.
const rotateScript = `
local rec = redis.call("HMGET", KEYS[1], "status", "exp")
if not rec[1] then
  return {0}
end

local status = rec[1]
if status == "revoked" then
  return {1}
end

if status == "rotated" then
  local members = redis.call("SMEMBERS", KEYS[3])
  for i = 1, #members do
    local mstatus = redis.call("HGET", members[i], "status")
    if mstatus then
      if mstatus ~= "revoked" then
        redis.call("HSET", members[i], "status", "revoked")
      end
    else
      redis.call("SREM", KEYS[3], members[i])
    end
  end
  return {2}
end

local exp = tonumber(rec[2])
local now = tonumber(ARGV[1])
local leeway = tonumber(ARGV[2])
if not exp or exp + leeway <= now then
  return {3}
end

redis.call("HSET", KEYS[1], "status", "rotated")
redis.call("HSET", KEYS[2],
  "id", ARGV[3],
  "user", ARGV[4],
  "family", ARGV[5],
  "prev", ARGV[6],
  "status", "active",
  "iat", ARGV[7],
  "exp", ARGV[8])
redis.call("PEXPIRE", KEYS[2], tonumber(ARGV[9]))
redis.call("SADD", KEYS[3], KEYS[2])
redis.call("PEXPIRE", KEYS[3], tonumber(ARGV[10]))
return {4}
`

var rotateLua = redis.NewScript(rotateScript)

// revokeFamilyScript marks every still-live record of a family revoked.
// Returns the number of records transitioned; already-revoked records do
// not count, which makes the operation idempotent. Members whose record key
// was already reclaimed by its retention TTL are dropped from the index
// instead of being written back.
const revokeFamilyScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local transitioned = 0
for i = 1, #members do
  local status = redis.call("HGET", members[i], "status")
  if status then
    if status ~= "revoked" then
      redis.call("HSET", members[i], "status", "revoked")
      transitioned = transitioned + 1
    end
  else
    redis.call("SREM", KEYS[1], members[i])
  end
end
return transitioned
`

var revokeFamilyLua = redis.NewScript(revokeFamilyScript)

// Store is a Redis-backed refresh-token registry. Records are hashes keyed
// by the hex SHA-256 of the raw secret; a per-family set indexes the records
// so family revocation never scans the keyspace.
//
// Retention is delegated to Redis TTLs: every record (and the family index)
// expires at ExpiresAt plus the configured grace window, so rotated records
// stay visible long enough to serve as reuse evidence.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	leeway time.Duration
	grace  time.Duration
}

// NewStore creates a registry [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; expiryLeeway bounds the tolerated
// clock skew on expiry checks; retentionGrace extends record TTLs past
// expiry so reuse of a stale secret is still classified as reuse.
func NewStore(
	redisClient redis.UniversalClient,
	prefix string,
	expiryLeeway time.Duration,
	retentionGrace time.Duration,
) *Store {
	if prefix == "" {
		prefix = "rt"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		leeway: expiryLeeway,
		grace:  retentionGrace,
	}
}

func (s *Store) recordKey(secretHash [32]byte) string {
	return s.prefix + ":r:" + hex.EncodeToString(secretHash[:])
}

func (s *Store) familyKey(familyID string) string {
	return s.prefix + ":f:" + familyID
}

func (s *Store) recordTTL(rec *Record, now time.Time) time.Duration {
	remaining := time.Unix(rec.ExpiresAt, 0).Sub(now) + s.leeway + s.grace
	if remaining < time.Second {
		remaining = time.Second
	}
	return remaining
}

// Create persists a fresh ACTIVE record and registers it in its family
// index. Used by the login path; successors minted during rotation are
// created inside the rotate script instead.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	if rec.Status != StatusActive {
		return errors.New("new records must be created active")
	}

	now := time.Now()
	ttl := s.recordTTL(rec, now)
	recordKey := s.recordKey(rec.SecretHash)
	familyKey := s.familyKey(rec.FamilyID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey,
			"id", rec.TokenID,
			"user", rec.UserID,
			"family", rec.FamilyID,
			"prev", rec.PreviousTokenID,
			"status", rec.Status.String(),
			"iat", strconv.FormatInt(rec.IssuedAt, 10),
			"exp", strconv.FormatInt(rec.ExpiresAt, 10),
		)
		pipe.PExpire(ctx, recordKey, ttl)
		pipe.SAdd(ctx, familyKey, recordKey)
		pipe.PExpire(ctx, familyKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Get performs the read-only lookup by secret hash. It never mutates the
// record; classification with side effects (reuse revocation) happens only
// inside [Store.Rotate].
func (s *Store) Get(ctx context.Context, secretHash [32]byte) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.recordKey(secretHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrRecordNotFound
	}

	rec, err := recordFromFields(fields)
	if err != nil {
		return nil, err
	}
	rec.SecretHash = secretHash

	return rec, nil
}

// Rotate atomically consumes the record matching providedHash and creates
// the successor. The successor must already carry the family, lineage, and
// expiry decided by the caller; the script only installs it when the
// compare-and-set on the consumed record wins.
//
// Outcomes map onto the record sentinels: [ErrRecordNotFound],
// [ErrRecordRevoked], [ErrRecordRotated] (family revoked as part of this
// call), [ErrRecordExpired]. A nil return means the presented record is now
// ROTATED and the successor is live.
func (s *Store) Rotate(ctx context.Context, providedHash [32]byte, successor *Record) error {
	now := time.Now()
	ttl := s.recordTTL(successor, now)

	keys := []string{
		s.recordKey(providedHash),
		s.recordKey(successor.SecretHash),
		s.familyKey(successor.FamilyID),
	}
	argv := []interface{}{
		now.Unix(),
		int64(s.leeway / time.Second),
		successor.TokenID,
		successor.UserID,
		successor.FamilyID,
		successor.PreviousTokenID,
		successor.IssuedAt,
		successor.ExpiresAt,
		ttl.Milliseconds(),
		ttl.Milliseconds(),
	}

	res, err := rotateLua.Run(ctx, s.redis, keys, argv...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	reply, ok := res.([]interface{})
	if !ok || len(reply) == 0 {
		return fmt.Errorf("%w: unexpected rotate reply", ErrUnavailable)
	}
	code, ok := reply[0].(int64)
	if !ok {
		return fmt.Errorf("%w: unexpected rotate reply", ErrUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return ErrRecordNotFound
	case rotateStatusRevoked:
		return ErrRecordRevoked
	case rotateStatusReuse:
		return ErrRecordRotated
	case rotateStatusExpired:
		return ErrRecordExpired
	case rotateStatusRotated:
		return nil
	default:
		return fmt.Errorf("%w: unexpected rotate status %d", ErrUnavailable, code)
	}
}

// RevokeFamily moves every non-revoked record of the family to REVOKED and
// reports how many records transitioned. Idempotent: revoking a dead or
// unknown family succeeds with a zero count.
func (s *Store) RevokeFamily(ctx context.Context, familyID string) (int, error) {
	res, err := revokeFamilyLua.Run(ctx, s.redis, []string{s.familyKey(familyID)}).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res, nil
}

func recordFromFields(fields map[string]string) (*Record, error) {
	status, err := ParseStatus(fields["status"])
	if err != nil {
		return nil, err
	}

	iat, err := strconv.ParseInt(fields["iat"], 10, 64)
	if err != nil {
		return nil, ErrRecordCorrupt
	}
	exp, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, ErrRecordCorrupt
	}

	return &Record{
		TokenID:         fields["id"],
		UserID:          fields["user"],
		FamilyID:        fields["family"],
		Status:          status,
		IssuedAt:        iat,
		ExpiresAt:       exp,
		PreviousTokenID: fields["prev"],
	}, nil
}
