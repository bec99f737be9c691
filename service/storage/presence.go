package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"PShare/tools/errs"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const presencePrefix = "pshare:presence:"

// presence key: pshare:presence:<user>, value: connection id, TTL bounds staleness
// when a process dies without cleaning up.
func presenceKey(user string) string { return presencePrefix + user }

func userFromKey(key string) string { return strings.TrimPrefix(key, presencePrefix) }

// Delete only if the key still belongs to this connection, so a stale disconnect
// cannot erase the entry of a newer connection of the same user.
var offlineScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PresenceStore mirrors the in-memory registry into Redis for reporting.
type PresenceStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewPresenceStore(rdb redis.UniversalClient, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceStore{rdb: rdb, ttl: ttl}
}

// Online marks user as connected through connID and renews the TTL.
func (p *PresenceStore) Online(ctx context.Context, user, connID string) error {
	if p == nil || p.rdb == nil {
		return errs.New("redis not initialized")
	}
	if err := p.rdb.Set(ctx, presenceKey(user), connID, p.ttl).Err(); err != nil {
		return errs.WrapMsg(err, "presence online", "user", user)
	}
	return nil
}

// Offline clears the entry if it still belongs to connID.
func (p *PresenceStore) Offline(ctx context.Context, user, connID string) error {
	if p == nil || p.rdb == nil {
		return errs.New("redis not initialized")
	}
	if err := offlineScript.Run(ctx, p.rdb, []string{presenceKey(user)}, connID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return errs.WrapMsg(err, "presence offline", "user", user)
	}
	return nil
}

// Lookup returns the connection id user is online with.
func (p *PresenceStore) Lookup(ctx context.Context, user string) (connID string, online bool, err error) {
	if p == nil || p.rdb == nil {
		return "", false, errs.New("redis not initialized")
	}
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.WrapMsg(err, "presence lookup", "user", user)
	}
	return val, true, nil
}

// ListOnline scans all presence keys. Sorted user ids.
func (p *PresenceStore) ListOnline(ctx context.Context) ([]string, error) {
	if p == nil || p.rdb == nil {
		return nil, errs.New("redis not initialized")
	}
	var (
		out    []string
		cursor uint64
		seen   = map[string]struct{}{}
	)
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, presencePrefix+"*", 200).Result()
		if err != nil {
			return nil, errs.WrapMsg(err, "presence scan")
		}
		// SCAN may return a key more than once
		for _, k := range keys {
			u := userFromKey(k)
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(out)
	return out, nil
}
