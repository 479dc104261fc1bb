package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/internal/monitoring"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// valkeySingleImpl implements ValkeyCluster against a single-node
// Valkey/Redis instance, the usual deployment for a planner install.
type valkeySingleImpl struct {
	client *redis.Client
	logger logger.Logger
	ttl    time.Duration
}

func NewValkeySingle(addr string, db int, password string, defaultTTL time.Duration) (ValkeyCluster, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey single-node: %w", err)
	}

	return &valkeySingleImpl{
		client: client,
		logger: logger.New("info"),
		ttl:    defaultTTL,
	}, nil
}

func (v *valkeySingleImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		monitoring.RecordCacheOperation("get", "miss")
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if err != nil {
		monitoring.RecordCacheOperation("get", "error")
		return nil, err
	}
	monitoring.RecordCacheOperation("get", "hit")
	return b, nil
}

func (v *valkeySingleImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		monitoring.RecordCacheOperation("set", "error")
		return err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	if err := v.client.Set(ctx, key, data, ttl).Err(); err != nil {
		monitoring.RecordCacheOperation("set", "error")
		return err
	}
	monitoring.RecordCacheOperation("set", "success")
	return nil
}

func (v *valkeySingleImpl) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, key).Err(); err != nil {
		monitoring.RecordCacheOperation("delete", "error")
		return err
	}
	monitoring.RecordCacheOperation("delete", "success")
	return nil
}

func (v *valkeySingleImpl) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := v.client.Incr(ctx, key).Result()
	if err != nil {
		monitoring.RecordCacheOperation("increment", "error")
		return 0, err
	}
	// First increment creates the key; pin the window TTL then.
	if count == 1 && ttl > 0 {
		_ = v.client.Expire(ctx, key, ttl).Err()
	}
	monitoring.RecordCacheOperation("increment", "success")
	return count, nil
}

func (v *valkeySingleImpl) SetAdd(ctx context.Context, key string, members ...string) error {
	return v.client.SAdd(ctx, key, toInterfaces(members)...).Err()
}

func (v *valkeySingleImpl) SetRemove(ctx context.Context, key string, members ...string) error {
	return v.client.SRem(ctx, key, toInterfaces(members)...).Err()
}

func (v *valkeySingleImpl) SetMembers(ctx context.Context, key string) ([]string, error) {
	return v.client.SMembers(ctx, key).Result()
}

func (v *valkeySingleImpl) SetSession(ctx context.Context, session *models.UserSession) error {
	session.LastActivity = time.Now()
	if err := v.Set(ctx, sessionKey(session.ID), session, sessionTTL); err != nil {
		monitoring.RecordCacheOperation("set_session", "error")
		return err
	}
	if err := v.client.SAdd(ctx, userSessionsKey(session.UserID), session.ID).Err(); err != nil {
		monitoring.RecordCacheOperation("set_session", "error")
		return err
	}
	monitoring.RecordCacheOperation("set_session", "success")
	return nil
}

func (v *valkeySingleImpl) GetSession(ctx context.Context, sessionID string) (*models.UserSession, error) {
	data, err := v.Get(ctx, sessionKey(sessionID))
	if err != nil {
		monitoring.RecordCacheOperation("get_session", "miss")
		return nil, err
	}
	var session models.UserSession
	if err := json.Unmarshal(data, &session); err != nil {
		monitoring.RecordCacheOperation("get_session", "error")
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	monitoring.RecordCacheOperation("get_session", "hit")
	return &session, nil
}

func (v *valkeySingleImpl) InvalidateSession(ctx context.Context, sessionID string) error {
	if sess, err := v.GetSession(ctx, sessionID); err == nil && sess != nil {
		_ = v.client.SRem(ctx, userSessionsKey(sess.UserID), sessionID).Err()
	}
	if err := v.Delete(ctx, sessionKey(sessionID)); err != nil {
		monitoring.RecordCacheOperation("invalidate_session", "error")
		return err
	}
	monitoring.RecordCacheOperation("invalidate_session", "success")
	return nil
}

func (v *valkeySingleImpl) GetActiveSessions(ctx context.Context, userID string) ([]*models.UserSession, error) {
	userKey := userSessionsKey(userID)
	sessionIDs, err := v.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, err
	}
	sessions := make([]*models.UserSession, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		if session, err := v.GetSession(ctx, sessionID); err == nil {
			sessions = append(sessions, session)
		} else {
			// Session expired out from under the index; drop the stale entry.
			_ = v.client.SRem(ctx, userKey, sessionID).Err()
		}
	}
	return sessions, nil
}

func (v *valkeySingleImpl) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// SET NX with a TTL makes acquisition atomic.
	set, err := v.client.SetNX(ctx, fmt.Sprintf("lock:%s", key), "locked", ttl).Result()
	if err != nil {
		monitoring.RecordCacheOperation("acquire_lock", "error")
		return false, err
	}
	if set {
		monitoring.RecordCacheOperation("acquire_lock", "success")
	} else {
		monitoring.RecordCacheOperation("acquire_lock", "conflict")
	}
	return set, nil
}

func (v *valkeySingleImpl) ReleaseLock(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, fmt.Sprintf("lock:%s", key)).Err(); err != nil {
		monitoring.RecordCacheOperation("release_lock", "error")
		return err
	}
	monitoring.RecordCacheOperation("release_lock", "success")
	return nil
}

// HealthCheck pings the Valkey single-node instance.
func (v *valkeySingleImpl) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ctx = c
	}
	return v.client.Ping(ctx).Err()
}
