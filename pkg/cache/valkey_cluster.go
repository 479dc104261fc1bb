package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// ValkeyCluster is the cache surface the planner talks to. The repo layer
// keeps powerloads, disturbances and compute jobs here as JSON documents with
// per-user index sets; the auth layer keeps sessions.
type ValkeyCluster interface {
	// General caching
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Increment atomically bumps an integer counter, setting the TTL when the
	// key is created. Rate limiting counts requests with it.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Index sets (resource ids per user)
	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Session management
	GetSession(ctx context.Context, sessionID string) (*models.UserSession, error)
	SetSession(ctx context.Context, session *models.UserSession) error
	InvalidateSession(ctx context.Context, sessionID string) error
	GetActiveSessions(ctx context.Context, userID string) ([]*models.UserSession, error)

	// Short-lived exclusive locks, used to serialize compute submissions for
	// the same inputs.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	HealthCheck(ctx context.Context) error
}

// New connects to the configured nodes, picking the cluster client when more
// than one node is listed.
func New(nodes []string, db int, password string, defaultTTL time.Duration) (ValkeyCluster, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no cache nodes configured")
	}
	if len(nodes) == 1 {
		return NewValkeySingle(nodes[0], db, password, defaultTTL)
	}
	return NewValkeyCluster(nodes, defaultTTL)
}

const sessionTTL = 24 * time.Hour

func sessionKey(id string) string      { return fmt.Sprintf("session:%s", id) }
func userSessionsKey(id string) string { return fmt.Sprintf("user_sessions:%s", id) }

type valkeyClusterImpl struct {
	client *redis.ClusterClient
	logger logger.Logger
	ttl    time.Duration
}

func NewValkeyCluster(nodes []string, defaultTTL time.Duration) (ValkeyCluster, error) {
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        nodes,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey cluster: %w", err)
	}

	return &valkeyClusterImpl{
		client: client,
		logger: logger.New("info"),
		ttl:    defaultTTL,
	}, nil
}

func (v *valkeyClusterImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return b, err
}

func (v *valkeyClusterImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	return v.client.Set(ctx, key, data, ttl).Err()
}

func (v *valkeyClusterImpl) Delete(ctx context.Context, key string) error {
	return v.client.Del(ctx, key).Err()
}

func (v *valkeyClusterImpl) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := v.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 && ttl > 0 {
		_ = v.client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

func (v *valkeyClusterImpl) SetAdd(ctx context.Context, key string, members ...string) error {
	return v.client.SAdd(ctx, key, toInterfaces(members)...).Err()
}

func (v *valkeyClusterImpl) SetRemove(ctx context.Context, key string, members ...string) error {
	return v.client.SRem(ctx, key, toInterfaces(members)...).Err()
}

func (v *valkeyClusterImpl) SetMembers(ctx context.Context, key string) ([]string, error) {
	return v.client.SMembers(ctx, key).Result()
}

func (v *valkeyClusterImpl) SetSession(ctx context.Context, session *models.UserSession) error {
	session.LastActivity = time.Now()
	if err := v.Set(ctx, sessionKey(session.ID), session, sessionTTL); err != nil {
		return err
	}
	return v.client.SAdd(ctx, userSessionsKey(session.UserID), session.ID).Err()
}

func (v *valkeyClusterImpl) GetSession(ctx context.Context, sessionID string) (*models.UserSession, error) {
	data, err := v.Get(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, err
	}
	var session models.UserSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (v *valkeyClusterImpl) InvalidateSession(ctx context.Context, sessionID string) error {
	if sess, err := v.GetSession(ctx, sessionID); err == nil && sess != nil {
		_ = v.client.SRem(ctx, userSessionsKey(sess.UserID), sessionID).Err()
	}
	return v.Delete(ctx, sessionKey(sessionID))
}

func (v *valkeyClusterImpl) GetActiveSessions(ctx context.Context, userID string) ([]*models.UserSession, error) {
	sessionIDs, err := v.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	var sessions []*models.UserSession
	for _, sessionID := range sessionIDs {
		if session, err := v.GetSession(ctx, sessionID); err == nil {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (v *valkeyClusterImpl) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return v.client.SetNX(ctx, fmt.Sprintf("lock:%s", key), "locked", ttl).Result()
}

func (v *valkeyClusterImpl) ReleaseLock(ctx context.Context, key string) error {
	return v.client.Del(ctx, fmt.Sprintf("lock:%s", key)).Err()
}

func (v *valkeyClusterImpl) HealthCheck(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func encodeValue(key string, value interface{}) ([]byte, error) {
	switch x := value.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		j, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %s: %w", key, err)
		}
		return j, nil
	}
}

func toInterfaces(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}
