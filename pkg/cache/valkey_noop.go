package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// noopValkeyCluster is an in-memory stand-in used when no Valkey node is
// reachable and in tests. State is process-local and lost on restart, which
// is acceptable for development but logged loudly at startup.
type noopValkeyCluster struct {
	mu       sync.RWMutex
	data     map[string]noopEntry
	sets     map[string]map[string]struct{}
	sessions map[string]*models.UserSession
	logger   logger.Logger
}

type noopEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewNoopValkeyCluster() ValkeyCluster {
	log := logger.New("info")
	log.Warn("cache: using in-memory no-op store; data will not survive restarts")
	return &noopValkeyCluster{
		data:     make(map[string]noopEntry),
		sets:     make(map[string]map[string]struct{}),
		sessions: make(map[string]*models.UserSession),
		logger:   log,
	}
}

func (n *noopValkeyCluster) Get(_ context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	entry, ok := n.data[key]
	n.mu.RUnlock()
	if !ok || (!entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)) {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return entry.value, nil
}

func (n *noopValkeyCluster) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	entry := noopEntry{value: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	n.mu.Lock()
	n.data[key] = entry
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCluster) Delete(_ context.Context, key string) error {
	n.mu.Lock()
	delete(n.data, key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCluster) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var count int64
	if entry, ok := n.data[key]; ok && (entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt)) {
		count, _ = strconv.ParseInt(string(entry.value), 10, 64)
	}
	count++
	entry := noopEntry{value: []byte(strconv.FormatInt(count, 10))}
	if prev, ok := n.data[key]; ok && count > 1 {
		entry.expiresAt = prev.expiresAt
	} else if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	n.data[key] = entry
	return count, nil
}

func (n *noopValkeyCluster) SetAdd(_ context.Context, key string, members ...string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.sets[key]
	if !ok {
		set = make(map[string]struct{})
		n.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (n *noopValkeyCluster) SetRemove(_ context.Context, key string, members ...string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if set, ok := n.sets[key]; ok {
		for _, m := range members {
			delete(set, m)
		}
	}
	return nil
}

func (n *noopValkeyCluster) SetMembers(_ context.Context, key string) ([]string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	members := make([]string, 0, len(n.sets[key]))
	for m := range n.sets[key] {
		members = append(members, m)
	}
	return members, nil
}

func (n *noopValkeyCluster) SetSession(_ context.Context, session *models.UserSession) error {
	session.LastActivity = time.Now()
	n.mu.Lock()
	n.sessions[session.ID] = session
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCluster) GetSession(_ context.Context, sessionID string) (*models.UserSession, error) {
	n.mu.RLock()
	session, ok := n.sessions[sessionID]
	n.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return session, nil
}

func (n *noopValkeyCluster) InvalidateSession(_ context.Context, sessionID string) error {
	n.mu.Lock()
	delete(n.sessions, sessionID)
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCluster) GetActiveSessions(_ context.Context, userID string) ([]*models.UserSession, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var sessions []*models.UserSession
	for _, s := range n.sessions {
		if s.UserID == userID {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (n *noopValkeyCluster) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	n.mu.Lock()
	defer n.mu.Unlock()
	if entry, ok := n.data[lockKey]; ok {
		if entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt) {
			return false, nil
		}
	}
	n.data[lockKey] = noopEntry{value: []byte("locked"), expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (n *noopValkeyCluster) ReleaseLock(_ context.Context, key string) error {
	n.mu.Lock()
	delete(n.data, fmt.Sprintf("lock:%s", key))
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCluster) HealthCheck(context.Context) error { return nil }
