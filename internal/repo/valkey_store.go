package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/pkg/cache"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// valkeyStore keeps every resource as a JSON document and maintains a per-user
// index set for listing. Resource documents are stored without expiry (ttl 0
// falls back to the cache default, so the TTLs below are explicit).
type valkeyStore struct {
	cache     cache.ValkeyCluster
	logger    logger.Logger
	jobTTL    time.Duration
	jobKeyTTL time.Duration
}

// Resource documents effectively never expire; job state is transient.
const resourceTTL = 10 * 365 * 24 * time.Hour

func NewValkeyStore(c cache.ValkeyCluster, log logger.Logger, jobTTL, jobKeyTTL time.Duration) Store {
	return &valkeyStore{
		cache:     c,
		logger:    log,
		jobTTL:    jobTTL,
		jobKeyTTL: jobKeyTTL,
	}
}

func powerloadKey(id string) string   { return "powerload:" + id }
func disturbanceKey(id string) string { return "disturbance:" + id }
func repairKey(id string) string      { return "repair:" + id }
func jobKey(id string) string         { return "compute_job:" + id }
func jobIndexKey(key string) string   { return "compute_job_key:" + key }
func userKey(id string) string        { return "user:" + id }
func emailKey(email string) string    { return "user_email:" + strings.ToLower(email) }

func userIndex(kind, userID string) string {
	return fmt.Sprintf("user_%ss:%s", kind, userID)
}

func (s *valkeyStore) save(ctx context.Context, key, indexKey, id string, doc interface{}, ttl time.Duration) error {
	if err := s.cache.Set(ctx, key, doc, ttl); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if indexKey != "" {
		if err := s.cache.SetAdd(ctx, indexKey, id); err != nil {
			return fmt.Errorf("index %s: %w", indexKey, err)
		}
	}
	return nil
}

func (s *valkeyStore) load(ctx context.Context, key string, out interface{}) error {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

/* ------------------------------- powerloads ------------------------------ */

func (s *valkeyStore) SavePowerload(ctx context.Context, pl *models.Powerload) error {
	return s.save(ctx, powerloadKey(pl.ID), userIndex("powerload", pl.UserID), pl.ID, pl, resourceTTL)
}

func (s *valkeyStore) GetPowerload(ctx context.Context, userID, id string) (*models.Powerload, error) {
	var pl models.Powerload
	if err := s.load(ctx, powerloadKey(id), &pl); err != nil {
		return nil, err
	}
	if pl.UserID != userID {
		return nil, ErrNotFound
	}
	return &pl, nil
}

func (s *valkeyStore) ListPowerloads(ctx context.Context, userID string) ([]*models.Powerload, error) {
	ids, err := s.cache.SetMembers(ctx, userIndex("powerload", userID))
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	loads := make([]*models.Powerload, 0, len(ids))
	for _, id := range ids {
		pl, err := s.GetPowerload(ctx, userID, id)
		if err != nil {
			// Document gone but index entry survived; heal the index.
			_ = s.cache.SetRemove(ctx, userIndex("powerload", userID), id)
			continue
		}
		loads = append(loads, pl)
	}
	return loads, nil
}

func (s *valkeyStore) DeletePowerload(ctx context.Context, userID, id string) error {
	if _, err := s.GetPowerload(ctx, userID, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, powerloadKey(id)); err != nil {
		return err
	}
	return s.cache.SetRemove(ctx, userIndex("powerload", userID), id)
}

/* ------------------------------ disturbances ----------------------------- */

func (s *valkeyStore) SaveDisturbance(ctx context.Context, d *models.Disturbance) error {
	return s.save(ctx, disturbanceKey(d.ID), userIndex("disturbance", d.UserID), d.ID, d, resourceTTL)
}

func (s *valkeyStore) GetDisturbance(ctx context.Context, userID, id string) (*models.Disturbance, error) {
	var d models.Disturbance
	if err := s.load(ctx, disturbanceKey(id), &d); err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *valkeyStore) ListDisturbances(ctx context.Context, userID string) ([]*models.Disturbance, error) {
	ids, err := s.cache.SetMembers(ctx, userIndex("disturbance", userID))
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	out := make([]*models.Disturbance, 0, len(ids))
	for _, id := range ids {
		d, err := s.GetDisturbance(ctx, userID, id)
		if err != nil {
			_ = s.cache.SetRemove(ctx, userIndex("disturbance", userID), id)
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *valkeyStore) DeleteDisturbance(ctx context.Context, userID, id string) error {
	if _, err := s.GetDisturbance(ctx, userID, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, disturbanceKey(id)); err != nil {
		return err
	}
	return s.cache.SetRemove(ctx, userIndex("disturbance", userID), id)
}

/* --------------------------------- repairs ------------------------------- */

func (s *valkeyStore) SaveRepair(ctx context.Context, r *models.Repair) error {
	return s.save(ctx, repairKey(r.ID), userIndex("repair", r.UserID), r.ID, r, resourceTTL)
}

func (s *valkeyStore) GetRepair(ctx context.Context, userID, id string) (*models.Repair, error) {
	var r models.Repair
	if err := s.load(ctx, repairKey(id), &r); err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *valkeyStore) ListRepairs(ctx context.Context, userID string) ([]*models.Repair, error) {
	ids, err := s.cache.SetMembers(ctx, userIndex("repair", userID))
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	out := make([]*models.Repair, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetRepair(ctx, userID, id)
		if err != nil {
			_ = s.cache.SetRemove(ctx, userIndex("repair", userID), id)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *valkeyStore) DeleteRepair(ctx context.Context, userID, id string) error {
	if _, err := s.GetRepair(ctx, userID, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, repairKey(id)); err != nil {
		return err
	}
	return s.cache.SetRemove(ctx, userIndex("repair", userID), id)
}

/* ------------------------------ compute jobs ----------------------------- */

func (s *valkeyStore) SaveJob(ctx context.Context, job *models.ComputeJob) error {
	return s.save(ctx, jobKey(job.ID), userIndex("compute_job", job.UserID), job.ID, job, s.jobTTL)
}

func (s *valkeyStore) GetJob(ctx context.Context, computeID string) (*models.ComputeJob, error) {
	var job models.ComputeJob
	if err := s.load(ctx, jobKey(computeID), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *valkeyStore) ListJobs(ctx context.Context, userID string) ([]*models.ComputeJob, error) {
	ids, err := s.cache.SetMembers(ctx, userIndex("compute_job", userID))
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	jobs := make([]*models.ComputeJob, 0, len(ids))
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if err != nil || job.UserID != userID {
			_ = s.cache.SetRemove(ctx, userIndex("compute_job", userID), id)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *valkeyStore) DeleteJob(ctx context.Context, userID, computeID string) error {
	job, err := s.GetJob(ctx, computeID)
	if err != nil {
		return err
	}
	if job.UserID != userID {
		return ErrNotFound
	}
	if err := s.cache.Delete(ctx, jobKey(computeID)); err != nil {
		return err
	}
	return s.cache.SetRemove(ctx, userIndex("compute_job", userID), computeID)
}

func (s *valkeyStore) SetJobKey(ctx context.Context, key, computeID string) error {
	return s.cache.Set(ctx, jobIndexKey(key), computeID, s.jobKeyTTL)
}

func (s *valkeyStore) GetJobKey(ctx context.Context, key string) (string, error) {
	data, err := s.cache.Get(ctx, jobIndexKey(key))
	if err != nil {
		return "", ErrNotFound
	}
	return string(data), nil
}

func (s *valkeyStore) DeleteJobKey(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, jobIndexKey(key))
}

/* ---------------------------------- users -------------------------------- */

func (s *valkeyStore) SaveUser(ctx context.Context, u *models.User) error {
	if err := s.save(ctx, userKey(u.ID), "", "", u, resourceTTL); err != nil {
		return err
	}
	return s.cache.Set(ctx, emailKey(u.Email), u.ID, resourceTTL)
}

func (s *valkeyStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.load(ctx, userKey(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *valkeyStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	data, err := s.cache.Get(ctx, emailKey(email))
	if err != nil {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, string(data))
}
