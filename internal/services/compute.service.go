package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/microgridplanner/planner-core/internal/compute"
	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/internal/metrics"
	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/internal/monitoring"
	"github.com/microgridplanner/planner-core/internal/repo"
	"github.com/microgridplanner/planner-core/internal/tracing"
	"github.com/microgridplanner/planner-core/internal/window"
	"github.com/microgridplanner/planner-core/pkg/cache"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

// ComputeService owns the submit/poll workflow: it validates the analysis
// window, deduplicates submissions, executes model runs on a bounded worker
// pool and persists job state through the repo.
type ComputeService struct {
	store         repo.Store
	cache         cache.ValkeyCluster
	runner        *compute.Runner
	notifications *NotificationService
	tracer        *tracing.JobTracer
	logger        logger.Logger
	cfg           config.ComputeConfig

	sem chan struct{}
	wg  sync.WaitGroup

	// onTerminal, when set, is invoked after a job reaches a terminal state.
	// The API server uses it to push status frames to WebSocket subscribers.
	mu         sync.RWMutex
	onTerminal func(job *models.ComputeJob)
}

func NewComputeService(
	store repo.Store,
	c cache.ValkeyCluster,
	cfg config.ComputeConfig,
	notifications *NotificationService,
	tracer *tracing.JobTracer,
	log logger.Logger,
) *ComputeService {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ComputeService{
		store:         store,
		cache:         c,
		runner:        compute.NewRunner(log),
		notifications: notifications,
		tracer:        tracer,
		logger:        log,
		cfg:           cfg,
		sem:           make(chan struct{}, maxConcurrent),
	}
}

// SetTerminalCallback registers the hook fired when a job finishes.
func (s *ComputeService) SetTerminalCallback(cb func(job *models.ComputeJob)) {
	s.mu.Lock()
	s.onTerminal = cb
	s.mu.Unlock()
}

// PollInterval is the cadence clients should poll Status at.
func (s *ComputeService) PollInterval() time.Duration {
	return time.Duration(s.cfg.PollIntervalSeconds) * time.Second
}

// Submit validates the request, corrects the analysis window against the
// powerload, and either starts a new run or returns the compute id of an
// identical one already submitted. With req.Wait the run executes inline and
// the response is returned after it finishes.
func (s *ComputeService) Submit(ctx context.Context, userID string, model models.ModelType, req *models.ComputeRequest) (*models.ComputeSubmitResponse, error) {
	if !model.Valid() {
		return nil, fmt.Errorf("unknown model type %q", model)
	}

	job, err := s.buildJob(ctx, userID, model, req)
	if err != nil {
		return nil, err
	}

	// Serialize submissions for the same inputs, then check whether one
	// already went through. The key is built from the corrected window so
	// that submissions which normalize to the same analysis dedupe together.
	dedupeKey := jobDedupeKey(job)
	locked, err := s.cache.AcquireLock(ctx, dedupeKey, time.Duration(s.cfg.LockTTLSeconds)*time.Second)
	if err != nil {
		s.logger.Warn("submission lock unavailable, continuing without it", "error", err)
	} else if locked {
		defer func() { _ = s.cache.ReleaseLock(ctx, dedupeKey) }()
	}

	if existingID, err := s.store.GetJobKey(ctx, dedupeKey); err == nil && existingID != "" {
		if _, err := s.store.GetJob(ctx, existingID); err == nil {
			metrics.ComputeJobsTotal.WithLabelValues(string(model), "duplicate").Inc()
			s.logger.Info("duplicate compute submission", "compute_id", existingID, "model", model, "user_id", userID)
			return &models.ComputeSubmitResponse{ComputeID: existingID, Duplicate: true}, nil
		}
	}

	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}
	if err := s.store.SetJobKey(ctx, dedupeKey, job.ID); err != nil {
		s.logger.Warn("failed to index job key", "compute_id", job.ID, "error", err)
	}

	if req.Wait {
		s.executeJob(ctx, job)
		return &models.ComputeSubmitResponse{ComputeID: job.ID}, nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request context: the run outlives the HTTP call.
		s.executeJob(context.Background(), job)
	}()

	return &models.ComputeSubmitResponse{ComputeID: job.ID, ComputeJobID: job.ID}, nil
}

// buildJob resolves the request against the stored powerload, running the
// window correction engine over the submitted instants.
func (s *ComputeService) buildJob(ctx context.Context, userID string, model models.ModelType, req *models.ComputeRequest) (*models.ComputeJob, error) {
	pl, err := s.store.GetPowerload(ctx, userID, req.PowerloadID)
	if err != nil {
		return nil, fmt.Errorf("powerload %s: %w", req.PowerloadID, err)
	}

	w, err := window.New(pl.StartDateTime, pl.EndDateTime)
	if err != nil {
		return nil, fmt.Errorf("powerload %s has no usable analysis window: %w", pl.ID, err)
	}

	start, err := window.ParseStamp(req.StartDateTime)
	if err != nil {
		return nil, err
	}
	end, err := window.ParseStamp(req.EndDateTime)
	if err != nil {
		return nil, err
	}

	sel := window.Selection{Start: start, End: end}
	if model == models.ModelResilience {
		dist, err := window.ParseStamp(req.DisturbanceStartDateTime)
		if err != nil {
			return nil, err
		}
		if dist.IsZero() {
			return nil, fmt.Errorf("resilience submissions require a disturbance start")
		}
		sel.Disturbance = &dist
	}

	if s.tracer != nil {
		_, span := s.tracer.StartWindowCorrectionSpan(ctx, pl.ID)
		defer span.End()
	}
	corrected, corrections, err := w.Correct(sel)
	if err != nil {
		return nil, fmt.Errorf("analysis window: %w", err)
	}
	for _, c := range corrections {
		metrics.WindowCorrectionsTotal.WithLabelValues(string(c.Field)).Inc()
		s.logger.Info("analysis window corrected", "field", c.Field, "message", c.Message, "powerload_id", pl.ID)
	}

	job := &models.ComputeJob{
		ID:            uuid.New().String(),
		UserID:        userID,
		ModelType:     model,
		PowerloadID:   req.PowerloadID,
		GridID:        req.GridID,
		LocationID:    req.LocationID,
		StartDateTime: corrected.Start,
		EndDateTime:   corrected.End,
		DisturbanceID: req.DisturbanceID,
		RepairID:      req.RepairID,

		ExtendTimeframe: req.ExtendTimeframe,
		NumRuns:         orDefault(req.NumRuns, s.cfg.DefaultNumRuns),
		NumShiftHours:   orDefault(req.NumShiftHours, s.cfg.DefaultNumShiftHours),
		NumLevels:       orDefault(req.NumLevels, s.cfg.DefaultNumLevels),
		Method:          req.Method,

		SubmittedAt: time.Now().UTC(),
	}
	if corrected.Disturbance != nil {
		job.DisturbanceStartDateTime = corrected.Disturbance
	}
	return job, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// executeJob runs the model, bounded by the worker semaphore, and persists
// the terminal state.
func (s *ComputeService) executeJob(ctx context.Context, job *models.ComputeJob) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	started := time.Now()
	startedAt := started.UTC()
	job.StartedAt = &startedAt
	if err := s.store.SaveJob(ctx, job); err != nil {
		s.logger.Error("failed to mark job started", "compute_id", job.ID, "error", err)
	}

	result, err := s.run(ctx, job)

	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt
	success := err == nil
	job.Success = &success
	if err != nil {
		job.Error = err.Error()
		s.logger.Error("compute run failed", "compute_id", job.ID, "model", job.ModelType, "error", err)
		metrics.ComputeJobsTotal.WithLabelValues(string(job.ModelType), "failed").Inc()
	} else {
		job.Result = result
		metrics.ComputeJobsTotal.WithLabelValues(string(job.ModelType), "succeeded").Inc()
	}
	metrics.ComputeJobDuration.WithLabelValues(string(job.ModelType)).Observe(time.Since(started).Seconds())
	monitoring.RecordComputeRun(string(job.ModelType), time.Since(started), success)

	if err := s.store.SaveJob(ctx, job); err != nil {
		s.logger.Error("failed to persist terminal job state", "compute_id", job.ID, "error", err)
	}

	if s.notifications != nil {
		if nerr := s.notifications.ProcessComputeNotification(ctx, job); nerr != nil {
			s.logger.Warn("compute notification failed", "compute_id", job.ID, "error", nerr)
		}
	}

	s.mu.RLock()
	cb := s.onTerminal
	s.mu.RUnlock()
	if cb != nil {
		cb(job)
	}
}

// run loads the job's inputs and executes the model, wrapped in a trace span
// when tracing is enabled.
func (s *ComputeService) run(ctx context.Context, job *models.ComputeJob) (*models.ComputeResult, error) {
	pl, err := s.store.GetPowerload(ctx, job.UserID, job.PowerloadID)
	if err != nil {
		return nil, fmt.Errorf("load powerload: %w", err)
	}

	var dist *models.Disturbance
	var rep *models.Repair
	if job.ModelType == models.ModelResilience {
		if job.DisturbanceID != "" {
			if dist, err = s.store.GetDisturbance(ctx, job.UserID, job.DisturbanceID); err != nil {
				return nil, fmt.Errorf("load disturbance: %w", err)
			}
		} else {
			// No stored disturbance selected: treat the whole system as
			// derated at full severity.
			dist = &models.Disturbance{Components: map[string]float64{"system": 1}}
		}
		if job.RepairID != "" {
			if rep, err = s.store.GetRepair(ctx, job.UserID, job.RepairID); err != nil {
				return nil, fmt.Errorf("load repair: %w", err)
			}
		}
	}

	if s.tracer != nil {
		spanCtx, span := s.tracer.StartComputeSpan(ctx, job.ID, string(job.ModelType), job.PowerloadID)
		defer span.End()
		started := time.Now()
		result, runErr := s.runner.Run(spanCtx, job, pl, dist, rep)
		s.tracer.RecordComputeMetrics(span, time.Since(started), runErr == nil)
		if runErr != nil {
			s.tracer.RecordError(span, runErr)
		}
		return result, runErr
	}

	return s.runner.Run(ctx, job, pl, dist, rep)
}

// Status implements compute.StatusSource: the poll payload for one job.
func (s *ComputeService) Status(ctx context.Context, computeID string) (*models.ComputeStatusResponse, error) {
	job, err := s.store.GetJob(ctx, computeID)
	if err != nil {
		return nil, err
	}
	return &models.ComputeStatusResponse{
		ComputeID: job.ID,
		Success:   job.Success,
		Error:     job.Error,
	}, nil
}

// Job returns the full job document, enforcing ownership.
func (s *ComputeService) Job(ctx context.Context, userID, computeID string) (*models.ComputeJob, error) {
	job, err := s.store.GetJob(ctx, computeID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, repo.ErrNotFound
	}
	return job, nil
}

// Result returns the result document of a successfully finished run.
func (s *ComputeService) Result(ctx context.Context, userID, computeID string) (*models.ComputeResult, error) {
	job, err := s.Job(ctx, userID, computeID)
	if err != nil {
		return nil, err
	}
	if !job.Terminal() {
		return nil, fmt.Errorf("compute %s is still running", computeID)
	}
	if !*job.Success {
		return nil, fmt.Errorf("compute %s failed: %s", computeID, job.Error)
	}
	return job.Result, nil
}

// ListJobs returns the user's jobs, optionally filtered by model type.
func (s *ComputeService) ListJobs(ctx context.Context, userID string, model models.ModelType) ([]*models.ComputeJob, error) {
	jobs, err := s.store.ListJobs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if model == "" {
		return jobs, nil
	}
	filtered := jobs[:0]
	for _, j := range jobs {
		if j.ModelType == model {
			filtered = append(filtered, j)
		}
	}
	return filtered, nil
}

// Remove deletes a finished or running job record. The duplicate-submission
// index entry goes with it so the same inputs can be resubmitted.
func (s *ComputeService) Remove(ctx context.Context, userID, computeID string) error {
	job, err := s.Job(ctx, userID, computeID)
	if err != nil {
		return err
	}

	_ = s.store.DeleteJobKey(ctx, jobDedupeKey(job))

	return s.store.DeleteJob(ctx, userID, computeID)
}

// jobDedupeKey rebuilds the duplicate-detection key from a job's corrected
// window values and its full (defaulted) input set.
func jobDedupeKey(job *models.ComputeJob) string {
	req := &models.ComputeRequest{
		PowerloadID:   job.PowerloadID,
		GridID:        job.GridID,
		StartDateTime: window.FormatStamp(job.StartDateTime),
		EndDateTime:   window.FormatStamp(job.EndDateTime),

		DisturbanceID:   job.DisturbanceID,
		RepairID:        job.RepairID,
		ExtendTimeframe: job.ExtendTimeframe,
		NumRuns:         job.NumRuns,
		NumShiftHours:   job.NumShiftHours,
		NumLevels:       job.NumLevels,
		Method:          job.Method,
	}
	if job.DisturbanceStartDateTime != nil {
		req.DisturbanceStartDateTime = window.FormatStamp(*job.DisturbanceStartDateTime)
	}
	return req.JobKey(job.UserID, job.ModelType)
}

// Shutdown waits for in-flight runs to finish or the context to expire.
func (s *ComputeService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
