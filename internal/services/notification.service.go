package services

import (
	"context"
	"fmt"
	"time"

	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/internal/metrics"
	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

type NotificationService struct {
	integrations *IntegrationsService
	logger       logger.Logger
}

func NewNotificationService(cfg config.IntegrationsConfig, log logger.Logger) *NotificationService {
	return &NotificationService{
		integrations: NewIntegrationsService(cfg, log),
		logger:       log,
	}
}

// SendNotification dispatches notifications to configured integrations
func (s *NotificationService) SendNotification(ctx context.Context, notification *models.Notification) error {
	var errs []error

	if err := s.integrations.SendSlackNotification(ctx, notification); err != nil {
		s.logger.Error("slack notification failed", "error", err)
		errs = append(errs, err)
		metrics.NotificationsSent.WithLabelValues("slack", notification.Type, "false").Inc()
	} else {
		metrics.NotificationsSent.WithLabelValues("slack", notification.Type, "true").Inc()
	}

	if err := s.integrations.SendMSTeamsNotification(ctx, notification); err != nil {
		s.logger.Error("ms teams notification failed", "error", err)
		errs = append(errs, err)
		metrics.NotificationsSent.WithLabelValues("teams", notification.Type, "false").Inc()
	} else {
		metrics.NotificationsSent.WithLabelValues("teams", notification.Type, "true").Inc()
	}

	if err := s.integrations.SendEmailNotification(ctx, notification); err != nil {
		s.logger.Error("email notification failed", "error", err)
		errs = append(errs, err)
		metrics.NotificationsSent.WithLabelValues("email", notification.Type, "false").Inc()
	} else {
		metrics.NotificationsSent.WithLabelValues("email", notification.Type, "true").Inc()
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification partially failed: %d/%d integrations failed", len(errs), 3)
	}
	return nil
}

// ProcessComputeNotification announces a finished compute run. Failures get a
// high-severity notice; successes a low-severity one.
func (s *NotificationService) ProcessComputeNotification(ctx context.Context, job *models.ComputeJob) error {
	if !job.Terminal() {
		return fmt.Errorf("job %s has not finished", job.ID)
	}

	notification := &models.Notification{
		ID:        fmt.Sprintf("compute-%s", job.ID),
		Component: "compute-runner",
		Timestamp: time.Now(),
		UserID:    job.UserID,
	}

	if *job.Success {
		notification.Type = "compute_succeeded"
		notification.Severity = "low"
		notification.Title = fmt.Sprintf("%s run finished", job.ModelType)
		notification.Message = fmt.Sprintf("Analysis %s over powerload %s completed successfully.", job.ID, job.PowerloadID)
	} else {
		notification.Type = "compute_failed"
		notification.Severity = "high"
		notification.Title = fmt.Sprintf("%s run failed", job.ModelType)
		notification.Message = fmt.Sprintf("Analysis %s over powerload %s failed: %s", job.ID, job.PowerloadID, job.Error)
	}

	return s.SendNotification(ctx, notification)
}
