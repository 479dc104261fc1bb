package repo

import (
	"context"
	"errors"

	"github.com/microgridplanner/planner-core/internal/models"
)

// ErrNotFound is returned when a resource does not exist or belongs to a
// different user.
var ErrNotFound = errors.New("resource not found")

// Store defines the storage contract used by the services and handlers.
// Implemented by the Valkey-backed repository.
type Store interface {
	// Powerloads
	SavePowerload(ctx context.Context, pl *models.Powerload) error
	GetPowerload(ctx context.Context, userID, id string) (*models.Powerload, error)
	ListPowerloads(ctx context.Context, userID string) ([]*models.Powerload, error)
	DeletePowerload(ctx context.Context, userID, id string) error

	// Disturbances
	SaveDisturbance(ctx context.Context, d *models.Disturbance) error
	GetDisturbance(ctx context.Context, userID, id string) (*models.Disturbance, error)
	ListDisturbances(ctx context.Context, userID string) ([]*models.Disturbance, error)
	DeleteDisturbance(ctx context.Context, userID, id string) error

	// Repairs
	SaveRepair(ctx context.Context, r *models.Repair) error
	GetRepair(ctx context.Context, userID, id string) (*models.Repair, error)
	ListRepairs(ctx context.Context, userID string) ([]*models.Repair, error)
	DeleteRepair(ctx context.Context, userID, id string) error

	// Compute jobs. Jobs are fetched by compute id alone; callers enforce
	// ownership against ComputeJob.UserID.
	SaveJob(ctx context.Context, job *models.ComputeJob) error
	GetJob(ctx context.Context, computeID string) (*models.ComputeJob, error)
	ListJobs(ctx context.Context, userID string) ([]*models.ComputeJob, error)
	DeleteJob(ctx context.Context, userID, computeID string) error

	// Duplicate-submission index: job key -> compute id of the run already
	// covering those inputs.
	SetJobKey(ctx context.Context, jobKey, computeID string) error
	GetJobKey(ctx context.Context, jobKey string) (string, error)
	DeleteJobKey(ctx context.Context, jobKey string) error

	// Users, keyed by lowercased email for login.
	SaveUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
