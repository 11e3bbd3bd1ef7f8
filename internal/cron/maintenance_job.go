package cron

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/domain"
)

type maintainer interface {
	RunMaintenance(ctx context.Context, now time.Time) (domain.MaintenanceReport, error)
}

// MaintenanceJob evicts expired cart line items and rolls back stale
// inventory additions.
type MaintenanceJob struct {
	service maintainer
	now     func() time.Time
}

func NewMaintenanceJob(service maintainer) (*MaintenanceJob, error) {
	if service == nil {
		return nil, errors.New("maintenance service required")
	}
	return &MaintenanceJob{
		service: service,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *MaintenanceJob) Name() string { return "cart-maintenance" }

func (j *MaintenanceJob) Run(ctx context.Context) error {
	_, err := j.service.RunMaintenance(ctx, j.now())
	return err
}
