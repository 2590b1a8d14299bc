package scheduler

import (
	"context"
	"fmt"

	"github.com/disi/commandes/internal/domain/dashboard"
)

// Dashboard job names
const (
	JobDashboardData           = "dashboard.data"
	JobDashboardUserDeliveries = "dashboard.user_deliveries"
)

// DashboardRefresher rebuilds the cached dashboard documents
type DashboardRefresher interface {
	Data(ctx context.Context, refresh bool) (*dashboard.Data, error)
	UserDeliveries(ctx context.Context, refresh bool) (*dashboard.UserDeliveries, error)
}

// DashboardWarmer keeps the dashboard cache filled so administrators rarely
// wait for the aggregation queries
type DashboardWarmer struct {
	dashboard DashboardRefresher
}

// NewDashboardWarmer creates the executor
func NewDashboardWarmer(d DashboardRefresher) *DashboardWarmer {
	return &DashboardWarmer{dashboard: d}
}

// Jobs lists the job names the warmer executes
func (w *DashboardWarmer) Jobs() []string {
	return []string{JobDashboardData, JobDashboardUserDeliveries}
}

// Execute implements JobExecutor
func (w *DashboardWarmer) Execute(ctx context.Context, job *Job) error {
	var err error
	switch job.Name {
	case JobDashboardData:
		_, err = w.dashboard.Data(ctx, true)
	case JobDashboardUserDeliveries:
		_, err = w.dashboard.UserDeliveries(ctx, true)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Name)
	}
	if err != nil {
		return fmt.Errorf("refresh %s: %w", job.Name, err)
	}
	return nil
}
