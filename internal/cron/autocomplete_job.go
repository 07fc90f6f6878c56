package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/mercatohq/mercato-backend/internal/orders"
	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/metrics"
)

const autoCompleteJobName = "auto-complete"

type deliveredLister interface {
	FindDeliveredBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type transitioner interface {
	Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error)
}

// AutoCompleteJob promotes delivered orders to completed once the dispute
// window has lapsed. Each order transitions in its own transaction, so the
// sweep is safe to re-run and safe to race with a buyer opening a dispute.
type AutoCompleteJob struct {
	lister  deliveredLister
	engine  transitioner
	logg    *logger.Logger
	metrics *metrics.CronJobMetrics
	window  time.Duration
	now     func() time.Time
}

// NewAutoCompleteJob builds the sweep. A non-positive window falls back to
// the default dispute window.
func NewAutoCompleteJob(lister deliveredLister, engine transitioner, logg *logger.Logger, m *metrics.CronJobMetrics, window time.Duration) (*AutoCompleteJob, error) {
	if lister == nil {
		return nil, fmt.Errorf("delivered order lister required")
	}
	if engine == nil {
		return nil, fmt.Errorf("lifecycle engine required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if window <= 0 {
		window = 48 * time.Hour
	}
	return &AutoCompleteJob{
		lister:  lister,
		engine:  engine,
		logg:    logg,
		metrics: m,
		window:  window,
		now:     time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *AutoCompleteJob) Name() string { return autoCompleteJobName }

// Run executes one sweep and returns the accumulated hard failures.
func (j *AutoCompleteJob) Run(ctx context.Context) error {
	count, err := j.Sweep(ctx)
	j.metrics.AddCompleted(autoCompleteJobName, count)
	return err
}

// Sweep completes every eligible order and reports how many it completed.
// Orders whose status changed since selection (a dispute opened, an admin
// intervened) are skipped, not failed.
func (j *AutoCompleteJob) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.window)
	eligible, err := j.lister.FindDeliveredBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivered orders")
	}

	var completed int
	var errs error
	for _, order := range eligible {
		_, err := j.engine.Transition(ctx, orders.TransitionInput{
			OrderID: order.ID,
			Target:  enums.OrderStatusCompleted,
			Role:    enums.ActorRoleSystem,
		})
		switch {
		case err == nil:
			completed++
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			j.logg.Info(j.logg.WithOrderID(ctx, order.ID.String()), "skipping order no longer eligible for auto-complete")
		default:
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}

	j.logg.Info(j.logg.WithField(ctx, "completed", completed), "auto-complete sweep finished")
	return completed, errs
}
