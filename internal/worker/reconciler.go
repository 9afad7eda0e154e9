// Package worker runs background jobs next to the HTTP surface.
package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/bakaio/matchbroker/internal/repository"
	"github.com/bakaio/matchbroker/internal/service"
)

// Reconciler periodically sweeps for open matches whose roster is complete but
// whose checkout space was never provisioned, and re-runs provisioning for
// them. Together with the fire-after-commit trigger this makes provisioning
// at-least-once across crashes.
type Reconciler struct {
	repo      repository.MatchRepository
	checkout  service.CheckoutService
	log       *zap.Logger
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewReconciler constructs the sweep job. interval defaults to one minute.
func NewReconciler(repo repository.MatchRepository, checkout service.CheckoutService, log *zap.Logger, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{repo: repo, checkout: checkout, log: log, interval: interval}
}

// Start schedules the sweep and begins running it.
func (r *Reconciler) Start() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = s.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.Sweep),
	)
	if err != nil {
		return err
	}
	r.scheduler = s
	s.Start()
	r.log.Info("checkout reconciler started", zap.Duration("interval", r.interval))
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (r *Reconciler) Stop() {
	if r.scheduler == nil {
		return
	}
	if err := r.scheduler.Shutdown(); err != nil {
		r.log.Warn("reconciler shutdown", zap.Error(err))
	}
}

// Sweep runs one pass. Failures on individual matches are logged and left for
// the next pass.
func (r *Reconciler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	ids, err := r.repo.OpenRosterComplete(ctx)
	if err != nil {
		r.log.Error("reconciler list", zap.Error(err))
		return
	}
	for _, id := range ids {
		res, err := r.checkout.Ensure(ctx, id)
		if err != nil {
			r.log.Warn("reconciler provisioning",
				zap.String("match", id.String()),
				zap.Error(err),
			)
			continue
		}
		if res.Created {
			r.log.Info("reconciler provisioned checkout",
				zap.String("match", id.String()),
				zap.String("space", res.SpaceRef),
			)
		}
	}
}
