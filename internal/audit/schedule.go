package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Schedule runs the reconciler on spec (standard cron syntax or
// descriptors such as "@every 30m") until ctx ends. Overlapping runs are
// skipped.
func Schedule(ctx context.Context, r *Reconciler, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if _, err := r.Run(ctx, time.Now()); err != nil {
			log.Warn().Err(err).Msg("Reconciliation run failed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	log.Info().Str("schedule", spec).Msg("Scheduled ledger reconciliation")
	return c, nil
}
