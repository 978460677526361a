package bot

import (
	"context"

	"github.com/robfig/cron/v3"
)

// standard five-field specs plus @every and @hourly style descriptors
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Housekeep prunes dedup records older than MaxAgeHours and logs the
// remaining state. It returns how many records were removed.
func (b *SignalBot) Housekeep(ctx context.Context) (int, error) {
	removed, err := b.opts.Gate.CleanupExpired(ctx, b.opts.MaxAgeHours)
	if err != nil {
		b.metrics.RecordError("state")
		b.logger.LogError("state cleanup", err)
	}

	stats := b.opts.Gate.Stats()
	b.metrics.UpdateStateRecords(stats.TotalSignalKeys, stats.TotalKeyLevelTriggers)
	b.logger.Status("Housekeeping: removed %d expired records; keys=%d emissions=%d key_level_triggers=%d",
		removed, stats.TotalSignalKeys, stats.TotalEmissions, stats.TotalKeyLevelTriggers)
	return removed, err
}

// startHousekeeping schedules Housekeep on CleanupSchedule. The returned
// stop waits for a running job to finish.
func (b *SignalBot) startHousekeeping(ctx context.Context) (func(), error) {
	if b.opts.CleanupSchedule == "" || b.opts.MaxAgeHours <= 0 {
		return func() {}, nil
	}

	c := cron.New(cron.WithParser(cronParser))
	if _, err := c.AddFunc(b.opts.CleanupSchedule, func() {
		_, _ = b.Housekeep(ctx)
	}); err != nil {
		return nil, err
	}
	c.Start()
	b.logger.Info("State cleanup scheduled %q (max age %.0fh)", b.opts.CleanupSchedule, b.opts.MaxAgeHours)

	return func() {
		<-c.Stop().Done()
	}, nil
}
