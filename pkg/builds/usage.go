package builds

import (
	"time"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// Usage is a snapshot of the build root
type Usage struct {
	Builds        int
	Bytes         int64
	PastRetention int
}

// UsageCollector publishes build root usage as metrics. It satisfies cron.Job.
type UsageCollector struct {
	store     *Store
	retention time.Duration
	metrics   *observability.Metrics
	logger    *observability.Logger
	now       func() time.Time
}

// NewUsageCollector creates a collector. Builds older than retention are
// counted separately; a zero retention disables that count.
func NewUsageCollector(store *Store, retention time.Duration, metrics *observability.Metrics, logger *observability.Logger) *UsageCollector {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &UsageCollector{
		store:     store,
		retention: retention,
		metrics:   metrics,
		logger:    logger.WithField("component", "build_usage"),
		now:       time.Now,
	}
}

// Collect scans the build root and updates the gauges
func (c *UsageCollector) Collect() (Usage, error) {
	var usage Usage
	cutoff := c.now().Add(-c.retention)

	err := c.store.Walk(func(e Entry) error {
		usage.Builds++
		usage.Bytes += e.Bytes
		if c.retention > 0 && e.ModTime.Before(cutoff) {
			usage.PastRetention++
		}
		return nil
	})
	if err != nil {
		return Usage{}, err
	}

	c.metrics.SetBuildUsage(usage.Builds, usage.Bytes, usage.PastRetention)
	return usage, nil
}

// Run collects once and logs the result
func (c *UsageCollector) Run() {
	usage, err := c.Collect()
	if err != nil {
		c.logger.WithError(err).Error("Failed to collect build usage")
		return
	}
	c.logger.WithFields(map[string]interface{}{
		"builds":         usage.Builds,
		"bytes":          usage.Bytes,
		"past_retention": usage.PastRetention,
	}).Debug("Build usage collected")
}
