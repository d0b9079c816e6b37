package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kwtrack/internal/models"
)

var (
	aggregationOutcomeDesc = prometheus.NewDesc(
		"kwtrack_aggregation_outcomes_total",
		"Total aggregation requests by metric and how they were served",
		[]string{"metric", "outcome"},
		nil,
	)
	trackedKeywordsDesc = prometheus.NewDesc(
		"kwtrack_tracked_keywords",
		"Number of tracked keywords per project",
		[]string{"project"},
		nil,
	)

	computeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kwtrack_aggregation_compute_seconds",
		Help:    "Time spent computing aggregation windows from observations",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})
)

// Store is the persistence the collector and recorder use. *db.DB implements it.
type Store interface {
	IncrementAggregationOutcome(ctx context.Context, metric, outcome string) error
	GetAllAggregationOutcomes(ctx context.Context) ([]models.AggregationOutcome, error)
	CountKeywordsByProject(ctx context.Context) (map[string]int64, error)
}

// OutcomeCollector is a custom Prometheus collector that reads aggregation
// outcome counts and tracked keyword counts from the database on each scrape.
type OutcomeCollector struct {
	store Store
}

// NewOutcomeCollector creates a collector over store.
func NewOutcomeCollector(store Store) *OutcomeCollector {
	return &OutcomeCollector{store: store}
}

// Describe sends the metric descriptors to the channel.
func (c *OutcomeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- aggregationOutcomeDesc
	ch <- trackedKeywordsDesc
}

// Collect queries the database and emits outcome counters and keyword gauges.
func (c *OutcomeCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcomes, err := c.store.GetAllAggregationOutcomes(ctx)
	if err != nil {
		slog.Error("failed to collect aggregation outcome metrics", "error", err)
	}
	for _, o := range outcomes {
		ch <- prometheus.MustNewConstMetric(
			aggregationOutcomeDesc,
			prometheus.CounterValue,
			float64(o.Count),
			o.Metric,
			o.Outcome,
		)
	}

	counts, err := c.store.CountKeywordsByProject(ctx)
	if err != nil {
		slog.Error("failed to collect tracked keyword metrics", "error", err)
		return
	}
	for project, n := range counts {
		ch <- prometheus.MustNewConstMetric(trackedKeywordsDesc, prometheus.GaugeValue, float64(n), project)
	}
}

// Recorder provides async aggregation outcome recording.
type Recorder struct {
	store Store
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the collectors and initializes the recorder. cacheSize
// reports the number of locally cached windows and may be nil.
// Must be called once at startup.
func Init(store Store, cacheSize func() int) {
	recorderOnce.Do(func() {
		recorder = &Recorder{store: store}
		prometheus.MustRegister(NewOutcomeCollector(store), computeDuration)
		if cacheSize != nil {
			prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "kwtrack_result_cache_entries",
				Help: "Aggregation windows held in the local result cache",
			}, func() float64 { return float64(cacheSize()) }))
		}
	})
}

// RecordAggregation asynchronously records how an aggregation request was served.
func RecordAggregation(metric, outcome string) {
	if recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recorder.store.IncrementAggregationOutcome(ctx, metric, outcome); err != nil {
			slog.Error("failed to record aggregation outcome", "metric", metric, "outcome", outcome, "error", err)
		}
	}()
}

// ObserveCompute records the duration of one aggregation computation.
func ObserveCompute(d time.Duration) {
	computeDuration.Observe(d.Seconds())
}

// Handler serves the Prometheus exposition format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
