package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiErrors   *Counter

	eventsIngested *CounterVec
	eventsRejected *CounterVec
	snapshotScore  *HistogramVec
	alertsOpened   *CounterVec
	alertsAcked    *CounterVec

	aggregateOps       *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	queueMessages  *CounterVec
	auditIndexed   *CounterVec
	busPublished   *CounterVec
	streamClients  *Gauge
	pgStats        *GaugeVec
	redisUp        *Gauge
	redisPing      *Gauge
	scrapeInterval time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics registry. It returns nil when
// disabled; every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New returns an unregistered Metrics; tests use it directly.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("ms_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ms_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("ms_api_inflight_requests", "In-flight API requests."),
		apiErrors:   NewCounter("ms_api_requests_error_total", "Total API requests with 5xx status."),

		eventsIngested: NewCounterVec("ms_events_ingested_total", "Engagement events folded by type/source.", []string{"type", "source"}),
		eventsRejected: NewCounterVec("ms_events_rejected_total", "Engagement events rejected by source/reason.", []string{"source", "reason"}),
		snapshotScore: NewHistogramVec(
			"ms_snapshot_compliance_score",
			"Compliance score after each fold by risk level.",
			[]string{"risk"},
			[]float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		),
		alertsOpened: NewCounterVec("ms_alerts_opened_total", "Behavior alerts opened by type.", []string{"type"}),
		alertsAcked:  NewCounterVec("ms_alerts_acknowledged_total", "Behavior alerts acknowledged by type.", []string{"type"}),

		aggregateOps: NewHistogramVec(
			"ms_aggregate_operation_duration_seconds",
			"Aggregate write duration by operation/status.",
			[]string{"op", "status"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		),
		aggregateConflicts: NewCounterVec("ms_aggregate_conflicts_total", "Aggregate writes that ended in a conflict.", []string{"op"}),
		aggregateRetries:   NewCounterVec("ms_aggregate_retries_total", "Aggregate write attempts that failed retryably.", []string{"op"}),

		queueMessages: NewCounterVec("ms_queue_messages_total", "AMQP deliveries by outcome.", []string{"outcome"}),
		auditIndexed:  NewCounterVec("ms_audit_index_total", "Audit mirror writes by status.", []string{"status"}),
		busPublished:  NewCounterVec("ms_alert_bus_publish_total", "Alert bus publishes by status.", []string{"status"}),
		streamClients: NewGauge("ms_alert_stream_clients", "Connected alert stream clients."),
		pgStats:       NewGaugeVec("ms_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:       NewGauge("ms_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:     NewGauge("ms_redis_ping_seconds", "Redis ping latency in seconds."),

		scrapeInterval: 10 * time.Second,
	}
}

func (m *Metrics) families() []family {
	return []family{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.eventsIngested, m.eventsRejected, m.snapshotScore, m.alertsOpened, m.alertsAcked,
		m.aggregateOps, m.aggregateConflicts, m.aggregateRetries,
		m.queueMessages, m.auditIndexed, m.busPublished, m.streamClients,
		m.pgStats, m.redisUp, m.redisPing,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, f := range m.families() {
		if err := f.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if strings.HasPrefix(status, "5") {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) IncEventIngested(eventType, source string) {
	if m == nil {
		return
	}
	m.eventsIngested.Inc(orUnknown(eventType), orUnknown(source))
}

func (m *Metrics) IncEventRejected(source, reason string) {
	if m == nil {
		return
	}
	m.eventsRejected.Inc(orUnknown(source), orUnknown(reason))
}

func (m *Metrics) ObserveSnapshotScore(risk string, score int) {
	if m == nil {
		return
	}
	m.snapshotScore.Observe(float64(score), orUnknown(risk))
}

func (m *Metrics) IncAlertOpened(alertType string) {
	if m == nil {
		return
	}
	m.alertsOpened.Inc(orUnknown(alertType))
}

func (m *Metrics) IncAlertAcknowledged(alertType string) {
	if m == nil {
		return
	}
	m.alertsAcked.Inc(orUnknown(alertType))
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Observe(dur.Seconds(), orUnknown(op), orUnknown(status))
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(orUnknown(op))
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(orUnknown(op))
}

func (m *Metrics) IncQueueMessage(outcome string) {
	if m == nil {
		return
	}
	m.queueMessages.Inc(orUnknown(outcome))
}

func (m *Metrics) IncAuditIndexed(status string) {
	if m == nil {
		return
	}
	m.auditIndexed.Inc(orUnknown(status))
}

func (m *Metrics) IncBusPublish(status string) {
	if m == nil {
		return
	}
	m.busPublished.Inc(orUnknown(status))
}

func (m *Metrics) SetStreamClients(n int) {
	if m == nil {
		return
	}
	m.streamClients.Set(float64(n))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings rdb on every scrape interval. rdb is owned by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
