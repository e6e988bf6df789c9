package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	paymentsInitiated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Total payment sessions opened per gateway",
		},
		[]string{"gateway", "status"},
	)

	paymentVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Total payment verification outcomes per gateway",
		},
		[]string{"gateway", "outcome"},
	)

	ticketsSold = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_sold_total",
			Help: "Total tickets sold per event and tier",
		},
		[]string{"event_id", "tier"},
	)

	ticketScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_scans_total",
			Help: "Total ticket scan attempts",
		},
		[]string{"result"},
	)

	ticketTransfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_transfers_total",
			Help: "Total ticket transfer operations",
		},
		[]string{"operation"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of payment gateway round trips",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"gateway", "operation"},
	)

	pendingVerifyLocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "verify_locks_held_total",
			Help: "Current number of held verification locks",
		},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)
)

func RecordPaymentInitiated(gateway, status string) {
	paymentsInitiated.WithLabelValues(gateway, status).Inc()
}

func RecordVerification(gateway, outcome string) {
	paymentVerifications.WithLabelValues(gateway, outcome).Inc()
}

func RecordTicketsSold(eventID, tier string, quantity int) {
	ticketsSold.WithLabelValues(eventID, tier).Add(float64(quantity))
}

func RecordScan(result string) {
	ticketScans.WithLabelValues(result).Inc()
}

func RecordTransfer(operation string) {
	ticketTransfers.WithLabelValues(operation).Inc()
}

func ObserveGateway(gateway, operation string, duration time.Duration) {
	gatewayDuration.WithLabelValues(gateway, operation).Observe(duration.Seconds())
}

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()

		m.collectLockMetrics(ctx)
		goroutineCount.Set(float64(runtime.NumGoroutine()))
	}
}

func (m *Monitor) collectLockMetrics(ctx context.Context) {
	keys, err := m.redis.Keys(ctx, "verify:lock:*").Result()
	if err != nil {
		return
	}
	pendingVerifyLocks.Set(float64(len(keys)))
}
