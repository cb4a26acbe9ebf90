package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names, in the dot-free snake_case Prometheus instrument names
// require.
const (
	MetricOrdersPlacedTotal    = "exchange_orders_placed_total"
	MetricOrdersCancelledTotal = "exchange_orders_cancelled_total"
	MetricTradesMatchedTotal   = "exchange_trades_matched_total"
	MetricVolumeTotal          = "exchange_volume_total"
	MetricOrdersActive         = "exchange_orders_active"
	MetricBatchLatency         = "exchange_batch_latency_ms"
	MetricMatchLatency         = "exchange_match_latency_ms"
	MetricBatchesProcessed     = "exchange_batches_processed_total"
	MetricSignatureFailures    = "exchange_signature_failures_total"
	MetricWithdrawsPending     = "exchange_withdraws_pending"
	MetricCircuitBreakerOpen   = "exchange_circuit_breaker_open"
)

// MetricsHolder holds the instruments emitted by the matching engine and the
// operator pipeline: order lifecycle counters, batch/match latency
// histograms, and the small set of gauges that reflect standing book and
// operator state (open orders, pending withdraws, breaker state).
type MetricsHolder struct {
	OrdersPlacedTotal    metric.Int64Counter
	OrdersCancelledTotal metric.Int64Counter
	TradesMatchedTotal   metric.Int64Counter
	VolumeTotal          metric.Float64Counter
	BatchesProcessed     metric.Int64Counter
	SignatureFailures    metric.Int64Counter
	BatchLatency         metric.Float64Histogram
	MatchLatency         metric.Float64Histogram
	OrdersActive         metric.Int64ObservableGauge
	WithdrawsPending     metric.Int64ObservableGauge
	CircuitBreakerOpen   metric.Int64ObservableGauge

	// State for observable gauges, keyed by trading pair symbol (or
	// "operator" for the single operator-wide breaker gauge).
	mu              sync.RWMutex
	activeOrdersMap map[string]int64
	withdrawsMap    map[string]int64
	cbOpenMap       map[string]int64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder.
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			activeOrdersMap: make(map[string]int64),
			withdrawsMap:    make(map[string]int64),
			cbOpenMap:       make(map[string]int64),
		}
		// Initialization of instruments happens in InitMetrics
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter.
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.OrdersPlacedTotal, err = meter.Int64Counter(MetricOrdersPlacedTotal, metric.WithDescription("Total orders placed"))
	if err != nil {
		return err
	}

	m.OrdersCancelledTotal, err = meter.Int64Counter(MetricOrdersCancelledTotal, metric.WithDescription("Total orders cancelled"))
	if err != nil {
		return err
	}

	m.TradesMatchedTotal, err = meter.Int64Counter(MetricTradesMatchedTotal, metric.WithDescription("Total maker fills produced by the matching engine"))
	if err != nil {
		return err
	}

	m.VolumeTotal, err = meter.Float64Counter(MetricVolumeTotal, metric.WithDescription("Total matched volume in base asset units"))
	if err != nil {
		return err
	}

	m.BatchesProcessed, err = meter.Int64Counter(MetricBatchesProcessed, metric.WithDescription("Total operator trade batches processed"))
	if err != nil {
		return err
	}

	m.SignatureFailures, err = meter.Int64Counter(MetricSignatureFailures, metric.WithDescription("Total user-signature verification failures"))
	if err != nil {
		return err
	}

	m.BatchLatency, err = meter.Float64Histogram(MetricBatchLatency, metric.WithDescription("Time to validate and apply one trade batch"), metric.WithUnit("ms"))
	if err != nil {
		return err
	}

	m.MatchLatency, err = meter.Float64Histogram(MetricMatchLatency, metric.WithDescription("Time to plan and commit one order's matching pass"), metric.WithUnit("ms"))
	if err != nil {
		return err
	}

	// Observables
	m.OrdersActive, err = meter.Int64ObservableGauge(MetricOrdersActive, metric.WithDescription("Number of currently resting orders"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for sym, val := range m.activeOrdersMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("pair", sym)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.WithdrawsPending, err = meter.Int64ObservableGauge(MetricWithdrawsPending, metric.WithDescription("Number of withdraw requests awaiting operator approval"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for tok, val := range m.withdrawsMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("token", tok)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.CircuitBreakerOpen, err = meter.Int64ObservableGauge(MetricCircuitBreakerOpen, metric.WithDescription("Operator signature-failure circuit breaker state (1=open, 0=closed)"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for name, val := range m.cbOpenMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("breaker", name)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// Helpers to update observable state

// SetActiveOrders records the current resting order count for a pair.
func (m *MetricsHolder) SetActiveOrders(pair string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeOrdersMap[pair] = count
}

// SetWithdrawsPending records the current pending withdraw count for a token.
func (m *MetricsHolder) SetWithdrawsPending(token string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawsMap[token] = count
}

// SetCircuitBreakerOpen records the breaker's open/closed state.
func (m *MetricsHolder) SetCircuitBreakerOpen(name string, open bool) {
	val := int64(0)
	if open {
		val = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cbOpenMap[name] = val
}

// GetActiveOrders returns a snapshot of the per-pair active order counts.
func (m *MetricsHolder) GetActiveOrders() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]int64, len(m.activeOrdersMap))
	for k, v := range m.activeOrdersMap {
		res[k] = v
	}
	return res
}

// GetWithdrawsPending returns a snapshot of the per-token pending withdraw counts.
func (m *MetricsHolder) GetWithdrawsPending() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]int64, len(m.withdrawsMap))
	for k, v := range m.withdrawsMap {
		res[k] = v
	}
	return res
}
