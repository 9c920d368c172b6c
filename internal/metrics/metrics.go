package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type EconomyMetrics struct {
	ingestEvents   *prometheus.CounterVec
	ingestBatches  *prometheus.CounterVec
	ledgerOps      *prometheus.CounterVec
	ledgerRetries  prometheus.Counter
	rewardCurrency prometheus.Counter
	drops          *prometheus.CounterVec
	grantTasks     *prometheus.CounterVec
	cacheUpdates   *prometheus.CounterVec
}

var (
	economyOnce     sync.Once
	economyRegistry *EconomyMetrics
)

// Economy returns the process-wide collectors, registering them on
// first use.
func Economy() *EconomyMetrics {
	economyOnce.Do(func() {
		economyRegistry = &EconomyMetrics{
			ingestEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "damage_ingest_events_total",
				Help: "Damage events processed, by outcome.",
			}, []string{"status"}),
			ingestBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "damage_ingest_batches_total",
				Help: "Damage batches received, by result.",
			}, []string{"result"}),
			ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "wallet_ledger_operations_total",
				Help: "Ledger operations by transaction type and result.",
			}, []string{"type", "result"}),
			ledgerRetries: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "wallet_ledger_conflict_retries_total",
				Help: "Ledger attempts retried after a concurrent write.",
			}),
			rewardCurrency: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "reward_currency_credited_total",
				Help: "Sum of reward currency credited from damage.",
			}),
			drops: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "reward_item_drops_total",
				Help: "Items dropped by server tier.",
			}, []string{"tier"}),
			grantTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "item_grant_tasks_total",
				Help: "Item grant tasks by result.",
			}, []string{"result"}),
			cacheUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "wallet_balance_cache_updates_total",
				Help: "Balance cache writes by result.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(
			economyRegistry.ingestEvents,
			economyRegistry.ingestBatches,
			economyRegistry.ledgerOps,
			economyRegistry.ledgerRetries,
			economyRegistry.rewardCurrency,
			economyRegistry.drops,
			economyRegistry.grantTasks,
			economyRegistry.cacheUpdates,
		)
	})
	return economyRegistry
}

func (m *EconomyMetrics) ObserveIngestEvent(status string) {
	if m == nil {
		return
	}
	m.ingestEvents.WithLabelValues(status).Inc()
}

func (m *EconomyMetrics) ObserveIngestBatch(result string) {
	if m == nil {
		return
	}
	m.ingestBatches.WithLabelValues(result).Inc()
}

func (m *EconomyMetrics) ObserveLedgerOp(txType, result string) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(txType, result).Inc()
}

func (m *EconomyMetrics) ObserveLedgerRetry() {
	if m == nil {
		return
	}
	m.ledgerRetries.Inc()
}

func (m *EconomyMetrics) AddRewardCurrency(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.rewardCurrency.Add(amount)
}

func (m *EconomyMetrics) ObserveDrop(tier string) {
	if m == nil {
		return
	}
	if tier == "" {
		tier = "unknown"
	}
	m.drops.WithLabelValues(tier).Inc()
}

func (m *EconomyMetrics) ObserveGrant(result string) {
	if m == nil {
		return
	}
	m.grantTasks.WithLabelValues(result).Inc()
}

func (m *EconomyMetrics) ObserveCacheUpdate(result string) {
	if m == nil {
		return
	}
	m.cacheUpdates.WithLabelValues(result).Inc()
}
