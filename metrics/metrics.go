// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes Prometheus instruments for the ledger, bridge and
// exchange components. Every method is safe to call on a nil *Metrics.
package metrics

import (
	"math/big"
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "branchledger"

// Metrics groups every instrument registered by New.
type Metrics struct {
	BranchTransfers   *prometheus.CounterVec
	BranchSupply      *prometheus.GaugeVec
	TotalSupply       prometheus.Gauge
	CurrentSupply     prometheus.Gauge
	RelayOutcomes     *prometheus.CounterVec
	MoveOrders        *prometheus.CounterVec
	ExchangeOrders    *prometheus.CounterVec
	BatchItems        *prometheus.CounterVec
	Restrictions      *prometheus.CounterVec
	LiquidityBalance  prometheus.Gauge
	OperationDuration *prometheus.HistogramVec
}

// New registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BranchTransfers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "branch_transfers_total",
			Help:      "Supply movements between the current chain and branches",
		}, []string{"direction", "chain"}),
		BranchSupply: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "branch_supply",
			Help:      "Recorded supply per branch in base units",
		}, []string{"chain"}),
		TotalSupply: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_supply",
			Help:      "Global supply across every domain in base units",
		}),
		CurrentSupply: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_chain_supply",
			Help:      "Supply circulating on the current chain in base units",
		}),
		RelayOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_outcomes_total",
			Help:      "Relayed outbound transfers by outcome",
		}, []string{"outcome"}),
		MoveOrders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "move_orders_total",
			Help:      "Move-to-branch order lifecycle events",
		}, []string{"event"}),
		ExchangeOrders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_orders_total",
			Help:      "Exchange order lifecycle events",
		}, []string{"event"}),
		BatchItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Items processed by batch operations",
		}, []string{"operation", "result"}),
		Restrictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seller_restrictions_total",
			Help:      "Seller restriction transitions",
		}, []string{"transition"}),
		LiquidityBalance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "liquidity_balance",
			Help:      "Native currency in the exchange liquidity pool",
		}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of state-changing operations",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncBranchTransfer(direction string, chainID uint64) {
	if m == nil {
		return
	}
	m.BranchTransfers.WithLabelValues(direction, chainLabel(chainID)).Inc()
}

// SetSupply publishes the three supply figures after a ledger mutation.
func (m *Metrics) SetSupply(total, current *uint256.Int, branches map[uint64]*uint256.Int) {
	if m == nil {
		return
	}
	m.TotalSupply.Set(toFloat(total))
	m.CurrentSupply.Set(toFloat(current))
	for id, supply := range branches {
		m.BranchSupply.WithLabelValues(chainLabel(id)).Set(toFloat(supply))
	}
}

func (m *Metrics) IncRelay(outcome string) {
	if m == nil {
		return
	}
	m.RelayOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncMoveOrder(event string) {
	if m == nil {
		return
	}
	m.MoveOrders.WithLabelValues(event).Inc()
}

func (m *Metrics) IncExchangeOrder(event string) {
	if m == nil {
		return
	}
	m.ExchangeOrders.WithLabelValues(event).Inc()
}

func (m *Metrics) IncBatchItem(operation string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "exception"
	}
	m.BatchItems.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) IncRestriction(transition string) {
	if m == nil {
		return
	}
	m.Restrictions.WithLabelValues(transition).Inc()
}

func (m *Metrics) SetLiquidity(v *uint256.Int) {
	if m == nil {
		return
	}
	m.LiquidityBalance.Set(toFloat(v))
}

// ObserveOperation records the duration of operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
