// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncBranchTransfer("out", 1)
	m.SetSupply(uint256.NewInt(1), uint256.NewInt(1), nil)
	m.IncRelay("succeeded")
	m.IncMoveOrder("opened")
	m.IncExchangeOrder("placed")
	m.IncBatchItem("reserve", false)
	m.IncRestriction("locked")
	m.SetLiquidity(uint256.NewInt(3))
	m.ObserveOperation("noop", time.Now())
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncBranchTransfer("out", 56)
	m.IncBranchTransfer("out", 56)
	m.IncBatchItem("reserve", true)
	m.IncBatchItem("reserve", false)
	m.SetSupply(uint256.NewInt(10), uint256.NewInt(4), map[uint64]*uint256.Int{56: uint256.NewInt(6)})
	m.SetLiquidity(uint256.NewInt(42))

	require.Equal(t, float64(2), testutil.ToFloat64(m.BranchTransfers.WithLabelValues("out", "56")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.BatchItems.WithLabelValues("reserve", "exception")))
	require.Equal(t, float64(10), testutil.ToFloat64(m.TotalSupply))
	require.Equal(t, float64(6), testutil.ToFloat64(m.BranchSupply.WithLabelValues("56")))
	require.Equal(t, float64(42), testutil.ToFloat64(m.LiquidityBalance))
}

// TestNewTwiceOnSeparateRegistries tests that instances do not collide
func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
