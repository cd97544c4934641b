package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveOp(t *testing.T) {
	require := require.New(t)

	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveOp("swap", nil, time.Millisecond)
	m.ObserveOp("swap", nil, time.Millisecond)
	m.ObserveOp("swap", errors.New("expired"), time.Millisecond)

	require.Equal(2.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("swap", ResultOK)))
	require.Equal(1.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("swap", ResultRejected)))
}

func TestSetPoolState(t *testing.T) {
	require := require.New(t)

	m := NewMetrics(prometheus.NewRegistry())
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	m.SetPoolState("0xa", "0xb", uint256.NewInt(1000), huge, uint256.NewInt(2000), 7)

	require.Equal(1000.0, testutil.ToFloat64(m.reserve.WithLabelValues("0xa")))
	require.InEpsilon(1.2676506002282294e30, testutil.ToFloat64(m.reserve.WithLabelValues("0xb")), 1e-9)
	require.Equal(2000.0, testutil.ToFloat64(m.totalSupply))
	require.Equal(7.0, testutil.ToFloat64(m.lastSeq))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOp("swap", nil, time.Second)
	m.ObserveEvent("SwapExecuted")
	m.SetPoolState("a", "b", nil, nil, nil, 0)
	m.ObserveSinkRetry("logs")
}
