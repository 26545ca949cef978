package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetConnectionsReportsPerNetworkDirection(t *testing.T) {
	SetConnections("ip", "outbound", 3)

	m := &dto.Metric{}
	require.NoError(t, connectionsGauge.WithLabelValues("ip", "outbound").Write(m))
	assert.Equal(t, float64(3), m.GetGauge().GetValue())
}

func TestAddBytesInOutAccumulate(t *testing.T) {
	AddBytesIn("msg", 10)
	AddBytesIn("msg", 5)
	AddBytesOut("msg", 7)

	in := &dto.Metric{}
	require.NoError(t, bytesIn.WithLabelValues("msg").Write(in))
	assert.Equal(t, float64(15), in.GetCounter().GetValue())

	out := &dto.Metric{}
	require.NoError(t, bytesOut.WithLabelValues("msg").Write(out))
	assert.Equal(t, float64(7), out.GetCounter().GetValue())
}

func TestSetObjectStoreSizeAndPoWHashRate(t *testing.T) {
	SetObjectStoreSize(42)
	SetPoWHashRate(1234.5)

	size := &dto.Metric{}
	require.NoError(t, objectStoreSize.Write(size))
	assert.Equal(t, float64(42), size.GetGauge().GetValue())

	rate := &dto.Metric{}
	require.NoError(t, powHashRate.Write(rate))
	assert.Equal(t, 1234.5, rate.GetGauge().GetValue())
}
