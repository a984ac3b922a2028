package metrics

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-cpman/pkg/types"
)

func TestTrafficCounter(t *testing.T) {
	mock := clock.NewMock()
	c := NewTrafficCounter(mock)

	c.LogSentMessage(100, "cpman-load-request", types.NodeID("b"))
	c.LogRecvMessage(40, "cpman-load-request", types.NodeID("b"))
	c.LogSentMessage(10, "cpman-resource-request", types.NodeID("c"))

	totals := c.Totals()
	assert.Equal(t, int64(110), totals.TotalOut)
	assert.Equal(t, int64(40), totals.TotalIn)

	assert.Equal(t, int64(100), c.ForPeer("b").TotalOut)
	assert.Equal(t, int64(40), c.ForSubject("cpman-load-request").TotalIn)
	assert.Equal(t, Stats{}, c.ForPeer("nobody"))

	assert.Len(t, c.ByPeer(), 2)
	assert.Len(t, c.BySubject(), 2)

	mock.Add(tickInterval)
	assert.InDelta(t, 22.0, c.Totals().RateOut, 1e-9)

	c.Reset()
	assert.Equal(t, Stats{}, c.Totals())
	assert.Empty(t, c.ByPeer())
}
