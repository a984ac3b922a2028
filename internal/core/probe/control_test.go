package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cpman/pkg/types"
)

func TestMessageTypeMapping(t *testing.T) {
	for _, mt := range types.CategoryControlMessage.Members() {
		ot, err := MessageTypeOf(mt)
		require.NoError(t, err, mt.String())

		back, err := MetricTypeOf(ot)
		require.NoError(t, err, ot.String())
		assert.Equal(t, mt, back)
	}

	_, err := MetricTypeOf(OFHello)
	assert.ErrorIs(t, err, ErrUnmappedMessageType)
	_, err = MetricTypeOf(OFMessageType(200))
	assert.ErrorIs(t, err, ErrUnmappedMessageType)
	_, err = MessageTypeOf(types.CPULoad)
	assert.ErrorIs(t, err, ErrUnmappedMessageType)

	assert.Equal(t, "PACKET_IN", OFPacketIn.String())
	assert.Equal(t, "OFType(200)", OFMessageType(200).String())
}

func TestControlMessageListener(t *testing.T) {
	f := newFixture(t)
	l := NewControlMessageListener(time.Minute, f.registry, f.monitor, f.inv, f.clock)

	assert.ErrorIs(t, l.OnMessage("of:1", OFEchoRequest), ErrUnmappedMessageType)
	assert.ErrorIs(t, l.OnMessage("", OFPacketIn), types.ErrInvalidScope)
	assert.Equal(t, 0, f.registry.Len(), "未映射的消息不创建计量器")

	for i := 0; i < 10; i++ {
		require.NoError(t, l.OnMessage("of:1", OFPacketIn))
	}
	require.NoError(t, l.OnMessage("of:1", OFFlowMod))

	assert.Equal(t, []string{"of:1"}, f.inv.Devices())
	m, ok := f.registry.MeterFor(types.InboundPacket, "of:1")
	require.True(t, ok)
	assert.Equal(t, int64(10), m.Count())

	f.clock.Add(5 * time.Second)
	l.Flush()

	assert.InDelta(t, 2.0, f.latest(t, types.InboundPacket, "of:1"), 1e-9)
	assert.InDelta(t, 0.2, f.latest(t, types.FlowModPacket, "of:1"), 1e-9)
	assert.Equal(t, 0.0, f.latest(t, types.ReplyPacket, "of:1"))
	assert.Equal(t, []string{"of:1"}, f.monitor.Resources(types.CategoryControlMessage))
}
