package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/pkg/types"
)

// ============================================================================
//                              OpenFlow 消息类型
// ============================================================================

// OFMessageType OpenFlow 1.3 消息类型
type OFMessageType uint8

// OpenFlow 1.3 消息类型编号
const (
	OFHello            OFMessageType = 0
	OFError            OFMessageType = 1
	OFEchoRequest      OFMessageType = 2
	OFEchoReply        OFMessageType = 3
	OFExperimenter     OFMessageType = 4
	OFFeaturesRequest  OFMessageType = 5
	OFFeaturesReply    OFMessageType = 6
	OFGetConfigRequest OFMessageType = 7
	OFGetConfigReply   OFMessageType = 8
	OFSetConfig        OFMessageType = 9
	OFPacketIn         OFMessageType = 10
	OFFlowRemoved      OFMessageType = 11
	OFPortStatus       OFMessageType = 12
	OFPacketOut        OFMessageType = 13
	OFFlowMod          OFMessageType = 14
	OFGroupMod         OFMessageType = 15
	OFPortMod          OFMessageType = 16
	OFTableMod         OFMessageType = 17
	OFMultipartRequest OFMessageType = 18
	OFMultipartReply   OFMessageType = 19
	OFBarrierRequest   OFMessageType = 20
	OFBarrierReply     OFMessageType = 21
)

// String 返回消息类型名称
func (t OFMessageType) String() string {
	switch t {
	case OFHello:
		return "HELLO"
	case OFError:
		return "ERROR"
	case OFEchoRequest:
		return "ECHO_REQUEST"
	case OFEchoReply:
		return "ECHO_REPLY"
	case OFExperimenter:
		return "EXPERIMENTER"
	case OFFeaturesRequest:
		return "FEATURES_REQUEST"
	case OFFeaturesReply:
		return "FEATURES_REPLY"
	case OFGetConfigRequest:
		return "GET_CONFIG_REQUEST"
	case OFGetConfigReply:
		return "GET_CONFIG_REPLY"
	case OFSetConfig:
		return "SET_CONFIG"
	case OFPacketIn:
		return "PACKET_IN"
	case OFFlowRemoved:
		return "FLOW_REMOVED"
	case OFPortStatus:
		return "PORT_STATUS"
	case OFPacketOut:
		return "PACKET_OUT"
	case OFFlowMod:
		return "FLOW_MOD"
	case OFGroupMod:
		return "GROUP_MOD"
	case OFPortMod:
		return "PORT_MOD"
	case OFTableMod:
		return "TABLE_MOD"
	case OFMultipartRequest:
		return "MULTIPART_REQUEST"
	case OFMultipartReply:
		return "MULTIPART_REPLY"
	case OFBarrierRequest:
		return "BARRIER_REQUEST"
	case OFBarrierReply:
		return "BARRIER_REPLY"
	default:
		return fmt.Sprintf("OFType(%d)", uint8(t))
	}
}

// MetricTypeOf 返回消息类型对应的控制消息指标
//
// 只有六种消息参与统计，其余返回 ErrUnmappedMessageType。
func MetricTypeOf(t OFMessageType) (types.MetricType, error) {
	switch t {
	case OFPacketIn:
		return types.InboundPacket, nil
	case OFPacketOut:
		return types.OutboundPacket, nil
	case OFFlowMod:
		return types.FlowModPacket, nil
	case OFFlowRemoved:
		return types.FlowRemovedPacket, nil
	case OFMultipartRequest:
		return types.RequestPacket, nil
	case OFMultipartReply:
		return types.ReplyPacket, nil
	default:
		return types.MetricUnknown, fmt.Errorf("%w: %s", ErrUnmappedMessageType, t)
	}
}

// MessageTypeOf 返回控制消息指标对应的消息类型
func MessageTypeOf(m types.MetricType) (OFMessageType, error) {
	switch m {
	case types.InboundPacket:
		return OFPacketIn, nil
	case types.OutboundPacket:
		return OFPacketOut, nil
	case types.FlowModPacket:
		return OFFlowMod, nil
	case types.FlowRemovedPacket:
		return OFFlowRemoved, nil
	case types.RequestPacket:
		return OFMultipartRequest, nil
	case types.ReplyPacket:
		return OFMultipartReply, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnmappedMessageType, m)
	}
}

// ============================================================================
//                              ControlMessageListener
// ============================================================================

// ControlMessageListener 按设备统计控制消息
//
// OnMessage 在消息路径上调用，只打计量器；Flush 周期性把每台设备六个计量器的
// 速率（条/秒）记录下来，凑成一条完整记录。
type ControlMessageListener struct {
	registry *metrics.Registry
	recorder Recorder
	inv      Inventory
	clock    clock.Clock
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewControlMessageListener 创建控制消息监听器
func NewControlMessageListener(interval time.Duration, registry *metrics.Registry, recorder Recorder, inv Inventory, clk clock.Clock) *ControlMessageListener {
	if interval <= 0 {
		interval = time.Minute
	}
	if clk == nil {
		clk = clock.New()
	}
	if registry == nil {
		registry = metrics.NewRegistry(clk)
	}
	return &ControlMessageListener{
		registry: registry,
		recorder: recorder,
		inv:      inv,
		clock:    clk,
		interval: interval,
	}
}

// OnMessage 记录设备收发的一条消息
//
// 未参与统计的消息类型立即返回错误。
func (l *ControlMessageListener) OnMessage(device string, t OFMessageType) error {
	if device == "" {
		return fmt.Errorf("%w: empty device id", types.ErrInvalidScope)
	}
	mt, err := MetricTypeOf(t)
	if err != nil {
		return err
	}

	m, ok := l.registry.MeterFor(mt, device)
	if !ok {
		if err := l.registry.AddDevice(device); err != nil {
			return err
		}
		if l.inv != nil {
			l.inv.AddDevice(device)
		}
		if m, ok = l.registry.MeterFor(mt, device); !ok {
			return nil
		}
	}
	m.Mark(1)
	return nil
}

// Flush 记录所有设备的控制消息速率
func (l *ControlMessageListener) Flush() {
	members := types.CategoryControlMessage.Members()
	for _, device := range l.registry.Scopes(types.CategoryControlMessage) {
		for _, mt := range members {
			m, ok := l.registry.MeterFor(mt, device)
			if !ok {
				continue
			}
			if err := l.recorder.UpdateMetric(mt, m.Rate(), device); err != nil {
				logger.Debug("记录控制消息失败", "device", device, "metric", mt.String(), "error", err)
			}
		}
	}
}

// Start 启动周期提交
func (l *ControlMessageListener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := l.clock.Ticker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Flush()
			}
		}
	}()
}

// Stop 停止周期提交
func (l *ControlMessageListener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}
