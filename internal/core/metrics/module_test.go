package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-cpman/internal/core/eventbus"
	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/types"
)

func TestModule_InventoryDrivesRegistry(t *testing.T) {
	var reg *Registry
	var bus *eventbus.Bus

	app := fxtest.New(t,
		fx.Provide(func() clock.Clock { return clock.NewMock() }),
		eventbus.Module(),
		storage.Module(),
		Module(),
		fx.Populate(&reg, &bus),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, 9, reg.Len(), "全局计量器在构造时创建")

	em, err := eventbus.NewEmitter[types.InventoryEvent](bus)
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(types.InventoryEvent{Kind: types.InventoryAdded, Resource: types.ResourceDevice, Name: "of:1"}))

	require.Eventually(t, func() bool {
		_, ok := reg.MeterFor(types.InboundPacket, "of:1")
		return ok
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 15, reg.Len())
}

func TestConfigFromUnified(t *testing.T) {
	cfg := ConfigFromUnified(nil)
	assert.False(t, cfg.ExporterEnabled)
	assert.Equal(t, "/metrics", cfg.Path)
}
