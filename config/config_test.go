package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 60*time.Second, cfg.Storage.Step.Duration())
	assert.Equal(t, 1440, cfg.Storage.Rows)
	assert.Equal(t, 24*time.Hour, cfg.Storage.Retention())
	assert.NotEmpty(t, cfg.Node.ID)
}

// TestStorageConfig 测试存储配置
func TestStorageConfig(t *testing.T) {
	t.Run("步长过小", func(t *testing.T) {
		cfg := DefaultStorageConfig()
		cfg.Step = Duration(500 * time.Millisecond)
		assert.Error(t, cfg.Validate())
	})

	t.Run("步长非整秒", func(t *testing.T) {
		cfg := DefaultStorageConfig()
		cfg.Step = Duration(1500 * time.Millisecond)
		assert.Error(t, cfg.Validate())
	})

	t.Run("行数为零", func(t *testing.T) {
		cfg := DefaultStorageConfig()
		cfg.Rows = 0
		assert.Error(t, cfg.Validate())
	})
}

// TestClusterConfig 测试集群配置
func TestClusterConfig(t *testing.T) {
	t.Run("默认有效", func(t *testing.T) {
		assert.NoError(t, DefaultClusterConfig().Validate())
	})

	t.Run("非法监听地址", func(t *testing.T) {
		cfg := DefaultClusterConfig()
		cfg.ListenAddr = "no-port"
		assert.Error(t, cfg.Validate())
	})

	t.Run("重复对端", func(t *testing.T) {
		cfg := DefaultClusterConfig()
		cfg.Peers = []Peer{
			{ID: "a", Addr: "127.0.0.1:1"},
			{ID: "a", Addr: "127.0.0.1:2"},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("对端地址查询", func(t *testing.T) {
		cfg := DefaultClusterConfig()
		cfg.Peers = []Peer{{ID: "b", Addr: "10.0.0.2:7946"}}
		addr, ok := cfg.PeerAddr("b")
		assert.True(t, ok)
		assert.Equal(t, "10.0.0.2:7946", addr)

		_, ok = cfg.PeerAddr("c")
		assert.False(t, ok)
	})

	t.Run("对端列表包含本节点", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Node.ID = "self"
		cfg.Cluster.Peers = []Peer{{ID: "self", Addr: "127.0.0.1:1"}}
		assert.Error(t, cfg.Validate())
	})
}

// TestProbeConfig 测试探针配置
func TestProbeConfig(t *testing.T) {
	cfg := DefaultProbeConfig()
	assert.True(t, cfg.WantDisk("sda"))
	assert.True(t, cfg.WantInterface("eth0"))

	cfg.Disks = []string{"nvme0n1"}
	assert.True(t, cfg.WantDisk("nvme0n1"))
	assert.False(t, cfg.WantDisk("sda"))

	cfg.HostInterval = 0
	assert.Error(t, cfg.Validate())

	cfg.EnableHost = false
	assert.NoError(t, cfg.Validate())
}

// TestExporterConfig 测试导出配置
func TestExporterConfig(t *testing.T) {
	cfg := DefaultExporterConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enable = true
	cfg.Path = "metrics"
	assert.Error(t, cfg.Validate())
}

// TestDuration_JSON 测试 Duration 的 JSON 解析
func TestDuration_JSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"storage":{"step":"2m"},"probe":{"host_interval":120}}`))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Storage.Step.Duration())
	assert.Equal(t, 2*time.Minute, cfg.Probe.HostInterval.Duration())
	assert.Equal(t, int64(120), cfg.Probe.HostInterval.Seconds())
	// 未出现的字段保留默认值
	assert.Equal(t, 1440, cfg.Storage.Rows)

	_, err = FromJSON([]byte(`{"storage":{"step":"abc"}}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"storage":{"step":-5}}`))
	assert.Error(t, err)
}

// TestConfig_RoundTrip 测试序列化后重新加载
func TestConfig_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Node.ID = "n1"
	cfg.Cluster.ListenAddr = "127.0.0.1:7946"
	cfg.Cluster.Peers = []Peer{{ID: "n2", Addr: "127.0.0.1:7947"}}

	data, err := cfg.ToJSON()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cpman.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// TestValidateAndFix 测试自动修复
func TestValidateAndFix(t *testing.T) {
	cfg := NewConfig()
	cfg.Probe.HostInterval = Duration(10 * time.Second)
	cfg.Exporter.Path = "metrics"
	cfg.Cluster.DialTimeout = 0

	fixed, err := ValidateAndFix(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Storage.Step, fixed.Probe.HostInterval)
	assert.Equal(t, "/metrics", fixed.Exporter.Path)
	assert.Equal(t, DefaultClusterConfig().DialTimeout, fixed.Cluster.DialTimeout)

	fixed, err = ValidateAndFix(nil)
	require.NoError(t, err)
	assert.NotNil(t, fixed)
}

// TestApplyPreset 测试预设
func TestApplyPreset(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, ApplyPreset(cfg, "cluster"))
	assert.Equal(t, ":7946", cfg.Cluster.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.Cluster.RequestTimeout.Duration())

	require.NoError(t, ApplyPreset(cfg, "test"))
	assert.False(t, cfg.Probe.EnableHost)
	assert.False(t, cfg.Probe.EnableControlMessage)
	assert.Empty(t, cfg.Cluster.ListenAddr)

	assert.Error(t, ApplyPreset(cfg, "unknown"))
	assert.Error(t, ApplyPreset(nil, "test"))
}

// TestCloneConfig 测试深拷贝
func TestCloneConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Probe.Disks = []string{"sda"}
	cfg.Cluster.Peers = []Peer{{ID: "a", Addr: "127.0.0.1:1"}}

	cloned := CloneConfig(cfg)
	cloned.Probe.Disks[0] = "sdb"
	cloned.Cluster.Peers[0].ID = "b"

	assert.Equal(t, "sda", cfg.Probe.Disks[0])
	assert.Equal(t, "a", cfg.Cluster.Peers[0].ID)
	assert.Nil(t, CloneConfig(nil))
}
