package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, "localhost:8080", cfg.ListenAddr())
	require.Equal(t, 10*time.Second, cfg.HeartbeatInterval())
	require.Equal(t, 30*time.Second, cfg.IdleTimeout())
	require.Equal(t, time.Minute, cfg.EmptyRoomGrace())
	require.Equal(t, 500*time.Millisecond, cfg.BotDelayMin())
	require.Equal(t, 1500*time.Millisecond, cfg.BotDelayMax())

	rc := cfg.RoomConfig()
	require.Equal(t, 500*time.Millisecond, rc.TickInterval)
	require.Equal(t, 7*time.Second, rc.TurnResultsDisplay)
	require.Equal(t, 50, rc.WinThreshold)
	require.Equal(t, 3, rc.RedealCap)
	require.Equal(t, 8, rc.DeclareMax)
	require.Equal(t, 1000, rc.EventRingSize)

	oc := cfg.OutboxConfig()
	require.Equal(t, 2*time.Second, oc.RetransmitTimeout)
	require.Equal(t, 5, oc.RetransmitLimit)
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	content := `
server {
  port          = 9090
  log_level     = "debug"
  archive_dir   = "/tmp/liaptui-archive"
}

game {
  win_threshold = 30
  redeal_cap    = 1
}

delivery {
  event_ring_size = 64
}
`
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "localhost:9090", cfg.ListenAddr())
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "/tmp/liaptui-archive", cfg.Server.ArchiveDir)
	require.Equal(t, 30, cfg.Game.WinThreshold)
	require.Equal(t, 1, cfg.Game.RedealCap)
	require.Equal(t, 64, cfg.Delivery.EventRingSize)

	// untouched fields keep the defaults
	require.Equal(t, "localhost", cfg.Server.Address)
	require.Equal(t, 8, cfg.Game.DeclareMax)
	require.Equal(t, 5, cfg.Delivery.RetransmitLimit)
}

func TestLoadConfigRejectsMalformedHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
