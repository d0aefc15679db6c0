package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/liaptui/liaptui/internal/eventlog"
	"github.com/liaptui/liaptui/internal/room"
)

// Config is the complete server configuration. Every gameplay and delivery
// constant is externally tunable; the defaults are the shipped values.
type Config struct {
	Server   ServerSettings   `hcl:"server,block"`
	Game     GameSettings     `hcl:"game,block"`
	Delivery DeliverySettings `hcl:"delivery,block"`
}

// ServerSettings covers the transport-facing knobs
type ServerSettings struct {
	Address             string  `hcl:"address,optional"`
	Port                int     `hcl:"port,optional"`
	LogLevel            string  `hcl:"log_level,optional"`
	HeartbeatIntervalMs int     `hcl:"heartbeat_interval_ms,optional"`
	IdleTimeoutMs       int     `hcl:"idle_timeout_ms,optional"`
	RateLimitPerSec     float64 `hcl:"rate_limit_per_sec,optional"`
	RateLimitBurst      int     `hcl:"rate_limit_burst,optional"`
	OutboundQueueSize   int     `hcl:"outbound_queue_size,optional"`
	EmptyRoomGraceMs    int     `hcl:"empty_room_grace_ms,optional"`
	ArchiveDir          string  `hcl:"archive_dir,optional"`
}

// GameSettings covers the per-room state machine knobs
type GameSettings struct {
	BotDelayMinMs        int `hcl:"bot_delay_min_ms,optional"`
	BotDelayMaxMs        int `hcl:"bot_delay_max_ms,optional"`
	TurnResultsDisplayMs int `hcl:"turn_results_display_ms,optional"`
	TickIntervalMs       int `hcl:"tick_interval_ms,optional"`
	WinThreshold         int `hcl:"win_threshold,optional"`
	RedealCap            int `hcl:"redeal_cap,optional"`
	DeclareMax           int `hcl:"declare_max,optional"`
	InboxSize            int `hcl:"inbox_size,optional"`
}

// DeliverySettings covers the event log and retransmission knobs
type DeliverySettings struct {
	RetransmitTimeoutMs int `hcl:"retransmit_timeout_ms,optional"`
	RetransmitLimit     int `hcl:"retransmit_limit,optional"`
	EventRingSize       int `hcl:"event_ring_size,optional"`
	OfflineQueueSize    int `hcl:"offline_queue_size,optional"`
}

// DefaultConfig returns the shipped tuning
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:             "localhost",
			Port:                8080,
			LogLevel:            "info",
			HeartbeatIntervalMs: 10_000,
			IdleTimeoutMs:       30_000,
			RateLimitPerSec:     10,
			RateLimitBurst:      20,
			OutboundQueueSize:   1024,
			EmptyRoomGraceMs:    60_000,
		},
		Game: GameSettings{
			BotDelayMinMs:        500,
			BotDelayMaxMs:        1500,
			TurnResultsDisplayMs: 7000,
			TickIntervalMs:       500,
			WinThreshold:         50,
			RedealCap:            3,
			DeclareMax:           8,
			InboxSize:            256,
		},
		Delivery: DeliverySettings{
			RetransmitTimeoutMs: 2000,
			RetransmitLimit:     5,
			EventRingSize:       1000,
			OfflineQueueSize:    200,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults; present values override them field by field.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return config, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var loaded Config
	diags = gohcl.DecodeBody(file.Body, nil, &loaded)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	mergeConfig(config, &loaded)
	return config, nil
}

// mergeConfig overlays non-zero loaded values onto the defaults
func mergeConfig(base, loaded *Config) {
	if loaded.Server.Address != "" {
		base.Server.Address = loaded.Server.Address
	}
	if loaded.Server.Port != 0 {
		base.Server.Port = loaded.Server.Port
	}
	if loaded.Server.LogLevel != "" {
		base.Server.LogLevel = loaded.Server.LogLevel
	}
	if loaded.Server.HeartbeatIntervalMs != 0 {
		base.Server.HeartbeatIntervalMs = loaded.Server.HeartbeatIntervalMs
	}
	if loaded.Server.IdleTimeoutMs != 0 {
		base.Server.IdleTimeoutMs = loaded.Server.IdleTimeoutMs
	}
	if loaded.Server.RateLimitPerSec != 0 {
		base.Server.RateLimitPerSec = loaded.Server.RateLimitPerSec
	}
	if loaded.Server.RateLimitBurst != 0 {
		base.Server.RateLimitBurst = loaded.Server.RateLimitBurst
	}
	if loaded.Server.OutboundQueueSize != 0 {
		base.Server.OutboundQueueSize = loaded.Server.OutboundQueueSize
	}
	if loaded.Server.EmptyRoomGraceMs != 0 {
		base.Server.EmptyRoomGraceMs = loaded.Server.EmptyRoomGraceMs
	}
	if loaded.Server.ArchiveDir != "" {
		base.Server.ArchiveDir = loaded.Server.ArchiveDir
	}
	if loaded.Game.BotDelayMinMs != 0 {
		base.Game.BotDelayMinMs = loaded.Game.BotDelayMinMs
	}
	if loaded.Game.BotDelayMaxMs != 0 {
		base.Game.BotDelayMaxMs = loaded.Game.BotDelayMaxMs
	}
	if loaded.Game.TurnResultsDisplayMs != 0 {
		base.Game.TurnResultsDisplayMs = loaded.Game.TurnResultsDisplayMs
	}
	if loaded.Game.TickIntervalMs != 0 {
		base.Game.TickIntervalMs = loaded.Game.TickIntervalMs
	}
	if loaded.Game.WinThreshold != 0 {
		base.Game.WinThreshold = loaded.Game.WinThreshold
	}
	if loaded.Game.RedealCap != 0 {
		base.Game.RedealCap = loaded.Game.RedealCap
	}
	if loaded.Game.DeclareMax != 0 {
		base.Game.DeclareMax = loaded.Game.DeclareMax
	}
	if loaded.Game.InboxSize != 0 {
		base.Game.InboxSize = loaded.Game.InboxSize
	}
	if loaded.Delivery.RetransmitTimeoutMs != 0 {
		base.Delivery.RetransmitTimeoutMs = loaded.Delivery.RetransmitTimeoutMs
	}
	if loaded.Delivery.RetransmitLimit != 0 {
		base.Delivery.RetransmitLimit = loaded.Delivery.RetransmitLimit
	}
	if loaded.Delivery.EventRingSize != 0 {
		base.Delivery.EventRingSize = loaded.Delivery.EventRingSize
	}
	if loaded.Delivery.OfflineQueueSize != 0 {
		base.Delivery.OfflineQueueSize = loaded.Delivery.OfflineQueueSize
	}
}

// ListenAddr returns the host:port the server binds
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// HeartbeatInterval is how often the server pings an idle connection
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Server.HeartbeatIntervalMs) * time.Millisecond
}

// IdleTimeout is how long a silent connection survives
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeoutMs) * time.Millisecond
}

// EmptyRoomGrace is how long a room without connected humans is kept for
// reconnects before it closes
func (c *Config) EmptyRoomGrace() time.Duration {
	return time.Duration(c.Server.EmptyRoomGraceMs) * time.Millisecond
}

// BotDelayMin is the lower bound of the bot think delay
func (c *Config) BotDelayMin() time.Duration {
	return time.Duration(c.Game.BotDelayMinMs) * time.Millisecond
}

// BotDelayMax is the upper bound of the bot think delay
func (c *Config) BotDelayMax() time.Duration {
	return time.Duration(c.Game.BotDelayMaxMs) * time.Millisecond
}

// RoomConfig maps the loaded settings onto the room state machine's tuning
func (c *Config) RoomConfig() room.Config {
	cfg := room.DefaultConfig()
	cfg.TickInterval = time.Duration(c.Game.TickIntervalMs) * time.Millisecond
	cfg.TurnResultsDisplay = time.Duration(c.Game.TurnResultsDisplayMs) * time.Millisecond
	cfg.WinThreshold = c.Game.WinThreshold
	cfg.RedealCap = c.Game.RedealCap
	cfg.DeclareMax = c.Game.DeclareMax
	cfg.InboxSize = c.Game.InboxSize
	cfg.EventRingSize = c.Delivery.EventRingSize
	cfg.OfflineQueueSize = c.Delivery.OfflineQueueSize
	return cfg
}

// OutboxConfig maps the loaded settings onto the per-connection
// retransmission cycle
func (c *Config) OutboxConfig() eventlog.OutboxConfig {
	return eventlog.OutboxConfig{
		RetransmitTimeout: time.Duration(c.Delivery.RetransmitTimeoutMs) * time.Millisecond,
		RetransmitLimit:   c.Delivery.RetransmitLimit,
	}
}
