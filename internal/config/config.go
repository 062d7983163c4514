// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"voxctf/internal/game"
)

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// DefaultGame returns the default game.Config, the single source of truth
// for every engine tunable spec section 6 lists.
func DefaultGame() game.Config {
	return game.DefaultConfig()
}

// GameFromEnv returns game configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func GameFromEnv() game.Config {
	cfg := DefaultGame()

	if v := getEnvInt("MAX_PLAYERS", 0); v > 0 {
		cfg.MaxPlayers = v
	}
	if v := getEnvInt("MAX_CONNECTIONS_PER_IP", 0); v > 0 {
		cfg.MaxConnectionsPerIP = v
	}
	if v := getEnvInt("MAX_SCORE", 0); v > 0 {
		cfg.MaxScore = v
	}
	if v := getEnvInt("RESPAWN_TIME", 0); v > 0 {
		cfg.RespawnTime = time.Duration(v) * time.Second
	}
	if v := getEnvInt("REFILL_INTERVAL", 0); v > 0 {
		cfg.RefillInterval = time.Duration(v) * time.Second
	}
	if v := os.Getenv("FRIENDLY_FIRE"); v != "" {
		cfg.FriendlyFire = parseFriendlyFire(v, cfg.FriendlyFire)
	}
	if v := getEnvInt("FRIENDLY_FIRE_TIME", 0); v > 0 {
		cfg.FriendlyFireTime = time.Duration(v) * time.Second
	}
	if v := os.Getenv("SERVER_PREFIX"); v != "" {
		cfg.ServerPrefix = v
	}
	if v, ok := getEnvBool("SPEEDHACK_DETECT"); ok {
		cfg.SpeedHackDetect = v
	}
	if v := getEnvInt("FOG_COLOR", 0); v > 0 {
		cfg.FogColor = uint32(v)
	}
	if v := os.Getenv("SERVER_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("SERVER_VERSION"); v != "" {
		cfg.Version = v
	}

	return cfg
}

func parseFriendlyFire(v string, fallback game.FriendlyFireMode) game.FriendlyFireMode {
	switch v {
	case "off":
		return game.FriendlyFireOff
	case "on":
		return game.FriendlyFireOn
	case "grenade_only":
		return game.FriendlyFireOnGrenadeOnly
	default:
		return fallback
	}
}

// =============================================================================
// NETWORK CONFIGURATION
// =============================================================================

// NetworkConfig holds UDP listener and admin HTTP server settings.
type NetworkConfig struct {
	UDPListenAddr string
	AdminAddr     string
}

// DefaultNetwork returns the default network configuration.
func DefaultNetwork() NetworkConfig {
	return NetworkConfig{
		UDPListenAddr: ":32887", // matches the original's default game port
		AdminAddr:     ":8080",
	}
}

// NetworkFromEnv returns network configuration with environment overrides.
func NetworkFromEnv() NetworkConfig {
	cfg := DefaultNetwork()

	if v := os.Getenv("UDP_LISTEN_ADDR"); v != "" {
		cfg.UDPListenAddr = v
	}
	if v := os.Getenv("ADMIN_ADDR"); v != "" {
		cfg.AdminAddr = v
	}

	return cfg
}

// =============================================================================
// MAP CONFIGURATION
// =============================================================================

// MapConfig holds bounds and generator seed for the reference in-memory
// voxel map (see internal/memmap).
type MapConfig struct {
	Width, Height, MaxZ int32
	Seed                int64
}

// DefaultMap returns the default map configuration.
func DefaultMap() MapConfig {
	return MapConfig{Width: 512, Height: 512, MaxZ: 64, Seed: 1}
}

// MapFromEnv returns map configuration with environment overrides.
func MapFromEnv() MapConfig {
	cfg := DefaultMap()

	if v := getEnvInt("MAP_WIDTH", 0); v > 0 {
		cfg.Width = int32(v)
	}
	if v := getEnvInt("MAP_HEIGHT", 0); v > 0 {
		cfg.Height = int32(v)
	}
	if v := getEnvInt("MAP_MAX_Z", 0); v > 0 {
		cfg.MaxZ = int32(v)
	}
	if v := getEnvInt("MAP_SEED", 0); v > 0 {
		cfg.Seed = int64(v)
	}

	return cfg
}

// =============================================================================
// EVENT LOG CONFIGURATION
// =============================================================================

// EventLogConfig controls the audit event log's disk sink.
type EventLogConfig struct {
	Path    string // empty disables the disk sink; Emit still buffers in memory
	Enabled bool
}

// DefaultEventLog returns the default event log configuration.
func DefaultEventLog() EventLogConfig {
	return EventLogConfig{Path: "events.jsonl", Enabled: true}
}

// EventLogFromEnv returns event log configuration with environment overrides.
func EventLogFromEnv() EventLogConfig {
	cfg := DefaultEventLog()

	if v := os.Getenv("EVENT_LOG_PATH"); v != "" {
		cfg.Path = v
	}
	if v, ok := getEnvBool("EVENT_LOG_ENABLED"); ok {
		cfg.Enabled = v
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game      game.Config
	Network   NetworkConfig
	Map       MapConfig
	EventLog  EventLogConfig
}

// Load reads a .env file if present (missing is not an error, matching the
// teacher's main.go behavior) and returns the complete configuration with
// environment overrides applied.
func Load() AppConfig {
	_ = godotenv.Load()

	return AppConfig{
		Game:     GameFromEnv(),
		Network:  NetworkFromEnv(),
		Map:      MapFromEnv(),
		EventLog: EventLogFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string) (value bool, ok bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
