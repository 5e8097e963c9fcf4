package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envConfigPath = "MHUR_BRIDGE_CONFIG"
	envBridgeHost = "MHUR_BRIDGE_HOST"
	envBridgePort = "MHUR_BRIDGE_PORT"
)

const (
	DefaultHost               = "localhost"
	DefaultPort               = 24290
	DefaultReadTimeoutSeconds = 3
	DefaultPacketSize         = 4096
	DefaultIntervalMillis     = 10
	DefaultLODSuffix          = "_LOD0"
	DefaultTextureExtension   = ".png"
	DefaultBoneSizeRatio      = 0.2
	DefaultStatusHost         = "localhost"
	DefaultStatusPort         = 24291
)

// DefaultMeshExtensions is the probe order for resolved mesh files.
var DefaultMeshExtensions = []string{".psk", ".pskx"}

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Bridge     BridgeConfig     `json:"bridge"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Mapping    MappingConfig    `json:"mapping"`
	Status     StatusConfig     `json:"status"`
	Logging    LoggingConfig    `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
	File      string `json:"file,omitempty"`
}

// BridgeConfig describes the datagram endpoint jobs arrive on.
type BridgeConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	ReadTimeoutSeconds int    `json:"read_timeout_seconds"`
	PacketSize         int    `json:"packet_size"`
}

// Address returns the host:port pair the receiver binds to.
func (c BridgeConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ReadTimeout is the bounded wait used between shutdown checks.
func (c BridgeConfig) ReadTimeout() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return DefaultReadTimeoutSeconds * time.Second
	}
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// DispatcherConfig controls how often the host polls for pending jobs.
type DispatcherConfig struct {
	IntervalMillis int `json:"interval_ms"`
}

// Interval returns the polling interval handed back to the host scheduler.
func (c DispatcherConfig) Interval() time.Duration {
	if c.IntervalMillis <= 0 {
		return DefaultIntervalMillis * time.Millisecond
	}
	return time.Duration(c.IntervalMillis) * time.Millisecond
}

// PipelineConfig holds the fixed import conventions of the pipeline.
type PipelineConfig struct {
	SharedLibrary    string   `json:"shared_library"`
	LODSuffix        string   `json:"lod_suffix"`
	MeshExtensions   []string `json:"mesh_extensions"`
	TextureExtension string   `json:"texture_extension"`
	ReorientBones    *bool    `json:"reorient_bones,omitempty"`
	BoneSizeRatio    float64  `json:"bone_size_ratio"`
}

// ShouldReorientBones reports the importer option, true unless disabled explicitly.
func (c PipelineConfig) ShouldReorientBones() bool {
	return c.ReorientBones == nil || *c.ReorientBones
}

// MappingConfig points at an optional rule table file.
type MappingConfig struct {
	RulesFile string `json:"rules_file,omitempty"`
	Watch     bool   `json:"watch,omitempty"`
}

// StatusConfig controls the optional HTTP status endpoint.
type StatusConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

func (c StatusConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig resolves config.json, unmarshals it, and applies defaults and environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := applyEnvOverrides(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	return LoadFile(configPath)
}

// LoadFile reads one config file and applies defaults and environment overrides.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Bridge.Host) == "" {
		cfg.Bridge.Host = DefaultHost
	}
	if cfg.Bridge.Port <= 0 {
		cfg.Bridge.Port = DefaultPort
	}
	if cfg.Bridge.ReadTimeoutSeconds <= 0 {
		cfg.Bridge.ReadTimeoutSeconds = DefaultReadTimeoutSeconds
	}
	if cfg.Bridge.PacketSize <= 0 {
		cfg.Bridge.PacketSize = DefaultPacketSize
	}
	if cfg.Dispatcher.IntervalMillis <= 0 {
		cfg.Dispatcher.IntervalMillis = DefaultIntervalMillis
	}
	if cfg.Pipeline.LODSuffix == "" {
		cfg.Pipeline.LODSuffix = DefaultLODSuffix
	}
	if len(cfg.Pipeline.MeshExtensions) == 0 {
		cfg.Pipeline.MeshExtensions = append([]string(nil), DefaultMeshExtensions...)
	}
	if cfg.Pipeline.TextureExtension == "" {
		cfg.Pipeline.TextureExtension = DefaultTextureExtension
	}
	if cfg.Pipeline.BoneSizeRatio <= 0 {
		cfg.Pipeline.BoneSizeRatio = DefaultBoneSizeRatio
	}
	if strings.TrimSpace(cfg.Status.Host) == "" {
		cfg.Status.Host = DefaultStatusHost
	}
	if cfg.Status.Port <= 0 {
		cfg.Status.Port = DefaultStatusPort
	}
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if host := strings.TrimSpace(os.Getenv(envBridgeHost)); host != "" {
		cfg.Bridge.Host = host
	}

	if rawPort := strings.TrimSpace(os.Getenv(envBridgePort)); rawPort != "" {
		port, err := strconv.Atoi(rawPort)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be a valid port, got %q", envBridgePort, rawPort)
		}
		cfg.Bridge.Port = port
	}

	return nil
}

// findConfigPath resolves the active config file location.
//
// Precedence is MHUR_BRIDGE_CONFIG first, then cwd-local fallback paths.
// An fs.ErrNotExist result means no fallback file exists.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s): %w", candidates[0], candidates[1], fs.ErrNotExist)
}
