// Package config loads the YAML configuration of the display host.
package config

import (
	"fmt"
	"os"
	"time"

	"dgusui/host/serial"
	"dgusui/printer"
	"dgusui/protocol"
	"dgusui/ui"

	"gopkg.in/yaml.v3"
)

// Config is the complete host configuration
type Config struct {
	Display      DisplayConfig   `yaml:"display"`
	Protocol     ProtocolConfig  `yaml:"protocol"`
	UI           UIConfig        `yaml:"ui"`
	Simulator    SimulatorConfig `yaml:"simulator"`
	Log          LogConfig       `yaml:"log"`
	SettingsFile string          `yaml:"settings_file"`
}

// DisplayConfig selects the serial port of the panel
type DisplayConfig struct {
	Device        string `yaml:"device"`
	Driver        string `yaml:"driver"` // tarm or bugst
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ProtocolConfig tunes the frame decoder and the fail-stop timeout
type ProtocolConfig struct {
	MaxGarbageBytes int  `yaml:"max_garbage_bytes"`
	ReadDelayMs     int  `yaml:"read_delay_ms"`
	KillCount       int  `yaml:"kill_count"`
	Trace           bool `yaml:"trace"`
}

// UIConfig tunes the screens
type UIConfig struct {
	StatusIntervalMs int     `yaml:"status_interval_ms"`
	CheckIntervalMs  int     `yaml:"check_interval_ms"`
	BootDelayMs      int     `yaml:"boot_delay_ms"`
	BeepMs           int     `yaml:"beep_ms"`
	PreheatHotEnd    float64 `yaml:"preheat_hotend"`
	PreheatBed       float64 `yaml:"preheat_bed"`
	LoadLength       float64 `yaml:"load_length_mm"`
	LoadFeedRate     float64 `yaml:"load_feedrate"`
	BedSize          float64 `yaml:"bed_size_mm"`
	LevelingMargin   float64 `yaml:"leveling_margin_mm"`
}

// SimulatorConfig holds the timing of the simulated printer
type SimulatorConfig struct {
	HomingMs   int     `yaml:"homing_ms"`
	MoveMs     int     `yaml:"move_ms"`
	LevelingMs int     `yaml:"leveling_ms"`
	PrintMs    int     `yaml:"print_ms"`
	HeatRate   float64 `yaml:"heat_rate"`
	Ambient    float64 `yaml:"ambient"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Display.Driver == "" {
		cfg.Display.Driver = def.Display.Driver
	}
	if cfg.Display.Baud == 0 {
		cfg.Display.Baud = def.Display.Baud
	}
	if cfg.Display.ReadTimeoutMs == 0 {
		cfg.Display.ReadTimeoutMs = def.Display.ReadTimeoutMs
	}

	if cfg.Protocol.MaxGarbageBytes == 0 {
		cfg.Protocol.MaxGarbageBytes = def.Protocol.MaxGarbageBytes
	}
	if cfg.Protocol.ReadDelayMs == 0 {
		cfg.Protocol.ReadDelayMs = def.Protocol.ReadDelayMs
	}
	if cfg.Protocol.KillCount == 0 {
		cfg.Protocol.KillCount = def.Protocol.KillCount
	}

	// Zero UI values fall back to ui.DefaultOptions

	if cfg.Simulator.HomingMs == 0 {
		cfg.Simulator.HomingMs = def.Simulator.HomingMs
	}
	if cfg.Simulator.MoveMs == 0 {
		cfg.Simulator.MoveMs = def.Simulator.MoveMs
	}
	if cfg.Simulator.LevelingMs == 0 {
		cfg.Simulator.LevelingMs = def.Simulator.LevelingMs
	}
	if cfg.Simulator.PrintMs == 0 {
		cfg.Simulator.PrintMs = def.Simulator.PrintMs
	}
	if cfg.Simulator.HeatRate == 0 {
		cfg.Simulator.HeatRate = def.Simulator.HeatRate
	}
	if cfg.Simulator.Ambient == 0 {
		cfg.Simulator.Ambient = def.Simulator.Ambient
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// Default returns the configuration of a panel on the first USB serial
// adapter with a simulated printer
func Default() *Config {
	sim := printer.DefaultSimConfig()
	return &Config{
		Display: DisplayConfig{
			Device:        "/dev/ttyUSB0",
			Driver:        string(serial.DriverTarm),
			Baud:          protocol.DefaultBaudRate,
			ReadTimeoutMs: 50,
		},
		Protocol: ProtocolConfig{
			MaxGarbageBytes: protocol.DefaultMaxGarbageBytes,
			ReadDelayMs:     protocol.DefaultReadDelayMs,
			KillCount:       protocol.DefaultKillCount,
		},
		Simulator: SimulatorConfig{
			HomingMs:   int(sim.HomingTime / time.Millisecond),
			MoveMs:     int(sim.MoveTime / time.Millisecond),
			LevelingMs: int(sim.LevelingTime / time.Millisecond),
			PrintMs:    int(sim.PrintTime / time.Millisecond),
			HeatRate:   sim.HeatRate,
			Ambient:    sim.Ambient,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the values defaults cannot fix
func (c *Config) Validate() error {
	switch serial.Driver(c.Display.Driver) {
	case serial.DriverTarm, serial.DriverBugst:
	default:
		return fmt.Errorf("display.driver: unknown serial driver %q", c.Display.Driver)
	}
	if c.Display.Baud < 0 {
		return fmt.Errorf("display.baud: invalid baud rate %d", c.Display.Baud)
	}
	if c.Protocol.MaxGarbageBytes < 0 || c.Protocol.ReadDelayMs < 0 || c.Protocol.KillCount < 0 {
		return fmt.Errorf("protocol: negative limits are not allowed")
	}
	if c.UI.BedSize < 0 || c.UI.LevelingMargin < 0 {
		return fmt.Errorf("ui: negative bed geometry")
	}
	if c.UI.BedSize > 0 && c.UI.LevelingMargin*2 >= c.UI.BedSize {
		return fmt.Errorf("ui.leveling_margin_mm: %.0f leaves no room on a %.0f mm bed",
			c.UI.LevelingMargin, c.UI.BedSize)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: expected console or json, got %q", c.Log.Format)
	}
	return nil
}

// SerialConfig returns the port settings
func (c *Config) SerialConfig() *serial.Config {
	return &serial.Config{
		Device:      c.Display.Device,
		Driver:      serial.Driver(c.Display.Driver),
		Baud:        c.Display.Baud,
		ReadTimeout: millis(c.Display.ReadTimeoutMs),
	}
}

// LinkConfig returns the wait timing of the link
func (c *Config) LinkConfig() protocol.LinkConfig {
	return protocol.LinkConfig{
		ReadDelay: millis(c.Protocol.ReadDelayMs),
		KillCount: c.Protocol.KillCount,
	}
}

// EngineConfig returns the decoder limits
func (c *Config) EngineConfig() protocol.EngineConfig {
	return protocol.EngineConfig{
		MaxGarbageBytes: c.Protocol.MaxGarbageBytes,
	}
}

// Options returns the screen tuning
func (c *Config) Options() ui.Options {
	return ui.Options{
		StatusInterval: millis(c.UI.StatusIntervalMs),
		CheckInterval:  millis(c.UI.CheckIntervalMs),
		BootDelay:      millis(c.UI.BootDelayMs),
		BeepDuration:   millis(c.UI.BeepMs),
		PreheatHotEnd:  c.UI.PreheatHotEnd,
		PreheatBed:     c.UI.PreheatBed,
		LoadLength:     c.UI.LoadLength,
		LoadFeedRate:   c.UI.LoadFeedRate,
		BedSize:        c.UI.BedSize,
		LevelingMargin: c.UI.LevelingMargin,
	}
}

// SimConfig returns the timing of the simulated printer
func (c *Config) SimConfig() printer.SimConfig {
	return printer.SimConfig{
		HomingTime:   millis(c.Simulator.HomingMs),
		MoveTime:     millis(c.Simulator.MoveMs),
		LevelingTime: millis(c.Simulator.LevelingMs),
		PrintTime:    millis(c.Simulator.PrintMs),
		HeatRate:     c.Simulator.HeatRate,
		Ambient:      c.Simulator.Ambient,
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
