package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dgusui/host/serial"
	"dgusui/protocol"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("display:\n  device: /dev/ttyACM0\n"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Display.Device != "/dev/ttyACM0" {
		t.Errorf("Device %q", cfg.Display.Device)
	}
	if cfg.Display.Driver != "tarm" || cfg.Display.Baud != 115200 {
		t.Errorf("Display defaults %+v", cfg.Display)
	}
	if cfg.Protocol.MaxGarbageBytes != protocol.DefaultMaxGarbageBytes ||
		cfg.Protocol.KillCount != protocol.DefaultKillCount {
		t.Errorf("Protocol defaults %+v", cfg.Protocol)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log defaults %+v", cfg.Log)
	}
	if cfg.Simulator.HomingMs != 3000 {
		t.Errorf("Simulator defaults %+v", cfg.Simulator)
	}
}

func TestParseFull(t *testing.T) {
	data := `
display:
  device: /dev/ttyS1
  driver: bugst
  baud: 57600
  read_timeout_ms: 20
protocol:
  max_garbage_bytes: 8
  read_delay_ms: 5
  kill_count: 100
  trace: true
ui:
  status_interval_ms: 2000
  preheat_hotend: 230
  load_length_mm: 80
  bed_size_mm: 300
  leveling_margin_mm: 40
log:
  level: debug
  format: json
settings_file: /var/lib/dgus/settings.yaml
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}

	sc := cfg.SerialConfig()
	if sc.Driver != serial.DriverBugst || sc.Baud != 57600 || sc.ReadTimeout != 20*time.Millisecond {
		t.Errorf("Serial config %+v", sc)
	}

	lc := cfg.LinkConfig()
	if lc.ReadDelay != 5*time.Millisecond || lc.KillCount != 100 {
		t.Errorf("Link config %+v", lc)
	}
	if cfg.EngineConfig().MaxGarbageBytes != 8 || !cfg.Protocol.Trace {
		t.Errorf("Protocol %+v", cfg.Protocol)
	}

	opts := cfg.Options()
	if opts.StatusInterval != 2*time.Second || opts.PreheatHotEnd != 230 ||
		opts.LoadLength != 80 || opts.BedSize != 300 || opts.LevelingMargin != 40 {
		t.Errorf("Options %+v", opts)
	}
	if opts.CheckInterval != 0 {
		t.Errorf("Unset options stay zero for the screens to default, got %v", opts.CheckInterval)
	}

	if cfg.SettingsFile != "/var/lib/dgus/settings.yaml" {
		t.Errorf("Settings file %q", cfg.SettingsFile)
	}
	if sim := cfg.SimConfig(); sim.HomingTime != 3*time.Second || sim.HeatRate != 5 {
		t.Errorf("Sim config %+v", sim)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "display: [", "failed to parse"},
		{"driver", "display:\n  driver: usb\n", "display.driver"},
		{"baud", "display:\n  baud: -1\n", "display.baud"},
		{"limits", "protocol:\n  kill_count: -3\n", "protocol"},
		{"margin", "ui:\n  bed_size_mm: 100\n  leveling_margin_mm: 50\n", "leveling_margin_mm"},
		{"log format", "log:\n  format: xml\n", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dgus.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level %q", cfg.Log.Level)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}
