package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dgusui/config"
	"dgusui/core"
	"dgusui/host/panel"
	"dgusui/host/serial"
	"dgusui/printer"
	"dgusui/ui"

	"github.com/google/shlex"
	"github.com/rs/zerolog/log"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	device     = flag.String("device", "", "Serial device path (overrides the config)")
	driver     = flag.String("driver", "", "Serial driver: tarm or bugst (overrides the config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides the config)")
	logLevel   = flag.String("log-level", "", "Log level (overrides the config)")
	listPorts  = flag.Bool("list-ports", false, "List serial ports and exit")
	noConsole  = flag.Bool("no-console", false, "Do not read commands from stdin")
)

// loopPeriod is the main loop tick
const loopPeriod = 5 * time.Millisecond

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := core.SetupLogging(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *listPorts {
		if err := printPorts(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("dgus-host stopped")
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, if any, then applies the flags
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if *device != "" {
		cfg.Display.Device = *device
	}
	if *driver != "" {
		cfg.Display.Driver = *driver
	}
	if *baud != 0 {
		cfg.Display.Baud = *baud
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, cfg.Validate()
}

func printPorts() error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func run(cfg *config.Config) error {
	clock := core.NewSystemClock()

	settings, err := printer.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return err
	}
	sim := printer.NewSimulated(clock, cfg.SimConfig(), settings)

	pnl := panel.New(sim, clock)
	log.Info().
		Str("device", cfg.Display.Device).
		Str("driver", cfg.Display.Driver).
		Int("baud", cfg.Display.Baud).
		Msg("connecting to the panel")
	err = pnl.Connect(cfg.SerialConfig(), panel.Options{
		Link:   cfg.LinkConfig(),
		Engine: cfg.EngineConfig(),
		Trace:  cfg.Protocol.Trace,
	})
	if err != nil {
		return err
	}
	defer pnl.Close()

	if _, err := pnl.Identify(); err != nil {
		return err
	}

	display, err := ui.New(pnl.Engine(), sim, settings, clock, pnl.Safety(), cfg.Options())
	if err != nil {
		return err
	}
	sim.SetListener(display)
	if err := display.Open(); err != nil {
		return err
	}

	commands := make(chan []string)
	if !*noConsole {
		go readConsole(commands)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	c := &console{panel: pnl, display: display, printer: sim, out: os.Stdout}
	ticker := time.NewTicker(loopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sim.Step()
			if err := display.Idle(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		case args, ok := <-commands:
			if !ok {
				return nil
			}
			if c.execute(args) {
				return nil
			}
		case sig := <-signals:
			log.Info().Stringer("signal", sig).Msg("shutting down")
			return nil
		}
	}
}

// readConsole splits stdin lines into shell words for the main loop
func readConsole(commands chan<- []string) {
	defer close(commands)

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		commands <- args
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}
