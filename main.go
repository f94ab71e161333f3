// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"biotune/cmd"
	"biotune/internal/analysis"
	"biotune/internal/catalog"
	"biotune/internal/config"
	"biotune/internal/emotion"
	"biotune/internal/engine"
	"biotune/internal/log"
	"biotune/internal/serial"
	"biotune/internal/transport"
	"biotune/internal/transport/udp"
	"biotune/pkg/build"
)

// main is the entry point for the sensor to music pipeline.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//   - Open the serial link, catalog, emotion client and telemetry
//
// 2. Run Phase:
//   - The engine loop reads, analyses and dispatches until interrupted
//
// 3. Shutdown Phase:
//   - The engine closes the recorder, transports and serial link
//   - Buffered log entries are flushed
func main() {
	// ==================== STARTUP PHASE ====================

	if err := build.Initialize(); err != nil {
		log.Fatal(err)
	}

	options, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if !options.Run && options.Command == "" {
		return // --help or --version
	}

	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}
	options.Apply(cfg)

	if err := setupLogging(cfg); err != nil {
		log.Fatal(err)
	}
	defer log.Sync()

	// Handle one-off commands that don't need the sensor
	if options.Command != "" {
		if err := executeCommand(options.Command, cfg); err != nil {
			log.Fatal(err)
		}
		return
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ==================== RUN PHASE ====================

	if err := run(ctx, cfg); err != nil {
		log.Errorf("%v", err)
		stop()
		log.Sync()
		os.Exit(1)
	}

	// ==================== SHUTDOWN PHASE ====================

	log.Infof("Stopped")
}

// setupLogging applies the configured format and level.
func setupLogging(cfg *config.Config) error {
	if err := log.Setup(cfg.LogFormat, build.GetBuildFlags().Name); err != nil {
		return err
	}
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("Unknown log level %q, using %s", cfg.LogLevel, level)
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
	return nil
}

// run wires the pipeline and blocks until ctx is cancelled or the link fails.
func run(ctx context.Context, cfg *config.Config) error {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	// Device unavailable is fatal: nothing works without the sensor.
	port, err := serial.Open(serial.Config{
		Name:        cfg.Serial.Port,
		Baud:        cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		log.Fatalf("Serial port unavailable: %v", err)
	}

	var capturer emotion.Capturer = emotion.NoopCapturer{}
	if cfg.Emotion.URL != "" {
		capturer = emotion.NewHTTPCapturer(cfg.Emotion.URL, cfg.Emotion.Timeout)
		log.Infof("Emotion capture via %s", cfg.Emotion.URL)
	} else {
		log.Warnf("No emotion service configured; Play falls back to %q", cat.DefaultCategory())
	}

	tr := newTransport(cfg)

	var recorder *engine.Recorder
	if cfg.Recording.Enabled {
		if !strings.EqualFold(cfg.Recording.Format, "wav") {
			log.Warnf("Unsupported recording format %q, recording as wav", cfg.Recording.Format)
		}
		path := engine.RecordingPath(cfg.Recording.OutputDir, time.Now())
		recorder, err = engine.NewRecorder(path, cfg.Analysis.SampleRate, cfg.Recording.BitDepth)
		if err != nil {
			log.Errorf("Recording disabled: %v", err)
			recorder = nil
		}
	}

	eng, err := engine.NewEngine(cfg, port, engine.Options{
		Catalog:   cat,
		Capturer:  capturer,
		Transport: tr,
		Recorder:  recorder,
	})
	if err != nil {
		port.Close()
		tr.Close()
		if recorder != nil {
			recorder.Close()
		}
		return fmt.Errorf("failed to start engine: %w", err)
	}

	fmt.Printf("%s running on %s. Press Ctrl+C to stop.\n", build.GetBuildFlags().Name, port.Name())
	return eng.Run(ctx)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.DefaultCategory != "" {
		return cat.WithDefault(cfg.Catalog.DefaultCategory)
	}
	return cat, nil
}

// newTransport builds the telemetry fan-out. A sink that cannot start is
// logged and skipped; telemetry never blocks the pipeline from running.
func newTransport(cfg *config.Config) transport.Transport {
	sinks := transport.Fanout{transport.NewLoggingTransport()}

	if cfg.Transport.WSEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WSAddr)
		if err != nil {
			log.Errorf("WebSocket telemetry disabled: %v", err)
		} else {
			sinks = append(sinks, ws)
		}
	}

	if cfg.Transport.NATSURL != "" {
		nt, err := transport.NewNATSTransport(cfg.Transport.NATSURL, cfg.Transport.NATSSubject)
		if err != nil {
			log.Errorf("NATS telemetry disabled: %v", err)
		} else {
			sinks = append(sinks, nt)
		}
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			log.Errorf("UDP telemetry disabled: %v", err)
		} else if pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender); err != nil {
			sender.Close()
			log.Errorf("UDP telemetry disabled: %v", err)
		} else {
			pub.Start()
			sinks = append(sinks, pub)
		}
	}

	return sinks
}

// executeCommand handles one-off commands that don't require the engine.
func executeCommand(command string, cfg *config.Config) error {
	switch command {
	case cmd.CommandList:
		candidates, err := serial.Candidates("/dev")
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("No serial devices found.")
			return nil
		}
		for _, c := range candidates {
			fmt.Println(c)
		}
		return nil

	case cmd.CommandCatalog:
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		for _, e := range cat.Emotions() {
			marker := ""
			if e == cat.DefaultCategory() {
				marker = " (default)"
			}
			fmt.Printf("%s%s\n", e, marker)
			for _, tier := range []analysis.Tier{analysis.TierLow, analysis.TierMedium, analysis.TierHigh} {
				for _, tr := range cat.Lookup(e, tier) {
					fmt.Printf("  %-15s %s  %s\n", tier.Key(), tr.ID, tr.Title)
				}
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
