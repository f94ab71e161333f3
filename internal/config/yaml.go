// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"`         // Logging level (e.g., "debug", "info", "warn", "error").
	LogFormat string          `yaml:"log_format"`        // "console" or "json".
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the pipeline.
	Serial    SerialConfig    `yaml:"serial"`            // Sensor link settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`          // Spectral estimation settings.
	Arousal   ArousalConfig   `yaml:"arousal"`           // Arousal score composition.
	Buttons   map[int]string  `yaml:"buttons"`           // Button number -> action ("play", "pause", "record").
	Emotion   EmotionConfig   `yaml:"emotion"`           // Emotion capture collaborator.
	Catalog   CatalogConfig   `yaml:"catalog"`           // Song catalog source.
	Recording RecordingConfig `yaml:"recording"`         // Raw sample recording.
	Transport TransportConfig `yaml:"transport"`         // Telemetry transports.
}

// SerialConfig holds settings for the serial link to the sensor controller.
type SerialConfig struct {
	Port        string        `yaml:"port"`         // Device path, empty to auto-detect.
	BaudRate    int           `yaml:"baud_rate"`    // Line speed.
	ReadTimeout time.Duration `yaml:"read_timeout"` // Expired reads are treated as "no data this tick".
}

// AnalysisConfig holds settings for the sliding window and spectral estimator.
type AnalysisConfig struct {
	SampleRate      int       `yaml:"sample_rate"`      // Samples per second.
	WindowSeconds   int       `yaml:"window_seconds"`   // Window length in seconds.
	PeakThreshold   float64   `yaml:"peak_threshold"`   // Relative peak height, fraction of the max magnitude.
	HeartRateBand   []float64 `yaml:"heart_rate_band"`  // [low, high] Hz.
	RespirationBand []float64 `yaml:"respiration_band"` // [low, high] Hz.
}

// ArousalConfig holds the weights and cut points of the arousal score.
type ArousalConfig struct {
	HeartRateWeight   float64 `yaml:"heart_rate_weight"`
	RespirationWeight float64 `yaml:"respiration_weight"`
	LowCut            float64 `yaml:"low_cut"`
	HighCut           float64 `yaml:"high_cut"`
}

// EmotionConfig holds settings for the external emotion classifier.
type EmotionConfig struct {
	URL             string        `yaml:"url"`              // Base URL of the classifier service, empty disables capture.
	CaptureDuration time.Duration `yaml:"capture_duration"` // How long the classifier observes.
	Timeout         time.Duration `yaml:"timeout"`          // HTTP timeout on top of the capture duration.
}

// CatalogConfig holds settings for the song catalog.
type CatalogConfig struct {
	Path            string `yaml:"path"`             // YAML catalog file, empty uses the built-in catalog.
	DefaultCategory string `yaml:"default_category"` // Emotion used when the captured one is unknown or absent.
}

// RecordingConfig holds settings related to raw sample recording.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record admitted samples to file.
	OutputDir string `yaml:"output_dir"` // Directory to save recordings.
	Format    string `yaml:"format"`     // File format for recordings (wav only).
	BitDepth  int    `yaml:"bit_depth"`  // Bit depth for recorded samples.
}

// TransportConfig holds settings related to publishing readings.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve readings over WebSocket.
	WSAddr           string        `yaml:"ws_addr"`            // Listen address for the WebSocket server.
	NATSURL          string        `yaml:"nats_url"`           // NATS server, empty disables.
	NATSSubject      string        `yaml:"nats_subject"`       // Subject readings are published on.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary reading packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// Validation errors.
var (
	ErrSampleRate = errors.New("analysis.sample_rate out of range")
	ErrWindow     = errors.New("analysis.window_seconds must be positive")
	ErrBand       = errors.New("band must be [low, high] with 0 <= low <= high")
	ErrThreshold  = errors.New("analysis.peak_threshold must be in [0, 1)")
	ErrCutPoints  = errors.New("arousal cut points must satisfy low_cut <= high_cut")
	ErrButtons    = errors.New("buttons must map to play, pause or record")
	ErrTimeout    = errors.New("serial.read_timeout must be positive")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:     false,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Serial: SerialConfig{
			Port:        DefaultSerialPort,
			BaudRate:    DefaultBaudRate,
			ReadTimeout: DefaultReadTimeout,
		},
		Analysis: AnalysisConfig{
			SampleRate:      DefaultSampleRate,
			WindowSeconds:   DefaultWindowSeconds,
			PeakThreshold:   DefaultPeakThreshold,
			HeartRateBand:   []float64{DefaultHeartRateLowHz, DefaultHeartRateHighHz},
			RespirationBand: []float64{DefaultRespirationLowHz, DefaultRespirationHighHz},
		},
		Arousal: ArousalConfig{
			HeartRateWeight:   DefaultHeartRateWeight,
			RespirationWeight: DefaultRespirationWeight,
			LowCut:            DefaultLowCut,
			HighCut:           DefaultHighCut,
		},
		Buttons: DefaultButtons(),
		Emotion: EmotionConfig{
			CaptureDuration: DefaultCaptureDuration,
			Timeout:         DefaultEmotionTimeout,
		},
		Catalog: CatalogConfig{
			DefaultCategory: DefaultCategory,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: DefaultRecordingDir,
			Format:    DefaultRecordingFormat,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			WSEnabled:        false,
			WSAddr:           DefaultWSAddr,
			NATSSubject:      DefaultNATSSubject,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPInterval,
		},
	}
}

// WindowSize returns the number of samples analysed together.
func (c *Config) WindowSize() int {
	return c.Analysis.SampleRate * c.Analysis.WindowSeconds
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// A buttons section replaces the default bindings instead of merging with them.
	cfg.Buttons = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Buttons == nil {
		cfg.Buttons = DefaultButtons()
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the ranges the pipeline relies on.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: %d", ErrSampleRate, a.SampleRate)
	}
	if a.WindowSeconds <= 0 || c.WindowSize() > MaxWindowSamples {
		return fmt.Errorf("%w: %d", ErrWindow, a.WindowSeconds)
	}
	if a.PeakThreshold < 0 || a.PeakThreshold >= 1 {
		return fmt.Errorf("%w: %v", ErrThreshold, a.PeakThreshold)
	}
	if err := validateBand("analysis.heart_rate_band", a.HeartRateBand); err != nil {
		return err
	}
	if err := validateBand("analysis.respiration_band", a.RespirationBand); err != nil {
		return err
	}
	if c.Arousal.LowCut > c.Arousal.HighCut {
		return fmt.Errorf("%w: %v > %v", ErrCutPoints, c.Arousal.LowCut, c.Arousal.HighCut)
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrTimeout, c.Serial.ReadTimeout)
	}
	for n, action := range c.Buttons {
		switch action {
		case ActionPlay, ActionPause, ActionRecord:
		default:
			return fmt.Errorf("%w: B%d=%q", ErrButtons, n, action)
		}
	}
	if c.Transport.UDPEnabled && c.Transport.UDPSendInterval <= 0 {
		return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
	}
	return nil
}

func validateBand(name string, band []float64) error {
	if len(band) != 2 || band[0] < 0 || band[0] > band[1] {
		return fmt.Errorf("%s: %w: %v", name, ErrBand, band)
	}
	return nil
}

// applyEnvOverrides lets the deployment environment override file values.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}

	// ENV_SERIAL_{...}

	// ENV_SERIAL_PORT
	if val, ok := os.LookupEnv("ENV_SERIAL_PORT"); ok {
		cfg.Serial.Port = val
	}
	// ENV_SERIAL_BAUD
	if val, ok := os.LookupEnv("ENV_SERIAL_BAUD"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Serial.BaudRate = iVal
		}
	}

	// ENV_EMOTION_URL
	if val, ok := os.LookupEnv("ENV_EMOTION_URL"); ok {
		cfg.Emotion.URL = val
	}

	// ENV_WS_{...}, ENV_NATS_{...}, ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_WS_ENABLED
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WSEnabled = bVal
		}
	}
	// ENV_WS_ADDR
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		cfg.Transport.WSAddr = val
	}
	// ENV_NATS_URL
	if val, ok := os.LookupEnv("ENV_NATS_URL"); ok {
		cfg.Transport.NATSURL = val
	}
	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
		}
	}
}
