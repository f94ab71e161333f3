package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the sensor pipeline.
const (
	// Serial link defaults
	DefaultSerialPort        = ""                     // Empty means auto-detect
	DefaultBaudRate          = 115200                 // Matches the controller sketch
	DefaultReadTimeout       = 1 * time.Second        // An expired read is a tick with no data
	DefaultSampleRate        = 50                     // Samples per second from the pulse sensor
	DefaultWindowSeconds     = 10                     // Seconds of samples analysed together
	DefaultPeakThreshold     = 0.1                    // Fraction of the strongest bin a peak must exceed
	DefaultHeartRateLowHz    = 0.8                    // 48 BPM
	DefaultHeartRateHighHz   = 2.5                    // 150 BPM
	DefaultRespirationLowHz  = 0.1                    // 6 breaths/min
	DefaultRespirationHighHz = 0.5                    // 30 breaths/min
	DefaultHeartRateWeight   = 0.4                    // Arousal weight for BPM
	DefaultRespirationWeight = 0.6                    // Arousal weight for RR
	DefaultLowCut            = 0.33                   // Below this the tier is low
	DefaultHighCut           = 0.66                   // At or above this the tier is high
	DefaultCaptureDuration   = 5 * time.Second        // Emotion capture window
	DefaultEmotionTimeout    = 10 * time.Second       // HTTP timeout for the emotion service
	DefaultCategory          = "neutral"              // Catalog fallback for unknown emotions
	DefaultRecordingFormat   = "wav"                  // Raw sample recordings
	DefaultRecordingDir      = "./recordings"         // Where raw sample recordings land
	DefaultBitDepth          = 16                     // Sensor samples fit comfortably in 16 bits
	DefaultWSAddr            = ":8080"                // Live readings WebSocket server
	DefaultNATSSubject       = "biotune.readings"     // Subject used for NATS telemetry
	DefaultUDPTarget         = "127.0.0.1:9090"       // Binary readings target
	DefaultUDPInterval       = 100 * time.Millisecond // ~10Hz, faster than the sensor is pointless
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"

	// Processing limits
	MinSampleRate    = 1    // Anything slower cannot resolve respiration
	MaxSampleRate    = 1000 // Well beyond what the sensor firmware can emit
	MaxWindowSamples = 1 << 16
)

// Button actions understood by the dispatcher.
const (
	ActionPlay   = "play"
	ActionPause  = "pause"
	ActionRecord = "record"
)

// DefaultButtons maps the controller's button numbers onto actions.
func DefaultButtons() map[int]string {
	return map[int]string{
		1: ActionPlay,
		2: ActionPause,
		3: ActionRecord,
	}
}
