package segmenter

import (
	"fmt"
	"math"
)

// Default calibration constants for the energy-based detector.
const (
	DefaultSilenceThreshold = 500.0
	DefaultSilenceDuration  = 10
)

// VADConfig holds the voice activity detector tunables.
type VADConfig struct {
	// SilenceThreshold is the RMS energy below which a buffer counts as silence.
	SilenceThreshold float64
	// SilenceDuration is the number of consecutive silent buffers, beyond
	// which a running utterance is considered ended.
	SilenceDuration int
}

// DefaultVADConfig returns the calibration defaults.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		SilenceThreshold: DefaultSilenceThreshold,
		SilenceDuration:  DefaultSilenceDuration,
	}
}

// VoiceActivityDetector segments a continuous stream of 16-bit PCM buffers
// into utterances using short-window RMS energy. State is owned by exactly
// one capture goroutine and is not safe for concurrent use.
type VoiceActivityDetector struct {
	threshold float64
	duration  int

	inSpeech   bool
	silenceRun int
}

// NewVoiceActivityDetector creates a detector with the given tunables.
func NewVoiceActivityDetector(config VADConfig) (*VoiceActivityDetector, error) {
	if config.SilenceThreshold <= 0 {
		return nil, fmt.Errorf("silence threshold must be positive, got %f", config.SilenceThreshold)
	}
	if config.SilenceDuration < 1 {
		return nil, fmt.Errorf("silence duration must be at least 1, got %d", config.SilenceDuration)
	}
	return &VoiceActivityDetector{
		threshold: config.SilenceThreshold,
		duration:  config.SilenceDuration,
	}, nil
}

// ProcessBuffer consumes one buffer of samples and reports whether this
// buffer completes an utterance. It returns true exactly once per utterance:
// on the buffer at which the silence run first exceeds the configured
// duration after speech was detected. An empty buffer is treated as silence
// (its RMS is defined as zero).
func (d *VoiceActivityDetector) ProcessBuffer(samples []int16) bool {
	if rms(samples) > d.threshold {
		d.inSpeech = true
		d.silenceRun = 0
		return false
	}

	if !d.inSpeech {
		return false
	}

	d.silenceRun++
	if d.silenceRun > d.duration {
		d.inSpeech = false
		d.silenceRun = 0
		return true
	}
	return false
}

// InSpeech reports whether the detector is currently inside an utterance.
func (d *VoiceActivityDetector) InSpeech() bool {
	return d.inSpeech
}

// Reset clears the detector state, discarding any utterance in progress.
func (d *VoiceActivityDetector) Reset() {
	d.inSpeech = false
	d.silenceRun = 0
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
