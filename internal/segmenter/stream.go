package segmenter

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ScanStream runs a voice activity detector over raw little-endian 16-bit
// PCM, returning the zero-based indices of the buffers at which utterances
// ended. An utterance still open when the stream ends is not counted; the
// detector only commits a boundary after the configured run of silence.
func ScanStream(r io.Reader, config VADConfig, bufferSamples int) ([]int, error) {
	if bufferSamples < 1 {
		return nil, fmt.Errorf("buffer size must be at least 1 sample, got %d", bufferSamples)
	}
	detector, err := NewVoiceActivityDetector(config)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, bufferSamples*2)
	samples := make([]int16, bufferSamples)
	var boundaries []int

	for index := 0; ; index++ {
		n, err := io.ReadFull(r, raw)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("failed to read audio stream: %w", err)
		}
		if n%2 != 0 {
			return nil, fmt.Errorf("truncated sample at end of stream")
		}

		count := n / 2
		for i := 0; i < count; i++ {
			samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
		}
		if detector.ProcessBuffer(samples[:count]) {
			boundaries = append(boundaries, index)
		}

		if err == io.ErrUnexpectedEOF {
			break
		}
	}

	return boundaries, nil
}
