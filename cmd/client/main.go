package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/artranslate/relay/internal/auth"
	"github.com/artranslate/relay/internal/pipeline"
	"github.com/artranslate/relay/internal/segmenter"
	"github.com/artranslate/relay/internal/transport"
)

// stdoutSink prints each result as it arrives.
type stdoutSink struct{}

func (stdoutSink) Deliver(result pipeline.Result) {
	if result.Failed() {
		fmt.Printf("translation failed: %v\n", result.Err)
		return
	}
	for i, text := range result.Translated {
		fmt.Printf("%s -> %s\n", result.Original[i], text)
	}
}

func main() {
	url := flag.String("url", "ws://localhost:8080/translate", "relay server endpoint")
	target := flag.String("target", "ko", "target language ISO code")
	tokenSecret := flag.String("token-secret", os.Getenv("SESSION_TOKEN_SECRET"), "session token secret, empty for open servers")
	pcmPath := flag.String("pcm", "", "segment a raw 16-bit PCM capture instead of translating")
	silenceThreshold := flag.Float64("silence-threshold", segmenter.DefaultSilenceThreshold, "RMS energy below which a buffer counts as silence")
	silenceDuration := flag.Int("silence-duration", segmenter.DefaultSilenceDuration, "consecutive silent buffers that end an utterance")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if *pcmPath != "" {
		if err := segmentCapture(*pcmPath, segmenter.VADConfig{
			SilenceThreshold: *silenceThreshold,
			SilenceDuration:  *silenceDuration,
		}); err != nil {
			logger.Fatal("Failed to segment capture", zap.Error(err))
		}
		return
	}

	var token string
	if *tokenSecret != "" {
		authenticator, err := auth.NewAuthenticator(*tokenSecret)
		if err != nil {
			logger.Fatal("Invalid token secret", zap.Error(err))
		}
		token, err = authenticator.GenerateSessionToken(uuid.NewString(), time.Hour)
		if err != nil {
			logger.Fatal("Failed to mint session token", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	session, err := transport.Dial(ctx, transport.Config{URL: *url, Token: token}, logger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to relay", zap.Error(err))
	}
	defer session.Close()

	fmt.Println("Connected to", *url)

	relayPipeline := pipeline.New(session, stdoutSink{}, 16, logger)
	relayPipeline.Start()
	defer relayPipeline.Stop()

	// Every line goes through the session dedup filter, so repeating the
	// same recognized text does not burn a second upstream call.
	ingestor := pipeline.NewTextIngestor(relayPipeline, *target)

	fmt.Println("Enter text to translate, one line per utterance (blank line exits):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		submitted, err := ingestor.Ingest(line)
		if err != nil {
			logger.Fatal("Failed to submit utterance", zap.Error(err))
		}
		if !submitted {
			fmt.Println("already translated this session, skipping")
		}
	}
}

// segmentCapture runs the voice activity detector over a recorded capture and
// reports the utterance boundaries it finds. Useful for tuning the silence
// threshold against real recordings.
func segmentCapture(path string, config segmenter.VADConfig) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	const bufferSamples = 1024
	boundaries, err := segmenter.ScanStream(bufio.NewReader(file), config, bufferSamples)
	if err != nil {
		return err
	}

	fmt.Printf("%d utterances detected\n", len(boundaries))
	for i, boundary := range boundaries {
		fmt.Printf("utterance %d ends at buffer %d (sample %d)\n", i+1, boundary, (boundary+1)*bufferSamples)
	}
	return nil
}
