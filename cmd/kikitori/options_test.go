package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/foxseedlab/kikitori/internal/audio"
	"github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/recognition"
	"github.com/foxseedlab/kikitori/internal/session"
)

func baseConfig() *config.Config {
	return &config.Config{
		SpeechLanguage: "en-US",
		CLI: config.CLI{
			MaxAlternatives:  1,
			BoostedScore:     recognition.DefaultBoostScore,
			StartHistory:     recognition.UnsetHistory,
			StartThreshold:   recognition.UnsetThreshold,
			StopHistory:      recognition.UnsetHistory,
			StopThreshold:    recognition.UnsetThreshold,
			StopHistoryEOU:   recognition.UnsetHistory,
			StopThresholdEOU: recognition.UnsetThreshold,
		},
	}
}

func TestRecognitionOptions(t *testing.T) {
	cfg := baseConfig()
	cfg.BoostedWords = []string{"riva"}
	cfg.CLI.BoostedWords = []string{"kikitori"}
	cfg.CLI.LanguageCode = "ja-JP"
	cfg.CLI.AutomaticPunctuation = true
	cfg.CLI.StopHistory = 800
	cfg.CLI.StopThreshold = 0.9

	got, err := recognition.Build(recognitionOptions(cfg, audio.Format{SampleRate: 44100, Channels: 2, SampleWidth: 2})...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LanguageCode != "ja-JP" || got.SampleRateHertz != 44100 || got.AudioChannelCount != 2 {
		t.Fatalf("unexpected config: %+v", got)
	}
	if !got.AutomaticPunctuation || !got.VerbatimTranscripts {
		t.Fatalf("unexpected flags: %+v", got)
	}
	if len(got.WordBoosts) != 2 || got.WordBoosts[1].Word != "kikitori" || got.WordBoosts[1].Score != recognition.DefaultBoostScore {
		t.Fatalf("unexpected word boosts: %+v", got.WordBoosts)
	}
	if got.Endpointing.StopHistory != 800 || got.Endpointing.StartHistory != recognition.UnsetHistory {
		t.Fatalf("unexpected endpointing: %+v", got.Endpointing)
	}
}

func TestRecognitionOptions_InvalidMaxAlternatives(t *testing.T) {
	cfg := baseConfig()
	cfg.CLI.MaxAlternatives = 0
	_, err := recognition.Build(recognitionOptions(cfg, audio.Format{SampleRate: 16000, Channels: 1, SampleWidth: 2})...)
	if !errors.Is(err, recognition.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: 0},
		{name: "cancelled", err: fmt.Errorf("%w: %w", session.ErrCancelled, context.Canceled), want: exitCancelled},
		{name: "invalid recognition config", err: &recognition.InvalidConfigError{Field: "max_alternatives", Reason: "must be at least 1, got 0"}, want: exitUsage},
		{name: "failure", err: errors.New("boom"), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
