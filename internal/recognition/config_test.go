package recognition

import (
	"errors"
	"testing"
)

func TestBuild_Defaults(t *testing.T) {
	cfg, err := Build()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LanguageCode != "en-US" || cfg.MaxAlternatives != 1 || cfg.SampleRateHertz != 16000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.InterimResults {
		t.Fatal("expected interim results to be enabled by default")
	}
	if !cfg.Endpointing.IsUnset() {
		t.Fatalf("expected unset endpointing, got %+v", cfg.Endpointing)
	}
}

func TestBuild_AppliesOverrides(t *testing.T) {
	cfg, err := Build(
		WithLanguage("ja-JP"),
		WithModel("latest_long"),
		WithAudioFormat(48000, 2),
		WithMaxAlternatives(3),
		WithProfanityFilter(true),
		WithAutomaticPunctuation(true),
		WithVerbatimTranscripts(true),
		WithBoostedWords([]string{"kikitori", "riva"}, 4.0),
		WithWordBoosts(WordBoost{Word: "nvidia", Score: 20}),
		WithCustomConfiguration("test_key:test_value"),
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LanguageCode != "ja-JP" || cfg.Model != "latest_long" || cfg.MaxAlternatives != 3 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SampleRateHertz != 48000 || cfg.AudioChannelCount != 2 {
		t.Fatalf("audio format not applied: %+v", cfg)
	}
	if !cfg.ProfanityFilter || !cfg.AutomaticPunctuation || !cfg.VerbatimTranscripts {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if len(cfg.WordBoosts) != 3 || cfg.WordBoosts[2].Score != 20 {
		t.Fatalf("unexpected word boosts: %+v", cfg.WordBoosts)
	}
	if cfg.CustomConfiguration != "test_key:test_value" {
		t.Fatalf("unexpected custom configuration: %q", cfg.CustomConfiguration)
	}
}

func TestBuild_EmptyLanguageKeepsDefault(t *testing.T) {
	cfg, err := Build(WithLanguage(""))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LanguageCode != DefaultLanguageCode {
		t.Fatalf("expected default language, got %q", cfg.LanguageCode)
	}
}

func TestBuild_InvalidConfigs(t *testing.T) {
	partialStart := UnsetEndpointing()
	partialStart.StartHistory = 300

	partialEOU := UnsetEndpointing()
	partialEOU.StopThresholdEOU = 0.5

	badThreshold := UnsetEndpointing()
	badThreshold.StopHistory = 800
	badThreshold.StopThreshold = 1.5

	badHistory := UnsetEndpointing()
	badHistory.StartHistory = 0
	badHistory.StartThreshold = 0.2

	tests := []struct {
		name  string
		opts  []Option
		field string
	}{
		{name: "zero max alternatives", opts: []Option{WithMaxAlternatives(0)}, field: "max_alternatives"},
		{name: "negative max alternatives", opts: []Option{WithMaxAlternatives(-2)}, field: "max_alternatives"},
		{name: "start history without threshold", opts: []Option{WithEndpointing(partialStart)}, field: "endpointing.start"},
		{name: "eou threshold without history", opts: []Option{WithEndpointing(partialEOU)}, field: "endpointing.stop_eou"},
		{name: "threshold out of range", opts: []Option{WithEndpointing(badThreshold)}, field: "endpointing.stop_threshold"},
		{name: "non-positive history", opts: []Option{WithEndpointing(badHistory)}, field: "endpointing.start_history"},
		{name: "zero sample rate", opts: []Option{WithAudioFormat(0, 1)}, field: "sample_rate_hertz"},
		{name: "blank boosted word", opts: []Option{WithBoostedWords([]string{" "}, 4)}, field: "word_boosting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.opts...)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			var cfgErr *InvalidConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *InvalidConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestBuild_CompleteEndpointingPairs(t *testing.T) {
	e := Endpointing{
		StartHistory:     300,
		StartThreshold:   0.2,
		StopHistory:      800,
		StopThreshold:    0.98,
		StopHistoryEOU:   UnsetHistory,
		StopThresholdEOU: UnsetThreshold,
	}
	cfg, err := Build(WithEndpointing(e))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Endpointing != e {
		t.Fatalf("endpointing not applied: %+v", cfg.Endpointing)
	}
}

func TestConfigClone_DoesNotShareWordBoosts(t *testing.T) {
	cfg, err := Build(WithBoostedWords([]string{"alpha"}, 2))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	clone := cfg.Clone()
	clone.WordBoosts[0].Word = "beta"
	if cfg.WordBoosts[0].Word != "alpha" {
		t.Fatal("clone mutated the original config")
	}
}

func TestResultBest(t *testing.T) {
	if _, ok := (Result{}).Best(); ok {
		t.Fatal("expected no alternative for empty result")
	}
	r := Result{Alternatives: []Alternative{{Transcript: "first"}, {Transcript: "second"}}}
	alt, ok := r.Best()
	if !ok || alt.Transcript != "first" {
		t.Fatalf("expected first alternative, got %+v", alt)
	}
}

func TestEncodingString(t *testing.T) {
	if EncodingLinearPCM.String() != "LINEAR_PCM" {
		t.Fatalf("unexpected encoding name: %s", EncodingLinearPCM)
	}
	if Encoding(42).String() != "Encoding(42)" {
		t.Fatalf("unexpected unknown encoding name: %s", Encoding(42))
	}
}
