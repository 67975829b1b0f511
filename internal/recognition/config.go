package recognition

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	UnsetHistory   = -1
	UnsetThreshold = -1.0

	DefaultLanguageCode    = "en-US"
	DefaultSampleRateHertz = 16000
	DefaultBoostScore      = 4.0
)

var ErrInvalidConfig = errors.New("invalid recognition config")

type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid recognition config: %s %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

type Encoding int

const (
	EncodingLinearPCM Encoding = iota
	EncodingFLAC
	EncodingMulaw
	EncodingAlaw
)

func (e Encoding) String() string {
	switch e {
	case EncodingLinearPCM:
		return "LINEAR_PCM"
	case EncodingFLAC:
		return "FLAC"
	case EncodingMulaw:
		return "MULAW"
	case EncodingAlaw:
		return "ALAW"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

type WordBoost struct {
	Word  string
	Score float64
}

// Endpointing controls utterance boundary detection. Histories are in milliseconds and
// thresholds are probabilities; each history/threshold pair is set together or left at
// the unset sentinels.
type Endpointing struct {
	StartHistory     int
	StartThreshold   float64
	StopHistory      int
	StopThreshold    float64
	StopHistoryEOU   int
	StopThresholdEOU float64
}

func UnsetEndpointing() Endpointing {
	return Endpointing{
		StartHistory:     UnsetHistory,
		StartThreshold:   UnsetThreshold,
		StopHistory:      UnsetHistory,
		StopThreshold:    UnsetThreshold,
		StopHistoryEOU:   UnsetHistory,
		StopThresholdEOU: UnsetThreshold,
	}
}

func (e Endpointing) IsUnset() bool {
	return e == UnsetEndpointing()
}

type Config struct {
	Encoding             Encoding
	SampleRateHertz      int
	AudioChannelCount    int
	LanguageCode         string
	Model                string
	MaxAlternatives      int
	ProfanityFilter      bool
	AutomaticPunctuation bool
	VerbatimTranscripts  bool
	InterimResults       bool
	WordBoosts           []WordBoost
	Endpointing          Endpointing
	CustomConfiguration  string
}

func Defaults() Config {
	return Config{
		Encoding:          EncodingLinearPCM,
		SampleRateHertz:   DefaultSampleRateHertz,
		AudioChannelCount: 1,
		LanguageCode:      DefaultLanguageCode,
		MaxAlternatives:   1,
		InterimResults:    true,
		Endpointing:       UnsetEndpointing(),
	}
}

// Clone returns a copy that shares no slices with c.
func (c Config) Clone() Config {
	c.WordBoosts = slices.Clone(c.WordBoosts)
	return c
}

func (c Config) Validate() error {
	if c.MaxAlternatives < 1 {
		return &InvalidConfigError{Field: "max_alternatives", Reason: fmt.Sprintf("must be at least 1, got %d", c.MaxAlternatives)}
	}
	if c.SampleRateHertz <= 0 {
		return &InvalidConfigError{Field: "sample_rate_hertz", Reason: fmt.Sprintf("must be positive, got %d", c.SampleRateHertz)}
	}
	if c.AudioChannelCount <= 0 {
		return &InvalidConfigError{Field: "audio_channel_count", Reason: fmt.Sprintf("must be positive, got %d", c.AudioChannelCount)}
	}
	if strings.TrimSpace(c.LanguageCode) == "" {
		return &InvalidConfigError{Field: "language_code", Reason: "is required"}
	}
	for i, b := range c.WordBoosts {
		if strings.TrimSpace(b.Word) == "" {
			return &InvalidConfigError{Field: "word_boosting", Reason: fmt.Sprintf("entry %d has an empty word", i)}
		}
	}
	return c.Endpointing.validate()
}

func (e Endpointing) validate() error {
	pairs := []struct {
		name      string
		history   int
		threshold float64
	}{
		{name: "start", history: e.StartHistory, threshold: e.StartThreshold},
		{name: "stop", history: e.StopHistory, threshold: e.StopThreshold},
		{name: "stop_eou", history: e.StopHistoryEOU, threshold: e.StopThresholdEOU},
	}
	for _, p := range pairs {
		historySet := p.history != UnsetHistory
		thresholdSet := p.threshold != UnsetThreshold
		if historySet != thresholdSet {
			return &InvalidConfigError{
				Field:  "endpointing." + p.name,
				Reason: fmt.Sprintf("history and threshold must be set together (history=%d threshold=%g)", p.history, p.threshold),
			}
		}
		if !historySet {
			continue
		}
		if p.history <= 0 {
			return &InvalidConfigError{Field: "endpointing." + p.name + "_history", Reason: fmt.Sprintf("must be positive, got %d", p.history)}
		}
		if p.threshold < 0 || p.threshold > 1 {
			return &InvalidConfigError{Field: "endpointing." + p.name + "_threshold", Reason: fmt.Sprintf("must be within [0, 1], got %g", p.threshold)}
		}
	}
	return nil
}

type Option func(*Config)

// Build applies opts on top of Defaults and validates the result.
func Build(opts ...Option) (Config, error) {
	cfg := Defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func WithLanguage(code string) Option {
	return func(c *Config) {
		if code != "" {
			c.LanguageCode = code
		}
	}
}

func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

func WithEncoding(enc Encoding) Option {
	return func(c *Config) { c.Encoding = enc }
}

func WithAudioFormat(sampleRateHertz, channels int) Option {
	return func(c *Config) {
		c.SampleRateHertz = sampleRateHertz
		c.AudioChannelCount = channels
	}
}

func WithMaxAlternatives(n int) Option {
	return func(c *Config) { c.MaxAlternatives = n }
}

func WithProfanityFilter(enabled bool) Option {
	return func(c *Config) { c.ProfanityFilter = enabled }
}

func WithAutomaticPunctuation(enabled bool) Option {
	return func(c *Config) { c.AutomaticPunctuation = enabled }
}

func WithVerbatimTranscripts(enabled bool) Option {
	return func(c *Config) { c.VerbatimTranscripts = enabled }
}

func WithInterimResults(enabled bool) Option {
	return func(c *Config) { c.InterimResults = enabled }
}

func WithWordBoosts(boosts ...WordBoost) Option {
	return func(c *Config) { c.WordBoosts = append(c.WordBoosts, boosts...) }
}

// WithBoostedWords boosts every word with the same score.
func WithBoostedWords(words []string, score float64) Option {
	return func(c *Config) {
		for _, w := range words {
			c.WordBoosts = append(c.WordBoosts, WordBoost{Word: w, Score: score})
		}
	}
}

func WithEndpointing(e Endpointing) Option {
	return func(c *Config) { c.Endpointing = e }
}

func WithCustomConfiguration(s string) Option {
	return func(c *Config) { c.CustomConfiguration = s }
}
