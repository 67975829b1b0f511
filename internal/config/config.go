package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	InputFormatWAV = "wav"
	InputFormatRaw = "raw"

	NoDevice = -1
)

// Config holds the service settings read from the environment and the per-invocation
// settings read from the command line.
type Config struct {
	Env                        string
	GoogleCloudCredentialsJSON string
	SpeechEndpoint             string
	SpeechInsecure             bool
	SpeechLanguage             string
	SpeechModel                string
	DatabaseURL                string
	TranscriptWebhookURL       string
	DiscordToken               string
	DiscordChannelID           string
	RedisAddr                  string
	RedisPassword              string
	RedisDB                    int
	RedisChannel               string
	RelayQueueSize             int
	BoostedWords               []string

	CLI CLI
}

type CLI struct {
	InputFile     string
	Mic           bool
	ListDevices   bool
	ListRuns      bool
	ListRunsLimit int

	InputDevice  int
	OutputDevice int
	InputFormat  string
	SampleRateHz int
	Channels     int
	SampleWidth  int
	ChunkFrames  int

	SimulateRealtime bool
	PlayAudio        bool
	ShowIntermediate bool
	PrintConfidence  bool

	LanguageCode          string
	ModelName             string
	MaxAlternatives       int
	ProfanityFilter       bool
	AutomaticPunctuation  bool
	NoVerbatimTranscripts bool
	BoostedWords          []string
	BoostedScore          float64
	StartHistory          int
	StartThreshold        float64
	StopHistory           int
	StopThreshold         float64
	StopHistoryEOU        int
	StopThresholdEOU      float64
	CustomConfiguration   string
}

func (c *Config) Validate() error {
	inputs := 0
	for _, selected := range []bool{c.CLI.InputFile != "", c.CLI.Mic, c.CLI.ListDevices, c.CLI.ListRuns} {
		if selected {
			inputs++
		}
	}
	if inputs != 1 {
		return errors.New("exactly one of --input-file, --mic, --list-devices or --list-runs is required")
	}
	if c.CLI.ListRunsLimit <= 0 {
		return fmt.Errorf("--list-runs-limit must be positive, got %d", c.CLI.ListRunsLimit)
	}
	if c.CLI.SimulateRealtime && c.PlaybackRequested() {
		return errors.New("--simulate-realtime cannot be combined with --play-audio or --output-device")
	}
	if c.CLI.Mic && (c.CLI.SimulateRealtime || c.PlaybackRequested()) {
		return errors.New("--mic is already paced by the device; drop --simulate-realtime, --play-audio and --output-device")
	}
	switch c.CLI.InputFormat {
	case InputFormatWAV, InputFormatRaw:
	default:
		return fmt.Errorf("--input-format must be %q or %q, got %q", InputFormatWAV, InputFormatRaw, c.CLI.InputFormat)
	}
	if c.CLI.ChunkFrames <= 0 {
		return fmt.Errorf("--file-streaming-chunk must be positive, got %d", c.CLI.ChunkFrames)
	}
	if c.CLI.SampleRateHz <= 0 {
		return fmt.Errorf("--sample-rate-hz must be positive, got %d", c.CLI.SampleRateHz)
	}
	if c.CLI.Channels <= 0 {
		return fmt.Errorf("--channels must be positive, got %d", c.CLI.Channels)
	}
	if c.CLI.SampleWidth <= 0 {
		return fmt.Errorf("--sample-width must be positive, got %d", c.CLI.SampleWidth)
	}
	if c.CLI.InputDevice < NoDevice || c.CLI.OutputDevice < NoDevice {
		return errors.New("device indices must not be negative")
	}
	if c.RelayQueueSize <= 0 {
		return fmt.Errorf("RELAY_QUEUE_SIZE must be positive, got %d", c.RelayQueueSize)
	}
	if (c.DiscordToken == "") != (c.DiscordChannelID == "") {
		return errors.New("DISCORD_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	if c.RedisAddr != "" && strings.TrimSpace(c.RedisChannel) == "" {
		return errors.New("REDIS_CHANNEL is required when REDIS_ADDR is set")
	}
	if c.SpeechInsecure && c.SpeechEndpoint == "" {
		return errors.New("SPEECH_ENDPOINT is required when SPEECH_INSECURE=true")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// PlaybackRequested reports whether file audio should be paced by a playback device.
func (c *Config) PlaybackRequested() bool {
	return c.CLI.PlayAudio || c.CLI.OutputDevice != NoDevice
}

// Language prefers the command line over SPEECH_LANGUAGE.
func (c *Config) Language() string {
	if c.CLI.LanguageCode != "" {
		return c.CLI.LanguageCode
	}
	return c.SpeechLanguage
}

func (c *Config) Model() string {
	if c.CLI.ModelName != "" {
		return c.CLI.ModelName
	}
	return c.SpeechModel
}

// AllBoostedWords merges BOOSTED_WORDS with --boosted-lm-words, dropping blanks and
// duplicates.
func (c *Config) AllBoostedWords() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range [][]string{c.BoostedWords, c.CLI.BoostedWords} {
		for _, w := range group {
			w = strings.TrimSpace(w)
			if w == "" {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

func (c *Config) SourceName() string {
	if c.CLI.Mic {
		if c.CLI.InputDevice == NoDevice {
			return "mic:default"
		}
		return fmt.Sprintf("mic:%d", c.CLI.InputDevice)
	}
	return c.CLI.InputFile
}
