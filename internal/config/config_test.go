package config

import (
	"slices"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Env:            "development",
		SpeechLanguage: "en-US",
		RelayQueueSize: 64,
		RedisChannel:   "kikitori:transcripts",
		CLI: CLI{
			InputFile:    "testdata/hello.wav",
			InputDevice:  NoDevice,
			OutputDevice: NoDevice,
			InputFormat:  InputFormatWAV,
			SampleRateHz: 16000,
			Channels:     1,
			SampleWidth:  2,
			ChunkFrames:  1600,
			BoostedScore: 4,

			ListRunsLimit: 20,
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "no input", mutate: func(c *Config) { c.CLI.InputFile = "" }},
		{name: "file and mic", mutate: func(c *Config) { c.CLI.Mic = true }},
		{name: "realtime and playback", mutate: func(c *Config) { c.CLI.SimulateRealtime = true; c.CLI.PlayAudio = true }},
		{name: "realtime and output device", mutate: func(c *Config) { c.CLI.SimulateRealtime = true; c.CLI.OutputDevice = 2 }},
		{name: "mic with pacing", mutate: func(c *Config) { c.CLI.InputFile = ""; c.CLI.Mic = true; c.CLI.SimulateRealtime = true }},
		{name: "unknown input format", mutate: func(c *Config) { c.CLI.InputFormat = "mp3" }},
		{name: "zero chunk", mutate: func(c *Config) { c.CLI.ChunkFrames = 0 }},
		{name: "zero sample rate", mutate: func(c *Config) { c.CLI.SampleRateHz = 0 }},
		{name: "negative device", mutate: func(c *Config) { c.CLI.InputDevice = -2 }},
		{name: "file and list runs", mutate: func(c *Config) { c.CLI.ListRuns = true }},
		{name: "zero list runs limit", mutate: func(c *Config) { c.CLI.ListRunsLimit = 0 }},
		{name: "zero queue", mutate: func(c *Config) { c.RelayQueueSize = 0 }},
		{name: "discord token without channel", mutate: func(c *Config) { c.DiscordToken = "token" }},
		{name: "redis without channel", mutate: func(c *Config) { c.RedisAddr = "localhost:6379"; c.RedisChannel = " " }},
		{name: "insecure without endpoint", mutate: func(c *Config) { c.SpeechInsecure = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidate_MicAndListDevices(t *testing.T) {
	cfg := validConfig()
	cfg.CLI.InputFile = ""
	cfg.CLI.Mic = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected mic input to be valid, got %v", err)
	}
	cfg.CLI.Mic = false
	cfg.CLI.ListDevices = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected --list-devices to be valid, got %v", err)
	}
	cfg.CLI.ListDevices = false
	cfg.CLI.ListRuns = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected --list-runs to be valid, got %v", err)
	}
}

func TestLanguageAndModel_CommandLineWins(t *testing.T) {
	cfg := validConfig()
	cfg.SpeechModel = "latest_long"
	if cfg.Language() != "en-US" || cfg.Model() != "latest_long" {
		t.Fatalf("expected environment values, got %q %q", cfg.Language(), cfg.Model())
	}
	cfg.CLI.LanguageCode = "ja-JP"
	cfg.CLI.ModelName = "latest_short"
	if cfg.Language() != "ja-JP" || cfg.Model() != "latest_short" {
		t.Fatalf("expected command line values, got %q %q", cfg.Language(), cfg.Model())
	}
}

func TestAllBoostedWords(t *testing.T) {
	cfg := validConfig()
	cfg.BoostedWords = []string{"riva", " ", "kikitori"}
	cfg.CLI.BoostedWords = []string{"kikitori", "nvidia"}
	want := []string{"riva", "kikitori", "nvidia"}
	if got := cfg.AllBoostedWords(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSourceName(t *testing.T) {
	cfg := validConfig()
	if cfg.SourceName() != "testdata/hello.wav" {
		t.Fatalf("unexpected source name %q", cfg.SourceName())
	}
	cfg.CLI.InputFile = ""
	cfg.CLI.Mic = true
	if cfg.SourceName() != "mic:default" {
		t.Fatalf("unexpected source name %q", cfg.SourceName())
	}
	cfg.CLI.InputDevice = 3
	if cfg.SourceName() != "mic:3" {
		t.Fatalf("unexpected source name %q", cfg.SourceName())
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode")
	}
	cfg.Env = "production"
	if cfg.IsDevelopment() {
		t.Fatal("expected non-development mode")
	}
}
