package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/recognition"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env                        string   `env:"ENV" envDefault:"production"`
	GoogleCloudCredentialsJSON string   `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	SpeechEndpoint             string   `env:"SPEECH_ENDPOINT"`
	SpeechInsecure             bool     `env:"SPEECH_INSECURE" envDefault:"false"`
	SpeechLanguage             string   `env:"SPEECH_LANGUAGE" envDefault:"en-US"`
	SpeechModel                string   `env:"SPEECH_MODEL"`
	DatabaseURL                string   `env:"DATABASE_URL"`
	TranscriptWebhookURL       string   `env:"TRANSCRIPT_WEBHOOK_URL"`
	DiscordToken               string   `env:"DISCORD_TOKEN"`
	DiscordChannelID           string   `env:"DISCORD_CHANNEL_ID"`
	RedisAddr                  string   `env:"REDIS_ADDR"`
	RedisPassword              string   `env:"REDIS_PASSWORD"`
	RedisDB                    int      `env:"REDIS_DB" envDefault:"0"`
	RedisChannel               string   `env:"REDIS_CHANNEL" envDefault:"kikitori:transcripts"`
	RelayQueueSize             int      `env:"RELAY_QUEUE_SIZE" envDefault:"64"`
	BoostedWords               []string `env:"BOOSTED_WORDS" envSeparator:","`
}

// Load reads the environment, filled in from a .env file in the working directory when
// present, and the command line arguments (without the program name). It returns
// flag.ErrHelp when -h or --help was given.
func Load(args []string) (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return load(args, nil, os.Stderr)
}

// load parses environ instead of the process environment when it is non-nil.
func load(args []string, environ map[string]string, usage io.Writer) (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.ParseWithOptions(&raw, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		SpeechEndpoint:             raw.SpeechEndpoint,
		SpeechInsecure:             raw.SpeechInsecure,
		SpeechLanguage:             raw.SpeechLanguage,
		SpeechModel:                raw.SpeechModel,
		DatabaseURL:                raw.DatabaseURL,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
		DiscordToken:               raw.DiscordToken,
		DiscordChannelID:           raw.DiscordChannelID,
		RedisAddr:                  raw.RedisAddr,
		RedisPassword:              raw.RedisPassword,
		RedisDB:                    raw.RedisDB,
		RedisChannel:               raw.RedisChannel,
		RelayQueueSize:             raw.RelayQueueSize,
		BoostedWords:               raw.BoostedWords,
	}

	flags := newFlagSet(&cfg.CLI)
	flags.SetOutput(usage)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet(c *internalconfig.CLI) *flag.FlagSet {
	flags := flag.NewFlagSet("kikitori", flag.ContinueOnError)

	flags.StringVar(&c.InputFile, "input-file", "", "path to a local audio file to stream")
	flags.BoolVar(&c.Mic, "mic", false, "stream from a microphone instead of a file")
	flags.BoolVar(&c.ListDevices, "list-devices", false, "list audio device indices and exit")
	flags.BoolVar(&c.ListRuns, "list-runs", false, "print the most recent recorded sessions and exit")
	flags.IntVar(&c.ListRunsLimit, "list-runs-limit", 20, "number of sessions printed by --list-runs")
	flags.IntVar(&c.InputDevice, "input-device", internalconfig.NoDevice, "input device index for --mic (default device when unset)")
	flags.IntVar(&c.OutputDevice, "output-device", internalconfig.NoDevice, "output device index; implies --play-audio")
	flags.StringVar(&c.InputFormat, "input-format", internalconfig.InputFormatWAV, "input file format: wav or raw")
	flags.IntVar(&c.SampleRateHz, "sample-rate-hz", recognition.DefaultSampleRateHertz, "sample rate for --mic and raw input")
	flags.IntVar(&c.Channels, "channels", 1, "channel count for --mic and raw input")
	flags.IntVar(&c.SampleWidth, "sample-width", 2, "bytes per sample for raw input")
	flags.IntVar(&c.ChunkFrames, "file-streaming-chunk", 1600, "frames per audio request")

	flags.BoolVar(&c.SimulateRealtime, "simulate-realtime", false, "send file audio no faster than real time")
	flags.BoolVar(&c.PlayAudio, "play-audio", false, "play file audio while streaming it")
	flags.BoolVar(&c.ShowIntermediate, "show-intermediate", false, "print partial transcripts")
	flags.BoolVar(&c.PrintConfidence, "print-confidence", false, "print confidence and stability")

	flags.StringVar(&c.LanguageCode, "language-code", "", "language of the transcription (overrides SPEECH_LANGUAGE)")
	flags.StringVar(&c.ModelName, "model-name", "", "recognition model (overrides SPEECH_MODEL)")
	flags.IntVar(&c.MaxAlternatives, "max-alternatives", 1, "maximum number of alternative transcripts")
	flags.BoolVar(&c.ProfanityFilter, "profanity-filter", false, "mask profane words")
	flags.BoolVar(&c.AutomaticPunctuation, "automatic-punctuation", false, "add punctuation to transcripts")
	flags.BoolVar(&c.NoVerbatimTranscripts, "no-verbatim-transcripts", false, "apply inverse text normalization")
	flags.Var((*wordList)(&c.BoostedWords), "boosted-lm-words", "word to boost; repeatable or comma separated")
	flags.Float64Var(&c.BoostedScore, "boosted-lm-score", recognition.DefaultBoostScore, "score applied to boosted words")
	flags.IntVar(&c.StartHistory, "start-history", recognition.UnsetHistory, "endpointing start history in ms")
	flags.Float64Var(&c.StartThreshold, "start-threshold", recognition.UnsetThreshold, "endpointing start threshold")
	flags.IntVar(&c.StopHistory, "stop-history", recognition.UnsetHistory, "endpointing stop history in ms")
	flags.Float64Var(&c.StopThreshold, "stop-threshold", recognition.UnsetThreshold, "endpointing stop threshold")
	flags.IntVar(&c.StopHistoryEOU, "stop-history-eou", recognition.UnsetHistory, "end-of-utterance stop history in ms")
	flags.Float64Var(&c.StopThresholdEOU, "stop-threshold-eou", recognition.UnsetThreshold, "end-of-utterance stop threshold")
	flags.StringVar(&c.CustomConfiguration, "custom-configuration", "", "service specific key:value pairs")

	return flags
}

type wordList []string

func (w *wordList) String() string {
	if w == nil {
		return ""
	}
	return strings.Join(*w, ",")
}

func (w *wordList) Set(v string) error {
	for _, word := range strings.Split(v, ",") {
		if word = strings.TrimSpace(word); word != "" {
			*w = append(*w, word)
		}
	}
	return nil
}
