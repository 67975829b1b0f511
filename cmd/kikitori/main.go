package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	audioimpl "github.com/foxseedlab/kikitori/external/audio"
	configloader "github.com/foxseedlab/kikitori/external/config"
	discordimpl "github.com/foxseedlab/kikitori/external/discord"
	redisimpl "github.com/foxseedlab/kikitori/external/redis"
	repositoryimpl "github.com/foxseedlab/kikitori/external/repository"
	transcriberimpl "github.com/foxseedlab/kikitori/external/transcriber"
	webhookimpl "github.com/foxseedlab/kikitori/external/webhook"
	"github.com/foxseedlab/kikitori/internal/audio"
	"github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/presenter"
	"github.com/foxseedlab/kikitori/internal/recognition"
	"github.com/foxseedlab/kikitori/internal/relay"
	"github.com/foxseedlab/kikitori/internal/session"
	"github.com/samber/do/v2"
)

const (
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Debug("startup: configuration loaded", "env", cfg.Env)

	injector := setupDI(cfg)
	defer shutdown(injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case cfg.CLI.ListDevices:
		err = listDevices(injector)
	case cfg.CLI.ListRuns:
		err = listRuns(ctx, cfg, injector, os.Stdout)
	default:
		err = transcribe(ctx, cfg, injector)
	}
	if code := exitCode(err); code != 0 {
		stop()
		shutdown(injector)
		os.Exit(code)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(exitUsage)
	}
	return cfg
}

// initLogger writes JSON logs to stderr; stdout is reserved for transcripts.
func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	discordimpl.RegisterDI(injector)
	redisimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

// shutdown releases the services that were built during the run, such as the database
// pool and PortAudio.
func shutdown(injector do.Injector) {
	if report := injector.Shutdown(); report != nil && !report.Succeed {
		slog.Warn("shutdown finished with errors", "error", report.Error())
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, session.ErrCancelled):
		return exitCancelled
	case errors.Is(err, recognition.ErrInvalidConfig):
		return exitUsage
	default:
		return 1
	}
}

func listDevices(injector do.Injector) error {
	manager, err := do.Invoke[audio.DeviceManager](injector)
	if err != nil {
		slog.Error("audio devices are unavailable", "error", err)
		return err
	}
	devices, err := manager.ListDevices()
	if err != nil {
		slog.Error("failed to list audio devices", "error", err)
		return err
	}
	for _, d := range devices {
		fmt.Fprintf(os.Stdout, "%d: %s (in: %d, out: %d, %.0f Hz)\n",
			d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}
	return nil
}

func transcribe(ctx context.Context, cfg *config.Config, injector do.Injector) error {
	runner, err := do.Invoke[*session.Runner](injector)
	if err != nil {
		slog.Error("failed to resolve session runner", "error", err)
		return err
	}

	source, err := openSource(cfg, injector)
	if err != nil {
		slog.Error("failed to open audio source", "source", cfg.SourceName(), "error", err)
		return err
	}
	format := source.Format()

	recCfg, err := recognition.Build(recognitionOptions(cfg, format)...)
	if err != nil {
		_ = source.Close()
		slog.Error("invalid recognition config", "error", err)
		return err
	}

	pacer, closePacer, err := newPacer(cfg, injector, format)
	if err != nil {
		_ = source.Close()
		slog.Error("failed to set up pacing", "error", err)
		return err
	}
	defer closePacer()

	sess := runner.NewSession(pacer)
	out := presenter.New(os.Stdout, presenter.Options{
		ShowIntermediate: cfg.CLI.ShowIntermediate,
		PrintConfidence:  cfg.CLI.PrintConfidence,
	}, slog.Default().With("session_id", sess.ID()))
	dispatcher := relay.NewDispatcher(sess.ID(), relaySenders(injector), cfg.RelayQueueSize, slog.Default())

	slog.Info("transcription started", "session_id", sess.ID(), "source", cfg.SourceName(),
		"sample_rate_hertz", format.SampleRate, "channels", format.Channels)
	runErr := runner.Run(ctx, session.RunInput{
		Session:    sess,
		Source:     source,
		SourceName: cfg.SourceName(),
		Config:     recCfg,
		Receiver:   session.Receivers(out, dispatcher),
	})

	shown := runErr
	if errors.Is(runErr, session.ErrCancelled) {
		shown = nil
		slog.Info("transcription cancelled", "session_id", sess.ID())
	}
	if err := out.Finish(shown); err != nil {
		slog.Error("failed to write transcript", "error", err)
	}
	if err := dispatcher.Close(); err != nil {
		slog.Warn("failed to close relay senders", "error", err)
	}
	return runErr
}

func openSource(cfg *config.Config, injector do.Injector) (audio.ChunkSource, error) {
	c := cfg.CLI
	format := audio.Format{SampleRate: c.SampleRateHz, Channels: c.Channels, SampleWidth: c.SampleWidth}
	if !c.Mic {
		return audioimpl.OpenFile(c.InputFile, audioimpl.FileOptions{
			InputFormat: c.InputFormat,
			RawFormat:   format,
			ChunkFrames: c.ChunkFrames,
		})
	}

	manager, err := do.Invoke[audio.DeviceManager](injector)
	if err != nil {
		return nil, err
	}
	dev, err := manager.OpenCapture(c.InputDevice, format, c.ChunkFrames)
	if err != nil {
		return nil, err
	}
	src, err := audio.NewDeviceSource(dev, format, c.ChunkFrames)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return src, nil
}

func newPacer(cfg *config.Config, injector do.Injector, format audio.Format) (audio.Pacer, func(), error) {
	switch {
	case cfg.CLI.SimulateRealtime:
		return audio.NewRealtimePacer(), func() {}, nil
	case cfg.PlaybackRequested():
		manager, err := do.Invoke[audio.DeviceManager](injector)
		if err != nil {
			return nil, nil, err
		}
		dev, err := manager.OpenPlayback(cfg.CLI.OutputDevice, format)
		if err != nil {
			return nil, nil, err
		}
		return audio.NewPlaybackPacer(dev), func() {
			if err := dev.Close(); err != nil {
				slog.Warn("failed to close playback device", "error", err)
			}
		}, nil
	default:
		return audio.NoPacing{}, func() {}, nil
	}
}

func relaySenders(injector do.Injector) []relay.Sender {
	var senders []relay.Sender
	for _, name := range []string{webhookimpl.ServiceName, discordimpl.ServiceName, redisimpl.ServiceName} {
		s, err := do.InvokeNamed[relay.Sender](injector, name)
		if err != nil {
			slog.Warn("relay sender disabled", "sender", name, "error", err)
			continue
		}
		senders = append(senders, s)
	}
	return relay.Active(senders...)
}
