package main

import (
	"github.com/foxseedlab/kikitori/internal/audio"
	"github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/recognition"
)

func recognitionOptions(cfg *config.Config, format audio.Format) []recognition.Option {
	c := cfg.CLI
	opts := []recognition.Option{
		recognition.WithLanguage(cfg.Language()),
		recognition.WithModel(cfg.Model()),
		recognition.WithAudioFormat(format.SampleRate, format.Channels),
		recognition.WithMaxAlternatives(c.MaxAlternatives),
		recognition.WithProfanityFilter(c.ProfanityFilter),
		recognition.WithAutomaticPunctuation(c.AutomaticPunctuation),
		recognition.WithVerbatimTranscripts(!c.NoVerbatimTranscripts),
		recognition.WithEndpointing(recognition.Endpointing{
			StartHistory:     c.StartHistory,
			StartThreshold:   c.StartThreshold,
			StopHistory:      c.StopHistory,
			StopThreshold:    c.StopThreshold,
			StopHistoryEOU:   c.StopHistoryEOU,
			StopThresholdEOU: c.StopThresholdEOU,
		}),
		recognition.WithCustomConfiguration(c.CustomConfiguration),
	}
	if words := cfg.AllBoostedWords(); len(words) > 0 {
		opts = append(opts, recognition.WithBoostedWords(words, c.BoostedScore))
	}
	return opts
}
