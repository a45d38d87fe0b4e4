package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/casualjim/relay/config"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "Streaming relay for the Pinecone assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(flags.debug)
		},
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("RELAY_CONFIG"), "path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging and error details")

	cmd.AddCommand(
		newServeCmd(flags),
		newChatCmd(flags),
		newWatchCmd(flags),
		newSchemaCmd(),
	)
	return cmd
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func (f *rootFlags) load() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.debug {
		cfg.Debug = true
		cfg.Upstream.Debug = true
	}
	return cfg, nil
}
