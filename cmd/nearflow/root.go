package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nearflow/checkpointer"
	"nearflow/config"
	"nearflow/flows"
	"nearflow/kv"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "nearflow",
		Short:        "Run NEAR workflows described in the flow DSL",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.PersistentFlags().StringVarP(&opts.logLevel, "log", "l", "", "log output level, overrides the configuration")

	cmd.AddCommand(
		newRunCommand(opts),
		newNodesCommand(),
		newServeCommand(opts),
		newStatusCommand(opts),
	)
	return cmd
}

// app holds the dependencies shared by the subcommands.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store kv.KVStore
	env   flows.DSLEnv
	cp    checkpointer.Checkpointer
}

func (o *rootOptions) load(stderr io.Writer) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	log, err := cfg.Logger(stderr)
	if err != nil {
		return nil, err
	}

	store, err := cfg.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("could not open store: %w", err)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		env: flows.DSLEnv{
			Connector: cfg.Connector(log),
			Store:     store,
			OpenAI:    cfg.OpenAIClient(),
			LLMModel:  cfg.OpenAI.Model,
			Logger:    log,
		},
		cp: checkpointer.NewKVCheckpointer(store),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("could not close store")
	}
}
