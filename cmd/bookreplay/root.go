package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bookreplay/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func Execute(ctx context.Context) error {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "bookreplay",
		Short:         "Order-book replay, bars and arbitrage analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	root.AddCommand(recordCmd(opts), replayCmd(opts), serveCmd(opts), inspectCmd(opts))
	return root.ExecuteContext(ctx)
}

// load reads and validates the configuration, then applies its log level.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}
