package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bookreplay/config"
	"bookreplay/infra/codec"
	"bookreplay/infra/kafka"
	"bookreplay/infra/metrics"
	"bookreplay/infra/store"
	"bookreplay/service"
)

func replayCmd(opts *rootOptions) *cobra.Command {
	var publish bool
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and store bars and arbitrage events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("publish") {
				cfg.Kafka.PublishBars = publish
			}

			st, err := store.Open(cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := runReplay(cmd.Context(), cfg, st, metrics.New())
			if err != nil {
				return err
			}
			log.Info().Str("run", report.RunID).Msg("results stored")
			_, err = report.WriteTo(os.Stdout)
			return err
		},
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "publish bars to Kafka")
	return cmd
}

// runReplay replays the configured journal into st, recording into reg
// and publishing bars when the config asks for it.
func runReplay(ctx context.Context, cfg *config.Config, st *store.Store, reg *metrics.Registry) (*service.Report, error) {
	var pub service.BarPublisher
	if cfg.Kafka.PublishBars {
		ser, err := codec.New(cfg.Kafka.Encoding)
		if err != nil {
			return nil, err
		}
		bp := kafka.NewBarPublisher(kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.BarsTopic), ser)
		defer bp.Close()
		pub = bp
	}
	return service.NewReplayService(cfg, st, pub, reg).ReplayJournal(ctx)
}
