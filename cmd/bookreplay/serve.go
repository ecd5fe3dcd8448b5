package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"bookreplay/api/grpcserver"
	"bookreplay/infra/codec"
	"bookreplay/infra/metrics"
	"bookreplay/infra/store"
	"bookreplay/jobs/broadcaster"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var broadcast, replay bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored results over gRPC and HTTP, optionally broadcasting events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			st, err := store.Open(cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			reg := metrics.New()
			if replay {
				report, err := runReplay(ctx, cfg, st, reg)
				if err != nil {
					return err
				}
				log.Info().Str("run", report.RunID).Int("events", report.Events).Msg("journal replayed before serving")
			}
			pairs := cfg.Arbitrage.Graph.Pairs
			ser, err := codec.New(cfg.Kafka.Encoding)
			if err != nil {
				return err
			}

			// ---------------- Broadcaster ----------------

			if broadcast {
				producer, err := broadcaster.NewSyncProducer(cfg.Kafka.Brokers)
				if err != nil {
					return err
				}
				b := broadcaster.New(st, producer, cfg.Broadcaster, ser, pairs, reg)
				done := b.Start(ctx)
				defer func() {
					cancel()
					<-done
					_ = b.Close()
				}()
			}

			// ---------------- gRPC ----------------

			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return err
			}
			grpcServer := grpc.NewServer()
			grpcserver.NewServer(st, pairs).Register(grpcServer)

			// ---------------- HTTP ----------------

			httpServer := &http.Server{
				Addr:              cfg.Server.HTTPAddr,
				Handler:           newRouter(st, reg, pairs),
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().Str("addr", cfg.Server.GRPCAddr).Msg("gRPC server listening")
				return grpcServer.Serve(lis)
			})
			g.Go(func() error {
				log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("HTTP server listening")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info().Msg("shutting down")
				grpcServer.GracefulStop()
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpServer.Shutdown(sctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "deliver stored arbitrage events to Kafka")
	cmd.Flags().BoolVar(&replay, "replay", false, "replay the journal first so /metrics reports the run")
	return cmd
}
