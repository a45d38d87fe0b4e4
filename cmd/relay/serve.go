package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/casualjim/relay/internal/broker"
	"github.com/casualjim/relay/internal/httpserver"
	"github.com/casualjim/relay/pkg/natsx"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/title"
	"github.com/fogfish/opts"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := slog.Default()

			var store title.Store
			if cfg.Titles.DSN != "" {
				db, err := title.OpenSQLite(cfg.Titles.DSN)
				if err != nil {
					return err
				}
				defer func() {
					if err := db.Close(); err != nil {
						logger.Warn("closing title store failed", slogx.Error(err))
					}
				}()
				store = db
			} else {
				store = title.NewMemoryStore()
			}

			options := []opts.Option[httpserver.Server]{
				httpserver.WithLogger(logger),
				httpserver.WithTitles(title.NewGenerator(store, logger)),
			}
			if cfg.Broker.NATSURL != "" {
				conn, err := natsx.Connect(cfg.Broker.NATSURL)
				if err != nil {
					return err
				}
				defer func() { _ = conn.Drain() }()
				options = append(options, httpserver.WithBroker(broker.NATS(conn)))
				logger.Info("mirroring events on nats", slog.String("subject", cfg.Broker.Subject))
			}

			srv, err := httpserver.New(cfg, options...)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
