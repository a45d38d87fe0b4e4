package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/casualjim/relay/events"
	"github.com/casualjim/relay/internal/broker"
	"github.com/casualjim/relay/pkg/natsx"
	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the relay events mirrored on NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if subject == "" {
				subject = cfg.Broker.Subject
			}
			conn, err := natsx.Connect(cfg.Broker.NATSURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			w := &watcher{out: cmd.OutOrStdout(), dump: cfg.Debug}
			sub, err := broker.NATS(conn).Topic(ctx, subject+".>").Subscribe(ctx, w)
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			fmt.Fprintln(cmd.ErrOrStderr(), color.CyanString("watching %s.>", subject))
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject prefix of the mirrored exchanges (defaults to config)")
	return cmd
}

type watcher struct {
	mu   sync.Mutex
	out  io.Writer
	dump bool
}

func (w *watcher) OnEvent(_ context.Context, topic string, ev events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dump {
		pp.Fprintln(os.Stderr, ev)
	}
	data, err := ev.MarshalJSON()
	if err != nil {
		fmt.Fprintln(w.out, color.RedString("%s: %v", topic, err))
		return
	}
	name := color.YellowString(ev.Name())
	if _, ok := ev.(events.Error); ok {
		name = color.RedString(ev.Name())
	}
	fmt.Fprintf(w.out, "%s %s %s\n", color.CyanString(topic), name, data)
}
