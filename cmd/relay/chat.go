package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/casualjim/relay"
	"github.com/casualjim/relay/config"
	"github.com/casualjim/relay/events"
	"github.com/casualjim/relay/messages"
	"github.com/casualjim/relay/pkg/uuidx"
	"github.com/casualjim/relay/provider"
	"github.com/casualjim/relay/session"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	var (
		noStream bool
		render   bool
	)
	cmd := &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Run one exchange against the assistant and print it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			x := relay.Exchange{
				Request:        messages.NewRequest(!noStream, messages.User(strings.Join(args, " "))),
				ConversationID: uuidx.NewString(),
				Sender:         cfg.Relay.Sender,
				Model:          cfg.Upstream.Model,
				Endpoint:       "pinecone",
			}
			em := relay.NewChanEmitter(16)

			errc := make(chan error, 1)
			rl, err := newChatRelay(cfg)
			if err != nil {
				go func() { errc <- relay.Reject(ctx, x, em, err, cfg.Debug) }()
			} else {
				go func() { errc <- rl.Run(ctx, x, em) }()
			}

			p := &printer{out: cmd.OutOrStdout(), render: render, dump: cfg.Debug}
			if err := p.print(em.Events()); err != nil {
				return err
			}
			if err := <-errc; err != nil && !provider.IsCancelled(err) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "ask for the whole answer at once")
	cmd.Flags().BoolVar(&render, "render", false, "render the final answer as markdown")
	return cmd
}

func newChatRelay(cfg config.Config) (*relay.Relay, error) {
	client, err := session.New(cfg.Upstream, session.WithLogger(slog.Default()))
	if err != nil {
		return nil, err
	}
	return relay.New(client,
		relay.WithSender(cfg.Relay.Sender),
		relay.WithModel(cfg.Upstream.Model),
		relay.WithDebug(cfg.Debug),
	)
}

var errExchangeFailed = errors.New("exchange failed")

// printer writes relay events to a terminal. Text events carry the whole answer so
// far, so only the unseen suffix is written.
type printer struct {
	out    io.Writer
	render bool
	dump   bool

	shown string
}

func (p *printer) print(evs <-chan events.Event) error {
	var failed bool
	for ev := range evs {
		if p.dump {
			pp.Fprintln(os.Stderr, ev)
		}
		switch e := ev.(type) {
		case events.Message:
			if !e.Final() {
				fmt.Fprint(p.out, color.MagentaString(e.Sender)+": ")
				continue
			}
			if p.render {
				if err := p.markdown(e.Text); err != nil {
					return err
				}
				continue
			}
			p.text(e.Text)
			fmt.Fprintln(p.out)
		case events.Text:
			if !p.render {
				p.text(e.Text)
			}
		case events.Error:
			failed = true
			fmt.Fprintln(p.out)
			fmt.Fprintln(p.out, color.RedString("error: %s", e.Message))
		}
	}
	if failed {
		return errExchangeFailed
	}
	return nil
}

func (p *printer) text(text string) {
	if strings.HasPrefix(text, p.shown) {
		fmt.Fprint(p.out, text[len(p.shown):])
	} else {
		fmt.Fprint(p.out, "\n"+text)
	}
	p.shown = text
}

func (p *printer) markdown(text string) error {
	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return err
	}
	out, err := glam.Render(text)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out)
	fmt.Fprint(p.out, out)
	return nil
}
