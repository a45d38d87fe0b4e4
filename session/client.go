package session

import (
	"context"
	"log/slog"

	"github.com/casualjim/relay/config"
	"github.com/casualjim/relay/messages"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/provider"
	"github.com/casualjim/relay/provider/pinecone"
	"github.com/fogfish/opts"
)

// ProgressFunc receives the cumulative answer text after every delta.
type ProgressFunc func(text string)

// Client creates sessions against one provider.
type Client struct {
	provider provider.Provider
	logger   *slog.Logger
	model    string
}

var (
	// WithProvider replaces the Pinecone provider built from the upstream configuration.
	WithProvider = opts.ForName[Client, provider.Provider]("provider")
	// WithLogger sets the logger used by the client and its sessions.
	WithLogger = opts.ForName[Client, *slog.Logger]("logger")
	// WithModel overrides the upstream model for every session.
	WithModel = opts.ForName[Client, string]("model")
)

// New builds a client from explicit configuration. Without WithProvider the client
// talks to Pinecone and fails with provider.ErrMissingCredential when cfg carries no
// API key.
func New(cfg config.Upstream, options ...opts.Option[Client]) (*Client, error) {
	c := &Client{}
	if err := opts.Apply(c, options); err != nil {
		return nil, err
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.provider == nil {
		pcfg := pinecone.FromUpstream(cfg)
		pcfg.Logger = c.logger
		p, err := pinecone.New(pcfg)
		if err != nil {
			return nil, err
		}
		c.provider = p
	}
	if c.model == "" {
		c.model = cfg.Model
	}
	c.logger = c.logger.With(slogx.LoggerName("session"))
	return c, nil
}

// NewSession creates an idle session for req.
func (c *Client) NewSession(req messages.ChatRequest) *Session {
	s := &Session{
		id:       newSessionID(),
		request:  req,
		provider: c.provider,
		model:    c.model,
		coord:    &Coordinator{},
	}
	if req.Model != "" {
		s.model = req.Model
	}
	s.log = c.logger.With(slogx.SessionID(s.id))
	return s
}

// ChatCompletion runs req in a fresh session and returns the answer text. onProgress
// may be nil.
func (c *Client) ChatCompletion(ctx context.Context, req messages.ChatRequest, onProgress ProgressFunc) (string, error) {
	return c.NewSession(req).ChatCompletion(ctx, onProgress)
}
