package pinecone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/casualjim/relay/config"
	"github.com/casualjim/relay/messages"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/provider"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	"github.com/openai/openai-go/packages/ssestream"
)

// maxErrorBody bounds how much of a non-2xx response body is kept in an UpstreamError.
const maxErrorBody = 64 << 10

// Config configures a Provider. Zero values fall back to the package defaults.
type Config struct {
	APIKey        string
	BaseURL       string
	AssistantName string
	Model         string

	// Timeout bounds connecting and waiting for response headers. It does not bound
	// how long a stream may stay open.
	Timeout time.Duration

	// HTTPClient replaces the client built from Timeout.
	HTTPClient *http.Client

	// Debug logs request bodies and raw stream events.
	Debug bool

	Logger *slog.Logger
}

// FromUpstream converts the upstream section of the relay configuration.
func FromUpstream(u config.Upstream) Config {
	return Config{
		APIKey:        u.APIKey,
		BaseURL:       u.BaseURL,
		AssistantName: u.AssistantName,
		Model:         u.Model,
		Timeout:       u.Timeout,
		Debug:         u.Debug,
	}
}

type Provider struct {
	apiKey    string
	baseURL   string
	assistant string
	model     string
	debug     bool
	client    *http.Client
	log       *slog.Logger
}

// New creates a provider. It fails with provider.ErrMissingCredential when no API key
// is configured.
func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, provider.ErrMissingCredential
	}

	p := &Provider{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimSpace(cfg.BaseURL),
		assistant: strings.TrimSpace(cfg.AssistantName),
		model:     strings.TrimSpace(cfg.Model),
		debug:     cfg.Debug,
		client:    cfg.HTTPClient,
		log:       cfg.Logger,
	}
	if p.baseURL == "" {
		p.baseURL = config.DefaultBaseURL
	}
	if p.assistant == "" {
		p.assistant = config.DefaultAssistantName
	}
	if p.model == "" {
		p.model = config.DefaultModel
	}
	if p.client == nil {
		p.client = newHTTPClient(cfg.Timeout)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With(slogx.LoggerName("pinecone"))
	return p, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		transport.TLSHandshakeTimeout = timeout
		transport.ResponseHeaderTimeout = timeout
	}
	return &http.Client{Transport: transport}
}

// AssistantName returns the upstream assistant this provider talks to.
func (p *Provider) AssistantName() string { return p.assistant }

// Models lists the single model this provider exposes.
func (p *Provider) Models() ModelList {
	return Models(p.assistant, time.Now())
}

type upstreamMessage struct {
	Role    messages.Role `json:"role"`
	Content string        `json:"content"`
}

type upstreamRequest struct {
	Assistant string            `json:"assistant"`
	Messages  []upstreamMessage `json:"messages"`
	Stream    bool              `json:"stream"`
	Model     string            `json:"model"`
}

// buildRequest encodes the upstream body. Only the latest message is forwarded.
func (p *Provider) buildRequest(params *provider.CompletionParams) ([]byte, error) {
	if err := params.Request.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrInvalidRequest, err)
	}

	model := params.Model
	if model == "" {
		model = p.model
	}
	body := upstreamRequest{
		Assistant: p.assistant,
		Messages: []upstreamMessage{
			{Role: messages.RoleUser, Content: params.Request.LatestText()},
		},
		Stream: params.Stream,
		Model:  model,
	}
	return json.Marshal(body)
}

func (p *Provider) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	body, err := p.buildRequest(&params)
	if err != nil {
		return nil, err
	}
	if p.debug {
		p.log.DebugContext(ctx, "upstream request", slogx.SessionID(params.SessionID), slogx.ByteString("body", body))
	}

	events := make(chan provider.StreamEvent, 10)
	go func() {
		defer close(events)
		x := &exchange{ctx: ctx, params: &params, events: events}
		if params.Stream {
			p.runStream(x, body)
		} else {
			p.runOnce(x, body)
		}
	}()
	return events, nil
}

// exchange is the producer side of one ChatCompletion call.
type exchange struct {
	ctx    context.Context
	params *provider.CompletionParams
	events chan<- provider.StreamEvent
}

// send delivers ev unless the consumer has gone away.
func (x *exchange) send(ev provider.StreamEvent) bool {
	select {
	case x.events <- ev:
		return true
	case <-x.ctx.Done():
		return false
	}
}

func (x *exchange) fail(err error) {
	if x.ctx.Err() != nil {
		return
	}
	x.send(provider.Failed{
		SessionID: x.params.SessionID,
		Err:       err,
		Timestamp: strfmt.DateTime(time.Now()),
	})
}

func (x *exchange) started() bool {
	return x.send(provider.Started{
		SessionID: x.params.SessionID,
		Timestamp: strfmt.DateTime(time.Now()),
	})
}

func (x *exchange) completed(text, upstreamID string) {
	if x.ctx.Err() != nil {
		return
	}
	x.send(provider.Completed{
		SessionID:  x.params.SessionID,
		Text:       text,
		UpstreamID: upstreamID,
		Timestamp:  strfmt.DateTime(time.Now()),
	})
}

func (p *Provider) do(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &provider.StreamTransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &provider.UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

func (p *Provider) runOnce(x *exchange, body []byte) {
	resp, err := p.do(x.ctx, body, false)
	if err != nil {
		x.fail(err)
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		x.fail(&provider.StreamTransportError{Err: err})
		return
	}
	if p.debug {
		p.log.DebugContext(x.ctx, "upstream response", slogx.SessionID(x.params.SessionID), slogx.ByteString("body", data))
	}

	text, id, err := extractAnswer(data)
	if err != nil {
		x.fail(fmt.Errorf("decode upstream response: %w", err))
		return
	}
	if text == "" {
		p.log.WarnContext(x.ctx, "upstream response has no answer text", slogx.SessionID(x.params.SessionID), slog.String("upstream_id", id))
	}
	if !x.started() {
		return
	}
	x.completed(text, id)
}

func (p *Provider) runStream(x *exchange, body []byte) {
	resp, err := p.do(x.ctx, body, true)
	if err != nil {
		x.fail(err)
		return
	}

	dec := ssestream.NewDecoder(resp)
	defer dec.Close()
	// unblocks a pending read when the caller goes away
	stop := context.AfterFunc(x.ctx, func() { _ = resp.Body.Close() })
	defer stop()

	if !x.started() {
		return
	}

	var text, upstreamID string
	for dec.Next() {
		ev := dec.Event()
		data := bytes.TrimSpace(ev.Data)
		if len(data) == 0 {
			continue
		}
		if p.debug {
			p.log.DebugContext(x.ctx, "upstream event", slogx.SessionID(x.params.SessionID), slog.String("event", ev.Type), slogx.ByteString("data", data))
		}
		if ev.Type != "" && ev.Type != "message" {
			continue
		}
		if string(data) == doneSentinel {
			x.completed(text, upstreamID)
			return
		}

		c, err := decodeChunk(data)
		if c.id != "" {
			upstreamID = c.id
		}
		if err != nil {
			p.log.WarnContext(x.ctx, "skipping malformed upstream event", slogx.SessionID(x.params.SessionID), slogx.Error(err))
			continue
		}
		if c.text == "" {
			continue
		}

		text = c.mode.Apply(text, c.text)
		if !x.send(provider.Delta{
			SessionID: x.params.SessionID,
			Text:      c.text,
			Mode:      c.mode,
			Timestamp: strfmt.DateTime(time.Now()),
		}) {
			return
		}
	}

	if x.ctx.Err() != nil {
		return
	}
	if err := dec.Err(); err != nil && !errors.Is(err, io.EOF) {
		x.fail(&provider.StreamTransportError{Err: err})
		return
	}
	x.completed(text, upstreamID)
}
