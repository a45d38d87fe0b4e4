package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/casualjim/relay/config"
	"github.com/casualjim/relay/events"
	"github.com/casualjim/relay/internal/registry"
	"github.com/casualjim/relay/messages"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/provider"
	"github.com/casualjim/relay/session"
	"github.com/casualjim/relay/title"
	"github.com/fogfish/opts"
)

// PrelimMessageID is used as message id when the caller did not supply one.
const PrelimMessageID = "USE_PRELIM_RESPONSE_MESSAGE_ID"

const genericErrorMessage = "An error occurred while processing your request"

// Exchange is one request relayed downstream together with its conversation
// metadata.
type Exchange struct {
	Request           messages.ChatRequest
	MessageID         string
	ConversationID    string
	ParentMessageID   string
	IsNewConversation bool

	// Sender and Model label the relayed messages. They fall back to the relay's
	// labels when empty.
	Sender string
	Model  string

	// Endpoint names the route that accepted the exchange, for debug details.
	Endpoint string
}

// Relay turns session progress into downstream events.
type Relay struct {
	client    *session.Client
	sender    string
	model     string
	titler    Titler
	exchanges *registry.Exchanges
	debug     bool
	logger    *slog.Logger
}

func New(client *session.Client, options ...opts.Option[Relay]) (*Relay, error) {
	r := &Relay{client: client}
	if err := opts.Apply(r, options); err != nil {
		return nil, err
	}
	if r.sender == "" {
		r.sender = config.DefaultSender
	}
	if r.model == "" {
		r.model = config.DefaultModel
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With(slogx.LoggerName("relay"))
	return r, nil
}

// Run relays x to em and closes em when the exchange is over. It returns the error
// the exchange failed with, provider.ErrCancelled when it was cancelled, or the
// emitter's error when downstream went away.
func (r *Relay) Run(ctx context.Context, x Exchange, em Emitter) error {
	var closeOnce sync.Once
	closeEmitter := func() {
		closeOnce.Do(func() {
			if err := em.Close(); err != nil {
				r.logger.WarnContext(ctx, "closing emitter failed", slogx.Error(err))
			}
		})
	}
	defer closeEmitter()

	messageID := x.MessageID
	if messageID == "" {
		messageID = PrelimMessageID
	}
	msg := events.Message{
		MessageID:       messageID,
		ConversationID:  x.ConversationID,
		ParentMessageID: x.ParentMessageID,
		Sender:          firstNonEmpty(x.Sender, r.sender),
		Model:           firstNonEmpty(x.Model, r.model),
	}
	log := r.logger.With(slogx.Exchange(x.ConversationID, messageID))

	if err := em.Emit(ctx, msg); err != nil {
		return err
	}

	s := r.client.NewSession(x.Request)
	log = log.With(slogx.SessionID(s.ID()))
	if r.exchanges != nil && x.ConversationID != "" {
		untrack := r.exchanges.Track(x.ConversationID, s)
		defer untrack()
	}

	var emitErr error
	var onProgress session.ProgressFunc
	if x.Request.Stream {
		onProgress = func(text string) {
			if emitErr != nil {
				return
			}
			if err := em.Emit(ctx, events.Text{MessageID: messageID, Text: text}); err != nil {
				emitErr = err
				s.Cancel()
			}
		}
	}

	text, err := s.ChatCompletion(ctx, onProgress)
	if emitErr != nil {
		log.DebugContext(ctx, "downstream went away", slogx.Error(emitErr))
		return emitErr
	}
	if provider.IsCancelled(err) {
		log.InfoContext(ctx, "exchange cancelled")
		return err
	}
	if err != nil {
		log.ErrorContext(ctx, "exchange failed", slog.String("kind", provider.Kind(err)), slogx.Error(err))
		if eerr := em.Emit(ctx, errorEvent(x, err, r.debug)); eerr != nil {
			log.WarnContext(ctx, "emitting error event failed", slogx.Error(eerr))
		}
		return err
	}

	if !x.Request.Stream {
		if err := em.Emit(ctx, events.Text{MessageID: messageID, Text: text}); err != nil {
			return err
		}
	}

	msg.Text = text
	msg.FinishReason = events.FinishReasonStop
	if err := em.Emit(ctx, msg); err != nil {
		return err
	}
	if err := em.Emit(ctx, events.Done{}); err != nil {
		return err
	}
	// the response is over before the conversation gets its title
	closeEmitter()

	if x.IsNewConversation && r.titler != nil {
		res, err := r.titler.AddTitle(ctx, title.Request{
			Text:           x.Request.LatestText(),
			ConversationID: x.ConversationID,
			Client:         r.client,
		})
		if err != nil {
			log.WarnContext(ctx, "title generation failed", slogx.Error(err))
		} else {
			log.DebugContext(ctx, "conversation titled", slog.String("title", res.Title))
		}
	}
	return nil
}

func errorEvent(x Exchange, err error, debug bool) events.Error {
	ev := events.Error{
		Message: err.Error(),
		Type:    events.ErrorTypeAPI,
	}
	if ev.Message == "" {
		ev.Message = genericErrorMessage
	}
	if debug {
		ev.Details = &events.ErrorDetails{
			ErrorName:    provider.Kind(err),
			ErrorMessage: err.Error(),
			Endpoint:     x.Endpoint,
		}
	}
	return ev
}

// Abort cancels the running exchanges of a conversation and reports how many were
// found.
func (r *Relay) Abort(conversationID string) int {
	if r.exchanges == nil {
		return 0
	}
	return r.exchanges.Cancel(conversationID)
}

// Reject ends an exchange that could not be started, for example because no client
// could be built for it. It emits the opening message followed by the error event and
// closes em. Labels come from x and fall back to the package defaults.
func Reject(ctx context.Context, x Exchange, em Emitter, cause error, debug bool) error {
	defer em.Close()
	if cause == nil {
		cause = errors.New(genericErrorMessage)
	}
	if err := em.Emit(ctx, events.Message{
		MessageID:       firstNonEmpty(x.MessageID, PrelimMessageID),
		ConversationID:  x.ConversationID,
		ParentMessageID: x.ParentMessageID,
		Sender:          firstNonEmpty(x.Sender, config.DefaultSender),
		Model:           firstNonEmpty(x.Model, config.DefaultModel),
	}); err != nil {
		return err
	}
	return em.Emit(ctx, errorEvent(x, cause, debug))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
