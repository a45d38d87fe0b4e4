package httpserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/casualjim/relay"
	"github.com/casualjim/relay/endpoint"
	"github.com/casualjim/relay/internal/broker"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/provider/pinecone"
	"github.com/fogfish/opts"
	"github.com/tidwall/gjson"
)

const (
	endpointPinecone = "pinecone"
	endpointCustom   = "custom"
)

var errNotAssistantEndpoint = errors.New("endpoint is not served by the assistant relay")

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, pinecone.Models(s.cfg.Upstream.AssistantName, time.Now()))
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	conversationID := strings.TrimSpace(gjson.GetBytes(body, "conversationId").String())
	if conversationID == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("conversationId is required"))
		return
	}

	n := s.exchanges.Cancel(conversationID)
	s.logger.InfoContext(r.Context(), "abort requested", slog.String("conversation_id", conversationID), slog.Int("cancelled", n))
	s.respondJSON(w, http.StatusOK, map[string]any{"conversationId": conversationID, "aborted": n})
}

func (s *Server) handleEdit(custom bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}

		name := endpointPinecone
		if custom {
			name = gjson.GetBytes(body, "endpoint").String()
		}
		eo, err := endpoint.Build(name, body)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		if custom && !eo.RoutesToAssistant(s.cfg.Upstream.AssistantName) {
			s.respondError(w, http.StatusNotFound, errNotAssistantEndpoint)
			return
		}

		meta := gjson.GetManyBytes(body, "messageId", "conversationId", "parentMessageId", "isNewConversation")
		x := relay.Exchange{
			Request:           eo.Request(),
			MessageID:         meta[0].String(),
			ConversationID:    meta[1].String(),
			ParentMessageID:   meta[2].String(),
			IsNewConversation: meta[3].Bool(),
			Sender:            s.cfg.Relay.Sender,
			Model:             s.cfg.Upstream.Model,
			Endpoint:          name,
		}
		if custom {
			x.Endpoint = endpointCustom + ":" + name
		}

		sse, err := newSSEEmitter(w)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err)
			return
		}
		setSSEHeaders(w)
		w.WriteHeader(http.StatusOK)

		var em relay.Emitter = sse
		if s.broker != nil {
			topic := s.broker.Topic(r.Context(), broker.ExchangeTopic(s.cfg.Broker.Subject, x.ConversationID))
			em = relay.Tee(sse, broker.Emitter(topic))
		}

		upstream := s.cfg.Upstream
		if eo.APIKey != "" {
			upstream.APIKey = eo.APIKey
		}
		if eo.AssistantName != "" {
			upstream.AssistantName = eo.AssistantName
		}

		ctx := r.Context()
		log := s.logger.With(slogx.Exchange(x.ConversationID, x.MessageID), slog.String("endpoint", x.Endpoint))
		client, err := s.newClient(upstream)
		if err != nil {
			log.ErrorContext(ctx, "initializing client failed", slogx.Error(err))
			if rerr := relay.Reject(ctx, x, em, err, s.cfg.Debug); rerr != nil {
				log.WarnContext(ctx, "emitting error event failed", slogx.Error(rerr))
			}
			return
		}

		relayOpts := []opts.Option[relay.Relay]{
			relay.WithSender(s.cfg.Relay.Sender),
			relay.WithModel(s.cfg.Upstream.Model),
			relay.WithExchanges(s.exchanges),
			relay.WithDebug(s.cfg.Debug),
			relay.WithLogger(s.logger),
		}
		if s.titler != nil {
			relayOpts = append(relayOpts, relay.WithTitles(s.titler))
		}
		rl, err := relay.New(client, relayOpts...)
		if err != nil {
			log.ErrorContext(ctx, "initializing relay failed", slogx.Error(err))
			if rerr := relay.Reject(ctx, x, em, err, s.cfg.Debug); rerr != nil {
				log.WarnContext(ctx, "emitting error event failed", slogx.Error(rerr))
			}
			return
		}
		if err := rl.Run(ctx, x, em); err != nil {
			log.DebugContext(ctx, "exchange ended with error", slogx.Error(err))
		}
	}
}
