package relay

import (
	"log/slog"

	"github.com/casualjim/relay/internal/registry"
	"github.com/fogfish/opts"
)

var (
	// WithSender sets the sender label of relayed messages.
	WithSender = opts.ForName[Relay, string]("sender")

	// WithModel sets the model label of relayed messages.
	WithModel = opts.ForName[Relay, string]("model")

	// WithTitles sets the collaborator that names new conversations.
	WithTitles = opts.ForName[Relay, Titler]("titler")

	// WithExchanges tracks running exchanges so they can be aborted out of band.
	WithExchanges = opts.ForName[Relay, *registry.Exchanges]("exchanges")

	// WithDebug attaches diagnostic details to error events.
	WithDebug = opts.ForName[Relay, bool]("debug")

	// WithLogger sets the relay logger.
	WithLogger = opts.ForName[Relay, *slog.Logger]("logger")
)
