package relay

import (
	"context"

	"github.com/casualjim/relay/title"
)

// Titler names a new conversation once its first exchange has completed.
type Titler interface {
	AddTitle(context.Context, title.Request) (title.Result, error)
}
