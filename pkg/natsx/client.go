package natsx

import (
	"errors"

	"github.com/nats-io/nats.go"
)

// ClientName identifies relay connections on the NATS server.
const ClientName = "relay"

var ErrMissingURL = errors.New("nats url is required")

// Connect dials the NATS server at url. Without options the connection is named
// ClientName and compression is enabled.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		return nil, ErrMissingURL
	}
	if len(opts) == 0 {
		opts = append(opts, nats.Name(ClientName), nats.Compression(true))
	}
	return nats.Connect(url, opts...)
}
