package slogx

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	// KeyLoggerName is the attribute key carrying the component name.
	KeyLoggerName = "logger"
	// KeySessionID is the attribute key carrying a streaming session id.
	KeySessionID = "session_id"
)

// Error returns an "error" attribute holding the error message.
// A nil error yields an empty string value rather than a panic.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// ByteString creates an attribute from a raw byte payload, typically an SSE data frame.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

// Stringer creates an attribute from any fmt.Stringer.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName tags a log record with the component that produced it.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// SessionID tags a log record with the session it belongs to.
func SessionID(id uuid.UUID) slog.Attr {
	return slog.String(KeySessionID, id.String())
}

// Exchange groups the downstream identifiers of one relayed exchange.
func Exchange(conversationID, messageID string) slog.Attr {
	return slog.Group("exchange",
		slog.String("conversation_id", conversationID),
		slog.String("message_id", messageID),
	)
}
