// Package messages holds the caller-facing chat request model: an ordered list of
// role-tagged messages whose content is either a plain string or a list of typed
// parts, plus the streaming flag and provider specific options.
//
// A ChatRequest is immutable once constructed and owned by the caller for the
// duration of one exchange. The upstream assistant service only ever receives the
// text of the latest message, see ChatRequest.LatestText.
package messages
