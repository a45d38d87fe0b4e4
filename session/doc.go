// Package session runs one chat exchange against a provider.
//
// A Session is single-use. It moves through
//
//	Idle → AwaitingUpstream → Streaming → Completed | Failed | Cancelled
//
// and accumulates the answer text as deltas arrive. The first terminal transition
// wins; progress callbacks never fire after it. Cancel may be called from any
// goroutine and is a no-op once the session has settled.
package session
