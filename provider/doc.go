// Package provider defines the normalized event stream produced by upstream
// assistant services and the error taxonomy shared by every layer of the relay.
//
// A Provider turns one chat request into a channel of StreamEvent values:
//
//  1. Started: the upstream response was established
//  2. Delta: an incremental fragment (Append) or the full answer so far (Replace)
//  3. Completed: the final answer text
//  4. Failed: a terminal error
//
// The producer goroutine owns the upstream connection and closes the channel when
// it is done, so consumers simply range over it:
//
//	events, err := p.ChatCompletion(ctx, provider.CompletionParams{
//	    SessionID: id,
//	    Request:   req,
//	    Stream:    true,
//	})
//	if err != nil {
//	    return err
//	}
//	for event := range events {
//	    switch e := event.(type) {
//	    case provider.Delta:
//	        text = e.Mode.Apply(text, e.Text)
//	    case provider.Completed:
//	        // final text
//	    case provider.Failed:
//	        // e.Err is one of the taxonomy errors
//	    }
//	}
//
// Errors: ErrInvalidRequest, ErrMissingCredential and ErrCancelled are sentinels;
// UpstreamError and StreamTransportError are typed; MalformedEventError is only
// ever logged. Kind maps any of them to its taxonomy name.
package provider
