// Package events defines the downstream events a relay emits for one exchange.
//
// Every exchange produces exactly one opening Message, zero or more Text events
// carrying the cumulative answer, and then either a closing Message followed by
// Done, or a single Error.
//
//	message(text:"") text(text:"Hel") text(text:"Hello") message(text:"Hello", finish_reason:"stop") done
//
// Name returns the server-sent event name and MarshalJSON the event's data payload.
// ToJSON and FromJSON wrap an event in an {"event","data"} envelope so it can travel
// over a broker.
package events
