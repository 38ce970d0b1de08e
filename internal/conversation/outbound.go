package conversation

import "context"

// Messenger delivers replies and voice-call triggers back to the end user
// through the chat transport.
type Messenger interface {
	SendMessage(ctx context.Context, to, body string) error
	StartCall(ctx context.Context, to, callbackURL string) error
}
