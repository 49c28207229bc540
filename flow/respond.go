package flow

import "context"

// Button is one inline control of an outbound response. Data carries an
// encoded action payload; URL buttons open a link instead.
type Button struct {
	Label string
	Data  string
	URL   string
}

// Response is an abstract outbound message: prompt text plus an optional
// button grid. The transport binding decides how to render it.
type Response struct {
	Text    string
	Buttons [][]Button
}

// Responder delivers rendered responses for the event being processed.
// Send posts a full message; Notify shows a short notice (a callback
// toast on platforms that support it, a plain message otherwise).
type Responder interface {
	Send(ctx context.Context, r Response) error
	Notify(ctx context.Context, text string) error
}
