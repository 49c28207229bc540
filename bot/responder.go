package bot

import (
	"context"

	"github.com/SUMERGeg/lostfound/core/telegram/helpers"
	"github.com/SUMERGeg/lostfound/core/telegram/keyboard"
	"github.com/SUMERGeg/lostfound/flow"

	tele "gopkg.in/telebot.v4"
)

// teleResponder adapts an in-flight tele.Context to the flow.Responder
// surface. One responder serves exactly one update.
type teleResponder struct {
	c tele.Context
	// answered tracks whether the callback query was acknowledged, so
	// the route can ack silently when no toast was shown.
	answered bool
}

func newResponder(c tele.Context) *teleResponder {
	return &teleResponder{c: c}
}

// Send renders a response as a Telegram message with an optional inline
// keyboard.
func (r *teleResponder) Send(_ context.Context, resp flow.Response) error {
	if resp.Text == "" {
		return nil
	}
	if len(resp.Buttons) == 0 {
		return helpers.SendText(r.c, resp.Text)
	}

	rows := make([][]keyboard.InlineBtn, 0, len(resp.Buttons))
	for _, row := range resp.Buttons {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{Text: b.Label, Data: b.Data, URL: b.URL})
		}
		rows = append(rows, btns)
	}
	markup := keyboard.InlineButtonsRows(rows...)
	return helpers.SendText(r.c, resp.Text, &tele.SendOptions{ReplyMarkup: markup})
}

// Notify shows a callback toast when handling a button press, or falls
// back to a plain message for text updates.
func (r *teleResponder) Notify(_ context.Context, text string) error {
	if r.c.Callback() != nil {
		r.answered = true
		return r.c.Respond(&tele.CallbackResponse{Text: text})
	}
	return helpers.SendText(r.c, text)
}

// Ack answers the callback query without a toast if nothing did yet.
// Telegram keeps the button spinner until the query is answered.
func (r *teleResponder) Ack() {
	if r.c.Callback() == nil || r.answered {
		return
	}
	r.answered = true
	_ = r.c.Respond()
}
