package router

import (
	"log/slog"
	"time"

	tg "github.com/SUMERGeg/lostfound/core/telegram"
	"github.com/SUMERGeg/lostfound/core/telegram/callbacks"
	"github.com/SUMERGeg/lostfound/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute returns a handler that forwards callback presses to the
// dialogue binding. Acknowledgement is left to the binding, which either
// shows a toast or answers the query silently.
func CallbackRoute(dialog Dialog) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		data := callbacks.RawData(c.Callback())
		extras := []slog.Attr{slog.String("cb_data", truncateData(data))}

		if dialog == nil {
			logHandlerSummary(c, "dialog.callback", start, "skip", "ok", nil, extras...)
			return nil
		}

		return handleWithSummary(c, "dialog.callback", start, "", "", func() error {
			return dialog.HandleCallback(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}

// truncateData keeps callback payloads in log lines short.
func truncateData(s string) string {
	const maxLen = 64
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
