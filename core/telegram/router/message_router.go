package router

import (
	"time"

	tg "github.com/SUMERGeg/lostfound/core/telegram"
	"github.com/SUMERGeg/lostfound/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dialog is the minimal surface the routers need from the dialogue binding.
// The binding decides internally whether the user is inside a flow.
type Dialog interface {
	HandleText(c tele.Context) error
	HandleLocation(c tele.Context) error
	HandleCallback(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// MessageRoutes builds handlers for text, location, and photo updates.
// Command aliases win over the dialogue so that "/help" typed mid-flow
// still reaches its handler; everything else goes to the dialogue.
func MessageRoutes(dialog Dialog, reg *tg.Registry, opts TextOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if dialog != nil {
			return handleWithSummary(c, "dialog.text", start, "", "", func() error {
				return dialog.HandleText(c)
			})
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	locationHandler := func(c tele.Context) error {
		start := time.Now()
		if dialog != nil {
			return handleWithSummary(c, "dialog.location", start, "", "", func() error {
				return dialog.HandleLocation(c)
			})
		}
		logHandlerSummary(c, "dialog.location", start, "skip", "ok", nil)
		return nil
	}

	// Photo captions flow through the same dialogue path as text.
	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if dialog != nil {
			return handleWithSummary(c, "dialog.photo", start, "", "", func() error {
				return dialog.HandleText(c)
			})
		}
		logHandlerSummary(c, "dialog.photo", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(textHandler)),
		},
		{
			Endpoint: tele.OnLocation,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(locationHandler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
	}
}
