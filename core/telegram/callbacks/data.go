package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// RawData extracts the wire payload from a callback, stripping telebot's
// optional \f<unique>|<payload> framing. Buttons built by this bot attach
// their data verbatim, so usually the string comes back untouched.
func RawData(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	raw := cb.Data
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "\f") {
		raw = strings.TrimPrefix(raw, "\f")
		if i := strings.Index(raw, "|"); i >= 0 {
			raw = raw[i+1:]
		}
	}
	return strings.TrimSpace(raw)
}

// Data is RawData lifted to tele.Context.
func Data(c tele.Context) string {
	return RawData(c.Callback())
}
