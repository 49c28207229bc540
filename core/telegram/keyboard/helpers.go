package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
// Data carries the full callback payload; URL buttons leave Data empty.
type InlineBtn struct {
	Text string
	Data string
	URL  string
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// Callback data is attached verbatim, without telebot's unique framing,
// so handlers receive exactly the payload that was encoded.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			if btn.URL != "" {
				r[j] = tele.InlineButton{Text: btn.Text, URL: btn.URL}
				continue
			}
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}
