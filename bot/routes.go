package bot

import (
	"errors"

	"github.com/SUMERGeg/lostfound/core/telegram/callbacks"
	"github.com/SUMERGeg/lostfound/core/telegram/helpers"
	"github.com/SUMERGeg/lostfound/flow"

	tele "gopkg.in/telebot.v4"
)

// dialogBinding bridges telebot updates to the flow engine. It satisfies
// the router.Dialog interface.
type dialogBinding struct {
	engine *flow.Engine
}

func newDialogBinding(engine *flow.Engine) *dialogBinding {
	return &dialogBinding{engine: engine}
}

// HandleText feeds a free-text update into the engine.
func (d *dialogBinding) HandleText(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	msg := flow.Message{
		From: c.Sender().ID,
		Text: c.Text(),
	}
	err := d.engine.HandleMessage(ctx, msg, newResponder(c))
	return ignoreUserResolution(err)
}

// HandleLocation feeds a shared location into the engine.
func (d *dialogBinding) HandleLocation(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	msg := flow.Message{
		From: c.Sender().ID,
		Text: c.Text(),
	}
	if loc := c.Message().Location; loc != nil {
		msg.Location = &flow.Location{
			Latitude:  float64(loc.Lat),
			Longitude: float64(loc.Lng),
		}
	}
	err := d.engine.HandleMessage(ctx, msg, newResponder(c))
	return ignoreUserResolution(err)
}

// HandleCallback feeds a button press into the engine and makes sure the
// callback query gets answered.
func (d *dialogBinding) HandleCallback(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	cb := flow.Callback{
		From:    c.Sender().ID,
		Payload: callbacks.Data(c),
	}
	out := newResponder(c)
	err := d.engine.HandleCallback(ctx, cb, out)
	out.Ack()
	return ignoreUserResolution(err)
}

// ignoreUserResolution keeps user-mapping failures out of telebot's
// OnError path; the engine already logged and notified the user.
func ignoreUserResolution(err error) error {
	if errors.Is(err, flow.ErrUserResolution) {
		return nil
	}
	return err
}
