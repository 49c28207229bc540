package flow

import (
	"fmt"
	"strings"
)

// Renderer builds outbound prompts and button layouts from the current
// step, flow and payload. All button payloads are produced through
// EncodeAction so the callback router can decode them back.
type Renderer struct{}

// NewRenderer creates a renderer over the fixed category set.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// MainMenu is the idle-state entry point offering both flows.
func (r *Renderer) MainMenu() Response {
	return Response{
		Text: textMenuTitle,
		Buttons: [][]Button{
			{{Label: textMenuLost, Data: EncodeAction(FlowLost, ActionStart)}},
			{{Label: textMenuFound, Data: EncodeAction(FlowFound, ActionStart)}},
		},
	}
}

// UseMenuFallback nudges an idle user who sent unrecognized text.
func (r *Renderer) UseMenuFallback() Response {
	return r.withMenuButton(Response{Text: textUseMenu})
}

// Cancelled confirms that the in-progress dialogue was dropped.
func (r *Renderer) Cancelled() Response {
	return Response{Text: textCancelled}
}

// NotImplemented covers steps that have no handler for the event kind.
func (r *Renderer) NotImplemented() Response {
	return Response{Text: textNotImplemented}
}

// FlowBanner is the one-line banner shown when a flow starts.
func (r *Renderer) FlowBanner(f Flow) Response {
	if f == FlowFound {
		return Response{Text: textBannerFound}
	}
	return Response{Text: textBannerLost}
}

// CategoryPrompt renders the category picker grid for a flow.
func (r *Renderer) CategoryPrompt(f Flow) Response {
	prompt := textCategoryPromptLost
	if f == FlowFound {
		prompt = textCategoryPromptFound
	}
	buttons := make([]Button, 0, len(Categories))
	for _, c := range Categories {
		buttons = append(buttons, Button{
			Label: c.Title,
			Data:  EncodeAction(f, ActionCategory, c.ID),
		})
	}
	rows := chunkButtons(buttons, 2)
	rows = append(rows, []Button{r.cancelButton(f)})
	return Response{Text: prompt, Buttons: rows}
}

// AttributesPrompt asks for the free-text item description.
func (r *Renderer) AttributesPrompt(f Flow) Response {
	if f == FlowFound {
		return Response{Text: textAttributesPromptFound}
	}
	return Response{Text: textAttributesPromptLost}
}

// AttributesTooShort re-prompts after a rejected description.
func (r *Renderer) AttributesTooShort() Response {
	return Response{Text: textAttributesTooShort}
}

// PhotoStub explains that photo upload is skipped.
func (r *Renderer) PhotoStub() Response {
	return Response{Text: textPhotoStub}
}

// LocationPrompt asks for a geo point or textual place description.
func (r *Renderer) LocationPrompt(f Flow) Response {
	if f == FlowFound {
		return Response{Text: textLocationPromptFound}
	}
	return Response{Text: textLocationPromptLost}
}

// LocationMissing re-prompts when neither text nor a point was provided.
func (r *Renderer) LocationMissing() Response {
	return Response{Text: textLocationMissing}
}

// SecretsPrompt asks for owner-only verification hints.
func (r *Renderer) SecretsPrompt() Response {
	return Response{Text: textSecretsPrompt}
}

// Summary renders the human-readable draft overview with the
// publish/edit/cancel controls.
func (r *Renderer) Summary(p *Payload) Response {
	var b strings.Builder
	b.WriteString(textSummaryTitle)
	b.WriteString("\n\n")

	kind := textSummaryTypeLost
	if p.Flow == FlowFound {
		kind = textSummaryTypeFound
	}
	fmt.Fprintf(&b, "%s · %s\n", kind, CategoryTitle(p.Listing.Category))
	fmt.Fprintf(&b, "%s: %s\n", textSummaryDetails, p.Listing.Details)

	place := p.Listing.LocationNote
	if p.Listing.Location != nil {
		if place != "" {
			place += ", " + textSummaryGeo
		} else {
			place = textSummaryGeo
		}
	}
	fmt.Fprintf(&b, "%s: %s\n", textSummaryLocation, place)

	secrets := textSummaryNoSecrets
	if len(p.Listing.Secrets) > 0 {
		secrets = strings.Join(p.Listing.Secrets, "; ")
	}
	fmt.Fprintf(&b, "%s: %s", textSummarySecrets, secrets)

	f := p.Flow
	return Response{
		Text: b.String(),
		Buttons: [][]Button{
			{{Label: textConfirmPublishBtn, Data: EncodeAction(f, ActionConfirm, ConfirmPublish)}},
			{{Label: textConfirmEditBtn, Data: EncodeAction(f, ActionConfirm, ConfirmEdit)}},
			{{Label: textConfirmCancelBtn, Data: EncodeAction(f, ActionCancel)}},
		},
	}
}

// PublishStub acknowledges a publish press while publishing is stubbed.
func (r *Renderer) PublishStub() Response {
	return Response{Text: textPublishStub}
}

func (r *Renderer) cancelButton(f Flow) Button {
	return Button{Label: textConfirmCancelBtn, Data: EncodeAction(f, ActionCancel)}
}

func (r *Renderer) withMenuButton(resp Response) Response {
	resp.Buttons = append(resp.Buttons, []Button{
		{Label: textMenuBtnBack, Data: EncodeAction(FlowLost, ActionMenu)},
	})
	return resp
}

// chunkButtons splits a flat list into rows with up to n buttons per row.
func chunkButtons(buttons []Button, n int) [][]Button {
	if n <= 1 {
		out := make([][]Button, 0, len(buttons))
		for _, b := range buttons {
			out = append(out, []Button{b})
		}
		return out
	}
	var rows [][]Button
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return rows
}
