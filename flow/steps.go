package flow

import (
	"strings"
	"unicode/utf8"
)

// minDetailsLen is the minimum trimmed length of the item description,
// counted in runes.
const minDetailsLen = 5

// BuildRegistry wires every (flow × stage) step to its handler. The
// handlers for a stage are structurally identical across flows and differ
// only in copy and the draft's listing type, so each stage is a factory
// parameterized by flow.
func BuildRegistry(r *Renderer) *Registry {
	reg := NewRegistry()
	for _, f := range Flows {
		reg.Register(StepFor(f, StageCategory), categoryHandler(f, r))
		reg.Register(StepFor(f, StageAttributes), attributesHandler(f, r))
		reg.Register(StepFor(f, StagePhoto), photoHandler(f, r))
		reg.Register(StepFor(f, StageLocation), locationHandler(f, r))
		reg.Register(StepFor(f, StageSecrets), secretsHandler(f, r))
		reg.Register(StepFor(f, StageConfirm), confirmHandler(f, r))
	}
	return reg
}

func categoryHandler(f Flow, r *Renderer) Handler {
	return Handler{
		Enter: func(t *Turn) error {
			return t.Send(r.CategoryPrompt(f))
		},
		OnCallback: func(t *Turn, act Action) error {
			if act.Name != ActionCategory {
				return t.Notify(textNoHandler)
			}
			if !KnownCategory(act.Value) {
				return t.Notify(textUnknownCategory)
			}
			t.Payload.Listing.Category = act.Value
			return t.Transition(StepFor(f, StageAttributes))
		},
	}
}

func attributesHandler(f Flow, r *Renderer) Handler {
	return Handler{
		Enter: func(t *Turn) error {
			return t.Send(r.AttributesPrompt(f))
		},
		OnMessage: func(t *Turn, in MessageInput) error {
			details := strings.TrimSpace(in.Text)
			if utf8.RuneCountInString(details) < minDetailsLen {
				if err := t.Send(r.AttributesTooShort()); err != nil {
					return err
				}
				return t.Send(r.AttributesPrompt(f))
			}
			t.Payload.Listing.Details = details
			return t.Transition(StepFor(f, StagePhoto))
		},
	}
}

// photoHandler is a non-interactive pass-through: photo upload is not
// supported yet, so entering the stage immediately moves the dialogue on.
func photoHandler(f Flow, r *Renderer) Handler {
	return Handler{
		Enter: func(t *Turn) error {
			if err := t.Send(r.PhotoStub()); err != nil {
				return err
			}
			return t.Transition(StepFor(f, StageLocation))
		},
		OnMessage: func(t *Turn, in MessageInput) error {
			return nil
		},
	}
}

func locationHandler(f Flow, r *Renderer) Handler {
	return Handler{
		Enter: func(t *Turn) error {
			return t.Send(r.LocationPrompt(f))
		},
		OnMessage: func(t *Turn, in MessageInput) error {
			note := strings.TrimSpace(in.Text)
			if note == "" && in.Location == nil {
				if err := t.Send(r.LocationMissing()); err != nil {
					return err
				}
				return t.Send(r.LocationPrompt(f))
			}
			t.Payload.Listing.Location = in.Location.Clone()
			t.Payload.Listing.LocationNote = note
			return t.Transition(StepFor(f, StageSecrets))
		},
	}
}

func secretsHandler(f Flow, r *Renderer) Handler {
	return Handler{
		Enter: func(t *Turn) error {
			return t.Send(r.SecretsPrompt())
		},
		OnMessage: func(t *Turn, in MessageInput) error {
			if in.Normalized == "/skip" {
				t.Payload.Listing.Secrets = []string{}
			} else {
				t.Payload.Listing.Secrets = SplitSecrets(in.Text)
			}
			return t.Transition(StepFor(f, StageConfirm))
		},
	}
}

func confirmHandler(f Flow, r *Renderer) Handler {
	return Handler{
		Enter: func(t *Turn) error {
			return t.Send(r.Summary(t.Payload))
		},
		OnCallback: func(t *Turn, act Action) error {
			if act.Name != ActionConfirm {
				return t.Notify(textNoHandler)
			}
			switch act.Value {
			case ConfirmPublish:
				t.Finish()
				if err := t.Send(r.PublishStub()); err != nil {
					return err
				}
				return t.Send(r.MainMenu())
			case ConfirmEdit:
				// Back to the description step; everything else on the
				// draft stays as collected.
				return t.Transition(StepFor(f, StageAttributes))
			default:
				return t.Notify(textNoHandler)
			}
		},
	}
}
