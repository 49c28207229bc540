package flow

import "strings"

// ActionName identifies what a pressed inline button asks for.
type ActionName string

const (
	ActionStart    ActionName = "start"
	ActionCategory ActionName = "category"
	ActionCancel   ActionName = "cancel"
	ActionMenu     ActionName = "menu"
	ActionConfirm  ActionName = "confirm"
)

// actionTag prefixes every callback payload produced by this bot.
const actionTag = "flow"

// globalActions do not require a recognizable flow segment: they are
// meaningful regardless of which dialogue the button originated from.
var globalActions = map[ActionName]struct{}{
	ActionStart:  {},
	ActionMenu:   {},
	ActionCancel: {},
}

var knownActions = map[ActionName]struct{}{
	ActionStart:    {},
	ActionCategory: {},
	ActionCancel:   {},
	ActionMenu:     {},
	ActionConfirm:  {},
}

// Action is the typed form of a wire callback payload.
type Action struct {
	Flow  Flow
	Name  ActionName
	Value string
}

// EncodeAction builds the wire form "flow:<flow>:<action>[:<value>]".
func EncodeAction(f Flow, name ActionName, value ...string) string {
	parts := []string{actionTag, string(f), string(name)}
	if len(value) > 0 && value[0] != "" {
		parts = append(parts, value[0])
	}
	return strings.Join(parts, ":")
}

// DecodeAction parses a wire callback payload into a typed action.
// Malformed payloads yield ok=false: fewer than three segments, a missing
// "flow" tag, an unknown action name, or an unrecognized flow for any
// action that is not flow-agnostic.
func DecodeAction(raw string) (Action, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || parts[0] != actionTag {
		return Action{}, false
	}
	act := Action{
		Flow: Flow(parts[1]),
		Name: ActionName(parts[2]),
	}
	if len(parts) > 3 {
		act.Value = strings.Join(parts[3:], ":")
	}
	if _, ok := knownActions[act.Name]; !ok {
		return Action{}, false
	}
	if _, global := globalActions[act.Name]; !global && !act.Flow.Valid() {
		return Action{}, false
	}
	return act, true
}

// ConfirmPublish and ConfirmEdit are the values carried by confirm actions.
const (
	ConfirmPublish = "publish"
	ConfirmEdit    = "edit"
)

var cancelKeywords = []string{"/cancel", "отмена"}

var startKeywords = map[Flow][]string{
	FlowLost:  {"/lost", "потерял", "потеряла", "пропажа"},
	FlowFound: {"/found", "нашел", "нашёл", "нашла", "находка"},
}

// NormalizeText lowercases and trims free text for keyword matching.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// IsCancel reports whether normalized text is a global cancel keyword.
func IsCancel(normalized string) bool {
	for _, kw := range cancelKeywords {
		if normalized == kw {
			return true
		}
	}
	return false
}

// MatchStart resolves normalized text to the flow it starts, if any.
// A keyword matches as an exact token or as a token-plus-space prefix,
// so "потерял телефон" starts the lost flow.
func MatchStart(normalized string) (Flow, bool) {
	for _, f := range Flows {
		for _, kw := range startKeywords[f] {
			if normalized == kw || strings.HasPrefix(normalized, kw+" ") {
				return f, true
			}
		}
	}
	return "", false
}
