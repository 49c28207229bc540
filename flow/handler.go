package flow

import "sort"

// MessageInput is the free-text/location event delivered to OnMessage.
type MessageInput struct {
	Text       string
	Normalized string
	Location   *Location
}

// Handler bundles the optional operations of one dialogue step.
// Enter renders the step's prompt, OnMessage consumes free text or a
// location, OnCallback consumes a button press. A nil operation means
// the step does not support that event kind.
type Handler struct {
	Enter      func(t *Turn) error
	OnMessage  func(t *Turn, in MessageInput) error
	OnCallback func(t *Turn, act Action) error
}

// Registry maps steps to their handlers. It is built once at startup
// and read-only afterwards.
type Registry struct {
	handlers map[Step]Handler
}

// NewRegistry creates an empty step registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Step]Handler)}
}

// Register binds a handler to a step. Duplicate registrations overwrite.
func (r *Registry) Register(step Step, h Handler) {
	r.handlers[step] = h
}

// Lookup returns the handler registered for a step.
func (r *Registry) Lookup(step Step) (Handler, bool) {
	h, ok := r.handlers[step]
	return h, ok
}

// Steps returns sorted registered steps (for diagnostics).
func (r *Registry) Steps() []Step {
	out := make([]Step, 0, len(r.handlers))
	for s := range r.handlers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
