package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SUMERGeg/lostfound/core/logger"
)

// ErrUserResolution marks events whose sender could not be mapped to an
// application user. Fatal for the event only, never for the process.
var ErrUserResolution = errors.New("flow: user resolution failed")

// Message is an inbound free-text (or location) event.
type Message struct {
	From     int64
	Text     string
	Location *Location
}

// Callback is an inbound button-press event carrying the wire payload.
type Callback struct {
	From    int64
	Payload string
}

// TransitionOpts tweaks how a transition renders the target step.
type TransitionOpts struct {
	// WithBanner renders the one-line flow-start banner before the
	// target step's own prompt.
	WithBanner bool
	// SkipEnter suppresses the target step's Enter render entirely.
	SkipEnter bool
}

// Engine routes inbound events to step handlers and owns the state
// record lifecycle: it alone creates, transitions and deletes records.
type Engine struct {
	store  Store
	users  UserResolver
	reg    *Registry
	render *Renderer
	clock  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options wires the engine's collaborators.
type Options struct {
	Store    Store
	Users    UserResolver
	Registry *Registry
	Renderer *Renderer
	// Clock overrides time.Now, used by tests.
	Clock func() time.Time
}

// NewEngine builds an engine over the provided collaborators.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("flow: nil store")
	}
	if opts.Users == nil {
		return nil, fmt.Errorf("flow: nil user resolver")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("flow: nil step registry")
	}
	render := opts.Renderer
	if render == nil {
		render = NewRenderer()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		store:  opts.Store,
		users:  opts.Users,
		reg:    opts.Registry,
		render: render,
		clock:  clock,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Renderer exposes the renderer for transport-level menus (/start, /help).
func (e *Engine) Renderer() *Renderer {
	return e.render
}

// Store exposes the state store for diagnostics (active dialogue count).
func (e *Engine) Store() Store {
	return e.store
}

// lockUser serializes event processing per user. Two events for the same
// user never interleave between load and persist, which closes the
// last-write-wins race of concurrent transitions.
func (e *Engine) lockUser(userID string) func() {
	e.mu.Lock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// HandleMessage processes one free-text or location event to completion.
func (e *Engine) HandleMessage(ctx context.Context, msg Message, out Responder) error {
	userID, err := e.resolve(ctx, msg.From, out)
	if err != nil {
		return err
	}
	defer e.lockUser(userID)()

	rec, inFlow, err := e.loadRecord(ctx, userID, out)
	if err != nil {
		return err
	}

	norm := NormalizeText(msg.Text)

	if IsCancel(norm) {
		return e.cancelDialog(ctx, userID, out, false)
	}

	if !inFlow {
		if norm == "" && msg.Location == nil {
			e.deliver(ctx, out, e.render.MainMenu())
			return nil
		}
		if f, ok := MatchStart(norm); ok {
			return e.StartFlow(ctx, userID, f, out)
		}
		e.deliver(ctx, out, e.render.UseMenuFallback())
		return nil
	}

	h, ok := e.reg.Lookup(rec.Step)
	if !ok || h.OnMessage == nil {
		e.deliver(ctx, out, e.render.NotImplemented())
		return nil
	}

	t := e.newTurn(ctx, userID, rec, out)
	return h.OnMessage(t, MessageInput{
		Text:       msg.Text,
		Normalized: norm,
		Location:   msg.Location,
	})
}

// HandleCallback processes one button-press event to completion.
func (e *Engine) HandleCallback(ctx context.Context, cb Callback, out Responder) error {
	act, ok := DecodeAction(cb.Payload)
	if !ok {
		logger.Warn(ctx, "fsm", "callback.malformed",
			slog.String("payload", logger.SanitizeLimit(cb.Payload, 128)),
		)
		e.notify(ctx, out, textUnknownAction)
		return nil
	}

	userID, err := e.resolve(ctx, cb.From, out)
	if err != nil {
		return err
	}
	defer e.lockUser(userID)()

	switch act.Name {
	case ActionStart:
		if !act.Flow.Valid() {
			e.notify(ctx, out, textUnknownAction)
			return nil
		}
		// Starting a flow from a button overwrites any in-progress
		// record: unsaved progress in another flow is discarded.
		return e.StartFlow(ctx, userID, act.Flow, out)
	case ActionMenu:
		return e.cancelDialog(ctx, userID, out, true)
	case ActionCancel:
		e.notify(ctx, out, textCancelled)
		return e.cancelDialog(ctx, userID, out, true)
	}

	rec, inFlow, err := e.loadRecord(ctx, userID, out)
	if err != nil {
		return err
	}
	if !inFlow {
		e.notify(ctx, out, textChooseFlow)
		e.deliver(ctx, out, e.render.MainMenu())
		return nil
	}

	runtimeFlow, _ := rec.Step.Flow()
	if act.Flow != runtimeFlow {
		// Stale button from an earlier, abandoned dialogue.
		logger.Debug(ctx, "fsm", "callback.stale",
			slog.String("step", string(rec.Step)),
			slog.String("cb_flow", string(act.Flow)),
		)
		e.notify(ctx, out, textWrongFlow)
		return nil
	}

	h, ok := e.reg.Lookup(rec.Step)
	if !ok || h.OnCallback == nil {
		e.notify(ctx, out, textNoHandler)
		return nil
	}

	t := e.newTurn(ctx, userID, rec, out)
	return h.OnCallback(t, act)
}

// Reset drops any in-progress dialogue and shows the main menu. Used by
// the transport's /start entry point.
func (e *Engine) Reset(ctx context.Context, platformID int64, out Responder) error {
	userID, err := e.resolve(ctx, platformID, out)
	if err != nil {
		return err
	}
	defer e.lockUser(userID)()
	return e.cancelDialog(ctx, userID, out, true)
}

// StartFlow creates a fresh record and enters the first stage.
func (e *Engine) StartFlow(ctx context.Context, userID string, f Flow, out Responder) error {
	t := &Turn{
		ctx:     ctx,
		UserID:  userID,
		Flow:    f,
		Step:    StepIdle,
		Payload: NewPayload(f, e.clock()),
		engine:  e,
		out:     out,
	}
	logger.Info(ctx, "fsm", "flow.start",
		slog.String("flow", string(f)),
		slog.String("app_user", userID),
	)
	return e.transition(t, StepFor(f, StageCategory), TransitionOpts{WithBanner: true})
}

func (e *Engine) resolve(ctx context.Context, platformID int64, out Responder) (string, error) {
	userID, err := e.users.Resolve(ctx, platformID)
	if err != nil {
		logger.Error(ctx, "fsm", "user.resolve",
			slog.Int64("platform_id", platformID),
			slog.String("err", err.Error()),
		)
		e.deliver(ctx, out, Response{Text: textEventError})
		return "", fmt.Errorf("%w: %v", ErrUserResolution, err)
	}
	return userID, nil
}

// loadRecord reads the user's state. A store error is reported to the
// user and returned; an unusable record surfaces as idle.
func (e *Engine) loadRecord(ctx context.Context, userID string, out Responder) (Record, bool, error) {
	rec, ok, err := e.store.Get(ctx, userID)
	if err != nil {
		logger.Error(ctx, "fsm", "state.load",
			slog.String("app_user", userID),
			slog.String("err", err.Error()),
		)
		e.deliver(ctx, out, Response{Text: textEventError})
		return Record{}, false, fmt.Errorf("flow: load state: %w", err)
	}
	if !ok || rec.Step == StepIdle || !rec.Step.Known() || rec.Payload == nil {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (e *Engine) cancelDialog(ctx context.Context, userID string, out Responder, silent bool) error {
	if err := e.store.Delete(ctx, userID); err != nil {
		logger.Error(ctx, "fsm", "state.delete",
			slog.String("app_user", userID),
			slog.String("err", err.Error()),
		)
	}
	if !silent {
		e.deliver(ctx, out, e.render.Cancelled())
	}
	e.deliver(ctx, out, e.render.MainMenu())
	return nil
}

// transition persists the new (step, payload) pair, then renders the
// target step unless suppressed.
func (e *Engine) transition(t *Turn, next Step, opts TransitionOpts) error {
	if err := e.store.Put(t.ctx, t.UserID, next, t.Payload); err != nil {
		logger.Error(t.ctx, "fsm", "state.put",
			slog.String("app_user", t.UserID),
			slog.String("step", string(next)),
			slog.String("err", err.Error()),
		)
		e.deliver(t.ctx, t.out, Response{Text: textEventError})
		return fmt.Errorf("flow: persist state: %w", err)
	}

	logger.Debug(t.ctx, "fsm", "transition",
		slog.String("app_user", t.UserID),
		slog.String("from", string(t.Step)),
		slog.String("to", string(next)),
	)
	t.Step = next

	if opts.WithBanner {
		e.deliver(t.ctx, t.out, e.render.FlowBanner(t.Flow))
	}
	if opts.SkipEnter {
		return nil
	}
	h, ok := e.reg.Lookup(next)
	if !ok || h.Enter == nil {
		return nil
	}
	return h.Enter(t)
}

// finish deletes the record; the dialogue reached a terminal outcome.
func (e *Engine) finish(t *Turn) {
	if err := e.store.Delete(t.ctx, t.UserID); err != nil {
		logger.Error(t.ctx, "fsm", "state.delete",
			slog.String("app_user", t.UserID),
			slog.String("err", err.Error()),
		)
	}
	t.Step = StepIdle
}

// deliver sends a response, logging and swallowing transport failures so
// a downstream outage never crashes event handling.
func (e *Engine) deliver(ctx context.Context, out Responder, r Response) {
	if out == nil {
		return
	}
	if err := out.Send(ctx, r); err != nil {
		logger.Warn(ctx, "fsm", "send.failed",
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) notify(ctx context.Context, out Responder, text string) {
	if out == nil {
		return
	}
	if err := out.Notify(ctx, text); err != nil {
		logger.Warn(ctx, "fsm", "notify.failed",
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) newTurn(ctx context.Context, userID string, rec Record, out Responder) *Turn {
	f, _ := rec.Step.Flow()
	return &Turn{
		ctx:     ctx,
		UserID:  userID,
		Flow:    f,
		Step:    rec.Step,
		Payload: rec.Payload.Clone(),
		engine:  e,
		out:     out,
	}
}

// Turn is the per-event runtime handed to step handlers: the resolved
// user, the current position, and a payload clone that is safe to
// mutate. Handlers never touch the store directly; they go through
// Transition and Finish.
type Turn struct {
	ctx     context.Context
	UserID  string
	Flow    Flow
	Step    Step
	Payload *Payload
	engine  *Engine
	out     Responder
}

// Context returns the event-scoped context.
func (t *Turn) Context() context.Context {
	return t.ctx
}

// Send posts a full response. Transport failures are logged and
// swallowed; Send never fails the event.
func (t *Turn) Send(r Response) error {
	t.engine.deliver(t.ctx, t.out, r)
	return nil
}

// Notify shows a short notice (callback toast where supported).
func (t *Turn) Notify(text string) error {
	t.engine.notify(t.ctx, t.out, text)
	return nil
}

// Transition persists the current payload under the next step and
// renders that step.
func (t *Turn) Transition(next Step, opts ...TransitionOpts) error {
	var o TransitionOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	return t.engine.transition(t, next, o)
}

// Finish deletes the record, returning the user to idle.
func (t *Turn) Finish() {
	t.engine.finish(t)
}
