package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore is a minimal in-memory Store for engine tests.
type memStore struct {
	mu      sync.Mutex
	recs    map[string]Record
	failGet error
	failPut error
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]Record)}
}

func (m *memStore) Get(_ context.Context, userID string) (Record, bool, error) {
	if m.failGet != nil {
		return Record{}, false, m.failGet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[userID]
	return rec, ok, nil
}

func (m *memStore) Put(_ context.Context, userID string, step Step, payload *Payload) error {
	if m.failPut != nil {
		return m.failPut
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[userID] = Record{Step: step, Payload: payload.Clone(), UpdatedAt: time.Now()}
	return nil
}

func (m *memStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, userID)
	return nil
}

func (m *memStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs), nil
}

// staticUsers maps platform ids to "u<id>".
type staticUsers struct{ err error }

func (s staticUsers) Resolve(_ context.Context, platformID int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("u%d", platformID), nil
}

// capture records everything the engine sent for assertions.
type capture struct {
	sent    []Response
	notices []string
	sendErr error
}

func (c *capture) Send(_ context.Context, r Response) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, r)
	return nil
}

func (c *capture) Notify(_ context.Context, text string) error {
	c.notices = append(c.notices, text)
	return nil
}

func (c *capture) texts() []string {
	out := make([]string, 0, len(c.sent))
	for _, r := range c.sent {
		out = append(out, r.Text)
	}
	return out
}

func newTestEngine(t *testing.T, store Store) *Engine {
	t.Helper()
	render := NewRenderer()
	eng, err := NewEngine(Options{
		Store:    store,
		Users:    staticUsers{},
		Registry: BuildRegistry(render),
		Renderer: render,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func mustStep(t *testing.T, store *memStore, userID string, want Step) Record {
	t.Helper()
	rec, ok := store.recs[userID]
	if !ok {
		t.Fatalf("no record for %s, want step %s", userID, want)
	}
	if rec.Step != want {
		t.Fatalf("step = %s, want %s", rec.Step, want)
	}
	return rec
}

func TestStartKeywordEntersCategoryStep(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	out := &capture{}

	err := eng.HandleMessage(context.Background(), Message{From: 1, Text: "Потерял телефон"}, out)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	rec := mustStep(t, store, "u1", StepFor(FlowLost, StageCategory))
	if rec.Payload.Flow != FlowLost || rec.Payload.Listing.Type != "LOST" {
		t.Fatalf("payload = %+v", rec.Payload)
	}

	texts := out.texts()
	if len(texts) != 2 || texts[0] != textBannerLost || texts[1] != textCategoryPromptLost {
		t.Fatalf("sent = %v", texts)
	}
	// category grid: 6 categories in pairs plus a cancel row
	prompt := out.sent[1]
	if len(prompt.Buttons) != 4 {
		t.Fatalf("button rows = %d", len(prompt.Buttons))
	}
	if prompt.Buttons[0][0].Data != "flow:lost:category:keys" {
		t.Fatalf("first button data = %q", prompt.Buttons[0][0].Data)
	}
}

func TestIdleMessageShowsMenuOrFallback(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)

	out := &capture{}
	if err := eng.HandleMessage(context.Background(), Message{From: 1}, out); err != nil {
		t.Fatalf("empty message: %v", err)
	}
	if len(out.sent) != 1 || out.sent[0].Text != textMenuTitle {
		t.Fatalf("sent = %v", out.texts())
	}

	out = &capture{}
	if err := eng.HandleMessage(context.Background(), Message{From: 1, Text: "привет"}, out); err != nil {
		t.Fatalf("unknown text: %v", err)
	}
	if len(out.sent) != 1 || out.sent[0].Text != textUseMenu {
		t.Fatalf("sent = %v", out.texts())
	}
	if _, ok := store.recs["u1"]; ok {
		t.Fatal("idle chatter must not create a record")
	}
}

func TestCancelMidFlowDeletesRecord(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)

	ctx := context.Background()
	if err := eng.StartFlow(ctx, "u1", FlowLost, &capture{}); err != nil {
		t.Fatalf("StartFlow: %v", err)
	}
	mustStep(t, store, "u1", StepFor(FlowLost, StageCategory))

	out := &capture{}
	if err := eng.HandleMessage(ctx, Message{From: 1, Text: "ОТМЕНА"}, out); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := store.recs["u1"]; ok {
		t.Fatal("record must be deleted on cancel")
	}
	texts := out.texts()
	if len(texts) != 2 || texts[0] != textCancelled || texts[1] != textMenuTitle {
		t.Fatalf("sent = %v", texts)
	}
}

func TestCategoryCallbackAdvances(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	if err := eng.StartFlow(ctx, "u2", FlowFound, &capture{}); err != nil {
		t.Fatalf("StartFlow: %v", err)
	}

	out := &capture{}
	err := eng.HandleCallback(ctx, Callback{From: 2, Payload: "flow:found:category:pet"}, out)
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}

	rec := mustStep(t, store, "u2", StepFor(FlowFound, StageAttributes))
	if rec.Payload.Listing.Category != "pet" {
		t.Fatalf("category = %q", rec.Payload.Listing.Category)
	}
	if len(out.sent) != 1 || out.sent[0].Text != textAttributesPromptFound {
		t.Fatalf("sent = %v", out.texts())
	}
}

func TestUnknownCategoryValueRejected(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	_ = eng.StartFlow(ctx, "u2", FlowFound, &capture{})

	out := &capture{}
	err := eng.HandleCallback(ctx, Callback{From: 2, Payload: "flow:found:category:spaceship"}, out)
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	mustStep(t, store, "u2", StepFor(FlowFound, StageCategory))
	if len(out.notices) != 1 || out.notices[0] != textUnknownCategory {
		t.Fatalf("notices = %v", out.notices)
	}
}

func TestAttributesTooShortReprompts(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	_ = eng.StartFlow(ctx, "u1", FlowLost, &capture{})
	_ = eng.HandleCallback(ctx, Callback{From: 1, Payload: "flow:lost:category:keys"}, &capture{})

	out := &capture{}
	if err := eng.HandleMessage(ctx, Message{From: 1, Text: "аб"}, out); err != nil {
		t.Fatalf("short details: %v", err)
	}
	mustStep(t, store, "u1", StepFor(FlowLost, StageAttributes))
	texts := out.texts()
	if len(texts) != 2 || texts[0] != textAttributesTooShort || texts[1] != textAttributesPromptLost {
		t.Fatalf("sent = %v", texts)
	}
}

func TestPhotoStageAutoAdvancesToLocation(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	_ = eng.StartFlow(ctx, "u1", FlowLost, &capture{})
	_ = eng.HandleCallback(ctx, Callback{From: 1, Payload: "flow:lost:category:keys"}, &capture{})

	out := &capture{}
	err := eng.HandleMessage(ctx, Message{From: 1, Text: "связка с красным брелком"}, out)
	if err != nil {
		t.Fatalf("details: %v", err)
	}

	rec := mustStep(t, store, "u1", StepFor(FlowLost, StageLocation))
	if rec.Payload.Listing.Details != "связка с красным брелком" {
		t.Fatalf("details = %q", rec.Payload.Listing.Details)
	}
	texts := out.texts()
	if len(texts) != 2 || texts[0] != textPhotoStub || texts[1] != textLocationPromptLost {
		t.Fatalf("sent = %v", texts)
	}
}

func TestLocationAcceptsPointOrText(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	setupToLocation := func(userID int64) {
		_ = eng.StartFlow(ctx, fmt.Sprintf("u%d", userID), FlowLost, &capture{})
		_ = eng.HandleCallback(ctx, Callback{From: userID, Payload: "flow:lost:category:keys"}, &capture{})
		_ = eng.HandleMessage(ctx, Message{From: userID, Text: "подробное описание"}, &capture{})
	}

	setupToLocation(1)
	out := &capture{}
	if err := eng.HandleMessage(ctx, Message{From: 1}, out); err != nil {
		t.Fatalf("empty location: %v", err)
	}
	mustStep(t, store, "u1", StepFor(FlowLost, StageLocation))
	if out.sent[0].Text != textLocationMissing {
		t.Fatalf("sent = %v", out.texts())
	}

	loc := &Location{Latitude: 55.75, Longitude: 37.61}
	if err := eng.HandleMessage(ctx, Message{From: 1, Location: loc}, &capture{}); err != nil {
		t.Fatalf("geo location: %v", err)
	}
	rec := mustStep(t, store, "u1", StepFor(FlowLost, StageSecrets))
	if rec.Payload.Listing.Location == nil || rec.Payload.Listing.Location.Latitude != 55.75 {
		t.Fatalf("location = %+v", rec.Payload.Listing.Location)
	}

	setupToLocation(2)
	if err := eng.HandleMessage(ctx, Message{From: 2, Text: "метро Арбатская"}, &capture{}); err != nil {
		t.Fatalf("text location: %v", err)
	}
	rec = mustStep(t, store, "u2", StepFor(FlowLost, StageSecrets))
	if rec.Payload.Listing.LocationNote != "метро Арбатская" || rec.Payload.Listing.Location != nil {
		t.Fatalf("listing = %+v", rec.Payload.Listing)
	}
}

func TestSecretsParsingAndSkip(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	toSecrets := func(userID int64) {
		_ = eng.StartFlow(ctx, fmt.Sprintf("u%d", userID), FlowLost, &capture{})
		_ = eng.HandleCallback(ctx, Callback{From: userID, Payload: "flow:lost:category:wallet"}, &capture{})
		_ = eng.HandleMessage(ctx, Message{From: userID, Text: "коричневый кожаный"}, &capture{})
		_ = eng.HandleMessage(ctx, Message{From: userID, Text: "у метро"}, &capture{})
	}

	toSecrets(1)
	if err := eng.HandleMessage(ctx, Message{From: 1, Text: "царапина, фото внутри\nбрелок"}, &capture{}); err != nil {
		t.Fatalf("secrets: %v", err)
	}
	rec := mustStep(t, store, "u1", StepFor(FlowLost, StageConfirm))
	want := []string{"царапина", "фото внутри", "брелок"}
	if strings.Join(rec.Payload.Listing.Secrets, "|") != strings.Join(want, "|") {
		t.Fatalf("secrets = %v", rec.Payload.Listing.Secrets)
	}

	toSecrets(2)
	if err := eng.HandleMessage(ctx, Message{From: 2, Text: "/skip"}, &capture{}); err != nil {
		t.Fatalf("skip: %v", err)
	}
	rec = mustStep(t, store, "u2", StepFor(FlowLost, StageConfirm))
	if len(rec.Payload.Listing.Secrets) != 0 {
		t.Fatalf("secrets = %v", rec.Payload.Listing.Secrets)
	}

	toSecrets(3)
	if err := eng.HandleMessage(ctx, Message{From: 3, Text: "1,2,3,4,5"}, &capture{}); err != nil {
		t.Fatalf("overflow: %v", err)
	}
	rec = mustStep(t, store, "u3", StepFor(FlowLost, StageConfirm))
	if len(rec.Payload.Listing.Secrets) != MaxSecrets {
		t.Fatalf("secrets = %v", rec.Payload.Listing.Secrets)
	}
}

func completeDraft(t *testing.T, eng *Engine, userID int64) {
	t.Helper()
	ctx := context.Background()
	_ = eng.StartFlow(ctx, fmt.Sprintf("u%d", userID), FlowLost, &capture{})
	_ = eng.HandleCallback(ctx, Callback{From: userID, Payload: "flow:lost:category:keys"}, &capture{})
	_ = eng.HandleMessage(ctx, Message{From: userID, Text: "связка из трёх ключей"}, &capture{})
	_ = eng.HandleMessage(ctx, Message{From: userID, Text: "во дворе"}, &capture{})
	_ = eng.HandleMessage(ctx, Message{From: userID, Text: "/skip"}, &capture{})
}

func TestConfirmPublishFinishesDialogue(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	completeDraft(t, eng, 1)
	mustStep(t, store, "u1", StepFor(FlowLost, StageConfirm))

	out := &capture{}
	err := eng.HandleCallback(context.Background(), Callback{From: 1, Payload: "flow:lost:confirm:publish"}, out)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, ok := store.recs["u1"]; ok {
		t.Fatal("record must be deleted after publish")
	}
	texts := out.texts()
	if len(texts) != 2 || texts[0] != textPublishStub || texts[1] != textMenuTitle {
		t.Fatalf("sent = %v", texts)
	}
}

func TestConfirmEditReturnsToAttributes(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	completeDraft(t, eng, 1)

	out := &capture{}
	err := eng.HandleCallback(context.Background(), Callback{From: 1, Payload: "flow:lost:confirm:edit"}, out)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	rec := mustStep(t, store, "u1", StepFor(FlowLost, StageAttributes))
	if rec.Payload.Listing.Category != "keys" {
		t.Fatalf("category lost on edit: %q", rec.Payload.Listing.Category)
	}
	if len(out.sent) != 1 || out.sent[0].Text != textAttributesPromptLost {
		t.Fatalf("sent = %v", out.texts())
	}
}

func TestStaleFlowCallbackIsIgnored(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	_ = eng.StartFlow(ctx, "u1", FlowLost, &capture{})

	out := &capture{}
	err := eng.HandleCallback(ctx, Callback{From: 1, Payload: "flow:found:category:pet"}, out)
	if err != nil {
		t.Fatalf("stale callback: %v", err)
	}
	rec := mustStep(t, store, "u1", StepFor(FlowLost, StageCategory))
	if rec.Payload.Listing.Category != "" {
		t.Fatalf("category = %q", rec.Payload.Listing.Category)
	}
	if len(out.notices) != 1 || out.notices[0] != textWrongFlow {
		t.Fatalf("notices = %v", out.notices)
	}
}

func TestStartCallbackOverwritesInProgressFlow(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	_ = eng.StartFlow(ctx, "u1", FlowLost, &capture{})
	_ = eng.HandleCallback(ctx, Callback{From: 1, Payload: "flow:lost:category:keys"}, &capture{})

	err := eng.HandleCallback(ctx, Callback{From: 1, Payload: "flow:found:start"}, &capture{})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	rec := mustStep(t, store, "u1", StepFor(FlowFound, StageCategory))
	if rec.Payload.Listing.Category != "" || rec.Payload.Flow != FlowFound {
		t.Fatalf("payload = %+v", rec.Payload)
	}
}

func TestIdleCallbackShowsMenu(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)

	out := &capture{}
	err := eng.HandleCallback(context.Background(), Callback{From: 1, Payload: "flow:lost:category:keys"}, out)
	if err != nil {
		t.Fatalf("idle callback: %v", err)
	}
	if len(out.notices) != 1 || out.notices[0] != textChooseFlow {
		t.Fatalf("notices = %v", out.notices)
	}
	if len(out.sent) != 1 || out.sent[0].Text != textMenuTitle {
		t.Fatalf("sent = %v", out.texts())
	}
}

func TestMalformedCallbackNotifies(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)

	out := &capture{}
	err := eng.HandleCallback(context.Background(), Callback{From: 1, Payload: "gibberish"}, out)
	if err != nil {
		t.Fatalf("malformed callback: %v", err)
	}
	if len(out.notices) != 1 || out.notices[0] != textUnknownAction {
		t.Fatalf("notices = %v", out.notices)
	}
}

func TestStoreFailureReportsAndReturnsError(t *testing.T) {
	store := newMemStore()
	store.failGet = errors.New("boom")
	eng := newTestEngine(t, store)

	out := &capture{}
	err := eng.HandleMessage(context.Background(), Message{From: 1, Text: "привет"}, out)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(out.sent) != 1 || out.sent[0].Text != textEventError {
		t.Fatalf("sent = %v", out.texts())
	}
}

func TestUserResolutionFailure(t *testing.T) {
	store := newMemStore()
	render := NewRenderer()
	eng, err := NewEngine(Options{
		Store:    store,
		Users:    staticUsers{err: errors.New("db down")},
		Registry: BuildRegistry(render),
		Renderer: render,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	out := &capture{}
	err = eng.HandleMessage(context.Background(), Message{From: 1, Text: "потерял"}, out)
	if !errors.Is(err, ErrUserResolution) {
		t.Fatalf("err = %v", err)
	}
	if len(out.sent) != 1 || out.sent[0].Text != textEventError {
		t.Fatalf("sent = %v", out.texts())
	}
}

func TestSendFailureDoesNotFailEvent(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)

	out := &capture{sendErr: errors.New("telegram down")}
	err := eng.HandleMessage(context.Background(), Message{From: 1, Text: "потерял"}, out)
	if err != nil {
		t.Fatalf("delivery failure must be swallowed, got %v", err)
	}
	mustStep(t, store, "u1", StepFor(FlowLost, StageCategory))
}

func TestAttributesLengthCountsRunes(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	_ = eng.StartFlow(ctx, "u1", FlowLost, &capture{})
	_ = eng.HandleCallback(ctx, Callback{From: 1, Payload: "flow:lost:category:keys"}, &capture{})

	// four emoji are four runes, below the limit regardless of byte
	// or UTF-16 length
	if err := eng.HandleMessage(ctx, Message{From: 1, Text: "🔑🔑🔑🔑"}, &capture{}); err != nil {
		t.Fatalf("emoji details: %v", err)
	}
	mustStep(t, store, "u1", StepFor(FlowLost, StageAttributes))

	if err := eng.HandleMessage(ctx, Message{From: 1, Text: "🔑ключ"}, &capture{}); err != nil {
		t.Fatalf("five-rune details: %v", err)
	}
	mustStep(t, store, "u1", StepFor(FlowLost, StageLocation))
}

// TestConcurrentEventsForOneUserSerialize drives many simultaneous
// events through a read-modify-write step handler. Without per-user
// serialization between load and persist some increments get lost.
func TestConcurrentEventsForOneUserSerialize(t *testing.T) {
	store := newMemStore()
	render := NewRenderer()
	step := StepFor(FlowLost, StageAttributes)

	reg := NewRegistry()
	reg.Register(step, Handler{
		OnMessage: func(tr *Turn, _ MessageInput) error {
			n, _ := strconv.Atoi(tr.Payload.Listing.Details)
			time.Sleep(time.Millisecond) // widen the load-to-persist window
			tr.Payload.Listing.Details = strconv.Itoa(n + 1)
			return tr.Transition(step, TransitionOpts{SkipEnter: true})
		},
	})

	eng, err := NewEngine(Options{
		Store:    store,
		Users:    staticUsers{},
		Registry: reg,
		Renderer: render,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	seed := NewPayload(FlowLost, time.Now())
	seed.Listing.Details = "0"
	if err := store.Put(context.Background(), "u1", step, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const events = 16
	var wg sync.WaitGroup
	wg.Add(events)
	for i := 0; i < events; i++ {
		go func() {
			defer wg.Done()
			_ = eng.HandleMessage(context.Background(), Message{From: 1, Text: "тик"}, &capture{})
		}()
	}
	wg.Wait()

	rec := mustStep(t, store, "u1", step)
	if rec.Payload.Listing.Details != strconv.Itoa(events) {
		t.Fatalf("details = %q, want %q; concurrent transitions interleaved",
			rec.Payload.Listing.Details, strconv.Itoa(events))
	}
}

func TestResetDropsDialogue(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	ctx := context.Background()

	_ = eng.StartFlow(ctx, "u1", FlowLost, &capture{})

	out := &capture{}
	if err := eng.Reset(ctx, 1, out); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, ok := store.recs["u1"]; ok {
		t.Fatal("record must be deleted on reset")
	}
	if len(out.sent) != 1 || out.sent[0].Text != textMenuTitle {
		t.Fatalf("sent = %v", out.texts())
	}
}
