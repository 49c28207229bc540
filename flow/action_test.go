package flow

import "testing"

func TestEncodeDecodeAction(t *testing.T) {
	raw := EncodeAction(FlowLost, ActionCategory, "keys")
	if raw != "flow:lost:category:keys" {
		t.Fatalf("encoded = %q", raw)
	}
	act, ok := DecodeAction(raw)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if act.Flow != FlowLost || act.Name != ActionCategory || act.Value != "keys" {
		t.Fatalf("decoded = %+v", act)
	}
}

func TestDecodeActionValueKeepsColons(t *testing.T) {
	act, ok := DecodeAction("flow:found:category:a:b:c")
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if act.Value != "a:b:c" {
		t.Fatalf("value = %q", act.Value)
	}
}

func TestDecodeActionMalformed(t *testing.T) {
	cases := []string{
		"",
		"flow",
		"flow:lost",
		"other:lost:category",
		"flow:lost:explode",
		"flow:unknown:category:keys",
		"flow:lost:category:keys:",
	}
	for _, raw := range cases {
		if raw == "flow:lost:category:keys:" {
			// trailing colon is an empty value suffix, still decodable
			if _, ok := DecodeAction(raw); !ok {
				t.Fatalf("DecodeAction(%q) should succeed", raw)
			}
			continue
		}
		if _, ok := DecodeAction(raw); ok {
			t.Fatalf("DecodeAction(%q) should fail", raw)
		}
	}
}

func TestDecodeActionGlobalIgnoresFlow(t *testing.T) {
	for _, raw := range []string{"flow:whatever:menu", "flow:x:cancel", "flow:??:start"} {
		if _, ok := DecodeAction(raw); !ok {
			t.Fatalf("DecodeAction(%q) should succeed for a flow-agnostic action", raw)
		}
	}
	// start still needs a valid flow to actually begin a dialogue, but
	// the decoder itself accepts it; the engine validates later.
	act, _ := DecodeAction("flow:??:start")
	if act.Flow.Valid() {
		t.Fatalf("flow %q unexpectedly valid", act.Flow)
	}
}

func TestMatchStart(t *testing.T) {
	cases := map[string]struct {
		flow Flow
		ok   bool
	}{
		"потерял":         {FlowLost, true},
		"потерял телефон": {FlowLost, true},
		"/lost":           {FlowLost, true},
		"нашёл":           {FlowFound, true},
		"нашел кошелёк":   {FlowFound, true},
		"находка":         {FlowFound, true},
		"потерялся":       {"", false},
		"привет":          {"", false},
		"":                {"", false},
	}
	for in, want := range cases {
		f, ok := MatchStart(in)
		if ok != want.ok || f != want.flow {
			t.Errorf("MatchStart(%q) = (%q, %v), want (%q, %v)", in, f, ok, want.flow, want.ok)
		}
	}
}

func TestIsCancel(t *testing.T) {
	for _, in := range []string{"/cancel", "отмена"} {
		if !IsCancel(in) {
			t.Errorf("IsCancel(%q) = false", in)
		}
	}
	if IsCancel("отменааа") {
		t.Error("partial keyword should not cancel")
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  ПотеряЛ  "); got != "потерял" {
		t.Fatalf("normalized = %q", got)
	}
}
