package flow

import (
	"strings"
	"testing"
	"time"
)

func TestMainMenuOffersBothFlows(t *testing.T) {
	r := NewRenderer()
	menu := r.MainMenu()
	if len(menu.Buttons) != 2 {
		t.Fatalf("rows = %d", len(menu.Buttons))
	}
	if menu.Buttons[0][0].Data != "flow:lost:start" {
		t.Fatalf("lost button = %q", menu.Buttons[0][0].Data)
	}
	if menu.Buttons[1][0].Data != "flow:found:start" {
		t.Fatalf("found button = %q", menu.Buttons[1][0].Data)
	}
}

func TestCategoryPromptDecodableButtons(t *testing.T) {
	r := NewRenderer()
	for _, f := range Flows {
		resp := r.CategoryPrompt(f)
		seen := 0
		for _, row := range resp.Buttons {
			for _, b := range row {
				act, ok := DecodeAction(b.Data)
				if !ok {
					t.Fatalf("undecodable button %q", b.Data)
				}
				if act.Name == ActionCategory {
					seen++
					if !KnownCategory(act.Value) {
						t.Fatalf("unknown category %q on button", act.Value)
					}
					if act.Flow != f {
						t.Fatalf("button flow = %q, want %q", act.Flow, f)
					}
				}
			}
		}
		if seen != len(Categories) {
			t.Fatalf("category buttons = %d, want %d", seen, len(Categories))
		}
	}
}

func TestSummaryContent(t *testing.T) {
	r := NewRenderer()
	p := NewPayload(FlowFound, time.Now())
	p.Listing.Category = "pet"
	p.Listing.Details = "рыжий кот"
	p.Listing.LocationNote = "двор на Лесной"
	p.Listing.Location = &Location{Latitude: 1, Longitude: 2}
	p.Listing.Secrets = []string{"ошейник", "шрам"}

	resp := r.Summary(p)
	for _, want := range []string{
		textSummaryTypeFound,
		CategoryTitle("pet"),
		"рыжий кот",
		"двор на Лесной",
		textSummaryGeo,
		"ошейник; шрам",
	} {
		if !strings.Contains(resp.Text, want) {
			t.Errorf("summary missing %q:\n%s", want, resp.Text)
		}
	}

	if len(resp.Buttons) != 3 {
		t.Fatalf("button rows = %d", len(resp.Buttons))
	}
	if resp.Buttons[0][0].Data != "flow:found:confirm:publish" {
		t.Fatalf("publish button = %q", resp.Buttons[0][0].Data)
	}
	if resp.Buttons[1][0].Data != "flow:found:confirm:edit" {
		t.Fatalf("edit button = %q", resp.Buttons[1][0].Data)
	}
}

func TestSummaryWithoutSecrets(t *testing.T) {
	r := NewRenderer()
	p := NewPayload(FlowLost, time.Now())
	p.Listing.Category = "keys"
	p.Listing.Details = "связка"
	p.Listing.LocationNote = "парк"

	resp := r.Summary(p)
	if !strings.Contains(resp.Text, textSummaryNoSecrets) {
		t.Fatalf("summary should mark absent secrets:\n%s", resp.Text)
	}
}
