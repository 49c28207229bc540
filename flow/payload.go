package flow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxSecrets caps the number of owner-verification hints kept on a draft.
const MaxSecrets = 3

// Location is a geographic point attached to a draft or an inbound message.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Precision float64 `json:"precision,omitempty"`
}

// Clone returns an independent copy of the location.
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// ListingDraft is the listing record accumulated across dialogue steps.
type ListingDraft struct {
	Type         string    `json:"type"`
	Category     string    `json:"category,omitempty"`
	Details      string    `json:"details"`
	Photos       []string  `json:"photos"`
	Location     *Location `json:"location,omitempty"`
	LocationNote string    `json:"location_note"`
	Secrets      []string  `json:"secrets"`
}

// Clone returns an independent copy of the draft. Slices and the nested
// location are copied so mutating the clone never leaks into the original.
func (d ListingDraft) Clone() ListingDraft {
	c := d
	c.Location = d.Location.Clone()
	if d.Photos != nil {
		c.Photos = append([]string(nil), d.Photos...)
	}
	if d.Secrets != nil {
		c.Secrets = append([]string(nil), d.Secrets...)
	}
	return c
}

// Meta carries bookkeeping fields that are not part of the draft itself.
type Meta struct {
	StartedAt time.Time `json:"started_at"`
}

// Payload is the structured dialogue state persisted between steps.
type Payload struct {
	Flow    Flow         `json:"flow"`
	Listing ListingDraft `json:"listing"`
	Meta    Meta         `json:"meta"`
}

// NewPayload builds the initial payload for a freshly started flow.
func NewPayload(f Flow, startedAt time.Time) *Payload {
	return &Payload{
		Flow: f,
		Listing: ListingDraft{
			Type:    f.ListingType(),
			Photos:  []string{},
			Secrets: []string{},
		},
		Meta: Meta{StartedAt: startedAt},
	}
}

// Clone returns a deep copy of the payload. Step handlers always receive
// a clone so the persisted record is never mutated in place.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	c := *p
	c.Listing = p.Listing.Clone()
	return &c
}

// EncodePayload serializes the payload as a JSON document.
func EncodePayload(p *Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("flow: nil payload")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("flow: encode payload: %w", err)
	}
	return data, nil
}

// DecodePayload restores a payload from its JSON form. A decode failure
// means the persisted record is unusable and the user is treated as idle.
func DecodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("flow: decode payload: %w", err)
	}
	if !p.Flow.Valid() {
		return nil, fmt.Errorf("flow: decode payload: unknown flow %q", p.Flow)
	}
	return &p, nil
}

var secretsSplitter = strings.NewReplacer("\n", ",", ";", ",")

// SplitSecrets parses free text into a list of owner-verification hints:
// split on newline, comma or semicolon, trim, drop empties, cap at MaxSecrets.
func SplitSecrets(text string) []string {
	parts := strings.Split(secretsSplitter.Replace(text), ",")
	out := make([]string, 0, MaxSecrets)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
		if len(out) == MaxSecrets {
			break
		}
	}
	return out
}
