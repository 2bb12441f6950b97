package contracts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		ev      SyncEvent
		wantErr bool
	}{
		{
			name: "scroll with position",
			ev:   SyncEvent{Type: EventScroll, Source: SourcePreview, Position: &Position{Line: 4}},
		},
		{
			name:    "scroll without position",
			ev:      SyncEvent{Type: EventScroll, Source: SourcePreview},
			wantErr: true,
		},
		{
			name: "content with diff only",
			ev: SyncEvent{
				Type: EventContent, Source: SourceEditor,
				Diff: &ContentDiff{StartLine: 2, EndLine: 2, Lines: []string{"x"}},
			},
		},
		{
			name:    "content with no payload",
			ev:      SyncEvent{Type: EventContent, Source: SourceEditor},
			wantErr: true,
		},
		{
			name: "ready needs nothing",
			ev:   SyncEvent{Type: EventReady, Source: SourceEditor},
		},
		{
			name:    "unknown source",
			ev:      SyncEvent{Type: EventReady, Source: "browser"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			ev:      SyncEvent{Type: "zoom", Source: SourceEditor},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ev.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	ev := NewEvent(EventClick, SourcePreview)
	ev.Position = &Position{Line: 12, ElementID: "sync-element-3"}

	raw, err := EncodeEnvelope(ev)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ev, got); diff != "" {
		t.Errorf("event changed over the wire (-sent +received):\n%s", diff)
	}
}

func TestDecodeEnvelopeRejectsForeignFrames(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"type":"render","html":"<p>x</p>"}`)); err == nil {
		t.Error("render frame accepted as sync event")
	}
	if _, err := DecodeEnvelope([]byte(`not json`)); err == nil {
		t.Error("malformed frame accepted")
	}
	if _, err := DecodeEnvelope([]byte(`{"type":"sync","event":{"type":"scroll","source":"preview"}}`)); err == nil {
		t.Error("invalid event accepted")
	}
}
