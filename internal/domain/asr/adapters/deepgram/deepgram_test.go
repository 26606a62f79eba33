package deepgram

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestToEvent(t *testing.T) {
	raw := `{
		"type": "Results",
		"start": 1.23456,
		"duration": 2.5,
		"is_final": true,
		"channel": {"alternatives": [{"transcript": "praise and worship", "confidence": 0.98}]}
	}`

	var msg response
	if err := sonic.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	ev, ok := toEvent(msg, "session-1")
	if !ok {
		t.Fatal("expected an event")
	}
	if ev.Text != "praise and worship" {
		t.Errorf("text = %q", ev.Text)
	}
	if ev.Start != 1.23 || ev.Duration != 2.5 {
		t.Errorf("timing = %v/%v", ev.Start, ev.Duration)
	}
	if !ev.IsComplete {
		t.Error("is_final must map to IsComplete")
	}
	if ev.SessionID != "session-1" {
		t.Errorf("session id = %q", ev.SessionID)
	}
}

func TestToEvent_Skipped(t *testing.T) {
	tests := []struct {
		name string
		msg  response
	}{
		{"non results type", response{Type: "Metadata"}},
		{"no alternatives", response{Type: "Results"}},
		{
			"empty transcript",
			func() response {
				var m response
				m.Type = "Results"
				m.Channel.Alternatives = []alternative{{Transcript: "  "}}
				return m
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := toEvent(tt.msg, "s"); ok {
				t.Error("expected message to be skipped")
			}
		})
	}
}

func TestToEvent_InterimResult(t *testing.T) {
	var msg response
	msg.Type = "Results"
	msg.Start = 3
	msg.Duration = 0.8
	msg.Channel.Alternatives = []alternative{{Transcript: "hallelu"}}

	ev, ok := toEvent(msg, "s")
	if !ok || ev.IsComplete {
		t.Errorf("interim result must stay partial: %+v, %v", ev, ok)
	}
}
