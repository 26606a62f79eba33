package caption

import "testing"

func TestStore_Upsert(t *testing.T) {
	s := NewStore()

	if replaced := s.Upsert(Event{Start: 0, Text: "hello"}); replaced {
		t.Error("first insert must not report replacement")
	}
	s.Upsert(Event{Start: 2.5, Text: "world"})

	// revising start 0 replaces in place
	if replaced := s.Upsert(Event{Start: 0, Text: "hello there", IsComplete: true}); !replaced {
		t.Error("matching start must replace, not append")
	}

	if s.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", s.Len())
	}

	recent := s.Recent(2)
	if recent[0].Text != "hello there" {
		t.Errorf("expected revised text in place, got %q", recent[0].Text)
	}
	if recent[1].Text != "world" {
		t.Errorf("expected order preserved, got %q", recent[1].Text)
	}
}

func TestStore_Translations(t *testing.T) {
	s := NewStore()
	s.Upsert(Event{Start: 0, Text: "good morning", IsComplete: true})
	s.AppendTranslation("es", Event{Start: 0, Text: "buenos días", IsComplete: true})
	s.AppendTranslation("es", Event{Start: 3.1, Text: "bienvenidos", IsComplete: true})

	got := s.Translations("es")
	if len(got) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(got))
	}

	ev, ok := s.FindTranslation("es", 3.1)
	if !ok || ev.Text != "bienvenidos" {
		t.Errorf("FindTranslation(es, 3.1) = %+v, %v", ev, ok)
	}
	if _, ok := s.FindTranslation("es", 9.9); ok {
		t.Error("expected no match for unknown start")
	}
	if got := s.Translations("fr"); len(got) != 0 {
		t.Errorf("expected empty sequence for unknown language, got %d", len(got))
	}
}

func TestStore_Recent(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		s.Upsert(Event{Start: float64(i), Text: "x"})
	}

	if got := s.Recent(3); len(got) != 3 || got[0].Start != 7 {
		t.Errorf("Recent(3) = %+v", got)
	}
	if got := s.Recent(20); len(got) != 10 {
		t.Errorf("Recent beyond length must clamp, got %d", len(got))
	}
	if got := s.Recent(0); got != nil {
		t.Errorf("Recent(0) must be nil, got %+v", got)
	}
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore()
	s.Upsert(Event{Start: 0, Text: "one", IsComplete: true})
	s.AppendTranslation("fr", Event{Start: 0, Text: "un", IsComplete: true})

	snap := s.Snapshot()
	if len(snap["default"]) != 1 || len(snap["fr"]) != 1 {
		t.Fatalf("unexpected snapshot shape: %+v", snap)
	}

	// mutations after the snapshot must not leak into it
	s.Upsert(Event{Start: 4, Text: "two"})
	if len(snap["default"]) != 1 {
		t.Error("snapshot must be a deep copy")
	}
}
