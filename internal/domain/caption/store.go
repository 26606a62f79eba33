package caption

import "sync"

// Store holds the default caption sequence plus one sequence per target
// language. The default list is upserted by Start: a new event whose Start
// matches an existing entry replaces it in place, anything else appends.
// Per-language lists are append-only. Safe for concurrent use; translation
// workers append while the ingestion path reads.
type Store struct {
	mu         sync.RWMutex
	defaultSeq []Event
	byLanguage map[string][]Event
}

func NewStore() *Store {
	return &Store{
		byLanguage: make(map[string][]Event),
	}
}

// Upsert places ev into the default sequence, replacing any entry with the
// same Start. It reports whether the event replaced an existing entry.
func (s *Store) Upsert(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.defaultSeq {
		if s.defaultSeq[i].Start == ev.Start {
			s.defaultSeq[i] = ev
			return true
		}
	}
	s.defaultSeq = append(s.defaultSeq, ev)
	return false
}

// AppendTranslation appends a translated event to the sequence for lang.
func (s *Store) AppendTranslation(lang string, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byLanguage[lang] = append(s.byLanguage[lang], ev)
}

// Len reports how many events the default sequence holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.defaultSeq)
}

// Last returns the most recent default event, if any.
func (s *Store) Last() (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.defaultSeq) == 0 {
		return Event{}, false
	}
	return s.defaultSeq[len(s.defaultSeq)-1], true
}

// Recent returns a copy of the last n default events in order.
func (s *Store) Recent(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.defaultSeq, n)
}

// Translations returns a copy of the sequence stored for lang.
func (s *Store) Translations(lang string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.byLanguage[lang]
	out := make([]Event, len(seq))
	copy(out, seq)
	return out
}

// FindTranslation looks up the translated event for lang whose Start matches.
func (s *Store) FindTranslation(lang string, start float64) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.byLanguage[lang] {
		if ev.Start == start {
			return ev, true
		}
	}
	return Event{}, false
}

// Snapshot returns a deep copy of every sequence keyed by language, with the
// default sequence under "default". Used when persisting a finished session.
func (s *Store) Snapshot() map[string][]Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]Event, len(s.byLanguage)+1)
	def := make([]Event, len(s.defaultSeq))
	copy(def, s.defaultSeq)
	out["default"] = def
	for lang, seq := range s.byLanguage {
		cp := make([]Event, len(seq))
		copy(cp, seq)
		out[lang] = cp
	}
	return out
}

func tail(seq []Event, n int) []Event {
	if n <= 0 || len(seq) == 0 {
		return nil
	}
	if n > len(seq) {
		n = len(seq)
	}
	out := make([]Event, n)
	copy(out, seq[len(seq)-n:])
	return out
}
