package chat

import "sync"

// Store owns the ordered turn log for one widget session. The first
// turn is always the hidden system prompt; it is created once and never
// mutated or removed. Turns are append-only: no deletes, no edits.
//
// A Store lives for one session and is discarded with it. Nothing is
// persisted.
type Store struct {
	mu        sync.Mutex
	turns     []Turn
	observers []func()
}

// NewStore creates a store seeded with the system prompt as its first
// and only turn.
func NewStore(systemPrompt string) *Store {
	return &Store{
		turns: []Turn{{Role: RoleSystem, Content: systemPrompt}},
	}
}

// AppendUser appends a user turn. The caller trims and rejects empty
// input before calling; the store trusts its input.
func (s *Store) AppendUser(text string) {
	s.append(Turn{Role: RoleUser, Content: text})
}

// AppendAssistant appends an assistant turn. Error-surface messages
// arrive through here too; they are ordinary assistant turns.
func (s *Store) AppendAssistant(text string) {
	s.append(Turn{Role: RoleAssistant, Content: text})
}

func (s *Store) append(t Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, t)
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// Visible returns the turns to render: everything except system turns,
// in insertion order. The slice is computed fresh on every call so it
// can never go stale relative to the full log.
func (s *Store) Visible() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := make([]Turn, 0, len(s.turns))
	for _, t := range s.turns {
		if t.Role != RoleSystem {
			visible = append(visible, t)
		}
	}
	return visible
}

// All returns a copy of the full turn log, system turn included. Used
// for building outbound payloads.
func (s *Store) All() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]Turn, len(s.turns))
	copy(all, s.turns)
	return all
}

// Len reports the full log length, system turn included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// SeedWelcome appends the greeting as an assistant turn if and only if
// no visible turn exists yet. Repeat calls are no-ops, so opening the
// widget twice never duplicates the greeting.
func (s *Store) SeedWelcome(greeting string) {
	s.mu.Lock()
	for _, t := range s.turns {
		if t.Role != RoleSystem {
			s.mu.Unlock()
			return
		}
	}
	s.turns = append(s.turns, Turn{Role: RoleAssistant, Content: greeting})
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// Subscribe registers fn to run after every append. The rendering
// collaborator uses this to redraw; fn must not call back into the
// store's mutating methods.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}
