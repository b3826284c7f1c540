package plugin

import (
	"errors"
	"fmt"
	"sync"
)

// Registration faults surfaced by Set operations. Callers match with
// errors.Is.
var (
	// ErrDuplicatePlugin reports an Add of a token that already has a
	// registered instance in the scope.
	ErrDuplicatePlugin = errors.New("plugin already registered")

	// ErrPluginNotFound reports a Remove, AddBefore, or AddAfter whose
	// target token has no registered instance.
	ErrPluginNotFound = errors.New("plugin not found")
)

// Set is one FIFO-ordered plugin registration scope. Entries are keyed by
// Token: a token has at most one instance per Set, and two Sets are fully
// independent namespaces. The zero value is ready to use.
type Set struct {
	mu      sync.RWMutex
	entries []Plugin
}

// NewSet creates an empty registration scope.
func NewSet() *Set {
	return &Set{}
}

// Add appends plugins in argument order. Every token is checked before any
// plugin is added, so a duplicate anywhere in the batch (against the set or
// within the arguments themselves) fails without mutating the set.
func (s *Set) Add(plugins ...Plugin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[Token]struct{}, len(plugins))
	for _, p := range plugins {
		tok := p.Token()
		if _, dup := seen[tok]; dup || s.indexOf(tok) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, tok)
		}
		seen[tok] = struct{}{}
	}
	s.entries = append(s.entries, plugins...)
	return nil
}

// AddBefore inserts p immediately before the first entry with the target
// token. It fails without mutating the set when the target is absent or p's
// token is already registered.
func (s *Set) AddBefore(p Plugin, target Token) error {
	return s.insert(p, target, 0)
}

// AddAfter inserts p immediately after the first entry with the target
// token, with the same failure rules as AddBefore.
func (s *Set) AddAfter(p Plugin, target Token) error {
	return s.insert(p, target, 1)
}

func (s *Set) insert(p Plugin, target Token, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(target)
	if i < 0 {
		return fmt.Errorf("%w: target %s", ErrPluginNotFound, target)
	}
	if s.indexOf(p.Token()) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Token())
	}
	at := i + offset
	s.entries = append(s.entries, nil)
	copy(s.entries[at+1:], s.entries[at:])
	s.entries[at] = p
	return nil
}

// Remove destroys and removes the entry with the given token. The Destroy
// hook, when implemented, is invoked exactly once per registration.
func (s *Set) Remove(target Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(target)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, target)
	}
	if d, ok := s.entries[i].(Destroyer); ok {
		d.Destroy()
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

// Has reports whether a token has a registered instance.
func (s *Set) Has(target Token) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(target) >= 0
}

// Get returns the instance registered under the token. Unlike Remove, a
// missing token is not an error.
func (s *Set) Get(target Token) (Plugin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(target); i >= 0 {
		return s.entries[i], true
	}
	return nil, false
}

// All returns the entries in registration order. The slice is a copy.
func (s *Set) All() []Plugin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Plugin, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of registered plugins.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear destroys every entry in registration order and empties the set.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.entries {
		if d, ok := p.(Destroyer); ok {
			d.Destroy()
		}
	}
	s.entries = nil
}

// indexOf must be called with the lock held.
func (s *Set) indexOf(target Token) int {
	for i, p := range s.entries {
		if p.Token() == target {
			return i
		}
	}
	return -1
}
