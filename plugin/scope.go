package plugin

import "sync"

// GlobalsFunc returns the current globally registered plugins in
// registration order. A Scope holds one by reference so that global
// registrations made after the scope was created remain visible to it.
type GlobalsFunc func() []Plugin

// Scope is a service-private registration scope layered over the global
// plugin list. It owns a local Set and an exclusion list of global tokens to
// suppress for this scope only.
type Scope struct {
	local   *Set
	globals GlobalsFunc

	mu       sync.RWMutex
	excluded map[Token]struct{}
}

// NewScope creates a scope over the given globals provider. A nil provider
// yields a scope with no global plugins.
func NewScope(globals GlobalsFunc) *Scope {
	return &Scope{
		local:    NewSet(),
		globals:  globals,
		excluded: make(map[Token]struct{}),
	}
}

// Use registers plugins in this scope's private list. Token uniqueness is
// enforced within the private list only; a token registered globally may
// also be registered here.
func (sc *Scope) Use(plugins ...Plugin) error {
	return sc.local.Add(plugins...)
}

// UseBefore inserts p before the first private entry with the target token.
func (sc *Scope) UseBefore(p Plugin, target Token) error {
	return sc.local.AddBefore(p, target)
}

// UseAfter inserts p after the first private entry with the target token.
func (sc *Scope) UseAfter(p Plugin, target Token) error {
	return sc.local.AddAfter(p, target)
}

// Remove destroys and removes a plugin from the private list.
func (sc *Scope) Remove(target Token) error {
	return sc.local.Remove(target)
}

// Has reports whether the token is visible to this scope: registered
// privately, or globally and not excluded.
func (sc *Scope) Has(target Token) bool {
	_, ok := sc.Get(target)
	return ok
}

// Get returns the instance the chains would run for the token: the private
// registration wins, then the filtered global list is searched.
func (sc *Scope) Get(target Token) (Plugin, bool) {
	if p, ok := sc.local.Get(target); ok {
		return p, true
	}
	if sc.isExcluded(target) {
		return nil, false
	}
	for _, p := range sc.globalList() {
		if p.Token() == target {
			return p, true
		}
	}
	return nil, false
}

// Exclude suppresses the given global tokens for this scope. Private
// registrations are unaffected.
func (sc *Scope) Exclude(tokens ...Token) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, t := range tokens {
		sc.excluded[t] = struct{}{}
	}
}

// Excluded returns the excluded tokens in unspecified order.
func (sc *Scope) Excluded() []Token {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	out := make([]Token, 0, len(sc.excluded))
	for t := range sc.excluded {
		out = append(out, t)
	}
	return out
}

// Merged returns the chain execution order for this scope: the global list
// minus exclusions, followed by the private list, both FIFO. Response and
// error phases iterate the result in reverse.
func (sc *Scope) Merged() []Plugin {
	globals := sc.globalList()
	locals := sc.local.All()
	out := make([]Plugin, 0, len(globals)+len(locals))
	for _, p := range globals {
		if sc.isExcluded(p.Token()) {
			continue
		}
		out = append(out, p)
	}
	return append(out, locals...)
}

// Local returns the private plugins in registration order.
func (sc *Scope) Local() []Plugin {
	return sc.local.All()
}

// Close destroys every privately registered plugin and empties the private
// list. Global plugins are owned by the registry and left untouched.
func (sc *Scope) Close() {
	sc.local.Clear()
}

func (sc *Scope) globalList() []Plugin {
	if sc.globals == nil {
		return nil
	}
	return sc.globals()
}

func (sc *Scope) isExcluded(t Token) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	_, ok := sc.excluded[t]
	return ok
}
