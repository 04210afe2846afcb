package commands

import (
	"fmt"
	"strings"

	"codeberg.org/kcchat/server/internal/model"
)

type entry struct {
	handler Handler
	minAuth model.AuthLevel
	builtIn bool
}

// Registry is the insertion-ordered verb -> handler map spec.md §4.2 and
// §9 require (help's ordering depends on insertion order, not a sorted
// map). It is owned by the single chat event loop goroutine.
type Registry struct {
	order   []string
	entries map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds or replaces verb's handler. builtIn marks handlers
// compiled into the binary, as opposed to ones created dynamically by
// addcom; editcom/delcom refuse to touch built-ins.
func (r *Registry) Register(verb string, minAuth model.AuthLevel, builtIn bool, h Handler) {
	verb = strings.ToLower(verb)
	if _, exists := r.entries[verb]; !exists {
		r.order = append(r.order, verb)
	}
	r.entries[verb] = &entry{handler: h, minAuth: minAuth, builtIn: builtIn}
}

// Unregister removes verb entirely.
func (r *Registry) Unregister(verb string) {
	verb = strings.ToLower(verb)
	if _, exists := r.entries[verb]; !exists {
		return
	}
	delete(r.entries, verb)
	for i, v := range r.order {
		if v == verb {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get looks up verb.
func (r *Registry) Get(verb string) (Handler, model.AuthLevel, bool, bool) {
	e, ok := r.entries[strings.ToLower(verb)]
	if !ok {
		return nil, 0, false, false
	}
	return e.handler, e.minAuth, e.builtIn, true
}

// IsBuiltIn reports whether verb is a compiled-in handler.
func (r *Registry) IsBuiltIn(verb string) bool {
	e, ok := r.entries[strings.ToLower(verb)]
	return ok && e.builtIn
}

// Exists reports whether verb is registered at all.
func (r *Registry) Exists(verb string) bool {
	_, ok := r.entries[strings.ToLower(verb)]
	return ok
}

// Verbs returns every registered verb in insertion order.
func (r *Registry) Verbs() []string {
	return append([]string(nil), r.order...)
}

// VerbsFor returns verbs the given auth level is permitted to use, in
// insertion order, for the commands/help handler.
func (r *Registry) VerbsFor(level model.AuthLevel) []string {
	var out []string
	for _, v := range r.order {
		if e := r.entries[v]; level >= e.minAuth {
			out = append(out, v)
		}
	}
	return out
}

// Dispatch tokenizes nothing itself — callers pass an already-tokenized
// Request — and implements spec.md §4.2's dispatch steps 3-5.
func (r *Registry) Dispatch(svc Services, req Request) Response {
	h, minAuth, _, ok := r.Get(req.Verb)
	if !ok {
		return ErrorResponse(fmt.Sprintf("Don't know command %q", req.Verb))
	}
	if req.AuthLevel < minAuth {
		return ErrorResponse("You don't have permission to use this command.")
	}
	return h(svc, r, req)
}
