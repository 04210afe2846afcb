// Package auth implements the pluggable identity-verifier surface
// spec.md §4.4 describes: a flat list of providers searched by id, each
// resolving an opaque token to a local user id. Grounded on spec.md §9's
// "Re-architect as a tagged variant or a small interface with one
// implementation per provider; registration is a flat list searched by
// id."
package auth

import "context"

// Provider verifies a token and resolves it to a local user id,
// creating a new user on first sight of its subject.
type Provider interface {
	ID() string
	Authenticate(ctx context.Context, token string) (userID int64, err error)
}

// Registry is the flat, id-searched provider list.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Find returns the provider registered under id, or ok=false.
func (r *Registry) Find(id string) (Provider, bool) {
	for _, p := range r.providers {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}
