// Package domain contains the core business entities and value objects.
package domain

import (
	"sort"
	"strings"
)

// Registry is the immutable alias lookup table. It is built once at process
// start and never mutated afterwards, so lookups need no locking.
type Registry struct {
	aliases map[string]Alias
}

// NewRegistry builds a Registry from the given aliases. Names are normalized
// to lowercase; empty or invalid entries are skipped. Later duplicates win,
// matching how configuration overrides layer.
func NewRegistry(aliases []Alias) *Registry {
	r := &Registry{
		aliases: make(map[string]Alias, len(aliases)),
	}
	for _, a := range aliases {
		if !a.IsValid() {
			continue
		}
		name := normalizeAliasName(a.Name)
		a.Name = name
		r.aliases[name] = a
	}
	return r
}

// Resolve looks up an alias by name. Names are matched case-insensitively
// with surrounding whitespace ignored. Unknown names fail with
// UnknownAliasError; they never fall through to the provider as raw model
// strings.
func (r *Registry) Resolve(name string) (Alias, error) {
	a, ok := r.aliases[normalizeAliasName(name)]
	if !ok {
		return Alias{}, &UnknownAliasError{Alias: name}
	}
	return a, nil
}

// Names returns all configured alias names, sorted for stable output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.aliases))
	for name := range r.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of configured aliases.
func (r *Registry) Size() int {
	return len(r.aliases)
}

func normalizeAliasName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
