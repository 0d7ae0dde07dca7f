package registry

import (
	"sort"
	"sync"

	"github.com/arthur-debert/harnesssync/pkg/errors"
)

// Registry maps names to items. Listings are in lexical name order so
// everything iterating a registry (targets, adapters) is deterministic.
type Registry[T any] interface {
	// Register adds an item, failing if the name is taken.
	Register(name string, item T) error
	// Set adds or replaces an item.
	Set(name string, item T) error
	Get(name string) (T, error)
	Has(name string) bool
	// List returns the names.
	List() []string
	// Values returns the items ordered by name.
	Values() []T
}

type named[T any] struct {
	kind string

	mu    sync.RWMutex
	items map[string]T
}

// New creates an empty registry.
func New[T any]() Registry[T] {
	return Of[T]("item")
}

// Of creates an empty registry whose errors call its items kind, as in
// `no target named "x"`.
func Of[T any](kind string) Registry[T] {
	return &named[T]{kind: kind, items: make(map[string]T)}
}

func (r *named[T]) put(name string, item T, replace bool) error {
	if name == "" {
		return errors.Newf(errors.ErrInvalidInput, "%s name cannot be empty", r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.items[name]; taken && !replace {
		return errors.Newf(errors.ErrAlreadyExists, "%s %q is already registered", r.kind, name).
			WithDetail(r.kind, name)
	}
	r.items[name] = item
	return nil
}

func (r *named[T]) Register(name string, item T) error {
	return r.put(name, item, false)
}

func (r *named[T]) Set(name string, item T) error {
	return r.put(name, item, true)
}

func (r *named[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[name]
	if !ok {
		return item, errors.Newf(errors.ErrNotFound, "no %s named %q", r.kind, name).
			WithDetail(r.kind, name)
	}
	return item, nil
}

func (r *named[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[name]
	return ok
}

func (r *named[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *named[T]) Values() []T {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	values := make([]T, 0, len(names))
	for _, name := range names {
		if item, ok := r.items[name]; ok {
			values = append(values, item)
		}
	}
	return values
}
