// Package registry is a concurrent, name-keyed service container.
//
// It satisfies lifecycle.Container, so managers can be published and looked
// up by name:
//
//	c := registry.New()
//	_ = m.RegisterIn(c)
//	m, ok := lifecycle.FromContainer(c, "api")
package registry

import (
	"errors"
	"fmt"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"
)

var (
	ErrDuplicate = errors.New("registry: service already registered")
	ErrNotFound  = errors.New("registry: service not found")
	ErrEmptyName = errors.New("registry: empty service name")
)

// Container maps service names to instances.
type Container struct {
	services cmap.ConcurrentMap[string, any]
}

// New creates an empty container.
func New() *Container {
	return &Container{services: cmap.New[any]()}
}

// Register adds svc under name. Names are unique.
func (c *Container) Register(name string, svc any) error {
	if name == "" {
		return ErrEmptyName
	}
	if !c.services.SetIfAbsent(name, svc) {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	return nil
}

// TryGet returns the service registered under name.
func (c *Container) TryGet(name string) (any, bool) {
	return c.services.Get(name)
}

// Get is TryGet with an error for missing names.
func (c *Container) Get(name string) (any, error) {
	svc, ok := c.services.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return svc, nil
}

// MustGet panics when name is not registered.
func (c *Container) MustGet(name string) any {
	svc, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return svc
}

// Remove deletes name and reports whether it was present.
func (c *Container) Remove(name string) bool {
	_, ok := c.services.Pop(name)
	return ok
}

// Names returns the registered names, sorted.
func (c *Container) Names() []string {
	names := c.services.Keys()
	sort.Strings(names)
	return names
}

// Len returns the number of registered services.
func (c *Container) Len() int {
	return c.services.Count()
}
