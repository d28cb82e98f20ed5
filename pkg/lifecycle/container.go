package lifecycle

// Container is the service registry a manager can be published to.
type Container interface {
	Register(name string, service any) error
	TryGet(name string) (any, bool)
}

// ServiceName is the container key for the manager called name.
func ServiceName(name string) string {
	if name == "" {
		name = DefaultName
	}
	return "lifecycle:" + name
}

// FromContainer looks up the manager registered under name. An empty name
// means DefaultName. It reports false when nothing, or something other than
// a *DefaultManager, is registered there.
func FromContainer(c Container, name string) (*DefaultManager, bool) {
	if c == nil {
		return nil, false
	}
	svc, ok := c.TryGet(ServiceName(name))
	if !ok {
		return nil, false
	}
	m, ok := svc.(*DefaultManager)
	return m, ok
}

// RegisterIn publishes m to c under ServiceName(m.Name()) and associates c with m.
func (m *DefaultManager) RegisterIn(c Container) error {
	if err := c.Register(ServiceName(m.name), m); err != nil {
		return err
	}
	m.SetContainer(c)
	return nil
}

// SetContainer associates c with m without registering.
func (m *DefaultManager) SetContainer(c Container) {
	m.mu.Lock()
	m.container = c
	m.mu.Unlock()
}

// Container returns the associated container, or nil.
func (m *DefaultManager) Container() Container {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.container
}
