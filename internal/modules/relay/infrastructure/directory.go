package infrastructure

import "mesaYaRelay/internal/modules/relay/application/port"

// GroupDirectory exposes the registry to the ingest path, which may only
// publish into groups that already exist.
type GroupDirectory struct {
	registry *GroupRegistry
}

func NewGroupDirectory(registry *GroupRegistry) *GroupDirectory {
	return &GroupDirectory{registry: registry}
}

func (d *GroupDirectory) Lookup(groupID string) (port.GroupPublisher, bool) {
	ch, ok := d.registry.Lookup(groupID)
	if !ok {
		return nil, false
	}
	return ch, true
}

func (d *GroupDirectory) List() []string { return d.registry.List() }

var _ port.GroupDirectory = (*GroupDirectory)(nil)
