package registry

import (
	"fmt"
	"sort"

	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
)

type manager struct {
	registries map[domain.RegistryID]ports.AssetRegistry
}

// NewManager returns a RegistryManager resolving the given registries.
func NewManager(
	registries map[domain.RegistryID]ports.AssetRegistry,
) ports.RegistryManager {
	m := make(map[domain.RegistryID]ports.AssetRegistry, len(registries))
	for id, r := range registries {
		m[id] = r
	}
	return &manager{m}
}

func (m *manager) Registry(id domain.RegistryID) (ports.AssetRegistry, error) {
	r, ok := m.registries[id]
	if !ok {
		return nil, fmt.Errorf("registry %s not found", id)
	}
	return r, nil
}

func (m *manager) RegistryIDs() []domain.RegistryID {
	ids := make([]domain.RegistryID, 0, len(m.registries))
	for id := range m.registries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
