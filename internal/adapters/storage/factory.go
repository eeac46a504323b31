package storage

import (
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/ports"
)

// Factory builds per-role storage clients from the persisted provider
// configuration. Clients are rebuilt on every call so credential updates
// take effect without a restart.
type Factory struct {
	configs ports.ConfigStore
}

// NewFactory creates a client factory backed by the given config store.
func NewFactory(configs ports.ConfigStore) *Factory {
	return &Factory{configs: configs}
}

// Client builds an ObjectStore for the role. Missing or incomplete
// configuration fails fast with a configuration error.
func (f *Factory) Client(role string) (ports.ObjectStore, error) {
	cfg, err := f.configs.Get(role)
	if err != nil {
		return nil, &entities.StorageError{
			Provider: role, Op: "create_client", Kind: entities.KindConfiguration, Err: err,
		}
	}
	return NewClient(role, cfg)
}
