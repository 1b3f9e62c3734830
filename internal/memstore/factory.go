package memstore

import (
	"github.com/rzpsarthak13/jsonfield/internal/core"
	"github.com/rzpsarthak13/jsonfield/internal/registry"
)

func init() {
	registry.RegisterStoreFactory(factory{})
}

type factory struct{}

func (factory) Type() string { return "memory" }

func (factory) Validate(*registry.InternalConfig) error { return nil }

func (factory) Create(*registry.InternalConfig) (core.RowStore, error) {
	return New(), nil
}
