// Package store persists stage mappings per tenant.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/journey-mapper/internal/model"
)

// MappingStore is the durable key-value store for stage mappings keyed by
// tenant id. Get returns (nil, nil) when no mapping exists for the tenant.
// Put overwrites any existing mapping.
type MappingStore interface {
	Get(ctx context.Context, tenantID string) (model.StageMapping, error)
	Put(ctx context.Context, tenantID string, m model.StageMapping) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// encodeMapping renders the flat JSON object that is persisted.
func encodeMapping(m model.StageMapping) ([]byte, error) {
	if m == nil {
		m = model.StageMapping{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal mapping")
	}
	return data, nil
}

func decodeMapping(data []byte) (model.StageMapping, error) {
	var m model.StageMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal mapping")
	}
	if m == nil {
		m = model.StageMapping{}
	}
	return m, nil
}
