// Package source reads a tenant's lifecycle-stage catalog and contacts from
// the CRM.
package source

import (
	"context"

	"github.com/sells-group/journey-mapper/internal/model"
)

// Adapter is the CRM-facing side of the journey mapper.
type Adapter interface {
	// ListSourceStages returns the tenant's current stage catalog in display
	// order. Hidden or inactive values are excluded.
	ListSourceStages(ctx context.Context, tenantID string) ([]model.SourceStage, error)
	// FetchEntity returns a contact, or (nil, nil) when it does not exist.
	// An empty StageValue means the contact has no stage set.
	FetchEntity(ctx context.Context, tenantID, entityID string) (*model.Entity, error)
	// SearchEntities finds contacts by name or email.
	SearchEntities(ctx context.Context, tenantID, query string) ([]model.EntitySummary, error)
}

// searchLimit caps contact search results.
const searchLimit = 10
