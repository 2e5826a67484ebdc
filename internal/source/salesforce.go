package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/pkg/salesforce"
)

// Salesforce reads stages from a picklist field. A Salesforce org is a single
// tenant; tenantID is only used for error context.
type Salesforce struct {
	client salesforce.Client
	object string
	field  string
}

// NewSalesforce creates a Salesforce adapter over object.field.
func NewSalesforce(client salesforce.Client, object, field string) *Salesforce {
	if object == "" {
		object = "Contact"
	}
	return &Salesforce{client: client, object: object, field: field}
}

func (s *Salesforce) ListSourceStages(ctx context.Context, tenantID string) ([]model.SourceStage, error) {
	values, help, err := salesforce.ActivePicklist(ctx, s.client, s.object, s.field)
	if err != nil {
		return nil, eris.Wrapf(err, "source: salesforce list stages for %s", tenantID)
	}
	stages := make([]model.SourceStage, 0, len(values))
	for _, v := range values {
		label := v.Label
		if label == "" {
			label = v.Value
		}
		stages = append(stages, model.SourceStage{Value: v.Value, Label: label, Description: help})
	}
	return stages, nil
}

func (s *Salesforce) FetchEntity(ctx context.Context, tenantID, entityID string) (*model.Entity, error) {
	ct, err := salesforce.FindContactByID(ctx, s.client, s.object, s.field, entityID)
	if err != nil {
		return nil, eris.Wrapf(err, "source: salesforce fetch contact for %s", tenantID)
	}
	if ct == nil {
		return nil, nil
	}
	e := toEntity(*ct)
	return &e, nil
}

func (s *Salesforce) SearchEntities(ctx context.Context, tenantID, query string) ([]model.EntitySummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	contacts, err := salesforce.SearchContacts(ctx, s.client, s.object, s.field, query, searchLimit)
	if err != nil {
		return nil, eris.Wrapf(err, "source: salesforce search contacts for %s", tenantID)
	}
	out := make([]model.EntitySummary, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, toEntity(c))
	}
	return out, nil
}

func toEntity(c salesforce.Contact) model.Entity {
	return model.Entity{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Email:      c.Email,
		StageValue: c.Stage,
	}
}
