package mapping

import (
	"context"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/model"
)

// Classifier turns a classification request into raw model text. The text
// is untrusted; the engine validates it.
type Classifier interface {
	Classify(ctx context.Context, req Request) (string, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, req Request) (string, error)

func (f ClassifierFunc) Classify(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Target is the classifier's view of a bowtie stage.
type Target struct {
	ID          bowtie.ID
	Name        string
	Description string
}

// Request carries everything a classifier backend needs to render its prompt.
type Request struct {
	TenantID     string
	Sources      []model.SourceStage
	Targets      []Target
	Instructions string
}

// Instructions asks for the flat source-value to stage-id object.
const Instructions = `Return only a JSON object where keys are HubSpot lifecycle stage values and values are Bowtie stage IDs. Example format: {"subscriber": "trap1", "lead": "trap2", ...}`

// NewRequest builds the request for a tenant's catalog in catalog order.
func NewRequest(tenantID string, stages []model.SourceStage) Request {
	targets := make([]Target, 0, bowtie.Count)
	for _, st := range bowtie.Stages() {
		targets = append(targets, Target{ID: st.ID, Name: st.Name, Description: st.Summary})
	}
	return Request{
		TenantID:     tenantID,
		Sources:      append([]model.SourceStage(nil), stages...),
		Targets:      targets,
		Instructions: Instructions,
	}
}
