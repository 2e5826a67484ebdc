// Package classifier implements mapping.Classifier over hosted LLMs.
package classifier

import (
	"fmt"
	"strings"

	"github.com/sells-group/journey-mapper/internal/mapping"
)

// SystemPrompt frames every classification call.
const SystemPrompt = "You are a helpful assistant that maps CRM lifecycle stages to customer journey stages. Return only valid JSON."

// DefaultTemperature keeps answers close to deterministic.
const DefaultTemperature = 0.3

// RenderPrompt formats the user message for a classification request.
func RenderPrompt(req mapping.Request) string {
	var b strings.Builder
	b.WriteString("I have two sets of customer journey stages that I need to map together:\n\n")

	b.WriteString("HubSpot Lifecycle Stages:\n")
	for _, s := range req.Sources {
		desc := s.Description
		if desc == "" {
			desc = "No description provided"
		}
		fmt.Fprintf(&b, "%q (HubSpot value: %q): %s\n", s.Label, s.Value, desc)
	}

	b.WriteString("\nBowtie Model Stages:\n")
	for _, t := range req.Targets {
		fmt.Fprintf(&b, "%q (ID: %s): %s\n", t.Name, t.ID, t.Description)
	}

	b.WriteString("\nPlease create a mapping that assigns each HubSpot lifecycle stage to the most appropriate Bowtie model stage.\n")
	b.WriteString(req.Instructions)
	return b.String()
}
