// Package bowtie defines the fixed six-stage bowtie funnel that tenant
// lifecycle stages are mapped onto.
package bowtie

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ID identifies one of the six bowtie stages.
type ID string

const (
	Attract  ID = "trap1"
	Educate  ID = "trap2"
	Select   ID = "trap3"
	Activate ID = "trap4"
	Impact   ID = "trap5"
	Expand   ID = "trap6"

	// None is the position of an entity that sits in no bowtie stage.
	None ID = "none"
)

// Stage is a compiled-in bowtie stage record.
type Stage struct {
	ID          ID       `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Summary     string   `json:"summary" yaml:"summary"`
	Description string   `json:"description" yaml:"description"`
	Metrics     []string `json:"metrics" yaml:"metrics"`
	Touchpoints []string `json:"touchpoints" yaml:"touchpoints"`
	Connectors  []string `json:"connectors" yaml:"connectors"`
}

// stages is ordered by funnel position. Adjacency matters for connector
// rendering, so never reorder.
var stages = [...]Stage{
	{
		ID:          Attract,
		Name:        "Attract",
		Summary:     "Initial awareness and attraction to your company/product",
		Description: "In this stage, prospects become aware of your product/service through various marketing channels.",
		Metrics:     []string{"Website visitors", "Social media engagement", "Ad impressions"},
		Touchpoints: []string{"Social media posts", "Blog content", "SEO", "Paid advertising"},
		Connectors:  []string{"Identified"},
	},
	{
		ID:          Educate,
		Name:        "Educate",
		Summary:     "Learning about solutions and engaging with educational content",
		Description: "Prospects research your solutions and engage with your educational content to learn more.",
		Metrics:     []string{"Content downloads", "Email opens", "Webinar attendees"},
		Touchpoints: []string{"Emails", "Webinars", "Whitepapers", "Case studies"},
		Connectors:  []string{"Interested", "Engaged"},
	},
	{
		ID:          Select,
		Name:        "Select",
		Summary:     "Evaluation and selection of your offering",
		Description: "Prospects evaluate your offering against alternatives and determine if it meets their needs.",
		Metrics:     []string{"Product demos", "Sales calls", "Feature comparison views"},
		Touchpoints: []string{"Product demos", "Sales meetings", "Free trials", "Consultations"},
		Connectors:  []string{"Priority"},
	},
	{
		ID:          Activate,
		Name:        "Activate",
		Summary:     "Initial onboarding and activation of the product/service",
		Description: "Customers have chosen your solution and begin using it for the first time.",
		Metrics:     []string{"Onboarding completion rate", "Feature adoption", "Time to first value"},
		Touchpoints: []string{"Onboarding sessions", "Training", "Welcome emails", "Setup guidance"},
		Connectors:  []string{"Committed", "Ready"},
	},
	{
		ID:          Impact,
		Name:        "Impact",
		Summary:     "Realizing value and integrating the solution",
		Description: "Customers realize the value of your solution and integrate it into their workflow.",
		Metrics:     []string{"Usage frequency", "Customer satisfaction", "Support ticket volume"},
		Touchpoints: []string{"Check-in calls", "Success reviews", "Support channels", "Feature updates"},
		Connectors:  []string{"Recurring Impact"},
	},
	{
		ID:          Expand,
		Name:        "Expand",
		Summary:     "Expanding relationship through upsells and referrals",
		Description: "Customers deepen their relationship through upsells, cross-sells, and referrals.",
		Metrics:     []string{"Upsell/cross-sell rate", "Referrals", "Expansion revenue"},
		Touchpoints: []string{"Account reviews", "Loyalty programs", "Advocacy campaigns", "User communities"},
		Connectors:  []string{"Maximum Impact"},
	},
}

// Count is the number of bowtie stages.
const Count = len(stages)

// Stages returns a copy of the six stages in funnel order.
func Stages() []Stage {
	out := make([]Stage, Count)
	for i, s := range stages {
		out[i] = s.clone()
	}
	return out
}

// IDs returns the stage ids in funnel order.
func IDs() []ID {
	out := make([]ID, Count)
	for i, s := range stages {
		out[i] = s.ID
	}
	return out
}

// Lookup returns the stage with the given id.
func Lookup(id ID) (Stage, bool) {
	i := Index(id)
	if i < 0 {
		return Stage{}, false
	}
	return stages[i].clone(), true
}

// MustLookup is Lookup for ids known to be valid.
func MustLookup(id ID) Stage {
	s, ok := Lookup(id)
	if !ok {
		panic(eris.Errorf("bowtie: unknown stage %q", id))
	}
	return s
}

// Index returns the funnel position of id, or -1.
func Index(id ID) int {
	for i, s := range stages {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Valid reports whether id is one of the six stage ids. None is not valid.
func Valid(id ID) bool {
	return Index(id) >= 0
}

// Parse resolves loose input to a stage id: an exact id, a case-insensitive
// id ("TRAP2") or a stage name ("educate").
func Parse(s string) (ID, bool) {
	s = strings.TrimSpace(s)
	if Valid(ID(s)) {
		return ID(s), true
	}
	for _, st := range stages {
		if strings.EqualFold(s, string(st.ID)) || strings.EqualFold(s, st.Name) {
			return st.ID, true
		}
	}
	return "", false
}

// Next returns the stage after id in the funnel.
func Next(id ID) (ID, bool) {
	i := Index(id)
	if i < 0 || i == Count-1 {
		return "", false
	}
	return stages[i+1].ID, true
}

// Prev returns the stage before id in the funnel.
func Prev(id ID) (ID, bool) {
	i := Index(id)
	if i <= 0 {
		return "", false
	}
	return stages[i-1].ID, true
}

func (s Stage) clone() Stage {
	s.Metrics = append([]string(nil), s.Metrics...)
	s.Touchpoints = append([]string(nil), s.Touchpoints...)
	s.Connectors = append([]string(nil), s.Connectors...)
	return s
}
