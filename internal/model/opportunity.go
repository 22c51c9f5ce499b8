package model

import "time"

// OpportunityKind separates tasks from surveys
type OpportunityKind string

const (
	KindTask   OpportunityKind = "task"
	KindSurvey OpportunityKind = "survey"
)

// Opportunity is a paid task or survey in the catalog
type Opportunity struct {
	ID               string          `json:"id" bson:"_id" yaml:"id"`
	Kind             OpportunityKind `json:"kind" bson:"kind" yaml:"kind"`
	Title            string          `json:"title" bson:"title" yaml:"title"`
	Reward           float64         `json:"reward" bson:"reward" yaml:"reward"` // USD
	EstimatedMinutes int             `json:"estimatedMinutes" bson:"estimatedMinutes" yaml:"estimatedMinutes"`
	Category         string          `json:"category" bson:"category" yaml:"category"`
	Description      string          `json:"description" bson:"description" yaml:"description"`
	Instructions     string          `json:"instructions,omitempty" bson:"instructions,omitempty" yaml:"instructions,omitempty"`
	Website          string          `json:"website,omitempty" bson:"website,omitempty" yaml:"website,omitempty"`
	Requirements     []string        `json:"requirements,omitempty" bson:"requirements,omitempty" yaml:"requirements,omitempty"`
	Questions        []Question      `json:"questions" bson:"questions" yaml:"questions"`
	CreatedAt        time.Time       `json:"createdAt" bson:"createdAt" yaml:"-"`
}

// OpportunitySummary is the list view of an opportunity, without question bodies
type OpportunitySummary struct {
	ID               string          `json:"id"`
	Kind             OpportunityKind `json:"kind"`
	Title            string          `json:"title"`
	Reward           float64         `json:"reward"`
	EstimatedMinutes int             `json:"estimatedMinutes"`
	Category         string          `json:"category"`
	Description      string          `json:"description"`
	QuestionCount    int             `json:"questionCount"`
	Completed        bool            `json:"completed"` // by the requesting user
}

// Summary builds the list view
func (o *Opportunity) Summary() OpportunitySummary {
	return OpportunitySummary{
		ID:               o.ID,
		Kind:             o.Kind,
		Title:            o.Title,
		Reward:           o.Reward,
		EstimatedMinutes: o.EstimatedMinutes,
		Category:         o.Category,
		Description:      o.Description,
		QuestionCount:    len(o.Questions),
	}
}

// CatalogQuery filters and orders the catalog list
type CatalogQuery struct {
	Kind     OpportunityKind
	Category string
	Search   string
	SortBy   string
	UserID   string // marks the items this user has completed
}

// CatalogPage is the response of a catalog listing
type CatalogPage struct {
	Items      []OpportunitySummary `json:"items"`
	Categories []string             `json:"categories"`
	Total      int                  `json:"total"`
}
