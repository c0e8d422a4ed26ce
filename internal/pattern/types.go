// Package pattern holds the output types of a detection run: patterns,
// cross-pattern insights, and the organization context that frames the
// interpretation prompts.
package pattern

import "time"

// Provenance records how a pattern was produced.
type Provenance string

const (
	// ProvenanceAI marks patterns labelled by the text-generation collaborator.
	ProvenanceAI Provenance = "ai_interpreted"

	// ProvenanceFallback marks patterns built deterministically from cluster
	// statistics after a collaborator failure.
	ProvenanceFallback Provenance = "fallback_basic"
)

// FallbackConfidence is the fixed confidence assigned to deterministic
// fallback patterns.
const FallbackConfidence = 0.6

// BenchmarkMetrics are the measurable baselines of a pattern.
type BenchmarkMetrics struct {
	CycleTimeDays   float64 `json:"cycle_time_days"`
	SuccessRate     float64 `json:"success_rate"`
	EfficiencyScore float64 `json:"efficiency_score"`
}

// Pattern is the human-interpretable profile attached to one cluster.
// Patterns are created once per surviving cluster per run and never mutated
// afterwards; persistence, if any, is the caller's business.
type Pattern struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Type               string           `json:"type"`
	Confidence         float64          `json:"confidence"`
	WorkflowCount      int              `json:"workflow_count"`
	Description        string           `json:"description"`
	KeyCharacteristics []string         `json:"key_characteristics,omitempty"`
	Bottlenecks        []string         `json:"bottlenecks,omitempty"`
	SuccessFactors     []string         `json:"success_factors,omitempty"`
	Benchmarks         BenchmarkMetrics `json:"benchmark_metrics"`
	Provenance         Provenance       `json:"provenance"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Insight is a cross-pattern observation produced once per run from the full
// pattern set.
type Insight struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrgContext is caller-supplied organization context. It only frames the
// interpretation prompts; no field is structurally required.
type OrgContext struct {
	OrganizationID string `json:"organization_id,omitempty"`
	Industry       string `json:"industry,omitempty"`
	CompanySize    string `json:"company_size,omitempty"`
	SalesModel     string `json:"sales_model,omitempty"`
	Notes          string `json:"notes,omitempty"`

	// Prompt-safety context: the collaborator is told to avoid recommending
	// competitor tooling and to stay inside the org's focus areas.
	Competitors []string `json:"competitors,omitempty"`
	OurProducts []string `json:"our_products,omitempty"`
	FocusAreas  []string `json:"focus_areas,omitempty"`
}
