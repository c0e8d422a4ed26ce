// Package feature turns heterogeneous workflow records into comparable
// feature vectors. Extraction is a total, deterministic function: malformed
// or absent record fields degrade to neutral defaults, never errors, and the
// same record always produces the same vector.
package feature

// StageFeature is one normalized stage in a vector's stage sequence.
type StageFeature struct {
	Name         string  `json:"name"`
	DurationDays float64 `json:"duration_days"`
}

// ActivityPattern summarizes a workflow's activity mix.
type ActivityPattern struct {
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
	UniqueTypes int            `json:"unique_types"`
	// Density is activities per elapsed day; 0 when the duration is unknown.
	Density     float64  `json:"density"`
	Issues      []string `json:"issues,omitempty"`
	PatternType string   `json:"pattern_type"`
}

// DurationProfile summarizes how a workflow spent its time.
type DurationProfile struct {
	TotalDays        float64            `json:"total_days"`
	StageDurations   map[string]float64 `json:"stage_durations,omitempty"`
	AverageStageDays float64            `json:"average_stage_days"`
	// Velocity is stages traversed per elapsed day.
	Velocity float64 `json:"velocity"`
}

// ParticipantProfile summarizes who was involved.
type ParticipantProfile struct {
	Contacts   int            `json:"contacts"`
	Companies  int            `json:"companies"`
	Internal   int            `json:"internal"`
	Roles      map[string]int `json:"roles,omitempty"`
	Engagement map[string]int `json:"engagement,omitempty"`
}

// ValueProfile summarizes the commercial shape of a workflow.
type ValueProfile struct {
	DealValue       float64 `json:"deal_value"`
	Bucket          string  `json:"bucket"`
	SuccessRate     float64 `json:"success_rate"`
	EfficiencyScore float64 `json:"efficiency_score"`
}

// Vector is the comparable representation of one workflow record.
type Vector struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowType string `json:"workflow_type"`
	// DurationDays mirrors the source record so the similarity scorer can
	// bucket on it without going back to the record.
	DurationDays float64 `json:"duration_days"`

	StageSequence       []StageFeature     `json:"stage_sequence,omitempty"`
	ActivityPattern     ActivityPattern    `json:"activity_pattern"`
	DurationProfile     DurationProfile    `json:"duration_profile"`
	ParticipantProfile  ParticipantProfile `json:"participant_profile"`
	ValueProfile        ValueProfile       `json:"value_profile"`
	NormalizedSignature string             `json:"normalized_signature"`
}
