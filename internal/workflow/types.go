// Package workflow defines the CRM workflow records the pattern engine
// consumes. Records arrive from external connectors and are frequently
// incomplete; every consumer in this module must tolerate missing fields.
package workflow

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a workflow as reported by the source CRM.
type Status string

const (
	StatusActive    Status = "active"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusCompleted Status = "completed"
)

// Stage is one step of a workflow's pipeline.
type Stage struct {
	Name         string  `json:"name"`
	Order        int     `json:"order"`
	DurationDays float64 `json:"duration_days"`
}

// Activity is a single logged interaction (email, call, meeting, ...).
type Activity struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ParticipantKind distinguishes external contacts, external companies, and
// internal team members.
type ParticipantKind string

const (
	ParticipantContact  ParticipantKind = "contact"
	ParticipantCompany  ParticipantKind = "company"
	ParticipantInternal ParticipantKind = "internal"
)

// Participant is someone attached to a workflow.
type Participant struct {
	Kind            ParticipantKind `json:"kind"`
	Role            string          `json:"role"`
	EngagementLevel string          `json:"engagement_level"`
}

// Record is a single CRM deal or process instance. Fields map 1:1 to the
// connector export format and are immutable during an analysis run.
type Record struct {
	ID           string            `json:"id"`
	Type         string            `json:"workflow_type"`
	Stages       []Stage           `json:"stages,omitempty"`
	Activities   []Activity        `json:"activities,omitempty"`
	Participants []Participant     `json:"participants,omitempty"`
	DealValue    float64           `json:"deal_value"`
	DurationDays float64           `json:"duration_days"`
	Status       Status            `json:"status"`
	CRMMetadata  map[string]string `json:"crm_metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Successful reports whether this workflow counts as a success.
//
// The predicate is deliberately permissive because "success" is not uniformly
// recorded across source systems: a terminal won/completed status, a
// closed-won stage, or a live deal with CRM metadata and real value all
// qualify.
func (r Record) Successful() bool {
	if r.Status == StatusCompleted || r.Status == StatusWon {
		return true
	}
	for _, s := range r.Stages {
		name := strings.ToLower(s.Name)
		if strings.Contains(name, "closed") && strings.Contains(name, "won") {
			return true
		}
	}
	if len(r.CRMMetadata) > 0 && r.DealValue > 0 && r.Status == StatusActive {
		return true
	}
	return false
}
