package feature

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/flowsight/internal/workflow"
)

// Activity issue tags. Multiple tags may apply to the same workflow; the
// last matching rule wins the single pattern_type label.
const (
	IssueLowEngagement        = "low_engagement"
	IssueRepetitiveActivities = "repetitive_activities"
	IssueCommunicationGaps    = "communication_gaps"
	IssueInefficientExecution = "inefficient_execution"

	issueNoActivities = "No activities recorded"
)

// Value bucket labels, thresholded on deal value.
const (
	BucketEnterprise = "enterprise"
	BucketMidMarket  = "mid_market"
	BucketSMB        = "smb"
	BucketSmall      = "small"
)

// Extract derives a feature vector from a workflow record. It never fails:
// incomplete records produce vectors with neutral defaults.
func Extract(rec workflow.Record) Vector {
	stages := stageSequence(rec)

	v := Vector{
		WorkflowID:         rec.ID,
		WorkflowType:       rec.Type,
		DurationDays:       rec.DurationDays,
		StageSequence:      stages,
		ActivityPattern:    activityPattern(rec),
		DurationProfile:    durationProfile(rec, stages),
		ParticipantProfile: participantProfile(rec),
		ValueProfile:       valueProfile(rec),
	}
	v.NormalizedSignature = signature(v)
	return v
}

// stageSequence sorts stages by their declared order and normalizes names.
func stageSequence(rec workflow.Record) []StageFeature {
	if len(rec.Stages) == 0 {
		return nil
	}

	sorted := make([]workflow.Stage, len(rec.Stages))
	copy(sorted, rec.Stages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	seq := make([]StageFeature, 0, len(sorted))
	for _, s := range sorted {
		seq = append(seq, StageFeature{
			Name:         NormalizeStageName(s.Name),
			DurationDays: s.DurationDays,
		})
	}
	return seq
}

// NormalizeStageName lower-cases a stage name and collapses every
// non-alphanumeric rune to an underscore, so "Closed Won" and "closed-won"
// compare equal across source CRMs.
func NormalizeStageName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func activityPattern(rec workflow.Record) ActivityPattern {
	p := ActivityPattern{Counts: map[string]int{}}

	for _, a := range rec.Activities {
		t := strings.ToLower(strings.TrimSpace(a.Type))
		if t == "" {
			t = "unknown"
		}
		p.Counts[t]++
		p.Total++
	}
	p.UniqueTypes = len(p.Counts)

	if p.Total == 0 {
		p.PatternType = IssueLowEngagement
		p.Issues = []string{issueNoActivities}
		return p
	}

	if rec.DurationDays > 0 {
		p.Density = float64(p.Total) / rec.DurationDays
	}

	// Observation rules, evaluated in order. All matches are recorded as
	// issues; the last match becomes the pattern_type label.
	flag := func(tag string) {
		p.Issues = append(p.Issues, tag)
		p.PatternType = tag
	}

	if p.Density < 0.1 {
		flag(IssueLowEngagement)
	}
	for _, n := range p.Counts {
		if float64(n) > 0.8*float64(p.Total) {
			flag(IssueRepetitiveActivities)
			break
		}
	}
	if p.Counts["email"] == 0 && p.Counts["call"] == 0 && p.Counts["meeting"] == 0 {
		flag(IssueCommunicationGaps)
	}
	if p.Density > 0.5 && rec.DurationDays > 200 {
		flag(IssueInefficientExecution)
	}

	if p.PatternType == "" {
		p.PatternType = "standard"
	}
	return p
}

func durationProfile(rec workflow.Record, stages []StageFeature) DurationProfile {
	d := DurationProfile{TotalDays: rec.DurationDays}
	if len(stages) > 0 {
		d.StageDurations = make(map[string]float64, len(stages))
		var sum float64
		for _, s := range stages {
			d.StageDurations[s.Name] += s.DurationDays
			sum += s.DurationDays
		}
		d.AverageStageDays = sum / float64(len(stages))
	}
	if rec.DurationDays > 0 {
		d.Velocity = float64(len(stages)) / rec.DurationDays
	}
	return d
}

func participantProfile(rec workflow.Record) ParticipantProfile {
	p := ParticipantProfile{}
	for _, part := range rec.Participants {
		switch part.Kind {
		case workflow.ParticipantContact:
			p.Contacts++
		case workflow.ParticipantCompany:
			p.Companies++
		case workflow.ParticipantInternal:
			p.Internal++
		}
		if part.Role != "" {
			if p.Roles == nil {
				p.Roles = map[string]int{}
			}
			p.Roles[strings.ToLower(part.Role)]++
		}
		if part.EngagementLevel != "" {
			if p.Engagement == nil {
				p.Engagement = map[string]int{}
			}
			p.Engagement[strings.ToLower(part.EngagementLevel)]++
		}
	}
	return p
}

func valueProfile(rec workflow.Record) ValueProfile {
	v := ValueProfile{
		DealValue: rec.DealValue,
		Bucket:    ValueBucket(rec.DealValue),
	}
	if rec.Successful() {
		v.SuccessRate = 1.0
	}
	v.EfficiencyScore = efficiencyScore(rec)
	return v
}

// ValueBucket maps a deal value to its market segment.
func ValueBucket(dealValue float64) string {
	switch {
	case dealValue >= 100000:
		return BucketEnterprise
	case dealValue >= 25000:
		return BucketMidMarket
	case dealValue >= 5000:
		return BucketSMB
	default:
		return BucketSmall
	}
}

// efficiencyScore rates execution speed against a 90-day reference cycle,
// halved for unsuccessful workflows. Always in [0,1].
func efficiencyScore(rec workflow.Record) float64 {
	if rec.DurationDays <= 0 {
		return 0
	}
	score := 90.0 / rec.DurationDays
	if score > 1 {
		score = 1
	}
	if !rec.Successful() {
		score /= 2
	}
	return score
}

// signature is a stable identity string for a vector, used for determinism
// checks and cache keys.
func signature(v Vector) string {
	parts := make([]string, 0, len(v.StageSequence)+2)
	parts = append(parts, strings.ToLower(v.WorkflowType), v.ValueProfile.Bucket)
	for _, s := range v.StageSequence {
		parts = append(parts, s.Name)
	}
	return strings.Join(parts, "|")
}
