package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flowsight/internal/feature"
	"github.com/fyrsmithlabs/flowsight/internal/workflow"
)

func summarizerMember(rec workflow.Record) Member {
	return Member{Record: rec, Vector: feature.Extract(rec)}
}

func newTestSummarizer(t *testing.T, policy SeverityPolicy) *Summarizer {
	t.Helper()
	s, err := NewSummarizer(policy, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestSummarize_Basics(t *testing.T) {
	c := Cluster{Members: []Member{
		summarizerMember(workflow.Record{ID: "A", Type: "demo", DurationDays: 20, DealValue: 3000, Status: workflow.StatusWon}),
		summarizerMember(workflow.Record{ID: "B", Type: "demo", DurationDays: 30, DealValue: 5000, Status: workflow.StatusLost}),
	}}

	sum := newTestSummarizer(t, nil).Summarize(c)

	assert.Equal(t, 2, sum.Size)
	assert.Equal(t, "demo", sum.DominantType)
	assert.InDelta(t, 25.0, sum.AvgDurationDays, 1e-9)
	assert.InDelta(t, 4000.0, sum.AvgDealValue, 1e-9)
	assert.InDelta(t, 0.5, sum.SuccessRate, 1e-9)
	assert.Len(t, sum.SampleMembers, 2)
}

func TestSummarize_SuccessPredicate(t *testing.T) {
	tests := []struct {
		name string
		rec  workflow.Record
		want bool
	}{
		{"won status", workflow.Record{Status: workflow.StatusWon}, true},
		{"completed status", workflow.Record{Status: workflow.StatusCompleted}, true},
		{"lost status", workflow.Record{Status: workflow.StatusLost}, false},
		{
			"closed-won stage",
			workflow.Record{Status: workflow.StatusLost, Stages: []workflow.Stage{{Name: "Closed Won"}}},
			true,
		},
		{
			"active with metadata and value",
			workflow.Record{Status: workflow.StatusActive, DealValue: 100, CRMMetadata: map[string]string{"source": "hubspot"}},
			true,
		},
		{
			"active without metadata",
			workflow.Record{Status: workflow.StatusActive, DealValue: 100},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Successful())
		})
	}
}

func TestSummarize_CommonStages(t *testing.T) {
	discovery := []workflow.Stage{{Name: "Discovery", Order: 1, DurationDays: 5}}
	withProposal := []workflow.Stage{
		{Name: "Discovery", Order: 1, DurationDays: 5},
		{Name: "Proposal", Order: 2, DurationDays: 10},
	}

	c := Cluster{Members: []Member{
		summarizerMember(workflow.Record{ID: "A", Stages: withProposal}),
		summarizerMember(workflow.Record{ID: "B", Stages: withProposal}),
		summarizerMember(workflow.Record{ID: "C", Stages: discovery}),
		summarizerMember(workflow.Record{ID: "D", Stages: discovery}),
	}}

	sum := newTestSummarizer(t, nil).Summarize(c)

	// discovery appears in 4/4, proposal in 2/4: both meet the 50% bar.
	assert.Equal(t, []string{"discovery", "proposal"}, sum.CommonStages)

	// Drop one proposal member: 1/3 falls under 50%.
	c.Members = c.Members[1:]
	sum = newTestSummarizer(t, nil).Summarize(c)
	assert.Equal(t, []string{"discovery"}, sum.CommonStages)
}

func TestSummarize_CommonActivities(t *testing.T) {
	c := Cluster{Members: []Member{
		summarizerMember(workflow.Record{ID: "A", DurationDays: 10, Activities: []workflow.Activity{
			{Type: "email"}, {Type: "email"}, {Type: "call"},
		}}),
		summarizerMember(workflow.Record{ID: "B", DurationDays: 10, Activities: []workflow.Activity{
			{Type: "email"},
		}}),
	}}

	sum := newTestSummarizer(t, nil).Summarize(c)

	assert.Equal(t, map[string]int{"email": 3, "call": 1}, sum.CommonActivities)
}

func TestSummarize_Bottlenecks(t *testing.T) {
	slowNegotiation := []workflow.Stage{
		{Name: "Discovery", Order: 1, DurationDays: 5},
		{Name: "Negotiation", Order: 2, DurationDays: 45},
	}
	slowerNegotiation := []workflow.Stage{
		{Name: "Discovery", Order: 1, DurationDays: 6},
		{Name: "Negotiation", Order: 2, DurationDays: 55},
	}

	c := Cluster{Members: []Member{
		summarizerMember(workflow.Record{ID: "A", Stages: slowNegotiation}),
		summarizerMember(workflow.Record{ID: "B", Stages: slowerNegotiation}),
	}}

	sum := newTestSummarizer(t, nil).Summarize(c)

	require.Len(t, sum.Bottlenecks, 1)
	bn := sum.Bottlenecks[0]
	assert.Equal(t, "negotiation", bn.Stage)
	assert.InDelta(t, 50.0, bn.AverageDays, 1e-9)
	assert.Equal(t, "medium", bn.Severity)
	assert.Equal(t, 2, bn.Occurrences)
}

func TestSummarize_CustomSeverityPolicy(t *testing.T) {
	c := Cluster{Members: []Member{
		summarizerMember(workflow.Record{ID: "A", Stages: []workflow.Stage{{Name: "Discovery", DurationDays: 5}}}),
		summarizerMember(workflow.Record{ID: "B", Stages: []workflow.Stage{{Name: "Discovery", DurationDays: 7}}}),
	}}

	strict := ThresholdPolicy{MaxAverageDays: 1, MaxVariance: 0.1}
	sum := newTestSummarizer(t, strict).Summarize(c)

	require.Len(t, sum.Bottlenecks, 1)
	assert.Equal(t, "discovery", sum.Bottlenecks[0].Stage)
}

func TestSummarize_FastExecutionFactor(t *testing.T) {
	// Successful members average 10 days, unsuccessful 20: well past the
	// 0.8 ratio threshold.
	c := Cluster{Members: []Member{
		summarizerMember(workflow.Record{ID: "A", DurationDays: 9, Status: workflow.StatusWon}),
		summarizerMember(workflow.Record{ID: "B", DurationDays: 10, Status: workflow.StatusWon}),
		summarizerMember(workflow.Record{ID: "C", DurationDays: 11, Status: workflow.StatusCompleted}),
		summarizerMember(workflow.Record{ID: "D", DurationDays: 19, Status: workflow.StatusLost}),
		summarizerMember(workflow.Record{ID: "E", DurationDays: 21, Status: workflow.StatusLost}),
	}}

	sum := newTestSummarizer(t, nil).Summarize(c)

	require.Len(t, sum.SuccessFactors, 1)
	sf := sum.SuccessFactors[0]
	assert.Equal(t, "Fast Execution", sf.Name)
	assert.InDelta(t, 10.0, sf.SuccessfulMean, 1e-9)
	assert.InDelta(t, 20.0, sf.UnsuccessfulMean, 1e-9)
}

func TestSummarize_MultiThreadingFactor(t *testing.T) {
	crowd := make([]workflow.Participant, 4)
	for i := range crowd {
		crowd[i] = workflow.Participant{Kind: workflow.ParticipantContact, Role: "stakeholder"}
	}
	solo := []workflow.Participant{{Kind: workflow.ParticipantContact, Role: "contact"}}

	// Equal durations so only the participant comparison fires.
	c := Cluster{Members: []Member{
		summarizerMember(workflow.Record{ID: "A", DurationDays: 30, Participants: crowd, Status: workflow.StatusWon}),
		summarizerMember(workflow.Record{ID: "B", DurationDays: 30, Participants: crowd, Status: workflow.StatusWon}),
		summarizerMember(workflow.Record{ID: "C", DurationDays: 30, Participants: solo, Status: workflow.StatusLost}),
	}}

	sum := newTestSummarizer(t, nil).Summarize(c)

	require.Len(t, sum.SuccessFactors, 1)
	assert.Equal(t, "Multi-threading", sum.SuccessFactors[0].Name)
}

func TestSummarize_NoFactorsWithoutBothSubsets(t *testing.T) {
	c := Cluster{Members: []Member{
		summarizerMember(workflow.Record{ID: "A", DurationDays: 10, Status: workflow.StatusWon}),
		summarizerMember(workflow.Record{ID: "B", DurationDays: 50, Status: workflow.StatusWon}),
	}}

	sum := newTestSummarizer(t, nil).Summarize(c)
	assert.Empty(t, sum.SuccessFactors)
}

func TestSummarize_SampleMembersBounded(t *testing.T) {
	var members []Member
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		members = append(members, summarizerMember(workflow.Record{ID: id, Type: "demo"}))
	}

	sum := newTestSummarizer(t, nil).Summarize(Cluster{Members: members})

	require.Len(t, sum.SampleMembers, 3)
	assert.Equal(t, "A", sum.SampleMembers[0].ID)
}
