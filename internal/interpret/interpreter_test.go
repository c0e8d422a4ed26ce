package interpret

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flowsight/internal/cluster"
	"github.com/fyrsmithlabs/flowsight/internal/pattern"
)

// fakeClient is a scripted collaborator.
type fakeClient struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testSummary() cluster.Summary {
	return cluster.Summary{
		Size:            4,
		DominantType:    "demo",
		AvgDurationDays: 22.5,
		AvgDealValue:    3250,
		SuccessRate:     0.75,
		CommonStages:    []string{"discovery", "proposal"},
		SampleMembers: []cluster.MemberPreview{
			{ID: "A", WorkflowType: "demo", DurationDays: 20, DealValue: 3000, Status: "won"},
		},
	}
}

func newTestInterpreter(t *testing.T, client LLMClient) *Interpreter {
	t.Helper()
	i, err := NewInterpreter(client, zap.NewNop())
	require.NoError(t, err)
	return i
}

func TestInterpret_ParsedResponse(t *testing.T) {
	client := &fakeClient{response: `Here you go:
{"pattern_name": "Demo Fast Track", "pattern_type": "demo_velocity", "confidence": 0.87,
 "description": "Short, high-touch demo cycles.", "key_characteristics": ["short cycle"],
 "bottlenecks": ["proposal stalls"], "success_factors": ["fast follow-up"]}`}

	p := newTestInterpreter(t, client).Interpret(context.Background(), testSummary(), pattern.OrgContext{})

	assert.Equal(t, pattern.ProvenanceAI, p.Provenance)
	assert.Equal(t, "Demo Fast Track", p.Name)
	assert.Equal(t, "demo_velocity", p.Type)
	assert.InDelta(t, 0.87, p.Confidence, 1e-9)
	assert.Equal(t, 4, p.WorkflowCount)
	assert.Equal(t, []string{"proposal stalls"}, p.Bottlenecks)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestInterpret_MissingFieldsFilledFromSummary(t *testing.T) {
	client := &fakeClient{response: `{"pattern_name": "Named Only"}`}

	p := newTestInterpreter(t, client).Interpret(context.Background(), testSummary(), pattern.OrgContext{})

	assert.Equal(t, pattern.ProvenanceAI, p.Provenance)
	assert.Equal(t, "Named Only", p.Name)
	// Everything the collaborator omitted comes from the statistics.
	assert.Equal(t, "demo", p.Type)
	assert.NotEmpty(t, p.Description)
	assert.InDelta(t, pattern.FallbackConfidence, p.Confidence, 1e-9)
	assert.InDelta(t, 22.5, p.Benchmarks.CycleTimeDays, 1e-9)
	assert.InDelta(t, 0.75, p.Benchmarks.SuccessRate, 1e-9)
}

func TestInterpret_ConfidenceClamped(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`{"pattern_name": "X", "confidence": 3.5}`, 1.0},
		{`{"pattern_name": "X", "confidence": -2}`, 0.0},
		{`{"pattern_name": "X", "confidence": 0.4}`, 0.4},
	}
	for _, tt := range tests {
		p := newTestInterpreter(t, &fakeClient{response: tt.raw}).
			Interpret(context.Background(), testSummary(), pattern.OrgContext{})
		assert.InDelta(t, tt.want, p.Confidence, 1e-9)
	}
}

func TestInterpret_CollaboratorErrorFallsBack(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream down")}

	p := newTestInterpreter(t, client).Interpret(context.Background(), testSummary(), pattern.OrgContext{})

	assert.Equal(t, pattern.ProvenanceFallback, p.Provenance)
	assert.InDelta(t, pattern.FallbackConfidence, p.Confidence, 1e-9)
	assert.Equal(t, "Recurring Demo Workflow", p.Name)
	assert.Equal(t, 4, p.WorkflowCount)
	assert.InDelta(t, 22.5, p.Benchmarks.CycleTimeDays, 1e-9)
}

func TestInterpret_UnparseableResponseFallsBack(t *testing.T) {
	client := &fakeClient{response: "I am unable to answer in the requested format."}

	p := newTestInterpreter(t, client).Interpret(context.Background(), testSummary(), pattern.OrgContext{})

	assert.Equal(t, pattern.ProvenanceFallback, p.Provenance)
}

func TestInterpret_DisabledClientFallsBack(t *testing.T) {
	client, err := NewLLMClient(Config{Provider: "disabled"})
	require.NoError(t, err)

	p := newTestInterpreter(t, client).Interpret(context.Background(), testSummary(), pattern.OrgContext{})

	assert.Equal(t, pattern.ProvenanceFallback, p.Provenance)
}

func TestInterpret_PromptCarriesOrgContext(t *testing.T) {
	client := &fakeClient{err: errors.New("irrelevant")}
	org := pattern.OrgContext{
		Industry:    "saas",
		Competitors: []string{"RivalCorp"},
		FocusAreas:  []string{"pipeline velocity"},
	}

	newTestInterpreter(t, client).Interpret(context.Background(), testSummary(), org)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "saas")
	assert.Contains(t, client.prompts[0], "RivalCorp")
	assert.Contains(t, client.prompts[0], "pipeline velocity")
}

func TestInsights_FewerThanTwoPatterns(t *testing.T) {
	client := &fakeClient{response: `[{"title": "x", "description": "y"}]`}
	i := newTestInterpreter(t, client)

	insights := i.Insights(context.Background(), []pattern.Pattern{{Name: "only"}}, pattern.OrgContext{})

	assert.Empty(t, insights)
	assert.Zero(t, client.calls, "collaborator must not be called for a single pattern")
}

func TestInsights_ParsesArray(t *testing.T) {
	client := &fakeClient{response: `Observations:
[{"title": "Shared stall", "description": "Both stall in negotiation.", "category": "bottleneck"}]`}
	i := newTestInterpreter(t, client)

	patterns := []pattern.Pattern{{Name: "a"}, {Name: "b"}}
	insights := i.Insights(context.Background(), patterns, pattern.OrgContext{})

	require.Len(t, insights, 1)
	assert.Equal(t, "Shared stall", insights[0].Title)
	assert.Equal(t, "bottleneck", insights[0].Category)
	assert.NotEmpty(t, insights[0].ID)
}

func TestInsights_FailureYieldsEmpty(t *testing.T) {
	for _, client := range []*fakeClient{
		{err: errors.New("upstream down")},
		{response: "no structure at all"},
	} {
		i := newTestInterpreter(t, client)
		insights := i.Insights(context.Background(), []pattern.Pattern{{Name: "a"}, {Name: "b"}}, pattern.OrgContext{})
		assert.Empty(t, insights)
	}
}

func TestWithCallTimeout(t *testing.T) {
	// A collaborator that honors context cancellation must be cut off by the
	// per-call timeout and land on the fallback path.
	slow := &slowClient{delay: 200 * time.Millisecond}
	i, err := NewInterpreter(slow, zap.NewNop(), WithCallTimeout(10*time.Millisecond))
	require.NoError(t, err)

	p := i.Interpret(context.Background(), testSummary(), pattern.OrgContext{})

	assert.Equal(t, pattern.ProvenanceFallback, p.Provenance)
}

type slowClient struct {
	delay time.Duration
}

func (s *slowClient) Complete(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(s.delay):
		return `{"pattern_name": "too late"}`, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestTitleize(t *testing.T) {
	assert.Equal(t, "Demo", titleize("demo"))
	assert.Equal(t, "Enterprise Renewal", titleize("enterprise_renewal"))
	assert.Equal(t, "", titleize(""))
}

func TestNewLLMClient_UnknownProvider(t *testing.T) {
	_, err := NewLLMClient(Config{Provider: "carrier-pigeon"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown provider"))
}
