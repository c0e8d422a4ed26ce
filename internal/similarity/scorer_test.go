package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/flowsight/internal/feature"
	"github.com/fyrsmithlabs/flowsight/internal/workflow"
)

func vec(wfType string, durationDays, dealValue float64) feature.Vector {
	return feature.Extract(workflow.Record{
		ID:           "wf",
		Type:         wfType,
		DurationDays: durationDays,
		DealValue:    dealValue,
	})
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-9)
}

func TestScore_Symmetric(t *testing.T) {
	vectors := []feature.Vector{
		vec("demo", 20, 3000),
		vec("demo", 25, 3500),
		vec("renewal", 200, 200000),
		vec("onboarding", 95, 12000),
		vec("demo", 400, 50000),
	}
	s := NewScorer(DefaultWeights())

	for i := range vectors {
		for j := range vectors {
			assert.InDelta(t, s.Score(vectors[i], vectors[j]), s.Score(vectors[j], vectors[i]), 1e-12,
				"score must be symmetric for pair (%d,%d)", i, j)
		}
	}
}

func TestScore_InRange(t *testing.T) {
	s := NewScorer(DefaultWeights())
	a := vec("demo", 20, 3000)
	b := vec("renewal", 200, 200000)

	for _, pair := range [][2]feature.Vector{{a, a}, {a, b}, {b, b}} {
		score := s.Score(pair[0], pair[1])
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestScore_SameBucketsClearThreshold(t *testing.T) {
	// Same type, same duration bucket, same value bucket: 0.40+0.25+0.20.
	s := NewScorer(DefaultWeights())
	score := s.Score(vec("demo", 20, 3000), vec("demo", 25, 3500))
	assert.InDelta(t, 0.85, score, 1e-9)
}

func TestScore_CrossBucketStaysLow(t *testing.T) {
	s := NewScorer(DefaultWeights())
	score := s.Score(vec("demo", 20, 3000), vec("renewal", 200, 200000))
	// Only the cross-type floor contributes: 0.1 * 0.40.
	assert.InDelta(t, 0.04, score, 1e-9)
}

func TestDurationScore_Buckets(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"same short bucket", 5, 30, 1.0},
		{"adjacent buckets", 30, 31, 0.1},
		{"distant buckets", 20, 100, 0.0},
		{"open bucket close ratio", 200, 300, 1.0},
		{"open bucket far ratio", 200, 900, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, durationScore(tt.a, tt.b), 1e-9)
		})
	}
}

func TestValueScore_Buckets(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"same low bucket", 200, 900, 1.0},
		{"adjacent buckets", 1000, 1001, 0.1},
		{"distant buckets", 500, 20000, 0.0},
		{"top bucket close ratio", 100000, 150000, 1.0},
		{"top bucket far ratio", 20000, 200000, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, valueScore(tt.a, tt.b), 1e-9)
		})
	}
}

func TestActivityScore_Cosine(t *testing.T) {
	a := feature.ActivityPattern{Counts: map[string]int{"email": 3, "call": 4}}
	b := feature.ActivityPattern{Counts: map[string]int{"email": 3, "call": 4}}
	assert.InDelta(t, 1.0, activityScore(a, b), 1e-9)

	c := feature.ActivityPattern{Counts: map[string]int{"task": 7}}
	assert.InDelta(t, 0.0, activityScore(a, c), 1e-9)

	empty := feature.ActivityPattern{}
	assert.Zero(t, activityScore(a, empty))
}

func TestParticipantScore(t *testing.T) {
	a := feature.ParticipantProfile{Contacts: 2, Roles: map[string]int{"champion": 1, "ae": 1}}
	b := feature.ParticipantProfile{Contacts: 4, Roles: map[string]int{"champion": 1}}

	// contact ratio 0.5, role jaccard 0.5, companies absent on both sides.
	assert.InDelta(t, 0.5, participantScore(a, b), 1e-9)

	require.Zero(t, participantScore(feature.ParticipantProfile{}, feature.ParticipantProfile{}))
}
