// Package similarity scores pairs of workflow feature vectors.
//
// The score is a weighted sum of independent sub-scores. Duration and deal
// value are compared through strict buckets rather than raw distance: this
// keeps a small-deal short-cycle workflow from clustering with an enterprise
// long-cycle one just because their activity mix looks alike. Cross-bucket
// comparisons are suppressed to a small floor instead of zero so edge cases
// near bucket boundaries are not totally isolated.
package similarity

import (
	"math"

	"github.com/fyrsmithlabs/flowsight/internal/feature"
)

// crossBucketFloor is the residual score for near-miss comparisons
// (mismatched workflow types, adjacent duration/value buckets).
const crossBucketFloor = 0.1

// Weights control the contribution of each sub-score. They must sum to 1.0.
type Weights struct {
	WorkflowType float64
	Duration     float64
	Value        float64
	Activity     float64
	Participant  float64
}

// DefaultWeights is the tuned production weighting: workflow type dominates,
// activity and participant mix only break ties.
func DefaultWeights() Weights {
	return Weights{
		WorkflowType: 0.40,
		Duration:     0.25,
		Value:        0.20,
		Activity:     0.10,
		Participant:  0.05,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.WorkflowType + w.Duration + w.Value + w.Activity + w.Participant
}

// Scorer computes pairwise similarity between feature vectors.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights. Zero weights fall back
// to DefaultWeights.
func NewScorer(weights Weights) *Scorer {
	if weights.Sum() == 0 {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score returns the similarity of two vectors in [0,1]. It is symmetric:
// Score(a,b) == Score(b,a).
func (s *Scorer) Score(a, b feature.Vector) float64 {
	score := s.weights.WorkflowType*typeScore(a, b) +
		s.weights.Duration*durationScore(a.DurationDays, b.DurationDays) +
		s.weights.Value*valueScore(a.ValueProfile.DealValue, b.ValueProfile.DealValue) +
		s.weights.Activity*activityScore(a.ActivityPattern, b.ActivityPattern) +
		s.weights.Participant*participantScore(a.ParticipantProfile, b.ParticipantProfile)

	// Guard against float drift at the boundaries.
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// typeScore penalizes cross-type comparison without fully zeroing it.
func typeScore(a, b feature.Vector) float64 {
	if a.WorkflowType == b.WorkflowType {
		return 1.0
	}
	return crossBucketFloor
}

// durationBucket classifies a cycle length into one of four strict ranges.
func durationBucket(days float64) int {
	switch {
	case days <= 30:
		return 0
	case days <= 90:
		return 1
	case days <= 180:
		return 2
	default:
		return 3
	}
}

// durationScore compares duration buckets. The open-ended >180d bucket has no
// upper bound, so same-bucket matches there additionally require the shorter
// duration to be more than half the longer one.
func durationScore(a, b float64) float64 {
	ba, bb := durationBucket(a), durationBucket(b)
	if ba == bb {
		if ba == 3 {
			if ratio(a, b) > 0.5 {
				return 1.0
			}
			return 0
		}
		return 1.0
	}
	if abs(ba-bb) == 1 {
		return crossBucketFloor
	}
	return 0
}

// valueBucket classifies deal value for scoring. These ranges are finer than
// the extractor's market-segment buckets on purpose: scoring needs to keep
// small deals apart from each other, not label them.
func valueBucket(value float64) int {
	switch {
	case value <= 1000:
		return 0
	case value <= 5000:
		return 1
	case value <= 15000:
		return 2
	default:
		return 3
	}
}

func valueScore(a, b float64) float64 {
	ba, bb := valueBucket(a), valueBucket(b)
	if ba == bb {
		if ba == 3 {
			if ratio(a, b) > 0.6 {
				return 1.0
			}
			return 0
		}
		return 1.0
	}
	if abs(ba-bb) == 1 {
		return crossBucketFloor
	}
	return 0
}

// activityScore is the cosine similarity of the per-type activity count
// vectors, taken over the union of activity types.
func activityScore(a, b feature.ActivityPattern) float64 {
	if len(a.Counts) == 0 || len(b.Counts) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for t, ca := range a.Counts {
		dot += float64(ca) * float64(b.Counts[t])
		normA += float64(ca) * float64(ca)
	}
	for _, cb := range b.Counts {
		normB += float64(cb) * float64(cb)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// participantScore averages whichever participant sub-components are present
// on either side: contact-count ratio, company-count ratio, and role-set
// Jaccard index. Returns 0 when neither vector carries participant data.
func participantScore(a, b feature.ParticipantProfile) float64 {
	var sum float64
	var parts int

	if a.Contacts > 0 || b.Contacts > 0 {
		sum += countRatio(a.Contacts, b.Contacts)
		parts++
	}
	if a.Companies > 0 || b.Companies > 0 {
		sum += countRatio(a.Companies, b.Companies)
		parts++
	}
	if len(a.Roles) > 0 || len(b.Roles) > 0 {
		sum += roleJaccard(a.Roles, b.Roles)
		parts++
	}

	if parts == 0 {
		return 0
	}
	return sum / float64(parts)
}

func countRatio(a, b int) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return float64(lo) / float64(hi)
}

func roleJaccard(a, b map[string]int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var intersection, union int
	for r := range a {
		union++
		if _, ok := b[r]; ok {
			intersection++
		}
	}
	for r := range b {
		if _, ok := a[r]; !ok {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ratio is smaller/larger, 0 when either value is non-positive.
func ratio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	return a / b
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
