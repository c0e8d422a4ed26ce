package cluster

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// sampleMemberLimit bounds the member preview embedded in a summary (and
// forwarded to the interpretation prompt).
const sampleMemberLimit = 3

// commonStageFraction is the membership fraction a stage needs to count as
// common to the cluster.
const commonStageFraction = 0.5

// Ratio thresholds for naming success factors. A factor is only emitted when
// the successful subset differs from the unsuccessful one by at least this
// much, both subsets being non-empty.
const (
	fastExecutionRatio  = 0.8 // successful avg duration < 0.8x unsuccessful
	multiThreadingRatio = 1.2 // successful avg participants > 1.2x unsuccessful
)

// Bottleneck is a stage whose duration statistics stand out within a cluster.
type Bottleneck struct {
	Stage       string  `json:"stage"`
	AverageDays float64 `json:"average_days"`
	Variance    float64 `json:"variance"`
	Occurrences int     `json:"occurrences"`
	Severity    string  `json:"severity"`
}

// SuccessFactor is a statistically observed difference between successful and
// unsuccessful cluster members.
type SuccessFactor struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	SuccessfulMean   float64 `json:"successful_mean"`
	UnsuccessfulMean float64 `json:"unsuccessful_mean"`
}

// MemberPreview is a bounded view of one member for prompts and reports.
type MemberPreview struct {
	ID           string  `json:"id"`
	WorkflowType string  `json:"workflow_type"`
	DurationDays float64 `json:"duration_days"`
	DealValue    float64 `json:"deal_value"`
	Status       string  `json:"status"`
}

// Summary is the statistical profile of one cluster.
type Summary struct {
	Size             int             `json:"size"`
	DominantType     string          `json:"dominant_type"`
	AvgDurationDays  float64         `json:"avg_duration_days"`
	AvgDealValue     float64         `json:"avg_deal_value"`
	SuccessRate      float64         `json:"success_rate"`
	CommonStages     []string        `json:"common_stages,omitempty"`
	CommonActivities map[string]int  `json:"common_activities,omitempty"`
	Bottlenecks      []Bottleneck    `json:"bottlenecks,omitempty"`
	SuccessFactors   []SuccessFactor `json:"success_factors,omitempty"`
	SampleMembers    []MemberPreview `json:"sample_members,omitempty"`
}

// SeverityPolicy decides whether a stage's duration statistics are anomalous
// enough to flag, and how severe the anomaly is. Severity calibration is
// org-specific, so the engine takes the policy from the caller instead of
// hard-coding universal day thresholds.
type SeverityPolicy interface {
	Classify(stage string, averageDays, variance float64) (severity string, flag bool)
}

// ThresholdPolicy flags stages whose average duration or variance exceeds a
// fixed limit, always labelling them "medium". It is the stand-in until real
// org benchmarks exist.
type ThresholdPolicy struct {
	MaxAverageDays float64
	MaxVariance    float64
}

// DefaultSeverityPolicy returns the stock threshold policy.
func DefaultSeverityPolicy() ThresholdPolicy {
	return ThresholdPolicy{MaxAverageDays: 30, MaxVariance: 400}
}

// Classify implements SeverityPolicy.
func (p ThresholdPolicy) Classify(_ string, averageDays, variance float64) (string, bool) {
	if averageDays > p.MaxAverageDays || variance > p.MaxVariance {
		return "medium", true
	}
	return "", false
}

// Summarizer aggregates clusters into statistical summaries.
type Summarizer struct {
	policy SeverityPolicy
	logger *zap.Logger
}

// NewSummarizer creates a summarizer. A nil policy selects the default
// threshold policy.
func NewSummarizer(policy SeverityPolicy, logger *zap.Logger) (*Summarizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if policy == nil {
		policy = DefaultSeverityPolicy()
	}
	return &Summarizer{policy: policy, logger: logger}, nil
}

// Summarize computes the statistical profile of a cluster. Deterministic:
// all derived lists are sorted.
func (s *Summarizer) Summarize(c Cluster) Summary {
	sum := Summary{Size: c.Size()}
	if sum.Size == 0 {
		return sum
	}

	var totalDuration, totalValue float64
	var successes int
	typeCounts := map[string]int{}

	for _, m := range c.Members {
		totalDuration += m.Record.DurationDays
		totalValue += m.Record.DealValue
		typeCounts[m.Record.Type]++
		if m.Record.Successful() {
			successes++
		}
	}

	n := float64(sum.Size)
	sum.AvgDurationDays = totalDuration / n
	sum.AvgDealValue = totalValue / n
	sum.SuccessRate = float64(successes) / n
	sum.DominantType = dominantKey(typeCounts)
	sum.CommonStages = s.commonStages(c)
	sum.CommonActivities = commonActivities(c)
	sum.Bottlenecks = s.bottlenecks(c)
	sum.SuccessFactors = successFactors(c)

	limit := sampleMemberLimit
	if limit > sum.Size {
		limit = sum.Size
	}
	for _, m := range c.Members[:limit] {
		sum.SampleMembers = append(sum.SampleMembers, MemberPreview{
			ID:           m.Record.ID,
			WorkflowType: m.Record.Type,
			DurationDays: m.Record.DurationDays,
			DealValue:    m.Record.DealValue,
			Status:       string(m.Record.Status),
		})
	}

	s.logger.Debug("summarized cluster",
		zap.Int("size", sum.Size),
		zap.String("dominant_type", sum.DominantType),
		zap.Float64("success_rate", sum.SuccessRate),
		zap.Int("bottlenecks", len(sum.Bottlenecks)))

	return sum
}

// commonStages returns normalized stage names present in at least half the
// cluster, sorted for stable output.
func (s *Summarizer) commonStages(c Cluster) []string {
	presence := map[string]int{}
	for _, m := range c.Members {
		seen := map[string]bool{}
		for _, st := range m.Vector.StageSequence {
			if !seen[st.Name] {
				seen[st.Name] = true
				presence[st.Name]++
			}
		}
	}

	need := commonStageFraction * float64(c.Size())
	var common []string
	for name, count := range presence {
		if float64(count) >= need {
			common = append(common, name)
		}
	}
	sort.Strings(common)
	return common
}

// commonActivities is the raw activity-type frequency map across the cluster.
func commonActivities(c Cluster) map[string]int {
	freq := map[string]int{}
	for _, m := range c.Members {
		for t, n := range m.Vector.ActivityPattern.Counts {
			freq[t] += n
		}
	}
	if len(freq) == 0 {
		return nil
	}
	return freq
}

// bottlenecks computes per-stage duration mean and variance across members
// and flags the stages the severity policy objects to.
func (s *Summarizer) bottlenecks(c Cluster) []Bottleneck {
	durations := map[string][]float64{}
	for _, m := range c.Members {
		for _, st := range m.Vector.StageSequence {
			durations[st.Name] = append(durations[st.Name], st.DurationDays)
		}
	}

	names := make([]string, 0, len(durations))
	for name := range durations {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Bottleneck
	for _, name := range names {
		mean, variance := meanVariance(durations[name])
		severity, flag := s.policy.Classify(name, mean, variance)
		if !flag {
			continue
		}
		out = append(out, Bottleneck{
			Stage:       name,
			AverageDays: mean,
			Variance:    variance,
			Occurrences: len(durations[name]),
			Severity:    severity,
		})
	}
	return out
}

// successFactors compares the successful and unsuccessful member subsets.
// Factors are only named when both subsets exist and their means differ by
// the fixed ratio thresholds.
func successFactors(c Cluster) []SuccessFactor {
	var okDur, badDur, okPart, badPart []float64
	for _, m := range c.Members {
		participants := float64(len(m.Record.Participants))
		if m.Record.Successful() {
			okDur = append(okDur, m.Record.DurationDays)
			okPart = append(okPart, participants)
		} else {
			badDur = append(badDur, m.Record.DurationDays)
			badPart = append(badPart, participants)
		}
	}
	if len(okDur) == 0 || len(badDur) == 0 {
		return nil
	}

	var factors []SuccessFactor

	okMean, _ := meanVariance(okDur)
	badMean, _ := meanVariance(badDur)
	if badMean > 0 && okMean < fastExecutionRatio*badMean {
		factors = append(factors, SuccessFactor{
			Name: "Fast Execution",
			Description: fmt.Sprintf("successful workflows close in %.1f days vs %.1f for unsuccessful ones",
				okMean, badMean),
			SuccessfulMean:   okMean,
			UnsuccessfulMean: badMean,
		})
	}

	okPartMean, _ := meanVariance(okPart)
	badPartMean, _ := meanVariance(badPart)
	if badPartMean > 0 && okPartMean > multiThreadingRatio*badPartMean {
		factors = append(factors, SuccessFactor{
			Name: "Multi-threading",
			Description: fmt.Sprintf("successful workflows involve %.1f participants vs %.1f for unsuccessful ones",
				okPartMean, badPartMean),
			SuccessfulMean:   okPartMean,
			UnsuccessfulMean: badPartMean,
		})
	}

	return factors
}

func meanVariance(values []float64) (mean, variance float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, variance
}

func dominantKey(counts map[string]int) string {
	var best string
	bestN := -1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}
