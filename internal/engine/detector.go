// Package engine wires the pattern-detection pipeline: feature extraction,
// similarity clustering, cluster summarization, collaborator interpretation,
// and cross-pattern insight aggregation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flowsight/internal/cluster"
	"github.com/fyrsmithlabs/flowsight/internal/feature"
	"github.com/fyrsmithlabs/flowsight/internal/interpret"
	"github.com/fyrsmithlabs/flowsight/internal/pattern"
	"github.com/fyrsmithlabs/flowsight/internal/similarity"
	"github.com/fyrsmithlabs/flowsight/internal/workflow"
)

// DefaultConfidenceThreshold filters out patterns the collaborator itself is
// unsure about. Fallback patterns sit exactly at it and are kept.
const DefaultConfidenceThreshold = 0.6

// ErrNoWorkflows is returned when the input collection is empty: the one
// pipeline-level fault that fails the whole call.
var ErrNoWorkflows = errors.New("no workflow records to analyze")

// Options tune a detection run.
type Options struct {
	// SimilarityThreshold is the minimum score to join a cluster. Zero
	// selects cluster.DefaultThreshold.
	SimilarityThreshold float64

	// MinPatternSize is the smallest surviving cluster. Zero selects
	// cluster.DefaultMinPatternSize.
	MinPatternSize int

	// ConfidenceThreshold drops patterns below it. Zero selects
	// DefaultConfidenceThreshold.
	ConfidenceThreshold float64
}

// Metadata describes one detection run.
type Metadata struct {
	TotalWorkflows int                `json:"total_workflows"`
	PatternCount   int                `json:"pattern_count"`
	AnalyzedAt     time.Time          `json:"analyzed_at"`
	OrgContext     pattern.OrgContext `json:"org_context"`
}

// Result is the output of one detection run. Callers always receive a
// patterns/insights structure; degraded collaborator quality shows up as
// fallback patterns and empty insights, not as errors.
type Result struct {
	Patterns []pattern.Pattern `json:"patterns"`
	Insights []pattern.Insight `json:"insights"`
	Metadata Metadata          `json:"metadata"`
}

// Detector runs the full pipeline. Safe for sequential reuse; a Detector
// holds no per-run state. The optional cache is owned by the caller and
// passed in at construction, never process-global.
type Detector struct {
	clusterer           *cluster.Engine
	summarizer          *cluster.Summarizer
	interpreter         *interpret.Interpreter
	confidenceThreshold float64
	policy              cluster.SeverityPolicy
	cache               *Cache
	metrics             *Metrics
	logger              *zap.Logger
	now                 func() time.Time
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithCache attaches a caller-owned read-through result cache keyed by
// organization id.
func WithCache(c *Cache) DetectorOption {
	return func(d *Detector) { d.cache = c }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) DetectorOption {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// WithSeverityPolicy overrides the bottleneck severity policy. Severity
// calibration is org-specific; production callers supply their own benchmarks.
func WithSeverityPolicy(p cluster.SeverityPolicy) DetectorOption {
	return func(d *Detector) { d.policy = p }
}

// NewDetector assembles a detector around the given collaborator interpreter.
func NewDetector(interp *interpret.Interpreter, opts Options, logger *zap.Logger, detOpts ...DetectorOption) (*Detector, error) {
	if interp == nil {
		return nil, fmt.Errorf("interpreter cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	confidence := opts.ConfidenceThreshold
	if confidence == 0 {
		confidence = DefaultConfidenceThreshold
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence threshold must be between 0.0 and 1.0, got %f", confidence)
	}

	d := &Detector{
		interpreter:         interp,
		confidenceThreshold: confidence,
		metrics:             NewMetrics(logger),
		logger:              logger,
		now:                 time.Now,
	}
	for _, opt := range detOpts {
		opt(d)
	}

	scorer := similarity.NewScorer(similarity.DefaultWeights())
	clusterer, err := cluster.NewEngine(scorer, opts.SimilarityThreshold, opts.MinPatternSize, logger)
	if err != nil {
		return nil, fmt.Errorf("creating clustering engine: %w", err)
	}
	summarizer, err := cluster.NewSummarizer(d.policy, logger)
	if err != nil {
		return nil, fmt.Errorf("creating summarizer: %w", err)
	}

	d.clusterer = clusterer
	d.summarizer = summarizer
	return d, nil
}

// DetectPatterns runs the full pipeline over a workflow collection.
//
// The pipeline is forward-only: extractor output feeds the scorer and
// clusterer, summaries feed the interpreter, patterns feed the insight
// aggregator. Clusters are interpreted sequentially and each cluster's
// collaborator failure is isolated to its own fallback pattern. The output
// pattern list preserves cluster discovery order.
func (d *Detector) DetectPatterns(ctx context.Context, workflows []workflow.Record, org pattern.OrgContext) (*Result, error) {
	if len(workflows) == 0 {
		return nil, ErrNoWorkflows
	}

	if d.cache != nil && org.OrganizationID != "" {
		if cached, ok := d.cache.Get(org.OrganizationID); ok {
			d.metrics.RecordCacheLookup(ctx, true)
			d.logger.Debug("returning cached detection result",
				zap.String("organization_id", org.OrganizationID))
			return cached, nil
		}
		d.metrics.RecordCacheLookup(ctx, false)
	}

	start := d.now()

	members := make([]cluster.Member, 0, len(workflows))
	for _, rec := range workflows {
		members = append(members, cluster.Member{
			Record: rec,
			Vector: feature.Extract(rec),
		})
	}

	clusters := d.clusterer.Cluster(members)

	// Non-nil so the result always marshals "patterns" as an array.
	patterns := []pattern.Pattern{}
	var fallbacks int
	for _, c := range clusters {
		d.metrics.RecordCluster(ctx, c.Size())

		sum := d.summarizer.Summarize(c)
		p := d.interpreter.Interpret(ctx, sum, org)
		if p.Provenance == pattern.ProvenanceFallback {
			fallbacks++
			d.metrics.RecordFallback(ctx)
		}

		if p.Confidence < d.confidenceThreshold {
			d.logger.Debug("dropping low-confidence pattern",
				zap.String("pattern_id", p.ID),
				zap.Float64("confidence", p.Confidence))
			continue
		}
		patterns = append(patterns, p)
	}

	insights := d.interpreter.Insights(ctx, patterns, org)

	result := &Result{
		Patterns: patterns,
		Insights: insights,
		Metadata: Metadata{
			TotalWorkflows: len(workflows),
			PatternCount:   len(patterns),
			AnalyzedAt:     d.now().UTC(),
			OrgContext:     org,
		},
	}

	elapsed := d.now().Sub(start)
	d.metrics.RecordDetection(ctx, elapsed, len(workflows), len(patterns))
	d.logger.Info("pattern detection completed",
		zap.Int("workflows", len(workflows)),
		zap.Int("clusters", len(clusters)),
		zap.Int("patterns", len(patterns)),
		zap.Int("fallback_patterns", fallbacks),
		zap.Int("insights", len(insights)),
		zap.Duration("elapsed", elapsed))

	if d.cache != nil && org.OrganizationID != "" {
		d.cache.Put(org.OrganizationID, result)
	}

	return result, nil
}
