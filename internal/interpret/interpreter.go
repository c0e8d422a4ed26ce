package interpret

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flowsight/internal/cluster"
	"github.com/fyrsmithlabs/flowsight/internal/pattern"
)

// defaultCallTimeout bounds each individual collaborator call. A timed-out
// interpretation is treated exactly like a failed one: fall back, never abort
// the run.
const defaultCallTimeout = 30 * time.Second

// Interpreter labels cluster summaries by asking the collaborator, falling
// back to a deterministic statistical pattern on any failure.
type Interpreter struct {
	client  LLMClient
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// InterpreterOption configures an Interpreter.
type InterpreterOption func(*Interpreter)

// WithCallTimeout overrides the per-call collaborator timeout.
func WithCallTimeout(d time.Duration) InterpreterOption {
	return func(i *Interpreter) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) InterpreterOption {
	return func(i *Interpreter) {
		if now != nil {
			i.now = now
		}
	}
}

// NewInterpreter creates an interpreter. The client may be a disabled one;
// every interpretation then takes the fallback path.
func NewInterpreter(client LLMClient, logger *zap.Logger, opts ...InterpreterOption) (*Interpreter, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	i := &Interpreter{
		client:  client,
		logger:  logger,
		timeout: defaultCallTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Interpret produces a Pattern for one cluster summary. It never fails: every
// collaborator or parse failure degrades to the deterministic fallback
// pattern. Confidence is clamped to [0,1] regardless of what the collaborator
// claims.
func (i *Interpreter) Interpret(ctx context.Context, sum cluster.Summary, org pattern.OrgContext) pattern.Pattern {
	outcome := i.requestInterpretation(ctx, sum, org)

	switch outcome.Kind {
	case OutcomeParsed:
		p := i.patternFromParsed(outcome.Pattern, sum)
		i.logger.Debug("interpreted cluster",
			zap.String("pattern_id", p.ID),
			zap.String("pattern_name", p.Name),
			zap.Float64("confidence", p.Confidence))
		return p

	case OutcomeUnparseable:
		i.logger.Warn("collaborator response unparseable, using fallback pattern",
			zap.Int("response_len", len(outcome.Raw)),
			zap.Error(outcome.Err))

	case OutcomeCollaboratorError:
		i.logger.Warn("collaborator call failed, using fallback pattern",
			zap.Error(outcome.Err))
	}

	return i.basicPattern(sum)
}

// requestInterpretation performs the collaborator call and classifies the
// result into an explicit parse outcome.
func (i *Interpreter) requestInterpretation(ctx context.Context, sum cluster.Summary, org pattern.OrgContext) parseOutcome {
	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	text, err := i.client.Complete(callCtx, buildPatternPrompt(sum, org))
	if err != nil {
		return parseOutcome{Kind: OutcomeCollaboratorError, Err: err}
	}
	return parseResponse(text)
}

// patternFromParsed builds a Pattern from a decoded collaborator response,
// filling every missing field from the statistical summary.
func (i *Interpreter) patternFromParsed(parsed *parsedPattern, sum cluster.Summary) pattern.Pattern {
	p := i.basicPattern(sum)
	p.Provenance = pattern.ProvenanceAI

	if parsed.PatternName != "" {
		p.Name = parsed.PatternName
	}
	if parsed.PatternType != "" {
		p.Type = parsed.PatternType
	}
	if parsed.Description != "" {
		p.Description = parsed.Description
	}
	if len(parsed.KeyCharacteristics) > 0 {
		p.KeyCharacteristics = parsed.KeyCharacteristics
	}
	if len(parsed.Bottlenecks) > 0 {
		p.Bottlenecks = parsed.Bottlenecks
	}
	if len(parsed.SuccessFactors) > 0 {
		p.SuccessFactors = parsed.SuccessFactors
	}
	if parsed.Confidence != nil {
		p.Confidence = clamp01(*parsed.Confidence)
	}
	return p
}

// basicPattern is the deterministic fallback: a pattern built purely from
// cluster statistics with fixed confidence and fallback provenance.
func (i *Interpreter) basicPattern(sum cluster.Summary) pattern.Pattern {
	name := "Workflow Pattern"
	if sum.DominantType != "" {
		name = fmt.Sprintf("Recurring %s Workflow", titleize(sum.DominantType))
	}

	p := pattern.Pattern{
		ID:            uuid.NewString(),
		Name:          name,
		Type:          sum.DominantType,
		Confidence:    pattern.FallbackConfidence,
		WorkflowCount: sum.Size,
		Description: fmt.Sprintf(
			"Group of %d similar workflows averaging %.1f days and %.0f in deal value, with a %.0f%% success rate.",
			sum.Size, sum.AvgDurationDays, sum.AvgDealValue, sum.SuccessRate*100),
		Benchmarks: pattern.BenchmarkMetrics{
			CycleTimeDays:   sum.AvgDurationDays,
			SuccessRate:     sum.SuccessRate,
			EfficiencyScore: efficiencyFromSummary(sum),
		},
		Provenance: pattern.ProvenanceFallback,
		CreatedAt:  i.now().UTC(),
	}

	if len(sum.CommonStages) > 0 {
		p.KeyCharacteristics = append(p.KeyCharacteristics,
			"common stages: "+strings.Join(sum.CommonStages, ", "))
	}
	for _, bn := range sum.Bottlenecks {
		p.Bottlenecks = append(p.Bottlenecks,
			fmt.Sprintf("%s averages %.1f days (severity %s)", bn.Stage, bn.AverageDays, bn.Severity))
	}
	for _, sf := range sum.SuccessFactors {
		p.SuccessFactors = append(p.SuccessFactors, fmt.Sprintf("%s: %s", sf.Name, sf.Description))
	}
	return p
}

// efficiencyFromSummary rates the cluster against the 90-day reference cycle
// used by the feature extractor, weighted by success rate.
func efficiencyFromSummary(sum cluster.Summary) float64 {
	if sum.AvgDurationDays <= 0 {
		return 0
	}
	speed := 90.0 / sum.AvgDurationDays
	if speed > 1 {
		speed = 1
	}
	return clamp01(speed * (0.5 + 0.5*sum.SuccessRate))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// titleize upper-cases the first letter of each underscore- or
// space-separated word.
func titleize(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
