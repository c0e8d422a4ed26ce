package interpret

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flowsight/internal/pattern"
)

// Insights asks the collaborator for cross-pattern observations over the full
// pattern set. Insight is additive value, never required for correctness:
// fewer than 2 patterns, a failed call, or an unparseable response all yield
// an empty list.
func (i *Interpreter) Insights(ctx context.Context, patterns []pattern.Pattern, org pattern.OrgContext) []pattern.Insight {
	if len(patterns) < 2 {
		return []pattern.Insight{}
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	text, err := i.client.Complete(callCtx, buildInsightPrompt(patterns, org))
	if err != nil {
		i.logger.Warn("insight aggregation failed, returning no insights", zap.Error(err))
		return []pattern.Insight{}
	}

	parsed, ok := parseInsightResponse(text)
	if !ok {
		i.logger.Warn("insight response unparseable, returning no insights",
			zap.Int("response_len", len(text)))
		return []pattern.Insight{}
	}

	insights := make([]pattern.Insight, 0, len(parsed))
	for _, in := range parsed {
		if in.Title == "" && in.Description == "" {
			continue
		}
		insights = append(insights, pattern.Insight{
			ID:          uuid.NewString(),
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
			CreatedAt:   i.now().UTC(),
		})
	}

	i.logger.Info("aggregated cross-pattern insights",
		zap.Int("patterns", len(patterns)),
		zap.Int("insights", len(insights)))

	return insights
}
