package interpret

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/flowsight/internal/cluster"
	"github.com/fyrsmithlabs/flowsight/internal/pattern"
)

// buildPatternPrompt frames one cluster's statistics as a natural-language
// request for a JSON-shaped pattern interpretation.
func buildPatternPrompt(sum cluster.Summary, org pattern.OrgContext) string {
	var b strings.Builder

	b.WriteString("You are a business-workflow analyst. A group of similar CRM workflows has been ")
	b.WriteString("identified; interpret the group as a recurring operational pattern.\n\n")

	writeOrgContext(&b, org)

	b.WriteString("## Cluster Statistics\n\n")
	fmt.Fprintf(&b, "- Workflows: %d (dominant type: %s)\n", sum.Size, sum.DominantType)
	fmt.Fprintf(&b, "- Average cycle time: %.1f days\n", sum.AvgDurationDays)
	fmt.Fprintf(&b, "- Average deal value: %.0f\n", sum.AvgDealValue)
	fmt.Fprintf(&b, "- Success rate: %.0f%%\n", sum.SuccessRate*100)

	if len(sum.CommonStages) > 0 {
		fmt.Fprintf(&b, "- Common stages: %s\n", strings.Join(sum.CommonStages, ", "))
	}
	if len(sum.CommonActivities) > 0 {
		fmt.Fprintf(&b, "- Activity mix: %s\n", formatFrequency(sum.CommonActivities))
	}
	for _, bn := range sum.Bottlenecks {
		fmt.Fprintf(&b, "- Bottleneck: stage %q averages %.1f days (variance %.1f, severity %s)\n",
			bn.Stage, bn.AverageDays, bn.Variance, bn.Severity)
	}
	for _, sf := range sum.SuccessFactors {
		fmt.Fprintf(&b, "- Observed success factor: %s (%s)\n", sf.Name, sf.Description)
	}

	if len(sum.SampleMembers) > 0 {
		b.WriteString("\n## Sample Workflows\n\n")
		for _, m := range sum.SampleMembers {
			fmt.Fprintf(&b, "- %s: type=%s duration=%.0fd value=%.0f status=%s\n",
				m.ID, m.WorkflowType, m.DurationDays, m.DealValue, m.Status)
		}
	}

	b.WriteString("\n## Output Format\n\n")
	b.WriteString("Respond with a single JSON object and no additional text:\n\n")
	b.WriteString("{\n")
	b.WriteString("  \"pattern_name\": \"short human-readable name\",\n")
	b.WriteString("  \"pattern_type\": \"snake_case category tag\",\n")
	b.WriteString("  \"confidence\": 0.0,\n")
	b.WriteString("  \"description\": \"2-3 sentence description of the pattern\",\n")
	b.WriteString("  \"key_characteristics\": [\"...\"],\n")
	b.WriteString("  \"bottlenecks\": [\"...\"],\n")
	b.WriteString("  \"success_factors\": [\"...\"]\n")
	b.WriteString("}\n")

	return b.String()
}

// buildInsightPrompt frames the full pattern set as a request for
// higher-level cross-pattern observations.
func buildInsightPrompt(patterns []pattern.Pattern, org pattern.OrgContext) string {
	var b strings.Builder

	b.WriteString("You are a business-workflow analyst. The following recurring workflow patterns ")
	b.WriteString("were detected in one organization. Identify cross-pattern insights: shared ")
	b.WriteString("bottlenecks, portfolio-level risks, or opportunities no single pattern shows.\n\n")

	writeOrgContext(&b, org)

	b.WriteString("## Detected Patterns\n\n")
	for i, p := range patterns {
		fmt.Fprintf(&b, "### Pattern %d: %s\n", i+1, p.Name)
		fmt.Fprintf(&b, "- Type: %s, workflows: %d, confidence: %.2f\n", p.Type, p.WorkflowCount, p.Confidence)
		fmt.Fprintf(&b, "- Cycle time: %.1f days, success rate: %.0f%%\n",
			p.Benchmarks.CycleTimeDays, p.Benchmarks.SuccessRate*100)
		if p.Description != "" {
			fmt.Fprintf(&b, "- %s\n", p.Description)
		}
		if len(p.Bottlenecks) > 0 {
			fmt.Fprintf(&b, "- Bottlenecks: %s\n", strings.Join(p.Bottlenecks, "; "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Output Format\n\n")
	b.WriteString("Respond with a single JSON array and no additional text:\n\n")
	b.WriteString("[\n")
	b.WriteString("  {\"title\": \"...\", \"description\": \"...\", \"category\": \"...\"}\n")
	b.WriteString("]\n")

	return b.String()
}

// writeOrgContext appends caller-supplied organization context, including the
// prompt-safety constraints.
func writeOrgContext(b *strings.Builder, org pattern.OrgContext) {
	if org.Industry == "" && org.CompanySize == "" && org.SalesModel == "" &&
		org.Notes == "" && len(org.Competitors) == 0 && len(org.OurProducts) == 0 &&
		len(org.FocusAreas) == 0 {
		return
	}

	b.WriteString("## Organization Context\n\n")
	if org.Industry != "" {
		fmt.Fprintf(b, "- Industry: %s\n", org.Industry)
	}
	if org.CompanySize != "" {
		fmt.Fprintf(b, "- Company size: %s\n", org.CompanySize)
	}
	if org.SalesModel != "" {
		fmt.Fprintf(b, "- Sales model: %s\n", org.SalesModel)
	}
	if org.Notes != "" {
		fmt.Fprintf(b, "- Notes: %s\n", org.Notes)
	}
	if len(org.OurProducts) > 0 {
		fmt.Fprintf(b, "- Our products: %s\n", strings.Join(org.OurProducts, ", "))
	}
	if len(org.FocusAreas) > 0 {
		fmt.Fprintf(b, "- Focus areas: %s\n", strings.Join(org.FocusAreas, ", "))
	}
	if len(org.Competitors) > 0 {
		fmt.Fprintf(b, "- Do not recommend tooling from: %s\n", strings.Join(org.Competitors, ", "))
	}
	b.WriteString("\n")
}

// formatFrequency renders a frequency map as "type(n)" entries in descending
// count order for stable prompts.
func formatFrequency(freq map[string]int) string {
	type entry struct {
		key string
		n   int
	}
	entries := make([]entry, 0, len(freq))
	for k, n := range freq {
		entries = append(entries, entry{k, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		return entries[i].key < entries[j].key
	})

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s(%d)", e.key, e.n))
	}
	return strings.Join(parts, ", ")
}
