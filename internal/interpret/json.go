package interpret

import "encoding/json"

// OutcomeKind tags the result of parsing a collaborator response.
type OutcomeKind int

const (
	// OutcomeParsed means a JSON payload was extracted and decoded.
	OutcomeParsed OutcomeKind = iota

	// OutcomeUnparseable means the collaborator answered but no usable JSON
	// could be extracted from the text.
	OutcomeUnparseable

	// OutcomeCollaboratorError means the collaborator call itself failed
	// (unreachable, timed out, errored).
	OutcomeCollaboratorError
)

// parseOutcome is the explicit result of a response-parsing attempt. Making
// failure a first-class case keeps the fallback branch visible instead of
// hiding it behind a silent default.
type parseOutcome struct {
	Kind    OutcomeKind
	Pattern *parsedPattern
	Raw     string
	Err     error
}

// parsedPattern is the JSON shape requested from the collaborator for a
// single cluster. Every field is optional; missing ones are filled from the
// statistical summary.
type parsedPattern struct {
	PatternName        string   `json:"pattern_name"`
	PatternType        string   `json:"pattern_type"`
	Confidence         *float64 `json:"confidence"`
	Description        string   `json:"description"`
	KeyCharacteristics []string `json:"key_characteristics"`
	Bottlenecks        []string `json:"bottlenecks"`
	SuccessFactors     []string `json:"success_factors"`
}

// parsedInsight is one element of the JSON array requested for cross-pattern
// insights.
type parsedInsight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// parseResponse extracts the first balanced JSON object from free text and
// decodes it as a pattern.
func parseResponse(text string) parseOutcome {
	raw, ok := extractBalanced(text, '{', '}')
	if !ok {
		return parseOutcome{Kind: OutcomeUnparseable, Raw: text}
	}

	var p parsedPattern
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return parseOutcome{Kind: OutcomeUnparseable, Raw: text, Err: err}
	}
	return parseOutcome{Kind: OutcomeParsed, Pattern: &p}
}

// parseInsightResponse extracts the first balanced JSON array from free text
// and decodes it as a list of insights.
func parseInsightResponse(text string) ([]parsedInsight, bool) {
	raw, ok := extractBalanced(text, '[', ']')
	if !ok {
		return nil, false
	}

	var insights []parsedInsight
	if err := json.Unmarshal([]byte(raw), &insights); err != nil {
		return nil, false
	}
	return insights, true
}

// extractBalanced returns the first balanced open...close span in text,
// tracking JSON string literals and escapes so braces inside strings don't
// confuse the scan. Best-effort: model output follows no grammar.
func extractBalanced(text string, open, close byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
