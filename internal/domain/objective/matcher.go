package objective

import "strings"

// ══════════════════════════════════════════════════════════════════════════════
// KEYWORD HEURISTIC
// ══════════════════════════════════════════════════════════════════════════════

// minKeywordLength drops short filler tokens from objective wording.
const minKeywordLength = 5

// minKeywordHits is the number of distinct keyword matches a student message
// needs before the heuristic asserts completion on its own.
const minKeywordHits = 2

// stopWords are tokens that never count as objective keywords: articles,
// auxiliaries, instructional verbs, and generic classroom nouns.
var stopWords = map[string]bool{
	"the": true, "and": true, "with": true, "that": true, "this": true,
	"from": true, "into": true, "about": true, "explain": true, "describe": true,
	"identify": true, "define": true, "lesson": true, "objective": true,
	"student": true, "their": true, "they": true, "what": true, "when": true,
	"where": true, "which": true, "will": true, "able": true, "your": true,
	"for": true, "are": true, "how": true,
}

// Keywords extracts the distinct keyword set from an objective text:
// lowercased, non-alphanumerics stripped, whitespace-split, then filtered by
// length and the stop-word list. Order follows first appearance.
func Keywords(objectiveText string) []string {
	normalized := normalize(objectiveText)

	var keywords []string
	seen := make(map[string]bool)
	for _, token := range strings.Fields(normalized) {
		if len(token) < minKeywordLength || stopWords[token] {
			continue
		}
		if !seen[token] {
			seen[token] = true
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// HeuristicMet reports whether the student message satisfies the objective by
// keyword overlap alone. Objectives yielding fewer than two keywords can
// never fire; this guards short or degenerate objectives against false
// positives from generic student text.
func HeuristicMet(objectiveText, studentMessage string) bool {
	keywords := Keywords(objectiveText)
	if len(keywords) < minKeywordHits {
		return false
	}

	message := strings.ToLower(studentMessage)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(message, kw) {
			hits++
			if hits >= minKeywordHits {
				return true
			}
		}
	}
	return false
}

// normalize lowercases and replaces every non-alphanumeric rune with a space.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION
// ══════════════════════════════════════════════════════════════════════════════

// Outcome is the result of combining the model's judgment with the heuristic.
type Outcome struct {
	// Met is the final completion decision.
	Met bool

	// HeuristicOverride is true when the heuristic fired but the model did
	// not assert completion. Callers annotate the reply and clear any pending
	// tasks in that case.
	HeuristicOverride bool
}

// Evaluate combines the model-asserted judgment with the keyword heuristic.
// The composition is OR, never AND: the heuristic recovers from a model that
// is too conservative, accepting the risk of occasional false positives.
func Evaluate(objectiveText string, modelAssertedMet bool, studentMessage string) Outcome {
	if modelAssertedMet {
		return Outcome{Met: true}
	}
	if HeuristicMet(objectiveText, studentMessage) {
		return Outcome{Met: true, HeuristicOverride: true}
	}
	return Outcome{}
}
