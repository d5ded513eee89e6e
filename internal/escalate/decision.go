// Package escalate decides when a turn outgrows the local handlers and
// carries escalated turns to the remote model.
package escalate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"wardroom/internal/handlers"
)

// Reasons recorded on a Decision, one per signal.
const (
	ReasonUnknown    = "unknown_local_result"
	ReasonFailed     = "local_handler_failed"
	ReasonLongQuery  = "long_query"
	ReasonAnalytical = "analytical_pattern"
	ReasonMultiPart  = "multi_part_question"
	ReasonOpinion    = "opinion_pattern"
	ReasonContextual = "contextual_backreference"
)

// Policy tunes the decision thresholds.
type Policy struct {
	// LongQueryThreshold is the character count above which a query
	// escalates regardless of the local result.
	LongQueryThreshold int
}

// DefaultPolicy matches the stock assistant behavior.
func DefaultPolicy() Policy {
	return Policy{LongQueryThreshold: 150}
}

var (
	analyticalPattern = regexp.MustCompile(`(?i)\b(why|how|explain|analyze|compare|recommend|strategy)\b`)
	opinionPattern    = regexp.MustCompile(`(?i)\b(should i|would you|do you think|best|worst|opinion|advice)\b`)
	contextualPattern = regexp.MustCompile(`(?i)\b(earlier|before|we discussed|you mentioned|last time|previous)\b`)
)

// Phrases that signal several sub-questions packed into one turn.
var multiPartPhrases = []string{"and also", "additionally", "furthermore", "also tell me"}

// Decision is the per-turn escalation verdict plus the signals that
// produced it. Recomputed every turn, never cached; Reasons exist for
// the escalate log, not for correctness.
type Decision struct {
	Escalate bool
	Reasons  []string
}

// Decide ORs the independent escalation signals: an untrusted local
// result, a long query, and the analytical / multi-part / opinion /
// contextual pattern sets, each evaluated against the literal input.
func Decide(input string, local handlers.Result, pol Policy) Decision {
	threshold := pol.LongQueryThreshold
	if threshold <= 0 {
		threshold = DefaultPolicy().LongQueryThreshold
	}

	var reasons []string

	if local.Unknown {
		reasons = append(reasons, ReasonUnknown)
	}
	if local.Failed {
		reasons = append(reasons, ReasonFailed)
	}
	if utf8.RuneCountInString(input) > threshold {
		reasons = append(reasons, ReasonLongQuery)
	}
	if analyticalPattern.MatchString(input) {
		reasons = append(reasons, ReasonAnalytical)
	}
	if isMultiPart(input) {
		reasons = append(reasons, ReasonMultiPart)
	}
	if opinionPattern.MatchString(input) {
		reasons = append(reasons, ReasonOpinion)
	}
	if contextualPattern.MatchString(input) {
		reasons = append(reasons, ReasonContextual)
	}

	return Decision{Escalate: len(reasons) > 0, Reasons: reasons}
}

func isMultiPart(input string) bool {
	if strings.Count(input, "?") > 1 {
		return true
	}
	lower := strings.ToLower(input)
	for _, phrase := range multiPartPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
