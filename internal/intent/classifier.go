// Package intent classifies user turns into the closed category set
// the orchestrator routes on. Classification is lexical and stable:
// identical input always yields identical output.
package intent

import (
	"regexp"
	"strings"
)

// Category is the coarse classification of a user turn.
type Category string

const (
	// CategoryOutput means the user wants to save/export the current view.
	CategoryOutput Category = "output_request"

	// CategoryReportRequest means the user wants a generated document.
	CategoryReportRequest Category = "report_request"

	// CategoryReportHistory means the user wants the list of past reports.
	CategoryReportHistory Category = "report_history"

	// CategoryGeneric is everything else; handled by local dispatch.
	CategoryGeneric Category = "generic"
)

// ReportSubtype refines a report request.
type ReportSubtype string

const (
	ReportGenerate  ReportSubtype = "generate"
	ReportCustomize ReportSubtype = "customize"
)

// Intent is the classification of one user turn.
type Intent struct {
	Category Category
	Subtype  ReportSubtype // set only for report_request

	// Query is the input with ambient map-context annotations stripped;
	// local handlers operate on this.
	Query string

	// Annotations holds the stripped bracketed prefixes, for logging.
	Annotations []string
}

var (
	outputPattern = regexp.MustCompile(`\b(export|download|csv|save)\b`)

	reportNounPattern = regexp.MustCompile(`\b(reports?|briefings?|memos?|one-pagers?)\b`)
	generatePattern   = regexp.MustCompile(`\b(generate|create|make|build|write|draft|prepare)\b`)
	customizePattern  = regexp.MustCompile(`\b(customize|custom|edit|modify|change|update|tweak)\b`)
	historyPattern    = regexp.MustCompile(`\b(past|previous|history|earlier|recent|list)\b`)
)

// Classify maps raw user text to an Intent. Priority is fixed:
// output before report request before report history before generic.
func Classify(raw string) Intent {
	query, annotations := StripAnnotations(raw)
	lower := strings.ToLower(query)

	intent := Intent{
		Category:    CategoryGeneric,
		Query:       query,
		Annotations: annotations,
	}

	switch {
	case outputPattern.MatchString(lower):
		intent.Category = CategoryOutput

	case reportNounPattern.MatchString(lower) && customizePattern.MatchString(lower):
		intent.Category = CategoryReportRequest
		intent.Subtype = ReportCustomize

	case reportNounPattern.MatchString(lower) && generatePattern.MatchString(lower):
		intent.Category = CategoryReportRequest
		intent.Subtype = ReportGenerate

	case reportNounPattern.MatchString(lower) && historyPattern.MatchString(lower):
		intent.Category = CategoryReportHistory
	}

	return intent
}

// StripAnnotations removes the ambient map-context prefix the
// dashboard prepends to queries, e.g.
// "[viewing: turnout 2024] which precincts flipped?". Returns the
// remaining text and the stripped annotation bodies.
func StripAnnotations(raw string) (string, []string) {
	text := strings.TrimSpace(raw)
	var annotations []string

	for strings.HasPrefix(text, "[") {
		end := strings.Index(text, "]")
		if end < 0 {
			break
		}
		annotations = append(annotations, strings.TrimSpace(text[1:end]))
		text = strings.TrimSpace(text[end+1:])
	}
	return text, annotations
}
