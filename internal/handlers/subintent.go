package handlers

import "regexp"

// SubIntent is the matched domain for a generic turn.
type SubIntent int

const (
	SubUnknown SubIntent = iota
	SubMap
	SubFilter
	SubAnalysis
	SubCanvassing
	SubExport
	SubNavigation
	SubReport
	SubQuery
	SubTemporal
	SubWorkflow
	SubInput
)

// String names the sub-intent for routing logs.
func (s SubIntent) String() string {
	switch s {
	case SubMap:
		return "map"
	case SubFilter:
		return "filter"
	case SubAnalysis:
		return "analysis"
	case SubCanvassing:
		return "canvassing"
	case SubExport:
		return "export"
	case SubNavigation:
		return "navigation"
	case SubReport:
		return "report"
	case SubQuery:
		return "query"
	case SubTemporal:
		return "temporal"
	case SubWorkflow:
		return "workflow"
	case SubInput:
		return "input"
	default:
		return "unknown"
	}
}

// subIntentRule pairs a pattern with its domain. Rules are evaluated
// in order; the first match wins.
type subIntentRule struct {
	pattern *regexp.Regexp
	sub     SubIntent
}

var subIntentRules = []subIntentRule{
	{regexp.MustCompile(`(?i)\b(show|zoom|fly|map|highlight|where)\b`), SubMap},
	{regexp.MustCompile(`(?i)\b(filter|segment|narrow|only)\b`), SubFilter},
	{regexp.MustCompile(`(?i)\b(swing|score|persuasion|margin|lean|trend|flipped?)\b`), SubAnalysis},
	{regexp.MustCompile(`(?i)\b(canvass|doors?|knock|walk list|turf)\b`), SubCanvassing},
	{regexp.MustCompile(`(?i)\b(export|download|csv|spreadsheet)\b`), SubExport},
	{regexp.MustCompile(`(?i)\b(open|go to|take me|navigate)\b`), SubNavigation},
	{regexp.MustCompile(`(?i)\b(summar(y|ize)|brief|recap)\b`), SubReport},
	{regexp.MustCompile(`(?i)\b(turnout|voters?|registered|how many|highest|lowest|which precinct)\b`), SubQuery},
	{regexp.MustCompile(`(?i)\b(20(20|22|24)|over time|year|midterm|presidential|history)\b`), SubTemporal},
	{regexp.MustCompile(`(?i)\b(workflow|walk me through|start with|get started|where do i start)\b`), SubWorkflow},
	{regexp.MustCompile(`(?i)\b(hello|hi|hey|thanks?|thank you|help|what can you do)\b`), SubInput},
}

// matchSubIntent returns the first matching domain, or SubUnknown.
func matchSubIntent(input string) SubIntent {
	for _, rule := range subIntentRules {
		if rule.pattern.MatchString(input) {
			return rule.sub
		}
	}
	return SubUnknown
}
