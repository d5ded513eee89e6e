// Package mapcmd defines the one-way command vocabulary the assistant emits
// to drive the dashboard map, plus the lexical inference that derives
// commands from reply text and from slash commands.
//
// Commands are fire-and-forget: the assistant never reads map state back
// through this channel.
package mapcmd

// Kind identifies a map command verb.
type Kind string

const (
	KindHighlight  Kind = "highlight"
	KindFlyTo      Kind = "flyto"
	KindHeatmap    Kind = "heatmap"
	KindChoropleth Kind = "choropleth"
	KindBuffer     Kind = "buffer"
	KindRoute      Kind = "route"
	KindClusters   Kind = "clusters"
	KindMarkers    Kind = "markers"
	KindTemporal   Kind = "temporal"
	KindComparison Kind = "comparison"
	KindClear      Kind = "clear"
)

// LngLat is a WGS84 coordinate pair in Mapbox order (longitude first).
type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Command is a single instruction for the map layer. Only the fields
// relevant to Kind carry meaning; consumers ignore the rest.
type Command struct {
	Kind Kind `json:"kind"`

	// highlight
	PrecinctIDs []string `json:"precinctIds,omitempty"`

	// flyto
	Center *LngLat `json:"center,omitempty"`
	Zoom   float64 `json:"zoom,omitempty"`
	Place  string  `json:"place,omitempty"`

	// heatmap / choropleth / temporal / comparison
	Metric string `json:"metric,omitempty"`
	Year   int    `json:"year,omitempty"`
	Years  []int  `json:"years,omitempty"`

	// buffer
	RadiusMeters float64 `json:"radiusMeters,omitempty"`

	// route / markers / clusters
	Locations []LngLat `json:"locations,omitempty"`
	Label     string   `json:"label,omitempty"`
}

// Sink consumes emitted commands. Implementations must not block;
// the turn pipeline calls it inline.
type Sink func(Command)

// Metrics the choropleth/heatmap layers understand.
const (
	MetricTurnout        = "turnout"
	MetricSwingPotential = "swing_potential"
	MetricPersuasion     = "persuasion"
	MetricPartisanLean   = "partisan_lean"
	MetricMargin         = "margin"
)

// KnownMetric reports whether the map layers can render the metric.
func KnownMetric(m string) bool {
	switch m {
	case MetricTurnout, MetricSwingPotential, MetricPersuasion, MetricPartisanLean, MetricMargin:
		return true
	}
	return false
}
