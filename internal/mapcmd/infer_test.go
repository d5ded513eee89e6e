package mapcmd

import (
	"reflect"
	"testing"
)

func kinds(cmds []Command) []Kind {
	out := make([]Kind, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Kind)
	}
	return out
}

func TestInferFromText_SwingNearEastLansing(t *testing.T) {
	cmds := InferFromText("The strongest swing precincts are clustered near East Lansing.")

	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d: %+v", len(cmds), cmds)
	}

	fly := cmds[0]
	if fly.Kind != KindFlyTo || fly.Place != "East Lansing" {
		t.Errorf("expected flyto East Lansing, got %+v", fly)
	}
	if fly.Center == nil || fly.Center.Lat != 42.7370 || fly.Center.Lng != -84.4839 {
		t.Errorf("wrong center for East Lansing: %+v", fly.Center)
	}

	heat := cmds[1]
	if heat.Kind != KindHeatmap || heat.Metric != MetricSwingPotential {
		t.Errorf("expected swing_potential heatmap, got %+v", heat)
	}
}

func TestInferFromText_EastLansingDoesNotAlsoMatchLansing(t *testing.T) {
	cmds := InferFromText("Look at East Lansing turnout.")

	var flyCount int
	for _, c := range cmds {
		if c.Kind == KindFlyTo {
			flyCount++
			if c.Place != "East Lansing" {
				t.Errorf("expected East Lansing, got %s", c.Place)
			}
		}
	}
	if flyCount != 1 {
		t.Errorf("expected exactly 1 flyto, got %d: %+v", flyCount, cmds)
	}
}

func TestInferFromText_DistinctPlacesComposeInMentionOrder(t *testing.T) {
	cmds := InferFromText("Compare Holt with Okemos and then Mason.")

	want := []string{"Holt", "Okemos", "Mason"}
	var got []string
	for _, c := range cmds {
		if c.Kind == KindFlyTo {
			got = append(got, c.Place)
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("place order = %v, want %v", got, want)
	}
}

func TestInferFromText_TopicFirstMatchWins(t *testing.T) {
	// Both swing+precinct and turnout vocabulary present; the rule
	// table's first match produces the only metric command.
	cmds := InferFromText("Swing precinct turnout analysis")

	var metrics []Command
	for _, c := range cmds {
		if c.Kind == KindHeatmap || c.Kind == KindChoropleth {
			metrics = append(metrics, c)
		}
	}
	if len(metrics) != 1 {
		t.Fatalf("expected exactly 1 metric command, got %d", len(metrics))
	}
	if metrics[0].Metric != MetricSwingPotential {
		t.Errorf("expected swing_potential, got %s", metrics[0].Metric)
	}
}

func TestInferFromText_SwingWithoutPrecinctIsNotEnough(t *testing.T) {
	cmds := InferFromText("What caused the swing in 2022?")
	for _, c := range cmds {
		if c.Kind == KindHeatmap {
			t.Errorf("swing alone should not trigger a heatmap: %+v", c)
		}
	}
}

func TestInferFromText_TopicTable(t *testing.T) {
	tests := []struct {
		text   string
		kind   Kind
		metric string
	}{
		{"turnout was up everywhere", KindHeatmap, MetricTurnout},
		{"persuasion targets in the north", KindHeatmap, MetricPersuasion},
		{"show me partisan lean by precinct", KindChoropleth, MetricPartisanLean},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			cmds := InferFromText(tt.text)
			var found bool
			for _, c := range cmds {
				if c.Kind == tt.kind && c.Metric == tt.metric {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s/%s in %+v", tt.kind, tt.metric, cmds)
			}
		})
	}
}

func TestInferFromText_PrecinctIDsDedupeIntoOneHighlight(t *testing.T) {
	cmds := InferFromText("EL-12 and OK-3 stand out; EL-12 especially.")

	var highlights []Command
	for _, c := range cmds {
		if c.Kind == KindHighlight {
			highlights = append(highlights, c)
		}
	}
	if len(highlights) != 1 {
		t.Fatalf("expected exactly 1 highlight, got %d", len(highlights))
	}
	want := []string{"EL-12", "OK-3"}
	if !reflect.DeepEqual(highlights[0].PrecinctIDs, want) {
		t.Errorf("PrecinctIDs = %v, want %v", highlights[0].PrecinctIDs, want)
	}
}

func TestInferFromText_EmissionOrder(t *testing.T) {
	cmds := InferFromText("Turnout in Lansing dropped; see LAN-04 and LAN-07.")

	want := []Kind{KindFlyTo, KindHeatmap, KindHighlight}
	if got := kinds(cmds); !reflect.DeepEqual(got, want) {
		t.Errorf("emission order = %v, want %v", got, want)
	}
}

func TestInferFromText_NoTriggers(t *testing.T) {
	if cmds := InferFromText("Thanks, that makes sense."); len(cmds) != 0 {
		t.Errorf("expected no commands, got %+v", cmds)
	}
	if cmds := InferFromText("   "); cmds != nil {
		t.Errorf("expected nil for blank text, got %+v", cmds)
	}
}

func TestInferFromText_Aliases(t *testing.T) {
	cmds := InferFromText("Student precincts around MSU lean heavily blue.")

	var found bool
	for _, c := range cmds {
		if c.Kind == KindFlyTo && c.Place == "MSU campus" {
			found = true
		}
	}
	if !found {
		t.Errorf("MSU alias should resolve to the campus entry: %+v", cmds)
	}
}

func TestInferFromText_WordBoundaries(t *testing.T) {
	// "Masonry" must not trigger the Mason entry.
	cmds := InferFromText("The Masonry hall hosted the debate.")
	for _, c := range cmds {
		if c.Kind == KindFlyTo {
			t.Errorf("substring match leaked: %+v", c)
		}
	}
}

func TestLookupPlace(t *testing.T) {
	cmd, ok := LookupPlace("east lansing")
	if !ok || cmd.Place != "East Lansing" {
		t.Errorf("LookupPlace(east lansing) = %+v, %v", cmd, ok)
	}

	cmd, ok = LookupPlace("msu")
	if !ok || cmd.Place != "MSU campus" {
		t.Errorf("LookupPlace(msu) = %+v, %v", cmd, ok)
	}

	if _, ok := LookupPlace("detroit"); ok {
		t.Error("LookupPlace(detroit) should miss the gazetteer")
	}
}
