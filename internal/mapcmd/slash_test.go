package mapcmd

import (
	"reflect"
	"testing"
)

func TestParseSlash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		ok      bool
		wantErr bool
		check   func(t *testing.T, cmds []Command)
	}{
		{
			name:  "highlight uppercases and dedupes",
			input: "/highlight el-12 OK-3 el-12",
			ok:    true,
			check: func(t *testing.T, cmds []Command) {
				want := []string{"EL-12", "OK-3"}
				if !reflect.DeepEqual(cmds[0].PrecinctIDs, want) {
					t.Errorf("PrecinctIDs = %v, want %v", cmds[0].PrecinctIDs, want)
				}
			},
		},
		{
			name:    "highlight requires args",
			input:   "/highlight",
			ok:      true,
			wantErr: true,
		},
		{
			name:    "highlight rejects malformed ids",
			input:   "/highlight notanid",
			ok:      true,
			wantErr: true,
		},
		{
			name:  "flyto resolves multi-word places",
			input: "/flyto east lansing",
			ok:    true,
			check: func(t *testing.T, cmds []Command) {
				if cmds[0].Kind != KindFlyTo || cmds[0].Place != "East Lansing" {
					t.Errorf("got %+v", cmds[0])
				}
			},
		},
		{
			name:    "flyto unknown place",
			input:   "/flyto detroit",
			ok:      true,
			wantErr: true,
		},
		{
			name:  "heatmap with known metric",
			input: "/heatmap turnout",
			ok:    true,
			check: func(t *testing.T, cmds []Command) {
				if cmds[0].Kind != KindHeatmap || cmds[0].Metric != MetricTurnout {
					t.Errorf("got %+v", cmds[0])
				}
			},
		},
		{
			name:    "heatmap with unknown metric",
			input:   "/heatmap vibes",
			ok:      true,
			wantErr: true,
		},
		{
			name:  "choropleth",
			input: "/choropleth partisan_lean",
			ok:    true,
			check: func(t *testing.T, cmds []Command) {
				if cmds[0].Kind != KindChoropleth || cmds[0].Metric != MetricPartisanLean {
					t.Errorf("got %+v", cmds[0])
				}
			},
		},
		{
			name:  "year",
			input: "/year 2022",
			ok:    true,
			check: func(t *testing.T, cmds []Command) {
				if cmds[0].Kind != KindTemporal || cmds[0].Year != 2022 {
					t.Errorf("got %+v", cmds[0])
				}
			},
		},
		{
			name:  "compare",
			input: "/compare 2020 2024",
			ok:    true,
			check: func(t *testing.T, cmds []Command) {
				if cmds[0].Kind != KindComparison || !reflect.DeepEqual(cmds[0].Years, []int{2020, 2024}) {
					t.Errorf("got %+v", cmds[0])
				}
			},
		},
		{
			name:  "clear",
			input: "/clear",
			ok:    true,
			check: func(t *testing.T, cmds []Command) {
				if cmds[0].Kind != KindClear {
					t.Errorf("got %+v", cmds[0])
				}
			},
		},
		{
			name:  "unknown verb falls through",
			input: "/frobnicate now",
			ok:    false,
		},
		{
			name:  "plain text is not a slash command",
			input: "show turnout",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, ok, err := ParseSlash(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && err == nil && ok {
				if len(cmds) == 0 {
					t.Fatal("expected commands")
				}
				tt.check(t, cmds)
			}
		})
	}
}
