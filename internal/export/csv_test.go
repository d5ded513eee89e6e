package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wardroom/internal/appstate"
	"wardroom/internal/handlers"
	"wardroom/internal/httpx"
)

func fixedBuilder(p DataProvider) *Builder {
	b := NewBuilder(p)
	b.now = func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) }
	return b
}

func TestBuildCSVCurrentViewRespectsHighlights(t *testing.T) {
	snap := handlers.Snapshot{App: appstate.Snapshot{
		Viewport: appstate.Viewport{HighlightedIDs: []string{"DEL-6", "MAS-1"}},
	}}

	art, err := fixedBuilder(LocalProvider{}).BuildCSV(context.Background(), handlers.DatasetCurrentView, snap)
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	if art.Filename != "current-view-2026-08-25.csv" {
		t.Errorf("filename = %q", art.Filename)
	}
	if art.MIME != "text/csv" {
		t.Errorf("mime = %q", art.MIME)
	}

	lines := strings.Split(strings.TrimSpace(string(art.Data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows:\n%s", len(lines), art.Data)
	}
	if !strings.HasPrefix(lines[0], "precinct_id,precinct,jurisdiction") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "DEL-6,") || !strings.HasPrefix(lines[2], "MAS-1,") {
		t.Errorf("rows out of order or missing:\n%s", art.Data)
	}
}

func TestBuildCSVWholeCountyByDefault(t *testing.T) {
	art, err := fixedBuilder(LocalProvider{}).BuildCSV(context.Background(), handlers.DatasetCurrentView, handlers.Snapshot{})
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(art.Data)), "\n")
	if len(lines) != 13 { // header + 12 precincts
		t.Errorf("lines = %d, want 13", len(lines))
	}
}

func TestBuildCSVWalkListHasDoorCounts(t *testing.T) {
	art, err := fixedBuilder(LocalProvider{}).BuildCSV(context.Background(), handlers.DatasetWalkList, handlers.Snapshot{})
	if err != nil {
		t.Fatalf("BuildCSV: %v", err)
	}

	text := string(art.Data)
	if !strings.Contains(text, "est_doors") {
		t.Errorf("walk list header missing doors column:\n%s", text)
	}
	if !strings.Contains(text, "DEL-6") {
		t.Errorf("top swing precinct missing from default turf:\n%s", text)
	}
}

func TestBuildCSVUnknownDataset(t *testing.T) {
	_, err := fixedBuilder(LocalProvider{}).BuildCSV(context.Background(), "minivans", handlers.Snapshot{})
	if err == nil {
		t.Fatal("unknown dataset should fail")
	}
}

func TestRESTProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dataset") != "donors" {
			t.Errorf("dataset param = %q", r.URL.Query().Get("dataset"))
		}
		if r.URL.Query().Get("year") != "2022" {
			t.Errorf("year param = %q", r.URL.Query().Get("year"))
		}
		json.NewEncoder(w).Encode(Table{
			Header: []string{"area", "total"},
			Rows:   [][]string{{"Okemos", "76796.80"}},
		})
	}))
	defer srv.Close()

	p := &RESTProvider{
		Endpoint: srv.URL,
		Client:   srv.Client(),
		Policy:   httpx.Policy{MaxRetries: 1, BaseDelay: time.Millisecond},
	}
	snap := handlers.Snapshot{App: appstate.Snapshot{
		Temporal: appstate.Temporal{Enabled: true, Year: 2022},
	}}

	table, err := p.Fetch(context.Background(), "donors", snap)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "Okemos" {
		t.Errorf("table = %+v", table)
	}
}

func TestRESTProviderSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	p := &RESTProvider{Endpoint: srv.URL, Client: srv.Client(), Policy: httpx.Policy{MaxRetries: 0, BaseDelay: time.Millisecond}}

	_, err := p.Fetch(context.Background(), "donors", handlers.Snapshot{})
	if err == nil {
		t.Fatal("403 should surface as an error")
	}
}
