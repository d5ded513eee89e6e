package export

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"wardroom/internal/handlers"
	"wardroom/internal/httpx"
)

// LocalProvider serves datasets from the bundled analytics slice. It
// is the offline default and the provider the tests use.
type LocalProvider struct{}

func (LocalProvider) Fetch(_ context.Context, dataset string, snap handlers.Snapshot) (Table, error) {
	header, rows, err := handlers.DatasetTable(dataset, snap)
	if err != nil {
		return Table{}, err
	}
	return Table{Header: header, Rows: rows}, nil
}

// RESTProvider fetches dataset rows from the dashboard's data API,
// going through the shared retry policy. The endpoint is expected to
// answer GET ?dataset=<name>&year=<n> with a Table JSON body.
type RESTProvider struct {
	Endpoint string
	Client   *http.Client
	Policy   httpx.Policy
}

func (p *RESTProvider) Fetch(ctx context.Context, dataset string, snap handlers.Snapshot) (Table, error) {
	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return Table{}, fmt.Errorf("bad data endpoint: %w", err)
	}
	q := u.Query()
	q.Set("dataset", dataset)
	if snap.App.Temporal.Enabled && snap.App.Temporal.Year != 0 {
		q.Set("year", fmt.Sprintf("%d", snap.App.Temporal.Year))
	}
	u.RawQuery = q.Encode()

	resp, err := httpx.Get(ctx, p.Client, u.String(), p.Policy)
	if err != nil {
		return Table{}, fmt.Errorf("data fetch failed: %w", err)
	}

	var table Table
	if err := httpx.DecodeJSON(resp, &table); err != nil {
		return Table{}, fmt.Errorf("data fetch failed: %w", err)
	}
	return table, nil
}
