// Package export builds downloadable artifacts from named datasets.
// The orchestrator hands an ExportRequest effect to a Builder; the
// resulting artifact travels back to the dashboard for download.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"wardroom/internal/handlers"
	"wardroom/internal/logging"
)

// Artifact is a built file ready for download.
type Artifact struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Data     []byte `json:"data"`
}

// Table is a dataset rendered as header plus rows.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// DataProvider supplies the rows for a dataset. The snapshot lets
// providers scope "current view" style datasets.
type DataProvider interface {
	Fetch(ctx context.Context, dataset string, snap handlers.Snapshot) (Table, error)
}

// Builder turns dataset requests into CSV artifacts.
type Builder struct {
	provider DataProvider
	now      func() time.Time
}

// NewBuilder wires a builder over the given provider.
func NewBuilder(p DataProvider) *Builder {
	return &Builder{provider: p, now: time.Now}
}

// BuildCSV fetches the dataset and renders it as a dated CSV file.
func (b *Builder) BuildCSV(ctx context.Context, dataset string, snap handlers.Snapshot) (Artifact, error) {
	table, err := b.provider.Fetch(ctx, dataset, snap)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to fetch %s: %w", dataset, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(table.Header) > 0 {
		if err := w.Write(table.Header); err != nil {
			return Artifact{}, fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			return Artifact{}, fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Artifact{}, fmt.Errorf("failed to flush csv: %w", err)
	}

	art := Artifact{
		Filename: fmt.Sprintf("%s-%s.csv", dataset, b.now().Format("2006-01-02")),
		MIME:     "text/csv",
		Data:     buf.Bytes(),
	}
	logging.Actions("built %s (%d rows, %d bytes)", art.Filename, len(table.Rows), len(art.Data))
	return art, nil
}
