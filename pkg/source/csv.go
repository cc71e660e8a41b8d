// pkg/source/csv.go
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sheetops/sheet-ingress/pkg/config"
	"github.com/sheetops/sheet-ingress/pkg/model"
)

// CSVSource reads spreadsheet exports from CSV files, one file per entity
// type as configured in the source layout.
type CSVSource struct {
	layout *config.SourceLayout
	logger *zap.Logger
}

// NewCSVSource creates a CSV-backed source.
func NewCSVSource(layout *config.SourceLayout, logger *zap.Logger) (*CSVSource, error) {
	if layout == nil {
		return nil, errors.New("source layout cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &CSVSource{
		layout: layout,
		logger: logger.Named("csv-source"),
	}, nil
}

// FetchRows reads the configured file for an entity type and returns its
// header row plus ordered data rows. Row indexes are spreadsheet row
// numbers: the header is row 1, the first data row is row 2. Ragged rows
// are tolerated; missing trailing cells read as empty downstream.
func (s *CSVSource) FetchRows(ctx context.Context, entity model.EntityType) (model.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return model.Sheet{}, err
	}

	path, err := s.layout.FileFor(string(entity))
	if err != nil {
		return model.Sheet{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return model.Sheet{}, fmt.Errorf("failed to open %s sheet %s: %w", entity, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return model.Sheet{}, fmt.Errorf("failed to read %s sheet %s: %w", entity, path, err)
	}
	if len(records) == 0 {
		return model.Sheet{}, fmt.Errorf("%s sheet %s is empty, expected a header row", entity, path)
	}

	sheet := model.Sheet{
		Headers: records[0],
		Rows:    make([]model.RawRow, 0, len(records)-1),
	}
	for i, cells := range records[1:] {
		sheet.Rows = append(sheet.Rows, model.RawRow{
			Index: i + 2,
			Cells: cells,
		})
	}

	s.logger.Info("Read source sheet",
		zap.String("entity", string(entity)),
		zap.String("file", path),
		zap.Int("rows", len(sheet.Rows)))

	return sheet, nil
}
