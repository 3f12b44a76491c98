package importsource

import (
	"fmt"
	"io"

	"lending/domain/entities"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads one worksheet of a workbook; an empty sheet name selects the first one.
// Cells are read raw, so date cells arrive as spreadsheet serials.
func ReadXLSX(r io.Reader, sheet string) ([]entities.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Failed to close workbook")
		}
	}()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	return collectRows(records[0], records[1:])
}
