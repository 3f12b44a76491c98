package importsource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lending/domain/entities"
)

// ReadFile picks the reader from the file extension
func ReadFile(path, sheet string) ([]entities.ImportRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(file)
	case ".xlsx", ".xlsm":
		return ReadXLSX(file, sheet)
	default:
		return nil, fmt.Errorf("unsupported import file type %q", ext)
	}
}
