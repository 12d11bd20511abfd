// Package exporter writes the cleaned dataset to local files.
package exporter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/frame"

	"go.uber.org/zap"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *zap.Logger
}

func NewCSVWriter(logger *zap.Logger) *CSVWriter {
	return &CSVWriter{logger: logger}
}

// WriteFrame writes f to filePath as a header line followed by one line per
// row, replacing any existing file. It returns the number of data rows.
func (w *CSVWriter) WriteFrame(filePath string, f *frame.Frame) (int, error) {
	w.logger.Info("Writing CSV file",
		zap.String("file_path", filePath),
		zap.Int("record_count", f.Len()))

	if err := ensureDir(filePath); err != nil {
		return 0, err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.Internal("opening export file", err)
	}

	buf := bufio.NewWriter(file)
	if err := f.WriteCSV(buf); err != nil {
		file.Close()
		return 0, errors.Internal("writing export file", err)
	}
	if err := buf.Flush(); err != nil {
		file.Close()
		return 0, errors.Internal("flushing export file", err)
	}
	if err := file.Close(); err != nil {
		return 0, errors.Internal("closing export file", err)
	}

	return f.Len(), nil
}

// CountRows reads an exported file back and returns its number of data rows,
// not counting the header.
func (w *CSVWriter) CountRows(filePath string) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.NotFound(fmt.Sprintf("export file %s does not exist", filePath), err)
		}
		return 0, errors.Internal("opening export file", err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.ReuseRecord = true

	records := 0
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, errors.InvalidInput(fmt.Sprintf("reading %s", filePath), err)
		}
		records++
	}

	if records == 0 {
		return 0, nil
	}
	return records - 1, nil
}

func ensureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Internal("failed to create directory", err)
	}
	return nil
}
