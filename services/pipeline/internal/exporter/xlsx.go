package exporter

import (
	"fmt"

	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/frame"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxSheetName = 31

// Sheet is one worksheet of a workbook. A nil cell is left empty.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// FrameSheet turns f into a sheet named name.
func FrameSheet(name string, f *frame.Frame) Sheet {
	rows := make([][]any, f.Len())
	for i := range rows {
		rows[i] = f.Row(i).Values()
	}
	return Sheet{Name: name, Headers: f.Columns(), Rows: rows}
}

type XLSXWriter struct {
	logger *zap.Logger
}

func NewXLSXWriter(logger *zap.Logger) *XLSXWriter {
	return &XLSXWriter{logger: logger}
}

// WriteWorkbook saves sheets, in order, as a new workbook at filePath.
func (w *XLSXWriter) WriteWorkbook(filePath string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errors.InvalidInput("workbook needs at least one sheet", nil)
	}
	if err := ensureDir(filePath); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	for i, sheet := range sheets {
		if len(sheet.Name) > maxSheetName {
			return errors.InvalidInput(fmt.Sprintf("sheet name %q is longer than %d characters", sheet.Name, maxSheetName), nil)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return errors.Internal("naming sheet", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return errors.InvalidInput(fmt.Sprintf("adding sheet %q", sheet.Name), err)
		}

		if err := w.writeSheet(f, sheet); err != nil {
			return err
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return errors.Internal("saving workbook", err)
	}

	w.logger.Info("Wrote workbook",
		zap.String("file_path", filePath),
		zap.Int("sheets", len(sheets)))
	return nil
}

func (w *XLSXWriter) writeSheet(f *excelize.File, sheet Sheet) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return errors.Internal("creating stream writer", err)
	}

	header := make([]interface{}, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errors.Internal("writing header row", err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Internal("computing cell name", err)
		}
		values := make([]interface{}, len(row))
		copy(values, row)
		if err := sw.SetRow(cell, values); err != nil {
			return errors.Internal(fmt.Sprintf("writing row %d of %s", i+1, sheet.Name), err)
		}
	}

	if err := sw.Flush(); err != nil {
		return errors.Internal("flushing sheet", err)
	}
	return nil
}
