package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"rental-tracker/models"
)

// XLSXStore persists listings in a spreadsheet workbook. Row 1 holds the
// headers; data position i lives on sheet row i+2. The workbook is saved after
// every mutation so a terminated batch keeps what it already wrote.
type XLSXStore struct {
	mu    sync.Mutex
	path  string
	sheet string
	file  *excelize.File
}

// NewXLSXStore opens the workbook at path (creating it when missing), ensures
// the sheet and header row exist, and constrains the decision column to the
// allowed values.
func NewXLSXStore(path, sheet string) (*XLSXStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("xlsx: create output dir: %w", err)
	}

	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("xlsx: open %q: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("xlsx: name sheet %q: %w", sheet, err)
		}
	} else {
		return nil, fmt.Errorf("xlsx: stat %q: %w", path, err)
	}

	s := &XLSXStore{path: path, sheet: sheet, file: f}
	if err := s.setup(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *XLSXStore) setup() error {
	idx, err := s.file.GetSheetIndex(s.sheet)
	if err != nil {
		return fmt.Errorf("xlsx: sheet index: %w", err)
	}
	if idx == -1 {
		if idx, err = s.file.NewSheet(s.sheet); err != nil {
			return fmt.Errorf("xlsx: create sheet %q: %w", s.sheet, err)
		}
	}
	s.file.SetActiveSheet(idx)

	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return fmt.Errorf("xlsx: read headers: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) < models.FieldCount {
		headers := toCells(models.Headers())
		if err := s.file.SetSheetRow(s.sheet, "A1", &headers); err != nil {
			return fmt.Errorf("xlsx: write headers: %w", err)
		}
	}

	decisionCol, err := excelize.ColumnNumberToName(models.FieldIndex(models.FieldDecision) + 1)
	if err != nil {
		return fmt.Errorf("xlsx: decision column: %w", err)
	}
	sqref := fmt.Sprintf("%s2:%s1048576", decisionCol, decisionCol)
	existing, err := s.file.GetDataValidations(s.sheet)
	if err != nil {
		return fmt.Errorf("xlsx: read data validations: %w", err)
	}
	for _, v := range existing {
		if v.Sqref == sqref {
			return s.save()
		}
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref
	if err := dv.SetDropList(models.DecisionStrings()); err != nil {
		return fmt.Errorf("xlsx: decision drop-down: %w", err)
	}
	if err := s.file.AddDataValidation(s.sheet, dv); err != nil {
		return fmt.Errorf("xlsx: add data validation: %w", err)
	}

	return s.save()
}

func (s *XLSXStore) save() error {
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", s.path, err)
	}
	return nil
}

// dataRows returns every data row padded to the canonical width.
func (s *XLSXStore) dataRows() ([][]string, error) {
	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	out := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		out = append(out, models.PadRow(r))
	}
	return out, nil
}

func (s *XLSXStore) FindRow(_ context.Context, url string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows()
	if err != nil {
		return 0, false, err
	}
	for i, r := range rows {
		if r[0] == url {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func (s *XLSXStore) ReadAllRows(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataRows()
}

func (s *XLSXStore) WriteRow(_ context.Context, index int, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("xlsx: write row %d: %w", index, ErrRowOutOfRange)
	}
	if err := s.setRow(index, row); err != nil {
		return err
	}
	return s.save()
}

func (s *XLSXStore) AppendRow(_ context.Context, row []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows()
	if err != nil {
		return 0, err
	}
	index := len(rows)
	if err := s.setRow(index, row); err != nil {
		return 0, err
	}
	return index, s.save()
}

func (s *XLSXStore) DeleteRows(_ context.Context, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.dataRows()
	if err != nil {
		return err
	}
	if from < 0 || to >= len(rows) || from > to {
		return fmt.Errorf("xlsx: delete rows %d..%d: %w", from, to, ErrRowOutOfRange)
	}
	// Bottom-up so earlier sheet rows keep their numbers while deleting.
	for i := to; i >= from; i-- {
		if err := s.file.RemoveRow(s.sheet, i+2); err != nil {
			return fmt.Errorf("xlsx: remove row %d: %w", i, err)
		}
	}
	return s.save()
}

func (s *XLSXStore) setRow(index int, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, index+2)
	if err != nil {
		return fmt.Errorf("xlsx: cell for row %d: %w", index, err)
	}
	cells := toCells(models.PadRow(row))
	if err := s.file.SetSheetRow(s.sheet, cell, &cells); err != nil {
		return fmt.Errorf("xlsx: write row %d: %w", index, err)
	}
	return nil
}

func (s *XLSXStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
