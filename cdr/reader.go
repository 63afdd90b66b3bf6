package cdr

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptyInput        = errors.New("input has no header row")
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// RawTable is an export as read from disk: one header row and untyped cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

/* ──────────── helpers ──────────── */

var spaceRE = regexp.MustCompile(`\s+`)

func norm(s string) string {
	return spaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

func colIdx(header []string, key string) int {
	key = norm(key)
	for i, h := range header {
		if norm(h) == key {
			return i
		}
	}
	return -1
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

/* ──────────── readers ──────────── */

// ReadFile picks a reader from the file extension.
func ReadFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

// Read parses r as CSV or XLSX depending on name's extension.
func Read(name string, r io.Reader) (*RawTable, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ReadCSV reads a comma separated export. Malformed lines are skipped.
func ReadCSV(r io.Reader) (*RawTable, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true

	t := &RawTable{}
	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) == 0 || blank(rec) {
			continue
		}
		if t.Header == nil {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	if t.Header == nil {
		return nil, ErrEmptyInput
	}
	return t, nil
}

// ReadXLSX reads the first sheet of a workbook. Cells are read raw so dates arrive as
// serial numbers and identifiers keep every digit.
func ReadXLSX(r io.Reader) (*RawTable, error) {
	x, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer x.Close()

	sheets := x.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	rows, err := x.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	t := &RawTable{}
	for _, rec := range rows {
		if len(rec) == 0 || blank(rec) {
			continue
		}
		if t.Header == nil {
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	if t.Header == nil {
		return nil, ErrEmptyInput
	}
	return t, nil
}
