package workbook

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNotProcessed is returned for a workbook with none of the sheets Write produces.
var ErrNotProcessed = errors.New("not a processed workbook")

// AllDepartments selects every department in Filter.
const AllDepartments = "All"

// Sheet is one sheet of a processed workbook, kept as text.
type Sheet struct {
	Name              string
	Kind              Kind
	BusinessHoursOnly bool // team/skill sheet of a business-hours cohort
	Header            []string
	Rows              [][]string
}

func (s *Sheet) col(name string) int {
	for i, h := range s.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func (s *Sheet) cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Processed is a previously written workbook. Department and business hours become
// filters over the stored columns; nothing is recomputed.
type Processed struct {
	Sheets []*Sheet
}

// Sheet finds a sheet by name.
func (p *Processed) Sheet(name string) *Sheet {
	for _, s := range p.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// LoadFile opens a processed workbook from disk.
func LoadFile(path string) (*Processed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load reads every sheet of a processed workbook.
func Load(r io.Reader) (*Processed, error) {
	x, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer x.Close()

	known := knownSheets()
	p := &Processed{}
	recognised := false
	for _, name := range x.GetSheetList() {
		rows, err := x.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		spec := classify(name, known)
		s := &Sheet{Name: name, Kind: spec.Kind, BusinessHoursOnly: spec.Cohort.BusinessHoursOnly}
		if len(rows) > 0 {
			s.Header = rows[0]
			s.Rows = rows[1:]
		}
		if s.Kind != KindOther {
			recognised = true
		}
		p.Sheets = append(p.Sheets, s)
	}
	if !recognised {
		return nil, ErrNotProcessed
	}
	return p, nil
}

// Departments lists the departments present in the scalar department columns of
// every sheet but Master_Contacts, sorted.
func (p *Processed) Departments() []string {
	seen := map[string]bool{}
	for _, s := range p.Sheets {
		if s.Kind == KindMaster {
			continue
		}
		i := s.col("department")
		if i < 0 {
			continue
		}
		for _, row := range s.Rows {
			c := DecodeCell(s.cell(row, i))
			if c.Kind == CellScalar && c.Text != "" {
				seen[c.Text] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Selection is a re-ingest filter. An empty Department or AllDepartments keeps every
// department.
type Selection struct {
	Department        string
	BusinessHoursOnly bool
}

// Filter returns a copy of p narrowed to sel. With BusinessHoursOnly set, team and
// skill sheets of all-hours cohorts are dropped, Total_Calls keeps Business_Hours == 1
// and Master_Contacts keeps business_hours_flag == 1. Spam_Calls is only department
// filtered.
func (p *Processed) Filter(sel Selection) *Processed {
	dept := strings.TrimSpace(sel.Department)
	if dept == AllDepartments {
		dept = ""
	}

	out := &Processed{}
	for _, s := range p.Sheets {
		if sel.BusinessHoursOnly && (s.Kind == KindTeam || s.Kind == KindSkill) && !s.BusinessHoursOnly {
			continue
		}

		keep := func([]string) bool { return true }
		di := s.col("department")
		if dept != "" && di >= 0 {
			if s.Kind == KindMaster {
				keep = func(row []string) bool { return DecodeCell(s.cell(row, di)).Contains(dept) }
			} else {
				keep = func(row []string) bool { return strings.TrimSpace(s.cell(row, di)) == dept }
			}
		}

		flagCol := -1
		if sel.BusinessHoursOnly {
			switch s.Kind {
			case KindTotal:
				flagCol = s.col("Business_Hours")
			case KindMaster:
				flagCol = s.col("business_hours_flag")
			}
		}

		ns := &Sheet{
			Name:              s.Name,
			Kind:              s.Kind,
			BusinessHoursOnly: s.BusinessHoursOnly,
			Header:            s.Header,
			Rows:              [][]string{},
		}
		for _, row := range s.Rows {
			if !keep(row) {
				continue
			}
			if flagCol >= 0 && !isOne(s.cell(row, flagCol)) {
				continue
			}
			ns.Rows = append(ns.Rows, row)
		}
		out.Sheets = append(out.Sheets, ns)
	}
	return out
}

func isOne(s string) bool {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "true") {
		return true
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == 1
}

// number parses v as a finite float.
func number(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// WriteProcessed writes p back out as a workbook, sheets in their original order.
func WriteProcessed(w io.Writer, p *Processed) error {
	x := excelize.NewFile()
	defer x.Close()

	for _, s := range p.Sheets {
		if _, err := x.NewSheet(s.Name); err != nil {
			return fmt.Errorf("sheet %q: %w", s.Name, err)
		}
		numeric := make([]bool, len(s.Header))
		for i, h := range s.Header {
			numeric[i] = numericColumns[h]
		}
		rows := append([][]string{s.Header}, s.Rows...)
		for r, row := range rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				var err error
				if f, ok := number(v); ok && r > 0 && c < len(numeric) && numeric[c] {
					err = x.SetCellFloat(s.Name, cell, f, -1, 64)
				} else {
					err = x.SetCellStr(s.Name, cell, v)
				}
				if err != nil {
					return err
				}
			}
		}
	}
	if p.Sheet("Sheet1") == nil {
		if err := x.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	x.SetActiveSheet(0)
	_, err := x.WriteTo(w)
	return err
}
