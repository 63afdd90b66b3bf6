package workbook

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
	"github.com/jalad-shrimali/cdr-rollup/pipeline"
	"github.com/jalad-shrimali/cdr-rollup/rollup"
)

func sampleRun(t *testing.T) *pipeline.Run {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Join(cdr.Columns, ",") + "\n")
	for _, l := range []string{
		"1,100,IB_Sales,Inside Sales,Camp,Ann,5551111,8005550000,2025-01-06,10:00:00,0,5,60,0,10,0,0,75",
		"2,100,IB_Support,Level 2 Support,Camp,Bob,5551111,8005550001,2025-01-06,10:05:00,0,5,60,0,10,0,1,75",
		"3,101,OB_Sales,Inside Sales,Camp,Ann,8005550000,5552222,2025-03-03,20:00:00,0,5,60,0,10,0,-1,75",
		"4,102,IB_Sales,Inside Sales,Camp,Ann,5553333,8005550000,2025-03-04,11:00:00,3,0,0,0,0,0,0,3",
	} {
		b.WriteString(l + "\n")
	}
	p := pipeline.New(pipeline.WithResolver(cdr.NewResolver(map[string]cdr.Department{
		"Inside Sales":    cdr.DeptSales,
		"Level 2 Support": cdr.DeptCustomerSupport,
	})))
	run, err := p.Process("calls.csv", strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Equal(t, 1, run.Summary.ExcludedCalls)
	return run
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Team - All Calls Business Hours", SheetName("Team - All Calls Business Hours"))
	assert.Equal(t, "Skill - After Hours Business Ho", SheetName("Skill - After Hours Business Hours"))
	assert.Equal(t, "a-b-c(d)", SheetName("a/b:c[d]"))
	assert.LessOrEqual(t, len([]rune(SheetName(strings.Repeat("é", 40)))), MaxSheetName)
}

func TestNamerDisambiguatesTruncation(t *testing.T) {
	n := newNamer()
	a := n.name("Skill - Some Very Long Cohort Name One")
	b := n.name("Skill - Some Very Long Cohort Name Two")
	c := n.name("skill - some very long cohort name one")

	assert.Equal(t, "Skill - Some Very Long Cohort N", a)
	assert.NotEqual(t, strings.ToLower(a), strings.ToLower(b))
	assert.NotEqual(t, strings.ToLower(b), strings.ToLower(c))
	for _, s := range []string{a, b, c} {
		assert.LessOrEqual(t, len(s), MaxSheetName)
	}
}

func TestLayoutIsCompleteAndUnique(t *testing.T) {
	specs := layout()
	require.Len(t, specs, 2*len(rollup.Cohorts)+3)

	seen := map[string]bool{}
	for _, s := range specs {
		key := strings.ToLower(s.Name)
		assert.False(t, seen[key], s.Name)
		seen[key] = true
		assert.LessOrEqual(t, len(s.Name), MaxSheetName)
	}
	assert.Equal(t, "Team - All Calls", specs[0].Name)
	assert.Equal(t, SheetSpam, specs[len(specs)-1].Name)
}

func TestDecodeCell(t *testing.T) {
	tests := []struct {
		in   string
		want Cell
	}{
		{"Sales", Cell{Kind: CellScalar, Text: "Sales"}},
		{"  ", Cell{Kind: CellScalar, Text: ""}},
		{`["Sales", "Customer Support"]`, Cell{Kind: CellList, List: []string{"Sales", "Customer Support"}}},
		{`['Sales', 'Billing and Collections']`, Cell{Kind: CellList, List: []string{"Sales", "Billing and Collections"}}},
		{`[1, 2.5, True, None]`, Cell{Kind: CellList, List: []string{"1", "2.5", "true", ""}}},
		{`[]`, Cell{Kind: CellList, List: []string{}}},
		{`{"5551111": 2}`, Cell{Kind: CellMap, Map: map[string]string{"5551111": "2"}}},
		{`{'5551111': 2, 'x': 'y'}`, Cell{Kind: CellMap, Map: map[string]string{"5551111": "2", "x": "y"}}},
		{`['it\'s']`, Cell{Kind: CellList, List: []string{"it's"}}},
		{`[__import__('os')]`, Cell{Kind: CellScalar, Text: `[__import__('os')]`}},
		{`[unterminated`, Cell{Kind: CellScalar, Text: `[unterminated`}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeCell(tt.in))
		})
	}

	assert.True(t, DecodeCell(`['Sales']`).Contains("Sales"))
	assert.False(t, DecodeCell(`['Sales']`).Contains("Sal"))
	assert.True(t, DecodeCell("Sales").Contains("Sales"))
}

func TestFileName(t *testing.T) {
	run := sampleRun(t)
	assert.Equal(t, "Phone_System_Analysis_Jan-2025_to_Mar-2025.xlsx", FileName(run))
	assert.Equal(t, "Phone_System_Analysis.xlsx", FileName(&pipeline.Run{}))
}

func TestWriteLayout(t *testing.T) {
	run := sampleRun(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, run))

	x, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer x.Close()

	var want []string
	for _, s := range layout() {
		want = append(want, s.Name)
	}
	assert.Equal(t, want, x.GetSheetList())

	rows, err := x.GetRows("Team - All Calls")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, teamHeader, rows[0])
	assert.Equal(t, []string{"Inside Sales", "Sales", "1-2025", "1"}, rows[1][:4])
	assert.Equal(t, []string{"Level 2 Support", "Customer Support", "1-2025"}, rows[2][:3])
	assert.Equal(t, []string{"Inside Sales", "Sales", "3-2025"}, rows[3][:3])

	rows, err = x.GetRows("Team - No Agent")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "empty cohort keeps its header")

	rows, err = x.GetRows("Skill - Outbound")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "OB_Sales", rows[1][0])

	rows, err = x.GetRows(SheetMaster)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "100", rows[1][0])
	assert.Equal(t, `["1","2"]`, rows[1][1])
	assert.Equal(t, `["Sales","Customer Support"]`, rows[1][9])

	rows, err = x.GetRows(SheetSpam)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "4", rows[1][0])
}

func TestWriteIsDeterministic(t *testing.T) {
	run := sampleRun(t)
	dump := func() string {
		x, err := Build(run)
		require.NoError(t, err)
		defer x.Close()
		var b strings.Builder
		for _, name := range x.GetSheetList() {
			rows, err := x.GetRows(name)
			require.NoError(t, err)
			fmt.Fprintf(&b, "%s %v\n", name, rows)
		}
		return b.String()
	}
	assert.Equal(t, dump(), dump())
}

func TestLoadAndFilter(t *testing.T) {
	run := sampleRun(t)
	path, err := Save(t.TempDir(), run)
	require.NoError(t, err)
	assert.Equal(t, FileName(run), filepath.Base(path))

	p, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, p.Sheets, 2*len(rollup.Cohorts)+3)

	assert.Equal(t, []string{"Customer Support", "Sales"}, p.Departments())

	t.Run("all departments", func(t *testing.T) {
		f := p.Filter(Selection{Department: AllDepartments})
		assert.Len(t, f.Sheet(SheetTotal).Rows, 3)
		assert.Len(t, f.Sheet(SheetMaster).Rows, 2)
	})

	t.Run("department", func(t *testing.T) {
		f := p.Filter(Selection{Department: "Customer Support"})
		assert.Len(t, f.Sheet(SheetTotal).Rows, 1)
		assert.Len(t, f.Sheet("Team - All Calls").Rows, 1)
		// master contact 100 spans Sales and Customer Support
		require.Len(t, f.Sheet(SheetMaster).Rows, 1)
		assert.Equal(t, "100", f.Sheet(SheetMaster).Rows[0][0])
		assert.Len(t, f.Sheet(SheetSpam).Rows, 0)
	})

	t.Run("business hours only", func(t *testing.T) {
		f := p.Filter(Selection{BusinessHoursOnly: true})
		assert.Len(t, f.Sheets, len(rollup.Cohorts)+3)
		for _, s := range f.Sheets {
			if s.Kind == KindTeam || s.Kind == KindSkill {
				assert.True(t, s.BusinessHoursOnly, s.Name)
			}
		}
		// the 20:00 outbound call is after hours
		assert.Len(t, f.Sheet(SheetTotal).Rows, 2)
		assert.Len(t, f.Sheet(SheetMaster).Rows, 1)
		assert.Len(t, f.Sheet(SheetSpam).Rows, 1)
	})

	t.Run("round trip", func(t *testing.T) {
		f := p.Filter(Selection{Department: "Sales", BusinessHoursOnly: true})
		var buf bytes.Buffer
		require.NoError(t, WriteProcessed(&buf, f))

		again, err := Load(&buf)
		require.NoError(t, err)
		require.Len(t, again.Sheets, len(f.Sheets))
		assert.Equal(t, f.Sheet(SheetMaster).Rows, again.Sheet(SheetMaster).Rows)
		assert.Equal(t, []string{"Sales"}, again.Departments())
	})
}

func TestLoadRejectsOtherWorkbooks(t *testing.T) {
	x := excelize.NewFile()
	require.NoError(t, x.SetCellStr("Sheet1", "A1", "hello"))
	var buf bytes.Buffer
	_, err := x.WriteTo(&buf)
	require.NoError(t, err)

	_, err = Load(&buf)
	assert.ErrorIs(t, err, ErrNotProcessed)
}

func TestWriteReplacesOversizedCells(t *testing.T) {
	const legs = 3000
	rows := make([][]string, 0, legs)
	for i := 0; i < legs; i++ {
		id := fmt.Sprint(i + 1)
		rows = append(rows, []string{
			id, id, "IB_Sales", "Inside Sales", "Camp", "Ann",
			fmt.Sprintf("555%07d", i), "8005550000", "2025-01-06", "10:00:00",
			"0", "5", "60", "0", "10", "0", "0", "75",
		})
	}
	p := pipeline.New(pipeline.WithResolver(cdr.NewResolver(map[string]cdr.Department{
		"Inside Sales": cdr.DeptSales,
	})))
	run, err := p.ProcessTable("calls.csv", &cdr.RawTable{Header: cdr.Columns, Rows: rows})
	require.NoError(t, err)
	require.Greater(t, len(countsCell(run.Team[0].Rows[0].ExternalNumbers)), excelize.TotalCellChars)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, run))
	// external_num_dict of All Calls and Inbound, with their business-hours twins, per axis
	assert.Equal(t, 8, run.Summary.TruncatedCells)

	got, err := Load(&buf)
	require.NoError(t, err)
	s := got.Sheet("Team - Inbound")
	require.NotNil(t, s)
	require.Len(t, s.Rows, 1)

	ext := s.cell(s.Rows[0], s.col("external_num_dict"))
	assert.True(t, strings.HasPrefix(ext, TruncatedMarker), ext)
	assert.Equal(t, CellScalar, DecodeCell(ext).Kind)

	in := DecodeCell(s.cell(s.Rows[0], s.col("internal_num_dict")))
	require.Equal(t, CellMap, in.Kind)
	assert.Equal(t, map[string]string{"8005550000": "3000"}, in.Map)
}

func TestWriteProcessedKeepsNumbers(t *testing.T) {
	path, err := Save(t.TempDir(), sampleRun(t))
	require.NoError(t, err)
	p, err := LoadFile(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteProcessed(&buf, p.Filter(Selection{})))

	x, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer x.Close()

	numeric := []excelize.CellType{excelize.CellTypeUnset, excelize.CellTypeNumber}
	text := []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}

	tests := []struct {
		sheet, column string
		want          []excelize.CellType
	}{
		{"Team - All Calls", "team_name", text},
		{"Team - All Calls", "call_volume", numeric},
		{"Team - All Calls", "sla_missed", numeric},
		{"Team - All Calls", "internal_num_dict", text},
		{SheetTotal, "ANI", text},
		{SheetTotal, "Business_Hours", numeric},
		{SheetTotal, "Total_Time", numeric},
		{SheetMaster, "PreQueue", text},
		{SheetMaster, "business_hours_flag", numeric},
	}
	for _, tt := range tests {
		t.Run(tt.sheet+"/"+tt.column, func(t *testing.T) {
			i := p.Sheet(tt.sheet).col(tt.column)
			require.GreaterOrEqual(t, i, 0)
			cell, err := excelize.CoordinatesToCellName(i+1, 2)
			require.NoError(t, err)
			typ, err := x.GetCellType(tt.sheet, cell)
			require.NoError(t, err)
			assert.Contains(t, tt.want, typ)
		})
	}

	again, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, p.Sheet(SheetTotal).Rows, again.Sheet(SheetTotal).Rows)
}
