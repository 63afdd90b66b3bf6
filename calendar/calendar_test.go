package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
)

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDefaultTableWindows(t *testing.T) {
	tbl := DefaultTable(DefaultCutover)

	tests := []struct {
		name string
		dept cdr.Department
		when string
		want bool
	}{
		// 2025-01-06 is a Monday
		{"support opens inclusive", cdr.DeptCustomerSupport, "2025-01-06 07:00:00", true},
		{"support before open", cdr.DeptCustomerSupport, "2025-01-06 06:59:00", false},
		{"support closes inclusive", cdr.DeptCustomerSupport, "2025-01-06 18:30:00", true},
		{"support after close", cdr.DeptCustomerSupport, "2025-01-06 18:31:00", false},
		{"support sunday", cdr.DeptCustomerSupport, "2025-01-05 12:00:00", true},
		{"sales open", cdr.DeptSales, "2025-01-06 08:00:00", true},
		{"sales before open", cdr.DeptSales, "2025-01-06 07:59:00", false},
		{"sales close", cdr.DeptSales, "2025-01-06 17:00:00", true},
		{"sales after close", cdr.DeptSales, "2025-01-06 17:01:00", false},
		{"sales saturday", cdr.DeptSales, "2025-01-04 10:00:00", false},
		{"billing open", cdr.DeptBilling, "2025-01-07 08:00:00", true},
		{"technical before open", cdr.DeptTechnical, "2025-01-07 08:59:00", false},
		{"technical open", cdr.DeptTechnical, "2025-01-07 09:00:00", true},
		{"other close", cdr.DeptOther, "2025-01-07 17:00:00", true},
		{"unlisted falls back", cdr.Department("Marketing"), "2025-01-07 09:00:00", true},
		{"unlisted weekend", cdr.Department("Marketing"), "2025-01-04 09:00:00", false},
		{"deployment weekday", cdr.DeptDeployment, "2025-08-04 19:00:00", true},
		{"deployment weekday late", cdr.DeptDeployment, "2025-08-04 19:01:00", false},
		{"deployment sunday", cdr.DeptDeployment, "2025-06-29 10:00:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tbl.IsBusinessHours(tt.dept, at(tt.when)))
		})
	}
}

func TestDeploymentCutover(t *testing.T) {
	tbl := DefaultTable(DefaultCutover)

	// 2025-06-28 and 2025-07-05 are Saturdays either side of the cutover.
	assert.True(t, tbl.IsBusinessHours(cdr.DeptDeployment, at("2025-06-28 08:00:00")))
	assert.True(t, tbl.IsBusinessHours(cdr.DeptDeployment, at("2025-06-28 16:00:00")))
	assert.False(t, tbl.IsBusinessHours(cdr.DeptDeployment, at("2025-06-28 16:01:00")))
	assert.False(t, tbl.IsBusinessHours(cdr.DeptDeployment, at("2025-07-05 10:00:00")))

	r, ok := tbl.Lookup(cdr.DeptDeployment, *at("2025-07-05 10:00:00"))
	require.True(t, ok)
	assert.True(t, r.Closed)

	moved := DefaultTable(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, moved.IsBusinessHours(cdr.DeptDeployment, at("2025-07-05 10:00:00")))
}

func TestNilTimeIsOutside(t *testing.T) {
	tbl := DefaultTable(DefaultCutover)
	for _, d := range cdr.Departments {
		assert.False(t, tbl.IsBusinessHours(d, nil), d)
	}
}

func TestFirstMatchWins(t *testing.T) {
	tbl, err := NewTable([]Rule{
		{Department: cdr.DeptSales, Days: AllWeek, Open: At(10, 0), Close: At(11, 0)},
		{Department: cdr.DeptSales, Days: AllWeek, Open: At(0, 0), Close: At(23, 59)},
	})
	require.NoError(t, err)
	assert.False(t, tbl.IsBusinessHours(cdr.DeptSales, at("2025-01-06 12:00:00")))

	empty, err := NewTable(nil)
	require.NoError(t, err)
	assert.False(t, empty.IsBusinessHours(cdr.DeptSales, at("2025-01-06 12:00:00")))
}

func TestNewTableRejectsBadRules(t *testing.T) {
	cut := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bad := []Rule{
		{Days: AllWeek},
		{Department: cdr.DeptSales},
		{Department: cdr.DeptSales, Days: AllWeek, Open: At(18, 0), Close: At(9, 0)},
		{Department: cdr.DeptSales, Days: AllWeek, From: cut, Until: cut},
	}
	for _, r := range bad {
		_, err := NewTable([]Rule{r})
		assert.ErrorIs(t, err, ErrInvalidRule)
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("7:00")
	require.NoError(t, err)
	assert.Equal(t, At(7, 0), c)
	assert.Equal(t, "07:00", c.String())

	c, err = ParseClock("18:30:15")
	require.NoError(t, err)
	assert.Equal(t, "18:30:15", c.String())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		in   []string
		want Weekdays
	}{
		{[]string{"mon-fri"}, MonToFri},
		{[]string{"weekdays"}, MonToFri},
		{[]string{"Saturday", "sun"}, Weekend},
		{[]string{"sat-sun"}, Weekend},
		{[]string{"all"}, AllWeek},
		{[]string{"fri-mon"}, Days(time.Friday, time.Saturday, time.Sunday, time.Monday)},
	}
	for _, tt := range tests {
		got, err := ParseWeekdays(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseWeekdays([]string{"funday"})
	assert.Error(t, err)
	assert.Equal(t, "mon-fri", MonToFri.String())
	assert.Equal(t, "mon,wed", Days(time.Monday, time.Wednesday).String())
}
