package calendar

import (
	"time"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
)

// DefaultCutover is the day Deployment stopped staffing Saturdays.
var DefaultCutover = time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

// DefaultRules is the built-in schedule. Customer Support is staffed every day of the
// week; every other department is weekdays only.
func DefaultRules(cutover time.Time) []Rule {
	sat := Days(time.Saturday)
	return []Rule{
		{Department: cdr.DeptDeployment, Days: MonToFri, Open: At(7, 0), Close: At(19, 0)},
		{Department: cdr.DeptDeployment, Days: sat, Until: cutover, Open: At(8, 0), Close: At(16, 0)},
		{Department: cdr.DeptDeployment, Days: Weekend, Closed: true},

		{Department: cdr.DeptCustomerSupport, Days: AllWeek, Open: At(7, 0), Close: At(18, 30)},
		{Department: cdr.DeptSales, Days: MonToFri, Open: At(8, 0), Close: At(17, 0)},
		{Department: cdr.DeptBilling, Days: MonToFri, Open: At(8, 0), Close: At(17, 0)},
		{Department: cdr.DeptTechnical, Days: MonToFri, Open: At(9, 0), Close: At(17, 0)},
		{Department: cdr.DeptOther, Days: MonToFri, Open: At(9, 0), Close: At(17, 0)},

		{Department: AnyDepartment, Days: MonToFri, Open: At(9, 0), Close: At(17, 0)},
	}
}

// DefaultTable builds DefaultRules; the built-in rules always validate.
func DefaultTable(cutover time.Time) *Table {
	t, err := NewTable(DefaultRules(cutover))
	if err != nil {
		panic(err)
	}
	return t
}
