package rollup

import "github.com/jalad-shrimali/cdr-rollup/cdr"

// Cohort is a named filter over the classified record set.
type Cohort struct {
	Name              string
	Category          cdr.Category // empty matches every category
	BusinessHoursOnly bool
}

// Match reports whether r belongs to the cohort.
func (c Cohort) Match(r *cdr.Record) bool {
	if c.Category != "" && r.Category != c.Category {
		return false
	}
	return !c.BusinessHoursOnly || r.BusinessHours
}

const businessHoursSuffix = " Business Hours"

func cohortPair(name string, cat cdr.Category) []Cohort {
	return []Cohort{
		{Name: name, Category: cat},
		{Name: name + businessHoursSuffix, Category: cat, BusinessHoursOnly: true},
	}
}

// Cohorts is the fixed, ordered cohort list. Every rollup produces one table per entry.
var Cohorts = func() []Cohort {
	var out []Cohort
	out = append(out, cohortPair("All Calls", "")...)
	for _, c := range []cdr.Category{
		cdr.CategoryInbound,
		cdr.CategoryOutbound,
		cdr.CategoryVoicemail,
		cdr.CategoryAfterHours,
		cdr.CategoryNoAgent,
	} {
		out = append(out, cohortPair(string(c), c)...)
	}
	return out
}()

// CohortByName finds a cohort in Cohorts.
func CohortByName(name string) (Cohort, bool) {
	for _, c := range Cohorts {
		if c.Name == name {
			return c, true
		}
	}
	return Cohort{}, false
}
