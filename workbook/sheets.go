// Package workbook writes a processed run to a multi-sheet XLSX file and reads such a
// file back for department and business-hours filtering.
package workbook

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/jalad-shrimali/cdr-rollup/rollup"
)

const (
	SheetMaster = "Master_Contacts"
	SheetTotal  = "Total_Calls"
	SheetSpam   = "Spam_Calls"

	TeamPrefix  = "Team - "
	SkillPrefix = "Skill - "

	// MaxSheetName is the XLSX sheet-name limit.
	MaxSheetName = 31
)

// Kind tells what a sheet holds.
type Kind int

const (
	KindOther Kind = iota
	KindTeam
	KindSkill
	KindMaster
	KindTotal
	KindSpam
)

func (k Kind) String() string {
	switch k {
	case KindTeam:
		return "team"
	case KindSkill:
		return "skill"
	case KindMaster:
		return "master"
	case KindTotal:
		return "total"
	case KindSpam:
		return "spam"
	}
	return "other"
}

var badSheetChars = strings.NewReplacer(
	":", "-", `\`, "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")",
)

// SheetName strips characters XLSX forbids and truncates to MaxSheetName runes.
func SheetName(full string) string {
	s := strings.Trim(badSheetChars.Replace(full), "'")
	if utf8.RuneCountInString(s) <= MaxSheetName {
		return s
	}
	return string([]rune(s)[:MaxSheetName])
}

// namer hands out unique sheet names. A truncated name that collides (sheet names
// compare case-insensitively) gets a short hash of the full name as suffix.
type namer struct {
	used map[string]bool
}

func newNamer() *namer { return &namer{used: map[string]bool{}} }

func (n *namer) name(full string) string {
	s := SheetName(full)
	for i := 0; n.used[strings.ToLower(s)]; i++ {
		suffix := fmt.Sprintf("~%06x", xxhash.Sum64String(fmt.Sprintf("%s#%d", full, i))&0xffffff)
		base := []rune(SheetName(full))
		if keep := MaxSheetName - len(suffix); len(base) > keep {
			base = base[:keep]
		}
		s = string(base) + suffix
	}
	n.used[strings.ToLower(s)] = true
	return s
}

// sheetSpec is one entry of the fixed workbook layout.
type sheetSpec struct {
	Name   string
	Kind   Kind
	Cohort rollup.Cohort
}

// layout is the sheet order of every workbook this package writes: team cohorts, skill
// cohorts, then the detail sheets.
func layout() []sheetSpec {
	n := newNamer()
	var out []sheetSpec
	for _, c := range rollup.Cohorts {
		out = append(out, sheetSpec{Name: n.name(TeamPrefix + c.Name), Kind: KindTeam, Cohort: c})
	}
	for _, c := range rollup.Cohorts {
		out = append(out, sheetSpec{Name: n.name(SkillPrefix + c.Name), Kind: KindSkill, Cohort: c})
	}
	for _, s := range []sheetSpec{
		{Name: SheetMaster, Kind: KindMaster},
		{Name: SheetTotal, Kind: KindTotal},
		{Name: SheetSpam, Kind: KindSpam},
	} {
		s.Name = n.name(s.Name)
		out = append(out, s)
	}
	return out
}

// classify recognises a sheet read back from a file. Names from the standard layout
// map to their cohort; anything else is judged by prefix.
func classify(name string, known map[string]sheetSpec) sheetSpec {
	if s, ok := known[strings.ToLower(name)]; ok {
		return s
	}
	s := sheetSpec{Name: name}
	switch {
	case name == SheetMaster:
		s.Kind = KindMaster
	case name == SheetTotal:
		s.Kind = KindTotal
	case name == SheetSpam:
		s.Kind = KindSpam
	case strings.HasPrefix(name, "Team"):
		s.Kind = KindTeam
		s.Cohort.BusinessHoursOnly = strings.Contains(name, "Business Hours")
	case strings.HasPrefix(name, "Skill"):
		s.Kind = KindSkill
		s.Cohort.BusinessHoursOnly = strings.Contains(name, "Business Hours")
	}
	return s
}

func knownSheets() map[string]sheetSpec {
	m := map[string]sheetSpec{}
	for _, s := range layout() {
		m[strings.ToLower(s.Name)] = s
	}
	return m
}
