// Package rollup groups classified call records into the monthly team and skill
// tables and the per-customer master contact view.
package rollup

import (
	"sort"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
)

// Axis selects the grouping key of a rollup table.
type Axis int

const (
	ByTeam Axis = iota
	BySkill
)

func (a Axis) String() string {
	if a == BySkill {
		return "Skill"
	}
	return "Team"
}

func (a Axis) key(r *cdr.Record) string {
	if a == BySkill {
		return r.SkillName
	}
	return r.TeamName
}

// Row is one (key, department, timeframe) group.
type Row struct {
	Key        string // team_name or skill_name
	Department cdr.Department
	Timeframe  cdr.Timeframe

	CallVolume int

	CustomerCallTime float64
	PreQueue         float64
	InQueue          float64
	AgentTime        float64
	PostQueue        float64
	ACW              float64
	AgentWorkTime    float64
	AbandonTime      float64

	SLAMissed   int
	SLAMet      int
	SLAExceeded int

	BusinessHoursCalls int
	AfterHoursCalls    int

	Agents         []string
	Skills         []string
	Teams          []string
	Campaigns      []string
	CampaignCounts map[string]int

	InternalNumbers NumberFrequency
	ExternalNumbers NumberFrequency

	Inbound    int
	Outbound   int
	Voicemail  int
	AfterHours int
	NoAgent    int
	Other      int
}

// Table is the rollup of one cohort along one axis. Rows are sorted by timeframe,
// then key, then department.
type Table struct {
	Axis   Axis
	Cohort Cohort
	Rows   []Row
}

type groupKey struct {
	key  string
	dept cdr.Department
	tf   cdr.Timeframe
}

type acc struct {
	row                              *Row
	agents, skills, teams, campaigns *distinct
}

// Build aggregates the records of recs matching cohort. The result is never nil and
// has no rows when nothing matches.
func Build(axis Axis, cohort Cohort, recs []*cdr.Record) *Table {
	groups := map[groupKey]*acc{}
	var order []groupKey

	for _, r := range recs {
		if !cohort.Match(r) {
			continue
		}
		k := groupKey{key: axis.key(r), dept: r.Department, tf: r.Timeframe}
		a := groups[k]
		if a == nil {
			a = &acc{
				row: &Row{
					Key:             k.key,
					Department:      k.dept,
					Timeframe:       k.tf,
					CampaignCounts:  map[string]int{},
					InternalNumbers: NumberFrequency{},
					ExternalNumbers: NumberFrequency{},
				},
				agents:    newDistinct(),
				skills:    newDistinct(),
				teams:     newDistinct(),
				campaigns: newDistinct(),
			}
			groups[k] = a
			order = append(order, k)
		}
		a.add(r)
	}

	t := &Table{Axis: axis, Cohort: cohort, Rows: make([]Row, 0, len(order))}
	for _, k := range order {
		a := groups[k]
		a.row.Agents = a.agents.values()
		a.row.Skills = a.skills.values()
		a.row.Teams = a.teams.values()
		a.row.Campaigns = a.campaigns.values()
		t.Rows = append(t.Rows, *a.row)
	}
	// undated rows carry the zero timeframe and sort first
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if a.Timeframe != b.Timeframe {
			return a.Timeframe.Before(b.Timeframe)
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Department < b.Department
	})
	return t
}

func (a *acc) add(r *cdr.Record) {
	row := a.row
	row.CallVolume++

	row.CustomerCallTime += r.CustomerCallTime
	row.PreQueue += r.PreQueue
	row.InQueue += r.InQueue
	row.AgentTime += r.AgentTime
	row.PostQueue += r.PostQueue
	row.ACW += r.ACWSeconds
	row.AgentWorkTime += r.AgentWorkTime
	row.AbandonTime += r.AbandonTime

	if r.SLA != nil {
		switch *r.SLA {
		case cdr.SLAMissed:
			row.SLAMissed++
		case cdr.SLAMet:
			row.SLAMet++
		case cdr.SLAExceeded:
			row.SLAExceeded++
		}
	}

	if r.BusinessHours {
		row.BusinessHoursCalls++
	} else {
		row.AfterHoursCalls++
	}

	a.agents.add(r.AgentName)
	a.skills.add(r.SkillName)
	a.teams.add(r.TeamName)
	a.campaigns.add(r.CampaignName)
	if r.CampaignName != "" {
		row.CampaignCounts[r.CampaignName]++
	}

	row.InternalNumbers.Add(r.InternalNumber)
	row.ExternalNumbers.Add(r.ExternalNumber)

	switch r.Category {
	case cdr.CategoryInbound:
		row.Inbound++
	case cdr.CategoryOutbound:
		row.Outbound++
	case cdr.CategoryVoicemail:
		row.Voicemail++
	case cdr.CategoryAfterHours:
		row.AfterHours++
	case cdr.CategoryNoAgent:
		row.NoAgent++
	default:
		row.Other++
	}
}

// BuildAll produces one table per entry of Cohorts, in that order.
func BuildAll(axis Axis, recs []*cdr.Record) []*Table {
	out := make([]*Table, 0, len(Cohorts))
	for _, c := range Cohorts {
		out = append(out, Build(axis, c, recs))
	}
	return out
}
