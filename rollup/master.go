package rollup

import (
	"sort"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
)

// StartTimeLayout renders per-leg start times.
const StartTimeLayout = "2006-01-02 15:04:05"

// MasterContact is one customer contact stitched from all of its legs. Per-leg slices
// are in record order and have one entry per leg.
type MasterContact struct {
	MasterContactID string
	Legs            int
	ContactIDs      []string

	PreQueue         []float64
	InQueue          []float64
	AgentTime        []float64
	ACWSeconds       []float64
	PostQueue        []float64
	CustomerCallTime []float64
	AgentWorkTime    []float64
	StartTimes       []string
	BusinessHoursLeg []bool

	Skills      []string
	Teams       []string
	Departments []string
	Agents      []string
	Categories  []string

	InternalNumbers []string
	ExternalNumbers []string

	SLAMissed   int
	SLAMet      int
	SLAExceeded int

	// BusinessHours is true when any leg was inside business hours.
	BusinessHours bool
	// Timeframe is the earliest dated leg's month, zero when no leg is dated.
	Timeframe cdr.Timeframe
}

type contactAcc struct {
	mc                                                   *MasterContact
	ids, skills, teams, depts, agents, cats, intl, extnl *distinct
}

// MasterContacts groups recs by master contact id, sorted by timeframe then id.
func MasterContacts(recs []*cdr.Record) []MasterContact {
	groups := map[string]*contactAcc{}
	var order []string

	for _, r := range recs {
		id := r.ContactKey()
		a := groups[id]
		if a == nil {
			a = &contactAcc{
				mc:     &MasterContact{MasterContactID: id, Timeframe: r.Timeframe},
				ids:    newDistinct(),
				skills: newDistinct(),
				teams:  newDistinct(),
				depts:  newDistinct(),
				agents: newDistinct(),
				cats:   newDistinct(),
				intl:   newDistinct(),
				extnl:  newDistinct(),
			}
			groups[id] = a
			order = append(order, id)
		}
		a.add(r)
	}

	out := make([]MasterContact, 0, len(order))
	for _, id := range order {
		a := groups[id]
		mc := a.mc
		mc.ContactIDs = a.ids.values()
		mc.Skills = a.skills.values()
		mc.Teams = a.teams.values()
		mc.Departments = a.depts.values()
		mc.Agents = a.agents.values()
		mc.Categories = a.cats.values()
		mc.InternalNumbers = a.intl.values()
		mc.ExternalNumbers = a.extnl.values()
		out = append(out, *mc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timeframe != out[j].Timeframe {
			return out[i].Timeframe.Before(out[j].Timeframe)
		}
		return out[i].MasterContactID < out[j].MasterContactID
	})
	return out
}

func (a *contactAcc) add(r *cdr.Record) {
	mc := a.mc
	mc.Legs++
	if mc.Timeframe.IsZero() || (!r.Timeframe.IsZero() && r.Timeframe.Before(mc.Timeframe)) {
		mc.Timeframe = r.Timeframe
	}

	a.ids.add(r.ContactID)
	mc.PreQueue = append(mc.PreQueue, r.PreQueue)
	mc.InQueue = append(mc.InQueue, r.InQueue)
	mc.AgentTime = append(mc.AgentTime, r.AgentTime)
	mc.ACWSeconds = append(mc.ACWSeconds, r.ACWSeconds)
	mc.PostQueue = append(mc.PostQueue, r.PostQueue)
	mc.CustomerCallTime = append(mc.CustomerCallTime, r.CustomerCallTime)
	mc.AgentWorkTime = append(mc.AgentWorkTime, r.AgentWorkTime)
	mc.BusinessHoursLeg = append(mc.BusinessHoursLeg, r.BusinessHours)
	if r.StartTime != nil {
		mc.StartTimes = append(mc.StartTimes, r.StartTime.Format(StartTimeLayout))
	} else {
		mc.StartTimes = append(mc.StartTimes, "")
	}

	a.skills.add(r.SkillName)
	a.teams.add(r.TeamName)
	a.depts.add(string(r.Department))
	a.agents.add(r.AgentName)
	a.cats.add(string(r.Category))
	a.intl.add(r.InternalNumber)
	a.extnl.add(r.ExternalNumber)

	if r.SLA != nil {
		switch *r.SLA {
		case cdr.SLAMissed:
			mc.SLAMissed++
		case cdr.SLAMet:
			mc.SLAMet++
		case cdr.SLAExceeded:
			mc.SLAExceeded++
		}
	}
	mc.BusinessHours = mc.BusinessHours || r.BusinessHours
}
