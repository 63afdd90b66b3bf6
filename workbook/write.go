package workbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
	"github.com/jalad-shrimali/cdr-rollup/pipeline"
	"github.com/jalad-shrimali/cdr-rollup/rollup"
)

/* ──────────── column layouts (keep order) ──────────── */

var rowMetrics = []string{
	"call_volume",
	"total_customer_call_time", "prequeue_time", "inqueue_time", "agent_time",
	"postqueue_time", "acw_time", "agent_total_time", "abandon_time",
	"sla_missed", "sla_met", "sla_exceeded",
	"business_hours_calls", "after_hours_calls",
}

var rowCategories = []string{
	"internal_num_dict", "external_num_dict",
	"inbound_calls", "outbound_calls", "voicemail_calls",
	"afterhours_calls", "noagent_calls", "other_calls",
}

var teamHeader = concat(
	[]string{"team_name", "department", "Timeframe"},
	rowMetrics,
	[]string{
		"unique_agents_count", "unique_skills_count", "unique_campaigns_count",
		"agents_list", "skills_list", "campaigns_list",
	},
	rowCategories,
)

var skillHeader = concat(
	[]string{"skill_name", "department", "Timeframe"},
	rowMetrics,
	[]string{
		"unique_agents_count", "unique_teams_count", "unique_campaigns_count",
		"agents_list", "teams_list", "campaigns_dict",
	},
	rowCategories,
)

var masterHeader = []string{
	"master_contact_id", "contact_id",
	"PreQueue", "InQueue", "Agent_Time", "ACW_Seconds", "PostQueue",
	"skill_name", "team_name", "department", "agent_name", "call_category",
	"internal_num_list", "external_num_list",
	"sla_missed", "sla_met", "sla_exceeded",
	"business_hours_flag", "business_hours_list",
	"start_time", "Timeframe",
	"customer_call_time", "agent_total_time",
}

var recordHeader = concat(cdr.Columns, []string{
	"Timeframe", "call_category", "department", "Business_Hours",
	"customer_call_time", "Agent_Work_Time", "internal_number", "external_number",
})

// numericColumns are written back as numbers by WriteProcessed. Columns that share a
// name but hold lists on Master_Contacts do not parse as numbers and stay text.
var numericColumns = func() map[string]bool {
	m := map[string]bool{}
	for _, c := range concat(rowMetrics, rowCategories[2:], []string{
		"unique_agents_count", "unique_skills_count", "unique_teams_count", "unique_campaigns_count",
		"business_hours_flag",
		cdr.ColPreQueue, cdr.ColInQueue, cdr.ColAgentTime, cdr.ColPostQueue, cdr.ColACWSeconds,
		cdr.ColAbandonTime, cdr.ColSLA, cdr.ColTotalTime,
		"Business_Hours", "customer_call_time", "Agent_Work_Time",
	}) {
		m[c] = true
	}
	return m
}()

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

/* ──────────── rows ──────────── */

func header(h []string) []any {
	out := make([]any, len(h))
	for i, v := range h {
		out[i] = v
	}
	return out
}

func tableRows(t *rollup.Table) [][]any {
	h := teamHeader
	if t.Axis == rollup.BySkill {
		h = skillHeader
	}
	rows := [][]any{header(h)}
	for _, r := range t.Rows {
		row := []any{
			r.Key, string(r.Department), r.Timeframe.String(),
			r.CallVolume,
			r.CustomerCallTime, r.PreQueue, r.InQueue, r.AgentTime,
			r.PostQueue, r.ACW, r.AgentWorkTime, r.AbandonTime,
			r.SLAMissed, r.SLAMet, r.SLAExceeded,
			r.BusinessHoursCalls, r.AfterHoursCalls,
		}
		if t.Axis == rollup.BySkill {
			row = append(row,
				len(r.Agents), len(r.Teams), len(r.Campaigns),
				listCell(r.Agents), listCell(r.Teams), countsCell(r.CampaignCounts))
		} else {
			row = append(row,
				len(r.Agents), len(r.Skills), len(r.Campaigns),
				listCell(r.Agents), listCell(r.Skills), listCell(r.Campaigns))
		}
		row = append(row,
			countsCell(r.InternalNumbers), countsCell(r.ExternalNumbers),
			r.Inbound, r.Outbound, r.Voicemail, r.AfterHours, r.NoAgent, r.Other)
		rows = append(rows, row)
	}
	return rows
}

func masterRows(mcs []rollup.MasterContact) [][]any {
	rows := [][]any{header(masterHeader)}
	for _, m := range mcs {
		rows = append(rows, []any{
			m.MasterContactID, listCell(m.ContactIDs),
			jsonText(m.PreQueue), jsonText(m.InQueue), jsonText(m.AgentTime),
			jsonText(m.ACWSeconds), jsonText(m.PostQueue),
			listCell(m.Skills), listCell(m.Teams), listCell(m.Departments),
			listCell(m.Agents), listCell(m.Categories),
			listCell(m.InternalNumbers), listCell(m.ExternalNumbers),
			m.SLAMissed, m.SLAMet, m.SLAExceeded,
			flag(m.BusinessHours), jsonText(flags(m.BusinessHoursLeg)),
			listCell(m.StartTimes), m.Timeframe.String(),
			jsonText(m.CustomerCallTime), jsonText(m.AgentWorkTime),
		})
	}
	return rows
}

func recordRows(recs []*cdr.Record) [][]any {
	rows := [][]any{header(recordHeader)}
	for _, r := range recs {
		date, start := "", ""
		if !r.StartDate.IsZero() {
			date = r.StartDate.Format("2006-01-02")
		}
		if r.StartTime != nil {
			start = r.StartTime.Format(rollup.StartTimeLayout)
		}
		var sla any = ""
		if r.SLA != nil {
			sla = int(*r.SLA)
		}
		rows = append(rows, []any{
			r.ContactID, r.MasterContactID, r.SkillName, r.TeamName, r.CampaignName,
			r.AgentName, r.ANI, r.DNIS, date, start,
			r.PreQueue, r.InQueue, r.AgentTime, r.PostQueue, r.ACWSeconds,
			r.AbandonTime, sla, r.TotalTime,
			r.Timeframe.String(), string(r.Category), string(r.Department), flag(r.BusinessHours),
			r.CustomerCallTime, r.AgentWorkTime, r.InternalNumber, r.ExternalNumber,
		})
	}
	return rows
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func flags(bs []bool) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		out[i] = flag(b)
	}
	return out
}

/* ──────────── workbook ──────────── */

// FileName names the workbook after the first and last month of the clean set.
func FileName(run *pipeline.Run) string {
	if run == nil || run.Summary.FirstDate.IsZero() {
		return "Phone_System_Analysis.xlsx"
	}
	return fmt.Sprintf("Phone_System_Analysis_%s_to_%s.xlsx",
		run.Summary.FirstDate.Format("Jan-2006"), run.Summary.LastDate.Format("Jan-2006"))
}

// Build lays the run out as a workbook: one sheet per cohort for the team and skill
// views, then Master_Contacts, Total_Calls and Spam_Calls. It sets
// run.Summary.TruncatedCells.
func Build(run *pipeline.Run) (*excelize.File, error) {
	team := map[string]*rollup.Table{}
	for _, t := range run.Team {
		team[t.Cohort.Name] = t
	}
	skill := map[string]*rollup.Table{}
	for _, t := range run.Skill {
		skill[t.Cohort.Name] = t
	}

	x := excelize.NewFile()
	truncated := 0
	add := func(name string, rows [][]any) error {
		if _, err := x.NewSheet(name); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
		for r := range rows {
			truncated += fitCells(rows[r])
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := x.SetSheetRow(name, cell, &rows[r]); err != nil {
				return fmt.Errorf("sheet %q row %d: %w", name, r+1, err)
			}
		}
		return nil
	}

	for _, s := range layout() {
		var rows [][]any
		switch s.Kind {
		case KindTeam:
			t := team[s.Cohort.Name]
			if t == nil {
				t = &rollup.Table{Axis: rollup.ByTeam, Cohort: s.Cohort}
			}
			rows = tableRows(t)
		case KindSkill:
			t := skill[s.Cohort.Name]
			if t == nil {
				t = &rollup.Table{Axis: rollup.BySkill, Cohort: s.Cohort}
			}
			rows = tableRows(t)
		case KindMaster:
			rows = masterRows(run.MasterContacts)
		case KindTotal:
			rows = recordRows(run.Records)
		case KindSpam:
			rows = recordRows(run.Spam)
		}
		if err := add(s.Name, rows); err != nil {
			x.Close()
			return nil, err
		}
	}
	if err := x.DeleteSheet("Sheet1"); err != nil {
		x.Close()
		return nil, err
	}
	x.SetActiveSheet(0)
	run.Summary.TruncatedCells = truncated
	return x, nil
}

// TruncatedMarker starts the text written in place of a cell longer than
// excelize.TotalCellChars, the most text a cell holds.
const TruncatedMarker = "#TRUNCATED"

// fitCells replaces over-long text cells in row with a marker and returns how many
// it replaced.
func fitCells(row []any) int {
	n := 0
	for i, v := range row {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if l := utf8.RuneCountInString(s); l > excelize.TotalCellChars {
			row[i] = fmt.Sprintf("%s: %d characters exceed the %d character cell limit",
				TruncatedMarker, l, excelize.TotalCellChars)
			n++
		}
	}
	return n
}

// Write streams the workbook for run to w.
func Write(w io.Writer, run *pipeline.Run) error {
	x, err := Build(run)
	if err != nil {
		return err
	}
	defer x.Close()
	_, err = x.WriteTo(w)
	return err
}

// Save writes the workbook into dir under FileName and returns its path.
func Save(dir string, run *pipeline.Run) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	out := filepath.Join(dir, FileName(run))
	x, err := Build(run)
	if err != nil {
		return "", err
	}
	defer x.Close()
	if err := x.SaveAs(out); err != nil {
		return "", err
	}
	return out, nil
}
