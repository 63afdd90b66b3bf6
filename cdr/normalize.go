package cdr

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Export headers, in the order they are written back out.
const (
	ColContactID       = "contact_id"
	ColMasterContactID = "master_contact_id"
	ColSkillName       = "skill_name"
	ColTeamName        = "team_name"
	ColCampaignName    = "campaign_name"
	ColAgentName       = "agent_name"
	ColANI             = "ANI"
	ColDNIS            = "DNIS"
	ColStartDate       = "start_date"
	ColStartTime       = "start_time"
	ColPreQueue        = "PreQueue"
	ColInQueue         = "InQueue"
	ColAgentTime       = "Agent_Time"
	ColPostQueue       = "PostQueue"
	ColACWSeconds      = "ACW_Seconds"
	ColAbandonTime     = "Abandon_Time"
	ColSLA             = "SLA"
	ColTotalTime       = "Total_Time"

	// ColACWTime is accepted on input and dropped; it duplicates ACW_Seconds.
	ColACWTime = "ACW_Time"
)

// Columns is the required input header set.
var Columns = []string{
	ColContactID, ColMasterContactID, ColSkillName, ColTeamName, ColCampaignName,
	ColAgentName, ColANI, ColDNIS, ColStartDate, ColStartTime, ColPreQueue, ColInQueue,
	ColAgentTime, ColPostQueue, ColACWSeconds, ColAbandonTime, ColSLA, ColTotalTime,
}

var ErrMissingColumn = errors.New("missing required column")

// MissingColumnsError names every required header absent from the input.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumn, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumn }

// NormalizeResult is the typed batch plus row-level accounting.
type NormalizeResult struct {
	Records       []*Record
	InvalidRows   int // start_date did not parse; kept undated
	NullStartTime int // dated, but the time of day did not parse
}

// Normalizer turns raw rows into typed records. Wall-clock values are placed in
// Location.
type Normalizer struct {
	Location *time.Location
}

func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Location: loc}
}

// Normalize validates the header, parses every row and returns the batch sorted by
// start time. Only a missing column is fatal; bad cells are defaulted.
func (n *Normalizer) Normalize(t *RawTable) (*NormalizeResult, error) {
	if t == nil || t.Header == nil {
		return nil, ErrEmptyInput
	}

	col := make(map[string]int, len(Columns))
	var missing []string
	for _, name := range Columns {
		i := colIdx(t.Header, name)
		if i < 0 {
			missing = append(missing, name)
			continue
		}
		col[name] = i
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	res := &NormalizeResult{Records: make([]*Record, 0, len(t.Rows))}
	for _, rec := range t.Rows {
		pick := func(name string) string {
			i := col[name]
			if i >= len(rec) {
				return ""
			}
			v := strings.TrimSpace(rec[i])
			if nullish(v) {
				return ""
			}
			return v
		}

		date, dated := n.parseDate(pick(ColStartDate))
		if !dated {
			res.InvalidRows++
		}

		r := &Record{
			ContactID:       CanonicalID(pick(ColContactID)),
			MasterContactID: CanonicalID(pick(ColMasterContactID)),
			ANI:             CanonicalID(pick(ColANI)),
			DNIS:            CanonicalID(pick(ColDNIS)),
			SkillName:       pick(ColSkillName),
			TeamName:        pick(ColTeamName),
			CampaignName:    pick(ColCampaignName),
			AgentName:       pick(ColAgentName),
			StartDate:       date,
			PreQueue:        seconds(pick(ColPreQueue)),
			InQueue:         seconds(pick(ColInQueue)),
			AgentTime:       seconds(pick(ColAgentTime)),
			PostQueue:       seconds(pick(ColPostQueue)),
			ACWSeconds:      seconds(pick(ColACWSeconds)),
			AbandonTime:     seconds(pick(ColAbandonTime)),
			TotalTime:       seconds(pick(ColTotalTime)),
			SLA:             parseSLA(pick(ColSLA)),
		}
		if r.TeamName == "" {
			r.TeamName = NoAssignedTeam
		}
		if dated {
			if st, ok := n.combine(date, pick(ColStartTime)); ok {
				r.StartTime = &st
			} else {
				res.NullStartTime++
			}
			r.Timeframe = TimeframeOf(date)
		}
		r.CustomerCallTime = r.PreQueue + r.InQueue + r.AgentTime + r.PostQueue
		r.AgentWorkTime = r.ACWSeconds + r.AgentTime

		res.Records = append(res.Records, r)
	}

	SortByStartTime(res.Records)
	return res, nil
}

// SortByStartTime orders records ascending, nil start times last, ties in input order.
func SortByStartTime(recs []*Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i].StartTime, recs[j].StartTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

/* ──────────── identifiers ──────────── */

var (
	intFloatRE = regexp.MustCompile(`^[+-]?\d+\.0+$`)
	sciRE      = regexp.MustCompile(`^[+-]?\d+(\.\d+)?[eE][+-]?\d+$`)
)

// CanonicalID renders identifiers and phone numbers the way they were keyed in:
// "12345.0" and "1.2345E+4" both become "12345".
func CanonicalID(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `'"`)
	if nullish(s) {
		return ""
	}
	if intFloatRE.MatchString(s) {
		s, _, _ = strings.Cut(s, ".")
		return strings.TrimPrefix(s, "+")
	}
	if sciRE.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1e18 {
			return strconv.FormatFloat(f, 'f', 0, 64)
		}
	}
	return s
}

func nullish(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "nat", "none", "null", "<na>":
		return true
	}
	return false
}

/* ──────────── numbers ──────────── */

func seconds(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseSLA(s string) *SLA {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v := SLA(math.Round(f))
	if float64(v) != f || v < SLAMissed || v > SLAExceeded {
		return nil
	}
	return &v
}

/* ──────────── dates & times ──────────── */

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"1/2/06",
	"02-Jan-2006",
	"Jan 2, 2006",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"15:04:05.000",
	"3:04:05 PM",
	"3:04 PM",
	"3:04:05PM",
	"3:04PM",
}

func (n *Normalizer) parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 1 || f > 2958465 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, n.Location), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, n.Location), true
		}
	}
	return time.Time{}, false
}

// combine places the time-of-day cell on date. The cell may be a clock string, a day
// fraction, a full timestamp or a datetime serial.
func (n *Normalizer) combine(date time.Time, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	at := func(sec int) time.Time {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, sec, 0, n.Location)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 {
			return time.Time{}, false
		}
		frac := f - math.Floor(f)
		sec := int(math.Round(frac * 86400))
		if sec >= 86400 {
			sec = 86399
		}
		return at(sec), true
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return at(t.Hour()*3600 + t.Minute()*60 + t.Second()), true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil && strings.ContainsRune(layout, ':') {
			return at(t.Hour()*3600 + t.Minute()*60 + t.Second()), true
		}
	}
	return time.Time{}, false
}
