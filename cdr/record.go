package cdr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category is the call category inferred from the routing skill.
type Category string

const (
	CategoryInbound    Category = "Inbound"
	CategoryOutbound   Category = "Outbound"
	CategoryVoicemail  Category = "Voicemail"
	CategoryAfterHours Category = "After Hours"
	CategoryNoAgent    Category = "No Agent"
	CategoryOther      Category = "Other"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryInbound,
	CategoryOutbound,
	CategoryVoicemail,
	CategoryAfterHours,
	CategoryNoAgent,
	CategoryOther,
}

// ParseCategory accepts display names ("After Hours") and compact names ("AfterHours").
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, c := range Categories {
		if strings.ToLower(strings.ReplaceAll(string(c), " ", "")) == key {
			return c, true
		}
	}
	return "", false
}

// Department is the organisational unit a team rolls up to.
type Department string

const (
	DeptDeployment      Department = "Deployment"
	DeptSales           Department = "Sales"
	DeptBilling         Department = "Billing and Collections"
	DeptCustomerSupport Department = "Customer Support"
	DeptTechnical       Department = "Technical Team"
	DeptOther           Department = "Other"
)

// Departments lists the fixed department set.
var Departments = []Department{
	DeptDeployment,
	DeptSales,
	DeptBilling,
	DeptCustomerSupport,
	DeptTechnical,
	DeptOther,
}

// ParseDepartment matches a department name case-insensitively.
func ParseDepartment(s string) (Department, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Departments {
		if strings.EqualFold(string(d), s) {
			return d, true
		}
	}
	return "", false
}

// NoAssignedTeam replaces an empty team_name.
const NoAssignedTeam = "No Assigned Team"

// SLA is the tri-state service level outcome. Nil on a record means unknown.
type SLA int

const (
	SLAMissed   SLA = -1
	SLAMet      SLA = 0
	SLAExceeded SLA = 1
)

// Timeframe is a calendar month bucket.
type Timeframe struct {
	Year  int
	Month time.Month
}

// TimeframeOf returns the month bucket containing t.
func TimeframeOf(t time.Time) Timeframe {
	return Timeframe{Year: t.Year(), Month: t.Month()}
}

// String renders the bucket as M-YYYY without zero padding.
func (tf Timeframe) String() string {
	if tf.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d-%d", int(tf.Month), tf.Year)
}

func (tf Timeframe) IsZero() bool { return tf.Year == 0 && tf.Month == 0 }

// Before orders buckets chronologically.
func (tf Timeframe) Before(o Timeframe) bool {
	if tf.Year != o.Year {
		return tf.Year < o.Year
	}
	return tf.Month < o.Month
}

// ParseTimeframe reads the M-YYYY form back.
func ParseTimeframe(s string) (Timeframe, error) {
	m, y, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Timeframe{}, fmt.Errorf("timeframe %q: want M-YYYY", s)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return Timeframe{}, fmt.Errorf("timeframe %q: bad month", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil || year < 1 {
		return Timeframe{}, fmt.Errorf("timeframe %q: bad year", s)
	}
	return Timeframe{Year: year, Month: time.Month(month)}, nil
}

// Record is one call leg. Raw fields are set by the Normalizer; the derived block is
// filled once by the pipeline stages and not touched afterwards.
type Record struct {
	ContactID       string
	MasterContactID string
	ANI             string
	DNIS            string
	SkillName       string
	TeamName        string
	CampaignName    string
	AgentName       string

	StartDate time.Time
	StartTime *time.Time // nil when date+time could not be combined

	PreQueue    float64
	InQueue     float64
	AgentTime   float64
	PostQueue   float64
	ACWSeconds  float64
	AbandonTime float64
	TotalTime   float64
	SLA         *SLA

	// derived
	Timeframe        Timeframe
	Category         Category
	Department       Department
	BusinessHours    bool
	CustomerCallTime float64
	AgentWorkTime    float64
	InternalNumber   string
	ExternalNumber   string
}

// ContactKey is the master-contact grouping key, falling back to the leg's own id.
func (r *Record) ContactKey() string {
	if r.MasterContactID != "" {
		return r.MasterContactID
	}
	return r.ContactID
}
