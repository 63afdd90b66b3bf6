// Package config loads service settings from the environment and the operator rule
// tables (category tags, team departments, business hours) from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jalad-shrimali/cdr-rollup/calendar"
	"github.com/jalad-shrimali/cdr-rollup/cdr"
	"github.com/jalad-shrimali/cdr-rollup/lookup"
)

var ErrInvalidRules = errors.New("invalid rules")

// Rules is the operator-editable rule file. Any section left out keeps the built-in
// defaults.
type Rules struct {
	CategoryTags      []TagRule         `yaml:"category_tags"`
	Teams             map[string]string `yaml:"teams"`
	DeploymentCutover string            `yaml:"deployment_cutover"` // YYYY-MM-DD
	BusinessHours     []HoursRule       `yaml:"business_hours"`
}

// TagRule maps a skill-name substring to a category, in priority order.
type TagRule struct {
	Match    string `yaml:"match"`
	Category string `yaml:"category"`
}

// HoursRule is one business-hours row. Days defaults to mon-fri.
type HoursRule struct {
	Department string   `yaml:"department"` // a department name or "*"
	Days       []string `yaml:"days"`
	From       string   `yaml:"from"`  // inclusive, YYYY-MM-DD
	Until      string   `yaml:"until"` // exclusive, YYYY-MM-DD
	Open       string   `yaml:"open"`  // HH:MM
	Close      string   `yaml:"close"` // HH:MM
	Closed     bool     `yaml:"closed"`
}

// LoadRules reads a rule file. An empty path yields the defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return &Rules{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := ParseRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseRules decodes and validates a rule document. Unknown keys are rejected.
func ParseRules(in io.Reader) (*Rules, error) {
	var r Rules
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if _, err := r.Classifier(); err != nil {
		return nil, err
	}
	if _, err := r.TeamTable(); err != nil {
		return nil, err
	}
	if _, err := r.Calendar(calendar.DefaultCutover); err != nil {
		return nil, err
	}
	return &r, nil
}

// Classifier builds the skill classifier from CategoryTags.
func (r *Rules) Classifier() (*cdr.Classifier, error) {
	if len(r.CategoryTags) == 0 {
		return cdr.DefaultClassifier(), nil
	}
	tags := make([]cdr.Tag, len(r.CategoryTags))
	for i, t := range r.CategoryTags {
		tags[i] = cdr.Tag{Match: t.Match, Category: cdr.Category(t.Category)}
	}
	c, err := cdr.NewClassifier(tags)
	if err != nil {
		return nil, fmt.Errorf("%w: category_tags: %v", ErrInvalidRules, err)
	}
	return c, nil
}

// TeamTable returns the team overrides of the file.
func (r *Rules) TeamTable() (lookup.Teams, error) {
	out := lookup.Teams{}
	for team, dept := range r.Teams {
		d, ok := cdr.ParseDepartment(dept)
		if !ok {
			return nil, fmt.Errorf("%w: teams: %q maps to unknown department %q", ErrInvalidRules, team, dept)
		}
		out[strings.TrimSpace(team)] = d
	}
	return out, nil
}

// Cutover is the file's deployment cutover, or def when unset.
func (r *Rules) Cutover(def time.Time) (time.Time, error) {
	if r.DeploymentCutover == "" {
		return def, nil
	}
	t, err := time.Parse(DateLayout, r.DeploymentCutover)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: deployment_cutover: %v", ErrInvalidRules, err)
	}
	return t, nil
}

// Calendar builds the business-hours table. Without a business_hours section the
// built-in schedule is used with the effective cutover.
func (r *Rules) Calendar(cutover time.Time) (*calendar.Table, error) {
	cutover, err := r.Cutover(cutover)
	if err != nil {
		return nil, err
	}
	if len(r.BusinessHours) == 0 {
		return calendar.DefaultTable(cutover), nil
	}

	rules := make([]calendar.Rule, 0, len(r.BusinessHours))
	for i, h := range r.BusinessHours {
		cr, err := h.rule()
		if err != nil {
			return nil, fmt.Errorf("%w: business_hours[%d]: %v", ErrInvalidRules, i, err)
		}
		rules = append(rules, cr)
	}
	t, err := calendar.NewTable(rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	return t, nil
}

func (h HoursRule) rule() (calendar.Rule, error) {
	var r calendar.Rule

	if strings.TrimSpace(h.Department) == string(calendar.AnyDepartment) {
		r.Department = calendar.AnyDepartment
	} else {
		d, ok := cdr.ParseDepartment(h.Department)
		if !ok {
			return r, fmt.Errorf("unknown department %q", h.Department)
		}
		r.Department = d
	}

	r.Days = calendar.MonToFri
	if len(h.Days) > 0 {
		days, err := calendar.ParseWeekdays(h.Days)
		if err != nil {
			return r, err
		}
		r.Days = days
	}

	var err error
	if h.From != "" {
		if r.From, err = time.Parse(DateLayout, h.From); err != nil {
			return r, fmt.Errorf("from: %v", err)
		}
	}
	if h.Until != "" {
		if r.Until, err = time.Parse(DateLayout, h.Until); err != nil {
			return r, fmt.Errorf("until: %v", err)
		}
	}

	r.Closed = h.Closed
	if r.Closed {
		return r, nil
	}
	if r.Open, err = calendar.ParseClock(h.Open); err != nil {
		return r, err
	}
	if r.Close, err = calendar.ParseClock(h.Close); err != nil {
		return r, err
	}
	return r, nil
}
