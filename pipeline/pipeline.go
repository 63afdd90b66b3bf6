// Package pipeline runs one uploaded batch through normalization, spam filtering,
// classification, department and business-hours resolution and the rollups.
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jalad-shrimali/cdr-rollup/calendar"
	"github.com/jalad-shrimali/cdr-rollup/cdr"
	"github.com/jalad-shrimali/cdr-rollup/rollup"
)

// Summary is the per-run accounting reported to the caller.
type Summary struct {
	TotalRows     int
	InvalidRows   int
	ExcludedCalls int
	CleanCalls    int
	NullStartTime int
	// TruncatedCells counts export cells replaced by a marker because their text
	// exceeded the spreadsheet cell limit. Set by the workbook writer.
	TruncatedCells int
	FirstMonth    cdr.Timeframe
	LastMonth     cdr.Timeframe
	FirstDate     time.Time
	LastDate      time.Time
}

// Run holds everything one batch produced. A Run is built fresh by Process and never
// shared with a later batch.
type Run struct {
	ID        string
	Source    string
	StartedAt time.Time

	Records []*cdr.Record // clean, classified, sorted by start_time
	Spam    []*cdr.Record

	Summary Summary

	Team           []*rollup.Table
	Skill          []*rollup.Table
	MasterContacts []rollup.MasterContact
}

// Pipeline carries the configured stages. It holds no per-run state and may be reused.
type Pipeline struct {
	normalizer *cdr.Normalizer
	classifier *cdr.Classifier
	resolver   *cdr.Resolver
	calendar   *calendar.Table
	logger     zerolog.Logger
	now        func() time.Time
}

// Option adjusts a Pipeline.
type Option func(*Pipeline)

func WithNormalizer(n *cdr.Normalizer) Option { return func(p *Pipeline) { p.normalizer = n } }
func WithClassifier(c *cdr.Classifier) Option { return func(p *Pipeline) { p.classifier = c } }
func WithResolver(r *cdr.Resolver) Option     { return func(p *Pipeline) { p.resolver = r } }
func WithCalendar(t *calendar.Table) Option   { return func(p *Pipeline) { p.calendar = t } }
func WithLogger(l zerolog.Logger) Option      { return func(p *Pipeline) { p.logger = l } }

// New builds a pipeline with built-in defaults for every stage not set by opts. The
// default resolver is empty, so every team resolves to Other unless one is supplied.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer: cdr.NewNormalizer(time.UTC),
		classifier: cdr.DefaultClassifier(),
		resolver:   cdr.NewResolver(nil),
		calendar:   calendar.DefaultTable(calendar.DefaultCutover),
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process reads a CSV or XLSX export and runs it. name selects the format by extension.
func (p *Pipeline) Process(name string, r io.Reader) (*Run, error) {
	t, err := cdr.Read(name, r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return p.ProcessTable(name, t)
}

// ProcessTable runs the stages on an already-read table. Input-shape errors are
// returned before any record is touched.
func (p *Pipeline) ProcessTable(source string, t *cdr.RawTable) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: p.now(),
	}
	log := p.logger.With().Str("run_id", run.ID).Str("source", source).Logger()

	res, err := p.normalizer.Normalize(t)
	if err != nil {
		log.Error().Err(err).Msg("rejected input")
		return nil, err
	}
	clean, spam := cdr.SplitSpam(res.Records)
	p.enrich(clean)
	p.enrich(spam)

	run.Records = clean
	run.Spam = spam
	run.Summary = Summary{
		TotalRows:     len(t.Rows),
		InvalidRows:   res.InvalidRows,
		ExcludedCalls: len(spam),
		CleanCalls:    len(clean),
		NullStartTime: res.NullStartTime,
	}
	run.Summary.span(clean)

	run.Team = rollup.BuildAll(rollup.ByTeam, clean)
	run.Skill = rollup.BuildAll(rollup.BySkill, clean)
	run.MasterContacts = rollup.MasterContacts(clean)

	log.Info().
		Int("rows", run.Summary.TotalRows).
		Int("invalid_rows", run.Summary.InvalidRows).
		Int("excluded_calls", run.Summary.ExcludedCalls).
		Int("clean_calls", run.Summary.CleanCalls).
		Int("null_start_time", run.Summary.NullStartTime).
		Int("master_contacts", len(run.MasterContacts)).
		Dur("took", p.now().Sub(run.StartedAt)).
		Msg("batch processed")
	return run, nil
}

// enrich fills the derived fields that depend on configuration.
func (p *Pipeline) enrich(recs []*cdr.Record) {
	for _, r := range recs {
		r.Category = p.classifier.Classify(r.SkillName)
		r.Department = p.resolver.Resolve(r.TeamName)
		r.BusinessHours = p.calendar.IsBusinessHours(r.Department, r.StartTime)
		r.InternalNumber, r.ExternalNumber = cdr.Attribute(r.Category, r.ANI, r.DNIS)
	}
}

// span covers dated records only.
func (s *Summary) span(recs []*cdr.Record) {
	for _, r := range recs {
		if r.StartDate.IsZero() {
			continue
		}
		if s.FirstDate.IsZero() || r.StartDate.Before(s.FirstDate) {
			s.FirstDate = r.StartDate
		}
		if r.StartDate.After(s.LastDate) {
			s.LastDate = r.StartDate
		}
	}
	if !s.FirstDate.IsZero() {
		s.FirstMonth = cdr.TimeframeOf(s.FirstDate)
		s.LastMonth = cdr.TimeframeOf(s.LastDate)
	}
}
