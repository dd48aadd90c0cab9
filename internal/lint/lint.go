// Package lint checks a scanned pack for process problems: missing
// summaries, stale entities, malformed IDs and frontmatter.
package lint

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/alucardeht/spfpack/internal/mapgen"
	"github.com/alucardeht/spfpack/internal/pack"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities from most to least serious: error is 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	EntityID string   `json:"entity_id,omitempty"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
}

type Report struct {
	Domain   string    `json:"domain"`
	Entities int       `json:"entities"`
	Findings []Finding `json:"findings"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
	Infos    int       `json:"infos"`
}

func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

func (r *Report) HasWarnings() bool {
	return r.Warnings > 0
}

func (r *Report) Summary() string {
	return fmt.Sprintf("Lint: %d errors, %d warnings, %d infos across %d entities",
		r.Errors, r.Warnings, r.Infos, r.Entities)
}

// WriteText prints one finding per line followed by the summary.
func (r *Report) WriteText(w io.Writer) error {
	for _, f := range r.Findings {
		subject := f.EntityID
		if subject == "" {
			subject = filepath.Base(f.Path)
		}
		if _, err := fmt.Fprintf(w, "%-7s %-16s %s: %s\n", f.Severity, f.Rule, subject, f.Message); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, r.Summary())
	return err
}

type Options struct {
	Today          time.Time
	StaleAfterDays int
	Disabled       map[string]bool
}

func DefaultOptions() Options {
	return Options{
		Today:          time.Now(),
		StaleAfterDays: mapgen.DefaultStaleAfterDays,
	}
}

// Lint runs every enabled rule against p.
func Lint(p *pack.Pack, opts Options) *Report {
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	if opts.StaleAfterDays <= 0 {
		opts.StaleAfterDays = mapgen.DefaultStaleAfterDays
	}

	c := &checkContext{pack: p, opts: opts}
	report := &Report{
		Domain:   p.Domain,
		Entities: len(p.Entities),
		Findings: make([]Finding, 0),
	}

	for _, rule := range rules {
		if opts.Disabled[rule.Code] {
			continue
		}
		report.Findings = append(report.Findings, rule.check(c, rule)...)
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Path < b.Path
	})

	for _, f := range report.Findings {
		switch f.Severity {
		case SeverityError:
			report.Errors++
		case SeverityWarning:
			report.Warnings++
		case SeverityInfo:
			report.Infos++
		}
	}

	return report
}
