package lint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alucardeht/spfpack/internal/frontmatter"
	"github.com/alucardeht/spfpack/internal/mapgen"
	"github.com/alucardeht/spfpack/internal/pack"
)

type Rule struct {
	Code        string   `json:"code"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	check       func(c *checkContext, r Rule) []Finding
}

type checkContext struct {
	pack *pack.Pack
	opts Options
}

var (
	idPattern        = regexp.MustCompile(`^[A-Z][A-Z0-9]*\.[A-Z]+\.\d{3,}$`)
	formalityPattern = regexp.MustCompile(`^F[0-9]$`)
)

var rules = []Rule{
	{
		Code:        "missing-summary",
		Severity:    SeverityWarning,
		Description: "Entity has no summary in its frontmatter",
		check:       checkMissingSummary,
	},
	{
		Code:        "stale",
		Severity:    SeverityWarning,
		Description: "Entity was not updated within the staleness window",
		check:       checkStale,
	},
	{
		Code:        "invalid-date",
		Severity:    SeverityError,
		Description: "created or last_updated is not a YYYY-MM-DD date",
		check:       checkInvalidDate,
	},
	{
		Code:        "duplicate-id",
		Severity:    SeverityError,
		Description: "Several files declare the same entity ID",
		check:       checkDuplicateID,
	},
	{
		Code:        "malformed-id",
		Severity:    SeverityError,
		Description: "Entity ID is not DOMAIN.KIND.NNN",
		check:       checkMalformedID,
	},
	{
		Code:        "domain-mismatch",
		Severity:    SeverityWarning,
		Description: "Entity ID prefix differs from the pack domain",
		check:       checkDomainMismatch,
	},
	{
		Code:        "unknown-kind",
		Severity:    SeverityInfo,
		Description: "Kind code is domain-specific",
		check:       checkUnknownKind,
	},
	{
		Code:        "derived-name",
		Severity:    SeverityInfo,
		Description: "Name was derived from a heading or the filename",
		check:       checkDerivedName,
	},
	{
		Code:        "fgr-formality",
		Severity:    SeverityError,
		Description: "Formality is not one of F0 to F9",
		check:       checkFormality,
	},
	{
		Code:        "fgr-shape",
		Severity:    SeverityError,
		Description: "fgr is not a mapping with string scope and reliability",
		check:       checkFGRShape,
	},
	{
		Code:        "skipped-file",
		Severity:    SeverityWarning,
		Description: "Markdown file could not be read or has invalid frontmatter",
		check:       checkSkippedFiles,
	},
}

// Rules returns every rule in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func IsRule(code string) bool {
	for _, r := range rules {
		if r.Code == code {
			return true
		}
	}
	return false
}

func (r Rule) finding(e *pack.Entity, format string, args ...any) Finding {
	return Finding{
		Rule:     r.Code,
		Severity: r.Severity,
		EntityID: e.ID,
		Path:     e.Path,
		Message:  fmt.Sprintf(format, args...),
	}
}

func checkMissingSummary(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, e := range c.pack.Entities {
		if !e.HasSummary {
			out = append(out, r.finding(e, "Missing `summary`: %s (%s)", e.ID, e.FileName()))
		}
	}
	return out
}

func checkStale(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, s := range mapgen.StaleEntities(c.pack.Entities, c.opts.Today, c.opts.StaleAfterDays) {
		out = append(out, Finding{
			Rule:     r.Code,
			Severity: r.Severity,
			EntityID: s.ID,
			Path:     s.Path,
			Message:  fmt.Sprintf("%d days since last update (limit %d)", s.Days, c.opts.StaleAfterDays),
		})
	}
	return out
}

func checkInvalidDate(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, e := range c.pack.Entities {
		for _, key := range []string{"created", "last_updated"} {
			v, ok := e.Fields[key]
			if !ok {
				continue
			}
			if _, _, err := frontmatter.ParseDate(v); err != nil {
				out = append(out, r.finding(e, "%s: %v", key, err))
			}
		}
	}
	return out
}

func checkDuplicateID(c *checkContext, r Rule) []Finding {
	first := make(map[string]*pack.Entity)
	var out []Finding
	for _, e := range c.pack.Entities {
		if prev, ok := first[e.ID]; ok {
			out = append(out, r.finding(e, "%s is already declared in %s", e.ID, prev.FileName()))
			continue
		}
		first[e.ID] = e
	}
	return out
}

func checkMalformedID(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, e := range c.pack.Entities {
		if !idPattern.MatchString(e.ID) {
			out = append(out, r.finding(e, "ID %q does not match DOMAIN.KIND.NNN", e.ID))
		}
	}
	return out
}

func checkDomainMismatch(c *checkContext, r Rule) []Finding {
	if c.pack.Domain == "" {
		return nil
	}
	var out []Finding
	for _, e := range c.pack.Entities {
		if domain := pack.DomainOf(e.ID); domain != "" && domain != c.pack.Domain {
			out = append(out, r.finding(e, "ID prefix %s differs from pack domain %s", domain, c.pack.Domain))
		}
	}
	return out
}

func checkUnknownKind(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, e := range c.pack.Entities {
		if !pack.IsBaseKind(e.Kind) {
			out = append(out, r.finding(e, "kind %s is listed under Domain-Specific Entities", e.Kind))
		}
	}
	return out
}

func checkDerivedName(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, e := range c.pack.Entities {
		switch e.NameSource {
		case pack.NameFromHeading, pack.NameFromFilename:
			out = append(out, r.finding(e, "name %q derived from %s", e.Name, e.NameSource))
		case pack.NameMissing:
			out = append(out, r.finding(e, "no name in frontmatter, heading or filename"))
		}
	}
	return out
}

func checkFormality(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, e := range c.pack.Entities {
		v, ok := formality(e.Fields)
		if !ok {
			continue
		}
		s := strings.TrimSpace(frontmatter.Stringify(v))
		if !formalityPattern.MatchString(s) {
			out = append(out, r.finding(e, "formality %q is not one of F0-F9", s))
		}
	}
	return out
}

func formality(fields map[string]any) (any, bool) {
	if fgr, ok := fields["fgr"].(map[string]any); ok {
		if v, ok := fgr["formality"]; ok {
			return v, true
		}
	}
	v, ok := fields["formality"]
	return v, ok
}

func checkFGRShape(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, e := range c.pack.Entities {
		raw, ok := e.Fields["fgr"]
		if !ok {
			continue
		}
		fgr, ok := raw.(map[string]any)
		if !ok {
			out = append(out, r.finding(e, "fgr must be a mapping, got %T", raw))
			continue
		}
		for _, key := range []string{"scope", "reliability"} {
			v, ok := fgr[key]
			if !ok {
				continue
			}
			if _, isString := v.(string); !isString {
				out = append(out, r.finding(e, "fgr.%s must be a string, got %T", key, v))
			}
		}
	}
	return out
}

func checkSkippedFiles(c *checkContext, r Rule) []Finding {
	var out []Finding
	for _, s := range c.pack.Skipped {
		out = append(out, Finding{
			Rule:     r.Code,
			Severity: r.Severity,
			Path:     s.Path,
			Message:  "could not read file: " + s.Reason,
		})
	}
	for _, inv := range c.pack.Invalid {
		out = append(out, Finding{
			Rule:     r.Code,
			Severity: r.Severity,
			Path:     inv.Path,
			Message:  inv.Error,
		})
	}
	return out
}
