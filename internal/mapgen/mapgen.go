// Package mapgen renders the pack navigation MAP and the manifest Entity
// Index from scanned entities.
package mapgen

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alucardeht/spfpack/internal/frontmatter"
	"github.com/alucardeht/spfpack/internal/pack"
)

const (
	DefaultStaleAfterDays = 90
	DefaultGenerator      = "spfpack map"
	DefaultMapDir         = "07-map"
	placeholder           = "—"
)

type Options struct {
	Today          time.Time
	StaleAfterDays int
	Generator      string
}

func DefaultOptions() Options {
	return Options{
		Today:          time.Now(),
		StaleAfterDays: DefaultStaleAfterDays,
		Generator:      DefaultGenerator,
	}
}

func (o Options) withDefaults() Options {
	if o.Today.IsZero() {
		o.Today = time.Now()
	}
	if o.StaleAfterDays <= 0 {
		o.StaleAfterDays = DefaultStaleAfterDays
	}
	if o.Generator == "" {
		o.Generator = DefaultGenerator
	}
	return o
}

// MapID is the ID of a domain's generated MAP: DP -> DP.MAP.001.
func MapID(domain string) string {
	return domain + ".MAP.001"
}

func MapPath(dir, mapDir, domain string) string {
	if mapDir == "" {
		mapDir = DefaultMapDir
	}
	return filepath.Join(dir, mapDir, MapID(domain)+".md")
}

// GroupByKind buckets entities by kind code, keeping input order.
func GroupByKind(entities []*pack.Entity) map[string][]*pack.Entity {
	byKind := make(map[string][]*pack.Entity)
	for _, e := range entities {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}
	return byKind
}

// GenerateMap renders the MAP document. Entities are expected in path order;
// warnings follow that order while tables are sorted by ID. The result has
// no trailing newline.
func GenerateMap(domain string, entities []*pack.Entity, opts Options) string {
	opts = opts.withDefaults()
	today := opts.Today.Format(frontmatter.DateLayout)
	id := MapID(domain)
	byKind := GroupByKind(entities)

	lines := []string{
		"---",
		"id: " + id,
		"name: Pack Navigation Map",
		"scope: full-pack",
		"created: " + today,
		"last_updated: " + today,
		"generated: true",
		"---",
		"",
		fmt.Sprintf("# [%s] Pack Navigation Map", id),
		"",
		fmt.Sprintf("> Auto-generated from frontmatter on %s. Do not edit manually.", today),
		"",
		"---",
		"",
		"## Statistics",
		"",
		"| Kind | Count |",
		"|------|-------|",
	}

	for _, kind := range sortedKinds(byKind) {
		lines = append(lines, fmt.Sprintf("| %s (%s) | %d |", cell(pack.KindLabel(kind)), cell(kind), len(byKind[kind])))
	}
	lines = append(lines, fmt.Sprintf("| **Total** | **%d** |", len(entities)), "")

	for _, kind := range pack.CoreKinds {
		group, ok := byKind[kind]
		if !ok {
			continue
		}
		lines = append(lines, "## "+pack.KindLabel(kind), "")
		lines = appendEntityTable(lines, group)
		lines = append(lines, "")
	}

	var extended []string
	for _, kind := range sortedKinds(byKind) {
		if !pack.IsBaseKind(kind) {
			extended = append(extended, kind)
		}
	}
	if len(extended) > 0 {
		lines = append(lines, "## Domain-Specific Entities", "")
		for _, kind := range extended {
			lines = append(lines, "### "+pack.KindLabel(kind), "")
			lines = appendEntityTable(lines, byKind[kind])
			lines = append(lines, "")
		}
	}

	if warnings := MissingSummaries(entities); len(warnings) > 0 {
		lines = append(lines, "## Warnings", "")
		for _, w := range warnings {
			lines = append(lines, "- "+w)
		}
		lines = append(lines, "")
	}

	if stale := StaleEntities(entities, opts.Today, opts.StaleAfterDays); len(stale) > 0 {
		lines = append(lines,
			fmt.Sprintf("## Staleness Warnings (>%d days since update)", opts.StaleAfterDays),
			"",
			"| ID | Days Since Update |",
			"|----|-------------------|",
		)
		for _, s := range stale {
			lines = append(lines, fmt.Sprintf("| %s | %d |", cell(s.ID), s.Days))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "---", "", fmt.Sprintf("*Generated by `%s` on %s*", opts.Generator, today))

	return strings.Join(lines, "\n")
}

// GenerateEntityIndex renders the manifest's "## Entity Index" section
// without a trailing newline.
func GenerateEntityIndex(entities []*pack.Entity) string {
	lines := []string{
		pack.EntityIndexHeading,
		"",
		"| ID | Name | Kind | Summary | Status |",
		"|----|------|------|---------|--------|",
	}

	for _, e := range sortedByID(entities) {
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s | %s |",
			cell(e.ID), nameCell(e), cell(e.Kind), summaryCell(e), statusCell(e)))
	}

	return strings.Join(lines, "\n")
}

// MissingSummaries lists entities without a summary key, in input order.
func MissingSummaries(entities []*pack.Entity) []string {
	var warnings []string
	for _, e := range entities {
		if !e.HasSummary {
			warnings = append(warnings, fmt.Sprintf("Missing `summary`: %s (%s)", e.ID, e.FileName()))
		}
	}
	return warnings
}

func appendEntityTable(lines []string, entities []*pack.Entity) []string {
	lines = append(lines,
		"| ID | Name | Summary | Status |",
		"|----|------|---------|--------|",
	)
	for _, e := range sortedByID(entities) {
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
			cell(e.ID), nameCell(e), summaryCell(e), statusCell(e)))
	}
	return lines
}

func sortedKinds(byKind map[string][]*pack.Entity) []string {
	kinds := make([]string, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func sortedByID(entities []*pack.Entity) []*pack.Entity {
	sorted := make([]*pack.Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func nameCell(e *pack.Entity) string {
	if e.NameSource == pack.NameMissing {
		return placeholder
	}
	return cell(e.Name)
}

func summaryCell(e *pack.Entity) string {
	if !e.HasSummary {
		return placeholder
	}
	return cell(e.Summary)
}

func statusCell(e *pack.Entity) string {
	if _, ok := e.Fields["status"]; !ok {
		return placeholder
	}
	return cell(e.Status)
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

// cell makes a value safe inside a single Markdown table cell.
func cell(s string) string {
	return strings.TrimSpace(cellReplacer.Replace(s))
}
