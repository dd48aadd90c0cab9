package pack

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var domainCodePattern = regexp.MustCompile(`^[A-Z]{2,4}$`)

// Layout is the directory of each kind in a scaffolded pack.
var Layout = []struct {
	Dir   string
	Kinds []string
}{
	{"01-distinctions", []string{"D"}},
	{"02-characteristics", []string{"CHR", "OA"}},
	{"03-methods", []string{"M", "R"}},
	{"04-work-products", []string{"WP"}},
	{"05-failure-modes", []string{"FM"}},
	{"06-sota", []string{"SOTA"}},
	{"07-map", nil},
}

type InitResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Created []string `json:"created"`
	Kept    []string `json:"kept,omitempty"`
}

// Init scaffolds an empty pack in dir. Existing files are kept unless force
// is set.
func Init(dir, domain string, force bool, today time.Time) (*InitResult, error) {
	if !domainCodePattern.MatchString(domain) {
		return nil, fmt.Errorf("invalid domain code %q: want 2-4 upper-case letters", domain)
	}

	result := &InitResult{
		Created: make([]string, 0),
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create pack directory: %w", err)
	}

	replacer := strings.NewReplacer(
		"{{DOMAIN}}", domain,
		"{{TODAY}}", today.Format("2006-01-02"),
	)

	write := func(path, content string) error {
		if fileExists(path) && !force {
			result.Kept = append(result.Kept, path)
			return nil
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
		result.Created = append(result.Created, path)
		return nil
	}

	if err := write(filepath.Join(dir, "00-pack-manifest.md"), replacer.Replace(manifestTemplate)); err != nil {
		return nil, err
	}
	if err := write(filepath.Join(dir, "ontology.md"), replacer.Replace(ontologyTemplate)); err != nil {
		return nil, err
	}

	for _, entry := range Layout {
		sub := filepath.Join(dir, entry.Dir)
		if err := os.MkdirAll(sub, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", entry.Dir, err)
		}

		for _, kind := range entry.Kinds {
			name := "_template.md"
			if len(entry.Kinds) > 1 {
				name = "_template-" + strings.ToLower(kind) + ".md"
			}
			content := strings.ReplaceAll(replacer.Replace(entityTemplate), "{{KIND}}", kind)
			if err := write(filepath.Join(sub, name), content); err != nil {
				return nil, err
			}
		}
	}

	result.Success = true
	if len(result.Kept) > 0 {
		result.Message = fmt.Sprintf("Pack %s initialized, %d existing files kept (use --force to overwrite)", domain, len(result.Kept))
	} else {
		result.Message = fmt.Sprintf("Pack %s initialized", domain)
	}

	return result, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
