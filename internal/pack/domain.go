package pack

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alucardeht/spfpack/internal/frontmatter"
)

var packIDPattern = regexp.MustCompile("Pack ID[*]*:\\s*`?([A-Z]{2,4})`?")

// DetectDomain resolves the pack's domain code. The manifest wins
// (frontmatter pack_id, then a "Pack ID:" line in its body), then the
// prefix of the first entity ID, then the directory name.
func DetectDomain(dir, manifestFile string, entities []*Entity) string {
	if manifestFile == "" {
		manifestFile = "00-pack-manifest.md"
	}

	if domain := domainFromManifest(filepath.Join(dir, manifestFile)); domain != "" {
		return domain
	}

	for _, e := range entities {
		if domain := DomainOf(e.ID); domain != "" {
			return domain
		}
	}

	name := []rune(strings.ToUpper(filepath.Base(dir)))
	if len(name) > 2 {
		name = name[:2]
	}
	return string(name)
}

func domainFromManifest(path string) string {
	doc, err := frontmatter.ParseFile(path)
	if err != nil {
		return ""
	}

	if id := strings.TrimSpace(doc.String("pack_id")); id != "" {
		return id
	}

	if m := packIDPattern.FindStringSubmatch(doc.Content); m != nil {
		return m[1]
	}
	return ""
}
