package pack

import (
	"fmt"
	"os"
	"strings"
)

const EntityIndexHeading = "## Entity Index"

// UpdateManifest splices index into the manifest at path, replacing an
// existing "## Entity Index" section up to the next level-2 heading, or
// appending one. It reports whether the file changed.
func UpdateManifest(path, index string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read manifest: %w", err)
	}

	original := string(data)
	updated := SpliceEntityIndex(original, index)
	if updated == original {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat manifest: %w", err)
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write manifest: %w", err)
	}

	log.Info("manifest entity index updated", "path", path)
	return true, nil
}

// SpliceEntityIndex returns content with its Entity Index section replaced
// by index.
func SpliceEntityIndex(content, index string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	section := strings.TrimRight(index, "\n")
	lines := strings.Split(content, "\n")

	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == EntityIndexHeading {
			start = i
			break
		}
	}

	if start < 0 {
		trimmed := strings.TrimRight(content, "\n")
		if trimmed == "" {
			return section + "\n"
		}
		return trimmed + "\n\n" + section + "\n"
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "## ") {
			end = i
			break
		}
	}

	var b strings.Builder
	for _, line := range lines[:start] {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(section)
	b.WriteString("\n")

	if end < len(lines) {
		b.WriteString("\n")
		b.WriteString(strings.Join(lines[end:], "\n"))
		return b.String()
	}
	return b.String()
}
