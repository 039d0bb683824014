package tags

import (
	"strings"

	"devoverflow/internal/models"
	"devoverflow/internal/validation"
)

// NormalizeNames trims the submitted names, collapses case-insensitive
// duplicates onto their first occurrence and validates the result.
func NormalizeNames(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := models.TagKey(name)
		if name != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}

	if err := validation.Validate(validation.TagNames{Tags: out}); err != nil {
		return nil, err
	}
	return out, nil
}
