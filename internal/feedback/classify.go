package feedback

import (
	"regexp"
	"strings"

	"feedback-bot/internal/database/models"
)

// categoryTags are matched case-insensitively in this order; the first tag
// found decides the category.
var categoryTags = []struct {
	tag      string
	category models.Category
}{
	{"#bug", models.CategoryBug},
	{"#feature", models.CategoryFeature},
	{"#question", models.CategoryQuestion},
	{"#suggestion", models.CategorySuggestion},
	{"#general", models.CategoryGeneral},
}

// priorityMarkers are tried longest first. "!!" and "!!!" both mean high.
// Low is never inferred from text.
var priorityMarkers = []struct {
	marker   string
	priority models.Priority
}{
	{"!!!", models.PriorityHigh},
	{"!!", models.PriorityHigh},
	{"!", models.PriorityNormal},
}

var (
	categoryPatterns = compileCategoryPatterns()
	blankRun         = regexp.MustCompile(`[ \t]+`)
)

func compileCategoryPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(categoryTags))
	for i, c := range categoryTags {
		patterns[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(c.tag))
	}
	return patterns
}

// Classify strips the intake tag from raw and extracts the category and
// priority markers. Every occurrence of the matched markers is removed from
// the returned content. Without markers the item is general and normal.
func Classify(raw, intakeTag string) (content string, category models.Category, priority models.Priority) {
	content = stripTag(raw, intakeTag)
	category = models.CategoryGeneral
	priority = models.PriorityNormal

	for i, pattern := range categoryPatterns {
		if pattern.MatchString(content) {
			category = categoryTags[i].category
			content = pattern.ReplaceAllString(content, " ")
			break
		}
	}

	for _, p := range priorityMarkers {
		if strings.Contains(content, p.marker) {
			priority = p.priority
			content = strings.ReplaceAll(content, p.marker, " ")
			break
		}
	}

	return normalizeSpace(content), category, priority
}

// stripTag removes the intake tag prefix and surrounding blanks.
func stripTag(raw, intakeTag string) string {
	content := strings.TrimSpace(raw)
	if intakeTag != "" {
		content = strings.TrimPrefix(content, intakeTag)
	}
	return normalizeSpace(content)
}

// normalizeSpace collapses runs of spaces and tabs on every line and trims the result.
func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(blankRun.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
