package ingestion

import (
	"strings"

	"github.com/pjv-stack/synapse/core"
)

// categoryMarkers maps path keywords to artifact categories. The first
// marker found anywhere in the lowercased path wins, checked in order of
// specificity.
var categoryMarkers = []struct {
	marker   string
	category core.Category
}{
	{"template", core.CategoryTemplate},
	{"boilerplate", core.CategoryTemplate},
	{"scaffold", core.CategoryTemplate},
	{"standard", core.CategoryStandard},
	{"convention", core.CategoryStandard},
	{"style", core.CategoryStandard},
	{"policy", core.CategoryStandard},
	{"instruction", core.CategoryInstruction},
	{"guide", core.CategoryInstruction},
	{"howto", core.CategoryInstruction},
	{"how-to", core.CategoryInstruction},
	{"tutorial", core.CategoryInstruction},
	{"runbook", core.CategoryInstruction},
}

// Classify derives an artifact's category from its corpus path.
func Classify(path string) core.Category {
	lowered := strings.ToLower(path)
	for _, m := range categoryMarkers {
		if strings.Contains(lowered, m.marker) {
			return m.category
		}
	}
	return core.CategoryOther
}
