package ingest

import "strings"

// The five expertise categories users declare during onboarding. Raw listing
// skills are folded into these before matching.
const (
	CategoryDevelopment = "DEVELOPMENT"
	CategoryDesign      = "DESIGN"
	CategoryContent     = "CONTENT"
	CategoryGrowth      = "GROWTH"
	CategoryCommunity   = "COMMUNITY"
)

// skillAliases maps lowercase raw skill terms to a category. Lookup is by
// bidirectional substring match, so "Frontend Development" and "dev" both
// land on DEVELOPMENT. Ordered so the mapping is deterministic when a term
// touches several aliases.
var skillAliases = []struct {
	alias    string
	category string
}{
	{"development", CategoryDevelopment},
	{"frontend", CategoryDevelopment},
	{"backend", CategoryDevelopment},
	{"fullstack", CategoryDevelopment},
	{"blockchain", CategoryDevelopment},
	{"mobile", CategoryDevelopment},
	{"engineering", CategoryDevelopment},

	{"design", CategoryDesign},
	{"ui/ux", CategoryDesign},
	{"ui", CategoryDesign},
	{"ux", CategoryDesign},
	{"visual", CategoryDesign},

	{"content", CategoryContent},
	{"writing", CategoryContent},
	{"video", CategoryContent},
	{"social", CategoryContent},

	{"growth", CategoryGrowth},
	{"marketing", CategoryGrowth},
	{"business", CategoryGrowth},

	{"community", CategoryCommunity},
	{"moderator", CategoryCommunity},
}

// MapSkills folds raw listing skill names into the category set. Matching is
// case-insensitive and substring-based in both directions. The result is
// de-duplicated and preserves first-match order.
func MapSkills(raw []string) []string {
	var categories []string
	seen := make(map[string]bool)
	for _, skill := range raw {
		needle := strings.ToLower(strings.TrimSpace(skill))
		if needle == "" {
			continue
		}
		for _, entry := range skillAliases {
			if !strings.Contains(needle, entry.alias) && !strings.Contains(entry.alias, needle) {
				continue
			}
			if !seen[entry.category] {
				seen[entry.category] = true
				categories = append(categories, entry.category)
			}
		}
	}
	return categories
}
