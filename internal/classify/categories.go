package classify

import "strings"

// CategoryMatch is one category hit for a market, with the keywords that
// actually matched in the category's configured order.
type CategoryMatch struct {
	Category string
	Keywords []string
}

// CategoryMatcher maps a market's text fields to zero or more broad
// categories. This is a different axis from the Classifier: categories
// drive the cross-sectional scan, verticals drive feature scoring.
type CategoryMatcher struct {
	rules []CategoryRule
}

// NewCategoryMatcher creates a matcher over the given ordered rules.
func NewCategoryMatcher(rules []CategoryRule) *CategoryMatcher {
	return &CategoryMatcher{rules: rules}
}

// Rules returns the matcher's ordered category rules.
func (m *CategoryMatcher) Rules() []CategoryRule {
	return m.rules
}

// TopN returns the per-cycle signal cap for a category, or def when the
// category is unknown.
func (m *CategoryMatcher) TopN(category string, def int) int {
	for _, r := range m.rules {
		if r.Name == category {
			return r.TopN
		}
	}
	return def
}

// Match tests every category's keywords against the lower-cased join of
// the market's text fields. Absent fields are treated as empty. A category
// is included iff at least one keyword is a substring of the joined text.
func (m *CategoryMatcher) Match(title, subtitle, eventTicker, eventName, ticker string) []CategoryMatch {
	parts := make([]string, 0, 5)
	for _, s := range []string{title, subtitle, eventTicker, eventName, ticker} {
		if s != "" {
			parts = append(parts, strings.ToLower(s))
		}
	}
	combined := strings.Join(parts, " ")

	var out []CategoryMatch
	for _, rule := range m.rules {
		var matched []string
		for _, kw := range rule.Keywords {
			if strings.Contains(combined, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) > 0 {
			out = append(out, CategoryMatch{Category: rule.Name, Keywords: matched})
		}
	}
	return out
}
