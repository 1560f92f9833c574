package classify

import "strings"

// Classifier assigns a single vertical label to a market from its title
// and optional external id. Pure: the same input always yields the same
// result for a given rule set.
type Classifier struct {
	rules Rules
}

// NewClassifier creates a Classifier with the given rules.
func NewClassifier(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the vertical for a market title and optional ticker.
// A game-id match on the ticker wins outright; otherwise keyword sets are
// tested in fixed priority order. ok is false when nothing matches.
func (c *Classifier) Classify(title, ticker string) (vertical string, ok bool) {
	if ticker != "" {
		if league, found := c.rules.GameLeagues[ticker]; found {
			return league, true
		}
	}

	t := strings.ToLower(title)

	if containsAny(t, c.rules.NBAKeywords) {
		return VerticalNBA, true
	}

	hasAnchor := containsAny(t, c.rules.EventAnchors)
	hasCulture := containsAny(t, c.rules.CultureKeywords)
	if hasAnchor && hasCulture {
		return VerticalCulture, true
	}
	if containsAny(t, c.rules.CommercialKeywords) || containsAny(t, c.rules.PartyKeywords) {
		return VerticalCulture, true
	}
	if containsAny(t, c.rules.NFLKeywords) {
		return VerticalNFL, true
	}
	return "", false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
