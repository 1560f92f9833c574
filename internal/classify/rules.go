// Package classify maps markets to verticals and broad categories using
// keyword rules and a game-id→league lookup.
package classify

import (
	"encoding/json"
	"fmt"
	"os"
)

// Rules holds the keyword tables and the game-id→league map used by the
// vertical Classifier. Passed in at construction so tests can substitute
// alternate tables.
type Rules struct {
	GameLeagues map[string]string

	NBAKeywords        []string
	EventAnchors       []string
	CultureKeywords    []string
	CommercialKeywords []string
	PartyKeywords      []string
	NFLKeywords        []string
}

// Vertical labels produced by the Classifier.
const (
	VerticalNFL     = "NFL"
	VerticalNBA     = "NBA"
	VerticalCulture = "CULTURE"
)

// DefaultRules returns the keyword tables for the Super Bowl LX window.
func DefaultRules() Rules {
	anchors := []string{
		"super bowl", "superbowl", "sb lx", "super bowl lx", "big game",
	}
	teams := []string{
		"new england", "patriots", "ne", "seattle", "seahawks", "sea",
		"pats", "hawks",
	}
	halftime := []string{
		"halftime", "half-time", "apple music", "apple music halftime",
		"bad bunny", "benito", "benito antonio",
	}
	anthem := []string{"national anthem", "star-spangled banner", "anthem", "charlie puth"}
	commercial := []string{
		"commercial", "commercials", "ad", "ads", "teaser", "spot",
		"super bowl ad", "big game ad",
	}
	party := []string{"nfl honors", "fanatics", "michael rubin", "afterparty", "party", "celebrity"}

	culture := make([]string, 0, len(halftime)+len(anthem)+len(commercial)+len(party))
	culture = append(culture, halftime...)
	culture = append(culture, anthem...)
	culture = append(culture, commercial...)
	culture = append(culture, party...)

	nfl := make([]string, 0, len(anchors)+len(teams)+24)
	nfl = append(nfl, anchors...)
	nfl = append(nfl, teams...)
	nfl = append(nfl,
		"mvp", "touchdown", "td", "passing yards", "rushing yards",
		"receiving yards", "receptions", "interception", "sack", "field goal",
		"fg", "overtime", "coin toss", "first score", "last score",
		"total points", "first quarter", "first half", "second half",
		"anytime touchdown",
	)

	venue := []string{"levi's stadium", "santa clara", "bay area"}

	return Rules{
		GameLeagues: map[string]string{},
		NBAKeywords: []string{
			"all-star", "all star", "asw", "all-star weekend",
			"slam dunk", "dunk contest", "3-point", "three-point", "skills challenge",
		},
		EventAnchors:       append(append([]string{}, anchors...), venue...),
		CultureKeywords:    culture,
		CommercialKeywords: commercial,
		PartyKeywords:      party,
		NFLKeywords:        nfl,
	}
}

// LoadGameLeagues reads a JSON object mapping game ids to league labels
// and merges it into the rules, replacing existing entries on conflict.
func (r *Rules) LoadGameLeagues(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read game league map: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse game league map: %w", err)
	}
	if r.GameLeagues == nil {
		r.GameLeagues = make(map[string]string, len(m))
	}
	for id, league := range m {
		r.GameLeagues[id] = league
	}
	return nil
}

// CategoryRule is one broad category with its keyword list and the max
// number of signals surfaced for it per cycle.
type CategoryRule struct {
	Name     string
	Keywords []string
	TopN     int
}

// DefaultCategoryRules returns the ordered category rule set used by the
// cross-category scan. Order matters: the first matching category becomes
// the scoring vertical for a multi-category market.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{
			Name: "sports",
			Keywords: []string{
				"nfl", "nba", "mlb", "nhl", "super bowl", "superbowl", "playoff", "championship",
				"touchdown", "mvp", "all-star", "all star", "game", "score", "win", "team",
				"quarter", "halftime", "overtime", "season", "bowl", "finals", "slam dunk",
				"passing yards", "rushing", "receiving", "interception", "sack", "field goal",
			},
			TopN: 3,
		},
		{
			Name: "politics",
			Keywords: []string{
				"election", "vote", "president", "congress", "senate", "governor", "democrat",
				"republican", "primary", "poll", "approval", "bill", "legislation", "cabinet",
				"white house", "trump", "biden", "harris", "nominee", "electoral", "ballot",
			},
			TopN: 3,
		},
		{
			Name: "crypto",
			Keywords: []string{
				"bitcoin", "btc", "ethereum", "eth", "crypto", "cryptocurrency", "blockchain",
				"solana", "sol", "defi", "nft", "token", "price", "market cap", "halving",
			},
			TopN: 3,
		},
		{
			Name: "weather",
			Keywords: []string{
				"temperature", "hurricane", "storm", "snow", "rain", "drought", "flood",
				"heat", "cold", "forecast", "degrees", "fahrenheit", "celsius", "tornado",
				"wildfire", "climate", "weather",
			},
			TopN: 3,
		},
		{
			Name: "pop_culture",
			Keywords: []string{
				"grammy", "oscar", "emmy", "award", "movie", "film", "album", "chart",
				"celebrity", "netflix", "streaming", "box office", "billboard", "tv",
				"halftime show", "commercial", "ad", "culture", "entertainment",
			},
			TopN: 3,
		},
	}
}
