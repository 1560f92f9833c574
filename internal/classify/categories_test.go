package classify

import (
	"reflect"
	"testing"
)

func TestMatch_EmptyFields(t *testing.T) {
	m := NewCategoryMatcher(DefaultCategoryRules())

	if got := m.Match("", "", "", "", ""); len(got) != 0 {
		t.Errorf("expected no matches for empty fields, got %v", got)
	}
}

func TestMatch_SingleCategory(t *testing.T) {
	m := NewCategoryMatcher(DefaultCategoryRules())

	got := m.Match("Hurricane landfall in Florida?", "", "", "", "WEATHER-FL")
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d: %v", len(got), got)
	}
	if got[0].Category != "weather" {
		t.Errorf("expected weather, got %s", got[0].Category)
	}
	if !reflect.DeepEqual(got[0].Keywords, []string{"hurricane", "weather"}) {
		t.Errorf("unexpected matched keywords: %v", got[0].Keywords)
	}
}

func TestMatch_MultipleCategories(t *testing.T) {
	m := NewCategoryMatcher(DefaultCategoryRules())

	got := m.Match("Super Bowl halftime show commercial", "", "", "", "")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(got), got)
	}
	// Rule order is fixed: sports before pop_culture.
	if got[0].Category != "sports" || got[1].Category != "pop_culture" {
		t.Errorf("unexpected category order: %s, %s", got[0].Category, got[1].Category)
	}
}

func TestMatch_KeywordsInRuleOrder(t *testing.T) {
	m := NewCategoryMatcher([]CategoryRule{
		{Name: "crypto", Keywords: []string{"bitcoin", "btc", "ethereum"}, TopN: 3},
	})

	got := m.Match("BTC and Bitcoin above 100k", "", "", "", "")
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].Keywords, []string{"bitcoin", "btc"}) {
		t.Errorf("expected keywords in rule order, got %v", got[0].Keywords)
	}
}

func TestTopN(t *testing.T) {
	m := NewCategoryMatcher(DefaultCategoryRules())

	if got := m.TopN("sports", 7); got != 3 {
		t.Errorf("expected configured top_n 3, got %d", got)
	}
	if got := m.TopN("unknown", 7); got != 7 {
		t.Errorf("expected default 7 for unknown category, got %d", got)
	}
}
