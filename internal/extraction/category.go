package extraction

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/Sweily-fr/newbi-api-sub001/models"
)

// CategoryOther is the fallback when nothing matches.
const CategoryOther = "OTHER"

// categoryKeywords maps expense categories to vendor/description
// keywords, checked after workspace rules.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"TRANSPORT", []string{"sncf", "ratp", "uber", "taxi", "blablacar", "air france", "easyjet", "autoroute", "péage", "parking", "essence", "total energies", "station"}},
	{"MEALS", []string{"restaurant", "brasserie", "boulangerie", "café", "mcdonald", "burger", "deliveroo", "uber eats", "traiteur", "sushi"}},
	{"SOFTWARE", []string{"adobe", "microsoft", "github", "gitlab", "ovh", "aws", "amazon web services", "google cloud", "slack", "notion", "figma", "atlassian", "scaleway"}},
	{"UTILITIES", []string{"edf", "engie", "veolia", "suez", "orange", "sfr", "bouygues telecom", "free mobile", "free sas", "sosh"}},
	{"RENT", []string{"loyer", "bail", "location bureau", "wework", "regus"}},
	{"SUPPLIES", []string{"bureau vallée", "office depot", "fnac", "darty", "leroy merlin", "papeterie", "fourniture"}},
	{"INSURANCE", []string{"axa", "maif", "macif", "allianz", "generali", "assurance", "mutuelle"}},
	{"FEES", []string{"comptable", "avocat", "notaire", "urssaf", "greffe", "frais bancaires", "commission"}},
}

// Categorizer assigns an expense category from workspace-defined rules
// first, then the built-in keyword table.
type Categorizer struct {
	rules []models.CategoryRule
}

// NewCategorizer orders the rules by priority (highest first).
func NewCategorizer(rules []models.CategoryRule) *Categorizer {
	sorted := make([]models.CategoryRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	return &Categorizer{rules: sorted}
}

// Categorize returns the category for the given extracted fields.
func (c *Categorizer) Categorize(vendor, description string, amount float64) string {
	params := map[string]interface{}{
		"vendor":      strings.ToLower(vendor),
		"description": strings.ToLower(description),
		"amount":      amount,
	}

	for _, rule := range c.rules {
		if !rule.IsEnabled {
			continue
		}
		expr, err := govaluate.NewEvaluableExpression(rule.Expression)
		if err != nil {
			slog.Warn("Invalid category rule expression", "rule_id", rule.ID, "error", err)
			continue
		}
		result, err := expr.Evaluate(params)
		if err != nil {
			slog.Warn("Category rule evaluation failed", "rule_id", rule.ID, "error", err)
			continue
		}
		if matched, ok := result.(bool); ok && matched {
			return rule.Category
		}
	}

	haystack := strings.ToLower(vendor + " " + description)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(haystack, keyword) {
				return entry.category
			}
		}
	}
	return CategoryOther
}
