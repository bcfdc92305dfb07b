package intent

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/copilot/internal/models"
)

// Validate checks the requested assets against the user's tickers. Matched
// assets are upper-cased and replace the list; unmatched ones are dropped
// when at least one matched. When none match, the query is turned into a
// clarification naming the unknown assets. The input is never mutated.
func Validate(q *models.ClassifiedQuery, knownTickers []string) *models.ClassifiedQuery {
	out := q.Clone()
	if out.Confidence.NeedsClarification {
		return out
	}
	if len(out.Entities.Assets) == 0 || out.Entities.HasAllAssets() {
		return out
	}

	known := make(map[string]bool, len(knownTickers))
	for _, t := range knownTickers {
		known[strings.ToUpper(t)] = true
	}

	var matched, unmatched []string
	for _, a := range out.Entities.Assets {
		if known[strings.ToUpper(a)] {
			matched = append(matched, strings.ToUpper(a))
		} else {
			unmatched = append(unmatched, a)
		}
	}

	switch {
	case len(matched) > 0:
		out.Entities.Assets = matched
	case len(unmatched) > 0:
		out.Confidence.NeedsClarification = true
		out.Confidence.MissingFields = []string{"assets"}
		out.Confidence.ClarificationPrompt = fmt.Sprintf("I couldn't find %s in your portfolio. Your stocks are: %s",
			strings.Join(unmatched, ", "), strings.Join(knownTickers, ", "))
	}
	return out
}
