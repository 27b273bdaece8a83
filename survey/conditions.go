package survey

import "encoding/json"

// CustomAnswerSentinel in a follow-up section's Equals list matches any custom
// (free-form) answer given to the parent section.
const CustomAnswerSentinel = -1

// Conditions is a disjunction: an answer matches when it is in Equals, or is
// below any LessThan bound, or above any GreaterThan bound.
type Conditions struct {
	Equals      []any     `json:"equals"`
	LessThan    []float64 `json:"lessThan"`
	GreaterThan []float64 `json:"greaterThan"`
}

func (c Conditions) IsEmpty() bool {
	return len(c.Equals) == 0 && len(c.LessThan) == 0 && len(c.GreaterThan) == 0
}

// IsPageVisible reports whether page should be shown given the answers so far.
// A page without conditions is always visible. A condition whose subject has
// no answer (or no longer exists) is never satisfied.
func IsPageVisible(page Page, answers []AnswerEntry) bool {
	if len(page.Conditions) == 0 {
		return true
	}
	for sectionID, cond := range page.Conditions {
		entry, ok := findAnswer(answers, sectionID)
		if !ok {
			continue
		}
		if conditionsMatch(cond, entry, false) {
			return true
		}
	}
	return false
}

// FollowUpSectionsToDisplay returns the ids of the follow-up sections of
// section whose conditions match answer. A nil answer matches nothing.
func FollowUpSectionsToDisplay(section Section, answer *AnswerEntry) []int {
	ids := []int{}
	if answer == nil {
		return ids
	}
	for _, f := range section.FollowUpSections {
		if conditionsMatch(f.Conditions, *answer, true) {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

func findAnswer(answers []AnswerEntry, sectionID int) (AnswerEntry, bool) {
	for _, a := range answers {
		if a.SectionID == sectionID {
			return a, true
		}
	}
	return AnswerEntry{}, false
}

func conditionsMatch(c Conditions, entry AnswerEntry, followUp bool) bool {
	if c.IsEmpty() {
		return false
	}
	var value any
	if len(entry.Value) == 0 || json.Unmarshal(entry.Value, &value) != nil {
		return false
	}
	numeric := entry.Type == TypeNumeric || entry.Type == TypeSlider
	return valueMatches(c, value, numeric, followUp)
}

func valueMatches(c Conditions, value any, numeric, followUp bool) bool {
	switch v := value.(type) {
	case float64:
		if equalsContains(c.Equals, v) {
			return true
		}
		if !numeric {
			return false
		}
		for _, bound := range c.LessThan {
			if v < bound {
				return true
			}
		}
		for _, bound := range c.GreaterThan {
			if v > bound {
				return true
			}
		}
		return false
	case string:
		if equalsContains(c.Equals, v) {
			return true
		}
		return followUp && v != "" && equalsContains(c.Equals, float64(CustomAnswerSentinel))
	case []any:
		for _, item := range v {
			if valueMatches(c, item, false, followUp) {
				return true
			}
		}
	}
	return false
}

func equalsContains(equals []any, value any) bool {
	for _, e := range equals {
		switch v := value.(type) {
		case float64:
			if n, ok := toFloat(e); ok && n == v {
				return true
			}
		case string:
			if s, ok := e.(string); ok && s == v {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
