package survey

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Rule names a violated validation rule. The respondent UI keys its messages
// off these values.
type Rule string

const (
	RuleRequired        Rule = "required"
	RuleAnswerLimits    Rule = "answerLimits"
	RuleMinValue        Rule = "minValue"
	RuleMaxValue        Rule = "maxValue"
	RuleMaxLength       Rule = "maxLength"
	RuleBudgetExceeded  Rule = "budgetExceeded"
	RuleInvalidGeometry Rule = "invalidGeometry"
	RuleInvalidValue    Rule = "invalidValue"
)

// ValidationErrors returns the rules violated by the answer to sec. A nil
// answer means the section was left unanswered.
func ValidationErrors(sec Section, answer *AnswerEntry) []Rule {
	var v ruleSet
	if answer == nil {
		answer = &AnswerEntry{SectionID: sec.ID, Type: sec.Type}
	}
	e := *answer

	switch d := sec.Details.(type) {
	case RadioDetails:
		c, ok := e.Choice()
		if !ok && sec.IsRequired {
			v.add(RuleRequired)
		}
		if ok && !choiceExists(sec, c, d.AllowCustomAnswer) {
			v.add(RuleInvalidValue)
		}
	case CheckboxDetails:
		v.checkChoices(sec, e, d.AnswerLimits, d.AllowCustomAnswer)
	case GroupedCheckboxDetails:
		v.checkChoices(sec, e, d.AnswerLimits, false)
	case CategorizedCheckboxDetails:
		v.checkChoices(sec, e, d.AnswerLimits, false)
	case SortingDetails:
		ids, err := e.OptionIDs()
		if err != nil {
			v.add(RuleInvalidValue)
			break
		}
		if sec.IsRequired && len(ids) == 0 {
			v.add(RuleRequired)
		}
		for _, id := range ids {
			if _, ok := sec.OptionText(id, ""); !ok {
				v.add(RuleInvalidValue)
			}
		}
	case MatrixDetails:
		classes, err := e.Matrix()
		if err != nil {
			v.add(RuleInvalidValue)
			break
		}
		if sec.IsRequired && !d.AllowEmptyAnswer && countAnswered(classes) < len(d.Subjects) {
			v.add(RuleRequired)
		}
	case MultiMatrixDetails:
		rows, err := e.MultiMatrix()
		if err != nil {
			v.add(RuleInvalidValue)
			break
		}
		answered := 0
		for _, row := range rows {
			if len(row) > 0 {
				answered++
			}
			if len(row) > 0 && !withinLimits(len(row), d.AnswerLimits) {
				v.add(RuleAnswerLimits)
			}
		}
		if sec.IsRequired && !d.AllowEmptyAnswer && answered < len(d.Subjects) {
			v.add(RuleRequired)
		}
	case SliderDetails:
		v.checkNumber(sec, e, floatPtr(float64(d.MinValue)), floatPtr(float64(d.MaxValue)))
	case NumericDetails:
		v.checkNumber(sec, e, d.MinValue, d.MaxValue)
	case FreeTextDetails:
		s, _ := e.Text()
		if sec.IsRequired && strings.TrimSpace(s) == "" {
			v.add(RuleRequired)
		}
		if d.MaxLength != nil && utf8.RuneCountInString(s) > *d.MaxLength {
			v.add(RuleMaxLength)
		}
	case MapDetails:
		features, err := e.MapFeatures()
		if err != nil {
			v.add(RuleInvalidValue)
			break
		}
		if sec.IsRequired && len(features) == 0 {
			v.add(RuleRequired)
		}
		for _, f := range features {
			if !validGeometry(f.SelectionType, f.Geometry) {
				v.add(RuleInvalidGeometry)
			}
			for _, sub := range d.SubQuestions {
				a, ok := findAnswer(f.SubQuestionAnswers, sub.ID)
				var ap *AnswerEntry
				if ok {
					ap = &a
				}
				v.add(ValidationErrors(sub, ap)...)
			}
		}
	case BudgetingDetails:
		amounts, err := e.Budget()
		if err != nil {
			v.add(RuleInvalidValue)
			break
		}
		spent := 0.0
		for _, a := range amounts {
			spent += a
		}
		if sec.IsRequired && spent == 0 {
			v.add(RuleRequired)
		}
		if d.TotalBudget > 0 && spent > d.TotalBudget {
			v.add(RuleBudgetExceeded)
		}
		if !d.AllowPartialSpending && spent > 0 && spent < d.TotalBudget {
			v.add(RuleRequired)
		}
	case GeoBudgetingDetails:
		items, err := e.GeoBudget()
		if err != nil {
			v.add(RuleInvalidValue)
			break
		}
		if sec.IsRequired && len(items) == 0 {
			v.add(RuleRequired)
		}
		spent := 0.0
		for _, item := range items {
			if item.TargetIndex < 0 || item.TargetIndex >= len(d.Targets) {
				v.add(RuleInvalidValue)
				continue
			}
			spent += d.Targets[item.TargetIndex].Price
			if !validGeometry(SelectPoint, item.Point) {
				v.add(RuleInvalidGeometry)
			}
		}
		if d.TotalBudget > 0 && spent > d.TotalBudget {
			v.add(RuleBudgetExceeded)
		}
	case PersonalInfoDetails:
		info, err := e.PersonalInfo()
		if err != nil {
			v.add(RuleInvalidValue)
			break
		}
		if sec.IsRequired && ((d.AskName && info.Name == "") ||
			(d.AskEmail && info.Email == "") ||
			(d.AskPhone && info.Phone == "") ||
			(d.AskAddress && info.Address == "") ||
			(d.AskCustom && info.Custom == "")) {
			v.add(RuleRequired)
		}
	case AttachmentDetails:
		files, err := e.Attachments()
		if err != nil {
			v.add(RuleInvalidValue)
		} else if sec.IsRequired && len(files) == 0 {
			v.add(RuleRequired)
		}
	case TextDetails, ImageDetails, DocumentDetails, nil:
	default:
		panic(fmt.Sprintf("survey: unhandled section details %T", d))
	}
	return v.rules
}

// ValidateSubmission validates the answers to every section the respondent
// was shown: sections on visible pages and follow-ups whose conditions
// matched. Entries for unknown sections are ignored. The result maps section
// ids to their violated rules and is empty when the submission is valid.
func ValidateSubmission(s Survey, answers []AnswerEntry) map[int][]Rule {
	out := map[int][]Rule{}
	check := func(sec Section) *AnswerEntry {
		var ap *AnswerEntry
		if a, ok := findAnswer(answers, sec.ID); ok {
			ap = &a
		}
		if rules := ValidationErrors(sec, ap); len(rules) > 0 {
			out[sec.ID] = rules
		}
		return ap
	}
	for _, p := range s.Pages {
		if !IsPageVisible(p, answers) {
			continue
		}
		for _, sec := range p.Sections {
			answer := check(sec)
			shown := FollowUpSectionsToDisplay(sec, answer)
			for _, f := range sec.FollowUpSections {
				if containsInt(shown, f.ID) {
					check(f.Section)
				}
			}
		}
	}
	return out
}

type ruleSet struct {
	rules []Rule
}

func (v *ruleSet) add(rules ...Rule) {
	for _, r := range rules {
		found := false
		for _, existing := range v.rules {
			if existing == r {
				found = true
				break
			}
		}
		if !found {
			v.rules = append(v.rules, r)
		}
	}
}

func (v *ruleSet) checkChoices(sec Section, e AnswerEntry, limits *AnswerLimits, allowCustom bool) {
	choices, err := e.Choices()
	if err != nil {
		v.add(RuleInvalidValue)
		return
	}
	for _, c := range choices {
		if !choiceExists(sec, c, allowCustom) {
			v.add(RuleInvalidValue)
		}
	}
	if sec.IsRequired && len(choices) == 0 {
		v.add(RuleRequired)
	}
	if (sec.IsRequired || len(choices) > 0) && !withinLimits(len(choices), limits) {
		v.add(RuleAnswerLimits)
	}
}

// choiceExists reports whether c names one of the section's options, or is a
// custom answer the section accepts.
func choiceExists(sec Section, c Choice, allowCustom bool) bool {
	if c.OptionID == nil {
		return allowCustom
	}
	_, ok := sec.OptionText(*c.OptionID, "")
	return ok
}

func (v *ruleSet) checkNumber(sec Section, e AnswerEntry, min, max *float64) {
	n, ok := e.Number()
	if !ok {
		if sec.IsRequired {
			v.add(RuleRequired)
		}
		return
	}
	if min != nil && n < *min {
		v.add(RuleMinValue)
	}
	if max != nil && n > *max {
		v.add(RuleMaxValue)
	}
}

func withinLimits(count int, limits *AnswerLimits) bool {
	if limits == nil {
		return true
	}
	if limits.Min != nil && count < *limits.Min {
		return false
	}
	if limits.Max != nil && count > *limits.Max {
		return false
	}
	return true
}

func countAnswered(values []string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

// validGeometry checks that raw is a GeoJSON feature whose geometry matches
// the selection type.
func validGeometry(t MapSelectionType, raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	f, err := geojson.UnmarshalFeature(raw)
	if err != nil || f.Geometry == nil {
		return false
	}
	switch t {
	case SelectPoint:
		_, ok := f.Geometry.(orb.Point)
		return ok
	case SelectLine:
		_, ok := f.Geometry.(orb.LineString)
		return ok
	case SelectArea:
		_, ok := f.Geometry.(orb.Polygon)
		return ok
	}
	return false
}

func floatPtr(f float64) *float64 {
	return &f
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
