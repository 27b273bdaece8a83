package survey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Submission is one respondent's set of answers to a survey.
type Submission struct {
	ID         int           `json:"id"`
	SurveyID   int           `json:"surveyId"`
	Language   string        `json:"language"`
	Unfinished bool          `json:"unfinished"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Answers    []AnswerEntry `json:"answers"`
}

// AnswerEntry is one answer in a submission. The shape of Value depends on Type.
type AnswerEntry struct {
	SectionID int             `json:"sectionId" validate:"required"`
	Type      SectionType     `json:"type" validate:"required"`
	Value     json.RawMessage `json:"value"`
}

// Choice is a selected option id or a custom answer text.
type Choice struct {
	OptionID *int
	Custom   string
}

type MapAnswer struct {
	SelectionType      MapSelectionType `json:"selectionType"`
	Geometry           json.RawMessage  `json:"geometry"`
	SubQuestionAnswers []AnswerEntry    `json:"subQuestionAnswers"`
}

type GeoBudgetAnswer struct {
	TargetIndex int             `json:"targetIndex"`
	Point       json.RawMessage `json:"point"`
}

type PersonalInfoAnswer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Custom  string `json:"custom"`
}

type AttachmentAnswer struct {
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
}

func (e AnswerEntry) IsNull() bool {
	v := bytes.TrimSpace(e.Value)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

func (e AnswerEntry) Number() (float64, bool) {
	var n float64
	if e.IsNull() || json.Unmarshal(e.Value, &n) != nil {
		return 0, false
	}
	return n, true
}

func (e AnswerEntry) Text() (string, bool) {
	var s string
	if e.IsNull() || json.Unmarshal(e.Value, &s) != nil {
		return "", false
	}
	return s, true
}

// Choice decodes a radio answer: an option id or a custom text.
func (e AnswerEntry) Choice() (Choice, bool) {
	var v any
	if e.IsNull() || json.Unmarshal(e.Value, &v) != nil {
		return Choice{}, false
	}
	return toChoice(v)
}

// Choices decodes a checkbox-like answer.
func (e AnswerEntry) Choices() ([]Choice, error) {
	var raw []any
	if e.IsNull() {
		return nil, nil
	}
	if err := json.Unmarshal(e.Value, &raw); err != nil {
		return nil, err
	}
	out := make([]Choice, 0, len(raw))
	for _, v := range raw {
		c, ok := toChoice(v)
		if !ok {
			return nil, fmt.Errorf("invalid choice %v", v)
		}
		out = append(out, c)
	}
	return out, nil
}

func toChoice(v any) (Choice, bool) {
	switch t := v.(type) {
	case float64:
		id := int(t)
		return Choice{OptionID: &id}, true
	case string:
		return Choice{Custom: t}, true
	}
	return Choice{}, false
}

func (e AnswerEntry) OptionIDs() ([]int, error) {
	var ids []int
	if e.IsNull() {
		return nil, nil
	}
	err := json.Unmarshal(e.Value, &ids)
	return ids, err
}

// Matrix decodes a matrix answer: one class index per subject, "" when unanswered.
func (e AnswerEntry) Matrix() ([]string, error) {
	return decodeValue[[]string](e)
}

func (e AnswerEntry) MultiMatrix() ([][]string, error) {
	return decodeValue[[][]string](e)
}

func (e AnswerEntry) MapFeatures() ([]MapAnswer, error) {
	return decodeValue[[]MapAnswer](e)
}

// Budget decodes the amount allocated to each target, in target order.
func (e AnswerEntry) Budget() ([]float64, error) {
	return decodeValue[[]float64](e)
}

func (e AnswerEntry) GeoBudget() ([]GeoBudgetAnswer, error) {
	return decodeValue[[]GeoBudgetAnswer](e)
}

func (e AnswerEntry) PersonalInfo() (PersonalInfoAnswer, error) {
	return decodeValue[PersonalInfoAnswer](e)
}

func (e AnswerEntry) Attachments() ([]AttachmentAnswer, error) {
	return decodeValue[[]AttachmentAnswer](e)
}

func decodeValue[T any](e AnswerEntry) (T, error) {
	var v T
	if e.IsNull() {
		return v, nil
	}
	err := json.Unmarshal(e.Value, &v)
	return v, err
}

// SectionIndex finds section definitions by id across pages, follow-ups and
// subquestions.
type SectionIndex struct {
	sections map[int]Section
}

func NewSectionIndex(s Survey) *SectionIndex {
	idx := &SectionIndex{
		sections: map[int]Section{},
	}
	for _, p := range s.Pages {
		for _, sec := range p.Sections {
			idx.add(sec)
			for _, f := range sec.FollowUpSections {
				idx.add(f.Section)
			}
		}
	}
	return idx
}

func (idx *SectionIndex) add(sec Section) {
	idx.sections[sec.ID] = sec
	for _, sub := range sec.SubQuestions() {
		idx.add(sub)
	}
}

func (idx *SectionIndex) Lookup(id int) (Section, bool) {
	sec, ok := idx.sections[id]
	return sec, ok
}


// Match pairs each entry with its section definition. Entries that refer to
// sections no longer in the survey are dropped.
func (idx *SectionIndex) Match(entries []AnswerEntry) []MatchedAnswer {
	out := make([]MatchedAnswer, 0, len(entries))
	for _, e := range entries {
		sec, ok := idx.Lookup(e.SectionID)
		if !ok {
			continue
		}
		out = append(out, MatchedAnswer{Section: sec, Entry: e})
	}
	return out
}

type MatchedAnswer struct {
	Section Section
	Entry   AnswerEntry
}

// FormatAnswer renders an answer as human readable lines in lang. Values that
// cannot be decoded, or refer to options that no longer exist, render as empty.
func FormatAnswer(sec Section, e AnswerEntry, lang string) []string {
	if e.IsNull() {
		return nil
	}
	switch d := sec.Details.(type) {
	case RadioDetails:
		c, ok := e.Choice()
		if !ok {
			return nil
		}
		return []string{choiceText(sec, c, lang)}
	case CheckboxDetails, GroupedCheckboxDetails, CategorizedCheckboxDetails:
		choices, err := e.Choices()
		if err != nil {
			return nil
		}
		var out []string
		for _, c := range choices {
			if t := choiceText(sec, c, lang); t != "" {
				out = append(out, t)
			}
		}
		return out
	case SortingDetails:
		ids, err := e.OptionIDs()
		if err != nil {
			return nil
		}
		var out []string
		for i, id := range ids {
			if t, ok := sec.OptionText(id, lang); ok {
				out = append(out, fmt.Sprintf("%d. %s", i+1, t))
			}
		}
		return out
	case MatrixDetails:
		classes, err := e.Matrix()
		if err != nil {
			return nil
		}
		var out []string
		for i, class := range classes {
			if i >= len(d.Subjects) || class == "" {
				continue
			}
			out = append(out, d.Subjects[i].Get(lang)+": "+matrixClass(d.Classes, class, lang))
		}
		return out
	case MultiMatrixDetails:
		rows, err := e.MultiMatrix()
		if err != nil {
			return nil
		}
		var out []string
		for i, row := range rows {
			if i >= len(d.Subjects) || len(row) == 0 {
				continue
			}
			labels := make([]string, 0, len(row))
			for _, class := range row {
				labels = append(labels, matrixClass(d.Classes, class, lang))
			}
			out = append(out, d.Subjects[i].Get(lang)+": "+strings.Join(labels, ", "))
		}
		return out
	case SliderDetails, NumericDetails:
		n, ok := e.Number()
		if !ok {
			return nil
		}
		return []string{strconv.FormatFloat(n, 'f', -1, 64)}
	case FreeTextDetails:
		s, ok := e.Text()
		if !ok || s == "" {
			return nil
		}
		return []string{s}
	case MapDetails:
		features, err := e.MapFeatures()
		if err != nil {
			return nil
		}
		var out []string
		for i, f := range features {
			out = append(out, fmt.Sprintf("%d. %s", i+1, f.SelectionType))
			for _, sub := range d.SubQuestions {
				for _, a := range f.SubQuestionAnswers {
					if a.SectionID != sub.ID {
						continue
					}
					if lines := FormatAnswer(sub, a, lang); len(lines) > 0 {
						out = append(out, "   "+sub.Title.Get(lang)+": "+strings.Join(lines, ", "))
					}
				}
			}
		}
		return out
	case BudgetingDetails:
		amounts, err := e.Budget()
		if err != nil {
			return nil
		}
		var out []string
		for i, amount := range amounts {
			if i >= len(d.Targets) || amount == 0 {
				continue
			}
			out = append(out, fmt.Sprintf("%s: %s %s", d.Targets[i].Name.Get(lang), strconv.FormatFloat(amount, 'f', -1, 64), d.Unit))
		}
		return out
	case GeoBudgetingDetails:
		items, err := e.GeoBudget()
		if err != nil {
			return nil
		}
		counts := make([]int, len(d.Targets))
		for _, item := range items {
			if item.TargetIndex >= 0 && item.TargetIndex < len(d.Targets) {
				counts[item.TargetIndex]++
			}
		}
		var out []string
		for i, n := range counts {
			if n > 0 {
				out = append(out, fmt.Sprintf("%s: %d", d.Targets[i].Name.Get(lang), n))
			}
		}
		return out
	case PersonalInfoDetails:
		info, err := e.PersonalInfo()
		if err != nil {
			return nil
		}
		var out []string
		for _, v := range []string{info.Name, info.Email, info.Phone, info.Address, info.Custom} {
			if v != "" {
				out = append(out, v)
			}
		}
		return out
	case AttachmentDetails:
		files, err := e.Attachments()
		if err != nil {
			return nil
		}
		var out []string
		for _, f := range files {
			out = append(out, f.FileName)
		}
		return out
	case TextDetails, ImageDetails, DocumentDetails, nil:
		return nil
	default:
		panic(fmt.Sprintf("survey: unhandled section details %T", d))
	}
}

func choiceText(sec Section, c Choice, lang string) string {
	if c.OptionID == nil {
		return c.Custom
	}
	t, _ := sec.OptionText(*c.OptionID, lang)
	return t
}

// Matrix classes are stored by index; "-1" means "don't know".
func matrixClass(classes []LocalizedText, class string, lang string) string {
	i, err := strconv.Atoi(class)
	if err != nil || i < 0 || i >= len(classes) {
		return "-"
	}
	return classes[i].Get(lang)
}
