package survey

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPublished(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	assert.False(t, IsPublished(nil, nil, now))
	assert.True(t, IsPublished(&yesterday, nil, now))
	assert.True(t, IsPublished(&yesterday, &tomorrow, now))
	assert.False(t, IsPublished(&tomorrow, nil, now))
	assert.False(t, IsPublished(&yesterday, &yesterday, now))
	assert.False(t, IsPublished(&yesterday, &now, now))
}

func TestAccess(t *testing.T) {
	s := Survey{AuthorID: 1, Admins: []uint{2}, Editors: []uint{3}}

	assert.True(t, s.CanManage(1))
	assert.True(t, s.CanManage(2))
	assert.False(t, s.CanManage(3))

	assert.True(t, s.CanEdit(3))
	assert.True(t, s.CanEdit(2))
	assert.False(t, s.CanEdit(4))
}

func surveyWith(pages ...Page) Survey {
	return Survey{ID: 1, Name: "test", Pages: pages}
}

func pageWith(id int, sections ...Section) Page {
	p := NewPage(id)
	p.Sections = sections
	return p
}

func TestValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		m := NewSection(TypeMap, 3)
		m.SetSubQuestions([]Section{NewSection(TypeRadio, 4)})
		s := surveyWith(pageWith(1, NewSection(TypeRadio, 1), NewSection(TypePersonalInfo, 2), m))
		assert.NoError(t, s.Validate())
	})

	t.Run("TwoPersonalInfoSections", func(t *testing.T) {
		s := surveyWith(
			pageWith(1, NewSection(TypePersonalInfo, 1)),
			pageWith(2, NewSection(TypePersonalInfo, 2)),
		)
		err := s.Validate()
		require.Error(t, err)
		assert.True(t, apperr.Is(err, 400))
		assert.Equal(t, "Section count limits not respected.", err.Error())
	})

	t.Run("PersonalInfoAsFollowUp", func(t *testing.T) {
		parent := NewSection(TypePersonalInfo, 1)
		parent.FollowUpSections = []FollowUpSection{{Section: NewSection(TypePersonalInfo, 2)}}
		assert.Error(t, surveyWith(pageWith(1, parent)).Validate())
	})

	t.Run("NestedFollowUps", func(t *testing.T) {
		child := FollowUpSection{Section: NewSection(TypeRadio, 2)}
		child.FollowUpSections = []FollowUpSection{{Section: NewSection(TypeRadio, 3)}}
		parent := NewSection(TypeRadio, 1)
		parent.FollowUpSections = []FollowUpSection{child}
		assert.True(t, apperr.Is(surveyWith(pageWith(1, parent)).Validate(), 400))
	})

	t.Run("InvalidSubQuestionType", func(t *testing.T) {
		m := NewSection(TypeMap, 1)
		m.SetSubQuestions([]Section{NewSection(TypeMatrix, 2)})
		assert.True(t, apperr.Is(surveyWith(pageWith(1, m)).Validate(), 400))
	})

	t.Run("MismatchedDetails", func(t *testing.T) {
		sec := NewSection(TypeRadio, 1)
		sec.Type = TypeCheckbox
		assert.Error(t, surveyWith(pageWith(1, sec)).Validate())
	})

	t.Run("PageConditions", func(t *testing.T) {
		first := pageWith(1, NewSection(TypeRadio, 1))
		second := pageWith(2, NewSection(TypeRadio, 2))
		second.Conditions = map[int]Conditions{1: {Equals: []any{1}}}
		assert.NoError(t, surveyWith(first, second).Validate())

		// Referring to a section on the same page is not allowed.
		second.Conditions = map[int]Conditions{2: {Equals: []any{1}}}
		assert.Error(t, surveyWith(first, second).Validate())

		// A removed section is tolerated.
		second.Conditions = map[int]Conditions{99: {Equals: []any{1}}}
		assert.NoError(t, surveyWith(first, second).Validate())
	})

	t.Run("DuplicateIDs", func(t *testing.T) {
		grouped := NewSection(TypeGroupedCheckbox, -3)
		grouped.SetGroups([]OptionGroup{
			{ID: -1, Options: []Option{{ID: -1}}},
			{ID: -2, Options: []Option{{ID: -2}}},
		})
		assert.NoError(t, surveyWith(pageWith(-1, grouped)).Validate())

		grouped.SetGroups([]OptionGroup{
			{ID: -1, Options: []Option{{ID: -1}}},
			{ID: -1, Options: []Option{{ID: -2}}},
		})
		err := surveyWith(pageWith(-1, grouped)).Validate()
		assert.True(t, apperr.Is(err, 400))
		assert.Contains(t, err.Error(), "option group")

		grouped.SetGroups([]OptionGroup{
			{ID: -1, Options: []Option{{ID: -5}}},
			{ID: -2, Options: []Option{{ID: -5}}},
		})
		assert.Error(t, surveyWith(pageWith(-1, grouped)).Validate())

		radio := NewSection(TypeRadio, 1)
		radio.SetOptions([]Option{{ID: 0}, {ID: 0}})
		assert.NoError(t, surveyWith(pageWith(1, radio)).Validate())

		assert.Error(t, surveyWith(pageWith(-1, NewSection(TypeText, -2)), pageWith(-1)).Validate())

		followUp := NewSection(TypeRadio, 1)
		followUp.FollowUpSections = []FollowUpSection{{Section: NewSection(TypeFreeText, -1)}}
		assert.Error(t, surveyWith(pageWith(1, followUp, NewSection(TypeText, -1))).Validate())
	})

	t.Run("ConditionOnConditionalPage", func(t *testing.T) {
		first := pageWith(1, NewSection(TypeRadio, 1))
		second := pageWith(2, NewSection(TypeRadio, 2))
		second.Conditions = map[int]Conditions{1: {Equals: []any{1}}}
		third := pageWith(3)
		third.Conditions = map[int]Conditions{2: {Equals: []any{1}}}
		assert.Error(t, surveyWith(first, second, third).Validate())
	})
}

func TestFlatSections(t *testing.T) {
	m := NewSection(TypeMap, 2)
	m.SetSubQuestions([]Section{NewSection(TypeFreeText, 3)})
	radio := NewSection(TypeRadio, 1)
	radio.FollowUpSections = []FollowUpSection{{Section: NewSection(TypeNumeric, 5)}}
	s := surveyWith(pageWith(1, radio, m), pageWith(2, NewSection(TypeText, 4)))

	var ids []int
	for _, sec := range s.FlatSections() {
		ids = append(ids, sec.ID)
	}
	assert.Equal(t, []int{1, 5, 2, 3, 4}, ids)
}

func TestSurveyJSON(t *testing.T) {
	radio := NewSection(TypeRadio, 1)
	radio.Title = Text("Color")
	radio.SetOptions([]Option{{ID: 10, Text: Text("Red")}, {ID: 11, Text: Text("Blue")}})
	radio.FollowUpSections = []FollowUpSection{{
		Section:    NewSection(TypeFreeText, 2),
		Conditions: Conditions{Equals: []any{11}},
	}}
	p := pageWith(1, radio)
	p.Conditions = map[int]Conditions{}
	in := surveyWith(p)

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Survey
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Pages, 1)
	require.Len(t, out.Pages[0].Sections, 1)

	got := out.Pages[0].Sections[0]
	assert.Equal(t, TypeRadio, got.Type)
	assert.Equal(t, "Color", got.Title.Get("en"))
	assert.Equal(t, radio.Options(), got.Options())
	require.Len(t, got.FollowUpSections, 1)
	assert.Equal(t, 2, got.FollowUpSections[0].ID)
	assert.Equal(t, TypeFreeText, got.FollowUpSections[0].Type)
	assert.Equal(t, []any{float64(11)}, got.FollowUpSections[0].Conditions.Equals)
}
