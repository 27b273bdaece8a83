package db

import (
	"encoding/json"
	"testing"

	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	assert.Equal(t, []int{2, 4}, reconcile([]int{1, 2, 3, 4}, []int{3, 1, -1, 0}))
	assert.Nil(t, reconcile([]int{1}, []int{1}))
	assert.Nil(t, reconcile(nil, []int{1}))
	assert.Equal(t, []int{5}, reconcile([]int{5}, nil))
}

func TestPersistedID(t *testing.T) {
	assert.Equal(t, 0, persistedID(-3))
	assert.Equal(t, 0, persistedID(0))
	assert.Equal(t, 7, persistedID(7))
}

func TestUpsertPagesRejectsPageSet(t *testing.T) {
	// Both checks run before anything is written, so no transaction is needed.
	w := &surveyWriter{surveyID: 1, pages: idSet([]int{1, 2, 3})}

	t.Run("OmittedPage", func(t *testing.T) {
		_, err := w.upsertPages([]survey.Page{survey.NewPage(1), survey.NewPage(3)})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, 400))
		assert.Contains(t, err.Error(), "Page 2 is missing")
	})

	t.Run("ForeignPage", func(t *testing.T) {
		pages := []survey.Page{survey.NewPage(1), survey.NewPage(2), survey.NewPage(3), survey.NewPage(99)}
		_, err := w.upsertPages(pages)
		assert.True(t, apperr.Is(err, 400))
	})
}

func documentFixture() []survey.Page {
	radio := survey.NewSection(survey.TypeRadio, 1)
	radio.FollowUpSections = []survey.FollowUpSection{
		{Section: survey.NewSection(survey.TypeFreeText, 2)},
		{Section: survey.NewSection(survey.TypeFreeText, -5)},
	}
	m := survey.NewSection(survey.TypeMap, 3)
	m.SetSubQuestions([]survey.Section{survey.NewSection(survey.TypeNumeric, 4), survey.NewSection(survey.TypeRadio, -6)})

	first := survey.NewPage(10)
	first.Sections = []survey.Section{radio, m}
	second := survey.NewPage(-1)
	second.Sections = []survey.Section{survey.NewSection(survey.TypeText, -7)}
	return []survey.Page{first, second}
}

func TestFlattenSections(t *testing.T) {
	flat := flattenSections(documentFixture(), []int{10, 11})

	var ids, pages []int
	for _, f := range flat {
		ids = append(ids, f.section.ID)
		pages = append(pages, f.pageID)
	}
	assert.Equal(t, []int{1, 2, -5, 3, -7}, ids)
	assert.Equal(t, []int{10, 10, 10, 10, 11}, pages)
}

func TestDocumentSectionIDs(t *testing.T) {
	ids := documentSectionIDs(documentFixture())
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 4: true}, ids)
}

func TestSectionToRow(t *testing.T) {
	sec := survey.NewSection(survey.TypeRadio, -2)
	sec.Title = survey.Text("Väri")
	sec.IsRequired = true
	sec.SetOptions([]survey.Option{{ID: 9, Text: survey.Text("Punainen")}})

	predecessor := 40
	conditions := survey.Conditions{Equals: []any{9}}
	row, err := sectionToRow(sectionPlacement{pageID: 3, idx: 2, predecessor: &predecessor, conditions: &conditions}, sec)
	require.NoError(t, err)

	assert.Equal(t, 0, row.ID)
	assert.Equal(t, 3, row.SurveyPageID)
	assert.Equal(t, 2, row.Idx)
	assert.Equal(t, "radio", row.Type)
	assert.True(t, row.IsRequired)
	assert.Nil(t, row.ParentSection)
	assert.Equal(t, 40, *row.PredecessorSection)
	assert.JSONEq(t, `{"fi":"Väri"}`, string(row.Title))
	assert.NotContains(t, string(row.Details), "Punainen")

	var stored survey.Conditions
	require.NoError(t, json.Unmarshal(row.Conditions, &stored))
	assert.Equal(t, []any{float64(9)}, stored.Equals)

	top, err := sectionToRow(sectionPlacement{pageID: 3}, sec)
	require.NoError(t, err)
	assert.Nil(t, top.Conditions)
	assert.Nil(t, top.PredecessorSection)
}

func TestSurveyToRow(t *testing.T) {
	in := survey.Survey{
		ID:       4,
		Title:    survey.Text("Kysely"),
		AuthorID: 2,
		Admins:   []uint{7},
		Theme:    &survey.Theme{ID: 3},
	}
	row, err := surveyToRow(in)
	require.NoError(t, err)
	assert.Nil(t, row.Name)
	assert.Equal(t, 3, *row.ThemeID)
	assert.Equal(t, []int64{7}, []int64(row.Admins))
	assert.Equal(t, []int64{}, []int64(row.Editors))
	assert.Equal(t, []string{}, []string(row.EnabledLanguages))
	assert.JSONEq(t, `{"fi":"Kysely"}`, string(row.Title))

	in.Name = "kysely"
	in.Theme = nil
	row, err = surveyToRow(in)
	require.NoError(t, err)
	assert.Equal(t, "kysely", *row.Name)
	assert.Nil(t, row.ThemeID)
}
