package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/models"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func baseRow() surveyRow {
	start := testNow.Add(-24 * time.Hour)
	return surveyRow{
		SurveyID:         1,
		Name:             sql.NullString{String: "parks", Valid: true},
		Title:            []byte(`{"fi":"Puistot","en":"Parks"}`),
		Author:           "Test Author",
		AuthorID:         3,
		Admins:           pq.Int64Array{4},
		Editors:          pq.Int64Array{5, 6},
		EmailAutoSendTo:  pq.StringArray{"reports@example.com"},
		StartDate:        sql.NullTime{Time: start, Valid: true},
		EnabledLanguages: pq.StringArray{"fi", "en"},
	}
}

func pageRow(id, idx int64) surveyRow {
	r := baseRow()
	r.PageID = nullInt(id)
	r.PageIdx = nullInt(idx)
	r.PageTitle = []byte(`{"fi":"Sivu"}`)
	r.SidebarType = sql.NullString{String: "map", Valid: true}
	r.SidebarMapLayers = pq.Int64Array{1, 2}
	return r
}

func sectionRow(pageID, pageIdx, id, idx int64, t survey.SectionType, details string) surveyRow {
	r := pageRow(pageID, pageIdx)
	r.SectionID = nullInt(id)
	r.SectionIdx = nullInt(idx)
	r.SectionType = sql.NullString{String: string(t), Valid: true}
	r.SectionTitle = []byte(`{"fi":"Kysymys"}`)
	r.Details = []byte(details)
	r.IsRequired = sql.NullBool{Bool: true, Valid: true}
	return r
}

func withOption(r surveyRow, id, idx int64, text string) surveyRow {
	r.OptionID = nullInt(id)
	r.OptionIdx = nullInt(idx)
	r.OptionText = []byte(`{"fi":"` + text + `"}`)
	return r
}

// fixtureRows describes two pages: a radio section with two options and a
// follow-up, a map section with one subquestion, and a grouped checkbox
// section on the second page.
func fixtureRows() ([]surveyRow, []models.OptionGroup) {
	followUp := sectionRow(10, 0, 103, 0, survey.TypeFreeText, `{}`)
	followUp.PredecessorSection = nullInt(100)
	followUp.SectionConditions = []byte(`{"equals":[1000],"lessThan":[],"greaterThan":[]}`)

	sub := sectionRow(10, 0, 102, 0, survey.TypeFreeText, `{"maxLength":50}`)
	sub.ParentSection = nullInt(101)

	grouped := withOption(sectionRow(11, 1, 104, 0, survey.TypeGroupedCheckbox, `{}`), 1040, 0, "Penkki")
	grouped.OptionGroupID = nullInt(50)

	rows := []surveyRow{
		withOption(sectionRow(10, 0, 100, 0, survey.TypeRadio, `{"allowCustomAnswer":true}`), 1000, 0, "Kyllä"),
		withOption(sectionRow(10, 0, 100, 0, survey.TypeRadio, `{"allowCustomAnswer":true}`), 1001, 1, "Ei"),
		sectionRow(10, 0, 101, 1, survey.TypeMap, `{"selectionTypes":["point"]}`),
		followUp,
		sub,
		grouped,
	}
	groups := []models.OptionGroup{{ID: 50, SectionID: 104, Idx: 0, Name: []byte(`{"fi":"Kalusteet"}`)}}
	return rows, groups
}

func reversed(rows []surveyRow) []surveyRow {
	out := make([]surveyRow, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}

func TestReconstructSurvey(t *testing.T) {
	t.Run("NoRows", func(t *testing.T) {
		_, err := reconstructSurvey(nil, nil, testNow)
		assert.True(t, apperr.Is(err, 404))
	})

	t.Run("NoPages", func(t *testing.T) {
		s, err := reconstructSurvey([]surveyRow{baseRow()}, nil, testNow)
		require.NoError(t, err)
		assert.Equal(t, []survey.Page{}, s.Pages)
		assert.Equal(t, "parks", s.Name)
		assert.Equal(t, uint(3), s.AuthorID)
		assert.Equal(t, []uint{4}, s.Admins)
		assert.Equal(t, []uint{5, 6}, s.Editors)
		assert.Equal(t, "Parks", s.Title.Get("en"))
		assert.True(t, s.IsPublished)
	})

	t.Run("EmptyPage", func(t *testing.T) {
		s, err := reconstructSurvey([]surveyRow{pageRow(10, 0)}, nil, testNow)
		require.NoError(t, err)
		require.Len(t, s.Pages, 1)
		assert.Equal(t, []survey.Section{}, s.Pages[0].Sections)
		assert.Equal(t, survey.SidebarMap, s.Pages[0].Sidebar.Type)
		assert.Equal(t, []int{1, 2}, s.Pages[0].Sidebar.MapLayers)
	})

	for name, order := range map[string]func([]surveyRow) []surveyRow{
		"QueryOrder":    func(r []surveyRow) []surveyRow { return r },
		"ReversedOrder": reversed,
	} {
		t.Run(name, func(t *testing.T) {
			rows, groups := fixtureRows()
			s, err := reconstructSurvey(order(rows), groups, testNow)
			require.NoError(t, err)

			require.Len(t, s.Pages, 2)
			assert.Equal(t, 10, s.Pages[0].ID)
			assert.Equal(t, 11, s.Pages[1].ID)

			first := s.Pages[0].Sections
			require.Len(t, first, 2)

			radio := first[0]
			assert.Equal(t, 100, radio.ID)
			assert.True(t, radio.IsRequired)
			require.Len(t, radio.Options(), 2)
			assert.Equal(t, 1000, radio.Options()[0].ID)
			assert.Equal(t, "Ei", radio.Options()[1].Text.Get("fi"))
			assert.True(t, radio.Details.(survey.RadioDetails).AllowCustomAnswer)

			require.Len(t, radio.FollowUpSections, 1)
			assert.Equal(t, 103, radio.FollowUpSections[0].ID)
			assert.Equal(t, []any{float64(1000)}, radio.FollowUpSections[0].Conditions.Equals)

			mapSec := first[1]
			assert.Equal(t, 101, mapSec.ID)
			require.Len(t, mapSec.SubQuestions(), 1)
			assert.Equal(t, 102, mapSec.SubQuestions()[0].ID)
			assert.Equal(t, 50, *mapSec.SubQuestions()[0].Details.(survey.FreeTextDetails).MaxLength)

			grouped := s.Pages[1].Sections[0]
			require.Len(t, grouped.Groups(), 1)
			assert.Equal(t, "Kalusteet", grouped.Groups()[0].Name.Get("fi"))
			require.Len(t, grouped.Groups()[0].Options, 1)
			assert.Equal(t, 1040, grouped.Groups()[0].Options[0].ID)
		})
	}

	t.Run("OrphanSubQuestion", func(t *testing.T) {
		orphan := sectionRow(10, 0, 102, 0, survey.TypeFreeText, `{}`)
		orphan.ParentSection = nullInt(999)
		_, err := reconstructSurvey([]surveyRow{pageRow(10, 0), orphan}, nil, testNow)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, 500))
	})

	t.Run("UnknownGroup", func(t *testing.T) {
		row := withOption(sectionRow(10, 0, 104, 0, survey.TypeGroupedCheckbox, `{}`), 1, 0, "x")
		row.OptionGroupID = nullInt(77)
		_, err := reconstructSurvey([]surveyRow{row}, nil, testNow)
		assert.True(t, apperr.Is(err, 500))
	})

	t.Run("NotYetPublished", func(t *testing.T) {
		row := baseRow()
		row.StartDate = sql.NullTime{Time: testNow.Add(time.Hour), Valid: true}
		s, err := reconstructSurvey([]surveyRow{row}, nil, testNow)
		require.NoError(t, err)
		assert.False(t, s.IsPublished)
	})
}

func TestSortSurveyRows(t *testing.T) {
	sub := sectionRow(1, 0, 3, 0, survey.TypeRadio, `{}`)
	sub.ParentSection = nullInt(2)
	followUp := sectionRow(1, 0, 4, 0, survey.TypeRadio, `{}`)
	followUp.PredecessorSection = nullInt(2)
	rows := []surveyRow{
		sub,
		followUp,
		sectionRow(2, 1, 5, 0, survey.TypeRadio, `{}`),
		sectionRow(1, 0, 2, 1, survey.TypeMap, `{}`),
		pageRow(3, 2),
		sectionRow(1, 0, 1, 0, survey.TypeRadio, `{}`),
	}
	sortSurveyRows(rows)

	var ids []int64
	for _, r := range rows {
		ids = append(ids, r.SectionID.Int64)
	}
	assert.Equal(t, []int64{1, 2, 5, 0, 4, 3}, ids)
}
