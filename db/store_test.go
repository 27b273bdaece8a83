package db

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/models"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore connects to the database named by TEST_DATABASE_URL. Tests
// that need Postgres are skipped without it.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	gormDB, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})
	return NewStore(gormDB)
}

func createTestSurvey(t *testing.T, store *Store) *survey.Survey {
	t.Helper()
	s, err := store.CreateSurvey(context.Background(), 1, "Test Author")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.DeleteSurvey(context.Background(), s.ID) })
	s.Name = "test-" + uuid.NewString()
	return s
}

func richDocument(s *survey.Survey) {
	radio := survey.NewSection(survey.TypeRadio, -1)
	radio.Title = survey.Text("Kulkutapa")
	radio.SetOptions([]survey.Option{
		{ID: -2, Text: survey.Text("Kävellen")},
		{ID: -3, Text: survey.Text("Pyörällä")},
	})
	radio.FollowUpSections = []survey.FollowUpSection{{
		Section:    survey.NewSection(survey.TypeFreeText, -4),
		Conditions: survey.Conditions{Equals: []any{survey.CustomAnswerSentinel}},
	}}

	m := survey.NewSection(survey.TypeMap, -5)
	sub := survey.NewSection(survey.TypeCheckbox, -6)
	sub.SetOptions([]survey.Option{{ID: -7, Text: survey.Text("Vaarallinen")}})
	m.SetSubQuestions([]survey.Section{sub})

	grouped := survey.NewSection(survey.TypeGroupedCheckbox, -8)
	grouped.SetGroups([]survey.OptionGroup{{
		ID:      -9,
		Name:    survey.Text("Kalusteet"),
		Options: []survey.Option{{ID: -10, Text: survey.Text("Penkki")}},
	}})

	s.Pages[0].Sections = []survey.Section{radio, m}
	second := survey.NewPage(-11)
	second.Sections = []survey.Section{grouped}
	s.Pages = append(s.Pages, second)
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	s := createTestSurvey(t, store)
	require.Len(t, s.Pages, 1)

	richDocument(s)
	saved, err := store.UpdateSurvey(ctx, *s)
	require.NoError(t, err)

	require.Len(t, saved.Pages, 2)
	radio := saved.Pages[0].Sections[0]
	assert.Positive(t, radio.ID)
	require.Len(t, radio.Options(), 2)
	assert.Equal(t, "Pyörällä", radio.Options()[1].Text.Get("fi"))
	require.Len(t, radio.FollowUpSections, 1)
	assert.Equal(t, []any{float64(survey.CustomAnswerSentinel)}, radio.FollowUpSections[0].Conditions.Equals)

	m := saved.Pages[0].Sections[1]
	require.Len(t, m.SubQuestions(), 1)
	assert.Len(t, m.SubQuestions()[0].Options(), 1)

	grouped := saved.Pages[1].Sections[0]
	require.Len(t, grouped.Groups(), 1)
	require.Len(t, grouped.Groups()[0].Options, 1)
	assert.Positive(t, grouped.Groups()[0].Options[0].ID)

	t.Run("Idempotent", func(t *testing.T) {
		again, err := store.UpdateSurvey(ctx, *saved)
		require.NoError(t, err)
		want, _ := json.Marshal(saved.Pages)
		got, _ := json.Marshal(again.Pages)
		assert.JSONEq(t, string(want), string(got))
	})

	t.Run("DeleteByOmission", func(t *testing.T) {
		doc := *saved
		first := doc.Pages[0]
		r := first.Sections[0]
		r.SetOptions(r.Options()[:1])
		r.FollowUpSections = nil
		mapSec := first.Sections[1]
		mapSec.SetSubQuestions([]survey.Section{})
		first.Sections = []survey.Section{r, mapSec}
		doc.Pages = []survey.Page{first, doc.Pages[1]}

		updated, err := store.UpdateSurvey(ctx, doc)
		require.NoError(t, err)
		got := updated.Pages[0].Sections
		require.Len(t, got[0].Options(), 1)
		kept, dropped := saved.Pages[0].Sections[0].Options()[0].ID, saved.Pages[0].Sections[0].Options()[1].ID
		assert.Equal(t, kept, got[0].Options()[0].ID)
		assert.NotEqual(t, dropped, got[0].Options()[0].ID)
		var count int64
		require.NoError(t, store.DB.Model(&models.SectionOption{}).Where("id = ?", dropped).Count(&count).Error)
		assert.Zero(t, count)
		assert.Empty(t, got[0].FollowUpSections)
		assert.Empty(t, got[1].SubQuestions())
	})

	t.Run("ForeignIDs", func(t *testing.T) {
		doc := *saved
		foreign := survey.NewSection(survey.TypeText, 987654321)
		doc.Pages = append([]survey.Page{}, doc.Pages...)
		doc.Pages[0].Sections = append([]survey.Section{foreign}, doc.Pages[0].Sections...)
		_, err := store.UpdateSurvey(ctx, doc)
		assert.True(t, apperr.Is(err, 400))
	})

	t.Run("OmittedPage", func(t *testing.T) {
		doc := *saved
		doc.Pages = []survey.Page{doc.Pages[1]}
		_, err := store.UpdateSurvey(ctx, doc)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, 400))

		// Nothing was written: both pages keep their order.
		got, err := store.GetSurvey(ctx, saved.ID)
		require.NoError(t, err)
		require.Len(t, got.Pages, 2)
		assert.Equal(t, saved.Pages[0].ID, got.Pages[0].ID)
		assert.Equal(t, saved.Pages[1].ID, got.Pages[1].ID)
	})
}

func TestStoreDuplicateName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	a := createTestSurvey(t, store)
	b := createTestSurvey(t, store)

	_, err := store.UpdateSurvey(ctx, *a)
	require.NoError(t, err)

	b.Name = a.Name
	_, err = store.UpdateSurvey(ctx, *b)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, apperr.InfoDuplicateSurveyName, appErr.Info)
}

func TestStorePages(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	s := createTestSurvey(t, store)

	second, err := store.CreatePage(ctx, s.ID)
	require.NoError(t, err)
	third, err := store.CreatePage(ctx, s.ID)
	require.NoError(t, err)

	surveyID, err := store.PageSurveyID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, surveyID)

	require.NoError(t, store.DeletePage(ctx, second.ID))
	got, err := store.GetSurvey(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Pages, 2)
	assert.Equal(t, s.Pages[0].ID, got.Pages[0].ID)
	assert.Equal(t, third.ID, got.Pages[1].ID)

	assert.True(t, apperr.Is(store.DeletePage(ctx, second.ID), 404))
	_, err = store.CreatePage(ctx, 0)
	assert.True(t, apperr.Is(err, 404))
}

func TestStoreSubmissions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	s := createTestSurvey(t, store)
	saved, err := store.UpdateSurvey(ctx, *s)
	require.NoError(t, err)

	answers := []survey.AnswerEntry{{SectionID: 1, Type: survey.TypeFreeText, Value: json.RawMessage(`"hei"`)}}
	token, err := store.SaveUnfinishedSubmission(ctx, saved.ID, "fi", answers, nil)
	require.NoError(t, err)

	draft, err := store.UnfinishedSubmission(ctx, saved.ID, token)
	require.NoError(t, err)
	assert.True(t, draft.Unfinished)
	require.Len(t, draft.Answers, 1)

	id, err := store.CreateSubmission(ctx, saved.ID, "fi", answers, &token)
	require.NoError(t, err)

	_, err = store.UnfinishedSubmission(ctx, saved.ID, token)
	assert.True(t, apperr.Is(err, 404))

	_, subs, err := store.SurveyWithSubmissions(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, id, subs[0].ID)
	assert.WithinDuration(t, time.Now(), subs[0].CreatedAt, time.Minute)
	assert.JSONEq(t, `"hei"`, string(subs[0].Answers[0].Value))
}
