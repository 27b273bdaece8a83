package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/models"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateSubmission stores a finished submission. When token refers to an
// unfinished submission of the same survey, that draft is removed in the same
// transaction.
func (s *Store) CreateSubmission(ctx context.Context, surveyID int, lang string, answers []survey.AnswerEntry, token *uuid.UUID) (int, error) {
	var id int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if token != nil {
			err := tx.Where("survey_id = ? AND unfinished AND unfinished_token = ?", surveyID, *token).
				Delete(&models.Submission{}).Error
			if err != nil {
				return err
			}
		}
		row := models.Submission{SurveyID: surveyID, Language: lang}
		if err := tx.Omit("Answers").Create(&row).Error; err != nil {
			return err
		}
		id = row.ID
		return insertAnswers(tx, row.ID, answers)
	})
	if err != nil {
		return 0, translateError("db.create_submission", err)
	}
	return id, nil
}

// SaveUnfinishedSubmission stores a draft and returns the token it can be
// resumed with. An existing draft for token is replaced.
func (s *Store) SaveUnfinishedSubmission(ctx context.Context, surveyID int, lang string, answers []survey.AnswerEntry, token *uuid.UUID) (uuid.UUID, error) {
	var result uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Submission
		found := false
		if token != nil {
			err := tx.Where("survey_id = ? AND unfinished AND unfinished_token = ?", surveyID, *token).
				Limit(1).Find(&row).Error
			if err != nil {
				return err
			}
			found = row.ID != 0
		}

		if found {
			if err := tx.Model(&row).Update("language", lang).Error; err != nil {
				return err
			}
			if err := tx.Where("submission_id = ?", row.ID).Delete(&models.AnswerEntry{}).Error; err != nil {
				return err
			}
		} else {
			t := uuid.New()
			row = models.Submission{SurveyID: surveyID, Language: lang, Unfinished: true, UnfinishedToken: &t}
			if err := tx.Omit("Answers").Create(&row).Error; err != nil {
				return err
			}
		}
		result = *row.UnfinishedToken
		return insertAnswers(tx, row.ID, answers)
	})
	if err != nil {
		return uuid.Nil, translateError("db.save_unfinished_submission", err)
	}
	return result, nil
}

// UnfinishedSubmission loads the draft saved under token.
func (s *Store) UnfinishedSubmission(ctx context.Context, surveyID int, token uuid.UUID) (*survey.Submission, error) {
	var row models.Submission
	err := s.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		Where("survey_id = ? AND unfinished AND unfinished_token = ?", surveyID, token).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Unfinished submission not found")
		}
		return nil, translateError("db.unfinished_submission", err)
	}
	out := submissionFromRow(row)
	return &out, nil
}

// Submissions returns the finished submissions of a survey, oldest first.
func (s *Store) Submissions(ctx context.Context, surveyID int) ([]survey.Submission, error) {
	var rows []models.Submission
	err := s.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		Where("survey_id = ? AND NOT unfinished", surveyID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError("db.submissions", err)
	}
	out := make([]survey.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, submissionFromRow(r))
	}
	return out, nil
}

// Submission returns one finished submission of a survey.
func (s *Store) Submission(ctx context.Context, surveyID, submissionID int) (*survey.Submission, error) {
	var row models.Submission
	err := s.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		Where("id = ? AND survey_id = ? AND NOT unfinished", submissionID, surveyID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Submission not found")
		}
		return nil, translateError("db.submission", err)
	}
	out := submissionFromRow(row)
	return &out, nil
}

// SurveyWithSubmissions loads a survey and all of its finished submissions
// concurrently.
func (s *Store) SurveyWithSubmissions(ctx context.Context, surveyID int) (*survey.Survey, []survey.Submission, error) {
	var (
		sv   *survey.Survey
		subs []survey.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sv, err = s.GetSurvey(gctx, surveyID)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = s.Submissions(gctx, surveyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sv, subs, nil
}

// SurveyWithSubmission loads a survey and one of its submissions concurrently.
func (s *Store) SurveyWithSubmission(ctx context.Context, surveyID, submissionID int) (*survey.Survey, *survey.Submission, error) {
	var (
		sv  *survey.Survey
		sub *survey.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sv, err = s.GetSurvey(gctx, surveyID)
		return err
	})
	g.Go(func() error {
		var err error
		sub, err = s.Submission(gctx, surveyID, submissionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sv, sub, nil
}

func insertAnswers(tx *gorm.DB, submissionID int, answers []survey.AnswerEntry) error {
	if len(answers) == 0 {
		return nil
	}
	rows := make([]models.AnswerEntry, 0, len(answers))
	for i, a := range answers {
		value := datatypes.JSON("null")
		if !a.IsNull() {
			value = datatypes.JSON(a.Value)
		}
		rows = append(rows, models.AnswerEntry{
			SubmissionID: submissionID,
			SectionID:    a.SectionID,
			Idx:          i,
			Type:         string(a.Type),
			Value:        value,
		})
	}
	return tx.Create(&rows).Error
}

func submissionFromRow(r models.Submission) survey.Submission {
	out := survey.Submission{
		ID:         r.ID,
		SurveyID:   r.SurveyID,
		Language:   r.Language,
		Unfinished: r.Unfinished,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Answers:    make([]survey.AnswerEntry, 0, len(r.Answers)),
	}
	for _, a := range r.Answers {
		out.Answers = append(out.Answers, survey.AnswerEntry{
			SectionID: a.SectionID,
			Type:      survey.SectionType(a.Type),
			Value:     json.RawMessage(a.Value),
		})
	}
	return out
}
