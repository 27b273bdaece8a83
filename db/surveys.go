package db

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/models"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SurveySummary is the survey list entry shown to admins.
type SurveySummary struct {
	ID          int                  `json:"id"`
	Name        string               `json:"name"`
	Title       survey.LocalizedText `json:"title"`
	Author      string               `json:"author"`
	AuthorID    uint                 `json:"authorId"`
	StartDate   *time.Time           `json:"startDate"`
	EndDate     *time.Time           `json:"endDate"`
	IsPublished bool                 `json:"isPublished"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// CreateSurvey inserts an empty survey owned by authorID with one empty page.
func (s *Store) CreateSurvey(ctx context.Context, authorID uint, author string) (*survey.Survey, error) {
	var id int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Survey{
			Title:            datatypes.JSON(`{}`),
			Subtitle:         datatypes.JSON(`{}`),
			Author:           author,
			AuthorID:         authorID,
			Admins:           pq.Int64Array{},
			Editors:          pq.Int64Array{},
			EmailAutoSendTo:  pq.StringArray{},
			EnabledLanguages: pq.StringArray{survey.DefaultLanguage},
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if row.ID == 0 {
			return apperr.Internal("db.create_survey", nil)
		}
		id = row.ID
		_, err := createPage(tx, row.ID)
		return err
	})
	if err != nil {
		return nil, translateError("db.create_survey", err)
	}
	return s.GetSurvey(ctx, id)
}

// ListSurveys returns the surveys the user authored or was granted access to.
func (s *Store) ListSurveys(ctx context.Context, userID uint) ([]SurveySummary, error) {
	var rows []models.Survey
	err := s.DB.WithContext(ctx).
		Select("id", "name", "title", "author", "author_id", "start_date", "end_date", "updated_at").
		Where("author_id = ? OR ? = ANY(admins) OR ? = ANY(editors)", userID, userID, userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError("db.list_surveys", err)
	}

	now := s.Now()
	out := make([]SurveySummary, 0, len(rows))
	for _, r := range rows {
		sum := SurveySummary{
			ID:          r.ID,
			Author:      r.Author,
			AuthorID:    r.AuthorID,
			StartDate:   r.StartDate,
			EndDate:     r.EndDate,
			IsPublished: survey.IsPublished(r.StartDate, r.EndDate, now),
			UpdatedAt:   r.UpdatedAt,
		}
		if r.Name != nil {
			sum.Name = *r.Name
		}
		if err := decodeJSON(r.Title, &sum.Title); err != nil {
			return nil, apperr.Internal("db.list_surveys.decode", err)
		}
		out = append(out, sum)
	}
	return out, nil
}

// DeleteSurvey deletes the survey with its pages, sections and submissions.
func (s *Store) DeleteSurvey(ctx context.Context, id int) error {
	res := s.DB.WithContext(ctx).Delete(&models.Survey{}, id)
	if res.Error != nil {
		return translateError("db.delete_survey", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Survey not found")
	}
	return nil
}
