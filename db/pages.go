package db

import (
	"context"

	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/models"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreatePage appends an empty page to the survey.
func (s *Store) CreatePage(ctx context.Context, surveyID int) (*survey.Page, error) {
	var page survey.Page
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Survey{}).Where("id = ?", surveyID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("Survey not found")
		}
		id, err := createPage(tx, surveyID)
		if err != nil {
			return err
		}
		page = survey.NewPage(id)
		return nil
	})
	if err != nil {
		return nil, translateError("db.create_page", err)
	}
	return &page, nil
}

// createPage inserts an empty page after the survey's last page.
func createPage(tx *gorm.DB, surveyID int) (int, error) {
	var next int
	err := tx.Model(&models.SurveyPage{}).
		Select("COALESCE(MAX(idx) + 1, 0)").
		Where("survey_id = ?", surveyID).
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	row := models.SurveyPage{
		SurveyID:            surveyID,
		Idx:                 next,
		Title:               datatypes.JSON(`{}`),
		SidebarType:         string(survey.SidebarNone),
		SidebarImageAltText: datatypes.JSON(`{}`),
	}
	if err := tx.Create(&row).Error; err != nil {
		return 0, err
	}
	if row.ID == 0 {
		return 0, apperr.Internal("db.create_page", nil)
	}
	return row.ID, nil
}

// PageSurveyID returns the id of the survey the page belongs to.
func (s *Store) PageSurveyID(ctx context.Context, pageID int) (int, error) {
	var page models.SurveyPage
	err := s.DB.WithContext(ctx).Select("survey_id").First(&page, pageID).Error
	if err != nil {
		return 0, translateError("db.page_survey_id", err)
	}
	return page.SurveyID, nil
}

// DeletePage deletes a page with its sections and renumbers the remaining
// pages of the survey so idx stays contiguous.
func (s *Store) DeletePage(ctx context.Context, pageID int) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var page models.SurveyPage
		if err := tx.Select("id", "survey_id").First(&page, pageID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.SurveyPage{}, pageID).Error; err != nil {
			return err
		}
		return tx.Exec(`
			UPDATE survey_pages p SET idx = o.pos - 1
			FROM (
				SELECT id, row_number() OVER (ORDER BY idx) AS pos
				FROM survey_pages WHERE survey_id = ?
			) o
			WHERE p.id = o.id`, page.SurveyID).Error
	})
	return translateError("db.delete_page", err)
}
