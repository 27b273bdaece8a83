package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/log"
	"github.com/nikhilsahni7/SurveyMap/models"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdateSurvey saves the whole survey document in one transaction and returns
// the survey as read back from the database. New pages, sections, options and
// groups carry negative ids and get their real ids here.
func (s *Store) UpdateSurvey(ctx context.Context, in survey.Survey) (*survey.Survey, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateSurveyRow(tx, in); err != nil {
			return err
		}
		w, err := newSurveyWriter(tx, in.ID)
		if err != nil {
			return err
		}
		w.document = documentSectionIDs(in.Pages)
		pageIDs, err := w.upsertPages(in.Pages)
		if err != nil {
			return err
		}
		flat := flattenSections(in.Pages, pageIDs)
		if err := w.deleteRemovedSections(pageIDs, flat); err != nil {
			return err
		}
		for i, p := range in.Pages {
			for idx, sec := range p.Sections {
				id, err := w.upsertSection(sectionPlacement{pageID: pageIDs[i], idx: idx}, sec)
				if err != nil {
					return err
				}
				for fidx, f := range sec.FollowUpSections {
					conditions := f.Conditions
					place := sectionPlacement{pageID: pageIDs[i], idx: fidx, predecessor: &id, conditions: &conditions}
					if _, err := w.upsertSection(place, f.Section); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateError("db.update_survey", err)
	}

	log.WithFields(log.Fields{"survey": in.ID}).Debug("survey saved")
	return s.GetSurvey(ctx, in.ID)
}

func updateSurveyRow(tx *gorm.DB, in survey.Survey) error {
	row, err := surveyToRow(in)
	if err != nil {
		return err
	}
	res := tx.Model(&models.Survey{ID: in.ID}).
		Select("*").
		Omit("id", "created_at", "author_id", clause.Associations).
		Updates(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Survey not found")
	}
	return nil
}

func surveyToRow(in survey.Survey) (models.Survey, error) {
	row := models.Survey{
		ID:                  in.ID,
		Author:              in.Author,
		AuthorUnit:          in.AuthorUnit,
		AuthorID:            in.AuthorID,
		Admins:              toInt64Array(in.Admins),
		Editors:             toInt64Array(in.Editors),
		MapURL:              in.MapURL,
		EmailEnabled:        in.Email.Enabled,
		EmailAutoSendTo:     pq.StringArray(nonNil(in.Email.AutoSendTo)),
		StartDate:           in.StartDate,
		EndDate:             in.EndDate,
		LocalisationEnabled: in.LocalisationEnabled,
		EnabledLanguages:    pq.StringArray(nonNil(in.EnabledLanguages)),
		AllowTestSurvey:     in.AllowTestSurvey,
		SectionTitleColor:   in.SectionTitleColor,
	}
	if in.Name != "" {
		name := in.Name
		row.Name = &name
	}
	if in.Theme != nil && in.Theme.ID > 0 {
		id := in.Theme.ID
		row.ThemeID = &id
	}
	var err error
	for _, f := range []struct {
		v   any
		dst *datatypes.JSON
	}{
		{in.Title, &row.Title},
		{in.Subtitle, &row.Subtitle},
		{in.ThanksPage, &row.ThanksPage},
		{in.Email.Subject, &row.EmailSubject},
		{in.Email.Body, &row.EmailBody},
	} {
		if *f.dst, err = toJSON(f.v); err != nil {
			return row, err
		}
	}
	return row, nil
}

// sectionPlacement says where a section row lives: its page, position among
// its siblings and, for follow-ups and subquestions, the owning section.
type sectionPlacement struct {
	pageID      int
	idx         int
	parent      *int
	predecessor *int
	conditions  *survey.Conditions
}

// flatSection is a top-level or follow-up section tagged with its page.
type flatSection struct {
	pageID  int
	section survey.Section
}

// flattenSections lists the top-level sections of every page followed by their
// follow-ups. pageIDs holds the persisted id of each page.
func flattenSections(pages []survey.Page, pageIDs []int) []flatSection {
	var out []flatSection
	for i, p := range pages {
		for _, sec := range p.Sections {
			out = append(out, flatSection{pageID: pageIDs[i], section: sec})
			for _, f := range sec.FollowUpSections {
				out = append(out, flatSection{pageID: pageIDs[i], section: f.Section})
			}
		}
	}
	return out
}

// documentSectionIDs collects the persisted ids of every section in the
// document, subquestions included.
func documentSectionIDs(pages []survey.Page) map[int]bool {
	ids := map[int]bool{}
	var visit func(sec survey.Section)
	visit = func(sec survey.Section) {
		if sec.ID > 0 {
			ids[sec.ID] = true
		}
		for _, sub := range sec.SubQuestions() {
			visit(sub)
		}
		for _, f := range sec.FollowUpSections {
			visit(f.Section)
		}
	}
	for _, p := range pages {
		for _, sec := range p.Sections {
			visit(sec)
		}
	}
	return ids
}

// surveyWriter holds the ids that already belong to the survey. A positive id
// in the document must be one of them.
type surveyWriter struct {
	tx       *gorm.DB
	surveyID int
	pages    map[int]bool
	sections map[int]bool
	// document holds the section ids the saved survey keeps.
	document map[int]bool
}

func newSurveyWriter(tx *gorm.DB, surveyID int) (*surveyWriter, error) {
	var pageIDs, sectionIDs []int
	if err := tx.Model(&models.SurveyPage{}).Where("survey_id = ?", surveyID).Pluck("id", &pageIDs).Error; err != nil {
		return nil, err
	}
	err := tx.Model(&models.PageSection{}).
		Joins("JOIN survey_pages ON survey_pages.id = page_sections.survey_page_id").
		Where("survey_pages.survey_id = ?", surveyID).
		Pluck("page_sections.id", &sectionIDs).Error
	if err != nil {
		return nil, err
	}
	return &surveyWriter{
		tx:       tx,
		surveyID: surveyID,
		pages:    idSet(pageIDs),
		sections: idSet(sectionIDs),
	}, nil
}

// upsertPages writes every page with idx set to its position and returns the
// persisted page ids in document order. Pages are removed only through
// DeletePage, so the document must list every page the survey has.
func (w *surveyWriter) upsertPages(pages []survey.Page) ([]int, error) {
	listed := map[int]bool{}
	for _, p := range pages {
		listed[p.ID] = true
	}
	for id := range w.pages {
		if !listed[id] {
			return nil, apperr.BadRequest(fmt.Sprintf("Page %d is missing from survey %d.", id, w.surveyID))
		}
	}
	rows := make([]models.SurveyPage, 0, len(pages))
	for i, p := range pages {
		if p.ID > 0 && !w.pages[p.ID] {
			return nil, apperr.BadRequest(fmt.Sprintf("Page %d does not belong to survey %d.", p.ID, w.surveyID))
		}
		row := models.SurveyPage{
			ID:               persistedID(p.ID),
			SurveyID:         w.surveyID,
			Idx:              i,
			SidebarType:      string(p.Sidebar.Type),
			SidebarMapLayers: toInt64Array(p.Sidebar.MapLayers),
			SidebarImageURL:  p.Sidebar.ImageURL,
		}
		if len(p.DefaultMapView) > 0 {
			row.DefaultMapView = datatypes.JSON(p.DefaultMapView)
		}
		var err error
		if row.Title, err = toJSON(p.Title); err != nil {
			return nil, err
		}
		if row.SidebarImageAltText, err = toJSON(p.Sidebar.ImageAltText); err != nil {
			return nil, err
		}
		if len(p.Conditions) > 0 {
			if row.Conditions, err = toJSON(p.Conditions); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	if err := upsertByID(w.tx, rows); err != nil {
		return nil, err
	}
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// deleteRemovedSections deletes the top-level and follow-up sections of the
// given pages that the document no longer contains. It runs before any
// section is upserted.
func (w *surveyWriter) deleteRemovedSections(pageIDs []int, flat []flatSection) error {
	incoming := make([]int, 0, len(flat))
	for _, f := range flat {
		if f.section.ID > 0 && !w.sections[f.section.ID] {
			return apperr.BadRequest(fmt.Sprintf("Section %d does not belong to survey %d.", f.section.ID, w.surveyID))
		}
		incoming = append(incoming, f.section.ID)
	}
	if len(pageIDs) == 0 {
		return nil
	}
	var existing []int
	err := w.tx.Model(&models.PageSection{}).
		Where("survey_page_id IN ? AND parent_section IS NULL", pageIDs).
		Pluck("id", &existing).Error
	if err != nil {
		return err
	}
	return w.deleteSections(reconcile(existing, incoming))
}

// deleteSections deletes sections by id. Follow-ups and subquestions that the
// document keeps are detached first so the cascade does not take them along;
// they get their new owner when they are upserted.
func (w *surveyWriter) deleteSections(ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	kept := make([]int, 0, len(w.document))
	for id := range w.document {
		kept = append(kept, id)
	}
	if len(kept) > 0 {
		err := w.tx.Model(&models.PageSection{}).
			Where("id IN ? AND (parent_section IN ? OR predecessor_section IN ?)", kept, ids, ids).
			Updates(map[string]any{"parent_section": nil, "predecessor_section": nil}).Error
		if err != nil {
			return err
		}
	}
	return deleteByID(w.tx, &models.PageSection{}, ids)
}

// upsertSection writes one section row with its options, groups and
// subquestions, and returns the section's persisted id.
func (w *surveyWriter) upsertSection(place sectionPlacement, sec survey.Section) (int, error) {
	if sec.ID > 0 && !w.sections[sec.ID] {
		return 0, apperr.BadRequest(fmt.Sprintf("Section %d does not belong to survey %d.", sec.ID, w.surveyID))
	}
	row, err := sectionToRow(place, sec)
	if err != nil {
		return 0, err
	}
	rows := []models.PageSection{row}
	if err := upsertByID(w.tx, rows); err != nil {
		return 0, err
	}
	id := rows[0].ID

	if err := w.saveOptions(id, sec); err != nil {
		return 0, err
	}
	if err := w.saveSubQuestions(id, place.pageID, sec.SubQuestions()); err != nil {
		return 0, err
	}
	return id, nil
}

func sectionToRow(place sectionPlacement, sec survey.Section) (models.PageSection, error) {
	row := models.PageSection{
		ID:                 persistedID(sec.ID),
		SurveyPageID:       place.pageID,
		Idx:                place.idx,
		Type:               string(sec.Type),
		ShowInfo:           sec.ShowInfo,
		IsRequired:         sec.IsRequired,
		ParentSection:      place.parent,
		PredecessorSection: place.predecessor,
	}
	var err error
	if row.Title, err = toJSON(sec.Title); err != nil {
		return row, err
	}
	if row.Info, err = toJSON(sec.Info); err != nil {
		return row, err
	}
	if row.Details, err = toJSON(sec.StorageDetails()); err != nil {
		return row, err
	}
	if place.conditions != nil {
		if row.Conditions, err = toJSON(place.conditions); err != nil {
			return row, err
		}
	}
	return row, nil
}

// saveOptions reconciles the section's option and group rows. All removed
// options are deleted before anything is written, so an option that moved
// to another group is stored as a new row.
func (w *surveyWriter) saveOptions(sectionID int, sec survey.Section) error {
	var existing []models.SectionOption
	if err := w.tx.Select("id", "group_id").Where("section_id = ?", sectionID).Find(&existing).Error; err != nil {
		return err
	}
	var existingGroups []int
	if err := w.tx.Model(&models.OptionGroup{}).Where("section_id = ?", sectionID).Pluck("id", &existingGroups).Error; err != nil {
		return err
	}
	groupOf := make(map[int]int, len(existing))
	existingIDs := make([]int, 0, len(existing))
	for _, o := range existing {
		existingIDs = append(existingIDs, o.ID)
		if o.GroupID != nil {
			groupOf[o.ID] = *o.GroupID
		}
	}
	ownedGroups := idSet(existingGroups)

	type placedOption struct {
		option survey.Option
		group  int
		idx    int
	}
	var incoming []placedOption
	for i, o := range sec.Options() {
		incoming = append(incoming, placedOption{option: o, idx: i})
	}
	groups := sec.Groups()
	for _, g := range groups {
		if g.ID > 0 && !ownedGroups[g.ID] {
			return apperr.BadRequest(fmt.Sprintf("Option group %d does not belong to section %d.", g.ID, sectionID))
		}
		for i, o := range g.Options {
			incoming = append(incoming, placedOption{option: o, group: g.ID, idx: i})
		}
	}

	owned := idSet(existingIDs)
	var keep []int
	for i, p := range incoming {
		id := p.option.ID
		if id <= 0 {
			continue
		}
		if !owned[id] {
			return apperr.BadRequest(fmt.Sprintf("Option %d does not belong to section %d.", id, sectionID))
		}
		if groupOf[id] != p.group {
			// Moved to another group: the old row goes.
			incoming[i].option.ID = -1
			continue
		}
		keep = append(keep, id)
	}
	if err := deleteByID(w.tx, &models.SectionOption{}, reconcile(existingIDs, keep)); err != nil {
		return err
	}
	groupIDs := make([]int, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}
	if err := deleteByID(w.tx, &models.OptionGroup{}, reconcile(existingGroups, groupIDs)); err != nil {
		return err
	}

	groupRows := make([]models.OptionGroup, 0, len(groups))
	for i, g := range groups {
		name, err := toJSON(g.Name)
		if err != nil {
			return err
		}
		groupRows = append(groupRows, models.OptionGroup{ID: persistedID(g.ID), SectionID: sectionID, Idx: i, Name: name})
	}
	if err := upsertByID(w.tx, groupRows); err != nil {
		return err
	}
	realGroup := make(map[int]int, len(groups))
	for i, g := range groups {
		realGroup[g.ID] = groupRows[i].ID
	}

	optionRows := make([]models.SectionOption, 0, len(incoming))
	for _, p := range incoming {
		row := models.SectionOption{
			ID:         persistedID(p.option.ID),
			SectionID:  sectionID,
			Idx:        p.idx,
			Categories: pq.StringArray(nonNil(p.option.Categories)),
		}
		if p.group != 0 {
			gid := realGroup[p.group]
			row.GroupID = &gid
		}
		var err error
		if row.Text, err = toJSON(p.option.Text); err != nil {
			return err
		}
		if len(p.option.Info) > 0 {
			if row.Info, err = toJSON(p.option.Info); err != nil {
				return err
			}
		}
		optionRows = append(optionRows, row)
	}
	return upsertByID(w.tx, optionRows)
}

// saveSubQuestions reconciles the subquestions of a map section. A
// subquestion is only deleted when it is gone from the whole document, so one
// that moved to another map section keeps its row.
func (w *surveyWriter) saveSubQuestions(parentID, pageID int, subs []survey.Section) error {
	var existing []int
	if err := w.tx.Model(&models.PageSection{}).Where("parent_section = ?", parentID).Pluck("id", &existing).Error; err != nil {
		return err
	}
	var removed []int
	for _, id := range existing {
		if !w.document[id] {
			removed = append(removed, id)
		}
	}
	if err := w.deleteSections(removed); err != nil {
		return err
	}
	for i, sub := range subs {
		parent := parentID
		if _, err := w.upsertSection(sectionPlacement{pageID: pageID, idx: i, parent: &parent}, sub); err != nil {
			return err
		}
	}
	return nil
}

func toJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func toInt64Array[T ~int | ~uint](ids []T) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
