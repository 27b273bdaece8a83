package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/nikhilsahni7/SurveyMap/apperr"
	"github.com/nikhilsahni7/SurveyMap/models"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"gorm.io/gorm"
)

// The ORDER BY is what the fold relies on: top-level sections before
// follow-ups before subquestions, each group in page and section order.
const surveyQuery = `
	SELECT
		s.id, s.name, s.title, s.subtitle, s.author, s.author_unit, s.author_id,
		s.admins, s.editors, s.map_url, s.thanks_page,
		s.email_enabled, s.email_auto_send_to, s.email_subject, s.email_body,
		s.start_date, s.end_date, s.localisation_enabled, s.enabled_languages,
		s.allow_test_survey, s.section_title_color, s.created_at, s.updated_at,
		t.id, t.name, t.definition,
		p.id, p.idx, p.title, p.sidebar_type, p.sidebar_map_layers, p.sidebar_image_url,
		p.sidebar_image_alt_text, p.default_map_view, p.conditions,
		ps.id, ps.idx, ps.type, ps.title, ps.info, ps.show_info, ps.is_required,
		ps.details, ps.parent_section, ps.predecessor_section, ps.conditions,
		o.id, o.idx, o.text, o.info, o.group_id, o.categories
	FROM surveys s
	LEFT JOIN themes t ON t.id = s.theme_id
	LEFT JOIN survey_pages p ON p.survey_id = s.id
	LEFT JOIN page_sections ps ON ps.survey_page_id = p.id
	LEFT JOIN section_options o ON o.section_id = ps.id
	WHERE %s
	ORDER BY
		ps.parent_section ASC NULLS FIRST,
		ps.predecessor_section ASC NULLS FIRST,
		p.idx ASC,
		ps.idx ASC,
		o.idx ASC`

// surveyRow is one row of surveyQuery. Columns from the joined tables are
// nullable.
type surveyRow struct {
	SurveyID            int
	Name                sql.NullString
	Title               []byte
	Subtitle            []byte
	Author              string
	AuthorUnit          string
	AuthorID            int64
	Admins              pq.Int64Array
	Editors             pq.Int64Array
	MapURL              string
	ThanksPage          []byte
	EmailEnabled        bool
	EmailAutoSendTo     pq.StringArray
	EmailSubject        []byte
	EmailBody           []byte
	StartDate           sql.NullTime
	EndDate             sql.NullTime
	LocalisationEnabled bool
	EnabledLanguages    pq.StringArray
	AllowTestSurvey     bool
	SectionTitleColor   string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	ThemeID         sql.NullInt64
	ThemeName       sql.NullString
	ThemeDefinition []byte

	PageID              sql.NullInt64
	PageIdx             sql.NullInt64
	PageTitle           []byte
	SidebarType         sql.NullString
	SidebarMapLayers    pq.Int64Array
	SidebarImageURL     sql.NullString
	SidebarImageAltText []byte
	DefaultMapView      []byte
	PageConditions      []byte

	SectionID          sql.NullInt64
	SectionIdx         sql.NullInt64
	SectionType        sql.NullString
	SectionTitle       []byte
	SectionInfo        []byte
	ShowInfo           sql.NullBool
	IsRequired         sql.NullBool
	Details            []byte
	ParentSection      sql.NullInt64
	PredecessorSection sql.NullInt64
	SectionConditions  []byte

	OptionID         sql.NullInt64
	OptionIdx        sql.NullInt64
	OptionText       []byte
	OptionInfo       []byte
	OptionGroupID    sql.NullInt64
	OptionCategories pq.StringArray
}

func (r *surveyRow) dest() []any {
	return []any{
		&r.SurveyID, &r.Name, &r.Title, &r.Subtitle, &r.Author, &r.AuthorUnit, &r.AuthorID,
		&r.Admins, &r.Editors, &r.MapURL, &r.ThanksPage,
		&r.EmailEnabled, &r.EmailAutoSendTo, &r.EmailSubject, &r.EmailBody,
		&r.StartDate, &r.EndDate, &r.LocalisationEnabled, &r.EnabledLanguages,
		&r.AllowTestSurvey, &r.SectionTitleColor, &r.CreatedAt, &r.UpdatedAt,
		&r.ThemeID, &r.ThemeName, &r.ThemeDefinition,
		&r.PageID, &r.PageIdx, &r.PageTitle, &r.SidebarType, &r.SidebarMapLayers, &r.SidebarImageURL,
		&r.SidebarImageAltText, &r.DefaultMapView, &r.PageConditions,
		&r.SectionID, &r.SectionIdx, &r.SectionType, &r.SectionTitle, &r.SectionInfo, &r.ShowInfo, &r.IsRequired,
		&r.Details, &r.ParentSection, &r.PredecessorSection, &r.SectionConditions,
		&r.OptionID, &r.OptionIdx, &r.OptionText, &r.OptionInfo, &r.OptionGroupID, &r.OptionCategories,
	}
}

// GetSurvey reads and reconstructs the survey with the given id.
func (s *Store) GetSurvey(ctx context.Context, id int) (*survey.Survey, error) {
	return s.getSurvey(s.DB.WithContext(ctx), "s.id = ?", id)
}

// GetSurveyByName reads and reconstructs the survey with the given unique name.
func (s *Store) GetSurveyByName(ctx context.Context, name string) (*survey.Survey, error) {
	return s.getSurvey(s.DB.WithContext(ctx), "s.name = ?", name)
}

func (s *Store) getSurvey(tx *gorm.DB, where string, arg any) (*survey.Survey, error) {
	rows, err := tx.Raw(fmt.Sprintf(surveyQuery, where), arg).Rows()
	if err != nil {
		return nil, translateError("db.get_survey", err)
	}
	defer rows.Close()

	var result []surveyRow
	for rows.Next() {
		var r surveyRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, translateError("db.get_survey.scan", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("db.get_survey.rows", err)
	}
	if len(result) == 0 {
		return nil, apperr.NotFound("Survey not found")
	}

	var groups []models.OptionGroup
	err = tx.
		Where("section_id IN (?)", tx.Model(&models.PageSection{}).
			Select("page_sections.id").
			Joins("JOIN survey_pages ON survey_pages.id = page_sections.survey_page_id").
			Where("survey_pages.survey_id = ?", result[0].SurveyID)).
		Order("idx ASC").
		Find(&groups).Error
	if err != nil {
		return nil, translateError("db.get_survey.option_groups", err)
	}

	return reconstructSurvey(result, groups, s.Now())
}

// reconstructSurvey folds the joined rows into a survey. The rows are sorted
// first so that every parent section is materialized before its follow-ups
// and subquestions, whatever order the storage returned them in.
func reconstructSurvey(rows []surveyRow, groups []models.OptionGroup, now time.Time) (*survey.Survey, error) {
	if len(rows) == 0 {
		return nil, apperr.NotFound("Survey not found")
	}
	sortSurveyRows(rows)

	b, err := newSurveyBuilder(rows[0], groups)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := b.add(r); err != nil {
			return nil, err
		}
	}
	out := b.build()
	out.IsPublished = out.Published(now)
	return &out, nil
}

// sortSurveyRows orders rows like surveyQuery's ORDER BY.
func sortSurveyRows(rows []surveyRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := compareNullsFirst(a.ParentSection, b.ParentSection); c != 0 {
			return c < 0
		}
		if c := compareNullsFirst(a.PredecessorSection, b.PredecessorSection); c != 0 {
			return c < 0
		}
		if c := compareNullsFirst(a.PageIdx, b.PageIdx); c != 0 {
			return c < 0
		}
		if c := compareNullsFirst(a.SectionIdx, b.SectionIdx); c != 0 {
			return c < 0
		}
		return compareNullsFirst(a.OptionIdx, b.OptionIdx) < 0
	})
}

func compareNullsFirst(a, b sql.NullInt64) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	case a.Int64 < b.Int64:
		return -1
	case a.Int64 > b.Int64:
		return 1
	}
	return 0
}

type surveyBuilder struct {
	survey   survey.Survey
	pages    []*pageBuilder
	pageByID map[int]*pageBuilder
	sections map[int]*sectionBuilder
	groups   map[int][]models.OptionGroup
}

type pageBuilder struct {
	page     survey.Page
	sections []*sectionBuilder
}

type sectionBuilder struct {
	section    survey.Section
	conditions survey.Conditions
	options    []survey.Option
	optionIDs  map[int]bool
	groups     []survey.OptionGroup
	subs       []*sectionBuilder
	followUps  []*sectionBuilder
}

func newSurveyBuilder(r surveyRow, groups []models.OptionGroup) (*surveyBuilder, error) {
	s := survey.Survey{
		ID:                  r.SurveyID,
		Name:                r.Name.String,
		Author:              r.Author,
		AuthorUnit:          r.AuthorUnit,
		AuthorID:            uint(r.AuthorID),
		Admins:              toUserIDs(r.Admins),
		Editors:             toUserIDs(r.Editors),
		MapURL:              r.MapURL,
		Pages:               []survey.Page{},
		LocalisationEnabled: r.LocalisationEnabled,
		EnabledLanguages:    nonNilStrings(r.EnabledLanguages),
		AllowTestSurvey:     r.AllowTestSurvey,
		SectionTitleColor:   r.SectionTitleColor,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		Email: survey.EmailSettings{
			Enabled:    r.EmailEnabled,
			AutoSendTo: nonNilStrings(r.EmailAutoSendTo),
		},
	}
	if r.StartDate.Valid {
		t := r.StartDate.Time
		s.StartDate = &t
	}
	if r.EndDate.Valid {
		t := r.EndDate.Time
		s.EndDate = &t
	}
	if r.ThemeID.Valid {
		s.Theme = &survey.Theme{
			ID:         int(r.ThemeID.Int64),
			Name:       r.ThemeName.String,
			Definition: json.RawMessage(r.ThemeDefinition),
		}
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{r.Title, &s.Title},
		{r.Subtitle, &s.Subtitle},
		{r.ThanksPage, &s.ThanksPage},
		{r.EmailSubject, &s.Email.Subject},
		{r.EmailBody, &s.Email.Body},
	} {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			return nil, apperr.Internal("db.get_survey.decode_survey", err)
		}
	}

	b := &surveyBuilder{
		survey:   s,
		pageByID: map[int]*pageBuilder{},
		sections: map[int]*sectionBuilder{},
		groups:   map[int][]models.OptionGroup{},
	}
	for _, g := range groups {
		b.groups[g.SectionID] = append(b.groups[g.SectionID], g)
	}
	return b, nil
}

func (b *surveyBuilder) add(r surveyRow) error {
	if !r.PageID.Valid {
		return nil
	}
	page, ok := b.pageByID[int(r.PageID.Int64)]
	if !ok {
		p, err := pageFromRow(r)
		if err != nil {
			return err
		}
		page = &pageBuilder{page: p}
		b.pageByID[p.ID] = page
		b.pages = append(b.pages, page)
	}

	if !r.SectionID.Valid {
		return nil
	}
	sec, ok := b.sections[int(r.SectionID.Int64)]
	if !ok {
		var err error
		if sec, err = b.sectionFromRow(r); err != nil {
			return err
		}
		b.sections[sec.section.ID] = sec

		switch {
		case r.ParentSection.Valid:
			parent, ok := b.sections[int(r.ParentSection.Int64)]
			if !ok {
				return apperr.Internal("db.get_survey.fold", fmt.Errorf("subquestion %d precedes its parent %d", sec.section.ID, r.ParentSection.Int64))
			}
			parent.subs = append(parent.subs, sec)
		case r.PredecessorSection.Valid:
			pred, ok := b.sections[int(r.PredecessorSection.Int64)]
			if !ok {
				return apperr.Internal("db.get_survey.fold", fmt.Errorf("follow-up %d precedes its section %d", sec.section.ID, r.PredecessorSection.Int64))
			}
			pred.followUps = append(pred.followUps, sec)
		default:
			page.sections = append(page.sections, sec)
		}
	}

	if !r.OptionID.Valid || sec.optionIDs[int(r.OptionID.Int64)] {
		return nil
	}
	opt := survey.Option{
		ID:         int(r.OptionID.Int64),
		Categories: []string(r.OptionCategories),
	}
	if err := decodeJSON(r.OptionText, &opt.Text); err != nil {
		return apperr.Internal("db.get_survey.decode_option", err)
	}
	if err := decodeJSON(r.OptionInfo, &opt.Info); err != nil {
		return apperr.Internal("db.get_survey.decode_option", err)
	}
	sec.optionIDs[opt.ID] = true

	if !r.OptionGroupID.Valid {
		sec.options = append(sec.options, opt)
		return nil
	}
	for i := range sec.groups {
		if sec.groups[i].ID == int(r.OptionGroupID.Int64) {
			sec.groups[i].Options = append(sec.groups[i].Options, opt)
			return nil
		}
	}
	return apperr.Internal("db.get_survey.fold", fmt.Errorf("option %d refers to unknown group %d", opt.ID, r.OptionGroupID.Int64))
}

func pageFromRow(r surveyRow) (survey.Page, error) {
	p := survey.NewPage(int(r.PageID.Int64))
	p.Sidebar = survey.Sidebar{
		Type:      survey.SidebarType(r.SidebarType.String),
		MapLayers: toInts(r.SidebarMapLayers),
		ImageURL:  r.SidebarImageURL.String,
	}
	if p.Sidebar.Type == "" {
		p.Sidebar.Type = survey.SidebarNone
	}
	if len(r.DefaultMapView) > 0 {
		p.DefaultMapView = json.RawMessage(r.DefaultMapView)
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{r.PageTitle, &p.Title},
		{r.SidebarImageAltText, &p.Sidebar.ImageAltText},
		{r.PageConditions, &p.Conditions},
	} {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			return p, apperr.Internal("db.get_survey.decode_page", err)
		}
	}
	return p, nil
}

func (b *surveyBuilder) sectionFromRow(r surveyRow) (*sectionBuilder, error) {
	t := survey.SectionType(r.SectionType.String)
	details, err := survey.DecodeDetails(t, r.Details)
	if err != nil {
		return nil, apperr.Internal("db.get_survey.decode_section", err)
	}
	sec := &sectionBuilder{
		section: survey.Section{
			ID:         int(r.SectionID.Int64),
			Type:       t,
			ShowInfo:   r.ShowInfo.Bool,
			IsRequired: r.IsRequired.Bool,
			Details:    details,
		},
		optionIDs: map[int]bool{},
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{r.SectionTitle, &sec.section.Title},
		{r.SectionInfo, &sec.section.Info},
		{r.SectionConditions, &sec.conditions},
	} {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			return nil, apperr.Internal("db.get_survey.decode_section", err)
		}
	}
	if t == survey.TypeGroupedCheckbox {
		sec.groups = []survey.OptionGroup{}
		for _, g := range b.groups[sec.section.ID] {
			group := survey.OptionGroup{ID: g.ID, Options: []survey.Option{}}
			if err := decodeJSON(g.Name, &group.Name); err != nil {
				return nil, apperr.Internal("db.get_survey.decode_group", err)
			}
			sec.groups = append(sec.groups, group)
		}
	}
	return sec, nil
}

func (b *surveyBuilder) build() survey.Survey {
	s := b.survey
	for _, p := range b.pages {
		page := p.page
		for _, sec := range p.sections {
			page.Sections = append(page.Sections, sec.build())
		}
		s.Pages = append(s.Pages, page)
	}
	return s
}

func (b *sectionBuilder) build() survey.Section {
	s := b.section
	if s.AcceptsOptions() {
		opts := b.options
		if opts == nil {
			opts = []survey.Option{}
		}
		s.SetOptions(opts)
	}
	s.SetGroups(b.groups)
	if s.Type == survey.TypeMap {
		subs := []survey.Section{}
		for _, sub := range b.subs {
			subs = append(subs, sub.build())
		}
		s.SetSubQuestions(subs)
	}
	for _, f := range b.followUps {
		s.FollowUpSections = append(s.FollowUpSections, survey.FollowUpSection{
			Section:    f.build(),
			Conditions: f.conditions,
		})
	}
	return s
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func toUserIDs(a pq.Int64Array) []uint {
	out := make([]uint, 0, len(a))
	for _, v := range a {
		out = append(out, uint(v))
	}
	return out
}

func toInts(a pq.Int64Array) []int {
	out := make([]int, 0, len(a))
	for _, v := range a {
		out = append(out, int(v))
	}
	return out
}

func nonNilStrings(a pq.StringArray) []string {
	if a == nil {
		return []string{}
	}
	return []string(a)
}
