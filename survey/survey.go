// Package survey holds the survey document model: pages, sections and their
// variants, visibility conditions and answer validation.
package survey

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nikhilsahni7/SurveyMap/apperr"
)

type SidebarType string

const (
	SidebarNone  SidebarType = "none"
	SidebarMap   SidebarType = "map"
	SidebarImage SidebarType = "image"
)

type Sidebar struct {
	Type         SidebarType   `json:"type"`
	MapLayers    []int         `json:"mapLayers"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	ImageAltText LocalizedText `json:"imageAltText,omitempty"`
}

type Page struct {
	ID       int           `json:"id"`
	Title    LocalizedText `json:"title"`
	Sections []Section     `json:"sections"`
	Sidebar  Sidebar       `json:"sidebar"`
	// DefaultMapView is a GeoJSON geometry the sidebar map is fitted to.
	DefaultMapView json.RawMessage `json:"defaultMapView,omitempty"`
	// Conditions is keyed by the id of the section whose answer controls
	// whether the page is shown.
	Conditions map[int]Conditions `json:"conditions,omitempty"`
}

// NewPage returns an empty page with the editor defaults.
func NewPage(id int) Page {
	return Page{
		ID:       id,
		Title:    LocalizedText{},
		Sections: []Section{},
		Sidebar:  Sidebar{Type: SidebarNone, MapLayers: []int{}},
	}
}

type Theme struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Definition json.RawMessage `json:"definition,omitempty"`
}

type ThanksPage struct {
	Title    LocalizedText `json:"title"`
	Text     LocalizedText `json:"text"`
	ImageURL string        `json:"imageUrl,omitempty"`
}

type EmailSettings struct {
	Enabled bool `json:"enabled"`
	// AutoSendTo receives a copy of every submission report.
	AutoSendTo []string      `json:"autoSendTo"`
	Subject    LocalizedText `json:"subject"`
	Body       LocalizedText `json:"body"`
}

type Survey struct {
	ID                  int           `json:"id"`
	Name                string        `json:"name"`
	Title               LocalizedText `json:"title"`
	Subtitle            LocalizedText `json:"subtitle"`
	Author              string        `json:"author"`
	AuthorUnit          string        `json:"authorUnit"`
	AuthorID            uint          `json:"authorId"`
	Admins              []uint        `json:"admins"`
	Editors             []uint        `json:"editors"`
	MapURL              string        `json:"mapUrl"`
	Pages               []Page        `json:"pages"`
	Theme               *Theme        `json:"theme"`
	ThanksPage          ThanksPage    `json:"thanksPage"`
	Email               EmailSettings `json:"email"`
	StartDate           *time.Time    `json:"startDate"`
	EndDate             *time.Time    `json:"endDate"`
	LocalisationEnabled bool          `json:"localisationEnabled"`
	EnabledLanguages    []string      `json:"enabledLanguages"`
	AllowTestSurvey     bool          `json:"allowTestSurvey"`
	SectionTitleColor   string        `json:"sectionTitleColor,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
	// IsPublished is derived from the dates whenever the survey is read.
	IsPublished bool `json:"isPublished"`
}

// IsPublished reports whether a survey with the given dates accepts answers at now.
func IsPublished(start, end *time.Time, now time.Time) bool {
	if start == nil || start.After(now) {
		return false
	}
	return end == nil || end.After(now)
}

func (s Survey) Published(now time.Time) bool {
	return IsPublished(s.StartDate, s.EndDate, now)
}

// CanEdit reports whether the user may edit the survey contents.
func (s Survey) CanEdit(userID uint) bool {
	return s.CanManage(userID) || containsUser(s.Editors, userID)
}

// CanManage reports whether the user may change access and delete the survey.
func (s Survey) CanManage(userID uint) bool {
	return s.AuthorID == userID || containsUser(s.Admins, userID)
}

func containsUser(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// FlatSections returns every section of the survey in document order: each
// top-level section followed by its subquestions and follow-ups.
func (s Survey) FlatSections() []Section {
	var out []Section
	for _, p := range s.Pages {
		for _, sec := range p.Sections {
			out = appendFlat(out, sec)
			for _, f := range sec.FollowUpSections {
				out = appendFlat(out, f.Section)
			}
		}
	}
	return out
}

func appendFlat(out []Section, sec Section) []Section {
	out = append(out, sec)
	return append(out, sec.SubQuestions()...)
}

// Validate checks the survey-wide rules that must hold before it is saved.
func (s Survey) Validate() error {
	personalInfo := 0
	for _, sec := range s.FlatSections() {
		if sec.Type == TypePersonalInfo {
			personalInfo++
		}
	}
	if personalInfo > 1 {
		return apperr.BadRequest("Section count limits not respected.")
	}

	for _, p := range s.Pages {
		for _, sec := range p.Sections {
			if err := validateSection(sec, false); err != nil {
				return err
			}
			for _, f := range sec.FollowUpSections {
				if len(f.FollowUpSections) > 0 {
					return apperr.BadRequest("Follow-up sections cannot have follow-up sections.")
				}
				if err := validateSection(f.Section, false); err != nil {
					return err
				}
			}
		}
	}
	if err := s.validateUniqueIDs(); err != nil {
		return err
	}
	return s.validatePageConditions()
}

// validateUniqueIDs rejects a document that reuses an id within a scope:
// pages, sections across the survey, and groups and options within a
// section.
func (s Survey) validateUniqueIDs() error {
	pages := map[int]bool{}
	for _, p := range s.Pages {
		if !addID(pages, p.ID) {
			return apperr.BadRequest(fmt.Sprintf("Duplicate page id %d.", p.ID))
		}
	}
	sections := map[int]bool{}
	for _, sec := range s.FlatSections() {
		if !addID(sections, sec.ID) {
			return apperr.BadRequest(fmt.Sprintf("Duplicate section id %d.", sec.ID))
		}
		groups, options := map[int]bool{}, map[int]bool{}
		for _, o := range sec.Options() {
			if !addID(options, o.ID) {
				return apperr.BadRequest(fmt.Sprintf("Duplicate option id %d in section %d.", o.ID, sec.ID))
			}
		}
		for _, g := range sec.Groups() {
			if !addID(groups, g.ID) {
				return apperr.BadRequest(fmt.Sprintf("Duplicate option group id %d in section %d.", g.ID, sec.ID))
			}
			for _, o := range g.Options {
				if !addID(options, o.ID) {
					return apperr.BadRequest(fmt.Sprintf("Duplicate option id %d in section %d.", o.ID, sec.ID))
				}
			}
		}
	}
	return nil
}

// addID records id in seen and reports false if it was already there. Zero
// ids are unassigned and never collide.
func addID(seen map[int]bool, id int) bool {
	if id == 0 {
		return true
	}
	if seen[id] {
		return false
	}
	seen[id] = true
	return true
}

func validateSection(sec Section, subQuestion bool) error {
	if sec.Details == nil || sec.Details.sectionType() != sec.Type {
		return apperr.BadRequest(fmt.Sprintf("Invalid details for section %d.", sec.ID))
	}
	if subQuestion && !IsSubQuestionType(sec.Type) {
		return apperr.BadRequest(fmt.Sprintf("Section type %s cannot be a subquestion.", sec.Type))
	}
	for _, sub := range sec.SubQuestions() {
		if len(sub.FollowUpSections) > 0 {
			return apperr.BadRequest("Subquestions cannot have follow-up sections.")
		}
		if err := validateSection(sub, true); err != nil {
			return err
		}
	}
	return nil
}

// Page conditions may only refer to sections on earlier, unconditional pages.
// References to sections that no longer exist are tolerated and evaluate to
// false.
func (s Survey) validatePageConditions() error {
	pageOf := map[int]int{}
	for i, p := range s.Pages {
		for _, sec := range p.Sections {
			pageOf[sec.ID] = i
		}
	}
	for i, p := range s.Pages {
		for sectionID := range p.Conditions {
			j, ok := pageOf[sectionID]
			if !ok {
				continue
			}
			if j >= i || len(s.Pages[j].Conditions) > 0 {
				return apperr.BadRequest("Invalid page conditions.")
			}
		}
	}
	return nil
}
