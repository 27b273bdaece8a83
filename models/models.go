package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string  `gorm:"uniqueIndex"`
	Name         string
	GoogleID     *string `gorm:"uniqueIndex"`
	Picture      string
	PasswordHash string `json:"-"`
}

type Theme struct {
	ID         int `gorm:"primaryKey"`
	Name       string
	Definition datatypes.JSON
}

// Survey is the survey row. Pages and their sections live in their own tables
// and are assembled by the db package.
type Survey struct {
	ID                  int     `gorm:"primaryKey"`
	Name                *string `gorm:"uniqueIndex"`
	Title               datatypes.JSON
	Subtitle            datatypes.JSON
	Author              string
	AuthorUnit          string
	AuthorID            uint
	Admins              pq.Int64Array `gorm:"type:integer[]"`
	Editors             pq.Int64Array `gorm:"type:integer[]"`
	MapURL              string
	ThemeID             *int
	Theme               *Theme `gorm:"constraint:OnDelete:SET NULL"`
	ThanksPage          datatypes.JSON
	EmailEnabled        bool
	EmailAutoSendTo     pq.StringArray `gorm:"type:text[]"`
	EmailSubject        datatypes.JSON
	EmailBody           datatypes.JSON
	StartDate           *time.Time
	EndDate             *time.Time
	LocalisationEnabled bool
	EnabledLanguages    pq.StringArray `gorm:"type:text[]"`
	AllowTestSurvey     bool
	SectionTitleColor   string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Pages               []SurveyPage `gorm:"constraint:OnDelete:CASCADE"`
	Submissions         []Submission `gorm:"constraint:OnDelete:CASCADE"`
}

type SurveyPage struct {
	ID                  int `gorm:"primaryKey"`
	SurveyID            int `gorm:"index;not null"`
	Idx                 int
	Title               datatypes.JSON
	SidebarType         string
	SidebarMapLayers    pq.Int64Array `gorm:"type:integer[]"`
	SidebarImageURL     string
	SidebarImageAltText datatypes.JSON
	DefaultMapView      datatypes.JSON
	Conditions          datatypes.JSON
	Sections            []PageSection `gorm:"foreignKey:SurveyPageID;constraint:OnDelete:CASCADE"`
}

// PageSection stores top-level sections, follow-up sections (PredecessorSection
// set) and map subquestions (ParentSection set).
type PageSection struct {
	ID                 int `gorm:"primaryKey"`
	SurveyPageID       int `gorm:"index;not null"`
	Idx                int
	Type               string
	Title              datatypes.JSON
	Info               datatypes.JSON
	ShowInfo           bool
	IsRequired         bool
	Details            datatypes.JSON
	ParentSection      *int `gorm:"index"`
	PredecessorSection *int `gorm:"index"`
	Conditions         datatypes.JSON
	SubQuestions       []PageSection   `gorm:"foreignKey:ParentSection;constraint:OnDelete:CASCADE"`
	FollowUps          []PageSection   `gorm:"foreignKey:PredecessorSection;constraint:OnDelete:CASCADE"`
	Options            []SectionOption `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
	OptionGroups       []OptionGroup   `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE"`
}

type SectionOption struct {
	ID         int `gorm:"primaryKey"`
	SectionID  int `gorm:"index;not null"`
	Idx        int
	Text       datatypes.JSON
	Info       datatypes.JSON
	GroupID    *int           `gorm:"index"`
	Categories pq.StringArray `gorm:"type:text[]"`
}

type OptionGroup struct {
	ID        int `gorm:"primaryKey"`
	SectionID int `gorm:"index;not null"`
	Idx       int
	Name      datatypes.JSON
	Options   []SectionOption `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

type Submission struct {
	ID              int `gorm:"primaryKey"`
	SurveyID        int `gorm:"index;not null"`
	Unfinished      bool
	UnfinishedToken *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Language        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Answers         []AnswerEntry `gorm:"constraint:OnDelete:CASCADE"`
}

// AnswerEntry keeps the answer value as JSON; its shape depends on Type.
// SectionID is not a foreign key so that answers outlive deleted sections.
type AnswerEntry struct {
	ID           int `gorm:"primaryKey"`
	SubmissionID int `gorm:"index;not null"`
	SectionID    int `gorm:"index"`
	Idx          int
	Type         string
	Value        datatypes.JSON
}
