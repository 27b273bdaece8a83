package survey

import (
	"encoding/json"
	"fmt"
)

type SectionType string

const (
	TypeRadio               SectionType = "radio"
	TypeCheckbox            SectionType = "checkbox"
	TypeGroupedCheckbox     SectionType = "grouped-checkbox"
	TypeCategorizedCheckbox SectionType = "categorized-checkbox"
	TypeMatrix              SectionType = "matrix"
	TypeMultiMatrix         SectionType = "multi-matrix"
	TypeSlider              SectionType = "slider"
	TypeSorting             SectionType = "sorting"
	TypeNumeric             SectionType = "numeric"
	TypeFreeText            SectionType = "free-text"
	TypeMap                 SectionType = "map"
	TypeBudgeting           SectionType = "budgeting"
	TypeGeoBudgeting        SectionType = "geo-budgeting"
	TypePersonalInfo        SectionType = "personal-info"
	TypeText                SectionType = "text"
	TypeImage               SectionType = "image"
	TypeDocument            SectionType = "document"
	TypeAttachment          SectionType = "attachment"
)

// SectionTypes lists every section variant. Tests walk this list to make sure
// each consumer handles all of them.
var SectionTypes = []SectionType{
	TypeRadio, TypeCheckbox, TypeGroupedCheckbox, TypeCategorizedCheckbox,
	TypeMatrix, TypeMultiMatrix, TypeSlider, TypeSorting, TypeNumeric,
	TypeFreeText, TypeMap, TypeBudgeting, TypeGeoBudgeting, TypePersonalInfo,
	TypeText, TypeImage, TypeDocument, TypeAttachment,
}

// IsSubQuestionType reports whether t may be used as a map subquestion.
func IsSubQuestionType(t SectionType) bool {
	switch t {
	case TypeRadio, TypeCheckbox, TypeFreeText, TypeNumeric:
		return true
	}
	return false
}

// IsQuestion reports whether sections of type t collect an answer.
func IsQuestion(t SectionType) bool {
	switch t {
	case TypeText, TypeImage, TypeDocument:
		return false
	}
	return true
}

type Option struct {
	ID   int           `json:"id"`
	Text LocalizedText `json:"text"`
	Info LocalizedText `json:"info,omitempty"`
	// Categories holds category ids for categorized-checkbox options.
	Categories []string `json:"categories,omitempty"`
}

type OptionGroup struct {
	ID      int           `json:"id"`
	Name    LocalizedText `json:"name"`
	Options []Option      `json:"options"`
}

type AnswerLimits struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

type Category struct {
	ID   string        `json:"id"`
	Name LocalizedText `json:"name"`
}

type CategoryGroup struct {
	ID         string        `json:"id"`
	Name       LocalizedText `json:"name"`
	Categories []Category    `json:"categories"`
}

type MapSelectionType string

const (
	SelectPoint MapSelectionType = "point"
	SelectLine  MapSelectionType = "line"
	SelectArea  MapSelectionType = "area"
)

type FeatureStyle struct {
	StrokeColor string `json:"strokeColor,omitempty"`
	StrokeStyle string `json:"strokeStyle,omitempty"`
	FillColor   string `json:"fillColor,omitempty"`
	MarkerIcon  string `json:"markerIcon,omitempty"`
}

type BudgetingTarget struct {
	Name  LocalizedText `json:"name"`
	Price float64       `json:"price"`
	Icon  string        `json:"icon,omitempty"`
}

// SectionDetails is the variant-specific part of a Section. The set of
// implementations is closed: one struct per SectionType.
type SectionDetails interface {
	sectionType() SectionType
}

type RadioDetails struct {
	Options           []Option `json:"options"`
	AllowCustomAnswer bool     `json:"allowCustomAnswer"`
}

type CheckboxDetails struct {
	Options           []Option      `json:"options"`
	AnswerLimits      *AnswerLimits `json:"answerLimits"`
	AllowCustomAnswer bool          `json:"allowCustomAnswer"`
}

type GroupedCheckboxDetails struct {
	Groups       []OptionGroup `json:"groups"`
	AnswerLimits *AnswerLimits `json:"answerLimits"`
}

type CategorizedCheckboxDetails struct {
	Options        []Option        `json:"options"`
	AnswerLimits   *AnswerLimits   `json:"answerLimits"`
	CategoryGroups []CategoryGroup `json:"categoryGroups"`
}

type MatrixDetails struct {
	Classes          []LocalizedText `json:"classes"`
	Subjects         []LocalizedText `json:"subjects"`
	AllowEmptyAnswer bool            `json:"allowEmptyAnswer"`
}

type MultiMatrixDetails struct {
	Classes          []LocalizedText `json:"classes"`
	Subjects         []LocalizedText `json:"subjects"`
	AnswerLimits     *AnswerLimits   `json:"answerLimits"`
	AllowEmptyAnswer bool            `json:"allowEmptyAnswer"`
}

type SliderDetails struct {
	MinValue         int           `json:"minValue"`
	MaxValue         int           `json:"maxValue"`
	MinLabel         LocalizedText `json:"minLabel,omitempty"`
	MaxLabel         LocalizedText `json:"maxLabel,omitempty"`
	PresentationType string        `json:"presentationType"`
}

type SortingDetails struct {
	Options []Option `json:"options"`
}

type NumericDetails struct {
	MinValue     *float64 `json:"minValue"`
	MaxValue     *float64 `json:"maxValue"`
	DecimalPoint bool     `json:"decimalPoint"`
}

type FreeTextDetails struct {
	MaxLength *int `json:"maxLength"`
}

type MapDetails struct {
	SelectionTypes []MapSelectionType                `json:"selectionTypes"`
	FeatureStyles  map[MapSelectionType]FeatureStyle `json:"featureStyles,omitempty"`
	SubQuestions   []Section                         `json:"subQuestions"`
}

type BudgetingDetails struct {
	BudgetingMode        string            `json:"budgetingMode"`
	Targets              []BudgetingTarget `json:"targets"`
	TotalBudget          float64           `json:"totalBudget"`
	Unit                 string            `json:"unit"`
	AllowPartialSpending bool              `json:"allowPartialSpending"`
	InputMode            string            `json:"inputMode,omitempty"`
}

type GeoBudgetingDetails struct {
	Targets              []BudgetingTarget `json:"targets"`
	TotalBudget          float64           `json:"totalBudget"`
	Unit                 string            `json:"unit"`
	AllowPartialSpending bool              `json:"allowPartialSpending"`
}

type PersonalInfoDetails struct {
	AskName     bool          `json:"askName"`
	AskEmail    bool          `json:"askEmail"`
	AskPhone    bool          `json:"askPhone"`
	AskAddress  bool          `json:"askAddress"`
	AskCustom   bool          `json:"askCustom"`
	CustomLabel LocalizedText `json:"customLabel,omitempty"`
}

type TextDetails struct {
	Body      LocalizedText `json:"body"`
	BodyColor string        `json:"bodyColor,omitempty"`
}

type ImageDetails struct {
	FileURL string        `json:"fileUrl"`
	AltText LocalizedText `json:"altText,omitempty"`
}

type DocumentDetails struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName,omitempty"`
}

type AttachmentDetails struct {
	AllowedFileTypes []string `json:"allowedFileTypes,omitempty"`
}

func (RadioDetails) sectionType() SectionType               { return TypeRadio }
func (CheckboxDetails) sectionType() SectionType            { return TypeCheckbox }
func (GroupedCheckboxDetails) sectionType() SectionType     { return TypeGroupedCheckbox }
func (CategorizedCheckboxDetails) sectionType() SectionType { return TypeCategorizedCheckbox }
func (MatrixDetails) sectionType() SectionType              { return TypeMatrix }
func (MultiMatrixDetails) sectionType() SectionType         { return TypeMultiMatrix }
func (SliderDetails) sectionType() SectionType              { return TypeSlider }
func (SortingDetails) sectionType() SectionType             { return TypeSorting }
func (NumericDetails) sectionType() SectionType             { return TypeNumeric }
func (FreeTextDetails) sectionType() SectionType            { return TypeFreeText }
func (MapDetails) sectionType() SectionType                 { return TypeMap }
func (BudgetingDetails) sectionType() SectionType           { return TypeBudgeting }
func (GeoBudgetingDetails) sectionType() SectionType        { return TypeGeoBudgeting }
func (PersonalInfoDetails) sectionType() SectionType        { return TypePersonalInfo }
func (TextDetails) sectionType() SectionType                { return TypeText }
func (ImageDetails) sectionType() SectionType               { return TypeImage }
func (DocumentDetails) sectionType() SectionType            { return TypeDocument }
func (AttachmentDetails) sectionType() SectionType          { return TypeAttachment }

// Section is one question or content block on a page. Negative ids are
// temporary and replaced by the database on save.
type Section struct {
	ID               int
	Type             SectionType
	Title            LocalizedText
	Info             LocalizedText
	ShowInfo         bool
	IsRequired       bool
	Details          SectionDetails
	FollowUpSections []FollowUpSection
}

// FollowUpSection is shown under its parent section when Conditions match the
// parent's answer.
type FollowUpSection struct {
	Section
	Conditions Conditions
}

type sectionCommon struct {
	ID               int               `json:"id"`
	Type             SectionType       `json:"type"`
	Title            LocalizedText     `json:"title"`
	Info             LocalizedText     `json:"info,omitempty"`
	ShowInfo         bool              `json:"showInfo,omitempty"`
	IsRequired       bool              `json:"isRequired,omitempty"`
	FollowUpSections []FollowUpSection `json:"followUpSections,omitempty"`
}

func (s Section) MarshalJSON() ([]byte, error) {
	common, err := json.Marshal(sectionCommon{
		ID:               s.ID,
		Type:             s.Type,
		Title:            s.Title,
		Info:             s.Info,
		ShowInfo:         s.ShowInfo,
		IsRequired:       s.IsRequired,
		FollowUpSections: s.FollowUpSections,
	})
	if err != nil || s.Details == nil {
		return common, err
	}
	details, err := json.Marshal(s.Details)
	if err != nil {
		return nil, err
	}
	return mergeObjects(common, details)
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var c sectionCommon
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	details, err := DecodeDetails(c.Type, data)
	if err != nil {
		return err
	}
	*s = Section{
		ID:               c.ID,
		Type:             c.Type,
		Title:            c.Title,
		Info:             c.Info,
		ShowInfo:         c.ShowInfo,
		IsRequired:       c.IsRequired,
		Details:          details,
		FollowUpSections: c.FollowUpSections,
	}
	return nil
}

func (f FollowUpSection) MarshalJSON() ([]byte, error) {
	section, err := json.Marshal(f.Section)
	if err != nil {
		return nil, err
	}
	conditions, err := json.Marshal(struct {
		Conditions Conditions `json:"conditions"`
	}{f.Conditions})
	if err != nil {
		return nil, err
	}
	return mergeObjects(section, conditions)
}

func (f *FollowUpSection) UnmarshalJSON(data []byte) error {
	var c struct {
		Conditions Conditions `json:"conditions"`
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &f.Section); err != nil {
		return err
	}
	f.Conditions = c.Conditions
	return nil
}

// DecodeDetails decodes the variant fields of a section of type t from a JSON
// object. Fields that do not belong to the variant are ignored.
func DecodeDetails(t SectionType, data []byte) (SectionDetails, error) {
	switch t {
	case TypeRadio:
		return decodeAs[RadioDetails](data)
	case TypeCheckbox:
		return decodeAs[CheckboxDetails](data)
	case TypeGroupedCheckbox:
		return decodeAs[GroupedCheckboxDetails](data)
	case TypeCategorizedCheckbox:
		return decodeAs[CategorizedCheckboxDetails](data)
	case TypeMatrix:
		return decodeAs[MatrixDetails](data)
	case TypeMultiMatrix:
		return decodeAs[MultiMatrixDetails](data)
	case TypeSlider:
		return decodeAs[SliderDetails](data)
	case TypeSorting:
		return decodeAs[SortingDetails](data)
	case TypeNumeric:
		return decodeAs[NumericDetails](data)
	case TypeFreeText:
		return decodeAs[FreeTextDetails](data)
	case TypeMap:
		return decodeAs[MapDetails](data)
	case TypeBudgeting:
		return decodeAs[BudgetingDetails](data)
	case TypeGeoBudgeting:
		return decodeAs[GeoBudgetingDetails](data)
	case TypePersonalInfo:
		return decodeAs[PersonalInfoDetails](data)
	case TypeText:
		return decodeAs[TextDetails](data)
	case TypeImage:
		return decodeAs[ImageDetails](data)
	case TypeDocument:
		return decodeAs[DocumentDetails](data)
	case TypeAttachment:
		return decodeAs[AttachmentDetails](data)
	}
	return nil, fmt.Errorf("unknown section type %q", t)
}

func decodeAs[T SectionDetails](data []byte) (SectionDetails, error) {
	var d T
	if len(data) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func mergeObjects(a, b []byte) ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(a, &m); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(b, &extra); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// Options returns the section's own options. Grouped sections keep their
// options inside Groups and return nil here.
func (s Section) Options() []Option {
	switch d := s.Details.(type) {
	case RadioDetails:
		return d.Options
	case CheckboxDetails:
		return d.Options
	case CategorizedCheckboxDetails:
		return d.Options
	case SortingDetails:
		return d.Options
	}
	return nil
}

// AcceptsOptions reports whether option rows are stored directly under the section.
func (s Section) AcceptsOptions() bool {
	switch s.Details.(type) {
	case RadioDetails, CheckboxDetails, CategorizedCheckboxDetails, SortingDetails:
		return true
	}
	return false
}

// SetOptions replaces the section's options. It is a no-op for variants
// without options.
func (s *Section) SetOptions(opts []Option) {
	switch d := s.Details.(type) {
	case RadioDetails:
		d.Options = opts
		s.Details = d
	case CheckboxDetails:
		d.Options = opts
		s.Details = d
	case CategorizedCheckboxDetails:
		d.Options = opts
		s.Details = d
	case SortingDetails:
		d.Options = opts
		s.Details = d
	}
}

func (s Section) Groups() []OptionGroup {
	if d, ok := s.Details.(GroupedCheckboxDetails); ok {
		return d.Groups
	}
	return nil
}

func (s *Section) SetGroups(groups []OptionGroup) {
	if d, ok := s.Details.(GroupedCheckboxDetails); ok {
		d.Groups = groups
		s.Details = d
	}
}

func (s Section) SubQuestions() []Section {
	if d, ok := s.Details.(MapDetails); ok {
		return d.SubQuestions
	}
	return nil
}

func (s *Section) SetSubQuestions(subs []Section) {
	if d, ok := s.Details.(MapDetails); ok {
		d.SubQuestions = subs
		s.Details = d
	}
}

// StorageDetails returns the variant fields without the parts that are stored
// as rows of their own (options, groups and subquestions).
func (s Section) StorageDetails() SectionDetails {
	c := s
	c.SetOptions(nil)
	c.SetGroups(nil)
	c.SetSubQuestions(nil)
	return c.Details
}

// AnswerLimitsOf returns the configured answer limits, if the variant has any.
func (s Section) AnswerLimitsOf() *AnswerLimits {
	switch d := s.Details.(type) {
	case CheckboxDetails:
		return d.AnswerLimits
	case GroupedCheckboxDetails:
		return d.AnswerLimits
	case CategorizedCheckboxDetails:
		return d.AnswerLimits
	case MultiMatrixDetails:
		return d.AnswerLimits
	}
	return nil
}

// OptionText resolves an option id to its label in lang, searching groups too.
func (s Section) OptionText(id int, lang string) (string, bool) {
	for _, o := range s.Options() {
		if o.ID == id {
			return o.Text.Get(lang), true
		}
	}
	for _, g := range s.Groups() {
		for _, o := range g.Options {
			if o.ID == id {
				return o.Text.Get(lang), true
			}
		}
	}
	return "", false
}
