package survey

import "fmt"

// NewSection returns a section of type t with the editor defaults for that
// variant. Unknown types are programming errors and panic.
func NewSection(t SectionType, id int) Section {
	s := Section{
		ID:    id,
		Type:  t,
		Title: LocalizedText{},
	}
	switch t {
	case TypeRadio:
		s.Details = RadioDetails{Options: []Option{emptyOption()}}
	case TypeCheckbox:
		s.Details = CheckboxDetails{Options: []Option{emptyOption()}}
	case TypeGroupedCheckbox:
		s.Details = GroupedCheckboxDetails{Groups: []OptionGroup{}}
	case TypeCategorizedCheckbox:
		s.Details = CategorizedCheckboxDetails{Options: []Option{emptyOption()}, CategoryGroups: []CategoryGroup{}}
	case TypeMatrix:
		s.Details = MatrixDetails{Classes: []LocalizedText{}, Subjects: []LocalizedText{}}
	case TypeMultiMatrix:
		s.Details = MultiMatrixDetails{Classes: []LocalizedText{}, Subjects: []LocalizedText{}}
	case TypeSlider:
		s.Details = SliderDetails{MinValue: 1, MaxValue: 7, PresentationType: "numeric"}
	case TypeSorting:
		s.Details = SortingDetails{Options: []Option{emptyOption()}}
	case TypeNumeric:
		s.Details = NumericDetails{}
	case TypeFreeText:
		s.Details = FreeTextDetails{}
	case TypeMap:
		s.Details = MapDetails{SelectionTypes: []MapSelectionType{}, SubQuestions: []Section{}}
	case TypeBudgeting:
		s.Details = BudgetingDetails{BudgetingMode: "direct", Targets: []BudgetingTarget{}, InputMode: "slider"}
	case TypeGeoBudgeting:
		s.Details = GeoBudgetingDetails{Targets: []BudgetingTarget{}}
	case TypePersonalInfo:
		s.Details = PersonalInfoDetails{AskName: true, AskEmail: true}
	case TypeText:
		s.Details = TextDetails{Body: LocalizedText{}}
	case TypeImage:
		s.Details = ImageDetails{}
	case TypeDocument:
		s.Details = DocumentDetails{}
	case TypeAttachment:
		s.Details = AttachmentDetails{}
	default:
		panic(fmt.Sprintf("survey: unknown section type %q", t))
	}
	return s
}

func emptyOption() Option {
	return Option{ID: -1, Text: LocalizedText{}}
}
