package survey

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSection(t *testing.T) {
	for _, typ := range SectionTypes {
		t.Run(string(typ), func(t *testing.T) {
			sec := NewSection(typ, -1)
			require.NotNil(t, sec.Details)
			assert.Equal(t, typ, sec.Details.sectionType())
			assert.Equal(t, -1, sec.ID)
		})
	}

	assert.Panics(t, func() { NewSection("unknown", 1) })
}

func TestSectionJSONRoundTrip(t *testing.T) {
	for _, typ := range SectionTypes {
		t.Run(string(typ), func(t *testing.T) {
			in := NewSection(typ, 7)
			in.Title = LocalizedText{"fi": "Otsikko", "en": "Title"}
			in.IsRequired = true

			data, err := json.Marshal(in)
			require.NoError(t, err)

			var out Section
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Equal(t, in.ID, out.ID)
			assert.Equal(t, in.Type, out.Type)
			assert.Equal(t, in.Title, out.Title)
			assert.True(t, out.IsRequired)
			assert.Equal(t, in.Details.sectionType(), out.Details.sectionType())
		})
	}
}

func TestSectionUnmarshalUnknownType(t *testing.T) {
	var s Section
	err := json.Unmarshal([]byte(`{"id":1,"type":"hologram","title":{}}`), &s)
	assert.Error(t, err)
}

func TestSectionAccessors(t *testing.T) {
	t.Run("Options", func(t *testing.T) {
		sec := NewSection(TypeCheckbox, 1)
		assert.True(t, sec.AcceptsOptions())
		sec.SetOptions([]Option{{ID: 1, Text: Text("A")}, {ID: 2, Text: Text("B")}})
		assert.Len(t, sec.Options(), 2)

		text, ok := sec.OptionText(2, "en")
		assert.True(t, ok)
		assert.Equal(t, "B", text)

		_, ok = sec.OptionText(3, "en")
		assert.False(t, ok)
	})

	t.Run("Groups", func(t *testing.T) {
		sec := NewSection(TypeGroupedCheckbox, 1)
		assert.False(t, sec.AcceptsOptions())
		sec.SetGroups([]OptionGroup{{ID: 5, Name: Text("G"), Options: []Option{{ID: 9, Text: Text("Nine")}}}})
		assert.Nil(t, sec.Options())

		text, ok := sec.OptionText(9, "fi")
		assert.True(t, ok)
		assert.Equal(t, "Nine", text)
	})

	t.Run("SetOptionsOnTextIsNoop", func(t *testing.T) {
		sec := NewSection(TypeText, 1)
		sec.SetOptions([]Option{{ID: 1}})
		assert.Nil(t, sec.Options())
		assert.IsType(t, TextDetails{}, sec.Details)
	})

	t.Run("StorageDetails", func(t *testing.T) {
		sec := NewSection(TypeMap, 1)
		sec.SetSubQuestions([]Section{NewSection(TypeRadio, 2)})
		stored := sec.StorageDetails().(MapDetails)
		assert.Nil(t, stored.SubQuestions)
		assert.Len(t, sec.SubQuestions(), 1)

		radio := NewSection(TypeRadio, 3)
		assert.Nil(t, radio.StorageDetails().(RadioDetails).Options)
		assert.Len(t, radio.Options(), 1)
	})

	t.Run("AnswerLimits", func(t *testing.T) {
		lo, hi := 1, 2
		sec := NewSection(TypeCheckbox, 1)
		d := sec.Details.(CheckboxDetails)
		d.AnswerLimits = &AnswerLimits{Min: &lo, Max: &hi}
		sec.Details = d
		assert.Equal(t, 2, *sec.AnswerLimitsOf().Max)
		assert.Nil(t, NewSection(TypeRadio, 2).AnswerLimitsOf())
	})
}

func TestIsSubQuestionType(t *testing.T) {
	assert.True(t, IsSubQuestionType(TypeRadio))
	assert.True(t, IsSubQuestionType(TypeNumeric))
	assert.False(t, IsSubQuestionType(TypeMap))
	assert.False(t, IsQuestion(TypeText))
	assert.True(t, IsQuestion(TypeAttachment))
}
