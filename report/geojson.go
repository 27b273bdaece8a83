package report

import (
	"strings"

	"github.com/nikhilsahni7/SurveyMap/log"
	"github.com/nikhilsahni7/SurveyMap/survey"
	"github.com/paulmach/orb/geojson"
)

// MapAnswersGeoJSON collects every feature drawn in map and geo-budgeting
// answers. Each feature carries the submission and section ids, and the
// answers to the map's subquestions keyed by subquestion title.
func MapAnswersGeoJSON(s survey.Survey, submissions []survey.Submission, lang string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	index := survey.NewSectionIndex(s)

	for _, sub := range submissions {
		for _, m := range index.Match(sub.Answers) {
			switch d := m.Section.Details.(type) {
			case survey.MapDetails:
				features, err := m.Entry.MapFeatures()
				if err != nil {
					continue
				}
				for _, f := range features {
					feature := parseFeature(f.Geometry)
					if feature == nil {
						continue
					}
					setCommon(feature, sub, m.Section, lang)
					feature.Properties["selectionType"] = string(f.SelectionType)
					for _, q := range d.SubQuestions {
						for _, a := range f.SubQuestionAnswers {
							if a.SectionID == q.ID {
								feature.Properties[q.Title.Get(lang)] = strings.Join(survey.FormatAnswer(q, a, lang), ", ")
							}
						}
					}
					fc.Append(feature)
				}
			case survey.GeoBudgetingDetails:
				items, err := m.Entry.GeoBudget()
				if err != nil {
					continue
				}
				for _, item := range items {
					if item.TargetIndex < 0 || item.TargetIndex >= len(d.Targets) {
						continue
					}
					feature := parseFeature(item.Point)
					if feature == nil {
						continue
					}
					setCommon(feature, sub, m.Section, lang)
					feature.Properties["target"] = d.Targets[item.TargetIndex].Name.Get(lang)
					feature.Properties["price"] = d.Targets[item.TargetIndex].Price
					fc.Append(feature)
				}
			}
		}
	}
	return fc
}

func parseFeature(raw []byte) *geojson.Feature {
	if len(raw) == 0 {
		return nil
	}
	f, err := geojson.UnmarshalFeature(raw)
	if err != nil || f.Geometry == nil {
		log.Debugf("skipping invalid feature: %v", err)
		return nil
	}
	return geojson.NewFeature(f.Geometry)
}

func setCommon(f *geojson.Feature, sub survey.Submission, sec survey.Section, lang string) {
	f.Properties["submissionId"] = sub.ID
	f.Properties["timestamp"] = sub.CreatedAt
	f.Properties["sectionId"] = sec.ID
	f.Properties["section"] = sec.Title.Get(lang)
}
