// Package report renders submissions as CSV, GeoJSON and PDF.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nikhilsahni7/SurveyMap/survey"
)

// Columns lists the sections that get a column of their own in exports: every
// question on the survey's pages and their follow-ups. Map subquestions are
// answered per feature and are exported with the map answer.
func Columns(s survey.Survey) []survey.Section {
	var out []survey.Section
	for _, p := range s.Pages {
		for _, sec := range p.Sections {
			if survey.IsQuestion(sec.Type) {
				out = append(out, sec)
			}
			for _, f := range sec.FollowUpSections {
				if survey.IsQuestion(f.Type) {
					out = append(out, f.Section)
				}
			}
		}
	}
	return out
}

// WriteCSV writes one row per submission. Answers to sections that no longer
// exist are left out.
func WriteCSV(w io.Writer, s survey.Survey, submissions []survey.Submission, lang string) error {
	columns := Columns(s)
	csvWriter := csv.NewWriter(w)

	header := []string{"ResponseID", "Timestamp", "Language"}
	for _, sec := range columns {
		header = append(header, sec.Title.Get(lang))
	}
	if err := csvWriter.Write(header); err != nil {
		return err
	}

	for _, sub := range submissions {
		row := []string{strconv.Itoa(sub.ID), sub.CreatedAt.Format(time.RFC3339), sub.Language}
		answerMap := make(map[int]survey.AnswerEntry, len(sub.Answers))
		for _, a := range sub.Answers {
			answerMap[a.SectionID] = a
		}
		for _, sec := range columns {
			a, ok := answerMap[sec.ID]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strings.Join(survey.FormatAnswer(sec, a, lang), "; "))
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
