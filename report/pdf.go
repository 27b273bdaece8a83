package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/nikhilsahni7/SurveyMap/survey"
)

const (
	fontFamily   = "Helvetica"
	lineHeight   = 6.0
	answerIndent = 6.0
)

var pdfLabels = map[string]struct {
	submitted  string
	noAnswer   string
	pageFooter string
}{
	"fi": {"Vastattu", "Ei vastausta", "Sivu %d/{nb}"},
	"en": {"Submitted", "No answer", "Page %d/{nb}"},
	"se": {"Besvarad", "Inget svar", "Sida %d/{nb}"},
}

// SubmissionPDF renders one submission as a PDF: each question of the pages
// the respondent saw, followed by the answer. Answers to sections that no
// longer exist are left out.
func SubmissionPDF(s survey.Survey, sub survey.Submission, lang string) ([]byte, error) {
	labels, ok := pdfLabels[lang]
	if !ok {
		labels = pdfLabels[survey.DefaultLanguage]
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(s.Title.Get(lang), true)
	pdf.SetAuthor(s.Author, true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf(labels.pageFooter, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 16)
	pdf.MultiCell(0, 8, tr(s.Title.Get(lang)), "", "L", false)
	if subtitle := s.Subtitle.Get(lang); subtitle != "" {
		pdf.SetFont(fontFamily, "", 12)
		pdf.MultiCell(0, lineHeight, tr(subtitle), "", "L", false)
	}
	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(0, lineHeight, tr(labels.submitted+": "+sub.CreatedAt.Format("02.01.2006 15:04")), "", "L", false)
	pdf.Ln(4)

	answers := make(map[int]survey.AnswerEntry, len(sub.Answers))
	for _, a := range sub.Answers {
		answers[a.SectionID] = a
	}
	writeSection := func(sec survey.Section) *survey.AnswerEntry {
		var ap *survey.AnswerEntry
		if a, ok := answers[sec.ID]; ok {
			ap = &a
		}
		if !survey.IsQuestion(sec.Type) {
			return ap
		}
		pdf.SetFont(fontFamily, "B", 11)
		pdf.MultiCell(0, lineHeight, tr(sec.Title.Get(lang)), "", "L", false)
		pdf.SetFont(fontFamily, "", 10)

		var lines []string
		if ap != nil {
			lines = survey.FormatAnswer(sec, *ap, lang)
		}
		if len(lines) == 0 {
			lines = []string{labels.noAnswer}
		}
		left, _, _, _ := pdf.GetMargins()
		for _, line := range lines {
			pdf.SetX(left + answerIndent)
			pdf.MultiCell(0, lineHeight, tr(strings.TrimSpace(line)), "", "L", false)
		}
		pdf.Ln(2)
		return ap
	}

	for _, p := range s.Pages {
		if !survey.IsPageVisible(p, sub.Answers) {
			continue
		}
		if title := p.Title.Get(lang); title != "" {
			pdf.SetFont(fontFamily, "B", 13)
			pdf.MultiCell(0, 8, tr(title), "", "L", false)
			pdf.Ln(1)
		}
		for _, sec := range p.Sections {
			answer := writeSection(sec)
			shown := survey.FollowUpSectionsToDisplay(sec, answer)
			for _, f := range sec.FollowUpSections {
				for _, id := range shown {
					if id == f.ID {
						writeSection(f.Section)
					}
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
