package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Data carries everything the report needs; the renderer performs no lookups.
type Data struct {
	EvaluationID   string
	Name           string
	Email          string
	Country        string
	VisaType       string
	Score          int
	Summary        string
	Strengths      []string
	Improvements   []string
	Recommendation string
}

// Generator renders evaluation reports to PDF bytes.
type Generator struct{}

// NewGenerator returns the PDF report renderer.
func NewGenerator() *Generator {
	return &Generator{}
}

type rgb struct{ r, g, b int }

// Score bands share their colors with the email template.
func scoreColor(score int) rgb {
	switch {
	case score >= 80:
		return rgb{33, 176, 77}
	case score >= 65:
		return rgb{51, 128, 230}
	case score >= 45:
		return rgb{245, 166, 35}
	default:
		return rgb{230, 43, 43}
	}
}

// Render draws the A4 evaluation report and returns its bytes.
func (g *Generator) Render(data Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 36

	// Header band.
	pdf.SetFillColor(33, 69, 135)
	pdf.Rect(0, 0, pageWidth, 42, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(18, 10)
	pdf.CellFormat(contentWidth, 10, "VISA EVALUATION REPORT", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetX(18)
	pdf.CellFormat(contentWidth, 7, fmt.Sprintf("%s - %s", data.Country, data.VisaType), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetX(18)
	pdf.CellFormat(contentWidth, 5, fmt.Sprintf("Evaluation ID: %s", data.EvaluationID), "", 1, "L", false, 0, "")

	pdf.SetY(50)

	// Applicant box.
	pdf.SetFillColor(242, 247, 255)
	pdf.SetDrawColor(178, 204, 242)
	pdf.Rect(18, pdf.GetY(), contentWidth, 22, "FD")
	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(22, pdf.GetY()+3)
	pdf.CellFormat(contentWidth-8, 5, "APPLICANT INFORMATION", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(22)
	pdf.CellFormat(contentWidth-8, 5, fmt.Sprintf("Name: %s", data.Name), "", 1, "L", false, 0, "")
	pdf.SetX(22)
	pdf.CellFormat(contentWidth-8, 5, fmt.Sprintf("Email: %s", data.Email), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	// Score card.
	col := scoreColor(data.Score)
	pdf.SetDrawColor(col.r, col.g, col.b)
	pdf.SetLineWidth(1.2)
	pdf.Rect(18, pdf.GetY(), contentWidth, 30, "D")
	pdf.SetLineWidth(0.2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(22, pdf.GetY()+4)
	pdf.CellFormat(contentWidth-8, 5, "ELIGIBILITY SCORE", "", 1, "L", false, 0, "")
	pdf.SetTextColor(col.r, col.g, col.b)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetX(22)
	pdf.CellFormat(contentWidth-8, 12, fmt.Sprintf("%d / 100", data.Score), "", 1, "L", false, 0, "")
	pdf.SetTextColor(51, 51, 51)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetX(22)
	pdf.MultiCell(contentWidth-8, 4.5, data.Recommendation, "", "L", false)
	pdf.Ln(8)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(33, 69, 135)
		pdf.CellFormat(contentWidth, 7, title, "", 1, "L", false, 0, "")
		pdf.SetTextColor(51, 51, 51)
		pdf.SetFont("Helvetica", "", 10)
	}

	section("Summary")
	pdf.MultiCell(contentWidth, 5, data.Summary, "", "L", false)
	pdf.Ln(4)

	section("Strengths")
	for _, s := range data.Strengths {
		pdf.SetX(22)
		pdf.MultiCell(contentWidth-4, 5, "+ "+s, "", "L", false)
	}
	if len(data.Strengths) == 0 {
		pdf.SetX(22)
		pdf.CellFormat(contentWidth-4, 5, "None identified", "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	section("Areas for Improvement")
	for _, s := range data.Improvements {
		pdf.SetX(22)
		pdf.MultiCell(contentWidth-4, 5, "- "+s, "", "L", false)
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.MultiCell(contentWidth, 4,
		"This is an automated evaluation. For legal advice, please consult with an immigration professional.",
		"", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}
