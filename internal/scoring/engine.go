package scoring

import (
	"fmt"
	"math"
	"strings"

	"visascope/internal/submission"
	"visascope/internal/visa"
)

// Result is the outcome of scoring one submission. Identical inputs always
// produce an identical Result.
type Result struct {
	Score          int      `json:"score"`
	Summary        string   `json:"summary"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	Recommendation string   `json:"recommendation"`
}

// Engine scores submissions against the visa catalog. It performs no I/O.
type Engine struct{}

// NewEngine returns the deterministic scoring engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate computes the eligibility score and narrative for a form.
// Weighting: required documents 0-40, optional documents 0-25, visa type
// weight, profile heuristics 0-15; the total is capped at 85.
func (e *Engine) Evaluate(form submission.Form) Result {
	selected, ok := visa.Lookup(form.Country, form.VisaType)
	if !ok {
		if _, countryKnown := visa.Catalog[form.Country]; !countryKnown {
			return errorResult("Country not found")
		}
		return errorResult("Visa type not found")
	}

	uploadedRequired := form.RequiredDocs()
	uploadedOptional := form.OptionalDocs()

	var score float64

	requiredDocScore := 40.0
	if n := len(selected.RequiredDocuments); n > 0 {
		requiredDocScore = float64(len(uploadedRequired)) / float64(n) * 40
	}
	score += requiredDocScore

	optionalDocScore := 0.0
	if n := len(selected.OptionalDocuments); n > 0 {
		optionalDocScore = math.Min(float64(len(uploadedOptional))/float64(n)*25, 25)
	}
	score += optionalDocScore

	visaScore := visaTypeWeight(form.VisaType)
	score += visaScore

	score += profileScore(form)

	score = math.Min(score, 85)

	summary, strengths, improvements, recommendation := narrative(
		form, selected, score, visaScore,
		len(selected.RequiredDocuments), len(uploadedRequired),
		len(selected.OptionalDocuments), len(uploadedOptional),
	)

	return Result{
		Score:          int(math.Round(score)),
		Summary:        summary,
		Strengths:      strengths,
		Improvements:   improvements,
		Recommendation: recommendation,
	}
}

func profileScore(form submission.Form) float64 {
	score := 5.0
	if strings.Contains(form.Email, "@") {
		score += 5
	}
	if len(strings.Fields(form.Name)) >= 2 {
		score += 3
	}
	if len(form.Name) >= 5 {
		score += 2
	}
	return math.Min(score, 15)
}

func narrative(
	form submission.Form,
	selected visa.Type,
	score, visaScore float64,
	requiredTotal, requiredUploaded, optionalTotal, optionalUploaded int,
) (summary string, strengths, improvements []string, recommendation string) {
	strengths = []string{}
	improvements = []string{}

	docCompletionPercent := 100
	if requiredTotal > 0 {
		docCompletionPercent = int(math.Round(float64(requiredUploaded) / float64(requiredTotal) * 100))
	}
	switch {
	case docCompletionPercent >= 80:
		strengths = append(strengths, fmt.Sprintf("%d%% of required documents submitted - strong foundation", docCompletionPercent))
	case docCompletionPercent >= 50:
		strengths = append(strengths, fmt.Sprintf("%d%% of required documents submitted", docCompletionPercent))
		improvements = append(improvements, fmt.Sprintf("Missing %d required documents - prioritize submission", requiredTotal-requiredUploaded))
	default:
		improvements = append(improvements, fmt.Sprintf("Only %d%% of required documents submitted - critical to complete", docCompletionPercent))
	}

	switch {
	case visaScore >= 14:
		strengths = append(strengths, "Selected visa type with high approval rates and favorable terms")
	case visaScore >= 12:
		strengths = append(strengths, "Moderate visa category with reasonable processing timeline")
	default:
		improvements = append(improvements, "This visa category has strict requirements - consider alternative options")
	}

	switch {
	case optionalTotal > 0 && float64(optionalUploaded) > float64(optionalTotal)*0.5:
		strengths = append(strengths, fmt.Sprintf("%d additional documents strengthen your application significantly", optionalUploaded))
	case optionalUploaded > 0:
		strengths = append(strengths, "Additional documents submitted to strengthen your case")
	case optionalTotal > 0:
		improvements = append(improvements, fmt.Sprintf("Consider uploading %d optional documents to improve chances", optionalTotal))
	}

	switch {
	case selected.SuccessRate >= 85:
		strengths = append(strengths, fmt.Sprintf("Excellent success rate (%d%%) for this visa type", selected.SuccessRate))
	case selected.SuccessRate >= 75:
		strengths = append(strengths, fmt.Sprintf("Good success rate (%d%%) for this visa type", selected.SuccessRate))
	default:
		improvements = append(improvements, fmt.Sprintf("Success rate for this visa is %d%% - ensure all documents are perfect", selected.SuccessRate))
	}

	improvements = append(improvements, fmt.Sprintf("Expected processing time: %s", selected.ProcessingTime))

	switch {
	case score >= 80:
		recommendation = "Excellent fit - Ready to apply with confidence. Your application is well-prepared."
	case score >= 70:
		recommendation = "Good fit - Recommended to apply with current documents. Minor improvements possible."
	case score >= 50:
		recommendation = "Moderate fit - Gather additional documents before applying to improve chances significantly."
	default:
		recommendation = "Below threshold - Critical to complete all required documents and consider alternative visa options."
	}

	summary = fmt.Sprintf(
		"Your %s visa eligibility score is %d/100. You have completed %d%% of required documentation (%d/%d). Processing time typically takes %s, with a historical success rate of %d%%.",
		form.VisaType,
		int(math.Round(score)),
		docCompletionPercent,
		requiredUploaded,
		requiredTotal,
		selected.ProcessingTime,
		selected.SuccessRate,
	)

	return summary, strengths, improvements, recommendation
}

// visaTypeWeight reflects how approachable a visa category historically is.
func visaTypeWeight(visaType string) float64 {
	weights := map[string]float64{
		"Tourist Visa":                      18,
		"Schengen Tourist Visa":             18,
		"Visitor Visa":                      18,
		"B1/B2 Tourism":                     18,
		"Student Visa":                      19,
		"F1 Student":                        19,
		"Study Permit":                      19,
		"Work Permit":                       15,
		"Employment Visa":                   16,
		"Work Visa":                         15,
		"H1B Work":                          14,
		"Express Entry":                     12,
		"EU Blue Card":                      14,
		"ICT Permit":                        14,
		"Knowledge Migrant Permit":          15,
		"Highly Skilled Migrant":            15,
		"Critical Skills Employment Permit": 16,
		"Talent Passport":                   13,
		"Salarié en Mission":                14,
		"Investor Visa":                     10,
		"Golden Visa (3 years)":             12,
		"Settlement":                        10,
		"Indefinite Leave to Remain":        10,
		"Migration":                         8,
		"Permanent Migration":               8,
		"Digital Nomad Visa":                17,
		"General Employment Permit":         15,
		"Family Visa":                       17,
		"Family/Dependent Visa":             17,
	}
	if w, ok := weights[visaType]; ok {
		return w
	}
	return 15
}

func errorResult(message string) Result {
	return Result{
		Score:          0,
		Summary:        message,
		Strengths:      []string{},
		Improvements:   []string{"Unable to complete evaluation due to invalid selection"},
		Recommendation: "Please review your selections and try again",
	}
}
