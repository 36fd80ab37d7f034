package scoring

import (
	"reflect"
	"strings"
	"testing"

	"visascope/internal/submission"
)

func fullForm(country, visaType string, required, optional []string) submission.Form {
	form := submission.Form{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Country:  country,
		VisaType: visaType,
	}
	for _, name := range required {
		form.DocsMeta = append(form.DocsMeta, submission.DocumentMeta{Name: name, Type: "required"})
	}
	for _, name := range optional {
		form.DocsMeta = append(form.DocsMeta, submission.DocumentMeta{Name: name, Type: "optional"})
	}
	return form
}

func TestEvaluateFixtureCountry(t *testing.T) {
	e := NewEngine()

	result := e.Evaluate(fullForm("Test", "X", []string{"Passport", "Photo"}, nil))

	// required 40 + optional 0 + default visa weight 15 + full profile 15.
	if result.Score != 70 {
		t.Fatalf("score = %d, want 70", result.Score)
	}
	if !strings.HasPrefix(result.Recommendation, "Good fit") {
		t.Fatalf("recommendation = %q", result.Recommendation)
	}
	if !strings.Contains(result.Summary, "70/100") {
		t.Fatalf("summary does not carry the score: %q", result.Summary)
	}
}

func TestEvaluateCapsAtEightyFive(t *testing.T) {
	e := NewEngine()

	form := fullForm("Canada", "Study Permit",
		[]string{"Passport", "Acceptance Letter", "Financial Proof"},
		[]string{"Language Test Results", "Study Plan"},
	)
	result := e.Evaluate(form)

	if result.Score != 85 {
		t.Fatalf("score = %d, want the 85 cap", result.Score)
	}
	if !strings.HasPrefix(result.Recommendation, "Excellent fit") {
		t.Fatalf("recommendation = %q", result.Recommendation)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := NewEngine()
	form := fullForm("United States", "F1 Student", []string{"Passport", "I-20 Form"}, []string{"SEVIS Receipt"})

	first := e.Evaluate(form)
	second := e.Evaluate(form)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs diverged:\n%+v\n%+v", first, second)
	}
}

func TestEvaluateMissingRequiredLowersScore(t *testing.T) {
	e := NewEngine()

	complete := e.Evaluate(fullForm("United States", "B1/B2 Tourism",
		[]string{"Passport", "Bank Statement", "Travel Itinerary"}, nil))
	partial := e.Evaluate(fullForm("United States", "B1/B2 Tourism",
		[]string{"Passport"}, nil))

	if partial.Score >= complete.Score {
		t.Fatalf("partial submission scored %d, complete %d", partial.Score, complete.Score)
	}
	if len(partial.Improvements) == 0 {
		t.Fatal("partial submission should list improvements")
	}
}

func TestVisaTypeWeights(t *testing.T) {
	cases := map[string]float64{
		"Student Visa":       19,
		"Investor Visa":      10,
		"Salarié en Mission": 14,
		"Unlisted Visa":      15, // default
	}
	for visaType, want := range cases {
		if got := visaTypeWeight(visaType); got != want {
			t.Fatalf("visaTypeWeight(%q) = %v, want %v", visaType, got, want)
		}
	}
}

func TestEvaluateUnknownSelections(t *testing.T) {
	e := NewEngine()

	unknownCountry := e.Evaluate(fullForm("Atlantis", "Tourist Visa", nil, nil))
	if unknownCountry.Score != 0 || unknownCountry.Summary != "Country not found" {
		t.Fatalf("unknown country result = %+v", unknownCountry)
	}

	unknownVisa := e.Evaluate(fullForm("Canada", "Moon Visa", nil, nil))
	if unknownVisa.Score != 0 || unknownVisa.Summary != "Visa type not found" {
		t.Fatalf("unknown visa result = %+v", unknownVisa)
	}
}
