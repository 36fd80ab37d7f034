package visa

import "strings"

// Type describes one visa offering of a country.
type Type struct {
	RequiredDocuments []string
	OptionalDocuments []string
	SuccessRate       int    // historical approval percentage
	ProcessingTime    string // human-readable estimate
}

// Country groups the visa types available for one destination.
type Country struct {
	Visas map[string]Type
}

// Catalog is the static country/visa configuration the validator and the
// scoring engine consult. "Test" is a lenient fixture country used by
// integration flows: documents are accepted by count rather than by name.
var Catalog = map[string]Country{
	"United States": {
		Visas: map[string]Type{
			"B1/B2 Tourism": {
				RequiredDocuments: []string{"Passport", "Bank Statement", "Travel Itinerary"},
				OptionalDocuments: []string{"Employment Letter", "Property Deed"},
				SuccessRate:       78,
				ProcessingTime:    "3-5 weeks",
			},
			"F1 Student": {
				RequiredDocuments: []string{"Passport", "I-20 Form", "Financial Proof", "Admission Letter"},
				OptionalDocuments: []string{"SEVIS Receipt", "Academic Transcripts"},
				SuccessRate:       85,
				ProcessingTime:    "4-8 weeks",
			},
			"H1B Work": {
				RequiredDocuments: []string{"Passport", "Employment Contract", "Degree Certificate", "LCA Approval"},
				OptionalDocuments: []string{"Experience Letters", "Pay Stubs"},
				SuccessRate:       72,
				ProcessingTime:    "3-6 months",
			},
		},
	},
	"Canada": {
		Visas: map[string]Type{
			"Visitor Visa": {
				RequiredDocuments: []string{"Passport", "Bank Statement", "Travel Itinerary"},
				OptionalDocuments: []string{"Invitation Letter", "Employment Letter"},
				SuccessRate:       81,
				ProcessingTime:    "2-4 weeks",
			},
			"Study Permit": {
				RequiredDocuments: []string{"Passport", "Acceptance Letter", "Financial Proof"},
				OptionalDocuments: []string{"Language Test Results", "Study Plan"},
				SuccessRate:       88,
				ProcessingTime:    "4-8 weeks",
			},
			"Express Entry": {
				RequiredDocuments: []string{"Passport", "Language Test Results", "Education Assessment", "Proof of Funds"},
				OptionalDocuments: []string{"Job Offer", "Provincial Nomination"},
				SuccessRate:       76,
				ProcessingTime:    "6 months",
			},
		},
	},
	"Germany": {
		Visas: map[string]Type{
			"Schengen Tourist Visa": {
				RequiredDocuments: []string{"Passport", "Travel Insurance", "Bank Statement"},
				OptionalDocuments: []string{"Hotel Booking", "Flight Reservation"},
				SuccessRate:       84,
				ProcessingTime:    "2-3 weeks",
			},
			"EU Blue Card": {
				RequiredDocuments: []string{"Passport", "Employment Contract", "Degree Certificate"},
				OptionalDocuments: []string{"German Language Certificate", "Reference Letters"},
				SuccessRate:       82,
				ProcessingTime:    "1-3 months",
			},
		},
	},
	"United Kingdom": {
		Visas: map[string]Type{
			"Visitor Visa": {
				RequiredDocuments: []string{"Passport", "Bank Statement", "Accommodation Proof"},
				OptionalDocuments: []string{"Employment Letter", "Invitation Letter"},
				SuccessRate:       79,
				ProcessingTime:    "3 weeks",
			},
			"Student Visa": {
				RequiredDocuments: []string{"Passport", "CAS Letter", "Financial Proof", "TB Test Certificate"},
				OptionalDocuments: []string{"Academic Transcripts", "English Test Results"},
				SuccessRate:       86,
				ProcessingTime:    "3-6 weeks",
			},
		},
	},
	"Australia": {
		Visas: map[string]Type{
			"Visitor Visa": {
				RequiredDocuments: []string{"Passport", "Bank Statement"},
				OptionalDocuments: []string{"Travel Itinerary", "Employment Letter"},
				SuccessRate:       83,
				ProcessingTime:    "2-4 weeks",
			},
			"Permanent Migration": {
				RequiredDocuments: []string{"Passport", "Skills Assessment", "English Test Results", "Health Examination"},
				OptionalDocuments: []string{"State Nomination", "Partner Skills Proof"},
				SuccessRate:       68,
				ProcessingTime:    "8-12 months",
			},
		},
	},
	// Fixture country for end-to-end flows.
	"Test": {
		Visas: map[string]Type{
			"X": {
				RequiredDocuments: []string{"Passport", "Photo"},
				OptionalDocuments: []string{},
				SuccessRate:       100,
				ProcessingTime:    "1 day",
			},
		},
	},
}

// Lookup resolves a country/visa pair against the catalog.
func Lookup(country, visaType string) (Type, bool) {
	c, ok := Catalog[country]
	if !ok {
		return Type{}, false
	}
	v, ok := c.Visas[visaType]
	return v, ok
}

// IsTestCountry reports whether the lenient validation rules apply. The match
// is case-insensitive.
func IsTestCountry(country string) bool {
	return strings.EqualFold(country, "Test")
}
