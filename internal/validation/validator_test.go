package validation

import (
	"context"
	"strings"
	"testing"

	"visascope/internal/submission"
)

func newTestValidator() *Validator {
	// Empty clamd address disables scanning; tests cover the document rules.
	return NewValidator("", 6, nil)
}

func docFiles(names ...string) []submission.File {
	files := make([]submission.File, 0, len(names))
	for _, name := range names {
		files = append(files, submission.File{Name: name, Size: 4, Content: []byte("body")})
	}
	return files
}

func TestValidateRejectsEmptyUpload(t *testing.T) {
	v := newTestValidator()

	verdict, err := v.Validate(context.Background(), submission.Form{Country: "Test", VisaType: "X"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.OK || len(verdict.Issues) != 1 || verdict.Issues[0].Reason != "No files uploaded" {
		t.Fatalf("verdict = %+v", verdict)
	}
}

func TestValidateRejectsTooManyFiles(t *testing.T) {
	v := NewValidator("", 2, nil)

	verdict, err := v.Validate(context.Background(),
		submission.Form{Country: "Test", VisaType: "X"},
		docFiles("a.pdf", "b.pdf", "c.pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.OK || !strings.Contains(verdict.Issues[0].Reason, "Too many files") {
		t.Fatalf("verdict = %+v", verdict)
	}
}

func TestValidateTestCountryByCount(t *testing.T) {
	v := newTestValidator()
	form := submission.Form{Country: "Test", VisaType: "X"}

	// The fixture country requires two documents; one is not enough.
	verdict, err := v.Validate(context.Background(), form, docFiles("whatever.bin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.OK {
		t.Fatalf("one of two required documents accepted: %+v", verdict)
	}
	if verdict.Issues[0].Reason != "Not enough documents uploaded for Test Country" {
		t.Fatalf("reason = %q", verdict.Issues[0].Reason)
	}

	// Two arbitrary filenames pass; the fixture country matches by count.
	verdict, err = v.Validate(context.Background(), form, docFiles("whatever.bin", "other.bin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.OK {
		t.Fatalf("two documents rejected: %+v", verdict)
	}
}

func TestValidateMatchesRequiredDocumentsByName(t *testing.T) {
	v := newTestValidator()
	form := submission.Form{
		Country:  "Australia",
		VisaType: "Visitor Visa",
		DocsMeta: []submission.DocumentMeta{
			{Name: "Passport", Type: "required"},
			{Name: "Bank Statement", Type: "required"},
		},
	}

	verdict, err := v.Validate(context.Background(), form,
		docFiles("passport-scan.pdf", "bank statement 2026.pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.OK {
		t.Fatalf("matching filenames rejected: %+v", verdict)
	}

	verdict, err = v.Validate(context.Background(), form, docFiles("passport-scan.pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.OK {
		t.Fatal("missing required document accepted")
	}
	if verdict.Issues[0].FileName != "Bank Statement" {
		t.Fatalf("issue = %+v", verdict.Issues[0])
	}
}

func TestValidateFallsBackToCatalogRequirements(t *testing.T) {
	v := newTestValidator()

	// No declared metadata: requirements come from the catalog.
	form := submission.Form{Country: "Australia", VisaType: "Visitor Visa"}
	verdict, err := v.Validate(context.Background(), form,
		docFiles("passport.pdf", "bank statement.pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.OK {
		t.Fatalf("catalog-derived requirements rejected matching upload: %+v", verdict)
	}
}

func TestValidateRequiresMetadataForUnknownSelection(t *testing.T) {
	v := newTestValidator()

	form := submission.Form{Country: "Atlantis", VisaType: "Tourist Visa"}
	verdict, err := v.Validate(context.Background(), form, docFiles("passport.pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.OK || verdict.Issues[0].Reason != "Missing required documents metadata" {
		t.Fatalf("verdict = %+v", verdict)
	}
}
