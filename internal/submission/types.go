package submission

// DocumentMeta describes one document the applicant claims to have uploaded,
// as declared in the form payload ("docsMeta").
type DocumentMeta struct {
	Name string `json:"name"`
	Type string `json:"type"` // "required" or "optional"
}

// File is one uploaded document held in memory for the duration of a
// pipeline run.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Content     []byte
}

// Form is the applicant-facing payload of an evaluation request.
type Form struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Country  string         `json:"country"`
	VisaType string         `json:"visaType"`
	DocsMeta []DocumentMeta `json:"docsMeta"`
}

// RequiredDocs filters the declared documents down to the required ones.
func (f Form) RequiredDocs() []DocumentMeta {
	var out []DocumentMeta
	for _, d := range f.DocsMeta {
		if d.Type == "required" {
			out = append(out, d)
		}
	}
	return out
}

// OptionalDocs filters the declared documents down to the optional ones.
func (f Form) OptionalDocs() []DocumentMeta {
	var out []DocumentMeta
	for _, d := range f.DocsMeta {
		if d.Type == "optional" {
			out = append(out, d)
		}
	}
	return out
}
