package api

import "github.com/solatis/ensuregen/internal/types"

// CatalogFile is an external catalog sent inline with a request.
type CatalogFile struct {
	Name    string `json:"name"`
	Format  string `json:"format,omitempty"` // yaml (default) or json
	Content string `json:"content"`
}

// CompileRequest asks for one manifest to be compiled.
type CompileRequest struct {
	// File names the manifest in diagnostics and in the generated header.
	File       string        `json:"file,omitempty"`
	Format     string        `json:"format,omitempty"` // yaml (default) or json
	Manifest   string        `json:"manifest"`
	Catalogs   []CatalogFile `json:"catalogs,omitempty"`
	OnFailure  string        `json:"on_failure,omitempty"` // overrides the server default
	FixImports bool          `json:"fix_imports,omitempty"`
	// IfNoneMatch is the input hash of a previous response; when it still
	// matches, no source is returned.
	IfNoneMatch string `json:"if_none_match,omitempty"`
}

// Diagnostic is a compiler diagnostic on the wire.
type Diagnostic struct {
	Code      string `json:"code"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
	Validator string `json:"validator,omitempty"`
}

// CompileResponse carries the generated file or the reasons there is none.
type CompileResponse struct {
	Source             string       `json:"source,omitempty"`
	Diagnostics        []Diagnostic `json:"diagnostics,omitempty"`
	Validators         int          `json:"validators"`
	FailureSites       int          `json:"failure_sites"`
	CatalogFingerprint string       `json:"catalog_fingerprint"`
	InputHash          string       `json:"input_hash"`
	NotModified        bool         `json:"not_modified,omitempty"`
}

// Failed reports whether the response carries error diagnostics.
func (r *CompileResponse) Failed() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == types.SeverityError.String() {
			return true
		}
	}
	return false
}

func toWire(diags []types.Diagnostic) []Diagnostic {
	if len(diags) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = Diagnostic{
			Code:      d.Code,
			Severity:  d.Severity.String(),
			Message:   d.Message,
			File:      d.Loc.File,
			Line:      d.Loc.Line,
			Column:    d.Loc.Column,
			Validator: d.Validator,
		}
	}
	return out
}
