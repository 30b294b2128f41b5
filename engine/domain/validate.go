package domain

import "strings"

// naTokens are the cell values treated as missing, the same set pandas uses
// by default when reading CSV.
var naTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissing reports whether a raw cell value denotes a missing value.
func IsMissing(raw string) bool {
	return naTokens[strings.TrimSpace(raw)]
}

// ValidateRecord checks the only schema rule of the export: a present Patient_ID.
func ValidateRecord(r Record) error {
	if IsMissing(r.PatientID) {
		return NewValidationError("patient_id", r.PatientID, r.Line, ErrMissingPatientID)
	}
	return nil
}
